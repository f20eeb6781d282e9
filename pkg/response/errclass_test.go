package response

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrClass
	}{
		{"nil", nil, ErrClassGeneric},
		{"insufficient privilege code", &pgconn.PgError{Code: "42501"}, ErrClassPermission},
		{"undefined column code", &pgconn.PgError{Code: "42703"}, ErrClassSchema},
		{"undefined table code", &pgconn.PgError{Code: "42P01"}, ErrClassSchema},
		{"unique violation is generic", &pgconn.PgError{Code: "23505"}, ErrClassGeneric},
		{"wrapped pg error", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "42501"}), ErrClassPermission},
		{"flattened rls message", errors.New("new row violates row-level security policy"), ErrClassPermission},
		{"flattened missing column", errors.New(`column "event_date" does not exist`), ErrClassSchema},
		{"plain error", errors.New("connection reset"), ErrClassGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Fatalf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrClassMessage(t *testing.T) {
	if m := ErrClassPermission.Message(); m == "" || m == ErrClassSchema.Message() {
		t.Fatal("classes must have distinct non-empty messages")
	}
}
