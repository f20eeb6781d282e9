package invoices

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestNumberAfter(t *testing.T) {
	const prefix = "INV-202608-"
	tests := []struct {
		name string
		last string
		want string
	}{
		{"empty month starts at one", "", "INV-202608-0001"},
		{"follows the highest issued", "INV-202608-0002", "INV-202608-0003"},
		// Deleting 0001 leaves 0002 as the max; the next number must be
		// 0003, never a re-issue of a number still in use.
		{"gap below the max is not reused", "INV-202608-0002", "INV-202608-0003"},
		{"wide sequence", "INV-202608-0099", "INV-202608-0100"},
		{"garbage suffix restarts", "INV-202608-xyz", "INV-202608-0001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := numberAfter(prefix, tt.last); got != tt.want {
				t.Fatalf("numberAfter(%q, %q) = %q, want %q", prefix, tt.last, got, tt.want)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("unique_violation must be detected")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatal("foreign key violations are not retryable allocations")
	}
	if isUniqueViolation(errors.New("connection reset")) {
		t.Fatal("plain errors are not unique violations")
	}
}
