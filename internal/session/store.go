// Package session owns the server side of issued sessions: one Redis
// record per token, deleted on logout so revoked tokens stop working
// before they expire.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "session:"

// Record is the stored per-session state.
type Record struct {
	ID        string    `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store persists session records in Redis with a TTL equal to the token
// lifetime.
type Store struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewStore creates a session store.
func NewStore(rdb *redis.Client, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{rdb: rdb, logger: logger}
}

// Save writes a session record, expiring it when the token does.
func (s *Store) Save(ctx context.Context, rec Record) error {
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", rec.ID)
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.rdb.Set(ctx, keyPrefix+rec.ID, body, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Get returns the session record, or (nil, nil) when missing or expired.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	body, err := s.rdb.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &rec, nil
}

// Revoke deletes the session record. Best effort: logout must clear local
// state even when the remote delete fails, so callers log and move on.
func (s *Store) Revoke(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, keyPrefix+id).Err(); err != nil {
		s.logger.Warn("session revoke failed", zap.String("session_id", id), zap.Error(err))
		return err
	}
	return nil
}

// Revoked reports whether a session ID is no longer present. On Redis
// errors it reports false: an unreachable store must not lock every user
// out, the JWT expiry still bounds the session.
func (s *Store) Revoked(ctx context.Context, id string) bool {
	n, err := s.rdb.Exists(ctx, keyPrefix+id).Result()
	if err != nil {
		return false
	}
	return n == 0
}
