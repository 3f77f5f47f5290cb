package storage

import (
	"context"
	"time"

	"github.com/Sriram-PR/wiki-bot/pkg/models"
)

// SessionStore keeps per-chat quiz progress between updates
type SessionStore interface {
	// Get returns the session for chatID. found is false when no active session exists.
	Get(ctx context.Context, chatID int64) (sess *models.QuizSession, found bool, err error)
	// Put creates or replaces the session for sess.ChatID
	Put(ctx context.Context, sess *models.QuizSession) error
	// Delete removes the session; deleting a missing session is not an error
	Delete(ctx context.Context, chatID int64) error
	// Count returns the number of active sessions
	Count(ctx context.Context) (int, error)
	Close() error
}

// StoreAdmin is implemented by backends that need periodic maintenance
type StoreAdmin interface {
	RunGC(ctx context.Context, interval time.Duration)
}
