package repository

import (
	"context"

	"github.com/eslsoft/lernkarten/internal/entity"
)

// LocalStore persists snapshot documents on this device. Save is an
// upsert: the caller writes after every state-changing operation.
type LocalStore interface {
	Save(ctx context.Context, snap entity.Snapshot) error
	// Load returns entity.ErrSnapshotNotFound when no snapshot exists
	// for the user.
	Load(ctx context.Context, userID string) (entity.Snapshot, error)
	// Meta reads a small key/value setting ("" when absent).
	Meta(ctx context.Context, key string) (string, error)
	SetMeta(ctx context.Context, key, value string) error
	Close() error
}
