// Package sync pushes and pulls snapshot documents to a remote store and
// reconciles conflicting updates through the merge engine.
package sync

import (
	"context"

	"github.com/eslsoft/lernkarten/internal/entity"
)

// Remote is the document-store client the syncer speaks to. Pull returns
// entity.ErrSnapshotNotFound when the user has no remote document yet;
// transport failures wrap entity.ErrSyncUnavailable so callers can defer
// rather than fail.
type Remote interface {
	Pull(ctx context.Context, userID string) (entity.Snapshot, error)
	Push(ctx context.Context, snap entity.Snapshot) error
	// Subscribe registers fn for push-style change notifications on the
	// user's document and returns an unsubscribe function.
	Subscribe(ctx context.Context, userID string, fn func(entity.Snapshot)) (func(), error)
}
