package sync

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/eslsoft/lernkarten/internal/repository"
)

const userIDKey = "user_id"

// EnsureUserID returns the durable identifier keying this user's snapshot
// documents. A configured override wins (device linking); otherwise the
// stored id is reused, and on first run a fresh ULID is generated and
// persisted.
func EnsureUserID(ctx context.Context, local repository.LocalStore, configured string) (string, error) {
	if configured != "" {
		if err := local.SetMeta(ctx, userIDKey, configured); err != nil {
			return "", fmt.Errorf("store user id: %w", err)
		}
		return configured, nil
	}
	stored, err := local.Meta(ctx, userIDKey)
	if err != nil {
		return "", fmt.Errorf("read user id: %w", err)
	}
	if stored != "" {
		return stored, nil
	}
	id := ulid.Make().String()
	if err := local.SetMeta(ctx, userIDKey, id); err != nil {
		return "", fmt.Errorf("store user id: %w", err)
	}
	return id, nil
}
