package sync

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/lernkarten/internal/entity"
)

// HTTPRemote talks JSON to the snapshot document-store server:
// GET/PUT /v1/snapshots/{userID} plus a server-sent-events watch stream.
type HTTPRemote struct {
	base   string
	client *http.Client
	logger logrus.FieldLogger
}

// NewHTTPRemote builds a client for the store at baseURL.
func NewHTTPRemote(baseURL string, logger logrus.FieldLogger) *HTTPRemote {
	return &HTTPRemote{
		base:   strings.TrimRight(baseURL, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

func (r *HTTPRemote) url(userID string, watch bool) string {
	u := fmt.Sprintf("%s/v1/snapshots/%s", r.base, userID)
	if watch {
		u += "/watch"
	}
	return u
}

// Pull implements Remote.
func (r *HTTPRemote) Pull(ctx context.Context, userID string) (entity.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url(userID, false), nil)
	if err != nil {
		return entity.Snapshot{}, fmt.Errorf("pull: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return entity.Snapshot{}, fmt.Errorf("%w: pull: %v", entity.ErrSyncUnavailable, err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return entity.Snapshot{}, fmt.Errorf("%w: %s", entity.ErrSnapshotNotFound, userID)
	default:
		return entity.Snapshot{}, fmt.Errorf("%w: pull: status %d", entity.ErrSyncUnavailable, resp.StatusCode)
	}
	var snap entity.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return entity.Snapshot{}, fmt.Errorf("pull: decode: %w", err)
	}
	snap.Normalize()
	return snap, nil
}

// Push implements Remote.
func (r *HTTPRemote) Push(ctx context.Context, snap entity.Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("push: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, r.url(snap.UserID, false), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("push: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: push: %v", entity.ErrSyncUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w: push: status %d", entity.ErrSyncUnavailable, resp.StatusCode)
	}
	return nil
}

// Subscribe implements Remote by consuming the server's SSE watch stream
// in a background goroutine until the returned cancel function is called.
func (r *HTTPRemote) Subscribe(ctx context.Context, userID string, fn func(entity.Snapshot)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url(userID, true), nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	// The watch stream has no read deadline; use a dedicated client.
	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: subscribe: %v", entity.ErrSyncUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: subscribe: status %d", entity.ErrSyncUnavailable, resp.StatusCode)
	}

	go func() {
		defer resp.Body.Close()
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var snap entity.Snapshot
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &snap); err != nil {
				r.logger.WithError(err).Warn("malformed change notification")
				continue
			}
			snap.Normalize()
			fn(snap)
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			r.logger.WithError(err).Warn("watch stream closed")
		}
	}()
	return cancel, nil
}
