package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/lernkarten/internal/entity"
	"github.com/eslsoft/lernkarten/internal/repository"
)

// docStore serves snapshot documents from the snapshot repository and
// fans out change notifications to watch streams.
type docStore struct {
	snapshots repository.LocalStore
	logger    *logrus.Logger

	mu       sync.Mutex
	watchers map[string]map[int]chan entity.Snapshot
	nextID   int
	closed   bool
}

func newDocStore(snapshots repository.LocalStore, logger *logrus.Logger) *docStore {
	return &docStore{
		snapshots: snapshots,
		logger:    logger,
		watchers:  make(map[string]map[int]chan entity.Snapshot),
	}
}

func (d *docStore) handleGet(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	snap, err := d.snapshots.Load(r.Context(), userID)
	if errors.Is(err, entity.ErrSnapshotNotFound) {
		http.Error(w, "snapshot not found", http.StatusNotFound)
		return
	}
	if err != nil {
		d.logger.WithError(err).Error("load snapshot")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		d.logger.WithError(err).Warn("write snapshot response")
	}
}

func (d *docStore) handlePut(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	var snap entity.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		http.Error(w, "malformed snapshot", http.StatusBadRequest)
		return
	}
	if snap.UserID != "" && snap.UserID != userID {
		http.Error(w, "user id mismatch", http.StatusBadRequest)
		return
	}
	snap.UserID = userID
	snap.Normalize()
	if err := d.snapshots.Save(r.Context(), snap); err != nil {
		d.logger.WithError(err).Error("save snapshot")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	d.notify(userID, snap)
	w.WriteHeader(http.StatusNoContent)
}

// handleWatch streams change notifications for one user's document as
// server-sent events until the client disconnects.
func (d *docStore) handleWatch(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	userID := mux.Vars(r)["userID"]
	ch, cancel := d.watch(userID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, open := <-ch:
			if !open {
				return
			}
			data, err := json.Marshal(snap)
			if err != nil {
				d.logger.WithError(err).Warn("encode notification")
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (d *docStore) watch(userID string) (<-chan entity.Snapshot, func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.watchers[userID] == nil {
		d.watchers[userID] = make(map[int]chan entity.Snapshot)
	}
	id := d.nextID
	d.nextID++
	ch := make(chan entity.Snapshot, 4)
	d.watchers[userID][id] = ch
	return ch, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if c, ok := d.watchers[userID][id]; ok {
			delete(d.watchers[userID], id)
			close(c)
		}
	}
}

func (d *docStore) notify(userID string, snap entity.Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ch := range d.watchers[userID] {
		// Drop rather than block when a watcher is slow; the client will
		// pull the full document on its next sync anyway.
		select {
		case ch <- snap.Clone():
		default:
		}
	}
}

func (d *docStore) closeWatchers() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for _, byID := range d.watchers {
		for id, ch := range byID {
			delete(byID, id)
			close(ch)
		}
	}
}
