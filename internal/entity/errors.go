package entity

import "errors"

// Domain errors for cards, sessions and sync.
var (
	ErrCardNotFound      = errors.New("card not found")
	ErrPartNotFound      = errors.New("part not found")
	ErrLevelNotFound     = errors.New("level not found")
	ErrInvalidRating     = errors.New("rating out of range")
	ErrEmptyCandidateSet = errors.New("no cards available for a session")
	ErrSessionActive     = errors.New("a session is already active")
	ErrSessionNotActive  = errors.New("no active session")
	ErrSessionComplete   = errors.New("session target reached")
	ErrSnapshotNotFound  = errors.New("snapshot not found")
	ErrSyncUnavailable   = errors.New("sync unavailable")
)
