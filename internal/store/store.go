// Package store holds the in-memory card collection: the single owner of
// card review state.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/eslsoft/lernkarten/internal/entity"
)

// Hydrator fetches a card's remotely persisted review state. The bool
// result reports whether state exists for the card.
type Hydrator interface {
	CardState(ctx context.Context, cardID string) (entity.CardState, bool, error)
}

// Store is the authoritative in-memory collection of cards, indexed by id.
// It owns every *entity.Card; other components hold ids.
type Store struct {
	mu       sync.Mutex
	levels   []*entity.Level
	parts    map[string]*entity.Part
	cards    map[string]*entity.Card
	hydrated map[string]bool
	hydrator Hydrator
}

// New returns an empty store; populate it with Load.
func New() *Store {
	return &Store{
		parts:    make(map[string]*entity.Part),
		cards:    make(map[string]*entity.Card),
		hydrated: make(map[string]bool),
	}
}

// Load adopts the given levels and indexes their parts and cards. Card ids
// are assigned by the content loader ({partID}_{index}) and must be unique.
func (s *Store) Load(levels []*entity.Level) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, level := range levels {
		for _, part := range level.Parts {
			if _, ok := s.parts[part.ID]; ok {
				return fmt.Errorf("duplicate part id %q", part.ID)
			}
			s.parts[part.ID] = part
			for _, card := range part.Cards {
				if _, ok := s.cards[card.ID]; ok {
					return fmt.Errorf("duplicate card id %q", card.ID)
				}
				s.cards[card.ID] = card
			}
		}
		s.levels = append(s.levels, level)
	}
	return nil
}

// Get returns the card with the given id.
func (s *Store) Get(id string) (*entity.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.cards[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entity.ErrCardNotFound, id)
	}
	return card, nil
}

// MarkReviewed records one review outcome on the card: counters, history,
// learned flag, timestamps. It does not decide the next review date; the
// scheduler does, applied through ApplyOutcome in the same logical
// transaction.
func (s *Store) MarkReviewed(id string, rating entity.Rating, now time.Time) (*entity.Card, error) {
	if !rating.Valid() {
		return nil, fmt.Errorf("%w: %d", entity.ErrInvalidRating, rating)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.cards[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entity.ErrCardNotFound, id)
	}
	card.ApplyReview(rating, now)
	return card, nil
}

// ApplyOutcome writes the scheduler's decision back onto the card.
func (s *Store) ApplyOutcome(id string, nextReview time.Time, memory *entity.MemoryState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.cards[id]
	if !ok {
		return fmt.Errorf("%w: %s", entity.ErrCardNotFound, id)
	}
	due := nextReview
	card.NextReview = &due
	if memory != nil {
		card.Memory = memory.Clone()
	}
	return nil
}

// SetHydrator installs the source of remotely persisted card state used by
// EnsureLoaded. Optional; without one EnsureLoaded is a no-op.
func (s *Store) SetHydrator(h Hydrator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydrator = h
}

// EnsureLoaded idempotently hydrates a card from remote state before its
// first scheduling. State is applied only to cards never reviewed locally,
// so a late hydration can never clobber local progress.
func (s *Store) EnsureLoaded(ctx context.Context, id string) error {
	s.mu.Lock()
	card, ok := s.cards[id]
	hydrator := s.hydrator
	done := s.hydrated[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", entity.ErrCardNotFound, id)
	}
	if hydrator == nil || done {
		return nil
	}
	state, found, err := hydrator.CardState(ctx, id)
	if err != nil {
		return fmt.Errorf("hydrate card %s: %w", id, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydrated[id] = true
	if found && card.ReviewCount == 0 {
		card.SetState(state)
	}
	return nil
}

// Due returns cards whose next review has passed, least retained first.
func (s *Store) Due(now time.Time) []*entity.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []*entity.Card
	for _, card := range s.cards {
		if card.Due(now) {
			due = append(due, card)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		ri, rj := due[i].Retrievability(now), due[j].Retrievability(now)
		if ri != rj {
			return ri < rj
		}
		return due[i].ID < due[j].ID
	})
	return due
}

// Unlearned returns the unlearned cards of the named part, or of every
// unlocked part when partID is empty.
func (s *Store) Unlearned(partID string) ([]*entity.Card, error) {
	return s.filter(partID, func(c *entity.Card) bool { return !c.Learned })
}

// Learned returns the learned cards of the named part, or of every
// unlocked part when partID is empty.
func (s *Store) Learned(partID string) ([]*entity.Card, error) {
	return s.filter(partID, func(c *entity.Card) bool { return c.Learned })
}

func (s *Store) filter(partID string, keep func(*entity.Card) bool) ([]*entity.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pool []*entity.Part
	if partID != "" {
		part, ok := s.parts[partID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", entity.ErrPartNotFound, partID)
		}
		pool = append(pool, part)
	} else {
		for _, level := range s.levels {
			if !level.Unlocked {
				continue
			}
			for _, part := range level.Parts {
				if part.Unlocked {
					pool = append(pool, part)
				}
			}
		}
	}
	var out []*entity.Card
	for _, part := range pool {
		for _, card := range part.Cards {
			if keep(card) {
				out = append(out, card)
			}
		}
	}
	return out, nil
}

// ApplyState replaces one card's durable review state, typically after a
// merge. Unknown ids are ignored: snapshots may reference cards from
// content revisions this device has not loaded.
func (s *Store) ApplyState(id string, state entity.CardState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if card, ok := s.cards[id]; ok {
		card.SetState(state)
		s.hydrated[id] = true
	}
}

// ExportStates extracts the durable review state of every card that has
// been touched, for inclusion in a snapshot.
func (s *Store) ExportStates() map[string]entity.CardState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]entity.CardState)
	for id, card := range s.cards {
		if card.ReviewCount == 0 && !card.Learned {
			continue
		}
		out[id] = card.State()
	}
	return out
}

// Levels returns the loaded levels in order.
func (s *Store) Levels() []*entity.Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.levels
}

// Part returns the part with the given id.
func (s *Store) Part(id string) (*entity.Part, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	part, ok := s.parts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entity.ErrPartNotFound, id)
	}
	return part, nil
}

// TotalCards returns the number of loaded cards.
func (s *Store) TotalCards() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cards)
}
