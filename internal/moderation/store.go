// Package moderation persists the hub's ban list and moderator roster:
// two UUID sets, loaded once at startup and rewritten in full on
// every mutation. The hub is the sole writer, so the store does no
// internal locking beyond what's needed to make a single Save call atomic
// against a concurrent reader crashing mid-write.
package moderation

import (
	"github.com/google/uuid"
)

// State is the in-memory snapshot of the moderation store: who is banned,
// and who may ban. The two sets may overlap; ban enforcement always takes
// precedence over moderator status.
type State struct {
	Banned    map[uuid.UUID]struct{} `yaml:"-"`
	Moderators map[uuid.UUID]struct{} `yaml:"-"`
}

// NewState returns an empty State.
func NewState() *State {
	return &State{
		Banned:     make(map[uuid.UUID]struct{}),
		Moderators: make(map[uuid.UUID]struct{}),
	}
}

func (s *State) IsBanned(id uuid.UUID) bool {
	_, ok := s.Banned[id]
	return ok
}

func (s *State) IsModerator(id uuid.UUID) bool {
	_, ok := s.Moderators[id]
	return ok
}

// document is the on-disk shape: two flat UUID lists, independent of the
// in-memory map representation used for O(1) lookups.
type document struct {
	Banned     []uuid.UUID `yaml:"banned"`
	Moderators []uuid.UUID `yaml:"moderators"`
}

func (s *State) toDocument() document {
	doc := document{
		Banned:     make([]uuid.UUID, 0, len(s.Banned)),
		Moderators: make([]uuid.UUID, 0, len(s.Moderators)),
	}
	for id := range s.Banned {
		doc.Banned = append(doc.Banned, id)
	}
	for id := range s.Moderators {
		doc.Moderators = append(doc.Moderators, id)
	}
	return doc
}

func stateFromDocument(doc document) *State {
	s := NewState()
	for _, id := range doc.Banned {
		s.Banned[id] = struct{}{}
	}
	for _, id := range doc.Moderators {
		s.Moderators[id] = struct{}{}
	}
	return s
}

// Store abstracts where the moderation document lives. Load is called once
// at hub startup; Save is called after every Ban/Unban mutation. A missing
// document on Load is not an error — it means an empty State.
type Store interface {
	Load() (*State, error)
	Save(*State) error
}
