package moderation

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestFileStore_MissingFileIsEmptyState(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "bans.yaml"))

	s, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(s.Banned) != 0 || len(s.Moderators) != 0 {
		t.Fatalf("expected empty state, got %+v", s)
	}
}

func TestFileStore_SaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bans.yaml")
	store := NewFileStore(path)

	banned := uuid.New()
	mod := uuid.New()

	s := NewState()
	s.Banned[banned] = struct{}{}
	s.Moderators[mod] = struct{}{}

	if err := store.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !loaded.IsBanned(banned) {
		t.Error("expected banned uuid to round-trip")
	}
	if !loaded.IsModerator(mod) {
		t.Error("expected moderator uuid to round-trip")
	}
	if loaded.IsBanned(mod) {
		t.Error("moderator should not be banned")
	}
}

func TestFileStore_SaveOverwritesPreviousContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bans.yaml")
	store := NewFileStore(path)

	first := NewState()
	first.Banned[uuid.New()] = struct{}{}
	if err := store.Save(first); err != nil {
		t.Fatalf("Save: %v", err)
	}

	second := NewState()
	target := uuid.New()
	second.Banned[target] = struct{}{}
	if err := store.Save(second); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Banned) != 1 {
		t.Fatalf("expected exactly one banned uuid after overwrite, got %d", len(loaded.Banned))
	}
	if !loaded.IsBanned(target) {
		t.Error("expected second save's uuid to be present")
	}
}
