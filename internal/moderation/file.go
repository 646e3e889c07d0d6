package moderation

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileStore backs the moderation document with a single YAML file on local
// disk. Save writes to a sibling temp file and renames it over the target,
// so a crash mid-write never leaves a truncated document behind.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the moderation document. A missing file is not an error; it
// yields an empty State.
func (f *FileStore) Load() (*State, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read moderation file %s: %w", f.path, err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse moderation file %s: %w", f.path, err)
	}
	return stateFromDocument(doc), nil
}

// Save rewrites the moderation document in full via a temp-file-then-rename,
// so a reader never observes a partially written file.
func (f *FileStore) Save(s *State) error {
	data, err := yaml.Marshal(s.toDocument())
	if err != nil {
		return fmt.Errorf("marshal moderation document: %w", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".moderation-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp moderation file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp moderation file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp moderation file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("rename moderation file into place: %w", err)
	}
	return nil
}
