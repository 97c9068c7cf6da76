package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Store persists the settings map as a JSON file.
type Store struct {
	fs   afero.Fs
	path string
}

// NewStore creates a store for the file at path on fs.
// A nil fs selects the OS filesystem.
func NewStore(fs afero.Fs, path string) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Store{fs: fs, path: path}
}

// Path returns the settings file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the stored settings. Any JSON value is returned as decoded;
// deciding whether it is a usable mapping is left to the caller.
//
// Returns:
//   - any: The decoded value, or nil when no settings were saved
//   - error: If the file cannot be read, or ErrInvalidSettings when it is not valid JSON
func (s *Store) Load() (any, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading settings %s: %w", s.path, err)
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", ErrInvalidSettings, s.path, err)
	}
	return v, nil
}

// Save writes the settings map, replacing the file atomically.
func (s *Store) Save(m map[string]any) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := s.fs.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating settings directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("replacing settings: %w", err)
	}
	return nil
}

// Remove deletes the settings file. A missing file is not an error.
func (s *Store) Remove() error {
	if err := s.fs.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing settings %s: %w", s.path, err)
	}
	return nil
}
