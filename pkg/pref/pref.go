// Package pref persists small user preferences, such as the UI theme,
// in a JSON file. Preferences survive logout: ending the session clears
// auth state but never a user's chosen theme.
package pref

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Store is a file-backed key/value store for preferences.
// Safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	path   string
	values map[string]json.RawMessage
}

// Open loads the store at path, creating an empty one when the file
// doesn't exist yet.
func Open(path string) (*Store, error) {
	s := &Store{path: path, values: make(map[string]json.RawMessage)}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) get(key string, v any) bool {
	s.mu.Lock()
	raw, ok := s.values[key]
	s.mu.Unlock()
	if !ok {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func (s *Store) set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = raw
	return s.flushLocked()
}

func (s *Store) delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Pref is a typed preference bound to a Store key.
type Pref[T any] struct {
	store    *Store
	key      string
	defaults T
}

// Bind creates a typed view over key. Reads fall back to defaultValue
// when the key is absent or unreadable.
func Bind[T any](store *Store, key string, defaultValue T) *Pref[T] {
	return &Pref[T]{store: store, key: key, defaults: defaultValue}
}

// Get returns the stored value, or the default.
func (p *Pref[T]) Get() T {
	var v T
	if p.store.get(p.key, &v) {
		return v
	}
	return p.defaults
}

// Set stores and persists the value.
func (p *Pref[T]) Set(value T) error {
	return p.store.set(p.key, value)
}

// Reset removes the stored value; Get returns the default again.
func (p *Pref[T]) Reset() error {
	return p.store.delete(p.key)
}

// Key returns the preference key.
func (p *Pref[T]) Key() string { return p.key }
