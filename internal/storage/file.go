package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
)

const fileVersion = "1.0"

// DefaultPath returns the state file location under the XDG data directory.
func DefaultPath() (string, error) {
	return xdg.DataFile(filepath.Join("tableflow", "state.json"))
}

// File is a Store persisted as a single JSON document. Every write is saved
// to disk atomically.
type File struct {
	path   string
	mu     sync.RWMutex
	values map[string]json.RawMessage
}

type fileContents struct {
	Version string                     `json:"version"`
	Values  map[string]json.RawMessage `json:"values"`
}

// NewFile opens the store at path, creating its directory. A missing file
// starts an empty store.
func NewFile(path string) (*File, error) {
	f := &File{
		path:   path,
		values: make(map[string]json.RawMessage),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	if err := f.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return f, nil
}

// Path returns the backing file path.
func (f *File) Path() string { return f.path }

func (f *File) load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		return err
	}

	var contents fileContents
	if err := json.Unmarshal(data, &contents); err != nil {
		return fmt.Errorf("failed to parse storage file: %w", err)
	}
	if contents.Values != nil {
		f.values = contents.Values
	}
	return nil
}

// Get returns the value stored under key.
func (f *File) Get(key string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores value under key and saves the file. value must be valid JSON.
func (f *File) Set(key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("value for %q is not valid JSON", key)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = append(json.RawMessage(nil), value...)
	return f.save()
}

// Delete removes key and saves the file.
func (f *File) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.values[key]; !ok {
		return nil
	}
	delete(f.values, key)
	return f.save()
}

func (f *File) save() error {
	data, err := json.MarshalIndent(fileContents{Version: fileVersion, Values: f.values}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal storage: %w", err)
	}

	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
