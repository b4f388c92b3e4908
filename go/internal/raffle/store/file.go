package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mcdev12/staffraffle/go/internal/models"
)

// FileStore keeps the session as a JSON file in a data directory.
type FileStore struct {
	path string
}

// NewFileStore returns a store writing <dir>/<key>.json.
func NewFileStore(dir, key string) *FileStore {
	if key == "" {
		key = DefaultKey
	}
	return &FileStore{path: filepath.Join(dir, key+".json")}
}

// Path returns the file the session is written to.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Save(_ context.Context, snapshot models.RaffleSession) error {
	data, err := encode(snapshot)
	if err != nil {
		return f.fail("save", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return f.fail("save", err)
	}

	// Write then rename so a crash never leaves a half-written session.
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return f.fail("save", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return f.fail("save", err)
	}
	return nil
}

func (f *FileStore) Load(_ context.Context) (*models.RaffleSession, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, f.fail("load", err)
	}
	snapshot, err := decode(data)
	if err != nil {
		return nil, f.fail("load", err)
	}
	return snapshot, nil
}

func (f *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return f.fail("clear", err)
	}
	return nil
}

func (f *FileStore) fail(op string, err error) error {
	return &PersistenceError{Backend: "file", Op: op, Err: fmt.Errorf("%s: %w", f.path, err)}
}
