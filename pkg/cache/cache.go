// Package cache persists serialized analysis results on disk, keyed by a
// hash of the analyzed program's inputs. A hit means the whole pipeline
// (SSA lowering, graph construction, reachability) can be skipped.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrMiss is returned when no entry exists for a key.
var ErrMiss = errors.New("cache miss")

// Entry is the on-disk envelope for one cached result.
type Entry struct {
	Key       string    `msgpack:"key"`
	CreatedAt time.Time `msgpack:"created_at"`
	Data      []byte    `msgpack:"data"`
}

// Store is a directory of msgpack-encoded entries, one file per key.
type Store struct {
	dir string
}

// DefaultDir returns ~/.tagflow/cache, falling back to a relative path when
// the home directory is unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".tagflow", "cache")
	}
	return filepath.Join(home, ".tagflow", "cache")
}

// NewStore opens (creating if needed) the cache directory.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".msgpack")
}

// Get returns the cached data for key, or ErrMiss. A corrupt or mismatched
// entry is treated as a miss, never as a failure.
func (s *Store) Get(key string) ([]byte, error) {
	raw, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, ErrMiss
	}
	var e Entry
	if err := msgpack.Unmarshal(raw, &e); err != nil {
		return nil, ErrMiss
	}
	if e.Key != key {
		return nil, ErrMiss
	}
	return e.Data, nil
}

// Put stores data under key, replacing any previous entry.
func (s *Store) Put(key string, data []byte) error {
	raw, err := msgpack.Marshal(Entry{
		Key:       key,
		CreatedAt: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	if err := os.WriteFile(s.path(key), raw, 0644); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}
