// Package kv provides the string key-value stores that hold the save blob.
package kv

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"lukechampine.com/blake3"
)

// Store is a string key-value store. Get reports ok=false for absent keys.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

const (
	KindMemory   = "memory"
	KindFile     = "file"
	KindSQLite   = "sqlite"
	KindPostgres = "postgres"
)

type Options struct {
	Kind string
	// Dir is the data directory for file and sqlite stores.
	Dir string
	// DSN is the Postgres connection string.
	DSN string
}

// Open constructs the store named by opts.Kind.
func Open(ctx context.Context, opts Options) (Store, error) {
	var (
		s   Store
		err error
	)
	switch opts.Kind {
	case "", KindMemory:
		s = NewMemStore()
	case KindFile:
		s, err = NewFileStore(opts.Dir)
	case KindSQLite:
		s, err = OpenSQLite(filepath.Join(opts.Dir, "save.sqlite"))
	case KindPostgres:
		s, err = OpenPostgres(ctx, opts.DSN)
	default:
		return nil, fmt.Errorf("kv: unknown store kind %q", opts.Kind)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// OpenOptional opens the store named by opts. A store that cannot be opened
// is logged and reported as nil so callers keep running without durable
// saves.
func OpenOptional(ctx context.Context, opts Options, logger *log.Logger) Store {
	s, err := Open(ctx, opts)
	if err != nil {
		if logger != nil {
			logger.Printf("open %s store: %v; continuing without persistence", opts.Kind, err)
		}
		return nil
	}
	return s
}

func digest(value string) string {
	sum := blake3.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

type MemStore struct {
	mu sync.Mutex
	m  map[string]string
}

func NewMemStore() *MemStore {
	return &MemStore{m: map[string]string{}}
}

func (s *MemStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *MemStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *MemStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

func (s *MemStore) Close() error { return nil }
