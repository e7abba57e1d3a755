package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"
)

// JSONStore implements Store with one indented JSON file per collection.
//
// Writers of a collection are serialized by an in-process mutex and an
// exclusive lock on <collection>.json.lock, so the CLI, the MCP server and a
// running web server can share one data directory.
type JSONStore struct {
	dir string

	mu    sync.Mutex
	locks map[Collection]*sync.Mutex
}

// NewJSONStore opens (or creates) a document directory.
func NewJSONStore(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &JSONStore{
		dir:   dir,
		locks: make(map[Collection]*sync.Mutex),
	}, nil
}

// Dir returns the directory holding the documents.
func (s *JSONStore) Dir() string { return s.dir }

// Path returns the backing file of a collection.
func (s *JSONStore) Path(c Collection) string {
	return filepath.Join(s.dir, string(c)+".json")
}

func (s *JSONStore) lockPath(c Collection) string {
	return s.Path(c) + ".lock"
}

// writer returns the in-process lock of a collection.
func (s *JSONStore) writer(c Collection) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[c]
	if !ok {
		l = &sync.Mutex{}
		s.locks[c] = l
	}
	return l
}

// acquire takes the collection's writer lock, first within the process and
// then across processes. The returned func releases both.
func (s *JSONStore) acquire(c Collection) (func(), error) {
	l := s.writer(c)
	l.Lock()

	f, err := os.OpenFile(s.lockPath(c), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		l.Unlock()
		return nil, &IOError{Op: "lock", Collection: c, Err: err}
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		l.Unlock()
		return nil, &IOError{Op: "lock", Collection: c, Err: err}
	}
	return func() {
		_ = unlockFile(f)
		_ = f.Close()
		l.Unlock()
	}, nil
}

func (s *JSONStore) Load(ctx context.Context, c Collection, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := os.ReadFile(s.Path(c))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &IOError{Op: "read", Collection: c, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &IOError{Op: "decode", Collection: c, Err: err}
	}
	return nil
}

func (s *JSONStore) Save(ctx context.Context, c Collection, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	release, err := s.acquire(c)
	if err != nil {
		return err
	}
	defer release()
	return s.save(ctx, c, v)
}

func (s *JSONStore) save(ctx context.Context, c Collection, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return &IOError{Op: "encode", Collection: c, Err: err}
	}
	data = append(data, '\n')
	if err := atomic.WriteFile(s.Path(c), bytes.NewReader(data)); err != nil {
		return &IOError{Op: "write", Collection: c, Err: err}
	}
	return nil
}

func (s *JSONStore) Update(ctx context.Context, c Collection, v any, mutate func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	release, err := s.acquire(c)
	if err != nil {
		return err
	}
	defer release()

	if err := s.Load(ctx, c, v); err != nil {
		return err
	}
	if err := mutate(); err != nil {
		if errors.Is(err, ErrNoChange) {
			return nil
		}
		return err
	}
	return s.save(ctx, c, v)
}

func (s *JSONStore) Exists(c Collection) (bool, error) {
	_, err := os.Stat(s.Path(c))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, &IOError{Op: "stat", Collection: c, Err: err}
}
