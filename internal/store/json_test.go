package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestStore(t *testing.T) *JSONStore {
	t.Helper()
	s, err := NewJSONStore(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	return s
}

func TestNewJSONStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	s, err := NewJSONStore(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, filepath.Join(dir, "issues.json"), s.Path(Issues))
}

func TestLoad_MissingDocumentIsEmpty(t *testing.T) {
	s := newTestStore(t)

	var items []record
	require.NoError(t, s.Load(context.Background(), Issues, &items))
	assert.Empty(t, items)

	exists, err := s.Exists(Issues)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := map[string]record{
		"a": {Name: "alpha", Count: 1},
		"b": {Name: "beta", Count: 2},
	}
	require.NoError(t, s.Save(ctx, Files, want))

	got := map[string]record{}
	require.NoError(t, s.Load(ctx, Files, &got))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}

	exists, err := s.Exists(Files)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSave_ReplacesWholeDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, Issues, []record{{Name: "one"}, {Name: "two"}}))
	require.NoError(t, s.Save(ctx, Issues, []record{{Name: "three"}}))

	var got []record
	require.NoError(t, s.Load(ctx, Issues, &got))
	assert.Equal(t, []record{{Name: "three"}}, got)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"issues.json", "issues.json.lock"}, names, "no temp files should be left behind")
}

func TestLoad_CorruptDocument(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(Users), []byte("{not json"), 0o644))

	var users map[string]record
	err := s.Load(context.Background(), Users, &users)
	require.Error(t, err)

	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "decode", ioErr.Op)
	assert.Equal(t, Users, ioErr.Collection)
}

func TestLoad_EmptyFileIsEmpty(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(Issues), []byte("\n"), 0o644))

	var items []record
	require.NoError(t, s.Load(context.Background(), Issues, &items))
	assert.Empty(t, items)
}

func TestUpdate_MutateErrorSkipsWrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, Issues, []record{{Name: "kept"}}))

	boom := errors.New("boom")
	var items []record
	err := s.Update(ctx, Issues, &items, func() error {
		items = append(items, record{Name: "lost"})
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var got []record
	require.NoError(t, s.Load(ctx, Issues, &got))
	assert.Equal(t, []record{{Name: "kept"}}, got)
}

func TestUpdate_NoChangeSkipsWrite(t *testing.T) {
	s := newTestStore(t)

	var items []record
	err := s.Update(context.Background(), Issues, &items, func() error {
		return ErrNoChange
	})
	require.NoError(t, err)

	exists, err := s.Exists(Issues)
	require.NoError(t, err)
	assert.False(t, exists, "ErrNoChange must not create the document")
}

func TestUpdate_SerializesConcurrentWriters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const writers = 40
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			var items []record
			errs <- s.Update(ctx, Issues, &items, func() error {
				items = append(items, record{Name: "w", Count: len(items) + 1})
				return nil
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var got []record
	require.NoError(t, s.Load(ctx, Issues, &got))
	require.Len(t, got, writers, "no update may be lost")
	for i, r := range got {
		assert.Equal(t, i+1, r.Count)
	}
}

func TestUpdate_SerializesWritersAcrossStores(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	a, err := NewJSONStore(dir)
	require.NoError(t, err)
	b, err := NewJSONStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	const perStore = 40
	var wg sync.WaitGroup
	errs := make(chan error, 2*perStore)
	for _, s := range []*JSONStore{a, b} {
		for i := 0; i < perStore; i++ {
			wg.Add(1)
			go func(s *JSONStore) {
				defer wg.Done()
				var items []record
				errs <- s.Update(ctx, Issues, &items, func() error {
					items = append(items, record{Name: "w", Count: len(items) + 1})
					return nil
				})
			}(s)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var got []record
	require.NoError(t, a.Load(ctx, Issues, &got))
	require.Len(t, got, 2*perStore, "no update may be lost between stores")
	for i, r := range got {
		assert.Equal(t, i+1, r.Count)
	}
}

func TestLoad_CanceledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var items []record
	assert.ErrorIs(t, s.Load(ctx, Issues, &items), context.Canceled)
	assert.ErrorIs(t, s.Save(ctx, Issues, items), context.Canceled)
}
