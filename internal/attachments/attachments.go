// Package attachments stores uploaded payloads on disk and their metadata in
// the files collection.
package attachments

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/tracker/internal/models"
	"github.com/joescharf/tracker/internal/store"
)

// ErrNotFound is returned when a key has no record or its payload is gone.
var ErrNotFound = errors.New("attachment not found")

// denyAll is written to the uploads directory so that a web server pointed
// at it by mistake refuses direct access.
const denyAll = "Order Deny,Allow\nDeny from all\n"

// Upload describes an incoming payload. Size is the declared length; when
// positive it must match the bytes actually read.
type Upload struct {
	OriginalName string
	MimeType     string
	Size         int64
	UploadedBy   string
}

// Download is an opened payload. Callers must Close it.
type Download struct {
	Record  *models.Attachment
	Content *os.File
	ModTime time.Time
}

func (d *Download) Close() error { return d.Content.Close() }

// Store owns the key -> record mapping and the payload files.
type Store struct {
	docs store.Store
	dir  string
	now  func() time.Time
}

// New creates an attachment store writing payloads under dir.
func New(docs store.Store, dir string) *Store {
	return &Store{docs: docs, dir: dir, now: time.Now}
}

// Init creates the uploads directory and its deny marker, and writes an
// empty files document on first run.
func (s *Store) Init(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create uploads directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, ".htaccess"), []byte(denyAll), 0o644); err != nil {
		return fmt.Errorf("write uploads marker: %w", err)
	}
	exists, err := s.docs.Exists(store.Files)
	if err != nil || exists {
		return err
	}
	return s.docs.Save(ctx, store.Files, models.AttachmentIndex{})
}

func newKey(t time.Time) string {
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(t), rand.Reader).String())
}

// storedName keeps the original extension so downloads of the raw file stay
// recognizable on disk.
func storedName(key, originalName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	return key + ext
}

// Store writes payload to disk and records it, returning its new key.
func (s *Store) Store(ctx context.Context, payload io.Reader, up Upload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := filepath.Base(strings.ReplaceAll(up.OriginalName, `\`, "/"))
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("store attachment: missing file name")
	}

	now := s.now()
	key := newKey(now)
	record := models.Attachment{
		Key:          key,
		OriginalName: name,
		StoredName:   storedName(key, name),
		MimeType:     up.MimeType,
		UploadedBy:   up.UploadedBy,
		UploadedAt:   models.NewTimestamp(now),
	}

	size, sum, err := s.writePayload(payload, record.StoredName)
	if err != nil {
		return "", fmt.Errorf("store attachment: %w", err)
	}
	final := filepath.Join(s.dir, record.StoredName)
	if up.Size > 0 && size != up.Size {
		_ = os.Remove(final)
		return "", fmt.Errorf("store attachment: read %d bytes, expected %d", size, up.Size)
	}
	record.Size = size
	record.SHA256 = sum

	files := models.AttachmentIndex{}
	err = s.docs.Update(ctx, store.Files, &files, func() error {
		files[key] = &record
		return nil
	})
	if err != nil {
		_ = os.Remove(final)
		return "", fmt.Errorf("store attachment: %w", err)
	}
	return key, nil
}

// writePayload copies r into the uploads directory through a temp file and
// returns the byte count and hex SHA-256.
func (s *Store) writePayload(r io.Reader, name string) (int64, string, error) {
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return 0, "", err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		_ = tmp.Close()
		return 0, "", fmt.Errorf("write payload: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return 0, "", err
	}
	if err := tmp.Close(); err != nil {
		return 0, "", err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return 0, "", err
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}

// Retrieve looks up the record for key. A missing key is not an error.
func (s *Store) Retrieve(ctx context.Context, key string) (*models.Attachment, bool, error) {
	files, err := s.all(ctx)
	if err != nil {
		return nil, false, err
	}
	rec, ok := files[key]
	return rec, ok, nil
}

// Lookup returns the records for the given keys, skipping unknown ones.
func (s *Store) Lookup(ctx context.Context, keys ...string) (map[string]*models.Attachment, error) {
	files, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*models.Attachment, len(keys))
	for _, k := range keys {
		if rec, ok := files[k]; ok && k != "" {
			out[k] = rec
		}
	}
	return out, nil
}

func (s *Store) all(ctx context.Context) (models.AttachmentIndex, error) {
	files := models.AttachmentIndex{}
	if err := s.docs.Load(ctx, store.Files, &files); err != nil {
		return nil, fmt.Errorf("load attachments: %w", err)
	}
	for k, rec := range files {
		rec.Key = k
	}
	return files, nil
}

// Open returns the payload for key, or ErrNotFound when either the record
// or the file on disk is missing.
func (s *Store) Open(ctx context.Context, key string) (*Download, error) {
	rec, ok, err := s.Retrieve(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok || rec.StoredName == "" || rec.StoredName != filepath.Base(rec.StoredName) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	f, err := os.Open(filepath.Join(s.dir, rec.StoredName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open attachment: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat attachment: %w", err)
	}
	return &Download{Record: rec, Content: f, ModTime: info.ModTime()}, nil
}

// Remove deletes the record and payload for key. Removing an unknown key is
// not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	var stored string
	files := models.AttachmentIndex{}
	err := s.docs.Update(ctx, store.Files, &files, func() error {
		rec, ok := files[key]
		if !ok {
			return store.ErrNoChange
		}
		stored = rec.StoredName
		delete(files, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove attachment: %w", err)
	}
	if stored == "" || stored != filepath.Base(stored) {
		return nil
	}
	if err := os.Remove(filepath.Join(s.dir, stored)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove attachment: %w", err)
	}
	return nil
}
