// Package store keeps the metadata registry for uploaded files and persists
// their blobs to a spill directory. Files are created once, read many times,
// and never deleted; the OS temp-dir cleanup reclaims them after exit.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get for unknown file ids.
var ErrNotFound = errors.New("file not found")

// StoredFile describes one uploaded file: its generated id, the original
// (untrusted) filename, the number of bytes actually written, the on-disk
// blob path, and the upload time.
type StoredFile struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	Path       string    `json:"-"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// FileStore maps file ids to stored files. Lookups and mutations are safe for
// concurrent use; blob writes happen outside the lock so a slow disk never
// blocks readers.
type FileStore struct {
	mu    sync.RWMutex
	dir   string
	files map[string]StoredFile
	order []string
}

// New creates a FileStore that persists blobs under dir, creating it if
// needed. An empty dir falls back to the OS temp directory.
func New(dir string) (*FileStore, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{
		dir:   dir,
		files: make(map[string]StoredFile),
	}, nil
}

// Put writes data to a fresh blob keyed by a new unique id and registers the
// metadata. The write is all-or-nothing: on failure nothing is registered and
// the error is returned to the caller.
func (s *FileStore) Put(filename string, data []byte) (StoredFile, error) {
	id := uuid.NewString()
	path := filepath.Join(s.dir, "lan-share-"+id+"-"+sanitizeName(filename))

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return StoredFile{}, fmt.Errorf("write blob: %w", err)
	}

	f := StoredFile{
		ID:         id,
		Filename:   filename,
		Size:       int64(len(data)),
		Path:       path,
		UploadedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.files[id] = f
	s.order = append(s.order, id)
	s.mu.Unlock()

	return f, nil
}

// Get returns the stored file for id, or ErrNotFound.
func (s *FileStore) Get(id string) (StoredFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.files[id]
	if !ok {
		return StoredFile{}, ErrNotFound
	}
	return f, nil
}

// List returns all stored files in insertion order.
func (s *FileStore) List() []StoredFile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]StoredFile, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.files[id])
	}
	return out
}

// Len returns the number of stored files.
func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// sanitizeName flattens the untrusted client filename into something safe to
// embed in a blob path. The original name is kept verbatim in the metadata.
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "" || name == "." || name == ".." || name == "/" {
		return "file"
	}
	return name
}
