// Package storage persists annotated artifacts.
//
// The pipeline hands a rendered image and an artifact name to a Store; the
// Store picks the encoding from the name's extension and returns the
// reference callers use to fetch the artifact later.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// ErrInvalidName is returned for artifact names that are empty or not a
// plain file name.
var ErrInvalidName = errors.New("invalid artifact name")

// JPEGQuality is used when an artifact name has a JPEG extension.
const JPEGQuality = 95

// Store saves encoded artifacts under a name.
type Store interface {
	// Save encodes img in the format implied by name and stores it. The
	// returned reference identifies the stored artifact.
	Save(ctx context.Context, name string, img image.Image) (string, error)
}

// ValidateName checks that name is a bare file name.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Encode writes img to w in the format implied by name's extension.
//
// A .gif name yields a GIF, which is limited to a 256-color palette; every
// other supported extension keeps full RGB.
func Encode(w io.Writer, name string, img image.Image) error {
	format, err := imaging.FormatFromFilename(name)
	if err != nil {
		return fmt.Errorf("cannot encode %s: %w", name, err)
	}
	if err := imaging.Encode(w, img, format, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return nil
}

// DirStore writes artifacts as files in a directory.
type DirStore struct {
	Root string
}

// NewDirStore returns a DirStore rooted at root. The directory is created on
// first Save.
func NewDirStore(root string) *DirStore {
	return &DirStore{Root: root}
}

// Path returns the file path an artifact name maps to.
func (s *DirStore) Path(name string) string {
	return filepath.Join(s.Root, name)
}

// Save encodes img to a temporary file and renames it into place, so readers
// never observe a partially written artifact.
func (s *DirStore) Save(ctx context.Context, name string, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := ValidateName(name); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Root, 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.Root, ".tmp-*-"+name)
	if err != nil {
		return "", fmt.Errorf("failed to create artifact file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := Encode(tmp, name, img); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(name)); err != nil {
		return "", fmt.Errorf("failed to store artifact: %w", err)
	}
	return name, nil
}

// MemoryStore keeps encoded artifacts in memory. It is safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Save encodes img and keeps the bytes under name, replacing any previous entry.
func (s *MemoryStore) Save(ctx context.Context, name string, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := ValidateName(name); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := Encode(&buf, name, img); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.blobs[name] = buf.Bytes()
	s.mu.Unlock()
	return name, nil
}

// Get returns the encoded bytes stored under name.
func (s *MemoryStore) Get(name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[name]
	return b, ok
}

// Names returns the stored artifact names in sorted order.
func (s *MemoryStore) Names() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.blobs))
	for n := range s.blobs {
		names = append(names, n)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names
}
