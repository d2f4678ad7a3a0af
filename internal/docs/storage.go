// README: Driver document storage on local disk.
package docs

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrInvalidName = errors.New("invalid document name")
)

// Storage writes uploaded driver documents (license scans, ID photos) under
// a single directory with random names. Uploads never keep the client's
// filename beyond its extension.
type Storage struct {
	dir string
}

func NewStorage(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create document dir: %w", err)
	}
	return &Storage{dir: dir}, nil
}

// Save stores the content under a random hex name and returns that name.
func (s *Storage) Save(r io.Reader, originalName string) (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	name := hex.EncodeToString(b[:]) + sanitizeExt(originalName)

	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return name, nil
}

// Open returns the stored document. Names containing path separators or
// parent references are rejected before touching the filesystem.
func (s *Storage) Open(name string) (io.ReadCloser, error) {
	if !validName(name) {
		return nil, ErrInvalidName
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func validName(name string) bool {
	if name == "" || name != filepath.Base(name) {
		return false
	}
	return !strings.Contains(name, "..") && !strings.ContainsAny(name, `/\`)
}

func sanitizeExt(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if len(ext) > 8 || strings.ContainsAny(ext, `/\`) || strings.Contains(ext, "..") {
		return ""
	}
	return ext
}
