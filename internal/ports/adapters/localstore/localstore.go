// Package localstore keeps uploaded source files in a local directory.
package localstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/forPelevin/reelcut/internal/ports"
)

const maxNameLen = 80

var unsafeNameRE = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("upload directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Store copies r into a new file named <uuid>_<sanitized name>.
func (s *Store) Store(r io.Reader, originalName string) (ports.Handle, error) {
	h := ports.Handle(uuid.NewString() + "_" + sanitizeName(originalName))
	p := filepath.Join(s.dir, string(h))
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(p)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(p)
		return "", fmt.Errorf("write upload: %w", err)
	}
	return h, nil
}

func (s *Store) Retrieve(h ports.Handle) ([]byte, error) {
	p, err := s.Path(h)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", h, err)
	}
	return b, nil
}

// Path resolves h inside the store. Handles that are not a single plain path
// segment are rejected with ports.ErrInvalidHandle.
func (s *Store) Path(h ports.Handle) (string, error) {
	name := string(h)
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") ||
		filepath.Base(name) != name {
		return "", fmt.Errorf("%w: %q", ports.ErrInvalidHandle, name)
	}
	p := filepath.Join(s.dir, name)
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("upload %s: %w", h, err)
	}
	return p, nil
}

func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeNameRE.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "upload"
	}
	if r := []rune(name); len(r) > maxNameLen {
		name = string(r[len(r)-maxNameLen:])
	}
	return name
}

// FileChecker reports existence via os.Stat.
type FileChecker struct{}

func (FileChecker) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

var (
	_ ports.UploadStore = (*Store)(nil)
	_ ports.FileChecker = FileChecker{}
)
