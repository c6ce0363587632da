package tempfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
)

// Handle is an exclusively owned on-disk staging file. It exists so the
// remote document client has a path-addressable copy of an uploaded
// payload; it never outlives the request that acquired it.
type Handle struct {
	path string
}

// Path returns the absolute location of the staged file.
func (h Handle) Path() string {
	return h.path
}

// Manager creates and removes staging files under a single directory.
type Manager struct {
	dir string
}

// New creates a Manager rooted at dir; an empty dir means the platform
// temporary-file area.
func New(dir string) *Manager {
	if dir == "" {
		dir = os.TempDir()
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		zlog.Logger.Warn().Err(err).Msgf("failed to create staging dir %s", dir)
	}
	return &Manager{dir: dir}
}

// Acquire writes data to a freshly named file and hands ownership of it
// to the caller. Names combine a timestamp, a random token, and the
// sanitized original filename, so collisions between concurrent
// requests are structurally impossible, not just unlikely.
func (m *Manager) Acquire(filename string, data []byte) (Handle, error) {
	name := fmt.Sprintf("%d_%s_%s", time.Now().UnixNano(), uuid.NewString(), sanitize(filename))
	path := filepath.Join(m.dir, name)

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return Handle{}, fmt.Errorf("acquire: failed to write staging file: %w", err)
	}

	return Handle{path: path}, nil
}

// Release removes the staged file. A file that is already gone is not
// an error; release never escalates into a second failure.
func (m *Manager) Release(h Handle) {
	if h.path == "" {
		return
	}
	if err := os.Remove(h.path); err != nil && !os.IsNotExist(err) {
		zlog.Logger.Warn().Err(err).Msgf("failed to remove staging file %s", h.path)
	}
}

// Scope collects every handle acquired while serving one request so the
// dispatcher can release them all on any exit path with a single defer.
type Scope struct {
	m       *Manager
	handles []Handle
}

// Scope starts a new per-request acquisition scope.
func (m *Manager) Scope() *Scope {
	return &Scope{m: m}
}

// Acquire stages data through the manager and records the handle for
// release.
func (s *Scope) Acquire(filename string, data []byte) (Handle, error) {
	h, err := s.m.Acquire(filename, data)
	if err != nil {
		return Handle{}, err
	}
	s.handles = append(s.handles, h)
	return h, nil
}

// ReleaseAll releases every handle acquired in this scope, exactly once.
func (s *Scope) ReleaseAll() {
	for _, h := range s.handles {
		s.m.Release(h)
	}
	s.handles = nil
}

// sanitize keeps only filename characters that are safe in a path
// component.
func sanitize(filename string) string {
	base := filepath.Base(filename)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
}
