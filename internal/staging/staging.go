// Package staging owns the temporary files a request creates: uploads spooled
// to disk and executor work files. Every file acquired through a Scope is
// removed when the Scope is released.
package staging

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.\-]`)

// Area is the directory staged files live in.
type Area struct {
	dir    string
	log    zerolog.Logger
	now    func() time.Time
	remove func(string) error
}

// NewArea creates dir if needed.
func NewArea(dir string, log zerolog.Logger) (*Area, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("staging dir is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &Area{
		dir:    dir,
		log:    log.With().Str("component", "staging").Logger(),
		now:    time.Now,
		remove: os.Remove,
	}, nil
}

// Dir is where staged files and executor outputs are written.
func (a *Area) Dir() string { return a.dir }

// NewScope starts tracking files for one request.
func (a *Area) NewScope() *Scope {
	return &Scope{area: a}
}

// Scope is the set of temporary files held by one request.
type Scope struct {
	area     *Area
	mu       sync.Mutex
	paths    []string
	released bool
}

// Stage spools r into a new file named after the client-supplied name and
// returns its path and size. The file is tracked even when copying fails.
func (s *Scope) Stage(name string, r io.Reader) (string, int64, error) {
	p := filepath.Join(s.area.dir, s.area.stagedName(name))
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", 0, fmt.Errorf("create staged file: %w", err)
	}
	s.Track(p)

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", 0, fmt.Errorf("write staged file: %w", err)
	}
	return p, n, nil
}

// Track adds an existing path to the scope.
func (s *Scope) Track(p string) {
	if p == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		s.area.removeOne(p)
		return
	}
	s.paths = append(s.paths, p)
}

// Release removes every tracked file. Failures are logged and counted, never
// returned. Calling Release again is a no-op.
func (s *Scope) Release() (failures int) {
	s.mu.Lock()
	paths := s.paths
	s.paths = nil
	already := s.released
	s.released = true
	s.mu.Unlock()

	if already {
		return 0
	}
	for _, p := range paths {
		if !s.area.removeOne(p) {
			failures++
		}
	}
	return failures
}

// Held returns the tracked paths.
func (s *Scope) Held() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

func (a *Area) removeOne(p string) bool {
	err := a.remove(p)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return true
	}
	a.log.Warn().Err(err).Str("path", filepath.Base(p)).Msg("failed to remove temp file")
	return false
}

// stagedName is "<unix-ms>-<random>-<sanitized base name>".
func (a *Area) stagedName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	safe := unsafeChars.ReplaceAllString(base, "_")
	return fmt.Sprintf("%d-%s-%s", a.now().UnixMilli(), uuid.NewString()[:8], safe)
}
