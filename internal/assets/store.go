package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound reports that a filename exists under neither storage root.
var ErrNotFound = errors.New("audio asset not found")

// Config holds the two candidate storage roots. It is built once at startup
// and passed in; the store never consults globals.
type Config struct {
	PrimaryRoot  string
	FallbackRoot string
}

// Store persists audio assets under a primary root, falling back to a
// secondary root when the primary is unwritable. The fallback election
// happens once, in New, and holds for the process lifetime.
type Store struct {
	cfg         Config
	writeRoot   string
	usingBackup bool
}

// New elects the writable root. The primary is probed with an actual write,
// not just a mkdir, so an unwritable mount is caught up front.
func New(cfg Config) (*Store, error) {
	if err := probeRoot(cfg.PrimaryRoot); err == nil {
		return &Store{cfg: cfg, writeRoot: cfg.PrimaryRoot}, nil
	}
	if err := probeRoot(cfg.FallbackRoot); err != nil {
		return nil, fmt.Errorf("no writable audio root: primary %q and fallback %q both failed: %w", cfg.PrimaryRoot, cfg.FallbackRoot, err)
	}
	return &Store{cfg: cfg, writeRoot: cfg.FallbackRoot, usingBackup: true}, nil
}

func probeRoot(root string) error {
	if strings.TrimSpace(root) == "" {
		return errors.New("empty root")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}
	probe := filepath.Join(root, ".probe-"+uuid.NewString()[:8])
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return err
	}
	return os.Remove(probe)
}

// UsingFallback reports whether the secondary root was elected at startup.
func (s *Store) UsingFallback() bool { return s.usingBackup }

// Save writes data under the elected root. Filenames are flat; anything that
// would escape the root is rejected.
func (s *Store) Save(filename string, data []byte) error {
	clean, err := cleanFilename(filename)
	if err != nil {
		return err
	}
	path := filepath.Join(s.writeRoot, clean)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write asset %q: %w", clean, err)
	}
	return nil
}

// Resolve locates a filename, checking the primary root first, then the
// fallback root, regardless of which root Save currently targets.
func (s *Store) Resolve(filename string) (string, error) {
	clean, err := cleanFilename(filename)
	if err != nil {
		return "", err
	}
	for _, root := range []string{s.cfg.PrimaryRoot, s.cfg.FallbackRoot} {
		if strings.TrimSpace(root) == "" {
			continue
		}
		path := filepath.Join(root, clean)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", ErrNotFound
}

func cleanFilename(filename string) (string, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return "", errors.New("empty filename")
	}
	if filepath.Base(filename) != filename || strings.Contains(filename, "..") {
		return "", fmt.Errorf("invalid filename %q", filename)
	}
	return filename, nil
}
