package asset

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/inamate/sculpt/internal/document"
)

// URLPrefix is the path under which stored assets are served.
const URLPrefix = "/assets/"

// Store owns the asset directory. Objects removed from a scene release their
// asset here; the file is only deleted by Sweep once the grace period has
// passed, so an undo shortly after a delete still finds it.
type Store struct {
	dir string

	mu       sync.Mutex
	orphaned map[string]time.Time // filename -> release time
	now      func() time.Time
}

func NewStore(dir string) *Store {
	// Ensure directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Error("create asset dir", "error", err, "dir", dir)
	}
	return &Store{
		dir:      dir,
		orphaned: make(map[string]time.Time),
		now:      time.Now,
	}
}

func (s *Store) Dir() string { return s.dir }

// Path returns the on-disk path of a stored file.
func (s *Store) Path(filename string) string {
	return filepath.Join(s.dir, filepath.Base(filename))
}

// filename extracts the stored file name from an asset URL. URLs that do not
// point at this store (blob URLs, remote files) yield "".
func filename(url string) string {
	name, ok := strings.CutPrefix(url, URLPrefix)
	if !ok || name == "" || strings.ContainsAny(name, `/\`) {
		return ""
	}
	return name
}

// Release marks the asset of a removed object for deletion.
func (s *Store) Release(obj document.SceneObject) {
	name := filename(obj.AssetURL)
	if name == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orphaned[name]; !ok {
		s.orphaned[name] = s.now()
	}
	slog.Debug("asset released", "file", name, "object", obj.ID)
}

// Retain cancels a pending release because obj is back in a scene (undo, or
// a loaded document still referencing the asset).
func (s *Store) Retain(obj document.SceneObject) {
	if name := filename(obj.AssetURL); name != "" {
		s.mu.Lock()
		delete(s.orphaned, name)
		s.mu.Unlock()
	}
}

// Pending returns the number of released files awaiting deletion.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orphaned)
}

// Sweep deletes files released more than grace ago and returns how many were
// removed.
func (s *Store) Sweep(grace time.Duration) int {
	cutoff := s.now().Add(-grace)
	s.mu.Lock()
	var due []string
	for name, at := range s.orphaned {
		if !at.After(cutoff) {
			due = append(due, name)
			delete(s.orphaned, name)
		}
	}
	s.mu.Unlock()

	removed := 0
	for _, name := range due {
		if err := os.Remove(s.Path(name)); err != nil && !os.IsNotExist(err) {
			slog.Warn("remove asset", "file", name, "error", err)
			continue
		}
		removed++
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Store) RunSweeper(ctx context.Context, interval, grace time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.Sweep(grace); n > 0 {
				slog.Info("assets swept", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
