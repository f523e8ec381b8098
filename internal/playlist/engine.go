// Package playlist derives a navigable playlist from the directory of a seed file.
//
// Engine is not safe for concurrent use; it is owned by the control loop.
package playlist

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/genricoloni/mediashell/internal/domain"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Engine holds the playlist and the current-position cursor
type Engine struct {
	logger   *zap.Logger
	items    []string
	current  int
	onChange func()
}

// NewEngine creates an engine with an empty playlist
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{
		logger:  logger,
		current: domain.NoIndex,
	}
}

// OnChange registers the callback fired after every committed playlist change
func (e *Engine) OnChange(fn func()) {
	e.onChange = fn
}

// BuildFrom replaces the playlist with the supported siblings of seedPath.
// It always fires exactly one change notification, after the new state is in place.
func (e *Engine) BuildFrom(seedPath string) {
	defer e.notify()

	seed, ok := ResolveFile(seedPath)
	if !ok {
		e.logger.Debug("Seed is not a regular file, clearing playlist", zap.String("seed", seedPath))
		e.items = nil
		e.current = domain.NoIndex
		return
	}

	items := e.scan(seed)
	e.items = items
	e.current = slices.Index(items, seed)

	e.logger.Info("Playlist built",
		zap.String("dir", filepath.Dir(seed)),
		zap.Int("size", len(items)),
		zap.Int("current", e.current))
}

// scan lists the supported files next to seed, sorted by case-folded file name
func (e *Engine) scan(seed string) []string {
	dir := filepath.Dir(seed)
	entries, err := os.ReadDir(dir)
	if err != nil {
		e.logger.Warn("Failed to list seed directory", zap.String("dir", dir), zap.Error(err))
		if IsSupported(seed) {
			return []string{seed}
		}
		return nil
	}

	files := lo.Filter(entries, func(entry os.DirEntry, _ int) bool {
		return isRegular(dir, entry) && IsSupported(entry.Name())
	})
	items := lo.Map(files, func(entry os.DirEntry, _ int) string {
		return filepath.Join(dir, entry.Name())
	})

	slices.SortFunc(items, func(a, b string) int {
		if c := strings.Compare(strings.ToLower(filepath.Base(a)), strings.ToLower(filepath.Base(b))); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return items
}

// Next returns the path after the current one without moving the cursor
func (e *Engine) Next() (string, bool) {
	if !e.HasNext() {
		return "", false
	}
	return e.items[e.current+1], true
}

// Previous returns the path before the current one without moving the cursor
func (e *Engine) Previous() (string, bool) {
	if !e.HasPrevious() {
		return "", false
	}
	return e.items[e.current-1], true
}

// SetCurrent moves the cursor to path if it is in the playlist.
// Unknown paths leave the cursor untouched; the playlist is never rebuilt here.
func (e *Engine) SetCurrent(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}

	idx := slices.Index(e.items, abs)
	if idx == domain.NoIndex {
		e.logger.Debug("Path not in playlist", zap.String("path", abs))
		return
	}
	if idx == e.current {
		return
	}

	e.current = idx
	e.notify()
}

// HasNext reports whether a path follows the current one
func (e *Engine) HasNext() bool {
	return e.current != domain.NoIndex && e.current+1 < len(e.items)
}

// HasPrevious reports whether a path precedes the current one
func (e *Engine) HasPrevious() bool {
	return e.current != domain.NoIndex && e.current > 0 && len(e.items) > 0
}

// Size returns the number of playlist entries
func (e *Engine) Size() int {
	return len(e.items)
}

// CurrentIndex returns the cursor, or domain.NoIndex when unset
func (e *Engine) CurrentIndex() int {
	return e.current
}

// Current returns the current path
func (e *Engine) Current() (string, bool) {
	if e.current == domain.NoIndex {
		return "", false
	}
	return e.items[e.current], true
}

// Paths returns a copy of the playlist
func (e *Engine) Paths() []string {
	return slices.Clone(e.items)
}

func (e *Engine) notify() {
	if e.onChange != nil {
		e.onChange()
	}
}

// ResolveFile returns the absolute path of p if it names an existing regular file
func ResolveFile(p string) (string, bool) {
	if p == "" {
		return "", false
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", false
	}
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return abs, true
}

// isRegular follows symlinks so linked media files are listed too
func isRegular(dir string, entry os.DirEntry) bool {
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, entry.Name()))
	return err == nil && info.Mode().IsRegular()
}
