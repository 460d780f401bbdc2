// Package icons loads SVG notification icons by name and caches them.
//
// Icons are read from a configurable directory as {name}.svg. Names without a
// file on disk fall back to the built-in set embedded under defaults/. Cached
// entries are dropped when Watch sees the backing file change.
package icons

import (
	"context"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

//go:embed defaults/*.svg
var defaults embed.FS

var (
	ErrInvalidName = errors.New("icon name must contain only letters, digits, '-' or '_'")
	ErrNotFound    = errors.New("icon not found")
)

var validName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Loader resolves icon names to SVG text.
type Loader struct {
	dir    string
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[string]string
}

// NewLoader returns a Loader reading from dir. An empty dir serves only the
// embedded defaults.
func NewLoader(dir string, logger *zap.Logger) *Loader {
	return &Loader{
		dir:    strings.TrimSpace(dir),
		logger: logger,
		cache:  make(map[string]string),
	}
}

// Load returns the SVG text for name, reading it on first use.
func (l *Loader) Load(name string) (string, error) {
	if !validName.MatchString(name) {
		return "", ErrInvalidName
	}

	l.mu.RLock()
	svg, ok := l.cache[name]
	l.mu.RUnlock()
	if ok {
		return svg, nil
	}

	svg, err := l.read(name)
	if err != nil {
		return "", err
	}

	l.mu.Lock()
	l.cache[name] = svg
	l.mu.Unlock()
	return svg, nil
}

// DataURI returns name as a base64 data URI suitable for a notification icon,
// or "" when the icon cannot be loaded.
func (l *Loader) DataURI(name string) string {
	svg, err := l.Load(name)
	if err != nil {
		l.logger.Warn("failed to load icon", zap.String("icon", name), zap.Error(err))
		return ""
	}
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}

// Invalidate drops name from the cache.
func (l *Loader) Invalidate(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cache, name)
}

// Cached reports how many icons are currently cached.
func (l *Loader) Cached() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.cache)
}

func (l *Loader) read(name string) (string, error) {
	if l.dir != "" {
		data, err := os.ReadFile(filepath.Join(l.dir, name+".svg"))
		switch {
		case err == nil:
			return strings.TrimSpace(string(data)), nil
		case !errors.Is(err, os.ErrNotExist):
			return "", fmt.Errorf("read icon %s: %w", name, err)
		}
	}

	data, err := defaults.ReadFile("defaults/" + name + ".svg")
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return strings.TrimSpace(string(data)), nil
}

// Watch invalidates cache entries whose files change in the icon directory.
// It blocks until ctx is cancelled. With no directory configured it returns
// immediately.
func (l *Loader) Watch(ctx context.Context) error {
	if l.dir == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create icon watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(l.dir); err != nil {
		return fmt.Errorf("watch icon dir %s: %w", l.dir, err)
	}
	l.logger.Info("watching icon directory", zap.String("dir", l.dir))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, ".svg") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			name := strings.TrimSuffix(filepath.Base(event.Name), ".svg")
			l.Invalidate(name)
			l.logger.Debug("icon changed", zap.String("icon", name), zap.String("op", event.Op.String()))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("icon watcher error", zap.Error(err))
		}
	}
}
