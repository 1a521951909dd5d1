// Package watch rebuilds the document pool when its source files change.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/zakerytclarke/teapot/internal/ingest"
)

// DefaultDebounce groups the burst of events editors emit on save.
const DefaultDebounce = 500 * time.Millisecond

// Reloader calls reload once per burst of changes to supported files.
type Reloader struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	reload   func(ctx context.Context) error
}

// New watches the directories behind paths. paths accepts the same files,
// directories and patterns as ingest.Load.
func New(paths []string, debounce time.Duration, reload func(ctx context.Context) error) (*Reloader, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	r := &Reloader{watcher: w, debounce: debounce, reload: reload}
	for _, p := range paths {
		if err := r.add(p); err != nil {
			_ = w.Close()
			return nil, err
		}
	}
	return r, nil
}

func (r *Reloader) add(path string) error {
	root := path
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		root = filepath.Dir(path)
	} else if err != nil {
		if !strings.ContainsAny(path, "*?[{") {
			return err
		}
		base, _ := doublestar.SplitPattern(filepath.ToSlash(path))
		root = filepath.FromSlash(base)
	}
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return r.watcher.Add(p)
		}
		return nil
	})
}

// Run blocks until ctx is done.
func (r *Reloader) Run(ctx context.Context) error {
	logger := logutil.GetLogger(ctx)
	timer := time.NewTimer(r.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = r.watcher.Add(event.Name)
					continue
				}
			}
			if !ingest.Supported(event.Name) || event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			logger.Debug("source changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			timer.Reset(r.debounce)
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch error", zap.Error(err))
		case <-timer.C:
			if err := r.reload(ctx); err != nil {
				logger.Error("reload failed", zap.Error(err))
				continue
			}
			logger.Info("document pool reloaded")
		}
	}
}

func (r *Reloader) Close() error {
	return r.watcher.Close()
}
