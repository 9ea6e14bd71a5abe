// Copyright 2025 The agentcore Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package search

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reindexer turns a changed file on disk into fresh chunks, keeping
// the Engine's index current. It is supplied by the caller (typically
// the retrieval chunker plus extractor) so Watcher stays decoupled from
// chunking policy.
type Reindexer interface {
	// Reindex reads, extracts, and chunks path, then calls
	// Engine.IndexFile with the result.
	Reindex(ctx context.Context, path string) error
	// Remove drops path from the index; called when a watched file is
	// deleted or renamed away.
	Remove(ctx context.Context, path string) error
}

// PathFilter decides whether a path participates in watching at all.
type PathFilter interface {
	ShouldExclude(path string) bool
}

// Watcher is a single-writer fsnotify-driven re-index trigger: file
// create/write events debounce and coalesce, then hand off to a
// Reindexer one path at a time, so the Engine never sees concurrent
// writers for the same file. Grounded on the teacher's FileWatcher
// (v2/rag/watcher.go), generalized from its Document-event model to
// a plain reindex-on-change callback.
type Watcher struct {
	watcher   *fsnotify.Watcher
	basePath  string
	filter    PathFilter
	reindexer Reindexer
	debounce  time.Duration

	mu         sync.Mutex
	isWatching bool
	cancel     context.CancelFunc
}

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	BasePath string
	Filter   PathFilter
	// Debounce delays processing so rapid successive writes to the same
	// file coalesce into one reindex. Defaults to 100ms.
	Debounce time.Duration
}

func NewWatcher(cfg WatcherConfig, reindexer Reindexer) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	debounce := cfg.Debounce
	if debounce == 0 {
		debounce = 100 * time.Millisecond
	}
	return &Watcher{
		watcher:   fsw,
		basePath:  cfg.BasePath,
		filter:    cfg.Filter,
		reindexer: reindexer,
		debounce:  debounce,
	}, nil
}

// Start begins watching basePath and every subdirectory for changes,
// re-indexing changed files as events settle. Start returns once
// watching is established; reindexing happens on a background
// goroutine until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isWatching {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.isWatching = true

	if err := w.addRecursive(w.basePath); err != nil {
		w.isWatching = false
		cancel()
		return err
	}

	go w.loop(runCtx)

	slog.Info("started search index watcher", "path", w.basePath)
	return nil
}

// Stop stops watching and releases the underlying fsnotify handle.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.isWatching {
		return nil
	}
	w.cancel()
	w.isWatching = false
	return w.watcher.Close()
}

func (w *Watcher) addRecursive(root string) error {
	if err := w.watcher.Add(root); err != nil {
		return err
	}
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if w.filter != nil && w.filter.ShouldExclude(path) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() && path != root {
			if err := w.watcher.Add(path); err != nil {
				slog.Warn("failed to watch directory", "path", path, "error", err)
			}
		}
		return nil
	})
}

type pendingOp int

const (
	opReindex pendingOp = iota
	opRemove
)

func (w *Watcher) loop(ctx context.Context) {
	pending := make(map[string]pendingOp)
	var pendingMu sync.Mutex
	// flushMu serializes flushes: every debounce timer runs flush on its
	// own goroutine, and the ctx.Done path runs one as well.
	var flushMu sync.Mutex
	var timer *time.Timer

	flush := func() {
		flushMu.Lock()
		defer flushMu.Unlock()
		pendingMu.Lock()
		ops := pending
		pending = make(map[string]pendingOp)
		pendingMu.Unlock()

		for path, op := range ops {
			var err error
			switch op {
			case opRemove:
				err = w.reindexer.Remove(ctx, path)
			default:
				err = w.reindexer.Reindex(ctx, path)
			}
			if err != nil {
				slog.Error("search index update failed", "path", path, "error", err)
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			flush()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}
			op, queue := w.classify(event)
			if !queue {
				continue
			}

			pendingMu.Lock()
			pending[event.Name] = op
			pendingMu.Unlock()

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, flush)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("file watcher error", "path", w.basePath, "error", err)
		}
	}
}

// classify reports how event.Name should be queued, and whether it
// should be queued at all. It also handles structural events (new
// directories) that need no queue entry of their own.
func (w *Watcher) classify(event fsnotify.Event) (pendingOp, bool) {
	path := event.Name
	if w.filter != nil && w.filter.ShouldExclude(path) {
		return opReindex, false
	}

	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				slog.Warn("failed to watch new directory", "path", path, "error", err)
			}
			return opReindex, false
		}
		return opReindex, true

	case event.Op&fsnotify.Write == fsnotify.Write:
		return opReindex, true

	case event.Op&fsnotify.Remove == fsnotify.Remove, event.Op&fsnotify.Rename == fsnotify.Rename:
		return opRemove, true

	default:
		return opReindex, false
	}
}
