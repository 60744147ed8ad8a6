package repository

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rehber/rehber/internal/util/logger"
)

// Invalidator is anything holding a cached view of the store.
type Invalidator interface {
	Invalidate()
}

// WatcherStats counts what the watcher has seen.
type WatcherStats struct {
	Events        int
	Invalidations int
	Errors        int
	LastEventTime time.Time
	LastEventOp   string
}

// FileWatcher drops the repository cache when db.json changes on disk, so
// edits made by hand or by another process show up on the next read.
// Bursts of events are coalesced.
type FileWatcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	dir         string
	file        string
	target      Invalidator
	debounceDur time.Duration
	pendingAt   time.Time
	pending     bool
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	stats       WatcherStats
}

// NewFileWatcher watches the directory of path (not the file itself, since
// atomic writes replace the inode).
func NewFileWatcher(path string, target Invalidator) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &FileWatcher{
		watcher:     w,
		dir:         filepath.Dir(path),
		file:        filepath.Base(path),
		target:      target,
		debounceDur: 150 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching in a goroutine.
func (fw *FileWatcher) Start(ctx context.Context) error {
	fw.mu.Lock()
	if fw.running {
		fw.mu.Unlock()
		return nil
	}
	fw.running = true
	fw.mu.Unlock()

	if err := fw.watcher.Add(fw.dir); err != nil {
		fw.mu.Lock()
		fw.running = false
		fw.mu.Unlock()
		_ = fw.watcher.Close()
		return err
	}
	logger.Infof("watching %s for external changes", filepath.Join(fw.dir, fw.file))

	go fw.run(ctx)
	return nil
}

// Stop ends the watch loop and waits for it to exit.
func (fw *FileWatcher) Stop() {
	fw.mu.Lock()
	if !fw.running {
		fw.mu.Unlock()
		return
	}
	fw.running = false
	fw.mu.Unlock()

	close(fw.stopCh)
	<-fw.doneCh
	if err := fw.watcher.Close(); err != nil {
		logger.Errorf("file watcher close: %v", err)
	}
}

// Stats returns a snapshot of the counters.
func (fw *FileWatcher) Stats() WatcherStats {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.stats
}

func (fw *FileWatcher) run(ctx context.Context) {
	defer close(fw.doneCh)

	ticker := time.NewTicker(fw.debounceDur / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-fw.stopCh:
			return
		case ev, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(ev)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logger.Errorf("file watcher: %v", err)
			fw.mu.Lock()
			fw.stats.Errors++
			fw.mu.Unlock()
		case now := <-ticker.C:
			fw.flush(now)
		}
	}
}

func (fw *FileWatcher) handleEvent(ev fsnotify.Event) {
	if filepath.Base(ev.Name) != fw.file {
		return
	}
	if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) &&
		!ev.Op.Has(fsnotify.Remove) && !ev.Op.Has(fsnotify.Rename) {
		return
	}

	fw.mu.Lock()
	fw.stats.Events++
	fw.stats.LastEventTime = time.Now()
	fw.stats.LastEventOp = ev.Op.String()
	fw.pending = true
	fw.pendingAt = fw.stats.LastEventTime
	fw.mu.Unlock()
}

func (fw *FileWatcher) flush(now time.Time) {
	fw.mu.Lock()
	if !fw.pending || now.Sub(fw.pendingAt) < fw.debounceDur {
		fw.mu.Unlock()
		return
	}
	fw.pending = false
	fw.stats.Invalidations++
	fw.mu.Unlock()

	fw.target.Invalidate()
	logger.Debugf("contact store changed on disk, cache dropped")
}
