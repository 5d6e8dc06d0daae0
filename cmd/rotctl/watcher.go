package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// daemonLogger is the minimal logging surface watch's background loop
// needs; stderrLogger, below, is the implementation that writes to stderr.
type daemonLogger interface {
	log(format string, args ...any)
}

type stderrLogger struct{}

func (stderrLogger) log(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

// Debouncer coalesces a burst of Trigger calls into a single call to fn
// after quiet has elapsed, so a transaction that appends several events in
// quick succession only re-resolves the next rep once.
type Debouncer struct {
	mu      sync.Mutex
	timer   *time.Timer
	quiet   time.Duration
	fn      func()
	stopped bool
}

func NewDebouncer(quiet time.Duration, fn func()) *Debouncer {
	return &Debouncer{quiet: quiet, fn: fn}
}

func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.quiet, d.fn)
}

func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}

// FileWatcher monitors the event log's JSONL mirror file
// (internal/storage/sqlite.MirrorPath) for changes using fsnotify, with a
// polling fallback for filesystems fsnotify can't watch (spec.md §6's
// subscribe(on_change) persistence-port contract, interactive analogue).
type FileWatcher struct {
	watcher      *fsnotify.Watcher
	debouncer    *Debouncer
	mirrorPath   string
	parentDir    string
	pollingMode  bool
	lastModTime  time.Time
	lastExists   bool
	lastSize     int64
	pollInterval time.Duration
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewFileWatcher creates a watcher for the JSONL mirror at mirrorPath.
// onChanged is called, debounced, whenever the mirror file changes.
func NewFileWatcher(mirrorPath string, onChanged func()) (*FileWatcher, error) {
	fw := &FileWatcher{
		mirrorPath:   mirrorPath,
		parentDir:    filepath.Dir(mirrorPath),
		debouncer:    NewDebouncer(300*time.Millisecond, onChanged),
		pollInterval: 2 * time.Second,
	}

	if stat, err := os.Stat(mirrorPath); err == nil {
		fw.lastModTime = stat.ModTime()
		fw.lastExists = true
		fw.lastSize = stat.Size()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: fsnotify.NewWatcher() failed (%v), falling back to polling mode (%v interval)\n", err, fw.pollInterval)
		fw.pollingMode = true
		return fw, nil
	}
	fw.watcher = watcher

	if err := watcher.Add(fw.parentDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to watch %s: %v\n", fw.parentDir, err)
	}
	if err := watcher.Add(mirrorPath); err != nil && !os.IsNotExist(err) {
		_ = watcher.Close()
		fmt.Fprintf(os.Stderr, "Warning: failed to watch %s (%v), falling back to polling mode\n", mirrorPath, err)
		fw.pollingMode = true
		fw.watcher = nil
	}

	return fw, nil
}

// Start begins monitoring in the background until ctx is canceled.
func (fw *FileWatcher) Start(ctx context.Context, log daemonLogger) {
	ctx, cancel := context.WithCancel(ctx)
	fw.cancel = cancel

	if fw.pollingMode {
		fw.startPolling(ctx, log)
		return
	}

	fw.wg.Add(1)
	go func() {
		defer fw.wg.Done()
		mirrorBase := filepath.Base(fw.mirrorPath)
		for {
			select {
			case event, ok := <-fw.watcher.Events:
				if !ok {
					return
				}
				if event.Name == filepath.Join(fw.parentDir, mirrorBase) &&
					event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					log.log("rotation log changed: %s", event.Name)
					fw.debouncer.Trigger()
				}
			case err, ok := <-fw.watcher.Errors:
				if !ok {
					return
				}
				log.log("watcher error: %v", err)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (fw *FileWatcher) startPolling(ctx context.Context, log daemonLogger) {
	log.log("starting polling mode with %v interval", fw.pollInterval)
	ticker := time.NewTicker(fw.pollInterval)
	fw.wg.Add(1)
	go func() {
		defer fw.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				stat, err := os.Stat(fw.mirrorPath)
				switch {
				case err != nil:
					if os.IsNotExist(err) && fw.lastExists {
						fw.lastExists = false
						log.log("rotation log missing: %s", fw.mirrorPath)
						fw.debouncer.Trigger()
					}
				case !fw.lastExists || !stat.ModTime().Equal(fw.lastModTime) || stat.Size() != fw.lastSize:
					fw.lastExists = true
					fw.lastModTime = stat.ModTime()
					fw.lastSize = stat.Size()
					log.log("rotation log changed (polling): %s", fw.mirrorPath)
					fw.debouncer.Trigger()
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Close stops the watcher and releases resources.
func (fw *FileWatcher) Close() error {
	if fw.cancel != nil {
		fw.cancel()
	}
	fw.wg.Wait()
	fw.debouncer.Cancel()
	if fw.watcher != nil {
		return fw.watcher.Close()
	}
	return nil
}
