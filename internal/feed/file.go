package feed

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/ppiankov/chainboard/internal/model"
)

// DefaultDebounce collapses bursts of file events into one load.
const DefaultDebounce = 500 * time.Millisecond

// DefaultPoll is the scan period when inotify is unavailable.
const DefaultPoll = 2 * time.Second

// loadWorkers bounds concurrent snapshot file parses.
const loadWorkers = 3

// maxPendingLoads buffers the work queue between debounce flush and the
// worker pool. Must exceed loadWorkers to absorb bursts without blocking
// the watch loop.
const maxPendingLoads = 64

// maxSnapshotLine caps one JSONL line; a board with hundreds of agents
// and a deep decision stream stays well under this.
const maxSnapshotLine = 4 * 1024 * 1024

// FileSource tails a directory of JSONL snapshot exports. Each line of a
// .jsonl file is one board snapshot; on change the last valid line wins.
type FileSource struct {
	dir      string
	debounce time.Duration
	poll     time.Duration
	logger   *zap.Logger

	emitMu      sync.Mutex
	lastEmitted time.Time
}

// FileOptions tune a FileSource. Zero values take defaults.
type FileOptions struct {
	Debounce time.Duration
	Poll     time.Duration
	Logger   *zap.Logger
}

// NewFileSource watches dir for .jsonl snapshot files.
func NewFileSource(dir string, opts FileOptions) *FileSource {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Poll <= 0 {
		opts.Poll = DefaultPoll
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &FileSource{
		dir:      dir,
		debounce: opts.Debounce,
		poll:     opts.Poll,
		logger:   opts.Logger,
	}
}

// Snapshots starts watching and returns the delivery channel. The channel
// closes once ctx ends and all in-flight loads have drained.
func (s *FileSource) Snapshots(ctx context.Context) <-chan model.BoardSnapshot {
	out := make(chan model.BoardSnapshot, 1)
	go s.run(ctx, out)
	return out
}

func (s *FileSource) run(ctx context.Context, out chan<- model.BoardSnapshot) {
	defer close(out)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn("inotify unavailable, polling instead", zap.Error(err))
		s.runPoll(ctx, out)
		return
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.dir); err != nil {
		s.logger.Warn("cannot watch snapshot dir, polling instead",
			zap.String("dir", s.dir), zap.Error(err))
		s.runPoll(ctx, out)
		return
	}

	// Catch up on exports already present; the monotonic emit guard keeps
	// only the newest visible.
	s.scanAll(ctx, out, nil)

	// Paths that passed debounce flush into a queue consumed by a fixed
	// worker pool, never one goroutine per file.
	queue := make(chan string, maxPendingLoads)
	var wg sync.WaitGroup
	for i := 0; i < loadWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range queue {
				if snap, ok := s.load(path); ok {
					s.emit(ctx, out, snap)
				}
			}
		}()
	}

	var mu sync.Mutex
	ready := make(map[string]bool)
	flush := func() {
		mu.Lock()
		batch := make([]string, 0, len(ready))
		for p := range ready {
			batch = append(batch, p)
		}
		ready = make(map[string]bool)
		mu.Unlock()

		for _, p := range batch {
			select {
			case queue <- p:
			case <-ctx.Done():
				return
			}
		}
	}

	// Single debounce timer, reset per event. Starts stopped.
	debounce := time.NewTimer(s.debounce)
	debounce.Stop()

	defer func() {
		debounce.Stop()
		close(queue)
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case <-debounce.C:
			flush()

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isSnapshotFile(event.Name) {
				continue
			}
			mu.Lock()
			ready[event.Name] = true
			mu.Unlock()

			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(s.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("snapshot watcher error", zap.Error(err))
		}
	}
}

// runPoll rescans the directory on a ticker, reloading files whose mtime
// moved. Fallback for filesystems without inotify (NFS) or when the
// directory does not exist yet.
func (s *FileSource) runPoll(ctx context.Context, out chan<- model.BoardSnapshot) {
	mods := make(map[string]time.Time)
	s.scanAll(ctx, out, mods)

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.scanAll(ctx, out, mods)
		}
	}
}

// scanAll loads every snapshot file in the directory. With a non-nil mods
// map, files whose mtime has not moved are skipped.
func (s *FileSource) scanAll(ctx context.Context, out chan<- model.BoardSnapshot, mods map[string]time.Time) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || !isSnapshotFile(e.Name()) {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if mods != nil {
			info, err := e.Info()
			if err != nil {
				continue
			}
			if last, seen := mods[path]; seen && !info.ModTime().After(last) {
				continue
			}
			mods[path] = info.ModTime()
		}
		if snap, ok := s.load(path); ok {
			s.emit(ctx, out, snap)
		}
	}
}

// load parses the last valid snapshot line of a JSONL file. A malformed
// tail (partial append in progress) falls back to the previous line.
func (s *FileSource) load(path string) (model.BoardSnapshot, bool) {
	f, err := os.Open(path)
	if err != nil {
		s.logger.Warn("cannot open snapshot file", zap.String("file", path), zap.Error(err))
		return model.BoardSnapshot{}, false
	}
	defer func() { _ = f.Close() }()

	var snap model.BoardSnapshot
	found := false
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxSnapshotLine)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var cand model.BoardSnapshot
		if err := json.Unmarshal(line, &cand); err != nil {
			continue
		}
		snap = cand
		found = true
	}
	if err := sc.Err(); err != nil {
		s.logger.Warn("snapshot scan failed", zap.String("file", path), zap.Error(err))
	}
	if !found {
		return model.BoardSnapshot{}, false
	}
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = time.Now().UTC()
	}
	return snap, true
}

// emit delivers one snapshot, dropping any that is not newer than the
// last delivered. Guard and send share a mutex so parallel loads cannot
// reorder on the channel.
func (s *FileSource) emit(ctx context.Context, out chan<- model.BoardSnapshot, snap model.BoardSnapshot) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if !s.lastEmitted.IsZero() && !snap.FetchedAt.After(s.lastEmitted) {
		return
	}
	select {
	case out <- snap:
		s.lastEmitted = snap.FetchedAt
	case <-ctx.Done():
	}
}

// isSnapshotFile accepts .jsonl exports, not .tmp partial writes.
func isSnapshotFile(path string) bool {
	name := filepath.Base(path)
	return strings.HasSuffix(name, ".jsonl") && !strings.HasSuffix(name, ".tmp")
}
