// FILE: lixenwraith/crossprefs/watch.go
package crossprefs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const DefaultMaxWatchers = 100

// Notifications sent to subscribers besides "namespace/key" change paths.
const (
	EventFileDeleted        = "file_deleted"
	EventPermissionsChanged = "permissions_changed"
	EventReloadError        = "reload_error"
	EventReloadTimeout      = "reload_timeout"
)

// WatchOptions configures the defaults file watcher
type WatchOptions struct {
	// PollInterval for file stat checks (minimum 100ms)
	PollInterval time.Duration

	// Debounce duration to avoid rapid reloads
	Debounce time.Duration

	// MaxWatchers limits subscriber channels
	MaxWatchers int

	// ReloadTimeout bounds a single reload
	ReloadTimeout time.Duration

	// VerifyPermissions skips reloads of files whose group/other bits changed
	VerifyPermissions bool
}

// DefaultWatchOptions returns the standard watcher settings
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		PollInterval:      DefaultPollInterval,
		Debounce:          DefaultDebounce,
		MaxWatchers:       DefaultMaxWatchers,
		ReloadTimeout:     DefaultReloadTimeout,
		VerifyPermissions: true,
	}
}

type fileState struct {
	modTime time.Time
	size    int64
	mode    os.FileMode
	missing bool
}

// Watcher keeps a tree in sync with the plugin defaults and product
// customization files while the host runs. Changed values are merged into the
// tree and subscribers receive the "namespace/key" of each change. A value
// dropped from every source is unset only while the tree still holds it, so
// values written by resolution survive. The state file is not watched; the
// process writes it itself.
type Watcher struct {
	tree     *Tree
	loadOpts LoadOptions
	opts     WatchOptions
	logger   zerolog.Logger

	mu            sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
	files         map[string]fileState
	values        map[string]map[string]string
	watchers      map[int64]chan string
	watcherID     atomic.Int64
	debounceTimer *time.Timer

	watching         atomic.Bool
	reloadInProgress atomic.Bool
}

// NewWatcher creates a watcher over the files of a loader that was already
// loaded and applied to tree. Call Start to begin polling.
func NewWatcher(tree *Tree, loader *Loader, opts WatchOptions, logger zerolog.Logger) (*Watcher, error) {
	if tree == nil {
		return nil, ErrNilTree
	}
	if opts.PollInterval < MinPollInterval {
		opts.PollInterval = MinPollInterval
	}
	if opts.MaxWatchers <= 0 {
		opts.MaxWatchers = DefaultMaxWatchers
	}
	if opts.ReloadTimeout <= 0 {
		opts.ReloadTimeout = DefaultReloadTimeout
	}

	// The state file holds values written back by the process, so it takes
	// no part in reloads or in the baseline they are diffed against.
	loadOpts := loader.Options()
	loadOpts.StateFile = ""
	sources := make([]Source, 0, len(loadOpts.Sources))
	for _, source := range loadOpts.Sources {
		if source != SourceState {
			sources = append(sources, source)
		}
	}
	loadOpts.Sources = sources

	w := &Watcher{
		tree:     tree,
		loadOpts: loadOpts,
		opts:     opts,
		logger:   logger,
		files:    make(map[string]fileState),
		values:   loader.valuesWithout(SourceState),
		watchers: make(map[int64]chan string),
	}
	for _, path := range []string{w.loadOpts.PluginFile, w.loadOpts.ProductFile} {
		if path != "" {
			w.files[path] = statFile(path)
		}
	}
	return w, nil
}

// Files returns the watched paths in sorted order
func (w *Watcher) Files() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	paths := make([]string, 0, len(w.files))
	for p := range w.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Start begins polling until ctx is done or Stop is called.
// Nothing happens when no file is watched or the watcher already runs.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.files) == 0 || w.cancel != nil {
		return
	}
	w.ctx, w.cancel = context.WithCancel(ctx)
	go w.watchLoop(w.ctx)
}

// Stop terminates polling and closes every subscriber channel.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	// Wait for watch loop to exit with timeout
	deadline := time.Now().Add(ShutdownTimeout)
	for w.watching.Load() && time.Now().Before(deadline) {
		time.Sleep(SpinWaitInterval)
	}
}

// IsWatching returns true while the poll loop runs
func (w *Watcher) IsWatching() bool {
	return w.watching.Load()
}

// WatcherCount returns the number of active subscriber channels
func (w *Watcher) WatcherCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.watchers)
}

// Subscribe returns a channel receiving change notifications. The channel is
// closed when the watcher stops; it is returned closed if the watcher is not
// running or the subscriber limit is reached.
func (w *Watcher) Subscribe() <-chan string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.ctx == nil || w.ctx.Err() != nil || len(w.watchers) >= w.opts.MaxWatchers {
		ch := make(chan string)
		close(ch)
		return ch
	}

	// Buffered so a slow reader does not stall reloads
	ch := make(chan string, 10)
	id := w.watcherID.Add(1)
	w.watchers[id] = ch

	ctx := w.ctx
	go func() {
		<-ctx.Done()
		w.mu.Lock()
		delete(w.watchers, id)
		close(ch)
		w.mu.Unlock()
	}()

	return ch
}

// Reload reads every source except the state file again and merges the
// differences into the tree.
// Returns the changed "namespace/key" paths in sorted order. Missing files are
// not an error; their values count as removed.
func (w *Watcher) Reload() ([]string, error) {
	loader := NewLoader(w.loadOpts)
	if err := loader.Load(); err != nil && !errors.Is(err, ErrFileNotFound) {
		return nil, err
	}
	fresh := loader.Values()

	w.mu.Lock()
	old := w.values
	w.values = fresh
	w.mu.Unlock()

	updates := make(map[string]map[string]string)
	var changed []string
	set := func(ns, key, value string) {
		if updates[ns] == nil {
			updates[ns] = make(map[string]string)
		}
		updates[ns][key] = value
		changed = append(changed, ns+"/"+key)
	}

	for ns, values := range fresh {
		store := w.tree.Store(ns)
		for key, value := range values {
			if prev, ok := old[ns][key]; ok && prev == value {
				continue
			}
			if store.Get(key) != value {
				set(ns, key, value)
			}
		}
	}
	for ns, values := range old {
		store := w.tree.Store(ns)
		for key, prev := range values {
			if _, ok := fresh[ns][key]; ok {
				continue
			}
			// Only unset what still holds the dropped default
			if prev != "" && store.Get(key) == prev {
				set(ns, key, "")
			}
		}
	}

	if len(updates) > 0 {
		w.tree.Merge(updates)
	}
	sort.Strings(changed)
	return changed, nil
}

// watchLoop is the main file watching loop
func (w *Watcher) watchLoop(ctx context.Context) {
	if !w.watching.CompareAndSwap(false, true) {
		return
	}
	defer w.watching.Store(false)

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.checkFiles()
		}
	}
}

// checkFiles stats every watched file and schedules a reload on change
func (w *Watcher) checkFiles() {
	w.mu.Lock()
	defer w.mu.Unlock()

	changed := false
	for path, last := range w.files {
		current := statFile(path)
		switch {
		case current.missing && last.missing:
			continue
		case current.missing:
			w.files[path] = current
			w.notifyLocked(EventFileDeleted + ":" + path)
			changed = true
			continue
		}

		if w.opts.VerifyPermissions && !last.missing && last.mode != 0 &&
			(current.mode&0077) != (last.mode&0077) {
			w.files[path] = current
			w.logger.Warn().Str("path", path).Msg("defaults file permissions changed, not reloading")
			w.notifyLocked(EventPermissionsChanged + ":" + path)
			continue
		}

		if last.missing || !current.modTime.Equal(last.modTime) || current.size != last.size {
			w.files[path] = current
			changed = true
		}
	}

	if !changed {
		return
	}
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.opts.Debounce, w.performReload)
}

// performReload runs Reload with a timeout and notifies subscribers
func (w *Watcher) performReload() {
	if !w.reloadInProgress.CompareAndSwap(false, true) {
		return
	}
	defer w.reloadInProgress.Store(false)

	w.mu.RLock()
	parent := w.ctx
	w.mu.RUnlock()
	if parent == nil || parent.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(parent, w.opts.ReloadTimeout)
	defer cancel()

	type result struct {
		changed []string
		err     error
	}
	done := make(chan result, 1)
	go func() {
		changed, err := w.Reload()
		done <- result{changed, err}
	}()

	select {
	case r := <-done:
		w.mu.RLock()
		defer w.mu.RUnlock()
		if r.err != nil {
			w.logger.Error().Err(r.err).Msg("defaults reload failed")
			w.notifyLocked(fmt.Sprintf("%s:%v", EventReloadError, r.err))
			return
		}
		w.logger.Info().Int("changed", len(r.changed)).Msg("defaults reloaded")
		for _, path := range r.changed {
			w.notifyLocked(path)
		}

	case <-ctx.Done():
		w.mu.RLock()
		defer w.mu.RUnlock()
		w.notifyLocked(EventReloadTimeout)
	}
}

// notifyLocked sends to every subscriber without blocking. Caller holds mu.
func (w *Watcher) notifyLocked(path string) {
	for _, ch := range w.watchers {
		select {
		case ch <- path:
		default:
			// Channel full, skip
		}
	}
}

func statFile(path string) fileState {
	info, err := os.Stat(path)
	if err != nil {
		return fileState{missing: true}
	}
	return fileState{modTime: info.ModTime(), size: info.Size(), mode: info.Mode()}
}
