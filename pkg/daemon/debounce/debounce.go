// Package debounce implements the per-(root, relative path) debounce window
// that sits between the scanner and the dispatcher: repeated changes to the
// same path within a short window collapse into a single emitted record,
// per the collapse rules below (§4.4). A Debouncer is safe for concurrent
// use; it is grounded on the same timer-reset-on-signal pattern used
// elsewhere for coalesced signaling, generalized from a single coalesced
// channel to per-key state carrying the record's kind.
//
// Debouncing happens once per canonical root rather than once per watch:
// every watcher of a shared root observes the same underlying filesystem
// changes, so collapsing at the root level and fanning the single result
// out to each watcher (the dispatcher's job) produces the same outcome as
// debouncing independently per watch, without duplicating timers per
// client.
package debounce

import (
	"sync"
	"time"
)

// Key identifies one debounced path: the canonical root it belongs to, plus
// its root-relative slash-separated path.
type Key struct {
	Root string
	Path string
}

type pendingEntry struct {
	kind        int
	isDirectory bool
	timer       *time.Timer
}

// Kind mirrors scanner.Kind without importing the scanner package, keeping
// debounce usable against any producer of (path, kind, isDirectory)
// records.
const (
	KindCreate = iota
	KindModify
	KindDelete
)

// Record is the debounced result delivered to onFlush: the final kind a
// path settled on after its debounce window closed with no further
// activity.
type Record struct {
	Path        string
	Kind        int
	IsDirectory bool
}

// Debouncer collapses bursts of same-path changes into a single record per
// settle window.
type Debouncer struct {
	window  time.Duration
	onFlush func(root string, record Record)

	mu      sync.Mutex
	pending map[Key]*pendingEntry
}

// New constructs a Debouncer with the given settle window. onFlush is
// invoked once per key, after window has elapsed with no further activity
// on that path, from the Debouncer's internal timer goroutines — callers
// must not block in onFlush.
func New(window time.Duration, onFlush func(root string, record Record)) *Debouncer {
	return &Debouncer{
		window:  window,
		onFlush: onFlush,
		pending: make(map[Key]*pendingEntry),
	}
}

// Feed submits one tick's worth of records for root, each advancing (or
// starting) that path's debounce window.
func (d *Debouncer) Feed(root string, records []Record) {
	for _, r := range records {
		d.feedOne(root, r)
	}
}

// feedOne applies the collapse rules (§4.4) for a single incoming record:
// a repeat of the same kind resets the window without changing the
// eventual emitted kind; a DELETE arriving while a CREATE is pending
// cancels both outright (nothing ever existed, from the application's
// perspective); a MODIFY arriving while a CREATE is pending leaves the
// pending kind as CREATE. Any other transition (e.g. a DELETE arriving
// while a MODIFY is pending) is not named explicitly by the collapse
// rules; the latest kind wins, since it reflects the path's most current
// observed state.
func (d *Debouncer) feedOne(root string, r Record) {
	key := Key{Root: root, Path: r.Path}

	d.mu.Lock()
	defer d.mu.Unlock()

	entry, exists := d.pending[key]
	if !exists {
		entry = &pendingEntry{kind: r.Kind, isDirectory: r.IsDirectory}
		entry.timer = time.AfterFunc(d.window, func() { d.flush(key) })
		d.pending[key] = entry
		return
	}

	switch {
	case entry.kind == r.Kind:
		// Repeat of the same kind: collapse, just reset the window.
	case entry.kind == KindCreate && r.Kind == KindDelete:
		entry.timer.Stop()
		delete(d.pending, key)
		return
	case entry.kind == KindCreate && r.Kind == KindModify:
		// A MODIFY on a not-yet-settled CREATE is still a CREATE from the
		// application's perspective.
	default:
		entry.kind = r.Kind
		entry.isDirectory = r.IsDirectory
	}

	entry.timer.Stop()
	entry.timer = time.AfterFunc(d.window, func() { d.flush(key) })
}

func (d *Debouncer) flush(key Key) {
	d.mu.Lock()
	entry, ok := d.pending[key]
	if ok {
		delete(d.pending, key)
	}
	d.mu.Unlock()

	if ok && d.onFlush != nil {
		d.onFlush(key.Root, Record{Path: key.Path, Kind: entry.kind, IsDirectory: entry.isDirectory})
	}
}

// CancelRoot discards all pending (unflushed) state for root without
// invoking onFlush, for use when a root's scanner is stopped (its last
// watcher removed) and any in-flight debounce windows should not produce
// stale events afterward.
func (d *Debouncer) CancelRoot(root string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, entry := range d.pending {
		if key.Root == root {
			entry.timer.Stop()
			delete(d.pending, key)
		}
	}
}
