// Package registry implements the daemon's watch-descriptor namespace: ADD
// canonicalization and deduplication, descriptor allocation, client
// connection bookkeeping, and the scanner reference-counting that lets the
// registry own scanner lifetime while watches hold only a descriptor back
// (§9: "avoid ownership cycles by making the registry own scanners").
package registry

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fakenotify/fakenotify/pkg/protocol"
)

// watchEntry is the daemon-side record for one allocated watch descriptor.
type watchEntry struct {
	wd            int32
	canonicalPath string
	client        *Client
	recursive     bool
	mask          uint32
	pollInterval  time.Duration
}

// rootState tracks the watchers sharing one canonical root and the scanner
// bound to it.
type rootState struct {
	watchers     map[int32]*watchEntry
	pollInterval time.Duration
	scannerStop  func()
}

// AddResult is returned by AddWatch. NewRoot indicates the caller must start
// a scanner for CanonicalPath and register its stop function via
// SetScannerStop; EffectivePollInterval is the minimum poll interval
// requested across all watchers of that root (§4.3: "minimum of the poll
// intervals requested by watchers on that root").
type AddResult struct {
	Wd                    int32
	CanonicalPath         string
	NewRoot               bool
	EffectivePollInterval time.Duration
}

// DetachedWatch describes one watch descriptor released by DetachClient.
type DetachedWatch struct {
	Wd            int32
	CanonicalPath string
}

// Registry owns the watch-descriptor namespace and client connection table
// for the lifetime of one daemon process.
type Registry struct {
	mu      sync.Mutex
	nextWd  int32
	watches map[int32]*watchEntry
	roots   map[string]*rootState
	clients map[string]*Client

	canonicalizer *canonicalizer
	allowed       func(canonicalPath string) bool

	startedAt        time.Time
	eventsDispatched atomic.Uint64
	eventsDropped    atomic.Uint64
}

// New constructs an empty Registry. allowed, if non-nil, is consulted on
// every ADD; a nil allowed permits any canonical path (no allow-list
// configured).
func New(allowed func(canonicalPath string) bool) (*Registry, error) {
	canon, err := newCanonicalizer()
	if err != nil {
		return nil, err
	}
	return &Registry{
		nextWd:        1,
		watches:       make(map[int32]*watchEntry),
		roots:         make(map[string]*rootState),
		clients:       make(map[string]*Client),
		canonicalizer: canon,
		allowed:       allowed,
		startedAt:     time.Now(),
	}, nil
}

// RegisterClient records a newly accepted client connection.
func (r *Registry) RegisterClient(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ID] = c
}

// allocateDescriptor returns the next watch descriptor, or an error if the
// 32-bit positive descriptor space is exhausted (§4.2: "on overflow the
// daemon refuses new watches with a distinct error code").
func (r *Registry) allocateDescriptor() (int32, error) {
	if r.nextWd <= 0 {
		return 0, protocol.NewError(protocol.ErrorCodeResourceExhausted, "watch descriptor space exhausted")
	}
	wd := r.nextWd
	if r.nextWd == math.MaxInt32 {
		r.nextWd = 0
	} else {
		r.nextWd++
	}
	return wd, nil
}

// AddWatch registers a new watch for client on rawPath. If assertWd is
// non-zero, that exact descriptor value is used instead of allocating a new
// one (and the allocation counter is advanced past it if necessary); this
// is how a reconnecting shim replays its watch table while preserving
// descriptor values the application has already observed (§4.1, scenario
// S4).
func (r *Registry) AddWatch(client *Client, rawPath string, recursive bool, mask uint32, pollInterval time.Duration, assertWd int32) (AddResult, error) {
	canonicalPath, err := r.canonicalizer.resolve(rawPath, recursive)
	if err != nil {
		return AddResult{}, err
	}

	if r.allowed != nil && !r.allowed(canonicalPath) {
		return AddResult{}, protocol.NewError(protocol.ErrorCodePermissionDenied, "path is outside the configured allow-list")
	}

	if _, duplicate := client.lookupWatch(canonicalPath); duplicate {
		return AddResult{}, protocol.NewError(protocol.ErrorCodeAlreadyExists, "client already watches this path")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var wd int32
	if assertWd != 0 {
		if _, taken := r.watches[assertWd]; taken {
			return AddResult{}, protocol.NewError(protocol.ErrorCodeAlreadyExists, "asserted watch descriptor already in use")
		}
		wd = assertWd
		if wd >= r.nextWd {
			if wd == math.MaxInt32 {
				r.nextWd = 0
			} else {
				r.nextWd = wd + 1
			}
		}
	} else {
		var allocErr error
		wd, allocErr = r.allocateDescriptor()
		if allocErr != nil {
			return AddResult{}, allocErr
		}
	}

	root, exists := r.roots[canonicalPath]
	if !exists {
		root = &rootState{watchers: make(map[int32]*watchEntry)}
		r.roots[canonicalPath] = root
	}
	if pollInterval > 0 && (root.pollInterval == 0 || pollInterval < root.pollInterval) {
		root.pollInterval = pollInterval
	}

	entry := &watchEntry{
		wd:            wd,
		canonicalPath: canonicalPath,
		client:        client,
		recursive:     recursive,
		mask:          mask,
		pollInterval:  pollInterval,
	}
	r.watches[wd] = entry
	root.watchers[wd] = entry
	client.addWatch(wd, canonicalPath)

	return AddResult{
		Wd:                    wd,
		CanonicalPath:         canonicalPath,
		NewRoot:               !exists,
		EffectivePollInterval: root.pollInterval,
	}, nil
}

// SetScannerStop binds the stop function for the scanner serving
// canonicalPath. RemoveWatch hands it back once, from the call that removes
// the root's last watcher, and whoever called RemoveWatch runs it
// (DetachClient and PruneOrphanedWatches do so themselves); RemoveRoot drops
// it without running it.
func (r *Registry) SetScannerStop(canonicalPath string, stop func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if root, ok := r.roots[canonicalPath]; ok {
		root.scannerStop = stop
	}
}

// RemoveWatch releases wd, which must be owned by client. It returns the
// watch's canonical path and, if this was the root's last watcher, the
// scanner's stop function (already removed from the registry's bookkeeping;
// the caller is responsible for invoking it outside any lock it may hold).
func (r *Registry) RemoveWatch(client *Client, wd int32) (canonicalPath string, stop func(), err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.watches[wd]
	if !ok || entry.client != client {
		return "", nil, protocol.NewError(protocol.ErrorCodeNotFound, "unknown watch descriptor")
	}

	delete(r.watches, wd)
	client.removeWatch(wd)

	root := r.roots[entry.canonicalPath]
	delete(root.watchers, wd)
	if len(root.watchers) == 0 {
		delete(r.roots, entry.canonicalPath)
		stop = root.scannerStop
		r.canonicalizer.invalidate(entry.canonicalPath)
	}

	return entry.canonicalPath, stop, nil
}

// DetachClient releases every watch descriptor owned by client (used for
// both an explicit DETACH request and connection-loss cleanup) and
// unregisters the client itself.
func (r *Registry) DetachClient(client *Client) []DetachedWatch {
	var detached []DetachedWatch
	for _, wd := range client.WatchIDs() {
		canonicalPath, stop, err := r.RemoveWatch(client, wd)
		if err != nil {
			continue
		}
		if stop != nil {
			stop()
		}
		detached = append(detached, DetachedWatch{Wd: wd, CanonicalPath: canonicalPath})
	}

	r.mu.Lock()
	delete(r.clients, client.ID)
	r.mu.Unlock()

	return detached
}

// RootWatcher describes one client's stake in a watched root, as returned
// by WatchersForRoot.
type RootWatcher struct {
	Client *Client
	Wd     int32
	Mask   uint32
}

// WatchersForRoot returns the client connections that should receive an
// event for canonicalPath's watch descriptors, along with their
// descriptors. Used by the dispatcher to fan events out without needing its
// own copy of the watch table.
func (r *Registry) WatchersForRoot(canonicalPath string) []RootWatcher {
	r.mu.Lock()
	defer r.mu.Unlock()

	root, ok := r.roots[canonicalPath]
	if !ok {
		return nil
	}
	result := make([]RootWatcher, 0, len(root.watchers))
	for wd, entry := range root.watchers {
		result = append(result, RootWatcher{Client: entry.client, Wd: wd, Mask: entry.mask})
	}
	return result
}

// RemoveRoot releases every watch under canonicalPath in one step, for use
// when that root's scanner has terminated on its own (root disappeared or
// overflowed) rather than through an explicit REMOVE/DETACH. It does not
// invoke the root's scannerStop, since the scanner is already gone; the
// caller is responsible for notifying each returned watcher's client.
func (r *Registry) RemoveRoot(canonicalPath string) []RootWatcher {
	r.mu.Lock()
	root, ok := r.roots[canonicalPath]
	if !ok {
		r.mu.Unlock()
		return nil
	}

	watchers := make([]RootWatcher, 0, len(root.watchers))
	for wd, entry := range root.watchers {
		watchers = append(watchers, RootWatcher{Client: entry.client, Wd: wd, Mask: entry.mask})
		delete(r.watches, wd)
		entry.client.removeWatch(wd)
	}
	delete(r.roots, canonicalPath)
	r.mu.Unlock()

	r.canonicalizer.invalidate(canonicalPath)
	return watchers
}

// List returns a snapshot of every live watch, for the LIST control
// request. It takes the registry's coarse lock only briefly, never across
// I/O, so it does not block scanner progress (§4.5).
func (r *Registry) List() []protocol.WatchRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := make([]protocol.WatchRecord, 0, len(r.watches))
	for _, entry := range r.watches {
		records = append(records, protocol.WatchRecord{
			Wd:             entry.wd,
			Recursive:      entry.recursive,
			PollIntervalMs: uint32(entry.pollInterval / time.Millisecond),
			Path:           entry.canonicalPath,
		})
	}
	return records
}

// RecordDispatched increments the dispatched-event counter surfaced by
// STATUS.
func (r *Registry) RecordDispatched(n uint64) {
	r.eventsDispatched.Add(n)
}

// RecordDropped increments the dropped-event counter surfaced by STATUS.
func (r *Registry) RecordDropped(n uint64) {
	r.eventsDropped.Add(n)
}

// Status returns the current STATUS payload.
func (r *Registry) Status() protocol.Status {
	r.mu.Lock()
	watchCount := len(r.watches)
	clientCount := len(r.clients)
	r.mu.Unlock()

	return protocol.Status{
		WatchCount:       uint32(watchCount),
		ClientCount:      uint32(clientCount),
		Uptime:           time.Since(r.startedAt),
		EventsDispatched: r.eventsDispatched.Load(),
		EventsDropped:    r.eventsDropped.Load(),
	}
}

// PruneOrphanedWatches implements housekeeping.OrphanPruner: it removes any
// watch whose owning client connection is no longer registered. Ordinary
// connection loss is already cleaned up synchronously via DetachClient;
// this is a defensive backstop against a watch surviving a race between
// socket teardown and DetachClient.
func (r *Registry) PruneOrphanedWatches() int {
	r.mu.Lock()
	type orphan struct {
		client *Client
		wd     int32
	}
	var orphans []orphan
	for wd, entry := range r.watches {
		if _, ok := r.clients[entry.client.ID]; !ok {
			orphans = append(orphans, orphan{client: entry.client, wd: wd})
		}
	}
	r.mu.Unlock()

	pruned := 0
	for _, o := range orphans {
		_, stop, err := r.RemoveWatch(o.client, o.wd)
		if err != nil {
			continue
		}
		if stop != nil {
			stop()
		}
		pruned++
	}
	return pruned
}
