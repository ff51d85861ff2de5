// Package scanner implements poll-based change detection for a single
// watched root: a ticking walk of the root's contents, diffed against the
// previous snapshot to produce a stable, ordered sequence of Records.
package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/fakenotify/fakenotify/pkg/timeutil"
)

// TerminationReason explains why a Scanner stopped producing records on its
// own (as opposed to being stopped by its owner).
type TerminationReason int

const (
	// TerminationRootGone indicates the watched root itself disappeared.
	TerminationRootGone TerminationReason = iota
	// TerminationOverflow indicates the root's entry count exceeded the
	// configured maximum mid-walk.
	TerminationOverflow
)

// Scanner polls one canonical root on a timer and reports the changes
// observed between successive snapshots. It is grounded on the same
// timer-driven poll loop used elsewhere for poll-based watching, generalized
// to emit ordered diff records instead of a single boolean.
type Scanner struct {
	root       string
	recursive  bool
	maxEntries int

	onRecords   func([]Record)
	onTerminate func(TerminationReason)

	mu       sync.Mutex
	interval time.Duration

	intervalChanged chan struct{}
	stop            chan struct{}
	stopOnce        sync.Once
	done            chan struct{}
}

// New constructs a Scanner for root. onRecords is invoked with each
// non-empty batch of changes; onTerminate is invoked at most once, when the
// scanner stops itself because the root vanished or overflowed.
func New(root string, recursive bool, maxEntries int, interval time.Duration, onRecords func([]Record), onTerminate func(TerminationReason)) *Scanner {
	return &Scanner{
		root:            root,
		recursive:       recursive,
		maxEntries:      maxEntries,
		interval:        interval,
		onRecords:       onRecords,
		onTerminate:     onTerminate,
		intervalChanged: make(chan struct{}, 1),
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
	}
}

// SetInterval updates the polling interval, taking effect on the next tick.
// Used when a shared root's effective poll interval changes as watchers
// join or leave (§4.3: "minimum of the poll intervals requested by watchers
// on that root").
func (s *Scanner) SetInterval(d time.Duration) {
	s.mu.Lock()
	s.interval = d
	s.mu.Unlock()

	select {
	case s.intervalChanged <- struct{}{}:
	default:
	}
}

func (s *Scanner) currentInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Run drives the polling loop until ctx is cancelled or Stop is called. It
// is intended to run in its own goroutine; the registry binds Stop as the
// scanner's stop function for a root once the scanner is started.
func (s *Scanner) Run(ctx context.Context) {
	defer close(s.done)

	timer := time.NewTimer(0)
	defer timeutil.StopAndDrainTimer(timer)

	var previous map[string]entryInfo
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-s.intervalChanged:
			timeutil.StopAndDrainTimer(timer)
			timer.Reset(s.currentInterval())
			continue
		case <-timer.C:
		}

		current, err := walkRoot(s.root, s.recursive, s.maxEntries)
		if err != nil {
			if s.onTerminate != nil {
				switch err {
				case errRootGone:
					s.onTerminate(TerminationRootGone)
				case errOverflow:
					s.onTerminate(TerminationOverflow)
				}
			}
			return
		}

		if previous != nil {
			records := diff(previous, current)
			if len(records) > 0 && s.onRecords != nil {
				s.onRecords(records)
			}
		}
		previous = current

		timer.Reset(s.currentInterval())
	}
}

// Stop halts the polling loop. It is safe to call multiple times and from
// any goroutine; it does not wait for Run to return.
func (s *Scanner) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

// Wait blocks until Run has returned, for callers (tests, orderly shutdown)
// that need to know the goroutine has actually exited.
func (s *Scanner) Wait() {
	<-s.done
}
