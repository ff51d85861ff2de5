// Package shim implements the process-wide state backing the interposed
// FSN entry points (§4.1): a lazily-initialised connection to the daemon, a
// descriptor table mapping each pipe's reader descriptor to its writer and
// watch bookkeeping, and a background worker that ingests framed events
// from the daemon and relays them into the matching pipe. Package shim
// holds no knowledge of how its exported functions are reached by an
// application process (that is cmd/fakenotify-shim's cgo export layer); it
// is usable and testable as an ordinary Go package.
package shim

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/fakenotify/fakenotify/pkg/daemon"
	"github.com/fakenotify/fakenotify/pkg/ipc"
	"github.com/fakenotify/fakenotify/pkg/protocol"
	"github.com/fakenotify/fakenotify/pkg/wire"
)

// reconnectMaxInterval caps the exponential backoff between reconnection
// attempts (§4.1: "bounded exponential backoff (cap at a few seconds)").
const reconnectMaxInterval = 5 * time.Second

// instance is the shim's bookkeeping for one FSN pipe: the writer end the
// ingestion worker delivers bytes to, and the watch descriptors currently
// registered against it (kept so a reconnect can replay them).
type instance struct {
	writer *os.File

	mu              sync.Mutex
	watches         map[int32]string // wd -> absolute path, for replay
	pendingOverflow bool             // set when a write was dropped because the pipe was full
}

// Manager is the process-wide shim singleton. It is safe for concurrent use
// from any interposed entry point.
type Manager struct {
	dial func(ctx context.Context) (net_Conn, error)

	mu         sync.Mutex
	conn       net_Conn
	instances  map[uintptr]*instance
	connectErr error
}

// net_Conn is a local alias kept narrow on purpose: the shim only ever
// reads frames from and writes frames to the daemon connection, never
// needs the rest of net.Conn's surface beyond Close.
type net_Conn interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

var (
	singleton     *Manager
	singletonOnce sync.Once
)

// Get returns the process-wide Manager, constructing it (and kicking off
// its connection attempt and ingestion worker) on first call. Concurrent
// first-callers all observe the same fully-initialised Manager (§9:
// "Implementers must ensure initialisation is safe under concurrent
// first-callers (single-init discipline)").
func Get() *Manager {
	singletonOnce.Do(func() {
		m := &Manager{
			instances: make(map[uintptr]*instance),
		}
		m.dial = func(ctx context.Context) (net_Conn, error) {
			path, err := daemon.DefaultEndpointPath()
			if err != nil {
				return nil, err
			}
			return ipc.DialContext(ctx, path)
		}
		go m.connectionLoop()
		singleton = m
	})
	return singleton
}

// connectionLoop owns the daemon connection for the life of the process:
// dial, run the ingestion worker until the connection breaks, then
// reconnect with bounded exponential backoff and replay outstanding watch
// registrations.
func (m *Manager) connectionLoop() {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = reconnectMaxInterval
	b.MaxElapsedTime = 0 // retry forever; the process lifetime bounds this.

	for {
		conn, err := m.dial(context.Background())
		if err != nil {
			m.mu.Lock()
			m.connectErr = err
			m.mu.Unlock()
			time.Sleep(b.NextBackOff())
			continue
		}

		b.Reset()
		m.mu.Lock()
		m.conn = conn
		m.connectErr = nil
		m.mu.Unlock()

		m.replayWatches(conn)
		m.ingest(conn) // blocks until the connection breaks

		m.mu.Lock()
		m.conn = nil
		m.mu.Unlock()
	}
}

// replayWatches reasserts every instance's outstanding watch registrations
// on a freshly (re)established connection, requesting the daemon honor the
// original descriptor values so they remain valid from the application's
// perspective (§4.1 "Connection loss", scenario S4).
func (m *Manager) replayWatches(conn net_Conn) {
	m.mu.Lock()
	instances := make([]*instance, 0, len(m.instances))
	for _, inst := range m.instances {
		instances = append(instances, inst)
	}
	m.mu.Unlock()

	for _, inst := range instances {
		inst.mu.Lock()
		watches := make(map[int32]string, len(inst.watches))
		for wd, path := range inst.watches {
			watches[wd] = path
		}
		inst.mu.Unlock()

		for wd, path := range watches {
			frame := protocol.EncodeAdd(0, wd, path)
			if err := protocol.WriteFrame(conn, protocol.KindAdd, frame); err != nil {
				return
			}
			kind, payload, err := protocol.ReadFrame(conn)
			if err != nil {
				return
			}
			if kind != protocol.KindAddOK {
				// The daemon could not honor the asserted wd (e.g. it was
				// already reused). inst.watches still keys on the original
				// wd, so events for it are simply lost from here on, same
				// as if the watch had never been replayed.
				continue
			}
			confirmedWd, err := protocol.DecodeAddOK(payload)
			if err != nil || confirmedWd == wd {
				continue
			}

			// The daemon assigned a different wd than asserted; reconcile
			// inst.watches so deliver's ownership check keys on the value
			// events now actually arrive tagged with.
			inst.mu.Lock()
			if inst.watches[wd] == path {
				delete(inst.watches, wd)
				inst.watches[confirmedWd] = path
			}
			inst.mu.Unlock()
		}
	}
}

// ingest reads framed events from conn until it errors, writing each
// decoded FSN event's wire bytes to the matching instance's pipe. It is the
// single background worker described in §4.1's "Event ingestion fiber".
func (m *Manager) ingest(conn net_Conn) {
	for {
		kind, payload, err := protocol.ReadFrame(conn)
		if err != nil {
			return
		}
		if kind != protocol.KindEvent {
			continue
		}

		event, _, err := wire.Decode(payload)
		if err != nil {
			continue
		}

		m.deliver(event)
	}
}

// deliver writes one event to every instance that owns event.Wd. In
// practice exactly one instance owns any given wd, but the lookup is by
// scanning instances rather than a dedicated wd index, since an instance's
// watch set changes rarely relative to event volume and a single process
// normally holds very few open FSN descriptors.
func (m *Manager) deliver(event wire.Event) {
	m.mu.Lock()
	instances := make([]*instance, 0, len(m.instances))
	for _, inst := range m.instances {
		instances = append(instances, inst)
	}
	m.mu.Unlock()

	encoded := wire.Encode(event)
	for _, inst := range instances {
		inst.mu.Lock()
		_, owned := inst.watches[event.Wd]
		inst.mu.Unlock()
		if !owned && event.Wd != -1 {
			continue
		}
		inst.deliver(encoded)
	}
}

// deliver writes encoded to inst's pipe, honoring the pending-overflow
// protocol (§4.1): "if the pipe is full (reader slow), the shim drops the
// event and sets a pending-overflow flag for that descriptor; the next
// successful write prepends a single Q_OVERFLOW event (wd = -1, name
// empty) before resuming normal delivery."
func (inst *instance) deliver(encoded []byte) {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	if inst.pendingOverflow {
		if !writeBestEffort(inst.writer, wire.Encode(wire.Overflow())) {
			// The pipe is still full: the overflow marker itself didn't
			// fit, so stay pending and drop this event too.
			return
		}
		inst.pendingOverflow = false
	}

	if !writeBestEffort(inst.writer, encoded) {
		inst.pendingOverflow = true
	}
}

// writeBestEffort attempts a single non-blocking write to w, returning
// false if the write was dropped because the pipe is full (EAGAIN) and
// true otherwise — including when the reader has gone away, which
// deliver's caller already tolerates silently (§4.1: "Writes are
// best-effort"). w's write end is opened non-blocking (see Manager.Init),
// so a full pipe surfaces here as EAGAIN rather than stalling the
// ingestion worker; the write goes through w's raw fd via SyscallConn so
// that a single EAGAIN is observed directly instead of being retried by
// the runtime poller the way os.File.Write would.
func writeBestEffort(w *os.File, data []byte) bool {
	rawConn, err := w.SyscallConn()
	if err != nil {
		_, err = w.Write(data)
		return err == nil
	}

	var writeErr error
	rawConn.Write(func(fd uintptr) bool {
		_, writeErr = unix.Write(int(fd), data)
		return true // single attempt: never ask the poller to wait for us
	})
	return writeErr != unix.EAGAIN
}

// errNotFound is returned by AddWatch/RemoveWatch/Close when fd is not a
// descriptor the shim is tracking. This package only reports the condition;
// the cgo export layer answers inotify_add_watch and inotify_rm_watch on such
// a descriptor with EBADF and passes close on it to the real libc close.
var errNotFound = errors.New("descriptor is not managed by this shim")
