// Package server wires the registry, scanner, debouncer, dispatcher and
// control-plane handler together around the daemon's accept loop: one
// framed read/write loop per client connection, and one poll-based Scanner
// per distinct canonical root, started and stopped as watchers come and go.
package server

import (
	"bytes"
	"context"
	"net"
	"sync"
	"time"

	"github.com/fakenotify/fakenotify/pkg/configuration"
	"github.com/fakenotify/fakenotify/pkg/daemon/control"
	"github.com/fakenotify/fakenotify/pkg/daemon/debounce"
	"github.com/fakenotify/fakenotify/pkg/daemon/dispatch"
	"github.com/fakenotify/fakenotify/pkg/daemon/registry"
	"github.com/fakenotify/fakenotify/pkg/daemon/scanner"
	"github.com/fakenotify/fakenotify/pkg/logging"
	"github.com/fakenotify/fakenotify/pkg/protocol"
	"github.com/fakenotify/fakenotify/pkg/wire"
)

// debounceWindow is the default per-path debounce window (§4.4: "a short
// configurable duration (default ~500 ms)").
const debounceWindow = 500 * time.Millisecond

// Server owns a listener and every piece of daemon state bound to it.
type Server struct {
	listener net.Listener
	config   *configuration.Configuration
	logger   *logging.Logger

	registry   *registry.Registry
	debouncer  *debounce.Debouncer
	dispatcher *dispatch.Dispatcher
	control    *control.Handler

	mu       sync.Mutex
	scanners map[string]*scanner.Scanner
}

// New constructs a Server around listener, ready to Serve.
func New(listener net.Listener, config *configuration.Configuration, logger *logging.Logger) (*Server, error) {
	reg, err := registry.New(config.AllowedByRoots)
	if err != nil {
		return nil, err
	}

	s := &Server{
		listener: listener,
		config:   config,
		logger:   logger,
		registry: reg,
		scanners: make(map[string]*scanner.Scanner),
	}
	s.dispatcher = dispatch.New(reg)
	s.debouncer = debounce.New(debounceWindow, s.dispatcher.Dispatch)
	s.control = control.New(reg)
	return s, nil
}

// Registry exposes the server's registry, for housekeeping wiring.
func (s *Server) Registry() *registry.Registry {
	return s.registry
}

// Serve runs the accept loop until ctx is cancelled or the listener is
// closed. It returns nil when the loop ended because ctx was cancelled, and
// the accept error otherwise.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go s.handleConnection(ctx, conn)
	}
}

// SeedWatch registers a configuration-declared [[watch]] entry under an
// internal pseudo-client, bypassing the wire ADD path (there is no shim
// connection to own it). It is used at startup to honor the configuration
// file's [[watch]] entries.
func (s *Server) SeedWatch(w configuration.Watch, client *registry.Client) error {
	result, err := s.registry.AddWatch(client, w.Path, w.Recursive, 0, w.PollInterval.Duration(), 0)
	if err != nil {
		return err
	}
	s.ensureScanner(result)
	return nil
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	client, err := registry.NewClient(conn)
	if err != nil {
		s.logger.Warnf("rejecting unauthenticated connection: %v", err)
		conn.Close()
		return
	}
	s.registry.RegisterClient(client)
	s.logger.Debugf("client %s connected (pid %d)", client.ID, client.PID)

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var writeMu sync.Mutex
	writeLocked := func(p []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_, err := conn.Write(p)
		return err
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-connCtx.Done():
				return
			case frame, ok := <-client.Outbound():
				if !ok {
					return
				}
				if client.TakeOverflowMarker() {
					if overflow, err := protocol.FrameOverflow(); err == nil {
						if err := writeLocked(overflow); err != nil {
							cancel()
							return
						}
					}
				}
				if err := writeLocked(frame); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	s.readLoop(connCtx, conn, client, writeLocked)

	cancel()
	<-writerDone
	conn.Close()

	for _, detached := range s.registry.DetachClient(client) {
		s.logger.Debugf("client %s detached watch on %s", client.ID, detached.CanonicalPath)
	}
}

func (s *Server) readLoop(ctx context.Context, conn net.Conn, client *registry.Client, writeLocked func([]byte) error) {
	for {
		kind, payload, err := protocol.ReadFrame(conn)
		if err != nil {
			return
		}

		var response bytes.Buffer
		switch kind {
		case protocol.KindAdd:
			s.handleAdd(client, payload, &response)
		case protocol.KindRemove:
			s.handleRemove(client, payload, &response)
		case protocol.KindDetach:
			s.handleDetach(client, payload, &response)
		case protocol.KindList:
			protocol.WriteFrame(&response, protocol.KindListResp, s.control.List())
		case protocol.KindStatus:
			protocol.WriteFrame(&response, protocol.KindStatusRsp, s.control.Status())
		default:
			continue
		}

		if response.Len() > 0 {
			if err := writeLocked(response.Bytes()); err != nil {
				return
			}
		}

		if ctx.Err() != nil {
			return
		}
	}
}

func (s *Server) handleAdd(client *registry.Client, payload []byte, response *bytes.Buffer) {
	mask, assertWd, path, err := protocol.DecodeAdd(payload)
	if err != nil {
		protocol.WriteFrame(response, protocol.KindAddErr, protocol.EncodeErr(protocol.NewError(protocol.ErrorCodeInvalidArgument, err.Error())))
		return
	}

	result, err := s.registry.AddWatch(client, path, true, mask, s.config.Daemon.DefaultPollInterval.Duration(), assertWd)
	if err != nil {
		protocol.WriteFrame(response, protocol.KindAddErr, protocol.EncodeErr(protocol.AsError(err)))
		return
	}

	s.ensureScanner(result)
	protocol.WriteFrame(response, protocol.KindAddOK, protocol.EncodeAddOK(result.Wd))
}

func (s *Server) handleRemove(client *registry.Client, payload []byte, response *bytes.Buffer) {
	wd, err := protocol.DecodeWd(payload)
	if err != nil {
		protocol.WriteFrame(response, protocol.KindRemoveErr, protocol.EncodeErr(protocol.NewError(protocol.ErrorCodeInvalidArgument, err.Error())))
		return
	}

	canonicalPath, stop, err := s.registry.RemoveWatch(client, wd)
	if err != nil {
		protocol.WriteFrame(response, protocol.KindRemoveErr, protocol.EncodeErr(protocol.AsError(err)))
		return
	}
	s.stopScannerIfIdle(canonicalPath, stop)

	// §3 invariant 2 / §8 property 4: the last event seen on a descriptor
	// before it becomes invalid must be exactly one IGNORED, mirroring the
	// real inotify_rm_watch behavior. Enqueue it before acknowledging the
	// REMOVE so the client can't observe the wd as gone without it.
	if frame, err := protocol.FrameEvent(wire.Event{Wd: wd, Mask: wire.MaskIgnored}); err == nil {
		client.Enqueue(frame)
	}

	protocol.WriteFrame(response, protocol.KindRemoveOK, nil)
}

func (s *Server) handleDetach(client *registry.Client, payload []byte, response *bytes.Buffer) {
	wds, err := protocol.DecodeDetach(payload)
	if err != nil {
		protocol.WriteFrame(response, protocol.KindDetachErr, protocol.EncodeErr(protocol.NewError(protocol.ErrorCodeInvalidArgument, err.Error())))
		return
	}

	// Partial failure is not reported as an error: connection-loss cleanup
	// and an explicit DETACH batch can race harmlessly over the same
	// descriptors.
	for _, wd := range wds {
		canonicalPath, stop, err := s.registry.RemoveWatch(client, wd)
		if err != nil {
			continue
		}
		s.stopScannerIfIdle(canonicalPath, stop)
	}
	protocol.WriteFrame(response, protocol.KindDetachOK, nil)
}

// ensureScanner starts a Scanner for result.CanonicalPath if this ADD was
// the first watcher on that root (NewRoot), and updates its interval if an
// existing scanner's effective interval changed.
func (s *Server) ensureScanner(result registry.AddResult) {
	s.mu.Lock()
	existing, ok := s.scanners[result.CanonicalPath]
	s.mu.Unlock()

	if ok {
		existing.SetInterval(result.EffectivePollInterval)
		return
	}
	if !result.NewRoot {
		return
	}

	sc := scanner.New(result.CanonicalPath, true, s.config.Daemon.MaxEntriesPerWatch, result.EffectivePollInterval,
		func(records []scanner.Record) { s.onScanRecords(result.CanonicalPath, records) },
		func(reason scanner.TerminationReason) { s.onScanTerminate(result.CanonicalPath, reason) },
	)

	s.mu.Lock()
	s.scanners[result.CanonicalPath] = sc
	s.mu.Unlock()

	s.registry.SetScannerStop(result.CanonicalPath, func() {
		sc.Stop()
		sc.Wait()
		s.mu.Lock()
		delete(s.scanners, result.CanonicalPath)
		s.mu.Unlock()
		s.debouncer.CancelRoot(result.CanonicalPath)
	})

	go sc.Run(context.Background())
}

func (s *Server) stopScannerIfIdle(canonicalPath string, stop func()) {
	if stop != nil {
		stop()
	}
}

func (s *Server) onScanRecords(root string, records []scanner.Record) {
	debounced := make([]debounce.Record, len(records))
	for i, r := range records {
		debounced[i] = debounce.Record{Path: r.Path, Kind: int(r.Kind), IsDirectory: r.IsDirectory}
	}
	s.debouncer.Feed(root, debounced)
}

// onScanTerminate handles a scanner stopping itself (root gone or
// overflow): every remaining watcher on that root is released and notified
// with the appropriate terminal event (§4.3: "A root that disappears
// entirely emits DELETE + IGNORED for the watch", "emit one Q_OVERFLOW
// record for that watch").
func (s *Server) onScanTerminate(root string, reason scanner.TerminationReason) {
	watchers := s.registry.RemoveRoot(root)

	s.mu.Lock()
	delete(s.scanners, root)
	s.mu.Unlock()
	s.debouncer.CancelRoot(root)

	for _, w := range watchers {
		var event wire.Event
		switch reason {
		case scanner.TerminationRootGone:
			event = wire.Event{Wd: w.Wd, Mask: wire.MaskDelete | wire.MaskIgnored}
		case scanner.TerminationOverflow:
			event = wire.Event{Wd: -1, Mask: wire.MaskQOverflow}
		}
		frame, err := protocol.FrameEvent(event)
		if err != nil {
			continue
		}
		w.Client.Enqueue(frame)
	}
}
