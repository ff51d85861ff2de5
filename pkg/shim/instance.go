package shim

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/fakenotify/fakenotify/pkg/protocol"
)

// Init creates a new FSN instance: an OS pipe whose write end is owned by
// the shim (fed by the ingestion worker) and whose read end is returned to
// the caller, mirroring inotify_init()'s "return an fd suitable for read()"
// contract (§4.1). The write end is put in non-blocking mode so that a slow
// reader surfaces as EAGAIN to the ingestion worker instead of stalling it
// (§4.1's overflow contract requires detecting a full pipe, not blocking on
// it).
func (m *Manager) Init() (*os.File, error) {
	reader, writer, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("unable to create notification pipe: %w", err)
	}
	if err := unix.SetNonblock(int(writer.Fd()), true); err != nil {
		reader.Close()
		writer.Close()
		return nil, fmt.Errorf("unable to set pipe to non-blocking mode: %w", err)
	}

	inst := &instance{
		writer:  writer,
		watches: make(map[int32]string),
	}

	m.mu.Lock()
	m.instances[reader.Fd()] = inst
	m.mu.Unlock()

	return reader, nil
}

// AddWatch registers path (mask is accepted but every wire-originated watch
// is recursive per the daemon's ADD semantics) against the FSN instance
// identified by fd, returning the daemon-assigned watch descriptor. Every
// call sends a fresh ADD; a path this connection already watches is not
// re-armed in place but rejected by the daemon (ALREADY_EXISTS), and that
// rejection is returned as the error.
func (m *Manager) AddWatch(fd uintptr, path string, mask uint32) (int32, error) {
	m.mu.Lock()
	inst, ok := m.instances[fd]
	conn := m.conn
	connectErr := m.connectErr
	m.mu.Unlock()
	if !ok {
		return 0, errNotFound
	}
	if conn == nil {
		if connectErr != nil {
			return 0, fmt.Errorf("daemon unavailable: %w", connectErr)
		}
		return 0, fmt.Errorf("daemon unavailable")
	}

	if err := protocol.WriteFrame(conn, protocol.KindAdd, protocol.EncodeAdd(mask, 0, path)); err != nil {
		return 0, fmt.Errorf("unable to send ADD: %w", err)
	}
	kind, payload, err := protocol.ReadFrame(conn)
	if err != nil {
		return 0, fmt.Errorf("unable to read ADD response: %w", err)
	}
	if kind == protocol.KindAddErr {
		protoErr, _ := protocol.DecodeErr(payload)
		if protoErr != nil {
			return 0, protoErr
		}
		return 0, fmt.Errorf("ADD rejected")
	}
	if kind != protocol.KindAddOK {
		return 0, fmt.Errorf("unexpected response kind %v to ADD", kind)
	}
	wd, err := protocol.DecodeAddOK(payload)
	if err != nil {
		return 0, err
	}

	inst.mu.Lock()
	inst.watches[wd] = path
	inst.mu.Unlock()

	return wd, nil
}

// RemoveWatch releases wd from the FSN instance identified by fd, mirroring
// inotify_rm_watch.
func (m *Manager) RemoveWatch(fd uintptr, wd int32) error {
	m.mu.Lock()
	inst, ok := m.instances[fd]
	conn := m.conn
	m.mu.Unlock()
	if !ok {
		return errNotFound
	}
	if conn == nil {
		return fmt.Errorf("daemon unavailable")
	}

	if err := protocol.WriteFrame(conn, protocol.KindRemove, protocol.EncodeWd(wd)); err != nil {
		return fmt.Errorf("unable to send REMOVE: %w", err)
	}
	kind, payload, err := protocol.ReadFrame(conn)
	if err != nil {
		return fmt.Errorf("unable to read REMOVE response: %w", err)
	}
	if kind == protocol.KindRemoveErr {
		protoErr, _ := protocol.DecodeErr(payload)
		if protoErr != nil {
			return protoErr
		}
		return fmt.Errorf("REMOVE rejected")
	}

	inst.mu.Lock()
	delete(inst.watches, wd)
	inst.mu.Unlock()

	return nil
}

// Close tears down the FSN instance identified by fd: it releases every
// outstanding watch on it with a single DETACH batch and closes the pipe's
// write end, mirroring close(fd) on a real inotify descriptor (the read end
// is the caller's to close, exactly as with a genuine inotify fd).
func (m *Manager) Close(fd uintptr) error {
	m.mu.Lock()
	inst, ok := m.instances[fd]
	conn := m.conn
	delete(m.instances, fd)
	m.mu.Unlock()
	if !ok {
		return errNotFound
	}

	inst.mu.Lock()
	wds := make([]int32, 0, len(inst.watches))
	for wd := range inst.watches {
		wds = append(wds, wd)
	}
	inst.watches = nil
	inst.mu.Unlock()

	if conn != nil && len(wds) > 0 {
		if err := protocol.WriteFrame(conn, protocol.KindDetach, protocol.EncodeDetach(wds)); err == nil {
			protocol.ReadFrame(conn)
		}
	}

	return inst.writer.Close()
}
