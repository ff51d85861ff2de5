package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fakenotify/fakenotify/pkg/configuration"
	"github.com/fakenotify/fakenotify/pkg/ipc"
	"github.com/fakenotify/fakenotify/pkg/logging"
	"github.com/fakenotify/fakenotify/pkg/protocol"
	"github.com/fakenotify/fakenotify/pkg/wire"
)

func startTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "fakenotify.sock")
	listener, err := ipc.NewListener(socketPath, "")
	if err != nil {
		t.Fatalf("unable to create listener: %v", err)
	}

	config, err := configuration.Load(writeMinimalConfig(t))
	if err != nil {
		t.Fatalf("unable to load configuration: %v", err)
	}
	config.Daemon.MaxEntriesPerWatch = 1024

	s, err := New(listener, config, logging.NewRootLogger(logging.LevelError))
	if err != nil {
		t.Fatalf("unable to construct server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go s.Serve(ctx)
	t.Cleanup(cancel)

	return s, socketPath
}

func writeMinimalConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fakenotify.toml")
	contents := `
[daemon]
default_poll_interval = "20ms"
`
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatalf("unable to write configuration: %v", err)
	}
	return path
}

// TestServerAddThenCreateProducesEvent reproduces scenario S1: ADD a
// recursive watch, create a file, observe a single CREATE event carrying
// the descriptor ADD_OK returned.
func TestServerAddThenCreateProducesEvent(t *testing.T) {
	_, socketPath := startTestServer(t)
	root := t.TempDir()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := ipc.DialContext(ctx, socketPath)
	if err != nil {
		t.Fatalf("unable to dial daemon: %v", err)
	}
	defer conn.Close()

	if err := protocol.WriteFrame(conn, protocol.KindAdd, protocol.EncodeAdd(0, 0, root)); err != nil {
		t.Fatalf("unable to write ADD frame: %v", err)
	}
	kind, payload, err := protocol.ReadFrame(conn)
	if err != nil {
		t.Fatalf("unable to read ADD response: %v", err)
	}
	if kind != protocol.KindAddOK {
		t.Fatalf("got kind %v, expected ADD_OK", kind)
	}
	wd, err := protocol.DecodeAddOK(payload)
	if err != nil {
		t.Fatalf("unable to decode ADD_OK: %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(root, "a"), []byte("x"), 0644); err != nil {
		t.Fatalf("unable to create file: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	kind, payload, err = protocol.ReadFrame(conn)
	if err != nil {
		t.Fatalf("unable to read EVENT frame: %v", err)
	}
	if kind != protocol.KindEvent {
		t.Fatalf("got kind %v, expected EVENT", kind)
	}
	event, _, err := wire.Decode(payload)
	if err != nil {
		t.Fatalf("unable to decode event: %v", err)
	}
	if event.Wd != wd {
		t.Errorf("got wd %d, expected %d", event.Wd, wd)
	}
	if event.Mask&wire.MaskCreate == 0 {
		t.Errorf("got mask %#x, expected CREATE set", event.Mask)
	}
	if event.Name != "a" {
		t.Errorf("got name %q, expected a", event.Name)
	}
}

// TestServerListAndStatus verifies the LIST and STATUS control operations
// against a live server.
func TestServerListAndStatus(t *testing.T) {
	_, socketPath := startTestServer(t)
	root := t.TempDir()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := ipc.DialContext(ctx, socketPath)
	if err != nil {
		t.Fatalf("unable to dial daemon: %v", err)
	}
	defer conn.Close()

	if err := protocol.WriteFrame(conn, protocol.KindAdd, protocol.EncodeAdd(0, 0, root)); err != nil {
		t.Fatalf("unable to write ADD frame: %v", err)
	}
	if _, _, err := protocol.ReadFrame(conn); err != nil {
		t.Fatalf("unable to read ADD response: %v", err)
	}

	if err := protocol.WriteFrame(conn, protocol.KindList, nil); err != nil {
		t.Fatalf("unable to write LIST frame: %v", err)
	}
	kind, payload, err := protocol.ReadFrame(conn)
	if err != nil {
		t.Fatalf("unable to read LIST response: %v", err)
	}
	if kind != protocol.KindListResp {
		t.Fatalf("got kind %v, expected LIST_RESP", kind)
	}
	records, err := protocol.DecodeListResp(payload)
	if err != nil {
		t.Fatalf("unable to decode LIST_RESP: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, expected 1", len(records))
	}

	if err := protocol.WriteFrame(conn, protocol.KindStatus, nil); err != nil {
		t.Fatalf("unable to write STATUS frame: %v", err)
	}
	kind, payload, err = protocol.ReadFrame(conn)
	if err != nil {
		t.Fatalf("unable to read STATUS response: %v", err)
	}
	if kind != protocol.KindStatusRsp {
		t.Fatalf("got kind %v, expected STATUS_RESP", kind)
	}
	status, err := protocol.DecodeStatusResp(payload)
	if err != nil {
		t.Fatalf("unable to decode STATUS_RESP: %v", err)
	}
	if status.WatchCount != 1 {
		t.Errorf("got watch count %d, expected 1", status.WatchCount)
	}
	if status.ClientCount != 1 {
		t.Errorf("got client count %d, expected 1", status.ClientCount)
	}
}

// TestServerCrossClientIsolation reproduces scenario S5: two independent
// connections watching the same root each receive exactly one event
// bearing their own descriptor.
func TestServerCrossClientIsolation(t *testing.T) {
	_, socketPath := startTestServer(t)
	root := t.TempDir()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	connA, err := ipc.DialContext(ctx, socketPath)
	if err != nil {
		t.Fatalf("unable to dial daemon: %v", err)
	}
	defer connA.Close()
	connB, err := ipc.DialContext(ctx, socketPath)
	if err != nil {
		t.Fatalf("unable to dial daemon: %v", err)
	}
	defer connB.Close()

	if err := protocol.WriteFrame(connA, protocol.KindAdd, protocol.EncodeAdd(0, 0, root)); err != nil {
		t.Fatalf("unable to write ADD frame: %v", err)
	}
	_, payloadA, err := protocol.ReadFrame(connA)
	if err != nil {
		t.Fatalf("unable to read ADD response: %v", err)
	}
	wdA, _ := protocol.DecodeAddOK(payloadA)

	if err := protocol.WriteFrame(connB, protocol.KindAdd, protocol.EncodeAdd(0, 0, root)); err != nil {
		t.Fatalf("unable to write ADD frame: %v", err)
	}
	_, payloadB, err := protocol.ReadFrame(connB)
	if err != nil {
		t.Fatalf("unable to read ADD response: %v", err)
	}
	wdB, _ := protocol.DecodeAddOK(payloadB)

	if wdA == wdB {
		t.Fatalf("expected distinct descriptors, got %d and %d", wdA, wdB)
	}

	time.Sleep(30 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(root, "x"), []byte("1"), 0644); err != nil {
		t.Fatalf("unable to create file: %v", err)
	}

	connA.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, evPayloadA, err := protocol.ReadFrame(connA)
	if err != nil {
		t.Fatalf("unable to read event on connA: %v", err)
	}
	eventA, _, _ := wire.Decode(evPayloadA)
	if eventA.Wd != wdA {
		t.Errorf("got wd %d on connA, expected %d", eventA.Wd, wdA)
	}

	connB.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, evPayloadB, err := protocol.ReadFrame(connB)
	if err != nil {
		t.Fatalf("unable to read event on connB: %v", err)
	}
	eventB, _, _ := wire.Decode(evPayloadB)
	if eventB.Wd != wdB {
		t.Errorf("got wd %d on connB, expected %d", eventB.Wd, wdB)
	}
}
