package dispatch

import (
	"bytes"
	"testing"

	"github.com/fakenotify/fakenotify/pkg/daemon/debounce"
	"github.com/fakenotify/fakenotify/pkg/daemon/registry"
	"github.com/fakenotify/fakenotify/pkg/protocol"
	"github.com/fakenotify/fakenotify/pkg/wire"
)

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r, err := registry.New(nil)
	if err != nil {
		t.Fatalf("unable to construct registry: %v", err)
	}
	return r
}

// TestDispatchDeliversToWatchingClient verifies that a debounced CREATE
// record is translated into an EVENT frame carrying the watcher's own
// descriptor and delivered to that client's outbound queue.
func TestDispatchDeliversToWatchingClient(t *testing.T) {
	r := newTestRegistry(t)
	client := registry.NewBareClient("clnt_a")
	r.RegisterClient(client)

	root := t.TempDir()
	result, err := r.AddWatch(client, root, true, 0, 0, 0)
	if err != nil {
		t.Fatalf("unable to add watch: %v", err)
	}

	d := New(r)
	d.Dispatch(result.CanonicalPath, debounce.Record{Path: "a.txt", Kind: debounce.KindCreate})

	select {
	case frame := <-client.Outbound():
		kind, payload, err := readOneFrame(frame)
		if err != nil {
			t.Fatalf("unable to parse frame: %v", err)
		}
		if kind != protocol.KindEvent {
			t.Fatalf("got kind %v, expected EVENT", kind)
		}
		event, _, err := wire.Decode(payload)
		if err != nil {
			t.Fatalf("unable to decode event: %v", err)
		}
		if event.Wd != result.Wd {
			t.Errorf("got wd %d, expected %d", event.Wd, result.Wd)
		}
		if event.Mask != wire.MaskCreate {
			t.Errorf("got mask %#x, expected CREATE", event.Mask)
		}
		if event.Name != "a.txt" {
			t.Errorf("got name %q, expected a.txt", event.Name)
		}
	default:
		t.Fatal("expected a frame to be enqueued")
	}
}

// TestDispatchSetsISDIR verifies the ISDIR bit is unioned in for directory
// records.
func TestDispatchSetsISDIR(t *testing.T) {
	r := newTestRegistry(t)
	client := registry.NewBareClient("clnt_a")
	r.RegisterClient(client)

	root := t.TempDir()
	result, err := r.AddWatch(client, root, true, 0, 0, 0)
	if err != nil {
		t.Fatalf("unable to add watch: %v", err)
	}

	d := New(r)
	d.Dispatch(result.CanonicalPath, debounce.Record{Path: "sub", Kind: debounce.KindCreate, IsDirectory: true})

	frame := <-client.Outbound()
	_, payload, err := readOneFrame(frame)
	if err != nil {
		t.Fatalf("unable to parse frame: %v", err)
	}
	event, _, err := wire.Decode(payload)
	if err != nil {
		t.Fatalf("unable to decode event: %v", err)
	}
	if event.Mask&wire.MaskIsDir == 0 {
		t.Error("expected ISDIR to be set for a directory record")
	}
}

// TestDispatchCrossClientIsolation reproduces scenario S5: two clients
// watching the same root each receive exactly one event, bearing their own
// respective descriptor.
func TestDispatchCrossClientIsolation(t *testing.T) {
	r := newTestRegistry(t)
	clientA := registry.NewBareClient("clnt_a")
	clientB := registry.NewBareClient("clnt_b")
	r.RegisterClient(clientA)
	r.RegisterClient(clientB)

	root := t.TempDir()
	resultA, err := r.AddWatch(clientA, root, true, 0, 0, 0)
	if err != nil {
		t.Fatalf("unable to add watch: %v", err)
	}
	resultB, err := r.AddWatch(clientB, root, true, 0, 0, 0)
	if err != nil {
		t.Fatalf("unable to add watch: %v", err)
	}

	d := New(r)
	d.Dispatch(resultA.CanonicalPath, debounce.Record{Path: "x", Kind: debounce.KindModify})

	frameA := <-clientA.Outbound()
	_, payloadA, _ := readOneFrame(frameA)
	eventA, _, _ := wire.Decode(payloadA)
	if eventA.Wd != resultA.Wd {
		t.Errorf("got wd %d for clientA, expected %d", eventA.Wd, resultA.Wd)
	}

	frameB := <-clientB.Outbound()
	_, payloadB, _ := readOneFrame(frameB)
	eventB, _, _ := wire.Decode(payloadB)
	if eventB.Wd != resultB.Wd {
		t.Errorf("got wd %d for clientB, expected %d", eventB.Wd, resultB.Wd)
	}
}

// readOneFrame parses a single complete frame previously produced by
// protocol.FrameEvent.
func readOneFrame(frame []byte) (protocol.Kind, []byte, error) {
	return protocol.ReadFrame(bytes.NewReader(frame))
}
