package registry

import "testing"

func newBareClient() *Client {
	return &Client{
		ID:          "clnt_test",
		watchPaths:  make(map[int32]string),
		pathToWatch: make(map[string]int32),
		outbound:    make(chan []byte, 2),
	}
}

// TestClientWatchBookkeeping verifies add/lookup/remove of the client-local
// path-to-descriptor index used for ADD dedup checks.
func TestClientWatchBookkeeping(t *testing.T) {
	c := newBareClient()
	c.addWatch(1, "/a")
	c.addWatch(2, "/b")

	if wd, ok := c.lookupWatch("/a"); !ok || wd != 1 {
		t.Errorf("got wd=%d ok=%v, expected 1/true", wd, ok)
	}

	c.removeWatch(1)
	if _, ok := c.lookupWatch("/a"); ok {
		t.Error("expected /a to be gone after removeWatch")
	}

	ids := c.WatchIDs()
	if len(ids) != 1 || ids[0] != 2 {
		t.Errorf("got %v, expected [2]", ids)
	}
}

// TestClientEnqueueOverflow verifies that once the outbound queue is full,
// Enqueue drops the oldest frame and marks the overflow flag rather than
// blocking.
func TestClientEnqueueOverflow(t *testing.T) {
	c := newBareClient() // capacity 2

	c.Enqueue([]byte("a"))
	c.Enqueue([]byte("b"))
	if c.TakeOverflowMarker() {
		t.Error("did not expect overflow before the queue was exceeded")
	}

	c.Enqueue([]byte("c"))
	if !c.TakeOverflowMarker() {
		t.Error("expected overflow marker after exceeding queue capacity")
	}
	// A second read should report no overflow until another drop occurs.
	if c.TakeOverflowMarker() {
		t.Error("expected overflow marker to be one-shot")
	}

	first := <-c.Outbound()
	if string(first) != "b" {
		t.Errorf("expected oldest-dropped semantics to leave %q then %q, got %q first", "b", "c", first)
	}
}
