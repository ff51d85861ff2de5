package registry

import (
	"net"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/fakenotify/fakenotify/pkg/identifier"
)

// outboundQueueCapacity is the high-water mark for a client's outbound
// framed-message queue (§3: "a bounded outbound queue of framed events with
// a high-water mark for backpressure").
const outboundQueueCapacity = 1024

// Client is the daemon-side state for one connected shim process: its
// authenticated identity, the set of watch descriptors it owns, and its
// outbound event queue.
type Client struct {
	// ID is this connection's identifier, distinct from any watch
	// descriptor, assigned once per connection lifetime.
	ID string
	// Conn is the underlying socket connection.
	Conn net.Conn
	// PID, UID and GID are the peer's process credentials, obtained via
	// SO_PEERCRED at connection time.
	PID int32
	UID uint32
	GID uint32

	mu              sync.Mutex
	watchPaths      map[int32]string
	pathToWatch     map[string]int32
	outbound        chan []byte
	pendingOverflow bool
}

// NewClient authenticates conn via SO_PEERCRED and constructs a Client for
// it. conn must be a *net.UnixConn.
func NewClient(conn net.Conn) (*Client, error) {
	id, err := identifier.New(identifier.PrefixClient)
	if err != nil {
		return nil, errors.Wrap(err, "unable to generate client identifier")
	}

	pid, uid, gid, err := peerCredentials(conn)
	if err != nil {
		return nil, errors.Wrap(err, "unable to authenticate client")
	}

	return &Client{
		ID:          id,
		Conn:        conn,
		PID:         pid,
		UID:         uid,
		GID:         gid,
		watchPaths:  make(map[int32]string),
		pathToWatch: make(map[string]int32),
		outbound:    make(chan []byte, outboundQueueCapacity),
	}, nil
}

// NewBareClient constructs a Client without SO_PEERCRED authentication, for
// callers (tests, in-process harnesses) that have no real unix socket to
// authenticate against.
func NewBareClient(id string) *Client {
	return &Client{
		ID:          id,
		watchPaths:  make(map[int32]string),
		pathToWatch: make(map[string]int32),
		outbound:    make(chan []byte, outboundQueueCapacity),
	}
}

// peerCredentials retrieves the connecting process's credentials via
// SO_PEERCRED, the mechanism §4.2 names for authenticating a client
// connection.
func peerCredentials(conn net.Conn) (pid int32, uid, gid uint32, err error) {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return 0, 0, 0, errors.New("connection is not a unix domain socket")
	}

	raw, err := unixConn.SyscallConn()
	if err != nil {
		return 0, 0, 0, errors.Wrap(err, "unable to obtain raw connection")
	}

	var ucred *unix.Ucred
	var sockoptErr error
	controlErr := raw.Control(func(fd uintptr) {
		ucred, sockoptErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if controlErr != nil {
		return 0, 0, 0, errors.Wrap(controlErr, "unable to access socket descriptor")
	}
	if sockoptErr != nil {
		return 0, 0, 0, errors.Wrap(sockoptErr, "unable to read peer credentials")
	}

	return ucred.Pid, ucred.Uid, ucred.Gid, nil
}

// lookupWatch returns the watch descriptor the client already holds for
// canonicalPath, if any.
func (c *Client) lookupWatch(canonicalPath string) (int32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	wd, ok := c.pathToWatch[canonicalPath]
	return wd, ok
}

func (c *Client) addWatch(wd int32, canonicalPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watchPaths[wd] = canonicalPath
	c.pathToWatch[canonicalPath] = wd
}

func (c *Client) removeWatch(wd int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if path, ok := c.watchPaths[wd]; ok {
		delete(c.watchPaths, wd)
		delete(c.pathToWatch, path)
	}
}

// WatchIDs returns a snapshot of the watch descriptors currently owned by
// the client.
func (c *Client) WatchIDs() []int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]int32, 0, len(c.watchPaths))
	for wd := range c.watchPaths {
		ids = append(ids, wd)
	}
	return ids
}

// Enqueue pushes frame onto the client's outbound queue. If the queue is at
// capacity, the oldest queued frame is dropped and the client is marked so
// that the next successful delivery is preceded by an overflow indicator
// (§4.4: "drop oldest events and mark the client for a leading Q_OVERFLOW on
// resume").
func (c *Client) Enqueue(frame []byte) {
	for {
		select {
		case c.outbound <- frame:
			return
		default:
		}

		select {
		case <-c.outbound:
			c.mu.Lock()
			c.pendingOverflow = true
			c.mu.Unlock()
		default:
			return
		}
	}
}

// Outbound returns the channel of queued frames ready for delivery.
func (c *Client) Outbound() <-chan []byte {
	return c.outbound
}

// TakeOverflowMarker reports and clears whether frames were dropped from
// this client's queue since the last call.
func (c *Client) TakeOverflowMarker() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	overflowed := c.pendingOverflow
	c.pendingOverflow = false
	return overflowed
}
