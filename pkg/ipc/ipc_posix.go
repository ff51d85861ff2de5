// +build !windows

package ipc

import (
	"context"
	"net"
	"os"
	"os/user"
	"strconv"

	"github.com/pkg/errors"
)

// DialContext attempts to establish an IPC connection, timing out if the
// provided context expires.
func DialContext(ctx context.Context, path string) (net.Conn, error) {
	// Create a zero-valued dialer, which will have the same dialing behavior
	// as the raw dialing functions.
	dialer := &net.Dialer{}

	// Perform dialing.
	return dialer.DialContext(ctx, "unix", path)
}

// NewListener creates a new IPC listener at path, removing any stale socket
// left behind at that path first. The listener is given mode 0660; if group
// is non-empty, the socket's group ownership is also set to it, so that
// members of that group (and not just the owning user) can connect without
// the socket being world-accessible. Clients are expected to authenticate
// themselves further via peer credentials once connected.
func NewListener(path string, group string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "unable to remove stale socket")
	}

	// Create the listener.
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}

	// Explicitly set socket permissions.
	if err := os.Chmod(path, 0660); err != nil {
		listener.Close()
		return nil, errors.Wrap(err, "unable to set socket permissions")
	}

	if group != "" {
		g, err := user.LookupGroup(group)
		if err != nil {
			listener.Close()
			return nil, errors.Wrap(err, "unable to resolve socket group")
		}
		gid, err := strconv.Atoi(g.Gid)
		if err != nil {
			listener.Close()
			return nil, errors.Wrap(err, "invalid group identifier")
		}
		if err := os.Chown(path, -1, gid); err != nil {
			listener.Close()
			return nil, errors.Wrap(err, "unable to set socket group ownership")
		}
	}

	// Create the listener.
	return listener, nil
}
