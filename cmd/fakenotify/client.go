package main

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/fakenotify/fakenotify/pkg/daemon"
	"github.com/fakenotify/fakenotify/pkg/ipc"
)

// dialTimeout bounds how long an administrative command waits for the
// daemon to accept a connection before reporting it unreachable.
const dialTimeout = 3 * time.Second

// errDaemonUnreachable is returned by dial when the control-plane socket
// cannot be reached; callers translate it to exit code 3 (spec.md §6).
var errDaemonUnreachable = errors.New("daemon unreachable")

func resolveSocketPath() (string, error) {
	if rootConfiguration.socket != "" {
		return rootConfiguration.socket, nil
	}
	return daemon.DefaultEndpointPath()
}

func dial() (net.Conn, error) {
	path, err := resolveSocketPath()
	if err != nil {
		return nil, errors.Wrap(err, "unable to determine daemon socket path")
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	conn, err := ipc.DialContext(ctx, path)
	if err != nil {
		return nil, errDaemonUnreachable
	}
	return conn, nil
}
