// Package fakenotify provides version and protocol-compatibility constants
// shared by the daemon, the shim and the administrative CLI.
package fakenotify

import "fmt"

const (
	// VersionMajor is the current major version of fakenotify.
	VersionMajor = 0
	// VersionMinor is the current minor version of fakenotify.
	VersionMinor = 1
	// VersionPatch is the current patch version of fakenotify.
	VersionPatch = 0

	// ProtocolVersion is the version of the control+event wire protocol
	// (spec.md §6). It is bumped whenever a frame kind or payload layout
	// changes in a way that isn't backward compatible. It is not currently
	// negotiated on the wire (the shim and daemon are always deployed
	// together), but it is printed by `fakenotify --version` and in the
	// daemon's startup log line for diagnostics.
	ProtocolVersion = 1

	// DefaultSocketPath is the default path for the daemon's control+event
	// UNIX domain socket.
	DefaultSocketPath = "/run/fakenotify/fakenotify.sock"
)

// Version is the current fakenotify version in dotted form.
var Version = fmt.Sprintf("%d.%d.%d", VersionMajor, VersionMinor, VersionPatch)
