package daemon

import (
	"fmt"
	"path/filepath"

	"github.com/fakenotify/fakenotify/pkg/fakenotify"
	"github.com/fakenotify/fakenotify/pkg/filesystem"
)

const (
	// lockName is the name of the daemon lock. It resides within the daemon
	// subdirectory of the fakenotify directory.
	lockName = "daemon.lock"
	// endpointName is the name of the daemon IPC endpoint, used when no
	// explicit socket path is given in the daemon configuration. It resides
	// within the daemon subdirectory of the fakenotify directory.
	endpointName = "daemon.sock"
	// logName is the name of the daemon log file opened by OpenLog. It
	// resides within the daemon subdirectory of the fakenotify directory.
	logName = "daemon.log"
)

// subpath computes a subpath of the daemon subdirectory, creating the daemon
// subdirectory in the process.
func subpath(name string) (string, error) {
	// Compute the daemon root directory path and ensure it exists.
	daemonRoot, err := filesystem.FakeNotify(true, filesystem.FakeNotifyDaemonDirectoryName)
	if err != nil {
		return "", fmt.Errorf("unable to compute daemon directory: %w", err)
	}

	// Compute the combined path.
	return filepath.Join(daemonRoot, name), nil
}

// lockPath computes the path to the daemon lock, creating any intermediate
// directories as necessary.
func lockPath() (string, error) {
	return subpath(lockName)
}

// logPath computes the path to the daemon log file, creating any
// intermediate directories as necessary.
func logPath() (string, error) {
	return subpath(logName)
}

// DefaultEndpointPath computes the default path for the daemon IPC endpoint,
// used when the daemon configuration doesn't specify a socket path,
// creating any intermediate directories as necessary. If the daemon
// subdirectory of the user-specific fakenotify directory can't be created,
// it falls back to the package's well-known FHS path rather than failing
// outright. (A process with no home directory never gets here: the
// filesystem package panics at initialization in that case.)
func DefaultEndpointPath() (string, error) {
	path, err := subpath(endpointName)
	if err != nil {
		return fakenotify.DefaultSocketPath, nil
	}
	return path, nil
}
