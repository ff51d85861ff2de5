package filesystem

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	// FakeNotifyDataDirectoryName is the name of the fakenotify data
	// directory inside the user's home directory. It holds the daemon lock
	// and log file, and the default socket when the daemon configuration
	// names none.
	FakeNotifyDataDirectoryName = ".fakenotify"

	// FakeNotifyDaemonDirectoryName is the name of the daemon subdirectory
	// within the fakenotify data directory.
	FakeNotifyDaemonDirectoryName = "daemon"
)

// HomeDirectory is the cached path to the current user's home directory.
var HomeDirectory string

// FakeNotifyDataDirectoryPath is the path to the fakenotify data directory.
// It is computed once at init time and should not be changed afterward.
var FakeNotifyDataDirectoryPath string

// init performs global initialization.
func init() {
	// Grab the current user's home directory.
	if h, err := os.UserHomeDir(); err != nil {
		panic(errors.Wrap(err, "unable to query user's home directory"))
	} else if h == "" {
		panic(errors.New("home directory path empty"))
	} else {
		HomeDirectory = h
	}

	// Compute the path to the fakenotify data directory.
	FakeNotifyDataDirectoryPath = filepath.Join(HomeDirectory, FakeNotifyDataDirectoryName)
}

// FakeNotify computes (and optionally creates) subdirectories inside the
// fakenotify data directory.
func FakeNotify(create bool, pathComponents ...string) (string, error) {
	// Compute the target path.
	result := filepath.Join(FakeNotifyDataDirectoryPath, filepath.Join(pathComponents...))

	// If requested, attempt to create the directory and the specified
	// subpath.
	if create {
		if err := os.MkdirAll(result, 0700); err != nil {
			return "", errors.Wrap(err, "unable to create subpath")
		}
	}

	// Success.
	return result, nil
}
