// Command locktest is a test fixture invoked as a subprocess by
// pkg/daemon's lock tests: it attempts to acquire the daemon lock and
// reports failure via stderr, since "go run" doesn't forward exit codes
// consistently across platforms.
package main

import (
	"fmt"
	"os"

	"github.com/fakenotify/fakenotify/pkg/daemon"
	"github.com/fakenotify/fakenotify/pkg/logging"
)

func main() {
	logger := logging.NewRootLogger(logging.LevelError)
	lock, err := daemon.AcquireLock(logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fakenotify lock acquisition failed")
		os.Exit(1)
	}
	lock.Release()
}
