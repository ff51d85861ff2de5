// Command lockertest is a test fixture invoked as a subprocess by
// pkg/filesystem/locking's lock tests: it attempts to acquire the lock at
// the path given as its sole argument and reports failure via stderr.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fakenotify/fakenotify/internal/cmd"
	"github.com/fakenotify/fakenotify/pkg/filesystem/locking"
)

func main() {
	if len(os.Args) != 2 {
		cmd.Fatal(errors.New("invalid number of arguments"))
	} else if os.Args[1] == "" {
		cmd.Fatal(errors.New("empty lock path"))
	}
	path := os.Args[1]

	locker, err := locking.NewLocker(path, 0600)
	if err != nil {
		cmd.Fatal(errors.New("unable to create filesystem locker"))
	} else if err = locker.Lock(false); err != nil {
		cmd.Fatal(fmt.Errorf("lock acquisition failed: %w", err))
	} else if err = locker.Unlock(); err != nil {
		cmd.Fatal(fmt.Errorf("lock release failed: %w", err))
	} else if err = locker.Close(); err != nil {
		cmd.Fatal(fmt.Errorf("locker closure failed: %w", err))
	}
}
