package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fakenotify/fakenotify/internal/cmd"
)

// usageError marks a Run error as a usage mistake (bad arguments/flags)
// rather than a runtime failure, so mainify reports exit code 2 instead of
// 1 for it (spec.md §6's administrative CLI exit codes).
type usageError struct{ error }

func usageErrorf(format string, args ...interface{}) error {
	return usageError{fmt.Errorf(format, args...)}
}

// mainify adapts a Cobra entry point returning an error into a standard
// Cobra Run, translating the error into one of the administrative CLI's
// four exit codes: 0 success, 1 runtime error, 2 usage error, 3 daemon
// unreachable.
func mainify(entry func(*cobra.Command, []string) error) func(*cobra.Command, []string) {
	return func(command *cobra.Command, arguments []string) {
		err := entry(command, arguments)
		if err == nil {
			return
		}
		switch {
		case err == errDaemonUnreachable:
			cmd.FatalWithCode(err, 3)
		case isUsageError(err):
			cmd.FatalWithCode(err, 2)
		default:
			cmd.FatalWithCode(err, 1)
		}
	}
}

func isUsageError(err error) bool {
	_, ok := err.(usageError)
	return ok
}
