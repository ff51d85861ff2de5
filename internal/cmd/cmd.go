// Package cmd provides small utilities shared by fakenotify's command-line
// entry points.
package cmd

import (
	"fmt"
	"os"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// TerminationSignals are the signals that trigger an orderly shutdown of a
// long-running fakenotify process.
var TerminationSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}

// Error prints an error message to standard error.
func Error(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
}

// Fatal prints an error message to standard error and terminates the
// process with an error exit code.
func Fatal(err error) {
	Error(err)
	os.Exit(1)
}

// FatalWithCode prints an error message to standard error and terminates
// the process with the given exit code.
func FatalWithCode(err error, code int) {
	Error(err)
	os.Exit(code)
}

// Warning prints a warning message to standard error.
func Warning(message string) {
	fmt.Fprintln(color.Error, color.YellowString("Warning:"), message)
}

// Mainify wraps a Cobra entry point that returns an error into one that
// reports the error and exits, while still letting the entry point rely on
// defer-based cleanup (which wouldn't run if it called os.Exit itself).
func Mainify(entry func(*cobra.Command, []string) error) func(*cobra.Command, []string) {
	return func(command *cobra.Command, arguments []string) {
		if err := entry(command, arguments); err != nil {
			Fatal(err)
		}
	}
}
