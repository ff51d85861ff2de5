// Package must provides helpers for invoking cleanup operations whose errors
// can't be usefully propagated (e.g. inside a defer or a best-effort
// teardown path) but are still worth logging.
package must

import (
	"io"

	"github.com/fakenotify/fakenotify/pkg/logging"
)

// Close closes c, logging any error as a warning.
func Close(c io.Closer, logger *logging.Logger) {
	if err := c.Close(); err != nil {
		logger.Warnf("Unable to close: %s", err.Error())
	}
}
