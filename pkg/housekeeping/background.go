package housekeeping

import (
	"context"
	"time"

	"github.com/fakenotify/fakenotify/pkg/logging"
)

const (
	// housekeepingInterval is the interval at which housekeeping is invoked
	// by the daemon.
	housekeepingInterval = 5 * time.Minute
)

// HousekeepRegularly runs housekeeping at a standard interval. It is
// designed to run as a background goroutine in the daemon process and
// terminates when the provided context is cancelled.
func HousekeepRegularly(ctx context.Context, pruner OrphanPruner, logger *logging.Logger) {
	logger.Debug("Performing initial housekeeping")
	Housekeep(pruner, logger)

	ticker := time.NewTicker(housekeepingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Debug("Performing regular housekeeping")
			Housekeep(pruner, logger)
		}
	}
}
