// Package housekeeping provides background maintenance of daemon state that
// wouldn't otherwise be cleaned up promptly: watches left behind by client
// connections that disappeared without an orderly REMOVE.
package housekeeping

import (
	"github.com/fakenotify/fakenotify/pkg/logging"
)

// OrphanPruner is implemented by the registry. It's expressed as an
// interface here, rather than importing the registry package directly, so
// that housekeeping can be tested independently of registry internals.
type OrphanPruner interface {
	// PruneOrphanedWatches removes any watch whose owning client connection
	// is no longer alive, returning the number of watches removed.
	PruneOrphanedWatches() int
}

// Housekeep performs a single round of housekeeping.
func Housekeep(pruner OrphanPruner, logger *logging.Logger) {
	if pruned := pruner.PruneOrphanedWatches(); pruned > 0 {
		logger.Infof("Pruned %d orphaned watch(es)", pruned)
	}
}
