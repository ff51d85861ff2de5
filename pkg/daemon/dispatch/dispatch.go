// Package dispatch translates debounced change records into FSN wire
// events and fans them out to the client connections that own the
// corresponding watch descriptors (§4.4: "Translation to wire events",
// "Fan-out").
package dispatch

import (
	"path"

	"github.com/fakenotify/fakenotify/pkg/daemon/debounce"
	"github.com/fakenotify/fakenotify/pkg/daemon/registry"
	"github.com/fakenotify/fakenotify/pkg/protocol"
	"github.com/fakenotify/fakenotify/pkg/wire"
)

// maskFor returns the inotify mask bits for one debounced record, unioning
// in ISDIR when the entry is a directory.
func maskFor(r debounce.Record) uint32 {
	var mask uint32
	switch r.Kind {
	case debounce.KindCreate:
		mask = wire.MaskCreate
	case debounce.KindModify:
		mask = wire.MaskModify
	case debounce.KindDelete:
		mask = wire.MaskDelete
	}
	if r.IsDirectory {
		mask |= wire.MaskIsDir
	}
	return mask
}

// Dispatcher pushes translated events into the outbound queue of every
// client watching the affected root.
type Dispatcher struct {
	registry *registry.Registry
}

// New constructs a Dispatcher bound to reg. reg.WatchersForRoot supplies the
// per-client descriptor and mask needed to address each event; the
// dispatcher holds no watch-table state of its own.
func New(reg *registry.Registry) *Dispatcher {
	return &Dispatcher{registry: reg}
}

// Dispatch is installed as a debounce.Debouncer's onFlush callback. root is
// the canonical root the record belongs to; record's Path is relative to
// that root.
func (d *Dispatcher) Dispatch(root string, record debounce.Record) {
	watchers := d.registry.WatchersForRoot(root)
	if len(watchers) == 0 {
		return
	}

	name := path.Base(record.Path)
	mask := maskFor(record)

	dispatched := uint64(0)
	for _, w := range watchers {
		if w.Mask != 0 && mask&w.Mask == 0 {
			continue
		}
		event := wire.Event{Wd: w.Wd, Mask: mask, Cookie: 0, Name: name}
		frame, err := protocol.FrameEvent(event)
		if err != nil {
			continue
		}
		w.Client.Enqueue(frame)
		dispatched++
	}
	if dispatched > 0 {
		d.registry.RecordDispatched(dispatched)
	}
}
