// Package control implements the read-only LIST and STATUS control-plane
// operations (§4.5): both are single-frame request/response pairs that must
// never block scanner progress, so they read only the registry's brief
// coarse lock and never touch I/O while holding it.
package control

import (
	"github.com/fakenotify/fakenotify/pkg/daemon/registry"
	"github.com/fakenotify/fakenotify/pkg/protocol"
)

// Handler answers LIST and STATUS requests against a Registry.
type Handler struct {
	registry *registry.Registry
}

// New constructs a Handler bound to reg.
func New(reg *registry.Registry) *Handler {
	return &Handler{registry: reg}
}

// List returns the LIST_RESP frame payload describing every live watch.
func (h *Handler) List() []byte {
	return protocol.EncodeListResp(h.registry.List())
}

// Status returns the STATUS_RESP frame payload.
func (h *Handler) Status() []byte {
	return protocol.EncodeStatusResp(h.registry.Status())
}
