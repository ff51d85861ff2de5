package protocol

import (
	"bytes"

	"github.com/fakenotify/fakenotify/pkg/wire"
)

// FrameEvent serializes e as a complete EVENT frame (length prefix, kind
// byte, and the little-endian FSN event bytes) ready to be queued and
// written directly to a client connection.
func FrameEvent(e wire.Event) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, KindEvent, wire.Encode(e)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FrameOverflow returns the complete EVENT frame for the Q_OVERFLOW
// sentinel event, prepended to a client's stream after its outbound queue
// has dropped frames (§4.4).
func FrameOverflow() ([]byte, error) {
	return FrameEvent(wire.Overflow())
}
