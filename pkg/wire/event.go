// Package wire encodes and decodes the FSN (filesystem change-notification)
// event byte stream: the fixed packed header plus NUL-padded name that an
// application expects to read back from its notification descriptor. The
// layout mirrors golang.org/x/sys/unix.InotifyEvent field-for-field so that
// an application linked against the real inotify headers parses our
// synthetic bytes identically.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// Mask flags. These are the subset of inotify mask bits this system
// generates or consumes; values are taken directly from the kernel UAPI via
// golang.org/x/sys/unix so they stay correct across architectures.
const (
	MaskCreate    = uint32(unix.IN_CREATE)
	MaskModify    = uint32(unix.IN_MODIFY)
	MaskDelete    = uint32(unix.IN_DELETE)
	MaskMovedFrom = uint32(unix.IN_MOVED_FROM)
	MaskMovedTo   = uint32(unix.IN_MOVED_TO)
	MaskIsDir     = uint32(unix.IN_ISDIR)
	MaskIgnored   = uint32(unix.IN_IGNORED)
	MaskQOverflow = uint32(unix.IN_Q_OVERFLOW)
)

// HeaderSize is the size, in bytes, of an event header: wd, mask, cookie and
// len, each a 32-bit field. It matches unix.SizeofInotifyEvent.
const HeaderSize = unix.SizeofInotifyEvent

// Event is a single FSN event as decoded from, or destined for, the wire.
// Name is the plain (unpadded, unterminated) basename; Encode computes the
// NUL padding required to bring it to an 8-byte-aligned length.
type Event struct {
	Wd     int32
	Mask   uint32
	Cookie uint32
	Name   string
}

// Overflow returns the sentinel event prepended to a client's stream after
// an outbound queue has dropped events: wd = -1, mask = IN_Q_OVERFLOW, no
// name.
func Overflow() Event {
	return Event{Wd: -1, Mask: MaskQOverflow}
}

// paddedNameLength returns the length the name field will occupy on the
// wire: 0 if name is empty, otherwise len(name)+1 (for the NUL terminator)
// rounded up to the next multiple of 8.
func paddedNameLength(name string) int {
	if name == "" {
		return 0
	}
	n := len(name) + 1
	if rem := n % 8; rem != 0 {
		n += 8 - rem
	}
	return n
}

// Encode serializes e in wire format: wd | mask | cookie | len | name.
func Encode(e Event) []byte {
	nameLen := paddedNameLength(e.Name)
	buf := make([]byte, HeaderSize+nameLen)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(e.Wd))
	binary.LittleEndian.PutUint32(buf[4:8], e.Mask)
	binary.LittleEndian.PutUint32(buf[8:12], e.Cookie)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(nameLen))
	if nameLen > 0 {
		copy(buf[HeaderSize:], e.Name)
		// Remaining bytes are already zero from make(), providing the NUL
		// padding out to nameLen.
	}
	return buf
}

// Decode parses a single event from the front of buf, returning the event
// and the number of bytes consumed. buf may contain trailing data belonging
// to subsequent events; callers loop over the buffer, advancing by the
// returned count.
func Decode(buf []byte) (Event, int, error) {
	if len(buf) < HeaderSize {
		return Event{}, 0, fmt.Errorf("buffer of length %d too short for event header", len(buf))
	}

	wd := int32(binary.LittleEndian.Uint32(buf[0:4]))
	mask := binary.LittleEndian.Uint32(buf[4:8])
	cookie := binary.LittleEndian.Uint32(buf[8:12])
	nameLen := binary.LittleEndian.Uint32(buf[12:16])

	if nameLen%8 != 0 {
		return Event{}, 0, fmt.Errorf("name length %d is not a multiple of 8", nameLen)
	}

	total := HeaderSize + int(nameLen)
	if len(buf) < total {
		return Event{}, 0, fmt.Errorf("buffer of length %d too short for event of total length %d", len(buf), total)
	}

	var name string
	if nameLen > 0 {
		raw := buf[HeaderSize:total]
		if idx := bytes.IndexByte(raw, 0); idx >= 0 {
			name = string(raw[:idx])
		} else {
			name = string(raw)
		}
	}

	return Event{Wd: wd, Mask: mask, Cookie: cookie, Name: name}, total, nil
}
