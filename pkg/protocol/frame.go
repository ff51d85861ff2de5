// Package protocol implements the length-prefixed control+event wire
// protocol carried over the daemon's UNIX domain socket: frame
// encoding/decoding, message kinds, and the typed payloads for each kind.
//
// Frame layout (network byte order for the length prefix):
//
//	uint32 length | uint8 kind | payload[length-1]
//
// length counts the kind byte plus the payload. The FSN event bytes carried
// inside an EVENT frame's payload are themselves little-endian (see
// pkg/wire) — only the frame length prefix uses network byte order.
package protocol

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Kind identifies the type of a framed message.
type Kind uint8

const (
	KindAdd       Kind = 0x01
	KindAddOK     Kind = 0x02
	KindAddErr    Kind = 0x03
	KindRemove    Kind = 0x04
	KindRemoveOK  Kind = 0x05
	KindRemoveErr Kind = 0x06
	KindDetach    Kind = 0x07
	KindDetachOK  Kind = 0x08
	KindDetachErr Kind = 0x09
	KindEvent     Kind = 0x10
	KindList      Kind = 0x20
	KindListResp  Kind = 0x21
	KindStatus    Kind = 0x22
	KindStatusRsp Kind = 0x23
)

func (k Kind) String() string {
	switch k {
	case KindAdd:
		return "ADD"
	case KindAddOK:
		return "ADD_OK"
	case KindAddErr:
		return "ADD_ERR"
	case KindRemove:
		return "REMOVE"
	case KindRemoveOK:
		return "REMOVE_OK"
	case KindRemoveErr:
		return "REMOVE_ERR"
	case KindDetach:
		return "DETACH"
	case KindDetachOK:
		return "DETACH_OK"
	case KindDetachErr:
		return "DETACH_ERR"
	case KindEvent:
		return "EVENT"
	case KindList:
		return "LIST"
	case KindListResp:
		return "LIST_RESP"
	case KindStatus:
		return "STATUS"
	case KindStatusRsp:
		return "STATUS_RESP"
	default:
		return "UNKNOWN"
	}
}

// MaximumPayloadSize bounds the payload portion of a single frame,
// preventing a misbehaving (or malicious) peer from forcing an unbounded
// read allocation. LIST_RESP is the largest legitimate payload (one record
// per watch); this comfortably covers realistic watch counts.
const MaximumPayloadSize = 16 * 1024 * 1024

// WriteFrame writes kind and payload to w as a single length-prefixed frame.
func WriteFrame(w io.Writer, kind Kind, payload []byte) error {
	length := uint32(1 + len(payload))
	header := make([]byte, 5)
	binary.BigEndian.PutUint32(header[0:4], length)
	header[4] = byte(kind)
	if _, err := w.Write(header); err != nil {
		return errors.Wrap(err, "unable to write frame header")
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return errors.Wrap(err, "unable to write frame payload")
		}
	}
	return nil
}

// ReadFrame reads a single length-prefixed frame from r.
func ReadFrame(r io.Reader) (Kind, []byte, error) {
	header := make([]byte, 5)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, errors.Wrap(err, "unable to read frame header")
	}

	length := binary.BigEndian.Uint32(header[0:4])
	if length == 0 {
		return 0, nil, errors.New("frame declares zero length (missing kind byte)")
	}
	if length-1 > MaximumPayloadSize {
		return 0, nil, errors.Errorf("frame payload length %d exceeds maximum of %d", length-1, MaximumPayloadSize)
	}

	kind := Kind(header[4])

	payload := make([]byte, length-1)
	if len(payload) > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return 0, nil, errors.Wrap(err, "unable to read frame payload")
		}
	}

	return kind, payload, nil
}
