package protocol

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// EncodeAdd builds the payload for an ADD frame: uint32 mask | int32
// assertWd | uint32 pathlen | utf8 path. assertWd is 0 for an ordinary ADD;
// a reconnecting shim sets it to the original watch descriptor it wants the
// daemon to honor during replay (§4.1, scenario S4).
func EncodeAdd(mask uint32, assertWd int32, path string) []byte {
	buf := make([]byte, 12+len(path))
	binary.BigEndian.PutUint32(buf[0:4], mask)
	binary.BigEndian.PutUint32(buf[4:8], uint32(assertWd))
	binary.BigEndian.PutUint32(buf[8:12], uint32(len(path)))
	copy(buf[12:], path)
	return buf
}

// DecodeAdd parses an ADD frame's payload.
func DecodeAdd(payload []byte) (mask uint32, assertWd int32, path string, err error) {
	if len(payload) < 12 {
		return 0, 0, "", errors.Errorf("ADD payload too short: %d bytes", len(payload))
	}
	mask = binary.BigEndian.Uint32(payload[0:4])
	assertWd = int32(binary.BigEndian.Uint32(payload[4:8]))
	pathLen := binary.BigEndian.Uint32(payload[8:12])
	if uint32(len(payload)-12) != pathLen {
		return 0, 0, "", errors.Errorf("ADD payload path length mismatch: declared %d, have %d", pathLen, len(payload)-12)
	}
	return mask, assertWd, string(payload[12:]), nil
}

// EncodeAddOK builds the payload for an ADD_OK frame: int32 wd.
func EncodeAddOK(wd int32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(wd))
	return buf
}

// DecodeAddOK parses an ADD_OK frame's payload.
func DecodeAddOK(payload []byte) (int32, error) {
	if len(payload) != 4 {
		return 0, errors.Errorf("ADD_OK payload must be 4 bytes, got %d", len(payload))
	}
	return int32(binary.BigEndian.Uint32(payload)), nil
}

// EncodeWd builds a bare int32-wd payload, shared by REMOVE.
func EncodeWd(wd int32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(wd))
	return buf
}

// DecodeWd parses a bare int32-wd payload, shared by REMOVE.
func DecodeWd(payload []byte) (int32, error) {
	if len(payload) != 4 {
		return 0, errors.Errorf("payload must be 4 bytes, got %d", len(payload))
	}
	return int32(binary.BigEndian.Uint32(payload)), nil
}

// EncodeErr builds the payload shared by ADD_ERR, REMOVE_ERR and
// DETACH_ERR: uint32 code | utf8 message.
func EncodeErr(protoErr *Error) []byte {
	buf := make([]byte, 4+len(protoErr.Message))
	binary.BigEndian.PutUint32(buf[0:4], uint32(protoErr.Code))
	copy(buf[4:], protoErr.Message)
	return buf
}

// DecodeErr parses the payload shared by ADD_ERR, REMOVE_ERR and
// DETACH_ERR.
func DecodeErr(payload []byte) (*Error, error) {
	if len(payload) < 4 {
		return nil, errors.Errorf("error payload too short: %d bytes", len(payload))
	}
	code := ErrorCode(binary.BigEndian.Uint32(payload[0:4]))
	return &Error{Code: code, Message: string(payload[4:])}, nil
}

// EncodeDetach builds the payload for a DETACH frame: uint32 count | int32
// wd, repeated count times.
func EncodeDetach(wds []int32) []byte {
	buf := make([]byte, 4+4*len(wds))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(wds)))
	for i, wd := range wds {
		binary.BigEndian.PutUint32(buf[4+4*i:8+4*i], uint32(wd))
	}
	return buf
}

// DecodeDetach parses a DETACH frame's payload.
func DecodeDetach(payload []byte) ([]int32, error) {
	if len(payload) < 4 {
		return nil, errors.Errorf("DETACH payload too short: %d bytes", len(payload))
	}
	count := binary.BigEndian.Uint32(payload[0:4])
	if uint32(len(payload)-4) != 4*count {
		return nil, errors.Errorf("DETACH payload count mismatch: declared %d, have %d bytes of data", count, len(payload)-4)
	}
	wds := make([]int32, count)
	for i := range wds {
		wds[i] = int32(binary.BigEndian.Uint32(payload[4+4*i : 8+4*i]))
	}
	return wds, nil
}
