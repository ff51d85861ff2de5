package protocol

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
)

// WatchRecord is one entry in a LIST_RESP payload.
type WatchRecord struct {
	Wd             int32
	Recursive      bool
	PollIntervalMs uint32
	Path           string
}

// EncodeListResp builds the payload for a LIST_RESP frame: a count-prefixed
// sequence of records, each int32 wd | uint8 recursive | uint32
// poll_interval_ms | uint32 pathlen | utf8 path.
func EncodeListResp(records []WatchRecord) []byte {
	size := 4
	for _, r := range records {
		size += 4 + 1 + 4 + 4 + len(r.Path)
	}

	buf := make([]byte, size)
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(records)))
	offset := 4
	for _, r := range records {
		binary.BigEndian.PutUint32(buf[offset:offset+4], uint32(r.Wd))
		offset += 4
		if r.Recursive {
			buf[offset] = 1
		}
		offset++
		binary.BigEndian.PutUint32(buf[offset:offset+4], r.PollIntervalMs)
		offset += 4
		binary.BigEndian.PutUint32(buf[offset:offset+4], uint32(len(r.Path)))
		offset += 4
		copy(buf[offset:], r.Path)
		offset += len(r.Path)
	}
	return buf
}

// DecodeListResp parses a LIST_RESP frame's payload.
func DecodeListResp(payload []byte) ([]WatchRecord, error) {
	if len(payload) < 4 {
		return nil, errors.Errorf("LIST_RESP payload too short: %d bytes", len(payload))
	}
	count := binary.BigEndian.Uint32(payload[0:4])
	offset := 4

	records := make([]WatchRecord, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(payload)-offset < 13 {
			return nil, errors.Errorf("LIST_RESP payload truncated at record %d", i)
		}
		wd := int32(binary.BigEndian.Uint32(payload[offset : offset+4]))
		offset += 4
		recursive := payload[offset] != 0
		offset++
		pollIntervalMs := binary.BigEndian.Uint32(payload[offset : offset+4])
		offset += 4
		pathLen := binary.BigEndian.Uint32(payload[offset : offset+4])
		offset += 4
		if uint32(len(payload)-offset) < pathLen {
			return nil, errors.Errorf("LIST_RESP payload truncated reading path for record %d", i)
		}
		path := string(payload[offset : offset+int(pathLen)])
		offset += int(pathLen)

		records = append(records, WatchRecord{
			Wd:             wd,
			Recursive:      recursive,
			PollIntervalMs: pollIntervalMs,
			Path:           path,
		})
	}

	return records, nil
}

// Status is the structured payload of a STATUS_RESP frame.
type Status struct {
	WatchCount       uint32
	ClientCount      uint32
	Uptime           time.Duration
	EventsDispatched uint64
	EventsDropped    uint64
}

// EncodeStatusResp builds the payload for a STATUS_RESP frame: uint32
// watch_count | uint32 client_count | uint64 uptime_seconds | uint64
// events_dispatched | uint64 events_dropped.
func EncodeStatusResp(s Status) []byte {
	buf := make([]byte, 4+4+8+8+8)
	binary.BigEndian.PutUint32(buf[0:4], s.WatchCount)
	binary.BigEndian.PutUint32(buf[4:8], s.ClientCount)
	binary.BigEndian.PutUint64(buf[8:16], uint64(s.Uptime.Round(time.Second).Seconds()))
	binary.BigEndian.PutUint64(buf[16:24], s.EventsDispatched)
	binary.BigEndian.PutUint64(buf[24:32], s.EventsDropped)
	return buf
}

// DecodeStatusResp parses a STATUS_RESP frame's payload.
func DecodeStatusResp(payload []byte) (Status, error) {
	if len(payload) != 32 {
		return Status{}, errors.Errorf("STATUS_RESP payload must be 32 bytes, got %d", len(payload))
	}
	return Status{
		WatchCount:       binary.BigEndian.Uint32(payload[0:4]),
		ClientCount:      binary.BigEndian.Uint32(payload[4:8]),
		Uptime:           time.Duration(binary.BigEndian.Uint64(payload[8:16])) * time.Second,
		EventsDispatched: binary.BigEndian.Uint64(payload[16:24]),
		EventsDropped:    binary.BigEndian.Uint64(payload[24:32]),
	}, nil
}
