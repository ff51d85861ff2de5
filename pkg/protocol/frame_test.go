package protocol

import (
	"bytes"
	"testing"
)

// TestWriteReadFrameRoundTrip verifies that a frame written with WriteFrame
// is reconstructed identically by ReadFrame.
func TestWriteReadFrameRoundTrip(t *testing.T) {
	cases := []struct {
		kind    Kind
		payload []byte
	}{
		{KindAdd, EncodeAdd(0x100, 0, "/mnt/media")},
		{KindAddOK, EncodeAddOK(42)},
		{KindRemove, EncodeWd(7)},
		{KindDetach, nil},
		{KindStatus, nil},
	}

	for _, c := range cases {
		var buf bytes.Buffer
		if err := WriteFrame(&buf, c.kind, c.payload); err != nil {
			t.Fatalf("unable to write frame: %v", err)
		}

		kind, payload, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("unable to read frame: %v", err)
		}
		if kind != c.kind {
			t.Errorf("kind mismatch: got %v, expected %v", kind, c.kind)
		}
		if !bytes.Equal(payload, c.payload) {
			t.Errorf("payload mismatch: got %v, expected %v", payload, c.payload)
		}
	}
}

// TestReadFrameSequential verifies that multiple frames written back-to-back
// can be read sequentially off the same stream.
func TestReadFrameSequential(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, KindAdd, EncodeAdd(1, 0, "/a")); err != nil {
		t.Fatalf("unable to write frame: %v", err)
	}
	if err := WriteFrame(&buf, KindRemove, EncodeWd(3)); err != nil {
		t.Fatalf("unable to write frame: %v", err)
	}

	kind, payload, err := ReadFrame(&buf)
	if err != nil || kind != KindAdd {
		t.Fatalf("unexpected first frame: kind=%v err=%v", kind, err)
	}
	if mask, _, path, err := DecodeAdd(payload); err != nil || mask != 1 || path != "/a" {
		t.Errorf("unexpected ADD payload: mask=%d path=%q err=%v", mask, path, err)
	}

	kind, payload, err = ReadFrame(&buf)
	if err != nil || kind != KindRemove {
		t.Fatalf("unexpected second frame: kind=%v err=%v", kind, err)
	}
	if wd, err := DecodeWd(payload); err != nil || wd != 3 {
		t.Errorf("unexpected REMOVE payload: wd=%d err=%v", wd, err)
	}
}

// TestReadFrameRejectsOversizedPayload verifies that a frame declaring a
// payload larger than MaximumPayloadSize is rejected without attempting to
// read the (absent) body.
func TestReadFrameRejectsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	header := make([]byte, 5)
	header[0] = 0xFF
	header[1] = 0xFF
	header[2] = 0xFF
	header[3] = 0xFF
	buf.Write(header)

	if _, _, err := ReadFrame(&buf); err == nil {
		t.Error("expected error reading oversized frame")
	}
}

// TestReadFrameTruncatedHeader verifies that a short stream fails cleanly
// rather than panicking.
func TestReadFrameTruncatedHeader(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0x00, 0x00})
	if _, _, err := ReadFrame(buf); err == nil {
		t.Error("expected error reading truncated header")
	}
}
