package wire

import "testing"

// TestEncodeDecodeRoundTrip verifies that encoding then decoding an event
// reconstructs the original (wd, mask, cookie, name) tuple, and that the
// encoded length is always a multiple of 8 beyond the header.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Event{
		{Wd: 1, Mask: MaskCreate, Cookie: 0, Name: "a"},
		{Wd: 2, Mask: MaskModify | MaskIsDir, Cookie: 0, Name: "some-directory"},
		{Wd: -1, Mask: MaskQOverflow, Cookie: 0, Name: ""},
		{Wd: 3, Mask: MaskDelete, Cookie: 0, Name: "x"},
		{Wd: 4, Mask: MaskIgnored, Cookie: 0, Name: ""},
	}

	for _, c := range cases {
		encoded := Encode(c)
		if len(encoded) < HeaderSize {
			t.Fatalf("encoded event shorter than header: %d", len(encoded))
		}
		if rem := (len(encoded) - HeaderSize) % 8; rem != 0 {
			t.Errorf("name field length %d not a multiple of 8", len(encoded)-HeaderSize)
		}

		decoded, n, err := Decode(encoded)
		if err != nil {
			t.Fatalf("unable to decode event: %v", err)
		}
		if n != len(encoded) {
			t.Errorf("decode consumed %d bytes, expected %d", n, len(encoded))
		}
		if decoded != c {
			t.Errorf("decoded event %+v does not match original %+v", decoded, c)
		}
	}
}

// TestEncodeEmptyNameHasZeroLength verifies that an event referring to the
// watched path itself (no basename) encodes with len == 0.
func TestEncodeEmptyNameHasZeroLength(t *testing.T) {
	encoded := Encode(Event{Wd: 7, Mask: MaskModify})
	if len(encoded) != HeaderSize {
		t.Errorf("expected header-only encoding, got %d bytes", len(encoded))
	}
}

// TestDecodeMultipleEvents verifies that concatenated events can be decoded
// sequentially by advancing the buffer with the consumed byte count.
func TestDecodeMultipleEvents(t *testing.T) {
	events := []Event{
		{Wd: 1, Mask: MaskCreate, Name: "one"},
		{Wd: 1, Mask: MaskDelete, Name: "two"},
		{Wd: 1, Mask: MaskIgnored},
	}

	var buf []byte
	for _, e := range events {
		buf = append(buf, Encode(e)...)
	}

	var decoded []Event
	for len(buf) > 0 {
		e, n, err := Decode(buf)
		if err != nil {
			t.Fatalf("unable to decode event: %v", err)
		}
		decoded = append(decoded, e)
		buf = buf[n:]
	}

	if len(decoded) != len(events) {
		t.Fatalf("decoded %d events, expected %d", len(decoded), len(events))
	}
	for i := range events {
		if decoded[i] != events[i] {
			t.Errorf("event %d mismatch: got %+v, expected %+v", i, decoded[i], events[i])
		}
	}
}

// TestDecodeTruncatedHeader verifies that a buffer shorter than the header
// fails cleanly.
func TestDecodeTruncatedHeader(t *testing.T) {
	if _, _, err := Decode(make([]byte, HeaderSize-1)); err == nil {
		t.Error("expected error decoding truncated header")
	}
}

// TestDecodeMisalignedLength verifies that a declared name length which
// isn't a multiple of 8 is rejected.
func TestDecodeMisalignedLength(t *testing.T) {
	buf := Encode(Event{Wd: 1, Mask: MaskCreate, Name: "a"})
	// Corrupt the len field to something not a multiple of 8.
	buf[12] = 3
	buf[13] = 0
	buf[14] = 0
	buf[15] = 0
	if _, _, err := Decode(buf); err == nil {
		t.Error("expected error decoding misaligned name length")
	}
}
