package protocol

import "testing"

// TestAddRoundTrip verifies ADD payload encode/decode.
func TestAddRoundTrip(t *testing.T) {
	payload := EncodeAdd(0xABCD, 0, "/mnt/media/films")
	mask, assertWd, path, err := DecodeAdd(payload)
	if err != nil {
		t.Fatalf("unable to decode ADD payload: %v", err)
	}
	if mask != 0xABCD || assertWd != 0 || path != "/mnt/media/films" {
		t.Errorf("got mask=%#x assertWd=%d path=%q", mask, assertWd, path)
	}
}

// TestAddAssertWdRoundTrip verifies that a non-zero asserted wd (used by
// reconnect replay, §4.1 scenario S4) round-trips.
func TestAddAssertWdRoundTrip(t *testing.T) {
	payload := EncodeAdd(0, 42, "/mnt/media/films")
	_, assertWd, _, err := DecodeAdd(payload)
	if err != nil {
		t.Fatalf("unable to decode ADD payload: %v", err)
	}
	if assertWd != 42 {
		t.Errorf("got assertWd=%d, expected 42", assertWd)
	}
}

// TestAddEmptyPath verifies that an empty path (unusual, but not malformed
// at the wire level) round-trips.
func TestAddEmptyPath(t *testing.T) {
	payload := EncodeAdd(0, 0, "")
	mask, assertWd, path, err := DecodeAdd(payload)
	if err != nil {
		t.Fatalf("unable to decode ADD payload: %v", err)
	}
	if mask != 0 || assertWd != 0 || path != "" {
		t.Errorf("got mask=%d assertWd=%d path=%q", mask, assertWd, path)
	}
}

// TestDecodeAddTruncated verifies that a payload shorter than the fixed
// header is rejected.
func TestDecodeAddTruncated(t *testing.T) {
	if _, _, _, err := DecodeAdd([]byte{1, 2, 3}); err == nil {
		t.Error("expected error decoding truncated ADD payload")
	}
}

// TestErrRoundTrip verifies the shared *_ERR payload encode/decode.
func TestErrRoundTrip(t *testing.T) {
	original := NewError(ErrorCodePermissionDenied, "path outside allow list")
	payload := EncodeErr(original)
	decoded, err := DecodeErr(payload)
	if err != nil {
		t.Fatalf("unable to decode error payload: %v", err)
	}
	if decoded.Code != original.Code || decoded.Message != original.Message {
		t.Errorf("got %+v, expected %+v", decoded, original)
	}
}

// TestDetachRoundTrip verifies DETACH payload encode/decode for a batch of
// watch descriptors.
func TestDetachRoundTrip(t *testing.T) {
	wds := []int32{1, 2, 3, 100}
	payload := EncodeDetach(wds)
	decoded, err := DecodeDetach(payload)
	if err != nil {
		t.Fatalf("unable to decode DETACH payload: %v", err)
	}
	if len(decoded) != len(wds) {
		t.Fatalf("got %d wds, expected %d", len(decoded), len(wds))
	}
	for i := range wds {
		if decoded[i] != wds[i] {
			t.Errorf("wd %d mismatch: got %d, expected %d", i, decoded[i], wds[i])
		}
	}
}

// TestDetachEmptyBatch verifies a zero-count DETACH round-trips to an empty
// (not nil-vs-empty-sensitive) slice.
func TestDetachEmptyBatch(t *testing.T) {
	payload := EncodeDetach(nil)
	decoded, err := DecodeDetach(payload)
	if err != nil {
		t.Fatalf("unable to decode DETACH payload: %v", err)
	}
	if len(decoded) != 0 {
		t.Errorf("expected empty batch, got %v", decoded)
	}
}

// TestDecodeDetachCountMismatch verifies that a payload whose declared count
// doesn't match its length is rejected.
func TestDecodeDetachCountMismatch(t *testing.T) {
	payload := EncodeDetach([]int32{1, 2})
	if _, err := DecodeDetach(payload[:len(payload)-1]); err == nil {
		t.Error("expected error decoding truncated DETACH payload")
	}
}

// TestAddOKAndWdRoundTrip verifies the bare int32 payloads used by ADD_OK
// and REMOVE.
func TestAddOKAndWdRoundTrip(t *testing.T) {
	payload := EncodeAddOK(-1)
	wd, err := DecodeAddOK(payload)
	if err != nil {
		t.Fatalf("unable to decode ADD_OK payload: %v", err)
	}
	if wd != -1 {
		t.Errorf("got wd=%d, expected -1", wd)
	}

	payload = EncodeWd(99)
	wd, err = DecodeWd(payload)
	if err != nil {
		t.Fatalf("unable to decode wd payload: %v", err)
	}
	if wd != 99 {
		t.Errorf("got wd=%d, expected 99", wd)
	}
}
