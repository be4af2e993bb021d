package serialcap

import (
	"bytes"
	"errors"
	"testing"

	"ospconv/internal/trace"
)

func TestOspChecksumWrapsAt15Bits(t *testing.T) {
	payload := bytes.Repeat([]byte{0xFF}, 1000)
	got := ospChecksum(payload)
	if got&0x8000 != 0 {
		t.Fatalf("ospChecksum() = %#x; high bit must never be set (15-bit sum)", got)
	}
}

func TestWriteFrameReadFrameRoundTrip(t *testing.T) {
	payload := []byte{6, 1, 2, 3, 4, 5}
	var buf bytes.Buffer
	if err := writeFrame(&buf, payload); err != nil {
		t.Fatalf("writeFrame() err = %v", err)
	}
	got, err := readFrame(&buf)
	if err != nil {
		t.Fatalf("readFrame() err = %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("readFrame() = %v; want %v", got, payload)
	}
}

func TestReadFrameChecksumMismatch(t *testing.T) {
	payload := []byte{7, 1, 2, 3}
	var buf bytes.Buffer
	if err := writeFrame(&buf, payload); err != nil {
		t.Fatal(err)
	}
	raw := buf.Bytes()
	raw[len(raw)-4] ^= 0xFF // corrupt one checksum byte
	_, err := readFrame(bytes.NewReader(raw))
	if !errors.Is(err, ErrChecksum) {
		t.Fatalf("readFrame() err = %v; want ErrChecksum", err)
	}
}

func TestReadFrameBadEndMarker(t *testing.T) {
	payload := []byte{7, 1, 2, 3}
	var buf bytes.Buffer
	if err := writeFrame(&buf, payload); err != nil {
		t.Fatal(err)
	}
	raw := buf.Bytes()
	raw[len(raw)-1] = 0x00 // corrupt the trailing end-sequence byte
	_, err := readFrame(bytes.NewReader(raw))
	if !errors.Is(err, ErrFrameSync) {
		t.Fatalf("readFrame() err = %v; want ErrFrameSync", err)
	}
}

func TestSetMessageRatePayloadShape(t *testing.T) {
	got := setMessageRate(2, 0, 5)
	want := []byte{166, 2, 0, 5, 0, 0, 0, 0}
	if !bytes.Equal(got, want) {
		t.Fatalf("setMessageRate(2, 0, 5) = %v; want %v", got, want)
	}
}

func TestCaptureStopsAtMaxEpochs(t *testing.T) {
	var wire bytes.Buffer
	if err := writeFrame(&wire, []byte{7, 1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if err := writeFrame(&wire, []byte{28, 9, 9}); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	cfg := Config{StopMID: 7}
	n, err := Capture(bytes.NewReader(wire.Bytes()), &out, 10, 1, cfg, trace.Default)
	if err != nil {
		t.Fatalf("Capture() err = %v", err)
	}
	if n != 1 {
		t.Fatalf("Capture() recorded %d messages; want 1 (should stop once StopMID closes the first epoch)", n)
	}
	want := []byte{0, 4, 7, 1, 2, 3}
	if !bytes.Equal(out.Bytes(), want) {
		t.Fatalf("Capture() wrote %v; want %v", out.Bytes(), want)
	}
}

func TestParseStopMID(t *testing.T) {
	v, err := ParseStopMID("7")
	if err != nil || v != 7 {
		t.Fatalf("ParseStopMID(\"7\") = %d, %v; want 7, nil", v, err)
	}
	if _, err := ParseStopMID("banana"); err == nil {
		t.Fatal("ParseStopMID(\"banana\") err = nil; want error")
	}
	if _, err := ParseStopMID("300"); err == nil {
		t.Fatal("ParseStopMID(\"300\") err = nil; want error (out of byte range)")
	}
}
