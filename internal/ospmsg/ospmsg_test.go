package ospmsg

import (
	"bytes"
	"errors"
	"testing"
)

func encodeRecord(payload []byte) []byte {
	buf := make([]byte, 2+len(payload))
	buf[0] = byte(len(payload) >> 8)
	buf[1] = byte(len(payload))
	copy(buf[2:], payload)
	return buf
}

func TestFillAndCursor(t *testing.T) {
	payload := []byte{7, 0x12, 0x34, 0x56, 0x78, 0xAB, 0xCD}
	src := bytes.NewReader(encodeRecord(payload))
	r := NewReader(src)

	ok, err := r.Fill()
	if err != nil || !ok {
		t.Fatalf("Fill() = %v, %v; want true, nil", ok, err)
	}
	if r.PayloadLen() != len(payload) {
		t.Fatalf("PayloadLen() = %d; want %d", r.PayloadLen(), len(payload))
	}
	mid, err := r.MID()
	if err != nil || mid != 7 {
		t.Fatalf("MID() = %d, %v; want 7, nil", mid, err)
	}
	if err := r.Skip(1); err != nil {
		t.Fatal(err)
	}
	u32, err := r.U32()
	if err != nil || u32 != 0x12345678 {
		t.Fatalf("U32() = %#x, %v; want 0x12345678, nil", u32, err)
	}
	u16, err := r.U16()
	if err != nil || u16 != 0xABCD {
		t.Fatalf("U16() = %#x, %v; want 0xABCD, nil", u16, err)
	}
}

func TestFillCleanEOF(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	ok, err := r.Fill()
	if err != nil || ok {
		t.Fatalf("Fill() on empty stream = %v, %v; want false, nil", ok, err)
	}
}

func TestFillTruncatedPayload(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0, 5, 1, 2}))
	_, err := r.Fill()
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("Fill() error = %v; want ErrTruncated", err)
	}
}

func TestCheckLenMismatch(t *testing.T) {
	r := NewReader(bytes.NewReader(encodeRecord([]byte{1, 2, 3})))
	if _, err := r.Fill(); err != nil {
		t.Fatal(err)
	}
	if err := r.CheckLen(41); !errors.Is(err, ErrBadLength) {
		t.Fatalf("CheckLen() error = %v; want ErrBadLength", err)
	}
}

func TestMarkAndRewind(t *testing.T) {
	raw := append(encodeRecord([]byte{1, 2}), encodeRecord([]byte{3, 4, 5})...)
	r := NewReader(bytes.NewReader(raw))

	if _, err := r.Fill(); err != nil {
		t.Fatal(err)
	}
	if err := r.Rewind(); err != nil {
		t.Fatal(err)
	}
	ok, err := r.Fill()
	if err != nil || !ok || r.PayloadLen() != 2 {
		t.Fatalf("Fill() after Rewind() = %v, %d, %v; want true, 2, nil", ok, r.PayloadLen(), err)
	}
}
