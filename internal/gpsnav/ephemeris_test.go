package gpsnav

import (
	"errors"
	"testing"
)

func TestExtractEphemerisSatMismatch(t *testing.T) {
	var dt [45]uint32
	dt[0], dt[15], dt[30] = 5, 6, 5
	_, err := ExtractEphemeris(dt, 0)
	if !errors.Is(err, ErrSatMismatch) {
		t.Fatalf("ExtractEphemeris sv mismatch err = %v; want ErrSatMismatch", err)
	}
}

func TestExtractEphemerisIODMismatch(t *testing.T) {
	var dt [45]uint32
	dt[0], dt[15], dt[30] = 5, 5, 5
	dt[10] = 0x11         // iodcLSB = 0x11
	dt[18] = 0x2200        // iode1 = (dt[18]>>8)&0xFF = 0x22, differs from iodcLSB
	dt[43] = 0x11          // iode2 matches iodcLSB but not iode1
	_, err := ExtractEphemeris(dt, 0)
	if !errors.Is(err, ErrIODMismatch) {
		t.Fatalf("ExtractEphemeris IOD mismatch err = %v; want ErrIODMismatch", err)
	}
}

func TestExtractEphemerisConsistentIODSucceeds(t *testing.T) {
	var dt [45]uint32
	dt[0], dt[15], dt[30] = 7, 7, 7
	dt[10] = 0x22 // iodcLSB
	dt[18] = 0x2200
	dt[43] = 0x22
	eph, err := ExtractEphemeris(dt, 123.0)
	if err != nil {
		t.Fatalf("ExtractEphemeris() err = %v; want nil", err)
	}
	if eph.Sat != 7 {
		t.Fatalf("eph.Sat = %d; want 7", eph.Sat)
	}
	if eph.BO[1][0] != 0x22 {
		t.Fatalf("eph.BO[1][0] (IODE) = %d; want 0x22", eph.BO[1][0])
	}
	// HOW Zcount fields are zero, so bo[7][0] must fall back to the
	// supplied time-of-week argument scaled by 100.
	if eph.BO[7][0] != int64(123.0*100.0) {
		t.Fatalf("eph.BO[7][0] fallback = %d; want %d", eph.BO[7][0], int64(123.0*100.0))
	}
}

func TestURALookupBounds(t *testing.T) {
	if got := URA(-1); got != 0 {
		t.Fatalf("URA(-1) = %v; want 0", got)
	}
	if got := URA(16); got != 0 {
		t.Fatalf("URA(16) = %v; want 0", got)
	}
	if got := URA(0); got != 2.0 {
		t.Fatalf("URA(0) = %v; want 2.0", got)
	}
	if got := URA(15); got != 6144.0 {
		t.Fatalf("URA(15) = %v; want 6144.0", got)
	}
}

func TestFitIntervalHoursBands(t *testing.T) {
	cases := []struct {
		fitFlag, iodc int64
		want          float64
	}{
		{0, 0, 4.0},
		{1, 240, 8.0},
		{1, 247, 8.0},
		{1, 248, 14.0},
		{1, 496, 14.0},
		{1, 497, 26.0},
		{1, 1021, 26.0},
		{1, 10, 6.0},
	}
	for _, c := range cases {
		if got := FitIntervalHours(c.fitFlag, c.iodc); got != c.want {
			t.Errorf("FitIntervalHours(%d, %d) = %v; want %v", c.fitFlag, c.iodc, got, c.want)
		}
	}
}
