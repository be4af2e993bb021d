package gpsnav

import (
	"errors"
	"fmt"
)

// MaxChannels bounds the receiver-channel index carried in MID 8
// messages (0..11 in this receiver family).
const MaxChannels = 12

// ErrBadParity and ErrChannelRange surface the kinds of FormatError the
// per-word subframe handling can raise; an unrecognised subframe id is
// not an error and is silently ignored.
var (
	ErrBadParity    = errors.New("gpsnav: subframe word failed parity check")
	ErrChannelRange = errors.New("gpsnav: channel index out of range")
)

// frame holds one subframe's ten stripped 24-bit words, tagged with
// the satellite id that delivered them.
type frame struct {
	sv    uint8
	words [10]uint32
}

// SubframeSet is the fixed channel x subframe assembly buffer of §3:
// row is receiver channel, column is subframe index 1..3. There is no
// slot for page 18 of subframe 4: its ionosphere/UTC content is not
// emitted, so such a page is recognised and dropped.
type SubframeSet struct {
	rows [MaxChannels][3]frame
}

// NewSubframeSet returns an empty assembly buffer.
func NewSubframeSet() *SubframeSet {
	return &SubframeSet{}
}

// IngestWords validates parity on all ten words of a MID 8 message,
// strips it, identifies the subframe, and stores the result in the
// channel's row. When this completes subframes 1-3 for the channel
// with a consistent IOD, it packs them into the 3x15 layout and
// returns the extracted ephemeris. fallbackTOW is the engine's current
// epoch time-of-week, threaded into ExtractEphemeris as the HOW-Zcount
// fallback transmission time, the same value the MID 15 path passes.
func (s *SubframeSet) IngestWords(ch int, sv uint8, words [10]uint32, fallbackTOW float64) (*Ephemeris, error) {
	if ch < 0 || ch >= MaxChannels {
		return nil, fmt.Errorf("%w: %d", ErrChannelRange, ch)
	}
	for _, w := range words {
		if !CheckParity(w) {
			return nil, ErrBadParity
		}
	}
	var stripped [10]uint32
	for i, w := range words {
		stripped[i] = StripParity(w)
	}
	subframeID := (stripped[1] >> 2) & 0x07
	pageID := (stripped[2] >> 16) & 0x3F
	if !((subframeID >= 1 && subframeID <= 3) || (subframeID == 4 && pageID == 56)) {
		return nil, nil
	}
	if subframeID == 4 {
		// page 18 of subframe 4 carries ionosphere/UTC almanac data this
		// implementation does not emit (§1 Non-goals); nothing to store.
		return nil, nil
	}
	row := &s.rows[ch]
	idx := int(subframeID) - 1
	row[idx] = frame{sv: sv, words: stripped}

	if row[0].sv == 0 || row[0].sv != row[1].sv || row[0].sv != row[2].sv {
		return nil, nil
	}
	iodcLSB := (row[0].words[7] >> 16) & 0xFF
	iode2 := (row[1].words[2] >> 16) & 0xFF
	iode3 := (row[2].words[9] >> 16) & 0xFF
	if iodcLSB != iode2 || iodcLSB != iode3 {
		return nil, nil
	}

	dt := packSubframes(sv, *row)
	eph, err := ExtractEphemeris(dt, fallbackTOW)
	row[0], row[1], row[2] = frame{}, frame{}, frame{}
	return eph, err
}

// packSubframes recombines three subframes of ten 24-bit words each
// into the compact 3x15x16-bit layout MID 15 delivers directly, so a
// single extractor serves both message types.
func packSubframes(sv uint8, row [3]frame) [45]uint32 {
	var dt [45]uint32
	for i := 0; i < 3; i++ {
		words := row[i].words
		for j := 0; j < 5; j++ {
			dt[i*15+j*3] = (words[j*2] >> 8) & 0xFFFF
			dt[i*15+j*3+1] = ((words[j*2] & 0xFF) << 8) | ((words[j*2+1] >> 16) & 0xFF)
			dt[i*15+j*3+2] = words[j*2+1] & 0xFFFF
		}
		dt[i*15] = uint32(sv)
		dt[i*15+1] &= 0xFF
	}
	return dt
}
