// Package acquisition drives the two-pass extraction of RINEX header
// and epoch data out of an OSP capture file: a header pass over MID 2,
// 6 and 7 messages, then a rewind and a main pass assembling MID 28
// epochs with interleaved MID 8/15 ephemeris messages. Grounded on the
// teacher's decoder-dispatch idiom in ublox.go/novatel.go (per-MID
// decode functions fed by a shared reader) and, for the acquisition
// state machine itself, on the original GNSSDataAcq class.
package acquisition

import (
	"strings"

	"ospconv/internal/gpsnav"
	"ospconv/internal/ospmsg"
	"ospconv/internal/rinex"
	"ospconv/internal/trace"
)

const l1WavelengthInv = rinex.L1WavelengthInv

// Engine walks an OSP capture through the ospmsg.Reader, filling a
// rinex.Model's header and epoch data. One Engine is built per capture
// file; MinSVFix gates which MID 2/7 solutions are trusted enough to
// seed header fields.
type Engine struct {
	Receiver  string
	MinSVFix  int
	Log       *trace.Logger
	r         *ospmsg.Reader
	subframes *gpsnav.SubframeSet

	// ElevMask and SNRMask carry the receiver's configured masks, read
	// from the first MID 19 encountered during header acquisition, for
	// callers building an RTK position log.
	ElevMask float64
	SNRMask  float64
}

// NewEngine builds an Engine reading OSP messages from r.
func NewEngine(r *ospmsg.Reader, receiver string, minSVFix int, log *trace.Logger) *Engine {
	if log == nil {
		log = trace.Default
	}
	return &Engine{Receiver: receiver, MinSVFix: minSVFix, Log: log, r: r, subframes: gpsnav.NewSubframeSet()}
}

// AcquireHeader extracts the receiver identification, approximate
// position, first-epoch time and observation interval header fields
// into m, scanning forward until all four are set or the capture ends.
// Callers must rewind the capture to its start before the main pass.
func (e *Engine) AcquireHeader(m *rinex.Model) (bool, error) {
	var rxIDSet, apxSet, firstEphSet, intervalBegun, intervalSet, masksSet bool
	for !(apxSet && rxIDSet && firstEphSet && intervalSet) {
		ok, err := e.r.Fill()
		if err != nil {
			return false, err
		}
		if !ok {
			break
		}
		mid, err := e.r.MID()
		if err != nil {
			return false, err
		}
		if err := e.r.Skip(1); err != nil {
			return false, err
		}
		switch mid {
		case 2:
			if !apxSet {
				apxSet, err = e.mid2Position(m)
				if err != nil {
					return false, err
				}
			}
		case 6:
			if !rxIDSet {
				rxIDSet, err = e.mid6Receiver(m)
				if err != nil {
					return false, err
				}
			}
		case 7:
			if !firstEphSet {
				firstEphSet, err = e.mid7Time(m)
				if err != nil {
					return false, err
				}
				if firstEphSet {
					intervalBegun = true
					m.SetFirstObsTime()
				}
			} else if !intervalBegun {
				intervalBegun, err = e.mid7Time(m)
				if err != nil {
					return false, err
				}
			} else if !intervalSet {
				intervalBegun, err = e.mid7Interval(m)
				if err != nil {
					return false, err
				}
				intervalSet = intervalBegun
			}
		case 19:
			if !masksSet {
				masksSet, err = e.mid19Masks()
				if err != nil {
					return false, err
				}
			}
		}
	}
	e.Log.Fine("header data available: position=%v firstEpoch=%v interval=%v receiver=%v",
		apxSet, firstEphSet, intervalSet, rxIDSet)
	return apxSet && firstEphSet && rxIDSet && intervalSet, nil
}

// AcquireEpoch reads forward assembling one epoch's worth of MID 28
// measurements, interleaving MID 8/15 ephemeris messages as enabled by
// useMID8/useMID15, and returns once the terminating MID 7 has been
// consumed. When a MID 28 arrives carrying a different time tag than
// the epoch in progress with no intervening MID 7, the message is
// rewound for re-reading on the next call and the accumulated epoch is
// discarded, mirroring the original's fsetpos-based recovery.
func (e *Engine) AcquireEpoch(m *rinex.Model, useMID15, useMID8 bool) (bool, error) {
	dataAvailable := false
	for {
		if err := e.r.Mark(); err != nil {
			return false, err
		}
		ok, err := e.r.Fill()
		if err != nil {
			return false, err
		}
		if !ok {
			return dataAvailable, nil
		}
		mid, err := e.r.MID()
		if err != nil {
			return false, err
		}
		if err := e.r.Skip(1); err != nil {
			return false, err
		}
		switch mid {
		case 2:
			if _, err := e.mid2EpochPosition(m); err != nil {
				return false, err
			}
		case 7:
			got, err := e.mid7Time(m)
			if err != nil {
				return false, err
			}
			if got && dataAvailable {
				return true, nil
			}
		case 8:
			if useMID8 {
				if _, err := e.mid8Nav(m); err != nil {
					e.Log.Finest("mid8 decode error: %v", err)
				}
			}
		case 15:
			if useMID15 {
				if _, err := e.mid15Nav(m); err != nil {
					e.Log.Finest("mid15 decode error: %v", err)
				}
			}
		case 28:
			sameEpoch, added, err := e.mid28Measurement(m)
			if err != nil {
				return false, err
			}
			if added {
				if sameEpoch {
					dataAvailable = true
				} else {
					if err := e.r.Rewind(); err != nil {
						return false, err
					}
					m.ClearObservations()
					e.Log.Info("a MID28 sequence without MID7 ended epoch at time %v", m.EpochTimeTag())
					return dataAvailable, nil
				}
			}
		}
	}
}

// decodeMID2 reads a MID 2 solution's X/Y/Z position and satellite
// count, shared by the header (mid2Position) and per-epoch
// (mid2EpochPosition) callers.
func (e *Engine) decodeMID2() (ok bool, x, y, z int32, nsv uint8, err error) {
	if err = e.r.CheckLen(41); err != nil {
		e.Log.Info("MID2 msg len mismatch")
		return false, 0, 0, 0, 0, nil
	}
	if x, err = e.r.I32(); err != nil {
		return false, 0, 0, 0, 0, err
	}
	if y, err = e.r.I32(); err != nil {
		return false, 0, 0, 0, 0, err
	}
	if z, err = e.r.I32(); err != nil {
		return false, 0, 0, 0, 0, err
	}
	if err = e.r.Skip(15); err != nil {
		return false, 0, 0, 0, 0, err
	}
	if nsv, err = e.r.U8(); err != nil {
		return false, 0, 0, 0, 0, err
	}
	return true, x, y, z, nsv, nil
}

// mid2Position extracts X/Y/Z from a MID 2 solution for the header,
// requiring at least MinSVFix satellites in the fix.
func (e *Engine) mid2Position(m *rinex.Model) (bool, error) {
	ok, x, y, z, nsv, err := e.decodeMID2()
	if err != nil || !ok {
		return false, err
	}
	if int(nsv) < e.MinSVFix {
		e.Log.Finest("MID2 wrong fix: SVs less than minimum")
		return false, nil
	}
	m.SetPosition(float64(x), float64(y), float64(z))
	return true, nil
}

// mid2EpochPosition records the live per-epoch position and satellite
// count from a MID 2 arriving during epoch acquisition, for the RTK
// position log, mirroring getMID2PosData(RTKobservation&) which is
// unconditional on fix quality.
func (e *Engine) mid2EpochPosition(m *rinex.Model) (bool, error) {
	ok, x, y, z, nsv, err := e.decodeMID2()
	if err != nil || !ok {
		return false, err
	}
	m.SetEpochPosition(float64(x), float64(y), float64(z), int(nsv))
	return true, nil
}

// mid19Masks extracts the receiver's elevation and SNR masks from a
// MID 19 navigation-parameters message, mirroring getMID19Masks.
func (e *Engine) mid19Masks() (bool, error) {
	if err := e.r.CheckLen(65); err != nil {
		e.Log.Info("MID19 msg len mismatch")
		return false, nil
	}
	if err := e.r.Skip(19); err != nil {
		return false, err
	}
	elevRaw, err := e.r.I16()
	if err != nil {
		return false, err
	}
	snrRaw, err := e.r.U8()
	if err != nil {
		return false, err
	}
	e.ElevMask = float64(elevRaw) / 10.0
	e.SNRMask = float64(snrRaw)
	return true, nil
}

// mid6Receiver extracts the receiver software version string from a
// MID 6 message, carrying the full string as the header's RxVersion
// and its GSD4 baseline substring (empty when absent) as RxNumber.
func (e *Engine) mid6Receiver(m *rinex.Model) (bool, error) {
	swVersionLen, err := e.r.U8()
	if err != nil {
		return false, err
	}
	swCustomerLen, err := e.r.U8()
	if err != nil {
		return false, err
	}
	if err := e.r.CheckLen(1 + 2 + int(swVersionLen) + int(swCustomerLen)); err != nil {
		e.Log.Info("MID6 message/receiver/customer length don't match")
		return false, nil
	}
	verBytes, err := e.r.Bytes(int(swVersionLen))
	if err != nil {
		return false, err
	}
	version := string(verBytes)
	if _, err := e.r.Bytes(int(swCustomerLen)); err != nil {
		return false, err
	}
	gsd4 := ""
	if i := strings.Index(version, "GSD4"); i >= 0 {
		gsd4 = version[i:]
	}
	m.SetReceiver(gsd4, e.Receiver, version, 1, 0)
	return true, nil
}

// mid7Time extracts GPS week, time-of-week and clock bias from a MID 7
// message, rejecting it if the reported fix is below MinSVFix.
func (e *Engine) mid7Time(m *rinex.Model) (bool, error) {
	if err := e.r.CheckLen(20); err != nil {
		e.Log.Info("MID7 msg len mismatch")
		return false, nil
	}
	week, err := e.r.U16()
	if err != nil {
		return false, err
	}
	tow, err := e.r.U32()
	if err != nil {
		return false, err
	}
	sats, err := e.r.U8()
	if err != nil {
		return false, err
	}
	if int(sats) < e.MinSVFix {
		e.Log.Finest("MID7 ignored: solution only %d sats", sats)
		return false, nil
	}
	if err := e.r.Skip(4); err != nil {
		return false, err
	}
	biasRaw, err := e.r.U32()
	if err != nil {
		return false, err
	}
	m.SetGPSTime(int(week), float64(tow)/100.0, float64(biasRaw)*1.0e-9)
	return true, nil
}

// mid7Interval derives the header's observation interval from a second
// valid MID 7, without disturbing the model's live GPS time.
func (e *Engine) mid7Interval(m *rinex.Model) (bool, error) {
	if err := e.r.CheckLen(20); err != nil {
		e.Log.Info("MID7 msg len mismatch")
		return false, nil
	}
	week, err := e.r.U16()
	if err != nil {
		return false, err
	}
	tow, err := e.r.U32()
	if err != nil {
		return false, err
	}
	sats, err := e.r.U8()
	if err != nil {
		return false, err
	}
	if int(sats) < e.MinSVFix {
		e.Log.Finest("MID7 ignored: solution only %d sats", sats)
		return false, nil
	}
	m.SetIntervalTime(int(week), float64(tow)/100.0)
	return true, nil
}

// mid8Nav feeds a MID 8 subframe into the channel assembly buffer, and
// stores the resulting ephemeris once subframes 1-3 have arrived.
func (e *Engine) mid8Nav(m *rinex.Model) (bool, error) {
	if err := e.r.CheckLen(43); err != nil {
		e.Log.Info("MID8 msg len mismatch")
		return false, nil
	}
	ch, err := e.r.U8()
	if err != nil {
		return false, err
	}
	sv, err := e.r.U8()
	if err != nil {
		return false, err
	}
	var words [10]uint32
	for i := range words {
		words[i], err = e.r.U32()
		if err != nil {
			return false, err
		}
	}
	eph, err := e.subframes.IngestWords(int(ch), sv, words, m.GPSTOW)
	if err != nil {
		e.Log.Finest("MID8 subframe rejected: %v", err)
		return false, nil
	}
	if eph == nil {
		return true, nil
	}
	m.AddGPSNavData(eph)
	return true, nil
}

// mid15Nav extracts a complete ephemeris delivered directly in a MID
// 15 message, bypassing subframe assembly entirely.
func (e *Engine) mid15Nav(m *rinex.Model) (bool, error) {
	if err := e.r.CheckLen(92); err != nil {
		e.Log.Info("MID15 msg len mismatch")
		return false, nil
	}
	sv, err := e.r.U8()
	if err != nil {
		return false, err
	}
	var dt [45]uint32
	for i := range dt {
		v, err := e.r.U16()
		if err != nil {
			return false, err
		}
		dt[i] = uint32(v)
	}
	dt[0] = uint32(sv)
	dt[1] &= 0xFF00
	dt[2] &= 0x0003
	eph, err := gpsnav.ExtractEphemeris(dt, m.GPSTOW)
	if err != nil {
		e.Log.Info("MID15 ephemeris rejected: %v", err)
		return false, nil
	}
	m.AddGPSNavData(eph)
	return true, nil
}

// mid28Measurement extracts one satellite's pseudorange/phase/Doppler
// measurements from a MID 28 message, returning whether the message's
// time tag matched the epoch in progress and whether any measurement
// was actually added (acquisition-incomplete syncFlags add nothing).
func (e *Engine) mid28Measurement(m *rinex.Model) (sameEpoch, added bool, err error) {
	if err := e.r.CheckLen(56); err != nil {
		e.Log.Info("MID28 msg len mismatch")
		return false, false, nil
	}
	if _, err = e.r.U8(); err != nil { // channel, unused
		return false, false, err
	}
	if _, err = e.r.I32(); err != nil { // time tag, unused
		return false, false, err
	}
	satID, err := e.r.U8()
	if err != nil {
		return false, false, err
	}
	sys := byte('G')
	sat := int(satID)
	if sat > 100 {
		sys = 'S'
		sat -= 100
	}
	gpsSWTime, err := e.r.F64()
	if err != nil {
		return false, false, err
	}
	pseudorange, err := e.r.F64()
	if err != nil {
		return false, false, err
	}
	carrierFreq, err := e.r.F32()
	if err != nil {
		return false, false, err
	}
	carrierPhaseM, err := e.r.F64()
	if err != nil {
		return false, false, err
	}
	carrierPhase := carrierPhaseM * l1WavelengthInv
	if _, err = e.r.U16(); err != nil { // time in track, unused
		return false, false, err
	}
	syncFlags, err := e.r.U8()
	if err != nil {
		return false, false, err
	}
	strength, err := e.r.U8()
	if err != nil {
		return false, false, err
	}
	for i := 1; i < 10; i++ {
		v, err := e.r.U8()
		if err != nil {
			return false, false, err
		}
		if v < strength {
			strength = v
		}
	}
	strengthIndex := int(strength) / 6
	if strengthIndex < 1 {
		strengthIndex = 1
	}
	if strengthIndex > 9 {
		strengthIndex = 9
	}
	if syncFlags&0x01 == 0 {
		e.Log.Info("MID28 acquisition incomplete sv=%c%d syncFlags=%#x", sys, sat, syncFlags)
		return false, false, nil
	}
	sameEpoch = m.AddMeasurement(sys, sat, "S1C", float64(strength), 0, 0, gpsSWTime)
	m.AddMeasurement(sys, sat, "C1C", pseudorange, 0, strengthIndex, gpsSWTime)
	if syncFlags&0x02 != 0 {
		m.AddMeasurement(sys, sat, "L1C", carrierPhase, 0, strengthIndex, gpsSWTime)
	}
	m.AddMeasurement(sys, sat, "D1C", float64(carrierFreq)*l1WavelengthInv, 0, 0, gpsSWTime)
	return sameEpoch, true, nil
}
