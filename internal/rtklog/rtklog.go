// Package rtklog renders the position-only RTKLIB-style solution log
// that §12 adds alongside RINEX output: a commented header block
// followed by one line per epoch. Grounded on the original
// RTKobservation class's printHeader/printSolution, reworked around
// io.Writer the way internal/rinex's formatters are.
package rtklog

import (
	"fmt"
	"io"
	"math"
	"time"
)

var gpsEpoch = time.Date(1980, time.January, 6, 0, 0, 0, 0, time.UTC)

func gpsTime(week int, tow float64) time.Time {
	return gpsEpoch.AddDate(0, 0, week*7).Add(time.Duration(tow * float64(time.Second)))
}

func gpsSeconds(tow float64) float64 { return math.Mod(tow, 60.0) }

// Header carries the descriptive fields printed as "%" comment lines
// before the first solution, mirroring setId/setMasks/setStartTime's
// combined state.
type Header struct {
	Program    string
	InputFile  string
	ElevMask   float64
	SNRMask    float64
	StartWeek  int
	StartTOW   float64
	EndWeek    int
	EndTOW     float64
}

// Solution is one epoch's computed fix, the data setPosition collects
// from a MID 2 message.
type Solution struct {
	Week    int
	TOW     float64
	X, Y, Z float64
	Quality int
	NumSats int
}

// WriteHeader renders the comment block preceding the solution table.
func WriteHeader(w io.Writer, h Header) error {
	fmt.Fprintf(w, "%% program\t: %s\n", h.Program)
	fmt.Fprintf(w, "%% inp file\t: %s\n", h.InputFile)
	start := gpsTime(h.StartWeek, h.StartTOW)
	fmt.Fprintf(w, "%% obs start\t: %s:%06.3f GPST\n", start.Format("2006/01/02 15:04"), gpsSeconds(h.StartTOW))
	end := gpsTime(h.EndWeek, h.EndTOW)
	fmt.Fprintf(w, "%% obs end\t: %s:%06.3f GPST\n", end.Format("2006/01/02 15:04"), gpsSeconds(h.EndTOW))
	fmt.Fprintf(w, "%% pos mode\t: Single\n")
	fmt.Fprintf(w, "%% elev mask\t: %4.1f\n", h.ElevMask)
	fmt.Fprintf(w, "%% snr mask\t: %4.1f\n", h.SNRMask)
	fmt.Fprintf(w, "%% ionos opt\t: Broadcast\n")
	fmt.Fprintf(w, "%% tropo opt\t: OFF\n")
	fmt.Fprintf(w, "%% ephemeris\t: Broadcast\n")
	fmt.Fprintf(w, "%%\n%% (x/y/z-ecef=WGS84,Q=1:fix,2:float,3:sbas,4:dgps,5:single,6:ppp,ns=# of satellites)\n")
	fmt.Fprintf(w, "%%  GPST%19c%s\n", ' ',
		"   x-ecef(m)      y-ecef(m)      z-ecef(m)   Q  ns   sdx(m)   sdy(m)   sdz(m)  sdxy(m)  sdyz(m)  sdzx(m) age(s)  ratio")
	return nil
}

// WriteSolution appends one epoch's position line. Standard-deviation,
// age and ratio columns carry zero, as this receiver family never
// surfaces them in its OSP output.
func WriteSolution(w io.Writer, s Solution) error {
	t := gpsTime(s.Week, s.TOW)
	fmt.Fprintf(w, "%s:%06.3f", t.Format("2006/01/02 15:04"), gpsSeconds(s.TOW))
	fmt.Fprintf(w, " %14.4f %14.4f %14.4f %3d %3d", s.X, s.Y, s.Z, s.Quality, s.NumSats)
	for i := 0; i < 6; i++ {
		fmt.Fprintf(w, " %8.4f", 0.0)
	}
	fmt.Fprintf(w, "   0.00    0.0\n")
	return nil
}

// Log accumulates header state (masks, start and end time) as
// solutions are observed, the stateful counterpart to RTKobservation;
// writing is left to WriteHeader and WriteSolution. cmd/osp2rinex
// drives it with the MID 19 masks and each epoch's MID 2 position.
type Log struct {
	Header    Header
	started   bool
}

// NewLog returns a Log identifying the program and input file.
func NewLog(program, inputFile string) *Log {
	return &Log{Header: Header{Program: program, InputFile: inputFile}}
}

// SetMasks records the elevation and SNR masks read from a MID 19.
func (l *Log) SetMasks(elev, snr float64) {
	l.Header.ElevMask, l.Header.SNRMask = elev, snr
}

// Observe records a solution's week/TOW as the log's start time (on
// the first call) and always as its end time, then returns the
// Solution ready for WriteSolution.
func (l *Log) Observe(week int, tow, x, y, z float64, quality, nsat int) Solution {
	if !l.started {
		l.Header.StartWeek, l.Header.StartTOW = week, tow
		l.started = true
	}
	l.Header.EndWeek, l.Header.EndTOW = week, tow
	return Solution{Week: week, TOW: tow, X: x, Y: y, Z: z, Quality: quality, NumSats: nsat}
}
