package rinex

import (
	"fmt"
	"io"
	"math"
	"time"
)

// gpsTime converts a GPS week/seconds-of-week pair to a civil time,
// the same conversion the original formatGPStime performs before
// handing off to strftime.
func gpsTime(week int, tow float64) time.Time {
	return gpsEpoch.AddDate(0, 0, week*7).Add(time.Duration(tow * float64(time.Second)))
}

func gpsSeconds(tow float64) float64 {
	// seconds-within-minute, matching getGPSseconds's mod-60 behaviour
	return math.Mod(tow, 60.0)
}

// WriteObsHeader renders the RINEX observation file header, differing
// between v2.10 and v3.00 per §4.7. Grounded line-for-line on the
// original printObsHeader's fprintf format strings.
func (m *Model) WriteObsHeader(w io.Writer) error {
	h := m.Header
	var verStr float64
	switch h.Version {
	case V210:
		verStr = 2.10
	case V300:
		verStr = 3.00
	default:
		return errInconsistentVersion(h.Version)
	}
	fmt.Fprintf(w, "%9.2f%11c%1c%-19s%1c%19c%-20s\n", verStr, ' ', 'O', "BSERVATION DATA", 'M', ' ', "RINEX VERSION / TYPE")
	fmt.Fprintf(w, "%-20s%-20s%s%3s %-20s\n", h.Program, h.RunBy, time.Now().Format("20060102 150405 "), "LCL", "PGM / RUN BY / DATE")
	fmt.Fprintf(w, "%-60.60s%-20s\n", h.MarkerName, "MARKER NAME")
	fmt.Fprintf(w, "%-60.60s%-20s\n", h.MarkerNum, "MARKER NUMBER")
	if h.Version == V300 {
		fmt.Fprintf(w, "%-20s%40c%-20s\n", "NON GEODETIC", ' ', "MARKER TYPE")
	}
	fmt.Fprintf(w, "%-20.20s%-40.40s%-20s\n", h.Observer, h.Agency, "OBSERVER / AGENCY")
	fmt.Fprintf(w, "%-20.20s%-20.20s%-20.20s%-20s\n", h.RxNumber, h.RxType, h.RxVersion, "REC # / TYPE / VERS")
	fmt.Fprintf(w, "%-20.20s%-20.20s%20c%-20s\n", h.AntNumber, h.AntType, ' ', "ANT # / TYPE")
	fmt.Fprintf(w, "%14.4f%14.4f%14.4f%18c%-20s\n", h.ApproxX, h.ApproxY, h.ApproxZ, ' ', "APPROX POSITION XYZ")
	fmt.Fprintf(w, "%14.4f%14.4f%14.4f%18c%-20s\n", h.AntHeight, h.EccEast, h.EccNorth, ' ', "ANTENNA: DELTA H/E/N")
	if h.Version == V210 {
		fmt.Fprintf(w, "%6d%6d%6d%42c%-20s\n", h.WlfL1, h.WlfL2, 0, ' ', "WAVELENGTH FACT L1/2")
	}
	switch h.Version {
	case V210:
		sys := m.Systems[0]
		fmt.Fprintf(w, "%6d", len(sys.ObsTypes))
		for j := 0; j < 9; j++ {
			if j < len(sys.ObsTypes) {
				fmt.Fprintf(w, "%4c%2.2s", ' ', sys.ObsTypes[j])
			} else {
				fmt.Fprintf(w, "%6c", ' ')
			}
		}
		fmt.Fprintf(w, "%-20s\n", "# / TYPES OF OBSERV")
	case V300:
		for _, sys := range m.Systems {
			fmt.Fprintf(w, "%1c  %3d", sys.ID, len(sys.ObsTypes))
			for j := 0; j < 13; j++ {
				if j < len(sys.ObsTypes) {
					fmt.Fprintf(w, " %3s", sys.ObsTypes[j])
				} else {
					fmt.Fprintf(w, "%4c", ' ')
				}
			}
			fmt.Fprintf(w, "  %-20s\n", "SYS / # / OBS TYPES")
		}
	}
	fmt.Fprintf(w, "%10.3f%50c%-20s\n", h.Interval, ' ', "INTERVAL")
	ft := gpsTime(h.FirstWeek, h.FirstTOW)
	fmt.Fprintf(w, "  %04d    %02d    %02d    %02d    %02d  %11.7f%5c%3s%9c%-20s\n",
		ft.Year(), ft.Month(), ft.Day(), ft.Hour(), ft.Minute(), gpsSeconds(h.FirstTOW), ' ', "GPS", ' ', "TIME OF FIRST OBS")
	fmt.Fprintf(w, "%60c%-20s\n", ' ', "END OF HEADER")
	return nil
}

// WriteObsEpoch renders one epoch's observation lines, sorting and
// bias-applying first, then emitting the v2.10 or v3.00 epoch header
// plus one line per satellite. Grounded on printObsEpoch and
// printSatObsValues.
func (m *Model) WriteObsEpoch(w io.Writer) error {
	obs := m.biasedObservations()
	if len(obs) == 0 {
		return nil
	}
	nSats := 1
	for i := 1; i < len(obs); i++ {
		if obs[i-1].SysIndex != obs[i].SysIndex || obs[i-1].Sat != obs[i].Sat {
			nSats++
		}
	}
	biasShift := 0.0
	if m.Header.ApplyBias {
		biasShift = m.ClkBias
	}
	epochTime := m.epochTimeTag - biasShift

	switch m.Header.Version {
	case V210:
		ft := gpsTime(m.GPSWeek, epochTime)
		fmt.Fprintf(w, " %02d %02d %02d %02d %02d%11.7f  %1d%3d",
			ft.Year()%100, ft.Month(), ft.Day(), ft.Hour(), ft.Minute(), gpsSeconds(epochTime), 0, nSats)
		fmt.Fprintf(w, "%1c%02d", m.Systems[obs[0].SysIndex].ID, obs[0].Sat)
		shown := 1
		for i := 1; i < len(obs); i++ {
			if shown < 12 && (obs[i-1].SysIndex != obs[i].SysIndex || obs[i-1].Sat != obs[i].Sat) {
				fmt.Fprintf(w, "%1c%02d", m.Systems[obs[i].SysIndex].ID, obs[i].Sat)
				shown++
			}
		}
		for i := shown; i < 12; i++ {
			fmt.Fprintf(w, "%3c", ' ')
		}
		fmt.Fprintf(w, "%12.9f", m.ClkBias)
		// satellite ids past the 12th go on continuation lines of up to 12
		for i, n := 1, 1; i < len(obs); i++ {
			if obs[i-1].SysIndex != obs[i].SysIndex || obs[i-1].Sat != obs[i].Sat {
				if n%12 == 0 {
					fmt.Fprintf(w, "\n%32c", ' ')
				}
				if n >= 12 {
					fmt.Fprintf(w, "%1c%02d", m.Systems[obs[i].SysIndex].ID, obs[i].Sat)
				}
				n++
			}
		}
		fmt.Fprintf(w, "\n")
	case V300:
		ft := gpsTime(m.GPSWeek, m.epochTimeTag-m.ClkBias)
		fmt.Fprintf(w, "> %04d %02d %02d %02d %02d%11.7f", ft.Year(), ft.Month(), ft.Day(), ft.Hour(), ft.Minute(), gpsSeconds(m.epochTimeTag-m.ClkBias))
		fmt.Fprintf(w, "  %1d%3d%5c%15.12f%3c\n", 0, nSats, ' ', m.ClkBias, ' ')
	default:
		return errInconsistentVersion(m.Header.Version)
	}

	i := 0
	for i < len(obs) {
		sysIdx, sat := obs[i].SysIndex, obs[i].Sat
		if m.Header.Version == V300 {
			fmt.Fprintf(w, "%1c%02d", m.Systems[sysIdx].ID, sat)
		}
		want := 0
		for i < len(obs) && obs[i].SysIndex == sysIdx && obs[i].Sat == sat {
			for obs[i].ObsTypeIndex > want {
				fmt.Fprintf(w, "%14.3f  ", 0.0)
				want++
			}
			v := clampObsValue(obs[i].Value)
			fmt.Fprintf(w, "%14.3f", v)
			writeDigitOrBlank(w, obs[i].LossOfLock)
			writeDigitOrBlank(w, obs[i].Strength)
			want++
			i++
		}
		fmt.Fprintf(w, "\n")
	}
	return nil
}

func writeDigitOrBlank(w io.Writer, v int) {
	if v == 0 {
		fmt.Fprintf(w, " ")
	} else {
		fmt.Fprintf(w, "%1d", v)
	}
}

// WriteObsEOF appends the optional end-of-file comment block of §4.7.
func (m *Model) WriteObsEOF(w io.Writer) error {
	if !m.Header.AppendEOF {
		return nil
	}
	biasShift := 0.0
	if m.Header.ApplyBias {
		biasShift = m.ClkBias
	}
	ft := gpsTime(m.GPSWeek, m.epochTimeTag-biasShift)
	fmt.Fprintf(w, " %02d %02d %02d %02d %02d%11.7f  %1d%3d\n",
		ft.Year()%100, ft.Month(), ft.Day(), ft.Hour(), ft.Minute(), gpsSeconds(m.epochTimeTag-biasShift), 4, 1)
	fmt.Fprintf(w, "%-60s%-20s\n", "END OF FILE", "COMMENT")
	return nil
}
