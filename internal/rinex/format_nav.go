package rinex

import (
	"fmt"
	"io"
	"time"

	"ospconv/internal/gpsnav"
)

// WriteNavHeader renders the fixed GPS navigation file header of
// §4.7; the ionosphere/UTC comment block the original leaves as a
// TBW stub is omitted entirely, per this implementation's Non-goals.
func (m *Model) WriteNavHeader(w io.Writer) error {
	fmt.Fprintf(w, "%9.2f%11c%1c%-19s%20c%-20s\n", 2.10, ' ', 'N', " GPS NAV DATA", ' ', "RINEX VERSION / TYPE")
	fmt.Fprintf(w, "%-20s%-20s%s%3s %-20s\n", m.Header.Program, m.Header.RunBy, time.Now().Format("20060102 150405 "), "LCL", "PGM / RUN BY / DATE")
	fmt.Fprintf(w, "%60c%-20s\n", ' ', "END OF HEADER")
	return nil
}

// WriteNavEpochs renders every stored ephemeris as an 8-line broadcast
// orbit record, per §4.7. Grounded line-for-line on printGPSnavEpoch:
// line 0 carries sat id, broadcast time, Af0/Af1/Af2; lines 1-6 carry
// four scaled fields each; line 7 carries transmission time and fit
// interval, substituting the URA lookup and IODC-band fit-interval
// rules where the raw grid holds an index rather than a value.
func (m *Model) WriteNavEpochs(w io.Writer) error {
	for _, eph := range m.sortedEphemerides() {
		bo := eph.BO
		t0c := float64(bo[0][0]) * gpsnav.ScaleFactor(0, 0)
		week := int(bo[5][2])
		ft := gpsTime(week, t0c)
		fmt.Fprintf(w, "%02d %02d %02d %02d %02d %02d%4.1f",
			eph.Sat, ft.Year()%100, ft.Month(), ft.Day(), ft.Hour(), ft.Minute(), gpsSeconds(t0c))
		for k := 1; k < 4; k++ {
			fmt.Fprint(w, outExp(float64(bo[0][k])*gpsnav.ScaleFactor(0, k), 12))
		}
		fmt.Fprint(w, "\n")

		for j := 1; j < 8; j++ {
			fmt.Fprint(w, "   ")
			for k := 0; k < 4; k++ {
				if j == 7 && k == 2 {
					break
				}
				var d float64
				switch {
				case j == 7 && k == 1:
					d = gpsnav.FitIntervalHours(bo[7][1], bo[6][3])
				case j == 6 && k == 0:
					d = gpsnav.URA(bo[6][0])
				default:
					d = float64(bo[j][k]) * gpsnav.ScaleFactor(j, k)
				}
				fmt.Fprint(w, outExp(d, 12))
			}
			fmt.Fprint(w, "\n")
		}
	}
	return nil
}
