package rinex

import (
	"fmt"
	"time"
)

// gpsEpoch is the start of GPS time, 1980-01-06 00:00:00 UTC.
var gpsEpoch = time.Date(1980, time.January, 6, 0, 0, 0, 0, time.UTC)

// rinexFileName renders the standard PPPPdddhmm.yyO/N file name of §6:
// PPPP the 4-char designator, ddd day-of-year, h hour-of-day encoded
// a..x, mm minute, yy 2-digit year, all derived from week*7days+tow
// added to the GPS epoch. Grounded on the original getRINEXfileName,
// which builds the same string with a C tm struct and 'a'+hour.
func rinexFileName(prefix string, week int, towSec int, ftype byte) string {
	designator := (prefix + "----")[:4]
	t := gpsEpoch.AddDate(0, 0, week*7).Add(time.Duration(towSec) * time.Second)
	hourLetter := byte('a' + t.Hour())
	return fmt.Sprintf("%s%03d%c%02d.%02d%c",
		designator, t.YearDay(), hourLetter, t.Minute(), t.Year()%100, ftype)
}
