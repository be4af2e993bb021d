// Command osp2rinex converts an OSP binary capture file from a SiRF
// IV receiver into RINEX observation and GPS navigation files, and
// optionally a position-only solution log. Styled on convbin.go's
// help-array command line, adapted to this tool's own
// option set.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"strings"

	"ospconv/internal/acquisition"
	"ospconv/internal/ospmsg"
	"ospconv/internal/rinex"
	"ospconv/internal/rtklog"
	"ospconv/internal/trace"
)

const progName = "osp2rinex"

var help = []string{
	"",
	" Synopsis",
	"",
	" osp2rinex [option ...] file",
	"",
	" Description",
	"",
	" Converts an OSP binary capture file (length-prefixed SiRF IV",
	" receiver messages, as produced by ospcapture) into RINEX",
	" observation and GPS navigation files, and optionally a",
	" position-only solution log in RTKLIB's plain-text format.",
	"",
	" Options [default]",
	"",
	"     file           input OSP binary capture file [DATA.OSP]",
	"     -d dir         output directory [current directory]",
	"     -a             suppress the end-of-file comment block [off]",
	"     -b             do not apply receiver clock bias to pseudoranges [off]",
	"     -c codes       GPS observables list [C1C,L1C,D1C,S1C]",
	"     -e             do not extract packaged ephemeris data (MID15) [off]",
	"     -g             also extract GPS 50bps nav message data (MID8) [off]",
	"     -i nsat        minimum satellites in a fix to accept MID2/MID7 data [4]",
	"     -j antnum      RINEX header: antenna number",
	"     -k antype      RINEX header: antenna type",
	"     -l level       maximum level to log (SEVERE,WARNING,INFO,CONFIG,FINE,FINER,FINEST) [INFO]",
	"     -m mrkname     RINEX header: marker name",
	"     -n             also emit the GPS navigation file [off]",
	"     -o observer    RINEX header: observer name",
	"     -p runby       RINEX header: run-by name",
	"     -r prefix      4-character marker designator for output file names [XXXX]",
	"     -s codes       SBAS observables list [none]",
	"     -u mrknum      RINEX header: marker number",
	"     -v version     RINEX version, V210 or V300 [V210]",
	"     -y agency      RINEX header: agency",
	"     -rtk file      also write a position-only solution log to file",
	"",
}

func printHelp() {
	for _, line := range help {
		fmt.Fprintln(os.Stderr, line)
	}
}

func searchHelp(key string) string {
	for _, line := range help {
		if strings.Contains(line, key) {
			return line
		}
	}
	return "no documented option " + key
}

// splitCodes parses a comma-separated observable code list, e.g.
// "C1C,L1C,D1C,S1C", trimming whitespace around each entry.
func splitCodes(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	codes := make([]string, len(parts))
	for i, p := range parts {
		codes[i] = strings.TrimSpace(p)
	}
	return codes
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet(progName, flag.ContinueOnError)
	var (
		dir, prefix, version, marker, markerNo string
		observer, agency, antNumber, antType   string
		gpsCodes, sbasCodes                    string
		minSVFix                               int
		gps50bps, noEphemeris, noBias, noEOF   bool
		emitNav                                bool
		rtkFile, logLevel                      string
	)
	fs.StringVar(&dir, "d", "", searchHelp("-d "))
	fs.BoolVar(&noEOF, "a", false, searchHelp("-a "))
	fs.BoolVar(&noBias, "b", false, searchHelp("-b "))
	fs.StringVar(&gpsCodes, "c", "C1C,L1C,D1C,S1C", searchHelp("-c "))
	fs.BoolVar(&noEphemeris, "e", false, searchHelp("-e "))
	fs.BoolVar(&gps50bps, "g", false, searchHelp("-g "))
	fs.IntVar(&minSVFix, "i", 4, searchHelp("-i "))
	fs.StringVar(&antNumber, "j", "", searchHelp("-j "))
	fs.StringVar(&antType, "k", "", searchHelp("-k "))
	fs.StringVar(&logLevel, "l", "INFO", searchHelp("-l "))
	fs.StringVar(&marker, "m", "", searchHelp("-m "))
	fs.BoolVar(&emitNav, "n", false, searchHelp("-n "))
	fs.StringVar(&observer, "o", "", searchHelp("-o "))
	fs.StringVar(&agency, "y", "", searchHelp("-y "))
	fs.StringVar(&prefix, "r", "XXXX", searchHelp("-r "))
	fs.StringVar(&sbasCodes, "s", "", searchHelp("-s "))
	fs.StringVar(&markerNo, "u", "", searchHelp("-u "))
	fs.StringVar(&version, "v", "V210", searchHelp("-v "))
	fs.StringVar(&rtkFile, "rtk", "", searchHelp("-rtk "))

	// -p is documented as run-by, distinct from the RTKLIB-style output
	// prefix which spec.md assigns to -r above.
	var runBy string
	fs.StringVar(&runBy, "p", "", searchHelp("-p "))

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			printHelp()
			return 0
		}
		return 1
	}
	inFile := "DATA.OSP"
	if fs.NArg() >= 1 {
		inFile = fs.Arg(0)
	}
	if dir == "" {
		dir = "."
	}

	log := trace.New(os.Stderr, progName)
	log.SetLevel(trace.ParseLevel(logLevel))

	ver := rinex.V210
	if strings.EqualFold(version, "V300") {
		ver = rinex.V300
	}

	f, err := os.Open(inFile)
	if err != nil {
		log.Severe("cannot open input file %s: %v", inFile, err)
		return 2
	}
	defer f.Close()

	systems := []rinex.System{rinex.NewSystem('G', splitCodes(gpsCodes))}
	if sbasCodes != "" {
		systems = append(systems, rinex.NewSystem('S', splitCodes(sbasCodes)))
	}

	model := rinex.NewModel(rinex.Header{
		Version:    ver,
		Program:    progName,
		RunBy:      runBy,
		MarkerName: marker,
		MarkerNum:  markerNo,
		Observer:   observer,
		Agency:     agency,
		AntNumber:  antNumber,
		AntType:    antType,
		AppendEOF:  !noEOF,
		ApplyBias:  !noBias,
	}, systems)

	reader := ospmsg.NewReader(f)
	engine := acquisition.NewEngine(reader, progName, minSVFix, log)

	if _, err := engine.AcquireHeader(model); err != nil {
		log.Severe("error acquiring header data: %v", err)
		return 2
	}
	elevMask, snrMask := engine.ElevMask, engine.SNRMask
	if _, err := f.Seek(0, 0); err != nil {
		log.Severe("error rewinding input file: %v", err)
		return 2
	}
	reader = ospmsg.NewReader(f)
	engine = acquisition.NewEngine(reader, progName, minSVFix, log)

	obsPath := dir + "/" + model.ObsFileName(prefix)
	obsOut, err := os.Create(obsPath)
	if err != nil {
		log.Severe("cannot create observation file %s: %v", obsPath, err)
		return 3
	}
	defer obsOut.Close()
	if err := model.WriteObsHeader(obsOut); err != nil {
		log.Severe("error writing observation header: %v", err)
		return 3
	}

	var rtkSolutions bytes.Buffer
	var rtkLog *rtklog.Log
	if rtkFile != "" {
		rtkLog = rtklog.NewLog(progName, inFile)
		rtkLog.SetMasks(elevMask, snrMask)
	}

	nEpochs := 0
	for {
		ok, err := engine.AcquireEpoch(model, !noEphemeris, gps50bps)
		if err != nil {
			log.Severe("error acquiring epoch data: %v", err)
			return 2
		}
		if !ok {
			break
		}
		if model.HasObservations() {
			if err := model.WriteObsEpoch(obsOut); err != nil {
				log.Severe("error writing observation epoch: %v", err)
				return 3
			}
			nEpochs++
			if rtkLog != nil {
				sol := rtkLog.Observe(model.GPSWeek, model.GPSTOW, model.EpochX, model.EpochY, model.EpochZ, 5, model.EpochNumSV)
				_ = rtklog.WriteSolution(&rtkSolutions, sol)
			}
		}
		model.ClearObservations()
	}
	if err := model.WriteObsEOF(obsOut); err != nil {
		log.Severe("error writing observation trailer: %v", err)
		return 3
	}

	if nEpochs == 0 {
		log.Severe("no epochs produced from %s", inFile)
		return 3
	}

	if emitNav && model.EphemerisCount() > 0 {
		navPath := dir + "/" + model.GPSNavFileName(prefix)
		navOut, err := os.Create(navPath)
		if err != nil {
			log.Severe("cannot create navigation file %s: %v", navPath, err)
			return 3
		}
		defer navOut.Close()
		if err := model.WriteNavHeader(navOut); err != nil {
			log.Severe("error writing navigation header: %v", err)
			return 3
		}
		if err := model.WriteNavEpochs(navOut); err != nil {
			log.Severe("error writing navigation epochs: %v", err)
			return 3
		}
	} else if emitNav {
		log.Info("no ephemerides collected; navigation file not written")
	}

	if rtkLog != nil {
		// the header's start/end time span is only known once every
		// epoch has been observed, so the solution lines are buffered
		// and the header written first when flushing to disk
		rtkOut, err := os.Create(rtkFile)
		if err != nil {
			log.Severe("cannot create RTK log file %s: %v", rtkFile, err)
			return 3
		}
		defer rtkOut.Close()
		if err := rtklog.WriteHeader(rtkOut, rtkLog.Header); err != nil {
			log.Severe("error writing RTK log header: %v", err)
			return 3
		}
		if _, err := rtkOut.Write(rtkSolutions.Bytes()); err != nil {
			log.Severe("error writing RTK log solutions: %v", err)
			return 3
		}
	}

	log.Info("conversion complete: %d epochs, %d ephemerides", nEpochs, model.EphemerisCount())
	return 0
}
