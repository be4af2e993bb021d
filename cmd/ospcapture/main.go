// Command ospcapture records OSP messages live from a SiRF IV
// receiver attached to a serial port into a binary capture file
// osp2rinex can later convert. Styled on convbin.go's help-array
// command line; the capture sequence itself is grounded on the
// original RXtoOSP command.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"ospconv/internal/serialcap"
	"ospconv/internal/trace"
)

const progName = "ospcapture"

var help = []string{
	"",
	" Synopsis",
	"",
	" ospcapture [option ...]",
	"",
	" Description",
	"",
	" Captures OSP message data from a SiRF IV receiver connected to a",
	" serial port and stores them in a binary OSP file for later",
	" conversion by osp2rinex. The receiver and computer must already be",
	" synchronized at the requested baud rate with the receiver sending",
	" and accepting OSP messages.",
	"",
	" Options [default]",
	"",
	"     -p port        serial port name where the receiver is connected [/dev/ttyUSB0]",
	"     -b baud        serial port baud rate [57600]",
	"     -f file        OSP binary output file [<timestamp>.OSP]",
	"     -i interval    observation interval in seconds for epoch data [5]",
	"     -d duration    duration of the acquisition period, in minutes [5]",
	"     -e             capture GPS ephemeris data (MID15) [on]",
	"     -g             capture GPS 50bps nav message (MID8) [off]",
	"     -s mid         stop counting an epoch when this MID arrives [7]",
	"     -l level       maximum level to log (SEVERE,WARNING,INFO,CONFIG,FINE,FINER,FINEST) [INFO]",
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

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet(progName, flag.ContinueOnError)
	var (
		port, outFile, stopMID, logLevel string
		baud, interval, duration         int
		ephemeris, gps50bps              bool
	)
	fs.StringVar(&port, "p", "/dev/ttyUSB0", searchHelp("-p "))
	fs.IntVar(&baud, "b", 57600, searchHelp("-b "))
	fs.StringVar(&outFile, "f", "", searchHelp("-f "))
	fs.IntVar(&interval, "i", 5, searchHelp("-i "))
	fs.IntVar(&duration, "d", 5, searchHelp("-d "))
	fs.BoolVar(&ephemeris, "e", true, searchHelp("-e "))
	fs.BoolVar(&gps50bps, "g", false, searchHelp("-g "))
	fs.StringVar(&stopMID, "s", "7", searchHelp("-s "))
	fs.StringVar(&logLevel, "l", "INFO", searchHelp("-l "))

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			printHelp()
			return 0
		}
		return 1
	}

	log := trace.New(os.Stderr, progName)
	log.SetLevel(trace.ParseLevel(logLevel))

	mid, err := serialcap.ParseStopMID(stopMID)
	if err != nil {
		log.Severe("%v", err)
		return 1
	}
	if outFile == "" {
		outFile = serialcap.DefaultFileName(time.Now())
	}

	cfg := serialcap.Config{
		Port:                port,
		Baud:                baud,
		ObservationInterval: interval,
		CaptureEphemeris:    ephemeris,
		Capture50bps:        gps50bps,
		StopMID:             mid,
	}

	conn, err := serialcap.Open(cfg)
	if err != nil {
		log.Severe("error setting up receiver: %v", err)
		return 2
	}
	defer conn.Close()

	out, err := os.Create(outFile)
	if err != nil {
		log.Severe("cannot create binary output file %s: %v", outFile, err)
		return 5
	}
	defer out.Close()

	nEpochs := duration * 60 / interval
	if nEpochs < 1 {
		nEpochs = 1
	}
	maxMsgs := nEpochs * 20

	n, err := serialcap.Capture(conn, out, maxMsgs, nEpochs, cfg, log)
	if err != nil {
		log.Severe("capture error: %v", err)
		return 6
	}
	if n <= 0 {
		return 65
	}
	return 0
}
