// Package serialcap captures OSP messages live from a SiRF IV
// receiver over a serial link and records them in the same
// length-prefixed binary layout internal/ospmsg reads back. Grounded
// on the original RXtoOSP command: the message-rate/poll command
// sequence sent to the receiver on startup, and the count-bounded
// read loop that stops on a configurable terminating MID. Serial I/O
// itself is grounded on the tarm/goserial package used elsewhere in
// the example pack for raw port access.
package serialcap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tarm/goserial"

	"ospconv/internal/trace"
)

// Config names the serial port and the receiver behaviour to request
// on capture start, mirroring RXtoOSP's command-line option set.
type Config struct {
	Port              string
	Baud              int
	ObservationInterval int // seconds, used for the message-rate command
	CaptureEphemeris  bool // poll MID 147 for MID 15 ephemeris
	Capture50bps      bool // leave MID 8 enabled instead of disabling it
	StopMID           byte // epoch boundary MID that increments the epoch count
}

// ErrChecksum and ErrFrameSync report malformed bytes on the wire, the
// serial-capture analog of ospmsg's truncation errors.
var (
	ErrChecksum  = errors.New("serialcap: checksum mismatch")
	ErrFrameSync = errors.New("serialcap: lost frame synchronization")
)

// Open opens the named serial port and sends the receiver setup
// command sequence: an all-messages rate-set at the requested
// interval, then per-message disables for the debug and unused
// messages the original leaves running, then polls for the software
// version (MID 6) and navigation parameters (MID 19), and optionally
// for ephemeris (MID 15).
func Open(cfg Config) (io.ReadWriteCloser, error) {
	port, err := serial.OpenPort(&serial.Config{Name: cfg.Port, Baud: cfg.Baud, ReadTimeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("serialcap: open port %s: %w", cfg.Port, err)
	}
	if err := configureReceiver(port, cfg); err != nil {
		port.Close()
		return nil, err
	}
	return port, nil
}

func configureReceiver(w io.Writer, cfg Config) error {
	commands := [][]byte{
		setMessageRate(2, 0, byte(cfg.ObservationInterval)), // enable all messages at the observation interval
		setMessageRate(4, 0, 0),                       // disable debug messages
		setMessageRate(0, 0x1D, 0),                    // disable nav debug message 29
		setMessageRate(0, 0x1E, 0),                    // disable nav debug message 30
		setMessageRate(0, 0x1F, 0),                    // disable nav debug message 31
		setMessageRate(0, 0x04, 0),                    // disable message 4 navigation
	}
	if !cfg.Capture50bps {
		commands = append(commands, setMessageRate(0, 0x08, 0)) // disable MID 8 50bps data
	}
	commands = append(commands,
		setMessageRate(0, 0x40, 0), // disable message 64 aux measurements
		setMessageRate(0, 0x32, 0), // disable message 50 SBAS status
		setMessageRate(0, 0x29, 0), // disable message 41 geodetic nav
		pollCommand(132),           // poll software version -> MID 6
		pollCommand(152),           // poll navigation parameters -> MID 19
	)
	if cfg.CaptureEphemeris {
		for i := 0; i < 3; i++ {
			commands = append(commands, pollEphemeris())
		}
	}
	for _, cmd := range commands {
		if err := writeFrame(w, cmd); err != nil {
			return fmt.Errorf("serialcap: sending receiver setup command: %w", err)
		}
	}
	return nil
}

// setMessageRate builds the MID 166 "set message rate" payload: mode,
// MID, rate (4-byte reserved field left zero). mode 2 means "apply to
// all messages"; mode 0 targets the single MID given.
func setMessageRate(mode, mid, rate byte) []byte {
	return []byte{166, mode, mid, rate, 0, 0, 0, 0}
}

func pollCommand(mid byte) []byte {
	return []byte{mid, 0}
}

func pollEphemeris() []byte {
	return []byte{147, 0, 0}
}

// writeFrame wraps payload in the full OSP wire framing (start
// sequence, length, payload, 15-bit checksum, end sequence) the
// receiver expects for commands sent to it; this framing is stripped
// again on the read side and never touches the capture file.
func writeFrame(w io.Writer, payload []byte) error {
	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, 0xA0, 0xA2)
	frame = append(frame, byte(len(payload)>>8), byte(len(payload)))
	frame = append(frame, payload...)
	checksum := ospChecksum(payload)
	frame = append(frame, byte(checksum>>8), byte(checksum))
	frame = append(frame, 0xB0, 0xB3)
	_, err := w.Write(frame)
	return err
}

func ospChecksum(payload []byte) uint16 {
	var sum uint16
	for _, b := range payload {
		sum = (sum + uint16(b)) & 0x7FFF
	}
	return sum
}

// readFrame scans r for one complete OSP message frame, validating
// its checksum, and returns the payload (MID plus data, framing
// stripped).
func readFrame(r io.Reader) ([]byte, error) {
	var b [1]byte
	state := 0
	for state < 2 {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, err
		}
		switch {
		case state == 0 && b[0] == 0xA0:
			state = 1
		case state == 1 && b[0] == 0xA2:
			state = 2
		default:
			state = 0
		}
	}
	var lenbuf [2]byte
	if _, err := io.ReadFull(r, lenbuf[:]); err != nil {
		return nil, err
	}
	length := int(binary.BigEndian.Uint16(lenbuf[:]))
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	var csbuf [2]byte
	if _, err := io.ReadFull(r, csbuf[:]); err != nil {
		return nil, err
	}
	var endbuf [2]byte
	if _, err := io.ReadFull(r, endbuf[:]); err != nil {
		return nil, err
	}
	if endbuf[0] != 0xB0 || endbuf[1] != 0xB3 {
		return nil, ErrFrameSync
	}
	if binary.BigEndian.Uint16(csbuf[:]) != ospChecksum(payload) {
		return nil, ErrChecksum
	}
	return payload, nil
}

// Capture reads framed OSP messages from r until maxMsgs have been
// recorded or maxEpochs boundaries (marked by cfg.StopMID) have been
// seen, writing each as a length-prefixed record to w. Returns the
// number of messages successfully recorded.
func Capture(r io.Reader, w io.Writer, maxMsgs, maxEpochs int, cfg Config, log *trace.Logger) (int, error) {
	if log == nil {
		log = trace.Default
	}
	nMsgs, nEpochs := 0, 0
	for nMsgs < maxMsgs && nEpochs < maxEpochs {
		payload, err := readFrame(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Warning("no message read or EOF; nMsgs=%d nEpochs=%d", nMsgs, nEpochs)
				return nMsgs, nil
			}
			log.Warning("frame error: %v", err)
			continue
		}
		if len(payload) == 0 {
			continue
		}
		if _, err := w.Write([]byte{byte(len(payload) >> 8), byte(len(payload))}); err != nil {
			return nMsgs, fmt.Errorf("serialcap: write error: %w", err)
		}
		if _, err := w.Write(payload); err != nil {
			return nMsgs, fmt.Errorf("serialcap: write error: %w", err)
		}
		nMsgs++
		if payload[0] == cfg.StopMID {
			nEpochs++
		}
		log.Finer("OSP<%d:%d> OK", payload[0], len(payload))
	}
	log.Info("capture end; nMsgs=%d nEpochs=%d", nMsgs, nEpochs)
	return nMsgs, nil
}

// DefaultFileName renders the timestamped binary file name the
// original names its captures with (yyyymmdd_hhmmss.OSP), for callers
// that don't take an explicit -f.
func DefaultFileName(now time.Time) string {
	return now.Format("20060102_150405") + ".OSP"
}

// ParseStopMID parses the -s option value into a MID byte.
func ParseStopMID(s string) (byte, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 || v > 255 {
		return 0, fmt.Errorf("serialcap: invalid stop MID %q", s)
	}
	return byte(v), nil
}
