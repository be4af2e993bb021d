package rtklog

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogObserveTracksStartAndEnd(t *testing.T) {
	l := NewLog("osp2rinex", "capture.osp")
	l.Observe(2000, 100.0, 1.0, 2.0, 3.0, 5, 8)
	l.Observe(2000, 200.0, 1.1, 2.1, 3.1, 5, 9)

	if l.Header.StartTOW != 100.0 {
		t.Fatalf("StartTOW = %v; want 100.0 (latched on first Observe)", l.Header.StartTOW)
	}
	if l.Header.EndTOW != 200.0 {
		t.Fatalf("EndTOW = %v; want 200.0 (updated on every Observe)", l.Header.EndTOW)
	}
}

func TestWriteHeaderContainsProgramAndInputFile(t *testing.T) {
	var buf bytes.Buffer
	h := Header{Program: "osp2rinex", InputFile: "capture.osp", StartWeek: 2000, EndWeek: 2000, EndTOW: 60.0}
	if err := WriteHeader(&buf, h); err != nil {
		t.Fatalf("WriteHeader() err = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "osp2rinex") || !strings.Contains(out, "capture.osp") {
		t.Fatalf("WriteHeader() output missing program/input file: %q", out)
	}
	if !strings.HasPrefix(out, "%") {
		t.Fatalf("WriteHeader() output does not start with a comment marker: %q", out)
	}
}

func TestWriteSolutionFormatsOneLine(t *testing.T) {
	var buf bytes.Buffer
	sol := Solution{Week: 2000, TOW: 61.5, X: 100.0, Y: 200.0, Z: 300.0, Quality: 5, NumSats: 7}
	if err := WriteSolution(&buf, sol); err != nil {
		t.Fatalf("WriteSolution() err = %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 1 {
		t.Fatalf("WriteSolution() produced %d lines; want 1", len(lines))
	}
	if !strings.Contains(lines[0], "100.0000") || !strings.Contains(lines[0], "300.0000") {
		t.Fatalf("WriteSolution() line missing formatted coordinates: %q", lines[0])
	}
}
