package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestDefaultLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "flush", LevelWarn)
	l.Debugf("should not appear")
	l.Infof("should not appear either")
	l.Warnf("stall begin")
	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Fatalf("debug/info messages leaked through at Warn level: %q", out)
	}
	if !strings.Contains(out, "stall begin") || !strings.Contains(out, "[flush]") {
		t.Fatalf("expected warn message with component tag, got %q", out)
	}
}

func TestDiscardLoggerNeverPanics(t *testing.T) {
	Discard.Errorf("x")
	Discard.Warnf("x")
	Discard.Infof("x")
	Discard.Debugf("x")
}
