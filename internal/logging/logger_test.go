package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerWritesAllLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New(nil, &buf)

	l.Debug().Msg("debug line")
	l.Info().Msg("info line")
	l.Warn().Msg("warn line")
	l.Error().Msg("error line")

	out := buf.String()
	for _, want := range []string{"debug line", "info line", "warn line", "error line"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestWarnfRoutesThroughWarnLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(nil, &buf)

	l.Warnf("unknown directive %q", "frobnicate")

	if !strings.Contains(buf.String(), "frobnicate") {
		t.Errorf("expected warning to mention token, got:\n%s", buf.String())
	}
}

func TestNewWithNoWriters(t *testing.T) {
	l := New(nil, nil)
	l.Info().Msg("discarded")
}
