package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWriterLogsLines(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput("debug", &buf)

	w := Writer(logger, "bun")
	if _, err := w.Write([]byte("SELECT 1\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "SELECT 1") || !strings.Contains(out, "bun") {
		t.Fatalf("unexpected log output: %q", out)
	}
}
