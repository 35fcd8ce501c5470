package pagou

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestZerologLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(zerolog.New(&buf))

	logger.Info("scheduling retry", "requestID", "req_1", "attempt", 2)

	out := buf.String()
	for _, part := range []string{"scheduling retry", "req_1", `"attempt":2`} {
		if !strings.Contains(out, part) {
			t.Errorf("output %q missing %q", out, part)
		}
	}
}

func TestZerologLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(zerolog.New(&buf))

	logger.Debug("d")
	logger.Info("i")
	logger.Warn("w")
	logger.Error("e")

	out := buf.String()
	for _, level := range []string{"debug", "info", "warn", "error"} {
		if !strings.Contains(out, `"level":"`+level+`"`) {
			t.Errorf("missing %s level line in %q", level, out)
		}
	}
}

func TestZerologLoggerOddFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(zerolog.New(&buf))

	// A trailing key without a value is dropped, not logged half-formed.
	logger.Info("msg", "key", "value", "dangling")

	out := buf.String()
	if !strings.Contains(out, `"key":"value"`) {
		t.Errorf("missing pair in %q", out)
	}
	if strings.Contains(out, "dangling") {
		t.Errorf("dangling key should be dropped, got %q", out)
	}
}
