package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLoggerCarriesServiceName(t *testing.T) {
	t.Setenv("GO_ENV", "")

	var buf bytes.Buffer
	l := newLogger(&buf, "info")
	l.Info("starting")

	if !strings.Contains(buf.String(), "service=hearth") {
		t.Errorf("log line missing service attribute: %q", buf.String())
	}
}

func TestNewLoggerLevelFilter(t *testing.T) {
	t.Setenv("GO_ENV", "")

	var buf bytes.Buffer
	l := newLogger(&buf, "warn")
	l.Info("below threshold")
	l.Warn("surfaced")

	out := buf.String()
	if strings.Contains(out, "below threshold") {
		t.Error("info line logged at warn level")
	}
	if !strings.Contains(out, "surfaced") {
		t.Error("warn line not logged at warn level")
	}
}

func TestNewLoggerProductionJSON(t *testing.T) {
	t.Setenv("GO_ENV", "production")

	var buf bytes.Buffer
	l := newLogger(&buf, "info")
	l.Info("starting")

	line := buf.String()
	if !strings.HasPrefix(line, "{") {
		t.Errorf("production log line is not JSON: %q", line)
	}
	if !strings.Contains(line, `"service":"hearth"`) {
		t.Errorf("production log line missing service attribute: %q", line)
	}
}
