package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"", LevelInfo},
		{"error", LevelError},
		{"off", LevelNone},
		{"bogus", LevelInfo},
	}
	for _, tt := range tests {
		if got := LevelFromString(tt.in); got != tt.want {
			t.Errorf("LevelFromString(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelError)

	l.Debugf("hidden %d", 1)
	l.Infof("hidden %d", 2)
	l.Warnf("hidden %d", 3)
	l.Errorf("shown %d", 4)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("expected lower levels to be filtered, got %q", out)
	}
	if !strings.Contains(out, "ERROR: shown 4") {
		t.Errorf("expected error line, got %q", out)
	}

	buf.Reset()
	l.SetLevel(LevelDebug)
	l.Debugf("now visible")
	if !strings.Contains(buf.String(), "DEBUG: now visible") {
		t.Errorf("expected debug line after SetLevel, got %q", buf.String())
	}
}

func TestWarnLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelFromString("warn"))
	l.Infof("hidden")
	l.Warnf("careful")
	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("expected info to be filtered at WARN, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "WARN: careful") {
		t.Errorf("expected warn line, got %q", buf.String())
	}
}

func TestNamedSharesOutputAndLevel(t *testing.T) {
	var buf bytes.Buffer
	root := New(&buf, LevelInfo)
	loader := root.Named("loader")
	fetch := loader.Named("fetch")

	if fetch.Component() != "loader.fetch" {
		t.Errorf("expected nested component name, got %q", fetch.Component())
	}

	loader.Infof("started %d", 3)
	if !strings.Contains(buf.String(), "INFO: loader: started 3") {
		t.Errorf("expected component prefix, got %q", buf.String())
	}

	buf.Reset()
	root.SetLevel(LevelDebug)
	fetch.Debugf("visible")
	if !strings.Contains(buf.String(), "DEBUG: loader.fetch: visible") {
		t.Errorf("expected child to follow parent level, got %q", buf.String())
	}
}
