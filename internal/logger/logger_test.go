package logger

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestLevels(t *testing.T) {
	tests := []struct {
		level     Level
		wantDebug bool
		wantInfo  bool
	}{
		{LevelOff, false, false},
		{LevelNormal, false, true},
		{LevelVerbose, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			var buf bytes.Buffer
			log := New(tt.level, &buf)

			log.Debug("debug line")
			log.Info("info line")

			out := buf.String()
			if got := strings.Contains(out, "[DBG] "); got != tt.wantDebug {
				t.Fatalf("debug visible = %v, want %v (out=%q)", got, tt.wantDebug, out)
			}
			if got := strings.Contains(out, "[INF] "); got != tt.wantInfo {
				t.Fatalf("info visible = %v, want %v (out=%q)", got, tt.wantInfo, out)
			}
		})
	}
}

func TestNamedSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	root := New(LevelNormal, &buf)
	child := root.Named("catalog").Named("sub")

	child.Debug("hidden")
	root.SetLevel(LevelVerbose)
	child.Debug("visible %d", 1)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked at normal level: %q", out)
	}
	if !strings.Contains(out, "catalog/sub: visible 1") {
		t.Fatalf("expected prefixed debug line, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"off", LevelOff, false},
		{"quiet", LevelOff, false},
		{"", LevelNormal, false},
		{"Normal", LevelNormal, false},
		{"debug", LevelVerbose, false},
		{"verbose", LevelVerbose, false},
		{"loud", LevelNormal, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("ParseLevel(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestWriterDiscardsWhenOff(t *testing.T) {
	var buf bytes.Buffer
	log := New(LevelOff, &buf)
	if log.Writer() != io.Discard {
		t.Fatal("expected io.Discard when logging is off")
	}
	log.SetLevel(LevelNormal)
	if log.Writer() != &buf {
		t.Fatal("expected the configured output when logging is on")
	}
}
