package logging

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Level(level.Load())
	flags := log.Flags()
	log.SetFlags(0)
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		log.SetFlags(flags)
		SetLevel(prev)
	})
	return &buf
}

func TestInfoPrefixesSubsystem(t *testing.T) {
	buf := capture(t)
	SetLevel(LevelInfo)

	Info("focus", "started %d", 7)
	if got := buf.String(); got != "[focus] started 7\n" {
		t.Fatalf("got %q", got)
	}
}

func TestDebugGatedByLevel(t *testing.T) {
	buf := capture(t)

	SetLevel(LevelInfo)
	Debug("query", "hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be hidden at info level, got %q", buf.String())
	}

	SetLevel(LevelDebug)
	Debug("query", "shown")
	if !strings.Contains(buf.String(), "[query] shown") {
		t.Fatalf("got %q", buf.String())
	}
}

func TestWarnSurvivesWarnLevel(t *testing.T) {
	buf := capture(t)
	SetLevel(LevelWarn)

	Info("reminder", "hidden")
	Warn("reminder", "enqueue failed: %v", "boom")
	if got := buf.String(); got != "[reminder] WARN enqueue failed: boom\n" {
		t.Fatalf("got %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug": LevelDebug,
		"INFO":  LevelInfo,
		"warn":  LevelWarn,
		"off":   LevelOff,
		"loud":  LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetupWritesToFile(t *testing.T) {
	capture(t)
	SetLevel(LevelInfo)
	path := filepath.Join(t.TempDir(), "logs", "cumpli.log")

	closer, err := Setup(path)
	if err != nil {
		t.Fatal(err)
	}
	Info("app", "hello")
	closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[app] hello") {
		t.Fatalf("log file = %q", data)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("line one\nline two", 8); got != "line one..." {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
}
