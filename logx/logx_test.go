package logx

import (
	"bytes"
	"log"
	"testing"
)

func newTestLogger() (*DefaultLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	return &DefaultLogger{logger: log.New(&buf, "", 0), level: LevelInfo}, &buf
}

func TestDebugSuppressedBelowLevel(t *testing.T) {
	l, buf := newTestLogger()
	l.Debug("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("expected no output at LevelInfo, got %q", buf.String())
	}
}

func TestErrorAlwaysLogsRegardlessOfLevel(t *testing.T) {
	l, buf := newTestLogger()
	l.SetLevel(LevelError + 10) // absurdly high, still must not suppress Error
	l.Error("boom %d", 42)
	if buf.Len() == 0 {
		t.Fatalf("expected Error to log unconditionally")
	}
}

func TestIsLevelEnabled(t *testing.T) {
	l, _ := newTestLogger()
	l.SetLevel(LevelWarn)
	if l.IsLevelEnabled(LevelInfo) {
		t.Fatalf("Info should not be enabled at LevelWarn")
	}
	if !l.IsLevelEnabled(LevelError) {
		t.Fatalf("Error should be enabled at LevelWarn")
	}
}

func TestOrDefaultInstallsDefaultLogger(t *testing.T) {
	got := OrDefault(nil)
	if _, ok := got.(*DefaultLogger); !ok {
		t.Fatalf("expected *DefaultLogger for nil input, got %T", got)
	}
	if OrDefault(NOP) != NOP {
		t.Fatalf("OrDefault should pass through a non-nil logger unchanged")
	}
}
