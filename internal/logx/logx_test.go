package logx

import (
	"bytes"
	"strings"
	"testing"
)

func newTestLogger(min Level) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return &Logger{out: buf, minLevel: min}, buf
}

func TestLogRespectsMinLevel(t *testing.T) {
	l, buf := newTestLogger(LevelWarn)
	l.Debug("should not appear")
	l.Info("also should not appear")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below minLevel, got %q", buf.String())
	}
	l.Warn("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("expected Warn output, got %q", buf.String())
	}
}

func TestLogIncludesKeyValuePairs(t *testing.T) {
	l, buf := newTestLogger(LevelDebug)
	l.Info("message", "k1", "v1", "k2", "v2")
	out := buf.String()
	if !strings.Contains(out, "k1=v1") || !strings.Contains(out, "k2=v2") {
		t.Fatalf("expected kv pairs in output, got %q", out)
	}
}

func TestWithPrependsContext(t *testing.T) {
	l, buf := newTestLogger(LevelDebug)
	child := l.With("component=test")
	child.Info("hi")
	if !strings.Contains(buf.String(), "component=test") {
		t.Fatalf("expected inherited context in output, got %q", buf.String())
	}
}

func TestWithDoesNotMutateParent(t *testing.T) {
	l, parentBuf := newTestLogger(LevelDebug)
	_ = l.With("x=1")
	l.Info("hi")
	if strings.Contains(parentBuf.String(), "x=1") {
		t.Fatal("With() leaked context into the parent logger")
	}
}

func TestLevelTagStrings(t *testing.T) {
	cases := map[Level]string{
		LevelDebug: "DBUG",
		LevelInfo:  "INFO",
		LevelWarn:  "WARN",
		LevelError: "EROR",
		Level(99):  "????",
	}
	for level, want := range cases {
		if got := level.tag(); got != want {
			t.Errorf("Level(%d).tag() = %q, want %q", level, got, want)
		}
	}
}
