// Package logx is a small leveled console logger in the shape of
// go-ethereum's log package: colorized level tags on a TTY, caller frame
// attached via github.com/go-stack/stack, plain output when piped. Grounded
// on the dependency set carried by ProbeChain-go-probe/go.mod
// (github.com/fatih/color, github.com/mattn/go-colorable,
// github.com/mattn/go-isatty, github.com/go-stack/stack); that package's own
// source was not present in the retrieval pack, so this is a fresh
// implementation in its idiom rather than an adaptation of a copied file.
package logx

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Level is a log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) tag() string {
	switch l {
	case LevelDebug:
		return "DBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "EROR"
	default:
		return "????"
	}
}

func (l Level) color(isTTY bool) func(format string, a ...interface{}) string {
	if !isTTY {
		return fmt.Sprintf
	}
	switch l {
	case LevelDebug:
		return color.New(color.FgHiBlack).SprintfFunc()
	case LevelInfo:
		return color.New(color.FgGreen).SprintfFunc()
	case LevelWarn:
		return color.New(color.FgYellow).SprintfFunc()
	case LevelError:
		return color.New(color.FgRed, color.Bold).SprintfFunc()
	default:
		return fmt.Sprintf
	}
}

// Logger writes leveled, optionally colorized lines to an io.Writer.
type Logger struct {
	mu       sync.Mutex
	out      io.Writer
	minLevel Level
	isTTY    bool
	ctx      []string // "key=value" pairs carried by With
}

// New builds a Logger writing to os.Stderr, auto-detecting color support via
// go-isatty/go-colorable the way go-ethereum's log package does.
func New(minLevel Level) *Logger {
	fd := os.Stderr.Fd()
	isTTY := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	return &Logger{
		out:      colorable.NewColorableStderr(),
		minLevel: minLevel,
		isTTY:    isTTY,
	}
}

// With returns a child Logger that prefixes every line with the given
// key=value context pairs, without mutating the receiver.
func (l *Logger) With(kv ...string) *Logger {
	child := &Logger{out: l.out, minLevel: l.minLevel, isTTY: l.isTTY}
	child.ctx = append(append([]string{}, l.ctx...), kv...)
	return child
}

func (l *Logger) log(level Level, msg string, kv ...string) {
	if level < l.minLevel {
		return
	}
	caller := ""
	if cs := stack.Caller(2); true {
		caller = fmt.Sprintf("%+n %v", cs, cs)
	}
	paint := level.color(l.isTTY)

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%s[%s] %s", paint("%s", level.tag()), caller, msg)
	for _, c := range l.ctx {
		fmt.Fprintf(l.out, " %s", c)
	}
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(l.out, " %s=%s", kv[i], kv[i+1])
	}
	fmt.Fprintln(l.out)
}

func (l *Logger) Debug(msg string, kv ...string) { l.log(LevelDebug, msg, kv...) }
func (l *Logger) Info(msg string, kv ...string)   { l.log(LevelInfo, msg, kv...) }
func (l *Logger) Warn(msg string, kv ...string)   { l.log(LevelWarn, msg, kv...) }
func (l *Logger) Error(msg string, kv ...string)  { l.log(LevelError, msg, kv...) }

// Default is the package-level logger used where a pipeline stage has no
// explicit Logger wired in (e.g. from tests).
var Default = New(LevelInfo)
