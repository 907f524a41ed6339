package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

type Logger struct {
	Verbose bool
	Debug   bool

	// Out and Err default to os.Stdout and os.Stderr.
	Out io.Writer
	Err io.Writer
}

func (l Logger) stdout() io.Writer {
	if l.Out != nil {
		return l.Out
	}
	return os.Stdout
}

func (l Logger) stderr() io.Writer {
	if l.Err != nil {
		return l.Err
	}
	return os.Stderr
}

func (l Logger) Infof(msg string, args ...any) {
	if l.Verbose || l.Debug {
		fmt.Fprintf(l.stdout(), color.GreenString("[info] ")+msg+"\n", args...)
	}
}

func (l Logger) Debugf(msg string, args ...any) {
	if l.Debug {
		fmt.Fprintf(l.stdout(), color.CyanString("[debug] ")+msg+"\n", args...)
	}
}

func (l Logger) Warnf(msg string, args ...any) {
	if l.Verbose || l.Debug {
		fmt.Fprintf(l.stderr(), color.YellowString("[warn] ")+msg+"\n", args...)
	}
}

// WarnfAlways prints a warning regardless of verbosity.
func (l Logger) WarnfAlways(msg string, args ...any) {
	fmt.Fprintf(l.stderr(), color.YellowString("[warn] ")+msg+"\n", args...)
}

func (l Logger) Errorf(msg string, args ...any) {
	if l.Debug {
		fmt.Fprintf(l.stderr(), color.RedString("[error] ")+msg+"\n", args...)
	}
}

// ErrorfAndReturn logs the message at error level and returns it as an error.
func (l Logger) ErrorfAndReturn(msg string, args ...any) error {
	l.Errorf(msg, args...)
	return fmt.Errorf(msg, args...)
}

// Leveled adapts the logger to the key/value interface used by the HTTP retry client.
func (l Logger) Leveled() LeveledLogger {
	return LeveledLogger{l: l}
}

// LeveledLogger satisfies retryablehttp.LeveledLogger.
type LeveledLogger struct {
	l Logger
}

func (a LeveledLogger) Error(msg string, keysAndValues ...interface{}) {
	a.l.Errorf("%s%s", msg, formatPairs(keysAndValues))
}

func (a LeveledLogger) Info(msg string, keysAndValues ...interface{}) {
	a.l.Infof("%s%s", msg, formatPairs(keysAndValues))
}

func (a LeveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	a.l.Debugf("%s%s", msg, formatPairs(keysAndValues))
}

func (a LeveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	a.l.Warnf("%s%s", msg, formatPairs(keysAndValues))
}

func formatPairs(kv []interface{}) string {
	out := ""
	for i := 0; i < len(kv); i += 2 {
		if i+1 < len(kv) {
			out += fmt.Sprintf(" %v=%v", kv[i], kv[i+1])
		} else {
			out += fmt.Sprintf(" %v", kv[i])
		}
	}
	return out
}
