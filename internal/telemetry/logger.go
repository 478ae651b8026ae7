package telemetry

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	clog "github.com/charmbracelet/log"
)

// Logger writes one JSON object per event. Fields are flattened into the
// record next to the message, the same way for every level.
type Logger struct {
	mu  sync.Mutex
	l   *clog.Logger
	out io.WriteCloser
}

func NewJSONLogger(path, level string) (*Logger, error) {
	var out io.WriteCloser = nopCloser{Writer: io.Discard}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		out = f
	}
	return newLogger(out, level), nil
}

// NewWriterLogger is mostly for tests.
func NewWriterLogger(w io.Writer, level string) *Logger {
	return newLogger(nopCloser{Writer: w}, level)
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return newLogger(nopCloser{Writer: io.Discard}, "error")
}

func newLogger(out io.WriteCloser, level string) *Logger {
	lvl, err := clog.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = clog.InfoLevel
	}
	l := clog.NewWithOptions(out, clog.Options{
		Level:           lvl,
		Formatter:       clog.JSONFormatter,
		ReportTimestamp: true,
		Prefix:          "codechallenge",
	})
	return &Logger{l: l, out: out}
}

func (l *Logger) Debug(msg string, fields map[string]any) {
	l.log(clog.DebugLevel, msg, fields)
}

func (l *Logger) Info(msg string, fields map[string]any) {
	l.log(clog.InfoLevel, msg, fields)
}

func (l *Logger) Warn(msg string, fields map[string]any) {
	l.log(clog.WarnLevel, msg, fields)
}

func (l *Logger) Error(msg string, fields map[string]any) {
	l.log(clog.ErrorLevel, msg, fields)
}

func (l *Logger) log(level clog.Level, msg string, fields map[string]any) {
	if l == nil || l.l == nil {
		return
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	kv := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		kv = append(kv, k, fields[k])
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.l.Log(level, msg, kv...)
}

func (l *Logger) Close() error {
	if l == nil || l.out == nil {
		return nil
	}
	return l.out.Close()
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
