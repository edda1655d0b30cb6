// Package logger provides a thin wrapper around zerolog.Logger for ircterm.
//
// The terminal belongs to the UI, so diagnostics always go to a file. Files
// are rotated by timberjack. Raw protocol traffic (the --log flag) uses the
// same rotating writer through NewTrafficLog.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/DeRuina/timberjack"
	"github.com/rs/zerolog"
)

// Logger embeds zerolog.Logger so the full zerolog API is available.
type Logger struct {
	zerolog.Logger
}

// New returns a logger writing JSON lines to path at the given level.
// An unknown level falls back to info. The returned closer flushes and
// closes the file.
func New(role, path, level string) (*Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}

	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		return runtime.FuncForPC(pc).Name()
	}
	zerolog.CallerFieldName = "func"

	w := rotatingFile(path)
	l := zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Str("role", role).
		Timestamp().
		Caller().
		Logger()

	return &Logger{l}, w, nil
}

// NewWriter returns a logger writing to w, mostly useful in tests.
func NewWriter(w io.Writer, level string) *Logger {
	return &Logger{zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()}
}

// Nop returns a *Logger that discards all output.
func Nop() *Logger {
	return &Logger{zerolog.Nop()}
}

// Component returns a child logger tagged with the component name.
func (l *Logger) Component(name string) *Logger {
	return &Logger{l.With().Str("component", name).Logger()}
}

// NewTrafficLog opens a rotating file for raw protocol lines.
func NewTrafficLog(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return rotatingFile(path), nil
}

func rotatingFile(path string) *timberjack.Logger {
	return &timberjack.Logger{
		Filename:         path,
		MaxSize:          20, // megabytes
		MaxBackups:       5,
		MaxAge:           14, // days
		Compression:      "gzip",
		LocalTime:        true,
		RotationInterval: 24 * time.Hour,
		BackupTimeFormat: "2006-01-02-15-04-05",
	}
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}
