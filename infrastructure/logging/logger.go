package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures the application logger
type Options struct {
	Level     string // debug, info, warn or error
	Directory string // when set, JSON logs are also appended to a daily file here
	Debug     bool   // human-friendly console output instead of JSON
}

// New builds the application logger.
// Info and above go to stdout as JSON, plus a daily log file when a directory is set.
func New(opts Options) (*zap.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	if opts.Debug {
		level = zapcore.DebugLevel
	}

	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	if opts.Debug {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}

	sinks := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
	if opts.Directory != "" {
		file, err := openDailyFile(opts.Directory, time.Now())
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, zapcore.AddSync(file))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level)
	return zap.New(core, zap.AddCaller()), nil
}

// ParseLevel maps a config level name to a zap level; empty means info
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// DailyFileName returns the log file name for the given day
func DailyFileName(day time.Time) string {
	return fmt.Sprintf("video2audio_%s.log", day.Format("2006-01-02"))
}

func openDailyFile(dir string, day time.Time) (*os.File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	path := filepath.Join(dir, DailyFileName(day))
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}
