// Package logging builds the zap logger used across the marketplace.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mattn/go-colorable"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the logger's level and sinks.
type Options struct {
	Level   string // debug, info, warn, error
	File    string // JSON log file; empty disables the file sink
	Console bool
	Fields  []zap.Field // attached to every entry
}

// New builds a logger that tees a JSON file encoder and a colored console
// encoder. With no sink enabled it returns a no-op logger. The returned close
// func flushes the logger and releases the log file; it is safe to call more
// than once.
func New(opts Options) (*zap.Logger, func() error, error) {
	level := zap.NewAtomicLevel()
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, nil, fmt.Errorf("logging: invalid level %q: %w", opts.Level, err)
		}
	}

	pe := zap.NewProductionEncoderConfig()
	pe.EncodeTime = zapcore.ISO8601TimeEncoder
	pe.MessageKey = "message"
	pe.TimeKey = "time"

	var (
		cores []zapcore.Core
		file  *os.File
	)
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0700); err != nil {
			return nil, nil, fmt.Errorf("logging: create log dir: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("logging: open log file: %w", err)
		}
		file = f
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(pe), zapcore.AddSync(f), level))
	}
	if opts.Console {
		ce := pe
		ce.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(ce), zapcore.AddSync(colorable.NewColorableStderr()), level))
	}
	if len(cores) == 0 {
		return zap.NewNop(), func() error { return nil }, nil
	}
	logger := zap.New(zapcore.NewTee(cores...), zap.Fields(opts.Fields...))

	var (
		once     sync.Once
		closeErr error
	)
	closeFn := func() error {
		once.Do(func() {
			// Console sync errors are ignored.
			_ = logger.Sync()
			if file != nil {
				closeErr = file.Close()
			}
		})
		return closeErr
	}
	return logger, closeFn, nil
}

// Install builds a logger and makes it the global zap logger. The close func
// restores the previous global logger before releasing the sinks.
func Install(opts Options) (*zap.Logger, func() error, error) {
	logger, closeFn, err := New(opts)
	if err != nil {
		return nil, nil, err
	}
	restore := zap.ReplaceGlobals(logger)
	var once sync.Once
	return logger, func() error {
		once.Do(restore)
		return closeFn()
	}, nil
}
