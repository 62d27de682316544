// Package rlog wraps zap + lumberjack into the process-level logger that
// cmd/cli writes through (workers write their per-query trace to the
// io.Writer passed to Worker.Resolve instead), grounded on treemana-godot's log
// package — same encoder config and rotation knobs, returned instead of
// stashed in package globals since this is a library, not a daemon.
package rlog

import (
	"errors"
	"os"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config configures the logger's sinks and verbosity.
type Config struct {
	Stdout     bool
	File       string // log output file path, empty means no log file
	Level      zapcore.Level
	MaxAgeDays int
	MaxSizeMB  int
	MaxBackups int
	Compress   bool
	JSON       bool
}

// New builds a *zap.Logger from cfg. At least one of Stdout or File must
// be set.
func New(cfg Config) (*zap.Logger, error) {
	var syncers []zapcore.WriteSyncer
	if cfg.File != "" {
		hook := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxAge:     cfg.MaxAgeDays,
			MaxBackups: cfg.MaxBackups,
			Compress:   cfg.Compress,
		}
		syncers = append(syncers, zapcore.AddSync(hook))
	}
	if cfg.Stdout {
		syncers = append(syncers, zapcore.AddSync(os.Stdout))
	}
	if len(syncers) == 0 {
		return nil, errors.New("rlog: at least one write syncer required")
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "T",
		LevelKey:       "L",
		NameKey:        "N",
		CallerKey:      "C",
		MessageKey:     "M",
		StacktraceKey:  "S",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}

	var enc zapcore.Encoder
	if cfg.JSON {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.NewMultiWriteSyncer(syncers...), cfg.Level)
	return zap.New(core, zap.AddCaller()), nil
}

// Nop returns a logger that discards everything, for tests and callers
// that don't want the demonstration CLI's stderr trace.
func Nop() *zap.Logger { return zap.NewNop() }
