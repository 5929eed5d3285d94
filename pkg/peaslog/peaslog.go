// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

// Package peaslog wires the --log and --log-stderr flags to a zap logger.
// By default output goes to a timestamped file in the working directory so
// that an interactive run's terminal UI is never polluted by log lines.
package peaslog

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is one of the six verbosities the CLI accepts, plus Off which
// disables logging entirely.
type Level int

const (
	Off Level = iota
	Error
	Warn
	Info
	Debug
	Trace
	All
)

// ParseLevel maps the --log flag's string values onto a Level. Trace and
// All both bottom out at zap's most verbose (Debug) level, since zap has no
// finer granularity than that.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "off", "":
		return Off, nil
	case "error":
		return Error, nil
	case "warn":
		return Warn, nil
	case "info":
		return Info, nil
	case "debug":
		return Debug, nil
	case "trace":
		return Trace, nil
	case "all":
		return All, nil
	default:
		return Off, fmt.Errorf("peaslog: unknown level %q", s)
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case Error:
		return zapcore.ErrorLevel
	case Warn:
		return zapcore.WarnLevel
	case Info:
		return zapcore.InfoLevel
	case Debug, Trace, All:
		return zapcore.DebugLevel
	default:
		return zapcore.InvalidLevel
	}
}

// New builds a logger for level. If stderr is true, output goes to the
// process's standard error; otherwise it is appended to a file named
// peas-<unix-timestamp>.log in the current directory, mirroring the
// one-log-file-per-run convention of earlier revisions of this tool. Off
// returns zap.NewNop(), so callers never need to nil-check the result.
func New(level Level, stderr bool) (*zap.Logger, error) {
	if level == Off {
		return zap.NewNop(), nil
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewConsoleEncoder(encoderCfg)

	var sink zapcore.WriteSyncer
	if stderr {
		sink = zapcore.Lock(os.Stderr)
	} else {
		name := fmt.Sprintf("peas-%d.log", time.Now().Unix())
		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("peaslog: could not open log file: %w", err)
		}
		sink = zapcore.Lock(f)
	}

	core := zapcore.NewCore(encoder, sink, level.zapLevel())
	return zap.New(core), nil
}
