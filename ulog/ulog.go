// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package ulog is a small logging facade used throughout uadetect,
// shaped after github.com/saferwall/pe/log (NewStdLogger, NewHelper,
// NewFilter, FilterLevel) but backed by go.uber.org/zap instead of a
// bespoke leveled logger.
package ulog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level mirrors pe/log's Level enum.
type Level int8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// Logger is the minimal structured-logging surface uadetect depends
// on, implemented by *zap.SugaredLogger underneath.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Helper wraps a Logger the way pe/log.Helper wraps a Logger, adding
// no behavior beyond delegation; it exists so call sites can depend on
// a concrete type instead of the interface, matching the teacher's
// NewHelper(logger) pattern.
type Helper struct {
	log Logger
}

// NewHelper returns a Helper delegating to log. A nil log is replaced
// with a no-op logger so Helper is always safe to call.
func NewHelper(log Logger) *Helper {
	if log == nil {
		log = NewNopLogger()
	}
	return &Helper{log: log}
}

func (h *Helper) Debugf(format string, args ...interface{}) { h.log.Debugf(format, args...) }
func (h *Helper) Infof(format string, args ...interface{})  { h.log.Infof(format, args...) }
func (h *Helper) Warnf(format string, args ...interface{})  { h.log.Warnf(format, args...) }
func (h *Helper) Errorf(format string, args ...interface{}) { h.log.Errorf(format, args...) }

type zapLogger struct {
	s *zap.SugaredLogger
}

func (z *zapLogger) Debugf(format string, args ...interface{}) { z.s.Debugf(format, args...) }
func (z *zapLogger) Infof(format string, args ...interface{})  { z.s.Infof(format, args...) }
func (z *zapLogger) Warnf(format string, args ...interface{})  { z.s.Warnf(format, args...) }
func (z *zapLogger) Errorf(format string, args ...interface{}) { z.s.Errorf(format, args...) }

// NewStdLogger returns a Logger writing to os.Stderr, mirroring
// pe/log.NewStdLogger(os.Stdout) but defaulting to stderr as is
// idiomatic for a library's diagnostic output.
func NewStdLogger() Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(os.Stderr), zapcore.DebugLevel)
	return &zapLogger{s: zap.New(core).Sugar()}
}

// NewFilter wraps log so that only records at or above level are
// emitted, mirroring pe/log.NewFilter + FilterLevel.
func NewFilter(log Logger, level Level) Logger {
	return &filteredLogger{log: log, level: level}
}

type filteredLogger struct {
	log   Logger
	level Level
}

func (f *filteredLogger) Debugf(format string, args ...interface{}) {
	if f.level <= LevelDebug {
		f.log.Debugf(format, args...)
	}
}
func (f *filteredLogger) Infof(format string, args ...interface{}) {
	if f.level <= LevelInfo {
		f.log.Infof(format, args...)
	}
}
func (f *filteredLogger) Warnf(format string, args ...interface{}) {
	if f.level <= LevelWarn {
		f.log.Warnf(format, args...)
	}
}
func (f *filteredLogger) Errorf(format string, args ...interface{}) {
	if f.level <= LevelError {
		f.log.Errorf(format, args...)
	}
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

// NewNopLogger returns a Logger that discards everything, the default
// a Dataset/Provider falls back to when no logger is configured.
func NewNopLogger() Logger { return nopLogger{} }
