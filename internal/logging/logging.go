/*
 * MIT License
 *
 * Copyright (c) 2026 staticd contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

// Package logging wraps logrus behind a small, process-scoped Logger
// interface. One Logger lives per process (the acceptor, and each
// worker); it is distinct from the batched CLF access log in
// internal/accesslog, which never goes through logrus.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Level mirrors the handful of severities this server actually emits.
type Level uint8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) logrus() logrus.Level {
	switch l {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Logger is the structured logging surface used by the acceptor and
// worker runtimes.
type Logger interface {
	// WithField returns a derived Logger that always attaches key/val.
	WithField(key string, val any) Logger

	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)

	SetLevel(lvl Level)
}

// FuncLog lazily produces a Logger, used for dependency injection the
// same way the teacher's logger.FuncLog factory type is threaded through
// component constructors.
type FuncLog func() Logger

type logger struct {
	e *logrus.Entry
}

// New builds a Logger writing structured lines to w (stderr in
// production, a buffer in tests), tagging every line with role/worker
// fields so acceptor and worker output can be told apart when
// interleaved on a shared terminal.
func New(w io.Writer, role string, fields logrus.Fields) Logger {
	base := logrus.New()
	base.SetOutput(w)
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	f := logrus.Fields{"role": role}
	for k, v := range fields {
		f[k] = v
	}

	return &logger{e: base.WithFields(f)}
}

// Default builds a Logger writing to os.Stderr.
func Default(role string, fields logrus.Fields) Logger {
	return New(os.Stderr, role, fields)
}

func (l *logger) WithField(key string, val any) Logger {
	return &logger{e: l.e.WithField(key, val)}
}

func (l *logger) Debug(args ...any) { l.e.Debug(args...) }
func (l *logger) Info(args ...any)  { l.e.Info(args...) }
func (l *logger) Warn(args ...any)  { l.e.Warn(args...) }
func (l *logger) Error(args ...any) { l.e.Error(args...) }

func (l *logger) SetLevel(lvl Level) {
	l.e.Logger.SetLevel(lvl.logrus())
}
