// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// RmvbConv - RMVB 转 MP4 视频转换工具

package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Logger provides a simple logging interface
type Logger interface {
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	Debug(format string, args ...interface{})
	// With returns a logger that prefixes every message
	With(prefix string) Logger
}

// Config for the process-wide logger
type Config struct {
	// File is an append-only log file. Empty disables file output.
	File  string
	Level string
	// Console receives the same records as File. Defaults to os.Stderr.
	Console io.Writer
}

type defaultLogger struct {
	entry  *logrus.Logger
	prefix string
}

// New creates a logger writing to the console and, if configured, to a log file.
// The returned closer releases the log file.
func New(prefix string, config Config) (Logger, io.Closer, error) {
	level := logrus.InfoLevel
	if config.Level != "" {
		var err error
		level, err = logrus.ParseLevel(config.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid log level: %w", err)
		}
	}

	console := config.Console
	if console == nil {
		console = os.Stderr
	}

	var out io.Writer = console
	var closer io.Closer = nopCloser{}
	if config.File != "" {
		if dir := filepath.Dir(config.File); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create log dir: %w", err)
			}
		}
		f, err := os.OpenFile(config.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(console, f)
		closer = f
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		DisableColors:   true,
	})

	return &defaultLogger{entry: l, prefix: withColon(prefix)}, closer, nil
}

// Nop returns a logger that discards everything
func Nop() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &defaultLogger{entry: l}
}

func (l *defaultLogger) Info(format string, args ...interface{}) {
	l.entry.Infof(l.prefix+format, args...)
}

func (l *defaultLogger) Warn(format string, args ...interface{}) {
	l.entry.Warnf(l.prefix+format, args...)
}

func (l *defaultLogger) Error(format string, args ...interface{}) {
	l.entry.Errorf(l.prefix+format, args...)
}

func (l *defaultLogger) Debug(format string, args ...interface{}) {
	l.entry.Debugf(l.prefix+format, args...)
}

func (l *defaultLogger) With(prefix string) Logger {
	return &defaultLogger{entry: l.entry, prefix: l.prefix + withColon(prefix)}
}

func withColon(prefix string) string {
	if prefix == "" {
		return ""
	}
	return prefix + ": "
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
