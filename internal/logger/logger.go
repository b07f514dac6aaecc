// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logger provides structured logging for the daemon-facing
// operations layer. Severity follows cfg.LogSeverity; output is either
// logfmt-ish text or JSON, both built on log/slog.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/coremount/vnodefs/cfg"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Custom levels give TRACE a slot below slog's DEBUG and OFF a slot above
// ERROR, so a single slog.LevelVar can gate all six severities.
const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
	LevelOff   = slog.Level(12)
)

const (
	timeLayout            = "2006/01/02 15:04:05.000000"
	asyncLoggerBufferSize = 1000
)

type loggerFactory struct {
	mu              sync.Mutex
	file            *os.File
	sysWriter       io.Writer
	format          string
	level           cfg.LogSeverity
	logRotateConfig cfg.LogRotateLoggingConfig
}

func (f *loggerFactory) createJsonOrTextHandler(w io.Writer, level *slog.LevelVar, prefix string) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceAttr(f.format, prefix),
	}
	if f.format == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

func replaceAttr(format, prefix string) func([]string, slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		switch a.Key {
		case slog.TimeKey:
			t := a.Value.Time()
			if format == "text" {
				return slog.String(slog.TimeKey, t.Format(timeLayout))
			}
			return slog.Attr{
				Key: "timestamp",
				Value: slog.GroupValue(
					slog.Int64("seconds", t.Unix()),
					slog.Int64("nanos", int64(t.Nanosecond())),
				),
			}
		case slog.LevelKey:
			return slog.String("severity", severityLabel(a.Value.Any().(slog.Level)))
		case slog.MessageKey:
			return slog.String("message", prefix+a.Value.String())
		}
		return a
	}
}

func severityLabel(l slog.Level) string {
	switch {
	case l < LevelDebug:
		return "TRACE"
	case l < LevelInfo:
		return "DEBUG"
	case l < LevelWarn:
		return "INFO"
	case l < LevelError:
		return "WARNING"
	default:
		return "ERROR"
	}
}

func setLoggingLevel(level string, programLevel *slog.LevelVar) {
	switch cfg.LogSeverity(strings.ToUpper(level)) {
	case cfg.TraceLogSeverity:
		programLevel.Set(LevelTrace)
	case cfg.DebugLogSeverity:
		programLevel.Set(LevelDebug)
	case cfg.WarningLogSeverity:
		programLevel.Set(LevelWarn)
	case cfg.ErrorLogSeverity:
		programLevel.Set(LevelError)
	case cfg.OffLogSeverity:
		programLevel.Set(LevelOff)
	default:
		programLevel.Set(LevelInfo)
	}
}

var (
	defaultLoggerFactory = &loggerFactory{
		level:  cfg.InfoLogSeverity,
		format: "json",
		logRotateConfig: cfg.LogRotateLoggingConfig{
			MaxFileSizeMb:   512,
			BackupFileCount: 10,
			Compress:        true,
		},
	}
	defaultLevelVar = newLevelVarFor(cfg.InfoLogSeverity)
	defaultLogger   = slog.New(defaultLoggerFactory.createJsonOrTextHandler(os.Stderr, defaultLevelVar, ""))
)

func newLevelVarFor(sev cfg.LogSeverity) *slog.LevelVar {
	v := new(slog.LevelVar)
	setLoggingLevel(string(sev), v)
	return v
}

// InitLogFile points the default logger at the file named by lc.FilePath,
// rotating it via lumberjack and writing through an AsyncLogger so that log
// calls never block on disk I/O. An empty FilePath leaves logging on stderr.
func InitLogFile(lc cfg.LoggingConfig) error {
	defaultLoggerFactory.mu.Lock()
	defer defaultLoggerFactory.mu.Unlock()

	defaultLoggerFactory.format = lc.Format
	defaultLoggerFactory.level = lc.Severity
	defaultLoggerFactory.logRotateConfig = lc.LogRotate

	var w io.Writer = os.Stderr
	if lc.FilePath != "" {
		f, err := os.OpenFile(string(lc.FilePath), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defaultLoggerFactory.file = f
		lj := &lumberjack.Logger{
			Filename:   string(lc.FilePath),
			MaxSize:    lc.LogRotate.MaxFileSizeMb,
			MaxBackups: lc.LogRotate.BackupFileCount,
			Compress:   lc.LogRotate.Compress,
		}
		w = NewAsyncLogger(lj, asyncLoggerBufferSize)
	}

	defaultLevelVar = newLevelVarFor(lc.Severity)
	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(w, defaultLevelVar, ""))
	return nil
}

// SetLogFormat switches the default logger between "text" and "json"
// (anything else is treated as "json") without disturbing the configured
// severity or output destination.
func SetLogFormat(format string) {
	defaultLoggerFactory.mu.Lock()
	defer defaultLoggerFactory.mu.Unlock()

	defaultLoggerFactory.format = format

	var w io.Writer = os.Stderr
	if defaultLoggerFactory.file != nil {
		w = defaultLoggerFactory.file
	}
	defaultLevelVar = newLevelVarFor(defaultLoggerFactory.level)
	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(w, defaultLevelVar, ""))
}

func Tracef(format string, v ...any) { log(LevelTrace, format, v...) }
func Debugf(format string, v ...any) { log(LevelDebug, format, v...) }
func Infof(format string, v ...any)  { log(LevelInfo, format, v...) }
func Warnf(format string, v ...any)  { log(LevelWarn, format, v...) }
func Errorf(format string, v ...any) { log(LevelError, format, v...) }

func log(level slog.Level, format string, v ...any) {
	defaultLogger.Log(context.Background(), level, fmt.Sprintf(format, v...))
}
