// Copyright 2025 The Rivaas Authors
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

package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// HandlerType selects the output format.
type HandlerType string

const (
	// JSONHandler writes one JSON object per record.
	JSONHandler HandlerType = "json"
	// TextHandler writes key=value records.
	TextHandler HandlerType = "text"
	// ConsoleHandler writes colored, human-readable records.
	ConsoleHandler HandlerType = "console"
)

// ParseHandlerType parses "json", "text" or "console".
func ParseHandlerType(s string) (HandlerType, error) {
	switch t := HandlerType(strings.ToLower(strings.TrimSpace(s))); t {
	case JSONHandler, TextHandler, ConsoleHandler:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidHandler, s)
	}
}

// Level is a log level.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// ParseLevel parses a level name such as "debug" or "WARN".
func ParseLevel(s string) (Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}

	return l, nil
}

var defaultRedactKeys = []string{"password", "token", "secret", "api_key", "authorization"}

const redacted = "***REDACTED***"

// Logger owns a configured [slog.Logger] and its level.
//
// A Logger is safe for concurrent use.
type Logger struct {
	handlerType    HandlerType
	output         io.Writer
	level          slog.LevelVar
	serviceName    string
	serviceVersion string
	environment    string
	addSource      bool
	traceIDs       bool
	color          *bool
	redact         map[string]struct{}
	replaceAttr    func(groups []string, a slog.Attr) slog.Attr

	slogger *slog.Logger
}

// Option configures a [Logger].
type Option func(*Logger)

func defaultLogger() *Logger {
	l := &Logger{
		handlerType: JSONHandler,
		output:      os.Stderr,
		redact:      make(map[string]struct{}, len(defaultRedactKeys)),
	}
	l.level.Set(LevelInfo)
	for _, k := range defaultRedactKeys {
		l.redact[k] = struct{}{}
	}

	return l
}

// New creates a Logger.
func New(opts ...Option) (*Logger, error) {
	l := defaultLogger()
	for _, opt := range opts {
		opt(l)
	}
	if l.output == nil {
		return nil, ErrNilOutput
	}

	hopts := &slog.HandlerOptions{
		Level:       &l.level,
		AddSource:   l.addSource,
		ReplaceAttr: l.replace,
	}
	var h slog.Handler
	switch l.handlerType {
	case JSONHandler:
		h = slog.NewJSONHandler(l.output, hopts)
	case TextHandler:
		h = slog.NewTextHandler(l.output, hopts)
	case ConsoleHandler:
		color := isTerminal(l.output)
		if l.color != nil {
			color = *l.color
		}
		h = newConsoleHandler(l.output, hopts, color)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidHandler, l.handlerType)
	}
	if l.traceIDs {
		h = traceHandler{Handler: h}
	}

	sl := slog.New(h)
	var attrs []any
	if l.serviceName != "" {
		attrs = append(attrs, "service", l.serviceName)
	}
	if l.serviceVersion != "" {
		attrs = append(attrs, "version", l.serviceVersion)
	}
	if l.environment != "" {
		attrs = append(attrs, "env", l.environment)
	}
	if len(attrs) > 0 {
		sl = sl.With(attrs...)
	}
	l.slogger = sl

	return l, nil
}

// MustNew is like [New] but panics on error.
func MustNew(opts ...Option) *Logger {
	l, err := New(opts...)
	if err != nil {
		panic("logging: " + err.Error())
	}

	return l
}

// Logger returns the configured [slog.Logger].
func (l *Logger) Logger() *slog.Logger {
	return l.slogger
}

// With returns the logger with additional attributes.
func (l *Logger) With(args ...any) *slog.Logger {
	return l.slogger.With(args...)
}

// SetLevel changes the minimum level of l and every logger derived from it.
func (l *Logger) SetLevel(level Level) {
	l.level.Set(level)
}

// Level returns the current minimum level.
func (l *Logger) Level() Level {
	return l.level.Level()
}

// ServiceName returns the service name added to every record.
func (l *Logger) ServiceName() string {
	return l.serviceName
}

func (l *Logger) replace(groups []string, a slog.Attr) slog.Attr {
	if _, ok := l.redact[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, redacted)
	}
	if l.replaceAttr != nil {
		return l.replaceAttr(groups, a)
	}

	return a
}
