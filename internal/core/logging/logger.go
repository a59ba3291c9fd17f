// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-12
// Last Modified: 2026-10-15

// Package logging provides the per-event logger that masks secrets before
// anything reaches the underlying sink.
package logging

import (
	"fmt"
	"io"
	"log"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
)

// NewStdLogger returns a logr.Logger backed by the standard log package.
func NewStdLogger(w io.Writer, verbosity int) logr.Logger {
	stdr.SetVerbosity(verbosity)
	return stdr.New(log.New(w, "", log.LstdFlags))
}

// Logger is a logr.Logger whose output is redacted against its own SecretSet.
// Construct one per event; never share it across events.
type Logger struct {
	logr.Logger
	secrets *SecretSet
}

// New wraps base with a fresh SecretSet. Every line carries the installation ID.
func New(base logr.Logger, installationID int64) *Logger {
	secrets := NewSecretSet()

	inner := base.GetSink()
	if inner == nil {
		return &Logger{Logger: base, secrets: secrets}
	}
	if cd, ok := inner.(logr.CallDepthLogSink); ok {
		inner = cd.WithCallDepth(1)
	}

	l := logr.New(&redactingSink{inner: inner, secrets: secrets})
	return &Logger{
		Logger:  l.WithValues("installation", installationID),
		secrets: secrets,
	}
}

// AddSecret marks values as sensitive for all subsequent lines.
func (l *Logger) AddSecret(values ...string) {
	l.secrets.Add(values...)
}

// Secrets exposes the logger's SecretSet.
func (l *Logger) Secrets() *SecretSet {
	return l.secrets
}

// Warn logs at info level tagged with severity=warning.
func (l *Logger) Warn(msg string, keysAndValues ...any) {
	kv := make([]any, 0, len(keysAndValues)+2)
	kv = append(kv, keysAndValues...)
	kv = append(kv, "severity", "warning")
	l.Logger.WithCallDepth(1).Info(msg, kv...)
}

type redactingSink struct {
	inner   logr.LogSink
	secrets *SecretSet
}

var _ logr.CallDepthLogSink = (*redactingSink)(nil)

// Init is a no-op: the wrapped sink was initialized by its own logger.
func (s *redactingSink) Init(logr.RuntimeInfo) {}

func (s *redactingSink) Enabled(level int) bool {
	return s.inner.Enabled(level)
}

func (s *redactingSink) Info(level int, msg string, keysAndValues ...any) {
	s.inner.Info(level, s.secrets.Redact(msg), s.redactValues(keysAndValues)...)
}

func (s *redactingSink) Error(err error, msg string, keysAndValues ...any) {
	if err != nil {
		err = &redactedError{msg: s.secrets.Redact(err.Error()), err: err}
	}
	s.inner.Error(err, s.secrets.Redact(msg), s.redactValues(keysAndValues)...)
}

func (s *redactingSink) WithValues(keysAndValues ...any) logr.LogSink {
	return &redactingSink{inner: s.inner.WithValues(s.redactValues(keysAndValues)...), secrets: s.secrets}
}

func (s *redactingSink) WithName(name string) logr.LogSink {
	return &redactingSink{inner: s.inner.WithName(name), secrets: s.secrets}
}

func (s *redactingSink) WithCallDepth(depth int) logr.LogSink {
	inner := s.inner
	if cd, ok := inner.(logr.CallDepthLogSink); ok {
		inner = cd.WithCallDepth(depth)
	}
	return &redactingSink{inner: inner, secrets: s.secrets}
}

// redactValues masks the value half of each key/value pair.
func (s *redactingSink) redactValues(keysAndValues []any) []any {
	if len(keysAndValues) == 0 {
		return keysAndValues
	}
	out := make([]any, len(keysAndValues))
	for i, v := range keysAndValues {
		if i%2 == 0 {
			out[i] = v
			continue
		}
		out[i] = s.redactValue(v)
	}
	return out
}

func (s *redactingSink) redactValue(v any) any {
	switch val := v.(type) {
	case string:
		return s.secrets.Redact(val)
	case []string:
		redacted := make([]string, len(val))
		for i, str := range val {
			redacted[i] = s.secrets.Redact(str)
		}
		return redacted
	case error:
		return s.secrets.Redact(val.Error())
	case fmt.Stringer:
		return s.secrets.Redact(val.String())
	default:
		return v
	}
}

// RedactError returns err with every registered secret masked in its text.
// The original remains reachable through errors.Is and errors.As.
func (l *Logger) RedactError(err error) error {
	if err == nil {
		return nil
	}
	return &redactedError{msg: l.secrets.Redact(err.Error()), err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string {
	return e.msg
}

func (e *redactedError) Unwrap() error {
	return e.err
}
