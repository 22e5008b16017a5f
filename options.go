package jsvm

import (
	"errors"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger makes the engine and its context log to l instead of the
// package logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) error {
		if l == nil {
			return errors.New("jsvm: nil logger")
		}
		e.log = l
		return nil
	}
}

// WithSnapshot starts the engine from the state produced by s.
func WithSnapshot(s *Snapshot) Option {
	return func(e *Engine) error {
		if s == nil {
			return errors.New("jsvm: nil snapshot")
		}
		e.snapshot = s
		return nil
	}
}

// WithFilename sets the script name reported in errors and stack traces for
// code run through Execute. The default is "<engine>".
func WithFilename(name string) Option {
	return func(e *Engine) error {
		if name == "" {
			return errors.New("jsvm: filename cannot be empty")
		}
		e.filename = name
		return nil
	}
}

// WithSourceNormalization rewrites every script into the given Unicode
// normalization form before compiling it, so that identifiers typed in
// composed and decomposed form name the same variable. String literals are
// normalized too.
func WithSourceNormalization(form norm.Form) Option {
	return func(e *Engine) error {
		e.normalize = true
		e.form = form
		return nil
	}
}
