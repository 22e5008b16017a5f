// Package jsconsole gives javascript running in a jsvm Context a console
// object.
//
// It supports console.log, console.info, console.debug, console.warn and
// console.error, printing the string form of every argument. Warnings and
// errors are prefixed with the calling script location and can be colored.
// Chrome's %c styling is not supported.
//
// Every console line can also be mirrored to a zap logger, so scripts show up
// in the host program's structured logs.
package jsconsole

import (
	"fmt"
	"io"
	"strings"

	"github.com/augustoroman/jsvm"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	colorReset  = "\033[0m"
	colorNone   = ""
	colorRed    = "\033[91m"
	colorYellow = "\033[93m"
)

// Config holds configuration for a particular console instance.
type Config struct {
	// Prefix to prepend to every log message.
	Prefix string
	// Destination for all .log, .info and .debug calls. Nil discards them.
	Stdout io.Writer
	// Destination for all .warn and .error calls. Nil discards them.
	Stderr io.Writer
	// Whether to enable ANSI color escape codes in the output.
	Colorize bool
	// Logger, if set, receives every console line as a log entry at the
	// matching level.
	Logger *zap.Logger
}

type method struct {
	name     string
	callback jsvm.Callback
}

func (c Config) methods() []method {
	return []method{
		{"log", c.Info},
		{"info", c.Info},
		{"debug", c.Debug},
		{"warn", c.Warn},
		{"error", c.Error},
	}
}

// Inject sets the global "console" object of ctx so that its logging methods
// call this Config. If a console object already exists, only the logging
// methods are replaced and any other properties are kept.
func (c Config) Inject(ctx *jsvm.Context) error {
	global := ctx.Global()
	if global == nil {
		return jsvm.ErrDisposed
	}
	ob, err := global.Get("console")
	if err != nil {
		return err
	}
	if !ob.IsKind(jsvm.KindObject) || ob.IsKind(jsvm.KindFunction) {
		if ob, err = ctx.Create(map[string]interface{}{}); err != nil {
			return fmt.Errorf("jsconsole: cannot create console object: %w", err)
		}
	}
	for _, m := range c.methods() {
		if err := ob.Set(m.name, ctx.Bind(m.name, m.callback)); err != nil {
			return fmt.Errorf("jsconsole: cannot set console.%s: %w", m.name, err)
		}
	}
	return global.Set("console", ob)
}

func (c Config) write(w io.Writer, color, line string) {
	if w == nil {
		return
	}
	colored := color != colorNone && c.Colorize
	var b strings.Builder
	if colored {
		b.WriteString(color)
	}
	b.WriteString(c.Prefix)
	b.WriteString(line)
	if colored {
		b.WriteString(colorReset)
	}
	b.WriteByte('\n')
	io.WriteString(w, b.String())
}

func (c Config) mirror(level zapcore.Level, in jsvm.CallbackArgs, msg string) {
	if c.Logger == nil {
		return
	}
	if ce := c.Logger.Check(level, msg); ce != nil {
		ce.Write(
			zap.String("source", "console"),
			zap.String("file", in.Caller.Filename),
			zap.Int("line", in.Caller.Line),
		)
	}
}

func join(args []*jsvm.Value) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = arg.String()
	}
	return strings.Join(parts, " ")
}

func withLoc(caller jsvm.Loc, msg string) string {
	return fmt.Sprintf("[%s:%d] %s", caller.Filename, caller.Line, msg)
}

// Info is the callback registered for console.log and console.info.
func (c Config) Info(in jsvm.CallbackArgs) (*jsvm.Value, error) {
	msg := join(in.Args)
	c.write(c.Stdout, colorNone, msg)
	c.mirror(zapcore.InfoLevel, in, msg)
	return nil, nil
}

// Debug is the callback registered for console.debug. It prints like Info
// but is mirrored at debug level.
func (c Config) Debug(in jsvm.CallbackArgs) (*jsvm.Value, error) {
	msg := join(in.Args)
	c.write(c.Stdout, colorNone, msg)
	c.mirror(zapcore.DebugLevel, in, msg)
	return nil, nil
}

// Warn is the callback registered for console.warn.
func (c Config) Warn(in jsvm.CallbackArgs) (*jsvm.Value, error) {
	msg := join(in.Args)
	c.write(c.Stderr, colorYellow, withLoc(in.Caller, msg))
	c.mirror(zapcore.WarnLevel, in, msg)
	return nil, nil
}

// Error is the callback registered for console.error.
func (c Config) Error(in jsvm.CallbackArgs) (*jsvm.Value, error) {
	msg := join(in.Args)
	c.write(c.Stderr, colorRed, withLoc(in.Caller, msg))
	c.mirror(zapcore.ErrorLevel, in, msg)
	return nil, nil
}
