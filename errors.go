package jsvm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDisposed is returned by any operation on an Engine, Context or
	// Isolate that has already been closed.
	ErrDisposed = errors.New("jsvm: use of disposed context")
	// ErrNotFunction is returned by Value.Call and Value.New when the value
	// cannot be called.
	ErrNotFunction = errors.New("Not a function")
	// ErrNotObject is returned when reading or writing properties of a
	// primitive value.
	ErrNotObject = errors.New("Not an object")
	// ErrForeignValue is returned when an object value from one Context is
	// handed to another.
	ErrForeignValue = errors.New("value belongs to a different context")
)

// Phase tells where a script failed.
type Phase uint8

const (
	// PhaseCompile is a parse or early error: nothing ran.
	PhaseCompile Phase = iota
	// PhaseRuntime is an exception thrown while the script was running.
	PhaseRuntime
	// PhaseTerminated means execution was interrupted by Terminate.
	PhaseTerminated
	kNumPhases
)

var phaseStrings = [kNumPhases]string{"compile", "runtime", "terminated"}

func (p Phase) String() string {
	if p >= kNumPhases {
		return fmt.Sprintf("InvalidPhase:%d", int(p))
	}
	return phaseStrings[p]
}

// ScriptError is the single error type for failures inside javascript,
// whether the code failed to compile or threw while running. Use errors.As
// to get at it:
//
//	var serr *jsvm.ScriptError
//	if errors.As(err, &serr) && serr.Phase == jsvm.PhaseCompile { ... }
type ScriptError struct {
	Phase Phase
	// Message is the stringified thrown value, e.g. "Error: oops" for
	// `throw new Error('oops')` or "oops" for `throw 'oops'`.
	Message string
	// Location of the failure, when known.
	Location Loc
	// Stack is the javascript stack trace, when available.
	Stack string
	// Cause is the engine's original error.
	Cause error
}

func (e *ScriptError) Error() string {
	var b strings.Builder
	b.WriteString("Uncaught exception: ")
	b.WriteString(e.Message)
	if e.Location.Filename != "" {
		fmt.Fprintf(&b, "\nat %s:%d:%d", e.Location.Filename, e.Location.Line, e.Location.Column)
	}
	if e.Stack != "" {
		b.WriteString("\nStack trace: ")
		b.WriteString(e.Stack)
	}
	return b.String()
}

func (e *ScriptError) Unwrap() error { return e.Cause }

// IsScriptError reports whether err is, or wraps, a *ScriptError.
func IsScriptError(err error) bool {
	var serr *ScriptError
	return errors.As(err, &serr)
}
