package jsvm

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

const defaultFilename = "<engine>"

// Engine is the simple way to run javascript: one VM, a persistent global
// scope, and results copied out as Data.
//
//	e, err := jsvm.NewEngine()
//	if err != nil { ... }
//	defer e.Close()
//	res, err := e.Execute("1+1") // jsvm.Int(2)
//
// An Engine is either live or disposed. Close disposes it; every other method
// on a disposed Engine returns ErrDisposed. A failing script does not dispose
// the Engine.
type Engine struct {
	mu  sync.Mutex
	iso *Isolate
	ctx *Context
	// running mirrors iso for Terminate, which cannot take mu.
	running atomic.Pointer[Isolate]

	log       *zap.Logger
	snapshot  *Snapshot
	filename  string
	normalize bool
	form      norm.Form
}

// NewEngine creates an Engine. No options are required.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{filename: defaultFilename}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	if e.log == nil {
		e.log = Logger()
	}

	if e.snapshot != nil {
		e.iso = NewIsolateWithSnapshot(e.snapshot)
	} else {
		e.iso = NewIsolate()
	}
	e.ctx = e.iso.NewContext()
	e.ctx.log = e.log
	e.running.Store(e.iso)

	e.log.Debug("engine created", zap.Int("context", e.ctx.id))
	return e, nil
}

// Execute compiles and runs source in the engine's global scope and returns
// the value of the last statement. Variables and functions declared at the
// top level stay defined for later calls.
//
// Parse errors and uncaught exceptions are returned as *ScriptError.
func (e *Engine) Execute(source string) (Data, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	res, err := e.eval(source, e.filename)
	if err != nil {
		return nil, err
	}
	return res.Export()
}

// Run executes source like Execute but discards its result, so scripts that
// end in a value with no Data form still succeed. filename is reported in
// errors and stack traces.
func (e *Engine) Run(source, filename string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.eval(source, filename)
	return err
}

func (e *Engine) eval(source, filename string) (*Value, error) {
	if e.ctx == nil {
		return nil, ErrDisposed
	}
	if e.normalize {
		source = e.form.String(source)
	}
	return e.ctx.Eval(source, filename)
}

// SetValue binds name in the global scope to value, replacing any previous
// binding. value may be anything Context.Create accepts; nil binds null.
func (e *Engine) SetValue(name string, value interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctx == nil {
		return ErrDisposed
	}
	if name == "" {
		return errors.New("jsvm: empty global name")
	}
	if value == nil {
		value = Null{}
	}
	val, err := e.ctx.Create(value)
	if err != nil {
		return fmt.Errorf("jsvm: cannot convert value for %q: %w", name, err)
	}
	return e.ctx.Global().Set(name, val)
}

// GetValue returns the global named name, or Undefined if there is none.
func (e *Engine) GetValue(name string) (Data, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctx == nil {
		return nil, ErrDisposed
	}
	val, err := e.ctx.Global().Get(name)
	if err != nil {
		return nil, err
	}
	return val.Export()
}

// Context returns the engine's context for lower level work such as binding
// callbacks, or nil once the engine is closed. Do not close it directly.
func (e *Engine) Context() *Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctx
}

// Terminate interrupts a running Execute. It may be called from any
// goroutine.
func (e *Engine) Terminate() {
	if iso := e.running.Load(); iso != nil {
		iso.Terminate()
	}
}

// Close releases the engine's VM. It is safe to call more than once; only
// the first call does anything.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctx == nil {
		return nil
	}
	id := e.ctx.id
	e.running.Store(nil)
	err := multierr.Append(e.ctx.Close(), e.iso.Close())
	e.ctx, e.iso = nil, nil
	e.log.Debug("engine closed", zap.Int("context", id), zap.Error(err))
	return err
}
