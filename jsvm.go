package jsvm

// Reference materials:
//   https://pkg.go.dev/github.com/dop251/goja
//   https://tc39.es/ecma262/#sec-date-objects

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// Callback is the signature for callback functions that are registered with a
// Context via Bind(). Never return a Value from a different Context. A
// return value of nil will return "undefined" to javascript. Returning an
// error will throw an exception. Panics are caught and thrown as errors so
// they never unwind through the javascript stack.
type Callback func(CallbackArgs) (*Value, error)

// CallbackArgs provide the context for handling a javascript callback into go.
// Caller is the script location that javascript is calling from. If the
// function is called directly from Go (e.g. via Call()), then "Caller" will be
// empty. Args are the arguments provided by the JS code.  Context is the
// context that initiated the call.
type CallbackArgs struct {
	Caller  Loc
	Args    []*Value
	Context *Context
}

// Arg returns the specified argument or "undefined" if it doesn't exist.
func (c *CallbackArgs) Arg(n int) *Value {
	if n < len(c.Args) && n >= 0 {
		return c.Args[n]
	}
	undef, _ := c.Context.Create(nil)
	return undef
}

// Loc defines a script location.
type Loc struct {
	Funcname, Filename string
	Line, Column       int
}

// PromiseState defines the state of a promise: either pending, resolved, or
// rejected. Promises that are pending have no result value yet. A promise that
// is resolved has a result value, and a promise that is rejected has a result
// value that is usually the error.
type PromiseState uint8

const (
	PromiseStatePending PromiseState = iota
	PromiseStateResolved
	PromiseStateRejected
	kNumPromiseStates
)

var promiseStateStrings = [kNumPromiseStates]string{"Pending", "Resolved", "Rejected"}

func (s PromiseState) String() string {
	if s >= kNumPromiseStates {
		return fmt.Sprintf("InvalidPromiseState:%d", int(s))
	}
	return promiseStateStrings[s]
}

// snapshotFilename is the script name reported for code run from a Snapshot.
const snapshotFilename = "<embedded>"

// Snapshot contains start-up code that every Context of an Isolate created
// with NewIsolateWithSnapshot runs before it is handed out. The code is
// compiled once and shared.
type Snapshot struct {
	src  string
	prog *goja.Program
}

// Export returns the snapshot source as a byte slice.
func (s *Snapshot) Export() []byte {
	return []byte(s.src)
}

// RestoreSnapshotFromExport creates a Snapshot from a byte slice that should
// have previous come from Snapshot.Export().
func RestoreSnapshotFromExport(data []byte) *Snapshot {
	return CreateSnapshot(string(data))
}

// CreateSnapshot creates a new Snapshot from the supplied JS code. Snapshots
// cannot have references to external code (no Go callbacks), so all of the
// initialization code must be pure JS and supplied at once as the arg to this
// function. Code that fails to compile or throws produces an empty snapshot.
func CreateSnapshot(js string) *Snapshot {
	prog, err := goja.Compile(snapshotFilename, js, false)
	if err != nil {
		Logger().Debug("snapshot does not compile", zap.Error(err))
		return &Snapshot{}
	}
	// Dry run so that throwing code is rejected up front rather than in
	// every context.
	if _, err := goja.New().RunProgram(prog); err != nil {
		Logger().Debug("snapshot code throws", zap.Error(err))
		return &Snapshot{}
	}
	return &Snapshot{src: js, prog: prog}
}

// Isolate is a family of Contexts that share start-up state and can be
// terminated together. Every Context is its own javascript VM: values are
// not shared between them, and different Contexts may run on different
// goroutines at the same time.
type Isolate struct {
	s      *Snapshot
	closed int32
}

// NewIsolate creates a new Isolate.
func NewIsolate() *Isolate {
	return &Isolate{}
}

// NewIsolateWithSnapshot creates a new Isolate using the supplied Snapshot
// to initialize all Contexts created from this Isolate.
func NewIsolateWithSnapshot(s *Snapshot) *Isolate {
	return &Isolate{s: s}
}

// NewContext creates a new, clean Context within this Isolate. Contexts
// created after the Isolate is closed are already disposed.
func (i *Isolate) NewContext() *Context {
	ctx := &Context{iso: i}
	if atomic.LoadInt32(&i.closed) != 0 {
		return ctx
	}
	ctx.vm = goja.New()

	contextsMutex.Lock()
	nextContextId++
	ctx.id = nextContextId
	contextsMutex.Unlock()

	trackLive(1)
	runtime.SetFinalizer(ctx, (*Context).finalize)

	if i.s != nil && i.s.prog != nil {
		if _, err := ctx.vm.RunProgram(i.s.prog); err != nil {
			ctx.logger().Warn("snapshot failed in new context", zap.Error(err))
		}
	}
	return ctx
}

// Terminate will interrupt all operation in this Isolate, interrupting any
// Contexts that are executing.  This may be called from any goroutine at any
// time.
func (i *Isolate) Terminate() {
	contextsMutex.RLock()
	defer contextsMutex.RUnlock()
	for _, ref := range contexts {
		if ref.iso == i {
			ref.vm.Interrupt(errTerminated)
		}
	}
}

// Close marks the Isolate as disposed: no more Contexts can be created from
// it. Contexts that are already open stay usable until they are closed.
func (i *Isolate) Close() error {
	if !atomic.CompareAndSwapInt32(&i.closed, 0, 1) {
		return ErrDisposed
	}
	i.s = nil
	return nil
}

var errTerminated = errors.New("execution terminated")

// live counts every Context that was created and not yet released.
var live int64

func trackLive(delta int64) {
	atomic.AddInt64(&live, delta)
	liveContextsGauge.Add(float64(delta))
}

// LiveContexts returns the number of Contexts in the process that have been
// created and not yet released, either by Close or by the garbage collector.
func LiveContexts() int {
	return int(atomic.LoadInt64(&live))
}

// Context is a sandboxed js environment with its own set of built-in objects
// and functions.  Values and javascript operations within a context are visible
// only within that context unless the Go code explicitly moves values from one
// context to another.
//
// A Context must only be used from one goroutine at a time; Terminate is the
// exception.
type Context struct {
	id  int
	iso *Isolate
	vm  *goja.Runtime
	log *zap.Logger
}

func (ctx *Context) logger() *zap.Logger {
	if ctx.log != nil {
		return ctx.log
	}
	return Logger()
}

// Eval runs the javascript code in the VM.  The filename parameter is
// informational only -- it is shown in javascript stack traces.
func (ctx *Context) Eval(jsCode, filename string) (*Value, error) {
	if ctx.vm == nil {
		return nil, ErrDisposed
	}
	start := time.Now()
	res, err := ctx.eval(jsCode, filename)
	elapsed := time.Since(start)

	evalDuration.Observe(elapsed.Seconds())
	outcome := outcomeOf(err)
	evalsTotal.WithLabelValues(outcome).Inc()
	ctx.logger().Debug("eval",
		zap.String("filename", filename),
		zap.String("outcome", outcome),
		zap.Duration("elapsed", elapsed))
	return res, err
}

func (ctx *Context) eval(jsCode, filename string) (*Value, error) {
	prog, err := goja.Compile(filename, jsCode, false)
	if err != nil {
		return nil, compileError(err)
	}
	return ctx.exec(func() (goja.Value, error) {
		return ctx.vm.RunProgram(prog)
	})
}

// exec runs f with this context registered as executing, so that Terminate
// can reach it.
func (ctx *Context) exec(f func() (goja.Value, error)) (*Value, error) {
	addRef(ctx)
	defer decRef(ctx)
	val, err := f()
	if err != nil {
		return nil, ctx.convertError(err)
	}
	return ctx.newValue(val), nil
}

func compileError(err error) *ScriptError {
	serr := &ScriptError{Phase: PhaseCompile, Message: err.Error(), Cause: err}
	var syntax *goja.CompilerSyntaxError
	if errors.As(err, &syntax) {
		serr.Message = "SyntaxError: " + syntax.Message
		if syntax.File != nil {
			pos := syntax.File.Position(syntax.Offset)
			serr.Location = Loc{Filename: pos.Filename, Line: pos.Line, Column: pos.Column}
		}
	}
	return serr
}

func (ctx *Context) convertError(err error) error {
	var (
		serr        *ScriptError
		interrupted *goja.InterruptedError
		exception   *goja.Exception
	)
	switch {
	case errors.As(err, &serr):
		return serr
	case errors.As(err, &interrupted):
		if ctx.vm != nil {
			ctx.vm.ClearInterrupt()
		}
		return &ScriptError{
			Phase:   PhaseTerminated,
			Message: fmt.Sprint(interrupted.Value()),
			Cause:   err,
		}
	case errors.As(err, &exception):
		msg := "undefined"
		if v := exception.Value(); v != nil {
			msg = ctx.safeString(v)
		}
		return &ScriptError{
			Phase:   PhaseRuntime,
			Message: msg,
			Stack:   exception.String(),
			Cause:   err,
		}
	}
	return &ScriptError{Phase: PhaseRuntime, Message: err.Error(), Cause: err}
}

// catch runs f and turns a javascript exception that escapes through the Go
// API (a throwing getter, toString, valueOf, ...) into an error. f may run
// script, so the context is registered as executing for Terminate.
func (ctx *Context) catch(f func()) (err error) {
	addRef(ctx)
	defer decRef(ctx)
	defer func() {
		if x := recover(); x != nil {
			switch e := x.(type) {
			case *goja.Exception:
				err = ctx.convertError(e)
			case *goja.InterruptedError:
				err = ctx.convertError(e)
			case goja.Value:
				err = &ScriptError{Phase: PhaseRuntime, Message: ctx.safeString(e)}
			default:
				panic(x)
			}
		}
	}()
	f()
	return nil
}

func (ctx *Context) safeString(v goja.Value) (str string) {
	defer func() {
		if x := recover(); x != nil {
			str = fmt.Sprintf("<toString failed: %v>", x)
		}
	}()
	return v.String()
}

// Bind creates a function value that calls a Go function when invoked. This
// value is created but NOT visible in the Context until it is explicitly passed
// to the Context (either via a .Set() call or as a callback return value).
//
// The name that is provided is the name of the defined javascript function, and
// generally doesn't affect anything. That is, for a call such as:
//
//	val, _ = ctx.Bind("my_func_name", callback)
//
// then val is a function object in javascript whose .name is "my_func_name".
//
// Bind returns nil if the Context has been closed.
func (ctx *Context) Bind(name string, cb Callback) *Value {
	if ctx.vm == nil {
		return nil
	}
	fn := func(call goja.FunctionCall) goja.Value {
		args := make([]*Value, len(call.Arguments))
		for i, arg := range call.Arguments {
			args[i] = ctx.newValue(arg)
		}

		res, err := ctx.invoke(name, cb, CallbackArgs{ctx.callerLoc(), args, ctx})
		if err != nil {
			panic(ctx.newError(err.Error()))
		}
		if res == nil {
			return goja.Undefined()
		}
		val, err := ctx.adopt(res)
		if err != nil {
			panic(ctx.newError(fmt.Sprintf("Callback %s returned a value from another context.", name)))
		}
		return val
	}

	obj := ctx.vm.ToValue(fn).(*goja.Object)
	if err := obj.DefineDataProperty("name", ctx.vm.ToValue(name),
		goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_TRUE); err != nil {
		ctx.logger().Debug("cannot name bound function", zap.String("name", name), zap.Error(err))
	}
	return ctx.newValue(obj)
}

func (ctx *Context) invoke(name string, cb Callback, args CallbackArgs) (res *Value, err error) {
	// Catch panics -- if they are uncaught, they unwind through the VM's own
	// stack and leave it in an undefined state.
	defer func() {
		if v := recover(); v != nil {
			ctx.logger().Error("panic during callback",
				zap.String("callback", name),
				zap.Any("panic", v))
			res, err = nil, fmt.Errorf("Panic during callback %q: %v", name, v)
		}
	}()
	return cb(args)
}

// callerLoc returns the innermost script frame, skipping the native frame of
// the callback itself. It is empty when the callback was called from Go.
func (ctx *Context) callerLoc() Loc {
	for _, frame := range ctx.vm.CaptureCallStack(0, nil) {
		pos := frame.Position()
		if pos.Line == 0 {
			continue
		}
		return Loc{
			Funcname: frame.FuncName(),
			Filename: pos.Filename,
			Line:     pos.Line,
			Column:   pos.Column,
		}
	}
	return Loc{}
}

// newError builds a javascript Error object carrying msg.
func (ctx *Context) newError(msg string) goja.Value {
	if obj, err := ctx.vm.New(ctx.vm.Get("Error"), ctx.vm.ToValue(msg)); err == nil {
		return obj
	}
	return ctx.vm.ToValue(msg)
}

// adopt returns the engine value behind v, refusing objects that belong to a
// different context.
func (ctx *Context) adopt(v *Value) (goja.Value, error) {
	if v == nil {
		return goja.Undefined(), nil
	}
	if v.ctx != ctx {
		if _, isObject := v.val.(*goja.Object); isObject {
			return nil, ErrForeignValue
		}
	}
	return v.val, nil
}

// Global returns the JS global object for this context, with properties like
// Object, Array, JSON, etc.
func (ctx *Context) Global() *Value {
	if ctx.vm == nil {
		return nil
	}
	return ctx.newValue(ctx.vm.GlobalObject())
}

// Close releases the VM behind this Context. Any later use of the Context
// or of values created in it fails with ErrDisposed.
func (ctx *Context) Close() error {
	if ctx.vm == nil {
		return ErrDisposed
	}
	ctx.release()
	return nil
}

func (ctx *Context) finalize() {
	if ctx.vm != nil {
		ctx.logger().Warn("context released by garbage collector without Close",
			zap.Int("context", ctx.id))
	}
	ctx.release()
}

func (ctx *Context) release() {
	if ctx.vm != nil {
		ctx.vm = nil
		trackLive(-1)
	}

	contextsMutex.Lock()
	delete(contexts, ctx.id)
	contextsMutex.Unlock()

	runtime.SetFinalizer(ctx, nil)
	ctx.iso = nil // Allow the isolate to be GC'd if we're the last ptr to it.
}

// Terminate will interrupt any processing going on in the context's
// isolate.  This may be called from any goroutine.
func (ctx *Context) Terminate() {
	if iso := ctx.iso; iso != nil {
		iso.Terminate()
	}
}

func (ctx *Context) newValue(val goja.Value) *Value {
	if val == nil {
		val = goja.Undefined()
	}
	return &Value{ctx, val, kindOf(val)}
}

// ParseJson uses the VM's JSON.parse to parse the string and return the
// parsed object.
func (ctx *Context) ParseJson(json string) (*Value, error) {
	if ctx.vm == nil {
		return nil, ErrDisposed
	}
	var json_parse *Value
	if json, err := ctx.Global().Get("JSON"); err != nil {
		return nil, fmt.Errorf("Cannot get JSON: %v", err)
	} else if json_parse, err = json.Get("parse"); err != nil {
		return nil, fmt.Errorf("Cannot get JSON.parse: %v", err)
	}
	str, err := ctx.Create(json)
	if err != nil {
		return nil, err
	}
	return json_parse.Call(json_parse, str)
}

var (
	boolType        = reflect.TypeOf(false)
	int64Type       = reflect.TypeOf(int64(0))
	bigIntType      = reflect.TypeOf((*big.Int)(nil))
	arrayBufferType = reflect.TypeOf(goja.ArrayBuffer{})
)

func kindOf(v goja.Value) kindMask {
	switch {
	case v == nil || goja.IsUndefined(v):
		return mask(KindUndefined)
	case goja.IsNull(v):
		return mask(KindNull)
	}
	if _, ok := v.(*goja.Symbol); ok {
		return unionKindSymbol
	}
	if obj, ok := v.(*goja.Object); ok {
		if _, ok := goja.AssertFunction(obj); ok {
			return unionKindFunction
		}
		if m, ok := classKinds[obj.ClassName()]; ok {
			return m
		}
		if obj.ExportType() == arrayBufferType {
			return unionKindArrayBuffer
		}
		return mask(KindObject)
	}
	switch v.ExportType() {
	case boolType:
		return mask(KindBoolean)
	case stringType:
		return unionKindString
	case bigIntType:
		return mask(KindBigInt)
	case int64Type:
		m := mask(KindNumber)
		if n := v.ToInteger(); n >= math.MinInt32 && n <= math.MaxInt32 {
			m |= mask(KindInt32)
			if n >= 0 {
				m |= mask(KindUint32)
			}
		} else if n > 0 && n <= math.MaxUint32 {
			m |= mask(KindUint32)
		}
		return m
	case float64Type:
		return mask(KindNumber)
	}
	return 0
}

// Value represents a handle to a value within the javascript VM.  Values are
// associated with a particular Context. Primitive values may be passed freely
// between Contexts, objects may not.
type Value struct {
	ctx      *Context
	val      goja.Value
	kindMask kindMask
}

// Bytes returns a byte slice extracted from this value when the value
// is an ArrayBuffer or a Uint8Array. The returned byte slice is copied from
// the underlying buffer, so modifying it will not be reflected in the VM.
// Values of other types return nil.
func (v *Value) Bytes() []byte {
	if !v.IsKind(KindObject) || v.ctx.vm == nil {
		return nil
	}
	var src []byte
	switch b := v.val.Export().(type) {
	case goja.ArrayBuffer:
		src = b.Bytes()
	case []byte:
		src = b
	default:
		return nil
	}
	ret := make([]byte, len(src))
	copy(ret, src)
	return ret
}

// Float64 returns this Value as a float64. If this value is not a number,
// then NaN will be returned.
func (v *Value) Float64() float64 {
	if !v.IsKind(KindNumber) {
		return math.NaN()
	}
	return v.val.ToFloat()
}

// Int64 returns this Value as an int64. If this value is not a number,
// then 0 will be returned.
func (v *Value) Int64() int64 {
	if !v.IsKind(KindNumber) {
		return 0
	}
	return v.val.ToInteger()
}

// Bool returns this Value as a boolean. If the underlying value is not a
// boolean, it will be coerced to a boolean using Javascript's coercion rules.
func (v *Value) Bool() bool {
	return v.val.ToBoolean()
}

// Date returns this Value as a time.Time. If the underlying value is not a
// KindDate, this will return an error.
func (v *Value) Date() (time.Time, error) {
	if !v.IsKind(KindDate) {
		return time.Time{}, errors.New("Not a date")
	}
	if v.ctx.vm == nil {
		return time.Time{}, ErrDisposed
	}
	msec, err := v.ctx.dateMillis(v.val.(*goja.Object))
	if err != nil {
		return time.Time{}, err
	}
	if math.IsNaN(msec) {
		return time.Time{}, errors.New("Invalid date")
	}
	return timeFromMillis(msec), nil
}

func (ctx *Context) dateMillis(date *goja.Object) (float64, error) {
	getTime, ok := goja.AssertFunction(date.Get("getTime"))
	if !ok {
		return 0, errors.New("Date has no getTime method")
	}
	res, err := getTime(date)
	if err != nil {
		return 0, ctx.convertError(err)
	}
	return res.ToFloat(), nil
}

func timeFromMillis(msec float64) time.Time {
	ms := int64(msec)
	return time.Unix(ms/1000, (ms%1000)*int64(time.Millisecond))
}

// String returns the string representation of the value using the ToString()
// method.  For primitive types this is just the printable value.  For objects,
// this is "[object Object]".  Functions print the function definition.
func (v *Value) String() string {
	if v.ctx.vm == nil {
		if _, isObject := v.val.(*goja.Object); isObject {
			return "<disposed>"
		}
	}
	return v.ctx.safeString(v.val)
}

func (v *Value) object() (*goja.Object, error) {
	if v.ctx.vm == nil {
		return nil, ErrDisposed
	}
	obj, ok := v.val.(*goja.Object)
	if !ok {
		return nil, ErrNotObject
	}
	return obj, nil
}

// Get a field from the object.  If this value is not an object, this will fail.
func (v *Value) Get(name string) (*Value, error) {
	obj, err := v.object()
	if err != nil {
		return nil, err
	}
	var res goja.Value
	if err := v.ctx.catch(func() { res = obj.Get(name) }); err != nil {
		return nil, err
	}
	return v.ctx.newValue(res), nil
}

// Get the value at the specified index.  If this value is not an object or an
// array, this will fail.
func (v *Value) GetIndex(idx int) (*Value, error) {
	return v.Get(strconv.Itoa(idx))
}

// Set a field on the object.  If this value is not an object, this
// will fail.
func (v *Value) Set(name string, value *Value) error {
	obj, err := v.object()
	if err != nil {
		return err
	}
	val, err := v.ctx.adopt(value)
	if err != nil {
		return err
	}
	if err := obj.Set(name, val); err != nil {
		return v.ctx.convertError(err)
	}
	return nil
}

// SetIndex sets the object's value at the specified index.  If this value is
// not an object or an array, this will fail.
func (v *Value) SetIndex(idx int, value *Value) error {
	return v.Set(strconv.Itoa(idx), value)
}

func (v *Value) adoptAll(args []*Value) ([]goja.Value, error) {
	vals := make([]goja.Value, len(args))
	for i, arg := range args {
		val, err := v.ctx.adopt(arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		vals[i] = val
	}
	return vals, nil
}

// Call this value as a function.  If this value is not a function, this will
// fail.
func (v *Value) Call(this *Value, args ...*Value) (*Value, error) {
	if v.ctx.vm == nil {
		return nil, ErrDisposed
	}
	fn, ok := goja.AssertFunction(v.val)
	if !ok {
		return nil, ErrNotFunction
	}
	thisVal, err := v.ctx.adopt(this)
	if err != nil {
		return nil, err
	}
	argVals, err := v.adoptAll(args)
	if err != nil {
		return nil, err
	}
	return v.ctx.exec(func() (goja.Value, error) {
		return fn(thisVal, argVals...)
	})
}

// IsKind will test whether the underlying value is the specified JS kind.
// The kind of a value is set when the value is created and will not change.
func (v *Value) IsKind(k Kind) bool {
	return v.kindMask.Is(k)
}

// New creates a new instance of an object using this value as its constructor.
// If this value is not a function, this will fail.
func (v *Value) New(args ...*Value) (*Value, error) {
	if v.ctx.vm == nil {
		return nil, ErrDisposed
	}
	if _, ok := goja.AssertFunction(v.val); !ok {
		return nil, ErrNotFunction
	}
	argVals, err := v.adoptAll(args)
	if err != nil {
		return nil, err
	}
	return v.ctx.exec(func() (goja.Value, error) {
		obj, err := v.ctx.vm.New(v.val, argVals...)
		if err != nil {
			return nil, err
		}
		return obj, nil
	})
}

// MarshalJSON implements the json.Marshaler interface using the JSON.stringify
// function from the VM to serialize the value and fails if that cannot be
// found.
//
// Note that JSON.stringify will ignore function values.  For example, this JS
// object:
//
//	{ foo: function() { return "x" }, bar: 3 }
//
// will serialize to this:
//
//	{"bar":3}
func (v *Value) MarshalJSON() ([]byte, error) {
	if v.ctx.vm == nil {
		return nil, ErrDisposed
	}
	var json_stringify *Value
	if json, err := v.ctx.Global().Get("JSON"); err != nil {
		return nil, fmt.Errorf("Cannot get JSON object: %v", err)
	} else if json_stringify, err = json.Get("stringify"); err != nil {
		return nil, fmt.Errorf("Cannot get JSON.stringify: %v", err)
	}
	res, err := json_stringify.Call(json_stringify, v)
	if err != nil {
		return nil, fmt.Errorf("Failed to stringify val: %v", err)
	}
	return []byte(res.String()), nil
}

//
// execution registry
//

// A Context is registered here only while it is executing javascript, so that
// Terminate can find it from another goroutine. Registering for the whole
// lifetime would keep every Context reachable (their bound callbacks point
// back at them) and the finalizer would never run.
//
// The entry is ref-counted because a callback may call back into the VM.
var contexts = map[int]*refCount{}
var contextsMutex sync.RWMutex
var nextContextId int

type refCount struct {
	ptr   *Context
	iso   *Isolate
	vm    *goja.Runtime
	count int
}

func addRef(ctx *Context) {
	contextsMutex.Lock()
	ref := contexts[ctx.id]
	if ref == nil {
		ref = &refCount{ctx, ctx.iso, ctx.vm, 0}
		contexts[ctx.id] = ref
	}
	ref.count++
	contextsMutex.Unlock()
}

func decRef(ctx *Context) {
	contextsMutex.Lock()
	ref := contexts[ctx.id]
	if ref == nil || ref.count <= 1 {
		delete(contexts, ctx.id)
		if ref != nil {
			// A Terminate that raced with the end of execution must not
			// leak into the next run.
			ref.vm.ClearInterrupt()
		}
	} else {
		ref.count--
	}
	contextsMutex.Unlock()
}
