// Package jsvm runs javascript inside a Go program.
//
// The simplest entry point is Engine: one VM with a persistent global scope.
// Execute runs a script and copies its result out as Data, a closed set of
// plain Go types (Null, Undefined, Bool, Int, Float, String, Date, Array,
// Object, or a Handle for everything else). SetValue binds Go values into the
// global scope. Every script failure, whether a syntax error or an uncaught
// throw, is returned as a *ScriptError and leaves the Engine usable.
//
// Underneath, the package offers Isolates and Contexts. A Context is a
// sandboxed javascript environment with its own globals; Values are handles
// to javascript values inside one Context. An Isolate groups Contexts that
// start from the same Snapshot and can be terminated together.
//
// Contexts are not safe for concurrent use: drive each one from a single
// goroutine at a time. Terminate is the exception and may be called from
// anywhere. Different Contexts may run in parallel.
//
// The VM itself is github.com/dop251/goja, a pure Go ECMAScript
// implementation, so no cgo or native library is needed.
package jsvm
