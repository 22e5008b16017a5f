package jsvm

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"
)

// PromiseInfo will return information about the promise if this value's
// underlying kind is KindPromise, otherwise it will return an error. If there
// is no error, then the returned value will depend on the promise state:
//
//	pending: nil
//	fulfilled: the value of the promise
//	rejected: the rejected result, usually a JS error
func (v *Value) PromiseInfo() (PromiseState, *Value, error) {
	if !v.IsKind(KindPromise) {
		return 0, nil, errors.New("Not a promise")
	}
	if v.ctx.vm == nil {
		return 0, nil, ErrDisposed
	}
	p, ok := v.val.Export().(*goja.Promise)
	if !ok {
		return 0, nil, errors.New("Not a promise")
	}
	switch p.State() {
	case goja.PromiseStateFulfilled:
		return PromiseStateResolved, v.ctx.newValue(p.Result()), nil
	case goja.PromiseStateRejected:
		return PromiseStateRejected, v.ctx.newValue(p.Result()), nil
	}
	return PromiseStatePending, nil, nil
}

// Promise is a pending javascript promise together with the functions that
// settle it. Call Resolve or Reject (with Value.Call) from the goroutine that
// drives the Context.
type Promise struct {
	*Value
	Resolve, Reject *Value
}

// NewPromise creates a new pending promise.
func (ctx *Context) NewPromise() (*Promise, error) {
	if ctx.vm == nil {
		return nil, ErrDisposed
	}
	promise_class, err := ctx.Global().Get("Promise")
	if err != nil {
		return nil, fmt.Errorf("Cannot get Promise class: %v", err)
	}
	var p Promise
	p.Value, err = promise_class.New(ctx.Bind(
		"promise_handler",
		func(args CallbackArgs) (*Value, error) {
			p.Resolve, p.Reject = args.Arg(0), args.Arg(1)
			return nil, nil
		}))
	if err != nil {
		return nil, err
	}
	return &p, nil
}
