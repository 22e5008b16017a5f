package main

import (
	"errors"
	"time"

	"github.com/augustoroman/jsvm"
)

// taskQueue runs timer completions on the goroutine that owns the engine.
// Timers fire on their own goroutines, so they only queue work here.
type taskQueue struct {
	pending int
	due     chan func() error
}

func newTaskQueue() *taskQueue {
	return &taskQueue{due: make(chan func() error, 16)}
}

// after schedules f to run on the owning goroutine once d has passed.
func (q *taskQueue) after(d time.Duration, f func() error) {
	q.pending++
	time.AfterFunc(d, func() { q.due <- f })
}

func (q *taskQueue) run(f func() error) error {
	q.pending--
	return f()
}

// drain runs the tasks that are already due without waiting.
func (q *taskQueue) drain() error {
	for {
		select {
		case f := <-q.due:
			if err := q.run(f); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// wait runs tasks until none are pending, including tasks scheduled by
// other tasks.
func (q *taskQueue) wait() error {
	for q.pending > 0 {
		if err := q.run(<-q.due); err != nil {
			return err
		}
	}
	return nil
}

// bindSleep defines sleep(ms), which returns a promise that resolves to ms
// after ms milliseconds.
func (q *taskQueue) bindSleep(ctx *jsvm.Context) error {
	sleep := ctx.Bind("sleep", func(in jsvm.CallbackArgs) (*jsvm.Value, error) {
		if len(in.Args) == 0 {
			return nil, errors.New("sleep requires duration parameter (in msec)")
		}
		msec := in.Arg(0)
		promise, err := in.Context.NewPromise()
		if err != nil {
			return nil, err
		}
		q.after(time.Duration(msec.Float64()*float64(time.Millisecond)), func() error {
			_, err := promise.Resolve.Call(nil, msec)
			return err
		})
		return promise.Value, nil
	})
	if sleep == nil {
		return jsvm.ErrDisposed
	}
	return ctx.Global().Set("sleep", sleep)
}
