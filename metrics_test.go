package jsvm

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Not parallel: the counters are process wide.
func TestEvalMetrics(t *testing.T) {
	ctx := NewIsolate().NewContext()
	defer ctx.Close()

	count := func(outcome string) float64 {
		return testutil.ToFloat64(evalsTotal.WithLabelValues(outcome))
	}
	ok, compile, runtime := count(outcomeOK), count(outcomeCompileError), count(outcomeRuntimeError)
	observed := testutil.CollectAndCount(evalDuration)

	ctx.Eval(`1`, "ok.js")
	ctx.Eval(`2`, "ok.js")
	ctx.Eval(`)`, "compile.js")
	ctx.Eval(`throw 1`, "runtime.js")

	if got := count(outcomeOK) - ok; got != 2 {
		t.Errorf("Expected 2 ok evals, got %v", got)
	}
	if got := count(outcomeCompileError) - compile; got != 1 {
		t.Errorf("Expected 1 compile error, got %v", got)
	}
	if got := count(outcomeRuntimeError) - runtime; got != 1 {
		t.Errorf("Expected 1 runtime error, got %v", got)
	}
	if got := testutil.CollectAndCount(evalDuration); got != observed {
		t.Errorf("Histogram should stay a single series, got %d", got)
	}
}

func TestOutcomeOf(t *testing.T) {
	t.Parallel()
	cases := []struct {
		err  error
		want string
	}{
		{nil, outcomeOK},
		{&ScriptError{Phase: PhaseCompile}, outcomeCompileError},
		{&ScriptError{Phase: PhaseRuntime}, outcomeRuntimeError},
		{&ScriptError{Phase: PhaseTerminated}, outcomeTerminated},
		{errors.New("other"), outcomeRuntimeError},
	}
	for _, c := range cases {
		if got := outcomeOf(c.err); got != c.want {
			t.Errorf("outcomeOf(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}
