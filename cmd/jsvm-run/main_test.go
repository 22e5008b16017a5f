package main

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/augustoroman/jsvm"
)

func TestFormat(t *testing.T) {
	t.Parallel()
	date := time.Date(2024, time.March, 1, 12, 30, 0, 0, time.UTC)
	testcases := []struct {
		in  jsvm.Data
		out string
	}{
		{jsvm.Undefined{}, "undefined"},
		{jsvm.Null{}, "null"},
		{jsvm.Bool(true), "true"},
		{jsvm.Int(-42), "-42"},
		{jsvm.Float(0.25), "0.25"},
		{jsvm.Float(math.NaN()), "NaN"},
		{jsvm.Float(math.Inf(-1)), "-Infinity"},
		{jsvm.String(`say "hi"`), `"say \"hi\""`},
		{jsvm.Date(date), "2024-03-01T12:30:00Z"},
		{jsvm.Date(time.Time{}), "Invalid Date"},
		{jsvm.Array{jsvm.Int(1), jsvm.String("a"), jsvm.Array{}}, `[1, "a", []]`},
		{jsvm.Object{"b": jsvm.Int(2), "a": jsvm.Object{"c": jsvm.Null{}}}, `{a: {c: null}, b: 2}`},
	}
	for _, tc := range testcases {
		if got := format(tc.in); got != tc.out {
			t.Errorf("format(%#v): expected %s, got %s", tc.in, tc.out, got)
		}
	}
}

func TestFormatHandle(t *testing.T) {
	t.Parallel()
	ctx := jsvm.NewIsolate().NewContext()
	defer ctx.Close()

	res, err := ctx.Eval(`/a+b/g`, "regex.js")
	if err != nil {
		t.Fatal(err)
	}
	d, err := res.Export()
	if err != nil {
		t.Fatal(err)
	}
	if got := format(d); got != "/a+b/g" {
		t.Errorf("Wrong handle format: %q", got)
	}
}

func TestSleep(t *testing.T) {
	t.Parallel()
	ctx := jsvm.NewIsolate().NewContext()
	defer ctx.Close()

	tasks := newTaskQueue()
	if err := tasks.bindSleep(ctx); err != nil {
		t.Fatal(err)
	}
	_, err := ctx.Eval(`
		var order = [];
		sleep(200).then(function(ms) { order.push("slow " + ms); });
		sleep(1).then(function(ms) {
			order.push("fast " + ms);
			return sleep(1);
		}).then(function() { order.push("chained"); });
		order.push("sync");
	`, "sleep.js")
	if err != nil {
		t.Fatal(err)
	}
	if err := tasks.wait(); err != nil {
		t.Fatal(err)
	}
	if tasks.pending != 0 {
		t.Errorf("Expected no pending tasks, got %d", tasks.pending)
	}

	res, err := ctx.Eval(`order.join(", ")`, "check.js")
	if err != nil {
		t.Fatal(err)
	}
	if got := res.String(); got != "sync, fast 1, chained, slow 200" {
		t.Errorf("Wrong order: %q", got)
	}
}

func TestSleepRequiresDuration(t *testing.T) {
	t.Parallel()
	ctx := jsvm.NewIsolate().NewContext()
	defer ctx.Close()

	tasks := newTaskQueue()
	if err := tasks.bindSleep(ctx); err != nil {
		t.Fatal(err)
	}
	_, err := ctx.Eval(`sleep()`, "bad.js")
	if err == nil || !strings.Contains(err.Error(), "sleep requires duration") {
		t.Errorf("Expected a missing duration error, got %v", err)
	}
	if tasks.pending != 0 {
		t.Errorf("Nothing should be scheduled, got %d", tasks.pending)
	}
}

func TestDrainDoesNotBlock(t *testing.T) {
	t.Parallel()
	tasks := newTaskQueue()
	ran := false
	tasks.after(time.Hour, func() error { ran = true; return nil })
	if err := tasks.drain(); err != nil {
		t.Fatal(err)
	}
	if ran || tasks.pending != 1 {
		t.Errorf("drain ran a task that was not due: ran=%v pending=%d", ran, tasks.pending)
	}
}
