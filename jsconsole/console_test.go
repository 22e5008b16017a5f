package jsconsole

import (
	"bytes"
	"strings"
	"testing"

	"github.com/augustoroman/jsvm"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInjectKeepsExistingProperties(t *testing.T) {
	t.Parallel()
	ctx := jsvm.NewIsolate().NewContext()
	defer ctx.Close()

	if _, err := ctx.Eval(`console = {version: 3}`, "setup.js"); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := (Config{Stdout: &out}).Inject(ctx); err != nil {
		t.Fatal(err)
	}
	res, err := ctx.Eval(`console.log("v", console.version); console.version`, "test.js")
	if err != nil {
		t.Fatal(err)
	}
	if res.Int64() != 3 {
		t.Errorf("Expected console.version to survive, got %v", res)
	}
	if got := out.String(); got != "v 3\n" {
		t.Errorf("Wrong output: %q", got)
	}
}

func TestInjectReplacesNonObject(t *testing.T) {
	t.Parallel()
	ctx := jsvm.NewIsolate().NewContext()
	defer ctx.Close()

	if _, err := ctx.Eval(`console = "nope"`, "setup.js"); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := (Config{Stdout: &out}).Inject(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := ctx.Eval(`console.info("ok")`, "test.js"); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "ok\n" {
		t.Errorf("Wrong output: %q", got)
	}
}

func TestInjectClosedContext(t *testing.T) {
	t.Parallel()
	ctx := jsvm.NewIsolate().NewContext()
	ctx.Close()
	if err := (Config{}).Inject(ctx); err != jsvm.ErrDisposed {
		t.Errorf("Expected ErrDisposed, got %v", err)
	}
}

func TestColorize(t *testing.T) {
	t.Parallel()
	ctx := jsvm.NewIsolate().NewContext()
	defer ctx.Close()

	var stdout, stderr bytes.Buffer
	Config{Prefix: "# ", Stdout: &stdout, Stderr: &stderr, Colorize: true}.Inject(ctx)
	if _, err := ctx.Eval("console.log('plain')\nconsole.warn('careful')\nconsole.error('bad')", "c.js"); err != nil {
		t.Fatal(err)
	}

	if got := stdout.String(); got != "# plain\n" {
		t.Errorf("log lines are never colored, got %q", got)
	}
	want := colorYellow + "# [c.js:2] careful" + colorReset + "\n" +
		colorRed + "# [c.js:3] bad" + colorReset + "\n"
	if got := stderr.String(); got != want {
		t.Errorf("Wrong stderr:\nExp: %q\nGot: %q", want, got)
	}
}

func TestLoggerMirror(t *testing.T) {
	t.Parallel()
	ctx := jsvm.NewIsolate().NewContext()
	defer ctx.Close()

	core, logs := observer.New(zapcore.InfoLevel)
	Config{Logger: zap.New(core)}.Inject(ctx)
	_, err := ctx.Eval(strings.Join([]string{
		`console.log("one", 1)`,
		`console.debug("filtered out")`,
		`console.warn("two")`,
		`console.error("three")`,
	}, "\n"), "mirror.js")
	if err != nil {
		t.Fatal(err)
	}

	entries := logs.AllUntimed()
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d: %v", len(entries), entries)
	}
	wantLevels := []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	wantMsgs := []string{"one 1", "two", "three"}
	for i, e := range entries {
		if e.Level != wantLevels[i] || e.Message != wantMsgs[i] {
			t.Errorf("%d: got %v %q", i, e.Level, e.Message)
		}
	}
	if fields := entries[2].ContextMap(); fields["file"] != "mirror.js" || fields["line"] != int64(4) {
		t.Errorf("Wrong caller fields: %v", fields)
	}
}

func TestFlushReportsSnapshotException(t *testing.T) {
	t.Parallel()
	snapshot := jsvm.CreateSnapshot(WrapForSnapshot(`console.log("before"); throw new Error("broken bundle");`))
	ctx := jsvm.NewIsolateWithSnapshot(snapshot).NewContext()
	defer ctx.Close()

	var stdout, stderr bytes.Buffer
	exception, err := FlushSnapshotAndInject(ctx, Config{Stdout: &stdout, Stderr: &stderr})
	if err != nil {
		t.Fatal(err)
	}
	if exception == nil {
		t.Fatal("Expected the snapshot exception")
	}
	if str := exception.String(); str != "Error: broken bundle" {
		t.Errorf("Wrong exception: %q", str)
	}
	if got := stdout.String(); got != "before\n" {
		t.Errorf("Wrong stdout: %q", got)
	}
	if got := stderr.String(); !strings.Contains(got, "snapshot failed: Error: broken bundle") {
		t.Errorf("Wrong stderr: %q", got)
	}
}

func TestFlushWithoutSnapshot(t *testing.T) {
	t.Parallel()
	ctx := jsvm.NewIsolate().NewContext()
	defer ctx.Close()

	var out bytes.Buffer
	exception, err := FlushSnapshotAndInject(ctx, Config{Stdout: &out})
	if err != nil || exception != nil {
		t.Fatalf("Expected nothing to flush, got %v, %v", exception, err)
	}
	if _, err := ctx.Eval(`console.log("fresh")`, "fresh.js"); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "fresh\n" {
		t.Errorf("Wrong output: %q", got)
	}
}
