package jsvm_test

import (
	"errors"
	"fmt"
	"time"

	"github.com/augustoroman/jsvm"
)

func Example() {
	ctx := jsvm.NewIsolate().NewContext()
	defer ctx.Close()

	// Top-level declarations stay in the context between calls. The filename
	// shows up in stack traces.
	if _, err := ctx.Eval(`const area = (w, h) => w * h;`, "shapes.js"); err != nil {
		panic(err)
	}
	res, err := ctx.Eval(`area(3, 4)`, "main.js")
	if err != nil {
		panic(err)
	}
	fmt.Println("area(3, 4) =", res.Int64())

	// Go functions become javascript functions with Bind.
	ctx.Global().Set("argc", ctx.Bind("argc", func(in jsvm.CallbackArgs) (*jsvm.Value, error) {
		return in.Context.Create(len(in.Args))
	}))
	res, _ = ctx.Eval(`argc("a", "b", "c")`, "main.js")
	fmt.Println("argc:", res)

	// Every script failure is a *jsvm.ScriptError.
	_, err = ctx.Eval(`functin broken(a,b) { return a+b; }`, "typo.js")
	var serr *jsvm.ScriptError
	if errors.As(err, &serr) {
		fmt.Println("failed during", serr.Phase)
	}

	// Output:
	// area(3, 4) = 12
	// argc: 3
	// failed during compile
}

func ExampleEngine() {
	e, err := jsvm.NewEngine()
	if err != nil {
		panic(err)
	}
	defer e.Close()

	e.SetValue("name", "world")
	e.SetValue("scores", []int{3, 4})

	res, _ := e.Execute(`({greeting: "hello " + name, total: scores[0] + scores[1]})`)
	obj := res.(jsvm.Object)
	fmt.Println(obj["greeting"], obj["total"])

	res, _ = e.Execute(`1 / 4`)
	fmt.Printf("%T %v\n", res, res)

	_, err = e.Execute(`throw new Error("nope")`)
	var serr *jsvm.ScriptError
	if errors.As(err, &serr) {
		fmt.Println(serr.Phase, serr.Message)
	}

	// Engines stay usable after a failed script.
	res, _ = e.Execute(`name.length`)
	fmt.Println(res)

	// Output:
	// hello world 7
	// jsvm.Float 0.25
	// runtime Error: nope
	// 5
}

func ExampleContext_Create() {
	ctx := jsvm.NewIsolate().NewContext()
	defer ctx.Close()

	type Account struct {
		Owner   string `json:"owner"`
		Balance float64
		Opened  time.Time
	}
	val, err := ctx.Create(map[string]interface{}{
		"account": Account{"ada", 12.5, time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC)},
		"limits":  []int{10, 100},
		// Callback functions are bound automatically.
		"double": func(in jsvm.CallbackArgs) (*jsvm.Value, error) {
			return in.Context.Create(in.Arg(0).Float64() * 2)
		},
	})
	if err != nil {
		panic(err)
	}
	ctx.Global().Set("input", val)

	res, _ := ctx.Eval(`[input.account.owner, input.double(input.account.Balance),
		input.account.Opened.getUTCMonth(), input.limits.length].join(" ")`, "create.js")
	fmt.Println(res)

	// Output:
	// ada 25 2 2
}

func ExampleSnapshot() {
	// The snapshot runs once per context, before anything else.
	snapshot := jsvm.CreateSnapshot(`
		var config = { retries: 3, ready: false };
		function setup() { config.ready = true; }
		setup();
	`)
	iso := jsvm.NewIsolateWithSnapshot(snapshot)

	first := iso.NewContext()
	defer first.Close()
	res, _ := first.Eval(`config.retries = 10; config.ready + " " + config.retries`, "first.js")
	fmt.Println("first:", res)

	// Changes made in one context are not seen by the next.
	second := iso.NewContext()
	defer second.Close()
	res, _ = second.Eval(`config.ready + " " + config.retries`, "second.js")
	fmt.Println("second:", res)

	// Output:
	// first: true 10
	// second: true 3
}
