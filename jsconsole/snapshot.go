package jsconsole

import (
	"github.com/augustoroman/jsvm"
)

// consoleStub records console calls until a real console replaces it. The
// replay happens on the .apply line, which is the location warn and error
// report for buffered messages.
const consoleStub = `var console = (function() {
    var stored = [], exception;
    function flush(target) {
        stored.forEach(function(entry) {
            target[entry.type].apply(target, entry.args);
        });
        stored = [];
        return exception;
    }
    function record(type) {
        return function() { stored.push({type: type, args: arguments}); };
    }
    return {
        __flush: flush,
        __catch: function(e) { exception = e; console.error('snapshot failed:', e); },
        log: record('log'),
        info: record('info'),
        debug: record('debug'),
        warn: record('warn'),
        error: record('error'),
    };
})();
`

// WrapForSnapshot prefixes jsCode with a console stub that records every
// console call, for snapshot code that expects a console to exist. The code
// is also wrapped in a try/catch that records the exception, since a snapshot
// that throws would otherwise come out silently empty.
func WrapForSnapshot(jsCode string) string {
	return consoleStub + "try {\n" + jsCode + "\n} catch (e) {\n    console.__catch(e);\n}\n"
}

// FlushSnapshotAndInject installs the console described by c into ctx and
// replays the messages recorded by a WrapForSnapshot stub into it. It returns
// the exception the snapshot code threw, if any. Contexts that did not start
// from a wrapped snapshot simply get the new console.
func FlushSnapshotAndInject(ctx *jsvm.Context, c Config) (exception *jsvm.Value, err error) {
	global := ctx.Global()
	if global == nil {
		return nil, jsvm.ErrDisposed
	}
	previous, err := global.Get("console")
	if err != nil {
		return nil, err
	}
	if err := c.Inject(ctx); err != nil {
		return nil, err
	}
	current, err := global.Get("console")
	if err != nil {
		return nil, err
	}

	if !previous.IsKind(jsvm.KindObject) {
		return nil, nil
	}
	flush, err := previous.Get("__flush")
	if err != nil || !flush.IsKind(jsvm.KindFunction) {
		return nil, nil
	}
	exception, err = flush.Call(previous, current)
	if err != nil {
		return nil, err
	}
	if exception.IsKind(jsvm.KindUndefined) {
		return nil, nil
	}
	return exception, nil
}
