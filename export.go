package jsvm

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/dop251/goja"
)

// maxExactInteger is the largest magnitude below which every integer has an
// exact float64 representation.
const maxExactInteger = 1 << 53

// maxExportLength bounds the arrays Export will copy. A sparse array can
// claim a length of 2^32-1 with no elements behind it.
const maxExportLength = 1 << 24

// Export copies this value out of the VM as Data. It is the inverse of
// Context.Create: numbers become Int or Float, dates become Date, arrays
// become Array and plain objects become Object, recursively. Values with no
// plain Go form are returned as a Handle. Objects that contain themselves
// cannot be exported.
func (v *Value) Export() (Data, error) {
	if v.ctx.vm == nil {
		return nil, ErrDisposed
	}
	var (
		d   Data
		err error
	)
	if cerr := v.ctx.catch(func() {
		d, err = v.ctx.export(v.val, map[*goja.Object]bool{})
	}); cerr != nil {
		return nil, cerr
	}
	return d, err
}

var errCircular = errors.New("cannot export circular reference")

func (ctx *Context) export(val goja.Value, seen map[*goja.Object]bool) (Data, error) {
	switch {
	case val == nil || goja.IsUndefined(val):
		return Undefined{}, nil
	case goja.IsNull(val):
		return Null{}, nil
	}

	obj, ok := val.(*goja.Object)
	if !ok {
		if _, isSymbol := val.(*goja.Symbol); isSymbol {
			return Handle{ctx.newValue(val)}, nil
		}
		switch x := val.Export().(type) {
		case bool:
			return Bool(x), nil
		case string:
			return String(x), nil
		case int64:
			return number(float64(x)), nil
		case float64:
			return number(x), nil
		}
		return Handle{ctx.newValue(val)}, nil
	}

	if seen[obj] {
		return nil, errCircular
	}
	seen[obj] = true
	defer delete(seen, obj)

	if _, isFunction := goja.AssertFunction(obj); isFunction {
		return Handle{ctx.newValue(obj)}, nil
	}

	switch obj.ClassName() {
	case "Date":
		msec, err := ctx.dateMillis(obj)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(msec) {
			return Date(time.Time{}), nil
		}
		return Date(timeFromMillis(msec)), nil
	case "Array":
		n := obj.Get("length").ToInteger()
		if n > maxExportLength {
			return nil, fmt.Errorf("cannot export array of length %d (limit %d)", n, maxExportLength)
		}
		arr := make(Array, n)
		for i := range arr {
			el, err := ctx.export(obj.Get(strconv.Itoa(i)), seen)
			if err != nil {
				return nil, err
			}
			arr[i] = el
		}
		return arr, nil
	case "Object":
		if obj.ExportType() == arrayBufferType {
			break
		}
		out := Object{}
		for _, key := range obj.Keys() {
			el, err := ctx.export(obj.Get(key), seen)
			if err != nil {
				return nil, err
			}
			out[key] = el
		}
		return out, nil
	}
	return Handle{ctx.newValue(obj)}, nil
}

// number picks Int for integral values that a float64 holds exactly.
func number(f float64) Data {
	if f == math.Trunc(f) && math.Abs(f) <= maxExactInteger && !(f == 0 && math.Signbit(f)) {
		return Int(int64(f))
	}
	return Float(f)
}
