package jsvm

import (
	"fmt"
	"path"
	"reflect"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/dop251/goja"
)

var (
	float64Type   = reflect.TypeOf(float64(0))
	callbackType  = reflect.TypeOf(Callback(nil))
	stringType    = reflect.TypeOf("")
	valuePtrType  = reflect.TypeOf((*Value)(nil))
	timeType      = reflect.TypeOf(time.Time{})
	dateType      = reflect.TypeOf(Date{})
	nullType      = reflect.TypeOf(Null{})
	undefinedType = reflect.TypeOf(Undefined{})
	handleType    = reflect.TypeOf(Handle{})
)

// Create converts a Go value into a javascript value in this context. The
// result is not reachable from scripts until it is stored somewhere, e.g.
// with Value.Set or by returning it from a callback.
//
// Supported values:
//   - bools, strings, and every integer and float type (as numbers); integers
//     beyond ±2^53 are rejected since a javascript number would round them
//   - maps with string keys, in sorted key order
//   - structs: exported fields, plus exported methods of the Callback type
//   - slices and arrays
//   - pointers and interfaces, followed to their element; nil is undefined
//   - time.Time, as a Date
//   - Callback functions, bound under their Go function name
//   - *Value, as is, if it belongs to this context
//   - every Data type (Null, Undefined, Int, Float, Date, Array, ...)
//
// Struct fields follow encoding/json naming: `json:"name"` renames a field,
// `json:"-"` skips it and embedded structs are inlined. A []byte field tagged
// `jsvm:"arraybuffer"` becomes an ArrayBuffer holding a copy of the bytes:
//
//	struct {
//	    Name string `json:"name"`
//	    Raw  []byte `jsvm:"arraybuffer"`
//	}{"x", []byte{1, 2, 3}}
//
// is created as {name: "x", Raw: new Uint8Array([1, 2, 3]).buffer}.
func (ctx *Context) Create(val interface{}) (*Value, error) {
	if ctx.vm == nil {
		return nil, ErrDisposed
	}
	v, err := ctx.create(reflect.ValueOf(val), fieldOpts{})
	if err != nil {
		return nil, err
	}
	return ctx.newValue(v), nil
}

// fieldOpts are the jsvm struct tag options of the value being created.
type fieldOpts struct {
	arrayBuffer bool
}

func parseFieldOpts(tag string) fieldOpts {
	var opts fieldOpts
	for _, opt := range strings.Split(tag, ",") {
		if strings.TrimSpace(opt) == "arraybuffer" {
			opts.arrayBuffer = true
		}
	}
	return opts
}

// jsFieldName returns the property name for a struct field, or "" if the
// field is skipped.
func jsFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name = strings.TrimSpace(name); name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

func (ctx *Context) newDate(t time.Time) (goja.Value, error) {
	date, err := ctx.vm.New(ctx.vm.Get("Date"), ctx.vm.ToValue(t.UnixMilli()))
	if err != nil {
		return nil, ctx.convertError(err)
	}
	return date, nil
}

func (ctx *Context) create(val reflect.Value, opts fieldOpts) (goja.Value, error) {
	if !val.IsValid() {
		return goja.Undefined(), nil
	}

	switch val.Type() {
	case valuePtrType:
		return ctx.adopt(val.Interface().(*Value))
	case handleType:
		return ctx.adopt(val.Interface().(Handle).Value)
	case timeType:
		return ctx.newDate(val.Interface().(time.Time))
	case dateType:
		return ctx.newDate(time.Time(val.Interface().(Date)))
	case nullType:
		return goja.Null(), nil
	case undefinedType:
		return goja.Undefined(), nil
	}

	switch kind := val.Kind(); kind {
	case reflect.Bool:
		return ctx.vm.ToValue(val.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := val.Int()
		if n > maxExactInteger || n < -maxExactInteger {
			return nil, fmt.Errorf("integer %d cannot be represented exactly", n)
		}
		return ctx.vm.ToValue(n), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n := val.Uint()
		if n > maxExactInteger {
			return nil, fmt.Errorf("integer %d cannot be represented exactly", n)
		}
		return ctx.vm.ToValue(int64(n)), nil
	case reflect.Float32, reflect.Float64:
		return ctx.vm.ToValue(val.Convert(float64Type).Float()), nil
	case reflect.String:
		return ctx.vm.ToValue(val.String()), nil
	case reflect.Func:
		return ctx.createFunc(val)
	case reflect.Interface, reflect.Ptr:
		return ctx.create(val.Elem(), fieldOpts{})
	case reflect.Map:
		return ctx.createMap(val)
	case reflect.Struct:
		ob := ctx.vm.NewObject()
		return ob, ctx.writeStructFields(ob, val)
	case reflect.Slice, reflect.Array:
		if opts.arrayBuffer && kind == reflect.Slice && val.Type().Elem().Kind() == reflect.Uint8 {
			data := make([]byte, val.Len())
			copy(data, val.Bytes())
			return ctx.vm.ToValue(ctx.vm.NewArrayBuffer(data)), nil
		}
		items := make([]interface{}, val.Len())
		for i := range items {
			v, err := ctx.create(val.Index(i), fieldOpts{})
			if err != nil {
				return nil, fmt.Errorf("index %d: %v", i, err)
			}
			items[i] = v
		}
		return ctx.vm.NewArray(items...), nil
	default:
		return nil, fmt.Errorf("%s not supported: %s", kind, val.Type())
	}
}

func (ctx *Context) createFunc(val reflect.Value) (goja.Value, error) {
	if val.IsNil() {
		return goja.Undefined(), nil
	}
	if !val.Type().ConvertibleTo(callbackType) {
		return nil, fmt.Errorf("func not supported: %s", val.Type())
	}
	name := path.Base(runtime.FuncForPC(val.Pointer()).Name())
	return ctx.Bind(name, val.Convert(callbackType).Interface().(Callback)).val, nil
}

func (ctx *Context) createMap(val reflect.Value) (goja.Value, error) {
	if val.Type().Key() != stringType {
		return nil, fmt.Errorf("map keys must be strings, %s not allowed", val.Type().Key())
	}
	keys := val.MapKeys()
	sort.Slice(keys, func(a, b int) bool { return keys[a].String() < keys[b].String() })

	ob := ctx.vm.NewObject()
	for _, key := range keys {
		v, err := ctx.create(val.MapIndex(key), fieldOpts{})
		if err != nil {
			return nil, fmt.Errorf("map key %q: %v", key.String(), err)
		}
		if err := ob.Set(key.String(), v); err != nil {
			return nil, ctx.convertError(err)
		}
	}
	return ob, nil
}

func (ctx *Context) writeStructFields(ob *goja.Object, val reflect.Value) error {
	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := jsFieldName(f)
		if name == "" {
			continue
		}

		if f.Anonymous {
			sub := val.Field(i)
			for sub.Kind() == reflect.Ptr && !sub.IsNil() {
				sub = sub.Elem()
			}
			if sub.Kind() == reflect.Struct {
				if err := ctx.writeStructFields(ob, sub); err != nil {
					return fmt.Errorf("embedded field %q: %v", f.Name, err)
				}
				continue
			}
		}
		if !f.IsExported() {
			continue
		}

		v, err := ctx.create(val.Field(i), parseFieldOpts(f.Tag.Get("jsvm")))
		if err != nil {
			return fmt.Errorf("field %q: %v", f.Name, err)
		}
		if err := ob.Set(name, v); err != nil {
			return ctx.convertError(err)
		}
	}

	// Exported methods with the Callback signature become bound functions.
	for i := 0; i < t.NumMethod(); i++ {
		m := val.Method(i)
		if !m.Type().ConvertibleTo(callbackType) {
			continue
		}
		v, err := ctx.createFunc(m)
		if err != nil {
			return fmt.Errorf("method %q: %v", t.Method(i).Name, err)
		}
		if err := ob.Set(t.Method(i).Name, v); err != nil {
			return ctx.convertError(err)
		}
	}
	return nil
}
