package jsvm

import (
	"time"
)

// Data is a javascript value copied out of the VM into plain Go. It is a
// closed set: every Data is one of Null, Undefined, Bool, Int, Float, String,
// Date, Array, Object or Handle.
//
// Data values can also be handed back to the VM through Context.Create and
// Engine.SetValue.
type Data interface {
	isData()
}

// Null is javascript null.
type Null struct{}

// Undefined is javascript undefined.
type Undefined struct{}

// Bool is a javascript boolean.
type Bool bool

// Int is a javascript number without a fractional part whose magnitude is at
// most 2^53.
type Int int64

// Float is any other javascript number, including NaN and the infinities.
type Float float64

// String is a javascript string.
type String string

// Date is a javascript Date. The month of the wrapped time.Time is the usual
// one-based time.Month; javascript's zero-based month index is never seen on
// the Go side. So `new Date(1971, 10, 19)` exports as 19 November 1971.
//
// A javascript Date is a millisecond count with no zone, so a round trip
// through the VM truncates to the millisecond and comes back in time.Local.
// Compare dates with Time().Equal rather than ==. An invalid date exports as
// the zero time.
type Date time.Time

// Array is a javascript array, in order.
type Array []Data

// Object holds the own enumerable properties of a plain javascript object.
type Object map[string]Data

// Handle refers to a javascript value that has no plain Go form: functions,
// promises, regular expressions, maps, errors, symbols and the like. It is
// only valid while its Context is open.
type Handle struct{ *Value }

func (Null) isData()      {}
func (Undefined) isData() {}
func (Bool) isData()      {}
func (Int) isData()       {}
func (Float) isData()     {}
func (String) isData()    {}
func (Date) isData()      {}
func (Array) isData()     {}
func (Object) isData()    {}
func (Handle) isData()    {}

// Time returns the date as a time.Time.
func (d Date) Time() time.Time { return time.Time(d) }

func (d Date) String() string { return time.Time(d).String() }

// Interface converts d to the plain Go value it holds: nil for Null and
// Undefined, bool, int64, float64, string, time.Time, []interface{},
// map[string]interface{} or *Value.
func Interface(d Data) interface{} {
	switch d := d.(type) {
	case Bool:
		return bool(d)
	case Int:
		return int64(d)
	case Float:
		return float64(d)
	case String:
		return string(d)
	case Date:
		return time.Time(d)
	case Array:
		out := make([]interface{}, len(d))
		for i, el := range d {
			out[i] = Interface(el)
		}
		return out
	case Object:
		out := make(map[string]interface{}, len(d))
		for k, el := range d {
			out[k] = Interface(el)
		}
		return out
	case Handle:
		return d.Value
	}
	return nil
}
