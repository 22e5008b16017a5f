package main

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/augustoroman/jsvm"
)

// format renders a REPL result the way a javascript console would.
func format(d jsvm.Data) string {
	var b strings.Builder
	writeData(&b, d)
	return b.String()
}

func writeData(b *strings.Builder, d jsvm.Data) {
	switch d := d.(type) {
	case jsvm.Undefined:
		b.WriteString("undefined")
	case jsvm.Null:
		b.WriteString("null")
	case jsvm.Bool:
		b.WriteString(strconv.FormatBool(bool(d)))
	case jsvm.Int:
		b.WriteString(strconv.FormatInt(int64(d), 10))
	case jsvm.Float:
		switch f := float64(d); {
		case math.IsInf(f, 1):
			b.WriteString("Infinity")
		case math.IsInf(f, -1):
			b.WriteString("-Infinity")
		default:
			b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		}
	case jsvm.String:
		b.WriteString(strconv.Quote(string(d)))
	case jsvm.Date:
		if d.Time().IsZero() {
			b.WriteString("Invalid Date")
		} else {
			b.WriteString(d.Time().Format(time.RFC3339Nano))
		}
	case jsvm.Array:
		b.WriteByte('[')
		for i, el := range d {
			if i > 0 {
				b.WriteString(", ")
			}
			writeData(b, el)
		}
		b.WriteByte(']')
	case jsvm.Object:
		keys := make([]string, 0, len(d))
		for k := range d {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteString(": ")
			writeData(b, d[k])
		}
		b.WriteByte('}')
	case jsvm.Handle:
		b.WriteString(d.String())
	}
}
