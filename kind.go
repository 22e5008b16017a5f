package jsvm

import (
	"fmt"
	"strings"
)

type Kind uint8

// Value kinds
const (
	KindUndefined Kind = iota
	KindNull
	KindName
	KindString
	KindSymbol
	KindFunction
	KindArray
	KindObject
	KindBoolean
	KindNumber
	KindInt32
	KindUint32
	KindBigInt
	KindDate
	KindArgumentsObject
	KindBooleanObject
	KindNumberObject
	KindStringObject
	KindNativeError
	KindRegExp
	KindPromise
	KindMap
	KindSet
	KindWeakMap
	KindWeakSet
	KindArrayBuffer
	kNumKinds
)

var kindStrings = [kNumKinds]string{
	"Undefined",
	"Null",
	"Name",
	"String",
	"Symbol",
	"Function",
	"Array",
	"Object",
	"Boolean",
	"Number",
	"Int32",
	"Uint32",
	"BigInt",
	"Date",
	"ArgumentsObject",
	"BooleanObject",
	"NumberObject",
	"StringObject",
	"NativeError",
	"RegExp",
	"Promise",
	"Map",
	"Set",
	"WeakMap",
	"WeakSet",
	"ArrayBuffer",
}

func (k Kind) String() string {
	if k >= kNumKinds {
		return fmt.Sprintf("NoSuchKind:%d", int(k))
	}
	return kindStrings[k]
}

// kindMask is a bitset of Kinds. Most values have more than one kind.
type kindMask uint64

func mask(kinds ...Kind) kindMask {
	var m kindMask
	for _, k := range kinds {
		m |= 1 << k
	}
	return m
}

func (m kindMask) Is(k Kind) bool { return m&(1<<k) != 0 }

func (m kindMask) String() string {
	var names []string
	for k := Kind(0); k < kNumKinds; k++ {
		if m.Is(k) {
			names = append(names, k.String())
		}
	}
	return strings.Join(names, "|")
}

// Value kind unions, most values have multiple kinds
var (
	unionKindString          = mask(KindName, KindString)
	unionKindSymbol          = mask(KindName, KindSymbol)
	unionKindFunction        = mask(KindObject, KindFunction)
	unionKindArray           = mask(KindObject, KindArray)
	unionKindDate            = mask(KindObject, KindDate)
	unionKindArgumentsObject = mask(KindObject, KindArgumentsObject)

	unionKindBooleanObject = mask(KindObject, KindBooleanObject)
	unionKindNumberObject  = mask(KindObject, KindNumberObject)
	unionKindStringObject  = mask(KindObject, KindStringObject)
	unionKindRegExp        = mask(KindObject, KindRegExp)
	unionKindPromise       = mask(KindObject, KindPromise)
	unionKindMap           = mask(KindObject, KindMap)
	unionKindSet           = mask(KindObject, KindSet)
	unionKindWeakMap       = mask(KindObject, KindWeakMap)
	unionKindWeakSet       = mask(KindObject, KindWeakSet)
	unionKindArrayBuffer   = mask(KindObject, KindArrayBuffer)
	unionKindNativeError   = mask(KindObject, KindNativeError)
)

// classKinds maps the engine's internal object class names onto kinds.
var classKinds = map[string]kindMask{
	"Array":     unionKindArray,
	"Date":      unionKindDate,
	"Arguments": unionKindArgumentsObject,
	"Boolean":   unionKindBooleanObject,
	"Number":    unionKindNumberObject,
	"String":    unionKindStringObject,
	"RegExp":    unionKindRegExp,
	"Promise":   unionKindPromise,
	"Map":       unionKindMap,
	"Set":       unionKindSet,
	"WeakMap":   unionKindWeakMap,
	"WeakSet":   unionKindWeakSet,
	"Error":     unionKindNativeError,
}
