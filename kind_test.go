package jsvm

import (
	"fmt"
	"testing"
)

func TestKindString(t *testing.T) {
	for kind, want := range map[Kind]string{
		KindUndefined:   "Undefined",
		KindPromise:     "Promise",
		KindNativeError: "NativeError",
		KindArrayBuffer: "ArrayBuffer",
		kNumKinds:       fmt.Sprintf("NoSuchKind:%d", int(kNumKinds)),
	} {
		if got := kind.String(); got != want {
			t.Errorf("Kind %d: expected %q, got %q", int(kind), want, got)
		}
	}

	// Every real kind needs a name of its own.
	seen := map[string]Kind{}
	for k := Kind(0); k < kNumKinds; k++ {
		name := k.String()
		if prev, dup := seen[name]; dup {
			t.Errorf("Kinds %d and %d are both named %q", int(prev), int(k), name)
		}
		seen[name] = k
	}
}

func TestKindMaskString(t *testing.T) {
	for m, want := range map[kindMask]string{
		unionKindArray: "Array|Object",
		mask(KindNull): "Null",
		0:              "",
	} {
		if got := m.String(); got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	}
}
