package vm

import (
	"fmt"

	"gunderscript/hostobject"
)

// Type tags the active field of a Value.
type Type int

const (
	TypeNull Type = iota
	TypeBoolean
	TypeNumber
	TypeLibData
)

func (t Type) String() string {
	switch t {
	case TypeNull:
		return "Null"
	case TypeBoolean:
		return "Boolean"
	case TypeNumber:
		return "Number"
	case TypeLibData:
		return "LibData"
	default:
		return "Unknown"
	}
}

// Value is Gunderscript's tagged dynamic value: a single tagged record,
// not a class hierarchy (§9 "Tagged value, not inheritance"). Every
// opcode pattern-matches on Type and produces a typed result or a typed
// runtime error.
type Value struct {
	Type    Type
	Boolean bool
	Number  float64
	Lib     *hostobject.LibData
}

// Null is the singleton null value.
var Null = Value{Type: TypeNull}

// NewBoolean wraps b as a Value.
func NewBoolean(b bool) Value {
	return Value{Type: TypeBoolean, Boolean: b}
}

// NewNumber wraps n as a Value.
func NewNumber(n float64) Value {
	return Value{Type: TypeNumber, Number: n}
}

// NewLibData wraps a host object as a Value. The caller transfers the
// reference created by hostobject.New; the VM takes ownership of that
// single count from here on.
func NewLibData(d *hostobject.LibData) Value {
	return Value{Type: TypeLibData, Lib: d}
}

// StringTag identifies the immutable host-string LibData produced by
// STR_PUSH and NewString; native callbacks in stdlib/gsstrings match on
// it to recognize a Gunderscript string argument.
const StringTag = "LIBSTR.STR"

// NewString wraps s as the same kind of LIBSTR.STR host value STR_PUSH
// and string concatenation produce, so native callbacks can return
// strings indistinguishable from script-literal ones.
func NewString(s string) Value {
	return NewLibData(hostobject.New(StringTag, s, nil))
}

// StringPayload extracts the Go string inside a LIBSTR.STR value. It
// returns false for any other Value, including a LibData of a different
// tag.
func StringPayload(v Value) (string, bool) {
	if v.Type != TypeLibData || v.Lib == nil || v.Lib.Tag != StringTag {
		return "", false
	}
	s, ok := v.Lib.Payload.(string)
	return s, ok
}

func (v Value) String() string {
	switch v.Type {
	case TypeNull:
		return "null"
	case TypeBoolean:
		return fmt.Sprintf("%t", v.Boolean)
	case TypeNumber:
		return fmt.Sprintf("%f", v.Number)
	case TypeLibData:
		if v.Lib != nil {
			return fmt.Sprintf("<%s>", v.Lib.Tag)
		}
		return "<LibData>"
	default:
		return "<invalid>"
	}
}

// incRef bumps the refcount of a LibData-typed Value; a no-op for other
// types. It is invoked on every copy onto the operand stack or into a
// frame slot.
func (v Value) incRef() {
	if v.Type == TypeLibData && v.Lib != nil {
		v.Lib.IncRef()
	}
}

// decRef drops the refcount of a LibData-typed Value; a no-op for other
// types. It is invoked on every overwrite, pop, or frame pop.
func (v Value) decRef() {
	if v.Type == TypeLibData && v.Lib != nil {
		v.Lib.DecRef()
	}
}
