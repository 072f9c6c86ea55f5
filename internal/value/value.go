// Package value implements the tagged Value union and the single heap
// object kind (ObjString) described in spec.md §3/§4.2.
package value

import (
	"fmt"
	"strconv"
)

type ValueType int

const (
	VAL_NIL ValueType = iota
	VAL_BOOL
	VAL_NUMBER
	VAL_OBJ
)

// Value is a discriminated union: Nil, Bool(b), Number(f64), Obj(*ObjString).
// Only the field matching Type is meaningful.
type Value struct {
	Type   ValueType
	Bool   bool
	Number float64
	Obj    *ObjString
}

func Nil() Value             { return Value{Type: VAL_NIL} }
func Bool(b bool) Value      { return Value{Type: VAL_BOOL, Bool: b} }
func Number(n float64) Value { return Value{Type: VAL_NUMBER, Number: n} }
func Obj(o *ObjString) Value { return Value{Type: VAL_OBJ, Obj: o} }

func (v Value) IsNil() bool    { return v.Type == VAL_NIL }
func (v Value) IsBool() bool   { return v.Type == VAL_BOOL }
func (v Value) IsNumber() bool { return v.Type == VAL_NUMBER }
func (v Value) IsObj() bool    { return v.Type == VAL_OBJ }
func (v Value) IsString() bool { return v.Type == VAL_OBJ && v.Obj != nil }

// IsFalsey implements spec.md §3's truthiness rule: nil and false are
// falsey, everything else is truthy.
func (v Value) IsFalsey() bool {
	return v.Type == VAL_NIL || (v.Type == VAL_BOOL && !v.Bool)
}

// Equal implements values_equal from spec.md §4.2: by-variant, Obj by
// identity (safe because strings are interned).
func Equal(a, b Value) bool {
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case VAL_NIL:
		return true
	case VAL_BOOL:
		return a.Bool == b.Bool
	case VAL_NUMBER:
		return a.Number == b.Number
	case VAL_OBJ:
		return a.Obj == b.Obj
	default:
		return false
	}
}

// String renders a Value the way print_value does in spec.md §4.2: nil,
// true/false, the shortest round-trip decimal for numbers, or the raw
// string bytes.
func (v Value) String() string {
	switch v.Type {
	case VAL_NIL:
		return "nil"
	case VAL_BOOL:
		if v.Bool {
			return "true"
		}
		return "false"
	case VAL_NUMBER:
		return strconv.FormatFloat(v.Number, 'g', -1, 64)
	case VAL_OBJ:
		if v.Obj == nil {
			return "nil"
		}
		return v.Obj.Chars
	default:
		return fmt.Sprintf("<unknown value type %d>", v.Type)
	}
}

// ObjString is the only object kind. Length is authoritative; Chars is a
// plain Go string (immutable, so no separate NUL terminator is needed —
// Go strings are not NUL-terminated, unlike clox's byte buffers, but every
// consumer here only ever reads Chars/Length, never scans for a sentinel).
type ObjString struct {
	Chars  string
	Length int
	Hash   uint32

	// Next links every live ObjString into the VM's intrusive object list,
	// head-inserted at allocation time, for the single bulk-release pass
	// described in spec.md §3/§5.
	Next *ObjString
}

const (
	fnvOffsetBasis uint32 = 2166136261
	fnvPrime       uint32 = 16777619
)

// HashString computes the FNV-1a 32-bit hash spec.md §4.2 mandates for
// string interning.
func HashString(s string) uint32 {
	h := fnvOffsetBasis
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
