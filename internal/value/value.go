// Package value implements the tagged dynamic value type and its heap
// objects (strings and lists) that back every Scratch variable, list slot,
// and stack cell. See spec §3.1–§3.3.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Type is the tag of a Value.
type Type uint8

const (
	None Type = iota
	Integer
	Real
	Bool
	String
	List
	// IntPtr is an internal opaque payload used only by the call stack
	// (saved base pointer / return address). It must never be produced
	// by user code and never flow through coercions.
	IntPtr
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case Integer:
		return "integer"
	case Real:
		return "real"
	case Bool:
		return "bool"
	case String:
		return "string"
	case List:
		return "list"
	case IntPtr:
		return "intptr"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Value is a tagged union. Static is set for values whose referent lives in
// the bytecode's read-only rdata segment (interned strings): refcount
// operations on a static referent are no-ops, matching spec §3.1.
type Value struct {
	Tag    Type
	Static bool

	i   int64   // Integer, IntPtr
	f   float64 // Real
	b   bool    // Bool
	str *Str    // String
	lst *ListObj // List
}

// Zero returns a fresh None value. The zero Value is already None, so this
// exists mainly for readability at call sites.
func Zero() Value { return Value{} }

// Assign releases dst's previous contents, then retains src and copies it
// into dst. assign(a, a) is defined to be a no-op preserving refcount,
// matching spec §8.
func Assign(dst *Value, src Value) {
	if sameReferent(*dst, src) {
		*dst = src
		return
	}
	Release(dst)
	Retain(src)
	*dst = src
}

func sameReferent(a, b Value) bool {
	switch {
	case a.Tag == String && b.Tag == String:
		return a.str == b.str
	case a.Tag == List && b.Tag == List:
		return a.lst == b.lst
	default:
		return false
	}
}

// Retain increments the refcount of v's heap referent, if any. No-op for
// static, non-reference, or None values.
func Retain(v Value) {
	switch v.Tag {
	case String:
		if v.str != nil && !v.Static {
			v.str.refcount++
		}
	case List:
		if v.lst != nil && !v.Static {
			v.lst.refcount++
		}
	}
}

// Release decrements the refcount of v's heap referent and, at zero,
// recursively releases owned values (for a List) before dropping the
// object. Always leaves *v in the None state, so a subsequent Release is
// a no-op, matching spec §8.
func Release(v *Value) {
	if v == nil {
		return
	}
	switch v.Tag {
	case String:
		if v.str != nil && !v.Static {
			v.str.refcount--
			if v.str.refcount <= 0 {
				if v.str.refcount < 0 {
					panic("value: string refcount underflow (double release)")
				}
			}
		}
	case List:
		if v.lst != nil && !v.Static {
			v.lst.refcount--
			if v.lst.refcount == 0 {
				for i := range v.lst.values {
					Release(&v.lst.values[i])
				}
			} else if v.lst.refcount < 0 {
				panic("value: list refcount underflow (double release)")
			}
		}
	}
	*v = Value{}
}

// --- constructors -----------------------------------------------------

func NewInteger(i int64) Value { return Value{Tag: Integer, i: i} }
func NewReal(f float64) Value  { return Value{Tag: Real, f: f} }
func NewBool(b bool) Value     { return Value{Tag: Bool, b: b} }
func NewIntPtr(i int64) Value  { return Value{Tag: IntPtr, i: i} }

// NewString allocates a fresh, refcount-1 string heap object.
func NewString(s string) Value {
	return Value{Tag: String, str: newStr(s)}
}

// NewStaticString wraps a string that lives in the bytecode's rdata
// segment: refcount operations on it are suppressed.
func NewStaticString(s string) Value {
	return Value{Tag: String, Static: true, str: newStr(s)}
}

// NewList allocates a fresh, refcount-1 list heap object with the given
// initial length (elements are None), honoring spec §3.2's capacity rule:
// initial capacity is 8 or the requested length, whichever is larger.
func NewList(length int) Value {
	return Value{Tag: List, lst: newListObj(length)}
}

func (v Value) IsRef() bool { return v.Tag == String || v.Tag == List }

// --- accessors ----------------------------------------------------------

func (v Value) AsInteger() int64   { return v.i }
func (v Value) AsReal() float64    { return v.f }
func (v Value) AsBool() bool       { return v.b }
func (v Value) StrObj() *Str        { return v.str }
func (v Value) ListObj() *ListObj   { return v.lst }
func (v Value) AsIntPtr() int64    { return v.i }

// AsNumber coerces v to a float64 per the arithmetic coercion rule:
// String/List/None operands coerce unconditionally to 0, never parsed
// (the original engine's ToReal does the same — string content is only
// ever parsed at compile time, by ParseLiteral), matching spec §3.3/§4.A.
func (v Value) AsNumber() float64 {
	switch v.Tag {
	case Integer:
		return float64(v.i)
	case Real:
		return v.f
	case Bool:
		if v.b {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// Truthy implements spec §3.3: None/List false; numeric zero false; Bool
// uses its payload; String true iff it equals "true" under Scratch compare.
func (v Value) Truthy() bool {
	switch v.Tag {
	case None, List:
		return false
	case Integer:
		return v.i != 0
	case Real:
		return v.f != 0
	case Bool:
		return v.b
	case String:
		if v.str == nil {
			return false
		}
		return scratchEqualFold(v.str.s, "true")
	default:
		return false
	}
}

// ToScratchString implements the coercion rules of spec §3.3.
func (v Value) ToScratchString() string {
	switch v.Tag {
	case None:
		return ""
	case Integer:
		return strconv.FormatInt(v.i, 10)
	case Real:
		return formatReal(v.f)
	case Bool:
		if v.b {
			return "true"
		}
		return "false"
	case String:
		if v.str == nil {
			return ""
		}
		return v.str.s
	case List:
		return "<list>"
	default:
		return ""
	}
}

func formatReal(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	// Up to 8 significant digits, matching spec §3.3.
	s := strconv.FormatFloat(f, 'g', 8, 64)
	if e := strings.IndexAny(s, "eE"); e >= 0 {
		// Go emits e+05 style exponents; Scratch/JS style has no leading
		// zero pad and a lowercase e, which FormatFloat already gives us
		// except for the zero-padding, so strip it.
		mantissa, exp := s[:e], s[e+1:]
		sign := "+"
		if len(exp) > 0 && (exp[0] == '+' || exp[0] == '-') {
			sign = string(exp[0])
			exp = exp[1:]
		}
		exp = strings.TrimLeft(exp, "0")
		if exp == "" {
			exp = "0"
		}
		s = mantissa + "e" + sign + exp
	}
	return s
}

// ParseLiteral ingests a literal string from source per spec §3.3: trim,
// then try integer, then real, then case-insensitive true/false, else
// store as String.
func ParseLiteral(s string) Value {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return NewString(s)
	}
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return NewInteger(i)
	}
	if f, ok := parseNumber(trimmed); ok {
		return NewReal(f)
	}
	if scratchEqualFold(trimmed, "true") {
		return NewBool(true)
	}
	if scratchEqualFold(trimmed, "false") {
		return NewBool(false)
	}
	return NewString(s)
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func scratchEqualFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
