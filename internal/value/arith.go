package value

import "math"

// Add, Sub, Mul, Div, Mod and Neg implement spec §4.A's exact arithmetic
// rules. Every operand coerces through AsNumber first, so a non-numeric
// operand silently becomes 0.
func Add(a, b Value) Value { return NewReal(a.AsNumber() + b.AsNumber()) }
func Sub(a, b Value) Value { return NewReal(a.AsNumber() - b.AsNumber()) }
func Mul(a, b Value) Value { return NewReal(a.AsNumber() * b.AsNumber()) }

// Div implements the exact zero-division rule of spec §4.A/§8: dividing
// by zero produces +Inf, -Inf, or NaN matching the sign of the dividend
// (0/0 = NaN). Go's float division already has this behavior, so Div is
// a direct coercion-then-divide.
func Div(a, b Value) Value {
	return NewReal(a.AsNumber() / b.AsNumber())
}

// Mod uses C fmod semantics, matching spec §4.A/§8 exactly: Go's
// math.Mod is defined identically to C's fmod.
func Mod(a, b Value) Value {
	return NewReal(math.Mod(a.AsNumber(), b.AsNumber()))
}

func Neg(a Value) Value { return NewReal(-a.AsNumber()) }
