package value

import "strings"

// CvtString coerces v in place to a String value, used by concat/char-at
// per spec §4.A.
func CvtString(v *Value) {
	if v.Tag == String {
		return
	}
	s := v.ToScratchString()
	Release(v)
	*v = NewString(s)
}

// Length returns the codepoint count of a string value in the ASCII sense
// (bytes of the stored string), or the element count of a list, per
// spec §4.A.
func Length(v Value) int64 {
	switch v.Tag {
	case String:
		if v.str == nil {
			return 0
		}
		return int64(len(v.str.s))
	case List:
		if v.lst == nil {
			return 0
		}
		return int64(len(v.lst.values))
	default:
		return int64(len(v.ToScratchString()))
	}
}

// Concat concatenates the Scratch-string forms of lhs and rhs.
func Concat(lhs, rhs Value) Value {
	return NewString(lhs.ToScratchString() + rhs.ToScratchString())
}

// CharAt returns the 1-indexed character of v's string form, or an empty
// string if idx is out of range.
func CharAt(v Value, idx int64) Value {
	s := v.ToScratchString()
	if idx < 1 || idx > int64(len(s)) {
		return NewString("")
	}
	return NewString(string(s[idx-1]))
}

// Contains reports Scratch's case-insensitive substring containment.
func Contains(lhs, rhs Value) bool {
	return strings.Contains(strings.ToLower(lhs.ToScratchString()), strings.ToLower(rhs.ToScratchString()))
}
