package value

// Str is the heap-allocated, immutable-after-construction string object of
// spec §3.2: {refcount, flags, length, hash, bytes}. Go's string already
// carries its own length and bytes, so Str wraps one rather than
// reimplementing a null-terminated buffer; the null terminator the spec
// mentions exists only to ease interop with the reference engine's C code
// and has no Go-visible effect.
type Str struct {
	refcount int32
	hash     uint32
	s        string
}

func newStr(s string) *Str {
	return &Str{refcount: 1, hash: hashString(s), s: s}
}

func (s *Str) String() string { return s.s }
func (s *Str) Hash() uint32    { return s.hash }
func (s *Str) Len() int        { return len(s.s) }

// hashString is the polynomial hash of spec §3.2: seed 1315423911,
// h ^= ((h<<5) + c + (h>>2)) per byte.
func hashString(s string) uint32 {
	h := uint32(1315423911)
	for i := 0; i < len(s); i++ {
		h ^= (h << 5) + uint32(s[i]) + (h >> 2)
	}
	return h
}

// ListObj is the heap-allocated, mutable list object of spec §3.2:
// {refcount, flags, length, capacity, values}. Grows geometrically (×2)
// to amortize append; initial capacity is 8 or the requested length,
// whichever is larger.
type ListObj struct {
	refcount int32
	values   []Value
}

func newListObj(length int) *ListObj {
	cap := 8
	if length > cap {
		cap = length
	}
	l := &ListObj{refcount: 1, values: make([]Value, length, cap)}
	return l
}

func (l *ListObj) Len() int { return len(l.values) }

// At returns the 1-indexed element, or None if idx is out of range.
// Scratch list ops never trap on out-of-range indices (spec §4.H).
func (l *ListObj) At(idx int) Value {
	if idx < 1 || idx > len(l.values) {
		return Value{}
	}
	return l.values[idx-1]
}

func (l *ListObj) Set(idx int, v Value) bool {
	if idx < 1 || idx > len(l.values) {
		return false
	}
	Assign(&l.values[idx-1], v)
	return true
}

// Append grows the backing array geometrically (×2) when capacity is
// exhausted, per spec §3.2.
func (l *ListObj) Append(v Value) {
	if len(l.values) == cap(l.values) {
		newCap := cap(l.values) * 2
		if newCap == 0 {
			newCap = 8
		}
		grown := make([]Value, len(l.values), newCap)
		copy(grown, l.values)
		l.values = grown
	}
	l.values = append(l.values, Value{})
	Assign(&l.values[len(l.values)-1], v)
}

// Insert places v at the 1-indexed position idx, shifting subsequent
// elements up. idx == Len()+1 appends.
func (l *ListObj) Insert(idx int, v Value) bool {
	n := len(l.values)
	if idx < 1 || idx > n+1 {
		return false
	}
	l.Append(Value{})
	for i := n; i >= idx; i-- {
		l.values[i] = l.values[i-1]
	}
	l.values[idx-1] = Value{}
	Assign(&l.values[idx-1], v)
	return true
}

// Remove deletes the 1-indexed element at idx.
func (l *ListObj) Remove(idx int) bool {
	n := len(l.values)
	if idx < 1 || idx > n {
		return false
	}
	Release(&l.values[idx-1])
	copy(l.values[idx-1:], l.values[idx:])
	l.values = l.values[:n-1]
	return true
}

// Clear releases every element and empties the list.
func (l *ListObj) Clear() {
	for i := range l.values {
		Release(&l.values[i])
	}
	l.values = l.values[:0]
}

// Find returns the 1-indexed position of the first element equal to v
// under Scratch equality (spec §3.3), or 0 if not found.
func (l *ListObj) Find(v Value) int {
	for i := range l.values {
		if Equal(l.values[i], v) {
			return i + 1
		}
	}
	return 0
}

// Contains reports whether any element equals v under Scratch equality.
func (l *ListObj) Contains(v Value) bool {
	return l.Find(v) != 0
}

// Refcount exposes the current refcount, for tests exercising spec §8's
// heap invariants.
func (s *Str) Refcount() int32   { return s.refcount }
func (l *ListObj) Refcount() int32 { return l.refcount }
