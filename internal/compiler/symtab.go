package compiler

import "fmt"

// staticID is the 24-bit index format of spec §4.B. The top bit
// distinguishes a stage global (0) from a per-sprite local field (1);
// the spec leaves per-sprite field addressing unspecified, and this is
// the resolution recorded in DESIGN.md.
type staticID uint32

const localFieldBit = uint32(1) << 23

func (id staticID) isLocal() bool   { return uint32(id)&localFieldBit != 0 }
func (id staticID) index() uint32   { return uint32(id) &^ localFieldBit }
func localStaticID(i uint32) staticID { return staticID(i | localFieldBit) }
func globalStaticID(i uint32) staticID { return staticID(i) }

// staticScope assigns dense ids to a declaration order of names,
// variables first then lists, matching spec §4.C's stage-declaration
// rule (and reused, scoped locally, for each sprite's own fields).
type staticScope struct {
	ids   map[string]staticID
	order []string
	local bool
}

func newStaticScope(local bool) *staticScope {
	return &staticScope{ids: make(map[string]staticID), local: local}
}

// declare assigns the next free id to name, in insertion order. Caller
// must declare every variable before every list to honor the
// "variables first then lists" ordering rule.
func (s *staticScope) declare(name string) (staticID, error) {
	if _, exists := s.ids[name]; exists {
		return 0, fmt.Errorf("duplicate static declaration %q", name)
	}
	idx := uint32(len(s.order))
	var id staticID
	if s.local {
		id = localStaticID(idx)
	} else {
		id = globalStaticID(idx)
	}
	s.ids[name] = id
	s.order = append(s.order, name)
	return id, nil
}

func (s *staticScope) lookup(name string) (staticID, bool) {
	id, ok := s.ids[name]
	return id, ok
}

func (s *staticScope) count() uint32 { return uint32(len(s.order)) }

// procKey is the cross-reference symbol name for a user-defined
// procedure: sprite name ⊕ proccode (spec §4.C).
func procKey(sprite, proccode string) string {
	return sprite + "\x00" + proccode
}
