package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
)

// jumpFixup is a same-segment label reference awaiting resolution,
// the text-local analogue of rom.BankedROMBuilder's bankRelocation —
// control-flow targets never leave .text so they never need a file-
// level Reloc, just a deferred patch once the label's offset is known.
type jumpFixup struct {
	seg    Segment
	atOff  uint64 // offset of the 8-byte operand to patch
	label  string
}

// Builder accumulates the five segment buffers plus cross-segment
// pointer relocations during codegen, then produces a linked CSB3
// image. It mirrors the append-only-buffer-plus-relocation-table shape
// of rom.BankedROMBuilder, generalized from banks to named segments.
type Builder struct {
	segs   [numSegments][]byte
	labels [numSegments]map[string]uint64
	jumps       []jumpFixup
	relocs      []Reloc
	relocLabels []relocLabel

	strings map[string]uint64 // interned rdata string offsets (managed form)
}

// NewBuilder returns an empty Builder ready for codegen.
func NewBuilder() *Builder {
	b := &Builder{strings: make(map[string]uint64)}
	for s := Segment(0); s < numSegments; s++ {
		b.labels[s] = make(map[string]uint64)
	}
	return b
}

// Offset returns the current write position within seg.
func (b *Builder) Offset(seg Segment) uint64 { return uint64(len(b.segs[seg])) }

func (b *Builder) Emit8(seg Segment, v uint8) uint64 {
	off := b.Offset(seg)
	b.segs[seg] = append(b.segs[seg], v)
	return off
}

func (b *Builder) Emit16(seg Segment, v uint16) uint64 {
	off := b.Offset(seg)
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	b.segs[seg] = append(b.segs[seg], buf[:]...)
	return off
}

// Emit24 writes a little-endian 24-bit value — the static variable id
// width specified in spec §4.B.
func (b *Builder) Emit24(seg Segment, v uint32) uint64 {
	off := b.Offset(seg)
	b.segs[seg] = append(b.segs[seg], byte(v), byte(v>>8), byte(v>>16))
	return off
}

func (b *Builder) Emit64(seg Segment, v uint64) uint64 {
	off := b.Offset(seg)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	b.segs[seg] = append(b.segs[seg], buf[:]...)
	return off
}

func (b *Builder) EmitFloat64(seg Segment, v float64) uint64 {
	return b.Emit64(seg, math.Float64bits(v))
}

func (b *Builder) EmitBytes(seg Segment, data []byte) uint64 {
	off := b.Offset(seg)
	b.segs[seg] = append(b.segs[seg], data...)
	return off
}

// EmitOp writes a single opcode byte to .text and returns its offset,
// suitable for use as a branch target.
func (b *Builder) EmitOp(op Opcode) uint64 {
	return b.Emit8(SegText, uint8(op))
}

// MarkLabel records name as referring to the current offset in seg.
func (b *Builder) MarkLabel(seg Segment, name string) {
	b.labels[seg][name] = b.Offset(seg)
}

// EmitJumpTarget reserves an 8-byte operand in .text for jmp/jz/jnz and
// registers a fixup to patch it with label's offset once known — labels
// may be marked after the jump that references them (forward branches).
func (b *Builder) EmitJumpTarget(label string) {
	off := b.Emit64(SegText, 0)
	b.jumps = append(b.jumps, jumpFixup{seg: SegText, atOff: off, label: label})
}

// AddPointerReloc reserves an 8-byte placeholder at the builder's
// current position in fromSeg and registers a relocation resolving it
// to toLabel's offset in toSeg once the file is linked (spec §3.7 —
// "all intra-file pointers are 64-bit absolute offsets patched by the
// linker via a relocation table").
func (b *Builder) AddPointerReloc(fromSeg Segment, toSeg Segment, toLabel string) uint64 {
	off := b.Emit64(fromSeg, 0)
	b.relocs = append(b.relocs, Reloc{FromSeg: fromSeg, FromOff: off, ToSeg: toSeg, ToOff: 0})
	b.relocLabels = append(b.relocLabels, relocLabel{idx: len(b.relocs) - 1, seg: toSeg, label: toLabel})
	return off
}

// AddPointerRelocOffset is AddPointerReloc for a destination offset
// already known at call time (e.g. an interned string's return
// value), skipping the label indirection.
func (b *Builder) AddPointerRelocOffset(fromSeg Segment, toSeg Segment, toOff uint64) uint64 {
	off := b.Emit64(fromSeg, 0)
	b.relocs = append(b.relocs, Reloc{FromSeg: fromSeg, FromOff: off, ToSeg: toSeg, ToOff: toOff})
	return off
}

type relocLabel struct {
	idx   int
	seg   Segment
	label string
}

// InternString writes s once into .rdata (managed String header form:
// length-prefixed bytes, spec §4.B "strings pool") and returns its
// rdata offset, reusing a prior offset if s was already interned.
func (b *Builder) InternString(s string) uint64 {
	if off, ok := b.strings[s]; ok {
		return off
	}
	off := b.Offset(SegRdata)
	b.Emit64(SegRdata, uint64(len(s)))
	b.EmitBytes(SegRdata, []byte(s))
	b.strings[s] = off
	return off
}

// resolveJumps patches every same-segment branch target now that all
// labels have been marked.
func (b *Builder) resolveJumps() error {
	for _, j := range b.jumps {
		target, ok := b.labels[j.seg][j.label]
		if !ok {
			return fmt.Errorf("bytecode: unresolved label %q in %s", j.label, j.seg)
		}
		binary.LittleEndian.PutUint64(b.segs[j.seg][j.atOff:j.atOff+8], target)
	}
	return nil
}

// resolveRelocLabels fills in each pending Reloc's ToOff from the
// label table before segment base offsets are added.
func (b *Builder) resolveRelocLabels() error {
	for _, rl := range b.relocLabels {
		off, ok := b.labels[rl.seg][rl.label]
		if !ok {
			return fmt.Errorf("bytecode: unresolved pointer target %q in %s", rl.label, rl.seg)
		}
		b.relocs[rl.idx].ToOff = off
	}
	return nil
}
