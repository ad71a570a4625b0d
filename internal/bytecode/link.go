package bytecode

import "encoding/binary"

// Link resolves all branch targets and cross-segment pointers and
// returns the final CSB3 image, matching rom.BankedROMBuilder's
// BuildROMBytes shape: resolve relocations, then lay out the header
// and concatenate segments.
func (b *Builder) Link() ([]byte, error) {
	if err := b.resolveJumps(); err != nil {
		return nil, err
	}
	if err := b.resolveRelocLabels(); err != nil {
		return nil, err
	}

	var header Header
	copy(header.Magic[:], Magic)
	header.Version = Version

	base := make([]uint64, numSegments)
	offset := uint64(headerSize)
	for s := Segment(0); s < numSegments; s++ {
		base[s] = offset
		header.Segments[s] = segmentEntry{Offset: offset, Size: uint64(len(b.segs[s]))}
		offset += uint64(len(b.segs[s]))
	}

	out := make([]byte, offset)
	writeHeader(out, &header)
	for s := Segment(0); s < numSegments; s++ {
		copy(out[base[s]:], b.segs[s])
	}

	for _, r := range b.relocs {
		final := base[r.ToSeg] + r.ToOff
		at := base[r.FromSeg] + r.FromOff
		binary.LittleEndian.PutUint64(out[at:at+8], final)
	}

	return out, nil
}

func writeHeader(out []byte, h *Header) {
	copy(out[0:4], h.Magic[:])
	binary.LittleEndian.PutUint16(out[4:6], h.Version)
	off := 6
	for _, seg := range h.Segments {
		binary.LittleEndian.PutUint64(out[off:off+8], seg.Offset)
		binary.LittleEndian.PutUint64(out[off+8:off+16], seg.Size)
		off += 16
	}
}
