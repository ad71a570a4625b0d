package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Image is a loaded, read-only view over a linked CSB3 container. The
// VM addresses into it directly rather than copying segments out.
type Image struct {
	raw     []byte
	header  Header
	segOff  [numSegments]uint64 // absolute file offsets, cached from header
	segSize [numSegments]uint64
}

// Load parses a CSB3 image's header and validates it without copying
// segment payloads.
func Load(data []byte) (*Image, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("bytecode: truncated header (%d bytes)", len(data))
	}
	if string(data[0:4]) != Magic {
		return nil, fmt.Errorf("bytecode: bad magic %q, want %q", data[0:4], Magic)
	}
	version := binary.LittleEndian.Uint16(data[4:6])
	if version != Version {
		return nil, fmt.Errorf("bytecode: unsupported version %d, want %d", version, Version)
	}

	img := &Image{raw: data}
	img.header.Version = version
	copy(img.header.Magic[:], data[0:4])

	off := 6
	for s := Segment(0); s < numSegments; s++ {
		segOff := binary.LittleEndian.Uint64(data[off : off+8])
		segSize := binary.LittleEndian.Uint64(data[off+8 : off+16])
		if segOff+segSize > uint64(len(data)) {
			return nil, fmt.Errorf("bytecode: segment %s out of bounds (off=%d size=%d len=%d)", s, segOff, segSize, len(data))
		}
		img.header.Segments[s] = segmentEntry{Offset: segOff, Size: segSize}
		img.segOff[s] = segOff
		img.segSize[s] = segSize
		off += 16
	}
	return img, nil
}

// Segment returns the raw bytes of seg.
func (img *Image) Segment(seg Segment) []byte {
	return img.raw[img.segOff[seg] : img.segOff[seg]+img.segSize[seg]]
}

// Text is shorthand for Segment(SegText), the slice the interpreter's
// fetch loop indexes with the program counter.
func (img *Image) Text() []byte { return img.Segment(SegText) }

func (img *Image) Byte(seg Segment, off uint64) uint8 {
	return img.raw[img.segOff[seg]+off]
}

func (img *Image) Uint16(seg Segment, off uint64) uint16 {
	base := img.segOff[seg] + off
	return binary.LittleEndian.Uint16(img.raw[base : base+2])
}

func (img *Image) Uint24(seg Segment, off uint64) uint32 {
	base := img.segOff[seg] + off
	return uint32(img.raw[base]) | uint32(img.raw[base+1])<<8 | uint32(img.raw[base+2])<<16
}

func (img *Image) Uint64(seg Segment, off uint64) uint64 {
	base := img.segOff[seg] + off
	return binary.LittleEndian.Uint64(img.raw[base : base+8])
}

func (img *Image) Float64(seg Segment, off uint64) float64 {
	return math.Float64frombits(img.Uint64(seg, off))
}

// String reads a managed string header (length-prefixed bytes, spec
// §4.B) at the given rdata-relative offset, as returned by
// Builder.InternString.
func (img *Image) String(off uint64) string {
	n := img.Uint64(SegRdata, off)
	base := img.segOff[SegRdata] + off + 8
	return string(img.raw[base : base+n])
}

// StringAtPtr reads a managed string given an absolute file offset, as
// stored in a relocated pointer field (sprite/costume/sound name,
// format) once the image has been linked — pointers are always
// file-absolute (spec §3.7), unlike the rdata-relative offsets
// InternString hands back during codegen.
func (img *Image) StringAtPtr(filePtr uint64) string {
	n := binary.LittleEndian.Uint64(img.raw[filePtr : filePtr+8])
	base := filePtr + 8
	return string(img.raw[base : base+n])
}

// PtrAt reads a relocated 64-bit absolute file pointer stored at
// off within seg.
func (img *Image) PtrAt(seg Segment, off uint64) uint64 {
	return img.Uint64(seg, off)
}

// BytesAtPtr reads a raw (unlength-prefixed) asset blob given an
// absolute file pointer and its length, as emitted by
// Builder.EmitBytes for costume/sound payloads.
func (img *Image) BytesAtPtr(filePtr, length uint64) []byte {
	return img.raw[filePtr : filePtr+length]
}
