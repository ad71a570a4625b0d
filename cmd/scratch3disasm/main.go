// Command scratch3disasm is a read-only diagnostic tool: it linearly
// decodes a linked CSB3 image's .text segment back to mnemonic lines,
// grounded on original_source/sdisas3 (spec §4.J). It performs no
// execution and has no effect on runtime semantics.
package main

import (
	"flag"
	"fmt"
	"os"

	"scratchvm/internal/bytecode"
)

func main() {
	manifestOnly := flag.Bool("manifest", false, "print the section manifest instead of disassembling")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: scratch3disasm [-manifest] <image.csb3>")
		os.Exit(2)
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "scratch3disasm: %v\n", err)
		os.Exit(1)
	}

	img, err := bytecode.Load(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scratch3disasm: %v\n", err)
		os.Exit(1)
	}

	if *manifestOnly {
		printManifest(bytecode.BuildManifest(img))
		return
	}

	insns := bytecode.Disassemble(img, 0)
	for _, in := range insns {
		printInstruction(in)
	}
}

func printManifest(m *bytecode.Manifest) {
	fmt.Printf("csb3 format version %d, %d bytes total\n", m.FormatVersion, m.TotalBytes)
	for _, s := range m.Sections {
		fmt.Printf("  %-8s off=%-8d size=%d\n", s.Name, s.Offset, s.SizeBytes)
	}
}

func printInstruction(in bytecode.Instruction) {
	switch {
	case in.Target != 0:
		fmt.Printf("%08x  %-16s -> %08x\n", in.Offset, in.Op, in.Target)
	case in.Op == bytecode.Call:
		fmt.Printf("%08x  %-16s argc=%d warp=%v target=%08x\n", in.Offset, in.Op, in.Argc, in.Warp, in.Target)
	default:
		fmt.Printf("%08x  %-16s %d\n", in.Offset, in.Op, in.Operand)
	}
}
