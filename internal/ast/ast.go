// Package ast defines the typed tree the compiler (internal/compiler)
// consumes. Building this tree from a Scratch project's JSON is the job
// of the external AST parser named in spec §1 — out of scope here, so
// this package holds only data definitions, no parsing logic.
//
// Per spec §9's guidance to prefer a tagged-variant enum with per-variant
// handlers over an OO accept/visit pair, Statement and Expression are
// small interfaces implemented by concrete node structs; the compiler
// dispatches on a type switch rather than a virtual Accept method.
package ast

// Program is the root of a compiled project: the Stage sprite plus every
// other sprite, in the order they should be emitted (spec §4.C "Sprite
// emit order").
type Program struct {
	Stage   *Sprite
	Sprites []*Sprite
}

// Sprite is one AbstractSprite definition (spec §3.5): costumes, sounds,
// fields (variables/lists), and the scripts that run on it.
type Sprite struct {
	Name          string
	IsStage       bool
	Costumes      []Costume
	Sounds        []Sound
	Variables     []VarDecl
	Lists         []ListDecl
	Scripts       []*Script
	InitialX      float64
	InitialY      float64
	Direction     float64
	Size          float64
	Visible       bool
	Draggable     bool
	RotationStyle RotationStyle
}

type RotationStyle uint8

const (
	RotationAllAround RotationStyle = iota
	RotationLeftRight
	RotationNone
)

// Costume and Sound are asset metadata; the bytes themselves are supplied
// by the loader (the asset-container collaborator, spec §1).
type Costume struct {
	Name               string
	Format             string // "png", "svg", ...
	BitmapResolution   uint32
	RotationCenterX    float64
	RotationCenterY    float64
	Data               []byte
}

type Sound struct {
	Name       string
	Format     string
	SampleRate float64
	SampleCount uint64
	Data       []byte
}

// VarDecl and ListDecl declare a static variable or list. Both share the
// same id-space (spec §4.C): variables are assigned ids before lists, in
// declaration order, and only the Stage's declarations produce globals —
// per-sprite declarations produce per-instance fields instead (spec §3.5
// "per-sprite fields array").
type VarDecl struct {
	Name    string
	Initial string // parsed via value.ParseLiteral at compile time
}

type ListDecl struct {
	Name    string
	Initial []string
}

// Script is one top-level hat plus its body. If Body[0] is an
// ast.ProcedureDef value, the script is a user-defined procedure rather than a
// runnable top-level script (spec §4.C "Scripts vs procedures").
type Script struct {
	Hat  Statement // one of the On* statements, or nil for a bare procedure
	Body []Statement
}
