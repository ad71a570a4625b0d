// Package bytecode defines the compiled program container: the
// segmented CSB3 file format, the opcode table the compiler emits into
// it, and the writer/reader/relocation machinery that links one.
package bytecode

import "fmt"

// Opcode is the one-byte instruction tag decoded by the interpreter's
// fetch loop (internal/vm).
type Opcode uint8

const (
	Noop Opcode = iota
	Int         // padding trap; always raises a VM panic if executed

	// globals
	SetStatic
	GetStatic
	AddStatic

	ListCreate

	// control flow
	Jmp
	Jz
	Jnz
	Call
	Ret
	Enter
	Leave
	Yield

	// stack
	Push // int16 frame/stack-relative slot
	Pop
	PushNone
	PushInt
	PushReal
	PushTrue
	PushFalse
	PushString // rdata pointer, patched by the linker
	Dup

	// comparisons & logic
	Eq
	Neq
	Gt
	Ge
	Lt
	Le
	Land
	Lor
	Lnot

	// arithmetic
	Add
	Sub
	Mul
	Div
	Mod
	Neg
	Round
	Abs
	Floor
	Ceil
	Sqrt
	Sin
	Cos
	Tan
	Asin
	Acos
	Atan
	Ln
	Log10
	Exp
	Exp10

	// string ops
	Strcat
	Charat
	Strlen
	Strstr

	Inc
	Dec

	// motion
	MoveSteps
	TurnDegrees
	GotoTarget
	GotoXY
	Glide
	GlideXY
	SetDir
	LookAt
	AddX
	SetX
	AddY
	SetY
	BounceOnEdge
	SetRotationStyle
	GetX
	GetY
	GetDir

	// looks
	Say
	Think
	SetCostume
	NextCostume
	SetBackdrop
	NextBackdrop
	AddSize
	SetSize
	AddGraphicEffect
	SetGraphicEffect
	ClearGraphicEffects
	Show
	Hide
	GotoLayer
	MoveLayer
	GetCostume
	GetCostumeName
	GetBackdrop
	GetSize

	// sound
	PlaySound
	PlaySoundAndWait
	StopSound
	AddSoundEffect
	SetSoundEffect
	ClearSoundEffects
	AddVolume
	SetVolume
	GetVolume

	// events
	OnFlag
	OnKey
	OnClick
	OnBackdropSwitch
	OnGreaterThan
	OnEvent
	OnClone
	Send
	SendAndWait
	FindEvent

	// control
	WaitSecs
	StopAll
	StopSelf
	StopOther
	Clone
	DeleteClone

	// sensing
	Touching
	TouchingColor
	ColorTouching
	DistanceTo
	Ask
	GetAnswer
	KeyPressed
	MouseDown
	MouseX
	MouseY
	SetDragMode
	GetLoudness
	GetTimer
	ResetTimer
	PropertyOf
	GetTime
	GetDaysSince2000
	GetUsername

	Rand

	// lists
	ListAdd
	ListRemove
	ListClear
	ListInsert
	ListReplace
	ListAt
	ListFind
	ListLen
	ListContains

	// variable watchers (stage/render UI concern, not VM state)
	VarShow
	VarHide

	// extension namespace
	Ext

	numOpcodes
)

var opcodeNames = [numOpcodes]string{
	Noop: "noop", Int: "int",
	SetStatic: "setstatic", GetStatic: "getstatic", AddStatic: "addstatic",
	ListCreate: "listcreate",
	Jmp:        "jmp", Jz: "jz", Jnz: "jnz",
	Call: "call", Ret: "ret", Enter: "enter", Leave: "leave", Yield: "yield",
	Push: "push", Pop: "pop",
	PushNone: "pushnone", PushInt: "pushint", PushReal: "pushreal",
	PushTrue: "pushtrue", PushFalse: "pushfalse", PushString: "pushstring", Dup: "dup",
	Eq: "eq", Neq: "neq", Gt: "gt", Ge: "ge", Lt: "lt", Le: "le",
	Land: "land", Lor: "lor", Lnot: "lnot",
	Add: "add", Sub: "sub", Mul: "mul", Div: "div", Mod: "mod", Neg: "neg",
	Round: "round", Abs: "abs", Floor: "floor", Ceil: "ceil", Sqrt: "sqrt",
	Sin: "sin", Cos: "cos", Tan: "tan", Asin: "asin", Acos: "acos", Atan: "atan",
	Ln: "ln", Log10: "log10", Exp: "exp", Exp10: "exp10",
	Strcat: "strcat", Charat: "charat", Strlen: "strlen", Strstr: "strstr",
	Inc: "inc", Dec: "dec",
	MoveSteps: "movesteps", TurnDegrees: "turndegrees", GotoTarget: "goto", GotoXY: "gotoxy",
	Glide: "glide", GlideXY: "glidexy", SetDir: "setdir", LookAt: "lookat",
	AddX: "addx", SetX: "setx", AddY: "addy", SetY: "sety",
	BounceOnEdge: "bounceonedge", SetRotationStyle: "setrotationstyle",
	GetX: "getx", GetY: "gety", GetDir: "getdir",
	Say: "say", Think: "think", SetCostume: "setcostume", NextCostume: "nextcostume",
	SetBackdrop: "setbackdrop", NextBackdrop: "nextbackdrop",
	AddSize: "addsize", SetSize: "setsize",
	AddGraphicEffect: "addgraphiceffect", SetGraphicEffect: "setgraphiceffect",
	ClearGraphicEffects: "cleargraphiceffects", Show: "show", Hide: "hide",
	GotoLayer: "gotolayer", MoveLayer: "movelayer",
	GetCostume: "getcostume", GetCostumeName: "getcostumename",
	GetBackdrop: "getbackdrop", GetSize: "getsize",
	PlaySound: "playsound", PlaySoundAndWait: "playsoundandwait", StopSound: "stopsound",
	AddSoundEffect: "addsoundeffect", SetSoundEffect: "setsoundeffect",
	ClearSoundEffects: "clearsoundeffects", AddVolume: "addvolume",
	SetVolume: "setvolume", GetVolume: "getvolume",
	OnFlag: "onflag", OnKey: "onkey", OnClick: "onclick",
	OnBackdropSwitch: "onbackdropswitch", OnGreaterThan: "ongt", OnEvent: "onevent",
	OnClone: "onclone", Send: "send", SendAndWait: "sendandwait", FindEvent: "findevent",
	WaitSecs: "waitsecs", StopAll: "stopall", StopSelf: "stopself", StopOther: "stopother",
	Clone: "clone", DeleteClone: "deleteclone",
	Touching: "touching", TouchingColor: "touchingcolor", ColorTouching: "colortouching",
	DistanceTo: "distanceto", Ask: "ask", GetAnswer: "getanswer",
	KeyPressed: "keypressed", MouseDown: "mousedown", MouseX: "mousex", MouseY: "mousey",
	SetDragMode: "setdragmode", GetLoudness: "getloudness",
	GetTimer: "gettimer", ResetTimer: "resettimer", PropertyOf: "propertyof",
	GetTime: "gettime", GetDaysSince2000: "getdayssince2000", GetUsername: "getusername",
	Rand:       "rand",
	VarShow:    "varshow", VarHide: "varhide",
	ListAdd:    "listadd", ListRemove: "listremove", ListClear: "listclear",
	ListInsert: "listinsert", ListReplace: "listreplace", ListAt: "listat",
	ListFind: "listfind", ListLen: "listlen", ListContains: "listcontains",
	Ext: "ext",
}

// operandSize reports how many bytes of immediate operand follow the
// opcode byte, or -1 when the size is opcode-specific and decoded by
// hand (call, ext).
const variableOperand = -1

var operandSize = [numOpcodes]int{
	SetStatic: 3, GetStatic: 3, AddStatic: 3, // u24
	ListCreate: 8, // i64
	Jmp:        8, Jz: 8, Jnz: 8, // u64 absolute text offset
	Call:       variableOperand, // u8 warp, u16 argc, u64 target
	Push:       2,               // int16
	PushInt:    8, PushReal: 8, PushString: 8,
	OnKey:   2, // scancode
	OnEvent: 8,
	Ext:     variableOperand, // u8 ext id, u8 op
}

func (op Opcode) String() string {
	if op >= numOpcodes {
		return fmt.Sprintf("Opcode(%d)", op)
	}
	if n := opcodeNames[op]; n != "" {
		return n
	}
	return fmt.Sprintf("Opcode(%d)", op)
}

// OperandSize returns the fixed operand width in bytes for op, or
// variableOperand when the instruction must be decoded specially.
func OperandSize(op Opcode) int {
	if op >= numOpcodes {
		return 0
	}
	return operandSize[op]
}

var byName = func() map[string]Opcode {
	m := make(map[string]Opcode, numOpcodes)
	for op, name := range opcodeNames {
		if name != "" {
			m[name] = Opcode(op)
		}
	}
	return m
}()

// ByName resolves an opcode mnemonic to its Opcode, the inverse of
// String(). The compiler uses it to translate ast.Op/BinaryOp/UnaryOp/
// Sensing mnemonics into instructions.
func ByName(name string) (Opcode, bool) {
	op, ok := byName[name]
	return op, ok
}

// ExtID selects the extension namespace for an Ext instruction.
type ExtID uint8

const (
	ExtPen ExtID = iota
)

// Pen extension sub-opcodes (spec §4.H "ext").
type PenOp uint8

const (
	PenNoop PenOp = iota
	PenErase
	PenStamp
	PenDown
	PenUp
	PenAddParam
	PenSetParam
	PenFindParam
	PenAddSize
	PenSetSize
)
