package compiler

import (
	"fmt"

	"scratchvm/internal/ast"
	"scratchvm/internal/bytecode"
	"scratchvm/internal/value"
)

// codegen is the post-order AST visitor of spec §4.C. Its only
// observable output is the segment buffers plus the relocation/symbol
// tables bytecode.Builder accumulates.
type codegen struct {
	b       *bytecode.Builder
	globals *staticScope // stage variables+lists, declaration order
	diags   []Diagnostic
	labelN  int

	procLabels map[string]string // procKey -> .text label, filled before any call site is emitted
	procSeen   map[string]bool

	sprite     *staticScope      // current sprite's local fields
	procParams map[string]int16 // current procedure's formal-parameter frame offsets
}

func newCodegen() *codegen {
	return &codegen{
		b:          bytecode.NewBuilder(),
		globals:    newStaticScope(false),
		procLabels: make(map[string]string),
		procSeen:   make(map[string]bool),
	}
}

func (c *codegen) label(prefix string) string {
	c.labelN++
	return fmt.Sprintf("%s_%d", prefix, c.labelN)
}

func (c *codegen) errorf(stage Stage, category Category, sprite, format string, args ...interface{}) {
	c.diags = append(c.diags, Diagnostic{
		Category: category,
		Code:     "E_" + string(category),
		Message:  fmt.Sprintf(format, args...),
		Sprite:   sprite,
		Severity: SeverityError,
		Stage:    stage,
	})
}

// compileProgram emits the whole program and returns the linked image.
func compileProgram(prog *ast.Program, level OptimizeLevel) ([]byte, []Diagnostic, error) {
	c := newCodegen()

	// Static variable mapping: stage variables then lists, in
	// declaration order (spec §4.C).
	if prog.Stage != nil {
		for _, v := range prog.Stage.Variables {
			if _, err := c.globals.declare(v.Name); err != nil {
				c.errorf(StageCodegen, CategoryDuplicateSymbol, prog.Stage.Name, "%v", err)
			}
		}
		for _, l := range prog.Stage.Lists {
			if _, err := c.globals.declare(l.Name); err != nil {
				c.errorf(StageCodegen, CategoryDuplicateSymbol, prog.Stage.Name, "%v", err)
			}
		}
	}
	c.b.Emit64(bytecode.SegRdata, uint64(c.globals.count()))

	// Pre-register every procedure label so forward calls (a script
	// calling a procedure defined later in sprite order) resolve.
	all := allSprites(prog)
	for _, spr := range all {
		for _, scr := range spr.Scripts {
			if def, ok := procEntry(scr); ok {
				key := procKey(spr.Name, def.ProcCode)
				if c.procSeen[key] {
					c.errorf(StageCodegen, CategoryDuplicateSymbol, spr.Name, "duplicate procedure %q", def.ProcCode)
					continue
				}
				c.procSeen[key] = true
				c.procLabels[key] = c.label("proc_" + def.ProcCode)
			}
		}
	}

	for _, spr := range all {
		c.compileSprite(spr, level)
	}

	if HasErrors(c.diags) {
		return nil, c.diags, &DiagnosticsError{Diagnostics: c.diags}
	}

	img, err := c.b.Link()
	if err != nil {
		c.errorf(StageLink, CategoryBackendCodegenError, "", "%v", err)
		return nil, c.diags, &DiagnosticsError{Diagnostics: c.diags}
	}
	return img, c.diags, nil
}

func allSprites(prog *ast.Program) []*ast.Sprite {
	out := make([]*ast.Sprite, 0, len(prog.Sprites)+1)
	if prog.Stage != nil {
		out = append(out, prog.Stage)
	}
	return append(out, prog.Sprites...)
}

func procEntry(scr *ast.Script) (ast.ProcedureDef, bool) {
	if len(scr.Body) == 0 {
		return ast.ProcedureDef{}, false
	}
	def, ok := scr.Body[0].(ast.ProcedureDef)
	return def, ok
}

// compileSprite emits one sprite table entry (spec §4.C "sprite emit
// order"): the table row, the initializer, then every script.
func (c *codegen) compileSprite(spr *ast.Sprite, level OptimizeLevel) {
	c.sprite = newStaticScope(true)
	for _, v := range spr.Variables {
		if _, err := c.sprite.declare(v.Name); err != nil {
			c.errorf(StageCodegen, CategoryDuplicateSymbol, spr.Name, "%v", err)
		}
	}
	for _, l := range spr.Lists {
		if _, err := c.sprite.declare(l.Name); err != nil {
			c.errorf(StageCodegen, CategoryDuplicateSymbol, spr.Name, "%v", err)
		}
	}

	spriteLabel := c.label("sprite_" + spr.Name)
	c.b.MarkLabel(bytecode.SegStable, spriteLabel)

	nameOff := c.b.InternString(spr.Name)
	c.b.AddPointerRelocOffset(bytecode.SegStable, bytecode.SegRdata, nameOff)

	// Per-instance field slot count (spec §4.B): every clone of this
	// sprite gets its own array of this many Value slots, addressed by
	// the local-scope static ids compileStmt/compileExpr emit.
	c.b.Emit64(bytecode.SegStable, uint64(c.sprite.count()))

	c.b.EmitFloat64(bytecode.SegStable, spr.InitialX)
	c.b.EmitFloat64(bytecode.SegStable, spr.InitialY)
	c.b.EmitFloat64(bytecode.SegStable, spr.Direction)
	c.b.EmitFloat64(bytecode.SegStable, spr.Size)
	c.b.Emit64(bytecode.SegStable, 0) // currentCostume
	c.b.Emit64(bytecode.SegStable, 0) // layer; always 0, the loader does not read it
	c.b.Emit8(bytecode.SegStable, boolByte(spr.Visible))
	c.b.Emit8(bytecode.SegStable, boolByte(spr.IsStage))
	c.b.Emit8(bytecode.SegStable, boolByte(spr.Draggable))
	c.b.Emit8(bytecode.SegStable, uint8(spr.RotationStyle))

	initLabel := c.label("init_" + spr.Name)
	c.b.Emit64(bytecode.SegStable, c.b.Offset(bytecode.SegText))

	c.b.MarkLabel(bytecode.SegText, initLabel)
	c.emitInitializer(spr)
	c.b.EmitOp(bytecode.StopSelf)

	var runnable []*ast.Script
	for _, scr := range spr.Scripts {
		if _, ok := procEntry(scr); ok {
			c.compileProcedure(spr, scr, level)
			continue
		}
		runnable = append(runnable, scr)
	}
	c.b.Emit64(bytecode.SegStable, uint64(len(runnable)))
	for _, scr := range runnable {
		c.compileScript(spr, scr, level)
	}

	c.b.Emit64(bytecode.SegStable, uint64(len(spr.Costumes)))
	for _, cos := range spr.Costumes {
		c.emitCostume(cos)
	}
	c.b.Emit64(bytecode.SegStable, uint64(len(spr.Sounds)))
	for _, snd := range spr.Sounds {
		c.emitSound(snd)
	}
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// emitInitializer writes each variable/list's initial value assignment
// (spec §4.C "initializer if any").
func (c *codegen) emitInitializer(spr *ast.Sprite) {
	scope := c.globals
	if !spr.IsStage {
		scope = c.sprite
	}
	for _, v := range spr.Variables {
		id, _ := scope.lookup(v.Name)
		c.emitLiteralInit(v.Initial)
		c.b.Emit8(bytecode.SegText, uint8(bytecode.SetStatic))
		c.b.Emit24(bytecode.SegText, uint32(id))
	}
	for _, l := range spr.Lists {
		id, _ := scope.lookup(l.Name)
		c.b.EmitOp(bytecode.ListCreate)
		c.b.Emit64(bytecode.SegText, 0)
		c.b.Emit8(bytecode.SegText, uint8(bytecode.SetStatic))
		c.b.Emit24(bytecode.SegText, uint32(id))
		for _, item := range l.Initial {
			c.b.Emit8(bytecode.SegText, uint8(bytecode.GetStatic))
			c.b.Emit24(bytecode.SegText, uint32(id))
			c.emitLiteralInit(item)
			c.b.EmitOp(bytecode.ListAdd)
		}
	}
}

func (c *codegen) emitLiteralInit(s string) {
	// ast.VarDecl.Initial is the raw literal text; parse it at codegen
	// time with value.ParseLiteral and push the typed result as an
	// immediate (pushint/pushreal/pushtrue/pushfalse, else pushstring).
	v := value.ParseLiteral(s)
	switch v.Tag {
	case value.Integer:
		c.b.EmitOp(bytecode.PushInt)
		c.b.Emit64(bytecode.SegText, uint64(v.AsInteger()))
	case value.Real:
		c.b.EmitOp(bytecode.PushReal)
		c.b.EmitFloat64(bytecode.SegText, v.AsReal())
	case value.Bool:
		if v.AsBool() {
			c.b.EmitOp(bytecode.PushTrue)
		} else {
			c.b.EmitOp(bytecode.PushFalse)
		}
	default:
		c.b.EmitOp(bytecode.PushString)
		off := c.b.InternString(s)
		c.b.AddPointerRelocOffset(bytecode.SegText, bytecode.SegRdata, off)
	}
}

func (c *codegen) emitCostume(cos ast.Costume) {
	nameOff := c.b.InternString(cos.Name)
	c.b.AddPointerRelocOffset(bytecode.SegStable, bytecode.SegRdata, nameOff)
	formatOff := c.b.InternString(cos.Format)
	c.b.AddPointerRelocOffset(bytecode.SegStable, bytecode.SegRdata, formatOff)
	c.b.Emit64(bytecode.SegStable, uint64(cos.BitmapResolution))
	c.b.Emit64(bytecode.SegStable, 0) // reserved
	c.b.EmitFloat64(bytecode.SegStable, cos.RotationCenterX)
	c.b.EmitFloat64(bytecode.SegStable, cos.RotationCenterY)
	c.b.Emit64(bytecode.SegStable, uint64(len(cos.Data)))
	dataOff := c.b.EmitBytes(bytecode.SegRdata, cos.Data)
	c.b.AddPointerRelocOffset(bytecode.SegStable, bytecode.SegRdata, dataOff)
}

func (c *codegen) emitSound(snd ast.Sound) {
	nameOff := c.b.InternString(snd.Name)
	c.b.AddPointerRelocOffset(bytecode.SegStable, bytecode.SegRdata, nameOff)
	formatOff := c.b.InternString(snd.Format)
	c.b.AddPointerRelocOffset(bytecode.SegStable, bytecode.SegRdata, formatOff)
	c.b.EmitFloat64(bytecode.SegStable, snd.SampleRate)
	c.b.Emit64(bytecode.SegStable, snd.SampleCount)
	c.b.Emit64(bytecode.SegStable, uint64(len(snd.Data)))
	dataOff := c.b.EmitBytes(bytecode.SegRdata, snd.Data)
	c.b.AddPointerRelocOffset(bytecode.SegStable, bytecode.SegRdata, dataOff)
}

// compileProcedure emits a callable function: enter prologue, body,
// leave/ret epilogue (spec §4.C "scripts vs procedures").
func (c *codegen) compileProcedure(spr *ast.Sprite, scr *ast.Script, level OptimizeLevel) {
	def := scr.Body[0].(ast.ProcedureDef)
	key := procKey(spr.Name, def.ProcCode)
	c.b.MarkLabel(bytecode.SegText, c.procLabels[key])

	c.procParams = make(map[string]int16, len(def.Params))
	for i, p := range def.Params {
		// Frame-relative argument addressing: Call sets bp to the first
		// argument, so argument i sits at bp+i and is addressed with a
		// non-negative push offset equal to i.
		c.procParams[p] = int16(i)
	}

	c.b.EmitOp(bytecode.Enter)
	body := optimizeScript(scr.Body[1:], level)
	for _, s := range body {
		c.compileStmt(spr, s, !def.Warp)
	}
	c.b.EmitOp(bytecode.Leave)
	c.b.EmitOp(bytecode.Ret)

	c.procParams = nil
}

// compileScript emits a top-level script: its hat (if any) followed by
// its body, implicitly terminated by stopself.
func (c *codegen) compileScript(spr *ast.Sprite, scr *ast.Script, level OptimizeLevel) {
	c.b.Emit64(bytecode.SegStable, c.b.Offset(bytecode.SegText))
	if scr.Hat != nil {
		c.emitHat(scr.Hat)
	}
	body := optimizeScript(scr.Body, level)
	for _, s := range body {
		c.compileStmt(spr, s, true)
	}
	c.b.EmitOp(bytecode.StopSelf)
}

func (c *codegen) emitHat(hat ast.Statement) {
	switch h := hat.(type) {
	case ast.OnFlag:
		c.b.EmitOp(bytecode.OnFlag)
	case ast.OnKey:
		c.b.EmitOp(bytecode.OnKey)
		c.b.Emit16(bytecode.SegText, uint16(h.Scancode))
	case ast.OnClick:
		c.b.EmitOp(bytecode.OnClick)
	case ast.OnBackdropSwitch:
		c.b.EmitOp(bytecode.OnBackdropSwitch)
		// Auto-start busy-wait: like OnGreaterThan below, this hat has
		// no external trigger; it polls the stage's current backdrop
		// name every tick (spec §3.6/§4.F classes it with on-gt as an
		// auto-start script, not a dispatched listener) until it sees
		// the target name, then falls through into the body. Unlike
		// OnGreaterThan there is no wait-for-false phase, so a stage
		// already showing the target fires on the first poll.
		waitTarget := c.label("onbackdrop_wait_target")
		ready := c.label("onbackdrop_ready")
		c.b.MarkLabel(bytecode.SegText, waitTarget)
		c.emitBackdropIsTarget(h.Backdrop)
		c.b.EmitOp(bytecode.Jnz)
		c.b.EmitJumpTarget(ready)
		c.b.EmitOp(bytecode.Yield)
		c.b.EmitOp(bytecode.Jmp)
		c.b.EmitJumpTarget(waitTarget)
		c.b.MarkLabel(bytecode.SegText, ready)
	case ast.OnGreaterThan:
		c.b.EmitOp(bytecode.OnGreaterThan)
		// Edge-trigger lowering (spec §4.C): wait for false, then wait
		// for true, before falling through into the body.
		waitFalse := c.label("ongt_wait_false")
		waitTrue := c.label("ongt_wait_true")
		ready := c.label("ongt_ready")
		c.b.MarkLabel(bytecode.SegText, waitFalse)
		c.compileExpr(h.Sensor)
		c.b.EmitOp(bytecode.Jz)
		c.b.EmitJumpTarget(waitTrue)
		c.b.EmitOp(bytecode.Yield)
		c.b.EmitOp(bytecode.Jmp)
		c.b.EmitJumpTarget(waitFalse)
		c.b.MarkLabel(bytecode.SegText, waitTrue)
		c.compileExpr(h.Sensor)
		c.b.EmitOp(bytecode.Jnz)
		c.b.EmitJumpTarget(ready)
		c.b.EmitOp(bytecode.Yield)
		c.b.EmitOp(bytecode.Jmp)
		c.b.EmitJumpTarget(waitTrue)
		c.b.MarkLabel(bytecode.SegText, ready)
	case ast.OnEvent:
		c.b.EmitOp(bytecode.OnEvent)
		off := c.b.InternString(h.Message)
		c.b.AddPointerRelocOffset(bytecode.SegText, bytecode.SegRdata, off)
	case ast.OnClone:
		c.b.EmitOp(bytecode.OnClone)
	}
}

// emitBackdropIsTarget pushes a bool: whether the stage's current
// backdrop name equals target.
func (c *codegen) emitBackdropIsTarget(target string) {
	c.b.EmitOp(bytecode.GetBackdrop)
	c.b.EmitOp(bytecode.PushString)
	off := c.b.InternString(target)
	c.b.AddPointerRelocOffset(bytecode.SegText, bytecode.SegRdata, off)
	c.b.EmitOp(bytecode.Eq)
}

// resolveVar returns the addx/addy-style static id for a variable
// name, checking the sprite-local scope before the stage globals.
func (c *codegen) resolveVar(name string) (staticID, bool) {
	if c.sprite != nil {
		if id, ok := c.sprite.lookup(name); ok {
			return id, true
		}
	}
	return c.globals.lookup(name)
}

func (c *codegen) compileStmt(spr *ast.Sprite, s ast.Statement, warp bool) {
	switch n := s.(type) {
	case ast.If:
		end := c.label("if_end")
		c.compileExpr(n.Cond)
		c.b.EmitOp(bytecode.Jz)
		c.b.EmitJumpTarget(end)
		for _, st := range n.Then {
			c.compileStmt(spr, st, warp)
		}
		c.b.MarkLabel(bytecode.SegText, end)

	case ast.IfElse:
		elseL := c.label("else")
		end := c.label("if_end")
		c.compileExpr(n.Cond)
		c.b.EmitOp(bytecode.Jz)
		c.b.EmitJumpTarget(elseL)
		for _, st := range n.Then {
			c.compileStmt(spr, st, warp)
		}
		c.b.EmitOp(bytecode.Jmp)
		c.b.EmitJumpTarget(end)
		c.b.MarkLabel(bytecode.SegText, elseL)
		for _, st := range n.Else {
			c.compileStmt(spr, st, warp)
		}
		c.b.MarkLabel(bytecode.SegText, end)

	case ast.RepeatCount:
		if lit, ok := n.Count.(ast.NumberLit); ok && lit.Value == 1 {
			// Collapsed single-iteration block (see optimizer.blockStmt).
			for _, st := range n.Body {
				c.compileStmt(spr, st, warp)
			}
			return
		}
		c.compileExpr(n.Count)
		c.b.EmitOp(bytecode.Round)
		loop := c.label("repeat_loop")
		end := c.label("repeat_end")
		c.b.MarkLabel(bytecode.SegText, loop)
		c.b.EmitOp(bytecode.Dup)
		c.b.EmitOp(bytecode.PushInt)
		c.b.Emit64(bytecode.SegText, 0)
		c.b.EmitOp(bytecode.Gt)
		c.b.EmitOp(bytecode.Jz)
		c.b.EmitJumpTarget(end)
		for _, st := range n.Body {
			c.compileStmt(spr, st, warp)
		}
		if !warp {
			c.b.EmitOp(bytecode.Yield)
		}
		c.b.EmitOp(bytecode.Dec)
		c.b.EmitOp(bytecode.Jmp)
		c.b.EmitJumpTarget(loop)
		c.b.MarkLabel(bytecode.SegText, end)
		c.b.EmitOp(bytecode.Pop)

	case ast.Forever:
		loop := c.label("forever_loop")
		c.b.MarkLabel(bytecode.SegText, loop)
		for _, st := range n.Body {
			c.compileStmt(spr, st, warp)
		}
		if !warp {
			c.b.EmitOp(bytecode.Yield)
		}
		c.b.EmitOp(bytecode.Jmp)
		c.b.EmitJumpTarget(loop)

	case ast.WaitUntil:
		loop := c.label("wait_loop")
		end := c.label("wait_end")
		c.b.MarkLabel(bytecode.SegText, loop)
		c.compileExpr(n.Cond)
		c.b.EmitOp(bytecode.Jnz)
		c.b.EmitJumpTarget(end)
		if !warp {
			c.b.EmitOp(bytecode.Yield)
		}
		c.b.EmitOp(bytecode.Jmp)
		c.b.EmitJumpTarget(loop)
		c.b.MarkLabel(bytecode.SegText, end)

	case ast.RepeatUntil:
		loop := c.label("repuntil_loop")
		end := c.label("repuntil_end")
		c.b.MarkLabel(bytecode.SegText, loop)
		c.compileExpr(n.Cond)
		c.b.EmitOp(bytecode.Jnz)
		c.b.EmitJumpTarget(end)
		for _, st := range n.Body {
			c.compileStmt(spr, st, warp)
		}
		if !warp {
			c.b.EmitOp(bytecode.Yield)
		}
		c.b.EmitOp(bytecode.Jmp)
		c.b.EmitJumpTarget(loop)
		c.b.MarkLabel(bytecode.SegText, end)

	case ast.SetVar:
		c.compileExpr(n.Value)
		id, ok := c.resolveVar(n.Var)
		if !ok {
			c.errorf(StageCodegen, CategorySymbolError, spr.Name, "unknown variable %q", n.Var)
			return
		}
		c.b.Emit8(bytecode.SegText, uint8(bytecode.SetStatic))
		c.b.Emit24(bytecode.SegText, uint32(id))

	case ast.ChangeVar:
		c.compileExpr(n.Value)
		id, ok := c.resolveVar(n.Var)
		if !ok {
			c.errorf(StageCodegen, CategorySymbolError, spr.Name, "unknown variable %q", n.Var)
			return
		}
		c.b.Emit8(bytecode.SegText, uint8(bytecode.AddStatic))
		c.b.Emit24(bytecode.SegText, uint32(id))

	case ast.ShowVar:
		c.compileStmt(spr, ast.Op{Name: "varshow", Args: []ast.Expression{ast.StringLit{Value: n.Var}}}, warp)
	case ast.HideVar:
		c.compileStmt(spr, ast.Op{Name: "varhide", Args: []ast.Expression{ast.StringLit{Value: n.Var}}}, warp)

	case ast.ListRemove:
		c.emitListName(spr, n.List)
		c.compileExpr(n.Index)
		c.b.EmitOp(bytecode.ListRemove)
	case ast.ListClear:
		c.emitListName(spr, n.List)
		c.b.EmitOp(bytecode.ListClear)
	case ast.ListInsert:
		c.emitListName(spr, n.List)
		c.compileExpr(n.Index)
		c.compileExpr(n.Item)
		c.b.EmitOp(bytecode.ListInsert)
	case ast.ListReplace:
		c.emitListName(spr, n.List)
		c.compileExpr(n.Index)
		c.compileExpr(n.Item)
		c.b.EmitOp(bytecode.ListReplace)
	case ast.ListAdd:
		c.emitListName(spr, n.List)
		c.compileExpr(n.Item)
		c.b.EmitOp(bytecode.ListAdd)

	case ast.ProcedureCall:
		for _, a := range n.Args {
			c.compileExpr(a)
		}
		label, ok := c.procLabels[n.Target]
		if !ok {
			c.errorf(StageCodegen, CategorySymbolError, spr.Name, "call to unresolved procedure %q", n.Target)
			return
		}
		c.b.EmitOp(bytecode.Call)
		c.b.Emit8(bytecode.SegText, boolByte(n.Warp))
		c.b.Emit16(bytecode.SegText, uint16(len(n.Args)))
		c.b.EmitJumpTarget(label)

	case ast.Op:
		op, ok := opcodeByName[n.Name]
		if !ok {
			c.errorf(StageCodegen, CategoryBackendCodegenError, spr.Name, "unknown command %q", n.Name)
			return
		}
		for _, a := range n.Args {
			c.compileExpr(a)
		}
		c.b.EmitOp(op)

	default:
		c.errorf(StageCodegen, CategoryBackendCodegenError, spr.Name, "unhandled statement %T", n)
	}
}

func (c *codegen) emitListName(spr *ast.Sprite, name string) {
	id, ok := c.resolveVar(name)
	if !ok {
		c.errorf(StageCodegen, CategorySymbolError, spr.Name, "unknown list %q", name)
		return
	}
	c.b.Emit8(bytecode.SegText, uint8(bytecode.GetStatic))
	c.b.Emit24(bytecode.SegText, uint32(id))
}

func (c *codegen) compileExpr(e ast.Expression) {
	switch n := e.(type) {
	case ast.NumberLit:
		c.b.EmitOp(bytecode.PushReal)
		c.b.EmitFloat64(bytecode.SegText, n.Value)
	case ast.StringLit:
		c.b.EmitOp(bytecode.PushString)
		off := c.b.InternString(n.Value)
		c.b.AddPointerRelocOffset(bytecode.SegText, bytecode.SegRdata, off)
	case ast.BoolLit:
		if n.Value {
			c.b.EmitOp(bytecode.PushTrue)
		} else {
			c.b.EmitOp(bytecode.PushFalse)
		}
	case ast.VarRef:
		id, ok := c.resolveVar(n.Name)
		if !ok {
			c.errorf(StageCodegen, CategorySymbolError, "", "unknown variable %q", n.Name)
			return
		}
		c.b.Emit8(bytecode.SegText, uint8(bytecode.GetStatic))
		c.b.Emit24(bytecode.SegText, uint32(id))
	case ast.ProcedureArg:
		off, ok := c.procParams[n.Name]
		if !ok {
			c.errorf(StageCodegen, CategorySymbolError, "", "unknown parameter %q", n.Name)
			return
		}
		c.b.EmitOp(bytecode.Push)
		c.b.Emit16(bytecode.SegText, uint16(off))
	case ast.ListLen:
		c.emitListExprName(n.List)
		c.b.EmitOp(bytecode.ListLen)
	case ast.ListAt:
		c.emitListExprName(n.List)
		c.compileExpr(n.Index)
		c.b.EmitOp(bytecode.ListAt)
	case ast.ListFind:
		c.emitListExprName(n.List)
		c.compileExpr(n.Item)
		c.b.EmitOp(bytecode.ListFind)
	case ast.ListContains:
		c.emitListExprName(n.List)
		c.compileExpr(n.Item)
		c.b.EmitOp(bytecode.ListContains)
	case ast.BinaryOp:
		c.compileExpr(n.L)
		c.compileExpr(n.R)
		op, ok := opcodeByName[n.Op]
		if !ok {
			c.errorf(StageCodegen, CategoryBackendCodegenError, "", "unknown binary op %q", n.Op)
			return
		}
		c.b.EmitOp(op)
	case ast.UnaryOp:
		c.compileExpr(n.X)
		op, ok := opcodeByName[n.Op]
		if !ok {
			c.errorf(StageCodegen, CategoryBackendCodegenError, "", "unknown unary op %q", n.Op)
			return
		}
		c.b.EmitOp(op)
	case ast.Rand:
		c.compileExpr(n.Min)
		c.compileExpr(n.Max)
		c.b.EmitOp(bytecode.Rand)
	case ast.Sensing:
		op, ok := opcodeByName[n.Name]
		if !ok {
			c.errorf(StageCodegen, CategoryBackendCodegenError, "", "unknown sensing op %q", n.Name)
			return
		}
		for _, a := range n.Args {
			c.compileExpr(a)
		}
		c.b.EmitOp(op)
	default:
		c.errorf(StageCodegen, CategoryBackendCodegenError, "", "unhandled expression %T", n)
	}
}

func (c *codegen) emitListExprName(ref ast.ListRef) {
	id, ok := c.resolveVar(ref.Name)
	if !ok {
		c.errorf(StageCodegen, CategorySymbolError, "", "unknown list %q", ref.Name)
		return
	}
	c.b.Emit8(bytecode.SegText, uint8(bytecode.GetStatic))
	c.b.Emit24(bytecode.SegText, uint32(id))
}
