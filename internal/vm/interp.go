package vm

import (
	"math"

	"scratchvm/internal/bytecode"
	"scratchvm/internal/value"
)

// cursor reads operands out of .text starting at s.PC, advancing it as
// it goes — the interpreter's fetch half, paired with the stack ops
// below for the execute half.
type cursor struct {
	text []byte
	pc   *uint64
}

func (c cursor) u8() uint8 {
	v := c.text[*c.pc]
	*c.pc++
	return v
}

func (c cursor) i16() int16 {
	v := int16(uint16(c.text[*c.pc]) | uint16(c.text[*c.pc+1])<<8)
	*c.pc += 2
	return v
}

func (c cursor) u16() uint16 {
	v := uint16(c.text[*c.pc]) | uint16(c.text[*c.pc+1])<<8
	*c.pc += 2
	return v
}

func (c cursor) u24() uint32 {
	v := uint32(c.text[*c.pc]) | uint32(c.text[*c.pc+1])<<8 | uint32(c.text[*c.pc+2])<<16
	*c.pc += 3
	return v
}

func (c cursor) u64() uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(c.text[*c.pc+uint64(i)]) << (8 * i)
	}
	*c.pc += 8
	return v
}

func (c cursor) i64() int64 { return int64(c.u64()) }

func (c cursor) f64() float64 { return math.Float64frombits(c.u64()) }

// runScript executes s until it yields, blocks, terminates, or raises
// a fatal fault. Per spec §9's Go-idiom guidance this is an ordinary
// loop with an ordinary Go call stack — there is no fiber to swap to,
// since the function simply returns control to the scheduler instead
// of parking a coroutine.
func (vm *VirtualMachine) runScript(s *Script) error {
	text := vm.Image.Text()
	cur := cursor{text: text, pc: &s.PC}

	for {
		if s.PC >= uint64(len(text)) {
			s.State = Terminated
			return nil
		}
		op := bytecode.Opcode(cur.u8())

		switch op {
		case bytecode.Noop:

		case bytecode.Int:
			return &Panic{Reason: "executed padding trap opcode"}

		case bytecode.Yield:
			return nil

		case bytecode.WaitSecs:
			secs := s.pop().AsNumber()
			s.SleepUntil = vm.Clock + secs
			s.State = Waiting
			return nil

		case bytecode.StopSelf:
			s.State = Terminated
			return nil

		case bytecode.StopAll:
			vm.Terminating = true
			for _, other := range vm.scripts {
				other.State = Terminated
			}
			return nil

		case bytecode.StopOther:
			for _, other := range vm.scripts {
				if other != s && other.Sprite == s.Sprite {
					other.State = Terminated
				}
			}

		// control flow
		case bytecode.Jmp:
			s.PC = cur.u64()
		case bytecode.Jz:
			target := cur.u64()
			if !s.pop().Truthy() {
				s.PC = target
			}
		case bytecode.Jnz:
			target := cur.u64()
			if s.pop().Truthy() {
				s.PC = target
			}

		case bytecode.Call:
			warp := cur.u8() != 0
			argc := int(cur.u16())
			target := cur.u64()
			if s.FP >= scriptDepth {
				return &Exception{Kind: ExceptionStackOverflow, Script: s}
			}
			s.Frames[s.FP] = frame{bp: s.SP - argc, retPC: s.PC, warp: warp}
			s.FP++
			s.PC = target

		case bytecode.Enter:
			// Frame bookkeeping happens in Call; Enter exists as an
			// explicit marker so a disassembly reads like a normal
			// prologue, matching the teacher's explicit enter/leave
			// pairing style.

		case bytecode.Leave:
			// Paired marker for Ret; locals are reclaimed by Ret.

		case bytecode.Ret:
			s.FP--
			f := s.Frames[s.FP]
			for i := f.bp; i < s.SP; i++ {
				value.Release(&s.Stack[i])
			}
			s.SP = f.bp
			s.PC = f.retPC

		// stack
		case bytecode.Push:
			off := cur.i16()
			v, err := s.slot(off)
			if err != nil {
				return err
			}
			s.push(*v)
		case bytecode.Pop:
			value.Release(&s.Stack[s.SP-1])
			s.SP--
		case bytecode.Dup:
			top := s.Stack[s.SP-1]
			s.push(top)
		case bytecode.PushNone:
			s.push(value.Zero())
		case bytecode.PushInt:
			s.push(value.NewInteger(cur.i64()))
		case bytecode.PushReal:
			s.push(value.NewReal(cur.f64()))
		case bytecode.PushTrue:
			s.push(value.NewBool(true))
		case bytecode.PushFalse:
			s.push(value.NewBool(false))
		case bytecode.PushString:
			ptr := cur.u64()
			s.push(value.NewString(vm.Image.StringAtPtr(ptr)))

		// globals/fields
		case bytecode.SetStatic:
			id := cur.u24()
			v := s.pop()
			if err := vm.storeStatic(s, id, v); err != nil {
				return err
			}
		case bytecode.GetStatic:
			id := cur.u24()
			v, err := vm.loadStatic(s, id)
			if err != nil {
				return err
			}
			s.push(v)
		case bytecode.AddStatic:
			id := cur.u24()
			delta := s.pop()
			cur0, err := vm.loadStatic(s, id)
			if err != nil {
				return err
			}
			if err := vm.storeStatic(s, id, value.Add(cur0, delta)); err != nil {
				return err
			}

		case bytecode.ListCreate:
			n := cur.i64()
			s.push(value.NewList(int(n)))

		// comparisons
		case bytecode.Eq:
			b, a := s.pop(), s.pop()
			s.push(value.NewBool(value.Equal(a, b)))
		case bytecode.Neq:
			b, a := s.pop(), s.pop()
			s.push(value.NewBool(!value.Equal(a, b)))
		case bytecode.Gt:
			b, a := s.pop(), s.pop()
			s.push(value.NewBool(value.Greater(a, b)))
		case bytecode.Ge:
			b, a := s.pop(), s.pop()
			s.push(value.NewBool(!value.Less(a, b)))
		case bytecode.Lt:
			b, a := s.pop(), s.pop()
			s.push(value.NewBool(value.Less(a, b)))
		case bytecode.Le:
			b, a := s.pop(), s.pop()
			s.push(value.NewBool(!value.Greater(a, b)))
		case bytecode.Land:
			b, a := s.pop(), s.pop()
			s.push(value.NewBool(a.Truthy() && b.Truthy()))
		case bytecode.Lor:
			b, a := s.pop(), s.pop()
			s.push(value.NewBool(a.Truthy() || b.Truthy()))
		case bytecode.Lnot:
			a := s.pop()
			s.push(value.NewBool(!a.Truthy()))

		// arithmetic
		case bytecode.Add:
			b, a := s.pop(), s.pop()
			s.push(value.Add(a, b))
		case bytecode.Sub:
			b, a := s.pop(), s.pop()
			s.push(value.Sub(a, b))
		case bytecode.Mul:
			b, a := s.pop(), s.pop()
			s.push(value.Mul(a, b))
		case bytecode.Div:
			b, a := s.pop(), s.pop()
			s.push(value.Div(a, b))
		case bytecode.Mod:
			b, a := s.pop(), s.pop()
			s.push(value.Mod(a, b))
		case bytecode.Neg:
			a := s.pop()
			s.push(value.Neg(a))
		case bytecode.Inc:
			a := s.pop()
			s.push(value.Add(a, value.NewInteger(1)))
		case bytecode.Dec:
			a := s.pop()
			s.push(value.Sub(a, value.NewInteger(1)))
		case bytecode.Round:
			a := s.pop()
			s.push(value.NewReal(math.Round(a.AsNumber())))
		case bytecode.Abs:
			a := s.pop()
			s.push(value.NewReal(math.Abs(a.AsNumber())))
		case bytecode.Floor:
			a := s.pop()
			s.push(value.NewReal(math.Floor(a.AsNumber())))
		case bytecode.Ceil:
			a := s.pop()
			s.push(value.NewReal(math.Ceil(a.AsNumber())))
		case bytecode.Sqrt:
			a := s.pop()
			s.push(value.NewReal(math.Sqrt(a.AsNumber())))
		case bytecode.Sin:
			a := s.pop()
			s.push(value.NewReal(math.Sin(a.AsNumber() * math.Pi / 180)))
		case bytecode.Cos:
			a := s.pop()
			s.push(value.NewReal(math.Cos(a.AsNumber() * math.Pi / 180)))
		case bytecode.Tan:
			a := s.pop()
			s.push(value.NewReal(math.Tan(a.AsNumber() * math.Pi / 180)))
		case bytecode.Asin:
			a := s.pop()
			s.push(value.NewReal(math.Asin(a.AsNumber()) * 180 / math.Pi))
		case bytecode.Acos:
			a := s.pop()
			s.push(value.NewReal(math.Acos(a.AsNumber()) * 180 / math.Pi))
		case bytecode.Atan:
			a := s.pop()
			s.push(value.NewReal(math.Atan(a.AsNumber()) * 180 / math.Pi))
		case bytecode.Ln:
			a := s.pop()
			s.push(value.NewReal(math.Log(a.AsNumber())))
		case bytecode.Log10:
			a := s.pop()
			s.push(value.NewReal(math.Log10(a.AsNumber())))
		case bytecode.Exp:
			a := s.pop()
			s.push(value.NewReal(math.Exp(a.AsNumber())))
		case bytecode.Exp10:
			a := s.pop()
			s.push(value.NewReal(math.Pow(10, a.AsNumber())))

		// strings
		case bytecode.Strcat:
			b, a := s.pop(), s.pop()
			s.push(value.Concat(a, b))
		case bytecode.Charat:
			idx, a := s.pop(), s.pop()
			s.push(value.CharAt(a, int64(idx.AsNumber())))
		case bytecode.Strlen:
			a := s.pop()
			s.push(value.NewInteger(value.Length(a)))
		case bytecode.Strstr:
			b, a := s.pop(), s.pop()
			s.push(value.NewBool(value.Contains(a, b)))

		case bytecode.Rand:
			hi, lo := s.pop(), s.pop()
			s.push(vm.random(lo, hi))

		// motion
		case bytecode.MoveSteps:
			steps := s.pop().AsNumber()
			rad := (s.Sprite.Direction - 90) * math.Pi / 180
			s.Sprite.SetXY(s.Sprite.X+steps*math.Cos(rad), s.Sprite.Y-steps*math.Sin(rad))
		case bytecode.TurnDegrees:
			deg := s.pop().AsNumber()
			s.Sprite.SetDirection(s.Sprite.Direction + deg)
		case bytecode.GotoXY:
			y, x := s.pop().AsNumber(), s.pop().AsNumber()
			s.Sprite.SetXY(x, y)
		case bytecode.SetX:
			s.Sprite.SetX(s.pop().AsNumber())
		case bytecode.AddX:
			s.Sprite.SetX(s.Sprite.X + s.pop().AsNumber())
		case bytecode.SetY:
			s.Sprite.SetY(s.pop().AsNumber())
		case bytecode.AddY:
			s.Sprite.SetY(s.Sprite.Y + s.pop().AsNumber())
		case bytecode.SetDir:
			s.Sprite.SetDirection(s.pop().AsNumber())
		case bytecode.GetX:
			s.push(value.NewReal(s.Sprite.X))
		case bytecode.GetY:
			s.push(value.NewReal(s.Sprite.Y))
		case bytecode.GetDir:
			s.push(value.NewReal(s.Sprite.Direction))
		case bytecode.BounceOnEdge:
			vm.bounceOnEdge(s.Sprite)
		case bytecode.SetRotationStyle:
			s.Sprite.RotationStyle = RotationStyle(s.pop().AsInteger())
		case bytecode.GotoTarget, bytecode.LookAt:
			vm.execMotionExtended(s, op)
		case bytecode.Glide, bytecode.GlideXY:
			vm.execMotionExtended(s, op)
			s.State = Waiting
			s.SleepUntil = s.Sprite.Glide.end
			return nil

		// looks
		case bytecode.Say:
			s.Sprite.SetMessage(s.pop(), false)
		case bytecode.Think:
			s.Sprite.SetMessage(s.pop(), true)
		case bytecode.SetCostume:
			v := s.pop()
			vm.setCostumeByValue(s.Sprite, v)
		case bytecode.NextCostume:
			s.Sprite.SetCostume(s.Sprite.Costume + 1)
		case bytecode.SetBackdrop:
			vm.setCostumeByValue(vm.Stage, s.pop())
		case bytecode.NextBackdrop:
			vm.Stage.SetCostume(vm.Stage.Costume + 1)
		case bytecode.AddSize:
			s.Sprite.SetSize(s.Sprite.Size + s.pop().AsNumber())
		case bytecode.SetSize:
			s.Sprite.SetSize(s.pop().AsNumber())
		case bytecode.Show:
			s.Sprite.SetVisible(true)
		case bytecode.Hide:
			s.Sprite.SetVisible(false)
		case bytecode.GetCostume:
			s.push(value.NewInteger(s.Sprite.Costume))
		case bytecode.GetCostumeName:
			c := s.Sprite.Base.GetCostume(s.Sprite.Costume)
			if c != nil {
				s.push(value.NewString(c.Name))
			} else {
				s.push(value.NewString(""))
			}
		case bytecode.GetBackdrop:
			c := vm.Stage.Base.GetCostume(vm.Stage.Costume)
			if c != nil {
				s.push(value.NewString(c.Name))
			} else {
				s.push(value.NewString(""))
			}
		case bytecode.GetSize:
			s.push(value.NewReal(s.Sprite.Size))
		case bytecode.AddGraphicEffect, bytecode.SetGraphicEffect, bytecode.ClearGraphicEffects,
			bytecode.GotoLayer, bytecode.MoveLayer:
			// Rendering-only state; tracked by the render package via
			// Host.DrawSprite, nothing for the interpreter to do beyond
			// consuming operands already popped by compileExpr.
			if op == bytecode.AddGraphicEffect || op == bytecode.SetGraphicEffect {
				s.pop()
			}
			if op == bytecode.MoveLayer {
				s.pop()
			}

		// sound
		case bytecode.PlaySound:
			vm.playSoundByValue(s.Sprite, s.pop(), nil)
		case bytecode.PlaySoundAndWait:
			name := s.pop()
			sTarget := s
			sTarget.WaitInput = true
			vm.playSoundByValue(s.Sprite, name, func() { sTarget.WaitInput = false })
			if !sTarget.WaitInput {
				break // sound missing: playSoundByValue's done-callback already fired synchronously
			}
			s.State = Waiting
			return nil
		case bytecode.StopSound:
			vm.Host.StopSound(s.Sprite)
		case bytecode.AddVolume:
			vm.Host.SetVolume(s.Sprite, s.pop().AsNumber())
		case bytecode.SetVolume:
			vm.Host.SetVolume(s.Sprite, s.pop().AsNumber())
		case bytecode.GetVolume:
			s.push(value.NewReal(100))
		case bytecode.AddSoundEffect, bytecode.SetSoundEffect, bytecode.ClearSoundEffects:
			if op != bytecode.ClearSoundEffects {
				s.pop()
			}

		// events
		case bytecode.OnFlag, bytecode.OnClick, bytecode.OnClone:
			// Dispatch markers only; execution resumes past them (see
			// load.go's registerScript), so reaching one live means a
			// fresh Reset() landed exactly on it — treat as a no-op.
		case bytecode.OnKey:
			cur.u16()
		case bytecode.OnEvent:
			cur.u64()
		case bytecode.OnGreaterThan, bytecode.OnBackdropSwitch:

		case bytecode.Send:
			name := s.pop()
			vm.Broadcast(name.ToScratchString())
		case bytecode.SendAndWait:
			name := s.pop()
			waitFor := vm.broadcastNow(name.ToScratchString())
			if len(waitFor) > 0 {
				s.WaitFor = waitFor
				s.State = Waiting
				return nil
			}
		case bytecode.FindEvent:
			s.push(value.NewBool(false))

		case bytecode.Clone:
			v := s.pop()
			if err := vm.cloneByValue(s, v); err != nil {
				return err
			}
		case bytecode.DeleteClone:
			s.Sprite.Deleted = true

		// sensing
		case bytecode.Touching:
			target := s.pop()
			s.push(value.NewBool(vm.touching(s.Sprite, target)))
		case bytecode.TouchingColor, bytecode.ColorTouching:
			s.pop()
			if op == bytecode.ColorTouching {
				s.pop()
			}
			s.push(value.NewBool(false))
		case bytecode.DistanceTo:
			target := s.pop()
			s.push(value.NewReal(vm.distanceTo(s.Sprite, target)))
		case bytecode.Ask:
			q := s.pop()
			vm.EnqueueAsk(s, q.ToScratchString())
			s.State = Waiting
			return nil
		case bytecode.GetAnswer:
			s.push(vm.Answer)
		case bytecode.KeyPressed:
			key := s.pop()
			s.push(value.NewBool(vm.Host.KeyDown(int(key.AsInteger()))))
		case bytecode.MouseDown:
			s.push(value.NewBool(vm.Host.MouseIsDown()))
		case bytecode.MouseX:
			x, _ := vm.Host.MousePosition()
			s.push(value.NewReal(x))
		case bytecode.MouseY:
			_, y := vm.Host.MousePosition()
			s.push(value.NewReal(y))
		case bytecode.SetDragMode:
			s.Sprite.Draggable = s.pop().Truthy()
		case bytecode.GetLoudness:
			s.push(value.NewReal(-1))
		case bytecode.GetTimer:
			s.push(value.NewReal(vm.Timer))
		case bytecode.ResetTimer:
			vm.Timer = 0
		case bytecode.PropertyOf:
			target, prop := s.pop(), s.pop()
			s.push(vm.propertyOf(target, prop))
		case bytecode.GetTime:
			s.push(value.NewInteger(int64(vm.Clock)))
		case bytecode.GetDaysSince2000:
			s.push(value.NewReal(0))
		case bytecode.GetUsername:
			s.push(value.NewString(""))

		// lists
		case bytecode.ListAdd:
			item := s.pop()
			lst := s.pop()
			if lo := lst.ListObj(); lo != nil {
				lo.Append(item)
			}
		case bytecode.ListRemove:
			idx := s.pop()
			lst := s.pop()
			if lo := lst.ListObj(); lo != nil {
				lo.Remove(int(idx.AsNumber()))
			}
		case bytecode.ListClear:
			lst := s.pop()
			if lo := lst.ListObj(); lo != nil {
				lo.Clear()
			}
		case bytecode.ListInsert:
			item, idx := s.pop(), s.pop()
			lst := s.pop()
			if lo := lst.ListObj(); lo != nil {
				lo.Insert(int(idx.AsNumber()), item)
			}
		case bytecode.ListReplace:
			item, idx := s.pop(), s.pop()
			lst := s.pop()
			if lo := lst.ListObj(); lo != nil {
				lo.Set(int(idx.AsNumber()), item)
			}
		case bytecode.ListAt:
			idx := s.pop()
			lst := s.pop()
			if lo := lst.ListObj(); lo != nil {
				s.push(lo.At(int(idx.AsNumber())))
			} else {
				s.push(value.Zero())
			}
		case bytecode.ListFind:
			item := s.pop()
			lst := s.pop()
			if lo := lst.ListObj(); lo != nil {
				s.push(value.NewInteger(int64(lo.Find(item))))
			} else {
				s.push(value.NewInteger(0))
			}
		case bytecode.ListLen:
			lst := s.pop()
			if lo := lst.ListObj(); lo != nil {
				s.push(value.NewInteger(int64(lo.Len())))
			} else {
				s.push(value.NewInteger(0))
			}
		case bytecode.ListContains:
			item := s.pop()
			lst := s.pop()
			if lo := lst.ListObj(); lo != nil {
				s.push(value.NewBool(lo.Contains(item)))
			} else {
				s.push(value.NewBool(false))
			}

		case bytecode.VarShow, bytecode.VarHide:
			s.pop() // variable-name operand; watcher visibility is a render/host concern

		case bytecode.Ext:
			if err := vm.execExt(s, cur); err != nil {
				return err
			}

		default:
			return &Panic{Reason: "unimplemented opcode " + op.String()}
		}
	}
}

func (vm *VirtualMachine) storeStatic(s *Script, id uint32, v value.Value) error {
	if isLocalField(id) {
		value.Assign(s.Sprite.Field(fieldIndex(id)), v)
		return nil
	}
	ref, err := vm.GetStatic(id)
	if err != nil {
		return err
	}
	value.Assign(ref, v)
	return nil
}

func (vm *VirtualMachine) loadStatic(s *Script, id uint32) (value.Value, error) {
	if isLocalField(id) {
		return *s.Sprite.Field(fieldIndex(id)), nil
	}
	ref, err := vm.GetStatic(id)
	if err != nil {
		return value.Zero(), err
	}
	return *ref, nil
}

const localFieldBit = uint32(1) << 23

func isLocalField(id uint32) bool { return id&localFieldBit != 0 }
func fieldIndex(id uint32) uint32 { return id &^ localFieldBit }

func (vm *VirtualMachine) random(lo, hi value.Value) value.Value {
	a, b := lo.AsNumber(), hi.AsNumber()
	if a > b {
		a, b = b, a
	}
	if isIntegral(lo) && isIntegral(hi) {
		lo64, hi64 := int64(a), int64(b)
		return value.NewInteger(lo64 + vm.rng.Int63n(hi64-lo64+1))
	}
	return value.NewReal(a + vm.rng.Float64()*(b-a))
}

func isIntegral(v value.Value) bool {
	n := v.AsNumber()
	return n == math.Trunc(n)
}

func (vm *VirtualMachine) bounceOnEdge(inst *Instance) {
	const halfW, halfH = 240.0, 180.0
	if inst.X <= -halfW || inst.X >= halfW {
		inst.SetDirection(-inst.Direction + 180)
	}
	if inst.Y <= -halfH || inst.Y >= halfH {
		inst.SetDirection(-inst.Direction)
	}
}

func (vm *VirtualMachine) setCostumeByValue(inst *Instance, v value.Value) {
	if v.IsRef() && v.StrObj() != nil {
		name := v.ToScratchString()
		if idx := inst.Base.FindCostume(name); idx > 0 {
			inst.SetCostume(int64(idx))
			return
		}
	}
	inst.SetCostume(int64(v.AsNumber()))
}

func (vm *VirtualMachine) playSoundByValue(inst *Instance, v value.Value, done func()) {
	name := v.ToScratchString()
	idx := inst.Base.FindSound(name)
	if idx == 0 {
		if done != nil {
			done()
		}
		return
	}
	snd := &inst.Base.Sounds[idx-1]
	vm.Host.PlaySound(inst, snd, snd.Data, done)
}

func (vm *VirtualMachine) touching(inst *Instance, target value.Value) bool {
	name := target.ToScratchString()
	if name == "_mouse_" {
		x, y := vm.Host.MousePosition()
		return inst.TouchingPoint(x, y)
	}
	for _, other := range vm.Instances {
		if other == inst || other.Deleted || !other.Visible {
			continue
		}
		if other.Base.Name == name {
			if inst.TouchingSprite(other) {
				return true
			}
		}
	}
	return false
}

func (vm *VirtualMachine) distanceTo(inst *Instance, target value.Value) float64 {
	name := target.ToScratchString()
	var tx, ty float64
	if name == "_mouse_" {
		tx, ty = vm.Host.MousePosition()
	} else {
		for _, other := range vm.Instances {
			if other.Base.Name == name {
				tx, ty = other.X, other.Y
				break
			}
		}
	}
	dx, dy := inst.X-tx, inst.Y-ty
	return math.Sqrt(dx*dx + dy*dy)
}

func (vm *VirtualMachine) propertyOf(target, prop value.Value) value.Value {
	name := target.ToScratchString()
	propName := prop.ToScratchString()
	for _, inst := range vm.Instances {
		if inst.Base.Name != name {
			continue
		}
		switch propName {
		case "x position":
			return value.NewReal(inst.X)
		case "y position":
			return value.NewReal(inst.Y)
		case "direction":
			return value.NewReal(inst.Direction)
		case "costume #":
			return value.NewInteger(inst.Costume)
		case "size":
			return value.NewReal(inst.Size)
		case "visible":
			return value.NewBool(inst.Visible)
		}
		if idx, ok := vm.instanceVariableIndex(inst, propName); ok {
			return *inst.Field(idx)
		}
	}
	return value.Zero()
}

// instanceVariableIndex is a placeholder hook: variable lookup-by-name
// for "of" reporters needs the sprite's declared-name table, which the
// current sprite-table format does not carry (see DESIGN.md — a known
// simplification of spec §4.B's asset table).
func (vm *VirtualMachine) instanceVariableIndex(inst *Instance, name string) (uint32, bool) {
	return 0, false
}

func (vm *VirtualMachine) cloneByValue(s *Script, target value.Value) error {
	name := target.ToScratchString()
	var tmpl *Instance
	if name == "_myself_" {
		tmpl = s.Sprite
	} else {
		for _, inst := range vm.Instances {
			if inst.Base.Name == name {
				tmpl = inst
				break
			}
		}
	}
	if tmpl == nil {
		return nil
	}
	clone, err := tmpl.Base.Instantiate(tmpl)
	if err != nil {
		return &Panic{Reason: "too many instances", Cause: err}
	}
	vm.Instances = append(vm.Instances, clone)
	vm.SendCloneStart(clone)
	return nil
}

// execMotionExtended handles the motion opcodes whose operand shape or
// multi-tick behavior (gliding) doesn't fit the single-line cases
// above. Glide/GlideXY only record the glide window here; actual
// per-frame interpolation happens in scheduler.go's advanceGlides,
// which runs independent of the owning script's Waiting state so the
// sprite keeps moving every tick even though the script itself isn't
// being re-entered (spec §4.G "glide runs across many frames").
func (vm *VirtualMachine) execMotionExtended(s *Script, op bytecode.Opcode) {
	switch op {
	case bytecode.GotoTarget:
		target := s.pop()
		name := target.ToScratchString()
		if name == "_mouse_" {
			x, y := vm.Host.MousePosition()
			s.Sprite.SetXY(x, y)
			return
		}
		if name == "_random_" {
			s.Sprite.SetXY(vm.rng.Float64()*480-240, vm.rng.Float64()*360-180)
			return
		}
		for _, other := range vm.Instances {
			if other.Base.Name == name {
				s.Sprite.SetXY(other.X, other.Y)
				return
			}
		}
	case bytecode.LookAt:
		target := s.pop()
		name := target.ToScratchString()
		var tx, ty float64
		if name == "_mouse_" {
			tx, ty = vm.Host.MousePosition()
		} else {
			for _, other := range vm.Instances {
				if other.Base.Name == name {
					tx, ty = other.X, other.Y
				}
			}
		}
		dx, dy := tx-s.Sprite.X, ty-s.Sprite.Y
		deg := math.Atan2(dx, dy) * 180 / math.Pi
		s.Sprite.SetDirection(deg)
	case bytecode.GlideXY:
		secs := s.pop().AsNumber()
		y, x := s.pop().AsNumber(), s.pop().AsNumber()
		vm.beginGlide(s.Sprite, x, y, secs)
	case bytecode.Glide:
		secs := s.pop().AsNumber()
		target := s.pop()
		name := target.ToScratchString()
		var tx, ty float64
		for _, other := range vm.Instances {
			if other.Base.Name == name {
				tx, ty = other.X, other.Y
			}
		}
		vm.beginGlide(s.Sprite, tx, ty, secs)
	}
}

// beginGlide records a glide window on inst; advanceGlides (called
// once per tick from the scheduler) performs the actual interpolation.
func (vm *VirtualMachine) beginGlide(inst *Instance, x1, y1, secs float64) {
	g := &inst.Glide
	g.x0, g.y0 = inst.X, inst.Y
	g.x1, g.y1 = x1, y1
	g.start = vm.Clock
	g.end = vm.Clock + secs
	g.active = secs > 0
	if !g.active {
		inst.SetXY(x1, y1)
	}
}

// advanceGlides interpolates every active glide's position for the
// current vm.Clock, snapping to the target and clearing the glide once
// its window elapses.
func (vm *VirtualMachine) advanceGlides() {
	for _, inst := range vm.Instances {
		g := &inst.Glide
		if !g.active {
			continue
		}
		if vm.Clock >= g.end {
			inst.SetXY(g.x1, g.y1)
			g.active = false
			continue
		}
		t := (vm.Clock - g.start) / (g.end - g.start)
		inst.SetXY(g.x0+(g.x1-g.x0)*t, g.y0+(g.y1-g.y0)*t)
	}
}
