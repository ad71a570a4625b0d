package vm

import (
	"scratchvm/internal/bytecode"
	"scratchvm/internal/value"
)

// PenState is the per-instance pen extension state (spec §4.H "ext",
// grounded on original_source's pen extension: down/up, color/size
// parameters, and the stamped trail the renderer composites).
type PenState struct {
	Down  bool
	Size  float64
	Hue   float64
	Sat   float64
	Light float64
	Alpha float64
}

func newPenState() PenState {
	return PenState{Size: 1, Sat: 100, Light: 50, Alpha: 100}
}

// execExt dispatches an Ext instruction to its extension namespace.
// Only the pen extension is wired (spec §4.H lists it as the sole
// extension in scope); an unrecognized ExtID raises a Panic, since
// reaching one always indicates a codegen/loader mismatch, never a
// user-reachable condition.
func (vm *VirtualMachine) execExt(s *Script, cur cursor) error {
	id := bytecode.ExtID(cur.u8())
	switch id {
	case bytecode.ExtPen:
		return vm.execPen(s, bytecode.PenOp(cur.u8()))
	default:
		return &Panic{Reason: "unknown extension namespace"}
	}
}

func (vm *VirtualMachine) execPen(s *Script, op bytecode.PenOp) error {
	inst := s.Sprite
	pen := &inst.pen
	switch op {
	case bytecode.PenNoop:
	case bytecode.PenErase:
		if clearer, ok := vm.Host.(interface{ PenClear() }); ok {
			clearer.PenClear()
		}
	case bytecode.PenStamp:
		vm.stampPen(inst)
	case bytecode.PenDown:
		pen.Down = true
	case bytecode.PenUp:
		pen.Down = false
	case bytecode.PenAddParam:
		amount := s.pop().AsNumber()
		param := s.pop()
		vm.addPenParam(pen, param.ToScratchString(), amount)
	case bytecode.PenSetParam:
		v := s.pop().AsNumber()
		param := s.pop()
		vm.setPenParam(pen, param.ToScratchString(), v)
	case bytecode.PenFindParam:
		param := s.pop()
		s.push(value.NewReal(vm.penParam(pen, param.ToScratchString())))
	case bytecode.PenAddSize:
		pen.Size += s.pop().AsNumber()
	case bytecode.PenSetSize:
		pen.Size = s.pop().AsNumber()
	default:
		return &Panic{Reason: "unknown pen opcode"}
	}
	return nil
}

func (vm *VirtualMachine) addPenParam(pen *PenState, name string, amount float64) {
	switch name {
	case "color", "hue":
		pen.Hue += amount
	case "saturation":
		pen.Sat += amount
	case "brightness", "lightness":
		pen.Light += amount
	case "transparency":
		pen.Alpha -= amount
	}
}

func (vm *VirtualMachine) penParam(pen *PenState, name string) float64 {
	switch name {
	case "color", "hue":
		return pen.Hue
	case "saturation":
		return pen.Sat
	case "brightness", "lightness":
		return pen.Light
	case "transparency":
		return 100 - pen.Alpha
	}
	return 0
}

func (vm *VirtualMachine) setPenParam(pen *PenState, name string, v float64) {
	switch name {
	case "color", "hue":
		pen.Hue = v
	case "saturation":
		pen.Sat = v
	case "brightness", "lightness":
		pen.Light = v
	case "transparency":
		pen.Alpha = 100 - v
	}
}

// stampPen asks the renderer to composite inst's current costume onto
// the pen trail immediately — "stamp" is a draw, not a pen-down state
// change.
func (vm *VirtualMachine) stampPen(inst *Instance) {
	if stamper, ok := vm.Host.(interface{ PenStamp(*Instance, *Costume) }); ok {
		stamper.PenStamp(inst, inst.Base.GetCostume(inst.Costume))
	}
}
