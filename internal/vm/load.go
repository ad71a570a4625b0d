package vm

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"scratchvm/internal/bytecode"
	"scratchvm/internal/value"
)

// Load decodes img's sprite table into live AbstractSprite templates
// and the stage/sprite Instance set, runs every initializer, and
// registers event listeners — the Go analogue of
// original_source/libscratch3/src/vm/vm.hpp's VirtualMachine::Load.
func (vm *VirtualMachine) Load(img *bytecode.Image) error {
	vm.Image = img
	rows := bytecode.ReadSpriteTable(img)

	// The loader does not read a global static count; it sizes
	// vm.Globals at a fixed 1024 slots, and a GetStatic/SetStatic past
	// that is a VM panic.
	vm.Globals = make([]value.Value, 1024)

	for _, row := range rows {
		abs := NewAbstractSprite(img.StringAtPtr(row.NamePtr), row.IsStage, int(row.FieldCount))
		for _, cr := range row.Costumes {
			data := img.BytesAtPtr(cr.DataPtr, cr.DataLen)
			w, h := bitmapDimensions(data)
			abs.Costumes = append(abs.Costumes, Costume{
				Name:       img.StringAtPtr(cr.NamePtr),
				DataFormat: img.StringAtPtr(cr.FormatPtr),
				BitmapRes:  int(cr.BitmapResolution),
				Width:      w,
				Height:     h,
				Data:       data,
			})
		}
		for _, sr := range row.Sounds {
			abs.Sounds = append(abs.Sounds, Sound{
				Name:        img.StringAtPtr(sr.NamePtr),
				DataFormat:  img.StringAtPtr(sr.FormatPtr),
				Rate:        int(sr.SampleRate),
				SampleCount: int(sr.SampleCount),
				Data:        img.BytesAtPtr(sr.DataPtr, sr.DataLen),
			})
		}

		inst, err := abs.Instantiate(nil)
		if err != nil {
			return err
		}
		inst.X, inst.Y = row.X, row.Y
		inst.Direction = row.Direction
		inst.Size = row.Size
		inst.Costume = int64(row.CurrentCostume) + 1
		inst.Visible = row.Visible
		inst.Draggable = row.Draggable
		inst.RotationStyle = RotationStyle(row.RotationStyle)

		vm.Sprites = append(vm.Sprites, abs)
		vm.Instances = append(vm.Instances, inst)
		if row.IsStage {
			vm.Stage = inst
		}

		// Run the field initializer synchronously to seed globals and
		// this instance's fields (spec §4.C "initializer runs once at
		// load, before any script").
		if err := vm.runInitializer(inst, row.InitEntry); err != nil {
			return err
		}

		for _, sr := range row.Scripts {
			vm.registerScript(abs, inst, sr.TextEntry)
		}
	}
	return nil
}

// runInitializer executes a sprite's field-initializer code to
// completion in a scratch Script; initializers never yield, so this
// never blocks the loader.
func (vm *VirtualMachine) runInitializer(inst *Instance, entry uint64) error {
	s := NewScript(inst, entry)
	s.Reset()
	s.State = Running
	return vm.runScript(s)
}

// registerScript inspects the opcode at entry to classify the script's
// hat and register the right listener, then advances past the hat
// instruction to find the body's true restart point (spec §4.F: a
// restarted script resumes execution right after its own hat, since
// the hat itself carries no runtime effect beyond dispatch wiring).
func (vm *VirtualMachine) registerScript(abs *AbstractSprite, inst *Instance, entry uint64) {
	text := img_(vm)
	op := bytecode.Opcode(text[entry])
	body := entry + 1

	switch op {
	case bytecode.OnFlag:
		vm.flagListeners = append(vm.flagListeners, listener{inst: inst, entry: body})
	case bytecode.OnKey:
		scancode := int(u16(text, entry+1))
		body = entry + 1 + 2
		vm.keyListeners[scancode] = append(vm.keyListeners[scancode], listener{inst: inst, entry: body})
	case bytecode.OnClick:
		abs.ClickListeners = append(abs.ClickListeners, body)
	case bytecode.OnBackdropSwitch:
		// Like on-gt below, this hat has no external trigger: it polls
		// the stage's current backdrop name via its own compiled
		// wait-loop, so it is runnable from the moment the project
		// loads rather than dispatched through a listener map.
	case bytecode.OnGreaterThan:
		// "when > " has no external trigger: it polls its own sensor
		// continuously via the compiled wait-loop, so unlike the other
		// hats it is runnable from the moment the project loads.
	case bytecode.OnEvent:
		ptr := u64(text, entry+1)
		body = entry + 1 + 8
		name := vm.Image.StringAtPtr(ptr)
		vm.broadcastListeners[name] = append(vm.broadcastListeners[name], listener{inst: inst, entry: body})
	case bytecode.OnClone:
		abs.CloneEntry = append(abs.CloneEntry, body)
	default:
		// No hat: a procedure body reached via Call, not a scheduled
		// script; nothing to register.
		return
	}

	s := NewScript(inst, body)
	s.Reset()
	if op == bytecode.OnGreaterThan || op == bytecode.OnBackdropSwitch {
		s.State = Runnable
	}
	inst.Scripts = append(inst.Scripts, s)
	vm.addScript(s)
}

// bitmapDimensions decodes just enough of an encoded costume (PNG/JPEG/
// GIF) to report its pixel size; vector costumes (SVG) fall back to 0x0.
// No package in this tree decodes or rasterizes SVG.
func bitmapDimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

func img_(vm *VirtualMachine) []byte { return vm.Image.Text() }

func u16(b []byte, off uint64) uint16 { return uint16(b[off]) | uint16(b[off+1])<<8 }
func u64(b []byte, off uint64) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[off+uint64(i)]) << (8 * i)
	}
	return v
}
