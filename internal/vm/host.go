package vm

// Host is the set of effectful services the interpreter calls out to:
// drawing, audio, and input polling. It mirrors the teacher's
// bus.PPUHandler/APUHandler/InputHandler split (internal/memory's Bus
// struct wires concrete ppu.PPU/apu.APU/input.InputSystem through
// exactly this kind of handler interface) — here the VM is the "bus"
// and render/audio/iohost each implement one facet of Host.
type Host interface {
	Render

	Audio

	Input
}

// Render is the drawing facet of Host.
type Render interface {
	// DrawSprite submits one sprite instance for compositing this
	// frame, in the order sprites should be layered back-to-front.
	DrawSprite(inst *Instance, costume *Costume, pixels []byte)
	// Present flips the completed frame to the screen.
	Present()
}

// Audio is the sound facet of Host.
type Audio interface {
	PlaySound(inst *Instance, snd *Sound, data []byte, waitDone func())
	StopSound(inst *Instance)
	StopAllSounds()
	SetVolume(inst *Instance, volume float64)
}

// Input is the polled-input facet of Host.
type Input interface {
	KeyDown(scancode int) bool
	AnyKeyDown() bool
	MousePosition() (x, y float64)
	MouseIsDown() bool
	PollFlagPressed() bool
	// AskAndWait prompts the user with question and blocks the calling
	// script's tick until an answer is available (spec §4.F
	// "ask...and wait").
	AskAndWait(question string) (answer string, done bool)
}
