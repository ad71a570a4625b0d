package vm

import (
	"math/rand"

	"scratchvm/internal/bytecode"
	"scratchvm/internal/logging"
	"scratchvm/internal/value"
)

// listener binds a compiled script entry point to the sprite instance
// that owns it, the unit the scheduler restarts on a matching event
// (spec §4.F).
type listener struct {
	inst  *Instance
	entry uint64
}

// VirtualMachine owns every live sprite instance, the global static
// store, and the scheduler's run queue — the Go analogue of
// original_source/libscratch3/src/vm/vm.hpp's VirtualMachine, with the
// fiber/setjmp machinery replaced by resumable Script state (see
// script.go) and the panic-via-longjmp replaced by a returned *Panic.
type VirtualMachine struct {
	Image *bytecode.Image
	Host  Host
	Log   *logging.Logger

	Globals []value.Value

	Sprites   []*AbstractSprite
	Instances []*Instance
	Stage     *Instance

	scripts []*Script

	flagListeners      []listener
	keyListeners       map[int][]listener
	clickListeners     []listener
	broadcastListeners map[string][]listener

	rng *rand.Rand

	Clock       float64 // seconds, advanced once per VMUpdate
	Timer       float64 // reset by ResetTimer / project start
	Answer      value.Value
	AskQueue    []askRequest
	Suspended   bool
	Terminating bool

	// pendingBroadcasts is filled by interpreter opcodes during a tick
	// and drained by the scheduler at the start of the next VMUpdate,
	// so a broadcast fired mid-tick affects only the next tick's
	// listener set (spec §4.E step 2 "dispatch events collected since
	// the last tick").
	pendingBroadcasts []string
}

type askRequest struct {
	script   *Script
	question string
}

// New constructs a VirtualMachine from a loaded image and a concrete
// Host (the cmd/ front-end wires render.SoftwareRenderer, audio.SDLMixer,
// iohost.SDLInput together to satisfy it).
func New(img *bytecode.Image, host Host, log *logging.Logger) *VirtualMachine {
	return &VirtualMachine{
		Image:              img,
		Host:               host,
		Log:                log,
		keyListeners:       make(map[int][]listener),
		broadcastListeners: make(map[string][]listener),
		rng:                rand.New(rand.NewSource(1)),
		Answer:             value.NewString(""),
	}
}

// GetStatic returns a reference to global static id (spec §3.6
// "GetStaticVariable", panics-on-missing replaced by a Panic return —
// callers are generated code, so an out-of-range id is always an
// internal compiler/loader bug, not a user-reachable error).
func (vm *VirtualMachine) GetStatic(id uint32) (*value.Value, error) {
	if int(id) >= len(vm.Globals) {
		return nil, &Panic{Reason: "static variable id out of range"}
	}
	return &vm.Globals[id], nil
}

// AllScripts returns every live Script across every instance, in
// stable creation order — the scheduler's round-robin base list.
func (vm *VirtualMachine) AllScripts() []*Script { return vm.scripts }

func (vm *VirtualMachine) addScript(s *Script) { vm.scripts = append(vm.scripts, s) }

// removeScript drops a terminated script from the run list (spec
// §4.E step 4 "reap finished voices / clear scheduled flags").
func (vm *VirtualMachine) removeScript(s *Script) {
	for i, sc := range vm.scripts {
		if sc == s {
			vm.scripts = append(vm.scripts[:i], vm.scripts[i+1:]...)
			return
		}
	}
}

// restart puts a listener's script back at Runnable from its entry
// point, per spec §4.F: "if a matching script is already running, it
// restarts instead of running concurrently with itself."
func (vm *VirtualMachine) restart(inst *Instance, entry uint64) {
	for _, s := range inst.Scripts {
		if s.Entry == entry {
			s.Reset()
			s.State = Runnable
			return
		}
	}
	s := NewScript(inst, entry)
	s.Reset()
	s.State = Runnable
	inst.Scripts = append(inst.Scripts, s)
	vm.addScript(s)
}

// SendFlagClicked restarts every green-flag listener (spec §4.F).
func (vm *VirtualMachine) SendFlagClicked() {
	for _, l := range vm.flagListeners {
		vm.restart(l.inst, l.entry)
	}
	vm.Timer = 0
}

// SendKeyPressed restarts every "when key pressed" listener bound to
// scancode.
func (vm *VirtualMachine) SendKeyPressed(scancode int) {
	for _, l := range vm.keyListeners[scancode] {
		vm.restart(l.inst, l.entry)
	}
}

// SendClicked restarts inst's click listeners (spec §4.F "when this
// sprite clicked" is scoped to the clicked instance only).
func (vm *VirtualMachine) SendClicked(inst *Instance) {
	for _, l := range inst.Base.ClickListeners {
		vm.restart(inst, l)
	}
}

// Broadcast queues message for dispatch at the next tick boundary.
func (vm *VirtualMachine) Broadcast(message string) {
	vm.pendingBroadcasts = append(vm.pendingBroadcasts, message)
}

// drainBroadcasts restarts every listener for each message queued
// since the previous tick (spec §4.E step 2).
func (vm *VirtualMachine) drainBroadcasts() {
	if len(vm.pendingBroadcasts) == 0 {
		return
	}
	msgs := vm.pendingBroadcasts
	vm.pendingBroadcasts = nil
	for _, msg := range msgs {
		for _, l := range vm.broadcastListeners[msg] {
			vm.restart(l.inst, l.entry)
		}
	}
}

// broadcastNow restarts message's listeners immediately (not deferred
// to the next tick boundary, unlike Broadcast) and returns the scripts
// that were restarted, so SendAndWait's caller can block on them
// (spec §4.F "broadcast and wait blocks until every listener finishes").
func (vm *VirtualMachine) broadcastNow(message string) []*Script {
	var restarted []*Script
	for _, l := range vm.broadcastListeners[message] {
		vm.restart(l.inst, l.entry)
		for _, sc := range l.inst.Scripts {
			if sc.Entry == l.entry {
				restarted = append(restarted, sc)
				break
			}
		}
	}
	return restarted
}

// SendCloneStart restarts inst's "when I start as a clone" listeners,
// invoked once right after Instantiate (spec §4.F/§4.G).
func (vm *VirtualMachine) SendCloneStart(inst *Instance) {
	for _, entry := range inst.Base.CloneEntry {
		vm.restart(inst, entry)
	}
}

// EnqueueAsk queues a blocking question; the scheduler pumps
// vm.AskQueue through Host.AskAndWait one at a time so only one
// question dialog is ever open (spec §4.F "ask and wait serializes
// across scripts").
func (vm *VirtualMachine) EnqueueAsk(s *Script, question string) {
	vm.AskQueue = append(vm.AskQueue, askRequest{script: s, question: question})
	s.AskInput = true
}

// pumpAsk advances the front of the ask queue, if any, answering the
// waiting script once Host reports completion.
func (vm *VirtualMachine) pumpAsk() {
	for len(vm.AskQueue) > 0 {
		req := vm.AskQueue[0]
		answer, done := vm.Host.AskAndWait(req.question)
		if !done {
			return
		}
		vm.Answer = value.NewString(answer)
		req.script.AskInput = false
		if req.script.State == Waiting {
			req.script.State = Runnable
		}
		vm.AskQueue = vm.AskQueue[1:]
	}
}
