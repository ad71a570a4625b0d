package vm

// defaultFrameSeconds is the tick length VMUpdate advances vm.Clock by
// when the host passes dt <= 0, matching the project's 30 fps simulation rate
// (original engine drives this from the render vsync; here it is a
// parameter the host passes in so headless runs can use a different
// cadence).
const defaultFrameSeconds = 1.0 / 30.0

// VMUpdate runs one scheduler tick: poll host events, dispatch queued
// events, round-robin every runnable script until it yields or blocks,
// reap terminated scripts, then hand off to Host for presentation.
// This is the Go rendering of spec §4.E's five-step algorithm — a
// single synchronous call per frame rather than the original's
// dedicated VM thread.
func (vm *VirtualMachine) VMUpdate(dt float64) (terminate bool, err error) {
	if vm.Suspended {
		return false, nil
	}
	if dt <= 0 {
		dt = defaultFrameSeconds
	}
	vm.Clock += dt
	vm.Timer += dt

	// Step 1: poll host events.
	if vm.Host.PollFlagPressed() {
		vm.SendFlagClicked()
	}

	// Step 2: dispatch events collected since the last tick.
	vm.drainBroadcasts()
	vm.pumpAsk()
	vm.advanceGlides()

	// Step 3: round-robin script stepping with state transitions.
	for _, s := range vm.scripts {
		switch s.State {
		case Runnable:
			s.State = Running
			fallthrough
		case Running:
			if werr := vm.runScript(s); werr != nil {
				if p, ok := werr.(*Panic); ok {
					return true, p
				}
				if ex, ok := werr.(interface{ Error() string }); ok {
					vm.Log.Error("vm", "script exception: "+ex.Error(), nil)
				}
				s.State = Terminated
			}
		case Waiting:
			if len(s.WaitFor) > 0 {
				if allTerminatedOrGone(s.WaitFor) {
					s.WaitFor = nil
					s.State = Runnable
				}
				continue
			}
			if s.SleepUntil <= vm.Clock && !s.WaitInput && !s.AskInput {
				s.State = Runnable
			}
		}
	}

	// Step 4: reap finished scripts and finished clones.
	vm.reap()

	// Step 5: render.
	vm.renderFrame()

	return vm.Terminating && vm.allTerminated(), nil
}

// reap drops Terminated scripts from the run list and frees any
// deleted clone instances whose scripts have all finished (spec §4.G
// "a clone is not actually freed until its last script yields").
func (vm *VirtualMachine) reap() {
	live := vm.scripts[:0]
	for _, s := range vm.scripts {
		if s.State == Terminated {
			continue
		}
		live = append(live, s)
	}
	vm.scripts = live

	for _, inst := range append([]*Instance(nil), vm.Instances...) {
		if !inst.Deleted {
			continue
		}
		if vm.instanceHasLiveScript(inst) {
			continue
		}
		vm.destroyInstance(inst)
	}
}

func allTerminatedOrGone(scripts []*Script) bool {
	for _, s := range scripts {
		if s.State != Terminated {
			return false
		}
	}
	return true
}

func (vm *VirtualMachine) instanceHasLiveScript(inst *Instance) bool {
	for _, s := range vm.scripts {
		if s.Sprite == inst && s.State != Terminated {
			return true
		}
	}
	return false
}

func (vm *VirtualMachine) allTerminated() bool {
	return len(vm.scripts) == 0
}

// renderFrame submits every visible instance to the Host renderer in
// layer order and presents the composited frame.
func (vm *VirtualMachine) renderFrame() {
	for _, inst := range vm.Instances {
		if inst.Deleted || !inst.Visible {
			continue
		}
		cos := inst.Base.GetCostume(inst.Costume)
		if cos == nil {
			continue
		}
		inst.UpdateTransform(float64(cos.Width), float64(cos.Height))
		vm.Host.DrawSprite(inst, cos, cos.Data)
	}
	vm.Host.Present()
}

// GetCostume resolves a 1-based costume index, or nil if out of range
// (spec §4.G "GetCostume bounds check").
func (a *AbstractSprite) GetCostume(id int64) *Costume {
	if id < 1 || int(id) > len(a.Costumes) {
		return nil
	}
	return &a.Costumes[id-1]
}

func (vm *VirtualMachine) destroyInstance(inst *Instance) {
	inst.Base.Free(inst)
	for i, other := range vm.Instances {
		if other == inst {
			vm.Instances = append(vm.Instances[:i], vm.Instances[i+1:]...)
			break
		}
	}
}
