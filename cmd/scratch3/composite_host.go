package main

import (
	"scratchvm/internal/audio"
	"scratchvm/internal/iohost"
	"scratchvm/internal/render"
	"scratchvm/internal/vm"
)

// compositeHost satisfies vm.Host by embedding the three collaborator
// packages' concrete types, each of which already implements one
// facet (Render/Audio/Input) — the CLI's only job is gluing them into
// a single value to hand to host.Context.VMInit.
type compositeHost struct {
	*render.SoftwareRenderer
	*audio.SDLMixer
	*iohost.SDLInput
}

var _ vm.Host = (*compositeHost)(nil)

func newCompositeHost(r *render.SoftwareRenderer, a *audio.SDLMixer, in *iohost.SDLInput) *compositeHost {
	return &compositeHost{SoftwareRenderer: r, SDLMixer: a, SDLInput: in}
}

// Close releases the audio device; host.DestroyContext probes for
// this via a type assertion.
func (h *compositeHost) Close() { h.SDLMixer.Close() }
