// Package iohost is the input facet of the host API (spec §6.4): an
// SDL-backed poller that captures one event-loop snapshot per tick and
// serves it immutably to every Input consumer until the next poll —
// the same "latch once, read many" discipline the teacher's
// internal/input.InputSystem enforced with an edge-triggered hardware
// register, here done with a plain snapshot struct since there is no
// memory-mapped bus to desynchronize.
package iohost

import (
	"sync"

	"github.com/veandco/go-sdl2/sdl"

	"scratchvm/internal/logging"
	"scratchvm/internal/vm"
)

// SDLInput polls SDL's event queue once per Poll call and
// answers every Input method from that snapshot for the rest of the
// tick.
type SDLInput struct {
	Logger *logging.Logger

	mu          sync.Mutex
	keys        map[int]bool
	mouseX      float64
	mouseY      float64
	mouseDown   bool
	flagPressed bool
	quit        bool

	askMu   sync.Mutex
	pending chan string // answer channel for the in-flight AskAndWait, nil when idle
}

var _ vm.Input = (*SDLInput)(nil)

// NewSDLInput constructs a poller with no keys down and the mouse at
// the stage origin.
func NewSDLInput(logger *logging.Logger) *SDLInput {
	return &SDLInput{Logger: logger, keys: make(map[int]bool)}
}

// Poll drains SDL's event queue into this tick's snapshot. Call once
// per scheduler tick, before the VM reads any Input method.
func (s *SDLInput) Poll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flagPressed = false
	for {
		ev := sdl.PollEvent()
		if ev == nil {
			break
		}
		switch e := ev.(type) {
		case *sdl.QuitEvent:
			s.quit = true
		case *sdl.KeyboardEvent:
			s.keys[int(e.Keysym.Scancode)] = e.State == sdl.PRESSED
			if e.State == sdl.PRESSED && e.Keysym.Sym == sdl.K_ESCAPE {
				s.flagPressed = true
			}
		case *sdl.MouseMotionEvent:
			s.mouseX, s.mouseY = float64(e.X), float64(e.Y)
		case *sdl.MouseButtonEvent:
			s.mouseDown = e.State == sdl.PRESSED
		}
	}
}

// Quit reports whether the OS asked the window to close.
func (s *SDLInput) Quit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quit
}

func (s *SDLInput) KeyDown(scancode int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[scancode]
}

func (s *SDLInput) AnyKeyDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, down := range s.keys {
		if down {
			return true
		}
	}
	return false
}

func (s *SDLInput) MousePosition() (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mouseX, s.mouseY
}

func (s *SDLInput) MouseIsDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mouseDown
}

// PollFlagPressed reports the "click the green flag" gesture — this
// port maps it to Escape as a keyboard-only stand-in, since the real
// flag button is owned by the embedding UI, not this package (spec
// §6.4's PollFlagPressed is explicitly host-supplied rather than
// VM-decided).
func (s *SDLInput) PollFlagPressed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flagPressed
}

// AskAndWait stores question for the embedding UI to display and
// blocks (by returning done=false) until SubmitAnswer delivers a
// response — the scheduler re-polls every tick rather than this call
// blocking the goroutine, matching spec §4.F's "ask...and wait" being
// cooperative, not OS-blocking.
func (s *SDLInput) AskAndWait(question string) (string, bool) {
	s.askMu.Lock()
	defer s.askMu.Unlock()
	if s.pending == nil {
		s.pending = make(chan string, 1)
		if s.Logger != nil {
			s.Logger.Info(logging.ComponentHost, "ask: %s", question)
		}
		return "", false
	}
	select {
	case answer := <-s.pending:
		s.pending = nil
		return answer, true
	default:
		return "", false
	}
}

// SubmitAnswer delivers a typed answer to the in-flight AskAndWait
// question; the embedding UI calls this once the user presses enter.
func (s *SDLInput) SubmitAnswer(answer string) {
	s.askMu.Lock()
	defer s.askMu.Unlock()
	if s.pending != nil {
		select {
		case s.pending <- answer:
		default:
		}
	}
}
