package vm

import (
	"testing"

	"scratchvm/internal/ast"
	"scratchvm/internal/bytecode"
	"scratchvm/internal/compiler"
	"scratchvm/internal/logging"
)

// noopHost is a Host stand-in recording just enough to assert on
// without touching any real rendering/audio/input backend.
type noopHost struct {
	flagPressed bool
	presents    int
	drawn       int
}

func (h *noopHost) DrawSprite(*Instance, *Costume, []byte) { h.drawn++ }
func (h *noopHost) Present()                               { h.presents++ }
func (h *noopHost) PlaySound(*Instance, *Sound, []byte, func()) {}
func (h *noopHost) StopSound(*Instance)                         {}
func (h *noopHost) StopAllSounds()                              {}
func (h *noopHost) SetVolume(*Instance, float64)                {}
func (h *noopHost) KeyDown(int) bool                            { return false }
func (h *noopHost) AnyKeyDown() bool                            { return false }
func (h *noopHost) MousePosition() (float64, float64)           { return 0, 0 }
func (h *noopHost) MouseIsDown() bool                           { return false }
func (h *noopHost) PollFlagPressed() bool                       { return h.flagPressed }
func (h *noopHost) AskAndWait(string) (string, bool)            { return "", false }

var _ Host = (*noopHost)(nil)

func buildAndLoad(t *testing.T, prog *ast.Program) (*VirtualMachine, *noopHost) {
	t.Helper()
	res, err := compiler.Compile(prog, nil)
	if err != nil {
		t.Fatalf("Compile: %v (diags=%+v)", err, res.Diagnostics)
	}
	img, err := bytecode.Load(res.Image)
	if err != nil {
		t.Fatalf("bytecode.Load: %v", err)
	}
	h := &noopHost{}
	v := New(img, h, logging.NewLogger(100))
	if err := v.Load(img); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return v, h
}

func flagIncrementProgram(n int) *ast.Program {
	stage := &ast.Sprite{Name: "Stage", IsStage: true, Size: 100, Visible: true}
	sprite := &ast.Sprite{
		Name:      "Sprite1",
		Size:      100,
		Visible:   true,
		Variables: []ast.VarDecl{{Name: "counter", Initial: "0"}},
		Scripts: []*ast.Script{
			{
				Hat: ast.OnFlag{},
				Body: []ast.Statement{
					ast.SetVar{Var: "counter", Value: ast.NumberLit{Value: 0}},
					ast.RepeatCount{
						Count: ast.NumberLit{Value: float64(n)},
						Body: []ast.Statement{
							ast.ChangeVar{Var: "counter", Value: ast.NumberLit{Value: 1}},
						},
					},
				},
			},
		},
	}
	return &ast.Program{Stage: stage, Sprites: []*ast.Sprite{sprite}}
}

// TestFlagIncrementRunsToCompletion exercises spec §4.E/§4.F: a green
// flag script increments a local field once per repeat iteration,
// yielding a tick between each one, and eventually terminates.
func TestFlagIncrementRunsToCompletion(t *testing.T) {
	const iterations = 10
	v, h := buildAndLoad(t, flagIncrementProgram(iterations))

	h.flagPressed = true
	if _, err := v.VMUpdate(1.0 / 30); err != nil {
		t.Fatalf("VMUpdate: %v", err)
	}
	h.flagPressed = false

	for i := 0; i < iterations+2; i++ {
		if _, err := v.VMUpdate(1.0 / 30); err != nil {
			t.Fatalf("VMUpdate: %v", err)
		}
	}

	sprite := v.Instances[1]
	got := sprite.Fields[0].AsNumber()
	if got != float64(iterations) {
		t.Fatalf("counter = %v, want %v", got, iterations)
	}
}

// TestBackdropSwitchHatFiresOnMatchingBackdrop exercises spec §3.6/§4.F:
// "when backdrop switches to X" is an auto-start busy-wait script, not a
// dispatched listener, so it must fire once the stage's costume actually
// becomes X, with no explicit broadcast required.
func TestBackdropSwitchHatFiresOnMatchingBackdrop(t *testing.T) {
	stage := &ast.Sprite{
		Name:     "Stage",
		IsStage:  true,
		Size:     100,
		Visible:  true,
		Costumes: []ast.Costume{{Name: "backdrop1", Format: "png"}, {Name: "backdrop2", Format: "png"}},
		Scripts: []*ast.Script{
			{
				Hat:  ast.OnFlag{},
				Body: []ast.Statement{ast.Op{Name: "nextbackdrop"}},
			},
		},
	}
	sprite := &ast.Sprite{
		Name:      "Sprite1",
		Size:      100,
		Visible:   true,
		Variables: []ast.VarDecl{{Name: "seen", Initial: "0"}},
		Scripts: []*ast.Script{
			{
				Hat: ast.OnBackdropSwitch{Backdrop: "backdrop2"},
				Body: []ast.Statement{
					ast.SetVar{Var: "seen", Value: ast.NumberLit{Value: 1}},
				},
			},
		},
	}
	v, h := buildAndLoad(t, &ast.Program{Stage: stage, Sprites: []*ast.Sprite{sprite}})

	h.flagPressed = true
	for i := 0; i < 5; i++ {
		if _, err := v.VMUpdate(1.0 / 30); err != nil {
			t.Fatalf("VMUpdate: %v", err)
		}
		h.flagPressed = false
	}

	sp := v.Instances[1]
	if got := sp.Fields[0].AsNumber(); got != 1 {
		t.Fatalf("seen = %v, want 1 (backdrop-switch hat never fired)", got)
	}
}

func TestPresentIsCalledEveryTick(t *testing.T) {
	v, h := buildAndLoad(t, flagIncrementProgram(1))
	for i := 0; i < 3; i++ {
		if _, err := v.VMUpdate(1.0 / 30); err != nil {
			t.Fatalf("VMUpdate: %v", err)
		}
	}
	if h.presents != 3 {
		t.Fatalf("expected Present called once per tick, got %d calls for 3 ticks", h.presents)
	}
}

func TestSendFlagClickedRestartsListeners(t *testing.T) {
	v, _ := buildAndLoad(t, flagIncrementProgram(1))
	before := len(v.AllScripts())
	v.SendFlagClicked()
	if len(v.AllScripts()) != before {
		t.Fatalf("SendFlagClicked should restart existing listeners, not add new scripts: before=%d after=%d", before, len(v.AllScripts()))
	}
}

func TestGetStaticOutOfRangeIsAPanic(t *testing.T) {
	v, _ := buildAndLoad(t, flagIncrementProgram(1))
	if _, err := v.GetStatic(uint32(len(v.Globals) + 1)); err == nil {
		t.Fatal("expected an error for an out-of-range global static id")
	}
}

// TestCloneExhaustionPanicsTheVM exercises spec §4.G/§4.8 ("overflow
// triggers VM panic"): a script that clones itself past the pool limit
// must surface a *Panic out of VMUpdate, not a silently-dropped clone.
func TestCloneExhaustionPanicsTheVM(t *testing.T) {
	stage := &ast.Sprite{Name: "Stage", IsStage: true, Size: 100, Visible: true}
	sprite := &ast.Sprite{
		Name:    "Sprite1",
		Size:    100,
		Visible: true,
		Scripts: []*ast.Script{
			{
				Hat: ast.OnFlag{},
				Body: []ast.Statement{
					ast.RepeatCount{
						Count: ast.NumberLit{Value: float64(maxInstances + 1)},
						Body: []ast.Statement{
							ast.Op{Name: "clone", Args: []ast.Expression{ast.StringLit{Value: "_myself_"}}},
						},
					},
				},
			},
		},
	}
	v, h := buildAndLoad(t, &ast.Program{Stage: stage, Sprites: []*ast.Sprite{sprite}})

	h.flagPressed = true
	var panicErr *Panic
	for i := 0; i < maxInstances+5; i++ {
		terminate, err := v.VMUpdate(1.0 / 30)
		h.flagPressed = false
		if err != nil {
			p, ok := err.(*Panic)
			if !ok {
				t.Fatalf("VMUpdate returned non-Panic error: %v", err)
			}
			if !terminate {
				t.Fatal("a *Panic from VMUpdate must report terminate=true")
			}
			panicErr = p
			break
		}
	}
	if panicErr == nil {
		t.Fatal("expected cloning past the instance pool limit to panic the VM")
	}
	if panicErr.Reason != "too many instances" {
		t.Fatalf("Panic.Reason = %q, want %q", panicErr.Reason, "too many instances")
	}
}

func TestInstantiateRespectsPoolLimit(t *testing.T) {
	abs := NewAbstractSprite("Sprite1", false, 0)
	for i := 0; i < maxInstances; i++ {
		if _, err := abs.Instantiate(nil); err != nil {
			t.Fatalf("unexpected error instantiating #%d: %v", i, err)
		}
	}
	if _, err := abs.Instantiate(nil); err == nil {
		t.Fatal("expected an error once the clone pool is exhausted")
	}
}
