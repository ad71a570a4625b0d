package host

import (
	"testing"

	"scratchvm/internal/ast"
	"scratchvm/internal/vm"
)

// fakeHost is a no-op vm.Host stand-in so these tests never touch SDL.
type fakeHost struct {
	drawn    int
	presents int
}

func (f *fakeHost) DrawSprite(*vm.Instance, *vm.Costume, []byte)      { f.drawn++ }
func (f *fakeHost) Present()                                          { f.presents++ }
func (f *fakeHost) PlaySound(*vm.Instance, *vm.Sound, []byte, func()) {}
func (f *fakeHost) StopSound(*vm.Instance)                            {}
func (f *fakeHost) StopAllSounds()                                    {}
func (f *fakeHost) SetVolume(*vm.Instance, float64)                   {}
func (f *fakeHost) KeyDown(int) bool                                  { return false }
func (f *fakeHost) AnyKeyDown() bool                                  { return false }
func (f *fakeHost) MousePosition() (float64, float64)                 { return 0, 0 }
func (f *fakeHost) MouseIsDown() bool                                 { return false }
func (f *fakeHost) PollFlagPressed() bool                             { return false }
func (f *fakeHost) AskAndWait(string) (string, bool)                  { return "", false }

var _ vm.Host = (*fakeHost)(nil)

func flagOnlyProgram() *ast.Program {
	stage := &ast.Sprite{Name: "Stage", IsStage: true, Size: 100, Visible: true}
	sprite := &ast.Sprite{
		Name: "Sprite1", Size: 100, Visible: true,
		Scripts: []*ast.Script{{Hat: ast.OnFlag{}, Body: []ast.Statement{ast.Op{Name: "stopall"}}}},
	}
	return &ast.Program{Stage: stage, Sprites: []*ast.Sprite{sprite}}
}

func buildContext(t *testing.T) (*Context, *fakeHost) {
	t.Helper()
	res, err := Compile(flagOnlyProgram(), CompileOptions{})
	if err != nil {
		t.Fatalf("Compile: %v (diags=%+v)", err, res.Diagnostics)
	}

	ctx := CreateContext()
	if err := ctx.LoadProgram(res.Image); err != nil {
		t.Fatalf("LoadProgram: %v", err)
	}

	h := &fakeHost{}
	if err := ctx.VMInit(h, VMOptions{TargetFPS: 1000, FrameLimitEnabled: false}); err != nil {
		t.Fatalf("VMInit: %v", err)
	}
	return ctx, h
}

func TestVMUpdateTicksUntilRunning(t *testing.T) {
	ctx, _ := buildContext(t)
	ctx.VMStart()
	if !ctx.Running {
		t.Fatal("expected Running true after VMStart")
	}
	if _, err := ctx.VMUpdate(0.001); err != nil {
		t.Fatalf("VMUpdate: %v", err)
	}
}

func TestVMUpdateIsNoopWhenNotRunning(t *testing.T) {
	ctx, h := buildContext(t)
	// never call VMStart
	terminate, err := ctx.VMUpdate(0.001)
	if err != nil || terminate {
		t.Fatalf("expected a no-op tick before VMStart, got terminate=%v err=%v", terminate, err)
	}
	if h.presents != 0 {
		t.Fatalf("expected no frame presented before VMStart, got %d", h.presents)
	}
}

func TestVMUpdateIsNoopWhilePaused(t *testing.T) {
	ctx, h := buildContext(t)
	ctx.VMStart()
	ctx.VMPause()
	if !ctx.Paused {
		t.Fatal("expected Paused true after VMPause")
	}
	before := h.presents
	if _, err := ctx.VMUpdate(0.001); err != nil {
		t.Fatalf("VMUpdate: %v", err)
	}
	if h.presents != before {
		t.Fatal("expected VMUpdate to skip scheduler work while paused")
	}
	ctx.VMResume()
	if ctx.Paused {
		t.Fatal("expected Paused false after VMResume")
	}
}

func TestVMTerminateStopsTheVM(t *testing.T) {
	ctx, _ := buildContext(t)
	ctx.VMStart()
	ctx.VMTerminate()
	if ctx.Running {
		t.Fatal("expected Running false after VMTerminate")
	}
	if !ctx.VM.Terminating {
		t.Fatal("expected VM.Terminating true after VMTerminate")
	}
}

func TestDestroyContextToleratesHostWithoutClose(t *testing.T) {
	ctx, _ := buildContext(t)
	ctx.VMStart()
	DestroyContext(ctx) // must not panic even though fakeHost has no Close method
}

func TestGetProgramReturnsManifest(t *testing.T) {
	ctx, _ := buildContext(t)
	if ctx.GetProgram() == nil {
		t.Fatal("expected a non-nil manifest after LoadProgram")
	}
}
