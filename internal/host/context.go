// Package host is the top-level embedding API (spec §6.1): it owns the
// compiler, the VM, the three collaborator packages (render/audio/
// iohost), and the logger, and ticks the scheduler once per call —
// the Go analogue of the teacher's internal/emulator.Emulator, which
// plays the identical role for CPU/PPU/APU/InputSystem.
package host

import (
	"fmt"
	"time"

	"scratchvm/internal/ast"
	"scratchvm/internal/bytecode"
	"scratchvm/internal/compiler"
	"scratchvm/internal/logging"
	"scratchvm/internal/vm"
)

// CompileOptions configures a Compile call (spec §5.2 [AMBIENT]
// Configuration, mirroring the teacher's CompileOptions flat struct).
type CompileOptions struct {
	OptimizeLevel compiler.OptimizeLevel
}

// VMOptions configures VMInit (mirrors the teacher's VMInit-style flat
// options struct). Zero value is "30 fps, frame limiting on".
type VMOptions struct {
	TargetFPS         float64
	FrameLimitEnabled bool
}

func defaultVMOptions() VMOptions {
	return VMOptions{TargetFPS: 30, FrameLimitEnabled: true}
}

// Context is one loaded project's runtime: compiler output, VM state,
// and the collaborators satisfying vm.Host. Construct with
// CreateContext, tear down with DestroyContext — named the way the
// teacher names its Emulator lifecycle (NewEmulator / implicit GC
// teardown) but explicit here since Context also owns an open audio
// device that needs releasing.
type Context struct {
	Logger *logging.Logger

	Program *bytecode.Image
	Manifest *bytecode.Manifest
	VM      *vm.VirtualMachine
	Host    vm.Host

	opts VMOptions

	Running bool
	Paused  bool

	FPS           float64
	frameCount    uint64
	fpsUpdateTime time.Time
	lastFrameTime time.Time
}

// CreateContext allocates a Context with a fresh logger and no loaded
// program; call LoadProgram (or Compile then LoadProgram) before
// VMInit.
func CreateContext() *Context {
	return &Context{Logger: logging.NewLogger(10000), opts: defaultVMOptions()}
}

// DestroyContext releases the context's collaborators (notably the
// audio device) and stops the logger's drain goroutine. Safe to call
// even if VMInit was never reached.
func DestroyContext(ctx *Context) {
	if closer, ok := ctx.Host.(interface{ Close() }); ok {
		closer.Close()
	}
	ctx.Logger.Shutdown()
}

// Compile lowers prog to a linked CSB3 image without loading it into a
// VM — useful for tooling (cmd/scratch3disasm) that only needs the
// image, not a running program.
func Compile(prog *ast.Program, opts CompileOptions) (*compiler.Result, error) {
	return compiler.Compile(prog, &compiler.Options{OptimizeLevel: opts.OptimizeLevel})
}

// LoadProgram decodes a linked CSB3 image (e.g. read from disk) into
// this context, the Go analogue of Emulator.LoadROM.
func (ctx *Context) LoadProgram(data []byte) error {
	img, err := bytecode.Load(data)
	if err != nil {
		return fmt.Errorf("host: load program: %w", err)
	}
	ctx.Program = img
	ctx.Manifest = bytecode.BuildManifest(img)
	return nil
}

// GetProgram exposes the loaded image's section manifest for tooling
// (spec §4.I).
func (ctx *Context) GetProgram() *bytecode.Manifest { return ctx.Manifest }

// VMInit constructs the VirtualMachine over the already-loaded program
// and the given Host, then loads the sprite table. Host is normally
// the result of wiring render.SoftwareRenderer + audio.SDLMixer +
// iohost.SDLInput together (see cmd/scratch3/main.go).
func (ctx *Context) VMInit(h vm.Host, opts VMOptions) error {
	if ctx.Program == nil {
		return fmt.Errorf("host: VMInit: no program loaded")
	}
	if opts.TargetFPS <= 0 {
		opts = defaultVMOptions()
	}
	ctx.Host = h
	ctx.opts = opts
	ctx.VM = vm.New(ctx.Program, h, ctx.Logger)
	if err := ctx.VM.Load(ctx.Program); err != nil {
		return fmt.Errorf("host: VMInit: %w", err)
	}
	return nil
}

// VMStart marks the VM runnable and resets frame-pacing bookkeeping.
func (ctx *Context) VMStart() {
	ctx.Running = true
	ctx.Paused = false
	ctx.lastFrameTime = time.Now()
	ctx.fpsUpdateTime = time.Now()
}

func (ctx *Context) VMStop()    { ctx.Running = false }
func (ctx *Context) VMPause()   { ctx.Paused = true }
func (ctx *Context) VMResume()  { ctx.Paused = false }

// VMTerminate stops the VM and asks the VirtualMachine to tear down
// every script, matching spec §4.E's "terminate" scheduler outcome.
func (ctx *Context) VMTerminate() {
	ctx.Running = false
	if ctx.VM != nil {
		ctx.VM.Terminating = true
	}
}

// VMUpdate ticks the scheduler once, recovering a VM-level panic into
// an error the caller can log and surface, the same recover-based
// diagnostic capture the teacher's corelx.CompileSource uses for
// compiler panics (spec §5.3).
func (ctx *Context) VMUpdate(dt float64) (terminate bool, err error) {
	if !ctx.Running || ctx.Paused {
		return false, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("host: VM panic: %v", r)
			terminate = true
		}
	}()

	terminate, err = ctx.VM.VMUpdate(dt)

	ctx.frameCount++
	now := time.Now()
	if now.Sub(ctx.fpsUpdateTime) >= time.Second {
		ctx.FPS = float64(ctx.frameCount) / now.Sub(ctx.fpsUpdateTime).Seconds()
		ctx.frameCount = 0
		ctx.fpsUpdateTime = now
	}

	if ctx.opts.FrameLimitEnabled {
		frameTime := time.Duration(float64(time.Second) / ctx.opts.TargetFPS)
		elapsed := now.Sub(ctx.lastFrameTime)
		if elapsed < frameTime {
			time.Sleep(frameTime - elapsed)
		}
		ctx.lastFrameTime = time.Now()
	} else {
		ctx.lastFrameTime = now
	}

	return terminate, err
}
