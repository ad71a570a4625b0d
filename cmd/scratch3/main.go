// Command scratch3 runs a linked CSB3 bytecode image (internal/compiler
// produces one; cmd/scratch3disasm inspects one) to
// completion or until the window is closed, the same plain
// flag.String/flag.Bool CLI convention as the teacher's cmd/*/main.go
// front ends.
package main

import (
	"flag"
	"fmt"
	"image"
	"os"

	"github.com/veandco/go-sdl2/sdl"

	"scratchvm/internal/audio"
	"scratchvm/internal/host"
	"scratchvm/internal/iohost"
	"scratchvm/internal/logging"
	"scratchvm/internal/render"
)

func main() {
	romPath := flag.String("rom", "", "path to a linked .csb3 bytecode image")
	fps := flag.Float64("fps", 30, "scheduler ticks per second")
	headless := flag.Bool("headless", false, "run without opening a window (no SDL video/audio)")
	verbose := flag.Bool("v", false, "enable verbose component logging")
	flag.Parse()

	if *romPath == "" {
		fmt.Fprintln(os.Stderr, "usage: scratch3 -rom <image.csb3>")
		os.Exit(2)
	}

	data, err := os.ReadFile(*romPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scratch3: %v\n", err)
		os.Exit(1)
	}

	ctx := host.CreateContext()
	defer host.DestroyContext(ctx)

	if *verbose {
		for _, c := range []logging.Component{
			logging.ComponentScheduler, logging.ComponentInterpreter,
			logging.ComponentSprite, logging.ComponentRender,
			logging.ComponentAudio, logging.ComponentHost,
		} {
			ctx.Logger.SetComponentEnabled(c, true)
		}
		ctx.Logger.SetMinLevel(logging.LevelDebug)
	}

	if err := ctx.LoadProgram(data); err != nil {
		fmt.Fprintf(os.Stderr, "scratch3: %v\n", err)
		os.Exit(1)
	}

	if *headless {
		runHeadless(ctx, *fps)
		return
	}
	runWindowed(ctx, *fps)
}

// runHeadless drives the scheduler with no SDL video/audio device at
// all — DrawSprite/PlaySound collaborators still run (so pen/sound
// side effects and their waitDone callbacks behave identically), they
// simply have no window to present to.
func runHeadless(ctx *host.Context, fps float64) {
	r := render.NewSoftwareRenderer(ctx.Logger)
	a := audio.NewSDLMixer(ctx.Logger)
	defer a.Close()
	in := iohost.NewSDLInput(ctx.Logger)

	h := newCompositeHost(r, a, in)
	if err := ctx.VMInit(h, host.VMOptions{TargetFPS: fps, FrameLimitEnabled: true}); err != nil {
		fmt.Fprintf(os.Stderr, "scratch3: %v\n", err)
		os.Exit(1)
	}
	ctx.VMStart()

	dt := 1.0 / fps
	for {
		in.Poll()
		a.Tick(dt)
		terminate, err := ctx.VMUpdate(dt)
		if err != nil {
			fmt.Fprintf(os.Stderr, "scratch3: %v\n", err)
			os.Exit(1)
		}
		if terminate || in.Quit() {
			return
		}
	}
}

// runWindowed opens an SDL window and blits the renderer's framebuffer
// to it once per tick — the CLI's only SDL-presentation-specific code,
// everything else routes through the vm.Host interface.
func runWindowed(ctx *host.Context, fps float64) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO | sdl.INIT_EVENTS); err != nil {
		fmt.Fprintf(os.Stderr, "scratch3: sdl init: %v\n", err)
		os.Exit(1)
	}
	defer sdl.Quit()

	window, err := sdl.CreateWindow("scratch3", sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		render.StageWidth*2, render.StageHeight*2, sdl.WINDOW_SHOWN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scratch3: create window: %v\n", err)
		os.Exit(1)
	}
	defer window.Destroy()

	rendererSDL, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scratch3: create renderer: %v\n", err)
		os.Exit(1)
	}
	defer rendererSDL.Destroy()

	texture, err := rendererSDL.CreateTexture(sdl.PIXELFORMAT_ABGR8888, sdl.TEXTUREACCESS_STREAMING,
		render.StageWidth, render.StageHeight)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scratch3: create texture: %v\n", err)
		os.Exit(1)
	}
	defer texture.Destroy()

	r := render.NewSoftwareRenderer(ctx.Logger)
	r.OnPresent = func(frame *image.RGBA) {
		texture.Update(nil, frame.Pix, frame.Stride)
		rendererSDL.Clear()
		rendererSDL.Copy(texture, nil, nil)
		rendererSDL.Present()
	}

	a := audio.NewSDLMixer(ctx.Logger)
	defer a.Close()
	in := iohost.NewSDLInput(ctx.Logger)

	h := newCompositeHost(r, a, in)
	if err := ctx.VMInit(h, host.VMOptions{TargetFPS: fps, FrameLimitEnabled: true}); err != nil {
		fmt.Fprintf(os.Stderr, "scratch3: %v\n", err)
		os.Exit(1)
	}
	ctx.VMStart()

	dt := 1.0 / fps
	for {
		in.Poll()
		a.Tick(dt)
		terminate, err := ctx.VMUpdate(dt)
		if err != nil {
			fmt.Fprintf(os.Stderr, "scratch3: %v\n", err)
			os.Exit(1)
		}
		if terminate || in.Quit() {
			return
		}
	}
}
