// Package render is the drawing facet of the host API (spec §6.2):
// an interface plus a default SoftwareRenderer, the Go analogue of the
// teacher's internal/ppu.PPU — a fixed RGBA output buffer composited
// into once per frame and flipped to the screen by Present.
package render

import (
	"bytes"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/nfnt/resize"
	xdraw "golang.org/x/image/draw"

	"scratchvm/internal/logging"
	"scratchvm/internal/vm"
)

// StageWidth/StageHeight are the Scratch stage's native pixel
// dimensions (spec §3.5 stage bounds are -240..240 / -180..180, twice
// that in pixels at 1:1 scale).
const (
	StageWidth  = 480
	StageHeight = 360
)

// mipScales are the mip levels built per costume on first draw, grounded on the teacher's texture
// habit of none — this is the one genuinely new piece of domain logic
// the renderer needs, since tile PPUs never scaled art.
var mipScales = []float64{1.0, 0.5, 0.25}

// costumeMips caches decoded+resized bitmaps per *vm.Costume so repeat
// DrawSprite calls don't re-decode PNG bytes every frame.
type costumeMips struct {
	base  image.Image
	mips  []image.Image // parallel to mipScales
}

// SoftwareRenderer is the default Render implementation: CPU-side
// compositing into a flat RGBA framebuffer, with an optional Present
// hook a windowing layer (cmd/scratch3's SDL front end) can set to blit
// the framebuffer to a real window.
type SoftwareRenderer struct {
	Logger *logging.Logger

	Framebuffer *image.RGBA

	cache map[*vm.Costume]*costumeMips
	pen   *penTrail

	// OnPresent, if set, is invoked once per Present call with the
	// finished frame — the CLI wires this to an SDL texture update.
	OnPresent func(frame *image.RGBA)
}

// penTrail is the persistent pen-stroke/stamp layer, composited under
// every frame's sprite draws until PenClear wipes it.
type penTrail struct {
	img *image.RGBA
}

func (p *penTrail) reset() {
	draw.Draw(p.img, p.img.Bounds(), image.Transparent, image.Point{}, draw.Src)
}

// NewSoftwareRenderer allocates a StageWidth x StageHeight framebuffer.
func NewSoftwareRenderer(logger *logging.Logger) *SoftwareRenderer {
	return &SoftwareRenderer{
		Logger:      logger,
		Framebuffer: image.NewRGBA(image.Rect(0, 0, StageWidth, StageHeight)),
		cache:       make(map[*vm.Costume]*costumeMips),
	}
}

var _ vm.Render = (*SoftwareRenderer)(nil)

// DrawSprite composites one costume bitmap onto the framebuffer at
// inst's current affine transform, picking the smallest mip level whose
// scale is still at least the on-screen scale (the LOD idea SPEC_FULL.md
// 6.2.1 describes); scales above 1 use the full-size bitmap.
func (r *SoftwareRenderer) DrawSprite(inst *vm.Instance, costume *vm.Costume, pixels []byte) {
	if costume == nil || len(pixels) == 0 {
		return
	}
	mips := r.mipsFor(costume, pixels)
	if mips == nil {
		return
	}

	scale := inst.Size / 100
	level := pickMip(scale)
	src := mips.base
	if level < len(mips.mips) {
		src = mips.mips[level]
		scale *= 1.0 / mipScales[level]
	}

	r.blit(src, inst, scale)
}

func pickMip(scale float64) int {
	for i := len(mipScales) - 1; i >= 0; i-- {
		if scale <= mipScales[i] {
			return i
		}
	}
	return 0
}

func (r *SoftwareRenderer) mipsFor(costume *vm.Costume, pixels []byte) *costumeMips {
	if m, ok := r.cache[costume]; ok {
		return m
	}
	img, _, err := image.Decode(bytes.NewReader(pixels))
	if err != nil {
		if r.Logger != nil {
			r.Logger.Warn(logging.ComponentRender, "decode costume %q: %v", costume.Name, err)
		}
		return nil
	}
	m := &costumeMips{base: img}
	b := img.Bounds()
	for _, s := range mipScales[1:] {
		w := uint(math.Max(1, float64(b.Dx())*s))
		h := uint(math.Max(1, float64(b.Dy())*s))
		m.mips = append(m.mips, resize.Resize(w, h, img, resize.Bilinear))
	}
	m.mips = append([]image.Image{img}, m.mips...)
	r.cache[costume] = m
	return m
}

// blit draws src centered at inst's stage position, rotated per its
// direction/rotation-style and scaled, using x/image/draw's affine
// transformer for the resample kernel.
func (r *SoftwareRenderer) blit(src image.Image, inst *vm.Instance, scale float64) {
	b := src.Bounds()
	w, h := float64(b.Dx())*scale, float64(b.Dy())*scale

	px, py := stageToPixel(inst.X, inst.Y)
	angle := inst.DisplayAngle()

	cos, sin := math.Cos(angle), math.Sin(angle)
	// Affine mapping src -> dst, centered on the sprite's rotation
	// center (costume center, since per-costume rotation centers are
	// not tracked independently of bitmap dims in this port).
	m := xdraw.Affine3{
		cos * w / float64(b.Dx()), -sin * h / float64(b.Dy()), px - (cos*w-sin*h)/2,
		sin * w / float64(b.Dx()), cos * h / float64(b.Dy()), py - (sin*w+cos*h)/2,
	}
	m.Transform(r.Framebuffer, src, &xdraw.Options{})
}

func stageToPixel(x, y float64) (float64, float64) {
	return x + StageWidth/2, StageHeight/2 - y
}

// Present flips the finished frame out, then reseeds the framebuffer
// from the persistent pen layer so the next frame's sprite draws
// accumulate on top of prior pen strokes rather than a blank canvas.
// With no OnPresent hook set this is a no-op beyond the reseed, which
// is exactly right for headless test runs.
func (r *SoftwareRenderer) Present() {
	if r.OnPresent != nil {
		r.OnPresent(r.Framebuffer)
	}
	draw.Draw(r.Framebuffer, r.Framebuffer.Bounds(), image.Transparent, image.Point{}, draw.Src)
	if r.pen != nil {
		draw.Draw(r.Framebuffer, r.Framebuffer.Bounds(), r.pen.img, image.Point{}, draw.Over)
	}
}

// PenClear satisfies the optional pen-extension capability probed by
// internal/vm's execPen: clears the pen trail by repainting it to
// fully transparent. Pen strokes are composited onto a dedicated layer
// so clearing them never disturbs sprite costumes drawn this frame.
func (r *SoftwareRenderer) PenClear() {
	r.penLayer().reset()
}

// PenStamp composites inst's current costume permanently onto the pen
// layer (spec §4.H "stamp"), distinct from the transient per-frame
// sprite draw DrawSprite performs.
func (r *SoftwareRenderer) PenStamp(inst *vm.Instance, costume *vm.Costume) {
	if costume == nil || len(costume.Data) == 0 {
		return
	}
	mips := r.mipsFor(costume, costume.Data)
	if mips == nil {
		return
	}
	layer := r.penLayer()
	px, py := stageToPixel(inst.X, inst.Y)
	b := mips.base.Bounds()
	draw.Draw(layer.img, image.Rect(int(px)-b.Dx()/2, int(py)-b.Dy()/2, int(px)+b.Dx()/2, int(py)+b.Dy()/2), mips.base, b.Min, draw.Over)
}

// penLayer lazily allocates the pen trail layer and folds it under the
// framebuffer on the next Present — kept separate from Framebuffer so
// PenClear doesn't need to re-rasterize sprites.
func (r *SoftwareRenderer) penLayer() *penTrail {
	if r.pen == nil {
		r.pen = &penTrail{img: image.NewRGBA(image.Rect(0, 0, StageWidth, StageHeight))}
	}
	return r.pen
}
