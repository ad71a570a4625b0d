package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"scratchvm/internal/vm"
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

func TestDrawSpriteCachesDecodedCostume(t *testing.T) {
	r := NewSoftwareRenderer(nil)
	costume := &vm.Costume{Name: "cat"}
	pixels := solidPNG(t, 8, 8, color.RGBA{255, 0, 0, 255})
	inst := &vm.Instance{X: 0, Y: 0, Size: 100, RotationStyle: vm.RotateNone}

	r.DrawSprite(inst, costume, pixels)
	if _, ok := r.cache[costume]; !ok {
		t.Fatal("expected costume to be cached after first draw")
	}
	first := r.cache[costume]

	r.DrawSprite(inst, costume, pixels)
	if r.cache[costume] != first {
		t.Fatal("expected second DrawSprite to reuse cached mips, not redecode")
	}
}

func TestDrawSpriteCompositesPixels(t *testing.T) {
	r := NewSoftwareRenderer(nil)
	costume := &vm.Costume{Name: "cat"}
	pixels := solidPNG(t, 20, 20, color.RGBA{0, 255, 0, 255})
	inst := &vm.Instance{X: 0, Y: 0, Size: 100, RotationStyle: vm.RotateNone}

	r.DrawSprite(inst, costume, pixels)

	cx, cy := stageToPixel(0, 0)
	px := r.Framebuffer.RGBAAt(int(cx), int(cy))
	if px.A == 0 {
		t.Fatalf("expected non-transparent pixel at sprite center, got %+v", px)
	}
}

func TestPenStampSurvivesPresent(t *testing.T) {
	r := NewSoftwareRenderer(nil)
	costume := &vm.Costume{Data: solidPNG(t, 10, 10, color.RGBA{0, 0, 255, 255})}
	inst := &vm.Instance{X: 0, Y: 0}

	r.PenStamp(inst, costume)
	r.Present() // clears Framebuffer, recomposites pen layer beneath

	cx, cy := stageToPixel(0, 0)
	px := r.Framebuffer.RGBAAt(int(cx), int(cy))
	if px.A == 0 {
		t.Fatal("expected pen stamp to survive Present, framebuffer was reseeded blank")
	}
}

func TestPenClearWipesStamp(t *testing.T) {
	r := NewSoftwareRenderer(nil)
	costume := &vm.Costume{Data: solidPNG(t, 10, 10, color.RGBA{0, 0, 255, 255})}
	inst := &vm.Instance{X: 0, Y: 0}

	r.PenStamp(inst, costume)
	r.PenClear()
	r.Present()

	cx, cy := stageToPixel(0, 0)
	px := r.Framebuffer.RGBAAt(int(cx), int(cy))
	if px.A != 0 {
		t.Fatalf("expected pen layer cleared, still found pixel %+v", px)
	}
}

func TestPickMipPicksClosestScale(t *testing.T) {
	cases := []struct {
		scale float64
		want  int
	}{
		{1.0, 0},
		{0.9, 0},
		{0.5, 1},
		{0.3, 1},
		{0.1, 2},
	}
	for _, c := range cases {
		if got := pickMip(c.scale); got != c.want {
			t.Errorf("pickMip(%v) = %d, want %d", c.scale, got, c.want)
		}
	}
}

func TestStageToPixelOriginIsCentered(t *testing.T) {
	x, y := stageToPixel(0, 0)
	if x != StageWidth/2 || y != StageHeight/2 {
		t.Fatalf("stage origin should map to framebuffer center, got (%v, %v)", x, y)
	}
}
