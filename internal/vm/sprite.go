package vm

import (
	"math"

	"scratchvm/internal/value"
)

// RotationStyle controls how a sprite's costume is transformed by its
// direction (spec §3.5).
type RotationStyle uint8

const (
	RotateAllAround RotationStyle = iota
	RotateLeftRight
	RotateNone
)

// maxInstances bounds each AbstractSprite's clone pool (spec §3.5,
// grounded on original_source/libscratch3/src/vm/sprite.hpp's
// MAX_INSTANCES).
const maxInstances = 256

const unallocatedInstanceID = 0

// Costume is a decoded visual asset reference; actual pixel data lives
// behind the render package, this only carries what the interpreter
// needs to select and report on costumes.
type Costume struct {
	Name       string
	DataFormat string
	Width      int
	Height     int
	BitmapRes  int
	Data       []byte // encoded image bytes (png/svg/jpg), decoded by internal/render
}

// Sound mirrors Costume for audio assets.
type Sound struct {
	Name        string
	DataFormat  string
	Rate        int
	SampleCount int
	Data        []byte // encoded audio bytes (wav/mp3), decoded by internal/audio
}

// AABB is an axis-aligned bounding box in stage coordinates.
type AABB struct {
	LoX, LoY, HiX, HiY float64
}

// glideInfo tracks an in-progress "glide to x,y in t secs" operation.
type glideInfo struct {
	x0, y0, x1, y1 float64
	start, end     float64
	active         bool
}

// AbstractSprite is the per-sprite template shared by every Instance of
// it: costumes, sounds, field layout, and the clone pool allocator
// (spec §3.5 "AbstractSprite + fixed instance pool").
type AbstractSprite struct {
	Name    string
	IsStage bool

	Costumes []Costume
	Sounds   []Sound

	FieldCount int // per-instance field (variable/list) slot count

	ClickListeners []uint64 // .text entries of "when this sprite clicked" scripts
	CloneEntry     []uint64 // .text entries run on "when I start as a clone"

	pool      []*Instance
	nextID    uint32
}

// NewAbstractSprite constructs an empty template; Costumes/Sounds/
// listeners are populated by the loader once the sprite-table row is
// decoded.
func NewAbstractSprite(name string, isStage bool, fieldCount int) *AbstractSprite {
	return &AbstractSprite{Name: name, IsStage: isStage, FieldCount: fieldCount, nextID: 1}
}

func (a *AbstractSprite) FindCostume(name string) int {
	for i, c := range a.Costumes {
		if c.Name == name {
			return i + 1
		}
	}
	return 0
}

func (a *AbstractSprite) FindSound(name string) int {
	for i, s := range a.Sounds {
		if s.Name == name {
			return i + 1
		}
	}
	return 0
}

// Instance is one live sprite object: the original, or one of its
// clones (spec §3.5's Sprite).
type Instance struct {
	Base       *AbstractSprite
	InstanceID uint32
	Deleted    bool

	Visible       bool
	X, Y          float64
	Size          float64
	Direction     float64
	Draggable     bool
	RotationStyle RotationStyle
	Costume       int64 // 1-based

	transformDirty bool
	model          [9]float64 // 3x3 affine, row-major
	invModel       [9]float64
	bbox           AABB

	Glide glideInfo
	pen   PenState

	Message    value.Value
	Thinking   bool
	SaidUntil  float64 // 0 = no expiry set by a timed say/think

	Fields []value.Value // length == Base.FieldCount

	Scripts []*Script

	next, prev *Instance
}

// Instantiate allocates a new Instance (never reusing a pooled one),
// adds it to the pool, and binds it to this template, seeded either from tmpl (cloning) or from the
// template's initial state.
func (a *AbstractSprite) Instantiate(tmpl *Instance) (*Instance, error) {
	if len(a.pool) >= maxInstances {
		return nil, &ResourceExhausted{Resource: "sprite instances", Limit: maxInstances}
	}
	inst := &Instance{
		Base:       a,
		InstanceID: a.nextID,
		Visible:    true,
		Size:       100,
		RotationStyle: RotateAllAround,
		Costume:    1,
		Fields:     make([]value.Value, a.FieldCount),
		Message:    value.Zero(),
		pen:        newPenState(),
	}
	a.nextID++
	if tmpl != nil {
		inst.Visible = tmpl.Visible
		inst.X, inst.Y = tmpl.X, tmpl.Y
		inst.Size = tmpl.Size
		inst.Direction = tmpl.Direction
		inst.Draggable = tmpl.Draggable
		inst.RotationStyle = tmpl.RotationStyle
		inst.Costume = tmpl.Costume
		for i := range tmpl.Fields {
			value.Assign(&inst.Fields[i], tmpl.Fields[i])
		}
	}
	inst.transformDirty = true
	a.pool = append(a.pool, inst)
	return inst, nil
}

// Free releases inst's slot back to the pool and drops its field
// references.
func (a *AbstractSprite) Free(inst *Instance) {
	for i := range inst.Fields {
		value.Release(&inst.Fields[i])
	}
	for i, p := range a.pool {
		if p == inst {
			a.pool = append(a.pool[:i], a.pool[i+1:]...)
			break
		}
	}
}

// InstanceCount reports the template's current live-instance count.
func (a *AbstractSprite) InstanceCount() int { return len(a.pool) }

// SetX clamps to the stage's horizontal bound (spec §3.5 edge case).
func (in *Instance) SetX(x float64) {
	in.X = clamp(x, -240, 240)
	in.transformDirty = true
}

// SetY clamps to the stage's vertical bound.
func (in *Instance) SetY(y float64) {
	in.Y = clamp(y, -180, 180)
	in.transformDirty = true
}

func (in *Instance) SetXY(x, y float64) {
	in.SetX(x)
	in.SetY(y)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SetCostume wraps costume into [1, CostumeCount] per spec §4.G's
// "switch costume to" modulo semantics.
func (in *Instance) SetCostume(costume int64) {
	n := int64(len(in.Base.Costumes))
	if n == 0 {
		return
	}
	newCostume := ((costume-1)%n + n) % n + 1
	if newCostume != in.Costume {
		in.Costume = newCostume
		in.transformDirty = true
	}
}

func (in *Instance) SetVisible(v bool) { in.Visible = v; in.transformDirty = true }

func (in *Instance) SetSize(s float64) { in.Size = s; in.transformDirty = true }

func (in *Instance) SetDirection(d float64) {
	for d > 180 {
		d -= 360
	}
	for d <= -180 {
		d += 360
	}
	in.Direction = d
	in.transformDirty = true
}

// UpdateTransform recomputes the sprite's model matrix and bounding
// box from position/size/direction/rotation-style, the Go analogue of
// Sprite::Update's transform-dirty recompute (spec §4.G).
func (in *Instance) UpdateTransform(costumeWidth, costumeHeight float64) {
	if !in.transformDirty {
		return
	}
	scale := in.Size / 100
	angle := in.DisplayAngle()
	cosA, sinA := math.Cos(angle), math.Sin(angle)
	sx := scale
	if in.FlipX() {
		sx = -scale
	}
	w, h := costumeWidth*sx, costumeHeight*scale
	in.model = [9]float64{
		cosA * w, -sinA * h, in.X,
		sinA * w, cosA * h, in.Y,
		0, 0, 1,
	}
	in.invModel = invertAffine(in.model)

	hw, hh := math.Abs(w)/2, math.Abs(h)/2
	in.bbox = AABB{LoX: in.X - hw, LoY: in.Y - hh, HiX: in.X + hw, HiY: in.Y + hh}
	in.transformDirty = false
}

// DisplayAngle is the costume's rotation angle in radians for the
// current RotationStyle: only RotateAllAround actually rotates the
// bitmap (the other two styles flip or hold it upright instead), the
// Go equivalent of Sprite::Update's per-style branch.
func (in *Instance) DisplayAngle() float64 {
	if in.RotationStyle != RotateAllAround {
		return 0
	}
	return (in.Direction - 90) * math.Pi / 180
}

// FlipX reports whether the costume should be mirrored horizontally —
// true for RotateLeftRight sprites facing left (negative direction).
func (in *Instance) FlipX() bool {
	return in.RotationStyle == RotateLeftRight && in.Direction < 0
}

func invertAffine(m [9]float64) [9]float64 {
	det := m[0]*m[4] - m[1]*m[3]
	if det == 0 {
		return [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
	}
	invDet := 1 / det
	a, b, c, d := m[0], m[1], m[3], m[4]
	tx, ty := m[2], m[5]
	return [9]float64{
		d * invDet, -b * invDet, (b*ty - d*tx) * invDet,
		-c * invDet, a * invDet, (c*tx - a*ty) * invDet,
		0, 0, 1,
	}
}

// TouchingPoint reports whether (x, y) in stage space falls within
// inst's bounding box — the coarse pass of spec §4.G's touching test.
// No alpha-mask pass follows it; the bounding box is the whole test.
func (in *Instance) TouchingPoint(x, y float64) bool {
	return x >= in.bbox.LoX && x <= in.bbox.HiX && y >= in.bbox.LoY && y <= in.bbox.HiY
}

// TouchingSprite reports whether the two instances' bounding boxes
// overlap (AABB pass; see TouchingPoint).
func (in *Instance) TouchingSprite(other *Instance) bool {
	return in.bbox.LoX <= other.bbox.HiX && in.bbox.HiX >= other.bbox.LoX &&
		in.bbox.LoY <= other.bbox.HiY && in.bbox.HiY >= other.bbox.LoY
}

// Field resolves a per-instance variable/list slot by its compiled
// local static id.
func (in *Instance) Field(localIndex uint32) *value.Value {
	return &in.Fields[localIndex]
}

// SetMessage sets or clears the sprite's say/think bubble contents.
func (in *Instance) SetMessage(msg value.Value, think bool) {
	value.Assign(&in.Message, msg)
	in.Thinking = think
}
