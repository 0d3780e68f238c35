package model

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Bounds is an axis-aligned bounding box. The zero value is empty.
type Bounds struct {
	Min, Max mgl32.Vec3
	valid    bool
}

// NewBounds returns the box spanning lo and hi.
func NewBounds(lo, hi mgl32.Vec3) Bounds {
	var b Bounds
	b.Extend(lo)
	b.Extend(hi)
	return b
}

// Empty reports whether the box contains no points.
func (b Bounds) Empty() bool { return !b.valid }

// Extend grows the box to include p.
func (b *Bounds) Extend(p mgl32.Vec3) {
	if !b.valid {
		b.Min, b.Max, b.valid = p, p, true
		return
	}
	for i := range 3 {
		b.Min[i] = math32.Min(b.Min[i], p[i])
		b.Max[i] = math32.Max(b.Max[i], p[i])
	}
}

// Union grows the box to include o.
func (b *Bounds) Union(o Bounds) {
	if o.valid {
		b.Extend(o.Min)
		b.Extend(o.Max)
	}
}

// Transform returns the box enclosing the eight transformed corners.
func (b Bounds) Transform(m mgl32.Mat4) Bounds {
	if !b.valid {
		return b
	}
	var out Bounds
	for i := range 8 {
		c := b.Min
		if i&1 != 0 {
			c[0] = b.Max[0]
		}
		if i&2 != 0 {
			c[1] = b.Max[1]
		}
		if i&4 != 0 {
			c[2] = b.Max[2]
		}
		out.Extend(mgl32.TransformCoordinate(c, m))
	}
	return out
}

func (b Bounds) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Radius is half the diagonal.
func (b Bounds) Radius() float32 {
	if !b.valid {
		return 0
	}
	return b.Max.Sub(b.Min).Len() / 2
}

// Bounds returns the world-space box of every drawable in its current pose,
// with the model placed at objectWorld. Skinning is not taken into account.
func (m *Model) Bounds(objectWorld mgl32.Mat4) Bounds {
	var out Bounds
	for i := range m.drawables {
		d := &m.drawables[i]
		world := m.ModelMatrix(d, objectWorld)
		for _, p := range d.Mesh.Primitives {
			out.Union(p.Bounds.Transform(world))
		}
	}
	return out
}
