// Package picking casts rays from the screen into a scene.
package picking

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/dreamfield/internal/engine/model"
	"github.com/Faultbox/dreamfield/internal/engine/scene"
)

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3 // Normalized direction
}

// ScreenToRay converts screen coordinates to a world-space ray.
// screenX, screenY are pixel coordinates, viewportW/H are viewport dimensions.
// invViewProj is the inverse of the view-projection matrix.
func ScreenToRay(screenX, screenY, viewportW, viewportH float32, invViewProj mgl32.Mat4) Ray {
	// Convert screen coords to normalized device coords (-1 to 1)
	ndcX := 2*screenX/viewportW - 1
	ndcY := 1 - 2*screenY/viewportH // Flip Y

	near := unproject(invViewProj, mgl32.Vec4{ndcX, ndcY, -1, 1})
	far := unproject(invViewProj, mgl32.Vec4{ndcX, ndcY, 1, 1})

	dir := far.Sub(near)
	if dir.Len() > 0 {
		dir = dir.Normalize()
	}
	return Ray{Origin: near, Direction: dir}
}

func unproject(inv mgl32.Mat4, ndc mgl32.Vec4) mgl32.Vec3 {
	p := inv.Mul4x1(ndc)
	if p.W() != 0 {
		p = p.Mul(1 / p.W())
	}
	return p.Vec3()
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// IntersectBounds tests ray intersection with a box.
// Returns the distance to intersection (t) and whether intersection occurred.
// If the ray starts inside the box, returns the exit distance.
func (r Ray) IntersectBounds(box model.Bounds) (t float32, hit bool) {
	if box.Empty() {
		return 0, false
	}
	tmin := float32(-math32.MaxFloat32)
	tmax := float32(math32.MaxFloat32)

	for axis := range 3 {
		o, d := r.Origin[axis], r.Direction[axis]
		if d == 0 {
			if o < box.Min[axis] || o > box.Max[axis] {
				return 0, false
			}
			continue
		}
		t1 := (box.Min[axis] - o) / d
		t2 := (box.Max[axis] - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = max(tmin, t1)
		tmax = min(tmax, t2)
	}

	if tmax < tmin || tmax < 0 {
		return 0, false
	}
	// Return entry point, or exit point if starting inside
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

// Hit is the nearest drawable a ray passes through.
type Hit struct {
	Instance string
	Drawable string
	Distance float32
}

// DrawableBounds returns the world-space box of a drawable placed at
// objectWorld, in the model's current pose.
func DrawableBounds(m *model.Model, d *model.Drawable, objectWorld mgl32.Mat4) model.Bounds {
	world := m.ModelMatrix(d, objectWorld)
	var b model.Bounds
	for _, p := range d.Mesh.Primitives {
		b.Union(p.Bounds.Transform(world))
	}
	return b
}

// Pick returns the drawable whose box the ray enters first.
func Pick(s *scene.Scene, r Ray) (Hit, bool) {
	var best Hit
	found := false
	for _, in := range s.Instances() {
		drawables := in.Model.Drawables()
		for i := range drawables {
			d := &drawables[i]
			t, ok := r.IntersectBounds(DrawableBounds(in.Model, d, in.World))
			if ok && (!found || t < best.Distance) {
				best = Hit{Instance: in.Name, Drawable: d.Name, Distance: t}
				found = true
			}
		}
	}
	return best, found
}
