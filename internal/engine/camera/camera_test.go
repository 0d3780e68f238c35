package camera

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestOrbitCameraPosition(t *testing.T) {
	c := NewOrbitCamera()
	c.Center = mgl32.Vec3{1, 2, 3}
	c.Distance = 10
	c.RotationX, c.RotationY = 0, 0

	assert.True(t, c.Position().ApproxEqualThreshold(mgl32.Vec3{1, 2, 13}, 1e-5))

	// The view matrix maps the center onto the negative Z axis.
	p := mgl32.TransformCoordinate(c.Center, c.ViewMatrix())
	assert.True(t, p.ApproxEqualThreshold(mgl32.Vec3{0, 0, -10}, 1e-4), "got %v", p)
}

func TestOrbitCameraClamps(t *testing.T) {
	c := NewOrbitCamera()
	c.HandleDrag(0, 1e6)
	assert.Equal(t, c.MaxPitch, c.RotationX)
	c.HandleDrag(0, -1e6)
	assert.Equal(t, c.MinPitch, c.RotationX)

	c.HandleZoom(1e6)
	assert.Equal(t, c.MinDistance, c.Distance)
	// One step scales by the current distance, so zooming out from the
	// minimum takes a few.
	for range 3 {
		c.HandleZoom(-1e6)
	}
	assert.Equal(t, c.MaxDistance, c.Distance)
}

func TestOrbitCameraFitSphere(t *testing.T) {
	c := NewOrbitCamera()
	c.FitSphere(mgl32.Vec3{0, 1, 0}, 2, math32.Pi/2)

	assert.Equal(t, mgl32.Vec3{0, 1, 0}, c.Center)
	assert.InDelta(t, 2*math32.Sqrt2, c.Distance, 1e-4)

	before := c.Distance
	c.FitSphere(mgl32.Vec3{}, 0, math32.Pi/2)
	assert.Equal(t, before, c.Distance, "an empty sphere only recenters")
}
