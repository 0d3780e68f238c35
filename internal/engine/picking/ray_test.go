package picking

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/dreamfield/internal/assets"
	"github.com/Faultbox/dreamfield/internal/engine/gpu"
	"github.com/Faultbox/dreamfield/internal/engine/model"
	"github.com/Faultbox/dreamfield/internal/engine/scene"
)

func TestScreenToRayCenter(t *testing.T) {
	proj := mgl32.Perspective(mgl32.DegToRad(60), 1, 0.1, 100)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	r := ScreenToRay(50, 50, 100, 100, proj.Mul4(view).Inv())

	assert.True(t, r.Direction.ApproxEqualThreshold(mgl32.Vec3{0, 0, -1}, 1e-4), "got %v", r.Direction)
	assert.InDelta(t, 4.9, r.Origin.Z(), 1e-3)
	assert.InDelta(t, 0, r.Origin.X(), 1e-4)
}

func TestScreenToRayFlipsY(t *testing.T) {
	proj := mgl32.Perspective(mgl32.DegToRad(60), 1, 0.1, 100)
	r := ScreenToRay(50, 0, 100, 100, proj.Inv())
	assert.Greater(t, r.Direction.Y(), float32(0), "the top row looks up")
}

func TestIntersectBounds(t *testing.T) {
	box := model.NewBounds(mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1})

	tests := []struct {
		name string
		ray  Ray
		hit  bool
		t    float32
	}{
		{"front", Ray{Origin: mgl32.Vec3{0, 0, 5}, Direction: mgl32.Vec3{0, 0, -1}}, true, 4},
		{"inside", Ray{Origin: mgl32.Vec3{0, 0, 0}, Direction: mgl32.Vec3{1, 0, 0}}, true, 1},
		{"behind", Ray{Origin: mgl32.Vec3{0, 0, 5}, Direction: mgl32.Vec3{0, 0, 1}}, false, 0},
		{"parallel miss", Ray{Origin: mgl32.Vec3{0, 2, 5}, Direction: mgl32.Vec3{0, 0, -1}}, false, 0},
		{"diagonal miss", Ray{Origin: mgl32.Vec3{3, 0, 3}, Direction: mgl32.Vec3{1, 0, -1}.Normalize()}, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, hit := tt.ray.IntersectBounds(box)
			assert.Equal(t, tt.hit, hit)
			if tt.hit {
				assert.InDelta(t, tt.t, got, 1e-5)
			}
		})
	}

	_, hit := Ray{Direction: mgl32.Vec3{0, 0, -1}}.IntersectBounds(model.Bounds{})
	assert.False(t, hit, "empty boxes are never hit")
}

// quad imports a model with a unit triangle at each given node offset.
func quad(t *testing.T, offsets map[string][3]float64) *model.Model {
	t.Helper()
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{-0.5, -0.5, 0}, {0.5, -0.5, 0}, {0, 0.5, 0}})
	doc.Meshes = []*gltf.Mesh{{
		Name:       "tri",
		Primitives: []*gltf.Primitive{{Attributes: gltf.PrimitiveAttributes{gltf.POSITION: pos}}},
	}}
	for name, off := range offsets {
		doc.Nodes = append(doc.Nodes, &gltf.Node{Name: name, Mesh: gltf.Index(0), Translation: off})
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, len(doc.Nodes)-1)
	}
	src, err := assets.FromDocument(doc, nil)
	require.NoError(t, err)
	m, err := model.Import(gpu.NewRecorder(), src, model.DefaultImportOptions())
	require.NoError(t, err)
	return m
}

func TestPickNearest(t *testing.T) {
	s := scene.New(scene.DefaultConfig())
	s.Add("board", quad(t, map[string][3]float64{"near": {0, 0, 1}, "far": {0, 0, -1}}), mgl32.Ident4())
	s.Add("side", quad(t, map[string][3]float64{"aside": {0, 0, 0}}), mgl32.Translate3D(5, 0, 0))

	hit, ok := Pick(s, Ray{Origin: mgl32.Vec3{0, 0, 10}, Direction: mgl32.Vec3{0, 0, -1}})
	require.True(t, ok)
	assert.Equal(t, "board", hit.Instance)
	assert.Equal(t, "near", hit.Drawable)
	assert.InDelta(t, 9, hit.Distance, 1e-5)

	hit, ok = Pick(s, Ray{Origin: mgl32.Vec3{5, 0, 10}, Direction: mgl32.Vec3{0, 0, -1}})
	require.True(t, ok)
	assert.Equal(t, "side", hit.Instance)
	assert.Equal(t, "aside", hit.Drawable)

	_, ok = Pick(s, Ray{Origin: mgl32.Vec3{0, 5, 10}, Direction: mgl32.Vec3{0, 0, -1}})
	assert.False(t, ok)
}
