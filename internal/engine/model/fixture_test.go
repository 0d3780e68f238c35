package model

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/dreamfield/internal/assets"
	"github.com/Faultbox/dreamfield/internal/engine/gpu"
)

// fixture assembles small glTF documents in memory.
type fixture struct {
	doc *gltf.Document
}

func newFixture() *fixture {
	return &fixture{doc: gltf.NewDocument()}
}

// triangle adds a mesh holding one indexed triangle.
func (f *fixture) triangle(name string, extras any) int {
	pos := modeler.WritePosition(f.doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	idx := modeler.WriteIndices(f.doc, []uint16{0, 1, 2})
	f.doc.Meshes = append(f.doc.Meshes, &gltf.Mesh{
		Name:   name,
		Extras: extras,
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(idx),
			Attributes: gltf.PrimitiveAttributes{gltf.POSITION: pos},
		}},
	})
	return len(f.doc.Meshes) - 1
}

func (f *fixture) node(n *gltf.Node) int {
	f.doc.Nodes = append(f.doc.Nodes, n)
	return len(f.doc.Nodes) - 1
}

// meshNode adds a node drawing mesh with the given translation.
func (f *fixture) meshNode(name string, mesh int, t [3]float64, extras any, children ...int) int {
	return f.node(&gltf.Node{Name: name, Mesh: gltf.Index(mesh), Translation: t, Extras: extras, Children: children})
}

func (f *fixture) roots(nodes ...int) {
	f.doc.Scenes[0].Nodes = append(f.doc.Scenes[0].Nodes, nodes...)
}

// checker adds a 2x2 PNG image and a texture using it.
func (f *fixture) checker(t *testing.T, sampler *int) int {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 0xFF, G: 0x13, B: 0x80, A: 0x7F})
	img.SetNRGBA(1, 1, color.NRGBA{R: 0x01, G: 0xFE, B: 0x40, A: 0xFF})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	src, err := modeler.WriteImage(f.doc, "checker", "image/png", &buf)
	require.NoError(t, err)
	f.doc.Textures = append(f.doc.Textures, &gltf.Texture{Source: gltf.Index(src), Sampler: sampler})
	return len(f.doc.Textures) - 1
}

func (f *fixture) source(t *testing.T) *assets.Source {
	t.Helper()
	src, err := assets.FromDocument(f.doc, nil)
	require.NoError(t, err)
	return src
}

func (f *fixture) importWith(t *testing.T, dev gpu.Device, opts ImportOptions) (*Model, error) {
	t.Helper()
	return Import(dev, f.source(t), opts)
}

func (f *fixture) mustImport(t *testing.T, dev gpu.Device) *Model {
	t.Helper()
	m, err := f.importWith(t, dev, DefaultImportOptions())
	require.NoError(t, err)
	return m
}

// glb encodes the document as a binary glTF file.
func (f *fixture) glb(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gltf.NewEncoder(&buf).Encode(f.doc))
	return buf.Bytes()
}

func drawableByName(t *testing.T, m *Model, name string) Drawable {
	t.Helper()
	for _, d := range m.Drawables() {
		if d.Name == name {
			return d
		}
	}
	t.Fatalf("no drawable named %q", name)
	return Drawable{}
}

func assertMat(t *testing.T, want, got mgl32.Mat4) {
	t.Helper()
	for i := range want {
		require.InDelta(t, want[i], got[i], 1e-5, "element %d: want\n%v\ngot\n%v", i, want, got)
	}
}

func mat4Array(m mgl32.Mat4) [4][4]float32 {
	var out [4][4]float32
	for c := range 4 {
		for r := range 4 {
			out[c][r] = m[c*4+r]
		}
	}
	return out
}
