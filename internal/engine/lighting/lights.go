// Package lighting converts imported lights into the GPU light block.
package lighting

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/dreamfield/internal/engine/gpu"
	"github.com/Faultbox/dreamfield/internal/engine/model"
)

// Buffer collects world-space lights for one frame.
type Buffer struct {
	Lights []gpu.LightRecord
}

// NewBuffer creates an empty light buffer.
func NewBuffer() *Buffer {
	return &Buffer{Lights: make([]gpu.LightRecord, 0, gpu.MaxLights)}
}

// Clear removes all lights from the buffer.
func (b *Buffer) Clear() {
	b.Lights = b.Lights[:0]
}

// Add appends a light. It returns false when the buffer is full.
func (b *Buffer) Add(l gpu.LightRecord) bool {
	if len(b.Lights) >= gpu.MaxLights {
		return false
	}
	b.Lights = append(b.Lights, l)
	return true
}

// AddModel adds every light of m placed at objectWorld in its current pose.
// It returns the number of lights that did not fit.
func (b *Buffer) AddModel(m *model.Model, objectWorld mgl32.Mat4) int {
	dropped := 0
	for _, l := range m.Lights() {
		if !b.Add(Record(m, l, objectWorld)) {
			dropped++
		}
	}
	return dropped
}

// Upload writes the buffer into p.
func (b *Buffer) Upload(p *gpu.LightParams) {
	p.SetLights(b.Lights)
}

// Record converts l to world space. Lights shine along their node's -Z.
func Record(m *model.Model, l model.Light, objectWorld mgl32.Mat4) gpu.LightRecord {
	node := l.Node
	if !node.Valid() {
		node = m.Hierarchy().Root()
	}
	world := objectWorld.Mul4(m.Hierarchy().WorldTransform(node))

	r := gpu.LightRecord{
		Position:  world.Col(3).Vec3(),
		Direction: world.Mul4x1(mgl32.Vec4{0, 0, -1, 0}).Vec3(),
		Color:     l.Color,
		Intensity: l.Intensity,
		Range:     l.Range,
	}
	if r.Direction.Len() > 0 {
		r.Direction = r.Direction.Normalize()
	}

	switch l.Kind {
	case model.LightDirectional:
		r.Type = gpu.LightDirectional
	case model.LightPoint:
		r.Type = gpu.LightPoint
	case model.LightSpot:
		r.Type = gpu.LightSpot
		r.CosInner = math32.Cos(l.InnerConeAngle)
		r.CosOuter = math32.Cos(l.OuterConeAngle)
	}
	return r
}
