package glsl

import (
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Faultbox/dreamfield/internal/engine/gpu"
)

func TestModelSources(t *testing.T) {
	vert, tesc, tese, frag := Model(false)
	assert.True(t, strings.HasPrefix(vert, Header))
	assert.True(t, strings.HasPrefix(frag, Header))
	assert.Contains(t, vert, "uniform Global {")
	assert.Empty(t, tesc)
	assert.Empty(t, tese)

	_, tesc, tese, _ = Model(true)
	assert.Contains(t, tesc, "layout(vertices = 3) out;")
	assert.Contains(t, tese, "layout(triangles")
}

func TestBlocksDeclared(t *testing.T) {
	for name := range Blocks {
		assert.Contains(t, blocks, fmt.Sprintf("uniform %s {", name))
	}
	for name := range Samplers {
		assert.Contains(t, modelFragment, "uniform sampler2D "+name+";")
	}
}

// Array sizes must match the capacities the CPU side writes.
func TestBlockCapacities(t *testing.T) {
	joints := regexp.MustCompile(`mat4 joints\[(\d+)\]`).FindStringSubmatch(blocks)
	if assert.Len(t, joints, 2) {
		assert.Equal(t, fmt.Sprint(gpu.MaxJoints), joints[1])
	}
	lights := regexp.MustCompile(`Light lights\[(\d+)\]`).FindStringSubmatch(blocks)
	if assert.Len(t, lights, 2) {
		assert.Equal(t, fmt.Sprint(gpu.MaxLights), lights[1])
	}
}

func TestAttributeLocations(t *testing.T) {
	want := map[string]uint32{
		"a_position": gpu.AttribPosition,
		"a_normal":   gpu.AttribNormal,
		"a_texcoord": gpu.AttribTexCoord,
		"a_joints":   gpu.AttribJoints,
		"a_weights":  gpu.AttribWeights,
		"a_color":    gpu.AttribColor,
	}
	for name, loc := range want {
		assert.Regexp(t, fmt.Sprintf(`location = %d\) in \w+ %s;`, loc, name), modelVertex)
	}
}
