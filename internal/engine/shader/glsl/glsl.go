// Package glsl embeds the model shader sources and the names they share with
// the CPU side.
package glsl

import (
	_ "embed"
	"strings"

	"github.com/Faultbox/dreamfield/internal/engine/gpu"
)

// Header starts every stage.
const Header = "#version 410 core\n"

//go:embed blocks.glsl
var blocks string

//go:embed model.vert
var modelVertex string

//go:embed model.tesc
var modelTessControl string

//go:embed model.tese
var modelTessEval string

//go:embed model.frag
var modelFragment string

// Blocks maps the uniform block names to the binding points the gpu
// parameter blocks bind to.
var Blocks = map[string]uint32{
	"Global":   uint32(gpu.BindingGlobal),
	"Joints":   uint32(gpu.BindingJoints),
	"Material": uint32(gpu.BindingMaterial),
	"Lights":   uint32(gpu.BindingLights),
}

// Samplers maps the fragment samplers to material texture units.
var Samplers = map[string]uint32{
	"base_color_texture":         uint32(gpu.SlotBaseColor),
	"metallic_roughness_texture": uint32(gpu.SlotMetallicRoughness),
	"normal_texture":             uint32(gpu.SlotNormal),
	"occlusion_texture":          uint32(gpu.SlotOcclusion),
	"emissive_texture":           uint32(gpu.SlotEmissive),
}

func withBlocks(body string) string {
	var b strings.Builder
	b.WriteString(Header)
	b.WriteString(blocks)
	b.WriteString("\n")
	b.WriteString(body)
	return b.String()
}

// Model returns the model program sources. The tessellation stages are
// empty unless patches is set.
func Model(patches bool) (vertex, tessControl, tessEval, fragment string) {
	vertex = withBlocks(modelVertex)
	fragment = withBlocks(modelFragment)
	if patches {
		tessControl = Header + modelTessControl
		tessEval = Header + modelTessEval
	}
	return vertex, tessControl, tessEval, fragment
}
