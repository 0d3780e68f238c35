// Package shader compiles OpenGL programs, including the model program.
package shader

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/dreamfield/internal/engine/shader/glsl"
)

// Stages holds the GLSL source of each pipeline stage. The tessellation
// stages are optional but must be given together.
type Stages struct {
	Vertex      string
	TessControl string
	TessEval    string
	Fragment    string
}

// Compile compiles the stages and links them into a program.
func Compile(src Stages) (uint32, error) {
	if (src.TessControl == "") != (src.TessEval == "") {
		return 0, fmt.Errorf("tessellation needs both control and evaluation stages")
	}

	type stage struct {
		source string
		kind   uint32
		name   string
	}
	stages := []stage{
		{src.Vertex, gl.VERTEX_SHADER, "vertex"},
		{src.TessControl, gl.TESS_CONTROL_SHADER, "tess control"},
		{src.TessEval, gl.TESS_EVALUATION_SHADER, "tess evaluation"},
		{src.Fragment, gl.FRAGMENT_SHADER, "fragment"},
	}

	var shaders []uint32
	defer func() {
		for _, s := range shaders {
			gl.DeleteShader(s)
		}
	}()
	for _, s := range stages {
		if s.source == "" {
			continue
		}
		id, err := compileShader(s.source, s.kind, s.name)
		if err != nil {
			return 0, err
		}
		shaders = append(shaders, id)
	}

	program := gl.CreateProgram()
	for _, s := range shaders {
		gl.AttachShader(program, s)
	}
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, max(logLen, 1))
		gl.GetProgramInfoLog(program, logLen, nil, &log[0])
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link: %s", string(log))
	}

	return program, nil
}

// CompileProgram compiles vertex and fragment shaders and links them into a program.
func CompileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	return Compile(Stages{Vertex: vertexSrc, Fragment: fragmentSrc})
}

// compileShader compiles a single shader of the given type.
func compileShader(source string, shaderType uint32, name string) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, max(logLen, 1))
		gl.GetShaderInfoLog(shader, logLen, nil, &log[0])
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s shader: %s", name, string(log))
	}

	return shader, nil
}

// GetUniform returns the uniform location for the given name, or -1 if the
// uniform is not found or inactive.
func GetUniform(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

// BindBlocks assigns each named uniform block of program to its binding
// point. A block the linker optimised away is an error.
func BindBlocks(program uint32, blocks map[string]uint32) error {
	for name, binding := range blocks {
		idx := gl.GetUniformBlockIndex(program, gl.Str(name+"\x00"))
		if idx == gl.INVALID_INDEX {
			return fmt.Errorf("uniform block %q not found in program %d", name, program)
		}
		gl.UniformBlockBinding(program, idx, binding)
	}
	return nil
}

// BindSamplers points each named sampler uniform at a texture unit. Inactive
// samplers are skipped.
func BindSamplers(program uint32, samplers map[string]uint32) {
	gl.UseProgram(program)
	for name, unit := range samplers {
		if loc := GetUniform(program, name); loc >= 0 {
			gl.Uniform1i(loc, int32(unit))
		}
	}
}

// ModelProgram compiles the model program and binds its uniform blocks and
// samplers.
func ModelProgram(patches bool) (uint32, error) {
	var s Stages
	s.Vertex, s.TessControl, s.TessEval, s.Fragment = glsl.Model(patches)
	program, err := Compile(s)
	if err != nil {
		return 0, fmt.Errorf("model program: %w", err)
	}
	if err := BindBlocks(program, glsl.Blocks); err != nil {
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("model program: %w", err)
	}
	BindSamplers(program, glsl.Samplers)
	return program, nil
}
