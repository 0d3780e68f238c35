// Package renderer draws a scene with OpenGL.
package renderer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/dreamfield/internal/engine/gpu"
	"github.com/Faultbox/dreamfield/internal/engine/gpu/glgpu"
	"github.com/Faultbox/dreamfield/internal/engine/model"
	"github.com/Faultbox/dreamfield/internal/engine/scene"
	"github.com/Faultbox/dreamfield/internal/engine/shader"
	"github.com/Faultbox/dreamfield/internal/logger"
)

// Config holds renderer configuration.
type Config struct {
	ClearColor  [4]float32
	Multisample bool
	Scene       scene.Config
}

// Renderer owns the GL device, the model programs and the scene.
type Renderer struct {
	config Config

	dev      *glgpu.Device
	scene    *scene.Scene
	programs map[model.RenderMode]uint32

	lastErr string
	log     *zap.Logger
}

// New creates a new renderer.
// IMPORTANT: Must be called AFTER OpenGL context is created!
func New(cfg Config) (*Renderer, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	r := &Renderer{
		config:   cfg,
		dev:      glgpu.New(),
		programs: make(map[model.RenderMode]uint32),
		log:      logger.Named("renderer"),
	}

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.Enable(gl.FRAMEBUFFER_SRGB)
	if cfg.Multisample {
		gl.Enable(gl.MULTISAMPLE)
	}
	c := cfg.ClearColor
	gl.ClearColor(c[0], c[1], c[2], c[3])

	if _, err := r.program(cfg.Scene.Mode); err != nil {
		return nil, err
	}
	r.scene = scene.New(cfg.Scene)
	r.Resize(cfg.Scene.Width, cfg.Scene.Height)
	return r, nil
}

// program returns the model program for mode, compiling it on first use.
func (r *Renderer) program(mode model.RenderMode) (uint32, error) {
	if p, ok := r.programs[mode]; ok {
		return p, nil
	}
	p, err := shader.ModelProgram(mode == model.RenderPatches)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s program: %w", mode, err)
	}
	r.programs[mode] = p
	r.log.Debug("model program created", zap.Stringer("mode", mode), zap.Uint32("program", p))
	return p, nil
}

// Device returns the GL device models are imported onto.
func (r *Renderer) Device() gpu.Device { return r.dev }

// Scene returns the scene being drawn.
func (r *Renderer) Scene() *scene.Scene { return r.scene }

// SetMode switches between triangle and patch rendering.
func (r *Renderer) SetMode(mode model.RenderMode) error {
	if _, err := r.program(mode); err != nil {
		return err
	}
	r.scene.SetMode(mode)
	r.log.Info("render mode changed", zap.Stringer("mode", mode))
	return nil
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	r.scene.Resize(width, height)
	gl.Viewport(0, 0, int32(width), int32(height))
	r.log.Debug("renderer resized", zap.Int("width", width), zap.Int("height", height))
}

// Frame clears the framebuffer and draws the scene from view. Draw failures
// are logged once until they change; the frame itself always completes.
func (r *Renderer) Frame(view mgl32.Mat4) {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	mode := r.scene.Config().Mode
	p, err := r.program(mode)
	if err != nil {
		r.report(err)
		return
	}
	gl.UseProgram(p)
	err = r.scene.Draw(r.dev, view)
	gl.UseProgram(0)
	r.report(err)
}

func (r *Renderer) report(err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if msg == r.lastErr {
		return
	}
	r.lastErr = msg
	if err != nil {
		r.log.Warn("frame drawn with errors", zap.Error(err))
	} else {
		r.log.Info("frame errors cleared")
	}
}

// ReadPixels reads the current framebuffer as bottom-up RGBA rows.
func (r *Renderer) ReadPixels() (pixels []byte, width, height int) {
	cfg := r.scene.Config()
	width, height = cfg.Width, cfg.Height
	pixels = make([]byte, width*height*4)
	if len(pixels) == 0 {
		return pixels, width, height
	}
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return pixels, width, height
}

// Close releases the scene and the programs.
func (r *Renderer) Close() {
	r.log.Info("closing renderer")
	r.scene.Release(r.dev)
	for mode, p := range r.programs {
		gl.DeleteProgram(p)
		delete(r.programs, mode)
	}
}
