// Package scene holds the imported models on screen and draws them each
// frame: camera and fog parameters, animation playback, and lights.
//
// A Scene is owned by the render thread. Other goroutines change it through
// a gpu.Queue.
package scene

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/dreamfield/internal/engine/gpu"
	"github.com/Faultbox/dreamfield/internal/engine/lighting"
	"github.com/Faultbox/dreamfield/internal/engine/model"
	"github.com/Faultbox/dreamfield/internal/logger"
)

// ErrUnknownAnimation is returned by Play for a name the model lacks.
var ErrUnknownAnimation = errors.New("unknown animation")

// Config contains scene configuration options.
type Config struct {
	Width      int
	Height     int
	FOVDegrees float32
	Near       float32
	Far        float32
	Mode       model.RenderMode

	FogColor mgl32.Vec4
	FogStart float32
	FogEnd   float32 // fog is off unless FogEnd > FogStart

	// DefaultSun lights scenes that bring no lights of their own.
	DefaultSun bool
}

// DefaultConfig returns a default scene configuration.
func DefaultConfig() Config {
	return Config{
		Width:      1280,
		Height:     720,
		FOVDegrees: 45,
		Near:       0.1,
		Far:        1000,
		Mode:       model.RenderTriangles,
		DefaultSun: true,
	}
}

// Instance is one model placed in the scene.
type Instance struct {
	Name  string
	Model *model.Model
	World mgl32.Mat4

	anim  *model.Animation
	clock float32
}

// Play starts the named animation from its beginning.
func (in *Instance) Play(name string) error {
	a, ok := in.Model.Animation(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAnimation, name)
	}
	in.anim, in.clock = a, 0
	return nil
}

// PlayFirst plays the alphabetically first animation, if there is one.
func (in *Instance) PlayFirst() bool {
	names := in.Model.AnimationNames()
	if len(names) == 0 {
		return false
	}
	return in.Play(names[0]) == nil
}

// Stop freezes the current pose.
func (in *Instance) Stop() { in.anim = nil }

// Playing returns the current animation name and clock.
func (in *Instance) Playing() (name string, t float32, ok bool) {
	if in.anim == nil {
		return "", 0, false
	}
	return in.anim.Name, in.clock, true
}

func (in *Instance) advance(dt float32) {
	if in.anim == nil {
		return
	}
	in.clock = in.anim.Wrap(in.clock + dt)
	in.anim.Apply(in.Model.Hierarchy(), in.clock)
}

// Scene manages the models on screen and the per-frame parameter blocks.
type Scene struct {
	config Config

	instances []*Instance
	simTime   float32

	global *gpu.GlobalParams
	joints *gpu.JointParams
	lights *gpu.LightParams
	buf    *lighting.Buffer

	log *zap.Logger
}

// New creates an empty scene.
func New(cfg Config) *Scene {
	return &Scene{
		config: cfg,
		global: gpu.NewGlobalParams(),
		joints: gpu.NewJointParams(),
		lights: gpu.NewLightParams(),
		buf:    lighting.NewBuffer(),
		log:    logger.Named("scene"),
	}
}

// Config returns the current configuration.
func (s *Scene) Config() Config { return s.config }

// SetMode switches between triangle and patch rendering.
func (s *Scene) SetMode(mode model.RenderMode) { s.config.Mode = mode }

// Resize updates the viewport size used for the projection.
func (s *Scene) Resize(width, height int) {
	s.config.Width, s.config.Height = width, height
}

// Add places m in the scene under name.
func (s *Scene) Add(name string, m *model.Model, world mgl32.Mat4) *Instance {
	in := &Instance{Name: name, Model: m, World: world}
	s.instances = append(s.instances, in)
	s.log.Info("model added", zap.String("name", name), zap.Stringer("model", m.ID()))
	return in
}

// Instance returns the instance called name.
func (s *Scene) Instance(name string) (*Instance, bool) {
	for _, in := range s.instances {
		if in.Name == name {
			return in, true
		}
	}
	return nil, false
}

// Instances returns the instances in draw order.
func (s *Scene) Instances() []*Instance {
	return append([]*Instance(nil), s.instances...)
}

// Replace swaps the model of the instance called name, keeping its world
// transform and, when the new model has it, its animation and clock. The
// clock is wrapped to the new animation's duration and its pose applied.
// It returns the previous model for the caller to release.
func (s *Scene) Replace(name string, m *model.Model) (*model.Model, bool) {
	in, ok := s.Instance(name)
	if !ok {
		return nil, false
	}
	old := in.Model
	playing, clock, wasPlaying := in.Playing()
	in.Model, in.anim, in.clock = m, nil, 0
	if wasPlaying && in.Play(playing) == nil {
		in.clock = in.anim.Wrap(clock)
		in.anim.Apply(m.Hierarchy(), in.clock)
	}
	s.log.Info("model replaced", zap.String("name", name),
		zap.Stringer("old", old.ID()), zap.Stringer("new", m.ID()))
	return old, true
}

// Remove takes the instance called name out of the scene and returns its
// model for the caller to release.
func (s *Scene) Remove(name string) (*model.Model, bool) {
	for i, in := range s.instances {
		if in.Name == name {
			s.instances = append(s.instances[:i], s.instances[i+1:]...)
			return in.Model, true
		}
	}
	return nil, false
}

// Update advances the scene clock and every playing animation by dt seconds.
func (s *Scene) Update(dt float32) {
	if dt <= 0 || math32.IsNaN(dt) || math32.IsInf(dt, 0) {
		return
	}
	s.simTime += dt
	for _, in := range s.instances {
		in.advance(dt)
	}
}

// Projection returns the perspective projection for the current size.
func (s *Scene) Projection() mgl32.Mat4 {
	aspect := float32(1)
	if s.config.Height > 0 {
		aspect = float32(s.config.Width) / float32(s.config.Height)
	}
	return mgl32.Perspective(mgl32.DegToRad(s.config.FOVDegrees), aspect, s.config.Near, s.config.Far)
}

// Bounds returns the world-space box around every instance.
func (s *Scene) Bounds() model.Bounds {
	var b model.Bounds
	for _, in := range s.instances {
		b.Union(in.Model.Bounds(in.World))
	}
	return b
}

// Draw renders every instance from view. A drawable that fails is skipped;
// the failures are returned joined after the whole frame is drawn.
func (s *Scene) Draw(dev gpu.Device, view mgl32.Mat4) error {
	s.global.SetProjection(s.Projection())
	s.global.SetView(view)
	s.global.SetViewport(s.config.Width, s.config.Height)
	s.global.SetSimTime(s.simTime)
	s.global.SetFog(s.config.FogColor, s.config.FogStart, s.config.FogEnd)

	s.buf.Clear()
	for _, in := range s.instances {
		if n := s.buf.AddModel(in.Model, in.World); n > 0 {
			s.log.Debug("lights dropped", zap.String("instance", in.Name), zap.Int("count", n))
		}
	}
	if len(s.buf.Lights) == 0 && s.config.DefaultSun {
		s.buf.Add(lighting.DefaultSun())
	}
	s.buf.Upload(s.lights)
	if err := s.lights.Bind(dev); err != nil {
		return fmt.Errorf("binding lights: %w", err)
	}

	var errs []error
	for _, in := range s.instances {
		if err := in.Model.Render(dev, in.World, s.global, s.joints, s.config.Mode); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", in.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Release frees the parameter blocks and every model.
func (s *Scene) Release(dev gpu.Device) {
	for _, in := range s.instances {
		in.Model.Release(dev)
	}
	s.instances = nil
	s.global.Release(dev)
	s.joints.Release(dev)
	s.lights.Release(dev)
}
