// Package viewer implements the interactive model viewer loop.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/dreamfield/internal/assets"
	"github.com/Faultbox/dreamfield/internal/config"
	"github.com/Faultbox/dreamfield/internal/engine/camera"
	"github.com/Faultbox/dreamfield/internal/engine/gpu"
	"github.com/Faultbox/dreamfield/internal/engine/input"
	"github.com/Faultbox/dreamfield/internal/engine/model"
	"github.com/Faultbox/dreamfield/internal/engine/picking"
	"github.com/Faultbox/dreamfield/internal/engine/renderer"
	"github.com/Faultbox/dreamfield/internal/engine/scene"
	"github.com/Faultbox/dreamfield/internal/engine/screenshot"
	"github.com/Faultbox/dreamfield/internal/engine/window"
	"github.com/Faultbox/dreamfield/internal/logger"
)

// Viewer is the main viewer instance.
type Viewer struct {
	cfg      *config.Config
	running  bool
	window   *window.Window
	renderer *renderer.Renderer
	input    *input.Input
	camera   *camera.OrbitCamera
	shots    *screenshot.Capture

	assets  *assets.Manager
	queue   *gpu.Queue
	loader  *scene.Loader
	watcher *assets.Watcher
	cancel  context.CancelFunc

	instance *scene.Instance
	log      *zap.Logger
}

// New creates the window, the renderer and loads the configured model.
func New(cfg *config.Config) (*Viewer, error) {
	opts, err := cfg.ImportOptions()
	if err != nil {
		return nil, err
	}
	mode, err := cfg.RenderMode()
	if err != nil {
		return nil, err
	}
	if cfg.Data.Model == "" {
		return nil, errors.New("no model given; pass a file or set data.model")
	}

	v := &Viewer{
		cfg:    cfg,
		input:  input.New(),
		camera: camera.NewOrbitCamera(),
		shots:  screenshot.New("screenshots", "dreamfield"),
		assets: assets.NewManager(),
		queue:  gpu.NewQueue(),
		log:    logger.Named("viewer"),
	}
	for _, dir := range cfg.Data.SearchPaths {
		if err := v.assets.AddSearchPath(dir); err != nil {
			v.log.Warn("skipping search path", zap.String("path", dir), zap.Error(err))
		}
	}

	// Create window (this also creates OpenGL context)
	v.window, err = window.New(window.Config{
		Title:      v.title(mode),
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		Fullscreen: cfg.Window.Fullscreen,
		VSync:      cfg.Window.VSync,
		Samples:    cfg.Window.Samples,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// Create renderer (AFTER window, since OpenGL context must exist)
	width, height := v.window.DrawableSize()
	sc := scene.Config{
		Width:      width,
		Height:     height,
		FOVDegrees: cfg.Render.FOVDegrees,
		Near:       cfg.Render.Near,
		Far:        cfg.Render.Far,
		Mode:       mode,
		FogColor:   mgl32.Vec4(cfg.Render.FogColor),
		FogStart:   cfg.Render.FogStart,
		FogEnd:     cfg.Render.FogEnd,
		DefaultSun: cfg.Render.DefaultSun,
	}
	v.renderer, err = renderer.New(renderer.Config{
		ClearColor:  cfg.Render.ClearColor,
		Multisample: v.window.Config().Samples > 0,
		Scene:       sc,
	})
	if err != nil {
		v.window.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	v.loader = &scene.Loader{Assets: v.assets, Options: opts, Queue: v.queue, Scene: v.renderer.Scene()}
	v.instance, err = v.loader.Load(v.renderer.Device(), cfg.Data.Model, mgl32.Ident4())
	if err != nil {
		v.Close()
		return nil, err
	}
	v.frame()
	v.play(cfg.Render.Animation)

	if cfg.Data.Watch {
		v.watch()
	}

	v.log.Info("viewer initialized",
		zap.String("model", cfg.Data.Model),
		zap.Stringer("mode", mode),
		zap.Strings("animations", v.instance.Model.AnimationNames()),
	)
	return v, nil
}

// title names the model and the render mode.
func (v *Viewer) title(mode model.RenderMode) string {
	return fmt.Sprintf("%s - %s [%s]", v.cfg.Window.Title, v.cfg.Data.Model, mode)
}

func (v *Viewer) watch() {
	path, err := v.assets.Resolve(v.cfg.Data.Model)
	if err != nil {
		v.log.Warn("not watching model", zap.Error(err))
		return
	}
	w, err := assets.NewWatcher(0)
	if err != nil {
		v.log.Warn("not watching model", zap.Error(err))
		return
	}
	if err := w.Add(v.cfg.Data.Model, path); err != nil {
		v.log.Warn("not watching model", zap.Error(err))
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	v.watcher, v.cancel = w, cancel
	go w.Run(ctx)
	go v.loader.Watch(ctx, w)
	v.log.Info("watching model", zap.String("path", path))
}

// frame points the camera at the whole scene.
func (v *Viewer) frame() {
	b := v.renderer.Scene().Bounds()
	if b.Empty() {
		return
	}
	v.camera.FitSphere(b.Center(), b.Radius(), mgl32.DegToRad(v.cfg.Render.FOVDegrees))
}

// play starts name, or the first animation when name is empty.
func (v *Viewer) play(name string) {
	if name == "" {
		v.instance.PlayFirst()
		return
	}
	if err := v.instance.Play(name); err != nil {
		v.log.Warn("cannot play animation", zap.Error(err),
			zap.Strings("available", v.instance.Model.AnimationNames()))
	}
}

// nextAnimation cycles through the model's animations.
func (v *Viewer) nextAnimation() {
	names := v.instance.Model.AnimationNames()
	if len(names) == 0 {
		return
	}
	current, _, _ := v.instance.Playing()
	next := names[(slices.Index(names, current)+1)%len(names)]
	v.play(next)
	v.log.Info("playing animation", zap.String("name", next))
}

// Run starts the main viewer loop.
func (v *Viewer) Run() error {
	v.running = true

	// Timing
	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	v.log.Info("starting viewer loop")

	for v.running {
		// Calculate delta time
		now := time.Now()
		dt := now.Sub(lastTime).Seconds()
		lastTime = now

		// 1. Process input
		if v.input.Update() {
			v.running = false
			break
		}
		v.handleEvents()

		// 2. Run queued render-thread work (hot reloads)
		if err := v.queue.Drain(v.renderer.Device()); err != nil {
			v.log.Warn("queued work failed", zap.Error(err))
		}

		// 3. Update animation state
		v.update(float32(dt))

		// 4. Render
		v.renderer.Frame(v.camera.ViewMatrix())

		// 5. Present (swap buffers)
		v.window.SwapBuffers()

		// FPS counter
		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			v.log.Debug("fps", zap.Int("count", frameCount), zap.String("dt", fmt.Sprintf("%.2fms", dt*1000)))
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

func (v *Viewer) handleEvents() {
	for _, event := range v.input.Events() {
		switch event.Type {
		case input.EventWindowResize:
			v.renderer.Resize(v.window.DrawableSize())
		case input.EventMouseMove:
			if v.input.IsButtonDown(sdl.BUTTON_LEFT) {
				v.camera.HandleDrag(event.DeltaX, event.DeltaY)
			}
		case input.EventMouseDown:
			if event.Button == sdl.BUTTON_RIGHT {
				v.pick(event.MouseX, event.MouseY)
			}
		case input.EventMouseWheel:
			v.camera.HandleZoom(event.DeltaY)
		case input.EventKeyDown:
			v.handleKey(event.Key)
		}
	}
}

func (v *Viewer) handleKey(key sdl.Scancode) {
	switch key {
	case sdl.SCANCODE_ESCAPE:
		v.running = false
	case sdl.SCANCODE_SPACE:
		if _, _, playing := v.instance.Playing(); playing {
			v.instance.Stop()
		} else {
			v.play(v.cfg.Render.Animation)
		}
	case sdl.SCANCODE_N:
		v.nextAnimation()
	case sdl.SCANCODE_F:
		v.frame()
	case sdl.SCANCODE_F12:
		v.screenshot()
	case sdl.SCANCODE_P:
		mode := model.RenderPatches
		if v.renderer.Scene().Config().Mode == model.RenderPatches {
			mode = model.RenderTriangles
		}
		if err := v.renderer.SetMode(mode); err != nil {
			v.log.Warn("cannot switch render mode", zap.Error(err))
			return
		}
		v.window.SetTitle(v.title(mode))
	}
}

// pick logs the drawable under a window position.
func (v *Viewer) pick(x, y int) {
	// Mouse events are in window points; the scene is sized in pixels.
	px, py := v.window.ToPixels(x, y)
	sc := v.renderer.Scene()
	cfg := sc.Config()
	if cfg.Width == 0 || cfg.Height == 0 {
		return
	}

	viewProj := sc.Projection().Mul4(v.camera.ViewMatrix())
	ray := picking.ScreenToRay(px, py, float32(cfg.Width), float32(cfg.Height), viewProj.Inv())
	hit, ok := picking.Pick(sc, ray)
	if !ok {
		v.log.Info("nothing picked")
		return
	}
	point := ray.At(hit.Distance)
	v.log.Info("picked",
		zap.String("instance", hit.Instance),
		zap.String("drawable", hit.Drawable),
		zap.Float32("distance", hit.Distance),
		zap.Float32s("point", point[:]),
	)
}

func (v *Viewer) screenshot() {
	pixels, w, h := v.renderer.ReadPixels()
	name, err := v.shots.Save(pixels, w, h)
	if err != nil {
		v.log.Warn("screenshot failed", zap.Error(err))
		return
	}
	v.log.Info("screenshot saved", zap.String("file", name))
}

// update moves the camera from held keys and advances animations.
func (v *Viewer) update(dt float32) {
	var forward, right, up float32
	if v.input.IsKeyDown(sdl.SCANCODE_W) {
		forward++
	}
	if v.input.IsKeyDown(sdl.SCANCODE_S) {
		forward--
	}
	if v.input.IsKeyDown(sdl.SCANCODE_D) {
		right++
	}
	if v.input.IsKeyDown(sdl.SCANCODE_A) {
		right--
	}
	if v.input.IsKeyDown(sdl.SCANCODE_E) {
		up++
	}
	if v.input.IsKeyDown(sdl.SCANCODE_Q) {
		up--
	}
	if forward != 0 || right != 0 || up != 0 {
		v.camera.HandleMovement(forward, right, up)
	}

	v.renderer.Scene().Update(dt)
}

// Close cleans up viewer resources.
func (v *Viewer) Close() {
	v.log.Info("closing viewer")

	if v.cancel != nil {
		v.cancel()
	}
	v.queue.Close()
	if v.renderer != nil {
		v.renderer.Close()
	}
	if v.window != nil {
		v.window.Close()
	}
	v.assets.Close()
}
