// Package window opens the SDL2 window the viewer draws into and owns its
// OpenGL 4.1 core context.
package window

import (
	"fmt"
	"runtime"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/dreamfield/internal/logger"
)

func init() {
	// GL calls and SDL events must stay on the main thread.
	runtime.LockOSThread()
}

// Config describes the window and the framebuffer requested for it.
type Config struct {
	Title      string
	Width      int
	Height     int
	Fullscreen bool
	VSync      bool
	// Samples is the MSAA sample count; 0 disables multisampling.
	Samples int
}

// Window is an SDL2 window with a current GL context.
type Window struct {
	config  Config
	sdl     *sdl.Window
	context sdl.GLContext
	log     *zap.Logger
}

type glAttr struct {
	attr  sdl.GLattr
	value int
}

// attributes lists the context attributes for cfg. Multisampling is only
// requested when samples > 0.
func attributes(samples int) []glAttr {
	attrs := []glAttr{
		{sdl.GL_CONTEXT_MAJOR_VERSION, 4},
		{sdl.GL_CONTEXT_MINOR_VERSION, 1},
		{sdl.GL_CONTEXT_PROFILE_MASK, sdl.GL_CONTEXT_PROFILE_CORE},
		{sdl.GL_DOUBLEBUFFER, 1},
		{sdl.GL_DEPTH_SIZE, 24},
		{sdl.GL_FRAMEBUFFER_SRGB_CAPABLE, 1},
	}
	if samples > 0 {
		attrs = append(attrs, glAttr{sdl.GL_MULTISAMPLEBUFFERS, 1}, glAttr{sdl.GL_MULTISAMPLESAMPLES, samples})
	} else {
		attrs = append(attrs, glAttr{sdl.GL_MULTISAMPLEBUFFERS, 0}, glAttr{sdl.GL_MULTISAMPLESAMPLES, 0})
	}
	return attrs
}

// New initialises SDL, opens the window and makes its GL context current.
// When the driver refuses the requested multisampling, the window is
// opened again without it and Config().Samples reports 0.
func New(cfg Config) (*Window, error) {
	w := &Window{config: cfg, log: logger.Named("window")}

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("SDL_Init failed: %w", err)
	}

	err := w.open()
	if err != nil && w.config.Samples > 0 {
		w.log.Warn("multisampled context refused, retrying without",
			zap.Int("samples", w.config.Samples), zap.Error(err))
		w.config.Samples = 0
		err = w.open()
	}
	if err != nil {
		sdl.Quit()
		return nil, err
	}

	interval := 0
	if cfg.VSync {
		interval = 1
	}
	if err := sdl.GLSetSwapInterval(interval); err != nil {
		w.log.Warn("swap interval not applied", zap.Int("interval", interval), zap.Error(err))
	}

	pw, ph := w.DrawableSize()
	w.log.Info("window created",
		zap.String("title", cfg.Title),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
		zap.Int("drawable_width", pw),
		zap.Int("drawable_height", ph),
		zap.Int("samples", w.config.Samples),
		zap.Bool("fullscreen", cfg.Fullscreen),
		zap.Bool("vsync", cfg.VSync),
	)
	return w, nil
}

func (w *Window) open() error {
	for _, a := range attributes(w.config.Samples) {
		if err := sdl.GLSetAttribute(a.attr, a.value); err != nil {
			return fmt.Errorf("SDL_GL_SetAttribute(%d, %d) failed: %w", a.attr, a.value, err)
		}
	}

	flags := uint32(sdl.WINDOW_OPENGL | sdl.WINDOW_RESIZABLE | sdl.WINDOW_ALLOW_HIGHDPI)
	if w.config.Fullscreen {
		flags |= sdl.WINDOW_FULLSCREEN_DESKTOP
	}
	win, err := sdl.CreateWindow(w.config.Title,
		sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		int32(w.config.Width), int32(w.config.Height), flags)
	if err != nil {
		return fmt.Errorf("SDL_CreateWindow failed: %w", err)
	}
	ctx, err := win.GLCreateContext()
	if err != nil {
		win.Destroy()
		return fmt.Errorf("SDL_GL_CreateContext failed: %w", err)
	}
	w.sdl, w.context = win, ctx
	return nil
}

// Config returns the configuration the window was opened with.
func (w *Window) Config() Config { return w.config }

// Close destroys the context and the window and shuts SDL down.
func (w *Window) Close() {
	w.log.Info("closing window")
	if w.context != nil {
		sdl.GLDeleteContext(w.context)
	}
	if w.sdl != nil {
		w.sdl.Destroy()
	}
	sdl.Quit()
}

// SwapBuffers presents the back buffer.
func (w *Window) SwapBuffers() { w.sdl.GLSwap() }

// DrawableSize returns the framebuffer size in pixels. It is larger than
// the window size on high-DPI displays.
func (w *Window) DrawableSize() (int, int) {
	width, height := w.sdl.GLGetDrawableSize()
	return int(width), int(height)
}

// ToPixels converts a mouse position in window points to framebuffer
// pixels.
func (w *Window) ToPixels(x, y int) (float32, float32) {
	ww, wh := w.sdl.GetSize()
	pw, ph := w.DrawableSize()
	return toPixels(x, y, int(ww), int(wh), pw, ph)
}

func toPixels(x, y, windowW, windowH, pixelW, pixelH int) (float32, float32) {
	if windowW <= 0 || windowH <= 0 {
		return float32(x), float32(y)
	}
	return float32(x) * float32(pixelW) / float32(windowW),
		float32(y) * float32(pixelH) / float32(windowH)
}

// SetTitle sets the window title.
func (w *Window) SetTitle(title string) { w.sdl.SetTitle(title) }
