package scene

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/dreamfield/internal/assets"
	"github.com/Faultbox/dreamfield/internal/engine/gpu"
	"github.com/Faultbox/dreamfield/internal/engine/model"
)

// Loader imports model files into a scene and re-imports them when they
// change on disk. Files are read and decoded on the calling goroutine; the
// import itself runs on the render thread through the queue.
type Loader struct {
	Assets  *assets.Manager
	Options model.ImportOptions
	Queue   *gpu.Queue
	Scene   *Scene
}

// Load imports name and adds it to the scene. It must run on the render
// thread.
func (l *Loader) Load(dev gpu.Device, name string, world mgl32.Mat4) (*Instance, error) {
	src, err := l.Assets.LoadSource(name)
	if err != nil {
		return nil, err
	}
	m, err := model.Import(dev, src, l.Options)
	if err != nil {
		return nil, fmt.Errorf("importing %s: %w", name, err)
	}
	return l.Scene.Add(name, m, world), nil
}

// Reload rereads name and queues its re-import. The previous model is kept
// when the new file fails to decode or import.
func (l *Loader) Reload(name string) error {
	l.Assets.Invalidate(name)
	src, err := l.Assets.LoadSource(name)
	if err != nil {
		return err
	}
	ok := l.Queue.Post(func(dev gpu.Device) error {
		m, err := model.Import(dev, src, l.Options)
		if err != nil {
			return fmt.Errorf("re-importing %s: %w", name, err)
		}
		old, ok := l.Scene.Replace(name, m)
		if !ok {
			m.Release(dev)
			return fmt.Errorf("re-importing %s: no instance", name)
		}
		old.Release(dev)
		return nil
	})
	if !ok {
		return gpu.ErrQueueClosed
	}
	return nil
}

// Watch reloads every file w reports until ctx is done or w stops.
func (l *Loader) Watch(ctx context.Context, w *assets.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case name, ok := <-w.Changes():
			if !ok {
				return
			}
			l.Scene.log.Info("model changed on disk", zap.String("name", name))
			if err := l.Reload(name); err != nil {
				l.Scene.log.Warn("reload failed", zap.String("name", name), zap.Error(err))
			}
		}
	}
}
