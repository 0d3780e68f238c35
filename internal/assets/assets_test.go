package assets

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 0xFF, A: 0xFF})
	img.SetNRGBA(1, 0, color.NRGBA{B: 0xFF, A: 0x80})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// tgaBytes encodes a 1x1 uncompressed 32-bit TGA.
func tgaBytes() []byte {
	h := make([]byte, 18)
	h[2] = 2
	h[12], h[14] = 1, 1
	h[16] = 32
	h[17] = 0x28                             // top-left origin, 8 alpha bits
	return append(h, 0x30, 0x20, 0x10, 0xFF) // BGRA
}

func TestDecodeImageSniffsPNG(t *testing.T) {
	img, err := DecodeImage(pngBytes(t), "", "")
	require.NoError(t, err)
	assert.Equal(t, 2, img.Width)
	assert.Equal(t, 1, img.Height)
	assert.Equal(t, []byte{0xFF, 0, 0, 0xFF, 0, 0, 0xFF, 0x80}, img.Pixels)
}

func TestDecodeImageTGAByName(t *testing.T) {
	img, err := DecodeImage(tgaBytes(), "", "bark.TGA")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x10, 0x20, 0x30, 0xFF}, img.Pixels)
}

func TestDecodeImageUnknown(t *testing.T) {
	_, err := DecodeImage([]byte("definitely not an image"), "", "x.bin")
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func texturedDocument(t *testing.T) *gltf.Document {
	t.Helper()
	doc := gltf.NewDocument()
	modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	_, err := modeler.WriteImage(doc, "swatch", "image/png", bytes.NewReader(pngBytes(t)))
	require.NoError(t, err)
	return doc
}

func TestDecodeGLBRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, gltf.NewEncoder(&buf).Encode(texturedDocument(t)))

	src, err := DecodeBytes(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, src.Images, 1)
	assert.Equal(t, "swatch", src.Images[0].Name)
	assert.Equal(t, 2, src.Images[0].Width)
	require.Len(t, src.Buffers, 1)
	assert.NotEmpty(t, src.Buffers[0])
}

func TestFromDocumentMissingImage(t *testing.T) {
	doc := gltf.NewDocument()
	doc.Images = []*gltf.Image{{URI: "missing.png"}}

	_, err := FromDocument(doc, nil)
	assert.ErrorIs(t, err, ErrMissingResource)

	_, err = FromDocument(doc, os.DirFS(t.TempDir()))
	assert.ErrorIs(t, err, ErrMissingResource)

	doc.Images = []*gltf.Image{{BufferView: gltf.Index(7)}}
	_, err = FromDocument(doc, nil)
	assert.ErrorIs(t, err, ErrMissingResource)
}

func TestFromDocumentExternalImage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "swatch.png"), pngBytes(t), 0o644))
	doc := gltf.NewDocument()
	doc.Images = []*gltf.Image{{URI: "swatch.png"}}

	src, err := FromDocument(doc, os.DirFS(dir))
	require.NoError(t, err)
	assert.Equal(t, 2, src.Images[0].Width)
}

func TestManagerResolveOrder(t *testing.T) {
	low, high := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(low, "a.bin"), []byte("low"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(high, "a.bin"), []byte("high"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(low, "b.bin"), []byte("only low"), 0o644))

	m := NewManager()
	require.NoError(t, m.AddSearchPath(low))
	require.NoError(t, m.AddSearchPath(high))

	data, err := m.Load("a.bin")
	require.NoError(t, err)
	assert.Equal(t, "high", string(data), "later search paths win")

	data, err = m.Load("b.bin")
	require.NoError(t, err)
	assert.Equal(t, "only low", string(data))

	_, err = m.Load("c.bin")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, m.AddSearchPath(filepath.Join(low, "a.bin")), "files are not search paths")
}

func TestManagerCacheAndInvalidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.bin")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o644))

	m := NewManager()
	require.NoError(t, m.AddSearchPath(dir))
	_, err := m.Load("a.bin")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("two"), 0o644))
	data, _ := m.Load("a.bin")
	assert.Equal(t, "one", string(data))
	hits, misses := m.cache.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)

	m.Invalidate("a.bin")
	data, _ = m.Load("a.bin")
	assert.Equal(t, "two", string(data))
}

func TestManagerLoadSource(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, gltf.NewEncoder(&buf).Encode(texturedDocument(t)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "m.glb"), buf.Bytes(), 0o644))

	m := NewManager()
	require.NoError(t, m.AddSearchPath(dir))
	src, err := m.LoadSource("m.glb")
	require.NoError(t, err)
	assert.Len(t, src.Images, 1)
}

func TestWatcherReportsChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m.glb")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	w, err := NewWatcher(20 * time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Add("m.glb", path))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.glb"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("v3"), 0o644))

	select {
	case name := <-w.Changes():
		assert.Equal(t, "m.glb", name)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	for range w.Changes() {
	}
}
