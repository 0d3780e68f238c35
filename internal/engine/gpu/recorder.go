package gpu

import (
	"fmt"
	"sync"
)

// RecordedTexture is a texture held by a Recorder.
type RecordedTexture struct {
	Desc    TextureDesc
	Pixels  []byte
	Mipmaps bool
}

// Upload is one UpdateUniformBuffer call seen by a Recorder.
type Upload struct {
	Buffer BufferID
	Offset int
	Size   int
}

// Recorder is a Device without a graphics context. It keeps every resource
// and call in memory, for headless import and for tests.
type Recorder struct {
	mu sync.Mutex

	// FailTextures and FailBuffers make the matching Create calls fail.
	FailTextures bool
	FailBuffers  bool

	next         uint32
	Buffers      map[BufferID][]byte
	Textures     map[TextureID]*RecordedTexture
	VertexArrays map[VertexArrayID]VertexArrayDesc
	Uniforms     map[BufferID][]byte
	Uploads      []Upload
	Bound        map[Binding]BufferID
	BoundTex     map[TextureSlot]TextureID
	Draws        []DrawCall
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		Buffers:      make(map[BufferID][]byte),
		Textures:     make(map[TextureID]*RecordedTexture),
		VertexArrays: make(map[VertexArrayID]VertexArrayDesc),
		Uniforms:     make(map[BufferID][]byte),
		Bound:        make(map[Binding]BufferID),
		BoundTex:     make(map[TextureSlot]TextureID),
	}
}

func (r *Recorder) id() uint32 {
	r.next++
	return r.next
}

func (r *Recorder) CreateBuffer(data []byte) (BufferID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailBuffers {
		return 0, fmt.Errorf("%w: buffer creation disabled", ErrDevice)
	}
	id := BufferID(r.id())
	r.Buffers[id] = append([]byte(nil), data...)
	return id, nil
}

func (r *Recorder) DeleteBuffers(ids ...BufferID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.Buffers, id)
		delete(r.Uniforms, id)
	}
}

func (r *Recorder) CreateTexture(desc TextureDesc, rgba []byte) (TextureID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailTextures {
		return 0, fmt.Errorf("%w: texture creation disabled", ErrDevice)
	}
	if want := desc.Width * desc.Height * 4; len(rgba) != want {
		return 0, fmt.Errorf("%w: texture %dx%d needs %d bytes, got %d", ErrDevice, desc.Width, desc.Height, want, len(rgba))
	}
	id := TextureID(r.id())
	r.Textures[id] = &RecordedTexture{Desc: desc, Pixels: append([]byte(nil), rgba...)}
	return id, nil
}

func (r *Recorder) GenerateMipmaps(id TextureID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tex, ok := r.Textures[id]
	if !ok {
		return fmt.Errorf("%w: unknown texture %d", ErrDevice, id)
	}
	tex.Mipmaps = true
	return nil
}

func (r *Recorder) DeleteTextures(ids ...TextureID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.Textures, id)
	}
}

func (r *Recorder) CreateVertexArray(desc VertexArrayDesc) (VertexArrayID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range desc.Attribs {
		if _, ok := r.Buffers[a.Buffer]; !ok {
			return 0, fmt.Errorf("%w: attribute %d uses unknown buffer %d", ErrDevice, a.Location, a.Buffer)
		}
	}
	if desc.Indices != nil {
		if _, ok := r.Buffers[desc.Indices.Buffer]; !ok {
			return 0, fmt.Errorf("%w: unknown index buffer %d", ErrDevice, desc.Indices.Buffer)
		}
	}
	id := VertexArrayID(r.id())
	r.VertexArrays[id] = desc
	return id, nil
}

func (r *Recorder) DeleteVertexArrays(ids ...VertexArrayID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.VertexArrays, id)
	}
}

func (r *Recorder) CreateUniformBuffer(size int) (BufferID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailBuffers {
		return 0, fmt.Errorf("%w: buffer creation disabled", ErrDevice)
	}
	id := BufferID(r.id())
	r.Uniforms[id] = make([]byte, size)
	return id, nil
}

func (r *Recorder) UpdateUniformBuffer(id BufferID, offset int, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	buf, ok := r.Uniforms[id]
	if !ok {
		return fmt.Errorf("%w: unknown uniform buffer %d", ErrDevice, id)
	}
	if offset < 0 || offset+len(data) > len(buf) {
		return fmt.Errorf("%w: upload [%d, %d) outside buffer of %d bytes", ErrDevice, offset, offset+len(data), len(buf))
	}
	copy(buf[offset:], data)
	r.Uploads = append(r.Uploads, Upload{Buffer: id, Offset: offset, Size: len(data)})
	return nil
}

func (r *Recorder) BindUniformBuffer(binding Binding, id BufferID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Bound[binding] = id
}

func (r *Recorder) BindTexture(slot TextureSlot, id TextureID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.BoundTex[slot] = id
}

func (r *Recorder) Draw(call DrawCall) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.VertexArrays[call.VertexArray]; !ok {
		return fmt.Errorf("%w: draw with unknown vertex array %d", ErrDevice, call.VertexArray)
	}
	r.Draws = append(r.Draws, call)
	return nil
}

// Reset forgets recorded uploads and draws but keeps resources.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Uploads = nil
	r.Draws = nil
}

// Live returns the number of live buffers, textures and vertex arrays.
func (r *Recorder) Live() (buffers, textures, vertexArrays int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Buffers), len(r.Textures), len(r.VertexArrays)
}
