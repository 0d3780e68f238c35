package gpu

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// block is a std140 uniform block image in CPU memory that tracks which byte
// range changed since the last upload.
type block struct {
	data   []byte
	lo, hi int // dirty range [lo, hi)
	buffer BufferID
}

func newBlock(size int) block {
	return block{
		data: make([]byte, size),
		lo:   0,
		hi:   size,
	}
}

// Dirty reports whether any field changed since the last upload.
func (b *block) Dirty() bool {
	return b.lo < b.hi
}

// Size returns the block size in bytes.
func (b *block) Size() int {
	return len(b.data)
}

// put writes src at off and widens the dirty range only when bytes differ.
func (b *block) put(off int, src []byte) {
	dst := b.data[off : off+len(src)]
	if bytes.Equal(dst, src) {
		return
	}
	copy(dst, src)
	b.lo = min(b.lo, off)
	b.hi = max(b.hi, off+len(src))
}

func (b *block) putFloats(off int, fs ...float32) {
	var buf [64]byte
	for i, f := range fs {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	b.put(off, buf[:len(fs)*4])
}

func (b *block) putMat4(off int, m mgl32.Mat4) {
	b.putFloats(off, m[:]...)
}

func (b *block) putUint(off int, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	b.put(off, buf[:])
}

func (b *block) putBool(off int, v bool) {
	if v {
		b.putUint(off, 1)
	} else {
		b.putUint(off, 0)
	}
}

func (b *block) float(off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b.data[off:]))
}

func (b *block) mat4(off int) mgl32.Mat4 {
	var m mgl32.Mat4
	for i := range m {
		m[i] = b.float(off + i*4)
	}
	return m
}

func (b *block) uint(off int) uint32 {
	return binary.LittleEndian.Uint32(b.data[off:])
}

// UploadChanged sends the dirty byte range to the GPU, creating the buffer on
// first use. It does nothing when no field changed.
func (b *block) UploadChanged(dev Device) error {
	if b.buffer == 0 {
		id, err := dev.CreateUniformBuffer(len(b.data))
		if err != nil {
			return fmt.Errorf("creating uniform buffer: %w", err)
		}
		b.buffer = id
		b.lo, b.hi = 0, len(b.data)
	}
	if !b.Dirty() {
		return nil
	}
	if err := dev.UpdateUniformBuffer(b.buffer, b.lo, b.data[b.lo:b.hi]); err != nil {
		return err
	}
	b.lo, b.hi = len(b.data), 0
	return nil
}

// bind uploads pending changes and binds the buffer to binding.
func (b *block) bind(dev Device, binding Binding) error {
	if err := b.UploadChanged(dev); err != nil {
		return err
	}
	dev.BindUniformBuffer(binding, b.buffer)
	return nil
}

// Release frees the GPU buffer. The next upload recreates it.
func (b *block) Release(dev Device) {
	if b.buffer != 0 {
		dev.DeleteBuffers(b.buffer)
		b.buffer = 0
	}
	b.lo, b.hi = 0, len(b.data)
}

// std140 rounds n up to a multiple of 16.
func std140(n int) int {
	return (n + 15) &^ 15
}
