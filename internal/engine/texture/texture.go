// Package texture provides image decoding and texture processing utilities.
package texture

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/Faultbox/dreamfield/internal/engine/gpu"
)

// ToNRGBA converts img to straight-alpha 8-bit RGBA with its origin at (0, 0).
// An *image.NRGBA that already satisfies this is returned as is.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) && n.Stride == 4*n.Rect.Dx() {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// QuantizeToBitDepth reduces the colour channels of tightly packed RGBA8
// pixels to bits per channel, in place. Alpha is left untouched. Depths of 0
// or 8 and above leave the pixels unchanged.
func QuantizeToBitDepth(pix []byte, bits uint8) {
	if bits == 0 || bits >= 8 {
		return
	}
	levels := uint32(1)<<bits - 1

	var table [256]byte
	for v := range table {
		q := (uint32(v)*levels + 127) / 255
		table[v] = byte((q*255 + levels/2) / levels)
	}

	for i := 0; i+3 < len(pix); i += 4 {
		pix[i] = table[pix[i]]
		pix[i+1] = table[pix[i+1]]
		pix[i+2] = table[pix[i+2]]
	}
}

// StripMipmap maps a mipmapped filter to the filter used within one level:
// LINEAR_MIPMAP_* becomes LINEAR, NEAREST_MIPMAP_* becomes NEAREST.
func StripMipmap(f gpu.Filter) gpu.Filter {
	switch f {
	case gpu.FilterLinearMipmapLinear, gpu.FilterLinearMipmapNearest:
		return gpu.FilterLinear
	case gpu.FilterNearestMipmapLinear, gpu.FilterNearestMipmapNearest:
		return gpu.FilterNearest
	}
	return f
}

// CountLevels returns the number of mip levels a full chain has for a
// width x height texture.
func CountLevels(width, height int) int {
	n := 1
	for width > 1 || height > 1 {
		width, height = max(width/2, 1), max(height/2, 1)
		n++
	}
	return n
}
