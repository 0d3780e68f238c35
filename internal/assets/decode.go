package assets

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/h2non/filetype"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Faultbox/dreamfield/internal/engine/texture"
)

var (
	// ErrMissingResource is returned when a buffer view or external file
	// referenced by an image cannot be found.
	ErrMissingResource = errors.New("missing resource")
	// ErrUnsupportedImage is returned for image data no decoder recognises.
	ErrUnsupportedImage = errors.New("unsupported image format")
)

// Image is a decoded image as tightly packed, straight-alpha RGBA8.
type Image struct {
	Name   string
	Width  int
	Height int
	Pixels []byte
}

// Source is everything model import needs from a glTF asset: the parsed
// document, its raw buffers, and its decoded images, each in document order.
type Source struct {
	Document *gltf.Document
	Buffers  [][]byte
	Images   []Image
}

// Decode parses a glTF or GLB stream. fsys resolves relative URIs of
// external buffers and images; it may be nil for self-contained files.
func Decode(r io.Reader, fsys fs.FS) (*Source, error) {
	var dec *gltf.Decoder
	if fsys != nil {
		dec = gltf.NewDecoderFS(r, fsys)
	} else {
		dec = gltf.NewDecoder(r)
	}
	doc := new(gltf.Document)
	if err := dec.Decode(doc); err != nil {
		return nil, fmt.Errorf("parsing glTF: %w", err)
	}
	return FromDocument(doc, fsys)
}

// DecodeBytes parses an in-memory, self-contained glTF or GLB file.
func DecodeBytes(data []byte) (*Source, error) {
	return Decode(bytes.NewReader(data), nil)
}

// FromDocument collects the buffers and decodes the images of an already
// parsed document.
func FromDocument(doc *gltf.Document, fsys fs.FS) (*Source, error) {
	src := &Source{
		Document: doc,
		Buffers:  make([][]byte, len(doc.Buffers)),
		Images:   make([]Image, len(doc.Images)),
	}
	for i, b := range doc.Buffers {
		src.Buffers[i] = b.Data
	}
	for i, im := range doc.Images {
		data, err := imageBytes(doc, im, fsys)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		img, err := DecodeImage(data, im.MimeType, im.URI)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		img.Name = im.Name
		src.Images[i] = img
	}
	return src, nil
}

func imageBytes(doc *gltf.Document, im *gltf.Image, fsys fs.FS) ([]byte, error) {
	switch {
	case im.BufferView != nil:
		idx := *im.BufferView
		if idx < 0 || idx >= len(doc.BufferViews) {
			return nil, fmt.Errorf("%w: buffer view %d", ErrMissingResource, idx)
		}
		data, err := modeler.ReadBufferView(doc, doc.BufferViews[idx])
		if err != nil {
			return nil, fmt.Errorf("%w: buffer view %d: %v", ErrMissingResource, idx, err)
		}
		return data, nil
	case im.IsEmbeddedResource():
		return im.MarshalData()
	case im.URI != "":
		if fsys == nil {
			return nil, fmt.Errorf("%w: external image %q without a file system", ErrMissingResource, im.URI)
		}
		data, err := fs.ReadFile(fsys, im.URI)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMissingResource, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: image has neither buffer view nor uri", ErrMissingResource)
}

// DecodeImage decodes encoded image bytes. An empty mimeType is sniffed from
// the data; TGA, which has no signature, is recognised by the name suffix.
func DecodeImage(data []byte, mimeType, name string) (Image, error) {
	if mimeType == "" {
		mimeType = sniffMIME(data, name)
	}

	var (
		img image.Image
		err error
	)
	switch mimeType {
	case "image/x-tga", "image/tga", "image/x-targa":
		img, err = texture.DecodeTGA(data)
	default:
		img, _, err = image.Decode(bytes.NewReader(data))
		if errors.Is(err, image.ErrFormat) {
			err = fmt.Errorf("%w: %q", ErrUnsupportedImage, mimeType)
		}
	}
	if err != nil {
		return Image{}, err
	}

	rgba := texture.ToNRGBA(img)
	return Image{
		Width:  rgba.Rect.Dx(),
		Height: rgba.Rect.Dy(),
		Pixels: rgba.Pix,
	}, nil
}

func sniffMIME(data []byte, name string) string {
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	if strings.EqualFold(path.Ext(name), ".tga") {
		return "image/x-tga"
	}
	return ""
}
