package model

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/dreamfield/internal/assets"
	"github.com/Faultbox/dreamfield/internal/engine/gpu"
	"github.com/Faultbox/dreamfield/internal/engine/texture"
	"github.com/Faultbox/dreamfield/internal/engine/transform"
)

// LoadFile decodes the glTF or GLB file at path and imports it.
// External buffers and images resolve relative to the file's directory.
func LoadFile(dev gpu.Device, path string, opts ImportOptions) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Kind: KindParse, Op: "open " + path, Err: err}
	}
	defer f.Close()

	src, err := assets.Decode(f, os.DirFS(filepath.Dir(path)))
	if err != nil {
		return nil, decodeError(path, err)
	}
	return Import(dev, src, opts)
}

// LoadBytes decodes a self-contained glTF or GLB file and imports it.
func LoadBytes(dev gpu.Device, data []byte, opts ImportOptions) (*Model, error) {
	src, err := assets.Decode(bytes.NewReader(data), nil)
	if err != nil {
		return nil, decodeError("decode", err)
	}
	return Import(dev, src, opts)
}

func decodeError(op string, err error) error {
	if errors.Is(err, assets.ErrMissingResource) {
		return &Error{Kind: KindReference, Op: op, Err: err}
	}
	return &Error{Kind: KindParse, Op: op, Err: err}
}

// Import turns a decoded asset into a Model. It must run on the render
// thread. On failure every GPU resource created so far is released.
func Import(dev gpu.Device, src *assets.Source, opts ImportOptions) (*Model, error) {
	if src == nil || src.Document == nil {
		return nil, parseErrorf("import", "no document")
	}

	m := newModel()
	imp := &importer{
		dev:  dev,
		src:  src,
		doc:  withBuffers(src),
		opts: opts,
		m:    m,
		log:  m.log,
	}

	start := time.Now()
	if err := imp.run(); err != nil {
		m.Release(dev)
		return nil, err
	}

	m.log.Info("model imported",
		zap.Int("nodes", m.hierarchy.Len()),
		zap.Int("textures", len(m.textures)),
		zap.Int("materials", len(m.materials)),
		zap.Int("meshes", len(m.meshes)),
		zap.Int("skins", len(m.skins)),
		zap.Int("drawables", len(m.drawables)),
		zap.Int("lights", len(m.lights)),
		zap.Int("animations", len(m.animations)),
		zap.Duration("took", time.Since(start)))
	return m, nil
}

// withBuffers returns a shallow copy of the document whose buffers carry the
// source's decoded bytes, so accessor reads see the same data as the GPU.
func withBuffers(src *assets.Source) *gltf.Document {
	doc := *src.Document
	doc.Buffers = make([]*gltf.Buffer, len(src.Buffers))
	for i, data := range src.Buffers {
		doc.Buffers[i] = &gltf.Buffer{ByteLength: len(data), Data: data}
	}
	return &doc
}

type importer struct {
	dev  gpu.Device
	src  *assets.Source
	doc  *gltf.Document
	opts ImportOptions
	m    *Model
	log  *zap.Logger
}

func (imp *importer) run() error {
	stages := []struct {
		name string
		fn   func() error
	}{
		{"buffers", imp.loadBuffers},
		{"hierarchy", imp.buildHierarchy},
		{"textures", imp.loadTextures},
		{"materials", imp.loadMaterials},
		{"meshes", imp.loadMeshes},
		{"skins", imp.loadSkins},
		{"animations", imp.loadAnimations},
		{"scene", imp.buildScene},
	}
	for _, s := range stages {
		start := time.Now()
		if err := s.fn(); err != nil {
			return err
		}
		imp.log.Debug("import stage done", zap.String("stage", s.name), zap.Duration("took", time.Since(start)))
	}
	return nil
}

func (imp *importer) loadBuffers() error {
	for i, data := range imp.src.Buffers {
		id, err := imp.dev.CreateBuffer(data)
		if err != nil {
			return resourceError(fmt.Sprintf("upload buffer %d", i), err)
		}
		imp.m.buffers = append(imp.m.buffers, id)
	}
	return nil
}

// sceneRoots returns the top-level nodes in traversal order. A document
// without scenes contributes every node that is nobody's child.
func (imp *importer) sceneRoots(op string) ([]int, error) {
	n := len(imp.doc.Nodes)
	if len(imp.doc.Scenes) == 0 {
		isChild := make([]bool, n)
		for _, node := range imp.doc.Nodes {
			for _, c := range node.Children {
				if c >= 0 && c < n {
					isChild[c] = true
				}
			}
		}
		var roots []int
		for i := range n {
			if !isChild[i] {
				roots = append(roots, i)
			}
		}
		return roots, nil
	}

	var roots []int
	for si, scene := range imp.doc.Scenes {
		for _, idx := range scene.Nodes {
			if err := checkIndex(fmt.Sprintf("%s: scene %d", op, si), "node", idx, n); err != nil {
				return nil, err
			}
			roots = append(roots, idx)
		}
	}
	return roots, nil
}

const (
	unvisited = iota
	onPath
	visited
)

func (imp *importer) buildHierarchy() error {
	const op = "build hierarchy"
	roots, err := imp.sceneRoots(op)
	if err != nil {
		return err
	}

	state := make([]uint8, len(imp.doc.Nodes))
	var visit func(idx int, parent transform.Handle) error
	visit = func(idx int, parent transform.Handle) error {
		switch state[idx] {
		case onPath:
			return parseErrorf(op, "node %d is its own ancestor", idx)
		case visited:
			return nil
		}
		state[idx] = onPath

		node := imp.doc.Nodes[idx]
		h, err := imp.m.hierarchy.Insert(idx, parent, localTransform(node))
		if err != nil {
			return parseErrorf(op, "node %d: %v", idx, err)
		}
		for _, c := range node.Children {
			if err := checkIndex(fmt.Sprintf("%s: node %d", op, idx), "child node", c, len(imp.doc.Nodes)); err != nil {
				return err
			}
			if err := visit(c, h); err != nil {
				return err
			}
		}
		state[idx] = visited
		return nil
	}

	for _, idx := range roots {
		if err := visit(idx, imp.m.hierarchy.Root()); err != nil {
			return err
		}
	}
	return nil
}

// localTransform is the node's matrix when it declares one, else T*R*S.
func localTransform(n *gltf.Node) mgl32.Mat4 {
	if n.Matrix != gltf.DefaultMatrix && n.Matrix != ([16]float64{}) {
		var m mgl32.Mat4
		for i, v := range n.Matrix {
			m[i] = float32(v)
		}
		return m
	}
	return restPose(n).Mat4()
}

func (imp *importer) loadTextures() error {
	bits := imp.opts.TextureBits
	for i, gt := range imp.doc.Textures {
		op := fmt.Sprintf("load texture %d", i)
		if gt.Source == nil {
			return referenceErrorf(op, "texture has no image source")
		}
		if err := checkIndex(op, "image", *gt.Source, len(imp.src.Images)); err != nil {
			return err
		}
		img := imp.src.Images[*gt.Source]
		if img.Width <= 0 || img.Height <= 0 || len(img.Pixels) != img.Width*img.Height*4 {
			return parseErrorf(op, "image %d is not %dx%d RGBA8", *gt.Source, img.Width, img.Height)
		}

		requested, err := imp.sampler(op, gt.Sampler)
		if err != nil {
			return err
		}
		applied := requested
		if imp.opts.StripMipmapFilters {
			applied.MinFilter = texture.StripMipmap(applied.MinFilter)
			applied.MagFilter = texture.StripMipmap(applied.MagFilter)
		}

		pixels := img.Pixels
		if bits > 0 && bits < 8 {
			pixels = slices.Clone(img.Pixels)
			texture.QuantizeToBitDepth(pixels, bits)
		}

		id, err := imp.dev.CreateTexture(gpu.TextureDesc{
			Width:   img.Width,
			Height:  img.Height,
			SRGB:    true,
			Sampler: applied,
		}, pixels)
		if err != nil {
			return resourceError(op, err)
		}
		tex := &Texture{
			Index:     i,
			Name:      gt.Name,
			ID:        id,
			Width:     img.Width,
			Height:    img.Height,
			Requested: requested,
			Sampler:   applied,
		}
		if tex.Name == "" {
			tex.Name = img.Name
		}
		imp.m.textures = append(imp.m.textures, tex)

		if err := imp.dev.GenerateMipmaps(id); err != nil {
			return resourceError(op, err)
		}
		tex.Mipmapped = true
	}
	return nil
}

// sampler converts the referenced sampler, defaulting unspecified filters
// to NEAREST and wraps to REPEAT.
func (imp *importer) sampler(op string, idx *int) (gpu.Sampler, error) {
	s := gpu.Sampler{
		MinFilter: gpu.FilterNearest,
		MagFilter: gpu.FilterNearest,
		WrapS:     gpu.WrapRepeat,
		WrapT:     gpu.WrapRepeat,
	}
	if idx == nil {
		return s, nil
	}
	if err := checkIndex(op, "sampler", *idx, len(imp.doc.Samplers)); err != nil {
		return s, err
	}
	gs := imp.doc.Samplers[*idx]
	if gs.MagFilter == gltf.MagLinear {
		s.MagFilter = gpu.FilterLinear
	}
	switch gs.MinFilter {
	case gltf.MinLinear:
		s.MinFilter = gpu.FilterLinear
	case gltf.MinNearestMipMapNearest:
		s.MinFilter = gpu.FilterNearestMipmapNearest
	case gltf.MinLinearMipMapNearest:
		s.MinFilter = gpu.FilterLinearMipmapNearest
	case gltf.MinNearestMipMapLinear:
		s.MinFilter = gpu.FilterNearestMipmapLinear
	case gltf.MinLinearMipMapLinear:
		s.MinFilter = gpu.FilterLinearMipmapLinear
	}
	s.WrapS = wrapMode(gs.WrapS)
	s.WrapT = wrapMode(gs.WrapT)
	return s, nil
}

func wrapMode(w gltf.WrappingMode) gpu.Wrap {
	switch w {
	case gltf.WrapClampToEdge:
		return gpu.WrapClampToEdge
	case gltf.WrapMirroredRepeat:
		return gpu.WrapMirroredRepeat
	}
	return gpu.WrapRepeat
}

func (imp *importer) loadMaterials() error {
	for i, gm := range imp.doc.Materials {
		op := fmt.Sprintf("load material %d", i)
		mat := DefaultMaterial()
		mat.Index = i
		mat.Name = gm.Name
		mat.MetallicFactor = 1
		mat.AlphaCutoff = float32(gm.AlphaCutoffOrDefault())
		mat.DoubleSided = gm.DoubleSided
		mat.EmissiveFactor = mgl32.Vec3{float32(gm.EmissiveFactor[0]), float32(gm.EmissiveFactor[1]), float32(gm.EmissiveFactor[2])}

		switch gm.AlphaMode {
		case gltf.AlphaMask:
			mat.AlphaMode = AlphaMask
		case gltf.AlphaBlend:
			mat.AlphaMode = AlphaBlend
		}

		var err error
		if pbr := gm.PBRMetallicRoughness; pbr != nil {
			c := pbr.BaseColorFactorOrDefault()
			mat.BaseColorFactor = mgl32.Vec4{float32(c[0]), float32(c[1]), float32(c[2]), float32(c[3])}
			mat.MetallicFactor = float32(pbr.MetallicFactorOrDefault())
			mat.RoughnessFactor = float32(pbr.RoughnessFactorOrDefault())
			if mat.BaseColorTexture, err = imp.textureRef(op, pbr.BaseColorTexture); err != nil {
				return err
			}
			if mat.MetallicRoughnessTexture, err = imp.textureRef(op, pbr.MetallicRoughnessTexture); err != nil {
				return err
			}
		}
		if nt := gm.NormalTexture; nt != nil && nt.Index != nil {
			if mat.NormalTexture, err = imp.textureRef(op, &gltf.TextureInfo{Index: *nt.Index, TexCoord: nt.TexCoord}); err != nil {
				return err
			}
			mat.NormalScale = float32(nt.ScaleOrDefault())
		}
		if ot := gm.OcclusionTexture; ot != nil && ot.Index != nil {
			if mat.OcclusionTexture, err = imp.textureRef(op, &gltf.TextureInfo{Index: *ot.Index, TexCoord: ot.TexCoord}); err != nil {
				return err
			}
			mat.OcclusionStrength = float32(ot.StrengthOrDefault())
		}
		if mat.EmissiveTexture, err = imp.textureRef(op, gm.EmissiveTexture); err != nil {
			return err
		}

		imp.m.materials = append(imp.m.materials, mat)
	}
	return nil
}

func (imp *importer) textureRef(op string, ti *gltf.TextureInfo) (*TextureRef, error) {
	if ti == nil {
		return nil, nil
	}
	if err := checkIndex(op, "texture", ti.Index, len(imp.m.textures)); err != nil {
		return nil, err
	}
	return &TextureRef{Texture: imp.m.textures[ti.Index], TexCoord: ti.TexCoord}, nil
}

// accessorView resolves an accessor and, when it has one, its buffer view.
// The view is checked against the source buffer it points into.
func (imp *importer) accessorView(op string, idx int) (*gltf.Accessor, *gltf.BufferView, error) {
	if err := checkIndex(op, "accessor", idx, len(imp.doc.Accessors)); err != nil {
		return nil, nil, err
	}
	acr := imp.doc.Accessors[idx]
	if acr.BufferView == nil {
		return acr, nil, nil
	}
	if err := checkIndex(op, "buffer view", *acr.BufferView, len(imp.doc.BufferViews)); err != nil {
		return nil, nil, err
	}
	bv := imp.doc.BufferViews[*acr.BufferView]
	if err := checkIndex(op, "buffer", bv.Buffer, len(imp.src.Buffers)); err != nil {
		return nil, nil, err
	}
	if end := bv.ByteOffset + bv.ByteLength; end > len(imp.src.Buffers[bv.Buffer]) {
		return nil, nil, parseErrorf(op, "buffer view %d ends at %d, past buffer %d of %d bytes",
			*acr.BufferView, end, bv.Buffer, len(imp.src.Buffers[bv.Buffer]))
	}
	return acr, bv, nil
}
