package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/dreamfield/internal/engine/model"
	"github.com/Faultbox/dreamfield/internal/engine/transform"
)

// Report is everything gltfinfo prints about one imported model.
type Report struct {
	File       string          `json:"file"`
	ID         string          `json:"id"`
	Bounds     *BoundsInfo     `json:"bounds,omitempty"`
	Nodes      []NodeInfo      `json:"nodes"`
	Drawables  []DrawableInfo  `json:"drawables"`
	Lights     []LightInfo     `json:"lights"`
	Skins      []SkinInfo      `json:"skins"`
	Animations []AnimationInfo `json:"animations"`
	Textures   []TextureInfo   `json:"textures"`
}

type BoundsInfo struct {
	Min [3]float32 `json:"min"`
	Max [3]float32 `json:"max"`
}

type NodeInfo struct {
	Index    int        `json:"index"`
	Parent   int        `json:"parent"` // -1 for top-level nodes
	Position [3]float32 `json:"position"`
}

type DrawableInfo struct {
	Name             string  `json:"name"`
	Node             int     `json:"node"`
	Mesh             string  `json:"mesh"`
	Primitives       int     `json:"primitives"`
	Orientation      string  `json:"orientation"`
	Skin             string  `json:"skin,omitempty"`
	LightingStrength float32 `json:"lighting_strength"`
}

type LightInfo struct {
	Name      string     `json:"name"`
	Node      int        `json:"node"`
	Kind      string     `json:"kind"`
	Color     [3]float32 `json:"color"`
	Intensity float32    `json:"intensity"`
}

type SkinInfo struct {
	Name   string `json:"name"`
	Joints int    `json:"joints"`
}

type AnimationInfo struct {
	Name     string  `json:"name"`
	Channels int     `json:"channels"`
	Duration float32 `json:"duration"`
}

type TextureInfo struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	MinFilter string `json:"min_filter"`
	MagFilter string `json:"mag_filter"`
	WrapS     string `json:"wrap_s"`
	WrapT     string `json:"wrap_t"`
	Mipmapped bool   `json:"mipmapped"`
}

// buildReport collects the structure of m in its rest pose.
func buildReport(file string, m *model.Model) Report {
	h := m.Hierarchy()
	index := func(handle transform.Handle) int {
		if i, ok := h.Index(handle); ok {
			return i
		}
		return -1
	}

	r := Report{File: file, ID: m.ID().String()}
	if b := m.Bounds(mgl32.Ident4()); !b.Empty() {
		r.Bounds = &BoundsInfo{Min: b.Min, Max: b.Max}
	}

	for i := range h.Len() {
		handle, ok := h.Lookup(i)
		if !ok {
			continue
		}
		r.Nodes = append(r.Nodes, NodeInfo{
			Index:    i,
			Parent:   index(h.Parent(handle)),
			Position: h.WorldTransform(handle).Col(3).Vec3(),
		})
	}

	for _, d := range m.Drawables() {
		info := DrawableInfo{
			Name:             d.Name,
			Node:             index(d.Node),
			Mesh:             d.Mesh.Name,
			Primitives:       len(d.Mesh.Primitives),
			Orientation:      d.Mesh.Orientation.String(),
			LightingStrength: d.Extras.LightingStrength,
		}
		if d.Skin != nil {
			info.Skin = d.Skin.Name
		}
		r.Drawables = append(r.Drawables, info)
	}

	for _, l := range m.Lights() {
		r.Lights = append(r.Lights, LightInfo{
			Name:      l.Name,
			Node:      index(l.Node),
			Kind:      l.Kind.String(),
			Color:     l.Color,
			Intensity: l.Intensity,
		})
	}

	for _, s := range m.Skins() {
		r.Skins = append(r.Skins, SkinInfo{Name: s.Name, Joints: len(s.Joints)})
	}

	for _, name := range m.AnimationNames() {
		a, _ := m.Animation(name)
		r.Animations = append(r.Animations, AnimationInfo{
			Name:     name,
			Channels: len(a.Channels),
			Duration: a.Duration(),
		})
	}

	for _, t := range m.Textures() {
		r.Textures = append(r.Textures, TextureInfo{
			Index:     t.Index,
			Name:      t.Name,
			Width:     t.Width,
			Height:    t.Height,
			MinFilter: t.Sampler.MinFilter.String(),
			MagFilter: t.Sampler.MagFilter.String(),
			WrapS:     t.Sampler.WrapS.String(),
			WrapT:     t.Sampler.WrapT.String(),
			Mipmapped: t.Mipmapped,
		})
	}
	return r
}

// writeSummary prints counts and bounds.
func writeSummary(w io.Writer, r Report) {
	fmt.Fprintf(w, "File:       %s\n", r.File)
	fmt.Fprintf(w, "Model:      %s\n", r.ID)
	fmt.Fprintf(w, "Nodes:      %d\n", len(r.Nodes))
	fmt.Fprintf(w, "Drawables:  %d\n", len(r.Drawables))
	fmt.Fprintf(w, "Lights:     %d\n", len(r.Lights))
	fmt.Fprintf(w, "Skins:      %d\n", len(r.Skins))
	fmt.Fprintf(w, "Animations: %d\n", len(r.Animations))
	fmt.Fprintf(w, "Textures:   %d\n", len(r.Textures))
	if r.Bounds != nil {
		fmt.Fprintf(w, "Bounds:     %v - %v\n", r.Bounds.Min, r.Bounds.Max)
	}
}

func writeNodes(w io.Writer, r Report) {
	for _, n := range r.Nodes {
		fmt.Fprintf(w, "  #%-4d parent %-4d at %v\n", n.Index, n.Parent, n.Position)
	}
	fmt.Fprintln(w)
	for _, d := range r.Drawables {
		extra := ""
		if d.Skin != "" {
			extra = " skin=" + d.Skin
		}
		fmt.Fprintf(w, "  %-24s node %-4d mesh %-16s %d prim %s light=%.2f%s\n",
			d.Name, d.Node, d.Mesh, d.Primitives, d.Orientation, d.LightingStrength, extra)
	}
}

func writeLights(w io.Writer, r Report) {
	for _, l := range r.Lights {
		fmt.Fprintf(w, "  %-24s node %-4d %-12s color %v intensity %.2f\n", l.Name, l.Node, l.Kind, l.Color, l.Intensity)
	}
	for _, s := range r.Skins {
		fmt.Fprintf(w, "  skin %-19s %d joints\n", s.Name, s.Joints)
	}
}

func writeAnimations(w io.Writer, r Report) {
	for _, a := range r.Animations {
		fmt.Fprintf(w, "  %-24s %3d channels %7.3fs\n", a.Name, a.Channels, a.Duration)
	}
}

func writeTextures(w io.Writer, r Report) {
	for _, t := range r.Textures {
		mip := ""
		if t.Mipmapped {
			mip = " mipmapped"
		}
		fmt.Fprintf(w, "  #%-3d %-20s %4dx%-4d %s/%s %s/%s%s\n", t.Index, t.Name, t.Width, t.Height,
			strings.ToLower(t.MinFilter), strings.ToLower(t.MagFilter), t.WrapS, t.WrapT, mip)
	}
}
