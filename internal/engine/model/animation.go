package model

import (
	"fmt"
	"sort"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/dreamfield/internal/engine/transform"
)

// Pose is a local transform split into translation, rotation and scale.
type Pose struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3
}

// Mat4 composes T * R * S.
func (p Pose) Mat4() mgl32.Mat4 {
	t := mgl32.Translate3D(p.Translation.Elem())
	s := mgl32.Scale3D(p.Scale.Elem())
	return t.Mul4(p.Rotation.Normalize().Mat4()).Mul4(s)
}

func restPose(n *gltf.Node) Pose {
	t := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	s := n.ScaleOrDefault()
	return Pose{
		Translation: mgl32.Vec3{float32(t[0]), float32(t[1]), float32(t[2])},
		Rotation:    mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}},
		Scale:       mgl32.Vec3{float32(s[0]), float32(s[1]), float32(s[2])},
	}
}

// Path is the node property a channel animates.
type Path int

const (
	PathTranslation Path = iota
	PathRotation
	PathScale
)

func (p Path) String() string {
	switch p {
	case PathRotation:
		return "rotation"
	case PathScale:
		return "scale"
	}
	return "translation"
}

// Interpolation is how a channel blends between keys.
type Interpolation int

const (
	InterpolationLinear Interpolation = iota
	InterpolationStep
	InterpolationCubicSpline
)

func (i Interpolation) String() string {
	switch i {
	case InterpolationStep:
		return "STEP"
	case InterpolationCubicSpline:
		return "CUBICSPLINE"
	}
	return "LINEAR"
}

// Channel is one keyframe track targeting one node property.
type Channel struct {
	Node          transform.Handle
	NodeIndex     int
	Path          Path
	Interpolation Interpolation
	Times         []float32

	// Values holds one entry per key, or three (in-tangent, value,
	// out-tangent) for cubic splines. Rotations are quaternions as
	// (x, y, z, w); translations and scales leave w zero.
	Values []mgl32.Vec4
}

func (c *Channel) key(i int) mgl32.Vec4 {
	if c.Interpolation == InterpolationCubicSpline {
		return c.Values[3*i+1]
	}
	return c.Values[i]
}

// Sample evaluates the channel at time t. Times outside the track clamp to
// the first or last key.
func (c *Channel) Sample(t float32) mgl32.Vec4 {
	n := len(c.Times)
	if n == 0 {
		return mgl32.Vec4{}
	}
	if math32.IsNaN(t) || t <= c.Times[0] {
		return c.key(0)
	}
	if t >= c.Times[n-1] {
		return c.key(n - 1)
	}

	next := sort.Search(n, func(i int) bool { return c.Times[i] > t })
	prev := next - 1
	dt := c.Times[next] - c.Times[prev]
	u := (t - c.Times[prev]) / dt

	switch c.Interpolation {
	case InterpolationStep:
		return c.key(prev)
	case InterpolationCubicSpline:
		v := hermite(c.Values[3*prev+1], c.Values[3*prev+2].Mul(dt), c.Values[3*next+1], c.Values[3*next].Mul(dt), u)
		if c.Path == PathRotation {
			v = v.Normalize()
		}
		return v
	}

	a, b := c.key(prev), c.key(next)
	if c.Path == PathRotation {
		q := mgl32.QuatSlerp(vecQuat(a), vecQuat(b), u)
		return mgl32.Vec4{q.V[0], q.V[1], q.V[2], q.W}
	}
	return a.Add(b.Sub(a).Mul(u))
}

func hermite(p0, m0, p1, m1 mgl32.Vec4, u float32) mgl32.Vec4 {
	u2 := u * u
	u3 := u2 * u
	return p0.Mul(2*u3 - 3*u2 + 1).
		Add(m0.Mul(u3 - 2*u2 + u)).
		Add(p1.Mul(-2*u3 + 3*u2)).
		Add(m1.Mul(u3 - u2))
}

func vecQuat(v mgl32.Vec4) mgl32.Quat {
	return mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}
}

type target struct {
	node     transform.Handle
	rest     Pose
	channels []int
}

// Animation is a named set of channels. Apply writes sampled poses into a
// hierarchy; it is the only writer of animated node transforms.
type Animation struct {
	Name     string
	Channels []Channel

	targets  []target
	duration float32
}

func newAnimation(name string, channels []Channel, rest func(index int) Pose) *Animation {
	a := &Animation{Name: name, Channels: channels}
	byNode := make(map[transform.Handle]int)
	for i, c := range channels {
		ti, ok := byNode[c.Node]
		if !ok {
			ti = len(a.targets)
			byNode[c.Node] = ti
			a.targets = append(a.targets, target{node: c.Node, rest: rest(c.NodeIndex)})
		}
		a.targets[ti].channels = append(a.targets[ti].channels, i)
		if n := len(c.Times); n > 0 {
			a.duration = max(a.duration, c.Times[n-1])
		}
	}
	return a
}

// Duration is the time of the last key across all channels.
func (a *Animation) Duration() float32 { return a.duration }

// Wrap maps a running clock into [0, Duration).
func (a *Animation) Wrap(t float32) float32 {
	if a.duration <= 0 || math32.IsNaN(t) || math32.IsInf(t, 0) {
		return 0
	}
	r := math32.Mod(t, a.duration)
	if r < 0 {
		r += a.duration
	}
	return r
}

// Apply samples every channel at t, starting each targeted node from its
// rest pose, and writes the result with one SetLocal per node.
func (a *Animation) Apply(h *transform.Hierarchy, t float32) {
	for _, tg := range a.targets {
		pose := tg.rest
		for _, ci := range tg.channels {
			c := &a.Channels[ci]
			v := c.Sample(t)
			switch c.Path {
			case PathTranslation:
				pose.Translation = v.Vec3()
			case PathRotation:
				pose.Rotation = vecQuat(v)
			case PathScale:
				pose.Scale = v.Vec3()
			}
		}
		h.SetLocal(tg.node, pose.Mat4())
	}
}

func (imp *importer) loadAnimations() error {
	for i, ga := range imp.doc.Animations {
		op := fmt.Sprintf("load animation %d", i)
		name := ga.Name
		if name == "" {
			name = fmt.Sprintf("animation%d", i)
		}

		var channels []Channel
		for j, gc := range ga.Channels {
			cop := fmt.Sprintf("%s: channel %d", op, j)
			if gc.Target.Node == nil {
				imp.log.Debug("skipping channel without target node", zap.String("op", cop))
				continue
			}
			if gc.Target.Path == gltf.TRSWeights {
				imp.log.Debug("skipping morph weight channel", zap.String("op", cop))
				continue
			}
			if err := checkIndex(cop, "sampler", gc.Sampler, len(ga.Samplers)); err != nil {
				return err
			}
			node := *gc.Target.Node
			h, ok := imp.m.hierarchy.Lookup(node)
			if !ok {
				return referenceErrorf(cop, "target node %d is not in the scene", node)
			}

			c, err := imp.channel(cop, ga.Samplers[gc.Sampler], gc.Target.Path)
			if err != nil {
				return err
			}
			c.Node, c.NodeIndex = h, node
			channels = append(channels, c)
		}

		name, err := imp.animationName(op, name)
		if err != nil {
			return err
		}
		imp.m.animations[name] = newAnimation(name, channels, func(index int) Pose {
			return restPose(imp.doc.Nodes[index])
		})
	}
	return nil
}

func (imp *importer) animationName(op, name string) (string, error) {
	if _, dup := imp.m.animations[name]; !dup {
		return name, nil
	}
	if imp.opts.DuplicateAnimations != DuplicateRename {
		return "", &Error{Kind: KindParse, Op: op, Err: fmt.Errorf("%w %q", ErrDuplicateAnimation, name)}
	}
	for n := 1; ; n++ {
		renamed := fmt.Sprintf("%s.%d", name, n)
		if _, dup := imp.m.animations[renamed]; !dup {
			imp.log.Warn("renamed duplicate animation", zap.String("name", name), zap.String("as", renamed))
			return renamed, nil
		}
	}
}

func (imp *importer) channel(op string, s *gltf.AnimationSampler, path gltf.TRSProperty) (Channel, error) {
	c := Channel{}
	switch path {
	case gltf.TRSRotation:
		c.Path = PathRotation
	case gltf.TRSScale:
		c.Path = PathScale
	}
	switch s.Interpolation {
	case gltf.InterpolationStep:
		c.Interpolation = InterpolationStep
	case gltf.InterpolationCubicSpline:
		c.Interpolation = InterpolationCubicSpline
	}

	times, err := imp.readFloats(op+": input", s.Input, false)
	if err != nil {
		return c, err
	}
	ts, ok := times.([]float32)
	if !ok {
		return c, parseErrorf(op, "key times must be scalar floats, got %T", times)
	}
	if len(ts) == 0 {
		return c, parseErrorf(op, "no keyframes")
	}
	for i := 1; i < len(ts); i++ {
		if ts[i] < ts[i-1] {
			return c, parseErrorf(op, "key time %d decreases", i)
		}
	}
	c.Times = ts

	out, err := imp.readFloats(op+": output", s.Output, c.Path == PathRotation)
	if err != nil {
		return c, err
	}
	switch v := out.(type) {
	case [][3]float32:
		if c.Path == PathRotation {
			return c, parseErrorf(op, "rotation output must be VEC4")
		}
		c.Values = make([]mgl32.Vec4, len(v))
		for i, x := range v {
			c.Values[i] = mgl32.Vec4{x[0], x[1], x[2], 0}
		}
	case [][4]float32:
		if c.Path != PathRotation {
			return c, parseErrorf(op, "%s output must be VEC3", c.Path)
		}
		c.Values = make([]mgl32.Vec4, len(v))
		for i, x := range v {
			c.Values[i] = mgl32.Vec4(x)
		}
	default:
		return c, parseErrorf(op, "unsupported output type %T", out)
	}

	want := len(ts)
	if c.Interpolation == InterpolationCubicSpline {
		want *= 3
	}
	if len(c.Values) != want {
		return c, parseErrorf(op, "%d output values for %d keys", len(c.Values), len(ts))
	}
	return c, nil
}

// readFloats reads a float accessor. With normalized set, normalized
// integer VEC4 accessors are accepted too and converted to floats.
func (imp *importer) readFloats(op string, idx int, normalized bool) (any, error) {
	acr, _, err := imp.accessorView(op, idx)
	if err != nil {
		return nil, err
	}
	quantized := normalized && acr.Normalized && acr.Type == gltf.AccessorVec4
	if acr.ComponentType != gltf.ComponentFloat && !quantized {
		return nil, parseErrorf(op, "accessor %d has component type %s, want FLOAT", idx, acr.ComponentType)
	}
	data, err := modeler.ReadAccessor(imp.doc, acr, nil)
	if err != nil {
		return nil, parseErrorf(op, "reading accessor %d: %v", idx, err)
	}
	if acr.ComponentType == gltf.ComponentFloat {
		return data, nil
	}
	switch v := data.(type) {
	case [][4]int8:
		return denormalize(v, func(c int8) float32 { return max(float32(c)/127, -1) }), nil
	case [][4]uint8:
		return denormalize(v, func(c uint8) float32 { return float32(c) / 255 }), nil
	case [][4]int16:
		return denormalize(v, func(c int16) float32 { return max(float32(c)/32767, -1) }), nil
	case [][4]uint16:
		return denormalize(v, func(c uint16) float32 { return float32(c) / 65535 }), nil
	}
	return nil, parseErrorf(op, "accessor %d has component type %s, want FLOAT or normalized integer", idx, acr.ComponentType)
}

func denormalize[T int8 | uint8 | int16 | uint16](v [][4]T, conv func(T) float32) [][4]float32 {
	out := make([][4]float32, len(v))
	for i, x := range v {
		out[i] = [4]float32{conv(x[0]), conv(x[1]), conv(x[2]), conv(x[3])}
	}
	return out
}
