// Package transform provides the spatial node tree shared by drawables, skin
// joints, and lights.
//
// Nodes live in an arena owned by a Hierarchy and are addressed by Handle.
// Each node has its own lock; no operation holds more than one node lock at a
// time, so readers and the animation update can interleave freely.
package transform

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Handle addresses a node inside a Hierarchy.
type Handle int32

const (
	// Invalid refers to no node.
	Invalid Handle = -1
	// rootHandle is always the first arena slot.
	rootHandle Handle = 0
)

// Valid reports whether h refers to a node slot.
func (h Handle) Valid() bool {
	return h >= 0
}

var (
	// ErrDuplicateIndex is returned when a source index is inserted twice.
	ErrDuplicateIndex = errors.New("transform: duplicate source index")
	// ErrInvalidHandle is returned for a handle outside the arena.
	ErrInvalidHandle = errors.New("transform: invalid handle")
)

type node struct {
	mu      sync.Mutex
	local   mgl32.Mat4
	world   mgl32.Mat4
	dirty   bool
	version uint64

	// Set at insert time and never changed afterwards.
	parent   Handle
	index    int
	children []Handle
}

// Hierarchy is a single-rooted tree of transform nodes.
type Hierarchy struct {
	mu      sync.RWMutex // guards nodes, byIndex and children slices
	nodes   []*node
	byIndex map[int]Handle
}

// New creates a hierarchy holding only the root node.
func New() *Hierarchy {
	root := &node{
		local:  mgl32.Ident4(),
		world:  mgl32.Ident4(),
		parent: Invalid,
		index:  -1,
	}
	return &Hierarchy{
		nodes:   []*node{root},
		byIndex: make(map[int]Handle),
	}
}

// Root returns the root node handle.
func (h *Hierarchy) Root() Handle {
	return rootHandle
}

// Len returns the number of nodes registered under a source index.
// The root is not counted.
func (h *Hierarchy) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byIndex)
}

// Insert adds a node for the given source index under parent.
func (h *Hierarchy) Insert(index int, parent Handle, local mgl32.Mat4) (Handle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.byIndex[index]; ok {
		return Invalid, fmt.Errorf("%w: %d", ErrDuplicateIndex, index)
	}
	if !h.validLocked(parent) {
		return Invalid, fmt.Errorf("%w: parent %d", ErrInvalidHandle, parent)
	}

	handle := Handle(len(h.nodes))
	h.nodes = append(h.nodes, &node{
		local:  local,
		dirty:  true,
		parent: parent,
		index:  index,
	})
	p := h.nodes[parent]
	p.children = append(p.children, handle)
	h.byIndex[index] = handle
	return handle, nil
}

// Lookup returns the node registered for a source index.
// A missing index is a valid state and reports false.
func (h *Hierarchy) Lookup(index int) (Handle, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	handle, ok := h.byIndex[index]
	return handle, ok
}

// Index returns the source index of a node. The root has none.
func (h *Hierarchy) Index(handle Handle) (int, bool) {
	n := h.node(handle)
	if n == nil || n.index < 0 {
		return 0, false
	}
	return n.index, true
}

// Parent returns the parent of a node, or Invalid for the root.
func (h *Hierarchy) Parent(handle Handle) Handle {
	n := h.node(handle)
	if n == nil {
		return Invalid
	}
	return n.parent
}

// Children returns a copy of the node's child handles.
func (h *Hierarchy) Children(handle Handle) []Handle {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.validLocked(handle) {
		return nil
	}
	return append([]Handle(nil), h.nodes[handle].children...)
}

// Local returns the node's local transform.
func (h *Hierarchy) Local(handle Handle) mgl32.Mat4 {
	n := h.node(handle)
	if n == nil {
		return mgl32.Ident4()
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.local
}

// SetLocal replaces a node's local transform and invalidates the cached
// world transform of the node and all of its descendants.
func (h *Hierarchy) SetLocal(handle Handle, m mgl32.Mat4) {
	n := h.node(handle)
	if n == nil {
		return
	}
	n.mu.Lock()
	n.local = m
	n.dirty = true
	n.version++
	n.mu.Unlock()

	h.invalidateSubtree(handle)
}

// SetRootTransform sets the local transform of the root node.
func (h *Hierarchy) SetRootTransform(m mgl32.Mat4) {
	h.SetLocal(rootHandle, m)
}

// WorldTransform returns parent.WorldTransform() * local, recomputing lazily.
// Only ancestors that are dirty are visited.
func (h *Hierarchy) WorldTransform(handle Handle) mgl32.Mat4 {
	n := h.node(handle)
	if n == nil {
		return mgl32.Ident4()
	}

	n.mu.Lock()
	if !n.dirty {
		w := n.world
		n.mu.Unlock()
		return w
	}
	local, version, parent := n.local, n.version, n.parent
	n.mu.Unlock()

	world := local
	if parent.Valid() {
		world = h.WorldTransform(parent).Mul4(local)
	}

	// A SetLocal on this node or an ancestor since the snapshot bumped the
	// version; the stale result is returned but not cached.
	n.mu.Lock()
	if n.version == version {
		n.world = world
		n.dirty = false
	}
	n.mu.Unlock()
	return world
}

// invalidateSubtree marks every descendant of handle dirty, one node lock at a time.
func (h *Hierarchy) invalidateSubtree(handle Handle) {
	h.mu.RLock()
	stack := append([]Handle(nil), h.nodes[handle].children...)
	h.mu.RUnlock()

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		h.mu.RLock()
		n := h.nodes[top]
		stack = append(stack, n.children...)
		h.mu.RUnlock()

		n.mu.Lock()
		n.dirty = true
		n.version++
		n.mu.Unlock()
	}
}

func (h *Hierarchy) node(handle Handle) *node {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.validLocked(handle) {
		return nil
	}
	return h.nodes[handle]
}

func (h *Hierarchy) validLocked(handle Handle) bool {
	return handle >= 0 && int(handle) < len(h.nodes)
}
