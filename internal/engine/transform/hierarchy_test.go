package transform

import (
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertMat(t *testing.T, want, got mgl32.Mat4) {
	t.Helper()
	assert.True(t, want.ApproxEqualThreshold(got, 1e-5), "want %v\n got %v", want, got)
}

// chain builds root -> 0 -> 1 -> 2 with unit translations along X.
func chain(t *testing.T) (*Hierarchy, []Handle) {
	t.Helper()
	h := New()
	parent := h.Root()
	var handles []Handle
	for i := 0; i < 3; i++ {
		hd, err := h.Insert(i, parent, mgl32.Translate3D(1, 0, 0))
		require.NoError(t, err)
		handles = append(handles, hd)
		parent = hd
	}
	return h, handles
}

func TestNewHasIdentityRoot(t *testing.T) {
	h := New()
	assert.Equal(t, 0, h.Len())
	assert.Equal(t, Invalid, h.Parent(h.Root()))
	assertMat(t, mgl32.Ident4(), h.WorldTransform(h.Root()))
	_, ok := h.Index(h.Root())
	assert.False(t, ok)
}

func TestInsertAndLookup(t *testing.T) {
	h, handles := chain(t)
	assert.Equal(t, 3, h.Len())

	for i, want := range handles {
		got, ok := h.Lookup(i)
		require.True(t, ok)
		assert.Equal(t, want, got)
		idx, ok := h.Index(got)
		require.True(t, ok)
		assert.Equal(t, i, idx)
	}

	_, ok := h.Lookup(42)
	assert.False(t, ok, "missing index is absent, not an error")

	assert.Equal(t, h.Root(), h.Parent(handles[0]))
	assert.Equal(t, handles[0], h.Parent(handles[1]))
	assert.Equal(t, []Handle{handles[1]}, h.Children(handles[0]))
}

func TestInsertRejectsDuplicatesAndBadParents(t *testing.T) {
	h := New()
	_, err := h.Insert(0, h.Root(), mgl32.Ident4())
	require.NoError(t, err)

	_, err = h.Insert(0, h.Root(), mgl32.Ident4())
	assert.ErrorIs(t, err, ErrDuplicateIndex)

	_, err = h.Insert(1, Handle(99), mgl32.Ident4())
	assert.ErrorIs(t, err, ErrInvalidHandle)
	_, err = h.Insert(2, Invalid, mgl32.Ident4())
	assert.ErrorIs(t, err, ErrInvalidHandle)
}

func TestWorldTransformComposesParentChain(t *testing.T) {
	h, handles := chain(t)
	assertMat(t, mgl32.Translate3D(3, 0, 0), h.WorldTransform(handles[2]))
	assertMat(t, mgl32.Translate3D(1, 0, 0), h.WorldTransform(handles[0]))
}

func TestSetLocalInvalidatesSubtree(t *testing.T) {
	h, handles := chain(t)
	// Warm the caches.
	for _, hd := range handles {
		h.WorldTransform(hd)
	}

	h.SetLocal(handles[0], mgl32.Translate3D(0, 5, 0))
	assertMat(t, mgl32.Translate3D(2, 5, 0), h.WorldTransform(handles[2]))
	assertMat(t, mgl32.Translate3D(1, 5, 0), h.WorldTransform(handles[1]))

	h.SetLocal(handles[2], mgl32.Scale3D(2, 2, 2))
	want := mgl32.Translate3D(1, 5, 0).Mul4(mgl32.Scale3D(2, 2, 2))
	assertMat(t, want, h.WorldTransform(handles[2]))
	assertMat(t, mgl32.Translate3D(0, 5, 0), h.Local(handles[0]))
}

func TestWorldEqualsParentWorldTimesLocal(t *testing.T) {
	h := New()
	a, _ := h.Insert(0, h.Root(), mgl32.Translate3D(1, 2, 3))
	b, _ := h.Insert(1, a, mgl32.HomogRotate3DY(0.5))
	c, _ := h.Insert(2, b, mgl32.Scale3D(1, 2, 1))
	d, _ := h.Insert(3, a, mgl32.Translate3D(0, -1, 0))

	edits := []struct {
		node Handle
		m    mgl32.Mat4
	}{
		{a, mgl32.Translate3D(4, 0, 0)},
		{c, mgl32.HomogRotate3DX(1)},
		{h.Root(), mgl32.Scale3D(3, 3, 3)},
		{b, mgl32.Translate3D(0, 0, 7)},
		{d, mgl32.Ident4()},
	}
	for _, e := range edits {
		h.SetLocal(e.node, e.m)
		for _, n := range []Handle{a, b, c, d} {
			want := h.WorldTransform(h.Parent(n)).Mul4(h.Local(n))
			assertMat(t, want, h.WorldTransform(n))
		}
	}
}

func TestSetRootTransform(t *testing.T) {
	h, handles := chain(t)
	m := mgl32.Translate3D(0, 2, 0).Mul4(mgl32.HomogRotate3DZ(0.25))
	h.SetRootTransform(m)
	assertMat(t, m, h.WorldTransform(h.Root()))
	assertMat(t, m.Mul4(mgl32.Translate3D(3, 0, 0)), h.WorldTransform(handles[2]))
}

func TestInvalidHandlesAreHarmless(t *testing.T) {
	h := New()
	assertMat(t, mgl32.Ident4(), h.WorldTransform(Handle(7)))
	assertMat(t, mgl32.Ident4(), h.Local(Invalid))
	h.SetLocal(Handle(7), mgl32.Translate3D(1, 1, 1))
	assert.Equal(t, Invalid, h.Parent(Handle(7)))
	assert.Nil(t, h.Children(Invalid))
}

func TestConcurrentWritersAndReaders(t *testing.T) {
	h, handles := chain(t)
	leaf := handles[2]

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				h.SetLocal(handles[i%2], mgl32.Translate3D(float32(w), float32(i), 0))
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				m := h.WorldTransform(leaf)
				// Every written local is a pure translation, so the
				// rotation block must stay identity.
				assert.InDelta(t, 1, m[0], 1e-6)
				assert.InDelta(t, 1, m[5], 1e-6)
				assert.InDelta(t, 1, m[10], 1e-6)
			}
		}()
	}
	wg.Wait()

	// Once quiet, the cache must agree with a fresh composition.
	want := h.Local(handles[0]).Mul4(h.Local(handles[1])).Mul4(h.Local(handles[2]))
	assertMat(t, want, h.WorldTransform(leaf))
}
