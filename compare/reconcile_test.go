package compare

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reconcileTestParams() Params {
	return Params{
		MinAreaPx:        50,
		PaddingPx:        2,
		MergeIoU:         0.2,
		TouchGapPx:       3,
		ContainmentEpsPx: 1,
	}
}

func TestReconcileContainment(t *testing.T) {
	p := reconcileTestParams()
	boxes := []Box{
		{X0: 0, Y0: 0, X1: 100, Y1: 100, Type: Added},
		{X0: 10, Y0: 10, X1: 30, Y1: 30, Type: Added},
		{X0: 40, Y0: 40, X1: 60, Y1: 90, Type: Added},
	}

	out := Reconcile(boxes, p)
	require.Len(t, out, 1)
	assert.Equal(t, Box{X0: 0, Y0: 0, X1: 100, Y1: 100, Type: Added}, out[0])
}

func TestReconcileMergesTouching(t *testing.T) {
	p := reconcileTestParams()
	boxes := []Box{
		{X0: 0, Y0: 0, X1: 20, Y1: 20, Type: Removed},
		{X0: 22, Y0: 0, X1: 42, Y1: 20, Type: Removed}, // gap 2 <= TouchGapPx
	}

	out := Reconcile(boxes, p)
	require.Len(t, out, 1)
	assert.Equal(t, Box{X0: 0, Y0: 0, X1: 42, Y1: 20, Type: Removed}, out[0])
}

func TestReconcileKeepsDistantBoxes(t *testing.T) {
	p := reconcileTestParams()
	boxes := []Box{
		{X0: 0, Y0: 0, X1: 20, Y1: 20, Type: Added},
		{X0: 60, Y0: 60, X1: 80, Y1: 80, Type: Added},
	}

	out := Reconcile(boxes, p)
	assert.Len(t, out, 2)
}

func TestReconcileNeverMergesAcrossTypes(t *testing.T) {
	p := reconcileTestParams()
	boxes := []Box{
		{X0: 0, Y0: 0, X1: 20, Y1: 20, Type: Added},
		{X0: 5, Y0: 5, X1: 25, Y1: 25, Type: Removed},
	}

	out := Reconcile(boxes, p)
	assert.Len(t, out, 2)
}

func TestReconcileAreaFloorAfterMerge(t *testing.T) {
	p := reconcileTestParams()
	p.MinAreaPx = 2000

	// Union of the pair is 42x20 = 840, still under the floor.
	boxes := []Box{
		{X0: 0, Y0: 0, X1: 20, Y1: 20, Type: Added},
		{X0: 22, Y0: 0, X1: 42, Y1: 20, Type: Added},
	}

	out := Reconcile(boxes, p)
	assert.Empty(t, out)
}

func TestReconcileDropsMalformed(t *testing.T) {
	p := reconcileTestParams()
	boxes := []Box{
		{X0: math.NaN(), Y0: 0, X1: 10, Y1: 10, Type: Added},
		{X0: 50, Y0: 50, X1: 40, Y1: 60, Type: Added}, // inverted
		{X0: 0, Y0: 0, X1: 30, Y1: 30, Type: Added},
	}

	out := Reconcile(boxes, p)
	require.Len(t, out, 1)
	assert.Equal(t, 30.0, out[0].X1)
}

func TestReconcileIdempotent(t *testing.T) {
	p := reconcileTestParams()
	boxes := []Box{
		{X0: 0, Y0: 0, X1: 100, Y1: 100, Type: Added},
		{X0: 10, Y0: 10, X1: 30, Y1: 30, Type: Added},
		{X0: 101, Y0: 0, X1: 130, Y1: 20, Type: Added},
		{X0: 0, Y0: 0, X1: 40, Y1: 40, Type: Removed},
	}

	once := Reconcile(boxes, p)
	twice := Reconcile(once, p)
	assert.Equal(t, once, twice)
}

func TestSuppressUnchangedPairs(t *testing.T) {
	removed := []Box{
		{X0: 10, Y0: 10, X1: 50, Y1: 50, Type: Removed},
		{X0: 200, Y0: 200, X1: 240, Y1: 240, Type: Removed},
	}
	added := []Box{
		{X0: 10.5, Y0: 9.8, X1: 50.2, Y1: 50.1, Type: Added}, // same rect within eps
		{X0: 400, Y0: 400, X1: 440, Y1: 440, Type: Added},
	}

	r, a := SuppressUnchangedPairs(removed, added)
	require.Len(t, r, 1)
	require.Len(t, a, 1)
	assert.Equal(t, 200.0, r[0].X0)
	assert.Equal(t, 400.0, a[0].X0)
}

func TestSuppressMovedPairsGeometryOnly(t *testing.T) {
	removed := []Box{{X0: 100, Y0: 100, X1: 140, Y1: 130, Type: Removed}}
	added := []Box{{X0: 105, Y0: 102, X1: 145, Y1: 132, Type: Added}}

	// Without page images the geometric match suffices.
	r, a := SuppressMovedPairs(removed, added, nil, nil)
	assert.Empty(t, r)
	assert.Empty(t, a)
}

func TestSuppressMovedPairsSizeMismatch(t *testing.T) {
	removed := []Box{{X0: 100, Y0: 100, X1: 140, Y1: 130, Type: Removed}}
	added := []Box{{X0: 102, Y0: 102, X1: 200, Y1: 180, Type: Added}}

	r, a := SuppressMovedPairs(removed, added, nil, nil)
	assert.Len(t, r, 1)
	assert.Len(t, a, 1)
}

func TestSuppressMovedPairsChecksPatchContent(t *testing.T) {
	oldImg := whitePage(300, 300)
	newImg := whitePage(300, 300)

	// Same-size boxes a few pixels apart, but with opposite content.
	fillRect(oldImg, 100, 100, 140, 130, 0)
	r := []Box{{X0: 100, Y0: 100, X1: 140, Y1: 130, Type: Removed}}
	a := []Box{{X0: 104, Y0: 103, X1: 144, Y1: 133, Type: Added}}

	keptR, keptA := SuppressMovedPairs(r, a, oldImg, newImg)
	assert.Len(t, keptR, 1, "differing patch content must survive")
	assert.Len(t, keptA, 1)

	// Identical content shifted a few pixels is suppressed.
	fillRect(newImg, 104, 103, 144, 133, 0)
	keptR, keptA = SuppressMovedPairs(r, a, oldImg, newImg)
	assert.Empty(t, keptR)
	assert.Empty(t, keptA)
}
