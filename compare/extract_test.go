package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extractTestParams(method Method) Params {
	return Params{
		Method:           method,
		AbsDiffThreshold: 30,
		MorphKernelPx:    3,
		DilateIterations: 1,
		MinAreaPx:        25,
		AddedThreshold:   10,
		RemovedThreshold: 10,
	}
}

func TestExtractRegionsIdenticalPages(t *testing.T) {
	img := whitePage(200, 200)
	fillRect(img, 50, 50, 120, 60, 0)

	for _, m := range []Method{MethodEdges, MethodIntensity} {
		boxes := ExtractRegions(img, img, extractTestParams(m))
		assert.Empty(t, boxes, "method %s", m)
	}
}

func TestExtractRegionsAdded(t *testing.T) {
	oldImg := whitePage(200, 200)
	newImg := whitePage(200, 200)
	fillRect(newImg, 50, 50, 90, 80, 0)

	for _, m := range []Method{MethodEdges, MethodIntensity} {
		boxes := ExtractRegions(oldImg, newImg, extractTestParams(m))
		require.Len(t, boxes, 1, "method %s", m)
		b := boxes[0]
		assert.Equal(t, Added, b.Type)

		// The detected box covers the drawn rectangle, with some
		// morphological margin.
		assert.True(t, b.Contains(Box{X0: 50, Y0: 50, X1: 90, Y1: 80}, 0, 1))
		assert.True(t, Box{X0: 38, Y0: 38, X1: 102, Y1: 92}.Contains(b, 0, 1))
	}
}

func TestExtractRegionsRemoved(t *testing.T) {
	oldImg := whitePage(200, 200)
	newImg := whitePage(200, 200)
	fillRect(oldImg, 120, 40, 160, 100, 0)

	boxes := ExtractRegions(oldImg, newImg, extractTestParams(MethodEdges))
	require.Len(t, boxes, 1)
	assert.Equal(t, Removed, boxes[0].Type)
}

func TestExtractRegionsSeparateChanges(t *testing.T) {
	oldImg := whitePage(300, 300)
	newImg := whitePage(300, 300)
	fillRect(newImg, 20, 20, 60, 50, 0)
	fillRect(oldImg, 200, 200, 250, 260, 0)

	boxes := ExtractRegions(oldImg, newImg, extractTestParams(MethodEdges))
	require.Len(t, boxes, 2)

	var added, removed int
	for _, b := range boxes {
		switch b.Type {
		case Added:
			added++
		case Removed:
			removed++
		}
	}
	assert.Equal(t, 1, added)
	assert.Equal(t, 1, removed)
}

func TestExtractRegionsMinAreaFilter(t *testing.T) {
	oldImg := whitePage(200, 200)
	newImg := whitePage(200, 200)
	fillRect(newImg, 100, 100, 103, 103, 0) // speck

	p := extractTestParams(MethodIntensity)
	p.MinAreaPx = 400

	boxes := ExtractRegions(oldImg, newImg, p)
	assert.Empty(t, boxes)
}

func TestLabelComponents(t *testing.T) {
	m := newBitmask(50, 50)
	for y := 5; y < 15; y++ {
		for x := 5; x < 15; x++ {
			m.pix[y*50+x] = 255
		}
	}
	for y := 30; y < 32; y++ {
		for x := 30; x < 32; x++ {
			m.pix[y*50+x] = 255
		}
	}

	boxes := labelComponents(m, 9)
	require.Len(t, boxes, 1, "the 2x2 component is under the area floor")
	assert.Equal(t, Box{X0: 5, Y0: 5, X1: 15, Y1: 15}, boxes[0])
}
