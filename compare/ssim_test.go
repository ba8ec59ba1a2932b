package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSSIMIdentical(t *testing.T) {
	img := drawingPage(128, 256)
	assert.InDelta(t, 1.0, SSIM(img, img), 1e-9)
}

func TestSSIMOpposite(t *testing.T) {
	white := whitePage(64, 64)
	black := whitePage(64, 64)
	fillRect(black, 0, 0, 64, 64, 0)

	assert.Less(t, SSIM(white, black), 0.05)
}

func TestSSIMShapeMismatch(t *testing.T) {
	assert.Equal(t, 0.0, SSIM(whitePage(64, 64), whitePage(32, 64)))
}

func TestSSIMOrdering(t *testing.T) {
	base := drawingPage(256, 256)

	slightlyOff := drawingPage(256, 256)
	fillRect(slightlyOff, 220, 220, 240, 240, 0)

	veryOff := whitePage(256, 256)

	simSlight := SSIM(base, slightlyOff)
	simVery := SSIM(base, veryOff)
	assert.Greater(t, simSlight, simVery)
	assert.Greater(t, simSlight, 0.8)
}

func TestPatchSimilarity(t *testing.T) {
	oldImg := whitePage(200, 200)
	newImg := whitePage(200, 200)
	fillRect(oldImg, 50, 50, 90, 80, 0)
	fillRect(newImg, 55, 52, 95, 82, 0)

	same := patchSimilarity(oldImg, newImg,
		Box{X0: 50, Y0: 50, X1: 90, Y1: 80},
		Box{X0: 55, Y0: 52, X1: 95, Y1: 82})
	assert.Greater(t, same, 0.9, "identical content in shifted boxes")

	different := patchSimilarity(oldImg, newImg,
		Box{X0: 50, Y0: 50, X1: 90, Y1: 80},
		Box{X0: 150, Y0: 150, X1: 190, Y1: 180})
	assert.Less(t, different, 0.5, "black patch vs blank area")
}
