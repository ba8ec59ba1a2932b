package compare

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// SSIM constants for 8-bit dynamic range.
const (
	ssimC1 = (0.01 * 255) * (0.01 * 255)
	ssimC2 = (0.03 * 255) * (0.03 * 255)

	ssimWindow = 8
)

// SSIM computes a mean structural similarity score between two images
// of identical shape over non-overlapping 8x8 windows. 1.0 means
// structurally identical.
func SSIM(a, b *image.Gray) float64 {
	w := a.Rect.Dx()
	h := a.Rect.Dy()
	if w != b.Rect.Dx() || h != b.Rect.Dy() || w == 0 || h == 0 {
		return 0
	}

	var total float64
	var windows int
	for wy := 0; wy < h; wy += ssimWindow {
		for wx := 0; wx < w; wx += ssimWindow {
			ww := ssimWindow
			wh := ssimWindow
			if wx+ww > w {
				ww = w - wx
			}
			if wy+wh > h {
				wh = h - wy
			}
			total += windowSSIM(a, b, wx, wy, ww, wh)
			windows++
		}
	}
	if windows == 0 {
		return 0
	}
	return total / float64(windows)
}

func windowSSIM(a, b *image.Gray, wx, wy, ww, wh int) float64 {
	n := float64(ww * wh)
	var sumA, sumB float64
	for y := wy; y < wy+wh; y++ {
		for x := wx; x < wx+ww; x++ {
			sumA += float64(a.Pix[y*a.Stride+x])
			sumB += float64(b.Pix[y*b.Stride+x])
		}
	}
	muA := sumA / n
	muB := sumB / n

	var varA, varB, cov float64
	for y := wy; y < wy+wh; y++ {
		for x := wx; x < wx+ww; x++ {
			da := float64(a.Pix[y*a.Stride+x]) - muA
			db := float64(b.Pix[y*b.Stride+x]) - muB
			varA += da * da
			varB += db * db
			cov += da * db
		}
	}
	varA /= n
	varB /= n
	cov /= n

	num := (2*muA*muB + ssimC1) * (2*cov + ssimC2)
	den := (muA*muA + muB*muB + ssimC1) * (varA + varB + ssimC2)
	if den == 0 {
		return 1
	}
	return num / den
}

// pageSimilarity scores two aligned page images on a downscaled copy;
// used for the per-page similarity figure in results.
func pageSimilarity(a, b *image.Gray) float64 {
	smallA, _ := downscaleGray(a, alignWorkingDim)
	smallB, _ := downscaleGray(b, alignWorkingDim)
	if smallA.Rect != smallB.Rect {
		return 0
	}
	return SSIM(smallA, smallB)
}

// patchSimilarity compares the content of boxA in oldImg with boxB in
// newImg, resampling both patches (with a little context padding) to a
// common size first so slightly different box shapes still compare.
func patchSimilarity(oldImg, newImg *image.Gray, boxA, boxB Box) float64 {
	const pad = 4.0
	const patchDim = 64

	pa := cropPatch(oldImg, boxA, pad)
	pb := cropPatch(newImg, boxB, pad)
	if pa == nil || pb == nil {
		return 0
	}

	ra := toGray(imaging.Resize(pa, patchDim, patchDim, imaging.Box))
	rb := toGray(imaging.Resize(pb, patchDim, patchDim, imaging.Box))
	return SSIM(ra, rb)
}

func cropPatch(img *image.Gray, b Box, pad float64) *image.Gray {
	w := img.Rect.Dx()
	h := img.Rect.Dy()
	x0 := clampInt(int(math.Floor(b.X0-pad)), 0, w)
	y0 := clampInt(int(math.Floor(b.Y0-pad)), 0, h)
	x1 := clampInt(int(math.Ceil(b.X1+pad)), 0, w)
	y1 := clampInt(int(math.Ceil(b.Y1+pad)), 0, h)
	if x1 <= x0 || y1 <= y0 {
		return nil
	}
	out := image.NewGray(image.Rect(0, 0, x1-x0, y1-y0))
	for y := y0; y < y1; y++ {
		copy(out.Pix[(y-y0)*out.Stride:(y-y0)*out.Stride+(x1-x0)], img.Pix[y*img.Stride+x0:y*img.Stride+x1])
	}
	return out
}
