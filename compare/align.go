package compare

import (
	"fmt"
	"image"
	"math"
	"math/cmplx"
)

const (
	// alignWorkingDim bounds the image size used for the frequency-
	// domain translation estimate; the estimate is refined at full
	// resolution afterwards.
	alignWorkingDim = 512

	// rotationImprovementMin is the relative score improvement a
	// candidate rotation must achieve before it is applied. Below
	// this the refinement result is considered noise and the
	// translation-only alignment is kept.
	rotationImprovementMin = 0.03

	scoreSampleStride = 2
)

// AlignImages estimates and applies the translation (and, when it
// clearly helps, a small rotation) that lines the new image up with
// the old one. Both images must have identical pixel dimensions; pages
// of differing sizes must be letterboxed onto a shared canvas first.
//
// The primary estimate is phase correlation on a downscaled working
// copy, refined by a local full-resolution search. The rotation
// refinement is best-effort: when it fails to improve the registration
// it falls back silently to the translation-only result.
func AlignImages(oldImg, newImg *image.Gray) (*image.Gray, *image.Gray, AlignTransform, error) {
	if oldImg.Rect.Dx() != newImg.Rect.Dx() || oldImg.Rect.Dy() != newImg.Rect.Dy() {
		return nil, nil, AlignTransform{}, fmt.Errorf(
			"images must have the same shape for alignment: %dx%d vs %dx%d",
			oldImg.Rect.Dx(), oldImg.Rect.Dy(), newImg.Rect.Dx(), newImg.Rect.Dy())
	}

	smallOld, scale := downscaleGray(oldImg, alignWorkingDim)
	smallNew, _ := downscaleGray(newImg, alignWorkingDim)

	pdx, pdy := phaseCorrelate(smallOld, smallNew)

	// The phase peak fixes the shift magnitude; the sign convention
	// and the sub-sample error from downscaling are resolved by
	// scoring actual candidate shifts at full resolution.
	radius := int(math.Ceil(1/scale)) + 1
	dx, dy := bestShift(oldImg, newImg, []image.Point{
		{X: int(math.Round(float64(pdx) / scale)), Y: int(math.Round(float64(pdy) / scale))},
		{X: -int(math.Round(float64(pdx) / scale)), Y: -int(math.Round(float64(pdy) / scale))},
		{X: 0, Y: 0},
	}, radius)

	alignedNew := newImg
	if dx != 0 || dy != 0 {
		alignedNew = shiftGray(newImg, dx, dy)
	}

	transform := AlignTransform{DX: float64(dx), DY: float64(dy), Scale: 1}

	if angle, ok := refineRotation(oldImg, alignedNew); ok {
		alignedNew = rotateGray(alignedNew, angle)
		transform.Rotation = angle
	}

	return oldImg, alignedNew, transform, nil
}

// bestShift scores candidate translations (each expanded by a search
// radius) against the reference image and returns the winner.
func bestShift(ref, img *image.Gray, seeds []image.Point, radius int) (int, int) {
	bestDx, bestDy := 0, 0
	bestScore := math.Inf(1)
	seen := make(map[image.Point]struct{})
	for _, seed := range seeds {
		for dy := seed.Y - radius; dy <= seed.Y+radius; dy++ {
			for dx := seed.X - radius; dx <= seed.X+radius; dx++ {
				pt := image.Point{X: dx, Y: dy}
				if _, dup := seen[pt]; dup {
					continue
				}
				seen[pt] = struct{}{}
				score := scoreShift(ref, img, dx, dy, scoreSampleStride)
				if score < bestScore {
					bestScore = score
					bestDx, bestDy = dx, dy
				}
			}
		}
	}
	return bestDx, bestDy
}

// scoreShift measures how well img shifted by (dx, dy) matches ref,
// as the mean absolute difference over a sparse sample grid of the
// overlapping area. Lower is better.
func scoreShift(ref, img *image.Gray, dx, dy, stride int) float64 {
	w := ref.Rect.Dx()
	h := ref.Rect.Dy()
	var sum, n float64
	for y := 0; y < h; y += stride {
		sy := y - dy
		if sy < 0 || sy >= h {
			continue
		}
		for x := 0; x < w; x += stride {
			sx := x - dx
			if sx < 0 || sx >= w {
				continue
			}
			d := int(ref.Pix[y*ref.Stride+x]) - int(img.Pix[sy*img.Stride+sx])
			if d < 0 {
				d = -d
			}
			sum += float64(d)
			n++
		}
	}
	if n < 64 {
		// Overlap too small to be meaningful.
		return math.Inf(1)
	}
	return sum / n
}

// refineRotation searches a fixed set of small angles on downscaled
// copies and reports the best one, but only when it beats the
// unrotated score by a clear margin. Bounded by construction; never
// fails upward.
func refineRotation(ref, img *image.Gray) (float64, bool) {
	smallRef, _ := downscaleGray(ref, alignWorkingDim)
	smallImg, _ := downscaleGray(img, alignWorkingDim)

	base := meanAbsDiff(smallRef, smallImg, 1)
	if base == 0 {
		return 0, false
	}

	bestAngle := 0.0
	bestScore := base
	for _, angle := range []float64{-1.0, -0.5, -0.25, 0.25, 0.5, 1.0} {
		score := meanAbsDiff(smallRef, rotateGray(smallImg, angle), 1)
		if score < bestScore {
			bestScore = score
			bestAngle = angle
		}
	}
	if bestAngle == 0 || (base-bestScore)/base < rotationImprovementMin {
		return 0, false
	}
	return bestAngle, true
}

// phaseCorrelate estimates the translation between two images of equal
// shape via the cross-power spectrum. The returned shift is in the
// (downscaled) input's pixel units and may be of either sign
// convention; callers disambiguate by scoring.
func phaseCorrelate(a, b *image.Gray) (int, int) {
	w := nextPow2(a.Rect.Dx())
	h := nextPow2(a.Rect.Dy())

	fa := grayToComplex(a, w, h)
	fb := grayToComplex(b, w, h)
	fft2(fa, w, h, false)
	fft2(fb, w, h, false)

	for i := range fa {
		r := fa[i] * cmplx.Conj(fb[i])
		mag := cmplx.Abs(r)
		fa[i] = r / complex(mag+1e-8, 0)
	}
	fft2(fa, w, h, true)

	maxIdx := 0
	maxVal := 0.0
	for i, v := range fa {
		if abs := cmplx.Abs(v); abs > maxVal {
			maxVal = abs
			maxIdx = i
		}
	}
	dy := maxIdx / w
	dx := maxIdx % w
	if dy > h/2 {
		dy -= h
	}
	if dx > w/2 {
		dx -= w
	}
	return dx, dy
}

// grayToComplex copies img into a zero-padded w x h complex grid with
// the mean removed, so the padding does not masquerade as signal.
func grayToComplex(img *image.Gray, w, h int) []complex128 {
	iw := img.Rect.Dx()
	ih := img.Rect.Dy()
	var sum float64
	for y := 0; y < ih; y++ {
		for x := 0; x < iw; x++ {
			sum += float64(img.Pix[y*img.Stride+x])
		}
	}
	mean := sum / float64(iw*ih)

	out := make([]complex128, w*h)
	for y := 0; y < ih; y++ {
		for x := 0; x < iw; x++ {
			out[y*w+x] = complex(float64(img.Pix[y*img.Stride+x])-mean, 0)
		}
	}
	return out
}

// fft2 performs an in-place 2D FFT (or inverse) over a w x h grid
// stored row-major. Both dimensions must be powers of two.
func fft2(data []complex128, w, h int, inverse bool) {
	row := make([]complex128, w)
	for y := 0; y < h; y++ {
		copy(row, data[y*w:(y+1)*w])
		fft(row, inverse)
		copy(data[y*w:(y+1)*w], row)
	}
	col := make([]complex128, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = data[y*w+x]
		}
		fft(col, inverse)
		for y := 0; y < h; y++ {
			data[y*w+x] = col[y]
		}
	}
}

// fft is an iterative in-place radix-2 Cooley-Tukey transform.
func fft(data []complex128, inverse bool) {
	n := len(data)
	if n <= 1 {
		return
	}

	// Bit-reversal permutation.
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			data[i], data[j] = data[j], data[i]
		}
	}

	for length := 2; length <= n; length <<= 1 {
		angle := 2 * math.Pi / float64(length)
		if !inverse {
			angle = -angle
		}
		wl := cmplx.Rect(1, angle)
		for start := 0; start < n; start += length {
			w := complex(1, 0)
			for k := 0; k < length/2; k++ {
				u := data[start+k]
				v := data[start+k+length/2] * w
				data[start+k] = u + v
				data[start+k+length/2] = u - v
				w *= wl
			}
		}
	}

	if inverse {
		inv := complex(1/float64(n), 0)
		for i := range data {
			data[i] *= inv
		}
	}
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
