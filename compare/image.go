package compare

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
)

// inkThreshold separates ink from paper in an 8-bit grayscale page
// image: pixels darker than this count as drawn content.
const inkThreshold = 200

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// shiftGray translates img by (dx, dy) pixels, filling exposed borders
// with white.
func shiftGray(img *image.Gray, dx, dy int) *image.Gray {
	w := img.Rect.Dx()
	h := img.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for i := range out.Pix {
		out.Pix[i] = 255
	}
	for y := 0; y < h; y++ {
		sy := y - dy
		if sy < 0 || sy >= h {
			continue
		}
		for x := 0; x < w; x++ {
			sx := x - dx
			if sx < 0 || sx >= w {
				continue
			}
			out.Pix[y*out.Stride+x] = img.Pix[sy*img.Stride+sx]
		}
	}
	return out
}

// downscaleGray resizes img so its longest side is at most maxDim,
// returning the resized image and the applied scale factor (<= 1).
func downscaleGray(img *image.Gray, maxDim int) (*image.Gray, float64) {
	w := img.Rect.Dx()
	h := img.Rect.Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= maxDim {
		return img, 1
	}
	scale := float64(maxDim) / float64(longest)
	nw := int(math.Round(float64(w) * scale))
	nh := int(math.Round(float64(h) * scale))
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return toGray(imaging.Resize(img, nw, nh, imaging.Box)), scale
}

// blurGray applies a Gaussian blur.
func blurGray(img *image.Gray, sigma float64) *image.Gray {
	if sigma <= 0 {
		return img
	}
	return toGray(imaging.Blur(img, sigma))
}

// rotateGray rotates img by angle degrees around its center on a white
// background and crops back to the original dimensions.
func rotateGray(img *image.Gray, angle float64) *image.Gray {
	w := img.Rect.Dx()
	h := img.Rect.Dy()
	rotated := imaging.Rotate(img, angle, color.White)
	return toGray(imaging.CropCenter(rotated, w, h))
}

// letterboxGray scales img by scale and pastes it centered onto a
// white canvas of canvasW x canvasH pixels.
func letterboxGray(img *image.Gray, scale float64, canvasW, canvasH int) *image.Gray {
	canvas := imaging.New(canvasW, canvasH, color.White)
	scaled := image.Image(img)
	sw := img.Rect.Dx()
	sh := img.Rect.Dy()
	if scale != 1 {
		sw = int(math.Round(float64(sw) * scale))
		sh = int(math.Round(float64(sh) * scale))
		if sw < 1 {
			sw = 1
		}
		if sh < 1 {
			sh = 1
		}
		scaled = imaging.Resize(img, sw, sh, imaging.Lanczos)
	}
	offX := (canvasW - sw) / 2
	offY := (canvasH - sh) / 2
	return toGray(imaging.Paste(canvas, scaled, image.Pt(offX, offY)))
}

// inkBounds returns the bounding box of all ink pixels, or ok=false
// for a blank image.
func inkBounds(img *image.Gray) (Box, bool) {
	w := img.Rect.Dx()
	h := img.Rect.Dy()
	minX, minY := w, h
	maxX, maxY := -1, -1
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		for x, v := range row {
			if v < inkThreshold {
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}
	if maxX < 0 {
		return Box{}, false
	}
	return Box{X0: float64(minX), Y0: float64(minY), X1: float64(maxX + 1), Y1: float64(maxY + 1)}, true
}

// countInk returns the number of ink pixels inside the clipped box.
func countInk(img *image.Gray, b Box) int {
	w := img.Rect.Dx()
	h := img.Rect.Dy()
	x0 := clampInt(int(math.Floor(b.X0)), 0, w)
	x1 := clampInt(int(math.Ceil(b.X1)), 0, w)
	y0 := clampInt(int(math.Floor(b.Y0)), 0, h)
	y1 := clampInt(int(math.Ceil(b.Y1)), 0, h)
	count := 0
	for y := y0; y < y1; y++ {
		row := img.Pix[y*img.Stride+x0 : y*img.Stride+x1]
		for _, v := range row {
			if v < inkThreshold {
				count++
			}
		}
	}
	return count
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// meanAbsDiff computes the mean absolute intensity difference over a
// sparse sample grid; stride trades accuracy for speed.
func meanAbsDiff(a, b *image.Gray, stride int) float64 {
	w := a.Rect.Dx()
	h := a.Rect.Dy()
	if stride < 1 {
		stride = 1
	}
	var sum, n float64
	for y := 0; y < h; y += stride {
		for x := 0; x < w; x += stride {
			d := int(a.Pix[y*a.Stride+x]) - int(b.Pix[y*b.Stride+x])
			if d < 0 {
				d = -d
			}
			sum += float64(d)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / n
}
