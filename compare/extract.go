package compare

import "image"

// bitmask is a binary image: 0 or 255 per pixel, row-major.
type bitmask struct {
	w, h int
	pix  []uint8
}

func newBitmask(w, h int) *bitmask {
	return &bitmask{w: w, h: h, pix: make([]uint8, w*h)}
}

// ExtractRegions turns two aligned grayscale images into raw candidate
// boxes. The difference mask is built either from dilated edge maps
// (MethodEdges) or from blurred intensity differences, cleaned with a
// morphological close, dilated and eroded, and decomposed into
// connected components. Each surviving component is classified Added
// or Removed by comparing ink counts within its footprint; components
// whose ink balance is statistically indistinguishable between the two
// revisions are resampling noise and get dropped.
func ExtractRegions(oldImg, newImg *image.Gray, p Params) []Box {
	var diff *bitmask
	if p.Method == MethodIntensity {
		diff = intensityMask(oldImg, newImg, p.AbsDiffThreshold)
	} else {
		diff = edgeMask(oldImg, newImg, p.AbsDiffThreshold)
	}

	if k := p.MorphKernelPx; k > 1 {
		// Close small gaps so one visual change stays one component.
		diff = dilate(diff, k)
		diff = erode(diff, k)
	}
	for i := 0; i < p.DilateIterations; i++ {
		diff = dilate(diff, 3)
	}
	diff = erode(diff, 3)

	components := labelComponents(diff, p.MinAreaPx)

	boxes := make([]Box, 0, len(components))
	for _, b := range components {
		oldInk := countInk(oldImg, b)
		newInk := countInk(newImg, b)
		if oldInk == 0 && newInk == 0 {
			continue
		}
		delta := newInk - oldInk
		switch {
		case oldInk == 0:
			b.Type = Added
		case newInk == 0:
			b.Type = Removed
		case delta >= p.AddedThreshold:
			b.Type = Added
		case -delta >= p.RemovedThreshold:
			b.Type = Removed
		default:
			// Both sides inked with no clear winner: resampling
			// noise, not a change.
			continue
		}
		boxes = append(boxes, b)
	}
	return boxes
}

// intensityMask blurs both images and thresholds their absolute
// difference.
func intensityMask(a, b *image.Gray, threshold int) *bitmask {
	ab := blurGray(a, 1.2)
	bb := blurGray(b, 1.2)
	w := ab.Rect.Dx()
	h := ab.Rect.Dy()
	out := newBitmask(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := int(ab.Pix[y*ab.Stride+x]) - int(bb.Pix[y*bb.Stride+x])
			if d < 0 {
				d = -d
			}
			if d > threshold {
				out.pix[y*w+x] = 255
			}
		}
	}
	return out
}

// edgeMask XORs the slightly dilated edge maps of both images,
// isolating linework that appeared or vanished while tolerating
// anti-aliasing noise along unchanged strokes.
func edgeMask(a, b *image.Gray, threshold int) *bitmask {
	ea := dilate(sobel(a, threshold), 3)
	eb := dilate(sobel(b, threshold), 3)
	out := newBitmask(ea.w, ea.h)
	for i := range out.pix {
		if (ea.pix[i] != 0) != (eb.pix[i] != 0) {
			out.pix[i] = 255
		}
	}
	return out
}

// sobel thresholds the gradient magnitude of img into a binary edge
// map.
func sobel(img *image.Gray, threshold int) *bitmask {
	w := img.Rect.Dx()
	h := img.Rect.Dy()
	out := newBitmask(w, h)
	if threshold < 1 {
		threshold = 1
	}
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			p := func(dx, dy int) int {
				return int(img.Pix[(y+dy)*img.Stride+x+dx])
			}
			gx := -p(-1, -1) - 2*p(-1, 0) - p(-1, 1) + p(1, -1) + 2*p(1, 0) + p(1, 1)
			gy := -p(-1, -1) - 2*p(0, -1) - p(1, -1) + p(-1, 1) + 2*p(0, 1) + p(1, 1)
			if gx < 0 {
				gx = -gx
			}
			if gy < 0 {
				gy = -gy
			}
			if gx+gy > threshold*4 {
				out.pix[y*w+x] = 255
			}
		}
	}
	return out
}

// dilate grows set pixels with a k x k square structuring element,
// applied separably (run-max per row, then per column).
func dilate(m *bitmask, k int) *bitmask {
	if k <= 1 {
		return m
	}
	r := k / 2
	tmp := newBitmask(m.w, m.h)
	for y := 0; y < m.h; y++ {
		row := m.pix[y*m.w : (y+1)*m.w]
		for x := 0; x < m.w; x++ {
			lo := clampInt(x-r, 0, m.w-1)
			hi := clampInt(x+r, 0, m.w-1)
			for i := lo; i <= hi; i++ {
				if row[i] != 0 {
					tmp.pix[y*m.w+x] = 255
					break
				}
			}
		}
	}
	out := newBitmask(m.w, m.h)
	for x := 0; x < m.w; x++ {
		for y := 0; y < m.h; y++ {
			lo := clampInt(y-r, 0, m.h-1)
			hi := clampInt(y+r, 0, m.h-1)
			for i := lo; i <= hi; i++ {
				if tmp.pix[i*m.w+x] != 0 {
					out.pix[y*m.w+x] = 255
					break
				}
			}
		}
	}
	return out
}

// erode shrinks set pixels with a k x k square structuring element.
func erode(m *bitmask, k int) *bitmask {
	if k <= 1 {
		return m
	}
	r := k / 2
	tmp := newBitmask(m.w, m.h)
	for y := 0; y < m.h; y++ {
		row := m.pix[y*m.w : (y+1)*m.w]
		for x := 0; x < m.w; x++ {
			lo := clampInt(x-r, 0, m.w-1)
			hi := clampInt(x+r, 0, m.w-1)
			v := uint8(255)
			for i := lo; i <= hi; i++ {
				if row[i] == 0 {
					v = 0
					break
				}
			}
			tmp.pix[y*m.w+x] = v
		}
	}
	out := newBitmask(m.w, m.h)
	for x := 0; x < m.w; x++ {
		for y := 0; y < m.h; y++ {
			lo := clampInt(y-r, 0, m.h-1)
			hi := clampInt(y+r, 0, m.h-1)
			v := uint8(255)
			for i := lo; i <= hi; i++ {
				if tmp.pix[i*m.w+x] == 0 {
					v = 0
					break
				}
			}
			out.pix[y*m.w+x] = v
		}
	}
	return out
}

// labelComponents extracts the bounding boxes of 8-connected
// components whose bounding area is at least minArea pixels.
func labelComponents(m *bitmask, minArea int) []Box {
	visited := make([]bool, len(m.pix))
	var boxes []Box
	stack := make([]int, 0, 1024)

	for start, v := range m.pix {
		if v == 0 || visited[start] {
			continue
		}
		minX, minY := m.w, m.h
		maxX, maxY := -1, -1
		stack = append(stack[:0], start)
		visited[start] = true
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			cy := idx / m.w
			cx := idx % m.w
			if cx < minX {
				minX = cx
			}
			if cx > maxX {
				maxX = cx
			}
			if cy < minY {
				minY = cy
			}
			if cy > maxY {
				maxY = cy
			}
			for dy := -1; dy <= 1; dy++ {
				ny := cy + dy
				if ny < 0 || ny >= m.h {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					nx := cx + dx
					if nx < 0 || nx >= m.w {
						continue
					}
					nidx := ny*m.w + nx
					if m.pix[nidx] != 0 && !visited[nidx] {
						visited[nidx] = true
						stack = append(stack, nidx)
					}
				}
			}
		}
		if (maxX-minX+1)*(maxY-minY+1) >= minArea {
			boxes = append(boxes, Box{
				X0: float64(minX), Y0: float64(minY),
				X1: float64(maxX + 1), Y1: float64(maxY + 1),
			})
		}
	}
	return boxes
}
