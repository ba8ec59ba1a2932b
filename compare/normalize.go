package compare

import "math"

// sizeTolerancePts is roughly 1mm; page sizes closer than this are
// treated as equal and skip normalization.
const sizeTolerancePts = 2.85

// PageTransform maps new-page coordinates into old-page space:
// old = new*Scale + (TX, TY). Identity when the pages already share a
// size.
type PageTransform struct {
	Scale float64 `json:"scale"`
	TX    float64 `json:"tx"`
	TY    float64 `json:"ty"`
}

// IsIdentity reports whether the transform leaves coordinates unchanged.
func (t PageTransform) IsIdentity() bool {
	return t.Scale == 1 && t.TX == 0 && t.TY == 0
}

// Apply maps a point from new-page space into old-page space.
func (t PageTransform) Apply(x, y float64) (float64, float64) {
	return x*t.Scale + t.TX, y*t.Scale + t.TY
}

// Invert maps a point from old-page space back into new-page space.
func (t PageTransform) Invert(x, y float64) (float64, float64) {
	return (x - t.TX) / t.Scale, (y - t.TY) / t.Scale
}

// ApplyRect maps a rectangle from new-page space into old-page space.
func (t PageTransform) ApplyRect(r RectPDF) RectPDF {
	x0, y0 := t.Apply(r.X0, r.Y0)
	x1, y1 := t.Apply(r.X1, r.Y1)
	return RectPDF{X0: x0, Y0: y0, X1: x1, Y1: y1}
}

// InvertRect maps a rectangle from old-page space back into new-page
// native coordinates.
func (t PageTransform) InvertRect(r RectPDF) RectPDF {
	x0, y0 := t.Invert(r.X0, r.Y0)
	x1, y1 := t.Invert(r.X1, r.Y1)
	return RectPDF{X0: x0, Y0: y0, X1: x1, Y1: y1}
}

// NormalizePageSizes computes the letterbox transform that scales the
// new page uniformly and centers it within the old page's bounds, so
// that proportionally identical content lands on the same coordinates.
// Pages whose sizes already match within ~1mm get the identity
// transform. A page with zero width or height makes the scale factor
// undefined and yields an InvalidDimensionsError.
func NormalizePageSizes(oldRect, newRect PageRect) (PageTransform, error) {
	if oldRect.Width <= 0 || oldRect.Height <= 0 {
		return PageTransform{}, &InvalidDimensionsError{Width: oldRect.Width, Height: oldRect.Height}
	}
	if newRect.Width <= 0 || newRect.Height <= 0 {
		return PageTransform{}, &InvalidDimensionsError{Width: newRect.Width, Height: newRect.Height}
	}
	if math.Abs(oldRect.Width-newRect.Width) <= sizeTolerancePts &&
		math.Abs(oldRect.Height-newRect.Height) <= sizeTolerancePts {
		return PageTransform{Scale: 1}, nil
	}
	s := math.Min(oldRect.Width/newRect.Width, oldRect.Height/newRect.Height)
	tx := (oldRect.Width - newRect.Width*s) / 2
	ty := (oldRect.Height - newRect.Height*s) / 2
	return PageTransform{Scale: s, TX: tx, TY: ty}, nil
}

// standardPageSizesMM lists common ISO sizes as width x height in
// millimetres.
var standardPageSizesMM = map[string][2]float64{
	"A0": {841, 1189},
	"A1": {594, 841},
	"A2": {420, 594},
	"A3": {297, 420},
	"A4": {210, 297},
	"A5": {148, 210},
	"A6": {105, 148},
}

// StandardSizeLabel returns the ISO label for a page size in points,
// in either orientation, or an empty string for non-standard sizes.
func StandardSizeLabel(widthPt, heightPt float64) string {
	const mmPerPt = 25.4 / 72
	const tolMM = 2.0
	wMM := widthPt * mmPerPt
	hMM := heightPt * mmPerPt
	for label, size := range standardPageSizesMM {
		if math.Abs(wMM-size[0]) <= tolMM && math.Abs(hMM-size[1]) <= tolMM {
			return label
		}
		if math.Abs(wMM-size[1]) <= tolMM && math.Abs(hMM-size[0]) <= tolMM {
			return label
		}
	}
	return ""
}
