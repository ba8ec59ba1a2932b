package compare

import "compareset/internal/constants"

// ToPDFRect converts a pixel-space box into a PDF-point rectangle,
// clipped to the page so annotations never extend past the physical
// sheet. scale = 72/dpi; pixel (0,0) maps to the page's top-left
// corner. X carries the MediaBox x origin so it lands in user space;
// Y stays measured downward from the top edge.
func ToPDFRect(b Box, dpi float64, page PageRect) RectPDF {
	scale := constants.PointsPerInch / dpi
	r := RectPDF{
		X0: page.OriginX + b.X0*scale,
		Y0: b.Y0 * scale,
		X1: page.OriginX + b.X1*scale,
		Y1: b.Y1 * scale,
	}
	if r.X0 < page.OriginX {
		r.X0 = page.OriginX
	}
	if r.Y0 < 0 {
		r.Y0 = 0
	}
	if r.X1 > page.OriginX+page.Width {
		r.X1 = page.OriginX + page.Width
	}
	if r.Y1 > page.Height {
		r.Y1 = page.Height
	}
	return r
}

// ToPixelRect converts a PDF-point rectangle into pixel space at the
// given DPI; the inverse of ToPDFRect.
func ToPixelRect(r RectPDF, dpi float64, page PageRect) Box {
	scale := dpi / constants.PointsPerInch
	return Box{
		X0: (r.X0 - page.OriginX) * scale,
		Y0: r.Y0 * scale,
		X1: (r.X1 - page.OriginX) * scale,
		Y1: r.Y1 * scale,
	}
}
