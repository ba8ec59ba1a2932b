package compare

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// RectPDF is an axis-aligned rectangle in PDF points with a top-left
// origin. It serializes as a plain [x0, y0, x1, y1] array.
type RectPDF struct {
	X0, Y0, X1, Y1 float64
}

// Width returns the rectangle width in points.
func (r RectPDF) Width() float64 { return r.X1 - r.X0 }

// Height returns the rectangle height in points.
func (r RectPDF) Height() float64 { return r.Y1 - r.Y0 }

// Area returns the rectangle area in square points.
func (r RectPDF) Area() float64 { return r.Width() * r.Height() }

// Center returns the rectangle center.
func (r RectPDF) Center() (float64, float64) {
	return (r.X0 + r.X1) / 2, (r.Y0 + r.Y1) / 2
}

// Intersects reports whether two rectangles overlap.
func (r RectPDF) Intersects(other RectPDF) bool {
	return r.X0 < other.X1 && other.X0 < r.X1 && r.Y0 < other.Y1 && other.Y0 < r.Y1
}

// IoU returns the intersection-over-union ratio of two rectangles.
func (r RectPDF) IoU(other RectPDF) float64 {
	ix0 := math.Max(r.X0, other.X0)
	iy0 := math.Max(r.Y0, other.Y0)
	ix1 := math.Min(r.X1, other.X1)
	iy1 := math.Min(r.Y1, other.Y1)
	if ix1 <= ix0 || iy1 <= iy0 {
		return 0
	}
	inter := (ix1 - ix0) * (iy1 - iy0)
	union := r.Area() + other.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// MarshalJSON encodes the rectangle as [x0, y0, x1, y1].
func (r RectPDF) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{r.X0, r.Y0, r.X1, r.Y1})
}

// UnmarshalJSON decodes a [x0, y0, x1, y1] array.
func (r *RectPDF) UnmarshalJSON(data []byte) error {
	var arr [4]float64
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("rect must be a [x0,y0,x1,y1] array: %w", err)
	}
	r.X0, r.Y0, r.X1, r.Y1 = arr[0], arr[1], arr[2], arr[3]
	return nil
}

// PageRect is the true geometry of a page in PDF points. OriginX and
// OriginY carry the MediaBox lower-left corner, which engineering
// drawings frequently place away from (0,0).
type PageRect struct {
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	OriginX float64 `json:"origin_x,omitempty"`
	OriginY float64 `json:"origin_y,omitempty"`
}

// AlignTransform describes how a new-page image was shifted, rotated
// and scaled to match the old-page image.
type AlignTransform struct {
	DX       float64 `json:"dx"`
	DY       float64 `json:"dy"`
	Rotation float64 `json:"rotation"`
	Scale    float64 `json:"scale"`
}

// PageDiff is the per-page diff outcome. Added and Removed rectangles
// are expressed in the old page's coordinate space; NewTransform, when
// set, maps them back into the new page's native space. NewPage holds
// the new page's geometry whenever it differs from the old one.
type PageDiff struct {
	PageIndex    int            `json:"page_index"`
	Page         PageRect       `json:"page_size"`
	NewPage      *PageRect      `json:"new_page_size,omitempty"`
	Added        []RectPDF      `json:"added"`
	Removed      []RectPDF      `json:"removed"`
	Similarity   float64        `json:"similarity,omitempty"`
	NewTransform *PageTransform `json:"new_transform,omitempty"`
	Err          string         `json:"error,omitempty"`
}

// Summary aggregates counts over all pages of a run.
type Summary struct {
	Pages        int     `json:"pages"`
	TotalAdded   int     `json:"total_added"`
	TotalRemoved int     `json:"total_removed"`
	PageErrors   int     `json:"page_errors"`
	ElapsedMS    int64   `json:"elapsed_ms"`
	Verified     int     `json:"verified,omitempty"`
	MeanSim      float64 `json:"mean_similarity,omitempty"`
}

// DiffResult is the externally visible outcome of one comparison run.
type DiffResult struct {
	RunID   string     `json:"run_id"`
	OldPath string     `json:"old"`
	NewPath string     `json:"new"`
	Mode    string     `json:"mode"`
	Pages   []PageDiff `json:"pages"`
	Summary Summary    `json:"summary"`
	Params  Params     `json:"params"`
}

// WriteJSON persists the result to path for later inspection.
func (r *DiffResult) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding diff result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing diff result: %w", err)
	}
	return nil
}

func (r *DiffResult) finalizeSummary() {
	r.Summary.Pages = len(r.Pages)
	r.Summary.TotalAdded = 0
	r.Summary.TotalRemoved = 0
	r.Summary.PageErrors = 0
	r.Summary.Verified = 0
	simSum := 0.0
	simCount := 0
	for _, pg := range r.Pages {
		r.Summary.TotalAdded += len(pg.Added)
		r.Summary.TotalRemoved += len(pg.Removed)
		if pg.Err != "" {
			r.Summary.PageErrors++
		} else {
			r.Summary.Verified++
		}
		if pg.Similarity > 0 {
			simSum += pg.Similarity
			simCount++
		}
	}
	if simCount > 0 {
		r.Summary.MeanSim = simSum / float64(simCount)
	}
}
