package compare

import (
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/color"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Annotate writes annotated copies of both input documents: the old
// document with removed regions outlined, the new document with added
// regions outlined. Rectangles in the result are expressed in old-page
// space; when the new page differs in size or origin, added regions
// are mapped into its native coordinates before drawing.
func Annotate(result *DiffResult, preset Preset, oldOut, newOut string) error {
	removedStyle := preset.StyleFor(Removed)
	addedStyle := preset.StyleFor(Added)

	oldAnnots := map[int][]model.AnnotationRenderer{}
	newAnnots := map[int][]model.AnnotationRenderer{}

	for _, pg := range result.Pages {
		pageNum := pg.PageIndex + 1

		for i, r := range pg.Removed {
			label := fmt.Sprintf("removed %d", i+1)
			oldAnnots[pageNum] = append(oldAnnots[pageNum],
				squareAnnotation(r, pg.Page, removedStyle, label))
		}

		newPage := pg.Page
		if pg.NewPage != nil {
			newPage = *pg.NewPage
		}
		for i, r := range pg.Added {
			label := fmt.Sprintf("added %d", i+1)
			newAnnots[pageNum] = append(newAnnots[pageNum],
				squareAnnotation(toNewPageRect(r, pg), newPage, addedStyle, label))
		}
	}

	if oldOut != "" {
		if err := annotateFile(result.OldPath, oldOut, oldAnnots); err != nil {
			return fmt.Errorf("annotating %s: %w", result.OldPath, err)
		}
	}
	if newOut != "" {
		if err := annotateFile(result.NewPath, newOut, newAnnots); err != nil {
			return fmt.Errorf("annotating %s: %w", result.NewPath, err)
		}
	}
	return nil
}

// toNewPageRect maps an old-page-space rectangle into the new page's
// native coordinates, undoing the letterbox transform and swapping the
// MediaBox x origin.
func toNewPageRect(r RectPDF, pg PageDiff) RectPDF {
	if pg.NewTransform == nil && pg.NewPage == nil {
		return r
	}
	newPage := pg.Page
	if pg.NewPage != nil {
		newPage = *pg.NewPage
	}
	rel := RectPDF{X0: r.X0 - pg.Page.OriginX, Y0: r.Y0, X1: r.X1 - pg.Page.OriginX, Y1: r.Y1}
	if pg.NewTransform != nil {
		rel = pg.NewTransform.InvertRect(rel)
	}
	return RectPDF{
		X0: newPage.OriginX + rel.X0,
		Y0: rel.Y0,
		X1: newPage.OriginX + rel.X1,
		Y1: rel.Y1,
	}
}

// annotateFile adds the square annotations to a copy of in written at
// out. A document without any differences still produces an output, as
// a plain copy.
func annotateFile(in, out string, annots map[int][]model.AnnotationRenderer) error {
	if len(annots) == 0 {
		return copyFile(in, out)
	}
	return api.AddAnnotationsMapFile(in, out, annots, nil, false)
}

// annotationRect flips a top-edge-relative rectangle into PDF user
// space, where y grows upward from the MediaBox lower-left corner.
func annotationRect(r RectPDF, page PageRect) *types.Rectangle {
	top := page.OriginY + page.Height
	return types.NewRectangle(r.X0, top-r.Y1, r.X1, top-r.Y0)
}

// squareAnnotation builds one outlined rectangle.
func squareAnnotation(r RectPDF, page PageRect, st Style, label string) model.AnnotationRenderer {
	rect := annotationRect(r, page)
	stroke := color.SimpleColor{
		R: float32(st.StrokeColor.R),
		G: float32(st.StrokeColor.G),
		B: float32(st.StrokeColor.B),
	}
	fill := color.SimpleColor{
		R: float32(st.FillColor.R),
		G: float32(st.FillColor.G),
		B: float32(st.FillColor.B),
	}
	opacity := st.FillOpacity
	return model.NewSquareAnnotation(
		*rect,
		0,
		label,
		"",
		"",
		0,
		&stroke,
		"",
		nil,
		&opacity,
		"",
		"",
		&fill,
		0, 0, 0, 0,
		st.StrokeWidth,
		model.BSSolid,
		false,
		0,
	)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
