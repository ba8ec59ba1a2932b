package compare

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
)

// Element is a vector-level page item: a text word, a drawing bounding
// box or an image placement. Text is empty for non-text elements. The
// rectangle uses PDF points with a top-left origin, matching the
// raster pipeline.
type Element struct {
	Rect RectPDF
	Text string
}

// elementDoc is a PDF opened for vector-level extraction.
type elementDoc struct {
	file   *os.File
	reader *lpdf.Reader
	path   string
}

func openElementDoc(path string) (*elementDoc, error) {
	f, r, err := lpdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s for element extraction: %w", path, err)
	}
	return &elementDoc{file: f, reader: r, path: path}, nil
}

func (d *elementDoc) pageCount() int { return d.reader.NumPage() }

func (d *elementDoc) close() error { return d.file.Close() }

// pageRect reads the page MediaBox, defaulting to US Letter when the
// page dictionary does not carry one.
func (d *elementDoc) pageRect(pageIndex int) (PageRect, error) {
	if pageIndex < 0 || pageIndex >= d.reader.NumPage() {
		return PageRect{}, &PageIndexError{Path: d.path, Page: pageIndex, PageCount: d.reader.NumPage()}
	}
	rect := PageRect{Width: 612, Height: 792}
	page := d.reader.Page(pageIndex + 1)
	mb := page.V.Key("MediaBox")
	if mb.Kind() == lpdf.Array && mb.Len() == 4 {
		x0 := mb.Index(0).Float64()
		y0 := mb.Index(1).Float64()
		x1 := mb.Index(2).Float64()
		y1 := mb.Index(3).Float64()
		rect = PageRect{Width: x1 - x0, Height: y1 - y0, OriginX: x0, OriginY: y0}
	}
	return rect, nil
}

// elements extracts words and drawing rectangles from one page.
func (d *elementDoc) elements(pageIndex int) ([]Element, PageRect, error) {
	rect, err := d.pageRect(pageIndex)
	if err != nil {
		return nil, PageRect{}, err
	}

	page := d.reader.Page(pageIndex + 1)
	content := page.Content()

	// Content coordinates are absolute user space; y flips against the
	// page's top edge, which sits at OriginY+Height.
	top := rect.OriginY + rect.Height
	out := wordsFromGlyphs(content.Text, top)

	for _, r := range content.Rect {
		x0 := math.Min(r.Min.X, r.Max.X)
		x1 := math.Max(r.Min.X, r.Max.X)
		y0 := top - math.Max(r.Min.Y, r.Max.Y)
		y1 := top - math.Min(r.Min.Y, r.Max.Y)
		if x1-x0 == 0 {
			x1 += 0.1
		}
		if y1-y0 == 0 {
			y1 += 0.1
		}
		out = append(out, Element{Rect: RectPDF{X0: x0, Y0: y0, X1: x1, Y1: y1}})
	}

	return out, rect, nil
}

// wordsFromGlyphs groups per-glyph text items into word boxes. Glyphs
// belong to the same word when they share a baseline and the
// horizontal gap stays below a fraction of the font size.
func wordsFromGlyphs(glyphs []lpdf.Text, pageTop float64) []Element {
	if len(glyphs) == 0 {
		return nil
	}

	sorted := make([]lpdf.Text, len(glyphs))
	copy(sorted, glyphs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var words []Element
	var run []lpdf.Text
	flush := func() {
		if len(run) == 0 {
			return
		}
		if w, ok := wordFromRun(run, pageTop); ok {
			words = append(words, w)
		}
		run = run[:0]
	}

	for _, g := range sorted {
		if strings.TrimSpace(g.S) == "" {
			flush()
			continue
		}
		if len(run) > 0 {
			prev := run[len(run)-1]
			sameLine := math.Abs(g.Y-prev.Y) <= math.Max(prev.FontSize, 1)*0.2
			gap := g.X - (prev.X + prev.W)
			maxGap := math.Max(prev.FontSize, 1) * 0.3
			if !sameLine || gap > maxGap {
				flush()
			}
		}
		run = append(run, g)
	}
	flush()
	return words
}

func wordFromRun(run []lpdf.Text, pageTop float64) (Element, bool) {
	var sb strings.Builder
	x0 := math.Inf(1)
	x1 := math.Inf(-1)
	baseline := run[0].Y
	fontSize := run[0].FontSize
	for _, g := range run {
		sb.WriteString(g.S)
		x0 = math.Min(x0, g.X)
		x1 = math.Max(x1, g.X+g.W)
		if g.FontSize > fontSize {
			fontSize = g.FontSize
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return Element{}, false
	}
	if fontSize <= 0 {
		fontSize = 10
	}
	if x1 <= x0 {
		x1 = x0 + fontSize*0.5*float64(len(text))
	}
	// The baseline sits at roughly 80% of the glyph height.
	yTop := pageTop - (baseline + fontSize*0.8)
	return Element{
		Rect: RectPDF{X0: x0, Y0: yTop, X1: x1, Y1: yTop + fontSize},
		Text: text,
	}, true
}
