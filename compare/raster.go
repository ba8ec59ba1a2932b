package compare

import (
	"fmt"
	"image"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Document is a read-only PDF opened for comparison. Rasterization goes
// through MuPDF; exact page geometry comes from pdfcpu. Safe for
// concurrent use: the MuPDF handle is guarded by a mutex because
// libmupdf is not thread-safe.
type Document struct {
	path      string
	mu        sync.Mutex
	doc       *fitz.Document
	pageRects []PageRect
}

// OpenDocument opens and validates a PDF file.
func OpenDocument(path string) (*Document, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !mt.Is("application/pdf") {
		return nil, fmt.Errorf("%s is not a PDF (detected %s)", path, mt.String())
	}

	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, fmt.Errorf("invalid PDF %s: %w", path, err)
	}

	rects := make([]PageRect, ctx.PageCount)
	for i := 1; i <= ctx.PageCount; i++ {
		_, _, attrs, err := ctx.PageDict(i, false)
		if err != nil {
			return nil, fmt.Errorf("reading page %d of %s: %w", i, path, err)
		}
		if attrs != nil && attrs.MediaBox != nil {
			rects[i-1] = PageRect{
				Width:   attrs.MediaBox.Width(),
				Height:  attrs.MediaBox.Height(),
				OriginX: attrs.MediaBox.LL.X,
				OriginY: attrs.MediaBox.LL.Y,
			}
		}
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	return &Document{path: path, doc: doc, pageRects: rects}, nil
}

// Path returns the file path the document was opened from.
func (d *Document) Path() string { return d.path }

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return len(d.pageRects) }

// PageRect returns the true size of a page in PDF points.
func (d *Document) PageRect(pageIndex int) (PageRect, error) {
	if pageIndex < 0 || pageIndex >= len(d.pageRects) {
		return PageRect{}, &PageIndexError{Path: d.path, Page: pageIndex, PageCount: len(d.pageRects)}
	}
	return d.pageRects[pageIndex], nil
}

// Rasterize renders one page to grayscale at the given DPI and returns
// the image together with the page's size in PDF points. Rendering is
// deterministic: identical inputs yield byte-identical images.
func (d *Document) Rasterize(pageIndex int, dpi float64) (*image.Gray, PageRect, error) {
	rect, err := d.PageRect(pageIndex)
	if err != nil {
		return nil, PageRect{}, err
	}

	d.mu.Lock()
	img, err := d.doc.ImageDPI(pageIndex, dpi)
	d.mu.Unlock()
	if err != nil {
		return nil, PageRect{}, fmt.Errorf("rasterizing page %d of %s: %w", pageIndex, d.path, err)
	}

	return toGray(img), rect, nil
}

// Close releases the underlying MuPDF resources.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return nil
	}
	err := d.doc.Close()
	d.doc = nil
	return err
}
