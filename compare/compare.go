package compare

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var log = logrus.New()

// SetLogLevel adjusts the package logger's verbosity.
func SetLogLevel(level logrus.Level) {
	log.SetLevel(level)
}

// Options controls run-level behavior that is independent of the
// detection parameters.
type Options struct {
	// Workers caps per-page parallelism. Zero means one worker per
	// CPU.
	Workers int

	// Ignore lists old-page-space regions whose detections are
	// discarded, typically title blocks or revision tables.
	Ignore []RectPDF

	// Progress, when set, is invoked after each page completes.
	Progress func(done, total int)
}

// Compare runs the raster pipeline over every page of two PDFs and
// returns the collected differences. Pages are processed concurrently;
// cancellation of ctx aborts the run with ErrCancelled. Per-page
// detection failures are recorded on the page entry, while structural
// failures (unreadable file, degenerate page geometry) abort the whole
// run.
func Compare(ctx context.Context, oldPath, newPath string, p Params, opts Options) (*DiffResult, error) {
	start := time.Now()

	oldDoc, err := OpenDocument(oldPath)
	if err != nil {
		return nil, err
	}
	defer oldDoc.Close()

	newDoc, err := OpenDocument(newPath)
	if err != nil {
		return nil, err
	}
	defer newDoc.Close()

	total := oldDoc.PageCount()
	if newDoc.PageCount() > total {
		total = newDoc.PageCount()
	}

	result := &DiffResult{
		RunID:   uuid.NewString(),
		OldPath: oldPath,
		NewPath: newPath,
		Mode:    "raster",
		Pages:   make([]PageDiff, total),
		Params:  p,
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	log.WithFields(logrus.Fields{
		"old":     oldPath,
		"new":     newPath,
		"pages":   total,
		"dpi":     p.DPI,
		"workers": workers,
	}).Info("Starting raster comparison")

	var done int
	var progressMu sync.Mutex
	report := func() {
		if opts.Progress == nil {
			return
		}
		progressMu.Lock()
		done++
		opts.Progress(done, total)
		progressMu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < total; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return ErrCancelled
			}
			pg, err := comparePage(oldDoc, newDoc, i, p, opts.Ignore)
			if err != nil {
				return err
			}
			result.Pages[i] = pg
			report()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, ErrCancelled) || ctx.Err() != nil {
			return nil, ErrCancelled
		}
		return nil, err
	}

	result.Summary.ElapsedMS = time.Since(start).Milliseconds()
	result.finalizeSummary()
	log.WithFields(logrus.Fields{
		"run_id":  result.RunID,
		"added":   result.Summary.TotalAdded,
		"removed": result.Summary.TotalRemoved,
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Info("Raster comparison finished")
	return result, nil
}

// pageSource is the per-page view of an opened document that the page
// loop needs. *Document satisfies it.
type pageSource interface {
	PageCount() int
	Path() string
	Rasterize(pageIndex int, dpi float64) (*image.Gray, PageRect, error)
}

// comparePage diffs one page pair. Pages present in only one document
// report their whole ink extent as a single added or removed region.
// Rasterization failures are recorded on the page entry so the rest of
// the run still produces results; only degenerate page geometry aborts.
func comparePage(oldDoc, newDoc pageSource, pageIndex int, p Params, ignore []RectPDF) (PageDiff, error) {
	pg := PageDiff{PageIndex: pageIndex}

	switch {
	case pageIndex >= oldDoc.PageCount():
		rect, pageRect, err := wholePageExtent(newDoc, pageIndex, p.DPI)
		if err != nil {
			pg.Err = err.Error()
			return pg, nil
		}
		pg.Page = pageRect
		if rect != nil {
			pg.Added = []RectPDF{*rect}
		}
		return pg, nil
	case pageIndex >= newDoc.PageCount():
		rect, pageRect, err := wholePageExtent(oldDoc, pageIndex, p.DPI)
		if err != nil {
			pg.Err = err.Error()
			return pg, nil
		}
		pg.Page = pageRect
		if rect != nil {
			pg.Removed = []RectPDF{*rect}
		}
		return pg, nil
	}

	oldImg, oldRect, err := oldDoc.Rasterize(pageIndex, float64(p.DPI))
	if err != nil {
		pg.Err = err.Error()
		return pg, nil
	}
	newImg, newRect, err := newDoc.Rasterize(pageIndex, float64(p.DPI))
	if err != nil {
		pg.Err = err.Error()
		return pg, nil
	}
	pg.Page = oldRect
	if newRect != oldRect {
		pg.NewPage = &newRect
	}

	transform, err := NormalizePageSizes(oldRect, newRect)
	if err != nil {
		var dimErr *InvalidDimensionsError
		if errors.As(err, &dimErr) {
			dimErr.Page = pageIndex
			if oldRect.Width <= 0 || oldRect.Height <= 0 {
				dimErr.Path = oldDoc.Path()
			} else {
				dimErr.Path = newDoc.Path()
			}
		}
		return pg, err
	}
	if !transform.IsIdentity() || !oldImg.Bounds().Eq(newImg.Bounds()) {
		newImg = letterboxGray(newImg, transform.Scale, oldImg.Bounds().Dx(), oldImg.Bounds().Dy())
		pg.NewTransform = &transform
	}

	a, b, align, err := AlignImages(oldImg, newImg)
	if err != nil {
		pg.Err = fmt.Sprintf("alignment failed: %v", err)
		return pg, nil
	}
	if align.DX != 0 || align.DY != 0 || align.Rotation != 0 {
		log.WithFields(logrus.Fields{
			"page":     pageIndex,
			"dx":       align.DX,
			"dy":       align.DY,
			"rotation": align.Rotation,
		}).Debug("Aligned page images")
	}

	pg.Similarity = pageSimilarity(a, b)

	boxes := Reconcile(ExtractRegions(a, b, p), p)
	var addedPx, removedPx []Box
	for _, bx := range boxes {
		if bx.Type == Added {
			addedPx = append(addedPx, bx)
		} else {
			removedPx = append(removedPx, bx)
		}
	}
	removedPx, addedPx = SuppressUnchangedPairs(removedPx, addedPx)
	removedPx, addedPx = SuppressMovedPairs(removedPx, addedPx, a, b)

	dpi := float64(p.DPI)
	for _, bx := range addedPx {
		pg.Added = append(pg.Added, ToPDFRect(bx, dpi, oldRect))
	}
	for _, bx := range removedPx {
		pg.Removed = append(pg.Removed, ToPDFRect(bx, dpi, oldRect))
	}
	pg.Added = filterIgnored(pg.Added, ignore)
	pg.Removed = filterIgnored(pg.Removed, ignore)
	return pg, nil
}

// wholePageExtent rasterizes a page and returns the bounding rectangle
// of its ink in PDF points, or nil for a blank page.
func wholePageExtent(doc pageSource, pageIndex int, dpi int) (*RectPDF, PageRect, error) {
	img, rect, err := doc.Rasterize(pageIndex, float64(dpi))
	if err != nil {
		return nil, PageRect{}, err
	}
	bounds, ok := inkBounds(img)
	if !ok {
		return nil, rect, nil
	}
	r := ToPDFRect(bounds, float64(dpi), rect)
	return &r, rect, nil
}

// filterIgnored drops rectangles whose center falls inside any ignore
// region.
func filterIgnored(rects, ignore []RectPDF) []RectPDF {
	if len(ignore) == 0 {
		return rects
	}
	var out []RectPDF
	for _, r := range rects {
		cx, cy := r.Center()
		skip := false
		for _, ig := range ignore {
			if cx >= ig.X0 && cx <= ig.X1 && cy >= ig.Y0 && cy <= ig.Y1 {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, r)
		}
	}
	return out
}

// CompareVector diffs two PDFs at the vector level, matching text
// words and drawing boxes geometrically instead of rasterizing. Pages
// are walked sequentially because the underlying PDF reader is not
// safe for concurrent page access.
func CompareVector(ctx context.Context, oldPath, newPath string, p Params, opts Options) (*DiffResult, error) {
	start := time.Now()

	oldDoc, err := openElementDoc(oldPath)
	if err != nil {
		return nil, err
	}
	defer oldDoc.close()

	newDoc, err := openElementDoc(newPath)
	if err != nil {
		return nil, err
	}
	defer newDoc.close()

	total := oldDoc.pageCount()
	if newDoc.pageCount() > total {
		total = newDoc.pageCount()
	}

	result := &DiffResult{
		RunID:   uuid.NewString(),
		OldPath: oldPath,
		NewPath: newPath,
		Mode:    "vector",
		Pages:   make([]PageDiff, total),
		Params:  p,
	}
	log.WithFields(logrus.Fields{
		"old":   oldPath,
		"new":   newPath,
		"pages": total,
	}).Info("Starting vector comparison")

	for i := 0; i < total; i++ {
		if ctx.Err() != nil {
			return nil, ErrCancelled
		}
		pg, err := compareVectorPage(oldDoc, newDoc, i, p, opts.Ignore)
		if err != nil {
			return nil, err
		}
		result.Pages[i] = pg
		if opts.Progress != nil {
			opts.Progress(i+1, total)
		}
	}

	result.Summary.ElapsedMS = time.Since(start).Milliseconds()
	result.finalizeSummary()
	return result, nil
}

func compareVectorPage(oldDoc, newDoc *elementDoc, pageIndex int, p Params, ignore []RectPDF) (PageDiff, error) {
	pg := PageDiff{PageIndex: pageIndex}

	var oldEls, newEls []Element
	var oldRect, newRect PageRect
	var err error

	if pageIndex < oldDoc.pageCount() {
		oldEls, oldRect, err = oldDoc.elements(pageIndex)
		if err != nil {
			return pg, err
		}
	}
	if pageIndex < newDoc.pageCount() {
		newEls, newRect, err = newDoc.elements(pageIndex)
		if err != nil {
			return pg, err
		}
	}

	switch {
	case pageIndex >= newDoc.pageCount():
		pg.Page = oldRect
		for _, e := range oldEls {
			pg.Removed = append(pg.Removed, e.Rect)
		}
		pg.Removed = filterIgnored(pg.Removed, ignore)
		return pg, nil
	case pageIndex >= oldDoc.pageCount():
		pg.Page = newRect
		for _, e := range newEls {
			pg.Added = append(pg.Added, e.Rect)
		}
		pg.Added = filterIgnored(pg.Added, ignore)
		return pg, nil
	}

	pg.Page = oldRect
	transform, err := NormalizePageSizes(oldRect, newRect)
	if err != nil {
		var dimErr *InvalidDimensionsError
		if errors.As(err, &dimErr) {
			dimErr.Page = pageIndex
			if oldRect.Width <= 0 || oldRect.Height <= 0 {
				dimErr.Path = oldDoc.path
			} else {
				dimErr.Path = newDoc.path
			}
		}
		return pg, err
	}
	if newRect != oldRect {
		pg.NewPage = &newRect
	}
	if !transform.IsIdentity() {
		pg.NewTransform = &transform
	}
	if pg.NewTransform != nil || newRect.OriginX != oldRect.OriginX {
		mapped := make([]Element, len(newEls))
		for i, e := range newEls {
			r := RectPDF{
				X0: e.Rect.X0 - newRect.OriginX,
				Y0: e.Rect.Y0,
				X1: e.Rect.X1 - newRect.OriginX,
				Y1: e.Rect.Y1,
			}
			if pg.NewTransform != nil {
				r = transform.ApplyRect(r)
			}
			r.X0 += oldRect.OriginX
			r.X1 += oldRect.OriginX
			mapped[i] = Element{Rect: r, Text: e.Text}
		}
		newEls = mapped
	}

	var removed, added []Element
	if p.Adaptive {
		removed, added = MatchElementsAdaptive(oldEls, newEls, p.MatchIoU, p)
	} else {
		removed, added = MatchElements(oldEls, newEls, p.MatchIoU)
		removed, added = suppressUnchangedElements(removed, added)
		removed, added = suppressMovedSameText(removed, added, p)
	}

	for _, e := range removed {
		pg.Removed = append(pg.Removed, e.Rect)
	}
	for _, e := range added {
		pg.Added = append(pg.Added, e.Rect)
	}
	pg.Added = filterIgnored(pg.Added, ignore)
	pg.Removed = filterIgnored(pg.Removed, ignore)
	return pg, nil
}
