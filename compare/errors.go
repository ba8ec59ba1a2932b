package compare

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned when a comparison was cancelled cooperatively.
// It is a distinct outcome from both success and failure so callers can
// tell "user cancelled" apart from "comparison crashed".
var ErrCancelled = errors.New("comparison cancelled")

// PageIndexError reports a page index beyond the document bounds.
type PageIndexError struct {
	Path      string
	Page      int
	PageCount int
}

func (e *PageIndexError) Error() string {
	return fmt.Sprintf("page index %d out of range [0, %d) in %s", e.Page, e.PageCount, e.Path)
}

// InvalidDimensionsError reports a page with zero width or height.
// Scale factors are undefined for such pages, so the whole comparison
// is aborted rather than producing a wrong-scale partial result.
type InvalidDimensionsError struct {
	Path   string
	Page   int
	Width  float64
	Height float64
}

func (e *InvalidDimensionsError) Error() string {
	return fmt.Sprintf("page %d of %s has invalid dimensions %gx%g pt", e.Page, e.Path, e.Width, e.Height)
}
