package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func el(x0, y0, x1, y1 float64, text string) Element {
	return Element{Rect: RectPDF{X0: x0, Y0: y0, X1: x1, Y1: y1}, Text: text}
}

func matchTestParams() Params {
	return Params{
		MatchIoU:        0.9,
		PosTolerancePts: 3,
		SizeEpsPts:      0.5,
	}
}

func TestMatchElementsIdentical(t *testing.T) {
	els := []Element{
		el(10, 10, 60, 20, "PART-100"),
		el(10, 30, 60, 40, "PART-200"),
		el(200, 200, 260, 210, ""),
	}

	removed, added := MatchElements(els, els, 0.9)
	assert.Empty(t, removed)
	assert.Empty(t, added)
}

func TestMatchElementsTextChange(t *testing.T) {
	oldEls := []Element{el(10, 10, 60, 20, "REV A")}
	newEls := []Element{el(10, 10, 60, 20, "REV B")}

	removed, added := MatchElements(oldEls, newEls, 0.9)
	require.Len(t, removed, 1)
	require.Len(t, added, 1)
	assert.Equal(t, "REV A", removed[0].Text)
	assert.Equal(t, "REV B", added[0].Text)
}

func TestMatchElementsUnmatched(t *testing.T) {
	oldEls := []Element{
		el(10, 10, 60, 20, "KEEP"),
		el(10, 50, 60, 60, "GONE"),
	}
	newEls := []Element{
		el(10, 10, 60, 20, "KEEP"),
		el(300, 300, 360, 310, "NEW"),
	}

	removed, added := MatchElements(oldEls, newEls, 0.9)
	require.Len(t, removed, 1)
	require.Len(t, added, 1)
	assert.Equal(t, "GONE", removed[0].Text)
	assert.Equal(t, "NEW", added[0].Text)
}

func TestMatchElementsSwappedInputs(t *testing.T) {
	a := []Element{el(10, 10, 60, 20, "ONLY-A")}
	b := []Element{el(300, 300, 360, 310, "ONLY-B")}

	removedAB, addedAB := MatchElements(a, b, 0.9)
	removedBA, addedBA := MatchElements(b, a, 0.9)

	// Swapping the documents swaps the roles of the two sides.
	assert.Equal(t, removedAB, addedBA)
	assert.Equal(t, addedAB, removedBA)
}

func TestSuppressMovedSameText(t *testing.T) {
	p := matchTestParams()

	removed := []Element{el(10, 10, 60, 20, "NOTE 5")}
	added := []Element{el(12, 11, 62, 21, "NOTE 5")}

	r, a := suppressMovedSameText(removed, added, p)
	assert.Empty(t, r, "same text shifted within tolerance is not a change")
	assert.Empty(t, a)
}

func TestSuppressMovedSameTextBeyondTolerance(t *testing.T) {
	p := matchTestParams()

	removed := []Element{el(10, 10, 60, 20, "NOTE 5")}
	added := []Element{el(40, 10, 90, 20, "NOTE 5")}

	r, a := suppressMovedSameText(removed, added, p)
	assert.Len(t, r, 1)
	assert.Len(t, a, 1)
}

func TestSuppressMovedSameTextNeverPairsDifferentText(t *testing.T) {
	p := matchTestParams()

	removed := []Element{el(10, 10, 60, 20, "M6x20")}
	added := []Element{el(10.5, 10, 60.5, 20, "M8x20")}

	r, a := suppressMovedSameText(removed, added, p)
	assert.Len(t, r, 1, "text edits survive no matter how close the geometry")
	assert.Len(t, a, 1)
}

func TestSuppressUnchangedElements(t *testing.T) {
	removed := []Element{
		el(10, 10, 60, 20, "SAME"),
		el(10, 40, 60, 50, "REALLY GONE"),
	}
	added := []Element{el(10, 10, 60, 20, "SAME")}

	r, a := suppressUnchangedElements(removed, added)
	require.Len(t, r, 1)
	assert.Equal(t, "REALLY GONE", r[0].Text)
	assert.Empty(t, a)
}

func TestMatchElementsAdaptive(t *testing.T) {
	p := matchTestParams()

	// The title block shifted by two points; everything else is
	// unchanged. A strict IoU pass alone would report the shifted
	// word on both sides.
	oldEls := []Element{
		el(10, 10, 60, 20, "TITLE"),
		el(10, 40, 80, 50, "DETAIL VIEW"),
	}
	newEls := []Element{
		el(12, 11, 62, 21, "TITLE"),
		el(10, 40, 80, 50, "DETAIL VIEW"),
	}

	removed, added := MatchElementsAdaptive(oldEls, newEls, 0.7, p)
	assert.Empty(t, removed)
	assert.Empty(t, added)
}

func TestMatchElementsAdaptiveRealChange(t *testing.T) {
	p := matchTestParams()

	oldEls := []Element{el(10, 10, 60, 20, "Ø12")}
	newEls := []Element{el(10, 10, 60, 20, "Ø14")}

	removed, added := MatchElementsAdaptive(oldEls, newEls, 0.7, p)
	require.Len(t, removed, 1)
	require.Len(t, added, 1)
	assert.Equal(t, "Ø12", removed[0].Text)
	assert.Equal(t, "Ø14", added[0].Text)
}

func TestFilterIgnored(t *testing.T) {
	rects := []RectPDF{
		{X0: 10, Y0: 10, X1: 30, Y1: 30},
		{X0: 200, Y0: 200, X1: 220, Y1: 220},
	}
	ignore := []RectPDF{{X0: 0, Y0: 0, X1: 50, Y1: 50}}

	kept := filterIgnored(rects, ignore)
	require.Len(t, kept, 1)
	assert.Equal(t, rects[1], kept[0])

	assert.Equal(t, rects, filterIgnored(rects, nil))
}
