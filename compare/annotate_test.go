package compare

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnotationRectFlipsToUserSpace(t *testing.T) {
	page := PageRect{Width: 612, Height: 792}

	rect := annotationRect(RectPDF{X0: 100, Y0: 100, X1: 200, Y1: 180}, page)
	assert.InDelta(t, 100, rect.LL.X, 1e-9)
	assert.InDelta(t, 612, rect.LL.Y, 1e-9)
	assert.InDelta(t, 200, rect.UR.X, 1e-9)
	assert.InDelta(t, 692, rect.UR.Y, 1e-9)
}

func TestAnnotationRectWithMediaBoxOrigin(t *testing.T) {
	page := PageRect{Width: 612, Height: 792, OriginX: 30, OriginY: 20}

	// Top edge sits at 20+792=812 in user space.
	rect := annotationRect(RectPDF{X0: 130, Y0: 0, X1: 230, Y1: 80}, page)
	assert.InDelta(t, 130, rect.LL.X, 1e-9)
	assert.InDelta(t, 732, rect.LL.Y, 1e-9)
	assert.InDelta(t, 812, rect.UR.Y, 1e-9)
}

func TestToNewPageRect(t *testing.T) {
	// Old A4 portrait, new page letterboxed at half scale with a
	// shifted MediaBox origin.
	pg := PageDiff{
		Page:         PageRect{Width: 595, Height: 842},
		NewPage:      &PageRect{Width: 1190, Height: 1684, OriginX: 10},
		NewTransform: &PageTransform{Scale: 0.5, TX: 0, TY: 0},
	}

	r := toNewPageRect(RectPDF{X0: 100, Y0: 50, X1: 200, Y1: 150}, pg)
	assert.InDelta(t, 210, r.X0, 1e-9)
	assert.InDelta(t, 100, r.Y0, 1e-9)
	assert.InDelta(t, 410, r.X1, 1e-9)
	assert.InDelta(t, 300, r.Y1, 1e-9)
}

func TestToNewPageRectIdentity(t *testing.T) {
	pg := PageDiff{Page: PageRect{Width: 595, Height: 842}}
	r := RectPDF{X0: 1, Y0: 2, X1: 3, Y1: 4}
	assert.Equal(t, r, toNewPageRect(r, pg))
}

func TestSquareAnnotationBuilds(t *testing.T) {
	st := Style{
		StrokeColor: RGB{R: 1},
		FillColor:   RGB{R: 1, G: 0.8, B: 0.8},
		FillOpacity: 0.3,
		StrokeWidth: 1.5,
	}
	ann := squareAnnotation(RectPDF{X0: 10, Y0: 10, X1: 50, Y1: 30}, PageRect{Width: 612, Height: 792}, st, "removed 1")
	assert.NotNil(t, ann)
}

func TestAnnotateCopiesWhenNoDifferences(t *testing.T) {
	dir := t.TempDir()
	oldIn := filepath.Join(dir, "old.pdf")
	newIn := filepath.Join(dir, "new.pdf")
	content := []byte("%PDF-1.4\n%%EOF\n")
	require.NoError(t, os.WriteFile(oldIn, content, 0o644))
	require.NoError(t, os.WriteFile(newIn, content, 0o644))

	result := &DiffResult{
		OldPath: oldIn,
		NewPath: newIn,
		Pages:   []PageDiff{{PageIndex: 0, Page: PageRect{Width: 612, Height: 792}}},
	}
	preset, err := PresetByName("balanced")
	require.NoError(t, err)

	oldOut := filepath.Join(dir, "old_annotated.pdf")
	newOut := filepath.Join(dir, "new_annotated.pdf")
	require.NoError(t, Annotate(result, preset, oldOut, newOut))

	for _, p := range []string{oldOut, newOut} {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, content, data)
	}
}
