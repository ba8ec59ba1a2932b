// Package compare implements the raster-guided diff engine for PDF
// engineering drawings: pages are rasterized and aligned, difference
// regions are extracted and reconciled into clean added/removed
// rectangles, and the rectangles are mapped back to PDF points so that
// highlight annotations can be drawn onto the original vector PDFs.
//
// A second, vector-level pipeline matches text words and drawing
// bounding boxes directly from the PDF object model and produces the
// same result contract; both paths feed the same annotator.
package compare
