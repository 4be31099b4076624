/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

// Package extractor implements the covered-text visibility pass: given the
// text spans and opaque paint rectangles produced while interpreting a page's
// content stream, it flags spans that are fully hidden behind later paint
// operations so the HTML assembler can skip emitting them.
package extractor

import "github.com/windrose-labs/pdfrender/model"

// TextSpan is a positioned run of extracted text together with the glyph
// bounding box it occupies on the page, in unrotated PDF user space.
type TextSpan struct {
	Text string
	BBox model.PdfRectangle
}

// PaintRect is an opaque (non-text) region painted on a page after a given
// content-stream position: a filled path, an image XObject, a shading, ...
// Interpreters append one per opaque paint operator they execute.
type PaintRect struct {
	BBox model.PdfRectangle
	// Seq is the content-stream operator index at which the paint happened.
	// A span is only covered by paints with a larger Seq (painted later).
	Seq int
}

// CoveredTextPass decides, for each span, whether it is fully covered by a
// PaintRect painted after it. A span all four of whose corners fall inside
// the union of later PaintRects is dropped from HTML output: it is present
// in the PDF for e.g. a redaction overlay or a scanned-image text layer, but
// invisible to a viewer.
//
// This mirrors the corner-visibility heuristic of the original PDF render
// pipeline this engine was modeled on: checking corners rather than the full
// area is an approximation, and it inherits that implementation's known
// inconsistency against page rotation (a span's "corners" are computed in
// unrotated user space, not in the rotated view the reader sees) — open
// rather than silently patched, since fixing it changes which spans survive
// on rotated pages in ways no fixture here pins down.
func CoveredTextPass(spans []TextSpan, paints []PaintRect, seqs []int) []bool {
	covered := make([]bool, len(spans))
	for i, span := range spans {
		seq := seqs[i]
		corners := cornersOf(span.BBox)
		allCovered := true
		for _, c := range corners {
			if !coveredByAny(c, paints, seq) {
				allCovered = false
				break
			}
		}
		covered[i] = allCovered
	}
	return covered
}

type point struct{ x, y float64 }

func cornersOf(r model.PdfRectangle) [4]point {
	return [4]point{
		{r.Llx, r.Lly},
		{r.Urx, r.Lly},
		{r.Llx, r.Ury},
		{r.Urx, r.Ury},
	}
}

func coveredByAny(p point, paints []PaintRect, afterSeq int) bool {
	for _, pr := range paints {
		if pr.Seq <= afterSeq {
			continue
		}
		if p.x >= pr.BBox.Llx && p.x <= pr.BBox.Urx && p.y >= pr.BBox.Lly && p.y <= pr.BBox.Ury {
			return true
		}
	}
	return false
}
