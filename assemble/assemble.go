/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

// Package assemble builds the output bundle's HTML and CSS from the spans,
// images and background color the interpreter collects per page: one
// positioned <div> per page, an <img> per placed image, a <span> per text
// run, and a shared stylesheet giving every span absolute positioning.
package assemble

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/windrose-labs/pdfrender/internal/hash"
	"github.com/windrose-labs/pdfrender/internal/htmlesc"
)

// Span is a single positioned text run ready for HTML emission, in CSS
// pixel space with a top-left origin.
type Span struct {
	Text       string
	X, Y       float64
	FontSizePx float64
	ColorCSS   string
	FontFamily string
}

// Image is a single positioned raster or passthrough image ready for HTML
// emission, in CSS pixel space with a top-left origin.
type Image struct {
	X, Y, W, H float64
	Data       []byte
	// Format is the MIME subtype ("jpeg", "jp2" or "png") Data is encoded
	// as.
	Format string
}

// mimeType maps an image Format to the MIME type used in its data URI.
func mimeType(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "jp2":
		return "image/jp2"
	default:
		return "image/png"
	}
}

// Assembler accumulates pages into one HTML document and one stylesheet.
type Assembler struct {
	pages  strings.Builder
	page   int
	images map[string][]byte
}

// NewAssembler returns an empty Assembler.
func NewAssembler() *Assembler {
	return &Assembler{images: make(map[string][]byte)}
}

// AddPage appends one page, sized widthPx x heightPx, to the document.
// Images are emitted before spans, matching paint order: a background image
// or photo should sit beneath the text drawn over it. When embedImages is
// false, image bytes are content-addressed and kept in a.images for the
// caller to write out separately instead of inlined as data URIs.
func (a *Assembler) AddPage(widthPx, heightPx float64, background string, images []Image, spans []Span, embedImages bool) {
	a.page++
	style := fmt.Sprintf("width:%.2fpx;height:%.2fpx;position:relative;overflow:hidden;", widthPx, heightPx)
	if background != "" {
		style += fmt.Sprintf("background-color:%s;", background)
	}
	fmt.Fprintf(&a.pages, "<div class=\"page\" id=\"page-%d\" style=\"%s\">\n", a.page, style)

	for _, img := range images {
		var src string
		if embedImages {
			src = "data:" + mimeType(img.Format) + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
		} else {
			name := hash.ContentName(img.Data, img.Format)
			a.images[name] = img.Data
			src = "images/" + name
		}
		fmt.Fprintf(&a.pages,
			"<img style=\"position:absolute;left:%.2fpx;top:%.2fpx;width:%.2fpx;height:%.2fpx;\" src=\"%s\" alt=\"\">\n",
			img.X, img.Y, img.W, img.H, htmlesc.EscapeAttr(src))
	}

	for _, span := range spans {
		style := fmt.Sprintf("left:%.2fpx;top:%.2fpx;font-size:%.2fpx;color:%s;",
			span.X, span.Y, span.FontSizePx, span.ColorCSS)
		if span.FontFamily != "" {
			style += fmt.Sprintf("font-family:%s;", span.FontFamily)
		}
		fmt.Fprintf(&a.pages, "<span style=\"%s\">%s</span>\n", style, htmlesc.EscapeString(span.Text))
	}

	a.pages.WriteString("</div>\n")
}

// PageCount returns the number of pages added so far.
func (a *Assembler) PageCount() int {
	return a.page
}

// HTMLBody returns the concatenated <div class="page"> markup accumulated
// by AddPage calls so far, ready to splice into HTML's document body.
func (a *Assembler) HTMLBody() string {
	return a.pages.String()
}

// Images returns the content-addressed image files accumulated by AddPage
// calls made with embedImages=false, keyed by filename.
func (a *Assembler) Images() map[string][]byte {
	return a.images
}

// baseCSS is the shared stylesheet every page relies on for span
// positioning; the inline style= attributes on spans and images carry
// their actual geometry.
const baseCSS = `.page { margin: 0 auto; background: #fff; }
.page span { position: absolute; white-space: nowrap; font-family: sans-serif; line-height: 1; }
.page img { position: absolute; }
`

// CSS returns the shared stylesheet for the document.
func (a *Assembler) CSS() string {
	return baseCSS
}

// HTML returns the complete index.html document body: a stylesheet (inlined
// when embedCSS is true, linked to style.css otherwise) and one
// <div class="page"> per page added via AddPage.
func HTML(bodyPages, fontFaces, css string, embedCSS bool) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	if embedCSS {
		b.WriteString("<style>\n")
		b.WriteString(css)
	} else {
		b.WriteString("<link rel=\"stylesheet\" href=\"style.css\">\n")
	}
	if fontFaces != "" {
		if !embedCSS {
			b.WriteString("<style>\n")
		}
		b.WriteString(fontFaces)
		b.WriteString("</style>\n")
	} else if embedCSS {
		b.WriteString("</style>\n")
	}
	b.WriteString("</head>\n<body>\n")
	b.WriteString(bodyPages)
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

// FontFace returns an @font-face CSS rule for a font, either embedding its
// bytes as a data URI (embed=true) or referencing its content-addressed
// filename under fonts/.
func FontFace(family, filename, format string, data []byte, embed bool) string {
	cssFormat := "truetype"
	mime := "font/ttf"
	if format == "opentype" {
		cssFormat = "opentype"
		mime = "font/otf"
	}
	src := "fonts/" + filename
	if embed && len(data) > 0 {
		src = "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
	}
	return fmt.Sprintf("@font-face { font-family: \"%s\"; src: url(\"%s\") format(\"%s\"); }\n",
		family, src, cssFormat)
}
