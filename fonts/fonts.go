/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

// Package fonts extracts the font programs a document embeds (TrueType via
// FontFile2, CFF/OpenType via FontFile3) into standalone font files the
// output bundle can ship alongside its HTML/CSS, deduplicating identical
// font programs by content hash. Fonts with nothing embedded (Type3,
// missing FontFile*) get approximate metrics instead of a font file.
package fonts

import (
	"bytes"
	"strings"

	"github.com/adrg/sysfont"
	"github.com/unidoc/unitype"

	"github.com/windrose-labs/pdfrender/common"
	"github.com/windrose-labs/pdfrender/core"
	"github.com/windrose-labs/pdfrender/internal/hash"
	"github.com/windrose-labs/pdfrender/model"
)

// Approximate metrics used when a font has no embedded program and no
// system substitute can be found: the ascent/descent/em-box a plain sans
// serif face uses closely enough for layout purposes.
const (
	approxAscent  = 0.8
	approxDescent = -0.2
	approxEm      = 1000.0
)

// RenderedFont describes one font program (or font substitute) the output
// bundle references. Two fonts with byte-identical programs resolve to the
// same RenderedFont.
type RenderedFont struct {
	// Filename is the content-addressed name ("<sha256>.<ext>") the bundle
	// writes this font's bytes under. Empty when Data is nil (no font file
	// to ship, approximate metrics only).
	Filename string
	// Format is "truetype", "opentype", or "" when nothing is embedded.
	Format string
	// Data holds the extracted font program bytes, or nil if none could be
	// extracted or matched.
	Data []byte

	Ascent, Descent float64
}

// Extractor extracts and deduplicates fonts across a single document
// conversion. It is not safe for concurrent use.
type Extractor struct {
	byFont *map[*model.PdfFont]*RenderedFont
	byHash map[string]*RenderedFont
	finder *sysfont.Finder
}

// NewExtractor returns an empty Extractor. The system font finder it uses
// for approximate-metrics substitution is built lazily, on the first font
// that actually needs it, since scanning the host's font directories is
// wasted work for documents where every font is embedded.
func NewExtractor() *Extractor {
	m := make(map[*model.PdfFont]*RenderedFont)
	return &Extractor{
		byFont: &m,
		byHash: make(map[string]*RenderedFont),
	}
}

// Extract returns the RenderedFont for `font`, extracting and hashing its
// embedded program the first time this exact *model.PdfFont pointer is
// seen, and returning the already-computed result (by identity, and by
// content hash across distinct fonts sharing one program) afterward.
func (e *Extractor) Extract(res core.Resolver, font *model.PdfFont) (*RenderedFont, error) {
	if rf, ok := (*e.byFont)[font]; ok {
		return rf, nil
	}

	rf := e.extract(res, font)
	(*e.byFont)[font] = rf
	return rf, nil
}

func (e *Extractor) extract(res core.Resolver, font *model.PdfFont) *RenderedFont {
	descriptor, err := font.GetFontDescriptor()
	if err == nil && descriptor != nil {
		if data, ok := embeddedStream(res, descriptor.FontFile2); ok {
			if validTrueType(data) {
				return e.dedup(data, "truetype")
			}
			common.Log.Debug("FontFile2 for %s did not parse as TrueType, using approximate metrics", font.BaseFont())
		}
		if data, ok := embeddedStream(res, descriptor.FontFile3); ok {
			return e.dedup(data, "opentype")
		}
	}

	return e.approximate(font, descriptor)
}

// All returns every distinct RenderedFont extracted so far (one per content
// hash, font files only; approximate metrics-only fonts aren't included
// since they have nothing to ship). Iteration order is unspecified.
func (e *Extractor) All() []*RenderedFont {
	out := make([]*RenderedFont, 0, len(e.byHash))
	for _, rf := range e.byHash {
		out = append(out, rf)
	}
	return out
}

// dedup returns the RenderedFont for `data`, reusing a prior RenderedFont
// with the same content hash (spec invariant: identical font programs
// collapse to one emitted file) or creating and caching a new one.
func (e *Extractor) dedup(data []byte, format string) *RenderedFont {
	digest := hash.Digest(data)
	if rf, ok := e.byHash[digest]; ok {
		return rf
	}
	ext := "ttf"
	if format == "opentype" {
		ext = "otf"
	}
	rf := &RenderedFont{
		Filename: digest + "." + ext,
		Format:   format,
		Data:     data,
		Ascent:   approxAscent,
		Descent:  approxDescent,
	}
	e.byHash[digest] = rf
	return rf
}

// approximate builds a RenderedFont with no font file, used for Type3 fonts
// and any font whose embedded program is missing or unusable. Its metrics
// come from the font descriptor when there is one, otherwise the flat
// defaults. Without a descriptor it also looks up a system font by name,
// but a match is only logged: it changes no metric, and the system font's
// bytes are never shipped (fonts found this way are licensed to the
// machine they're installed on, not to the document).
func (e *Extractor) approximate(font *model.PdfFont, descriptor *model.PdfFontDescriptor) *RenderedFont {
	rf := &RenderedFont{Ascent: approxAscent, Descent: approxDescent}
	if descriptor != nil {
		if a, err := descriptor.GetAscent(); err == nil && a != 0 {
			rf.Ascent = a / approxEm
		}
		if d, err := descriptor.GetDescent(); err == nil && d != 0 {
			rf.Descent = d / approxEm
		}
		return rf
	}

	if match := e.sysfontFinder().Match(baseFamilyName(font.BaseFont())); match != nil {
		// A located system font doesn't improve our (already reasonable)
		// flat metrics enough to be worth opening and parsing its file;
		// its presence just confirms the substitution is plausible.
		common.Log.Debug("matched substitute font %q for %q", match.Name, font.BaseFont())
	}
	return rf
}

// sysfontFinder returns the Extractor's system font finder, building it on
// first use.
func (e *Extractor) sysfontFinder() *sysfont.Finder {
	if e.finder == nil {
		e.finder = sysfont.NewFinder(&sysfont.FinderOpts{Extensions: []string{".ttf", ".ttc", ".otf"}})
	}
	return e.finder
}

// baseFamilyName strips a PDF subset tag ("ABCDEF+ArialMT" -> "ArialMT")
// before handing a font name to the system font finder.
func baseFamilyName(baseFont string) string {
	if len(baseFont) > 7 && baseFont[6] == '+' {
		return baseFont[7:]
	}
	return baseFont
}

// FamilyName returns the CSS font-family identifier the output bundle uses
// for `font`'s @font-face rule and every span that references it: the
// subset-stripped base name if it's usable as a bareword, otherwise the
// generic "pdf-font", shared by every font whose name is unusable.
func FamilyName(font *model.PdfFont) string {
	name := baseFamilyName(font.BaseFont())
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return -1
		}
	}, name)
	if name == "" {
		return "pdf-font"
	}
	return name
}

// embeddedStream resolves and decodes `obj` (a FontFile/FontFile2/FontFile3
// entry) to its raw font program bytes. Returns ok=false if `obj` is nil or
// not a usable stream.
func embeddedStream(res core.Resolver, obj core.PdfObject) ([]byte, bool) {
	if obj == nil {
		return nil, false
	}
	obj = core.TraceToDirectObject(core.Resolve(res, obj))
	stream, ok := core.GetStream(obj)
	if !ok {
		return nil, false
	}
	data, err := core.DecodeStream(stream)
	if err != nil {
		return nil, false
	}
	return data, true
}

// validTrueType reports whether `data` parses as a TrueType/OpenType font
// program, guarding against corrupt FontFile2 streams being shipped as-is.
func validTrueType(data []byte) bool {
	_, err := unitype.Parse(bytes.NewReader(data))
	return err == nil
}
