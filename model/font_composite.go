/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package model

import (
	"fmt"

	"github.com/windrose-labs/pdfrender/common"
	"github.com/windrose-labs/pdfrender/core"
	"github.com/windrose-labs/pdfrender/internal/cmap"
	"github.com/windrose-labs/pdfrender/internal/textencoding"
	"github.com/windrose-labs/pdfrender/model/internal/fonts"
)

/*
   9.7.2 CID-Keyed Fonts Overview (page 267)
   The CID-keyed font architecture specifies the external representation of certain font programs,
   called *CMap* and *CIDFont* files, along with some conventions for combining and using those files.

   A *CMap* (character map) file shall specify the correspondence between character codes and the CID
   numbers used to identify glyphs. It is equivalent to the concept of an encoding in simple fonts.
   Whereas a simple font allows a maximum of 256 glyphs to be encoded and accessible at one time, a
   CMap can describe a mapping from multiple-byte codes to thousands of glyphs in a large CID-keyed
   font.

   9.7.4 CIDFonts (page 269)

   A CIDFont program contains glyph descriptions that are accessed using a CID as the character
   selector. There are two types of CIDFonts:
   • A Type 0 CIDFont contains glyph descriptions based on CFF
   • A Type 2 CIDFont contains glyph descriptions based on the TrueType font format

   A CIDFont dictionary is a PDF object that contains information about a CIDFont program. Although
   its Type value is Font, a CIDFont is not actually a font.
       It does not have an Encoding entry,
       it may not be listed in the Font subdictionary of a resource dictionary, and
       it may not be used as the operand of the Tf operator.
       It shall be used only as a descendant of a Type 0 font.
   The CMap in the Type 0 font shall be what defines the encoding that maps character codes to CIDs
   in  the CIDFont.

    9.7.6 Type 0 Font Dictionaries (page 279)

    Type      Font
    Subtype   Type0
    BaseFont  (Required) The name of the font. If the descendant is a Type 0 CIDFont, this name
              should be the concatenation of the CIDFont’s BaseFont name, a hyphen, and the CMap
              name given in the Encoding entry (or the CMapName entry in the CMap). If the
              descendant is a Type 2 CIDFont, this name should be the same as the CIDFont’s BaseFont
              name.
              NOTE In principle, this is an arbitrary name, since there is no font program
                   associated directly with a Type 0 font dictionary. The conventions described here
                   ensure maximum compatibility with existing readers.
    Encoding name or stream (Required)
             The name of a predefined CMap, or a stream containing a CMap that maps character codes
             to font numbers and CIDs. If the descendant is a Type 2 CIDFont whose associated
             TrueType font program is not embedded in the PDF file, the Encoding entry shall be a
             predefined CMap name (see 9.7.4.2, "Glyph Selection in CIDFonts").

    Type 0 font from 000046.pdf

    103 0 obj
    << /Type /Font /Subtype /Type0 /Encoding /Identity-H /DescendantFonts [179 0 R]
    /BaseFont /FLDOLC+PingFangSC-Regular >>
    endobj
    179 0 obj
    << /Type /Font /Subtype /CIDFontType0 /BaseFont /FLDOLC+PingFangSC-Regular
    /CIDSystemInfo << /Registry (Adobe) /Ordering (Identity) /Supplement 0 >>
    /W 180 0 R /DW 1000 /FontDescriptor 181 0 R >>
    endobj
    180 0 obj
    [ ]
    endobj
    181 0 obj
    << /Type /FontDescriptor /FontName /FLDOLC+PingFangSC-Regular /Flags 4 /FontBBox
    [-123 -263 1177 1003] /ItalicAngle 0 /Ascent 972 /Descent -232 /CapHeight
    864 /StemV 70 /XHeight 648 /StemH 64 /AvgWidth 1000 /MaxWidth 1300 /FontFile3
    182 0 R >>
    endobj
    182 0 obj
    << /Length 183 0 R /Subtype /CIDFontType0C /Filter /FlateDecode >>
    stream
    ....
*/

// pdfFontType0 implements pdfFont
var _ pdfFont = (*pdfFontType0)(nil)

// pdfFontType0 represents a Type0 font in PDF. Used for composite fonts which can encode multiple
// bytes for complex symbols (e.g. used in Asian languages). Represents the root font whereas the
// associated CIDFont is called its descendant.
type pdfFontType0 struct {
	fontCommon
	container *core.PdfIndirectObject

	// These fields are specific to Type 0 fonts.
	encoder        textencoding.TextEncoder
	Encoding       core.PdfObject
	DescendantFont *PdfFont // Can be either CIDFontType0 or CIDFontType2 font.
	codeToCID      *cmap.CMap
}

// pdfFontType0FromSkeleton returns a pdfFontType0 with its common fields initalized.
func pdfFontType0FromSkeleton(base *fontCommon) *pdfFontType0 {
	return &pdfFontType0{
		fontCommon: *base,
	}
}

// baseFields returns the fields of `font` that are common to all PDF fonts.
func (font *pdfFontType0) baseFields() *fontCommon {
	return &font.fontCommon
}

func (font *pdfFontType0) getFontDescriptor() *PdfFontDescriptor {
	if font.fontDescriptor == nil && font.DescendantFont != nil {
		return font.DescendantFont.FontDescriptor()
	}
	return font.fontDescriptor
}

// GetRuneMetrics returns the character metrics for the specified rune.
// A bool flag is returned to indicate whether or not the entry was found.
func (font pdfFontType0) GetRuneMetrics(r rune) (fonts.CharMetrics, bool) {
	if font.DescendantFont == nil {
		common.Log.Debug("ERROR: No descendant. font=%s", font)
		return fonts.CharMetrics{}, false
	}
	return font.DescendantFont.GetRuneMetrics(r)
}

// GetCharMetrics returns the char metrics for character code `code`.
func (font pdfFontType0) GetCharMetrics(code textencoding.CharCode) (fonts.CharMetrics, bool) {
	if font.DescendantFont == nil {
		common.Log.Debug("ERROR: No descendant. font=%s", font)
		return fonts.CharMetrics{}, false
	}
	return font.DescendantFont.GetCharMetrics(code)
}

// Encoder returns the font's text encoder.
func (font pdfFontType0) Encoder() textencoding.TextEncoder {
	return font.encoder
}

// bytesToCharcodes attempts to convert the specified byte slice to charcodes,
// based on the font's charcode to CID CMap.
func (font *pdfFontType0) bytesToCharcodes(data []byte) ([]textencoding.CharCode, bool) {
	if font.codeToCID == nil {
		return nil, false
	}

	codes, ok := font.codeToCID.BytesToCharcodes(data)
	if !ok {
		return nil, false
	}

	charcodes := make([]textencoding.CharCode, len(codes))
	for i, code := range codes {
		charcodes[i] = textencoding.CharCode(code)
	}

	return charcodes, true
}

// ToPdfObject returns the PDF dictionary representation of the font, with
// its descendant font and its encoding.
func (font *pdfFontType0) ToPdfObject() core.PdfObject {
	if font.container == nil {
		font.container = &core.PdfIndirectObject{}
	}
	d := font.baseFields().asPdfObjectDictionary("Type0")
	font.container.PdfObject = d
	if font.Encoding != nil {
		d.Set("Encoding", font.Encoding)
	} else if font.encoder != nil {
		d.Set("Encoding", font.encoder.ToPdfObject())
	}
	if font.DescendantFont != nil {
		d.Set("DescendantFonts", core.MakeArray(font.DescendantFont.ToPdfObject()))
	}
	return font.container
}

// newPdfFontType0FromPdfObject makes a pdfFontType0 based on the input `d` in base.
// If a problem is encountered, an error is returned.
func newPdfFontType0FromPdfObject(d *core.PdfObjectDictionary, base *fontCommon) (*pdfFontType0, error) {
	// DescendantFonts.
	arr, ok := core.GetArray(d.Get("DescendantFonts"))
	if !ok {
		common.Log.Debug("ERROR: Invalid DescendantFonts - not an array %s", base)
		return nil, core.ErrRangeError
	}
	if arr.Len() != 1 {
		common.Log.Debug("ERROR: Array length != 1 (%d)", arr.Len())
		return nil, core.ErrRangeError
	}
	df, err := newPdfFontFromPdfObject(arr.Get(0), false)
	if err != nil {
		common.Log.Debug("ERROR: Failed loading descendant font: err=%v %s", err, base)
		return nil, err
	}

	font := pdfFontType0FromSkeleton(base)
	font.DescendantFont = df

	encoderName, ok := core.GetNameVal(d.Get("Encoding"))
	if ok {
		// TODO: Identity-H maps 16-bit character codes straight to glyph index (don't need actual runes).
		if encoderName == "Identity-H" || encoderName == "Identity-V" {
			font.encoder = textencoding.NewIdentityTextEncoder(encoderName)
		} else if cmap.IsPredefinedCMap(encoderName) {
			font.codeToCID, err = cmap.LoadPredefinedCMap(encoderName)
			if err != nil {
				common.Log.Debug("WARN: could not load predefined CMap %s: %v", encoderName, err)
			}
		} else {
			common.Log.Debug("Unhandled cmap %q", encoderName)
		}
	}

	if cidToUnicode := df.baseFields().toUnicodeCmap; cidToUnicode != nil {
		if dfn := cidToUnicode.Name(); dfn == "Adobe-CNS1-UCS2" || dfn == "Adobe-GB1-UCS2" ||
			dfn == "Adobe-Japan1-UCS2" || dfn == "Adobe-Korea1-UCS2" {
			font.encoder = textencoding.NewCMapEncoder(encoderName, font.codeToCID, cidToUnicode)
		}
	}

	return font, nil
}

// pdfCIDFontType0 implements pdfFont
var _ pdfFont = (*pdfCIDFontType0)(nil)

// pdfCIDFontType0 represents a CIDFont Type0 font dictionary.
type pdfCIDFontType0 struct {
	fontCommon
	container *core.PdfIndirectObject

	// These fields are specific to Type 0 fonts.
	encoder textencoding.TextEncoder

	// Table 117 – Entries in a CIDFont dictionary (page 269)
	// (Required) Dictionary that defines the character collection of the CIDFont.
	// See Table 116.
	CIDSystemInfo *core.PdfObjectDictionary

	// Glyph metrics fields (optional).
	DW  core.PdfObject // default glyph width.
	W   core.PdfObject // glyph widths array.
	DW2 core.PdfObject // default glyph metrics for CID fonts used for vertical writing.
	W2  core.PdfObject // glyph metrics for CID fonts used for vertical writing.

	widths       map[textencoding.CharCode]float64
	defaultWidth float64
}

// pdfCIDFontType0FromSkeleton returns a pdfCIDFontType0 with its common fields initalized.
func pdfCIDFontType0FromSkeleton(base *fontCommon) *pdfCIDFontType0 {
	return &pdfCIDFontType0{
		fontCommon: *base,
	}
}

// baseFields returns the fields of `font` that are common to all PDF fonts.
func (font *pdfCIDFontType0) baseFields() *fontCommon {
	return &font.fontCommon
}

func (font *pdfCIDFontType0) getFontDescriptor() *PdfFontDescriptor {
	return font.fontDescriptor
}

// Encoder returns the font's text encoder.
func (font pdfCIDFontType0) Encoder() textencoding.TextEncoder {
	return font.encoder
}

// GetRuneMetrics returns the character metrics for the specified rune.
// A bool flag is returned to indicate whether or not the entry was found.
func (font pdfCIDFontType0) GetRuneMetrics(r rune) (fonts.CharMetrics, bool) {
	return fonts.CharMetrics{Wx: font.defaultWidth}, true
}

// GetCharMetrics returns the char metrics for character code `code`.
func (font pdfCIDFontType0) GetCharMetrics(code textencoding.CharCode) (fonts.CharMetrics, bool) {
	width := font.defaultWidth
	if w, ok := font.widths[code]; ok {
		width = w
	}

	return fonts.CharMetrics{Wx: width}, true
}

// ToPdfObject converts the pdfCIDFontType0 to a PDF representation.
func (font *pdfCIDFontType0) ToPdfObject() core.PdfObject {
	return core.MakeNull()
}

// newPdfCIDFontType0FromPdfObject creates a pdfCIDFontType0 object from a dictionary (either direct
// or via indirect object). If a problem occurs with loading an error is returned.
func newPdfCIDFontType0FromPdfObject(d *core.PdfObjectDictionary, base *fontCommon) (*pdfCIDFontType0, error) {
	if base.subtype != "CIDFontType0" {
		common.Log.Debug("ERROR: Font SubType != CIDFontType0. font=%s", base)
		return nil, core.ErrRangeError
	}

	font := pdfCIDFontType0FromSkeleton(base)

	// CIDSystemInfo.
	obj, ok := core.GetDict(d.Get("CIDSystemInfo"))
	if !ok {
		common.Log.Debug("ERROR: CIDSystemInfo (Required) missing. font=%s", base)
		return nil, ErrRequiredAttributeMissing
	}
	font.CIDSystemInfo = obj

	// Optional attributes.
	font.DW = d.Get("DW")
	font.W = d.Get("W")
	font.DW2 = d.Get("DW2")
	font.W2 = d.Get("W2")

	// Get font default glyph width.
	font.defaultWidth = 1000.0
	if dw, err := core.GetNumberAsFloat(font.DW); err == nil {
		font.defaultWidth = dw
	}

	// Parse glyph widths array, if one is present.
	fontWidths, err := parseCIDFontWidthsArray(font.W)
	if err != nil {
		return nil, err
	}
	if fontWidths == nil {
		fontWidths = map[textencoding.CharCode]float64{}
	}
	font.widths = fontWidths

	return font, nil
}

// pdfCIDFontType2 implements pdfFont
var _ pdfFont = (*pdfCIDFontType2)(nil)

// pdfCIDFontType2 represents a CIDFont Type2 font dictionary.
type pdfCIDFontType2 struct {
	fontCommon
	container *core.PdfIndirectObject

	// These fields are specific to Type 0 fonts.
	encoder textencoding.TextEncoder

	// Table 117 – Entries in a CIDFont dictionary (page 269)
	// Dictionary that defines the character collection of the CIDFont (required).
	// See Table 116.
	CIDSystemInfo *core.PdfObjectDictionary

	// Glyph metrics fields (optional).
	DW  core.PdfObject // default glyph width.
	W   core.PdfObject // glyph widths array.
	DW2 core.PdfObject // default glyph metrics for CID fonts used for vertical writing.
	W2  core.PdfObject // glyph metrics for CID fonts used for vertical writing.

	// CIDs to glyph indices mapping (optional).
	CIDToGIDMap core.PdfObject

	widths       map[textencoding.CharCode]float64
	defaultWidth float64

	// Mapping between unicode runes to widths.
	// TODO(dennwc): it is used only in GetGlyphCharMetrics
	//  			 we can precompute metrics and drop it
	runeToWidthMap map[rune]int
}

// pdfCIDFontType2FromSkeleton returns a pdfCIDFontType2 with its common fields initalized.
func pdfCIDFontType2FromSkeleton(base *fontCommon) *pdfCIDFontType2 {
	return &pdfCIDFontType2{
		fontCommon: *base,
	}
}

// baseFields returns the fields of `font` that are common to all PDF fonts.
func (font *pdfCIDFontType2) baseFields() *fontCommon {
	return &font.fontCommon
}

func (font *pdfCIDFontType2) getFontDescriptor() *PdfFontDescriptor {
	return font.fontDescriptor
}

// Encoder returns the font's text encoder.
func (font pdfCIDFontType2) Encoder() textencoding.TextEncoder {
	return font.encoder
}

// GetRuneMetrics returns the character metrics for the specified rune.
// A bool flag is returned to indicate whether or not the entry was found.
func (font pdfCIDFontType2) GetRuneMetrics(r rune) (fonts.CharMetrics, bool) {
	w, found := font.runeToWidthMap[r]
	if !found {
		dw, ok := core.GetIntVal(font.DW)
		if !ok {
			return fonts.CharMetrics{}, false
		}
		w = dw
	}
	return fonts.CharMetrics{Wx: float64(w)}, true
}

// GetCharMetrics returns the char metrics for character code `code`.
func (font pdfCIDFontType2) GetCharMetrics(code textencoding.CharCode) (fonts.CharMetrics, bool) {
	if w, ok := font.widths[code]; ok {
		return fonts.CharMetrics{Wx: float64(w)}, true
	}
	// TODO(peterwilliams97): The remainder of this function is pure guesswork. Explain it.
	// FIXME(gunnsth): Appears that we are assuming a code <-> rune identity mapping.
	r := rune(code)
	w, ok := font.runeToWidthMap[r]
	if !ok {
		w = int(font.defaultWidth)
	}
	return fonts.CharMetrics{Wx: float64(w)}, true
}

// ToPdfObject converts the pdfCIDFontType2 to a PDF representation.
func (font *pdfCIDFontType2) ToPdfObject() core.PdfObject {
	if font.container == nil {
		font.container = &core.PdfIndirectObject{}
	}
	d := font.baseFields().asPdfObjectDictionary("CIDFontType2")
	font.container.PdfObject = d

	if font.CIDSystemInfo != nil {
		d.Set("CIDSystemInfo", font.CIDSystemInfo)
	}
	if font.DW != nil {
		d.Set("DW", font.DW)
	}
	if font.DW2 != nil {
		d.Set("DW2", font.DW2)
	}
	if font.W != nil {
		d.Set("W", font.W)
	}
	if font.W2 != nil {
		d.Set("W2", font.W2)
	}
	if font.CIDToGIDMap != nil {
		d.Set("CIDToGIDMap", font.CIDToGIDMap)
	}

	return font.container
}

// newPdfCIDFontType2FromPdfObject creates a pdfCIDFontType2 object from a dictionary (either direct
// or via indirect object). If a problem occurs with loading, an error is returned.
func newPdfCIDFontType2FromPdfObject(d *core.PdfObjectDictionary, base *fontCommon) (*pdfCIDFontType2, error) {
	if base.subtype != "CIDFontType2" {
		common.Log.Debug("ERROR: Font SubType != CIDFontType2. font=%s", base)
		return nil, core.ErrRangeError
	}

	font := pdfCIDFontType2FromSkeleton(base)

	// CIDSystemInfo.
	obj, ok := core.GetDict(d.Get("CIDSystemInfo"))
	if !ok {
		common.Log.Debug("ERROR: CIDSystemInfo (Required) missing. font=%s", base)
		return nil, ErrRequiredAttributeMissing
	}
	font.CIDSystemInfo = obj

	// Optional attributes.
	font.DW = d.Get("DW")
	font.W = d.Get("W")
	font.DW2 = d.Get("DW2")
	font.W2 = d.Get("W2")
	font.CIDToGIDMap = d.Get("CIDToGIDMap")

	// Get font default glyph width.
	font.defaultWidth = 1000.0
	if dw, err := core.GetNumberAsFloat(font.DW); err == nil {
		font.defaultWidth = dw
	}

	// Parse glyph widths array, if one is present.
	fontWidths, err := parseCIDFontWidthsArray(font.W)
	if err != nil {
		return nil, err
	}
	if fontWidths == nil {
		fontWidths = map[textencoding.CharCode]float64{}
	}
	font.widths = fontWidths

	return font, nil
}

func parseCIDFontWidthsArray(w core.PdfObject) (map[textencoding.CharCode]float64, error) {
	if w == nil {
		return nil, nil
	}

	wArr, ok := core.GetArray(w)
	if !ok {
		return nil, nil
	}

	fontWidths := map[textencoding.CharCode]float64{}
	wArrLen := wArr.Len()
	for i := 0; i < wArrLen-1; i++ {
		obj0 := core.TraceToDirectObject(wArr.Get(i))
		n, ok0 := core.GetIntVal(obj0)
		if !ok0 {
			return nil, fmt.Errorf("Bad font W obj0: i=%d %#v", i, obj0)
		}
		i++
		if i > wArrLen-1 {
			return nil, fmt.Errorf("Bad font W array: arr2=%+v", wArr)
		}

		obj1 := core.TraceToDirectObject(wArr.Get(i))
		switch obj1.(type) {
		case *core.PdfObjectArray:
			arr, _ := core.GetArray(obj1)
			if widths, err := arr.ToFloat64Array(nil); err == nil {
				for j := 0; j < len(widths); j++ {
					fontWidths[textencoding.CharCode(n+j)] = widths[j]
				}
			} else {
				return nil, fmt.Errorf("Bad font W array obj1: i=%d %#v", i, obj1)
			}
		case *core.PdfObjectInteger:
			n1, ok1 := core.GetIntVal(obj1)
			if !ok1 {
				return nil, fmt.Errorf("Bad font W int obj1: i=%d %#v", i, obj1)
			}
			i++
			if i > wArrLen-1 {
				return nil, fmt.Errorf("Bad font W array: arr2=%+v", wArr)
			}

			obj2 := wArr.Get(i)
			v, err := core.GetNumberAsFloat(obj2)
			if err != nil {
				return nil, fmt.Errorf("Bad font W int obj2: i=%d %#v", i, obj2)
			}

			for j := n; j <= n1; j++ {
				fontWidths[textencoding.CharCode(j)] = v
			}
		default:
			return nil, fmt.Errorf("Bad font W obj1 type: i=%d %#v", i, obj1)
		}
	}

	return fontWidths, nil
}

// TTF-based composite font construction is a write-direction concern
// (embedding a font program for PDF generation) and has no place in a
// read-only rendering engine.
