/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package fonts

import (
	"github.com/windrose-labs/pdfrender/core"
	"github.com/windrose-labs/pdfrender/internal/textencoding"
)

// StdFontName is a name of a standard font.
type StdFontName string

// FontWeight specified font weight.
type FontWeight int

// Font weights
const (
	FontWeightMedium FontWeight = iota // Medium
	FontWeightBold                     // Bold
	FontWeightRoman                    // Roman
)

// Descriptor describes geometric properties of a font.
type Descriptor struct {
	Name        StdFontName
	Family      string
	Weight      FontWeight
	Flags       uint
	BBox        [4]float64
	ItalicAngle float64
	Ascent      float64
	Descent     float64
	CapHeight   float64
	XHeight     float64
	StemV       float64
	StemH       float64
}

var stdFonts = make(map[StdFontName]func() StdFont)

// IsStdFont check if a name is registered for a standard font.
func IsStdFont(name StdFontName) bool {
	_, ok := stdFonts[name]
	return ok
}

// NewStdFontByName creates a new StdFont by registered name. See RegisterStdFont.
func NewStdFontByName(name StdFontName) (StdFont, bool) {
	fnc, ok := stdFonts[name]
	if !ok {
		return StdFont{}, false
	}
	return fnc(), true
}

// RegisterStdFont registers a given StdFont constructor by font name. Font can then be created with NewStdFontByName.
func RegisterStdFont(name StdFontName, fnc func() StdFont, aliases ...StdFontName) {
	if _, ok := stdFonts[name]; ok {
		panic("font already registered: " + string(name))
	}
	stdFonts[name] = fnc
	for _, alias := range aliases {
		RegisterStdFont(alias, fnc)
	}
}

var _ Font = StdFont{}

// StdFont represents one of the built-in fonts and it is assumed that every reader has access to it.
type StdFont struct {
	desc    Descriptor
	metrics map[rune]CharMetrics
	encoder textencoding.TextEncoder
}

// NewStdFont returns a new instance of the font with a default encoder set (StandardEncoding).
func NewStdFont(desc Descriptor, metrics map[rune]CharMetrics) StdFont {
	return NewStdFontWithEncoding(desc, metrics, textencoding.NewStandardEncoder())
}

// NewStdFontWithEncoding returns a new instance of the font with a specified encoder.
func NewStdFontWithEncoding(desc Descriptor, metrics map[rune]CharMetrics, encoder textencoding.TextEncoder) StdFont {
	var nbsp rune = 0xA0
	if _, ok := metrics[nbsp]; !ok {
		// Use same metrics for 0xA0 (no-break space) and 0x20 (space).
		metrics[nbsp] = metrics[0x20]
	}

	return StdFont{
		desc:    desc,
		metrics: metrics,
		encoder: encoder,
	}
}

// Name returns a PDF name of the font.
func (font StdFont) Name() string {
	return string(font.desc.Name)
}

// Encoder returns the font's text encoder.
func (font StdFont) Encoder() textencoding.TextEncoder {
	return font.encoder
}

// GetRuneMetrics returns character metrics for a given rune.
func (font StdFont) GetRuneMetrics(r rune) (CharMetrics, bool) {
	metrics, has := font.metrics[r]
	return metrics, has
}

// GetMetricsTable is a method specific to standard fonts. It returns the metrics table of all glyphs.
// Caller should not modify the table.
func (font StdFont) GetMetricsTable() map[rune]CharMetrics {
	return font.metrics
}

// Descriptor returns a font descriptor.
func (font StdFont) Descriptor() Descriptor {
	return font.desc
}

// ToPdfObject returns a primitive PDF object representation of the font.
func (font StdFont) ToPdfObject() core.PdfObject {
	fontDict := core.MakeDict()
	fontDict.Set("Type", core.MakeName("Font"))
	fontDict.Set("Subtype", core.MakeName("Type1"))
	fontDict.Set("BaseFont", core.MakeName(font.Name()))
	fontDict.Set("Encoding", font.encoder.ToPdfObject())

	return core.MakeIndirectObject(fontDict)
}

// type1CommonRunes is list of runes common for some Type1 fonts. Used to unpack character metrics.
var type1CommonRunes = []rune{
	'A', 'ГҶ', 'ГҒ', 'ДӮ', 'ГӮ', 'Г„', 'ГҖ', 'ДҖ', 'Д„', 'Г…',
	'Гғ', 'B', 'C', 'ДҶ', 'ДҢ', 'ГҮ', 'D', 'ДҺ', 'Дҗ', 'вҲҶ',
	'E', 'Гү', 'Дҡ', 'ГҠ', 'ГӢ', 'Д–', 'ГҲ', 'Д’', 'Дҳ', 'Гҗ',
	'вӮ¬', 'F', 'G', 'Дһ', 'Дў', 'H', 'I', 'ГҚ', 'ГҺ', 'ГҸ',
	'Д°', 'ГҢ', 'ДӘ', 'Д®', 'J', 'K', 'Д¶', 'L', 'Д№', 'ДҪ',
	'Д»', 'ЕҒ', 'M', 'N', 'Еғ', 'ЕҮ', 'Е…', 'Г‘', 'O', 'Е’',
	'Г“', 'Г”', 'Г–', 'Г’', 'Еҗ', 'ЕҢ', 'Гҳ', 'Г•', 'P', 'Q',
	'R', 'Е”', 'Еҳ', 'Е–', 'S', 'Еҡ', 'Е ', 'Еһ', 'Иҳ', 'T',
	'ЕӨ', 'Еў', 'Гһ', 'U', 'Гҡ', 'Гӣ', 'Гң', 'Гҷ', 'Е°', 'ЕӘ',
	'ЕІ', 'Е®', 'V', 'W', 'X', 'Y', 'Гқ', 'Её', 'Z', 'Е№',
	'ЕҪ', 'Е»', 'a', 'ГЎ', 'Дғ', 'Гў', 'Вҙ', 'ГӨ', 'ГҰ', 'Г ',
	'ДҒ', '&', 'Д…', 'ГҘ', '^', '~', '*', '@', 'ГЈ', 'b',
	'\\', '|', '{', '}', '[', ']', 'Лҳ', 'ВҰ', 'вҖў', 'c',
	'ДҮ', 'ЛҮ', 'ДҚ', 'Г§', 'Вё', 'Вў', 'ЛҶ', ':', ',', '\uf6c3',
	'В©', 'ВӨ', 'd', 'вҖ ', 'вҖЎ', 'ДҸ', 'Д‘', 'В°', 'ВЁ', 'Г·',
	'$', 'Лҷ', 'Дұ', 'e', 'Г©', 'Дӣ', 'ГӘ', 'Г«', 'Д—', 'ГЁ',
	'8', 'вҖҰ', 'Д“', 'вҖ”', 'вҖ“', 'Дҷ', '=', 'Г°', '!', 'ВЎ',
	'f', 'п¬Ғ', '5', 'п¬Ӯ', 'Ж’', '4', 'вҒ„', 'g', 'Дҹ', 'ДЈ',
	'Гҹ', '`', '>', 'вүҘ', 'В«', 'В»', 'вҖ№', 'вҖә', 'h', 'Лқ',
	'-', 'i', 'Гӯ', 'Г®', 'ГҜ', 'Г¬', 'Д«', 'ДҜ', 'j', 'k',
	'Д·', 'l', 'Дә', 'Дҫ', 'Дј', '<', 'вүӨ', 'В¬', 'в—Ҡ', 'ЕӮ',
	'm', 'ВҜ', 'вҲ’', 'Вө', 'Г—', 'n', 'Е„', 'ЕҲ', 'ЕҶ', '9',
	'вү ', 'Гұ', '#', 'o', 'Гі', 'Гҙ', 'Г¶', 'Е“', 'Лӣ', 'ГІ',
	'Е‘', 'ЕҚ', '1', 'ВҪ', 'Вј', 'В№', 'ВӘ', 'Вә', 'Гё', 'Гө',
	'p', 'В¶', '(', ')', 'вҲӮ', '%', '.', 'В·', 'вҖ°', '+',
	'Вұ', 'q', '?', 'Вҝ', '"', 'вҖһ', 'вҖң', 'вҖқ', 'вҖҳ', 'вҖҷ',
	'вҖҡ', '\'', 'r', 'Е•', 'вҲҡ', 'Еҷ', 'Е—', 'В®', 'Лҡ', 's',
	'Еӣ', 'ЕЎ', 'Еҹ', 'Иҷ', 'В§', ';', '7', '6', '/', ' ',
	'ВЈ', 'вҲ‘', 't', 'ЕҘ', 'ЕЈ', 'Гҫ', '3', 'Вҫ', 'Ві', 'Лң',
	'в„ў', '2', 'ВІ', 'u', 'Гә', 'Г»', 'Гј', 'Г№', 'Еұ', 'Е«',
	'_', 'Еі', 'ЕҜ', 'v', 'w', 'x', 'y', 'ГҪ', 'Гҝ', 'ВҘ',
	'z', 'Еә', 'Еҫ', 'Еј', '0',
}
