/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

// Package ligature expands the typographic ligatures PDF fonts commonly
// encode as single glyphs (fi, fl, ffi...) back into their component
// letters, and normalizes compatibility characters via NFKD, so extracted
// text searches and copies the way a reader expects rather than preserving
// glyph-level presentation forms.
package ligature

import "golang.org/x/text/unicode/norm"

// expansions maps single-rune ligature glyphs (and a handful of Unicode
// Alphabetic Presentation Forms PDF font subsets sometimes emit directly,
// outside of NFKD's own decomposition table) to their expanded spelling.
var expansions = map[rune]string{
	'ﬀ': "ff",
	'ﬁ': "fi",
	'ﬂ': "fl",
	'ﬃ': "ffi",
	'ﬄ': "ffl",
	'ﬅ': "st",
	'ﬆ': "st",
	'Ĳ': "IJ",
	'ĳ': "ij",
	'Œ': "OE",
	'œ': "oe",
}

// Expand normalizes `s` to NFKD (which already decomposes most compatibility
// ligatures) and then substitutes the remaining entries in `expansions`.
func Expand(s string) string {
	s = norm.NFKD.String(s)
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if rep, ok := expansions[r]; ok {
			out = append(out, []rune(rep)...)
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
