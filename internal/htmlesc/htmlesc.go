/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

// Package htmlesc escapes text spans extracted from a content stream for
// safe inclusion in the assembled HTML bundle.
package htmlesc

import "golang.org/x/net/html"

// EscapeString escapes `s` for use as HTML text content.
func EscapeString(s string) string {
	return html.EscapeString(s)
}

// EscapeAttr escapes `s` for use inside a double-quoted HTML attribute
// value. html.EscapeString already escapes the quote and ampersand
// characters that matter inside an attribute, so it does double duty here.
func EscapeAttr(s string) string {
	return html.EscapeString(s)
}
