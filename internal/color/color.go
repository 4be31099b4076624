/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

// Package color converts a resolved PDF color to the CSS color string the
// output HTML/CSS embeds, grounded on the RGB conversions model/colorspace.go
// already implements for every supported colorspace family.
package color

import (
	"fmt"
	"math"

	"github.com/windrose-labs/pdfrender/model"
)

// ToCSS converts `col` in colorspace `cs` to a CSS rgb() string. Colors that
// fail to convert fall back to opaque black rather than aborting the page.
func ToCSS(cs model.PdfColorspace, col model.PdfColor) string {
	if cs == nil || col == nil {
		return "rgb(0, 0, 0)"
	}
	rgbColor, err := cs.ColorToRGB(col)
	if err != nil {
		return "rgb(0, 0, 0)"
	}
	rgb, ok := rgbColor.(*model.PdfColorDeviceRGB)
	if !ok {
		return "rgb(0, 0, 0)"
	}
	return fmt.Sprintf("rgb(%d, %d, %d)", clamp255(rgb.R()), clamp255(rgb.G()), clamp255(rgb.B()))
}

// IsDefaultBlack returns true if `css` is the CSS rendering of the device
// default black color (rgb(0, 0, 0)), used to disqualify background-rectangle
// candidates painted with whatever color happened to be current rather than
// a deliberate fill.
func IsDefaultBlack(css string) bool {
	return css == "rgb(0, 0, 0)"
}

func clamp255(v float64) int {
	v = math.Round(v * 255.0)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return int(v)
}
