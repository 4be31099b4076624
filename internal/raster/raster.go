/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

// Package raster rescales the synthesized PNG images the content stream
// interpreter decodes from image XObjects, so a document converted at a
// non-native DPI gets raster assets resampled to match rather than just
// stretched by the browser via CSS width/height.
package raster

import (
	"bytes"
	"image"
	"image/png"

	"golang.org/x/image/draw"
)

// NativeDPI is the resolution a PDF's unscaled image samples are assumed to
// target: one image pixel per user-space point, the PDF default.
const NativeDPI = 72.0

// Scale re-encodes a PNG image at `factor` times its original pixel
// dimensions, using a high-quality interpolator. factor <= 0 or
// approximately 1 returns data unchanged, since resampling a 1:1 image only
// loses quality for no benefit.
func Scale(data []byte, factor float64) ([]byte, error) {
	if factor <= 0 || (factor > 0.999 && factor < 1.001) {
		return data, nil
	}

	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	sb := src.Bounds()
	dw := max(1, int(float64(sb.Dx())*factor))
	dh := max(1, int(float64(sb.Dy())*factor))
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))

	interpolator := draw.CatmullRom
	if factor < 1 {
		// Downscaling: a cheaper kernel is enough and avoids ringing
		// artifacts CatmullRom can introduce when shrinking.
		interpolator = draw.BiLinear
	}
	interpolator.Scale(dst, dst.Bounds(), src, sb, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FactorForDPI returns the scale factor to apply to a PDF-native (72 DPI)
// raster image so it renders at `dpi` instead.
func FactorForDPI(dpi float64) float64 {
	if dpi <= 0 {
		return 1
	}
	return dpi / NativeDPI
}
