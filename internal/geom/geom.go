/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

// Package geom provides small geometric helpers shared by the content
// stream interpreter: point distance, rectangle containment and the
// axis-aligned bounding box tests used for background detection and
// span merging.
package geom

import "math"

// Point is a 2D point in PDF user space (or CSS pixel space, depending on
// the caller).
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle described by its minimum corner (X, Y)
// and its size (W, H).
type Rect struct {
	X, Y, W, H float64
}

// NewRectFromPoints builds the smallest Rect enclosing the four points.
func NewRectFromPoints(pts ...Point) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Contains returns true if `p` lies within `r`, inclusive of its edges.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// CoversPage returns true if `r` covers at least `frac` of a page sized
// `pageW`x`pageH`. Used by background-rectangle detection, which requires
// width and height to each reach 90% of the page.
func (r Rect) CoversPage(pageW, pageH, frac float64) bool {
	if pageW <= 0 || pageH <= 0 {
		return false
	}
	return r.W >= frac*pageW && r.H >= frac*pageH
}

// Dist returns the Euclidean distance between `a` and `b`.
func Dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// SameBaseline returns true when `a` and `b` sit within `tol` vertical
// pixels of each other, the test used to decide whether two text draws
// belong on the same visual line.
func SameBaseline(a, b Point, tol float64) bool {
	return math.Abs(a.Y-b.Y) <= tol
}
