// seehuhn.de/go/dvi - render TeX DVI files to raster images
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package raster converts glyph outlines into anti-aliased coverage masks.
//
// The rasteriser accumulates signed area and cover values per pixel, in the
// style of font rasterisers like stb_truetype and font-rs.  Small shapes
// are processed with a two-dimensional accumulation buffer, larger ones
// with an active edge list and one scanline buffer.
package raster

import (
	"cmp"
	"image"
	"math"
	"slices"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// Rule selects how the inside of a path is determined.
type Rule int

// These are the supported fill rules.
const (
	NonZero Rule = iota
	EvenOdd
)

// edge is a line segment in device coordinates, with y0 != y1.
type edge struct {
	x0, y0     float64
	x1, y1     float64
	dxdy       float64
	yMin, yMax float64
}

func (e *edge) xAt(y float64) float64 {
	return e.x0 + e.dxdy*(y-e.y0)
}

// Rasteriser fills paths and reports the pixel coverage.
// A Rasteriser keeps its buffers between calls, so that in the steady
// state no allocations are needed.  It must not be used concurrently.
type Rasteriser struct {
	// CTM maps path coordinates to device pixels.
	CTM matrix.Matrix

	// Clip limits the output region, in device pixels.
	// The coordinates must be integers.
	Clip rect.Rect

	// Flatness is the maximal distance, in device pixels, between a curve
	// and the line segments used to approximate it.
	Flatness float64

	smallArea int

	edges     []edge
	active    []int
	crossings []float64
	cover     []float32
	area      []float32
	rowHit    []bool

	haveBox    bool
	xMin, xMax float64
	yMin, yMax float64
}

const (
	defaultFlatness = 0.25

	// Shapes whose bounding box covers fewer pixels than this are filled
	// using a two-dimensional buffer.
	defaultSmallArea = 65536

	// Edges with a smaller vertical extent do not contribute coverage.
	minEdgeHeight = 1e-10
)

// New returns a rasteriser with the identity transformation.
func New(clip rect.Rect) *Rasteriser {
	r := &Rasteriser{}
	r.Reset(clip)
	return r
}

// Reset restores the default settings, keeping the allocated buffers.
func (r *Rasteriser) Reset(clip rect.Rect) {
	r.CTM = matrix.Identity
	r.Clip = clip
	r.Flatness = defaultFlatness
	r.smallArea = defaultSmallArea
}

// Fill rasterises the path p.  For every pixel row with non-zero coverage,
// emit is called with the row index, the first covered column and the
// coverage values in the range 0 to 1.  The coverage slice is only valid
// during the call.
func (r *Rasteriser) Fill(p *path.Data, rule Rule, emit func(y, xMin int, coverage []float32)) {
	box, ok := r.collect(p)
	if !ok {
		return
	}
	box = box.Intersect(image.Rect(int(r.Clip.LLx), int(r.Clip.LLy), int(r.Clip.URx), int(r.Clip.URy)))
	if box.Empty() {
		return
	}
	r.fill(box, rule, emit)
}

// Bounds returns the smallest pixel rectangle which contains the
// transformed path.  The clip rectangle is ignored.
func (r *Rasteriser) Bounds(p *path.Data) image.Rectangle {
	box, _ := r.collect(p)
	return box
}

// Mask rasterises p into a new alpha mask which just covers the shape.
// Without anti-aliasing, pixels with at least half coverage are set and
// all others are cleared.  The clip rectangle is ignored.  Mask returns
// nil if the path covers no pixels.
func (r *Rasteriser) Mask(p *path.Data, rule Rule, antiAlias bool) *image.Alpha {
	box, ok := r.collect(p)
	if !ok {
		return nil
	}
	img := image.NewAlpha(box)
	r.fill(box, rule, func(y, xMin int, coverage []float32) {
		row := img.Pix[img.PixOffset(xMin, y):]
		for i, c := range coverage {
			switch {
			case antiAlias:
				row[i] = uint8(c*255 + 0.5)
			case c >= 0.5:
				row[i] = 255
			}
		}
	})
	return img
}

func (r *Rasteriser) fill(box image.Rectangle, rule Rule, emit func(y, xMin int, coverage []float32)) {
	if box.Dx()*box.Dy() < r.smallArea {
		r.fillSmall(box, rule, emit)
	} else {
		r.fillLarge(box, rule, emit)
	}
}

// collect flattens the path into the edge list and returns the pixel
// bounding box of the edges.  Open subpaths are closed implicitly.
func (r *Rasteriser) collect(p *path.Data) (image.Rectangle, bool) {
	r.edges = r.edges[:0]
	r.haveBox = false

	var cur, start vec.Vec2
	k := 0
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			if cur != start {
				r.addEdge(cur, start)
			}
			cur = p.Coords[k]
			start = cur
			k++
		case path.CmdLineTo:
			r.addEdge(cur, p.Coords[k])
			cur = p.Coords[k]
			k++
		case path.CmdQuadTo:
			r.flattenQuad(cur, p.Coords[k], p.Coords[k+1])
			cur = p.Coords[k+1]
			k += 2
		case path.CmdCubeTo:
			r.flattenCube(cur, p.Coords[k], p.Coords[k+1], p.Coords[k+2])
			cur = p.Coords[k+2]
			k += 3
		case path.CmdClose:
			if cur != start {
				r.addEdge(cur, start)
			}
			cur = start
		}
	}
	if cur != start {
		r.addEdge(cur, start)
	}
	if len(r.edges) == 0 {
		return image.Rectangle{}, false
	}

	// pixel x covers the interval [x, x+1)
	x0 := int(math.Floor(r.xMin))
	y0 := int(math.Floor(r.yMin))
	x1 := max(int(math.Ceil(r.xMax)), x0+1)
	y1 := max(int(math.Ceil(r.yMax)), y0+1)
	return image.Rect(x0, y0, x1, y1), true
}

// addEdge transforms a line segment to device space and appends it to
// the edge list.
func (r *Rasteriser) addEdge(p0, p1 vec.Vec2) {
	m := r.CTM
	x0 := m[0]*p0.X + m[2]*p0.Y + m[4]
	y0 := m[1]*p0.X + m[3]*p0.Y + m[5]
	x1 := m[0]*p1.X + m[2]*p1.Y + m[4]
	y1 := m[1]*p1.X + m[3]*p1.Y + m[5]

	dy := y1 - y0
	if math.Abs(dy) < minEdgeHeight {
		return
	}
	r.edges = append(r.edges, edge{
		x0: x0, y0: y0,
		x1: x1, y1: y1,
		dxdy: (x1 - x0) / dy,
		yMin: min(y0, y1),
		yMax: max(y0, y1),
	})

	if !r.haveBox {
		r.xMin, r.xMax = x0, x0
		r.yMin, r.yMax = y0, y0
		r.haveBox = true
	}
	r.xMin = min(r.xMin, x0, x1)
	r.xMax = max(r.xMax, x0, x1)
	r.yMin = min(r.yMin, y0, y1)
	r.yMax = max(r.yMax, y0, y1)
}

// deviceLength returns the length of v after applying the linear part of
// the CTM.
func (r *Rasteriser) deviceLength(v vec.Vec2) float64 {
	m := r.CTM
	return math.Hypot(m[0]*v.X+m[2]*v.Y, m[1]*v.X+m[3]*v.Y)
}

func (r *Rasteriser) flattenQuad(p0, p1, p2 vec.Vec2) {
	dev := r.deviceLength(p0.Sub(p1.Mul(2)).Add(p2).Mul(0.25))
	n := 1
	if dev > r.Flatness {
		n = int(math.Ceil(math.Sqrt(dev / r.Flatness)))
	}
	prev := p0
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		s := 1 - t
		pt := p0.Mul(s * s).Add(p1.Mul(2 * s * t)).Add(p2.Mul(t * t))
		r.addEdge(prev, pt)
		prev = pt
	}
}

// flattenCube uses Wang's formula to choose the number of segments.
func (r *Rasteriser) flattenCube(p0, p1, p2, p3 vec.Vec2) {
	dev := max(
		r.deviceLength(p0.Sub(p1.Mul(2)).Add(p2)),
		r.deviceLength(p1.Sub(p2.Mul(2)).Add(p3)))
	n := 1
	if nf := math.Sqrt(3 * dev / (4 * r.Flatness)); nf > 1 {
		n = int(math.Ceil(nf))
	}
	prev := p0
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		s := 1 - t
		pt := p0.Mul(s * s * s).
			Add(p1.Mul(3 * s * s * t)).
			Add(p2.Mul(3 * s * t * t)).
			Add(p3.Mul(t * t * t))
		r.addEdge(prev, pt)
		prev = pt
	}
}

// accumulate adds the contribution of edge e within pixel row y to the
// cover and area buffers, which hold the columns x0 <= x < x1.
//
// For every pixel, cover is the signed vertical extent of the edge pieces
// inside the pixel and area is cover weighted by the horizontal distance
// from the right pixel border.  Contributions left of the buffer are
// collected in the first column.
func (r *Rasteriser) accumulate(e *edge, y int, cover, area []float32, x0, x1 int) {
	top := max(float64(y), e.yMin)
	bot := min(float64(y+1), e.yMax)
	if bot <= top {
		return
	}
	sign := float32(1)
	if e.y1 < e.y0 {
		sign = -1
	}

	xa, xb := e.xAt(top), e.xAt(bot)
	left := int(math.Floor(min(xa, xb)))
	right := int(math.Floor(max(xa, xb)))
	if right < x0 {
		c := sign * float32(bot-top)
		cover[0] += c
		area[0] += c
		return
	}
	if left >= x1 {
		return
	}

	// split the edge where it crosses vertical pixel borders
	r.crossings = append(r.crossings[:0], top, bot)
	for x := left + 1; x <= right; x++ {
		yx := e.y0 + (float64(x)-e.x0)/e.dxdy
		if yx > top && yx < bot {
			r.crossings = append(r.crossings, yx)
		}
	}
	if len(r.crossings) > 2 {
		slices.Sort(r.crossings)
	}

	for i := 1; i < len(r.crossings); i++ {
		ya, yb := r.crossings[i-1], r.crossings[i]
		if yb <= ya {
			continue
		}
		c := sign * float32(yb-ya)
		xm := e.xAt((ya + yb) / 2)
		pix := int(math.Floor(xm))
		switch {
		case pix < x0:
			cover[0] += c
			area[0] += c
		case pix < x1:
			cover[pix-x0] += c
			area[pix-x0] += c * float32(1-(xm-float64(pix)))
		}
	}
}

// integrate turns the accumulated values of one row into coverage,
// in place.
func integrate(cover, area []float32, rule Rule) {
	var acc float32
	for i := range cover {
		v := acc + area[i]
		acc += cover[i]
		if v < 0 {
			v = -v
		}
		if rule == EvenOdd {
			v -= 2 * float32(int(v/2))
			if v > 1 {
				v = 2 - v
			}
		} else if v > 1 {
			v = 1
		}
		cover[i] = v
	}
}

// trim removes the zero coverage values at both ends of a row.
func trim(coverage []float32) ([]float32, int) {
	lo, hi := 0, len(coverage)
	for lo < hi && coverage[lo] == 0 {
		lo++
	}
	for hi > lo && coverage[hi-1] == 0 {
		hi--
	}
	return coverage[lo:hi], lo
}

// rowTouched reports whether a part of e with positive height lies in
// pixel row y.
func rowTouched(e *edge, y int) bool {
	return min(float64(y+1), e.yMax) > max(float64(y), e.yMin)
}

func (r *Rasteriser) fillSmall(box image.Rectangle, rule Rule, emit func(y, xMin int, coverage []float32)) {
	w, h := box.Dx(), box.Dy()
	n := w * h
	r.cover = slices.Grow(r.cover[:0], n)[:n]
	r.area = slices.Grow(r.area[:0], n)[:n]
	clear(r.cover)
	clear(r.area)
	r.rowHit = slices.Grow(r.rowHit[:0], h)[:h]
	clear(r.rowHit)

	for i := range r.edges {
		e := &r.edges[i]
		y0 := max(int(math.Floor(e.yMin)), box.Min.Y)
		y1 := min(int(math.Floor(e.yMax))+1, box.Max.Y)
		for y := y0; y < y1; y++ {
			row := y - box.Min.Y
			off := row * w
			r.accumulate(e, y, r.cover[off:off+w], r.area[off:off+w], box.Min.X, box.Max.X)
			if rowTouched(e, y) {
				r.rowHit[row] = true
			}
		}
	}

	for row := range h {
		if !r.rowHit[row] {
			continue
		}
		off := row * w
		coverage := r.cover[off : off+w]
		integrate(coverage, r.area[off:off+w], rule)
		if t, k := trim(coverage); len(t) > 0 {
			emit(box.Min.Y+row, box.Min.X+k, t)
		}
	}
}

func (r *Rasteriser) fillLarge(box image.Rectangle, rule Rule, emit func(y, xMin int, coverage []float32)) {
	w := box.Dx()
	r.cover = slices.Grow(r.cover[:0], w)[:w]
	r.area = slices.Grow(r.area[:0], w)[:w]

	slices.SortFunc(r.edges, func(a, b edge) int {
		return cmp.Compare(a.yMin, b.yMin)
	})
	r.active = r.active[:0]
	next := 0

	for y := box.Min.Y; y < box.Max.Y; y++ {
		for next < len(r.edges) && r.edges[next].yMin < float64(y+1) {
			r.active = append(r.active, next)
			next++
		}
		if len(r.active) == 0 {
			continue
		}

		clear(r.cover)
		clear(r.area)
		touched := false
		for i := 0; i < len(r.active); {
			e := &r.edges[r.active[i]]
			if e.yMax <= float64(y) {
				last := len(r.active) - 1
				r.active[i] = r.active[last]
				r.active = r.active[:last]
				continue
			}
			r.accumulate(e, y, r.cover, r.area, box.Min.X, box.Max.X)
			if rowTouched(e, y) {
				touched = true
			}
			i++
		}
		if !touched {
			continue
		}

		integrate(r.cover, r.area, rule)
		if t, k := trim(r.cover); len(t) > 0 {
			emit(y, box.Min.X+k, t)
		}
	}
}
