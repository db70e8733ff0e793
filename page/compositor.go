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

package page

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"seehuhn.de/go/dvi/font"
)

// Compositor accumulates the ink of one page.  Ink is drawn onto a
// transparent layer; the background is added by [Compositor.Finish], so
// that a background color set anywhere on the page applies to the whole
// page.  A Compositor can be reused for several pages.
type Compositor struct {
	layer *image.RGBA
	bg    color.NRGBA
}

// Begin starts a new page of the given size.
func (c *Compositor) Begin(size image.Point, bg color.NRGBA) {
	r := image.Rectangle{Max: size}
	if c.layer != nil && c.layer.Rect == r {
		clear(c.layer.Pix)
	} else {
		c.layer = image.NewRGBA(r)
	}
	c.bg = bg
}

// SetBackground changes the background color of the current page.
func (c *Compositor) SetBackground(bg color.NRGBA) {
	c.bg = bg
}

// Background returns the background color of the current page.
func (c *Compositor) Background() color.NRGBA {
	return c.bg
}

// Glyph draws g with its reference point at pixel (x, y).
func (c *Compositor) Glyph(x, y int, g *font.Glyph, col color.NRGBA) {
	if g.IsBlank() {
		return
	}
	r := g.Mask.Rect.Add(image.Pt(x-g.HOff, y-g.VOff))
	draw.DrawMask(c.layer, r, image.NewUniform(col), image.Point{}, g.Mask, g.Mask.Rect.Min, draw.Over)
}

// Rule fills a rectangle.
func (c *Compositor) Rule(r image.Rectangle, col color.NRGBA) {
	draw.Draw(c.layer, r, image.NewUniform(col), image.Point{}, draw.Over)
}

// Ink returns the smallest rectangle containing all pixels drawn so far,
// or the empty rectangle for a blank page.
func (c *Compositor) Ink() image.Rectangle {
	return scan(c.layer.Pix, c.layer.Stride, c.layer.Rect, func(px []byte) bool {
		return px[3] != 0
	})
}

// Finish returns the page image, with the background added.  If tight is
// set, the image is cropped to the non-background pixels.  The returned
// image does not share memory with the compositor.
func (c *Compositor) Finish(tight bool) *image.NRGBA {
	r := c.layer.Rect
	img := image.NewNRGBA(r)
	if c.bg.A != 0 {
		draw.Draw(img, r, image.NewUniform(c.bg), image.Point{}, draw.Src)
	}
	draw.Draw(img, r, c.layer, r.Min, draw.Over)
	if tight {
		return Crop(img, c.bg)
	}
	return img
}

// Crop returns a copy of the smallest part of img which contains all
// pixels different from bg.  A blank image is cropped to a single pixel.
// The result has its top left corner at (0, 0).  Cropping a cropped image
// does not change it.
func Crop(img *image.NRGBA, bg color.NRGBA) *image.NRGBA {
	want := [4]byte{bg.R, bg.G, bg.B, bg.A}
	box := scan(img.Pix, img.Stride, img.Rect, func(px []byte) bool {
		return [4]byte(px) != want
	})

	if box.Empty() {
		res := image.NewNRGBA(image.Rect(0, 0, 1, 1))
		res.SetNRGBA(0, 0, bg)
		return res
	}
	res := image.NewNRGBA(image.Rectangle{Max: box.Size()})
	draw.Draw(res, res.Rect, img, box.Min, draw.Src)
	return res
}

// scan returns the bounding box of the 4-byte pixels for which ink
// returns true.
func scan(pix []byte, stride int, b image.Rectangle, ink func(px []byte) bool) image.Rectangle {
	box := image.Rectangle{}
	for y := 0; y < b.Dy(); y++ {
		row := pix[y*stride : y*stride+4*b.Dx()]
		first, last := -1, -1
		for x := 0; x < b.Dx(); x++ {
			if ink(row[4*x : 4*x+4]) {
				if first < 0 {
					first = x
				}
				last = x
			}
		}
		if first >= 0 {
			line := image.Rect(first, y, last+1, y+1).Add(b.Min)
			box = box.Union(line)
		}
	}
	return box
}
