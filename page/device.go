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

// Package page composites glyphs and rules into page images.
package page

import (
	"image"
	"math"

	"seehuhn.de/go/dvi"
)

// Device maps DVI coordinates to pixels.  Pixel coordinates grow to the
// right and down, with (0, 0) at the top left corner of the page.
type Device struct {
	// Scale is the size of one DVI unit in pixels, including the document
	// magnification.
	Scale float64

	// DPI is the resolution used for fonts, including the document
	// magnification.
	DPI float64

	// Origin is the pixel position of the DVI origin.
	Origin image.Point
}

// NewDevice returns the device for rendering doc at the given resolution.
// The DVI origin is placed marginX inches from the left and marginY inches
// from the top of the page.
func NewDevice(doc *dvi.Document, dpi, marginX, marginY float64) *Device {
	return &Device{
		Scale: doc.Conv() * dpi,
		DPI:   dpi * float64(doc.Mag) / 1000,
		Origin: image.Point{
			X: int(math.Round(marginX * dpi)),
			Y: int(math.Round(marginY * dpi)),
		},
	}
}

// Point converts a DVI position to the nearest pixel.
func (d *Device) Point(h, v int32) image.Point {
	return image.Point{
		X: int(math.Round(float64(h)*d.Scale)) + d.Origin.X,
		Y: int(math.Round(float64(v)*d.Scale)) + d.Origin.Y,
	}
}

// ruleSize converts a rule dimension to pixels.  Positive sizes round up
// and are at least one pixel, so that thin rules remain visible.
func (d *Device) ruleSize(x int32) int {
	if x <= 0 {
		return 0
	}
	px := int(math.Ceil(float64(x)*d.Scale - 1e-9))
	return max(px, 1)
}

// Rule returns the pixels covered by a rule whose lower left corner is at
// (h, v).  The rule sits on the baseline and extends upwards.
func (d *Device) Rule(h, v, width, height int32) image.Rectangle {
	p := d.Point(h, v)
	w := d.ruleSize(width)
	ht := d.ruleSize(height)
	return image.Rect(p.X, p.Y-ht, p.X+w, p.Y)
}

