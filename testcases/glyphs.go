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

package testcases

import (
	"image"
	"image/color"

	"seehuhn.de/go/dvi/internal/dvibuild"
)

var boxFont = []dvibuild.Font{{Num: 0, Name: "box"}}

var glyphCases = []TestCase{
	{
		Name:  "single",
		DPI:   72.27,
		Fonts: boxFont,
		Page: func(b *dvibuild.Builder) {
			b.SelectFont(0)
			b.SetChar('A')
		},
		Ink: ink(0, 0, 4, 6),
		Colors: map[image.Point]color.NRGBA{
			{72, 66}: white,
			{73, 66}: black,
			{72, 71}: black,
			{73, 70}: white,
		},
	},
	{
		// 1pt is 1.38 pixels, so the glyphs are placed at 0, 1, 3, 4 and 6.
		Name:  "advance",
		DPI:   100,
		Fonts: boxFont,
		Page: func(b *dvibuild.Builder) {
			b.SelectFont(0)
			for range 5 {
				b.SetChar('I')
			}
		},
		Ink: image.Rect(100, 93, 107, 100),
		Colors: map[image.Point]color.NRGBA{
			{100, 99}: black,
			{101, 99}: black,
			{102, 99}: white,
			{103, 99}: black,
			{105, 99}: white,
			{106, 99}: black,
		},
	},
	{
		Name:  "descender",
		DPI:   72.27,
		Fonts: boxFont,
		Page: func(b *dvibuild.Builder) {
			b.SelectFont(0)
			b.SetChar('g')
		},
		Ink: image.Rect(72, 69, 75, 74),
	},
	{
		Name:  "offset",
		DPI:   72.27,
		Fonts: boxFont,
		Page: func(b *dvibuild.Builder) {
			b.SelectFont(0)
			b.SetChar('.')
		},
		Ink: image.Rect(73, 70, 75, 72),
	},
	{
		Name:  "put",
		DPI:   72.27,
		Fonts: boxFont,
		Page: func(b *dvibuild.Builder) {
			b.SelectFont(0)
			b.PutChar('A')
			b.SetChar('.')
			b.SetChar('.')
		},
		Ink: image.Rect(72, 66, 77, 72),
	},
	{
		Name:  "scaled",
		DPI:   72.27,
		Fonts: []dvibuild.Font{{Num: 0, Name: "box", Scale: 20 * sp, DesignSize: 10 * sp}},
		Page: func(b *dvibuild.Builder) {
			b.SelectFont(0)
			b.SetChar('A')
			b.SetChar('A')
		},
		Ink: image.Rect(72, 66, 86, 72),
	},
	{
		Name:  "text_and_rule",
		DPI:   72.27,
		Fonts: boxFont,
		Page: func(b *dvibuild.Builder) {
			b.SelectFont(0)
			b.SetChar('A')
			b.SetChar('g')
			b.Down(4 * sp)
			b.PutRule(sp/2, -8*sp)
			b.Right(-8 * sp)
			b.SetRule(sp/2, 8*sp)
		},
		Ink: image.Rect(72, 66, 80, 76),
	},
}
