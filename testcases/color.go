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

var (
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.NRGBA{A: 255}
	red   = color.NRGBA{R: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
	gray  = color.NRGBA{R: 128, G: 128, B: 128, A: 255}
)

var colorCases = []TestCase{
	{
		Name: "push_pop",
		DPI:  72.27,
		Page: func(b *dvibuild.Builder) {
			b.Special("color push Red")
			b.SetRule(sp, 2*sp)
			b.Special("color push rgb 0 0 1")
			b.SetRule(sp, 2*sp)
			b.Special("color pop")
			b.SetRule(sp, 2*sp)
			b.Special("color pop")
			b.SetRule(sp, 2*sp)
		},
		Ink: ink(0, 0, 8, 1),
		Colors: map[image.Point]color.NRGBA{
			{72, 71}: red,
			{74, 71}: blue,
			{76, 71}: red,
			{78, 71}: black,
			{80, 71}: white,
		},
	},
	{
		Name: "set",
		DPI:  72.27,
		Page: func(b *dvibuild.Builder) {
			b.Special("color push Red")
			b.Special("color gray 0.5")
			b.SetRule(sp, 2*sp)
			b.Special("color pop")
			b.SetRule(sp, 2*sp)
		},
		Ink: ink(0, 0, 4, 1),
		Colors: map[image.Point]color.NRGBA{
			{72, 71}: gray,
			{74, 71}: gray,
		},
	},
	{
		// Push and pop do not save the color.
		Name: "stack_independent",
		DPI:  72.27,
		Page: func(b *dvibuild.Builder) {
			b.Push()
			b.Special("color push Blue")
			b.Pop()
			b.SetRule(sp, sp)
			b.Special("color pop")
			b.SetRule(sp, sp)
		},
		Ink: ink(0, 0, 2, 1),
		Colors: map[image.Point]color.NRGBA{
			{72, 71}: blue,
			{73, 71}: black,
		},
	},
	{
		Name: "background",
		DPI:  72.27,
		Page: func(b *dvibuild.Builder) {
			b.SetRule(sp, sp)
			b.Special("background rgb 1 0 0")
		},
		Ink: ink(0, 0, 1, 1),
		Colors: map[image.Point]color.NRGBA{
			{0, 0}:   red,
			{72, 71}: black,
		},
	},
	{
		Name:  "glyph",
		DPI:   72.27,
		Fonts: boxFont,
		Page: func(b *dvibuild.Builder) {
			b.SelectFont(0)
			b.Special("color push cmyk 1 1 0 0")
			b.SetChar('I')
			b.Special("color pop")
		},
		Ink: ink(0, 0, 1, 7),
		Colors: map[image.Point]color.NRGBA{
			{72, 68}: blue,
		},
	},
}

var magCases = []TestCase{
	{
		Name: "rule",
		DPI:  72.27,
		Mag:  2000,
		Page: func(b *dvibuild.Builder) {
			b.Right(5 * sp)
			b.SetRule(5*sp, 5*sp)
		},
		Ink: ink(10, 0, 10, 10),
	},
	{
		Name:  "glyph",
		DPI:   72.27,
		Mag:   2000,
		Fonts: boxFont,
		Page: func(b *dvibuild.Builder) {
			b.SelectFont(0)
			b.SetChar('A')
			b.SetChar('A')
		},
		Ink: image.Rect(72, 66, 86, 72),
	},
}

var outlineCases = []TestCase{
	{
		// The glyph is 5pt wide and 7pt high.
		Name:  "rect",
		DPI:   72.27,
		Fonts: []dvibuild.Font{{Num: 0, Name: "rect"}},
		Page: func(b *dvibuild.Builder) {
			b.SelectFont(0)
			b.SetChar('A')
			b.Right(sp)
			b.SetChar('A')
		},
		Ink: ink(0, 0, 11, 7),
		Colors: map[image.Point]color.NRGBA{
			{72, 65}: black,
			{76, 71}: black,
			{77, 68}: white,
			{78, 68}: black,
		},
	},
}
