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

	"seehuhn.de/go/dvi/internal/dvibuild"
)

var ruleCases = []TestCase{
	{
		Name: "unit",
		DPI:  72.27,
		Page: func(b *dvibuild.Builder) {
			b.SetRule(10*sp, 20*sp)
		},
		Ink: ink(0, 0, 20, 10),
	},
	{
		Name: "thin",
		DPI:  72.27,
		Page: func(b *dvibuild.Builder) {
			b.SetRule(sp/10, 30*sp)
		},
		Ink: ink(0, 0, 30, 1),
	},
	{
		// 7.2pt and 3pt are 9.96 and 4.15 pixels wide at 100dpi
		Name: "fraction",
		DPI:  100,
		Page: func(b *dvibuild.Builder) {
			b.SetRule(3*sp, 7*sp+sp/5)
		},
		Ink: image.Rect(100, 95, 110, 100),
	},
	{
		Name: "position",
		DPI:  72.27,
		Page: func(b *dvibuild.Builder) {
			b.Right(10 * sp)
			b.Down(20 * sp)
			b.SetRule(2*sp, 3*sp)
		},
		Ink: ink(10, 20, 3, 2),
	},
	{
		Name: "empty",
		DPI:  72.27,
		Page: func(b *dvibuild.Builder) {
			b.PutRule(0, 10*sp)
			b.PutRule(-5*sp, 10*sp)
			b.PutRule(5*sp, -10*sp)
			b.SetRule(sp, sp)
		},
		Ink: ink(0, 0, 1, 1),
	},
	{
		Name: "set_advance",
		DPI:  72.27,
		Page: func(b *dvibuild.Builder) {
			b.SetRule(sp, 4*sp)
			b.SetRule(2*sp, 4*sp)
			b.PutRule(3*sp, 4*sp)
			b.SetRule(sp, sp)
		},
		Ink: ink(0, 0, 12, 3),
	},
}

var moveCases = []TestCase{
	{
		Name: "push_pop",
		DPI:  72.27,
		Page: func(b *dvibuild.Builder) {
			b.Push()
			b.Right(10 * sp)
			b.Down(10 * sp)
			b.SetRule(sp, sp)
			b.Pop()
			b.SetRule(sp, sp)
		},
		Ink: image.Rect(72, 71, 83, 82),
	},
	{
		Name: "wxyz",
		DPI:  72.27,
		Page: func(b *dvibuild.Builder) {
			b.W(5 * sp)
			b.SetRule(sp, sp)
			b.W0()
			b.X(3 * sp)
			b.X0()
			b.SetRule(sp, sp)
			b.Y(4 * sp)
			b.Y0()
			b.Z(2 * sp)
			b.Z0()
			b.SetRule(sp, sp)
		},
		Ink: image.Rect(77, 71, 91, 84),
	},
	{
		Name: "nested",
		DPI:  72.27,
		Page: func(b *dvibuild.Builder) {
			b.Push()
			b.Right(5 * sp)
			b.Push()
			b.Down(5 * sp)
			b.PutRule(sp, sp)
			b.Pop()
			b.PutRule(sp, sp)
			b.Pop()
			b.Right(-5 * sp)
			b.SetRule(sp, sp)
		},
		Ink: image.Rect(67, 71, 78, 77),
	},
}
