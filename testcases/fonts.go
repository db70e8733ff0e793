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

import "seehuhn.de/go/dvi/internal/fonttest"

// boxChars are the characters of the bitmap font "box".  The bitmaps are
// the same at every resolution.
var boxChars = []fonttest.Char{
	{
		Code:     'A',
		TFMWidth: fonttest.Unity / 2,
		DX:       5,
		VOff:     6,
		Rows: []string{
			".XX.",
			"X..X",
			"X..X",
			"XXXX",
			"X..X",
			"X..X",
		},
	},
	{
		Code:     'g',
		TFMWidth: fonttest.Unity * 3 / 10,
		DX:       3,
		VOff:     3,
		Rows: []string{
			"XXX",
			"X.X",
			"XXX",
			"..X",
			"XXX",
		},
	},
	{
		Code:     '.',
		TFMWidth: fonttest.Unity / 5,
		DX:       2,
		HOff:     -1,
		VOff:     2,
		Rows:     []string{"XX", "XX"},
	},
	{
		Code:     'I',
		TFMWidth: fonttest.Unity / 10,
		DX:       1,
		VOff:     7,
		Rows:     []string{"X", "X", "X", "X", "X", "X", "X"},
	},
}

func boxWidths() map[uint32]int32 {
	res := make(map[uint32]int32, len(boxChars))
	for _, c := range boxChars {
		res[c.Code] = c.TFMWidth
	}
	return res
}
