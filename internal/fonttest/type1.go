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

package fonttest

import (
	"bytes"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/postscript/funit"
	"seehuhn.de/go/postscript/type1"
)

// Rect is a glyph consisting of a single filled rectangle.  All values
// are in font units, 1000 to the em.
type Rect struct {
	Name               string
	Width              float64
	LLx, LLy, URx, URy float64
}

// Type1 returns a Type 1 font program in PFB format.  The font's built-in
// encoding maps each key of glyphs to the given glyph.
func Type1(fontName string, glyphs map[byte]Rect) ([]byte, error) {
	encoding := make([]string, 256)
	for i := range encoding {
		encoding[i] = ".notdef"
	}
	f := &type1.Font{
		FontInfo: &type1.FontInfo{
			FontName:   fontName,
			FontMatrix: matrix.Matrix{0.001, 0, 0, 0.001, 0, 0},
		},
		Outlines: &type1.Outlines{
			Glyphs:   map[string]*type1.Glyph{".notdef": {WidthX: 250}},
			Private:  &type1.PrivateDict{BlueValues: []funit.Int16{0, 0}},
			Encoding: encoding,
		},
	}
	for code, r := range glyphs {
		encoding[code] = r.Name
		g := &type1.Glyph{WidthX: r.Width}
		if r.URx > r.LLx && r.URy > r.LLy {
			g.MoveTo(r.LLx, r.LLy)
			g.LineTo(r.URx, r.LLy)
			g.LineTo(r.URx, r.URy)
			g.LineTo(r.LLx, r.URy)
			g.ClosePath()
		}
		f.Glyphs[r.Name] = g
	}

	buf := &bytes.Buffer{}
	err := f.Write(buf, &type1.WriterOptions{Format: type1.FormatPFB})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
