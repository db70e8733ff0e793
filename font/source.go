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

package font

import (
	"errors"

	"seehuhn.de/go/dvi/font/pk"
)

// Source is a loaded font which can produce glyph bitmaps.  Bitmap fonts
// and outline fonts both implement this interface.
type Source interface {
	// Width returns the advance width of a character, as a fix_word
	// relative to the font size.
	Width(code uint32) (int32, error)

	// Glyph returns the bitmap of a character at the given number of
	// pixels per em.  Bitmap fonts ignore ppem and aa, since they only
	// exist at a single size.
	Glyph(code uint32, ppem float64, aa bool) (*Glyph, error)
}

// errNoGlyph is returned by a [Source] for characters missing from the
// font.
var errNoGlyph = errors.New("character not in font")

// bitmapSource serves pre-rendered glyphs from a PK file.
type bitmapSource struct {
	font *pk.Font
}

func (s bitmapSource) char(code uint32) (*pk.Char, error) {
	c, err := s.font.Char(code)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errNoGlyph
	}
	return c, nil
}

func (s bitmapSource) Width(code uint32) (int32, error) {
	c, err := s.char(code)
	if err != nil {
		return 0, err
	}
	return c.TFMWidth, nil
}

func (s bitmapSource) Glyph(code uint32, _ float64, _ bool) (*Glyph, error) {
	c, err := s.char(code)
	if err != nil {
		return nil, err
	}
	return &Glyph{
		Mask:    c.Mask,
		HOff:    int(c.HOff),
		VOff:    int(c.VOff),
		Advance: float64(c.DX) / 65536,
	}, nil
}
