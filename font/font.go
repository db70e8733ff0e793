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

// Package font resolves the glyphs of the fonts used in DVI files.
//
// Glyph bitmaps come from packed bitmap (PK) files at the requested
// resolution when available.  Otherwise the TFM name is looked up in a
// dvips font map, and the glyph is rasterized from a Type 1 or OpenType
// outline font.  Character widths come from TFM files.
package font

import (
	"fmt"
	"image"
	"math"

	"seehuhn.de/go/dvi"
	"seehuhn.de/go/dvi/font/tfm"
)

// Ref identifies a font at a specific size.  Refs are comparable and are
// used as part of the glyph cache key.
type Ref struct {
	Name     string
	Checksum uint32

	// Scale and DesignSize are given in DVI units.
	Scale      int32
	DesignSize int32

	// Unit is the size of one DVI unit in TeX points, not including
	// the document magnification.
	Unit float64
}

// NewRef returns the reference for a font defined in doc.
func NewRef(doc *dvi.Document, def *dvi.FontDef) Ref {
	return Ref{
		Name:       def.Name,
		Checksum:   def.Checksum,
		Scale:      def.Scale,
		DesignSize: def.DesignSize,
		Unit:       float64(doc.Num) / float64(doc.Den) / 254000 * 72.27,
	}
}

// Size returns the font size in TeX points.
func (ref Ref) Size() float64 {
	return float64(ref.Scale) * ref.Unit
}

// PixelsPerEm returns the em size in pixels at the given resolution.
func (ref Ref) PixelsPerEm(dpi float64) float64 {
	return ref.Size() * dpi / 72.27
}

// pkResolution returns the resolution of the PK file needed to render the
// font at the given device resolution.
func pkResolution(scale, designSize int32, dpi float64) int {
	if designSize <= 0 {
		return int(math.Round(dpi))
	}
	return int(math.Round(dpi * float64(scale) / float64(designSize)))
}

// Glyph is a rendered character.  Glyphs are immutable and may be shared
// between pages and goroutines.
type Glyph struct {
	// Mask holds the coverage of the glyph, with its top left pixel at
	// (0, 0).
	Mask *image.Alpha

	// HOff and VOff give the position of the reference point inside the
	// mask, in pixels.  The reference point may lie outside the mask.
	HOff, VOff int

	// Advance is the horizontal escapement in pixels.
	Advance float64
}

// IsBlank reports whether the glyph leaves no ink.
func (g *Glyph) IsBlank() bool {
	return g.Mask == nil || g.Mask.Rect.Empty()
}

// FontNotFoundError is returned if neither a bitmap nor an outline font
// can be found for a TFM name.
type FontNotFoundError struct {
	Name string

	// Resolution is the resolution of the PK file which was tried, or 0
	// if only metrics were requested.
	Resolution int
}

func (err *FontNotFoundError) Error() string {
	if err.Resolution > 0 {
		return fmt.Sprintf("font %s not found (tried %s.%dpk)", err.Name, err.Name, err.Resolution)
	}
	return "font " + err.Name + " not found"
}

// GlyphNotInFontError is returned if a font does not contain a character.
type GlyphNotInFontError struct {
	Font string
	Code uint32
}

func (err *GlyphNotInFontError) Error() string {
	return fmt.Sprintf("font %s has no character %d", err.Font, err.Code)
}

// FontSizeError is returned for fonts whose size is not positive or is
// 2048pt or larger.  TeX cannot produce such fonts.
type FontSizeError struct {
	Font  string
	Scale int32
}

func (err *FontSizeError) Error() string {
	return fmt.Sprintf("font %s: invalid size %d", err.Font, err.Scale)
}

// checkSize returns a [FontSizeError] if scale lies outside the range
// allowed by TeX.
func checkSize(name string, scale int32) error {
	if scale <= 0 || scale >= tfm.MaxSize {
		return &FontSizeError{Font: name, Scale: scale}
	}
	return nil
}
