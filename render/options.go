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

// Package render converts DVI documents into PNG images.
//
// A rendering session is started with [Render] or [RenderDocument].  The
// session interprets the selected pages, composites the glyphs and rules
// of each page into an image and writes the images to files.
package render

import (
	"image/color"
	"log/slog"

	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/dvi"
	"seehuhn.de/go/dvi/font"
)

// Options control a rendering session.
type Options struct {
	// DPI is the output resolution in pixels per inch.  This must be
	// positive.
	DPI float64

	// Tight crops every page to the smallest rectangle containing all
	// pixels which differ from the background.
	Tight bool

	// Transparent makes the page background transparent.  Background
	// specials in the document still apply.
	Transparent bool

	// Background and Foreground are the colors at the start of the
	// document.  The zero Foreground is black.
	Background color.NRGBA
	Foreground color.NRGBA

	// Palette overrides color names used in color specials.
	Palette map[string]color.NRGBA

	// Pages selects the pages to render, in the syntax accepted by
	// [ParsePages].  The empty string selects all pages.
	Pages string

	// Output is the name of the output file.  If it contains a "%d" verb,
	// this is replaced by the running page counter.  Otherwise, if more
	// than one page is rendered, "-n" is inserted before the file name
	// extension.  If Output is empty, [RenderDocument] writes no files and
	// returns the page images in the result instead.
	Output string

	// Margin is the position of the DVI origin, in inches from the top
	// left corner of the page.
	Margin vec.Vec2

	// PageSize is the size of the page in inches.  If this is zero, the
	// page size is the size of the largest page given in the DVI file
	// plus twice the margin.
	PageSize vec.Vec2

	// AntiAlias enables anti-aliasing for outline fonts.
	AntiAlias bool

	// Indexed writes images with at most 256 colors as paletted PNG files.
	Indexed bool

	// Workers is the number of pages rendered in parallel.
	Workers int

	// ContinueOnError makes the session continue after a page fails.  The
	// error is recorded in the page's result.
	ContinueOnError bool

	// SkipMissingGlyphs renders characters from missing fonts as blank
	// space of zero width, instead of failing the page.
	SkipMissingGlyphs bool

	// Special, if set, receives the specials which are not color specials.
	// If Workers is larger than one, Special may be called concurrently.
	Special dvi.SpecialFunc

	// Fonts locates font files and renders glyphs.  A Resolver can be
	// shared between sessions, so that glyphs are only rendered once.
	Fonts *font.Resolver

	Logger *slog.Logger
}

// DefaultOptions returns the default settings: 100dpi, black on white,
// a one inch margin, and a single worker.
func DefaultOptions() *Options {
	return &Options{
		DPI:        100,
		Background: color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		Foreground: dvi.Black,
		Margin:     vec.Vec2{X: 1, Y: 1},
		Workers:    1,
	}
}
