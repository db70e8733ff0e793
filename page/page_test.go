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
	"errors"
	"image"
	"image/color"
	"math"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"seehuhn.de/go/dvi"
	"seehuhn.de/go/dvi/font"
	"seehuhn.de/go/dvi/internal/dvibuild"
	"seehuhn.de/go/dvi/internal/fonttest"
)

var (
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	red   = color.NRGBA{R: 255, A: 255}
)

var glyphA = fonttest.Char{
	Code:     'A',
	TFMWidth: fonttest.Unity / 2,
	DX:       4,
	HOff:     0,
	VOff:     5,
	Rows: []string{
		".XX.",
		"X..X",
		"XXXX",
		"X..X",
		"X..X",
		"....",
	},
}

func texDoc(t *testing.T) *dvi.Document {
	t.Helper()
	b := dvibuild.New()
	b.BeginPage(1)
	b.EndPage()
	doc, err := dvi.Parse(b.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestDevice(t *testing.T) {
	doc := texDoc(t)

	// At 72.27dpi, one TeX point is one pixel.
	d := NewDevice(doc, 72.27, 1, 1)
	if d.Origin != image.Pt(72, 72) {
		t.Errorf("origin %v", d.Origin)
	}
	if p := d.Point(10*dvibuild.SP, 20*dvibuild.SP); p != image.Pt(82, 92) {
		t.Errorf("Point: got %v", p)
	}
	if p := d.Point(-3*dvibuild.SP, 0); p != image.Pt(69, 72) {
		t.Errorf("Point: got %v", p)
	}

	// Thin rules are at least one pixel, partial pixels round up.
	got := d.Rule(0, 0, 3*dvibuild.SP, dvibuild.SP/5)
	if want := image.Rect(72, 71, 75, 72); got != want {
		t.Errorf("Rule: got %v, want %v", got, want)
	}
	got = d.Rule(0, 0, 5*dvibuild.SP/2, 2*dvibuild.SP)
	if want := image.Rect(72, 70, 75, 72); got != want {
		t.Errorf("Rule: got %v, want %v", got, want)
	}
	if got := d.Rule(0, 0, 0, dvibuild.SP); !got.Empty() {
		t.Errorf("zero width rule covers %v", got)
	}

	doc.Mag = 2000
	d = NewDevice(doc, 72.27, 0, 0)
	if math.Abs(d.DPI-2*72.27) > 1e-9 {
		t.Errorf("magnified DPI %g", d.DPI)
	}
	if p := d.Point(10*dvibuild.SP, 0); p != image.Pt(20, 0) {
		t.Errorf("magnified Point: got %v", p)
	}
}

func TestRuleExact(t *testing.T) {
	c := &Compositor{}
	c.Begin(image.Pt(20, 20), white)
	d := &Device{Scale: 1, DPI: 72}
	c.Rule(d.Rule(3, 8, 10, 5), red)
	img := c.Finish(false)

	want := image.Rect(3, 3, 13, 8)
	for y := range 20 {
		for x := range 20 {
			got := img.NRGBAAt(x, y)
			expected := white
			if image.Pt(x, y).In(want) {
				expected = red
			}
			if got != expected {
				t.Fatalf("pixel (%d, %d) = %v, want %v", x, y, got, expected)
			}
		}
	}
}

// renderPage runs the first page of a DVI file through a painter.
func renderPage(t *testing.T, data []byte, files fstest.MapFS, dpi float64, skip bool) (*Compositor, error) {
	t.Helper()
	doc, err := dvi.Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	loc, err := font.NewDirLocator(files)
	if err != nil {
		t.Fatal(err)
	}
	fonts := font.NewResolver(loc)
	c := &Compositor{}
	c.Begin(image.Pt(2*int(dpi), 2*int(dpi)), white)
	p := &Painter{
		Doc:               doc,
		Device:            NewDevice(doc, dpi, 1, 1),
		Fonts:             fonts,
		Compositor:        c,
		SkipMissingGlyphs: skip,
	}
	in := dvi.NewInterpreter(doc, fonts.Metrics(dpi))
	return c, in.RunPage(0, nil, p)
}

func singleGlyph() []byte {
	b := dvibuild.New()
	b.DefineFont(dvibuild.Font{Num: 0, Name: "test"})
	b.BeginPage(1)
	b.SelectFont(0)
	b.SetChar('A')
	b.EndPage()
	return b.Bytes()
}

func TestSingleGlyph(t *testing.T) {
	files := fstest.MapFS{
		"test.100pk": {Data: fonttest.PK([]fonttest.Char{glyphA}, 10, 100, fonttest.PKOptions{DynF: 8})},
	}
	c, err := renderPage(t, singleGlyph(), files, 100, false)
	if err != nil {
		t.Fatal(err)
	}

	// The reference point is at (100, 100), five rows below the top of
	// the bitmap.
	if ink, want := c.Ink(), image.Rect(100, 95, 104, 100); ink != want {
		t.Errorf("ink %v, want %v", ink, want)
	}

	img := c.Finish(true)
	var rows []string
	for y := range img.Rect.Dy() {
		row := ""
		for x := range img.Rect.Dx() {
			switch img.NRGBAAt(x, y) {
			case dvi.Black:
				row += "X"
			case white:
				row += "."
			default:
				row += "?"
			}
		}
		rows = append(rows, row)
	}
	if d := cmp.Diff(glyphA.Rows[:5], rows); d != "" {
		t.Errorf("cropped page (-want +got):\n%s", d)
	}
}

func TestMissingGlyphs(t *testing.T) {
	// Widths come from the TFM file, but there is no bitmap or outline.
	files := fstest.MapFS{
		"test.tfm": {Data: fonttest.TFM(map[uint32]int32{'A': fonttest.Unity / 2}, 0, 10)},
	}

	_, err := renderPage(t, singleGlyph(), files, 100, false)
	var notFound *font.FontNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected FontNotFoundError, got %v", err)
	}
	if notFound.Name != "test" || notFound.Resolution != 100 {
		t.Errorf("wrong error details: %v", notFound)
	}

	c, err := renderPage(t, singleGlyph(), files, 100, true)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Ink().Empty() {
		t.Errorf("skipped glyph left ink at %v", c.Ink())
	}
}

func TestCrop(t *testing.T) {
	c := &Compositor{}
	c.Begin(image.Pt(30, 20), white)
	c.Rule(image.Rect(5, 4, 9, 6), red)
	c.Rule(image.Rect(20, 10, 21, 15), dvi.Black)

	once := c.Finish(true)
	if once.Rect != image.Rect(0, 0, 16, 11) {
		t.Errorf("cropped to %v", once.Rect)
	}
	twice := Crop(once, white)
	if d := cmp.Diff(once, twice); d != "" {
		t.Errorf("cropping twice changed the image:\n%s", d)
	}

	c.Begin(image.Pt(30, 20), white)
	blank := c.Finish(true)
	if blank.Rect != image.Rect(0, 0, 1, 1) || blank.NRGBAAt(0, 0) != white {
		t.Errorf("blank page cropped to %v", blank.Rect)
	}
	if d := cmp.Diff(blank, Crop(blank, white)); d != "" {
		t.Errorf("cropping a blank page twice:\n%s", d)
	}
}

func TestBackground(t *testing.T) {
	c := &Compositor{}
	c.Begin(image.Pt(10, 10), color.NRGBA{})
	c.Rule(image.Rect(2, 2, 4, 4), dvi.Black)

	img := c.Finish(false)
	if got := img.NRGBAAt(0, 0); got.A != 0 {
		t.Errorf("transparent background: got %v", got)
	}

	// A background set after drawing still applies to the whole page.
	c.SetBackground(red)
	img = c.Finish(false)
	if got := img.NRGBAAt(0, 0); got != red {
		t.Errorf("background: got %v", got)
	}
	if got := img.NRGBAAt(3, 3); got != dvi.Black {
		t.Errorf("ink: got %v", got)
	}
	if tight := c.Finish(true); tight.Rect != image.Rect(0, 0, 2, 2) {
		t.Errorf("tight crop %v", tight.Rect)
	}
}
