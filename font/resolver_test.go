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
	"bytes"
	"errors"
	"image"
	"io/fs"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/font/gofont/goregular"

	"seehuhn.de/go/dvi"
	"seehuhn.de/go/dvi/font/fontmap"
	"seehuhn.de/go/dvi/internal/fonttest"
)

const pt = 1 << 16

var testChar = fonttest.Char{
	Code:     'A',
	TFMWidth: fonttest.Unity / 2,
	DX:       5,
	HOff:     1,
	VOff:     3,
	Rows: []string{
		".XX.",
		"X..X",
		"XXXX",
		"X..X",
	},
}

func testDef(name string) *dvi.FontDef {
	return &dvi.FontDef{Name: name, Scale: 10 * pt, DesignSize: 10 * pt}
}

func testRef(name string) Ref {
	return Ref{Name: name, Scale: 10 * pt, DesignSize: 10 * pt, Unit: 1.0 / pt}
}

func newTestResolver(t *testing.T, files fstest.MapFS) *Resolver {
	t.Helper()
	loc, err := NewDirLocator(files)
	if err != nil {
		t.Fatal(err)
	}
	return NewResolver(loc)
}

// inkBounds returns the pixels with at least half coverage, relative to
// the reference point.
func inkBounds(g *Glyph) image.Rectangle {
	var box image.Rectangle
	if g.Mask == nil {
		return box
	}
	b := g.Mask.Rect
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if g.Mask.AlphaAt(x, y).A >= 128 {
				box = box.Union(image.Rect(x, y, x+1, y+1))
			}
		}
	}
	return box.Sub(image.Pt(g.HOff, g.VOff))
}

func TestTFMWidth(t *testing.T) {
	r := newTestResolver(t, fstest.MapFS{
		"tfm/test.tfm": {Data: fonttest.TFM(map[uint32]int32{'A': fonttest.Unity / 2, 'B': fonttest.Unity}, 0, 10)},
	})
	def := testDef("test")

	w, err := r.Width(def, 'A')
	if err != nil {
		t.Fatal(err)
	}
	if w != 5*pt {
		t.Errorf("width of A: got %d, want %d", w, 5*pt)
	}

	def.Scale = 20 * pt
	w, err = r.Width(def, 'B')
	if err != nil {
		t.Fatal(err)
	}
	if w != 20*pt {
		t.Errorf("width of B: got %d, want %d", w, 20*pt)
	}

	_, err = r.Width(def, 'C')
	var notInFont *GlyphNotInFontError
	if !errors.As(err, &notInFont) || notInFont.Code != 'C' {
		t.Errorf("expected GlyphNotInFontError, got %v", err)
	}

	_, err = r.Width(testDef("missing"), 'A')
	var notFound *FontNotFoundError
	if !errors.As(err, &notFound) || notFound.Name != "missing" {
		t.Errorf("expected FontNotFoundError, got %v", err)
	}
}

func TestFontSize(t *testing.T) {
	r := newTestResolver(t, fstest.MapFS{
		"test.tfm": {Data: fonttest.TFM(map[uint32]int32{'A': fonttest.Unity / 2}, 0, 10)},
	})
	for _, scale := range []int32{0, -pt, 2048 * pt, 1 << 30} {
		def := testDef("test")
		def.Scale = scale
		_, err := r.Width(def, 'A')
		var sizeErr *FontSizeError
		if !errors.As(err, &sizeErr) || sizeErr.Scale != scale {
			t.Errorf("width at scale %d: expected FontSizeError, got %v", scale, err)
		}

		ref := testRef("test")
		ref.Scale = scale
		_, err = r.Glyph(ref, 'A', 600, false)
		if !errors.As(err, &sizeErr) {
			t.Errorf("glyph at scale %d: expected FontSizeError, got %v", scale, err)
		}
	}

	def := testDef("test")
	def.Scale = 2048*pt - 1
	if _, err := r.Width(def, 'A'); err != nil {
		t.Errorf("largest size: %v", err)
	}
}

func TestPKGlyph(t *testing.T) {
	pkData := fonttest.PK([]fonttest.Char{testChar}, 10, 600, fonttest.PKOptions{DynF: 4})
	r := newTestResolver(t, fstest.MapFS{
		"pk/dpi601/test.601pk": {Data: pkData},
	})

	g, err := r.Glyph(testRef("test"), 'A', 600, false)
	if err != nil {
		t.Fatal(err)
	}
	if g.HOff != 1 || g.VOff != 3 || g.Advance != 5 {
		t.Errorf("got offset (%d, %d), advance %g", g.HOff, g.VOff, g.Advance)
	}
	if want := image.Rect(-1, -3, 3, 1); inkBounds(g) != want {
		t.Errorf("ink bounds %v, want %v", inkBounds(g), want)
	}

	_, err = r.Glyph(testRef("test"), 'Z', 600, false)
	var notInFont *GlyphNotInFontError
	if !errors.As(err, &notInFont) {
		t.Errorf("expected GlyphNotInFontError, got %v", err)
	}

	_, err = r.Glyph(testRef("test"), 'A', 300, false)
	var notFound *FontNotFoundError
	if !errors.As(err, &notFound) || notFound.Resolution != 300 {
		t.Errorf("expected FontNotFoundError, got %v", err)
	}

	// Without a TFM file, widths come from the PK file.
	w, err := r.Metrics(600).Width(testDef("test"), 'A')
	if err != nil {
		t.Fatal(err)
	}
	if w != 5*pt {
		t.Errorf("PK width: got %d, want %d", w, 5*pt)
	}
}

func TestSingleResolution(t *testing.T) {
	pkData := fonttest.PK([]fonttest.Char{testChar}, 10, 300, fonttest.PKOptions{DynF: 8})
	r := newTestResolver(t, fstest.MapFS{"test.300pk": {Data: pkData}})

	const n = 32
	glyphs := make([]*Glyph, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g, err := r.Glyph(testRef("test"), 'A', 300, true)
			if err != nil {
				t.Error(err)
			}
			glyphs[i] = g
		}()
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if glyphs[i] != glyphs[0] {
			t.Fatalf("call %d returned a different glyph", i)
		}
	}
	if s := r.Cache.Stats(); s.Insertions != 1 || s.Entries != 1 {
		t.Errorf("cache stats %+v", s)
	}
}

// type1File returns a Type 1 font with a single rectangular glyph "A" of
// width 500 and height 700 font units.
func type1File(t *testing.T) []byte {
	t.Helper()
	data, err := fonttest.Type1("TestRect", map[byte]fonttest.Rect{
		'A': {Name: "A", Width: 500, URx: 500, URy: 700},
	})
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestClear(t *testing.T) {
	small := testChar
	small.Rows = []string{"XX", "XX"}
	files := fstest.MapFS{
		"test.300pk": {Data: fonttest.PK([]fonttest.Char{testChar}, 10, 300, fonttest.PKOptions{DynF: 8})},
	}
	r := newTestResolver(t, files)

	inkSize := func() image.Point {
		t.Helper()
		g, err := r.Glyph(testRef("test"), 'A', 300, true)
		if err != nil {
			t.Fatal(err)
		}
		return inkBounds(g).Size()
	}

	if got := inkSize(); got != image.Pt(4, 4) {
		t.Fatalf("glyph size %v", got)
	}
	files["test.300pk"] = &fstest.MapFile{
		Data: fonttest.PK([]fonttest.Char{small}, 10, 300, fonttest.PKOptions{DynF: 8}),
	}
	if got := inkSize(); got != image.Pt(4, 4) {
		t.Errorf("glyph changed without Clear: %v", got)
	}
	r.Clear()
	if got := inkSize(); got != image.Pt(2, 2) {
		t.Errorf("glyph size after Clear %v, want (2,2)", got)
	}
	if s := r.Cache.Stats(); s.Entries != 1 {
		t.Errorf("%d glyphs cached", s.Entries)
	}
}

func TestType1(t *testing.T) {
	r := newTestResolver(t, fstest.MapFS{
		"type1/rect.pfb": {Data: type1File(t)},
		"map/test.map": {Data: []byte(`rect TestRect <rect.pfb
wide TestRect "2 ExtendFont" <rect.pfb
slanted TestRect "1 SlantFont" <rect.pfb
`)},
	})
	if err := r.LoadMap("test.map"); err != nil {
		t.Fatal(err)
	}

	// At 72.27dpi, one point is one pixel and the em size is 10 pixels.
	const dpi = 72.27
	for _, test := range []struct {
		name  string
		width int32
		ink   image.Rectangle
	}{
		{"rect", 5 * pt, image.Rect(0, -7, 5, 0)},
		{"wide", 10 * pt, image.Rect(0, -7, 10, 0)},
	} {
		w, err := r.Width(testDef(test.name), 'A')
		if err != nil {
			t.Fatal(err)
		}
		if w != test.width {
			t.Errorf("%s: width %d, want %d", test.name, w, test.width)
		}
		g, err := r.Glyph(testRef(test.name), 'A', dpi, false)
		if err != nil {
			t.Fatal(err)
		}
		if ink := inkBounds(g); ink != test.ink {
			t.Errorf("%s: ink bounds %v, want %v", test.name, ink, test.ink)
		}
	}

	// Slanted fonts lean to the right.
	g, err := r.Glyph(testRef("slanted"), 'A', dpi, true)
	if err != nil {
		t.Fatal(err)
	}
	if ink := inkBounds(g); ink.Min.X < 0 || ink.Max.X < 10 || ink.Min.Y != -7 {
		t.Errorf("slanted: ink bounds %v", ink)
	}

	_, err = r.Glyph(testRef("rect"), 'B', dpi, false)
	var notInFont *GlyphNotInFontError
	if !errors.As(err, &notInFont) {
		t.Errorf("expected GlyphNotInFontError, got %v", err)
	}
}

func TestOpenType(t *testing.T) {
	r := newTestResolver(t, fstest.MapFS{
		"goregular.ttf": {Data: goregular.TTF},
		"test.enc":      {Data: []byte("/TestEncoding [ /.notdef /H ] def\n")},
	})
	r.Map["gor"] = &fontmap.Entry{TFM: "gor", FontFile: "goregular.ttf", Extend: 1}
	r.Map["gorenc"] = &fontmap.Entry{TFM: "gorenc", FontFile: "goregular.ttf", Encoding: "test.enc", Extend: 1}

	direct, err := r.Glyph(testRef("gor"), 'H', 600, true)
	if err != nil {
		t.Fatal(err)
	}
	if direct.IsBlank() || direct.Advance <= 0 {
		t.Fatalf("unexpected glyph %+v", direct)
	}
	encoded, err := r.Glyph(testRef("gorenc"), 1, 600, true)
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(direct, encoded); d != "" {
		t.Errorf("glyph mismatch (-direct +encoded):\n%s", d)
	}

	w, err := r.Width(testDef("gor"), 'H')
	if err != nil {
		t.Fatal(err)
	}
	if w <= 0 || w >= 10*pt {
		t.Errorf("unexpected width %d", w)
	}

	_, err = r.Glyph(testRef("gorenc"), 2, 600, true)
	var notInFont *GlyphNotInFontError
	if !errors.As(err, &notInFont) {
		t.Errorf("expected GlyphNotInFontError, got %v", err)
	}
}

func TestLocators(t *testing.T) {
	a, err := NewDirLocator(fstest.MapFS{
		"a/x.tfm":   {Data: []byte("first")},
		"b/x.tfm":   {Data: []byte("second")},
		"c/d/y.tfm": {Data: []byte("nested")},
	})
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewDirLocator(fstest.MapFS{"z.tfm": {Data: []byte("other")}})
	if err != nil {
		t.Fatal(err)
	}
	loc := Locators{a, b}

	for name, want := range map[string]string{"x.tfm": "first", "y.tfm": "nested", "z.tfm": "other"} {
		f, err := loc.Open(name)
		if err != nil {
			t.Fatal(err)
		}
		buf := &bytes.Buffer{}
		_, err = buf.ReadFrom(f)
		f.Close()
		if err != nil {
			t.Fatal(err)
		}
		if buf.String() != want {
			t.Errorf("%s: got %q, want %q", name, buf.String(), want)
		}
	}

	_, err = loc.Open("missing.tfm")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestCache(t *testing.T) {
	c := NewCache()
	k1 := CacheKey{Font: testRef("a"), Code: 1, DPI: 600}
	k2 := CacheKey{Font: testRef("a"), Code: 1, DPI: 600, AA: true}
	g := &Glyph{Advance: 1}

	if _, ok := c.Get(k1); ok {
		t.Fatal("empty cache returned a glyph")
	}
	c.Put(k1, g)
	if got, ok := c.Get(k1); !ok || got != g {
		t.Error("glyph not found")
	}
	if _, ok := c.Get(k2); ok {
		t.Error("anti-aliasing is part of the key")
	}
	if n := c.Len(); n != 1 {
		t.Errorf("Len() = %d", n)
	}
	want := CacheStats{Hits: 1, Misses: 2, Insertions: 1, Entries: 1}
	if d := cmp.Diff(want, c.Stats()); d != "" {
		t.Errorf("stats (-want +got):\n%s", d)
	}
	c.Clear()
	if n := c.Len(); n != 0 {
		t.Errorf("Len() after Clear = %d", n)
	}
}
