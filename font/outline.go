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
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf/font/pdfenc"
	"seehuhn.de/go/postscript/type1"
	"seehuhn.de/go/postscript/type1/names"

	"seehuhn.de/go/dvi/font/fontmap"
	"seehuhn.de/go/dvi/raster"
)

// outlines gives access to the glyph shapes of an outline font.
type outlines interface {
	// outline returns the outline of the character together with the
	// matrix which maps the path coordinates to em units, with y pointing
	// up.  The advance width is given in em units.  If the font has no
	// glyph for code, ok is false.
	outline(code uint32) (p *path.Data, toEm matrix.Matrix, advance float64, ok bool)
}

// outlineFont is an outline font program together with the settings from
// the font map.
type outlineFont struct {
	outlines
	file   string
	slant  float64
	extend float64
}

// glyphMatrix maps em units to device pixels, with the reference point at
// the origin and y pointing down.
func (f *outlineFont) glyphMatrix(ppem float64) matrix.Matrix {
	transform := matrix.Matrix{f.extend, 0, f.slant, 1, 0, 0}
	return transform.Mul(matrix.Matrix{ppem, 0, 0, -ppem, 0, 0})
}

// Width implements the [Source] interface.
func (f *outlineFont) Width(code uint32) (int32, error) {
	_, _, adv, ok := f.outline(code)
	if !ok {
		return 0, errNoGlyph
	}
	return int32(math.Round(adv * f.extend * (1 << 20))), nil
}

var rasterisers = sync.Pool{
	New: func() any {
		return raster.New(rect.Rect{LLx: -1 << 20, LLy: -1 << 20, URx: 1 << 20, URy: 1 << 20})
	},
}

// Glyph implements the [Source] interface.
func (f *outlineFont) Glyph(code uint32, ppem float64, aa bool) (*Glyph, error) {
	p, toEm, adv, ok := f.outline(code)
	if !ok {
		return nil, errNoGlyph
	}
	g := &Glyph{Advance: adv * f.extend * ppem}
	if p == nil || len(p.Cmds) == 0 {
		return g, nil
	}

	r := rasterisers.Get().(*raster.Rasteriser)
	defer rasterisers.Put(r)
	r.CTM = toEm.Mul(f.glyphMatrix(ppem))
	mask := r.Mask(p, raster.NonZero, aa)
	if mask == nil {
		return g, nil
	}
	g.HOff = -mask.Rect.Min.X
	g.VOff = -mask.Rect.Min.Y
	mask.Rect = mask.Rect.Sub(mask.Rect.Min)
	g.Mask = mask
	return g, nil
}

// type1Outlines serves glyphs from a Type 1 font program.
type type1Outlines struct {
	font     *type1.Font
	encoding []string
}

func newType1Outlines(data []byte, enc *fontmap.Encoding) (*type1Outlines, error) {
	psFont, err := type1.Read(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	o := &type1Outlines{font: psFont}
	switch {
	case enc != nil:
		o.encoding = enc.Glyphs[:]
	case psFont.Encoding != nil:
		o.encoding = psFont.Encoding
	default:
		o.encoding = pdfenc.Standard.Encoding[:]
	}
	return o, nil
}

func (o *type1Outlines) outline(code uint32) (*path.Data, matrix.Matrix, float64, bool) {
	if code >= uint32(len(o.encoding)) {
		return nil, matrix.Matrix{}, 0, false
	}
	name := o.encoding[code]
	g := o.font.Glyphs[name]
	if g == nil || name == "" || name == fontmap.NotDef {
		return nil, matrix.Matrix{}, 0, false
	}
	fm := matrix.Matrix(o.font.FontInfo.FontMatrix)
	return g.Outline, fm, g.WidthX * fm[0], true
}

// sfntOutlines serves glyphs from an OpenType or TrueType font.
type sfntOutlines struct {
	font     *sfnt.Font
	encoding []string
	upm      float64

	mu  sync.Mutex
	buf sfnt.Buffer
}

func newSfntOutlines(data []byte, enc *fontmap.Encoding) (*sfntOutlines, error) {
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, err
	}
	o := &sfntOutlines{
		font: f,
		upm:  float64(f.UnitsPerEm()),
	}
	if enc != nil {
		o.encoding = enc.Glyphs[:]
	}
	return o, nil
}

// glyphIndex maps a character code to a glyph, either through the
// encoding vector and the glyph name's Unicode value, or by using the
// code as a rune.
func (o *sfntOutlines) glyphIndex(code uint32) (sfnt.GlyphIndex, bool) {
	r := rune(code)
	if o.encoding != nil {
		if code >= uint32(len(o.encoding)) {
			return 0, false
		}
		rr := []rune(names.ToUnicode(o.encoding[code], ""))
		if len(rr) != 1 {
			return 0, false
		}
		r = rr[0]
	}
	gid, err := o.font.GlyphIndex(&o.buf, r)
	if err != nil || gid == 0 {
		return 0, false
	}
	return gid, true
}

func (o *sfntOutlines) outline(code uint32) (*path.Data, matrix.Matrix, float64, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	gid, ok := o.glyphIndex(code)
	if !ok {
		return nil, matrix.Matrix{}, 0, false
	}

	// Loading at one pixel per font unit gives the outline in font units,
	// with y pointing down.
	ppem := fixed.Int26_6(o.upm * 64)
	toEm := matrix.Matrix{1 / o.upm, 0, 0, -1 / o.upm, 0, 0}
	adv, err := o.font.GlyphAdvance(&o.buf, gid, ppem, 0)
	if err != nil {
		return nil, matrix.Matrix{}, 0, false
	}
	segments, err := o.font.LoadGlyph(&o.buf, gid, ppem, nil)
	if err != nil {
		return nil, matrix.Matrix{}, 0, false
	}

	p := &path.Data{}
	for _, seg := range segments {
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			p.Cmds = append(p.Cmds, path.CmdMoveTo)
			p.Coords = append(p.Coords, toVec(seg.Args[0]))
		case sfnt.SegmentOpLineTo:
			p.Cmds = append(p.Cmds, path.CmdLineTo)
			p.Coords = append(p.Coords, toVec(seg.Args[0]))
		case sfnt.SegmentOpQuadTo:
			p.Cmds = append(p.Cmds, path.CmdQuadTo)
			p.Coords = append(p.Coords, toVec(seg.Args[0]), toVec(seg.Args[1]))
		case sfnt.SegmentOpCubeTo:
			p.Cmds = append(p.Cmds, path.CmdCubeTo)
			p.Coords = append(p.Coords, toVec(seg.Args[0]), toVec(seg.Args[1]), toVec(seg.Args[2]))
		}
	}
	return p, toEm, float64(adv) / 64 / o.upm, true
}

func toVec(p fixed.Point26_6) vec.Vec2 {
	return vec.Vec2{X: float64(p.X) / 64, Y: float64(p.Y) / 64}
}

// loadOutlines parses a font program, choosing the format by the file
// name extension.
func loadOutlines(file string, r io.Reader, enc *fontmap.Encoding) (outlines, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(file[strings.LastIndexByte(file, '.')+1:])
	switch ext {
	case "pfb", "pfa", "t1":
		return newType1Outlines(data, enc)
	case "otf", "ttf":
		return newSfntOutlines(data, enc)
	default:
		return nil, fmt.Errorf("%s: unsupported font format", file)
	}
}
