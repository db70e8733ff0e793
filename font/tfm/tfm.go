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

// Package tfm reads TeX font metric files.
//
// Only the information needed to position characters is kept: the
// checksum, the design size and the width, height and depth of every
// character.  Ligature and kerning programs are already applied by TeX
// and are skipped.
package tfm

import (
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrMalformed is wrapped by all errors for invalid TFM data.
var ErrMalformed = errors.New("malformed TFM file")

// Font holds the metrics of a TeX font.
type Font struct {
	Checksum uint32

	// DesignSize is the design size in units of 2^-20 points.
	DesignSize int32

	// BC and EC are the smallest and largest character codes.
	// If the font has no characters, BC = EC + 1.
	BC, EC int

	chars   []charInfo
	widths  []int32
	heights []int32
	depths  []int32

	// Params holds the font parameters (slant, space, ...), as fix_words.
	Params []int32
}

type charInfo struct {
	width, height, depth uint8
}

// Read reads a TFM file from r.
func Read(r io.Reader) (*Font, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes the contents of a TFM file.
func Parse(data []byte) (*Font, error) {
	if len(data) < 24 {
		return nil, fmt.Errorf("%w: file too short", ErrMalformed)
	}
	var hdr [12]int
	for i := range hdr {
		hdr[i] = int(data[2*i])<<8 | int(data[2*i+1])
	}
	lf, lh, bc, ec := hdr[0], hdr[1], hdr[2], hdr[3]
	nw, nh, nd, ni := hdr[4], hdr[5], hdr[6], hdr[7]
	nl, nk, ne, np := hdr[8], hdr[9], hdr[10], hdr[11]

	if bc > ec+1 || ec > 255 || lh < 2 {
		return nil, fmt.Errorf("%w: invalid character range %d-%d", ErrMalformed, bc, ec)
	}
	nc := ec - bc + 1
	if lf != 6+lh+nc+nw+nh+nd+ni+nl+nk+ne+np {
		return nil, fmt.Errorf("%w: inconsistent table lengths", ErrMalformed)
	}
	if 4*lf > len(data) {
		return nil, fmt.Errorf("%w: file truncated", ErrMalformed)
	}
	if nw == 0 || nh == 0 || nd == 0 || ni == 0 {
		return nil, fmt.Errorf("%w: missing dimension tables", ErrMalformed)
	}

	word := func(i int) []byte {
		return data[4*i : 4*i+4]
	}
	fix := func(i int) int32 {
		b := word(i)
		return int32(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
	}
	table := func(start, n int) []int32 {
		res := make([]int32, n)
		for i := range res {
			res[i] = fix(start + i)
		}
		return res
	}

	f := &Font{
		BC: bc,
		EC: ec,
	}
	f.Checksum = uint32(fix(6))
	f.DesignSize = fix(7)

	base := 6 + lh
	f.chars = make([]charInfo, nc)
	for i := range f.chars {
		b := word(base + i)
		ci := charInfo{
			width:  b[0],
			height: b[1] >> 4,
			depth:  b[1] & 15,
		}
		if int(ci.width) >= nw || int(ci.height) >= nh || int(ci.depth) >= nd {
			return nil, fmt.Errorf("%w: index out of range for char %d", ErrMalformed, bc+i)
		}
		f.chars[i] = ci
	}
	base += nc
	f.widths = table(base, nw)
	base += nw
	f.heights = table(base, nh)
	base += nh
	f.depths = table(base, nd)
	base += nd + ni + nl + nk + ne
	f.Params = table(base, np)

	return f, nil
}

func (f *Font) info(c uint32) (charInfo, bool) {
	if int64(c) < int64(f.BC) || int64(c) > int64(f.EC) {
		return charInfo{}, false
	}
	ci := f.chars[int(c)-f.BC]
	// width index 0 marks a character which does not exist
	return ci, ci.width != 0
}

// HasChar reports whether the font contains the character code c.
func (f *Font) HasChar(c uint32) bool {
	_, ok := f.info(c)
	return ok
}

// Width returns the width of character c, as a fix_word relative to the
// design size.
func (f *Font) Width(c uint32) (int32, bool) {
	ci, ok := f.info(c)
	if !ok {
		return 0, false
	}
	return f.widths[ci.width], true
}

// Height returns the height of character c, relative to the design size.
func (f *Font) Height(c uint32) (int32, bool) {
	ci, ok := f.info(c)
	if !ok {
		return 0, false
	}
	return f.heights[ci.height], true
}

// Depth returns the depth of character c, relative to the design size.
func (f *Font) Depth(c uint32) (int32, bool) {
	ci, ok := f.info(c)
	if !ok {
		return 0, false
	}
	return f.depths[ci.depth], true
}

// ScaledWidth returns the width of character c for a font loaded at size
// s, in the same units as s.
func (f *Font) ScaledWidth(c uint32, s int32) (int32, bool) {
	w, ok := f.Width(c)
	if !ok {
		return 0, false
	}
	return Scale(w, s), true
}

// MaxSize is the exclusive upper limit for font sizes, 2048pt in DVI
// units.  TeX refuses to load fonts at this size or larger.
const MaxSize = 1 << 27

// Scale multiplies the fix_word w by the size s, using the exact integer
// arithmetic of TeX, so that the result agrees with the positions in DVI
// files.  Sizes outside the range TeX allows are scaled using floating
// point arithmetic.
func Scale(w int32, s int32) int32 {
	if s <= 0 || s >= MaxSize {
		return int32(max(math.MinInt32, min(math.MaxInt32, math.Round(float64(w)/(1<<20)*float64(s)))))
	}
	z := int64(s)
	alpha := int64(16)
	for z >= 0x800000 {
		z /= 2
		alpha += alpha
	}
	beta := 256 / alpha
	alpha *= z

	b := uint32(w)
	b0 := int64(b >> 24)
	b1 := int64(b >> 16 & 0xFF)
	b2 := int64(b >> 8 & 0xFF)
	b3 := int64(b & 0xFF)
	sw := (((b3*z)/256+b2*z)/256 + b1*z) / beta
	switch b0 {
	case 0:
		return int32(sw)
	case 255:
		return int32(sw - alpha)
	default:
		// |w| >= 16, not allowed for widths; fall back to floating point
		return int32(float64(w) / (1 << 20) * float64(s))
	}
}
