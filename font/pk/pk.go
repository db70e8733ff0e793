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

// Package pk reads packed bitmap fonts, as produced by METAFONT and
// gftopk.
package pk

import (
	"errors"
	"fmt"
	"image"
	"io"
)

// ErrMalformed is wrapped by all errors for invalid PK data.
var ErrMalformed = errors.New("malformed PK file")

const (
	opXXX1 = 240
	opYYY  = 244
	opPost = 245
	opNop  = 246
	opPre  = 247

	pkID = 89
)

// Font is a PK font.  Character bitmaps are decoded on demand.
type Font struct {
	Comment string

	// DesignSize is the design size in units of 2^-20 points.
	DesignSize int32
	Checksum   uint32

	// HPPP and VPPP give the resolution in pixels per point,
	// times 2^16.
	HPPP, VPPP int32

	chars map[uint32]packet
}

type packet struct {
	flag byte
	data []byte // the packet after the character code
}

// Char is a decoded character.
type Char struct {
	Code uint32

	// TFMWidth is the width as a fix_word relative to the design size.
	TFMWidth int32

	// DX and DY give the escapement in pixels, times 2^16.
	DX, DY int32

	// HOff and VOff locate the reference point relative to the top left
	// pixel of the bitmap, positive to the right and down.
	HOff, VOff int32

	// Mask holds the bitmap with its top left corner at (0, 0).
	// Black pixels have alpha 255.
	Mask *image.Alpha
}

// Read reads a PK font from r.
func Read(r io.Reader) (*Font, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes the preamble and the character index of a PK font.
func Parse(data []byte) (*Font, error) {
	p := &parser{data: data}
	if p.u8() != opPre || p.u8() != pkID {
		return nil, fmt.Errorf("%w: missing preamble", ErrMalformed)
	}
	f := &Font{
		chars: make(map[uint32]packet),
	}
	f.Comment = string(p.bytes(int(p.u8())))
	f.DesignSize = int32(p.u32())
	f.Checksum = p.u32()
	f.HPPP = int32(p.u32())
	f.VPPP = int32(p.u32())
	if p.err != nil {
		return nil, p.err
	}

	for {
		flag := p.u8()
		if p.err != nil {
			return nil, p.err
		}
		switch {
		case flag < opXXX1:
			code, pl := p.charHeader(flag)
			body := p.bytes(pl)
			if p.err != nil {
				return nil, p.err
			}
			f.chars[code] = packet{flag: flag, data: body}
		case flag < opYYY:
			n := 1 + int(flag-opXXX1)
			p.bytes(int(p.uint(n)))
		case flag == opYYY:
			p.u32()
		case flag == opNop:
			// pass
		case flag == opPost:
			return f, nil
		default:
			return nil, fmt.Errorf("%w: unexpected command %d", ErrMalformed, flag)
		}
		if p.err != nil {
			return nil, p.err
		}
	}
}

// Has reports whether the font contains a bitmap for code.
func (f *Font) Has(code uint32) bool {
	_, ok := f.chars[code]
	return ok
}

// Len returns the number of characters in the font.
func (f *Font) Len() int {
	return len(f.chars)
}

// Char decodes the character with the given code.  If the font has no
// such character, Char returns nil and no error.
func (f *Font) Char(code uint32) (*Char, error) {
	pkt, ok := f.chars[code]
	if !ok {
		return nil, nil
	}
	p := &parser{data: pkt.data}
	c := &Char{Code: code}
	var w, h int
	switch pkt.flag & 7 {
	case 0, 1, 2, 3:
		c.TFMWidth = int32(p.uint(3))
		c.DX = int32(p.u8()) << 16
		w = int(p.u8())
		h = int(p.u8())
		c.HOff = int32(int8(p.u8()))
		c.VOff = int32(int8(p.u8()))
	case 4, 5, 6:
		c.TFMWidth = int32(p.uint(3))
		c.DX = int32(p.uint(2)) << 16
		w = int(p.uint(2))
		h = int(p.uint(2))
		c.HOff = int32(int16(p.uint(2)))
		c.VOff = int32(int16(p.uint(2)))
	default:
		c.TFMWidth = int32(p.u32())
		c.DX = int32(p.u32())
		c.DY = int32(p.u32())
		w = int(p.u32())
		h = int(p.u32())
		c.HOff = int32(p.u32())
		c.VOff = int32(p.u32())
	}
	if p.err != nil {
		return nil, p.err
	}
	if w < 0 || h < 0 || w > 1<<15 || h > 1<<15 {
		return nil, fmt.Errorf("%w: char %d has size %dx%d", ErrMalformed, code, w, h)
	}

	c.Mask = image.NewAlpha(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return c, nil
	}
	raster := pkt.data[p.pos:]
	dynF := int(pkt.flag >> 4)
	var err error
	if dynF == 14 {
		err = unpackRaw(c.Mask, raster)
	} else {
		err = unpackRuns(c.Mask, raster, dynF, pkt.flag&8 != 0)
	}
	if err != nil {
		return nil, fmt.Errorf("char %d: %w", code, err)
	}
	return c, nil
}

func unpackRaw(img *image.Alpha, raster []byte) error {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if len(raster)*8 < w*h {
		return fmt.Errorf("%w: bitmap truncated", ErrMalformed)
	}
	for i := range w * h {
		if raster[i/8]&(0x80>>(i%8)) != 0 {
			img.Pix[(i/w)*img.Stride+i%w] = 255
		}
	}
	return nil
}

// runDecoder reads the nybble stream of a run-length encoded character.
type runDecoder struct {
	data   []byte
	pos    int // in nybbles
	dynF   int
	repeat int
	err    error
}

func (d *runDecoder) nybble() int {
	if d.pos >= 2*len(d.data) {
		d.err = fmt.Errorf("%w: bitmap truncated", ErrMalformed)
		return 0
	}
	b := d.data[d.pos/2]
	if d.pos%2 == 0 {
		b >>= 4
	}
	d.pos++
	return int(b & 15)
}

// packedNum reads a run count.  Repeat counts encountered on the way are
// stored in d.repeat.
func (d *runDecoder) packedNum() int {
	for d.err == nil {
		i := d.nybble()
		switch {
		case i == 0:
			j := 0
			for j == 0 && d.err == nil {
				j = d.nybble()
				i++
			}
			for ; i > 0 && d.err == nil; i-- {
				j = j<<4 | d.nybble()
			}
			return j - 15 + (13-d.dynF)*16 + d.dynF
		case i <= d.dynF:
			return i
		case i < 14:
			return (i-d.dynF-1)<<4 + d.nybble() + d.dynF + 1
		case i == 14:
			d.repeat = d.packedNum()
		default:
			d.repeat = 1
		}
	}
	return 0
}

func unpackRuns(img *image.Alpha, raster []byte, dynF int, black bool) error {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	d := &runDecoder{data: raster, dynF: dynF}

	row := 0
	col := 0
	for row < h {
		count := d.packedNum()
		if d.err != nil {
			return d.err
		}
		for count > 0 && row < h {
			n := min(count, w-col)
			if black {
				line := img.Pix[row*img.Stride:]
				for x := col; x < col+n; x++ {
					line[x] = 255
				}
			}
			col += n
			count -= n
			if col == w {
				src := img.Pix[row*img.Stride : row*img.Stride+w]
				for range d.repeat {
					row++
					if row >= h {
						return fmt.Errorf("%w: repeat count too large", ErrMalformed)
					}
					copy(img.Pix[row*img.Stride:], src)
				}
				d.repeat = 0
				row++
				col = 0
			}
		}
		black = !black
	}
	return nil
}

type parser struct {
	data []byte
	pos  int
	err  error
}

func (p *parser) bytes(n int) []byte {
	if p.err != nil {
		return nil
	}
	if n < 0 || n > len(p.data)-p.pos {
		p.err = fmt.Errorf("%w: unexpected end of data", ErrMalformed)
		return nil
	}
	b := p.data[p.pos : p.pos+n]
	p.pos += n
	return b
}

func (p *parser) uint(n int) uint32 {
	var x uint32
	for _, b := range p.bytes(n) {
		x = x<<8 | uint32(b)
	}
	return x
}

func (p *parser) u8() byte {
	return byte(p.uint(1))
}

func (p *parser) u32() uint32 {
	return p.uint(4)
}

// charHeader reads the packet length and the character code of a character
// packet.  The returned length counts the bytes after the code.
func (p *parser) charHeader(flag byte) (uint32, int) {
	switch flag & 7 {
	case 0, 1, 2, 3:
		pl := int(flag&3)<<8 | int(p.u8())
		return uint32(p.u8()), pl
	case 4, 5, 6:
		pl := int(flag&3)<<16 | int(p.uint(2))
		return uint32(p.u8()), pl
	default:
		pl := int(p.u32())
		return p.u32(), pl
	}
}
