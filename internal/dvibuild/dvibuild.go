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

// Package dvibuild writes small DVI files for tests.
package dvibuild

import (
	"bytes"
	"encoding/binary"
)

// The unit used by TeX: 1 DVI unit = 1sp = 2^-16 pt.
const (
	TeXNum = 25400000
	TeXDen = 473628672
)

// SP is the number of DVI units in one TeX point, when using the TeX
// units.
const SP = 1 << 16

// Font describes a font definition.
type Font struct {
	Num        uint32
	Checksum   uint32
	Scale      int32
	DesignSize int32
	Name       string
}

// Builder assembles a DVI file command by command.
type Builder struct {
	Num, Den, Mag uint32
	Comment       string

	body     bytes.Buffer
	fonts    []Font
	lastBop  int32
	numPages int
	depth    int
	maxDepth int
	inPage   bool
}

// New returns a builder which uses TeX's units and no magnification.
func New() *Builder {
	return &Builder{
		Num:     TeXNum,
		Den:     TeXDen,
		Mag:     1000,
		Comment: "dvibuild",
		lastBop: -1,
	}
}

func (b *Builder) u8(x byte) {
	b.body.WriteByte(x)
}

func (b *Builder) u16(x uint16) {
	b.body.Write(binary.BigEndian.AppendUint16(nil, x))
}

func (b *Builder) u32(x uint32) {
	b.body.Write(binary.BigEndian.AppendUint32(nil, x))
}

// uintCmd writes op+n-1 followed by x in n bytes, using the smallest n.
func (b *Builder) uintCmd(op byte, x uint32) {
	n := 1
	for n < 4 && x >= 1<<(8*n) {
		n++
	}
	b.u8(op + byte(n-1))
	for i := n - 1; i >= 0; i-- {
		b.u8(byte(x >> (8 * i)))
	}
}

// intCmd writes op+n-1 followed by x in n bytes, using the smallest n.
func (b *Builder) intCmd(op byte, x int32) {
	n := 1
	for n < 4 && (x < -(1<<(8*n-1)) || x >= 1<<(8*n-1)) {
		n++
	}
	b.u8(op + byte(n-1))
	for i := n - 1; i >= 0; i-- {
		b.u8(byte(x >> (8 * i)))
	}
}

// Raw appends arbitrary bytes.
func (b *Builder) Raw(data ...byte) {
	b.body.Write(data)
}

// DefineFont writes a font definition and records it for the postamble.
func (b *Builder) DefineFont(f Font) {
	if f.DesignSize == 0 {
		f.DesignSize = 10 * SP
	}
	if f.Scale == 0 {
		f.Scale = f.DesignSize
	}
	b.ensurePreamble()
	b.fonts = append(b.fonts, f)
	b.fontDef(f)
}

func (b *Builder) fontDef(f Font) {
	b.uintCmd(243, f.Num)
	b.u32(f.Checksum)
	b.u32(uint32(f.Scale))
	b.u32(uint32(f.DesignSize))
	b.u8(0)
	b.u8(byte(len(f.Name)))
	b.body.WriteString(f.Name)
}

// BeginPage starts a new page with the given \count0.
func (b *Builder) BeginPage(count0 int32) {
	b.ensurePreamble()
	pos := int32(b.body.Len())
	b.u8(139)
	b.u32(uint32(count0))
	for range 9 {
		b.u32(0)
	}
	b.u32(uint32(b.lastBop))
	b.lastBop = pos
	b.numPages++
	b.inPage = true
}

// EndPage writes the eop command.
func (b *Builder) EndPage() {
	b.u8(140)
	b.inPage = false
}

// ensurePreamble starts the file, if nothing has been written yet.
func (b *Builder) ensurePreamble() {
	if b.body.Len() == 0 {
		b.preamble()
	}
}

func (b *Builder) preamble() {
	b.u8(247)
	b.u8(2)
	b.u32(b.Num)
	b.u32(b.Den)
	b.u32(b.Mag)
	b.u8(byte(len(b.Comment)))
	b.body.WriteString(b.Comment)
}

// SetChar typesets character c and moves right.
func (b *Builder) SetChar(c uint32) {
	if c < 128 {
		b.u8(byte(c))
		return
	}
	b.uintCmd(128, c)
}

// PutChar typesets character c without moving.
func (b *Builder) PutChar(c uint32) {
	b.uintCmd(133, c)
}

// SetRule draws a rule and moves right by its width.
func (b *Builder) SetRule(height, width int32) {
	b.u8(132)
	b.u32(uint32(height))
	b.u32(uint32(width))
}

// PutRule draws a rule without moving.
func (b *Builder) PutRule(height, width int32) {
	b.u8(137)
	b.u32(uint32(height))
	b.u32(uint32(width))
}

// Push saves the registers.
func (b *Builder) Push() {
	b.u8(141)
	b.depth++
	b.maxDepth = max(b.maxDepth, b.depth)
}

// Pop restores the registers.
func (b *Builder) Pop() {
	b.u8(142)
	b.depth--
}

// Right moves right by d.
func (b *Builder) Right(d int32) { b.intCmd(143, d) }

// W0 moves right by w.
func (b *Builder) W0() { b.u8(147) }

// W sets w and moves right by it.
func (b *Builder) W(d int32) { b.intCmd(148, d) }

// X0 moves right by x.
func (b *Builder) X0() { b.u8(152) }

// X sets x and moves right by it.
func (b *Builder) X(d int32) { b.intCmd(153, d) }

// Down moves down by d.
func (b *Builder) Down(d int32) { b.intCmd(157, d) }

// Y0 moves down by y.
func (b *Builder) Y0() { b.u8(161) }

// Y sets y and moves down by it.
func (b *Builder) Y(d int32) { b.intCmd(162, d) }

// Z0 moves down by z.
func (b *Builder) Z0() { b.u8(166) }

// Z sets z and moves down by it.
func (b *Builder) Z(d int32) { b.intCmd(167, d) }

// SelectFont selects font k.
func (b *Builder) SelectFont(k uint32) {
	if k < 64 {
		b.u8(171 + byte(k))
		return
	}
	b.uintCmd(235, k)
}

// Special writes an xxx command.
func (b *Builder) Special(s string) {
	b.uintCmd(239, uint32(len(s)))
	b.body.WriteString(s)
}

// Bytes returns the complete file including the postamble.
func (b *Builder) Bytes() []byte {
	b.ensurePreamble()
	post := int32(b.body.Len())
	b.u8(248)
	b.u32(uint32(b.lastBop))
	b.u32(b.Num)
	b.u32(b.Den)
	b.u32(b.Mag)
	b.u32(0)
	b.u32(0)
	b.u16(uint16(b.maxDepth))
	b.u16(uint16(b.numPages))
	for _, f := range b.fonts {
		b.fontDef(f)
	}
	b.u8(249)
	b.u32(uint32(post))
	b.u8(2)
	for range 4 + (4-(b.body.Len()%4))%4 {
		b.u8(223)
	}
	res := bytes.Clone(b.body.Bytes())
	b.body.Truncate(int(post))
	return res
}

// Partial returns the file written so far, without a postamble, as if TeX
// were still running.
func (b *Builder) Partial() []byte {
	b.ensurePreamble()
	return bytes.Clone(b.body.Bytes())
}
