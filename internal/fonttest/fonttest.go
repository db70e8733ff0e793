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

// Package fonttest writes small TFM and PK fonts for tests.
package fonttest

import (
	"bytes"
	"encoding/binary"
	"slices"
)

// Unity is the fix_word value 1.0.
const Unity = 1 << 20

// TFM returns a TFM file with the given character widths.  The widths are
// fix_words relative to the design size, which is given in points.
func TFM(widths map[uint32]int32, checksum uint32, designSize int32) []byte {
	codes := make([]uint32, 0, len(widths))
	for c := range widths {
		codes = append(codes, c)
	}
	slices.Sort(codes)
	bc, ec := 1, 0
	if len(codes) > 0 {
		bc, ec = int(codes[0]), int(codes[len(codes)-1])
	}

	wTable := []int32{0}
	index := map[int32]int{}
	for _, c := range codes {
		w := widths[c]
		if _, ok := index[w]; !ok {
			index[w] = len(wTable)
			wTable = append(wTable, w)
		}
	}

	const lh = 2
	nc := ec - bc + 1
	nw, nh, nd, ni := len(wTable), 1, 1, 1
	np := 7
	lf := 6 + lh + nc + nw + nh + nd + ni + np

	var buf bytes.Buffer
	u16 := func(x int) { buf.Write(binary.BigEndian.AppendUint16(nil, uint16(x))) }
	u32 := func(x uint32) { buf.Write(binary.BigEndian.AppendUint32(nil, x)) }
	for _, x := range []int{lf, lh, bc, ec, nw, nh, nd, ni, 0, 0, 0, np} {
		u16(x)
	}
	u32(checksum)
	u32(uint32(designSize) << 20)
	for c := bc; c <= ec; c++ {
		w, ok := widths[uint32(c)]
		if !ok {
			u32(0)
			continue
		}
		u32(uint32(index[w]) << 24)
	}
	for _, w := range wTable {
		u32(uint32(w))
	}
	u32(0) // height
	u32(0) // depth
	u32(0) // italic correction
	for range np {
		u32(0)
	}
	return buf.Bytes()
}

// Char describes a character of a PK font.
type Char struct {
	Code     uint32
	TFMWidth int32 // fix_word
	DX       int32 // escapement in pixels
	HOff     int32
	VOff     int32

	// Rows gives the bitmap, one string per row, with 'X' for black
	// pixels and any other byte for white ones.
	Rows []string
}

// PKOptions control how the characters are encoded.
type PKOptions struct {
	// DynF selects the packing parameter.  The value 14 writes
	// uncompressed bitmaps.
	DynF int

	// Long forces the long character packet format.
	Long bool
}

// PK returns a PK file containing the given characters.
func PK(chars []Char, designSize int32, dpi float64, opt PKOptions) []byte {
	var buf bytes.Buffer
	u32 := func(x uint32) { buf.Write(binary.BigEndian.AppendUint32(nil, x)) }

	comment := "fonttest"
	buf.WriteByte(247)
	buf.WriteByte(89)
	buf.WriteByte(byte(len(comment)))
	buf.WriteString(comment)
	u32(uint32(designSize) << 20)
	u32(0)
	ppp := uint32(dpi / 72.27 * 65536)
	u32(ppp)
	u32(ppp)

	for _, c := range chars {
		writeChar(&buf, c, opt)
	}

	buf.WriteByte(245)
	for buf.Len()%4 != 0 {
		buf.WriteByte(246)
	}
	return buf.Bytes()
}

func writeChar(buf *bytes.Buffer, c Char, opt PKOptions) {
	h := len(c.Rows)
	w := 0
	if h > 0 {
		w = len(c.Rows[0])
	}
	pixels := make([]bool, 0, w*h)
	for _, row := range c.Rows {
		for i := range row {
			pixels = append(pixels, row[i] == 'X')
		}
	}

	dynF := opt.DynF
	turnOn := len(pixels) > 0 && pixels[0]
	var raster []byte
	if dynF == 14 {
		raster = packRaw(pixels)
	} else {
		raster = packRuns(c.Rows, w, dynF)
	}

	flag := byte(dynF) << 4
	if turnOn && dynF != 14 {
		flag |= 8
	}

	short := !opt.Long && c.Code < 256 && c.TFMWidth >= 0 && c.TFMWidth < 1<<24 &&
		c.DX >= 0 && c.DX < 256 && w < 256 && h < 256 &&
		c.HOff >= -128 && c.HOff < 128 && c.VOff >= -128 && c.VOff < 128 &&
		len(raster)+8 < 1024

	var hdr bytes.Buffer
	if short {
		pl := len(raster) + 8
		hdr.WriteByte(flag | byte(pl>>8))
		hdr.WriteByte(byte(pl))
		hdr.WriteByte(byte(c.Code))
		hdr.Write(binary.BigEndian.AppendUint32(nil, uint32(c.TFMWidth))[1:])
		hdr.WriteByte(byte(c.DX))
		hdr.WriteByte(byte(w))
		hdr.WriteByte(byte(h))
		hdr.WriteByte(byte(int8(c.HOff)))
		hdr.WriteByte(byte(int8(c.VOff)))
	} else {
		pl := len(raster) + 28
		hdr.WriteByte(flag | 7)
		for _, x := range []uint32{
			uint32(pl), c.Code, uint32(c.TFMWidth), uint32(c.DX) << 16, 0,
			uint32(w), uint32(h), uint32(c.HOff), uint32(c.VOff),
		} {
			hdr.Write(binary.BigEndian.AppendUint32(nil, x))
		}
	}
	buf.Write(hdr.Bytes())
	buf.Write(raster)
}

// packRaw stores the pixels as a bit stream, most significant bit first.
func packRaw(pixels []bool) []byte {
	res := make([]byte, (len(pixels)+7)/8)
	for i, black := range pixels {
		if black {
			res[i/8] |= 0x80 >> (i % 8)
		}
	}
	return res
}

type nybbles struct {
	data []byte
	odd  bool
}

func (n *nybbles) put(x int) {
	if n.odd {
		n.data[len(n.data)-1] |= byte(x)
	} else {
		n.data = append(n.data, byte(x)<<4)
	}
	n.odd = !n.odd
}

// putNum writes a run length or repeat count in the packed number format.
func (n *nybbles) putNum(x, dynF int) {
	switch {
	case x <= dynF:
		n.put(x)
	case x <= (13-dynF)*16+dynF:
		x -= dynF + 1
		n.put(x/16 + dynF + 1)
		n.put(x % 16)
	default:
		x += 15 - (13-dynF)*16 - dynF
		var digits []int
		for x > 0 {
			digits = append(digits, x%16)
			x /= 16
		}
		for range len(digits) - 1 {
			n.put(0)
		}
		for i := len(digits) - 1; i >= 0; i-- {
			n.put(digits[i])
		}
	}
}

// packRuns run-length encodes the bitmap, using repeat counts for
// identical rows where possible.
func packRuns(rows []string, w, dynF int) []byte {
	if w == 0 || len(rows) == 0 {
		return nil
	}
	black := func(r, x int) bool { return rows[r][x] == 'X' }

	// For every row, decide how many identical rows follow which are not
	// encoded.  A repeat count must precede a run starting in its row.
	repeat := make([]int, len(rows))
	startsRun := func(r int) bool {
		if r == 0 {
			return true
		}
		if black(r, 0) != black(r-1, w-1) {
			return true
		}
		for x := 1; x < w; x++ {
			if black(r, x) != black(r, x-1) {
				return true
			}
		}
		return false
	}
	for r := 0; r < len(rows); r++ {
		if !startsRun(r) {
			continue
		}
		k := r + 1
		for k < len(rows) && rows[k] == rows[r] {
			k++
		}
		repeat[r] = k - r - 1
		r = k - 1
	}

	out := &nybbles{}
	var pending int // repeat count for the next run
	scheduled := -1 // the last row whose repeat count was written
	cur := black(0, 0)
	run := 0
	emit := func() {
		if pending == 1 {
			out.put(15)
		} else if pending > 1 {
			out.put(14)
			out.putNum(pending, dynF)
		}
		pending = 0
		out.putNum(run, dynF)
	}
	for r := 0; r < len(rows); r++ {
		for x := range w {
			b := black(r, x)
			if b != cur {
				emit()
				cur = b
				run = 0
			}
			if run == 0 && repeat[r] > 0 && scheduled != r {
				pending = repeat[r]
				scheduled = r
			}
			run++
		}
		r += repeat[r]
	}
	if run > 0 {
		emit()
	}
	return out.data
}
