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

// Package dvi reads TeX DVI files and interprets the commands of a page
// as a sequence of glyph and rule placements.
//
// A [Document] is parsed once and is read-only afterwards, so that
// several [Interpreter]s can work on different pages of the same document
// concurrently.
package dvi

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
)

// DVI opcodes.
const (
	opSetChar0 = 0
	opSet1     = 128
	opSetRule  = 132
	opPut1     = 133
	opPutRule  = 137
	opNop      = 138
	opBop      = 139
	opEop      = 140
	opPush     = 141
	opPop      = 142
	opRight1   = 143
	opW0       = 147
	opW1       = 148
	opX0       = 152
	opX1       = 153
	opDown1    = 157
	opY0       = 161
	opY1       = 162
	opZ0       = 166
	opZ1       = 167
	opFntNum0  = 171
	opFnt1     = 235
	opXXX1     = 239
	opFntDef1  = 243
	opPre      = 247
	opPost     = 248
	opPostPost = 249

	dviID     = 2
	fillerTag = 223
)

// Document is a parsed DVI file.
type Document struct {
	// Name identifies the document in error messages.
	Name string

	// Num and Den give the size of a DVI unit as Num/Den * 10^-7 meters.
	Num, Den uint32

	// Mag is the magnification times 1000.
	Mag uint32

	// Comment is the comment from the preamble.
	Comment string

	// Fonts maps font numbers to font definitions.
	Fonts map[uint32]*FontDef

	// Pages lists the pages in document order.
	Pages []PageInfo

	// MaxStack is the maximum stack depth from the postamble,
	// or 0 if unknown.
	MaxStack int

	// MaxHeight and MaxWidth are the size of the tallest and widest page
	// (in DVI units) from the postamble, or 0 if unknown.
	MaxHeight, MaxWidth int32

	// Followed is set if the postamble could not be used and the pages were
	// found by scanning the file from the beginning.
	Followed bool

	data []byte
}

// PageInfo describes one page of a document.
type PageInfo struct {
	// Offset is the position of the bop command.
	Offset int

	// Count holds the values of \count0 to \count9 when the page was
	// shipped out.  Count[0] is normally the page number.
	Count [10]int32
}

// FontDef is a font definition.  Once registered in a [Document] it is
// never modified.
type FontDef struct {
	Num        uint32
	Checksum   uint32
	Scale      int32 // scaled size, in DVI units
	DesignSize int32 // design size, in DVI units
	Area       string
	Name       string
}

func (f *FontDef) String() string {
	if f.Scale == f.DesignSize || f.DesignSize == 0 {
		return f.Name
	}
	return fmt.Sprintf("%s@%.4g", f.Name, float64(f.Scale)/float64(f.DesignSize))
}

// Open reads and parses the DVI file with the given name.
func Open(name string) (*Document, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, &DocumentOpenError{Name: name, Err: err}
	}
	doc, err := Parse(data)
	if err != nil {
		var openErr *DocumentOpenError
		if errors.As(err, &openErr) {
			openErr.Name = name
		}
		return nil, err
	}
	doc.Name = name
	return doc, nil
}

// Read parses a DVI document from r.
func Read(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &DocumentOpenError{Err: err}
	}
	return Parse(data)
}

// Parse parses the DVI document contained in data.
// The page index and the font table are taken from the postamble.
// If the postamble is missing or damaged, the file is scanned
// from the start instead.
func Parse(data []byte) (*Document, error) {
	doc := &Document{
		Fonts: make(map[uint32]*FontDef),
		data:  data,
	}

	r := NewReader(data)
	if err := doc.readPreamble(r); err != nil {
		return nil, err
	}
	start := r.Pos()

	err := doc.readPostamble()
	if err != nil {
		clear(doc.Fonts)
		doc.Pages = doc.Pages[:0]
		doc.MaxStack = 0
		doc.Followed = true
		if err := doc.scan(start); err != nil {
			return nil, err
		}
	}
	if len(doc.Pages) == 0 {
		return nil, &DocumentOpenError{Err: errNoPages}
	}
	return doc, nil
}

// Data returns the raw bytes of the document.
func (doc *Document) Data() []byte {
	return doc.data
}

// Conv returns the size of one DVI unit in inches, including the
// document's magnification.
func (doc *Document) Conv() float64 {
	return float64(doc.Num) / float64(doc.Den) * float64(doc.Mag) / 1000 / 254000
}

// Find returns the index of the first page whose \count0 equals n,
// or -1 if no such page exists.
func (doc *Document) Find(n int32) int {
	return slices.IndexFunc(doc.Pages, func(p PageInfo) bool {
		return p.Count[0] == n
	})
}

func (doc *Document) readPreamble(r *Reader) error {
	op, err := r.U8()
	if err != nil || op != opPre {
		return &DocumentOpenError{Err: errNoPreamble}
	}
	id, err := r.U8()
	if err != nil {
		return &DocumentOpenError{Err: err}
	}
	if id != dviID {
		return &DocumentOpenError{Pos: 1, Err: fmt.Errorf("%w %d", errBadID, id)}
	}
	var vals [3]uint32
	for i := range vals {
		vals[i], err = r.U32()
		if err != nil {
			return &DocumentOpenError{Err: err}
		}
	}
	doc.Num, doc.Den, doc.Mag = vals[0], vals[1], vals[2]
	if doc.Num == 0 || doc.Den == 0 || doc.Mag == 0 {
		return &DocumentOpenError{Pos: 2, Err: errors.New("invalid unit or magnification")}
	}
	k, err := r.U8()
	if err != nil {
		return &DocumentOpenError{Err: err}
	}
	comment, err := r.Bytes(int(k))
	if err != nil {
		return &DocumentOpenError{Err: err}
	}
	doc.Comment = string(comment)
	return nil
}

// readPostamble locates the postamble via the post_post command at the
// end of the file and reads the font definitions and the page chain.
func (doc *Document) readPostamble() error {
	data := doc.data
	end := len(data)
	for end > 0 && data[end-1] == fillerTag {
		end--
	}
	if len(data)-end < 4 || end < 6 {
		return errNoPostamble
	}
	if data[end-1] != dviID || data[end-6] != opPostPost {
		return errNoPostamble
	}
	r := NewReader(data)
	r.Seek(end - 5)
	q, _ := r.U32()

	if err := r.Seek(int(q)); err != nil {
		return err
	}
	if op, err := r.U8(); err != nil || op != opPost {
		return errNoPostamble
	}
	last, err := r.S32()
	if err != nil {
		return err
	}
	// num, den and mag repeat the preamble
	if _, err := r.Bytes(12); err != nil {
		return err
	}
	if doc.MaxHeight, err = r.S32(); err != nil {
		return err
	}
	if doc.MaxWidth, err = r.S32(); err != nil {
		return err
	}
	maxStack, err := r.U16()
	if err != nil {
		return err
	}
	doc.MaxStack = int(maxStack)
	numPages, err := r.U16()
	if err != nil {
		return err
	}

	for {
		op, err := r.U8()
		if err != nil {
			return err
		}
		if op == opPostPost {
			break
		}
		if op >= opFntDef1 && op < opFntDef1+4 {
			def, err := readFontDef(r, int(op-opFntDef1+1))
			if err != nil {
				return err
			}
			doc.Fonts[def.Num] = def
			continue
		}
		if op == opNop {
			continue
		}
		return &BadOpcodeError{Pos: r.Pos() - 1, Opcode: op}
	}

	// follow the chain of back pointers
	var pages []PageInfo
	pos := int(last)
	for pos >= 0 {
		if len(pages) > len(data)/45 {
			return errors.New("cycle in page chain")
		}
		if err := r.Seek(pos); err != nil {
			return err
		}
		info, prev, err := readBop(r)
		if err != nil {
			return err
		}
		pages = append(pages, info)
		pos = int(prev)
	}
	slices.Reverse(pages)
	if int(numPages) != len(pages) && numPages != 0xFFFF {
		return fmt.Errorf("postamble announces %d pages, found %d", numPages, len(pages))
	}
	doc.Pages = pages
	return nil
}

// scan walks the file from start, recording pages and font definitions.
// This is used for files without a usable postamble, for example when the
// file is still being written by TeX.
func (doc *Document) scan(start int) error {
	r := NewReader(doc.data)
	r.Seek(start)
	depth := 0
	for r.Remaining() > 0 {
		pos := r.Pos()
		op, _ := r.U8()
		switch {
		case op == opBop:
			r.Seek(pos)
			info, _, err := readBop(r)
			if err != nil {
				// an incomplete last page is dropped
				return nil
			}
			doc.Pages = append(doc.Pages, info)
			depth = 0
		case op == opPush:
			depth++
			doc.MaxStack = max(doc.MaxStack, depth)
		case op == opPop:
			depth--
		case op >= opFntDef1 && op < opFntDef1+4:
			def, err := readFontDef(r, int(op-opFntDef1+1))
			if err != nil {
				return nil
			}
			if _, seen := doc.Fonts[def.Num]; !seen {
				doc.Fonts[def.Num] = def
			}
		case op == opPost:
			return nil
		default:
			if err := skipParams(r, op); err != nil {
				if _, ok := err.(*BadOpcodeError); ok {
					return &DocumentOpenError{Pos: int64(pos), Err: err}
				}
				return nil
			}
		}
	}
	return nil
}

// readBop reads a bop command, returning the page information and the
// pointer to the previous bop.
func readBop(r *Reader) (PageInfo, int32, error) {
	info := PageInfo{Offset: r.Pos()}
	op, err := r.U8()
	if err != nil {
		return info, 0, err
	}
	if op != opBop {
		return info, 0, &BadOpcodeError{Pos: info.Offset, Opcode: op}
	}
	for i := range info.Count {
		info.Count[i], err = r.S32()
		if err != nil {
			return info, 0, err
		}
	}
	prev, err := r.S32()
	return info, prev, err
}

// readFontDef reads the parameters of a fnt_def command whose font number
// has n bytes.
func readFontDef(r *Reader, n int) (*FontDef, error) {
	k, err := r.UintN(n)
	if err != nil {
		return nil, err
	}
	def := &FontDef{Num: k}
	if def.Checksum, err = r.U32(); err != nil {
		return nil, err
	}
	if def.Scale, err = r.S32(); err != nil {
		return nil, err
	}
	if def.DesignSize, err = r.S32(); err != nil {
		return nil, err
	}
	a, err := r.U8()
	if err != nil {
		return nil, err
	}
	l, err := r.U8()
	if err != nil {
		return nil, err
	}
	area, err := r.Bytes(int(a))
	if err != nil {
		return nil, err
	}
	name, err := r.Bytes(int(l))
	if err != nil {
		return nil, err
	}
	def.Area = string(area)
	def.Name = string(name)
	return def, nil
}

// skipParams skips over the parameters of the command op, whose opcode
// byte has already been read.
func skipParams(r *Reader, op byte) error {
	var n int
	switch {
	case op < opSet1, op == opNop, op == opEop, op == opPush, op == opPop,
		op == opW0, op == opX0, op == opY0, op == opZ0,
		op >= opFntNum0 && op < opFnt1:
		return nil
	case op < opSetRule:
		n = int(op-opSet1) + 1
	case op == opSetRule, op == opPutRule:
		n = 8
	case op < opPutRule:
		n = int(op-opPut1) + 1
	case op >= opRight1 && op < opW0:
		n = int(op-opRight1) + 1
	case op >= opW1 && op < opX0:
		n = int(op-opW1) + 1
	case op >= opX1 && op < opDown1:
		n = int(op-opX1) + 1
	case op >= opDown1 && op < opY0:
		n = int(op-opDown1) + 1
	case op >= opY1 && op < opZ0:
		n = int(op-opY1) + 1
	case op >= opZ1 && op < opFntNum0:
		n = int(op-opZ1) + 1
	case op >= opFnt1 && op < opXXX1:
		n = int(op-opFnt1) + 1
	case op >= opXXX1 && op < opFntDef1:
		k, err := r.UintN(int(op-opXXX1) + 1)
		if err != nil {
			return err
		}
		n = int(k)
	case op >= opFntDef1 && op < opPre:
		_, err := readFontDef(r, int(op-opFntDef1)+1)
		return err
	default:
		return &BadOpcodeError{Pos: r.Pos() - 1, Opcode: op}
	}
	_, err := r.Bytes(n)
	return err
}
