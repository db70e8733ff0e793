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

package dvi

import (
	"errors"
	"strconv"
)

var (
	errNoPreamble  = errors.New("missing preamble")
	errBadID       = errors.New("unsupported DVI version")
	errNoPages     = errors.New("no pages found")
	errNoPostamble = errors.New("postamble not found")
)

// DocumentOpenError indicates that a DVI file could not be opened or
// its preamble/postamble could not be parsed.  This error is fatal for a
// rendering session.
type DocumentOpenError struct {
	Name string
	Pos  int64
	Err  error
}

func (err *DocumentOpenError) Error() string {
	head := "not a valid DVI file"
	if err.Name != "" {
		head = err.Name + ": " + head
	}
	middle := ""
	if err.Err != nil {
		middle = ": " + err.Err.Error()
	}
	tail := ""
	if err.Pos > 0 {
		tail = " (at byte " + strconv.FormatInt(err.Pos, 10) + ")"
	}
	return head + middle + tail
}

func (err *DocumentOpenError) Unwrap() error {
	return err.Err
}

// TruncatedStreamError is returned when a read would go past the end of
// the DVI data.
type TruncatedStreamError struct {
	Pos  int // offset of the failed read
	Need int // number of bytes requested
}

func (err *TruncatedStreamError) Error() string {
	return "unexpected end of DVI data at byte " + strconv.Itoa(err.Pos) +
		" (need " + strconv.Itoa(err.Need) + " bytes)"
}

// StackUnderflowError is returned when a pop command finds an empty stack.
type StackUnderflowError struct {
	Pos int
}

func (err *StackUnderflowError) Error() string {
	return "pop with empty stack at byte " + strconv.Itoa(err.Pos)
}

// StackOverflowError is returned when a push exceeds the stack depth
// announced in the postamble.
type StackOverflowError struct {
	Pos   int
	Depth int
}

func (err *StackOverflowError) Error() string {
	return "stack depth " + strconv.Itoa(err.Depth) +
		" exceeded at byte " + strconv.Itoa(err.Pos)
}

// UnbalancedStackError is returned when a page ends with pushed states
// which were never popped.
type UnbalancedStackError struct {
	Pos   int
	Depth int
}

func (err *UnbalancedStackError) Error() string {
	return "page ends with " + strconv.Itoa(err.Depth) +
		" unbalanced push(es) at byte " + strconv.Itoa(err.Pos)
}

// UnknownFontError is returned when a page selects or uses a font number
// which has no font definition.
type UnknownFontError struct {
	Pos  int
	Font uint32
}

func (err *UnknownFontError) Error() string {
	return "undefined font " + strconv.FormatUint(uint64(err.Font), 10) +
		" at byte " + strconv.Itoa(err.Pos)
}

// BadOpcodeError is returned for an opcode which is not allowed at the
// current position.
type BadOpcodeError struct {
	Pos    int
	Opcode byte
}

func (err *BadOpcodeError) Error() string {
	return "unexpected opcode " + strconv.Itoa(int(err.Opcode)) +
		" at byte " + strconv.Itoa(err.Pos)
}

// GlyphError wraps a font resolution failure with the position of the
// command which needed the glyph.
type GlyphError struct {
	Pos  int
	Font string
	Code uint32
	Err  error
}

func (err *GlyphError) Error() string {
	return "font " + err.Font + " char " + strconv.FormatUint(uint64(err.Code), 10) +
		" at byte " + strconv.Itoa(err.Pos) + ": " + err.Err.Error()
}

func (err *GlyphError) Unwrap() error {
	return err.Err
}
