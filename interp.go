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
	"fmt"
	"image/color"
	"log/slog"
	"math"

	"seehuhn.de/go/dvi/internal/logging"
)

// Metrics supplies the advance widths of characters.
type Metrics interface {
	// Width returns the advance width of the character code in font f, in
	// DVI units, already scaled to the font's size.
	Width(f *FontDef, code uint32) (int32, error)
}

// Kind distinguishes the different types of placements.
type Kind uint8

// These are the possible values of [Placement.Kind].
const (
	KindGlyph Kind = iota
	KindRule
	KindBackground
)

func (k Kind) String() string {
	switch k {
	case KindGlyph:
		return "glyph"
	case KindRule:
		return "rule"
	case KindBackground:
		return "background"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Placement is an instruction to draw something on the page.
//
// For glyphs, (H, V) is the reference point of the character and Width is
// its advance width.  For rules, (H, V) is the lower left corner of the
// rectangle, which extends Width units to the right and Height units up.
// A background placement only carries a color.
type Placement struct {
	Kind   Kind
	H, V   int32
	Font   *FontDef
	Code   uint32
	Width  int32
	Height int32
	Color  color.NRGBA
}

// Sink receives the placements generated by an [Interpreter].
type Sink interface {
	Place(p *Placement) error
}

// SpecialFunc is called for every special which is not handled by the
// interpreter itself.  The payload slice is only valid during the call.
type SpecialFunc func(payload []byte, regs Registers) error

// Registers holds the DVI registers which are saved by push and restored
// by pop.
type Registers struct {
	H, V, W, X, Y, Z int32
}

// State is the state of an [Interpreter].
type State uint8

// These are the states of an [Interpreter].
const (
	AwaitingPage State = iota
	InPage
	PageDone
	Failed
)

func (s State) String() string {
	switch s {
	case AwaitingPage:
		return "awaiting page"
	case InPage:
		return "in page"
	case PageDone:
		return "page done"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

const (
	defaultMaxStack = 1024
	noFont          = math.MaxUint32
)

// Interpreter executes the commands of a single DVI page at a time.
// An Interpreter can be reused for several pages, but must not be used
// concurrently.  Different interpreters may share a [Document].
type Interpreter struct {
	Doc     *Document
	Metrics Metrics

	// Foreground is the color at the start of each page, unless a
	// [PageStart] says otherwise.
	Foreground color.NRGBA

	// Palette overrides color names used in color specials.
	Palette map[string]color.NRGBA

	// Special, if set, receives the specials the interpreter does not
	// handle itself.
	Special SpecialFunc

	// Logger receives warnings about invalid color specials.
	Logger *slog.Logger

	r          *Reader
	state      State
	regs       Registers
	stack      []Registers
	font       *FontDef
	fontNum    uint32
	fg         color.NRGBA
	colorStack []color.NRGBA
	count      [10]int32
}

// NewInterpreter returns an interpreter for the pages of doc.
func NewInterpreter(doc *Document, m Metrics) *Interpreter {
	return &Interpreter{
		Doc:        doc,
		Metrics:    m,
		Foreground: Black,
		r:          NewReader(doc.data),
	}
}

// State returns the current state of the interpreter.
func (in *Interpreter) State() State {
	return in.state
}

// Registers returns the current register values.
func (in *Interpreter) Registers() Registers {
	return in.regs
}

// Count returns the \count registers of the most recent page.
func (in *Interpreter) Count() [10]int32 {
	return in.count
}

// Color returns the current drawing color.
func (in *Interpreter) Color() color.NRGBA {
	return in.fg
}

// RunPage interprets the page with the given (zero-based) index and sends
// all placements to sink.  If start is non-nil, the color stack and the
// background are initialized from it.
func (in *Interpreter) RunPage(idx int, start *PageStart, sink Sink) error {
	if idx < 0 || idx >= len(in.Doc.Pages) {
		in.state = Failed
		return fmt.Errorf("page index %d out of range", idx)
	}
	if in.r == nil {
		in.r = NewReader(in.Doc.data)
	}
	if in.Logger == nil {
		in.Logger = logging.Nop()
	}

	in.state = AwaitingPage
	in.regs = Registers{}
	in.stack = in.stack[:0]
	in.font = nil
	in.fontNum = noFont
	in.fg = in.Foreground
	in.colorStack = in.colorStack[:0]

	err := in.runPage(idx, start, sink)
	if err != nil {
		in.state = Failed
		return err
	}
	return nil
}

func (in *Interpreter) runPage(idx int, start *PageStart, sink Sink) error {
	r := in.r
	if err := r.Seek(in.Doc.Pages[idx].Offset); err != nil {
		return err
	}
	info, _, err := readBop(r)
	if err != nil {
		return err
	}
	in.count = info.Count
	in.state = InPage

	if start != nil {
		if err := in.applyStart(start, sink); err != nil {
			return err
		}
	}

	maxStack := in.Doc.MaxStack
	if maxStack <= 0 {
		maxStack = defaultMaxStack
	}

	for {
		pos := r.Pos()
		op, err := r.U8()
		if err != nil {
			return err
		}

		switch {
		case op < opSet1:
			if err := in.char(pos, uint32(op), true, sink); err != nil {
				return err
			}

		case op < opSetRule:
			code, err := r.UintN(int(op-opSet1) + 1)
			if err != nil {
				return err
			}
			if err := in.char(pos, code, true, sink); err != nil {
				return err
			}

		case op == opSetRule, op == opPutRule:
			height, err := r.S32()
			if err != nil {
				return err
			}
			width, err := r.S32()
			if err != nil {
				return err
			}
			if height > 0 && width > 0 {
				p := &Placement{
					Kind:   KindRule,
					H:      in.regs.H,
					V:      in.regs.V,
					Width:  width,
					Height: height,
					Color:  in.fg,
				}
				if err := sink.Place(p); err != nil {
					return err
				}
			}
			if op == opSetRule {
				in.regs.H += width
			}

		case op < opPutRule:
			code, err := r.UintN(int(op-opPut1) + 1)
			if err != nil {
				return err
			}
			if err := in.char(pos, code, false, sink); err != nil {
				return err
			}

		case op == opNop:
			// pass

		case op == opEop:
			if len(in.stack) > 0 {
				return &UnbalancedStackError{Pos: pos, Depth: len(in.stack)}
			}
			in.state = PageDone
			return nil

		case op == opPush:
			if len(in.stack) >= maxStack {
				return &StackOverflowError{Pos: pos, Depth: maxStack}
			}
			in.stack = append(in.stack, in.regs)

		case op == opPop:
			if len(in.stack) == 0 {
				return &StackUnderflowError{Pos: pos}
			}
			in.regs = in.stack[len(in.stack)-1]
			in.stack = in.stack[:len(in.stack)-1]

		case op >= opRight1 && op < opW0:
			d, err := r.IntN(int(op-opRight1) + 1)
			if err != nil {
				return err
			}
			in.regs.H += d

		case op == opW0:
			in.regs.H += in.regs.W
		case op >= opW1 && op < opX0:
			d, err := r.IntN(int(op-opW1) + 1)
			if err != nil {
				return err
			}
			in.regs.W = d
			in.regs.H += d

		case op == opX0:
			in.regs.H += in.regs.X
		case op >= opX1 && op < opDown1:
			d, err := r.IntN(int(op-opX1) + 1)
			if err != nil {
				return err
			}
			in.regs.X = d
			in.regs.H += d

		case op >= opDown1 && op < opY0:
			d, err := r.IntN(int(op-opDown1) + 1)
			if err != nil {
				return err
			}
			in.regs.V += d

		case op == opY0:
			in.regs.V += in.regs.Y
		case op >= opY1 && op < opZ0:
			d, err := r.IntN(int(op-opY1) + 1)
			if err != nil {
				return err
			}
			in.regs.Y = d
			in.regs.V += d

		case op == opZ0:
			in.regs.V += in.regs.Z
		case op >= opZ1 && op < opFntNum0:
			d, err := r.IntN(int(op-opZ1) + 1)
			if err != nil {
				return err
			}
			in.regs.Z = d
			in.regs.V += d

		case op >= opFntNum0 && op < opFnt1:
			if err := in.selectFont(pos, uint32(op-opFntNum0)); err != nil {
				return err
			}

		case op >= opFnt1 && op < opXXX1:
			k, err := r.UintN(int(op-opFnt1) + 1)
			if err != nil {
				return err
			}
			if err := in.selectFont(pos, k); err != nil {
				return err
			}

		case op >= opXXX1 && op < opFntDef1:
			k, err := r.UintN(int(op-opXXX1) + 1)
			if err != nil {
				return err
			}
			payload, err := r.Bytes(int(k))
			if err != nil {
				return err
			}
			if err := in.special(payload, sink); err != nil {
				return err
			}

		case op >= opFntDef1 && op < opPre:
			// Definitions inside pages repeat the postamble.
			if _, err := readFontDef(r, int(op-opFntDef1)+1); err != nil {
				return err
			}

		default:
			return &BadOpcodeError{Pos: pos, Opcode: op}
		}
	}
}

func (in *Interpreter) selectFont(pos int, k uint32) error {
	f, ok := in.Doc.Fonts[k]
	if !ok {
		return &UnknownFontError{Pos: pos, Font: k}
	}
	in.font = f
	in.fontNum = k
	return nil
}

// char places a character and, if advance is set, moves right by its
// width.
func (in *Interpreter) char(pos int, code uint32, advance bool, sink Sink) error {
	if in.font == nil {
		return &UnknownFontError{Pos: pos, Font: in.fontNum}
	}
	width, err := in.Metrics.Width(in.font, code)
	if err != nil {
		return &GlyphError{Pos: pos, Font: in.font.Name, Code: code, Err: err}
	}
	p := &Placement{
		Kind:  KindGlyph,
		H:     in.regs.H,
		V:     in.regs.V,
		Font:  in.font,
		Code:  code,
		Width: width,
		Color: in.fg,
	}
	if err := sink.Place(p); err != nil {
		var glyphErr *GlyphError
		if errors.As(err, &glyphErr) {
			return err
		}
		return &GlyphError{Pos: pos, Font: in.font.Name, Code: code, Err: err}
	}
	if advance {
		in.regs.H += width
	}
	return nil
}
