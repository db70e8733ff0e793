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
	"image/color"
	"log/slog"
	"strings"
)

type colorOp uint8

const (
	colorNone colorOp = iota
	colorSet
	colorPush
	colorPop
	colorBackground
)

// parseColorSpecial recognizes the color specials understood by dvips:
// "color push <spec>", "color pop", "color <spec>" and
// "background <spec>".
func parseColorSpecial(payload []byte) (colorOp, string) {
	s := strings.TrimSpace(string(payload))
	keyword, rest, _ := strings.Cut(s, " ")
	rest = strings.TrimSpace(rest)
	switch keyword {
	case "color":
		sub, arg, _ := strings.Cut(rest, " ")
		switch sub {
		case "push":
			return colorPush, strings.TrimSpace(arg)
		case "pop":
			return colorPop, ""
		case "":
			return colorNone, ""
		default:
			return colorSet, rest
		}
	case "background":
		if rest == "" {
			return colorNone, ""
		}
		return colorBackground, rest
	default:
		return colorNone, ""
	}
}

// PageStart describes the color state at the beginning of a page.
// Colors persist across page boundaries, so pages rendered out of order
// need this information to start with the right colors.
type PageStart struct {
	// Stack holds the saved color specifications, bottom first.
	Stack []string

	// Current is the active color specification, or "" for the default
	// foreground color.
	Current string

	// Background is the most recent background specification, or "" if
	// none has been seen yet.
	Background string
}

// PageStarts computes the color state at the start of every page, by
// scanning the color specials of all pages in order.  Specifications
// which cannot be parsed with the given palette are treated like the
// [Interpreter] treats them, so the recorded state only ever contains
// valid specifications.  If a page cannot be scanned, the states up to
// and including that page are returned together with the error.
func (doc *Document) PageStarts(palette map[string]color.NRGBA) ([]PageStart, error) {
	valid := func(spec string) bool {
		_, err := ParseColor(spec, palette)
		return err == nil
	}

	res := make([]PageStart, len(doc.Pages))
	var cur PageStart
	r := NewReader(doc.data)
	for i, page := range doc.Pages {
		res[i] = PageStart{
			Stack:      append([]string(nil), cur.Stack...),
			Current:    cur.Current,
			Background: cur.Background,
		}
		err := walkSpecials(r, page.Offset, func(payload []byte) {
			op, spec := parseColorSpecial(payload)
			switch op {
			case colorSet:
				if valid(spec) {
					cur.Stack = cur.Stack[:0]
					cur.Current = spec
				}
			case colorPush:
				cur.Stack = append(cur.Stack, cur.Current)
				if valid(spec) {
					cur.Current = spec
				}
			case colorPop:
				if n := len(cur.Stack); n > 0 {
					cur.Current = cur.Stack[n-1]
					cur.Stack = cur.Stack[:n-1]
				}
			case colorBackground:
				if valid(spec) {
					cur.Background = spec
				}
			}
		})
		if err != nil {
			return res[:i+1], err
		}
	}
	return res, nil
}

// walkSpecials calls fn for every special on the page starting at the
// given offset.
func walkSpecials(r *Reader, offset int, fn func([]byte)) error {
	if err := r.Seek(offset); err != nil {
		return err
	}
	if _, _, err := readBop(r); err != nil {
		return err
	}
	for {
		op, err := r.U8()
		if err != nil {
			return err
		}
		switch {
		case op == opEop:
			return nil
		case op >= opXXX1 && op < opFntDef1:
			k, err := r.UintN(int(op-opXXX1) + 1)
			if err != nil {
				return err
			}
			payload, err := r.Bytes(int(k))
			if err != nil {
				return err
			}
			fn(payload)
		default:
			if err := skipParams(r, op); err != nil {
				return err
			}
		}
	}
}

func (in *Interpreter) applyStart(start *PageStart, sink Sink) error {
	for _, spec := range start.Stack {
		in.colorStack = append(in.colorStack, in.parseColor(spec))
	}
	in.fg = in.parseColor(start.Current)
	if start.Background != "" {
		c, err := ParseColor(start.Background, in.Palette)
		if err != nil {
			in.Logger.Warn("ignoring background special", slog.String("spec", start.Background), slog.Any("error", err))
			return nil
		}
		return sink.Place(&Placement{Kind: KindBackground, Color: c})
	}
	return nil
}

// parseColor converts a color specification, falling back to the
// foreground color for invalid or empty specifications.
func (in *Interpreter) parseColor(spec string) color.NRGBA {
	if spec == "" {
		return in.Foreground
	}
	c, err := ParseColor(spec, in.Palette)
	if err != nil {
		in.Logger.Warn("ignoring color special", slog.String("spec", spec), slog.Any("error", err))
		return in.Foreground
	}
	return c
}

func (in *Interpreter) special(payload []byte, sink Sink) error {
	op, spec := parseColorSpecial(payload)
	switch op {
	case colorSet:
		c, err := ParseColor(spec, in.Palette)
		if err != nil {
			in.Logger.Warn("ignoring color special", slog.String("spec", spec), slog.Any("error", err))
			return nil
		}
		in.colorStack = in.colorStack[:0]
		in.fg = c
	case colorPush:
		c, err := ParseColor(spec, in.Palette)
		if err != nil {
			in.Logger.Warn("ignoring color special", slog.String("spec", spec), slog.Any("error", err))
			c = in.fg
		}
		in.colorStack = append(in.colorStack, in.fg)
		in.fg = c
	case colorPop:
		n := len(in.colorStack)
		if n == 0 {
			in.Logger.Warn("color pop with empty color stack")
			return nil
		}
		in.fg = in.colorStack[n-1]
		in.colorStack = in.colorStack[:n-1]
	case colorBackground:
		c, err := ParseColor(spec, in.Palette)
		if err != nil {
			in.Logger.Warn("ignoring background special", slog.String("spec", spec), slog.Any("error", err))
			return nil
		}
		return sink.Place(&Placement{Kind: KindBackground, Color: c})
	default:
		if in.Special != nil {
			return in.Special(payload, in.regs)
		}
	}
	return nil
}
