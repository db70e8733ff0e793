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

package dvi_test

import (
	"errors"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"

	"seehuhn.de/go/dvi"
	"seehuhn.de/go/dvi/internal/dvibuild"
)

const sp = dvibuild.SP

// codeWidths makes every character code as wide as its value in points.
type codeWidths struct{}

func (codeWidths) Width(f *dvi.FontDef, code uint32) (int32, error) {
	return int32(code) * sp, nil
}

type recorder struct {
	placed []dvi.Placement
	fail   error
}

func (r *recorder) Place(p *dvi.Placement) error {
	if r.fail != nil {
		return r.fail
	}
	r.placed = append(r.placed, *p)
	return nil
}

func runPage(t *testing.T, data []byte, idx int) ([]dvi.Placement, *dvi.Interpreter, error) {
	t.Helper()
	doc, err := dvi.Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	in := dvi.NewInterpreter(doc, codeWidths{})
	rec := &recorder{}
	err = in.RunPage(idx, nil, rec)
	return rec.placed, in, err
}

func TestMovement(t *testing.T) {
	b := dvibuild.New()
	b.BeginPage(1)
	b.DefineFont(dvibuild.Font{Num: 0, Name: "f"})
	b.SelectFont(0)
	b.Down(100 * sp)
	b.SetChar(2)        // at h=0, then h=2pt
	b.PutChar(300)      // at h=2pt, no movement
	b.W(sp)             // h=3pt
	b.X(2 * sp)         // h=5pt
	b.Push()            // save h=5pt, v=100pt
	b.W0()              // h=6pt
	b.X0()              // h=8pt
	b.Y(-10 * sp)       // v=90pt
	b.Z(5 * sp)         // v=95pt
	b.Y0()              // v=85pt
	b.Z0()              // v=90pt
	b.SetChar(1)        // at (8pt, 90pt)
	b.Pop()             // h=5pt, v=100pt
	b.SetRule(sp, 4*sp) // rule at h=5pt, then h=9pt
	b.PutRule(sp, sp)   // rule at h=9pt
	b.PutRule(0, sp)    // not drawn
	b.SetChar(1)        // at h=9pt
	b.EndPage()

	placed, in, err := runPage(t, b.Bytes(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if in.State() != dvi.PageDone {
		t.Errorf("state = %s", in.State())
	}

	black := dvi.Black
	f := &dvi.FontDef{Num: 0, Scale: 10 * sp, DesignSize: 10 * sp, Name: "f"}
	want := []dvi.Placement{
		{Kind: dvi.KindGlyph, H: 0, V: 100 * sp, Font: f, Code: 2, Width: 2 * sp, Color: black},
		{Kind: dvi.KindGlyph, H: 2 * sp, V: 100 * sp, Font: f, Code: 300, Width: 300 * sp, Color: black},
		{Kind: dvi.KindGlyph, H: 8 * sp, V: 90 * sp, Font: f, Code: 1, Width: sp, Color: black},
		{Kind: dvi.KindRule, H: 5 * sp, V: 100 * sp, Width: 4 * sp, Height: sp, Color: black},
		{Kind: dvi.KindRule, H: 9 * sp, V: 100 * sp, Width: sp, Height: sp, Color: black},
		{Kind: dvi.KindGlyph, H: 9 * sp, V: 100 * sp, Font: f, Code: 1, Width: sp, Color: black},
	}
	if d := cmp.Diff(want, placed); d != "" {
		t.Errorf("placements (-want +got):\n%s", d)
	}
	if regs := in.Registers(); regs.H != 10*sp || regs.V != 100*sp {
		t.Errorf("final position (%d, %d)", regs.H, regs.V)
	}
}

func TestDeterministic(t *testing.T) {
	b := dvibuild.New()
	for page := range 2 {
		b.BeginPage(int32(page))
		if page == 0 {
			b.DefineFont(dvibuild.Font{Num: 3, Name: "f"})
		}
		b.SelectFont(3)
		for c := range uint32(20) {
			b.Push()
			b.Down(int32(c) * sp)
			b.SetChar(c)
			b.Pop()
			b.Right(sp / 3)
		}
		b.EndPage()
	}
	doc, err := dvi.Parse(b.Bytes())
	if err != nil {
		t.Fatal(err)
	}

	// The same interpreter is reused, to check that no state leaks from
	// one page to the next.
	in := dvi.NewInterpreter(doc, codeWidths{})
	var runs [][]dvi.Placement
	for _, idx := range []int{1, 0, 1} {
		rec := &recorder{}
		if err := in.RunPage(idx, nil, rec); err != nil {
			t.Fatal(err)
		}
		runs = append(runs, rec.placed)
	}
	if d := cmp.Diff(runs[0], runs[2]); d != "" {
		t.Errorf("repeated run differs:\n%s", d)
	}
	if d := cmp.Diff(runs[0], runs[1]); d != "" {
		t.Errorf("identical pages differ:\n%s", d)
	}
}

func TestStackErrors(t *testing.T) {
	underflow := dvibuild.New()
	underflow.BeginPage(1)
	underflow.Push()
	underflow.Pop()
	underflow.Raw(142) // pop
	underflow.EndPage()

	unbalanced := dvibuild.New()
	unbalanced.BeginPage(1)
	unbalanced.Push()
	unbalanced.EndPage()

	overflow := dvibuild.New()
	overflow.BeginPage(1)
	overflow.Push()
	overflow.Raw(141) // the postamble only announces depth 1
	overflow.Pop()
	overflow.Pop()
	overflow.EndPage()

	_, in, err := runPage(t, underflow.Bytes(), 0)
	var underErr *dvi.StackUnderflowError
	if !errors.As(err, &underErr) {
		t.Errorf("expected StackUnderflowError, got %v", err)
	}
	if in.State() != dvi.Failed {
		t.Errorf("state = %s", in.State())
	}

	_, _, err = runPage(t, unbalanced.Bytes(), 0)
	var unbalErr *dvi.UnbalancedStackError
	if !errors.As(err, &unbalErr) || unbalErr.Depth != 1 {
		t.Errorf("expected UnbalancedStackError, got %v", err)
	}

	_, _, err = runPage(t, overflow.Bytes(), 0)
	var overErr *dvi.StackOverflowError
	if !errors.As(err, &overErr) {
		t.Errorf("expected StackOverflowError, got %v", err)
	}
}

func TestUnknownFont(t *testing.T) {
	noFont := dvibuild.New()
	noFont.BeginPage(1)
	noFont.SetChar('A')
	noFont.EndPage()

	badFont := dvibuild.New()
	badFont.BeginPage(1)
	badFont.DefineFont(dvibuild.Font{Num: 1, Name: "f"})
	badFont.SelectFont(2)
	badFont.EndPage()

	for _, data := range [][]byte{noFont.Bytes(), badFont.Bytes()} {
		_, _, err := runPage(t, data, 0)
		var fontErr *dvi.UnknownFontError
		if !errors.As(err, &fontErr) {
			t.Errorf("expected UnknownFontError, got %v", err)
		}
	}
}

func TestBadOpcode(t *testing.T) {
	b := dvibuild.New()
	b.BeginPage(1)
	b.Raw(250)
	b.EndPage()

	_, _, err := runPage(t, b.Bytes(), 0)
	var opErr *dvi.BadOpcodeError
	if !errors.As(err, &opErr) || opErr.Opcode != 250 {
		t.Errorf("expected BadOpcodeError, got %v", err)
	}
}

func TestSinkError(t *testing.T) {
	b := dvibuild.New()
	b.BeginPage(1)
	b.DefineFont(dvibuild.Font{Num: 1, Name: "f"})
	b.SelectFont(1)
	b.SetChar('x')
	b.EndPage()

	doc, err := dvi.Parse(b.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	errMissing := errors.New("missing")
	in := dvi.NewInterpreter(doc, codeWidths{})
	err = in.RunPage(0, nil, &recorder{fail: errMissing})

	var glyphErr *dvi.GlyphError
	if !errors.As(err, &glyphErr) {
		t.Fatalf("expected GlyphError, got %v", err)
	}
	if glyphErr.Font != "f" || glyphErr.Code != 'x' {
		t.Errorf("wrong error details: %v", glyphErr)
	}
	if !errors.Is(err, errMissing) {
		t.Error("cause not wrapped")
	}
}

func TestColorSpecials(t *testing.T) {
	b := dvibuild.New()
	b.BeginPage(1)
	b.DefineFont(dvibuild.Font{Num: 0, Name: "f"})
	b.SelectFont(0)
	b.Special("color push rgb 1 0 0")
	b.PutRule(sp, sp)
	b.Special("color push nonsense")
	b.PutRule(sp, sp)
	b.Special("color pop")
	b.Special("color pop")
	b.PutRule(sp, sp)
	b.Special("color pop")
	b.Special("background Yellow")
	b.Special("color gray 0.5")
	b.PutRule(sp, sp)
	b.Special("papersize=10cm,10cm")
	b.EndPage()

	doc, err := dvi.Parse(b.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	in := dvi.NewInterpreter(doc, codeWidths{})
	var specials []string
	in.Special = func(payload []byte, _ dvi.Registers) error {
		specials = append(specials, string(payload))
		return nil
	}
	rec := &recorder{}
	if err := in.RunPage(0, nil, rec); err != nil {
		t.Fatal(err)
	}

	red := color.NRGBA{R: 255, A: 255}
	gray := color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	var got []color.NRGBA
	for _, p := range rec.placed {
		got = append(got, p.Color)
	}
	want := []color.NRGBA{
		red,
		red, // invalid colors keep the previous one
		dvi.Black,
		{R: 255, G: 255, A: 255}, // background
		gray,
	}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("colors (-want +got):\n%s", d)
	}
	if rec.placed[3].Kind != dvi.KindBackground {
		t.Errorf("placement 3 has kind %s", rec.placed[3].Kind)
	}
	if d := cmp.Diff([]string{"papersize=10cm,10cm"}, specials); d != "" {
		t.Errorf("specials (-want +got):\n%s", d)
	}
}

func TestPageStartColors(t *testing.T) {
	b := dvibuild.New()
	b.BeginPage(1)
	b.Special("color push Blue")
	b.EndPage()
	b.BeginPage(2)
	b.PutRule(sp, sp)
	b.Special("color pop")
	b.PutRule(sp, sp)
	b.EndPage()

	doc, err := dvi.Parse(b.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	starts, err := doc.PageStarts(nil)
	if err != nil {
		t.Fatal(err)
	}
	in := dvi.NewInterpreter(doc, codeWidths{})
	rec := &recorder{}
	if err := in.RunPage(1, &starts[1], rec); err != nil {
		t.Fatal(err)
	}
	want := []color.NRGBA{{B: 255, A: 255}, dvi.Black}
	if len(rec.placed) != 2 {
		t.Fatalf("got %d placements", len(rec.placed))
	}
	for i, p := range rec.placed {
		if p.Color != want[i] {
			t.Errorf("rule %d: color %v, want %v", i, p.Color, want[i])
		}
	}
}

func TestPageStartInvalidColors(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	green := color.NRGBA{G: 128, A: 255}
	palette := map[string]color.NRGBA{"accent": green}

	cases := []struct {
		name     string
		specials []string
		want     []color.NRGBA
	}{
		{
			name:     "set",
			specials: []string{"color rgb 1 0 0", "color NoSuchColor"},
			want:     []color.NRGBA{red, red},
		},
		{
			name:     "push",
			specials: []string{"color rgb 1 0 0", "color push NoSuchColor"},
			want:     []color.NRGBA{red, red},
		},
		{
			name:     "palette",
			specials: []string{"color push accent", "color push rgb 1 0 0", "color NoSuchColor"},
			want:     []color.NRGBA{red, green},
		},
		{
			name:     "palette push",
			specials: []string{"color push rgb 1 0 0", "color push accent", "color push bad 1 2"},
			want:     []color.NRGBA{green, green},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b := dvibuild.New()
			b.BeginPage(1)
			for _, s := range c.specials {
				b.Special(s)
			}
			b.Special("background NoSuchColor")
			b.EndPage()
			b.BeginPage(2)
			b.PutRule(sp, sp)
			b.Special("color pop")
			b.PutRule(sp, sp)
			b.EndPage()

			doc, err := dvi.Parse(b.Bytes())
			if err != nil {
				t.Fatal(err)
			}
			starts, err := doc.PageStarts(palette)
			if err != nil {
				t.Fatal(err)
			}
			if starts[1].Background != "" {
				t.Errorf("invalid background recorded: %q", starts[1].Background)
			}

			// Page 2 on its own must look like page 2 after page 1.
			in := dvi.NewInterpreter(doc, codeWidths{})
			in.Palette = palette
			rec := &recorder{}
			if err := in.RunPage(1, &starts[1], rec); err != nil {
				t.Fatal(err)
			}
			var got []color.NRGBA
			for _, p := range rec.placed {
				got = append(got, p.Color)
			}
			if d := cmp.Diff(c.want, got); d != "" {
				t.Errorf("rule colors (-want +got):\n%s", d)
			}
		})
	}
}

func TestCoordinateRoundTrip(t *testing.T) {
	// h and v only change through explicit movement commands, so that a
	// sequence of moves and the reverse moves returns to the start.
	b := dvibuild.New()
	b.BeginPage(1)
	moves := []int32{1, -1, 1 << 7, -(1 << 7), 1 << 15, -(1 << 15), 1 << 23, -(1 << 23), 1<<31 - 1}
	for _, d := range moves {
		b.Right(d)
		b.Down(d)
	}
	for _, d := range moves {
		b.Right(-d)
		b.Down(-d)
	}
	b.EndPage()

	_, in, err := runPage(t, b.Bytes(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if regs := in.Registers(); regs.H != 0 || regs.V != 0 {
		t.Errorf("ended at (%d, %d)", regs.H, regs.V)
	}
}
