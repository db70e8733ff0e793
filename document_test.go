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
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"seehuhn.de/go/dvi"
	"seehuhn.de/go/dvi/internal/dvibuild"
)

func threePages() *dvibuild.Builder {
	b := dvibuild.New()
	for i := range 3 {
		b.BeginPage(int32(i + 1))
		if i == 0 {
			b.DefineFont(dvibuild.Font{Num: 7, Checksum: 0x1234, Name: "cmr10"})
			b.DefineFont(dvibuild.Font{Num: 300, Scale: 12 * dvibuild.SP, Name: "cmbx10"})
		}
		b.Push()
		b.Right(dvibuild.SP)
		b.Pop()
		b.EndPage()
	}
	return b
}

func TestParse(t *testing.T) {
	doc, err := dvi.Parse(threePages().Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if doc.Followed {
		t.Error("postamble was not used")
	}
	if len(doc.Pages) != 3 {
		t.Fatalf("found %d pages, expected 3", len(doc.Pages))
	}
	for i, p := range doc.Pages {
		if p.Count[0] != int32(i+1) {
			t.Errorf("page %d: count0=%d", i, p.Count[0])
		}
	}
	if doc.MaxStack != 1 {
		t.Errorf("MaxStack=%d", doc.MaxStack)
	}

	want := map[uint32]*dvi.FontDef{
		7:   {Num: 7, Checksum: 0x1234, Scale: 10 * dvibuild.SP, DesignSize: 10 * dvibuild.SP, Name: "cmr10"},
		300: {Num: 300, Scale: 12 * dvibuild.SP, DesignSize: 10 * dvibuild.SP, Name: "cmbx10"},
	}
	if d := cmp.Diff(want, doc.Fonts); d != "" {
		t.Errorf("fonts (-want +got):\n%s", d)
	}
	if got := doc.Fonts[300].String(); got != "cmbx10@1.2" {
		t.Errorf("String() = %q", got)
	}

	// one DVI unit is one scaled point, 1/(72.27*65536) inches
	conv := doc.Conv()
	if math.Abs(conv*72.27*65536-1) > 1e-12 {
		t.Errorf("Conv() = %g", conv)
	}

	if idx := doc.Find(2); idx != 1 {
		t.Errorf("Find(2) = %d", idx)
	}
	if idx := doc.Find(9); idx != -1 {
		t.Errorf("Find(9) = %d", idx)
	}
}

func TestParseFollow(t *testing.T) {
	b := threePages()
	data := b.Partial()

	doc, err := dvi.Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if !doc.Followed {
		t.Error("expected follow mode")
	}
	if len(doc.Pages) != 3 {
		t.Errorf("found %d pages, expected 3", len(doc.Pages))
	}
	if len(doc.Fonts) != 2 {
		t.Errorf("found %d fonts, expected 2", len(doc.Fonts))
	}

	// an incomplete page at the end is ignored
	doc, err = dvi.Parse(append(data, 139, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Pages) != 3 {
		t.Errorf("found %d pages, expected 3", len(doc.Pages))
	}
}

func TestParseErrors(t *testing.T) {
	good := threePages().Bytes()

	badID := append([]byte(nil), good...)
	badID[1] = 3

	cases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not DVI", []byte("%PDF-1.7\n")},
		{"bad id", badID},
		{"truncated preamble", good[:10]},
		{"no pages", dvibuild.New().Bytes()},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := dvi.Parse(c.data)
			var openErr *dvi.DocumentOpenError
			if !errors.As(err, &openErr) {
				t.Errorf("expected DocumentOpenError, got %v", err)
			}
		})
	}
}

func TestPageStarts(t *testing.T) {
	b := dvibuild.New()
	b.BeginPage(1)
	b.Special("color push Red")
	b.Special("background gray 0.5")
	b.EndPage()
	b.BeginPage(2)
	b.Special("color push rgb 0 0 1")
	b.Special("color pop")
	b.EndPage()
	b.BeginPage(3)
	b.Special("color pop")
	b.EndPage()

	doc, err := dvi.Parse(b.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	starts, err := doc.PageStarts(nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []dvi.PageStart{
		{},
		{Stack: []string{""}, Current: "Red", Background: "gray 0.5"},
		{Stack: []string{""}, Current: "Red", Background: "gray 0.5"},
	}
	if d := cmp.Diff(want, starts); d != "" {
		t.Errorf("page starts (-want +got):\n%s", d)
	}
}
