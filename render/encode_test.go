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

package render

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFileName(t *testing.T) {
	cases := []struct {
		pattern        string
		counter, total int
		want           string
	}{
		{"page%d.png", 3, 5, "page3.png"},
		{"page%d.png", 1, 1, "page1.png"},
		{"out.png", 1, 1, "out.png"},
		{"out.png", 2, 3, "out-2.png"},
		{"dir/out", 2, 3, "dir/out-2"},
		{"a.b/out.png", 10, 12, "a.b/out-10.png"},
		{"100%_%d.png", 1, 2, "100%_1.png"},
		{"%s-%d-%d.png", 4, 9, "%s-4-%d.png"},
		{"50%.png", 2, 3, "50%-2.png"},
	}
	for _, c := range cases {
		got := FileName(c.pattern, c.counter, c.total)
		if got != c.want {
			t.Errorf("FileName(%q, %d, %d) = %q, want %q",
				c.pattern, c.counter, c.total, got, c.want)
		}
	}
}

// decodeNRGBA decodes a PNG file and converts all pixels to NRGBA.
func decodeNRGBA(t *testing.T, data []byte) (image.Image, []color.NRGBA) {
	t.Helper()
	m, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	b := m.Bounds()
	var pix []color.NRGBA
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			pix = append(pix, color.NRGBAModel.Convert(m.At(x, y)).(color.NRGBA))
		}
	}
	return m, pix
}

func pixels(img *image.NRGBA) []color.NRGBA {
	var pix []color.NRGBA
	for y := img.Rect.Min.Y; y < img.Rect.Max.Y; y++ {
		for x := img.Rect.Min.X; x < img.Rect.Max.X; x++ {
			pix = append(pix, img.NRGBAAt(x, y))
		}
	}
	return pix
}

func TestEncodeIndexed(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 7, 5))
	img.SetNRGBA(1, 1, color.NRGBA{R: 255, A: 255})
	img.SetNRGBA(2, 3, color.NRGBA{G: 10, B: 20, A: 128})
	img.SetNRGBA(6, 4, color.NRGBA{R: 1, G: 2, B: 3, A: 255})

	for _, indexed := range []bool{false, true} {
		enc := &Encoder{Indexed: indexed}
		var buf bytes.Buffer
		if err := enc.Encode(&buf, img); err != nil {
			t.Fatal(err)
		}
		m, got := decodeNRGBA(t, buf.Bytes())
		if _, isPal := m.(*image.Paletted); isPal != indexed {
			t.Errorf("indexed=%t: decoded %T", indexed, m)
		}
		if d := cmp.Diff(pixels(img), got); d != "" {
			t.Errorf("indexed=%t: pixels differ (-want +got):\n%s", indexed, d)
		}
	}
}

func TestEncodeManyColors(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 300, 1))
	for x := range 300 {
		img.SetNRGBA(x, 0, color.NRGBA{R: uint8(x), G: uint8(x >> 8), A: 255})
	}
	enc := &Encoder{Indexed: true}
	var buf bytes.Buffer
	if err := enc.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	m, got := decodeNRGBA(t, buf.Bytes())
	if _, isPal := m.(*image.Paletted); isPal {
		t.Error("image with 300 colors was written as a paletted image")
	}
	if d := cmp.Diff(pixels(img), got); d != "" {
		t.Errorf("pixels differ (-want +got):\n%s", d)
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{B: 255, A: 255})

	enc := &Encoder{}
	name := filepath.Join(dir, "out.png")
	if err := enc.WriteFile(name, img); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "out.png" {
		t.Errorf("unexpected directory contents: %v", entries)
	}

	err = enc.WriteFile(filepath.Join(dir, "missing", "out.png"), img)
	var ioErr *EncodeIOError
	if !errors.As(err, &ioErr) {
		t.Errorf("expected EncodeIOError, got %v", err)
	}
}
