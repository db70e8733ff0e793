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
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// EncodeIOError is returned if an image file cannot be written.
type EncodeIOError struct {
	File string
	Err  error
}

func (err *EncodeIOError) Error() string {
	return "cannot write " + err.File + ": " + err.Err.Error()
}

func (err *EncodeIOError) Unwrap() error {
	return err.Err
}

// Encoder writes page images as PNG files.
type Encoder struct {
	// Indexed makes the encoder write images with at most 256 distinct
	// colors as paletted images.  Other images are written as they are.
	Indexed bool

	enc png.Encoder
}

// Encode writes img to w.
func (e *Encoder) Encode(w io.Writer, img *image.NRGBA) error {
	var m image.Image = img
	if e.Indexed {
		if p, ok := paletted(img); ok {
			m = p
		}
	}
	return e.enc.Encode(w, m)
}

// WriteFile writes img to the named file.  The image is first written to
// a temporary file in the same directory, which is renamed once the image
// is complete.
func (e *Encoder) WriteFile(name string, img *image.NRGBA) error {
	dir, base := filepath.Split(name)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+"-*.tmp")
	if err != nil {
		return &EncodeIOError{File: name, Err: err}
	}
	tmpName := tmp.Name()

	err = e.Encode(tmp, img)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmpName, name)
	}
	if err != nil {
		os.Remove(tmpName)
		return &EncodeIOError{File: name, Err: err}
	}
	return nil
}

// paletted converts img to a paletted image, if it has at most 256
// distinct colors.
func paletted(img *image.NRGBA) (*image.Paletted, bool) {
	b := img.Rect
	index := make(map[color.NRGBA]uint8)
	var pal color.Palette
	res := image.NewPaletted(b, nil)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		src := img.Pix[img.PixOffset(b.Min.X, y):]
		dst := res.Pix[res.PixOffset(b.Min.X, y):]
		for x := range b.Dx() {
			c := color.NRGBA{R: src[4*x], G: src[4*x+1], B: src[4*x+2], A: src[4*x+3]}
			k, ok := index[c]
			if !ok {
				if len(pal) == 256 {
					return nil, false
				}
				k = uint8(len(pal))
				index[c] = k
				pal = append(pal, c)
			}
			dst[x] = k
		}
	}
	res.Palette = pal
	return res, true
}

// FileName returns the output file name for the page with the given
// counter, when total pages are rendered.  Counters start at 1.  The
// first "%d" in pattern is replaced by the counter.  If there is none, the
// counter is inserted before the extension, unless only one page is
// rendered.  All other characters, including "%", are used literally.
func FileName(pattern string, counter, total int) string {
	if strings.Contains(pattern, "%d") {
		return strings.Replace(pattern, "%d", strconv.Itoa(counter), 1)
	}
	if total <= 1 {
		return pattern
	}
	ext := filepath.Ext(pattern)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(pattern, ext), counter, ext)
}
