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

// Package testcases defines single-page DVI documents, together with the
// font files they use, for testing renderers.
package testcases

import (
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"seehuhn.de/go/dvi/internal/dvibuild"
	"seehuhn.de/go/dvi/internal/fonttest"
)

// sp is one TeX point in DVI units.
const sp = dvibuild.SP

// MapFile is the name of the font map which assigns outline fonts.
const MapFile = "cases.map"

// TestCase defines a single rendering test.
type TestCase struct {
	Name  string                    // lowercase a-z and _ only
	Fonts []dvibuild.Font           // fonts defined in the document
	Page  func(b *dvibuild.Builder) // writes the page content
	DPI   float64                   // output resolution
	Mag   uint32                    // magnification, 0 means 1000

	// Ink is the expected bounding box of all ink, in pixels on the
	// uncropped page with the TeX origin at (1in, 1in).
	Ink image.Rectangle

	// Colors gives the expected colors of some pixels on the uncropped
	// page.
	Colors map[image.Point]color.NRGBA
}

// DVI returns the document for the test case.
func (tc *TestCase) DVI() []byte {
	b := dvibuild.New()
	if tc.Mag != 0 {
		b.Mag = tc.Mag
	}
	b.Comment = tc.Name
	for _, f := range tc.Fonts {
		b.DefineFont(f)
	}
	b.BeginPage(1)
	tc.Page(b)
	b.EndPage()
	return b.Bytes()
}

// Files returns the font files needed by the test case, indexed by file
// name.  Bitmap fonts are generated for the resolution the document
// needs.
func (tc *TestCase) Files() (map[string][]byte, error) {
	mag := float64(tc.Mag)
	if mag == 0 {
		mag = 1000
	}
	dpi := tc.DPI * mag / 1000

	files := map[string][]byte{}
	for _, f := range tc.Fonts {
		switch f.Name {
		case "box":
			files["box.tfm"] = fonttest.TFM(boxWidths(), 0, 10)
			scale, design := f.Scale, f.DesignSize
			if design == 0 {
				design = 10 * sp
			}
			if scale == 0 {
				scale = design
			}
			res := int(math.Round(dpi * float64(scale) / float64(design)))
			files["box."+strconv.Itoa(res)+"pk"] = fonttest.PK(boxChars, 10, float64(res), fonttest.PKOptions{DynF: 14})
		case "rect":
			files["rect.tfm"] = fonttest.TFM(map[uint32]int32{'A': fonttest.Unity / 2}, 0, 10)
			pfb, err := fonttest.Type1("TestRect", map[byte]fonttest.Rect{
				'A': {Name: "A", Width: 500, URx: 500, URy: 700},
			})
			if err != nil {
				return nil, err
			}
			files["rect.pfb"] = pfb
			files[MapFile] = []byte("rect TestRect <rect.pfb\n")
		}
	}
	return files, nil
}

// WriteFiles writes the document, as case.dvi, and its font files into dir.
func (tc *TestCase) WriteFiles(dir string) error {
	files, err := tc.Files()
	if err != nil {
		return err
	}
	files["case.dvi"] = tc.DVI()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// ink returns the rectangle covering w×h pixels to the right of and above
// the pixel position (x, y) relative to the TeX origin, at 72.27dpi.
func ink(x, y, w, h int) image.Rectangle {
	return image.Rect(72+x, 72+y-h, 72+x+w, 72+y)
}
