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

// Command export writes all test cases to testdata/cases, one directory
// per case.  Each directory holds the DVI file, the fonts it needs and a
// JSON description of the expected result, so that other renderers can
// be checked against the same cases.
package main

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"seehuhn.de/go/dvi/testcases"
)

const outDir = "testdata/cases"

func main() {
	var index []jsonTestCase
	for _, category := range slices.Sorted(maps.Keys(testcases.All)) {
		for _, tc := range testcases.All[category] {
			name := category + "_" + tc.Name
			if err := tc.WriteFiles(filepath.Join(outDir, name)); err != nil {
				panic(err)
			}
			index = append(index, toJSON(name, &tc))
		}
	}

	f, err := os.Create(filepath.Join(outDir, "testcases.json"))
	if err != nil {
		panic(err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any{"testcases": index}); err != nil {
		panic(err)
	}
}

type jsonTestCase struct {
	Name   string      `json:"name"`
	DPI    float64     `json:"dpi"`
	Mag    uint32      `json:"mag,omitempty"`
	Ink    [4]int      `json:"ink"`
	Colors []jsonPixel `json:"colors,omitempty"`
}

type jsonPixel struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Color string `json:"color"`
}

func toJSON(name string, tc *testcases.TestCase) jsonTestCase {
	jtc := jsonTestCase{
		Name: name,
		DPI:  tc.DPI,
		Mag:  tc.Mag,
		Ink:  [4]int{tc.Ink.Min.X, tc.Ink.Min.Y, tc.Ink.Max.X, tc.Ink.Max.Y},
	}
	for p, c := range tc.Colors {
		jtc.Colors = append(jtc.Colors, jsonPixel{
			X:     p.X,
			Y:     p.Y,
			Color: fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A),
		})
	}
	slices.SortFunc(jtc.Colors, func(a, b jsonPixel) int {
		if a.Y != b.Y {
			return a.Y - b.Y
		}
		return a.X - b.X
	})
	return jtc
}
