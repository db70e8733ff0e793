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

// Command genref generates reference images for the rendering tests.
// It writes each test case, together with its fonts, into a temporary
// directory and renders it to PNG using the dvipng program from TeX Live.
// Run it from the render package directory.
package main

import (
	"fmt"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"

	"seehuhn.de/go/dvi/testcases"
)

const refDir = "testdata/reference"

func main() {
	if err := os.MkdirAll(refDir, 0o755); err != nil {
		panic(err)
	}
	outDir, err := filepath.Abs(refDir)
	if err != nil {
		panic(err)
	}

	tmp, err := os.MkdirTemp("", "genref-")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmp)

	for _, category := range slices.Sorted(maps.Keys(testcases.All)) {
		for _, tc := range testcases.All[category] {
			name := category + "_" + tc.Name
			dir := filepath.Join(tmp, name)
			if err := tc.WriteFiles(dir); err != nil {
				panic(fmt.Errorf("%s: %w", name, err))
			}
			pngPath := filepath.Join(outDir, name+".png")
			if err := renderPNG(dir, &tc, pngPath); err != nil {
				panic(fmt.Errorf("%s: %w", name, err))
			}
		}
	}
}

func renderPNG(dir string, tc *testcases.TestCase, pngPath string) error {
	// -T tight: crop to the ink, like our Tight option
	// --noghostscript: the test cases contain no PostScript specials
	args := []string{
		"-q",
		"-D", strconv.FormatFloat(tc.DPI, 'f', -1, 64),
		"-T", "tight",
		"-bg", "rgb 1 1 1",
		"--noghostscript",
		"-o", pngPath,
	}
	if _, err := os.Stat(filepath.Join(dir, testcases.MapFile)); err == nil {
		args = append(args, "-map="+testcases.MapFile)
	}
	args = append(args, "case.dvi")

	cmd := exec.Command("dvipng", args...)
	cmd.Dir = dir
	// Make kpathsea find the fonts in the case directory only.
	cmd.Env = append(os.Environ(),
		"TFMFONTS=.",
		"PKFONTS=.",
		"T1FONTS=.",
		"TEXFONTMAPS=.",
		"MKTEXPK=0",
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
