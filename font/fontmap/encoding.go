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

package fontmap

import (
	"bufio"
	"io"
	"strings"
)

// NotDef is the glyph name used for unassigned codes.
const NotDef = ".notdef"

// Encoding is a PostScript encoding vector.
type Encoding struct {
	Name   string
	Glyphs [256]string
}

// ParseEncoding reads an encoding file of the form
//
//	/TeXBase1Encoding [ /.notdef /dotaccent ... ] def
//
// Comments start with "%".  Unassigned codes are set to [NotDef].
func ParseEncoding(r io.Reader) (*Encoding, error) {
	var tokens []string
	var lines []int
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line, _, _ := strings.Cut(scanner.Text(), "%")
		line = strings.NewReplacer("[", " [ ", "]", " ] ").Replace(line)
		for _, tok := range strings.Fields(line) {
			tokens = append(tokens, tok)
			lines = append(lines, lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	enc := &Encoding{}
	for i := range enc.Glyphs {
		enc.Glyphs[i] = NotDef
	}

	start := -1
	for i, tok := range tokens {
		if tok == "[" {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, &SyntaxError{Line: lineNo, Msg: "missing '['"}
	}
	if start > 0 && strings.HasPrefix(tokens[start-1], "/") {
		enc.Name = tokens[start-1][1:]
	}

	code := 0
	for i := start + 1; i < len(tokens); i++ {
		tok := tokens[i]
		if tok == "]" {
			return enc, nil
		}
		if !strings.HasPrefix(tok, "/") || len(tok) < 2 {
			return nil, &SyntaxError{Line: lines[i], Msg: "unexpected " + tok}
		}
		if code >= 256 {
			return nil, &SyntaxError{Line: lines[i], Msg: "more than 256 glyph names"}
		}
		enc.Glyphs[code] = tok[1:]
		code++
	}
	return nil, &SyntaxError{Line: lineNo, Msg: "missing ']'"}
}
