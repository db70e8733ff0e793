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

// Package fontmap reads dvips font map files and PostScript encoding
// vectors.
//
// A map line has the form
//
//	cmr10 CMR10 "0.167 SlantFont" <[cm.enc <cmr10.pfb
//
// giving the TFM name, the PostScript name, an optional quoted PostScript
// snippet and the files to load.  File names prefixed with "<[" or ending
// in ".enc" are encoding vectors.
package fontmap

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Entry is one line of a font map.
type Entry struct {
	TFM    string
	PSName string

	// FontFile is the name of the font program, or "" if the map only
	// assigns a PostScript name.
	FontFile string

	// Encoding is the name of the encoding file, or "" if the font's
	// built-in encoding is used.
	Encoding string

	// Slant and Extend give the SlantFont and ExtendFont values from the
	// quoted PostScript snippet.  Extend is 1 if not set.
	Slant  float64
	Extend float64

	// Special is the quoted PostScript snippet, without the quotes.
	Special string
}

// Map maps TFM names to map entries.
type Map map[string]*Entry

// SyntaxError reports an invalid line in a map or encoding file.
type SyntaxError struct {
	Line int
	Msg  string
}

func (err *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", err.Line, err.Msg)
}

// Parse reads a font map.
func Parse(r io.Reader) (Map, error) {
	m := Map{}
	if err := m.Add(r); err != nil {
		return nil, err
	}
	return m, nil
}

// Add reads a font map from r and adds its entries to m.  An entry for a
// TFM name which is already present replaces the previous one.
func (m Map) Add(r io.Reader) error {
	lines := bufio.NewScanner(r)
	lineNo := 0
	for lines.Scan() {
		lineNo++
		line := strings.TrimSpace(lines.Text())
		if line == "" || strings.ContainsRune("%#*;", rune(line[0])) {
			continue
		}
		e, err := parseLine(line)
		if err != nil {
			return &SyntaxError{Line: lineNo, Msg: err.Error()}
		}
		m[e.TFM] = e
	}
	return lines.Err()
}

func parseLine(line string) (*Entry, error) {
	e := &Entry{Extend: 1}
	for line != "" {
		var tok string
		switch line[0] {
		case '"':
			end := strings.IndexByte(line[1:], '"')
			if end < 0 {
				return nil, fmt.Errorf("unterminated string")
			}
			e.Special = strings.TrimSpace(line[1 : end+1])
			line = strings.TrimSpace(line[end+2:])
			continue
		case '<':
			tok, line = nextWord(line)
			if tok == "<" || tok == "<<" || tok == "<[" {
				// the file name is the next word
				var name string
				name, line = nextWord(line)
				tok += name
			}
			switch {
			case strings.HasPrefix(tok, "<["):
				e.Encoding = tok[2:]
			case strings.HasPrefix(tok, "<<"):
				e.FontFile = tok[2:]
			case strings.HasSuffix(tok, ".enc"):
				e.Encoding = tok[1:]
			default:
				e.FontFile = tok[1:]
			}
			continue
		}

		tok, line = nextWord(line)
		switch {
		case e.TFM == "":
			e.TFM = tok
		case e.PSName == "":
			if _, err := strconv.Atoi(tok); err == nil {
				// font flags, as written by some map generators
				continue
			}
			e.PSName = tok
		}
	}
	if e.TFM == "" {
		return nil, fmt.Errorf("missing TFM name")
	}
	if err := e.parseSpecial(); err != nil {
		return nil, err
	}
	return e, nil
}

func nextWord(s string) (string, string) {
	end := strings.IndexAny(s, " \t")
	if end < 0 {
		return s, ""
	}
	return s[:end], strings.TrimSpace(s[end:])
}

// parseSpecial extracts the font transformations from the PostScript
// snippet.  Other operators, such as ReEncodeFont, are ignored.
func (e *Entry) parseSpecial() error {
	words := strings.Fields(e.Special)
	for i, w := range words {
		var dst *float64
		switch w {
		case "SlantFont":
			dst = &e.Slant
		case "ExtendFont":
			dst = &e.Extend
		default:
			continue
		}
		if i == 0 {
			return fmt.Errorf("%s without argument", w)
		}
		x, err := strconv.ParseFloat(words[i-1], 64)
		if err != nil {
			return fmt.Errorf("%s: %w", w, err)
		}
		*dst = x
	}
	return nil
}
