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

package font

import (
	"errors"
	"io/fs"
	"path"
)

// A Locator opens font files by their base name, for example
// "cmr10.tfm" or "cmr10.600pk".  Missing files are reported with an
// error wrapping [fs.ErrNotExist].
type Locator interface {
	Open(name string) (fs.File, error)
}

// DirLocator finds files anywhere inside a directory tree, similar to
// the ls-R database of a TeX installation.
type DirLocator struct {
	fsys  fs.FS
	index map[string]string
}

// NewDirLocator indexes all files in fsys.  If several files have the
// same base name, the first one in lexical order is used.
func NewDirLocator(fsys fs.FS) (*DirLocator, error) {
	l := &DirLocator{
		fsys:  fsys,
		index: make(map[string]string),
	}
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		base := path.Base(p)
		if _, seen := l.index[base]; !seen {
			l.index[base] = p
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Open implements the [Locator] interface.
func (l *DirLocator) Open(name string) (fs.File, error) {
	p, ok := l.index[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return l.fsys.Open(p)
}

// Locators searches several locators in order.
type Locators []Locator

// Open implements the [Locator] interface.
func (ls Locators) Open(name string) (fs.File, error) {
	for _, l := range ls {
		f, err := l.Open(name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return f, err
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}
