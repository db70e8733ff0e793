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

package dvi

import (
	"errors"
	"testing"
)

func TestReaderInts(t *testing.T) {
	data := []byte{0xFF, 0xFE, 0x80, 0x00, 0x01, 0x7F, 0xFF, 0xFF, 0xFF}

	r := NewReader(data)
	if x, err := r.S8(); err != nil || x != -1 {
		t.Errorf("S8 = %d, %v", x, err)
	}
	if x, err := r.U8(); err != nil || x != 0xFE {
		t.Errorf("U8 = %d, %v", x, err)
	}
	if x, err := r.S24(); err != nil || x != -0x7FFFFF {
		t.Errorf("S24 = %d, %v", x, err)
	}
	if x, err := r.S32(); err != nil || x != 0x7FFFFFFF {
		t.Errorf("S32 = %d, %v", x, err)
	}
	if r.Remaining() != 0 {
		t.Errorf("Remaining = %d", r.Remaining())
	}

	r.Seek(0)
	if x, err := r.S16(); err != nil || x != -2 {
		t.Errorf("S16 = %d, %v", x, err)
	}
	r.Seek(0)
	if x, err := r.U32(); err != nil || x != 0xFFFE8000 {
		t.Errorf("U32 = %x, %v", x, err)
	}
}

func TestReaderTruncated(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	r.Seek(1)

	_, err := r.U32()
	var truncErr *TruncatedStreamError
	if !errors.As(err, &truncErr) {
		t.Fatalf("expected TruncatedStreamError, got %v", err)
	}
	if truncErr.Pos != 1 || truncErr.Need != 4 {
		t.Errorf("wrong error details: %+v", truncErr)
	}
	if r.Pos() != 1 {
		t.Errorf("failed read moved the cursor to %d", r.Pos())
	}

	b, err := r.Bytes(2)
	if err != nil || len(b) != 2 || b[0] != 2 {
		t.Errorf("Bytes = %v, %v", b, err)
	}
	if err := r.Seek(4); err == nil {
		t.Error("seek past end succeeded")
	}
}
