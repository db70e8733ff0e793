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

// Reader is a cursor over the bytes of a DVI file.
// All multi-byte quantities are big-endian; signed values use two's
// complement.
//
// A read which would go past the end of the data returns a
// [*TruncatedStreamError] and leaves the cursor unchanged.
type Reader struct {
	data []byte
	pos  int
}

// NewReader returns a Reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Pos returns the current byte offset.
func (r *Reader) Pos() int {
	return r.pos
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Seek moves the cursor to the absolute offset pos.
func (r *Reader) Seek(pos int) error {
	if pos < 0 || pos > len(r.data) {
		return &TruncatedStreamError{Pos: pos, Need: 0}
	}
	r.pos = pos
	return nil
}

func (r *Reader) need(n int) error {
	if n > r.Remaining() {
		return &TruncatedStreamError{Pos: r.pos, Need: n}
	}
	return nil
}

// UintN reads an n-byte unsigned integer, for 1 <= n <= 4.
func (r *Reader) UintN(n int) (uint32, error) {
	if err := r.need(n); err != nil {
		return 0, err
	}
	var x uint32
	for _, b := range r.data[r.pos : r.pos+n] {
		x = x<<8 | uint32(b)
	}
	r.pos += n
	return x, nil
}

// IntN reads an n-byte signed integer, for 1 <= n <= 4.
func (r *Reader) IntN(n int) (int32, error) {
	x, err := r.UintN(n)
	if err != nil {
		return 0, err
	}
	shift := 32 - 8*uint(n)
	return int32(x<<shift) >> shift, nil
}

// U8 reads an unsigned byte.
func (r *Reader) U8() (uint8, error) {
	x, err := r.UintN(1)
	return uint8(x), err
}

// U16 reads a two-byte unsigned integer.
func (r *Reader) U16() (uint16, error) {
	x, err := r.UintN(2)
	return uint16(x), err
}

// U24 reads a three-byte unsigned integer.
func (r *Reader) U24() (uint32, error) {
	return r.UintN(3)
}

// U32 reads a four-byte unsigned integer.
func (r *Reader) U32() (uint32, error) {
	return r.UintN(4)
}

// S8 reads a signed byte.
func (r *Reader) S8() (int8, error) {
	x, err := r.IntN(1)
	return int8(x), err
}

// S16 reads a two-byte signed integer.
func (r *Reader) S16() (int16, error) {
	x, err := r.IntN(2)
	return int16(x), err
}

// S24 reads a three-byte signed integer.
func (r *Reader) S24() (int32, error) {
	return r.IntN(3)
}

// S32 reads a four-byte signed integer.
func (r *Reader) S32() (int32, error) {
	return r.IntN(4)
}

// Bytes returns the next n bytes.  The returned slice aliases the
// underlying data and must not be modified.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, &TruncatedStreamError{Pos: r.pos, Need: n}
	}
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}
