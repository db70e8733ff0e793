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
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"seehuhn.de/go/dvi"
)

// Selection is a list of page ranges.  The nil Selection selects all pages.
type Selection []PageRange

// PageRange selects the pages whose \count0 lies between First and Last,
// inclusive.  If Seq is set, First and Last are sequence numbers instead,
// counting the pages of the document from 1.  A range with IsLast set
// selects only the last page of the document.
type PageRange struct {
	First, Last int64
	Seq         bool
	IsLast      bool
}

var errEmptyItem = errors.New("empty item")

// PageSyntaxError is returned by [ParsePages] for malformed selections.
type PageSyntaxError struct {
	Item string
	Err  error
}

func (err *PageSyntaxError) Error() string {
	return "invalid page selection " + strconv.Quote(err.Item) + ": " + err.Err.Error()
}

func (err *PageSyntaxError) Unwrap() error {
	return err.Err
}

// ParsePages parses a page selection.  The selection is a comma separated
// list of items.  Each item is a page number "n", a range "a-b", or an
// open range "a-" or "-b".  Page numbers refer to the value of \count0 on
// each page.  An item prefixed with "=" uses sequence numbers instead,
// where the first page of the document is number 1.  The items "last" and
// "$" select the last page.
//
// Negative page numbers can be written in parentheses, as in "(-3)" or
// "(-5)-(-2)".  A minus sign which follows a digit separates the two ends
// of a range, so "-5--2" and "-3-" work without parentheses.  A leading
// minus sign always starts an open range: "-3" selects all pages up to
// page 3, and "--3" all pages up to page -3.
func ParsePages(s string) (Selection, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var sel Selection
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		r, err := parseRange(item)
		if err != nil {
			return nil, &PageSyntaxError{Item: item, Err: err}
		}
		sel = append(sel, r)
	}
	return sel, nil
}

func parseRange(item string) (PageRange, error) {
	if item == "" {
		return PageRange{}, errEmptyItem
	}
	if item == "last" || item == "$" {
		return PageRange{IsLast: true}, nil
	}

	var r PageRange
	if rest, ok := strings.CutPrefix(item, "="); ok {
		r.Seq = true
		item = rest
	}

	lo, hi, isRange := cutRange(item)
	if !isRange {
		n, err := parsePageNumber(item)
		if err != nil {
			return PageRange{}, err
		}
		r.First, r.Last = n, n
		return r, nil
	}

	r.First, r.Last = math.MinInt64, math.MaxInt64
	if lo != "" {
		n, err := parsePageNumber(lo)
		if err != nil {
			return PageRange{}, err
		}
		r.First = n
	}
	if hi != "" {
		n, err := parsePageNumber(hi)
		if err != nil {
			return PageRange{}, err
		}
		r.Last = n
	}
	if lo == "" && hi == "" {
		return PageRange{}, errEmptyItem
	}
	if r.First > r.Last {
		return PageRange{}, fmt.Errorf("range %d-%d is empty", r.First, r.Last)
	}
	return r, nil
}

// cutRange splits a range item at the minus sign separating its two ends.
func cutRange(item string) (lo, hi string, isRange bool) {
	depth := 0
	for i := 0; i < len(item); i++ {
		switch c := item[i]; {
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == '-' && depth == 0 && i > 0:
			if prev := item[i-1]; prev == ')' || prev >= '0' && prev <= '9' {
				return item[:i], item[i+1:], true
			}
		}
	}
	if rest, ok := strings.CutPrefix(item, "-"); ok {
		return "", rest, true
	}
	return item, "", false
}

// parsePageNumber parses a signed page number, optionally enclosed in
// parentheses.
func parsePageNumber(s string) (int64, error) {
	if inner, ok := strings.CutPrefix(s, "("); ok {
		if inner, ok = strings.CutSuffix(inner, ")"); ok {
			s = inner
		}
	}
	return strconv.ParseInt(s, 10, 32)
}

// Pages returns the zero-based indices of the selected pages of doc.
// Pages appear in the order of the selection, and within a range in
// document order.  A page selected by several items is listed several
// times.
func (sel Selection) Pages(doc *dvi.Document) []int {
	n := len(doc.Pages)
	if sel == nil {
		res := make([]int, n)
		for i := range res {
			res[i] = i
		}
		return res
	}

	var res []int
	for _, r := range sel {
		switch {
		case r.IsLast:
			if n > 0 {
				res = append(res, n-1)
			}
		case r.Seq:
			lo := max(r.First, 1)
			hi := min(r.Last, int64(n))
			for seq := lo; seq <= hi; seq++ {
				res = append(res, int(seq-1))
			}
		default:
			for i, page := range doc.Pages {
				c := int64(page.Count[0])
				if c >= r.First && c <= r.Last {
					res = append(res, i)
				}
			}
		}
	}
	return res
}
