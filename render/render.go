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
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"sync"

	"seehuhn.de/go/dvi"
	"seehuhn.de/go/dvi/font"
	"seehuhn.de/go/dvi/internal/logging"
	"seehuhn.de/go/dvi/page"
)

// Result describes the outcome of a rendering session.
type Result struct {
	// Pages has one entry for every page the session attempted, in the
	// order of the page selection.
	Pages []PageResult

	// Rendered is the number of pages rendered without error.
	Rendered int
}

// PageResult describes the outcome for one page.
type PageResult struct {
	// Seq is the position of the page in the document, starting at 1.
	Seq int

	// Number is the value of \count0 on the page.
	Number int32

	// File is the name of the image file written for the page.
	File string

	// Bounds is the bounding box of all ink on the page, in pixels from
	// the top left corner of the uncropped page.  Bounds is empty for a
	// blank page.
	Bounds image.Rectangle

	// Image is the page image.  This is only set if no output file name
	// was given.
	Image *image.NRGBA

	// Err is the reason the page could not be rendered, or nil.
	Err error
}

// PageError is returned for pages which could not be rendered.
type PageError struct {
	Seq    int
	Number int32
	Err    error
}

func (err *PageError) Error() string {
	return fmt.Sprintf("page %d (sequence number %d): %v", err.Number, err.Seq, err.Err)
}

func (err *PageError) Unwrap() error {
	return err.Err
}

// Render renders the selected pages of the named DVI file.  If
// opts.Output is empty, the images are written to files named after the
// DVI file, in the current directory.  If opts is nil, the default
// options are used.
func Render(ctx context.Context, name string, opts *Options) (*Result, error) {
	doc, err := dvi.Open(name)
	if err != nil {
		return nil, err
	}

	var o Options
	if opts != nil {
		o = *opts
	} else {
		o = *DefaultOptions()
	}
	if o.Output == "" {
		base := filepath.Base(name)
		o.Output = strings.TrimSuffix(base, filepath.Ext(base)) + "%d.png"
	}
	return RenderDocument(ctx, doc, &o)
}

// RenderDocument renders the selected pages of doc.  If opts is nil, the
// default options are used.
//
// If a page fails and opts.ContinueOnError is not set, no further files are
// written and the returned error is the [PageError] for the failed page.
// Otherwise, errors are only reported in the result.  If ctx is cancelled,
// no new pages are started and the context's error is returned.
func RenderDocument(ctx context.Context, doc *dvi.Document, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if !(opts.DPI > 0) || math.IsInf(opts.DPI, 0) {
		return nil, fmt.Errorf("invalid resolution %g", opts.DPI)
	}
	sel, err := ParsePages(opts.Pages)
	if err != nil {
		return nil, err
	}

	s := newSession(doc, opts)
	indices := sel.Pages(doc)
	if len(indices) == 0 {
		s.logger.Warn("no pages selected", slog.String("pages", opts.Pages))
	}
	res, err := s.run(ctx, indices)

	stats := s.fonts.Cache.Stats()
	s.logger.Debug("session finished",
		slog.Int("pages", len(res.Pages)),
		slog.Int("rendered", res.Rendered),
		slog.Uint64("cache_hits", stats.Hits),
		slog.Uint64("cache_misses", stats.Misses),
		slog.Int("glyphs", stats.Entries))
	return res, err
}

// session holds the state shared by all workers of a rendering session.
// Nothing in a session is modified after newSession returns.
type session struct {
	doc     *dvi.Document
	opts    *Options
	logger  *slog.Logger
	fonts   *font.Resolver
	metrics dvi.Metrics
	device  *page.Device
	size    image.Point
	bg, fg  color.NRGBA
	starts  []dvi.PageStart
	enc     *Encoder
}

func newSession(doc *dvi.Document, opts *Options) *session {
	s := &session{
		doc:    doc,
		opts:   opts,
		logger: logging.OrNop(opts.Logger),
		fonts:  opts.Fonts,
		device: page.NewDevice(doc, opts.DPI, opts.Margin.X, opts.Margin.Y),
		bg:     opts.Background,
		fg:     opts.Foreground,
		enc:    &Encoder{Indexed: opts.Indexed},
	}
	if s.fonts == nil {
		s.fonts = font.NewResolver(nil)
		s.fonts.Logger = s.logger
	}
	s.metrics = s.fonts.Metrics(s.device.DPI)
	if opts.SkipMissingGlyphs {
		s.metrics = skipMissing{s.metrics}
	}
	if opts.Transparent {
		s.bg = color.NRGBA{}
	}
	if s.fg == (color.NRGBA{}) {
		s.fg = dvi.Black
	}
	s.size = pageSize(doc, s.device, opts)

	starts, err := doc.PageStarts(opts.Palette)
	if err != nil {
		// Pages after the damaged one start with the default colors.
		s.logger.Warn("cannot scan color specials", slog.Any("error", err))
	}
	s.starts = starts
	return s
}

// pageSize returns the size of the page images in pixels.
func pageSize(doc *dvi.Document, dev *page.Device, opts *Options) image.Point {
	if opts.PageSize.X > 0 && opts.PageSize.Y > 0 {
		return image.Point{
			X: int(math.Round(opts.PageSize.X * opts.DPI)),
			Y: int(math.Round(opts.PageSize.Y * opts.DPI)),
		}
	}
	if doc.MaxWidth > 0 && doc.MaxHeight > 0 {
		return image.Point{
			X: int(math.Ceil(float64(doc.MaxWidth)*dev.Scale)) + 2*dev.Origin.X,
			Y: int(math.Ceil(float64(doc.MaxHeight)*dev.Scale)) + 2*dev.Origin.Y,
		}
	}
	// US letter
	return image.Point{
		X: int(math.Round(8.5 * opts.DPI)),
		Y: int(math.Round(11 * opts.DPI)),
	}
}

type job struct {
	pos int // position in the page selection
	idx int // page index in the document
}

type rendered struct {
	pos int
	res PageResult
	img *image.NRGBA
}

// run renders the given pages using a pool of workers.  Pages may finish
// in any order, but are written in the order of the selection.
func (s *session) run(ctx context.Context, indices []int) (*Result, error) {
	workers := min(max(s.opts.Workers, 1), max(len(indices), 1))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan job)
	results := make(chan rendered)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(runCtx, jobs, results)
		}()
	}

	go func() {
		defer close(jobs)
		for pos, idx := range indices {
			select {
			case jobs <- job{pos: pos, idx: idx}:
			case <-runCtx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	res := &Result{}
	pending := make(map[int]rendered)
	next := 0
	var firstErr error
	for done := range results {
		pending[done.pos] = done
		for {
			r, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			if firstErr != nil {
				continue
			}

			pr := s.output(r, len(indices))
			res.Pages = append(res.Pages, pr)
			if pr.Err == nil {
				res.Rendered++
			} else if !s.opts.ContinueOnError {
				firstErr = pr.Err
				cancel()
			} else {
				s.logger.Warn("page failed", slog.Any("error", pr.Err))
			}
		}
	}

	if firstErr != nil {
		return res, firstErr
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

// worker renders pages until the jobs channel is closed.  Every worker
// has its own interpreter and pixel buffer.
func (s *session) worker(ctx context.Context, jobs <-chan job, results chan<- rendered) {
	in := dvi.NewInterpreter(s.doc, s.metrics)
	in.Foreground = s.fg
	in.Palette = s.opts.Palette
	in.Special = s.opts.Special
	in.Logger = s.logger

	p := &page.Painter{
		Doc:               s.doc,
		Device:            s.device,
		Fonts:             s.fonts,
		Compositor:        &page.Compositor{},
		AntiAlias:         s.opts.AntiAlias,
		SkipMissingGlyphs: s.opts.SkipMissingGlyphs,
		Logger:            s.logger,
	}

	for j := range jobs {
		if ctx.Err() != nil {
			continue
		}
		results <- s.renderPage(in, p, j)
	}
}

func (s *session) renderPage(in *dvi.Interpreter, p *page.Painter, j job) rendered {
	info := s.doc.Pages[j.idx]
	res := PageResult{Seq: j.idx + 1, Number: info.Count[0]}

	var start *dvi.PageStart
	if j.idx < len(s.starts) {
		start = &s.starts[j.idx]
	}

	p.Compositor.Begin(s.size, s.bg)
	if err := in.RunPage(j.idx, start, p); err != nil {
		res.Err = &PageError{Seq: res.Seq, Number: res.Number, Err: err}
		return rendered{pos: j.pos, res: res}
	}
	res.Bounds = p.Compositor.Ink()
	return rendered{pos: j.pos, res: res, img: p.Compositor.Finish(s.opts.Tight)}
}

// output writes the image of a rendered page, if an output file was
// requested.
func (s *session) output(r rendered, total int) PageResult {
	res := r.res
	if res.Err != nil {
		return res
	}
	if s.opts.Output == "" {
		res.Image = r.img
		return res
	}

	name := FileName(s.opts.Output, r.pos+1, total)
	if err := s.enc.WriteFile(name, r.img); err != nil {
		res.Err = &PageError{Seq: res.Seq, Number: res.Number, Err: err}
		return res
	}
	res.File = name
	s.logger.Debug("wrote page",
		slog.Int("page", int(res.Number)),
		slog.String("file", name),
		slog.Int("width", r.img.Rect.Dx()),
		slog.Int("height", r.img.Rect.Dy()))
	return res
}

// skipMissing gives characters from missing fonts zero width.
type skipMissing struct {
	dvi.Metrics
}

func (m skipMissing) Width(f *dvi.FontDef, code uint32) (int32, error) {
	w, err := m.Metrics.Width(f, code)
	if err != nil && page.IsMissing(err) {
		return 0, nil
	}
	return w, err
}
