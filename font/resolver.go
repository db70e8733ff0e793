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
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strconv"

	"seehuhn.de/go/dvi"
	"seehuhn.de/go/dvi/font/fontmap"
	"seehuhn.de/go/dvi/font/pk"
	"seehuhn.de/go/dvi/font/tfm"
	"seehuhn.de/go/dvi/internal/logging"
)

// Resolver finds font files and renders glyphs.  Every font file is read
// at most once, and every glyph is rendered at most once per size.
// It is safe to use a Resolver concurrently from multiple goroutines.
type Resolver struct {
	Locator Locator

	// Map assigns outline fonts to TFM names.  It must not be modified
	// while the resolver is in use.
	Map fontmap.Map

	Cache  *Cache
	Logger *slog.Logger

	tfms     group[string, *tfm.Font]
	pks      group[pkKey, *pk.Font]
	outlines group[string, *outlineFont]
	encs     group[string, *fontmap.Encoding]
	glyphs   group[CacheKey, *Glyph]
}

type pkKey struct {
	name       string
	resolution int
}

// NewResolver returns a resolver which opens font files using loc.
func NewResolver(loc Locator) *Resolver {
	return &Resolver{
		Locator: loc,
		Map:     fontmap.Map{},
		Cache:   NewCache(),
	}
}

// Clear forgets all loaded font files and rendered glyphs, so that
// changed font files are read again.  Font maps loaded with LoadMap are
// kept.
func (r *Resolver) Clear() {
	r.tfms.reset()
	r.pks.reset()
	r.outlines.reset()
	r.encs.reset()
	r.glyphs.reset()
	r.Cache.Clear()
}

func (r *Resolver) logger() *slog.Logger {
	return logging.OrNop(r.Logger)
}

// LoadMap reads a font map, located by name, and adds its entries to
// r.Map.
func (r *Resolver) LoadMap(name string) error {
	f, err := r.Locator.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	if r.Map == nil {
		r.Map = fontmap.Map{}
	}
	if err := r.Map.Add(f); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// readFile reads a complete file using the locator.
func (r *Resolver) readFile(name string, parse func(io.Reader) error) error {
	if r.Locator == nil {
		return &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	f, err := r.Locator.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := parse(f); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	r.logger().Debug("loaded font file", slog.String("file", name))
	return nil
}

// tfm returns the metrics of the font defined by def.
func (r *Resolver) tfm(def *dvi.FontDef) (*tfm.Font, error) {
	return r.tfms.do(def.Name, true, func() (*tfm.Font, error) {
		var res *tfm.Font
		err := r.readFile(def.Name+".tfm", func(f io.Reader) error {
			var err error
			res, err = tfm.Read(f)
			return err
		})
		if err != nil {
			return nil, err
		}
		if def.Checksum != 0 && res.Checksum != 0 && def.Checksum != res.Checksum {
			r.logger().Warn("TFM checksum mismatch",
				slog.String("font", def.Name),
				slog.String("dvi", strconv.FormatUint(uint64(def.Checksum), 8)),
				slog.String("tfm", strconv.FormatUint(uint64(res.Checksum), 8)))
		}
		return res, nil
	})
}

// pk returns the PK font for name at the given resolution.  Files which
// differ by one dot per inch are accepted as well.
func (r *Resolver) pk(name string, resolution int) (*pk.Font, error) {
	return r.pks.do(pkKey{name, resolution}, true, func() (*pk.Font, error) {
		var lastErr error
		for _, res := range []int{resolution, resolution - 1, resolution + 1} {
			var font *pk.Font
			err := r.readFile(name+"."+strconv.Itoa(res)+"pk", func(f io.Reader) error {
				var err error
				font, err = pk.Read(f)
				return err
			})
			if err == nil {
				return font, nil
			}
			lastErr = err
			if !errors.Is(err, fs.ErrNotExist) {
				break
			}
		}
		return nil, lastErr
	})
}

func (r *Resolver) encoding(name string) (*fontmap.Encoding, error) {
	return r.encs.do(name, true, func() (*fontmap.Encoding, error) {
		var enc *fontmap.Encoding
		err := r.readFile(name, func(f io.Reader) error {
			var err error
			enc, err = fontmap.ParseEncoding(f)
			return err
		})
		return enc, err
	})
}

// outline returns the outline font for a TFM name.  The font map is
// consulted first.  Without a map entry, font files named after the TFM
// file are tried.
func (r *Resolver) outline(name string) (*outlineFont, error) {
	return r.outlines.do(name, true, func() (*outlineFont, error) {
		res := &outlineFont{extend: 1}
		var enc *fontmap.Encoding
		candidates := []string{name + ".pfb", name + ".pfa", name + ".otf", name + ".ttf"}
		if e, ok := r.Map[name]; ok {
			if e.FontFile == "" {
				return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
			}
			candidates = []string{e.FontFile}
			res.slant = e.Slant
			res.extend = e.Extend
			if e.Encoding != "" {
				var err error
				enc, err = r.encoding(e.Encoding)
				if err != nil {
					return nil, err
				}
			}
		}

		var lastErr error
		for _, file := range candidates {
			err := r.readFile(file, func(f io.Reader) error {
				var err error
				res.outlines, err = loadOutlines(file, f, enc)
				return err
			})
			if err == nil {
				res.file = file
				return res, nil
			}
			lastErr = err
			if !errors.Is(err, fs.ErrNotExist) {
				break
			}
		}
		return nil, lastErr
	})
}

// Width returns the advance width of a character in DVI units.  It
// implements the [dvi.Metrics] interface.  Widths are taken from the TFM
// file, or from the outline font if there is no TFM file.
func (r *Resolver) Width(def *dvi.FontDef, code uint32) (int32, error) {
	return r.width(def, code, 0)
}

// Metrics returns a [dvi.Metrics] which additionally falls back to the
// widths stored in PK files at the given device resolution.
func (r *Resolver) Metrics(dpi float64) dvi.Metrics {
	return &metrics{r: r, dpi: dpi}
}

type metrics struct {
	r   *Resolver
	dpi float64
}

func (m *metrics) Width(def *dvi.FontDef, code uint32) (int32, error) {
	return m.r.width(def, code, m.dpi)
}

func (r *Resolver) width(def *dvi.FontDef, code uint32, dpi float64) (int32, error) {
	if err := checkSize(def.Name, def.Scale); err != nil {
		return 0, err
	}
	tf, err := r.tfm(def)
	if err == nil {
		w, ok := tf.ScaledWidth(code, def.Scale)
		if !ok {
			return 0, &GlyphNotInFontError{Font: def.Name, Code: code}
		}
		return w, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return 0, err
	}

	src, err := r.source(def.Name, def.Scale, def.DesignSize, dpi)
	if err != nil {
		return 0, err
	}
	w, err := src.Width(code)
	if errors.Is(err, errNoGlyph) {
		return 0, &GlyphNotInFontError{Font: def.Name, Code: code}
	} else if err != nil {
		return 0, err
	}
	return tfm.Scale(w, def.Scale), nil
}

// source returns the glyph source for a font: the PK file for the device
// resolution if there is one, and the outline font otherwise.  If dpi is
// zero, only outline fonts are considered.
func (r *Resolver) source(name string, scale, designSize int32, dpi float64) (Source, error) {
	resolution := 0
	if dpi > 0 {
		resolution = pkResolution(scale, designSize, dpi)
		pf, err := r.pk(name, resolution)
		if err == nil {
			return bitmapSource{pf}, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	of, err := r.outline(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &FontNotFoundError{Name: name, Resolution: resolution}
	} else if err != nil {
		return nil, err
	}
	return of, nil
}

// Glyph returns the rendered character at the given device resolution.
// The document magnification must be included in dpi.  If aa is set,
// outline glyphs are anti-aliased.  Bitmap glyphs are used as they are.
func (r *Resolver) Glyph(ref Ref, code uint32, dpi float64, aa bool) (*Glyph, error) {
	if err := checkSize(ref.Name, ref.Scale); err != nil {
		return nil, err
	}
	key := CacheKey{Font: ref, Code: code, DPI: dpi, AA: aa}
	if g, ok := r.Cache.Get(key); ok {
		return g, nil
	}
	return r.glyphs.do(key, false, func() (*Glyph, error) {
		// The glyph may have been stored while we were waiting.
		if g, ok := r.Cache.lookup(key); ok {
			return g, nil
		}
		src, err := r.source(ref.Name, ref.Scale, ref.DesignSize, dpi)
		if err != nil {
			return nil, err
		}
		g, err := src.Glyph(code, ref.PixelsPerEm(dpi), aa)
		if errors.Is(err, errNoGlyph) {
			return nil, &GlyphNotInFontError{Font: ref.Name, Code: code}
		} else if err != nil {
			return nil, err
		}
		r.Cache.Put(key, g)
		return g, nil
	})
}
