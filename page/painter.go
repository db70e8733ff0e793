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

package page

import (
	"errors"
	"log/slog"

	"seehuhn.de/go/dvi"
	"seehuhn.de/go/dvi/font"
	"seehuhn.de/go/dvi/internal/logging"
)

// Painter draws the placements produced by a [dvi.Interpreter].
// It implements the [dvi.Sink] interface.
type Painter struct {
	Doc        *dvi.Document
	Device     *Device
	Fonts      *font.Resolver
	Compositor *Compositor

	// AntiAlias enables anti-aliasing for outline glyphs.
	AntiAlias bool

	// SkipMissingGlyphs makes glyphs from missing fonts, and characters
	// missing from a font, render as nothing instead of failing the page.
	SkipMissingGlyphs bool

	Logger *slog.Logger

	refs map[*dvi.FontDef]font.Ref
}

// Place implements the [dvi.Sink] interface.
func (p *Painter) Place(pl *dvi.Placement) error {
	switch pl.Kind {
	case dvi.KindBackground:
		p.Compositor.SetBackground(pl.Color)

	case dvi.KindRule:
		r := p.Device.Rule(pl.H, pl.V, pl.Width, pl.Height)
		p.Compositor.Rule(r, pl.Color)

	case dvi.KindGlyph:
		g, err := p.Fonts.Glyph(p.ref(pl.Font), pl.Code, p.Device.DPI, p.AntiAlias)
		if err != nil {
			if p.SkipMissingGlyphs && IsMissing(err) {
				logging.OrNop(p.Logger).Warn("skipping glyph",
					slog.String("font", pl.Font.Name),
					slog.Uint64("code", uint64(pl.Code)),
					slog.Any("error", err))
				return nil
			}
			return err
		}
		pt := p.Device.Point(pl.H, pl.V)
		p.Compositor.Glyph(pt.X, pt.Y, g, pl.Color)
	}
	return nil
}

func (p *Painter) ref(def *dvi.FontDef) font.Ref {
	if ref, ok := p.refs[def]; ok {
		return ref
	}
	if p.refs == nil {
		p.refs = make(map[*dvi.FontDef]font.Ref)
	}
	ref := font.NewRef(p.Doc, def)
	p.refs[def] = ref
	return ref
}

// IsMissing reports whether err is caused by a missing font or a missing
// character.
func IsMissing(err error) bool {
	var notFound *font.FontNotFoundError
	var notInFont *font.GlyphNotInFontError
	return errors.As(err, &notFound) || errors.As(err, &notInFont)
}
