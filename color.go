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
	"image/color"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// Black is the default foreground color.
var Black = color.NRGBA{A: 255}

// ColorError is returned for a color specification which cannot be
// parsed.
type ColorError struct {
	Spec string
	Err  error
}

func (err *ColorError) Error() string {
	return "invalid color " + strconv.Quote(err.Spec) + ": " + err.Err.Error()
}

func (err *ColorError) Unwrap() error {
	return err.Err
}

var (
	errColorArgs    = errors.New("wrong number of arguments")
	errColorRange   = errors.New("value out of range")
	errColorUnknown = errors.New("unknown color name")
)

// ParseColor parses a color specification as used in color specials.
// The forms "rgb r g b", "gray g", "cmyk c m y k" and "hsb h s b" take
// values between 0 and 1, "RGB R G B" takes values between 0 and 255 and
// "HTML rrggbb" takes a hex triplet.  Any other string is looked up as a
// color name: first in palette, then in the dvips color names, and finally
// in the SVG color names.
func ParseColor(spec string, palette map[string]color.NRGBA) (color.NRGBA, error) {
	fields := strings.Fields(spec)
	if len(fields) == 0 {
		return color.NRGBA{}, &ColorError{Spec: spec, Err: errColorArgs}
	}

	model, args := fields[0], fields[1:]
	var want int
	switch model {
	case "rgb", "hsb", "RGB":
		want = 3
	case "gray":
		want = 1
	case "cmyk":
		want = 4
	case "HTML":
		if len(args) != 1 || len(args[0]) != 6 {
			return color.NRGBA{}, &ColorError{Spec: spec, Err: errColorArgs}
		}
		x, err := strconv.ParseUint(args[0], 16, 32)
		if err != nil {
			return color.NRGBA{}, &ColorError{Spec: spec, Err: err}
		}
		return color.NRGBA{R: uint8(x >> 16), G: uint8(x >> 8), B: uint8(x), A: 255}, nil
	default:
		if len(fields) != 1 {
			return color.NRGBA{}, &ColorError{Spec: spec, Err: errColorUnknown}
		}
		c, ok := lookupColor(model, palette)
		if !ok {
			return color.NRGBA{}, &ColorError{Spec: spec, Err: errColorUnknown}
		}
		return c, nil
	}
	if len(args) != want {
		return color.NRGBA{}, &ColorError{Spec: spec, Err: errColorArgs}
	}

	vals := make([]float64, want)
	limit := 1.0
	if model == "RGB" {
		limit = 255
	}
	for i, arg := range args {
		x, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return color.NRGBA{}, &ColorError{Spec: spec, Err: err}
		}
		if x < 0 || x > limit || math.IsNaN(x) {
			return color.NRGBA{}, &ColorError{Spec: spec, Err: errColorRange}
		}
		vals[i] = x / limit
	}

	switch model {
	case "gray":
		return rgb(vals[0], vals[0], vals[0]), nil
	case "cmyk":
		return cmyk(vals[0], vals[1], vals[2], vals[3]), nil
	case "hsb":
		return hsb(vals[0], vals[1], vals[2]), nil
	default:
		return rgb(vals[0], vals[1], vals[2]), nil
	}
}

func lookupColor(name string, palette map[string]color.NRGBA) (color.NRGBA, bool) {
	if c, ok := palette[name]; ok {
		return c, true
	}
	if c, ok := dvipsNames[name]; ok {
		return cmyk(c[0], c[1], c[2], c[3]), true
	}
	lower := strings.ToLower(name)
	for key, c := range dvipsNames {
		if strings.ToLower(key) == lower {
			return cmyk(c[0], c[1], c[2], c[3]), true
		}
	}
	if c, ok := colornames.Map[lower]; ok {
		return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}, true
	}
	return color.NRGBA{}, false
}

func to8(x float64) uint8 {
	return uint8(math.Round(max(0, min(1, x)) * 255))
}

func rgb(r, g, b float64) color.NRGBA {
	return color.NRGBA{R: to8(r), G: to8(g), B: to8(b), A: 255}
}

// cmyk converts using the naive formula also used by dvips.
func cmyk(c, m, y, k float64) color.NRGBA {
	return rgb(1-min(1, c+k), 1-min(1, m+k), 1-min(1, y+k))
}

func hsb(h, s, v float64) color.NRGBA {
	h = 6 * h
	i := math.Floor(h)
	f := h - i
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))
	switch int(i) % 6 {
	case 0:
		return rgb(v, t, p)
	case 1:
		return rgb(q, v, p)
	case 2:
		return rgb(p, v, t)
	case 3:
		return rgb(p, q, v)
	case 4:
		return rgb(t, p, v)
	default:
		return rgb(v, p, q)
	}
}

// dvipsNames holds the CMYK values of the named colors known to dvips.
var dvipsNames = map[string][4]float64{
	"GreenYellow":    {0.15, 0, 0.69, 0},
	"Yellow":         {0, 0, 1, 0},
	"Goldenrod":      {0, 0.10, 0.84, 0},
	"Dandelion":      {0, 0.29, 0.84, 0},
	"Apricot":        {0, 0.32, 0.52, 0},
	"Peach":          {0, 0.50, 0.70, 0},
	"Melon":          {0, 0.46, 0.50, 0},
	"YellowOrange":   {0, 0.42, 1, 0},
	"Orange":         {0, 0.61, 0.87, 0},
	"BurntOrange":    {0, 0.51, 1, 0},
	"Bittersweet":    {0, 0.75, 1, 0.24},
	"RedOrange":      {0, 0.77, 0.87, 0},
	"Mahogany":       {0, 0.85, 0.87, 0.35},
	"Maroon":         {0, 0.87, 0.68, 0.32},
	"BrickRed":       {0, 0.89, 0.94, 0.28},
	"Red":            {0, 1, 1, 0},
	"OrangeRed":      {0, 1, 0.50, 0},
	"RubineRed":      {0, 1, 0.13, 0},
	"WildStrawberry": {0, 0.96, 0.39, 0},
	"Salmon":         {0, 0.53, 0.38, 0},
	"CarnationPink":  {0, 0.63, 0, 0},
	"Magenta":        {0, 1, 0, 0},
	"VioletRed":      {0, 0.81, 0, 0},
	"Rhodamine":      {0, 0.82, 0, 0},
	"Mulberry":       {0.34, 0.90, 0, 0.02},
	"RedViolet":      {0.07, 0.90, 0, 0.34},
	"Fuchsia":        {0.47, 0.91, 0, 0.08},
	"Lavender":       {0, 0.48, 0, 0},
	"Thistle":        {0.12, 0.59, 0, 0},
	"Orchid":         {0.32, 0.64, 0, 0},
	"DarkOrchid":     {0.40, 0.80, 0.20, 0},
	"Purple":         {0.45, 0.86, 0, 0},
	"Plum":           {0.50, 1, 0, 0},
	"Violet":         {0.79, 0.88, 0, 0},
	"RoyalPurple":    {0.75, 0.90, 0, 0},
	"BlueViolet":     {0.86, 0.91, 0, 0.04},
	"Periwinkle":     {0.57, 0.55, 0, 0},
	"CadetBlue":      {0.62, 0.57, 0.23, 0},
	"CornflowerBlue": {0.65, 0.13, 0, 0},
	"MidnightBlue":   {0.98, 0.13, 0, 0.43},
	"NavyBlue":       {0.94, 0.54, 0, 0},
	"RoyalBlue":      {1, 0.50, 0, 0},
	"Blue":           {1, 1, 0, 0},
	"Cerulean":       {0.94, 0.11, 0, 0},
	"Cyan":           {1, 0, 0, 0},
	"ProcessBlue":    {0.96, 0, 0, 0},
	"SkyBlue":        {0.62, 0, 0.12, 0},
	"Turquoise":      {0.85, 0, 0.20, 0},
	"TealBlue":       {0.86, 0, 0.34, 0.02},
	"Aquamarine":     {0.82, 0, 0.30, 0},
	"BlueGreen":      {0.85, 0, 0.33, 0},
	"Emerald":        {1, 0, 0.50, 0},
	"JungleGreen":    {0.99, 0, 0.52, 0},
	"SeaGreen":       {0.69, 0, 0.50, 0},
	"Green":          {1, 0, 1, 0},
	"ForestGreen":    {0.91, 0, 0.88, 0.12},
	"PineGreen":      {0.92, 0, 0.59, 0.25},
	"LimeGreen":      {0.50, 0, 1, 0},
	"YellowGreen":    {0.44, 0, 0.74, 0},
	"SpringGreen":    {0.26, 0, 0.76, 0},
	"OliveGreen":     {0.64, 0, 0.95, 0.40},
	"RawSienna":      {0, 0.72, 1, 0.45},
	"Sepia":          {0, 0.83, 1, 0.70},
	"Brown":          {0, 0.81, 1, 0.60},
	"Tan":            {0.14, 0.42, 0.56, 0},
	"Gray":           {0, 0, 0, 0.50},
	"Black":          {0, 0, 0, 1},
	"White":          {0, 0, 0, 0},
}
