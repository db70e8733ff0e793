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

package main

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/dvi"
)

// config holds the settings which can be given in a configuration file.
// Command line flags override these.
type config struct {
	DPI        float64           `yaml:"dpi"`
	Background string            `yaml:"background"`
	Foreground string            `yaml:"foreground"`
	Workers    int               `yaml:"jobs"`
	AntiAlias  *bool             `yaml:"antialias"`
	FontDirs   []string          `yaml:"fontdirs"`
	Maps       []string          `yaml:"maps"`
	Palette    map[string]string `yaml:"palette"`
}

func loadConfig(name string) (*config, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	cfg := &config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return cfg, nil
}

// palette converts the color names defined in the configuration file.
func (cfg *config) palette() (map[string]color.NRGBA, error) {
	if len(cfg.Palette) == 0 {
		return nil, nil
	}
	res := make(map[string]color.NRGBA, len(cfg.Palette))
	for name, spec := range cfg.Palette {
		c, err := dvi.ParseColor(spec, nil)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		res[name] = c
	}
	return res, nil
}

var errDims = errors.New(`expected "width,height"`)

// parseDims parses a pair of lengths, like "8.5in,11in".  The result is
// in inches.
func parseDims(s string) (vec.Vec2, error) {
	a, b, ok := strings.Cut(s, ",")
	if !ok {
		return vec.Vec2{}, errDims
	}
	x, err := parseLength(a)
	if err != nil {
		return vec.Vec2{}, err
	}
	y, err := parseLength(b)
	if err != nil {
		return vec.Vec2{}, err
	}
	return vec.Vec2{X: x, Y: y}, nil
}

// units gives the size of the TeX units in inches.
var units = map[string]float64{
	"in": 1,
	"cm": 1 / 2.54,
	"mm": 1 / 25.4,
	"pt": 1 / 72.27,
	"bp": 1 / 72.0,
	"pc": 12 / 72.27,
	"dd": 1238.0 / 1157 / 72.27,
	"cc": 12 * 1238.0 / 1157 / 72.27,
	"sp": 1.0 / 65536 / 72.27,
}

// parseLength parses a length with a unit.  A number without a unit is
// taken to be in inches.
func parseLength(s string) (float64, error) {
	s = strings.TrimSpace(s)
	factor := 1.0
	if len(s) > 2 {
		if f, ok := units[s[len(s)-2:]]; ok {
			factor = f
			s = strings.TrimSpace(s[:len(s)-2])
		}
	}
	x, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return x * factor, nil
}
