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

// Command dvipng converts the pages of a DVI file into PNG images.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"seehuhn.de/go/dvi"
	"seehuhn.de/go/dvi/font"
	"seehuhn.de/go/dvi/render"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	flags := pflag.NewFlagSet("dvipng", pflag.ContinueOnError)
	flags.SetOutput(stderr)

	var (
		configFile  string
		dpi         float64
		size        string
		offset      string
		bg, fg      string
		output      string
		pages       string
		fontDirs    []string
		maps        []string
		workers     int
		keepGoing   bool
		skipMissing bool
		antiAlias   bool
		indexed     bool
		verbose     bool
		quiet       bool
	)
	flags.StringVar(&configFile, "config", "", "read settings from this YAML file")
	flags.Float64VarP(&dpi, "dpi", "D", 100, "output resolution in pixels per inch")
	flags.StringVarP(&size, "size", "T", "", `page size "width,height", or "tight" to crop to the ink`)
	flags.StringVarP(&offset, "offset", "O", "1in,1in", "position of the TeX origin")
	flags.StringVar(&bg, "bg", "White", `background color, or "Transparent"`)
	flags.StringVar(&fg, "fg", "Black", "foreground color")
	flags.StringVarP(&output, "output", "o", "", `output file name, "%d" is replaced by the page counter`)
	flags.StringVarP(&pages, "pages", "p", "", `pages to render, e.g. "1-3,7,last"`)
	flags.StringSliceVar(&fontDirs, "fontdir", nil, "directories to search for font files")
	flags.StringSliceVar(&maps, "map", nil, "font map files")
	flags.IntVarP(&workers, "jobs", "j", 1, "number of pages rendered in parallel")
	flags.BoolVarP(&keepGoing, "keep-going", "k", false, "continue after errors")
	flags.BoolVar(&skipMissing, "skip-missing", false, "leave out characters from missing fonts")
	flags.BoolVar(&antiAlias, "antialias", true, "anti-alias outline fonts")
	flags.BoolVar(&indexed, "indexed", false, "write paletted images where possible")
	flags.BoolVarP(&verbose, "verbose", "v", false, "show debugging output")
	flags.BoolVarP(&quiet, "quiet", "q", false, "only report errors")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if flags.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: dvipng [options] file.dvi")
		flags.PrintDefaults()
		return 2
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	} else if quiet {
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cfg := &config{}
	if configFile != "" {
		var err error
		cfg, err = loadConfig(configFile)
		if err != nil {
			logger.Error("cannot read config file", slog.Any("error", err))
			return 1
		}
	}
	// Flags given on the command line take precedence over the file.
	if !flags.Changed("dpi") && cfg.DPI > 0 {
		dpi = cfg.DPI
	}
	if !flags.Changed("bg") && cfg.Background != "" {
		bg = cfg.Background
	}
	if !flags.Changed("fg") && cfg.Foreground != "" {
		fg = cfg.Foreground
	}
	if !flags.Changed("jobs") && cfg.Workers > 0 {
		workers = cfg.Workers
	}
	if !flags.Changed("antialias") && cfg.AntiAlias != nil {
		antiAlias = *cfg.AntiAlias
	}
	if !flags.Changed("fontdir") {
		fontDirs = cfg.FontDirs
	}
	if !flags.Changed("map") {
		maps = cfg.Maps
	}

	opts := render.DefaultOptions()
	opts.DPI = dpi
	opts.Output = output
	opts.Pages = pages
	opts.Workers = workers
	opts.ContinueOnError = keepGoing
	opts.SkipMissingGlyphs = skipMissing
	opts.AntiAlias = antiAlias
	opts.Indexed = indexed
	opts.Logger = logger

	var err error
	opts.Palette, err = cfg.palette()
	if err != nil {
		logger.Error("invalid palette", slog.Any("error", err))
		return 1
	}
	if err := setColors(opts, bg, fg); err != nil {
		logger.Error("invalid color", slog.Any("error", err))
		return 1
	}
	if size == "tight" || size == "bbox" {
		opts.Tight = true
	} else if size != "" {
		opts.PageSize, err = parseDims(size)
		if err != nil {
			logger.Error("invalid page size", slog.Any("error", err))
			return 1
		}
	}
	opts.Margin, err = parseDims(offset)
	if err != nil {
		logger.Error("invalid offset", slog.Any("error", err))
		return 1
	}

	opts.Fonts, err = newResolver(fontDirs, maps, logger)
	if err != nil {
		logger.Error("cannot set up fonts", slog.Any("error", err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := render.Render(ctx, flags.Arg(0), opts)
	if res != nil {
		for _, pr := range res.Pages {
			if pr.Err != nil {
				logger.Error("page failed", slog.Any("error", pr.Err))
				continue
			}
			logger.Info("wrote page",
				slog.Int("page", int(pr.Number)),
				slog.String("file", pr.File))
		}
	}
	if err != nil {
		var pageErr *render.PageError
		if !errors.As(err, &pageErr) {
			logger.Error("rendering failed", slog.Any("error", err))
		}
		return 1
	}
	if res.Rendered < len(res.Pages) {
		return 1
	}
	return 0
}

func setColors(opts *render.Options, bg, fg string) error {
	if bg == "Transparent" || bg == "transparent" {
		opts.Transparent = true
	} else {
		c, err := dvi.ParseColor(bg, opts.Palette)
		if err != nil {
			return err
		}
		opts.Background = c
	}
	c, err := dvi.ParseColor(fg, opts.Palette)
	if err != nil {
		return err
	}
	opts.Foreground = c
	return nil
}

// newResolver sets up font loading from the given directories.  Without
// any directories, fonts are searched in the current directory.
func newResolver(dirs, maps []string, logger *slog.Logger) (*font.Resolver, error) {
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	var locs font.Locators
	for _, dir := range dirs {
		loc, err := font.NewDirLocator(os.DirFS(dir))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", dir, err)
		}
		locs = append(locs, loc)
	}

	r := font.NewResolver(locs)
	r.Logger = logger
	for _, name := range maps {
		if err := r.LoadMap(name); err != nil {
			return nil, err
		}
	}
	return r, nil
}
