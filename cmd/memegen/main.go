/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/CGYORK/meme-generator-project/internal/config"
	"github.com/CGYORK/meme-generator-project/internal/crash"
	"github.com/CGYORK/meme-generator-project/internal/domain"
	"github.com/CGYORK/meme-generator-project/internal/editor"
	"github.com/CGYORK/meme-generator-project/internal/gallery"
	"github.com/CGYORK/meme-generator-project/internal/imagesrc"
	applog "github.com/CGYORK/meme-generator-project/internal/log"
	"github.com/CGYORK/meme-generator-project/internal/script"
	"github.com/CGYORK/meme-generator-project/internal/ui"
	"github.com/CGYORK/meme-generator-project/internal/version"
)

func usage() {
	fmt.Println("memegen: caption images with draggable outlined text")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  memegen version|-v|--version                 Show version")
	fmt.Println("  memegen fonts                                List caption font families")
	fmt.Println("  memegen templates [-thumbs] [<catalog>]      List templates (optionally build thumbnails)")
	fmt.Println("  memegen caption -image <src> [-top <text>] [-bottom <text>] [-out <file|dir>]")
	fmt.Println("                  [-format png|pdf] [-font <family>] [-size <px>] [-color <#hex>]")
	fmt.Println("  memegen run <script.yaml>                    Apply a YAML edit script")
	fmt.Println("  memegen ui [<image>]                         Launch desktop UI (build with -tags fyne)")
}

func main() {
	cfg, cfgErr := config.Load()
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config not fully loaded, using defaults", slog.Any("err", cfgErr))
	}
	if err := cfg.Validate(); err != nil {
		l.Warn("config has invalid values", slog.Any("err", err))
	}

	var sess *editor.Session
	defer crash.Recover(func() string {
		if sess == nil {
			return "no session"
		}
		return sess.Summary()
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return
	}
	var err error
	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println(version.String())
		return
	case "fonts":
		listFonts(cfg)
	case "templates":
		err = listTemplates(ctx, cfg, args[2:])
	case "caption":
		err = caption(ctx, cfg, args[2:], &sess)
	case "run":
		if len(args) < 3 {
			fmt.Println("run requires <script.yaml>")
			usage()
			os.Exit(2)
		}
		err = runScript(ctx, cfg, args[2], &sess)
	case "ui":
		var img string
		if len(args) >= 3 {
			img = args[2]
		}
		err = ui.Run(cfg, img)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Printf("unknown command %q\n\n", args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		l.Error("command failed", slog.String("cmd", args[1]), slog.Any("err", err))
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newSession(cfg config.AppConfig) *editor.Session {
	opts, err := editor.OptionsFrom(cfg)
	if err != nil {
		applog.WithComponent("cli").Warn("session options degraded", slog.Any("err", err))
	}
	return editor.New(opts)
}

func listFonts(cfg config.AppConfig) {
	for _, fam := range domain.FontFamilies {
		src := "built-in fallback"
		for name, path := range cfg.Fonts.Families {
			if strings.EqualFold(name, fam) && strings.TrimSpace(path) != "" {
				src = path
			}
		}
		fmt.Printf("%-16s %s\n", fam, src)
	}
}

func listTemplates(ctx context.Context, cfg config.AppConfig, args []string) error {
	fs := flag.NewFlagSet("templates", flag.ContinueOnError)
	thumbs := fs.Bool("thumbs", false, "decode each template into the thumbnail cache")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path := cfg.Templates.Catalog
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	cat, err := gallery.CatalogFrom(path)
	if err != nil {
		return err
	}
	if !*thumbs {
		for _, t := range cat.Templates {
			fmt.Printf("%-24s %s\n", t.Name, t.Path)
		}
		return nil
	}
	cachePath := cfg.Templates.Cache
	if cachePath == "" {
		if cachePath, err = gallery.DefaultCachePath(); err != nil {
			return err
		}
	}
	cache, err := gallery.Open(cachePath)
	if err != nil {
		return err
	}
	defer cache.Close()
	if cfg.Templates.CacheMaxBytes > 0 {
		cache.MaxBytes = cfg.Templates.CacheMaxBytes
	}
	loader := imagesrc.NewLoader()
	var failed int
	for _, t := range cat.Templates {
		data, err := cache.Thumbnail(ctx, t, loader)
		if err != nil {
			failed++
			fmt.Printf("%-24s %s\n", t.Name, err)
			continue
		}
		fmt.Printf("%-24s %s (%d bytes)\n", t.Name, t.Path, len(data))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d templates could not be loaded", failed, len(cat.Templates))
	}
	return nil
}

func caption(ctx context.Context, cfg config.AppConfig, args []string, sessOut **editor.Session) error {
	fs := flag.NewFlagSet("caption", flag.ContinueOnError)
	src := fs.String("image", "", "image path, file:// URL or data: URL (required)")
	top := fs.String("top", "", "top caption")
	bottom := fs.String("bottom", "", "bottom caption")
	out := fs.String("out", "", "output file or directory (default meme.<format> in the working directory)")
	format := fs.String("format", "", "png or pdf (default from config)")
	family := fs.String("font", domain.DefaultFontFamily, "font family")
	size := fs.Int("size", domain.DefaultFontSize, "font size in surface pixels")
	col := fs.String("color", domain.DefaultColor, "fill color as #rrggbb")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *src == "" {
		return errors.New("caption requires -image")
	}
	if *format != "" {
		cfg.Editor.ExportFormat = *format
	}
	sess := newSession(cfg)
	*sessOut = sess
	if err := sess.LoadImage(ctx, *src); err != nil {
		return err
	}
	style := domain.Patch{FontFamily: family, FontSize: size, Color: col}
	if err := addCaption(sess, *top, style, domain.PresetTop); err != nil {
		return err
	}
	if err := addCaption(sess, *bottom, style, domain.PresetBottom); err != nil {
		return err
	}
	path, err := sess.DownloadMeme(*out)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func addCaption(sess *editor.Session, text string, style domain.Patch, at domain.Preset) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	box, err := sess.AddTextBox()
	if err != nil {
		return err
	}
	surface := sess.Surface()
	y := float64(surface.H) * float64(at)
	p := style
	p.Text = &text
	p.Y = &y
	_, err = sess.UpdateTextBox(box.ID, p)
	return err
}

func runScript(ctx context.Context, cfg config.AppConfig, path string, sessOut **editor.Session) error {
	s, err := script.ParseFile(path)
	if err != nil {
		return err
	}
	sess := newSession(cfg)
	*sessOut = sess
	rep, err := script.Run(ctx, sess, s)
	for _, p := range rep.Exports {
		fmt.Println(p)
	}
	if err != nil {
		return err
	}
	sz := sess.Surface()
	fmt.Printf("%d steps applied, %d text boxes on a %dx%d surface\n", rep.Steps, len(sess.TextBoxes()), sz.W, sz.H)
	return nil
}
