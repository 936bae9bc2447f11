/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted as YAML in the user
// scope. Environment variables are read-only overrides applied at load time.
//
// config_version: bump when the structure changes incompatibly.
type AppConfig struct {
	ConfigVersion int             `yaml:"config_version"`
	Editor        EditorConfig    `yaml:"editor"`
	Fonts         FontsConfig     `yaml:"fonts"`
	Templates     TemplatesConfig `yaml:"templates"`
	Logging       LoggingConfig   `yaml:"logging"`
}

type EditorConfig struct {
	SurfaceMaxWidth   int    `yaml:"surface_max_width"`
	SurfaceMaxHeight  int    `yaml:"surface_max_height"`
	ExportMaxWidth    int    `yaml:"export_max_width"`
	ExportMaxHeight   int    `yaml:"export_max_height"`
	ExportFormat      string `yaml:"export_format"` // "png" | "pdf"
	UndoMaxBytes      int    `yaml:"undo_max_bytes"`
	UndoMinIntervalMs int    `yaml:"undo_min_interval_ms"`
}

// FontsConfig maps family names to TTF/OTF files.
type FontsConfig struct {
	Families map[string]string `yaml:"families"`
}

type TemplatesConfig struct {
	Catalog       string `yaml:"catalog"`
	Cache         string `yaml:"cache"`
	CacheMaxBytes int64  `yaml:"cache_max_bytes"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Editor: EditorConfig{
			SurfaceMaxWidth:   800,
			SurfaceMaxHeight:  600,
			ExportMaxWidth:    1200,
			ExportMaxHeight:   1200,
			ExportFormat:      "png",
			UndoMaxBytes:      4 << 20,
			UndoMinIntervalMs: 400,
		},
		Fonts:     FontsConfig{Families: map[string]string{}},
		Templates: TemplatesConfig{CacheMaxBytes: 16 << 20},
		Logging:   LoggingConfig{Level: "info", Format: "console"},
	}
}

// UndoMinInterval is UndoMinIntervalMs as a duration.
func (e EditorConfig) UndoMinInterval() time.Duration {
	return time.Duration(e.UndoMinIntervalMs) * time.Millisecond
}

// Env var names used as overrides.
const (
	EnvConfigPath       = "MEME_CONFIG"
	EnvSurfaceMaxWidth  = "MEME_SURFACE_MAX_WIDTH"
	EnvSurfaceMaxHeight = "MEME_SURFACE_MAX_HEIGHT"
	EnvExportMaxWidth   = "MEME_EXPORT_MAX_WIDTH"
	EnvExportMaxHeight  = "MEME_EXPORT_MAX_HEIGHT"
	EnvExportFormat     = "MEME_EXPORT_FORMAT"
	EnvUndoMaxBytes     = "MEME_UNDO_MAX_BYTES"
	EnvUndoMinInterval  = "MEME_UNDO_MIN_INTERVAL_MS"
	EnvTemplatesCatalog = "MEME_TEMPLATES_CATALOG"
	EnvTemplatesCache   = "MEME_TEMPLATES_CACHE"
	EnvTemplatesMax     = "MEME_TEMPLATES_CACHE_MAX_BYTES"
	EnvLogLevel         = "MEME_LOG_LEVEL"
	EnvLogFormat        = "MEME_LOG_FORMAT"
	EnvLogSource        = "MEME_LOG_SOURCE"
	EnvLogFile          = "MEME_LOG_FILE"
)

// envKeys maps dotted config keys to their override variable.
var envKeys = map[string]string{
	"editor.surface_max_width":    EnvSurfaceMaxWidth,
	"editor.surface_max_height":   EnvSurfaceMaxHeight,
	"editor.export_max_width":     EnvExportMaxWidth,
	"editor.export_max_height":    EnvExportMaxHeight,
	"editor.export_format":        EnvExportFormat,
	"editor.undo_max_bytes":       EnvUndoMaxBytes,
	"editor.undo_min_interval_ms": EnvUndoMinInterval,
	"templates.catalog":           EnvTemplatesCatalog,
	"templates.cache":             EnvTemplatesCache,
	"templates.cache_max_bytes":   EnvTemplatesMax,
	"logging.level":               EnvLogLevel,
	"logging.format":              EnvLogFormat,
	"logging.source":              EnvLogSource,
	"logging.file":                EnvLogFile,
}

// ConfigPath returns the per-user config file path. MEME_CONFIG overrides it.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "MemeGen")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "MemeGen")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "memegen")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "memegen")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// LoadDotEnv loads KEY=VALUE files into the process environment. Missing
// files are skipped and variables that are already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads .env, then the user config file (if present), merges it over the
// defaults and applies environment overrides.
func Load() (AppConfig, error) {
	if err := LoadDotEnv(); err != nil {
		return Defaults(), err
	}
	path, err := ConfigPath()
	if err != nil {
		cfg := Defaults()
		applyEnvOverrides(&cfg)
		return cfg, err
	}
	return LoadFile(path)
}

// LoadFile is Load for an explicit path, without the .env step. A missing
// file yields the defaults; a malformed one is an error.
func LoadFile(path string) (AppConfig, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			applyEnvOverrides(&cfg)
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		applyEnvOverrides(&cfg)
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes cfg to ConfigPath.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(path, cfg)
}

// SaveFile writes cfg as YAML to path, creating parent directories.
func SaveFile(path string, cfg AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	mergeInt(&dst.Editor.SurfaceMaxWidth, src.Editor.SurfaceMaxWidth)
	mergeInt(&dst.Editor.SurfaceMaxHeight, src.Editor.SurfaceMaxHeight)
	mergeInt(&dst.Editor.ExportMaxWidth, src.Editor.ExportMaxWidth)
	mergeInt(&dst.Editor.ExportMaxHeight, src.Editor.ExportMaxHeight)
	mergeInt(&dst.Editor.UndoMaxBytes, src.Editor.UndoMaxBytes)
	mergeInt(&dst.Editor.UndoMinIntervalMs, src.Editor.UndoMinIntervalMs)
	if f := strings.ToLower(strings.TrimSpace(src.Editor.ExportFormat)); f != "" {
		dst.Editor.ExportFormat = f
	}
	for fam, p := range src.Fonts.Families {
		if strings.TrimSpace(fam) == "" || strings.TrimSpace(p) == "" {
			continue
		}
		if dst.Fonts.Families == nil {
			dst.Fonts.Families = map[string]string{}
		}
		dst.Fonts.Families[fam] = strings.TrimSpace(p)
	}
	if v := strings.TrimSpace(src.Templates.Catalog); v != "" {
		dst.Templates.Catalog = v
	}
	if v := strings.TrimSpace(src.Templates.Cache); v != "" {
		dst.Templates.Cache = v
	}
	if src.Templates.CacheMaxBytes > 0 {
		dst.Templates.CacheMaxBytes = src.Templates.CacheMaxBytes
	}
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func mergeInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}

func envBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	envInt(EnvSurfaceMaxWidth, &cfg.Editor.SurfaceMaxWidth)
	envInt(EnvSurfaceMaxHeight, &cfg.Editor.SurfaceMaxHeight)
	envInt(EnvExportMaxWidth, &cfg.Editor.ExportMaxWidth)
	envInt(EnvExportMaxHeight, &cfg.Editor.ExportMaxHeight)
	envInt(EnvUndoMaxBytes, &cfg.Editor.UndoMaxBytes)
	envInt(EnvUndoMinInterval, &cfg.Editor.UndoMinIntervalMs)
	if v := strings.TrimSpace(os.Getenv(EnvExportFormat)); v != "" {
		cfg.Editor.ExportFormat = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTemplatesCatalog)); v != "" {
		cfg.Templates.Catalog = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTemplatesCache)); v != "" {
		cfg.Templates.Cache = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTemplatesMax)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Templates.CacheMaxBytes = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = envBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the dotted key is currently
// overridden by the environment.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// OverridableKeys lists the dotted keys that have an env override.
func OverridableKeys() []string {
	keys := make([]string, 0, len(envKeys))
	for k := range envKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate reports settings the editor cannot work with.
func (c AppConfig) Validate() error {
	var errs []error
	if c.Editor.SurfaceMaxWidth <= 0 || c.Editor.SurfaceMaxHeight <= 0 {
		errs = append(errs, errors.New("editor surface caps must be positive"))
	}
	if c.Editor.ExportMaxWidth <= 0 || c.Editor.ExportMaxHeight <= 0 {
		errs = append(errs, errors.New("editor export caps must be positive"))
	}
	switch c.Editor.ExportFormat {
	case "png", "pdf":
	default:
		errs = append(errs, fmt.Errorf("unknown export format %q", c.Editor.ExportFormat))
	}
	return errors.Join(errs...)
}
