/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0
 */

// Package gallery holds the template catalog and a thumbnail cache for the
// template picker.
package gallery

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.schema.json
var catalogSchema []byte

// ErrTemplateNotFound is returned by Find.
var ErrTemplateNotFound = errors.New("template not found")

// Template is a named starting image.
type Template struct {
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
}

type Catalog struct {
	Templates []Template `json:"templates" yaml:"templates"`
}

// DefaultCatalog lists the bundled templates. Paths are relative to the
// asset root.
func DefaultCatalog() Catalog {
	return Catalog{Templates: []Template{
		{Name: "Batman Slapping Robin", Path: "Assets/rules/Batman-Slapping-Robin.jpg"},
		{Name: "Disaster Girl", Path: "Assets/rules/Disaster-Girl.jpg"},
		{Name: "Laughing Leo", Path: "Assets/rules/Laughing-Leo.webp"},
	}}
}

// CatalogFrom loads the catalog at path, or the bundled one when path is
// empty.
func CatalogFrom(path string) (Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog(), nil
	}
	return LoadCatalog(path)
}

// LoadCatalog reads a YAML or JSON catalog. Relative template paths are
// resolved against the catalog's directory.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return Catalog{}, fmt.Errorf("%s: %w", path, err)
	}
	dir := filepath.Dir(path)
	for i, t := range c.Templates {
		c.Templates[i].Path = resolve(dir, t.Path)
	}
	return c, nil
}

// ParseCatalog validates and decodes catalog bytes. JSON is accepted as a
// subset of YAML.
func ParseCatalog(data []byte) (Catalog, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	if doc == nil {
		return Catalog{}, errors.New("catalog is empty")
	}
	js, err := json.Marshal(doc)
	if err != nil {
		return Catalog{}, fmt.Errorf("normalize catalog: %w", err)
	}
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(catalogSchema), gojsonschema.NewBytesLoader(js))
	if err != nil {
		return Catalog{}, fmt.Errorf("validate catalog: %w", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return Catalog{}, fmt.Errorf("invalid catalog: %s", strings.Join(msgs, "; "))
	}
	var c Catalog
	if err := json.Unmarshal(js, &c); err != nil {
		return Catalog{}, fmt.Errorf("decode catalog: %w", err)
	}
	seen := make(map[string]bool, len(c.Templates))
	for _, t := range c.Templates {
		key := strings.ToLower(strings.TrimSpace(t.Name))
		if seen[key] {
			return Catalog{}, fmt.Errorf("duplicate template %q", t.Name)
		}
		seen[key] = true
	}
	return c, nil
}

// Find looks a template up by name, ignoring case.
func (c Catalog) Find(name string) (Template, error) {
	want := strings.TrimSpace(name)
	for _, t := range c.Templates {
		if strings.EqualFold(t.Name, want) {
			return t, nil
		}
	}
	return Template{}, fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
}

func (c Catalog) Names() []string {
	out := make([]string, len(c.Templates))
	for i, t := range c.Templates {
		out[i] = t.Name
	}
	return out
}

func resolve(dir, p string) string {
	if strings.HasPrefix(p, "data:") || strings.HasPrefix(p, "file://") || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, filepath.FromSlash(p))
}
