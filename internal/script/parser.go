/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Parse reads a YAML edit script:
//
//	image: photo.jpg
//	steps:
//	  - add: {text: "TOP TEXT"}
//	  - update: {box: 1, font_size: 56, color: "#ffcc00"}
//	  - press: {x: 400, y: 84}
//	  - move: {x: 420, y: 120}
//	  - release: {}
//	  - undo: true
//	  - export: out.png
//
// Box indexes are 1-based; update without box targets the newest box.
// Every problem is reported, each with its position; the error is an Errors.
func Parse(r io.Reader) (Script, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Script{}, fmt.Errorf("read script: %w", err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Script{}, Errors{{Message: err.Error()}}
	}
	if len(doc.Content) == 0 {
		return Script{}, Errors{{Message: "script is empty"}}
	}
	p := &parser{}
	s := p.script(doc.Content[0])
	if len(p.errs) > 0 {
		return Script{}, p.errs
	}
	return s, nil
}

// ParseFile parses the script at path and records its directory.
func ParseFile(path string) (Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return Script{}, err
	}
	defer f.Close()
	s, err := Parse(f)
	if err != nil {
		return Script{}, fmt.Errorf("%s: %w", path, err)
	}
	s.Dir = filepath.Dir(path)
	return s, nil
}

type parser struct {
	errs Errors
}

func (p *parser) fail(n *yaml.Node, format string, args ...any) {
	p.errs = append(p.errs, Error{Line: n.Line, Column: n.Column, Message: fmt.Sprintf(format, args...)})
}

func (p *parser) script(root *yaml.Node) Script {
	var s Script
	if root.Kind != yaml.MappingNode {
		p.fail(root, "script must be a mapping with image and steps")
		return s
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		switch k.Value {
		case "image":
			s.Image = p.scalar(v)
		case "steps":
			if v.Kind != yaml.SequenceNode {
				p.fail(v, "steps must be a list")
				continue
			}
			for _, n := range v.Content {
				if st, ok := p.step(n); ok {
					s.Steps = append(s.Steps, st)
				}
			}
		default:
			p.fail(k, "unknown key %q", k.Value)
		}
	}
	return s
}

func (p *parser) step(n *yaml.Node) (Step, bool) {
	if n.Kind == yaml.ScalarNode {
		// bare "- undo"
		return p.body(n, Op(n.Value), &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Line: n.Line, Column: n.Column})
	}
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		p.fail(n, "step must have exactly one operation")
		return Step{}, false
	}
	return p.body(n.Content[0], Op(n.Content[0].Value), n.Content[1])
}

var patchKeys = map[string]bool{"text": true, "font_size": true, "font_family": true, "color": true, "x": true, "y": true}

func (p *parser) body(k *yaml.Node, op Op, v *yaml.Node) (Step, bool) {
	st := Step{Op: op, Line: k.Line}
	before := len(p.errs)
	switch op {
	case OpUndo, OpRedo:
	case OpAdd:
		if v.Kind == yaml.MappingNode {
			p.keys(v, patchKeys)
			p.decode(v, &st.Patch)
		}
	case OpUpdate:
		if v.Kind != yaml.MappingNode {
			p.fail(v, "update needs a mapping with box and fields")
			break
		}
		p.keys(v, patchKeys, "box")
		st.Box = p.index(v, "box", 0)
		p.decode(v, &st.Patch)
		if st.Patch.IsEmpty() {
			p.fail(v, "update changes nothing")
		}
	case OpSelect, OpDelete:
		if v.Kind == yaml.MappingNode {
			p.keys(v, nil, "box")
			st.Box = p.index(v, "box", -1)
		} else if !isNull(v) {
			st.Box = p.number(v)
		}
		if op == OpDelete && st.Box < 1 {
			p.fail(v, "delete needs a box number starting at 1")
		}
		if st.Box < 0 {
			p.fail(v, "box numbers start at 1")
		}
	case OpPress, OpMove, OpRelease:
		if v.Kind == yaml.MappingNode {
			p.keys(v, nil, "x", "y", "touch")
			var pt struct {
				X     *float64 `yaml:"x"`
				Y     *float64 `yaml:"y"`
				Touch bool     `yaml:"touch"`
			}
			p.decode(v, &pt)
			if (pt.X == nil || pt.Y == nil) && op != OpRelease {
				p.fail(v, "%s needs x and y", op)
			}
			if pt.X != nil {
				st.X = *pt.X
			}
			if pt.Y != nil {
				st.Y = *pt.Y
			}
			st.Touch = pt.Touch
		} else if op != OpRelease {
			p.fail(v, "%s needs x and y", op)
		}
	case OpLoad:
		st.Path = p.scalar(v)
		if st.Path == "" {
			p.fail(v, "load needs an image source")
		}
	case OpExport:
		if !isNull(v) {
			st.Path = p.scalar(v)
		}
	default:
		p.fail(k, "unknown operation %q", op)
	}
	return st, len(p.errs) == before
}

func (p *parser) keys(m *yaml.Node, allowed map[string]bool, extra ...string) {
	for i := 0; i < len(m.Content); i += 2 {
		k := m.Content[i].Value
		if allowed[k] {
			continue
		}
		ok := false
		for _, e := range extra {
			ok = ok || e == k
		}
		if !ok {
			p.fail(m.Content[i], "unknown field %q", k)
		}
	}
}

func (p *parser) decode(n *yaml.Node, out any) {
	if err := n.Decode(out); err != nil {
		var te *yaml.TypeError
		if errors.As(err, &te) {
			for _, msg := range te.Errors {
				p.fail(n, "%s", msg)
			}
			return
		}
		p.fail(n, "%v", err)
	}
}

// index returns the integer under key, or def when absent.
func (p *parser) index(m *yaml.Node, key string, def int) int {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return p.number(m.Content[i+1])
		}
	}
	if def < 0 {
		p.fail(m, "missing %s", key)
		return 0
	}
	return def
}

func (p *parser) number(n *yaml.Node) int {
	if n.Kind != yaml.ScalarNode {
		p.fail(n, "expected a number")
		return 0
	}
	v, err := strconv.Atoi(n.Value)
	if err != nil {
		p.fail(n, "expected a number, got %q", n.Value)
		return 0
	}
	return v
}

func (p *parser) scalar(n *yaml.Node) string {
	if n.Kind != yaml.ScalarNode || isNull(n) {
		p.fail(n, "expected a string")
		return ""
	}
	return n.Value
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}
