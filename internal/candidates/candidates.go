// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package candidates reads the candidate list a run evaluates.
package candidates

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/profmatch/pkg/types"
)

// Format is an input encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// FormatFor picks the format from a file extension; anything that is not
// .yaml or .yml is read as JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return JSON
	}
}

// file is the wrapped input shape: {"professors": [...]}.
type file struct {
	Professors []types.Candidate `json:"professors" yaml:"professors"`
}

// Load reads candidates from path.
func Load(path string) ([]types.Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading candidates: %w", err)
	}
	cs, err := Decode(data, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cs, nil
}

// Decode parses either a {"professors": [...]} document or a bare list.
// Every candidate must have a name.
func Decode(data []byte, format Format) ([]types.Candidate, error) {
	var (
		cs  []types.Candidate
		err error
	)
	switch format {
	case YAML:
		cs, err = decodeYAML(data)
	case JSON:
		cs, err = decodeJSON(data)
	default:
		return nil, fmt.Errorf("unsupported candidates format %q", format)
	}
	if err != nil {
		return nil, err
	}

	for i := range cs {
		cs[i].Name = strings.TrimSpace(cs[i].Name)
		if cs[i].Name == "" {
			return nil, fmt.Errorf("candidate %d has no name", i)
		}
		cs[i].Affiliation = strings.TrimSpace(cs[i].Affiliation)
	}
	return cs, nil
}

func decodeJSON(data []byte) ([]types.Candidate, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var cs []types.Candidate
		if err := json.Unmarshal(trimmed, &cs); err != nil {
			return nil, fmt.Errorf("parsing candidates JSON: %w", err)
		}
		return cs, nil
	}
	var f file
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return nil, fmt.Errorf("parsing candidates JSON: %w", err)
	}
	return f.Professors, nil
}

func decodeYAML(data []byte) ([]types.Candidate, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing candidates YAML: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	doc := root.Content[0]
	if doc.Kind == yaml.SequenceNode {
		var cs []types.Candidate
		if err := doc.Decode(&cs); err != nil {
			return nil, fmt.Errorf("parsing candidates YAML: %w", err)
		}
		return cs, nil
	}
	var f file
	if err := doc.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing candidates YAML: %w", err)
	}
	return f.Professors, nil
}
