// Package styles holds the immutable catalog of style presets offered to the
// user.
package styles

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var builtin []byte

// ErrUnknownStyle is returned by Lookup for ids not in the catalog.
var ErrUnknownStyle = errors.New("styles: unknown style")

// Preset is one selectable style. Prompt is the instruction sent to the model.
type Preset struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Prompt      string `yaml:"prompt" json:"-"`
}

type catalogFile struct {
	Title   string   `yaml:"title"`
	Presets []Preset `yaml:"presets"`
}

// Catalog is safe for concurrent use; it is never mutated after load.
type Catalog struct {
	title   string
	presets []Preset
	byID    map[string]int
}

// Builtin returns the embedded catalog.
func Builtin() (*Catalog, error) {
	return Parse(builtin)
}

// Load returns the catalog from path, or the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Builtin()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read styles file: %w", err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("styles file %s: %w", path, err)
	}
	return cat, nil
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode styles: %w", err)
	}
	if len(file.Presets) == 0 {
		return nil, errors.New("styles: catalog has no presets")
	}

	byID := make(map[string]int, len(file.Presets))
	for i := range file.Presets {
		p := &file.Presets[i]
		p.ID = strings.TrimSpace(p.ID)
		p.Prompt = strings.TrimSpace(p.Prompt)
		if p.ID == "" {
			return nil, fmt.Errorf("styles: preset %d has no id", i)
		}
		if p.Prompt == "" {
			return nil, fmt.Errorf("styles: preset %q has no prompt", p.ID)
		}
		if _, dup := byID[p.ID]; dup {
			return nil, fmt.Errorf("styles: duplicate preset id %q", p.ID)
		}
		byID[p.ID] = i
	}

	title := strings.TrimSpace(file.Title)
	if title == "" {
		title = "Vectorize AI"
	}
	return &Catalog{title: title, presets: file.Presets, byID: byID}, nil
}

// Title is the application title shown to users.
func (c *Catalog) Title() string { return c.title }

// All returns a copy of the presets in catalog order.
func (c *Catalog) All() []Preset {
	out := make([]Preset, len(c.presets))
	copy(out, c.presets)
	return out
}

// Default is the first preset.
func (c *Catalog) Default() Preset { return c.presets[0] }

func (c *Catalog) Lookup(id string) (Preset, error) {
	i, ok := c.byID[id]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrUnknownStyle, id)
	}
	return c.presets[i], nil
}
