// Package catalog loads default per-category comparison data from YAML.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/label-compliance/internal/core/domain"
)

type file struct {
	Categories map[string]domain.CategoryOption `yaml:"categories"`
}

type Catalog struct {
	options map[string]domain.CategoryOption
}

// Empty returns a catalog without defaults.
func Empty() *Catalog {
	return &Catalog{options: map[string]domain.CategoryOption{}}
}

func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var parsed file
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse category catalog: %w", err)
	}

	options := make(map[string]domain.CategoryOption, len(parsed.Categories))
	for name, option := range parsed.Categories {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("parse category catalog: empty category name")
		}
		options[name] = option
	}
	return &Catalog{options: options}, nil
}

// Options returns a copy safe for callers to modify.
func (c *Catalog) Options() map[string]domain.CategoryOption {
	out := make(map[string]domain.CategoryOption, len(c.options))
	for name, option := range c.options {
		out[name] = option
	}
	return out
}
