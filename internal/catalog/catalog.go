// Package catalog holds the canonical set of spending categories and
// the mapping from external names (as they appear in uploaded CSVs) to
// canonical keys. The catalog is loaded once at startup and read-only
// afterward.
package catalog

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultFS embed.FS

// Category is one canonical spending category.
type Category struct {
	Key     string   `yaml:"key"`     // lowercase slug, the stored value
	Display string   `yaml:"display"` // human-readable name
	Aliases []string `yaml:"aliases"` // external names, matched case-insensitively
}

// Catalog resolves external category names to canonical categories.
type Catalog struct {
	categories []Category
	byAlias    map[string]int // lowercased alias/key/display -> index
}

type document struct {
	Categories []Category `yaml:"categories"`
}

// Default loads the embedded catalog. It panics only on a broken build,
// never on user input.
func Default() *Catalog {
	data, err := defaultFS.ReadFile("catalog.yaml")
	if err != nil {
		panic(fmt.Sprintf("embedded catalog missing: %v", err))
	}
	c, err := Parse(data)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog invalid: %v", err))
	}
	return c
}

// LoadFile reads a catalog document from disk, for deployments that
// override the built-in categories.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse catalog file %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and indexes a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}
	if len(doc.Categories) == 0 {
		return nil, fmt.Errorf("catalog defines no categories")
	}

	c := &Catalog{
		categories: doc.Categories,
		byAlias:    make(map[string]int),
	}
	for i, cat := range doc.Categories {
		if cat.Key == "" || cat.Key != strings.ToLower(cat.Key) {
			return nil, fmt.Errorf("category %d: key %q must be a lowercase slug", i, cat.Key)
		}
		c.index(cat.Key, i)
		c.index(cat.Display, i)
		for _, alias := range cat.Aliases {
			c.index(alias, i)
		}
	}
	return c, nil
}

func (c *Catalog) index(name string, i int) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return
	}
	if _, taken := c.byAlias[name]; !taken {
		c.byAlias[name] = i
	}
}

// Normalize maps an external category name to its canonical category.
// The name is trimmed and matched case-insensitively against keys,
// display names and aliases. Unknown or blank names report ok=false.
func (c *Catalog) Normalize(external string) (Category, bool) {
	name := strings.ToLower(strings.TrimSpace(external))
	if name == "" {
		return Category{}, false
	}
	i, ok := c.byAlias[name]
	if !ok {
		return Category{}, false
	}
	return c.categories[i], true
}

// Contains reports whether key is a canonical catalog key.
func (c *Catalog) Contains(key string) bool {
	cat, ok := c.Normalize(key)
	return ok && cat.Key == key
}

// Categories returns the catalog entries in document order.
func (c *Catalog) Categories() []Category {
	out := make([]Category, len(c.categories))
	copy(out, c.categories)
	return out
}
