// internal/catalog/catalog.go
//
// Item catalog for the waste-sorting game.
//
// Responsibilities:
//   - Parse the embedded catalog.yaml into immutable Items.
//   - Validate it (non-empty, unique ids, known categories).
//   - Pick items uniformly at random for the spawner.
//
// The default catalog is loaded once (sync.Once) from the assets package;
// tests build their own catalogs with Parse or New.

package catalog

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/robalobadob/ecosort/assets"
)

// Category is a disposal class, one per bin.
type Category string

const (
	Wet   Category = "wet"
	Dry   Category = "dry"
	Toxic Category = "toxic"
)

// Categories lists the bins in display order.
var Categories = []Category{Wet, Dry, Toxic}

// ParseCategory normalizes s and reports whether it names a known bin.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	return c, lo.Contains(Categories, c)
}

// Item is one entry of the catalog. Items are never mutated after load.
type Item struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Category    Category `json:"type" yaml:"category"`
	Icon        string   `json:"icon" yaml:"icon"`
	Explanation string   `json:"explanation" yaml:"explanation"`
}

// Catalog is a fixed, non-empty list of items.
type Catalog struct {
	items []Item
	byID  map[string]Item
}

type document struct {
	Items []Item `yaml:"items"`
}

// Parse decodes a YAML catalog document and validates it.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(doc.Items)
}

// New validates items and builds a Catalog from them.
func New(items []Item) (*Catalog, error) {
	if len(items) == 0 {
		return nil, errors.New("catalog: no items")
	}
	byID := make(map[string]Item, len(items))
	for i, it := range items {
		if it.ID == "" || strings.TrimSpace(it.Name) == "" {
			return nil, fmt.Errorf("catalog: item %d: id and name are required", i)
		}
		if _, ok := ParseCategory(string(it.Category)); !ok {
			return nil, fmt.Errorf("catalog: item %q: unknown category %q", it.ID, it.Category)
		}
		if _, dup := byID[it.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate item id %q", it.ID)
		}
		byID[it.ID] = it
	}
	return &Catalog{items: append([]Item(nil), items...), byID: byID}, nil
}

// PickRandom returns an item chosen uniformly at random.
func (c *Catalog) PickRandom(r *rand.Rand) Item {
	return c.items[r.IntN(len(c.items))]
}

// Items returns a copy of the catalog in declaration order.
func (c *Catalog) Items() []Item {
	return append([]Item(nil), c.items...)
}

// Lookup finds an item by id.
func (c *Catalog) Lookup(id string) (Item, bool) {
	it, ok := c.byID[id]
	return it, ok
}

// Len reports the number of items.
func (c *Catalog) Len() int { return len(c.items) }

// CountBy returns how many items belong to each category.
func (c *Catalog) CountBy() map[Category]int {
	return lo.CountValuesBy(c.items, func(it Item) Category { return it.Category })
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default returns the embedded catalog, parsing it on first use.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		data, err := assets.CatalogYAML()
		if err != nil {
			defaultErr = fmt.Errorf("read catalog: %w", err)
			return
		}
		defaultCat, defaultErr = Parse(data)
	})
	return defaultCat, defaultErr
}
