package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sandwich-alignment/alignment/internal/board"
	"github.com/sandwich-alignment/alignment/internal/models"
)

var (
	ErrEmptyID     = errors.New("catalog item has no id")
	ErrDuplicateID = errors.New("duplicate catalog id")
)

// Catalog is the read-only list of items that can be placed on a board
type Catalog struct {
	items []models.Item
	index map[string]int
}

// file is the on-disk shape: {"sandwiches": [...]}
type file struct {
	Sandwiches []models.Item `json:"sandwiches" yaml:"sandwiches"`
}

// New builds a catalog, rejecting empty or repeated ids
func New(items []models.Item) (*Catalog, error) {
	c := &Catalog{
		items: make([]models.Item, 0, len(items)),
		index: make(map[string]int, len(items)),
	}
	for i, item := range items {
		if strings.TrimSpace(item.ID) == "" {
			return nil, fmt.Errorf("item %d: %w", i, ErrEmptyID)
		}
		if _, exists := c.index[item.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, item.ID)
		}
		c.index[item.ID] = len(c.items)
		c.items = append(c.items, item)
	}
	return c, nil
}

// Load reads a catalog file. YAML is used for .yaml and .yml, JSON otherwise.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	format := "json"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}
	return Parse(data, format)
}

// Parse decodes catalog bytes in the given format ("json" or "yaml")
func Parse(data []byte, format string) (*Catalog, error) {
	var f file
	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format: %s", format)
	}
	return New(f.Sandwiches)
}

func (c *Catalog) Get(id string) (models.Item, bool) {
	i, ok := c.index[id]
	if !ok {
		return models.Item{}, false
	}
	return c.items[i], true
}

// Items returns the catalog in file order
func (c *Catalog) Items() []models.Item {
	out := make([]models.Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Catalog) Len() int {
	return len(c.items)
}

// IDs returns every item id in file order
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.items))
	for i, item := range c.items {
		ids[i] = item.ID
	}
	return ids
}

// Names maps ids to display names
func (c *Catalog) Names() map[string]string {
	names := make(map[string]string, len(c.items))
	for _, item := range c.items {
		names[item.ID] = item.Name
	}
	return names
}

// Available returns the items not yet placed on the board, in catalog order
func (c *Catalog) Available(b *board.Board) []models.Item {
	out := make([]models.Item, 0, len(c.items))
	for _, item := range c.items {
		if !b.Has(item.ID) {
			out = append(out, item)
		}
	}
	return out
}
