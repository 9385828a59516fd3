package library

import (
	"sort"
	"strings"
)

// Catalog owns every Item, keyed by id. It is a plain in-process store;
// all lending rules live in the Engine.
type Catalog struct {
	items map[int]*Item
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{items: make(map[int]*Item)}
}

// Add inserts the item, refusing a duplicate id.
func (c *Catalog) Add(item *Item) error {
	if _, exists := c.items[item.ID]; exists {
		return ErrDuplicateID
	}
	c.items[item.ID] = item
	return nil
}

// Remove deletes the item. Any pending reservations are discarded with it.
func (c *Catalog) Remove(id int) error {
	if _, exists := c.items[id]; !exists {
		return ErrItemNotFound
	}
	delete(c.items, id)
	return nil
}

// Get looks up an item by id.
func (c *Catalog) Get(id int) (*Item, error) {
	item, ok := c.items[id]
	if !ok {
		return nil, ErrItemNotFound
	}
	return item, nil
}

// Search returns every item whose title contains the query, case-insensitively.
// An empty query matches everything. Results are ordered by id.
func (c *Catalog) Search(query string) []*Item {
	q := strings.ToLower(query)
	var results []*Item
	for _, item := range c.items {
		if strings.Contains(strings.ToLower(item.Title), q) {
			results = append(results, item)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results
}

// All returns every item ordered by id.
func (c *Catalog) All() []*Item { return c.Search("") }

// Len reports the number of items.
func (c *Catalog) Len() int { return len(c.items) }

// Clear drops all items. Used when reloading state from disk.
func (c *Catalog) Clear() { c.items = make(map[int]*Item) }
