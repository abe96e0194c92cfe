package collection

import (
	"fmt"
	"slices"

	"loregraph/internal/config"
	"loregraph/internal/services"
)

// Layout describes how a collection file nests its records.
type Layout int

const (
	// LayoutArray is a top-level JSON array of records.
	LayoutArray Layout = iota
	// LayoutCategorized is {"categories":[{"quizzes":[...]}, ...]}.
	LayoutCategorized
)

// LayoutFor returns the on-disk layout of a named collection.
func LayoutFor(name string) Layout {
	if name == config.CollectionQuizzes {
		return LayoutCategorized
	}
	return LayoutArray
}

// KindLabel returns the lower-case human label for records of a collection.
func KindLabel(name string) string {
	switch name {
	case config.CollectionCharacters:
		return "character"
	case config.CollectionLocations:
		return "location"
	case config.CollectionDialogues:
		return "dialogue"
	case config.CollectionEncyclopedia:
		return "encyclopedia entry"
	case config.CollectionQuizzes:
		return "quiz"
	default:
		return name
	}
}

// Collection is an ordered list of entities with unique ids.
type Collection struct {
	Name   string
	Layout Layout

	entities []Entity
	index    map[string]int

	// document is the original categorized document; categories tracks which
	// category objects carried a quizzes array.
	document   []byte
	categories []bool
}

// New builds a collection from entities, rejecting duplicate ids.
func New(name string, entities []Entity) (*Collection, error) {
	c := &Collection{
		Name:   name,
		Layout: LayoutFor(name),
		index:  make(map[string]int, len(entities)),
	}
	for _, entity := range entities {
		if err := c.add(entity); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collection) add(entity Entity) error {
	if _, exists := c.index[entity.ID]; exists {
		return services.Wrap(services.ErrMalformedRecord, c.Name, fmt.Sprintf("record %q", entity.ID), "duplicate id", nil)
	}
	entity.Collection = c.Name
	c.index[entity.ID] = len(c.entities)
	c.entities = append(c.entities, entity)
	return nil
}

// Len returns the number of entities.
func (c *Collection) Len() int {
	return len(c.entities)
}

// Entities returns the entities in file order.
func (c *Collection) Entities() []Entity {
	return slices.Clone(c.entities)
}

// IDs returns entity ids in file order.
func (c *Collection) IDs() []string {
	ids := make([]string, len(c.entities))
	for i, entity := range c.entities {
		ids[i] = entity.ID
	}
	return ids
}

// IDSet returns the set of entity ids.
func (c *Collection) IDSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.entities))
	for _, entity := range c.entities {
		set[entity.ID] = struct{}{}
	}
	return set
}

// Has reports whether an entity with id exists.
func (c *Collection) Has(id string) bool {
	_, ok := c.index[id]
	return ok
}

// Get returns the entity with id.
func (c *Collection) Get(id string) (Entity, bool) {
	pos, ok := c.index[id]
	if !ok {
		return Entity{}, false
	}
	return c.entities[pos], true
}

// Put replaces the entity with the same id in place.
func (c *Collection) Put(entity Entity) error {
	pos, ok := c.index[entity.ID]
	if !ok {
		return fmt.Errorf("%s: no record %q to replace", c.Name, entity.ID)
	}
	entity.Collection = c.Name
	entity.Group = c.entities[pos].Group
	c.entities[pos] = entity
	return nil
}

// Append adds a new entity at the end of the collection. Categorized
// collections place it in the last category.
func (c *Collection) Append(entity Entity) error {
	if c.Layout == LayoutCategorized {
		if len(c.categories) == 0 {
			return fmt.Errorf("%s: no category to append %q to", c.Name, entity.ID)
		}
		entity.Group = len(c.categories) - 1
	}
	return c.add(entity)
}

// Remove deletes the entities whose ids are in ids and returns how many
// were removed.
func (c *Collection) Remove(ids map[string]struct{}) int {
	if len(ids) == 0 {
		return 0
	}
	kept := c.entities[:0:0]
	removed := 0
	for _, entity := range c.entities {
		if _, drop := ids[entity.ID]; drop {
			removed++
			continue
		}
		kept = append(kept, entity)
	}
	if removed == 0 {
		return 0
	}
	c.entities = kept
	c.reindex()
	return removed
}

func (c *Collection) reindex() {
	c.index = make(map[string]int, len(c.entities))
	for i, entity := range c.entities {
		c.index[entity.ID] = i
	}
}

// Clone returns an independent copy. Entity payloads are immutable and shared.
func (c *Collection) Clone() *Collection {
	clone := &Collection{
		Name:       c.Name,
		Layout:     c.Layout,
		entities:   slices.Clone(c.entities),
		index:      make(map[string]int, len(c.index)),
		document:   c.document,
		categories: slices.Clone(c.categories),
	}
	for id, pos := range c.index {
		clone.index[id] = pos
	}
	return clone
}
