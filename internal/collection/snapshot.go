package collection

import "fmt"

// Snapshot is the full set of collections for one run, in load order.
type Snapshot struct {
	order       []string
	collections map[string]*Collection
}

// NewSnapshot assembles collections in the given order.
func NewSnapshot(collections ...*Collection) (*Snapshot, error) {
	s := &Snapshot{collections: make(map[string]*Collection, len(collections))}
	for _, c := range collections {
		if c == nil {
			continue
		}
		if _, exists := s.collections[c.Name]; exists {
			return nil, fmt.Errorf("snapshot: collection %s added twice", c.Name)
		}
		s.order = append(s.order, c.Name)
		s.collections[c.Name] = c
	}
	return s, nil
}

// Names returns collection names in load order.
func (s *Snapshot) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Collection returns the named collection, or nil.
func (s *Snapshot) Collection(name string) *Collection {
	if s == nil {
		return nil
	}
	return s.collections[name]
}

// Clone deep-copies every collection.
func (s *Snapshot) Clone() *Snapshot {
	clone := &Snapshot{
		order:       append([]string(nil), s.order...),
		collections: make(map[string]*Collection, len(s.collections)),
	}
	for name, c := range s.collections {
		clone.collections[name] = c.Clone()
	}
	return clone
}
