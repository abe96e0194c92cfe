package consistency

import (
	"loregraph/internal/config"
)

// Cardinality distinguishes list reference fields from single-id fields.
type Cardinality int

const (
	List Cardinality = iota
	Scalar
)

func (c Cardinality) String() string {
	if c == Scalar {
		return "scalar"
	}
	return "list"
}

// Reference describes one id-valued field.
type Reference struct {
	Collection  string
	Field       string
	Cardinality Cardinality
	Target      string
}

// Key returns "collection.field".
func (r Reference) Key() string {
	return r.Collection + "." + r.Field
}

var referenceTable = []Reference{
	{config.CollectionCharacters, "relatedCharacterIds", List, config.CollectionCharacters},
	{config.CollectionCharacters, "relatedLocationIds", List, config.CollectionLocations},
	{config.CollectionCharacters, "dialogueIds", List, config.CollectionDialogues},
	{config.CollectionLocations, "characterIds", List, config.CollectionCharacters},
	{config.CollectionLocations, "eventIds", List, config.CollectionEncyclopedia},
	{config.CollectionDialogues, "characterId", Scalar, config.CollectionCharacters},
	{config.CollectionEncyclopedia, "relatedEntryIds", List, config.CollectionEncyclopedia},
	{config.CollectionQuizzes, "relatedFactId", Scalar, config.CollectionEncyclopedia},
	{config.CollectionQuizzes, "relatedDialogueId", Scalar, config.CollectionDialogues},
	{config.CollectionQuizzes, "relatedCharacterId", Scalar, config.CollectionCharacters},
	{config.CollectionQuizzes, "relatedLocationId", Scalar, config.CollectionLocations},
}

// References returns the full reference table.
func References() []Reference {
	out := make([]Reference, len(referenceTable))
	copy(out, referenceTable)
	return out
}

// ReferencesOf returns the reference fields of one collection in table order.
func ReferencesOf(collection string) []Reference {
	var out []Reference
	for _, ref := range referenceTable {
		if ref.Collection == collection {
			out = append(out, ref)
		}
	}
	return out
}

// Lookup finds the reference entry for a field.
func Lookup(collection, field string) (Reference, bool) {
	for _, ref := range referenceTable {
		if ref.Collection == collection && ref.Field == field {
			return ref, true
		}
	}
	return Reference{}, false
}

// FieldOrder returns the table position of a field, or -1.
func FieldOrder(collection, field string) int {
	for i, ref := range referenceTable {
		if ref.Collection == collection && ref.Field == field {
			return i
		}
	}
	return -1
}
