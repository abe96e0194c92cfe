package consistency

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"loregraph/internal/collection"
	"loregraph/internal/services"
)

// SanitizeReferences removes reference values that cannot be ids. Non-string
// list elements are dropped and non-string scalars become null; each distinct
// value is reported once per field as a dangling reference. A list field that
// does not hold an array is a malformed record.
func SanitizeReferences(ctx context.Context, in *collection.Snapshot, ledger *Ledger) (*collection.Snapshot, error) {
	out := in.Clone()
	for _, name := range out.Names() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := out.Collection(name)
		refs := ReferencesOf(name)
		for _, entity := range c.Entities() {
			updated := entity
			changed := false
			for _, ref := range refs {
				next, fieldChanged, err := sanitizeField(updated, ref, ledger)
				if err != nil {
					return nil, err
				}
				updated = next
				changed = changed || fieldChanged
			}
			if !changed {
				continue
			}
			if err := c.Put(updated); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// ValidateReferences drops references to ids missing from their target
// collection and removes duplicate list entries, keeping first occurrences.
// Empty-string and non-string values count as missing ids. The id sets are
// taken from the input snapshot before any filtering.
func ValidateReferences(ctx context.Context, in *collection.Snapshot, ledger *Ledger) (*collection.Snapshot, error) {
	idSets := make(map[string]map[string]struct{}, len(in.Names()))
	for _, name := range in.Names() {
		idSets[name] = in.Collection(name).IDSet()
	}

	out := in.Clone()
	for _, name := range out.Names() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := out.Collection(name)
		refs := ReferencesOf(name)
		for _, entity := range c.Entities() {
			updated := entity
			changed := false
			for _, ref := range refs {
				next, sanitized, err := sanitizeField(updated, ref, ledger)
				if err != nil {
					return nil, err
				}
				var validated bool
				switch ref.Cardinality {
				case List:
					next, validated, err = validateList(next, ref, idSets[ref.Target], ledger)
				case Scalar:
					next, validated, err = validateScalar(next, ref, idSets[ref.Target], ledger)
				}
				if err != nil {
					return nil, err
				}
				updated = next
				changed = changed || sanitized || validated
			}
			if !changed {
				continue
			}
			if err := c.Put(updated); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func validateList(entity collection.Entity, ref Reference, valid map[string]struct{}, ledger *Ledger) (collection.Entity, bool, error) {
	ids, err := entity.List(ref.Field)
	if err != nil || len(ids) == 0 {
		return entity, false, err
	}

	kept := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	reported := make(map[string]struct{})
	removed, duplicates := 0, 0
	for _, id := range ids {
		if _, ok := valid[id]; !ok {
			removed++
			if _, done := reported[id]; !done {
				reported[id] = struct{}{}
				recordDangling(ledger, entity, ref, id)
			}
			continue
		}
		if _, dup := seen[id]; dup {
			duplicates++
			continue
		}
		seen[id] = struct{}{}
		kept = append(kept, id)
	}
	if removed == 0 && duplicates == 0 {
		return entity, false, nil
	}

	ledger.DanglingRemoved[ref.Key()] += removed
	ledger.DuplicatesRemoved[ref.Key()] += duplicates
	updated, err := entity.WithList(ref.Field, kept)
	if err != nil {
		return entity, false, err
	}
	return updated, true, nil
}

func validateScalar(entity collection.Entity, ref Reference, valid map[string]struct{}, ledger *Ledger) (collection.Entity, bool, error) {
	value := entity.Get(ref.Field)
	if value.Type != gjson.String {
		return entity, false, nil
	}
	id := value.Str
	if _, exists := valid[id]; exists && id != "" {
		return entity, false, nil
	}

	recordDangling(ledger, entity, ref, id)
	ledger.DanglingRemoved[ref.Key()]++
	updated, err := entity.WithNull(ref.Field)
	if err != nil {
		return entity, false, err
	}
	return updated, true, nil
}

// sanitizeField drops non-string values from one reference field.
func sanitizeField(entity collection.Entity, ref Reference, ledger *Ledger) (collection.Entity, bool, error) {
	value := entity.Get(ref.Field)
	if !value.Exists() || value.Type == gjson.Null {
		return entity, false, nil
	}

	if ref.Cardinality == Scalar {
		if value.Type == gjson.String {
			return entity, false, nil
		}
		recordDangling(ledger, entity, ref, value.Raw)
		ledger.DanglingRemoved[ref.Key()]++
		updated, err := entity.WithNull(ref.Field)
		if err != nil {
			return entity, false, err
		}
		return updated, true, nil
	}

	if !value.IsArray() {
		return entity, false, services.Wrap(services.ErrMalformedRecord, ref.Collection,
			fmt.Sprintf("record %q", entity.ID), fmt.Sprintf("field %s is not a list", ref.Field), nil)
	}
	elements := value.Array()
	kept := make([]string, 0, len(elements))
	reported := make(map[string]struct{})
	removed := 0
	for _, element := range elements {
		if element.Type == gjson.String {
			kept = append(kept, element.Str)
			continue
		}
		removed++
		if _, done := reported[element.Raw]; !done {
			reported[element.Raw] = struct{}{}
			recordDangling(ledger, entity, ref, element.Raw)
		}
	}
	if removed == 0 {
		return entity, false, nil
	}

	ledger.DanglingRemoved[ref.Key()] += removed
	updated, err := entity.WithList(ref.Field, kept)
	if err != nil {
		return entity, false, err
	}
	return updated, true, nil
}

func recordDangling(ledger *Ledger, entity collection.Entity, ref Reference, id string) {
	ledger.Dangling = append(ledger.Dangling, Dangling{
		Collection: ref.Collection,
		EntityID:   entity.ID,
		Field:      ref.Field,
		Target:     ref.Target,
		ID:         id,
	})
}
