package consistency

import (
	"context"
	"log/slog"

	"loregraph/internal/collection"
	"loregraph/internal/logging"
)

// ResolveAliases rewrites every reference to a superseded id through the
// alias table of the field's target collection, then removes the entities
// whose own ids are alias sources.
func ResolveAliases(ctx context.Context, in *collection.Snapshot, rules Rules, ledger *Ledger, logger *slog.Logger) (*collection.Snapshot, error) {
	out := in.Clone()

	for _, name := range out.Names() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := out.Collection(name)
		refs := ReferencesOf(name)
		for _, entity := range c.Entities() {
			updated, rewrites, err := rewriteEntity(entity, refs, rules.Aliases)
			if err != nil {
				return nil, err
			}
			if rewrites == 0 {
				continue
			}
			ledger.AliasRewrites += rewrites
			if err := c.Put(updated); err != nil {
				return nil, err
			}
		}
	}

	for _, name := range out.Names() {
		table := rules.Aliases[name]
		if len(table) == 0 {
			continue
		}
		c := out.Collection(name)
		drop := make(map[string]struct{})
		for _, id := range c.IDs() {
			replacement, ok := table[id]
			if !ok {
				continue
			}
			drop[id] = struct{}{}
			ledger.Superseded = append(ledger.Superseded, Superseded{Collection: name, ID: id, ReplacedBy: replacement})
			logging.WarnWithContext(logger, "superseded entity removed", "superseded_entity",
				logging.String(logging.FieldCollection, name),
				logging.String(logging.FieldEntityID, id),
				logging.String("replaced_by", replacement),
				logging.String(logging.FieldErrorHint, "merge any unique content into the replacement record"),
				logging.String(logging.FieldImpact, "record dropped from output"),
			)
		}
		c.Remove(drop)
	}

	return out, nil
}

func rewriteEntity(entity collection.Entity, refs []Reference, aliases map[string]map[string]string) (collection.Entity, int, error) {
	total := 0
	for _, ref := range refs {
		table := aliases[ref.Target]
		if len(table) == 0 {
			continue
		}
		switch ref.Cardinality {
		case List:
			ids, err := entity.List(ref.Field)
			if err != nil {
				return entity, 0, err
			}
			rewrites := 0
			for i, id := range ids {
				if to, ok := table[id]; ok {
					ids[i] = to
					rewrites++
				}
			}
			if rewrites == 0 {
				continue
			}
			if entity, err = entity.WithList(ref.Field, ids); err != nil {
				return entity, 0, err
			}
			total += rewrites
		case Scalar:
			id, ok, err := entity.Scalar(ref.Field)
			if err != nil {
				return entity, 0, err
			}
			to, aliased := table[id]
			if !ok || !aliased {
				continue
			}
			if entity, err = entity.WithScalar(ref.Field, to); err != nil {
				return entity, 0, err
			}
			total++
		}
	}
	return entity, total, nil
}
