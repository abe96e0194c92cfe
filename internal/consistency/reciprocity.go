package consistency

import (
	"context"
	"slices"

	"loregraph/internal/collection"
)

// EnforceReciprocity makes every configured pair mutual. Each pair gets one
// forward pass and one backward pass; ids that do not resolve to an entity
// are skipped.
func EnforceReciprocity(ctx context.Context, in *collection.Snapshot, rules Rules, ledger *Ledger) (*collection.Snapshot, error) {
	out := in.Clone()
	for _, pair := range rules.Pairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		forward, err := propagate(out, pair.Collection, pair.Field, pair.PeerCollection, pair.PeerField)
		if err != nil {
			return nil, err
		}
		backward, err := propagate(out, pair.PeerCollection, pair.PeerField, pair.Collection, pair.Field)
		if err != nil {
			return nil, err
		}
		ledger.ReciprocalAdded[pair.String()] += forward + backward
	}
	return out, nil
}

// propagate ensures that for every id listed in src.field, the referenced
// dst entity lists the source id in dstField.
func propagate(snapshot *collection.Snapshot, srcName, srcField, dstName, dstField string) (int, error) {
	src := snapshot.Collection(srcName)
	dst := snapshot.Collection(dstName)
	if src == nil || dst == nil {
		return 0, configError("pairs", "collection missing for %s.%s", srcName, srcField)
	}

	added := 0
	for _, id := range src.IDs() {
		// Self-referential pairs mutate src while it is walked.
		entity, _ := src.Get(id)
		targets, err := entity.List(srcField)
		if err != nil {
			return 0, err
		}
		for _, targetID := range targets {
			peer, ok := dst.Get(targetID)
			if !ok {
				continue
			}
			back, err := peer.List(dstField)
			if err != nil {
				return 0, err
			}
			if slices.Contains(back, id) {
				continue
			}
			if peer, err = peer.WithList(dstField, append(back, id)); err != nil {
				return 0, err
			}
			if err := dst.Put(peer); err != nil {
				return 0, err
			}
			added++
		}
	}
	return added, nil
}
