package consistency

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"loregraph/internal/collection"
	"loregraph/internal/config"
	"loregraph/internal/logging"
)

const (
	skipUnknownEntity = "unknown entity"
	skipUnknownTarget = "unknown target"
)

// InjectManualLinks appends curated ids to the configured fields. Entity ids
// resolve through their own collection's aliases and candidates through the
// target collection's aliases. Existing entries keep their order.
func InjectManualLinks(ctx context.Context, in *collection.Snapshot, rules Rules, ledger *Ledger, logger *slog.Logger) (*collection.Snapshot, error) {
	out := in.Clone()

	for _, rule := range rules.ManualLinks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ref, ok := Lookup(rule.Collection, rule.Field)
		if !ok {
			return nil, configError("manual_links", "%s.%s is not a reference field", rule.Collection, rule.Field)
		}
		if err := applyManualLink(out, ref, rule, rules.Aliases, ledger, logger); err != nil {
			return nil, err
		}
	}

	if rules.LinkSharedDialogues {
		added, err := linkSharedDialogues(out)
		if err != nil {
			return nil, err
		}
		ledger.SharedDialogueLinks += added
	}

	return out, nil
}

func applyManualLink(snapshot *collection.Snapshot, ref Reference, rule config.ManualLink, aliases map[string]map[string]string, ledger *Ledger, logger *slog.Logger) error {
	owner := snapshot.Collection(ref.Collection)
	target := snapshot.Collection(ref.Target)

	entityIDs := make([]string, 0, len(rule.Links))
	for id := range rule.Links {
		entityIDs = append(entityIDs, id)
	}
	slices.Sort(entityIDs)

	skip := func(entityID, candidate, reason string) {
		ledger.SkippedLinks = append(ledger.SkippedLinks, SkippedLink{
			Collection: ref.Collection,
			EntityID:   entityID,
			Field:      ref.Field,
			Candidate:  candidate,
			Reason:     reason,
		})
		logging.WarnWithContext(logger, "manual link skipped", "manual_link_skipped",
			logging.String(logging.FieldCollection, ref.Collection),
			logging.String(logging.FieldEntityID, entityID),
			logging.String("field", ref.Field),
			logging.String("candidate", candidate),
			logging.String("reason", reason),
			logging.String(logging.FieldErrorHint, "update the manual link table"),
			logging.String(logging.FieldImpact, "link not applied"),
		)
	}

	for _, rawID := range entityIDs {
		id := resolveAlias(aliases[ref.Collection], strings.TrimSpace(rawID))
		entity, ok := owner.Get(id)
		if !ok {
			skip(id, "", skipUnknownEntity)
			continue
		}
		ids, err := entity.List(ref.Field)
		if err != nil {
			return err
		}
		added := 0
		for _, rawCandidate := range rule.Links[rawID] {
			candidate := resolveAlias(aliases[ref.Target], strings.TrimSpace(rawCandidate))
			if candidate == "" {
				continue
			}
			if !target.Has(candidate) {
				skip(id, candidate, skipUnknownTarget)
				continue
			}
			if slices.Contains(ids, candidate) {
				continue
			}
			ids = append(ids, candidate)
			added++
		}
		if added == 0 {
			continue
		}
		if entity, err = entity.WithList(ref.Field, ids); err != nil {
			return err
		}
		if err := owner.Put(entity); err != nil {
			return err
		}
		ledger.ManualLinksAdded += added
	}
	return nil
}

// linkSharedDialogues relates characters that appear in the same dialogue.
// Only dialogue ids that exist are considered.
func linkSharedDialogues(snapshot *collection.Snapshot) (int, error) {
	characters := snapshot.Collection(config.CollectionCharacters)
	dialogues := snapshot.Collection(config.CollectionDialogues)

	speakers := make(map[string][]string)
	for _, entity := range characters.Entities() {
		ids, err := entity.List("dialogueIds")
		if err != nil {
			return 0, err
		}
		for _, dialogueID := range ids {
			if !dialogues.Has(dialogueID) || slices.Contains(speakers[dialogueID], entity.ID) {
				continue
			}
			speakers[dialogueID] = append(speakers[dialogueID], entity.ID)
		}
	}

	peers := make(map[string]map[string]struct{})
	for _, members := range speakers {
		if len(members) < 2 {
			continue
		}
		for _, a := range members {
			for _, b := range members {
				if a == b {
					continue
				}
				if peers[a] == nil {
					peers[a] = make(map[string]struct{})
				}
				peers[a][b] = struct{}{}
			}
		}
	}

	characterIDs := make([]string, 0, len(peers))
	for id := range peers {
		characterIDs = append(characterIDs, id)
	}
	slices.Sort(characterIDs)

	added := 0
	for _, id := range characterIDs {
		entity, _ := characters.Get(id)
		related, err := entity.List("relatedCharacterIds")
		if err != nil {
			return 0, err
		}
		others := make([]string, 0, len(peers[id]))
		for other := range peers[id] {
			others = append(others, other)
		}
		slices.Sort(others)

		count := 0
		for _, other := range others {
			if slices.Contains(related, other) {
				continue
			}
			related = append(related, other)
			count++
		}
		if count == 0 {
			continue
		}
		if entity, err = entity.WithList("relatedCharacterIds", related); err != nil {
			return 0, err
		}
		if err := characters.Put(entity); err != nil {
			return 0, err
		}
		added += count
	}
	return added, nil
}
