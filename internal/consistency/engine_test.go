package consistency_test

import (
	"context"
	"errors"
	"testing"

	"loregraph/internal/collection"
	"loregraph/internal/config"
	"loregraph/internal/consistency"
	"loregraph/internal/logging"
	"loregraph/internal/services"
)

func runEngine(t *testing.T, rules consistency.Rules, in *collection.Snapshot) *consistency.Result {
	t.Helper()
	result, err := consistency.NewEngine(rules, logging.NewNop()).Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return result
}

func TestScenarioAliasRewriteAndBackReference(t *testing.T) {
	in := snapshotOf(t, docs{
		"characters": `[{"id":"c1","relatedLocationIds":["kaesong"]}]`,
		"locations":  `[{"id":"manwoldae"}]`,
	})
	rules := defaultRules(t, func(cfg *config.Config) {
		cfg.Aliases = map[string]map[string]string{"locations": {"kaesong": "manwoldae"}}
	})

	result := runEngine(t, rules, in)
	if got := listOf(t, result.Snapshot, "characters", "c1", "relatedLocationIds"); !equalIDs(got, "manwoldae") {
		t.Fatalf("unexpected relatedLocationIds %v", got)
	}
	if got := listOf(t, result.Snapshot, "locations", "manwoldae", "characterIds"); !contains(got, "c1") {
		t.Fatalf("expected back-reference, got %v", got)
	}
}

func TestScenarioDanglingReferenceRemovedAndReportedOnce(t *testing.T) {
	in := snapshotOf(t, docs{
		"characters": `[{"id":"c2","relatedCharacterIds":["ghost_id"]}]`,
	})

	result := runEngine(t, defaultRules(t), in)
	if got := listOf(t, result.Snapshot, "characters", "c2", "relatedCharacterIds"); len(got) != 0 {
		t.Fatalf("expected dangling id removed, got %v", got)
	}
	if len(result.Ledger.Dangling) != 1 || result.Ledger.Dangling[0].ID != "ghost_id" {
		t.Fatalf("expected one dangling finding, got %+v", result.Ledger.Dangling)
	}
}

func TestScenarioManualLinkWithReciprocity(t *testing.T) {
	in := snapshotOf(t, docs{
		"characters": `[{"id":"c3"}]`,
		"locations":  `[{"id":"loc9"}]`,
	})
	rules := defaultRules(t, func(cfg *config.Config) {
		cfg.ManualLinks = []config.ManualLink{{
			Collection: "characters",
			Field:      "relatedLocationIds",
			Links:      map[string][]string{"c3": {"loc9"}},
		}}
	})

	result := runEngine(t, rules, in)
	if got := listOf(t, result.Snapshot, "characters", "c3", "relatedLocationIds"); !contains(got, "loc9") {
		t.Fatalf("expected manual link, got %v", got)
	}
	if got := listOf(t, result.Snapshot, "locations", "loc9", "characterIds"); !contains(got, "c3") {
		t.Fatalf("expected reciprocal link, got %v", got)
	}
	if result.Ledger.ManualLinksAdded != 1 {
		t.Fatalf("expected one manual link counted, got %d", result.Ledger.ManualLinksAdded)
	}
}

func richFixture(t *testing.T) (*collection.Snapshot, consistency.Rules) {
	t.Helper()
	in := snapshotOf(t, docs{
		"characters": `[
			{"id":"wang_geon","name":"Wang Geon","relatedCharacterIds":["yu","yu","ghost"],"relatedLocationIds":["kaesong","songak"],"dialogueIds":["d1","d404"]},
			{"id":"yu","relatedLocationIds":[],"dialogueIds":["d1"]},
			{"id":"old_yu","relatedCharacterIds":["wang_geon"]},
			{"id":"seohee","relatedCharacterIds":["old_yu"]},
			{"id":"lonely"}
		]`,
		"locations": `[
			{"id":"manwoldae","eraId":"goryeo","characterIds":["seohee"],"eventIds":["e1","e_missing"]},
			{"id":"kaesong","characterIds":["wang_geon"]},
			{"id":"songak","characterIds":["nobody"]}
		]`,
		"dialogues":    `[{"id":"d1","characterId":"wang_geon"},{"id":"d2","characterId":"old_yu"}]`,
		"encyclopedia": `[{"id":"e1","relatedEntryIds":["e1","e2"]},{"id":"e2","relatedEntryIds":["e404"]}]`,
		"quizzes":      `{"categories":[{"id":"history","quizzes":[{"id":"q1","relatedFactId":"e2","relatedLocationId":"kaesong","relatedCharacterId":"old_yu","relatedDialogueId":"d9"}]}]}`,
	})
	rules := defaultRules(t, func(cfg *config.Config) {
		cfg.Aliases = map[string]map[string]string{
			"locations":  {"kaesong": "manwoldae"},
			"characters": {"old_yu": "yu"},
		}
		cfg.ManualLinks = []config.ManualLink{{
			Collection: "characters",
			Field:      "relatedLocationIds",
			Links:      map[string][]string{"lonely": {"songak", "atlantis"}},
		}}
		cfg.Relations.LinkSharedDialogues = true
	})
	return in, rules
}

func TestEngineIsIdempotent(t *testing.T) {
	in, rules := richFixture(t)

	first := runEngine(t, rules, in)
	if first.Ledger.Changes() == 0 {
		t.Fatal("expected the first run to change the fixture")
	}
	second := runEngine(t, rules, first.Snapshot)
	if second.Ledger.Changes() != 0 {
		t.Fatalf("expected no changes on rerun, got %d (%+v)", second.Ledger.Changes(), second.Ledger)
	}
	if len(second.Ledger.Dangling) != 0 {
		t.Fatalf("expected no dangling findings on rerun, got %+v", second.Ledger.Dangling)
	}

	firstOut := encodeAll(t, first.Snapshot)
	secondOut := encodeAll(t, second.Snapshot)
	for name, doc := range firstOut {
		if secondOut[name] != doc {
			t.Fatalf("%s changed on rerun:\n%s\nvs\n%s", name, doc, secondOut[name])
		}
	}
}

func TestEnginePostconditions(t *testing.T) {
	in, rules := richFixture(t)
	result := runEngine(t, rules, in)
	out := result.Snapshot

	// Referential closure and no duplicates.
	for _, ref := range consistency.References() {
		target := out.Collection(ref.Target)
		for _, entity := range out.Collection(ref.Collection).Entities() {
			if ref.Cardinality == consistency.Scalar {
				id, ok, err := entity.Scalar(ref.Field)
				if err != nil {
					t.Fatal(err)
				}
				if ok && !target.Has(id) {
					t.Fatalf("%s %s.%s dangles to %q", ref.Collection, entity.ID, ref.Field, id)
				}
				continue
			}
			ids, err := entity.List(ref.Field)
			if err != nil {
				t.Fatal(err)
			}
			seen := map[string]bool{}
			for _, id := range ids {
				if !target.Has(id) {
					t.Fatalf("%s %s.%s dangles to %q", ref.Collection, entity.ID, ref.Field, id)
				}
				if seen[id] {
					t.Fatalf("%s %s.%s repeats %q", ref.Collection, entity.ID, ref.Field, id)
				}
				seen[id] = true
			}
		}
	}

	// Alias elimination.
	for domain, table := range rules.Aliases {
		for from := range table {
			if out.Collection(domain).Has(from) {
				t.Fatalf("alias source %s/%s survived", domain, from)
			}
		}
	}
	if got, _ := scalarOf(t, out, "quizzes", "q1", "relatedCharacterId"); got != "yu" {
		t.Fatalf("expected quiz character aliased to yu, got %q", got)
	}
	if got, _ := scalarOf(t, out, "dialogues", "d2", "characterId"); got != "yu" {
		t.Fatalf("expected dialogue speaker aliased to yu, got %q", got)
	}

	// Reciprocity.
	for _, pair := range rules.Pairs {
		for _, entity := range out.Collection(pair.Collection).Entities() {
			for _, peer := range listOf(t, out, pair.Collection, entity.ID, pair.Field) {
				if !contains(listOf(t, out, pair.PeerCollection, peer, pair.PeerField), entity.ID) {
					t.Fatalf("%s %s -> %s not mirrored", pair, entity.ID, peer)
				}
			}
		}
	}

	if got := listOf(t, out, "characters", "lonely", "relatedLocationIds"); !equalIDs(got, "songak") {
		t.Fatalf("unexpected manual link result %v", got)
	}
	if len(result.Ledger.SkippedLinks) != 1 || result.Ledger.SkippedLinks[0].Candidate != "atlantis" {
		t.Fatalf("expected atlantis skipped, got %+v", result.Ledger.SkippedLinks)
	}
	if entity, _ := out.Collection("characters").Get("wang_geon"); entity.Get("name").String() != "Wang Geon" {
		t.Fatal("non-reference fields must survive")
	}
}

func TestEngineDoesNotModifyInput(t *testing.T) {
	in, rules := richFixture(t)
	before := encodeAll(t, in)

	runEngine(t, rules, in)

	after := encodeAll(t, in)
	for name, doc := range before {
		if after[name] != doc {
			t.Fatalf("input %s modified", name)
		}
	}
}

func TestEngineReportsEmptyRequiredFields(t *testing.T) {
	in := snapshotOf(t, docs{
		"characters": `[{"id":"a","relatedCharacterIds":["b"]},{"id":"b"}]`,
		"locations":  `[{"id":"x"}]`,
	})

	result := runEngine(t, defaultRules(t), in)
	var got []string
	for _, empty := range result.Ledger.Empty {
		got = append(got, empty.Collection+"/"+empty.EntityID+"/"+empty.Field)
	}
	want := []string{
		"characters/a/relatedLocationIds",
		"characters/b/relatedLocationIds",
		"locations/x/characterIds",
	}
	if !equalIDs(got, want...) {
		t.Fatalf("unexpected empty fields %v", got)
	}
}

func TestEngineRejectsMalformedReferenceField(t *testing.T) {
	in := snapshotOf(t, docs{
		"characters": `[{"id":"a"}]`,
		"locations":  `[{"id":"x","characterIds":"a"}]`,
	})

	_, err := consistency.NewEngine(defaultRules(t), logging.NewNop()).Run(context.Background(), in)
	if !errors.Is(err, services.ErrMalformedRecord) {
		t.Fatalf("expected ErrMalformedRecord, got %v", err)
	}
}

func TestEngineRepairsNonStringAndEmptyReferences(t *testing.T) {
	in := snapshotOf(t, docs{
		"characters":   `[{"id":"a","relatedCharacterIds":["a",42]}]`,
		"encyclopedia": `[{"id":"f1"}]`,
		"quizzes":      `{"categories":[{"quizzes":[{"id":"q1","relatedCharacterId":7,"relatedFactId":""}]}]}`,
	})
	rules := defaultRules(t)

	result := runEngine(t, rules, in)
	if got := listOf(t, result.Snapshot, "characters", "a", "relatedCharacterIds"); !equalIDs(got, "a") {
		t.Fatalf("unexpected relatedCharacterIds %v", got)
	}
	quiz, _ := result.Snapshot.Collection("quizzes").Get("q1")
	for _, field := range []string{"relatedCharacterId", "relatedFactId"} {
		if raw := quiz.Get(field).Raw; raw != "null" {
			t.Fatalf("expected %s to be null, got %s", field, raw)
		}
	}
	if len(result.Ledger.Dangling) != 3 {
		t.Fatalf("expected three dangling findings, got %+v", result.Ledger.Dangling)
	}

	second := runEngine(t, rules, result.Snapshot)
	if second.Ledger.Changes() != 0 || len(second.Ledger.Dangling) != 0 {
		t.Fatalf("expected clean rerun, got %d changes %+v", second.Ledger.Changes(), second.Ledger.Dangling)
	}
}

func TestNewRulesRejectsMismatchedPair(t *testing.T) {
	cfg := config.Default()
	cfg.Relations.Pairs = []config.Pair{{
		Collection:     "characters",
		Field:          "dialogueIds",
		PeerCollection: "locations",
		PeerField:      "characterIds",
	}}
	if _, err := consistency.NewRules(&cfg); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	cfg = config.Default()
	cfg.ManualLinks = []config.ManualLink{{Collection: "quizzes", Field: "relatedFactId"}}
	if _, err := consistency.NewRules(&cfg); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected scalar manual link to be rejected, got %v", err)
	}
}
