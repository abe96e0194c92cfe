package consistency_test

import (
	"slices"
	"testing"

	"loregraph/internal/collection"
	"loregraph/internal/config"
	"loregraph/internal/consistency"
)

type docs map[string]string

func snapshotOf(t *testing.T, documents docs) *collection.Snapshot {
	t.Helper()
	var collections []*collection.Collection
	for _, name := range config.CollectionNames() {
		doc, ok := documents[name]
		if !ok {
			doc = "[]"
			if name == config.CollectionQuizzes {
				doc = `{"categories":[]}`
			}
		}
		c, err := collection.Decode(name, []byte(doc))
		if err != nil {
			t.Fatalf("decode %s: %v", name, err)
		}
		collections = append(collections, c)
	}
	snapshot, err := collection.NewSnapshot(collections...)
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}
	return snapshot
}

func listOf(t *testing.T, snapshot *collection.Snapshot, name, id, field string) []string {
	t.Helper()
	entity, ok := snapshot.Collection(name).Get(id)
	if !ok {
		t.Fatalf("%s %q missing", name, id)
	}
	ids, err := entity.List(field)
	if err != nil {
		t.Fatalf("%s %q %s: %v", name, id, field, err)
	}
	return ids
}

func scalarOf(t *testing.T, snapshot *collection.Snapshot, name, id, field string) (string, bool) {
	t.Helper()
	entity, ok := snapshot.Collection(name).Get(id)
	if !ok {
		t.Fatalf("%s %q missing", name, id)
	}
	value, set, err := entity.Scalar(field)
	if err != nil {
		t.Fatalf("%s %q %s: %v", name, id, field, err)
	}
	return value, set
}

func encodeAll(t *testing.T, snapshot *collection.Snapshot) map[string]string {
	t.Helper()
	out := make(map[string]string)
	for _, name := range snapshot.Names() {
		data, err := collection.Encode(snapshot.Collection(name))
		if err != nil {
			t.Fatalf("encode %s: %v", name, err)
		}
		out[name] = string(data)
	}
	return out
}

func defaultRules(t *testing.T, mutate ...func(*config.Config)) consistency.Rules {
	t.Helper()
	cfg := config.Default()
	for _, fn := range mutate {
		fn(&cfg)
	}
	rules, err := consistency.NewRules(&cfg)
	if err != nil {
		t.Fatalf("NewRules: %v", err)
	}
	return rules
}

func equalIDs(got []string, want ...string) bool {
	if len(want) == 0 {
		return len(got) == 0
	}
	return slices.Equal(got, want)
}
