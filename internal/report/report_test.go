package report_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"loregraph/internal/collection"
	"loregraph/internal/config"
	"loregraph/internal/consistency"
	"loregraph/internal/logging"
	"loregraph/internal/report"
)

func runFixture(t *testing.T, documents map[string]string) *consistency.Result {
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
		t.Fatal(err)
	}
	cfg := config.Default()
	rules, err := consistency.NewRules(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	result, err := consistency.NewEngine(rules, logging.NewNop()).Run(context.Background(), snapshot)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return result
}

func TestEntityKind(t *testing.T) {
	tests := map[string]string{
		"characters":   "Character",
		"locations":    "Location",
		"dialogues":    "Dialogue",
		"encyclopedia": "Encyclopedia Entry",
		"quizzes":      "Quiz",
	}
	for name, want := range tests {
		if got := report.EntityKind(name); got != want {
			t.Fatalf("EntityKind(%s) = %q, want %q", name, got, want)
		}
	}
}

func TestBuildOrdersGapLines(t *testing.T) {
	result := runFixture(t, map[string]string{
		"characters": `[
			{"id":"b","relatedCharacterIds":["ghost2","ghost1"],"relatedLocationIds":["loc"]},
			{"id":"a","relatedLocationIds":["nowhere"]}
		]`,
		"locations":    `[{"id":"loc","eventIds":["e404"]}]`,
		"encyclopedia": `[{"id":"e1"}]`,
		"quizzes":      `{"categories":[{"quizzes":[{"id":"q1","relatedFactId":"e9"}]}]}`,
	})

	got := report.Build(result).Lines()
	want := []string{
		"8 gaps found",
		"Character 'b' references unknown character 'ghost2'",
		"Character 'b' references unknown character 'ghost1'",
		"Character 'b' has empty relatedCharacterIds",
		"Character 'a' has empty relatedCharacterIds",
		"Character 'a' references unknown location 'nowhere'",
		"Character 'a' has empty relatedLocationIds",
		"Location 'loc' references unknown encyclopedia entry 'e404'",
		"Quiz 'q1' references unknown encyclopedia entry 'e9'",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("unexpected lines:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestNoGapsSentinel(t *testing.T) {
	result := runFixture(t, map[string]string{
		"characters": `[{"id":"a","relatedCharacterIds":["b"],"relatedLocationIds":["x"]},{"id":"b","relatedCharacterIds":["a"],"relatedLocationIds":["x"]}]`,
		"locations":  `[{"id":"x","characterIds":["a","b"]}]`,
	})

	rep := report.Build(result)
	if rep.Text() != "no gaps found\n" {
		t.Fatalf("unexpected text %q", rep.Text())
	}
	if rep.Counts.Changes != 0 {
		t.Fatalf("expected clean fixture, got %d changes", rep.Counts.Changes)
	}
}

func TestWriteSummaryPlain(t *testing.T) {
	result := runFixture(t, map[string]string{
		"characters": `[{"id":"a","relatedCharacterIds":["ghost","ghost"],"relatedLocationIds":["x"]}]`,
		"locations":  `[{"id":"x"}]`,
	})

	var buf bytes.Buffer
	if err := report.Build(result).WriteSummary(&buf, false); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}
	out := buf.String()
	for _, fragment := range []string{
		"gaps: 2\n",
		"entities with empty required fields: 1\n",
		"dangling removed characters.relatedCharacterIds: 2\n",
		"reciprocal links added characters.relatedLocationIds<->locations.characterIds: 1\n",
		"changes: 3\n",
	} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("expected %q in summary:\n%s", fragment, out)
		}
	}
	if strings.Contains(out, "duplicates removed") {
		t.Fatalf("zero counters must be omitted:\n%s", out)
	}
}

func TestWriteSummaryTable(t *testing.T) {
	result := runFixture(t, map[string]string{})

	var buf bytes.Buffer
	if err := report.Build(result).WriteSummary(&buf, true); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}
	out := buf.String()
	for _, fragment := range []string{"╭", "Metric", "Count", "changes"} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("expected %q in table:\n%s", fragment, out)
		}
	}
	if strings.Contains(out, "METRIC") {
		t.Fatalf("headers must keep their case:\n%s", out)
	}
}

func TestRenderTablePadsRowsAndFooter(t *testing.T) {
	out := report.RenderTable(
		[]report.Column{{Header: "Run"}, {Header: "Gaps", Align: report.AlignRight}},
		[][]string{{"r1", "3"}, {"r2"}},
		[]string{"Total", "3"},
	)
	header, short, footer := strings.Index(out, "Gaps"), strings.Index(out, "r2"), strings.Index(out, "Total")
	if header < 0 || short < 0 || footer < 0 {
		t.Fatalf("unexpected table:\n%s", out)
	}
	if header > short || short > footer {
		t.Fatalf("expected header, rows, then footer:\n%s", out)
	}
	if report.RenderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty output without columns")
	}
}

func TestSummaryCountsEntitiesOnceForEmptyFields(t *testing.T) {
	result := runFixture(t, map[string]string{
		"characters": `[{"id":"lonely"}]`,
	})

	rep := report.Build(result)
	if len(rep.Gaps) != 2 {
		t.Fatalf("expected one gap per empty field, got %v", rep.Gaps)
	}
	if rep.Counts.EmptyEntities != 1 {
		t.Fatalf("expected the entity counted once, got %d", rep.Counts.EmptyEntities)
	}
}
