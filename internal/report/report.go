package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"loregraph/internal/collection"
	"loregraph/internal/consistency"
)

// NoGaps is the sentinel line printed when a run finds nothing to report.
const NoGaps = "no gaps found"

// Counts aggregates the counters of one run.
type Counts struct {
	// EmptyEntities counts records with at least one empty required field.
	EmptyEntities       int            `json:"entities_with_empty_required"`
	DanglingRemoved     map[string]int `json:"dangling_removed"`
	DuplicatesRemoved   map[string]int `json:"duplicates_removed"`
	ReciprocalAdded     map[string]int `json:"reciprocal_added"`
	ManualLinksAdded    int            `json:"manual_links_added"`
	ManualLinksSkipped  int            `json:"manual_links_skipped"`
	SharedDialogueLinks int            `json:"shared_dialogue_links"`
	AliasRewrites       int            `json:"alias_rewrites"`
	SupersededEntities  int            `json:"superseded_entities"`
	Changes             int            `json:"changes"`
}

// Report is the deterministic outcome of one run.
type Report struct {
	RunID   string   `json:"run_id,omitempty"`
	DryRun  bool     `json:"dry_run"`
	Gaps    []string `json:"gaps"`
	Counts  Counts   `json:"counts"`
	Written []string `json:"written,omitempty"`
}

// EntityKind returns the title-cased record label of a collection, such as
// "Character" or "Encyclopedia Entry".
func EntityKind(collectionName string) string {
	return cases.Title(language.English).String(collection.KindLabel(collectionName))
}

type gapLine struct {
	collection int
	entity     int
	field      int
	empty      bool
	text       string
}

// Build assembles the report from an engine result. Gap lines are ordered
// by collection load order, entity order, and reference table order, with
// a field's dangling lines ahead of its empty line.
func Build(result *consistency.Result) Report {
	ledger := result.Ledger
	snapshot := result.Snapshot

	collectionIndex := make(map[string]int)
	entityIndex := make(map[string]map[string]int)
	for i, name := range snapshot.Names() {
		collectionIndex[name] = i
		positions := make(map[string]int)
		for j, id := range snapshot.Collection(name).IDs() {
			positions[id] = j
		}
		entityIndex[name] = positions
	}

	lines := make([]gapLine, 0, ledger.Gaps())
	for _, d := range ledger.Dangling {
		lines = append(lines, gapLine{
			collection: collectionIndex[d.Collection],
			entity:     entityIndex[d.Collection][d.EntityID],
			field:      consistency.FieldOrder(d.Collection, d.Field),
			text: fmt.Sprintf("%s '%s' references unknown %s '%s'",
				EntityKind(d.Collection), d.EntityID, collection.KindLabel(d.Target), d.ID),
		})
	}
	for _, e := range ledger.Empty {
		lines = append(lines, gapLine{
			collection: collectionIndex[e.Collection],
			entity:     entityIndex[e.Collection][e.EntityID],
			field:      consistency.FieldOrder(e.Collection, e.Field),
			empty:      true,
			text:       fmt.Sprintf("%s '%s' has empty %s", EntityKind(e.Collection), e.EntityID, e.Field),
		})
	}
	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		if a.collection != b.collection {
			return a.collection < b.collection
		}
		if a.entity != b.entity {
			return a.entity < b.entity
		}
		if a.field != b.field {
			return a.field < b.field
		}
		return !a.empty && b.empty
	})

	gaps := make([]string, len(lines))
	for i, line := range lines {
		gaps[i] = line.text
	}

	return Report{
		Gaps: gaps,
		Counts: Counts{
			EmptyEntities:       emptyEntities(ledger.Empty),
			DanglingRemoved:     nonZero(ledger.DanglingRemoved),
			DuplicatesRemoved:   nonZero(ledger.DuplicatesRemoved),
			ReciprocalAdded:     nonZero(ledger.ReciprocalAdded),
			ManualLinksAdded:    ledger.ManualLinksAdded,
			ManualLinksSkipped:  len(ledger.SkippedLinks),
			SharedDialogueLinks: ledger.SharedDialogueLinks,
			AliasRewrites:       ledger.AliasRewrites,
			SupersededEntities:  len(ledger.Superseded),
			Changes:             ledger.Changes(),
		},
	}
}

// Lines returns the report as text lines: a header plus one line per gap,
// or the single NoGaps sentinel.
func (r Report) Lines() []string {
	if len(r.Gaps) == 0 {
		return []string{NoGaps}
	}
	lines := make([]string, 0, len(r.Gaps)+1)
	lines = append(lines, fmt.Sprintf("%d gaps found", len(r.Gaps)))
	return append(lines, r.Gaps...)
}

// Text renders Lines joined by newlines with a trailing newline.
func (r Report) Text() string {
	return strings.Join(r.Lines(), "\n") + "\n"
}

// WriteText writes Text to w.
func (r Report) WriteText(w io.Writer) error {
	_, err := io.WriteString(w, r.Text())
	return err
}

func emptyEntities(fields []consistency.EmptyField) int {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		seen[f.Collection+"\x00"+f.EntityID] = struct{}{}
	}
	return len(seen)
}

func nonZero(counts map[string]int) map[string]int {
	out := make(map[string]int, len(counts))
	for key, n := range counts {
		if n != 0 {
			out[key] = n
		}
	}
	return out
}
