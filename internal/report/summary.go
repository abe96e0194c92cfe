package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Metric is one named counter of the summary.
type Metric struct {
	Name  string
	Value int
}

// Metrics lists the summary counters in display order. Per-field and
// per-pair counters only appear when non-zero.
func (r Report) Metrics() []Metric {
	c := r.Counts
	metrics := []Metric{
		{Name: "gaps", Value: len(r.Gaps)},
		{Name: "entities with empty required fields", Value: c.EmptyEntities},
	}
	metrics = append(metrics, keyed("dangling removed", c.DanglingRemoved)...)
	metrics = append(metrics, keyed("duplicates removed", c.DuplicatesRemoved)...)
	metrics = append(metrics, keyed("reciprocal links added", c.ReciprocalAdded)...)
	metrics = append(metrics,
		Metric{Name: "manual links added", Value: c.ManualLinksAdded},
		Metric{Name: "manual links skipped", Value: c.ManualLinksSkipped},
		Metric{Name: "shared dialogue links", Value: c.SharedDialogueLinks},
		Metric{Name: "alias rewrites", Value: c.AliasRewrites},
		Metric{Name: "superseded entities", Value: c.SupersededEntities},
		Metric{Name: "changes", Value: c.Changes},
	)
	return metrics
}

func keyed(prefix string, counts map[string]int) []Metric {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]Metric, 0, len(keys))
	for _, key := range keys {
		out = append(out, Metric{Name: fmt.Sprintf("%s %s", prefix, key), Value: counts[key]})
	}
	return out
}

// WriteSummary renders the metrics. Terminals get a table with the change
// total as its footer; other writers get "name: value" lines.
func (r Report) WriteSummary(w io.Writer, pretty bool) error {
	metrics := r.Metrics()
	if pretty {
		total := metrics[len(metrics)-1]
		rows := make([][]string, 0, len(metrics)-1)
		for _, m := range metrics[:len(metrics)-1] {
			rows = append(rows, []string{m.Name, strconv.Itoa(m.Value)})
		}
		columns := []Column{{Header: "Metric"}, {Header: "Count", Align: AlignRight}}
		footer := []string{total.Name, strconv.Itoa(total.Value)}
		_, err := fmt.Fprintln(w, RenderTable(columns, rows, footer))
		return err
	}
	var b strings.Builder
	for _, m := range metrics {
		fmt.Fprintf(&b, "%s: %d\n", m.Name, m.Value)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
