package consistency

// Dangling is one reference to an id that does not exist in its target
// collection. Repeated occurrences in the same field are reported once.
type Dangling struct {
	Collection string
	EntityID   string
	Field      string
	Target     string
	ID         string
}

// EmptyField is a required relation field with no ids after the run.
type EmptyField struct {
	Collection string
	EntityID   string
	Field      string
}

// Superseded is an entity removed because its id is an alias source.
type Superseded struct {
	Collection string
	ID         string
	ReplacedBy string
}

// SkippedLink is a manual link that could not be applied.
type SkippedLink struct {
	Collection string
	EntityID   string
	Field      string
	Candidate  string
	Reason     string
}

// Ledger accumulates findings and counters across the stages of one run.
type Ledger struct {
	Dangling     []Dangling
	Empty        []EmptyField
	Superseded   []Superseded
	SkippedLinks []SkippedLink

	AliasRewrites       int
	ManualLinksAdded    int
	SharedDialogueLinks int

	// Keyed by "collection.field".
	DanglingRemoved   map[string]int
	DuplicatesRemoved map[string]int
	// Keyed by the pair's String form.
	ReciprocalAdded map[string]int
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		DanglingRemoved:   map[string]int{},
		DuplicatesRemoved: map[string]int{},
		ReciprocalAdded:   map[string]int{},
	}
}

// Changes counts every modification made to the data. A rerun over its own
// output reports zero.
func (l *Ledger) Changes() int {
	total := l.AliasRewrites + len(l.Superseded) + l.ManualLinksAdded + l.SharedDialogueLinks
	return total + l.TotalDanglingRemoved() + l.TotalDuplicatesRemoved() + l.TotalReciprocalAdded()
}

// Gaps counts reported findings: dangling references plus empty required fields.
func (l *Ledger) Gaps() int {
	return len(l.Dangling) + len(l.Empty)
}

// TotalDanglingRemoved sums removed dangling occurrences across fields.
func (l *Ledger) TotalDanglingRemoved() int {
	return sum(l.DanglingRemoved)
}

// TotalDuplicatesRemoved sums removed duplicates across fields.
func (l *Ledger) TotalDuplicatesRemoved() int {
	return sum(l.DuplicatesRemoved)
}

// TotalReciprocalAdded sums back-references added across pairs.
func (l *Ledger) TotalReciprocalAdded() int {
	return sum(l.ReciprocalAdded)
}

func sum(counts map[string]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}
