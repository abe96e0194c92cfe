package consistency

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"loregraph/internal/config"
	"loregraph/internal/services"
)

// Rules is the immutable configuration consumed by the stages.
type Rules struct {
	Aliases             map[string]map[string]string
	ManualLinks         []config.ManualLink
	Pairs               []config.Pair
	Required            []config.FieldRef
	LinkSharedDialogues bool
}

// NewRules copies the relation settings out of cfg and checks them against
// the reference table.
func NewRules(cfg *config.Config) (Rules, error) {
	required, err := cfg.RequiredFields()
	if err != nil {
		return Rules{}, services.Wrap(services.ErrConfiguration, "rules", "required", "", err)
	}

	rules := Rules{
		Aliases:             make(map[string]map[string]string, len(cfg.Aliases)),
		Pairs:               cfg.RelationPairs(),
		Required:            required,
		LinkSharedDialogues: cfg.Relations.LinkSharedDialogues,
	}
	for domain, table := range cfg.Aliases {
		rules.Aliases[domain] = maps.Clone(table)
	}
	for _, link := range cfg.ManualLinks {
		copied := config.ManualLink{
			Collection: link.Collection,
			Field:      link.Field,
			Links:      make(map[string][]string, len(link.Links)),
		}
		for id, candidates := range link.Links {
			copied.Links[id] = slices.Clone(candidates)
		}
		rules.ManualLinks = append(rules.ManualLinks, copied)
	}

	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}

// Validate checks that every configured field exists in the reference table
// and that paired fields point at each other.
func (r Rules) Validate() error {
	for _, pair := range r.Pairs {
		forward, ok := Lookup(pair.Collection, pair.Field)
		if !ok || forward.Cardinality != List {
			return configError("pairs", "%s.%s is not a list reference field", pair.Collection, pair.Field)
		}
		backward, ok := Lookup(pair.PeerCollection, pair.PeerField)
		if !ok || backward.Cardinality != List {
			return configError("pairs", "%s.%s is not a list reference field", pair.PeerCollection, pair.PeerField)
		}
		if forward.Target != pair.PeerCollection || backward.Target != pair.Collection {
			return configError("pairs", "%s does not pair fields that reference each other", pair)
		}
	}
	for _, link := range r.ManualLinks {
		ref, ok := Lookup(link.Collection, link.Field)
		if !ok || ref.Cardinality != List {
			return configError("manual_links", "%s.%s is not a list reference field", link.Collection, link.Field)
		}
	}
	for _, field := range r.Required {
		if _, ok := Lookup(field.Collection, field.Field); !ok {
			return configError("required", "%s is not a reference field", field)
		}
	}
	for domain, table := range r.Aliases {
		for from, to := range table {
			if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" || from == to {
				return configError("aliases", "invalid alias %q -> %q in %s", from, to, domain)
			}
			if _, chained := table[to]; chained {
				return configError("aliases", "alias %q -> %q in %s is chained", from, to, domain)
			}
		}
	}
	return nil
}

// resolveAlias maps id through a single alias hop.
func resolveAlias(table map[string]string, id string) string {
	if to, ok := table[id]; ok {
		return to
	}
	return id
}

func configError(operation, format string, args ...any) error {
	return services.Wrap(services.ErrConfiguration, "rules", operation, fmt.Sprintf(format, args...), nil)
}
