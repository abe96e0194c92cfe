package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"loregraph/internal/collection"
	"loregraph/internal/config"
)

const unknownEra = "unknown"

type eraGroup struct {
	Era       string   `json:"era"`
	Locations []string `json:"locations"`
}

func newErasCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "eras",
		Short: "List location ids grouped by era",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			locations, err := collection.NewStore(cfg).LoadCollection(config.CollectionLocations)
			if err != nil {
				return err
			}
			groups := groupByEra(locations)
			if jsonOutput {
				return writeJSON(cmd, groups)
			}
			var b strings.Builder
			for _, group := range groups {
				fmt.Fprintf(&b, "Era: %s\n", group.Era)
				for _, id := range group.Locations {
					fmt.Fprintf(&b, "  - %s\n", id)
				}
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), b.String())
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print eras as JSON")
	return cmd
}

// groupByEra keeps eras in first-seen order and sorts ids within each era.
func groupByEra(locations *collection.Collection) []eraGroup {
	var groups []eraGroup
	index := make(map[string]int)
	for _, entity := range locations.Entities() {
		era := unknownEra
		if value := entity.Get("eraId"); value.Type == gjson.String && value.Str != "" {
			era = value.Str
		}
		pos, ok := index[era]
		if !ok {
			pos = len(groups)
			index[era] = pos
			groups = append(groups, eraGroup{Era: era})
		}
		groups[pos].Locations = append(groups[pos].Locations, entity.ID)
	}
	for i := range groups {
		slices.Sort(groups[i].Locations)
	}
	return groups
}
