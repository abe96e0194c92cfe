package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"loregraph/internal/collection"
	"loregraph/internal/config"
	"loregraph/internal/logging"
	"loregraph/internal/services"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var collectionName string

	cmd := &cobra.Command{
		Use:   "merge FILE",
		Short: "Append generated records whose ids are not already present",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			name := strings.TrimSpace(collectionName)
			if !slices.Contains(config.CollectionNames(), name) {
				return services.Wrap(services.ErrConfiguration, "merge", "collection", fmt.Sprintf("unknown collection %q", name), nil)
			}

			store := collection.NewStore(cfg)
			target, err := store.LoadCollection(name)
			if err != nil {
				return err
			}
			records, err := readGenerated(name, args[0])
			if err != nil {
				return err
			}

			added := 0
			for _, entity := range records {
				if target.Has(entity.ID) {
					continue
				}
				if err := target.Append(entity); err != nil {
					return services.Wrap(services.ErrMalformedRecord, "merge", name, entity.ID, err)
				}
				added++
			}

			out := cmd.OutOrStdout()
			if added == 0 {
				fmt.Fprintf(out, "No new records to add to %s (all ids exist)\n", name)
				return nil
			}
			path, err := store.WriteCollection(target)
			if err != nil {
				return err
			}
			logging.NewComponentLogger(logger, "merge").Info("records merged",
				logging.String(logging.FieldEventType, "merge_complete"),
				logging.String(logging.FieldCollection, name),
				logging.Int("added", added),
				logging.String("source", args[0]),
			)
			fmt.Fprintf(out, "Added %d records to %s\n", added, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&collectionName, "collection", "", "Collection to merge into")
	_ = cmd.MarkFlagRequired("collection")
	return cmd
}

// readGenerated parses a JSON array of records. Every record needs a string id.
func readGenerated(name, path string) ([]collection.Entity, error) {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "merge", "source", path, err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrMissingCollection, "merge", "source", expanded, nil)
		}
		return nil, services.Wrap(services.ErrIO, "merge", "source", expanded, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, services.Wrap(services.ErrMalformedRecord, "merge", "source", expanded+" is not valid JSON", nil)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return nil, services.Wrap(services.ErrMalformedRecord, "merge", "source", expanded+" is not an array", nil)
	}

	var (
		records []collection.Entity
		failure error
	)
	doc.ForEach(func(_, value gjson.Result) bool {
		entity, err := collection.NewEntity(name, []byte(value.Raw))
		if err != nil {
			failure = err
			return false
		}
		records = append(records, entity)
		return true
	})
	if failure != nil {
		return nil, failure
	}
	return records, nil
}
