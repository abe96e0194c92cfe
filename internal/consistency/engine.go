package consistency

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"loregraph/internal/collection"
	"loregraph/internal/config"
	"loregraph/internal/logging"
	"loregraph/internal/services"
)

// Stage names, in execution order.
const (
	StageSanitize    = "sanitize"
	StageAliases     = "aliases"
	StageManualLinks = "manual_links"
	StageValidate    = "validate"
	StageReciprocity = "reciprocity"
)

// Result is the outcome of one engine run.
type Result struct {
	Snapshot *collection.Snapshot
	Ledger   *Ledger
}

type stageFunc func(context.Context, *collection.Snapshot, *Ledger, *slog.Logger) (*collection.Snapshot, error)

type stage struct {
	name  string
	apply stageFunc
}

// Engine runs the repair stages over a snapshot.
type Engine struct {
	rules  Rules
	logger *slog.Logger
	stages []stage
}

// NewEngine builds an engine for rules.
func NewEngine(rules Rules, logger *slog.Logger) *Engine {
	e := &Engine{
		rules:  rules,
		logger: logging.NewComponentLogger(logger, "engine"),
	}
	e.stages = []stage{
		{name: StageSanitize, apply: func(ctx context.Context, s *collection.Snapshot, l *Ledger, _ *slog.Logger) (*collection.Snapshot, error) {
			return SanitizeReferences(ctx, s, l)
		}},
		{name: StageAliases, apply: func(ctx context.Context, s *collection.Snapshot, l *Ledger, log *slog.Logger) (*collection.Snapshot, error) {
			return ResolveAliases(ctx, s, e.rules, l, log)
		}},
		{name: StageManualLinks, apply: func(ctx context.Context, s *collection.Snapshot, l *Ledger, log *slog.Logger) (*collection.Snapshot, error) {
			return InjectManualLinks(ctx, s, e.rules, l, log)
		}},
		{name: StageValidate, apply: func(ctx context.Context, s *collection.Snapshot, l *Ledger, _ *slog.Logger) (*collection.Snapshot, error) {
			return ValidateReferences(ctx, s, l)
		}},
		{name: StageReciprocity, apply: func(ctx context.Context, s *collection.Snapshot, l *Ledger, _ *slog.Logger) (*collection.Snapshot, error) {
			return EnforceReciprocity(ctx, s, e.rules, l)
		}},
	}
	return e
}

// Run applies every stage in order and collects empty required fields from
// the final snapshot. The input snapshot is not modified.
func (e *Engine) Run(ctx context.Context, snapshot *collection.Snapshot) (*Result, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("engine: snapshot is required")
	}
	ledger := NewLedger()
	current := snapshot

	for _, st := range e.stages {
		next, err := e.runStage(ctx, st, current, ledger)
		if err != nil {
			return nil, err
		}
		current = next
	}

	empty, err := FindEmpty(current, e.rules.Required)
	if err != nil {
		return nil, err
	}
	ledger.Empty = empty

	e.logger.Info("consistency run finished",
		logging.String(logging.FieldEventType, "engine_complete"),
		logging.Int("gaps", ledger.Gaps()),
		logging.Int("changes", ledger.Changes()),
	)
	return &Result{Snapshot: current, Ledger: ledger}, nil
}

func (e *Engine) runStage(ctx context.Context, st stage, in *collection.Snapshot, ledger *Ledger) (*collection.Snapshot, error) {
	stageCtx := logging.WithStage(ctx, st.name)
	stageLogger := logging.WithContext(stageCtx, e.logger)

	stageLogger.Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))
	started := time.Now()
	changesBefore := ledger.Changes()
	findingsBefore := len(ledger.Dangling)

	out, err := st.apply(stageCtx, in, ledger, stageLogger)
	if err != nil {
		logging.ErrorWithContext(stageLogger, "stage failed", "stage_failure",
			logging.String("error_kind", services.Classify(err)),
			logging.Error(err),
		)
		return nil, err
	}

	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Int("changes", ledger.Changes()-changesBefore),
		logging.Int("findings", len(ledger.Dangling)-findingsBefore),
		logging.Duration("elapsed", time.Since(started)),
	)
	return out, nil
}

// FindEmpty lists required fields with no ids, ordered by collection load
// order, entity order, then reference table order.
func FindEmpty(snapshot *collection.Snapshot, required []config.FieldRef) ([]EmptyField, error) {
	byCollection := make(map[string][]Reference)
	for _, ref := range References() {
		for _, field := range required {
			if field.Collection == ref.Collection && field.Field == ref.Field {
				byCollection[ref.Collection] = append(byCollection[ref.Collection], ref)
				break
			}
		}
	}

	var empty []EmptyField
	for _, name := range snapshot.Names() {
		refs := byCollection[name]
		if len(refs) == 0 {
			continue
		}
		for _, entity := range snapshot.Collection(name).Entities() {
			for _, ref := range refs {
				blank, err := isEmpty(entity, ref)
				if err != nil {
					return nil, err
				}
				if blank {
					empty = append(empty, EmptyField{Collection: name, EntityID: entity.ID, Field: ref.Field})
				}
			}
		}
	}
	return empty, nil
}

func isEmpty(entity collection.Entity, ref Reference) (bool, error) {
	if ref.Cardinality == Scalar {
		_, set, err := entity.Scalar(ref.Field)
		return !set, err
	}
	ids, err := entity.List(ref.Field)
	return len(ids) == 0, err
}
