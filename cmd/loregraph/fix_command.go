package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"loregraph/internal/collection"
	"loregraph/internal/config"
	"loregraph/internal/consistency"
	"loregraph/internal/fileutil"
	"loregraph/internal/history"
	"loregraph/internal/logging"
	"loregraph/internal/report"
	"loregraph/internal/services"
)

type fixOptions struct {
	dryRun     bool
	jsonOutput bool
	reportPath string
	dataDir    string
}

func newFixCommand(ctx *commandContext) *cobra.Command {
	var opts fixOptions

	cmd := &cobra.Command{
		Use:   "fix",
		Short: "Repair cross-references and report remaining gaps",
		Long: `Load every collection, resolve superseded ids, inject curated links,
drop references to unknown records, mirror reciprocal relations, and rewrite
the collections. The gap report is printed to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFix(cmd, ctx, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Report without writing collections")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the report as JSON")
	cmd.Flags().StringVar(&opts.reportPath, "report", "", "Also write the gap report to this file")
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "", "Override the configured data directory")
	return cmd
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var opts fixOptions

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report gaps without writing collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.dryRun = true
			return runFix(cmd, ctx, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the report as JSON")
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "", "Override the configured data directory")
	return cmd
}

func runFix(cmd *cobra.Command, ctx *commandContext, opts fixOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	cfg, err = withDataDir(cfg, opts.dataDir)
	if err != nil {
		return err
	}
	baseLogger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	runID := history.NewRunID()
	runCtx := logging.WithRunID(cmd.Context(), runID)
	logger := logging.WithContext(runCtx, logging.NewComponentLogger(baseLogger, "cli"))
	started := time.Now()

	rules, err := consistency.NewRules(cfg)
	if err != nil {
		return err
	}
	store := collection.NewStore(cfg)
	snapshot, err := store.Load(runCtx)
	if err != nil {
		return err
	}
	logger.Info("collections loaded",
		logging.String(logging.FieldEventType, "collections_loaded"),
		logging.String("data_dir", cfg.Paths.DataDir),
		logging.Bool("dry_run", opts.dryRun),
	)

	result, err := consistency.NewEngine(rules, baseLogger).Run(runCtx, snapshot)
	if err != nil {
		return err
	}

	rep := report.Build(result)
	rep.RunID = runID
	rep.DryRun = opts.dryRun
	if !opts.dryRun {
		written, err := store.Write(runCtx, result.Snapshot)
		if err != nil {
			return err
		}
		rep.Written = written
		logger.Info("collections written",
			logging.String(logging.FieldEventType, "collections_written"),
			logging.Int("files", len(written)),
			logging.String("output_dir", cfg.OutputDirectory()),
		)
	}

	reportPath := strings.TrimSpace(opts.reportPath)
	if reportPath == "" {
		reportPath = cfg.Paths.ReportPath
	}
	if reportPath != "" {
		if err := writeReportFile(reportPath, rep); err != nil {
			return err
		}
	}

	recordRun(runCtx, cfg, logger, rep, started, time.Now())

	if opts.jsonOutput {
		return writeJSON(cmd, rep)
	}
	if err := rep.WriteText(cmd.OutOrStdout()); err != nil {
		return err
	}
	errOut := cmd.ErrOrStderr()
	return rep.WriteSummary(errOut, shouldColorize(errOut))
}

func withDataDir(cfg *config.Config, dataDir string) (*config.Config, error) {
	dataDir = strings.TrimSpace(dataDir)
	if dataDir == "" {
		return cfg, nil
	}
	expanded, err := config.ExpandPath(dataDir)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "cli", "data-dir", dataDir, err)
	}
	if abs, err := filepath.Abs(expanded); err == nil {
		expanded = abs
	}
	copied := *cfg
	copied.Paths.DataDir = expanded
	return &copied, nil
}

func writeReportFile(path string, rep report.Report) error {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "report", "path", path, err)
	}
	if err := fileutil.WriteFileAtomic(expanded, []byte(rep.Text()), 0o644); err != nil {
		return services.Wrap(services.ErrIO, "report", "write", expanded, err)
	}
	return nil
}

// recordRun stores the run in the history database. Failures only warn.
func recordRun(ctx context.Context, cfg *config.Config, logger *slog.Logger, rep report.Report, started, finished time.Time) {
	if !cfg.History.Enabled {
		return
	}
	if rep.DryRun && !cfg.History.RecordDryRuns {
		return
	}

	store, err := history.Open(cfg)
	if err != nil {
		logging.WarnWithContext(logger, "history unavailable", "history_open_failed",
			logging.String("history_db", cfg.Paths.HistoryDB),
			logging.Error(err),
			logging.String(logging.FieldImpact, "run not recorded"),
		)
		return
	}
	defer store.Close()

	run := history.Run{
		ID:         rep.RunID,
		StartedAt:  started,
		FinishedAt: finished,
		DataDir:    cfg.Paths.DataDir,
		DryRun:     rep.DryRun,
		GapCount:   len(rep.Gaps),
		Changes:    rep.Counts.Changes,
		Counts:     rep.Counts,
	}
	if err := store.Record(ctx, run, rep.Gaps); err != nil {
		logging.WarnWithContext(logger, "history record failed", "history_record_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run not recorded"),
		)
		return
	}
	logger.Debug("run recorded",
		logging.String(logging.FieldEventType, "history_recorded"),
		logging.String("history_db", store.Path()),
	)
}

func describeRun(run history.Run) string {
	mode := "fix"
	if run.DryRun {
		mode = "check"
	}
	return fmt.Sprintf("%s (%s)", run.ID, mode)
}
