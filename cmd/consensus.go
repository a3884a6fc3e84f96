package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/sandwich-alignment/alignment/internal/config"
	"github.com/sandwich-alignment/alignment/internal/consensus"
	"github.com/sandwich-alignment/alignment/internal/dataset"
	"github.com/sandwich-alignment/alignment/internal/models"
	"github.com/sandwich-alignment/alignment/internal/storage"
)

type consensusOptions struct {
	batchPath string
	dbPath    string
	catalogAt string
	source    string
	minCount  int
	threshold float64
	top       int
	format    string
	output    string
	workers   int
}

func newConsensusCmd() *cobra.Command {
	var opts consensusOptions

	cmd := &cobra.Command{
		Use:   "consensus",
		Short: "Compute crowd consensus over submitted boards",
		Long: `Aggregates a batch of submitted boards into per-sandwich statistics: average
position, spread and consensus score, the most extreme sandwich toward each
axis label, and the sandwiches people agree and disagree on most.

The batch comes from an exported file (--batch: .json, .jsonl or .parquet) or
from the SQLite submission store (--db), filtered by source and minimum
board size the same way the web server does.`,
		Example: `  # Summarize an exported batch
  alignment consensus --batch boards.parquet

  # Only sandwiches averaging at least 0.5 from the center, as JSON
  alignment consensus --db alignment.db --threshold 0.5 --format json

  # Save a YAML report with the top 10 rankings
  alignment consensus --db alignment.db --top 10 --format yaml --output report.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (opts.batchPath == "") == (opts.dbPath == "") {
				return fmt.Errorf("exactly one of --batch or --db is required")
			}
			return runConsensus(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.batchPath, "batch", "", "Exported batch file (.json, .jsonl, .parquet)")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "SQLite submission store")
	cmd.Flags().StringVar(&opts.catalogAt, "catalog", "", "Catalog used for display names (defaults to CATALOG_PATH)")
	cmd.Flags().StringVar(&opts.source, "source", "", "Only submissions from this source with --db (defaults to SUBMISSION_SOURCE, \"all\" for every source)")
	cmd.Flags().IntVar(&opts.minCount, "min-placements", -1, "Only boards with at least this many sandwiches with --db (defaults to CONSENSUS_MIN_PLACEMENTS)")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", 0, "Only list sandwiches whose average is at least this far from the center")
	cmd.Flags().IntVar(&opts.top, "top", consensus.DefaultRankingSize, "Number of sandwiches in each agreement ranking")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format (text, json, yaml, csv)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the report to this file instead of stdout")
	cmd.Flags().IntVar(&opts.workers, "workers", runtime.NumCPU(), "Parallel workers for large catalogs")

	return cmd
}

func runConsensus(ctx context.Context, opts consensusOptions, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	batch, err := loadBatch(ctx, cfg, opts)
	if err != nil {
		return err
	}
	slog.Info("Loaded submissions", "count", len(batch))

	location := opts.catalogAt
	if location == "" {
		location = cfg.CatalogPath
	}
	var names map[string]string
	if cat, err := loadCatalog(ctx, location); err != nil {
		slog.Warn("Showing sandwich ids, catalog unavailable", "err", err)
	} else {
		names = cat.Names()
	}

	report, err := consensus.BuildReport(consensus.Engine{Workers: opts.workers}, batch, consensus.ReportOptions{
		Threshold: opts.threshold,
		Top:       opts.top,
		Names:     names,
	})
	if err != nil {
		return err
	}

	return writeReport(report, opts.format, opts.output, stdout)
}

func loadBatch(ctx context.Context, cfg config.Config, opts consensusOptions) ([]models.Submission, error) {
	if opts.batchPath != "" {
		batch, err := dataset.NewLoader(opts.batchPath).Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load batch: %w", err)
		}
		return batch, nil
	}

	store, err := storage.OpenSQLite(opts.dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open submission store: %w", err)
	}
	defer store.Close()

	filter := storage.ListOptions{Source: cfg.SubmissionSource, MinPlacements: cfg.ConsensusMinPlacements}
	if opts.source != "" {
		filter.Source = opts.source
	}
	if filter.Source == "all" {
		filter.Source = ""
	}
	if opts.minCount >= 0 {
		filter.MinPlacements = opts.minCount
	}

	batch, err := store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return batch, nil
}

func writeReport(report *consensus.Report, format, output string, stdout io.Writer) error {
	if output == "" {
		switch format {
		case "text":
			report.PrintSummary(stdout)
			return nil
		case "json":
			return report.WriteJSON(stdout)
		case "yaml":
			return report.WriteYAML(stdout)
		case "csv":
			return report.WriteCSV(stdout)
		default:
			return fmt.Errorf("unsupported format: %s", format)
		}
	}

	var err error
	switch format {
	case "text":
		var file *os.File
		if file, err = os.Create(output); err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		report.PrintSummary(file)
		err = file.Close()
	case "json":
		err = report.SaveToJSON(output)
	case "yaml":
		err = report.SaveToYAML(output)
	case "csv":
		err = report.SaveToCSV(output)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil {
		return err
	}

	slog.Info("Report saved", "path", output, "format", format)
	return nil
}
