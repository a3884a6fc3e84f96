package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sandwich-alignment/alignment/internal/config"
	"github.com/sandwich-alignment/alignment/internal/dataset"
	"github.com/sandwich-alignment/alignment/internal/storage"
)

func newSubmissionsCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "submissions",
		Short: "Export, import and clear stored submissions",
		Long: `Moves submissions between the SQLite submission store and batch files.
Batch files are .json ({"boards": [...]} or a bare array), .jsonl, or .parquet,
chosen by extension.`,
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite submission store (defaults to DATABASE_PATH)")

	resolveDB := func() (storage.SubmissionStore, error) {
		path := dbPath
		if path == "" {
			cfg, err := config.Load()
			if err != nil {
				return nil, err
			}
			path = cfg.DatabasePath
		}
		return requireDatabase(path)
	}

	cmd.AddCommand(
		newSubmissionsExportCmd(resolveDB),
		newSubmissionsImportCmd(resolveDB),
		newSubmissionsClearCmd(resolveDB),
	)
	return cmd
}

func newSubmissionsExportCmd(openDB func() (storage.SubmissionStore, error)) *cobra.Command {
	var (
		output        string
		source        string
		minPlacements int
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write stored submissions to a batch file",
		Example: `  alignment submissions export --db alignment.db --output boards.parquet
  alignment submissions export --source ai-generated --output generated.jsonl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openDB()
			if err != nil {
				return err
			}
			defer store.Close()

			batch, err := store.List(cmd.Context(), storage.ListOptions{Source: source, MinPlacements: minPlacements})
			if err != nil {
				return fmt.Errorf("failed to list submissions: %w", err)
			}
			if err := dataset.Save(output, batch); err != nil {
				return err
			}

			slog.Info("Exported submissions", "count", len(batch), "path", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Batch file to write (required)")
	cmd.Flags().StringVar(&source, "source", "", "Only submissions from this source")
	cmd.Flags().IntVar(&minPlacements, "min-placements", 0, "Only boards with at least this many sandwiches")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newSubmissionsImportCmd(openDB func() (storage.SubmissionStore, error)) *cobra.Command {
	var (
		input  string
		sample int
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a batch file into the submission store",
		Long: `Inserts every submission from a batch file. Submissions keep their ids and
timestamps, so importing the same file twice fails on the first duplicate.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, err := dataset.NewLoader(input).LoadSample(sample)
			if err != nil {
				return fmt.Errorf("failed to load batch: %w", err)
			}

			store, err := openDB()
			if err != nil {
				return err
			}
			defer store.Close()

			for i, sub := range batch {
				if _, err := store.Insert(cmd.Context(), sub); err != nil {
					return fmt.Errorf("failed to import submission %d (%s): %w", i+1, sub.ID, err)
				}
			}

			slog.Info("Imported submissions", "count", len(batch), "path", input)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Batch file to read (required)")
	cmd.Flags().IntVar(&sample, "sample", -1, "Number of submissions to import (-1 for all)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newSubmissionsClearCmd(openDB func() (storage.SubmissionStore, error)) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored submission",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete submissions without --yes")
			}

			store, err := openDB()
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Clear(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to clear submissions: %w", err)
			}
			slog.Warn("Submissions cleared", "deleted", n)
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d submissions\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deleting every submission")
	return cmd
}
