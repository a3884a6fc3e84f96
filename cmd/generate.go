package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sandwich-alignment/alignment/internal/config"
)

func newGenerateCmd() *cobra.Command {
	var (
		genFlags  generatorFlags
		catalogAt string
		applyTo   string
		store     bool
		dbPath    string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic board with an LLM",
		Long: `Asks an LLM to place every sandwich in the catalog and prints the result as an
ai-generated submission. Unknown sandwich ids in the reply are dropped and
coordinates are clamped onto the board.

Providers read their credentials from the environment: OPENAI_API_KEY
(and optional OPENAI_BASE_URL), GEMINI_API_KEY, or OLLAMA_URL.`,
		Example: `  # Print a generated board
  alignment generate --provider openai

  # Load it into a local board file
  alignment generate --provider ollama --apply board.json

  # Store it alongside player submissions
  alignment generate --store --db alignment.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if catalogAt != "" {
				cfg.CatalogPath = catalogAt
			}
			if dbPath != "" {
				cfg.DatabasePath = dbPath
			}

			cat, err := loadCatalog(cmd.Context(), cfg.CatalogPath)
			if err != nil {
				return err
			}
			gen, err := newGenerator(cfg, genFlags, cat)
			if err != nil {
				return err
			}
			if gen == nil {
				return fmt.Errorf("board generation is disabled, pick a provider with --provider")
			}

			b, sub, err := gen.GenerateBoard(cmd.Context())
			if err != nil {
				return err
			}

			if applyTo != "" {
				if err := b.SaveFile(applyTo); err != nil {
					return err
				}
				slog.Info("Generated board saved", "path", applyTo, "placements", b.Size())
			}

			if store {
				db, err := requireDatabase(cfg.DatabasePath)
				if err != nil {
					return err
				}
				defer db.Close()

				id, err := db.Insert(cmd.Context(), sub)
				if err != nil {
					return fmt.Errorf("failed to store generated board: %w", err)
				}
				sub.ID = id
				slog.Info("Generated board stored", "submission", id)
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(sub)
		},
	}

	genFlags.register(cmd)
	cmd.Flags().StringVar(&catalogAt, "catalog", "", "Catalog file or URL (overrides CATALOG_PATH)")
	cmd.Flags().StringVar(&applyTo, "apply", "", "Also save the generated board to this board state file")
	cmd.Flags().BoolVar(&store, "store", false, "Store the generated board as a submission")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite submission store (overrides DATABASE_PATH)")

	return cmd
}
