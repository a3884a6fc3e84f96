package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "alignment",
		Short: "Sandwich alignment chart with crowd consensus",
		Long: `Alignment runs the sandwich alignment chart: players drag sandwiches onto a
good/evil, lawful/chaotic board and submit it, and the consensus engine
aggregates every submitted board into average positions and agreement.

It serves the web game, computes consensus reports from stored or exported
submissions, edits boards from the command line, and generates synthetic
boards with an LLM.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConsensusCmd())
	cmd.AddCommand(newBoardCmd())
	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newSubmissionsCmd())
	cmd.AddCommand(newCatalogCmd())

	return cmd
}
