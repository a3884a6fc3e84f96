package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandwich-alignment/alignment/internal/config"
	"github.com/sandwich-alignment/alignment/internal/consensus"
	"github.com/sandwich-alignment/alignment/internal/handlers"
	"github.com/sandwich-alignment/alignment/internal/storage"
)

func newServeCmd() *cobra.Command {
	var (
		port      string
		dbPath    string
		catalogAt string
		staticDir string
		genFlags  generatorFlags
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the alignment chart web server",
		Long: `Starts the alignment chart API on the specified port.

Players open a board session, drag sandwiches onto it and submit it. Submitted
boards are stored in SQLite when DATABASE_PATH (or --db) is set, otherwise in
memory. The consensus endpoints aggregate stored boards from SUBMISSION_SOURCE
with at least CONSENSUS_MIN_PLACEMENTS sandwiches.`,
		Example: `  # Start server on default port 8888
  alignment serve

  # Persist submissions and serve the front end
  alignment serve --db alignment.db --static ./static

  # Disable LLM board generation
  alignment serve --provider none`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if dbPath != "" {
				cfg.DatabasePath = dbPath
			}
			if catalogAt != "" {
				cfg.CatalogPath = catalogAt
			}

			cat, err := loadCatalog(cmd.Context(), cfg.CatalogPath)
			if err != nil {
				return err
			}

			store, err := openStore(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer store.Close()

			gen, err := newGenerator(cfg, genFlags, cat)
			if err != nil {
				return err
			}
			if cfg.AdminPassword == "" {
				slog.Warn("ADMIN_PASSWORD not set, admin endpoints are disabled")
			}

			handler := handlers.New(handlers.Options{
				Submissions:   store,
				Catalog:       cat,
				AdminPassword: cfg.AdminPassword,
				Generator:     gen,
				Engine:        consensus.Engine{Workers: runtime.NumCPU()},
				BatchFilter: storage.ListOptions{
					Source:        cfg.SubmissionSource,
					MinPlacements: cfg.ConsensusMinPlacements,
				},
				StaticDir:   staticDir,
				SessionTTL:  cfg.SessionTTL,
				MaxSessions: cfg.MaxSessions,
			})

			mux := http.NewServeMux()
			handler.Routes(mux)

			addr := ":" + cfg.Port
			server := &http.Server{
				Addr:              addr,
				Handler:           handlers.WithLogging(mux),
				ReadHeaderTimeout: 10 * time.Second,
			}

			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Alignment chart available",
					"addr", addr,
					"url", "http://localhost"+addr,
					"catalog", cat.Len(),
					"generator", gen != nil,
				)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return fmt.Errorf("server failed: %w", err)
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on (overrides PORT)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (overrides DATABASE_PATH)")
	cmd.Flags().StringVar(&catalogAt, "catalog", "", "Catalog file or URL (overrides CATALOG_PATH)")
	cmd.Flags().StringVar(&staticDir, "static", "", "Directory with the front end to serve at /")
	genFlags.register(cmd)

	return cmd
}
