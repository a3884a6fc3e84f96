package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sandwich-alignment/alignment/internal/config"
	"github.com/sandwich-alignment/alignment/internal/images"
)

func newCatalogCmd() *cobra.Command {
	var catalogAt string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the sandwich catalog",
	}
	cmd.PersistentFlags().StringVar(&catalogAt, "catalog", "", "Catalog file or URL (defaults to CATALOG_PATH)")

	location := func() (string, error) {
		if catalogAt != "" {
			return catalogAt, nil
		}
		cfg, err := config.Load()
		if err != nil {
			return "", err
		}
		return cfg.CatalogPath, nil
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List catalog items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := location()
			if err != nil {
				return err
			}
			cat, err := loadCatalog(cmd.Context(), loc)
			if err != nil {
				return err
			}
			for _, item := range cat.Items() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-22s %-24s %s\n", item.ID, item.Name, item.ImagePath)
			}
			return nil
		},
	}

	var (
		baseURL   string
		outputDir string
		overwrite bool
		workers   int
	)
	fetchImages := &cobra.Command{
		Use:   "images",
		Short: "Download catalog images for the static front end",
		Long: `Downloads each item's imagePath, resolved against --base-url, into the
same relative path under --output, so "alignment serve --static" can serve them.`,
		Example: `  alignment catalog images --base-url https://sandwiches.example.com --output ./static`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := location()
			if err != nil {
				return err
			}
			cat, err := loadCatalog(cmd.Context(), loc)
			if err != nil {
				return err
			}

			fetcher := images.NewFetcher()
			fetcher.Workers = workers
			results := fetcher.FetchAll(cmd.Context(), cat.Items(), baseURL, outputDir, overwrite)

			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
				}
			}
			slog.Info("Fetched catalog images", "items", len(results), "failed", failed, "output", outputDir)
			if failed > 0 {
				return fmt.Errorf("%d of %d images failed", failed, len(results))
			}
			return nil
		},
	}
	fetchImages.Flags().StringVar(&baseURL, "base-url", "", "URL the image paths are relative to (required)")
	fetchImages.Flags().StringVarP(&outputDir, "output", "o", "static", "Directory to write images into")
	fetchImages.Flags().BoolVar(&overwrite, "overwrite", false, "Replace images that already exist")
	fetchImages.Flags().IntVar(&workers, "workers", 4, "Concurrent downloads")
	_ = fetchImages.MarkFlagRequired("base-url")

	cmd.AddCommand(list, fetchImages)
	return cmd
}
