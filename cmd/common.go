package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sandwich-alignment/alignment/internal/catalog"
	"github.com/sandwich-alignment/alignment/internal/config"
	"github.com/sandwich-alignment/alignment/internal/generator"
	"github.com/sandwich-alignment/alignment/internal/providers"
	"github.com/sandwich-alignment/alignment/internal/storage"
)

// openStore opens the SQLite store at path, or an in-memory store when path is empty
func openStore(path string) (storage.SubmissionStore, error) {
	if path == "" {
		slog.Warn("DATABASE_PATH not set, submissions are kept in memory")
		return storage.NewMemoryStore(), nil
	}
	store, err := storage.OpenSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open submission store: %w", err)
	}
	return store, nil
}

// requireDatabase opens the SQLite store and refuses the in-memory fallback
func requireDatabase(path string) (storage.SubmissionStore, error) {
	if path == "" {
		return nil, fmt.Errorf("a database is required: pass --db or set DATABASE_PATH")
	}
	return openStore(path)
}

func loadCatalog(ctx context.Context, location string) (*catalog.Catalog, error) {
	cat, err := catalog.Open(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", location, err)
	}
	slog.Debug("Loaded catalog", "location", location, "items", cat.Len())
	return cat, nil
}

// generatorFlags are shared by serve and generate
type generatorFlags struct {
	provider    string
	model       string
	temperature float64
	encoding    string
	maxTokens   int
}

func (f *generatorFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.provider, "provider", "", "LLM provider (openai, ollama, gemini, or none); defaults to GENERATOR_PROVIDER")
	cmd.Flags().StringVar(&f.model, "model", "", "Model name (defaults to GENERATOR_MODEL or the provider's default)")
	cmd.Flags().Float64Var(&f.temperature, "temperature", 0.7, "Sampling temperature")
	cmd.Flags().StringVar(&f.encoding, "encoding", "", "tiktoken encoding used to size the prompt (e.g. cl100k_base)")
	cmd.Flags().IntVar(&f.maxTokens, "max-prompt-tokens", 0, "Refuse prompts larger than this many tokens (0 for no limit)")
}

// newGenerator builds the layout generator. Provider "none" disables it.
func newGenerator(cfg config.Config, flags generatorFlags, cat *catalog.Catalog) (*generator.Generator, error) {
	providerName := cfg.GeneratorProvider
	if flags.provider != "" {
		providerName = flags.provider
	}
	if providerName == "none" {
		return nil, nil
	}

	model := cfg.GeneratorModel
	if flags.provider != "" && flags.provider != cfg.GeneratorProvider {
		model = ""
	}
	if flags.model != "" {
		model = flags.model
	}
	if model == "" {
		model = providers.DefaultModel(providerName)
	}

	provider, err := generator.NewProvider(providerName)
	if err != nil {
		return nil, err
	}

	slog.Debug("Layout generator configured", "provider", providerName, "model", model)
	return generator.New(provider, cat, generator.Options{
		Model:           model,
		Temperature:     flags.temperature,
		Encoding:        flags.encoding,
		MaxPromptTokens: flags.maxTokens,
	}), nil
}
