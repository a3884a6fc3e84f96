package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/sandwich-alignment/alignment/internal/models"
)

// Save writes a batch, choosing the format from the file extension.
// Loading the file back with NewLoader returns the same batch.
func Save(path string, batch []models.Submission) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".parquet":
		return saveParquet(path, batch)
	case ".jsonl":
		return saveJSONL(path, batch)
	case ".json":
		return saveJSON(path, batch)
	default:
		return fmt.Errorf("unsupported file format: %s (supported: .json, .jsonl, .parquet)", ext)
	}
}

func saveParquet(path string, batch []models.Submission) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer file.Close()

	rows := make([]Row, len(batch))
	for i, sub := range batch {
		rows[i] = toRow(sub)
	}

	writer := parquet.NewGenericWriter[Row](file)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

func saveJSONL(path string, batch []models.Submission) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	for _, sub := range batch {
		if err := encoder.Encode(sub); err != nil {
			return fmt.Errorf("failed to encode submission %s: %w", sub.ID, err)
		}
	}
	return nil
}

func saveJSON(path string, batch []models.Submission) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if batch == nil {
		batch = []models.Submission{}
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(document{Boards: batch}); err != nil {
		return fmt.Errorf("failed to encode batch to JSON: %w", err)
	}
	return nil
}
