package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/sandwich-alignment/alignment/internal/models"
)

// Loader reads a submission batch from disk
type Loader struct {
	datasetPath string
}

// NewLoader creates a new dataset loader
func NewLoader(datasetPath string) *Loader {
	return &Loader{
		datasetPath: datasetPath,
	}
}

// Load loads every submission in the file (JSON, JSONL or Parquet)
func (l *Loader) Load() ([]models.Submission, error) {
	return l.LoadSample(-1)
}

// LoadSample loads at most limit submissions. A negative limit loads all.
func (l *Loader) LoadSample(limit int) ([]models.Submission, error) {
	ext := strings.ToLower(filepath.Ext(l.datasetPath))

	var (
		batch []models.Submission
		err   error
	)
	switch ext {
	case ".parquet":
		batch, err = l.loadParquet(limit)
	case ".jsonl":
		batch, err = l.loadJSONL(limit)
	case ".json":
		batch, err = l.loadJSON()
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .json, .jsonl, .parquet)", ext)
	}
	if err != nil {
		return nil, err
	}

	if limit >= 0 && len(batch) > limit {
		batch = batch[:limit]
	}
	return batch, nil
}

// loadJSON accepts a bare array of submissions or {"boards": [...]}
func (l *Loader) loadJSON() ([]models.Submission, error) {
	slog.Debug("Opening JSON file", "path", l.datasetPath)

	data, err := os.ReadFile(l.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var batch []models.Submission
		if err := json.Unmarshal(trimmed, &batch); err != nil {
			return nil, fmt.Errorf("failed to parse JSON array: %w", err)
		}
		return batch, nil
	}

	var doc document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON document: %w", err)
	}
	return doc.Boards, nil
}

func (l *Loader) loadJSONL(limit int) ([]models.Submission, error) {
	slog.Debug("Opening JSONL file", "path", l.datasetPath)

	file, err := os.Open(l.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	var batch []models.Submission
	scanner := bufio.NewScanner(file)

	const maxCapacity = 1024 * 1024 // 1MB per line
	buf := make([]byte, maxCapacity)
	scanner.Buffer(buf, maxCapacity)

	lineNum := 0
	for scanner.Scan() && (limit < 0 || len(batch) < limit) {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())

		if len(line) == 0 {
			continue
		}

		var sub models.Submission
		if err := json.Unmarshal(line, &sub); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		batch = append(batch, sub)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading dataset: %w", err)
	}

	slog.Debug("Finished reading JSONL file", "total_records", len(batch), "total_lines", lineNum)

	return batch, nil
}

func (l *Loader) loadParquet(limit int) ([]models.Submission, error) {
	slog.Debug("Opening Parquet file", "path", l.datasetPath)

	file, err := os.Open(l.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet file opened", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	var batch []models.Submission
	rows := make([]Row, 128)

	for limit < 0 || len(batch) < limit {
		n, err := reader.Read(rows)
		for _, row := range rows[:n] {
			batch = append(batch, row.Submission())
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}

	slog.Debug("Finished reading Parquet file", "total_records", len(batch))

	return batch, nil
}
