package consensus

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sandwich-alignment/alignment/internal/models"
)

// Report bundles every consensus view over one batch
type Report struct {
	GeneratedAt     time.Time `json:"generatedAt" yaml:"generatedat"`
	SubmissionCount int       `json:"submissionCount" yaml:"submissioncount"`
	Threshold       float64   `json:"threshold" yaml:"threshold"`

	Stats          []Stat    `json:"stats" yaml:"stats"`
	Extremes       *Extremes `json:"extremes,omitempty" yaml:"extremes,omitempty"`
	MostAgreement  []Stat    `json:"mostAgreement" yaml:"mostagreement"`
	LeastAgreement []Stat    `json:"leastAgreement" yaml:"leastagreement"`

	// Names maps item ids to display names for PrintSummary
	Names map[string]string `json:"-" yaml:"-"`
}

// ReportOptions controls which records a report keeps
type ReportOptions struct {
	Threshold float64
	Top       int
	Names     map[string]string
}

// BuildReport computes stats for the batch and derives every view from them.
// The threshold only filters Stats; extremes and rankings use the full set.
func BuildReport(engine Engine, batch []models.Submission, opts ReportOptions) (*Report, error) {
	top := opts.Top
	if top <= 0 {
		top = DefaultRankingSize
	}

	stats := engine.Compute(batch)
	report := &Report{
		GeneratedAt:     time.Now(),
		SubmissionCount: len(batch),
		Threshold:       opts.Threshold,
		Stats:           FilterByDistance(stats, opts.Threshold),
		Names:           opts.Names,
	}

	if len(stats) == 0 {
		return report, nil
	}

	ex, err := FindExtremes(stats)
	if err != nil {
		return nil, fmt.Errorf("failed to find extremes: %w", err)
	}
	report.Extremes = &ex

	if report.MostAgreement, err = MostAgreement(stats, top); err != nil && !errors.Is(err, ErrEmptyBatch) {
		return nil, fmt.Errorf("failed to rank agreement: %w", err)
	}
	if report.LeastAgreement, err = LeastAgreement(stats, top); err != nil && !errors.Is(err, ErrEmptyBatch) {
		return nil, fmt.Errorf("failed to rank disagreement: %w", err)
	}

	return report, nil
}

func (r *Report) name(id string) string {
	if name, ok := r.Names[id]; ok && name != "" {
		return name
	}
	return id
}

// PrintSummary writes a human-readable summary of the report
func (r *Report) PrintSummary(w io.Writer) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 70))
	fmt.Fprintln(w, "SANDWICH ALIGNMENT CONSENSUS")
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "Generated: %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Submissions: %d\n", r.SubmissionCount)
	fmt.Fprintf(w, "Distance Threshold: %.2f\n", r.Threshold)
	fmt.Fprintf(w, "Items: %d\n", len(r.Stats))
	fmt.Fprintln(w)

	if len(r.Stats) == 0 {
		fmt.Fprintln(w, "No consensus data yet.")
		fmt.Fprintln(w, strings.Repeat("=", 70))
		return
	}

	fmt.Fprintln(w, "AVERAGE POSITIONS")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	fmt.Fprintf(w, "%-24s %6s %8s %8s %8s %8s\n", "Item", "Count", "Avg X", "Avg Y", "Spread", "Score")
	for _, s := range r.Stats {
		fmt.Fprintf(w, "%-24s %6d %8.3f %8.3f %8.3f %7.1f%%\n",
			r.name(s.ItemID), s.Count, s.AvgX, s.AvgY, s.Spread, s.ConsensusScore*100)
	}
	fmt.Fprintln(w)

	if r.Extremes != nil {
		fmt.Fprintln(w, "EXTREMES")
		fmt.Fprintln(w, strings.Repeat("-", 70))
		r.printExtreme(w, "Most Chaotic", r.Extremes.MostChaotic)
		r.printExtreme(w, "Most Lawful", r.Extremes.MostLawful)
		r.printExtreme(w, "Most Good", r.Extremes.MostGood)
		r.printExtreme(w, "Most Evil", r.Extremes.MostEvil)
		fmt.Fprintln(w)
	}

	r.printRanking(w, "MOST AGREEMENT", r.MostAgreement)
	r.printRanking(w, "LEAST AGREEMENT", r.LeastAgreement)
	fmt.Fprintln(w, strings.Repeat("=", 70))
}

func (r *Report) printExtreme(w io.Writer, label string, s Stat) {
	fmt.Fprintf(w, "  %-14s %s (%.3f, %.3f)\n", label+":", r.name(s.ItemID), s.AvgX, s.AvgY)
}

func (r *Report) printRanking(w io.Writer, title string, stats []Stat) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("-", 70))
	if len(stats) == 0 {
		fmt.Fprintf(w, "  (no items with at least %d placements)\n\n", MinRankingCount)
		return
	}
	for i, s := range stats {
		fmt.Fprintf(w, "  %d. %s  spread %.3f over %d placements\n", i+1, r.name(s.ItemID), s.Spread, s.Count)
	}
	fmt.Fprintln(w)
}

// SaveToJSON saves the report to a JSON file
func (r *Report) SaveToJSON(path string) error {
	return r.save(path, r.WriteJSON)
}

// SaveToYAML saves the report to a YAML file
func (r *Report) SaveToYAML(path string) error {
	return r.save(path, r.WriteYAML)
}

// SaveToCSV saves the per-item stats to a CSV file
func (r *Report) SaveToCSV(path string) error {
	return r.save(path, r.WriteCSV)
}

func (r *Report) save(path string, write func(io.Writer) error) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return nil
}

func (r *Report) WriteJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report to JSON: %w", err)
	}
	return nil
}

func (r *Report) WriteYAML(w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)

	if err := encoder.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report to YAML: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to flush YAML: %w", err)
	}
	return nil
}

// WriteCSV writes one row per item in Stats
func (r *Report) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)

	header := []string{"ID", "Name", "Count", "Avg X", "Avg Y", "StdDev X", "StdDev Y", "Spread", "Consensus Score"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, s := range r.Stats {
		row := []string{
			s.ItemID,
			r.name(s.ItemID),
			strconv.Itoa(s.Count),
			formatFloat(s.AvgX),
			formatFloat(s.AvgY),
			formatFloat(s.StdDevX),
			formatFloat(s.StdDevY),
			formatFloat(s.Spread),
			formatFloat(s.ConsensusScore),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}
