package consensus

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/sandwich-alignment/alignment/internal/models"
)

func sampleBatch() []models.Submission {
	return []models.Submission{
		submission(at("blt", 0.9, -0.8), at("reuben", -0.1, 0.1), at("hotdog", 0.2, 0.95), at("soup", 0.05, 0)),
		submission(at("blt", 0.8, -0.9), at("reuben", 0.4, -0.3), at("hotdog", -0.9, 0.9)),
		submission(at("blt", 0.85, -0.85), at("reuben", -0.5, 0.6), at("hotdog", 0.7, 1)),
	}
}

func TestFilterByDistance(t *testing.T) {
	stats := Compute(sampleBatch())

	tests := []struct {
		name      string
		threshold float64
		wantIDs   []string
	}{
		{"zero keeps all", 0, []string{"blt", "reuben", "hotdog", "soup"}},
		{"negative keeps all", -1, []string{"blt", "reuben", "hotdog", "soup"}},
		{"mid", 0.5, []string{"blt", "hotdog"}},
		{"strict", 0.9, []string{"hotdog"}},
		{"above all", 1.5, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterByDistance(stats, tt.threshold)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %d records, want %d", len(got), len(tt.wantIDs))
			}
			for i, s := range got {
				if s.ItemID != tt.wantIDs[i] {
					t.Errorf("record %d = %s, want %s", i, s.ItemID, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestFindExtremes(t *testing.T) {
	ex, err := FindExtremes(Compute(sampleBatch()))
	if err != nil {
		t.Fatal(err)
	}

	if ex.MostChaotic.ItemID != "blt" {
		t.Errorf("MostChaotic = %s", ex.MostChaotic.ItemID)
	}
	if ex.MostLawful.ItemID != "reuben" {
		t.Errorf("MostLawful = %s", ex.MostLawful.ItemID)
	}
	if ex.MostGood.ItemID != "blt" {
		t.Errorf("MostGood = %s", ex.MostGood.ItemID)
	}
	if ex.MostEvil.ItemID != "hotdog" {
		t.Errorf("MostEvil = %s", ex.MostEvil.ItemID)
	}
}

func TestFindExtremesSingleItem(t *testing.T) {
	ex, err := FindExtremes(Compute([]models.Submission{submission(at("only", 0.3, 0.3))}))
	if err != nil {
		t.Fatal(err)
	}
	for label, s := range map[string]Stat{
		"chaotic": ex.MostChaotic, "lawful": ex.MostLawful, "good": ex.MostGood, "evil": ex.MostEvil,
	} {
		if s.ItemID != "only" {
			t.Errorf("%s = %s, want only", label, s.ItemID)
		}
	}
}

func TestFindExtremesTiesGoToFirst(t *testing.T) {
	stats := []Stat{{ItemID: "first", AvgX: 1}, {ItemID: "second", AvgX: 1}}
	ex, _ := FindExtremes(stats)
	if ex.MostChaotic.ItemID != "first" {
		t.Errorf("tie resolved to %s", ex.MostChaotic.ItemID)
	}
}

func TestEmptyBatchErrors(t *testing.T) {
	if _, err := FindExtremes(nil); !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("FindExtremes: got %v", err)
	}
	if _, err := MostAgreement(nil, 5); !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("MostAgreement: got %v", err)
	}
	if _, err := LeastAgreement(nil, 5); !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("LeastAgreement: got %v", err)
	}
}

func TestAgreementRankings(t *testing.T) {
	stats := Compute(sampleBatch())

	most, err := MostAgreement(stats, DefaultRankingSize)
	if err != nil {
		t.Fatal(err)
	}
	// soup has one placement and must not be ranked.
	if len(most) != 3 {
		t.Fatalf("expected 3 ranked items, got %d", len(most))
	}
	if most[0].ItemID != "blt" {
		t.Errorf("most agreement = %s, want blt", most[0].ItemID)
	}
	for i := 1; i < len(most); i++ {
		if most[i].Spread < most[i-1].Spread {
			t.Errorf("most agreement not ascending at %d", i)
		}
	}

	least, err := LeastAgreement(stats, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(least) != 1 || least[0].ItemID != "hotdog" {
		t.Errorf("least agreement = %+v, want hotdog", least)
	}
}

func TestBuildReport(t *testing.T) {
	report, err := BuildReport(Engine{Workers: 1}, sampleBatch(), ReportOptions{
		Threshold: 0.5,
		Top:       2,
		Names:     map[string]string{"blt": "BLT"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if report.SubmissionCount != 3 {
		t.Errorf("SubmissionCount = %d", report.SubmissionCount)
	}
	if len(report.Stats) != 2 {
		t.Errorf("threshold should leave 2 records, got %d", len(report.Stats))
	}
	// reuben sits below the threshold but is still the most lawful item.
	if report.Extremes == nil || report.Extremes.MostLawful.ItemID != "reuben" {
		t.Errorf("extremes should use the unfiltered set: %+v", report.Extremes)
	}
	if len(report.MostAgreement) != 2 {
		t.Errorf("MostAgreement has %d entries, want 2", len(report.MostAgreement))
	}

	var buf bytes.Buffer
	report.PrintSummary(&buf)
	out := buf.String()
	for _, want := range []string{"SANDWICH ALIGNMENT CONSENSUS", "BLT", "MOST AGREEMENT", "Most Lawful"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q", want)
		}
	}
}

func TestBuildReportEmpty(t *testing.T) {
	report, err := BuildReport(Engine{}, nil, ReportOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if report.Extremes != nil || len(report.Stats) != 0 {
		t.Errorf("empty batch should produce an empty report: %+v", report)
	}

	var buf bytes.Buffer
	report.PrintSummary(&buf)
	if !strings.Contains(buf.String(), "No consensus data yet.") {
		t.Error("empty summary should say so")
	}
}

func TestReportSave(t *testing.T) {
	report, err := BuildReport(Engine{}, sampleBatch(), ReportOptions{})
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "out", "report.json")
	if err := report.SaveToJSON(jsonPath); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	var decoded Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(decoded.Stats) != len(report.Stats) {
		t.Errorf("JSON has %d stats, want %d", len(decoded.Stats), len(report.Stats))
	}

	yamlPath := filepath.Join(dir, "report.yaml")
	if err := report.SaveToYAML(yamlPath); err != nil {
		t.Fatal(err)
	}
	data, err = os.ReadFile(yamlPath)
	if err != nil {
		t.Fatal(err)
	}
	var generic map[string]any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if _, ok := generic["extremes"]; !ok {
		t.Error("YAML report missing extremes")
	}
}

func TestReportWriteCSV(t *testing.T) {
	report, err := BuildReport(Engine{}, sampleBatch(), ReportOptions{Names: map[string]string{"blt": "BLT"}})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != len(report.Stats)+1 {
		t.Fatalf("got %d lines, want header plus %d rows", len(lines), len(report.Stats))
	}
	if !strings.HasPrefix(lines[0], "ID,Name,Count") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "blt,BLT,3,0.8500,-0.8500") {
		t.Errorf("first row = %q", lines[1])
	}
}
