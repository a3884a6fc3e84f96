package consensus

import (
	"fmt"
	"math"
	"testing"

	"github.com/sandwich-alignment/alignment/internal/models"
)

const epsilon = 1e-9

func submission(placements ...models.SubmittedPlacement) models.Submission {
	return models.Submission{Placements: placements}
}

func at(id string, x, y float64) models.SubmittedPlacement {
	return models.NewSubmittedPlacement(id, x, y)
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestComputeIdenticalPositions(t *testing.T) {
	batch := []models.Submission{
		submission(at("A", 0.5, -0.5)),
		submission(at("A", 0.5, -0.5)),
		submission(at("A", 0.5, -0.5)),
	}

	stats := Compute(batch)
	if len(stats) != 1 {
		t.Fatalf("expected 1 record, got %d", len(stats))
	}

	s := stats[0]
	if s.Count != 3 || !approx(s.AvgX, 0.5) || !approx(s.AvgY, -0.5) {
		t.Errorf("unexpected averages: %+v", s)
	}
	if s.StdDevX != 0 || s.StdDevY != 0 || s.Spread != 0 {
		t.Errorf("expected zero dispersion, got stddev (%g, %g) spread %g", s.StdDevX, s.StdDevY, s.Spread)
	}
	if s.ConsensusScore != 1 {
		t.Errorf("ConsensusScore = %g, want 1", s.ConsensusScore)
	}
}

func TestComputeOppositeCorners(t *testing.T) {
	batch := []models.Submission{
		submission(at("B", 1, 1)),
		submission(at("B", -1, -1)),
	}

	s := Compute(batch)[0]
	if !approx(s.AvgX, 0) || !approx(s.AvgY, 0) {
		t.Errorf("avg = (%g, %g), want (0, 0)", s.AvgX, s.AvgY)
	}
	if !approx(s.StdDevX, 1) || !approx(s.StdDevY, 1) {
		t.Errorf("stddev = (%g, %g), want (1, 1)", s.StdDevX, s.StdDevY)
	}
	if !approx(s.Spread, math.Sqrt2) {
		t.Errorf("spread = %g, want %g", s.Spread, math.Sqrt2)
	}
	if !approx(s.ConsensusScore, 0.5) {
		t.Errorf("ConsensusScore = %g, want 0.5", s.ConsensusScore)
	}
	if len(s.Positions) != 2 {
		t.Errorf("expected 2 contributing positions, got %d", len(s.Positions))
	}
}

func TestComputeSingleObservation(t *testing.T) {
	s := Compute([]models.Submission{submission(at("C", -0.2, 0.9))})[0]
	if s.Spread != 0 || s.ConsensusScore != 1 {
		t.Errorf("single observation: spread %g, score %g", s.Spread, s.ConsensusScore)
	}
}

func TestComputeScoreCanGoNegative(t *testing.T) {
	// Points far outside the unit square push spread past MaxSpread.
	batch := []models.Submission{
		submission(at("D", 4, 4)),
		submission(at("D", -4, -4)),
	}
	if s := Compute(batch)[0]; s.ConsensusScore >= 0 {
		t.Errorf("expected a negative score, got %g", s.ConsensusScore)
	}
}

func TestComputeSkipsAbsentCoordinates(t *testing.T) {
	x := 0.4
	batch := []models.Submission{
		submission(at("A", 0, 0)),
		submission(models.SubmittedPlacement{ItemID: "A", X: &x}),
		submission(models.SubmittedPlacement{ItemID: "", X: &x, Y: &x}),
		submission(models.SubmittedPlacement{ItemID: "E"}),
	}

	stats := Compute(batch)
	if len(stats) != 1 {
		t.Fatalf("expected only A to produce a record, got %+v", stats)
	}
	if stats[0].Count != 1 || stats[0].AvgX != 0 {
		t.Errorf("absent coordinate was coerced: %+v", stats[0])
	}
}

func TestComputeCountsItemOncePerSubmission(t *testing.T) {
	batch := []models.Submission{
		submission(at("A", 1, 1), at("A", -1, -1)),
		submission(at("A", 1, 1)),
	}

	s := Compute(batch)[0]
	if s.Count != 2 {
		t.Errorf("Count = %d, want 2", s.Count)
	}
	if s.Spread != 0 {
		t.Errorf("later duplicate leaked into the stats: spread %g", s.Spread)
	}
}

func TestComputeOrdering(t *testing.T) {
	batch := []models.Submission{
		submission(at("x", 0, 0), at("y", 0, 0)),
		submission(at("z", 0, 0), at("y", 0, 0)),
		submission(at("z", 0, 0)),
	}

	stats := Compute(batch)
	var ids []string
	for _, s := range stats {
		ids = append(ids, s.ItemID)
	}
	// y and z tie at 2; y was seen first.
	want := []string{"y", "z", "x"}
	if fmt.Sprint(ids) != fmt.Sprint(want) {
		t.Errorf("order = %v, want %v", ids, want)
	}
}

func TestComputeEmptyBatch(t *testing.T) {
	if stats := Compute(nil); len(stats) != 0 {
		t.Errorf("expected no records, got %d", len(stats))
	}
}

func TestEngineParallelMatchesSequential(t *testing.T) {
	var batch []models.Submission
	for s := 0; s < 10; s++ {
		var placements []models.SubmittedPlacement
		for i := 0; i < 200; i++ {
			x := math.Sin(float64(s*i)) / 2
			y := math.Cos(float64(s+i)) / 2
			placements = append(placements, at(fmt.Sprintf("item-%03d", i), x, y))
		}
		batch = append(batch, submission(placements...))
	}

	seq := Engine{Workers: 1}.Compute(batch)
	par := Engine{Workers: 8}.Compute(batch)

	if len(seq) != len(par) {
		t.Fatalf("length mismatch: %d vs %d", len(seq), len(par))
	}
	for i := range seq {
		if seq[i].ItemID != par[i].ItemID || seq[i].Spread != par[i].Spread || seq[i].AvgX != par[i].AvgX {
			t.Fatalf("record %d differs: %+v vs %+v", i, seq[i], par[i])
		}
	}
}
