package consensus

import (
	"errors"
	"sort"
)

var ErrEmptyBatch = errors.New("no consensus records")

const (
	// MinRankingCount is the fewest observations an item needs to be ranked by agreement
	MinRankingCount = 3
	// DefaultRankingSize is how many items the agreement rankings show
	DefaultRankingSize = 5
)

// FilterByDistance keeps records whose mean position is at least t from the
// center on either axis. t <= 0 keeps everything.
func FilterByDistance(stats []Stat, t float64) []Stat {
	out := make([]Stat, 0, len(stats))
	for _, s := range stats {
		if t <= 0 || s.Distance() >= t {
			out = append(out, s)
		}
	}
	return out
}

// Extremes holds the item furthest toward each axis label
type Extremes struct {
	MostChaotic Stat `json:"mostChaotic" yaml:"mostchaotic"`
	MostLawful  Stat `json:"mostLawful" yaml:"mostlawful"`
	MostGood    Stat `json:"mostGood" yaml:"mostgood"`
	MostEvil    Stat `json:"mostEvil" yaml:"mostevil"`
}

// FindExtremes scans the records for each extreme. Ties go to the record seen first.
func FindExtremes(stats []Stat) (Extremes, error) {
	if len(stats) == 0 {
		return Extremes{}, ErrEmptyBatch
	}

	ex := Extremes{
		MostChaotic: stats[0],
		MostLawful:  stats[0],
		MostGood:    stats[0],
		MostEvil:    stats[0],
	}
	for _, s := range stats[1:] {
		if s.AvgX > ex.MostChaotic.AvgX {
			ex.MostChaotic = s
		}
		if s.AvgX < ex.MostLawful.AvgX {
			ex.MostLawful = s
		}
		if s.AvgY < ex.MostGood.AvgY {
			ex.MostGood = s
		}
		if s.AvgY > ex.MostEvil.AvgY {
			ex.MostEvil = s
		}
	}
	return ex, nil
}

// MostAgreement returns up to n items with the smallest spread, among items
// placed at least MinRankingCount times
func MostAgreement(stats []Stat, n int) ([]Stat, error) {
	return rankBySpread(stats, n, func(a, b Stat) bool { return a.Spread < b.Spread })
}

// LeastAgreement returns up to n items with the largest spread, among items
// placed at least MinRankingCount times
func LeastAgreement(stats []Stat, n int) ([]Stat, error) {
	return rankBySpread(stats, n, func(a, b Stat) bool { return a.Spread > b.Spread })
}

func rankBySpread(stats []Stat, n int, less func(a, b Stat) bool) ([]Stat, error) {
	if len(stats) == 0 {
		return nil, ErrEmptyBatch
	}

	ranked := make([]Stat, 0, len(stats))
	for _, s := range stats {
		if s.Count >= MinRankingCount {
			ranked = append(ranked, s)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return less(ranked[i], ranked[j])
	})

	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked, nil
}
