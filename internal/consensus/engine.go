package consensus

import (
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/sandwich-alignment/alignment/internal/models"
)

// MaxSpread normalizes spread into a consensus score: the diagonal of the
// doubled unit square. It is a heuristic bound, so scores can go below zero.
var MaxSpread = math.Sqrt2 * 2

// Point is one contributing position
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Stat is the aggregate position of one item across a batch of submissions
type Stat struct {
	ItemID         string  `json:"itemId" yaml:"itemid"`
	Count          int     `json:"count" yaml:"count"`
	AvgX           float64 `json:"avgX" yaml:"avgx"`
	AvgY           float64 `json:"avgY" yaml:"avgy"`
	StdDevX        float64 `json:"stdDevX" yaml:"stddevx"`
	StdDevY        float64 `json:"stdDevY" yaml:"stddevy"`
	Spread         float64 `json:"spread" yaml:"spread"`
	ConsensusScore float64 `json:"consensusScore" yaml:"consensusscore"`
	Positions      []Point `json:"positions" yaml:"positions"`
}

// Distance is how far the mean position sits from the center, per the larger axis
func (s Stat) Distance() float64 {
	return math.Max(math.Abs(s.AvgX), math.Abs(s.AvgY))
}

// Engine computes consensus statistics. Workers > 1 computes items in parallel.
type Engine struct {
	Workers int
}

// parallelThreshold is the item count below which workers are not worth starting
const parallelThreshold = 64

// Compute runs the default engine over a batch
func Compute(batch []models.Submission) []Stat {
	return Engine{Workers: runtime.NumCPU()}.Compute(batch)
}

// Compute aggregates a batch into one Stat per item that appears in it.
// The batch is only read. Results are sorted by descending count; ties keep
// the order in which items were first encountered.
func (e Engine) Compute(batch []models.Submission) []Stat {
	order, positions := collect(batch)

	stats := make([]Stat, len(order))
	if e.Workers <= 1 || len(order) < parallelThreshold {
		for i, id := range order {
			stats[i] = computeStat(id, positions[id])
		}
	} else {
		var wg sync.WaitGroup
		semaphore := make(chan struct{}, e.Workers)
		for i, id := range order {
			wg.Add(1)
			go func(i int, id string) {
				defer wg.Done()
				semaphore <- struct{}{}        // Acquire
				defer func() { <-semaphore }() // Release
				stats[i] = computeStat(id, positions[id])
			}(i, id)
		}
		wg.Wait()
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Count > stats[j].Count
	})

	return stats
}

// collect groups positions by item id in first-seen order.
// Placements without an id or with an absent coordinate are skipped, and an
// item counts at most once per submission.
func collect(batch []models.Submission) ([]string, map[string][]Point) {
	var order []string
	positions := make(map[string][]Point)

	for _, sub := range batch {
		seen := make(map[string]bool, len(sub.Placements))
		for _, p := range sub.Placements {
			if p.ItemID == "" || seen[p.ItemID] {
				continue
			}
			x, y, ok := p.Position()
			if !ok {
				continue
			}
			seen[p.ItemID] = true

			if _, exists := positions[p.ItemID]; !exists {
				order = append(order, p.ItemID)
			}
			positions[p.ItemID] = append(positions[p.ItemID], Point{X: x, Y: y})
		}
	}

	return order, positions
}

func computeStat(itemID string, points []Point) Stat {
	n := float64(len(points))

	var sumX, sumY float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
	}
	avgX := sumX / n
	avgY := sumY / n

	// Population variance: divisor n
	var sqX, sqY float64
	for _, p := range points {
		sqX += (p.X - avgX) * (p.X - avgX)
		sqY += (p.Y - avgY) * (p.Y - avgY)
	}
	stdDevX := math.Sqrt(sqX / n)
	stdDevY := math.Sqrt(sqY / n)
	spread := math.Sqrt(stdDevX*stdDevX + stdDevY*stdDevY)

	return Stat{
		ItemID:         itemID,
		Count:          len(points),
		AvgX:           avgX,
		AvgY:           avgY,
		StdDevX:        stdDevX,
		StdDevY:        stdDevY,
		Spread:         spread,
		ConsensusScore: 1 - spread/MaxSpread,
		Positions:      points,
	}
}
