package dataset

import (
	"time"

	"github.com/sandwich-alignment/alignment/internal/models"
)

// Row is the flattened Parquet layout of one submission
type Row struct {
	ID          string         `parquet:"id"`
	Note        string         `parquet:"note"`
	Source      string         `parquet:"source"`
	LabelTop    string         `parquet:"label_top"`
	LabelBottom string         `parquet:"label_bottom"`
	LabelLeft   string         `parquet:"label_left"`
	LabelRight  string         `parquet:"label_right"`
	CreatedAt   int64          `parquet:"created_at"` // unix milliseconds
	Placements  []PlacementRow `parquet:"placements"`
}

// PlacementRow is one placement inside a Row. Nil coordinates are absent.
type PlacementRow struct {
	ItemID string   `parquet:"item_id"`
	X      *float64 `parquet:"x,optional"`
	Y      *float64 `parquet:"y,optional"`
}

// document is the wrapped JSON form: {"boards": [...]}
type document struct {
	Boards []models.Submission `json:"boards"`
}

func toRow(sub models.Submission) Row {
	row := Row{
		ID:          sub.ID,
		Note:        sub.Note,
		Source:      sub.Source,
		LabelTop:    sub.AxisLabels.Top,
		LabelBottom: sub.AxisLabels.Bottom,
		LabelLeft:   sub.AxisLabels.Left,
		LabelRight:  sub.AxisLabels.Right,
		Placements:  make([]PlacementRow, len(sub.Placements)),
	}
	if !sub.SubmittedAt.IsZero() {
		row.CreatedAt = sub.SubmittedAt.UnixMilli()
	}
	for i, p := range sub.Placements {
		row.Placements[i] = PlacementRow{ItemID: p.ItemID, X: copyFloat(p.X), Y: copyFloat(p.Y)}
	}
	return row
}

func (r Row) Submission() models.Submission {
	sub := models.Submission{
		ID:     r.ID,
		Note:   r.Note,
		Source: r.Source,
		AxisLabels: models.AxisLabels{
			Top:    r.LabelTop,
			Bottom: r.LabelBottom,
			Left:   r.LabelLeft,
			Right:  r.LabelRight,
		},
		Placements: make([]models.SubmittedPlacement, len(r.Placements)),
	}
	if r.CreatedAt != 0 {
		sub.SubmittedAt = time.UnixMilli(r.CreatedAt).UTC()
	}
	for i, p := range r.Placements {
		sub.Placements[i] = models.SubmittedPlacement{ItemID: p.ItemID, X: copyFloat(p.X), Y: copyFloat(p.Y)}
	}
	return sub
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	return &f
}
