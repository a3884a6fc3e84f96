package board

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/sandwich-alignment/alignment/internal/models"
)

type stubCatalog []models.Item

func (c stubCatalog) Get(id string) (models.Item, bool) {
	for _, item := range c {
		if item.ID == id {
			return item, true
		}
	}
	return models.Item{}, false
}

func (c stubCatalog) Items() []models.Item { return c }
func (c stubCatalog) Len() int             { return len(c) }

var testCatalog = stubCatalog{
	{ID: "blt", Name: "BLT", ImagePath: "/img/blt.png"},
	{ID: "reuben", Name: "Reuben", ImagePath: "/img/reuben.png"},
	{ID: "hotdog", Name: "Hot Dog", ImagePath: "/img/hotdog.png"},
}

var testViewport = Viewport{Left: 0, Top: 0, Width: 100, Height: 100}

func TestSelectionIsSnapshot(t *testing.T) {
	s := NewSession(testCatalog)
	_, _ = s.Drop("blt", testViewport, 50, 50)

	if _, err := s.Select("blt"); err != nil {
		t.Fatal(err)
	}
	// Moving through the board directly does not touch the selection.
	if err := s.Board().Move("blt", 1, 1); err != nil {
		t.Fatal(err)
	}

	cur, ok := s.Selection().Current()
	if !ok || !cur.Placed() {
		t.Fatal("expected a placed selection")
	}
	if *cur.X != 0 || *cur.Y != 0 {
		t.Errorf("selection followed the board: (%g, %g)", *cur.X, *cur.Y)
	}
}

func TestDropMoveReselects(t *testing.T) {
	s := NewSession(testCatalog)
	_, _ = s.Drop("blt", testViewport, 50, 50)
	_, _ = s.Select("reuben")

	result, err := s.Drop("blt", testViewport, 100, 0)
	if err != nil || result != DropMoved {
		t.Fatalf("Drop = %v, %v", result, err)
	}

	cur, ok := s.Selection().Current()
	if !ok || cur.Item.ID != "blt" {
		t.Fatalf("expected blt to be selected after move, got %+v", cur)
	}
	if *cur.X != 1 || *cur.Y != -1 {
		t.Errorf("selection coords = (%g, %g), want (1, -1)", *cur.X, *cur.Y)
	}
}

func TestDropAddRefreshesSelectedItem(t *testing.T) {
	s := NewSession(testCatalog)
	snap, _ := s.Select("reuben")
	if snap.Placed() {
		t.Fatal("unplaced item should have no coordinates")
	}

	if _, err := s.Drop("reuben", testViewport, 25, 75); err != nil {
		t.Fatal(err)
	}
	cur, _ := s.Selection().Current()
	if !cur.Placed() || *cur.X != -0.5 || *cur.Y != 0.5 {
		t.Errorf("selected item not refreshed after add: %+v", cur)
	}
}

func TestDropUnknownItem(t *testing.T) {
	s := NewSession(testCatalog)
	if _, err := s.Drop("tofu", testViewport, 50, 50); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("expected ErrUnknownItem, got %v", err)
	}
}

func TestRemoveDeselects(t *testing.T) {
	s := NewSession(testCatalog)
	_, _ = s.Drop("blt", testViewport, 50, 50)
	_, _ = s.Drop("reuben", testViewport, 10, 10)
	_, _ = s.Select("blt")

	if err := s.Remove("reuben"); err != nil {
		t.Fatal(err)
	}
	if !s.Selection().Is("blt") {
		t.Error("removing another item must keep the selection")
	}

	if err := s.RemoveSelected(); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Selection().Current(); ok {
		t.Error("selection should be cleared after removing the selected item")
	}
	if s.Board().Size() != 0 {
		t.Errorf("board size = %d, want 0", s.Board().Size())
	}
	if err := s.RemoveSelected(); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("RemoveSelected with nothing selected: got %v", err)
	}
}

func TestClearAllDeselects(t *testing.T) {
	s := NewSession(testCatalog)
	_, _ = s.Drop("blt", testViewport, 50, 50)
	_, _ = s.Select("hotdog")

	s.ClearAll()
	s.ClearAll()

	if s.Board().Size() != 0 {
		t.Error("board not empty after clear")
	}
	if _, ok := s.Selection().Current(); ok {
		t.Error("selection not cleared")
	}
}

func TestAvailableAndComplete(t *testing.T) {
	s := NewSession(testCatalog)
	_, _ = s.Drop("reuben", testViewport, 50, 50)

	var ids []string
	for _, item := range s.Available() {
		ids = append(ids, item.ID)
	}
	if !reflect.DeepEqual(ids, []string{"blt", "hotdog"}) {
		t.Errorf("Available() = %v", ids)
	}
	if s.IsComplete() {
		t.Error("session should not be complete")
	}

	_, _ = s.Drop("blt", testViewport, 50, 50)
	_, _ = s.Drop("hotdog", testViewport, 50, 50)
	if !s.IsComplete() {
		t.Error("session should be complete")
	}
}

func TestSubmitNoteLength(t *testing.T) {
	s := NewSession(testCatalog)
	_, _ = s.Drop("blt", testViewport, 50, 50)

	sub, err := s.Submit("ok")
	if err != nil {
		t.Fatal(err)
	}
	if sub.Source != models.SourceUserSubmitted {
		t.Errorf("source = %q", sub.Source)
	}

	if _, err := s.Submit(strings.Repeat("x", models.MaxNoteLength+1)); !errors.Is(err, models.ErrNoteTooLong) {
		t.Errorf("expected ErrNoteTooLong, got %v", err)
	}
}

func TestSnapshotFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "board.json")

	b, err := LoadFile(path)
	if err != nil {
		t.Fatalf("missing file should load empty board: %v", err)
	}
	_ = b.Add("blt", 0.5, -0.25)
	_ = b.Add("reuben", -1, 1)
	b.SetAxisLabels(models.AxisLabels{Top: "Tasty"})

	if err := b.SaveFile(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(loaded.Snapshot(), b.Snapshot()) {
		t.Errorf("snapshot mismatch:\n got %+v\nwant %+v", loaded.Snapshot(), b.Snapshot())
	}
}

func TestRestoreRejectsDuplicates(t *testing.T) {
	_, err := Restore(Snapshot{Placements: []models.Placement{{ItemID: "a"}, {ItemID: "a"}}})
	if !errors.Is(err, ErrDuplicateItem) {
		t.Errorf("expected ErrDuplicateItem, got %v", err)
	}
}

func TestRestoreRejectsOutOfRange(t *testing.T) {
	tests := []models.Placement{
		{ItemID: "blt", X: 5, Y: -7},
		{ItemID: "blt", X: 0, Y: 1.5},
		{ItemID: "blt", X: -1.01, Y: 0},
	}
	for _, p := range tests {
		b, err := Restore(Snapshot{Placements: []models.Placement{p}})
		if !errors.Is(err, ErrCoordinateOutOfRange) {
			t.Errorf("Restore(%+v) = %v, want ErrCoordinateOutOfRange", p, err)
		}
		if b != nil {
			t.Errorf("Restore(%+v) returned a board", p)
		}
	}

	b, err := Restore(Snapshot{Placements: []models.Placement{{ItemID: "blt", X: -1, Y: 1}}})
	if err != nil || b.Size() != 1 {
		t.Errorf("corner placement: board %v, err %v", b, err)
	}
}

func TestImport(t *testing.T) {
	half := 0.5
	tests := []struct {
		name    string
		sub     models.Submission
		wantErr error
	}{
		{
			name: "valid",
			sub: models.Submission{Placements: []models.SubmittedPlacement{
				models.NewSubmittedPlacement("blt", 0.5, 0.5),
				models.NewSubmittedPlacement("reuben", -1, 1),
			}},
		},
		{
			name: "duplicate",
			sub: models.Submission{Placements: []models.SubmittedPlacement{
				models.NewSubmittedPlacement("blt", 0.5, 0.5),
				models.NewSubmittedPlacement("blt", 0, 0),
			}},
			wantErr: ErrDuplicateItem,
		},
		{
			name:    "missing y",
			sub:     models.Submission{Placements: []models.SubmittedPlacement{{ItemID: "blt", X: &half}}},
			wantErr: ErrMissingCoordinate,
		},
		{
			name: "out of range",
			sub: models.Submission{Placements: []models.SubmittedPlacement{
				models.NewSubmittedPlacement("blt", 1.5, 0),
			}},
			wantErr: ErrCoordinateOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Import(tt.sub)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Import error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Import failed: %v", err)
			}
			if b.Size() != len(tt.sub.Placements) {
				t.Errorf("imported size = %d", b.Size())
			}
			if b.AxisLabels() != models.DefaultAxisLabels() {
				t.Errorf("empty labels should default, got %+v", b.AxisLabels())
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	labels := models.DefaultAxisLabels()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"right", DescribeX(0.37, labels), "37% Chaotic"},
		{"left", DescribeX(-0.5, labels), "50% Lawful"},
		{"zero x", DescribeX(0, labels), "0% Chaotic"},
		{"top", DescribeY(-0.125, labels), "13% Good"},
		{"bottom", DescribeY(1, labels), "100% Evil"},
		{"zero y", DescribeY(0, labels), "0% Good"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
