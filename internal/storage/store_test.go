package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sandwich-alignment/alignment/internal/board"
	"github.com/sandwich-alignment/alignment/internal/models"
)

func openStores(t *testing.T) map[string]SubmissionStore {
	t.Helper()

	sqliteStore, err := OpenSQLite(filepath.Join(t.TempDir(), "alignment.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = sqliteStore.Close() })

	return map[string]SubmissionStore{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
	}
}

func makeSubmission(source string, n int, at time.Time) models.Submission {
	sub := models.Submission{
		Source:      source,
		Note:        fmt.Sprintf("%d items", n),
		AxisLabels:  models.DefaultAxisLabels(),
		SubmittedAt: at,
	}
	for i := 0; i < n; i++ {
		sub.Placements = append(sub.Placements, models.NewSubmittedPlacement(fmt.Sprintf("item-%d", i), 0.1*float64(i), -0.1*float64(i)))
	}
	return sub
}

func TestSubmissionStores(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			oldID, err := store.Insert(ctx, makeSubmission(models.SourceUserSubmitted, 6, base))
			if err != nil {
				t.Fatalf("Insert failed: %v", err)
			}
			newID, err := store.Insert(ctx, makeSubmission(models.SourceUserSubmitted, 5, base.Add(time.Hour)))
			if err != nil {
				t.Fatal(err)
			}
			if _, err := store.Insert(ctx, makeSubmission(models.SourceUserSubmitted, 2, base.Add(2*time.Hour))); err != nil {
				t.Fatal(err)
			}
			if _, err := store.Insert(ctx, makeSubmission(models.SourceAIGenerated, 8, base.Add(3*time.Hour))); err != nil {
				t.Fatal(err)
			}

			all, err := store.List(ctx, ListOptions{})
			if err != nil {
				t.Fatal(err)
			}
			if len(all) != 4 {
				t.Fatalf("List() returned %d, want 4", len(all))
			}

			filtered, err := store.List(ctx, ListOptions{Source: models.SourceUserSubmitted, MinPlacements: 5})
			if err != nil {
				t.Fatal(err)
			}
			if len(filtered) != 2 {
				t.Fatalf("filtered list returned %d, want 2", len(filtered))
			}
			if filtered[0].ID != newID || filtered[1].ID != oldID {
				t.Errorf("expected newest first, got %s then %s", filtered[0].ID, filtered[1].ID)
			}
			if len(filtered[1].Placements) != 6 {
				t.Errorf("placements not loaded: %d", len(filtered[1].Placements))
			}
			x, y, ok := filtered[1].Placements[3].Position()
			if !ok || x != 0.30000000000000004 || y != -0.30000000000000004 {
				t.Errorf("placement 3 = (%v, %v, %v)", x, y, ok)
			}
			if filtered[0].AxisLabels != models.DefaultAxisLabels() {
				t.Errorf("labels = %+v", filtered[0].AxisLabels)
			}
			if !filtered[0].SubmittedAt.Equal(base.Add(time.Hour)) {
				t.Errorf("SubmittedAt = %v", filtered[0].SubmittedAt)
			}

			got, err := store.Get(ctx, oldID)
			if err != nil {
				t.Fatal(err)
			}
			if got.Note != "6 items" || len(got.Placements) != 6 {
				t.Errorf("Get returned %+v", got)
			}
			if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get missing: expected ErrNotFound, got %v", err)
			}

			n, err := store.Clear(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if n != 4 {
				t.Errorf("Clear removed %d, want 4", n)
			}
			n, err = store.Clear(ctx)
			if err != nil || n != 0 {
				t.Errorf("second Clear = %d, %v", n, err)
			}
			if remaining, _ := store.List(ctx, ListOptions{}); len(remaining) != 0 {
				t.Errorf("%d submissions survived Clear", len(remaining))
			}
		})
	}
}

func TestListFilteredPlacements(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			user := models.Submission{Source: models.SourceUserSubmitted, SubmittedAt: base, Placements: []models.SubmittedPlacement{
				models.NewSubmittedPlacement("blt", 0.5, 0.5),
				models.NewSubmittedPlacement("reuben", -0.5, 0.5),
			}}
			generated := models.Submission{Source: models.SourceAIGenerated, SubmittedAt: base.Add(time.Minute), Placements: []models.SubmittedPlacement{
				models.NewSubmittedPlacement("hotdog", 1, 1),
			}}
			for _, sub := range []models.Submission{user, generated} {
				if _, err := store.Insert(ctx, sub); err != nil {
					t.Fatal(err)
				}
			}

			tests := []struct {
				opts ListOptions
				want [][]string
			}{
				{ListOptions{Source: models.SourceUserSubmitted}, [][]string{{"blt", "reuben"}}},
				{ListOptions{Source: models.SourceAIGenerated}, [][]string{{"hotdog"}}},
				{ListOptions{MinPlacements: 2}, [][]string{{"blt", "reuben"}}},
				{ListOptions{}, [][]string{{"hotdog"}, {"blt", "reuben"}}},
			}
			for _, tt := range tests {
				got, err := store.List(ctx, tt.opts)
				if err != nil {
					t.Fatal(err)
				}
				if len(got) != len(tt.want) {
					t.Fatalf("List(%+v) returned %d submissions, want %d", tt.opts, len(got), len(tt.want))
				}
				for i, sub := range got {
					var ids []string
					for _, p := range sub.Placements {
						ids = append(ids, p.ItemID)
					}
					if strings.Join(ids, ",") != strings.Join(tt.want[i], ",") {
						t.Errorf("List(%+v)[%d] placements = %v, want %v", tt.opts, i, ids, tt.want[i])
					}
				}
			}
		})
	}
}

func TestInsertRejectsOutOfRange(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			sub := models.Submission{Placements: []models.SubmittedPlacement{models.NewSubmittedPlacement("blt", 5, -7)}}
			if _, err := store.Insert(ctx, sub); !errors.Is(err, models.ErrCoordinateOutOfRange) {
				t.Errorf("Insert = %v, want ErrCoordinateOutOfRange", err)
			}
			if got, _ := store.List(ctx, ListOptions{}); len(got) != 0 {
				t.Errorf("rejected submission was stored")
			}
		})
	}
}

func TestInsertKeepsAbsentCoordinates(t *testing.T) {
	ctx := context.Background()
	x := 0.5

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			id, err := store.Insert(ctx, models.Submission{
				Placements: []models.SubmittedPlacement{{ItemID: "half", X: &x}},
			})
			if err != nil {
				t.Fatal(err)
			}
			got, err := store.Get(ctx, id)
			if err != nil {
				t.Fatal(err)
			}
			p := got.Placements[0]
			if p.X == nil || *p.X != 0.5 || p.Y != nil {
				t.Errorf("absent y was not preserved: %+v", p)
			}
		})
	}
}

func TestInsertRejectsLongNote(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Insert(ctx, models.Submission{Note: strings.Repeat("n", models.MaxNoteLength+1)})
			if !errors.Is(err, models.ErrNoteTooLong) {
				t.Errorf("expected ErrNoteTooLong, got %v", err)
			}
		})
	}
}

func TestSQLiteReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "alignment.db")

	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	id, err := store.Insert(ctx, makeSubmission(models.SourceUserSubmitted, 3, time.Now()))
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	store, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer store.Close()

	if _, err := store.Get(ctx, id); err != nil {
		t.Errorf("submission lost after reopen: %v", err)
	}
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	if _, err := OpenSQLite("  "); err == nil {
		t.Error("expected an error for an empty path")
	}
}

func TestSessionStore(t *testing.T) {
	s := New()
	id := s.Create(board.NewSession(nil))

	if _, ok := s.Get(id); !ok {
		t.Fatal("created session not found")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d", s.Len())
	}

	err := s.Update(id, func(sess *board.Session) error {
		return sess.Board().Add("blt", 0, 0)
	})
	if err != nil {
		t.Fatal(err)
	}
	_ = s.View(id, func(sess *board.Session) error {
		if sess.Board().Size() != 1 {
			t.Errorf("update not visible, size %d", sess.Board().Size())
		}
		return nil
	})

	if err := s.Update("missing", func(*board.Session) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update missing: got %v", err)
	}

	s.Delete(id)
	if _, ok := s.Get(id); ok {
		t.Error("session still present after Delete")
	}
}

func TestSessionStoreExpiresIdleSessions(t *testing.T) {
	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := New()
	s.TTL = time.Hour
	s.now = func() time.Time { return clock }

	idle := s.Create(board.NewSession(nil))
	active := s.Create(board.NewSession(nil))

	clock = clock.Add(40 * time.Minute)
	if _, ok := s.Get(active); !ok {
		t.Fatal("active session missing")
	}

	clock = clock.Add(30 * time.Minute)
	if _, ok := s.Get(idle); ok {
		t.Error("idle session outlived its TTL")
	}
	if err := s.View(idle, func(*board.Session) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Errorf("View expired: got %v", err)
	}
	if _, ok := s.Get(active); !ok {
		t.Error("recently used session expired")
	}

	s.Create(board.NewSession(nil))
	if s.Len() != 2 {
		t.Errorf("Len() = %d after pruning, want 2", s.Len())
	}
}

func TestSessionStoreEvictsLeastRecentlyUsed(t *testing.T) {
	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := New()
	s.MaxSessions = 2
	s.now = func() time.Time { return clock }

	first := s.Create(board.NewSession(nil))
	clock = clock.Add(time.Second)
	second := s.Create(board.NewSession(nil))
	clock = clock.Add(time.Second)
	s.Get(first)
	clock = clock.Add(time.Second)
	third := s.Create(board.NewSession(nil))

	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if _, ok := s.Get(second); ok {
		t.Error("least recently used session was kept")
	}
	for _, id := range []string{first, third} {
		if _, ok := s.Get(id); !ok {
			t.Errorf("session %s evicted", id)
		}
	}
}
