package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sandwich-alignment/alignment/internal/models"
)

var ErrNotFound = errors.New("not found")

// ListOptions filters a submission listing. Zero values match everything.
type ListOptions struct {
	Source        string
	MinPlacements int
}

func (o ListOptions) match(sub models.Submission) bool {
	if o.Source != "" && sub.Source != o.Source {
		return false
	}
	return len(sub.Placements) >= o.MinPlacements
}

// SubmissionStore persists finished boards
type SubmissionStore interface {
	// Insert stores a submission and returns its id. An empty id or zero
	// timestamp is filled in.
	Insert(ctx context.Context, sub models.Submission) (string, error)
	// List returns matching submissions, newest first
	List(ctx context.Context, opts ListOptions) ([]models.Submission, error)
	// Get returns one submission by id
	Get(ctx context.Context, id string) (models.Submission, error)
	// Clear deletes every submission and reports how many were removed
	Clear(ctx context.Context) (int64, error)
	Close() error
}

func prepare(sub models.Submission) (models.Submission, error) {
	if err := sub.Validate(); err != nil {
		return models.Submission{}, err
	}
	sub = sub.Clone()
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now()
	}
	sub.SubmittedAt = sub.SubmittedAt.UTC()
	return sub, nil
}
