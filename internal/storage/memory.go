package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sandwich-alignment/alignment/internal/models"
)

// MemoryStore keeps submissions in process memory
type MemoryStore struct {
	submissions []models.Submission
	mu          sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Insert(ctx context.Context, sub models.Submission) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sub, err := prepare(sub)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.submissions {
		if existing.ID == sub.ID {
			return "", fmt.Errorf("submission %s already exists", sub.ID)
		}
	}
	s.submissions = append(s.submissions, sub)
	return sub.ID, nil
}

func (s *MemoryStore) List(ctx context.Context, opts ListOptions) ([]models.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Submission, 0, len(s.submissions))
	// Walk backwards so equal timestamps list the latest insert first.
	for i := len(s.submissions) - 1; i >= 0; i-- {
		if opts.match(s.submissions[i]) {
			result = append(result, s.submissions[i].Clone())
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].SubmittedAt.After(result[j].SubmittedAt)
	})
	return result, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (models.Submission, error) {
	if err := ctx.Err(); err != nil {
		return models.Submission{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.submissions {
		if sub.ID == id {
			return sub.Clone(), nil
		}
	}
	return models.Submission{}, fmt.Errorf("submission %s: %w", id, ErrNotFound)
}

func (s *MemoryStore) Clear(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.submissions))
	s.submissions = nil
	return n, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
