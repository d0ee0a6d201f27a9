package store

import (
	"context"
	"math"
	"sort"
	"sync"

	"civictrack-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore keeps issues in process memory. It backs STORE_DRIVER=memory
// for local development and the service tests. Queries scan every issue.
type MemoryStore struct {
	mu     sync.RWMutex
	issues map[primitive.ObjectID]*models.Issue
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{issues: make(map[primitive.ObjectID]*models.Issue)}
}

func (s *MemoryStore) Insert(ctx context.Context, issue *models.Issue) (primitive.ObjectID, error) {
	if err := ctx.Err(); err != nil {
		return primitive.NilObjectID, err
	}
	if err := locationPoint(issue).Validate(); err != nil {
		return primitive.NilObjectID, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if issue.ID.IsZero() {
		issue.ID = primitive.NewObjectID()
	}
	issue.Version = 0
	s.issues[issue.ID] = issue.Clone()
	return issue.ID, nil
}

func (s *MemoryStore) Get(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	issue, ok := s.issues[id]
	if !ok {
		return nil, ErrNotFound
	}
	return issue.Clone(), nil
}

func (s *MemoryStore) QueryNear(ctx context.Context, q NearQuery) ([]models.Issue, error) {
	if err := q.Point.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Issue, 0)
	for _, issue := range s.issues {
		if DistanceMeters(q.Point, locationPoint(issue)) > q.MaxDistanceMeters {
			continue
		}
		if !q.Filter.Match(issue) {
			continue
		}
		result = append(result, *issue.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		return newerFirst(&result[i], &result[j])
	})
	return result, nil
}

// Update holds the write lock for the whole read-modify-write, so it never
// observes a version conflict.
func (s *MemoryStore) Update(ctx context.Context, id primitive.ObjectID, mutate MutateFunc) (*models.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.issues[id]
	if !ok {
		return nil, ErrNotFound
	}

	next := current.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	next.ID = current.ID
	next.Version = current.Version + 1
	s.issues[id] = next
	return next.Clone(), nil
}

func (s *MemoryStore) ListFlagged(ctx context.Context) ([]models.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Issue, 0)
	for _, issue := range s.issues {
		if len(issue.Flags) > 0 {
			result = append(result, *issue.Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if len(result[i].Flags) != len(result[j].Flags) {
			return len(result[i].Flags) > len(result[j].Flags)
		}
		return newerFirst(&result[i], &result[j])
	})
	return result, nil
}

func (s *MemoryStore) Stats(ctx context.Context) (*Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := newStats()
	for _, issue := range s.issues {
		stats.Total++
		stats.ByStatus[issue.Status]++
		stats.ByCategory[issue.Category]++
		if len(issue.Flags) > 0 {
			stats.Flagged++
		}
		if issue.IsHidden {
			stats.Hidden++
		}
	}
	stats.tallyStatuses()
	return stats, nil
}

func locationPoint(issue *models.Issue) Point {
	if len(issue.Location.Coordinates) < 2 {
		return Point{Longitude: math.NaN(), Latitude: math.NaN()}
	}
	return Point{Longitude: issue.Location.Longitude(), Latitude: issue.Location.Latitude()}
}

// newerFirst orders by createdAt descending, falling back to id so equal
// timestamps still sort deterministically.
func newerFirst(a, b *models.Issue) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.Hex() > b.ID.Hex()
}
