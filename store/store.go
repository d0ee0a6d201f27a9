// Package store persists issues and answers proximity queries over them.
package store

import (
	"context"
	"errors"
	"strings"

	"civictrack-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound        = errors.New("store: issue not found")
	ErrInvalidPoint    = errors.New("store: point must have finite, in-range coordinates")
	ErrVersionConflict = errors.New("store: issue modified concurrently")
	ErrUnavailable     = errors.New("store: backend unavailable")
)

// maxUpdateAttempts bounds the optimistic read-modify-write loop in Update.
const maxUpdateAttempts = 5

// Filter is the predicate applied to proximity queries. Zero values disable a criterion.
type Filter struct {
	Status        models.IssueStatus
	Category      models.IssueCategory
	Search        string
	IncludeHidden bool
}

// Match reports whether issue satisfies every active criterion.
func (f Filter) Match(issue *models.Issue) bool {
	if !f.IncludeHidden && issue.IsHidden {
		return false
	}
	if f.Status != "" && issue.Status != f.Status {
		return false
	}
	if f.Category != "" && issue.Category != f.Category {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(issue.Title), needle) &&
			!strings.Contains(strings.ToLower(issue.Description), needle) {
			return false
		}
	}
	return true
}

// NearQuery selects issues within MaxDistanceMeters of Point.
type NearQuery struct {
	Point             Point
	MaxDistanceMeters float64
	Filter            Filter
}

// Stats summarises the collection for the moderation dashboard.
type Stats struct {
	Total      int64                          `json:"totalIssues"`
	ByStatus   map[models.IssueStatus]int64   `json:"byStatus"`
	ByCategory map[models.IssueCategory]int64 `json:"byCategory"`
	Flagged    int64                          `json:"flaggedIssues"`
	Hidden     int64                          `json:"hiddenIssues"`

	// Per-status totals read directly by the admin dashboard.
	Reported   int64 `json:"reportedIssues"`
	InProgress int64 `json:"inProgressIssues"`
	Resolved   int64 `json:"resolvedIssues"`
}

// tallyStatuses copies the ByStatus counts into the flat per-status fields.
func (s *Stats) tallyStatuses() {
	s.Reported = s.ByStatus[models.Reported]
	s.InProgress = s.ByStatus[models.InProgress]
	s.Resolved = s.ByStatus[models.Resolved]
}

// MutateFunc edits a private copy of an issue inside Update. Returning an
// error aborts the update and is passed back to the caller unchanged.
type MutateFunc func(issue *models.Issue) error

// IssueStore is the persistence contract the services depend on.
type IssueStore interface {
	// Insert assigns an id, stores the issue and indexes its coordinates.
	Insert(ctx context.Context, issue *models.Issue) (primitive.ObjectID, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.Issue, error)
	// QueryNear returns matching issues within range, newest first.
	// Distance bounds the result; it does not order it.
	QueryNear(ctx context.Context, q NearQuery) ([]models.Issue, error)
	// Update applies mutate under optimistic concurrency control and persists
	// the result atomically. mutate may run more than once.
	Update(ctx context.Context, id primitive.ObjectID, mutate MutateFunc) (*models.Issue, error)
	// ListFlagged returns issues with at least one flag, hidden ones included,
	// most flagged first and newest first within equal counts.
	ListFlagged(ctx context.Context) ([]models.Issue, error)
	Stats(ctx context.Context) (*Stats, error)
}

func newStats() *Stats {
	return &Stats{
		ByStatus:   make(map[models.IssueStatus]int64),
		ByCategory: make(map[models.IssueCategory]int64),
	}
}
