package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"civictrack-be/identity"
	"civictrack-be/models"
	"civictrack-be/store"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	bangalore = store.Point{Longitude: 77.5946, Latitude: 12.9716}
	epoch     = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
)

// fakeClock advances one second on every read.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: epoch} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func ptr[T any](v T) *T { return &v }

func newID() *primitive.ObjectID { return ptr(primitive.NewObjectID()) }

// north returns a point roughly meters north of p.
func north(p store.Point, meters float64) store.Point {
	return store.Point{Longitude: p.Longitude, Latitude: p.Latitude + meters/111319.0}
}

func newTestService(t *testing.T, names identity.StaticDirectory) (*IssueService, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	return NewIssueServiceWithClock(s, names, newFakeClock().Now), s
}

func reportAt(t *testing.T, svc *IssueService, title string, at store.Point, actor *primitive.ObjectID) *models.Issue {
	t.Helper()
	issue, err := svc.CreateIssue(context.Background(), CreateIssueInput{
		Title:       title,
		Description: title + " needs attention",
		Category:    models.Roads,
		Longitude:   at.Longitude,
		Latitude:    at.Latitude,
		Address:     "MG Road, Bengaluru",
	}, actor)
	require.NoError(t, err)
	return issue
}

// spyStore wraps a store and can force failures.
type spyStore struct {
	store.IssueStore
	queryCalls  int
	failQuery   error
	failUpdate  error
	updateCalls int
}

func (s *spyStore) QueryNear(ctx context.Context, q store.NearQuery) ([]models.Issue, error) {
	s.queryCalls++
	if s.failQuery != nil {
		return nil, s.failQuery
	}
	return s.IssueStore.QueryNear(ctx, q)
}

func (s *spyStore) Update(ctx context.Context, id primitive.ObjectID, mutate store.MutateFunc) (*models.Issue, error) {
	s.updateCalls++
	if s.failUpdate != nil {
		return nil, s.failUpdate
	}
	return s.IssueStore.Update(ctx, id, mutate)
}

type failingDirectory struct{}

func (failingDirectory) DisplayNames(context.Context, []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	return nil, errors.New("users collection unreachable")
}
