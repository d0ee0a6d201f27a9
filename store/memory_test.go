package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"civictrack-be/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var centre = Point{Longitude: 77.5946, Latitude: 12.9716}

// offsetNorth returns a point roughly meters north of p.
func offsetNorth(p Point, meters float64) Point {
	return Point{Longitude: p.Longitude, Latitude: p.Latitude + meters/111195.0}
}

func newIssue(title string, at Point, created time.Time) *models.Issue {
	return &models.Issue{
		Title:       title,
		Description: title + " description",
		Category:    models.Roads,
		Status:      models.Reported,
		Location:    models.NewLocation(at.Longitude, at.Latitude, "somewhere"),
		Photos:      []string{},
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func TestMemoryStoreInsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	issue := newIssue("Pothole", centre, time.Now())
	id, err := s.Insert(ctx, issue)
	require.NoError(t, err)
	assert.False(t, id.IsZero())
	assert.Equal(t, id, issue.ID)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Pothole", got.Title)

	got.Title = "mutated"
	again, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Pothole", again.Title)

	_, err = s.Get(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreInsertRejectsMissingCoordinates(t *testing.T) {
	issue := newIssue("No location", centre, time.Now())
	issue.Location.Coordinates = nil

	_, err := NewMemoryStore().Insert(context.Background(), issue)
	assert.ErrorIs(t, err, ErrInvalidPoint)
}

func TestMemoryStoreQueryNearOrdersByRecencyNotDistance(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	far := newIssue("far but newest", offsetNorth(centre, 4500), base.Add(2*time.Hour))
	near := newIssue("near but oldest", offsetNorth(centre, 10), base)
	middle := newIssue("middle", offsetNorth(centre, 2000), base.Add(time.Hour))
	outside := newIssue("outside", offsetNorth(centre, 5500), base.Add(3*time.Hour))
	for _, issue := range []*models.Issue{far, near, middle, outside} {
		_, err := s.Insert(ctx, issue)
		require.NoError(t, err)
	}

	got, err := s.QueryNear(ctx, NearQuery{Point: centre, MaxDistanceMeters: 5000})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "far but newest", got[0].Title)
	assert.Equal(t, "middle", got[1].Title)
	assert.Equal(t, "near but oldest", got[2].Title)

	for _, issue := range got {
		p := Point{Longitude: issue.Location.Longitude(), Latitude: issue.Location.Latitude()}
		assert.LessOrEqual(t, DistanceMeters(centre, p), 5000.0)
	}
}

func TestMemoryStoreQueryNearAppliesFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()

	resolved := newIssue("Broken streetlight", centre, now)
	resolved.Status = models.Resolved
	resolved.Category = models.Lighting

	hidden := newIssue("Spam streetlight", centre, now)
	hidden.Status = models.Resolved
	hidden.Category = models.Lighting
	hidden.IsHidden = true

	other := newIssue("Water leak", centre, now)
	other.Category = models.WaterSupply

	for _, issue := range []*models.Issue{resolved, hidden, other} {
		_, err := s.Insert(ctx, issue)
		require.NoError(t, err)
	}

	got, err := s.QueryNear(ctx, NearQuery{
		Point:             centre,
		MaxDistanceMeters: 1000,
		Filter:            Filter{Status: models.Resolved, Search: "STREETLIGHT"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, resolved.ID, got[0].ID)

	got, err = s.QueryNear(ctx, NearQuery{
		Point:             centre,
		MaxDistanceMeters: 1000,
		Filter:            Filter{Search: "leak description"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, other.ID, got[0].ID)
}

func TestMemoryStoreQueryNearInvalidPoint(t *testing.T) {
	_, err := NewMemoryStore().QueryNear(context.Background(), NearQuery{
		Point:             Point{Longitude: 0, Latitude: 200},
		MaxDistanceMeters: 5000,
	})
	assert.ErrorIs(t, err, ErrInvalidPoint)
}

func TestMemoryStoreUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	issue := newIssue("Pothole", centre, time.Now())
	id, err := s.Insert(ctx, issue)
	require.NoError(t, err)

	updated, err := s.Update(ctx, id, func(i *models.Issue) error {
		i.Status = models.InProgress
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.InProgress, updated.Status)
	assert.Equal(t, int64(1), updated.Version)

	boom := errors.New("rejected")
	_, err = s.Update(ctx, id, func(i *models.Issue) error {
		i.Status = models.Resolved
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.InProgress, got.Status, "aborted mutation must not persist")

	_, err = s.Update(ctx, primitive.NewObjectID(), func(*models.Issue) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreUpdateCancelledContextLeavesIssueUntouched(t *testing.T) {
	s := NewMemoryStore()
	id, err := s.Insert(context.Background(), newIssue("Pothole", centre, time.Now()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	_, err = s.Update(ctx, id, func(i *models.Issue) error {
		i.Title = "changed"
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	got, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Pothole", got.Title)
}

func TestMemoryStoreConcurrentUpdatesAreSerialised(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	id, err := s.Insert(ctx, newIssue("Pothole", centre, time.Now()))
	require.NoError(t, err)

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(ctx, id, func(issue *models.Issue) error {
				issue.Flags = append(issue.Flags, models.Flag{FlaggedBy: primitive.NewObjectID()})
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Len(t, got.Flags, writers)
	assert.Equal(t, int64(writers), got.Version)
}

func TestMemoryStoreListFlaggedAndStats(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Now()

	once := newIssue("once", centre, base)
	once.Flags = []models.Flag{{FlaggedBy: primitive.NewObjectID()}}
	twiceOld := newIssue("twice old", centre, base.Add(-time.Hour))
	twiceOld.Flags = []models.Flag{{FlaggedBy: primitive.NewObjectID()}, {FlaggedBy: primitive.NewObjectID()}}
	twiceNew := newIssue("twice new", centre, base)
	twiceNew.Flags = twiceOld.Flags
	hidden := newIssue("hidden", centre, base)
	hidden.IsHidden = true
	hidden.Status = models.Resolved
	hidden.Flags = []models.Flag{{}, {}, {}}
	clean := newIssue("clean", centre, base)

	for _, issue := range []*models.Issue{once, twiceOld, twiceNew, hidden, clean} {
		_, err := s.Insert(ctx, issue)
		require.NoError(t, err)
	}

	flagged, err := s.ListFlagged(ctx)
	require.NoError(t, err)
	titles := make([]string, 0, len(flagged))
	for _, issue := range flagged {
		titles = append(titles, issue.Title)
	}
	assert.Equal(t, []string{"hidden", "twice new", "twice old", "once"}, titles)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.Total)
	assert.Equal(t, int64(4), stats.Flagged)
	assert.Equal(t, int64(1), stats.Hidden)
	assert.Equal(t, int64(4), stats.ByStatus[models.Reported])
	assert.Equal(t, int64(1), stats.ByStatus[models.Resolved])
	assert.Equal(t, int64(5), stats.ByCategory[models.Roads])
	assert.Equal(t, int64(4), stats.Reported)
	assert.Equal(t, int64(0), stats.InProgress)
	assert.Equal(t, int64(1), stats.Resolved)
}
