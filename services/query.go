package services

import (
	"context"
	"math"
	"strings"

	"civictrack-be/identity"
	"civictrack-be/logger"
	"civictrack-be/metrics"
	"civictrack-be/models"
	"civictrack-be/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultRadiusKm = 5.0

// NearbyRequest is a caller's filter request. Latitude and Longitude are
// required; a nil RadiusKm means DefaultRadiusKm. Status and Category accept
// "All" or "" for no filter.
type NearbyRequest struct {
	Latitude  *float64
	Longitude *float64
	RadiusKm  *float64
	Status    string
	Category  string
	Search    string
}

// QueryEngine turns NearbyRequests into store queries and decorates the results.
type QueryEngine struct {
	store     store.IssueStore
	directory identity.Directory
}

func NewQueryEngine(issueStore store.IssueStore, directory identity.Directory) *QueryEngine {
	return &QueryEngine{store: issueStore, directory: directory}
}

// Near returns visible issues inside the radius, newest first. Results are
// ordered by createdAt, not by distance: the radius is only a cutoff.
func (q *QueryEngine) Near(ctx context.Context, req NearbyRequest) ([]models.Issue, error) {
	nearQuery, err := buildNearQuery(req)
	if err != nil {
		return nil, err
	}

	metrics.IssueQueriesTotal.Inc()
	issues, err := q.store.QueryNear(ctx, nearQuery)
	if err != nil {
		return nil, fromStore(err)
	}
	metrics.IssueQueryResults.Observe(float64(len(issues)))

	q.resolveReporters(ctx, issues)
	return issues, nil
}

func buildNearQuery(req NearbyRequest) (store.NearQuery, error) {
	if req.Latitude == nil || req.Longitude == nil {
		return store.NearQuery{}, newError(KindInvalidArgument, "Latitude and longitude are required")
	}
	point := store.Point{Longitude: *req.Longitude, Latitude: *req.Latitude}
	if err := point.Validate(); err != nil {
		return store.NearQuery{}, fromStore(err)
	}

	radiusKm := DefaultRadiusKm
	if req.RadiusKm != nil {
		radiusKm = *req.RadiusKm
		if math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) || radiusKm <= 0 {
			return store.NearQuery{}, newError(KindInvalidArgument, "Radius must be a positive number of kilometres")
		}
	}

	filter := store.Filter{Search: strings.TrimSpace(req.Search)}
	if req.Status != "" && req.Status != models.FilterAll {
		status := models.IssueStatus(req.Status)
		if !status.Valid() {
			return store.NearQuery{}, newError(KindInvalidArgument, "Invalid status")
		}
		filter.Status = status
	}
	if req.Category != "" && req.Category != models.FilterAll {
		category := models.IssueCategory(req.Category)
		if !category.Valid() {
			return store.NearQuery{}, newError(KindInvalidArgument, "Invalid category")
		}
		filter.Category = category
	}

	return store.NearQuery{
		Point:             point,
		MaxDistanceMeters: radiusKm * 1000,
		Filter:            filter,
	}, nil
}

// resolveReporters fills ReporterName for non-anonymous issues. A failed
// lookup leaves names empty rather than failing the query.
func (q *QueryEngine) resolveReporters(ctx context.Context, issues []models.Issue) {
	if q.directory == nil {
		return
	}

	seen := make(map[primitive.ObjectID]bool)
	ids := make([]primitive.ObjectID, 0)
	for i := range issues {
		if issues[i].IsAnonymous || issues[i].ReportedBy == nil {
			continue
		}
		if id := *issues[i].ReportedBy; !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return
	}

	names, err := q.directory.DisplayNames(ctx, ids)
	if err != nil {
		logger.L().Warn("reporter_lookup_failed", "err", err, "count", len(ids))
		return
	}
	for i := range issues {
		if issues[i].IsAnonymous || issues[i].ReportedBy == nil {
			continue
		}
		issues[i].ReporterName = names[*issues[i].ReportedBy]
	}
}
