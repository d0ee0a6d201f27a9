package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"civictrack-be/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps issues in the "issues" collection with a 2dsphere index
// on location.coordinates.
type MongoStore struct {
	issues *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{issues: db.Collection("issues")}
}

// EnsureIndexes creates the geo and recency indexes. Safe to call on every start.
func (s *MongoStore) EnsureIndexes() error {
	return models.EnsureIssueIndexes(s.issues)
}

func (s *MongoStore) Insert(ctx context.Context, issue *models.Issue) (primitive.ObjectID, error) {
	if err := locationPoint(issue).Validate(); err != nil {
		return primitive.NilObjectID, err
	}
	if issue.ID.IsZero() {
		issue.ID = primitive.NewObjectID()
	}
	issue.Version = 0

	if _, err := s.issues.InsertOne(ctx, issue); err != nil {
		return primitive.NilObjectID, unavailable(err)
	}
	return issue.ID, nil
}

func (s *MongoStore) Get(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	var issue models.Issue
	err := s.issues.FindOne(ctx, bson.M{"_id": id}).Decode(&issue)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, unavailable(err)
	}
	return &issue, nil
}

func (s *MongoStore) QueryNear(ctx context.Context, q NearQuery) ([]models.Issue, error) {
	if err := q.Point.Validate(); err != nil {
		return nil, err
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := s.issues.Find(ctx, nearFilter(q), findOptions)
	if err != nil {
		return nil, unavailable(err)
	}
	defer cursor.Close(ctx)

	issues := make([]models.Issue, 0)
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, unavailable(err)
	}
	return issues, nil
}

// Update loads the issue, applies mutate to a copy and replaces the stored
// document only if its version is unchanged.
func (s *MongoStore) Update(ctx context.Context, id primitive.ObjectID, mutate MutateFunc) (*models.Issue, error) {
	return updateVersioned(ctx, s, id, mutate)
}

// replaceIfVersion writes next over the stored document when the stored
// version still equals expected. It reports whether the write landed.
func (s *MongoStore) replaceIfVersion(ctx context.Context, next *models.Issue, expected int64) (bool, error) {
	res, err := s.issues.ReplaceOne(ctx, bson.M{"_id": next.ID, "version": expected}, next)
	if err != nil {
		return false, unavailable(err)
	}
	return res.MatchedCount == 1, nil
}

// versionedDocuments is the slice of MongoStore the retry loop needs.
type versionedDocuments interface {
	Get(ctx context.Context, id primitive.ObjectID) (*models.Issue, error)
	replaceIfVersion(ctx context.Context, next *models.Issue, expected int64) (bool, error)
}

// updateVersioned runs the compare-and-swap loop. On a lost race it reloads
// and runs mutate again on the fresh document, up to maxUpdateAttempts.
func updateVersioned(ctx context.Context, docs versionedDocuments, id primitive.ObjectID, mutate MutateFunc) (*models.Issue, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		current, err := docs.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		next := current.Clone()
		if err := mutate(next); err != nil {
			return nil, err
		}
		next.ID = current.ID
		next.Version = current.Version + 1

		landed, err := docs.replaceIfVersion(ctx, next, current.Version)
		if err != nil {
			return nil, err
		}
		if landed {
			return next, nil
		}
	}
	return nil, ErrVersionConflict
}

func (s *MongoStore) ListFlagged(ctx context.Context) ([]models.Issue, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"flags.0": bson.M{"$exists": true}}}},
		{{Key: "$addFields", Value: bson.M{"flagCount": bson.M{"$size": "$flags"}}}},
		{{Key: "$sort", Value: bson.D{{Key: "flagCount", Value: -1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$project", Value: bson.M{"flagCount": 0}}},
	}

	cursor, err := s.issues.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, unavailable(err)
	}
	defer cursor.Close(ctx)

	issues := make([]models.Issue, 0)
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, unavailable(err)
	}
	return issues, nil
}

func (s *MongoStore) Stats(ctx context.Context) (*Stats, error) {
	stats := newStats()

	var err error
	if stats.Total, err = s.issues.CountDocuments(ctx, bson.M{}); err != nil {
		return nil, unavailable(err)
	}
	if stats.Flagged, err = s.issues.CountDocuments(ctx, bson.M{"flags.0": bson.M{"$exists": true}}); err != nil {
		return nil, unavailable(err)
	}
	if stats.Hidden, err = s.issues.CountDocuments(ctx, bson.M{"isHidden": true}); err != nil {
		return nil, unavailable(err)
	}

	byStatus, err := s.countBy(ctx, "$status")
	if err != nil {
		return nil, err
	}
	for name, count := range byStatus {
		stats.ByStatus[models.IssueStatus(name)] = count
	}

	byCategory, err := s.countBy(ctx, "$category")
	if err != nil {
		return nil, err
	}
	for name, count := range byCategory {
		stats.ByCategory[models.IssueCategory(name)] = count
	}
	stats.tallyStatuses()
	return stats, nil
}

func (s *MongoStore) countBy(ctx context.Context, field string) (map[string]int64, error) {
	pipeline := []bson.M{
		{
			"$group": bson.M{
				"_id":   field,
				"count": bson.M{"$sum": 1},
			},
		},
	}

	cursor, err := s.issues.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, unavailable(err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Name  string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, unavailable(err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Name] = row.Count
	}
	return counts, nil
}

// nearFilter translates a NearQuery into a single MongoDB filter document.
func nearFilter(q NearQuery) bson.M {
	filter := bson.M{
		"location.coordinates": bson.M{
			"$geoWithin": bson.M{
				"$centerSphere": bson.A{
					bson.A{q.Point.Longitude, q.Point.Latitude},
					radiansFor(q.MaxDistanceMeters),
				},
			},
		},
	}

	if !q.Filter.IncludeHidden {
		filter["isHidden"] = bson.M{"$ne": true}
	}
	if q.Filter.Status != "" {
		filter["status"] = q.Filter.Status
	}
	if q.Filter.Category != "" {
		filter["category"] = q.Filter.Category
	}
	if q.Filter.Search != "" {
		pattern := regexp.QuoteMeta(q.Filter.Search)
		filter["$or"] = []bson.M{
			{"title": bson.M{"$regex": pattern, "$options": "i"}},
			{"description": bson.M{"$regex": pattern, "$options": "i"}},
		}
	}
	return filter
}

func unavailable(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
