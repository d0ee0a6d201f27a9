// Package identity resolves user ids to the display names shown next to issues.
package identity

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Directory looks up display names. Unknown ids are absent from the result.
type Directory interface {
	DisplayNames(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error)
}

// MongoDirectory reads names from the users collection.
type MongoDirectory struct {
	users *mongo.Collection
}

func NewMongoDirectory(db *mongo.Database) *MongoDirectory {
	return &MongoDirectory{users: db.Collection("users")}
}

func (d *MongoDirectory) DisplayNames(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	names := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	findOptions := options.Find().SetProjection(bson.M{"_id": 1, "name": 1})
	cursor, err := d.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID   primitive.ObjectID `bson:"_id"`
		Name string             `bson:"name"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	for _, row := range rows {
		names[row.ID] = row.Name
	}
	return names, nil
}

// StaticDirectory serves names from a fixed map. Used when no user store is
// configured and in tests.
type StaticDirectory map[primitive.ObjectID]string

func (d StaticDirectory) DisplayNames(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	names := make(map[primitive.ObjectID]string, len(ids))
	for _, id := range ids {
		if name, ok := d[id]; ok {
			names[id] = name
		}
	}
	return names, nil
}
