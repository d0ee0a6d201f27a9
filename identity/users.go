package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"civictrack-be/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("user with this email already exists")
)

// UserStore persists registered accounts.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// MongoUsers stores accounts in the users collection. Email uniqueness is
// backed by the index from models.EnsureUserIndexes.
type MongoUsers struct {
	users *mongo.Collection
}

func NewMongoUsers(db *mongo.Database) *MongoUsers {
	return &MongoUsers{users: db.Collection("users")}
}

func (u *MongoUsers) Create(ctx context.Context, user *models.User) error {
	user.Email = normalizeEmail(user.Email)
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if _, err := u.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (u *MongoUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return u.findOne(ctx, bson.M{"email": normalizeEmail(email)})
}

func (u *MongoUsers) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return u.findOne(ctx, bson.M{"_id": id})
}

func (u *MongoUsers) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := u.users.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// MemoryUsers keeps accounts in process. It doubles as the Directory for the
// memory store driver.
type MemoryUsers struct {
	mu      sync.RWMutex
	byID    map[primitive.ObjectID]models.User
	byEmail map[string]primitive.ObjectID
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{
		byID:    make(map[primitive.ObjectID]models.User),
		byEmail: make(map[string]primitive.ObjectID),
	}
}

func (u *MemoryUsers) Create(_ context.Context, user *models.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	user.Email = normalizeEmail(user.Email)
	if _, taken := u.byEmail[user.Email]; taken {
		return ErrEmailTaken
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	u.byID[user.ID] = *user
	u.byEmail[user.Email] = user.ID
	return nil
}

func (u *MemoryUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	id, ok := u.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	user := u.byID[id]
	return &user, nil
}

func (u *MemoryUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	user, ok := u.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

func (u *MemoryUsers) DisplayNames(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	names := make(map[primitive.ObjectID]string, len(ids))
	for _, id := range ids {
		if user, ok := u.byID[id]; ok {
			names[id] = user.Name
		}
	}
	return names, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
