package identity

import (
	"context"
	"testing"

	"civictrack-be/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMemoryUsersCreateAndFind(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryUsers()

	user := &models.User{Name: "Asha", Email: " Asha@Example.com ", PasswordHash: "hashed"}
	require.NoError(t, users.Create(ctx, user))
	assert.False(t, user.ID.IsZero())
	assert.Equal(t, "asha@example.com", user.Email)

	byEmail, err := users.FindByEmail(ctx, "ASHA@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha", byID.Name)

	_, err = users.FindByID(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = users.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMemoryUsersRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryUsers()

	require.NoError(t, users.Create(ctx, &models.User{Name: "A", Email: "dup@example.com"}))
	err := users.Create(ctx, &models.User{Name: "B", Email: "DUP@example.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestMemoryUsersDisplayNames(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryUsers()
	user := &models.User{Name: "Ravi", Email: "ravi@example.com"}
	require.NoError(t, users.Create(ctx, user))

	unknown := primitive.NewObjectID()
	names, err := users.DisplayNames(ctx, []primitive.ObjectID{user.ID, unknown})
	require.NoError(t, err)
	assert.Equal(t, map[primitive.ObjectID]string{user.ID: "Ravi"}, names)
}
