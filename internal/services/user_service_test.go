package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bluestore/server/internal/db"
	"bluestore/server/internal/utils"
)

func newUserFixture(t *testing.T, dbName string) IUserService {
	database := utils.SetupTestDB(t, dbName, "users")
	// Email uniqueness is index-enforced
	require.NoError(t, db.EnsureIndexes(context.Background(), database))
	return NewUserService(database)
}

func TestUserService_RegisterAndAuthenticate(t *testing.T) {
	svc := newUserFixture(t, "testdb_user_register")
	ctx := context.Background()

	user, err := svc.Register(ctx, "kofi@example.com", "s3cret-pass", "Kofi Adjei", "+233201234567")
	require.NoError(t, err)
	assert.Equal(t, "kofi@example.com", user.Email)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash, "password must be stored hashed")
	assert.False(t, user.IsAdmin)

	// Email uniqueness
	_, err = svc.Register(ctx, "kofi@example.com", "other-pass", "Impostor", "")
	assert.ErrorIs(t, err, ErrEmailTaken)

	authed, err := svc.Authenticate(ctx, "kofi@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)

	_, err = svc.Authenticate(ctx, "kofi@example.com", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserService_SuspensionBlocksLogin(t *testing.T) {
	svc := newUserFixture(t, "testdb_user_suspend")
	ctx := context.Background()

	user, err := svc.Register(ctx, "ama@example.com", "s3cret-pass", "Ama Mensah", "")
	require.NoError(t, err)

	require.NoError(t, svc.SetSuspended(ctx, user.ID, true))

	_, err = svc.Authenticate(ctx, "ama@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	found, err := svc.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, found.Suspended)

	// Lift the suspension
	require.NoError(t, svc.SetSuspended(ctx, user.ID, false))
	_, err = svc.Authenticate(ctx, "ama@example.com", "s3cret-pass")
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.SetSuspended(ctx, primitive.NewObjectID(), true), ErrUserNotFound)
}
