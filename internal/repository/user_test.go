package repository

import (
	"context"
	"errors"
	"testing"

	"forum/internal/feed"
	"forum/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_ExistsByUsername_Mock(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "users" WHERE username = \$1`).
		WithArgs("testuser").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.ExistsByUsername(context.Background(), "testuser")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateWithRoles(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash", Enabled: true}
	require.NoError(t, repo.Create(ctx, user, models.RoleUser, models.RoleAdmin))
	require.NotZero(t, user.ID)

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, got.HasRole(models.RoleUser))
	assert.True(t, got.HasRole(models.RoleAdmin))

	second := &models.User{Username: "bob", Email: "bob@example.com", PasswordHash: "hash", Enabled: true}
	require.NoError(t, repo.Create(ctx, second, models.RoleUser))

	var roles int64
	require.NoError(t, db.Model(&models.Role{}).Count(&roles).Error)
	assert.Equal(t, int64(2), roles, "roles are shared, not duplicated")
}

func TestUserRepository_CreateDuplicateIsConflict(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{Username: "alice", Email: "a@example.com", PasswordHash: "x"}))

	err := repo.Create(ctx, &models.User{Username: "alice", Email: "other@example.com", PasswordHash: "x"})
	assert.True(t, errors.Is(err, models.ErrConflict))

	err = repo.Create(ctx, &models.User{Username: "carol", Email: "a@example.com", PasswordHash: "x"})
	assert.True(t, errors.Is(err, models.ErrConflict))
}

func TestUserRepository_Lookups(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	alice := mustUser(t, db, "alice")

	got, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	ok, err := repo.ExistsByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.ExistsByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.True(t, errors.Is(err, models.ErrNotFound))
	_, err = repo.GetByID(ctx, 999)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestUserRepository_UpdateProfile(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	alice := mustUser(t, db, "alice")

	alice.DisplayName = "Alice A."
	alice.AvatarURL = "/uploads/avatars/a.png"
	alice.Username = "renamed"
	require.NoError(t, repo.Update(ctx, alice))

	got, err := repo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice A.", got.DisplayName)
	assert.Equal(t, "/uploads/avatars/a.png", got.AvatarURL)
	assert.Equal(t, "alice", got.Username)
}

func TestUserRepository_GrantAndRevoke(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	alice := mustUser(t, db, "alice")

	has, err := repo.HasRole(ctx, alice.ID, models.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, repo.GrantRole(ctx, alice.ID, models.RoleAdmin))
	require.NoError(t, repo.GrantRole(ctx, alice.ID, models.RoleAdmin))
	has, err = repo.HasRole(ctx, alice.ID, models.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, repo.RevokeRole(ctx, alice.ID, models.RoleAdmin))
	has, err = repo.HasRole(ctx, alice.ID, models.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, repo.RevokeRole(ctx, alice.ID, "ROLE_UNKNOWN"))

	err = repo.GrantRole(ctx, 999, models.RoleAdmin)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestUserRepository_Search(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	mustUser(t, db, "zed_rider")
	mustUser(t, db, "alice")
	mustUser(t, db, "rita")

	req, _ := feed.NewPageRequest(nil, nil, "")
	got, err := repo.Search(ctx, "RI", req)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "rita", got.Items[0].Username)
	assert.Equal(t, "zed_rider", got.Items[1].Username)

	got, err = repo.Search(ctx, "_", req)
	require.NoError(t, err)
	require.Len(t, got.Items, 1, "underscore is matched literally")
}
