package bootstrap

import (
	"path/filepath"
	"testing"

	"forum/internal/config"
	"forum/internal/models"
	"forum/internal/seed"
	"forum/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env:             "test",
		DBDriver:        "sqlite",
		DBSQLitePath:    filepath.Join(t.TempDir(), "forum.db"),
		AdminUsername:   "Root",
		AdminEmail:      "root@example.com",
		AdminPassword:   "Adm1n@pass",
		SeedCommunities: true,
	}
}

func TestInitRuntime(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.RedisURL = mr.Addr()

	db, rdb, err := InitRuntime(t.Context(), cfg, Options{})
	require.NoError(t, err)
	require.NotNil(t, rdb)
	t.Cleanup(func() { _ = rdb.Close() })

	var admin models.User
	require.NoError(t, db.Preload("Roles").Where("username = ?", "root").First(&admin).Error)
	assert.True(t, admin.HasRole(models.RoleAdmin))
	assert.True(t, admin.HasRole(models.RoleUser))

	var names []string
	require.NoError(t, db.Model(&models.Community{}).Order("name").Pluck("name", &names).Error)
	assert.Contains(t, names, "general")
	assert.Len(t, names, len(seed.BuiltInCommunities()))
}

func TestInitRuntime_SkipRedis(t *testing.T) {
	_, rdb, err := InitRuntime(t.Context(), testConfig(t), Options{SkipRedis: true})
	require.NoError(t, err)
	assert.Nil(t, rdb)
}

func TestPrepare_Idempotent(t *testing.T) {
	cfg := testConfig(t)
	db, _, err := InitRuntime(t.Context(), cfg, Options{SkipRedis: true})
	require.NoError(t, err)

	require.NoError(t, Prepare(t.Context(), cfg, db))

	var users, roles, communities int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.Role{}).Count(&roles).Error)
	require.NoError(t, db.Model(&models.Community{}).Count(&communities).Error)
	assert.Equal(t, int64(1), users)
	assert.Equal(t, int64(2), roles)
	assert.Equal(t, int64(len(seed.BuiltInCommunities())), communities)
}

func TestPrepare_PromotesExistingAccount(t *testing.T) {
	cfg := testConfig(t)
	cfg.AdminPassword = ""
	cfg.SeedCommunities = false
	db, _, err := InitRuntime(t.Context(), cfg, Options{SkipRedis: true})
	require.NoError(t, err)

	svc := seed.NewServices(db, nil)
	_, err = svc.Users.Register(t.Context(), service.RegisterInput{
		Username:    "root",
		Email:       "root@example.com",
		Password:    seed.Password,
		DisplayName: "Root",
	})
	require.NoError(t, err)
	isAdmin, err := svc.Users.IsAdmin(t.Context(), "root")
	require.NoError(t, err)
	require.False(t, isAdmin)

	var communities int64
	require.NoError(t, db.Model(&models.Community{}).Count(&communities).Error)
	assert.Zero(t, communities)

	cfg.AdminPassword = "Adm1n@pass"
	require.NoError(t, Prepare(t.Context(), cfg, db))
	isAdmin, err = svc.Users.IsAdmin(t.Context(), "root")
	require.NoError(t, err)
	assert.True(t, isAdmin)
}
