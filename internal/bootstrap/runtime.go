// Package bootstrap prepares the database and cache a process runs against.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"forum/internal/config"
	"forum/internal/database"
	"forum/internal/middleware"
	"forum/internal/models"
	"forum/internal/seed"
	"forum/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SkipRedis bool
}

// InitRuntime connects to the database and Redis, then prepares the data
// every deployment needs. The Redis client is nil when Redis is unreachable
// or skipped.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if err := Prepare(ctx, cfg, db); err != nil {
		return nil, nil, err
	}

	var rdb *redis.Client
	if !opts.SkipRedis {
		rdb = database.ConnectRedis(ctx, cfg.RedisURL)
	}
	return db, rdb, nil
}

// Prepare ensures the roles, the configured admin account and, when
// enabled, the built-in communities. It is safe to run on every start.
func Prepare(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	svc := seed.NewServices(db, nil)

	if err := svc.Users.EnsureRoles(ctx, models.RoleUser, models.RoleAdmin); err != nil {
		return fmt.Errorf("ensure roles: %w", err)
	}
	if err := ensureAdmin(ctx, cfg, svc.Users); err != nil {
		return fmt.Errorf("ensure admin account: %w", err)
	}
	if cfg.SeedCommunities {
		created, err := seed.Communities(ctx, svc.Communities, seed.BuiltInCommunities())
		if err != nil {
			return err
		}
		if created > 0 {
			middleware.Logger.Info("Seeded built-in communities", slog.Int("created", created))
		}
	}
	return nil
}

// ensureAdmin does nothing until ADMIN_PASSWORD is set.
func ensureAdmin(ctx context.Context, cfg *config.Config, users *service.UserService) error {
	if cfg.AdminPassword == "" {
		return nil
	}
	username := strings.TrimSpace(cfg.AdminUsername)
	if username == "" {
		username = "admin"
	}
	email := strings.TrimSpace(cfg.AdminEmail)
	if email == "" {
		email = username + "@forum.local"
	}

	user, created, err := users.EnsureAccount(ctx, service.RegisterInput{
		Username:    username,
		Email:       email,
		Password:    cfg.AdminPassword,
		DisplayName: "Administrator",
	}, models.RoleUser, models.RoleAdmin)
	if err != nil {
		return err
	}
	middleware.Logger.Info("Admin account ensured",
		slog.String("username", user.Username),
		slog.Bool("created", created),
	)
	return nil
}
