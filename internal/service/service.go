// Package service implements the forum's use cases on top of the repositories.
// Every operation that acts for a user takes that user's username explicitly.
package service

import (
	"context"
	"strings"

	"forum/internal/models"
	"forum/internal/repository"
)

// actor resolves the acting user. A blank username means the caller is not
// signed in.
func actor(ctx context.Context, users repository.UserRepository, username string) (*models.User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	return users.GetByUsername(ctx, username)
}

// canModify reports whether user may edit or delete something authored by authorID.
func canModify(user *models.User, authorID uint, allowAdmin bool) bool {
	if user.ID == authorID {
		return true
	}
	return allowAdmin && user.HasRole(models.RoleAdmin)
}
