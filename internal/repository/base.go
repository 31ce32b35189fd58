// Package repository provides data access layer implementations for the application.
package repository

import (
	"errors"
	"strings"

	"forum/internal/database"
	"forum/internal/feed"
	"forum/internal/models"

	"gorm.io/gorm"
)

// notFoundOr maps a missing row to a NotFound error and anything else to an
// internal error.
func notFoundOr(err error, resource string, key interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, key)
	}
	return models.NewInternalError(err)
}

// conflictOr maps a unique violation to a Conflict error carrying message.
func conflictOr(err error, message string) error {
	if database.IsUniqueViolation(err) {
		return models.NewConflictError(message)
	}
	return models.NewInternalError(err)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a lowercase LIKE pattern matching q anywhere.
// Callers compare it against LOWER(column) with ESCAPE '\'.
func containsPattern(q string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(q))) + "%"
}

// paged counts base, then loads the requested page into dest when it is in range.
func paged[T any](base *gorm.DB, req feed.PageRequest, load func(q *gorm.DB) *gorm.DB) (feed.Page[T], error) {
	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return feed.Page[T]{}, models.NewInternalError(err)
	}
	if int64(req.Offset()) >= total {
		return feed.NewPage[T](nil, req, total), nil
	}

	var items []T
	if err := load(base.Session(&gorm.Session{})).Limit(req.Size).Offset(req.Offset()).Find(&items).Error; err != nil {
		return feed.Page[T]{}, models.NewInternalError(err)
	}
	return feed.NewPage(items, req, total), nil
}
