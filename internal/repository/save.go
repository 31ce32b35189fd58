package repository

import (
	"context"
	"time"

	"forum/internal/feed"
	"forum/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaveRepository stores the posts a user bookmarked.
type SaveRepository interface {
	Save(ctx context.Context, userID, postID uint) (bool, error)
	Unsave(ctx context.Context, userID, postID uint) (bool, error)
	IsSaved(ctx context.Context, userID, postID uint) (bool, error)
	ListSaved(ctx context.Context, userID uint, req feed.PageRequest) (feed.Page[*models.PostSave], error)
}

type saveRepository struct {
	db *gorm.DB
}

// NewSaveRepository creates a new SaveRepository.
func NewSaveRepository(db *gorm.DB) SaveRepository {
	return &saveRepository{db: db}
}

// Save reports false when the post was already saved.
func (r *saveRepository) Save(ctx context.Context, userID, postID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.PostSave{UserID: userID, PostID: postID, SavedAt: time.Now()})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Unsave reports false when the post was not saved.
func (r *saveRepository) Unsave(ctx context.Context, userID, postID uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.PostSave{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *saveRepository) IsSaved(ctx context.Context, userID, postID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PostSave{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// ListSaved pages the user's saves, most recently saved first.
func (r *saveRepository) ListSaved(ctx context.Context, userID uint, req feed.PageRequest) (feed.Page[*models.PostSave], error) {
	base := r.db.WithContext(ctx).Model(&models.PostSave{}).Where("user_id = ?", userID)
	return paged[*models.PostSave](base, req, func(q *gorm.DB) *gorm.DB {
		return q.Preload("Post").Preload("Post.Author").Preload("Post.Community").
			Order("saved_at DESC").Order("id DESC")
	})
}
