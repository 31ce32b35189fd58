package repository

import (
	"context"
	"time"

	"forum/internal/feed"
	"forum/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error)
	Update(ctx context.Context, comment *models.Comment) error
	DeleteMany(ctx context.Context, ids []uint) error
	Search(ctx context.Context, query string, req feed.PageRequest) (feed.Page[*models.Comment], error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Preload("Author").First(&comment, id).Error; err != nil {
		return nil, notFoundOr(err, "Comment", id)
	}
	return &comment, nil
}

// ListByPost returns the post's comments flat, oldest first with ties broken by id.
func (r *commentRepository) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at ASC").Order("id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

// Update writes the content only.
func (r *commentRepository) Update(ctx context.Context, comment *models.Comment) error {
	comment.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", comment.ID).
		Updates(map[string]interface{}{"content": comment.Content, "updated_at": comment.UpdatedAt})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", comment.ID)
	}
	return nil
}

// DeleteMany removes the comments and their votes in one transaction.
func (r *commentRepository) DeleteMany(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("comment_id IN ?", ids).Delete(&models.CommentVote{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Where("id IN ?", ids).Delete(&models.Comment{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
}

// Search matches comment content or author, newest first.
func (r *commentRepository) Search(ctx context.Context, query string, req feed.PageRequest) (feed.Page[*models.Comment], error) {
	like := containsPattern(query)
	base := r.db.WithContext(ctx).Model(&models.Comment{}).
		Joins("JOIN users ON users.id = comments.author_id").
		Where(`LOWER(comments.content) LIKE ? ESCAPE '\' OR LOWER(users.username) LIKE ? ESCAPE '\' OR LOWER(users.display_name) LIKE ? ESCAPE '\'`, like, like, like)
	return paged[*models.Comment](base, req, func(q *gorm.DB) *gorm.DB {
		return q.Select("comments.*").Preload("Author").
			Order("comments.created_at DESC").Order("comments.id DESC")
	})
}
