package repository

import (
	"context"
	"time"

	"forum/internal/feed"
	"forum/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostSearch selects and orders posts for the search endpoints.
type PostSearch struct {
	Query       string
	CommunityID *uint
	SortBy      string // score, title, author or createdAt
	Desc        bool
	Page        feed.PageRequest
}

var postSearchColumns = map[string]string{
	"score":     "posts.score",
	"title":     "posts.title",
	"author":    "users.username",
	"createdAt": "posts.created_at",
}

// PostRepository defines the interface for post data operations.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	Exists(ctx context.Context, id uint) (bool, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	Feed(ctx context.Context, communityID *uint, req feed.PageRequest) (feed.Page[*models.Post], error)
	ListByAuthor(ctx context.Context, authorID uint, req feed.PageRequest) (feed.Page[*models.Post], error)
	AddAttachments(ctx context.Context, postID uint, urls []string) error
	RemoveAttachment(ctx context.Context, postID uint, url string) (bool, error)
	Search(ctx context.Context, s PostSearch) (feed.Page[*models.Post], error)
	SuggestTitles(ctx context.Context, query string, limit int) ([]string, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func withPostDetails(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").Preload("Community").Preload("Attachments", func(db *gorm.DB) *gorm.DB {
		return db.Order("post_attachments.id ASC")
	})
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := withPostDetails(r.db.WithContext(ctx)).First(&post, id).Error; err != nil {
		return nil, notFoundOr(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// Update writes title and content. Score is owned by the vote ledger and is
// never written here.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	post.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", post.ID).
		Updates(map[string]interface{}{
			"title":      post.Title,
			"content":    post.Content,
			"updated_at": post.UpdatedAt,
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", post.ID)
	}
	return nil
}

// Delete removes the post together with everything that hangs off it.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commentIDs := tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", id)
		steps := []*gorm.DB{
			tx.Where("comment_id IN (?)", commentIDs).Delete(&models.CommentVote{}),
			tx.Where("post_id = ?", id).Delete(&models.Comment{}),
			tx.Where("post_id = ?", id).Delete(&models.Vote{}),
			tx.Where("post_id = ?", id).Delete(&models.PostSave{}),
			tx.Where("post_id = ?", id).Delete(&models.PostAttachment{}),
		}
		for _, step := range steps {
			if step.Error != nil {
				return models.NewInternalError(step.Error)
			}
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
		}
		return nil
	})
}

// Feed pages posts, optionally within one community, in the order req.Sort defines.
func (r *postRepository) Feed(ctx context.Context, communityID *uint, req feed.PageRequest) (feed.Page[*models.Post], error) {
	base := r.db.WithContext(ctx).Model(&models.Post{})
	if communityID != nil {
		base = base.Where("community_id = ?", *communityID)
	}
	return paged[*models.Post](base, req, func(q *gorm.DB) *gorm.DB {
		return withPostDetails(q).Clauses(req.Sort.OrderBy())
	})
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID uint, req feed.PageRequest) (feed.Page[*models.Post], error) {
	base := r.db.WithContext(ctx).Model(&models.Post{}).Where("author_id = ?", authorID)
	return paged[*models.Post](base, req, func(q *gorm.DB) *gorm.DB {
		return withPostDetails(q).Clauses(feed.SortNew.OrderBy())
	})
}

// AddAttachments records urls on the post, ignoring ones already present.
func (r *postRepository) AddAttachments(ctx context.Context, postID uint, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	rows := make([]models.PostAttachment, 0, len(urls))
	for _, u := range urls {
		rows = append(rows, models.PostAttachment{PostID: postID, URL: u})
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) RemoveAttachment(ctx context.Context, postID uint, url string) (bool, error) {
	res := r.db.WithContext(ctx).Where("post_id = ? AND url = ?", postID, url).Delete(&models.PostAttachment{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Search matches title, content, author username or display name, ignoring case.
func (r *postRepository) Search(ctx context.Context, s PostSearch) (feed.Page[*models.Post], error) {
	like := containsPattern(s.Query)
	base := r.db.WithContext(ctx).Model(&models.Post{}).
		Joins("JOIN users ON users.id = posts.author_id").
		Where(`LOWER(posts.title) LIKE ? ESCAPE '\' OR LOWER(posts.content) LIKE ? ESCAPE '\' OR LOWER(users.username) LIKE ? ESCAPE '\' OR LOWER(users.display_name) LIKE ? ESCAPE '\'`,
			like, like, like, like)
	if s.CommunityID != nil {
		base = base.Where("posts.community_id = ?", *s.CommunityID)
	}

	column, ok := postSearchColumns[s.SortBy]
	if !ok {
		column = postSearchColumns["createdAt"]
	}
	order := clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Name: column, Raw: true}, Desc: s.Desc},
		{Column: clause.Column{Name: "posts.id", Raw: true}, Desc: true},
	}}
	return paged[*models.Post](base, s.Page, func(q *gorm.DB) *gorm.DB {
		return withPostDetails(q.Select("posts.*")).Clauses(order)
	})
}

// SuggestTitles returns up to limit matching titles, highest score first.
func (r *postRepository) SuggestTitles(ctx context.Context, query string, limit int) ([]string, error) {
	var titles []string
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where(`LOWER(title) LIKE ? ESCAPE '\'`, containsPattern(query)).
		Order("score DESC").Order("created_at DESC").
		Limit(limit).
		Pluck("title", &titles).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return titles, nil
}
