package service

import (
	"context"

	"forum/internal/feed"
	"forum/internal/models"
	"forum/internal/repository"
)

type SaveService struct {
	saves repository.SaveRepository
	posts repository.PostRepository
	users repository.UserRepository
}

func NewSaveService(saves repository.SaveRepository, posts repository.PostRepository, users repository.UserRepository) *SaveService {
	return &SaveService{saves: saves, posts: posts, users: users}
}

// Save bookmarks a post. It reports false when the post was already saved.
func (s *SaveService) Save(ctx context.Context, postID uint, username string) (bool, error) {
	user, err := s.resolve(ctx, postID, username)
	if err != nil {
		return false, err
	}
	return s.saves.Save(ctx, user.ID, postID)
}

// Unsave reports false when the post was not saved.
func (s *SaveService) Unsave(ctx context.Context, postID uint, username string) (bool, error) {
	user, err := s.resolve(ctx, postID, username)
	if err != nil {
		return false, err
	}
	return s.saves.Unsave(ctx, user.ID, postID)
}

// IsSaved is false for a blank username.
func (s *SaveService) IsSaved(ctx context.Context, postID uint, username string) (bool, error) {
	if username == "" {
		return false, nil
	}
	user, err := s.resolve(ctx, postID, username)
	if err != nil {
		return false, err
	}
	return s.saves.IsSaved(ctx, user.ID, postID)
}

// Saved pages the user's saved posts, most recently saved first.
func (s *SaveService) Saved(ctx context.Context, username string, page, size *int) (feed.Page[*models.PostSave], error) {
	req, err := feed.NewPageRequest(page, size, "")
	if err != nil {
		return feed.Page[*models.PostSave]{}, err
	}
	user, err := actor(ctx, s.users, username)
	if err != nil {
		return feed.Page[*models.PostSave]{}, err
	}
	return s.saves.ListSaved(ctx, user.ID, req)
}

func (s *SaveService) resolve(ctx context.Context, postID uint, username string) (*models.User, error) {
	user, err := actor(ctx, s.users, username)
	if err != nil {
		return nil, err
	}
	ok, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewNotFoundError("Post", postID)
	}
	return user, nil
}
