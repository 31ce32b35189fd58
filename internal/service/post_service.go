package service

import (
	"context"
	"log/slog"

	"forum/internal/events"
	"forum/internal/feed"
	"forum/internal/models"
	"forum/internal/observability"
	"forum/internal/repository"
	"forum/internal/storage"
	"forum/internal/validation"
)

type PostService struct {
	posts       repository.PostRepository
	communities repository.CommunityRepository
	users       repository.UserRepository
	files       storage.FileStore
	events      events.Publisher
}

type CreatePostInput struct {
	Username    string `json:"-"`
	Title       string `json:"title" validate:"notblank,min=3,max=200"`
	Content     string `json:"content" validate:"notblank,min=3,max=10000"`
	CommunityID uint   `json:"communityId" validate:"required"`
}

type UpdatePostInput struct {
	Username string `json:"-"`
	PostID   uint   `json:"-"`
	Title    string `json:"title" validate:"notblank,min=3,max=200"`
	Content  string `json:"content" validate:"notblank,min=3,max=10000"`
}

// FeedQuery carries the raw paging parameters of a listing request.
type FeedQuery struct {
	Page *int
	Size *int
	Sort string
}

func (q FeedQuery) request() (feed.PageRequest, error) {
	return feed.NewPageRequest(q.Page, q.Size, q.Sort)
}

// NewPostService wires the post use cases. files may be nil, in which case
// stored attachment files are left in place when a post goes away.
func NewPostService(
	posts repository.PostRepository,
	communities repository.CommunityRepository,
	users repository.UserRepository,
	files storage.FileStore,
	pub events.Publisher,
) *PostService {
	return &PostService{posts: posts, communities: communities, users: users, files: files, events: pub}
}

func (s *PostService) Create(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if err := validation.Check(in); err != nil {
		return nil, err
	}
	user, err := actor(ctx, s.users, in.Username)
	if err != nil {
		return nil, err
	}
	community, err := s.communities.GetByID(ctx, in.CommunityID)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:       in.Title,
		Content:     in.Content,
		AuthorID:    user.ID,
		CommunityID: community.ID,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	post.Author = user
	post.Community = community
	post.Attachments = []models.PostAttachment{}
	observability.PostsCreated.Inc()

	evt := events.New(events.PostCreated)
	evt.UserID = user.ID
	evt.CommunityID = community.ID
	evt.PostID = post.ID
	evt.Data = map[string]interface{}{"title": post.Title}
	events.Emit(ctx, s.events, evt)

	return post, nil
}

func (s *PostService) Get(ctx context.Context, id uint) (*models.Post, error) {
	return s.posts.GetByID(ctx, id)
}

// Feed ranks posts across every community.
func (s *PostService) Feed(ctx context.Context, q FeedQuery) (feed.Page[*models.Post], error) {
	req, err := q.request()
	if err != nil {
		return feed.Page[*models.Post]{}, err
	}
	return s.posts.Feed(ctx, nil, req)
}

// ByCommunity ranks the posts of one community.
func (s *PostService) ByCommunity(ctx context.Context, name string, q FeedQuery) (feed.Page[*models.Post], error) {
	req, err := q.request()
	if err != nil {
		return feed.Page[*models.Post]{}, err
	}
	community, err := s.communities.GetByName(ctx, name)
	if err != nil {
		return feed.Page[*models.Post]{}, err
	}
	return s.posts.Feed(ctx, &community.ID, req)
}

// ListByAuthor pages a user's posts, newest first.
func (s *PostService) ListByAuthor(ctx context.Context, username string, q FeedQuery) (feed.Page[*models.Post], error) {
	req, err := q.request()
	if err != nil {
		return feed.Page[*models.Post]{}, err
	}
	author, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return feed.Page[*models.Post]{}, err
	}
	return s.posts.ListByAuthor(ctx, author.ID, req)
}

// Update edits title and content. Only the author may edit.
func (s *PostService) Update(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	if err := validation.Check(in); err != nil {
		return nil, err
	}
	post, _, err := s.owned(ctx, in.PostID, in.Username, false)
	if err != nil {
		return nil, err
	}
	post.Title = in.Title
	post.Content = in.Content
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Delete removes a post with its comments, votes, saves and attachments.
// Authors may delete their own posts; admins may delete any.
func (s *PostService) Delete(ctx context.Context, postID uint, username string) error {
	post, _, err := s.owned(ctx, postID, username, true)
	if err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, post.ID); err != nil {
		return err
	}
	for _, url := range post.AttachmentURLs() {
		s.removeFile(ctx, url)
	}
	return nil
}

// AddAttachments records already stored file URLs on a post the user authored.
func (s *PostService) AddAttachments(ctx context.Context, postID uint, username string, urls []string) (*models.Post, error) {
	if _, _, err := s.owned(ctx, postID, username, false); err != nil {
		return nil, err
	}
	if err := s.posts.AddAttachments(ctx, postID, urls); err != nil {
		return nil, err
	}
	return s.posts.GetByID(ctx, postID)
}

// RemoveAttachment detaches url from the post and deletes the stored file.
// It reports false when the post had no such attachment.
func (s *PostService) RemoveAttachment(ctx context.Context, postID uint, username, url string) (bool, error) {
	if _, _, err := s.owned(ctx, postID, username, false); err != nil {
		return false, err
	}
	removed, err := s.posts.RemoveAttachment(ctx, postID, url)
	if err != nil || !removed {
		return false, err
	}
	s.removeFile(ctx, url)
	return true, nil
}

// CanAttach reports whether username authored the post.
func (s *PostService) CanAttach(ctx context.Context, postID uint, username string) error {
	_, _, err := s.owned(ctx, postID, username, false)
	return err
}

func (s *PostService) owned(ctx context.Context, postID uint, username string, allowAdmin bool) (*models.Post, *models.User, error) {
	user, err := actor(ctx, s.users, username)
	if err != nil {
		return nil, nil, err
	}
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, nil, err
	}
	if !canModify(user, post.AuthorID, allowAdmin) {
		return nil, nil, models.NewForbiddenError("You can only modify your own posts")
	}
	return post, user, nil
}

func (s *PostService) removeFile(ctx context.Context, url string) {
	if s.files == nil {
		return
	}
	key, ok := s.files.KeyFor(url)
	if !ok {
		return
	}
	if err := s.files.Delete(ctx, key); err != nil {
		slog.WarnContext(ctx, "failed to delete attachment file", slog.String("url", url), slog.String("error", err.Error()))
	}
}
