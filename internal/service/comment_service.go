package service

import (
	"context"

	"forum/internal/events"
	"forum/internal/models"
	"forum/internal/observability"
	"forum/internal/repository"
	"forum/internal/thread"
	"forum/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	users    repository.UserRepository
	events   events.Publisher
}

type CreateCommentInput struct {
	Username string `json:"-"`
	PostID   uint   `json:"-"`
	ParentID *uint  `json:"parentId"`
	Content  string `json:"content" validate:"notblank,max=2000"`
}

type UpdateCommentInput struct {
	Username  string `json:"-"`
	CommentID uint   `json:"-"`
	Content   string `json:"content" validate:"notblank,max=2000"`
}

// CommentTree is a post's comments as reply trees plus their total count.
type CommentTree struct {
	Comments []*thread.Node `json:"comments"`
	Total    int            `json:"total"`
}

func NewCommentService(
	comments repository.CommentRepository,
	posts repository.PostRepository,
	users repository.UserRepository,
	pub events.Publisher,
) *CommentService {
	return &CommentService{comments: comments, posts: posts, users: users, events: pub}
}

// Add comments on a post, or replies to ParentID when it is set. The parent
// must belong to the same post.
func (s *CommentService) Add(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	if err := validation.Check(in); err != nil {
		return nil, err
	}
	user, err := actor(ctx, s.users, in.Username)
	if err != nil {
		return nil, err
	}
	post, err := s.posts.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if in.ParentID != nil {
		parent, err := s.comments.GetByID(ctx, *in.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.PostID != post.ID {
			return nil, models.NewFieldValidationError([]models.FieldError{
				{Field: "parentId", Message: "parent comment belongs to another post"},
			})
		}
	}

	comment := &models.Comment{
		Content:  in.Content,
		PostID:   post.ID,
		AuthorID: user.ID,
		ParentID: in.ParentID,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	comment.Author = user
	observability.CommentsCreated.Inc()

	evt := events.New(events.CommentCreated)
	evt.UserID = user.ID
	evt.CommunityID = post.CommunityID
	evt.PostID = post.ID
	evt.CommentID = comment.ID
	if in.ParentID != nil {
		evt.Data = map[string]interface{}{"parent_id": *in.ParentID}
	}
	events.Emit(ctx, s.events, evt)

	return comment, nil
}

// Reply adds a comment under parentID.
func (s *CommentService) Reply(ctx context.Context, postID, parentID uint, username, content string) (*models.Comment, error) {
	return s.Add(ctx, CreateCommentInput{
		Username: username,
		PostID:   postID,
		ParentID: &parentID,
		Content:  content,
	})
}

// ForPost assembles the post's comments into reply trees.
func (s *CommentService) ForPost(ctx context.Context, postID uint) (_ []*thread.Node, err error) {
	ctx, span := observability.StartSpan(ctx, "comments.tree", attribute.Int64("post.id", int64(postID)))
	defer func() { observability.EndSpan(span, err) }()

	ok, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewNotFoundError("Post", postID)
	}
	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	forest := thread.Build(comments)
	span.SetAttributes(attribute.Int("comments.count", thread.Count(forest)))
	return forest, nil
}

// Tree is ForPost with the total count attached.
func (s *CommentService) Tree(ctx context.Context, postID uint) (*CommentTree, error) {
	forest, err := s.ForPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return &CommentTree{Comments: forest, Total: thread.Count(forest)}, nil
}

// Count is the number of comments reachable in the post's reply trees.
func (s *CommentService) Count(ctx context.Context, postID uint) (int, error) {
	forest, err := s.ForPost(ctx, postID)
	if err != nil {
		return 0, err
	}
	return thread.Count(forest), nil
}

// Update edits a comment's content. Only the author may edit.
func (s *CommentService) Update(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	if err := validation.Check(in); err != nil {
		return nil, err
	}
	user, err := actor(ctx, s.users, in.Username)
	if err != nil {
		return nil, err
	}
	comment, err := s.comments.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if !canModify(user, comment.AuthorID, false) {
		return nil, models.NewForbiddenError("You can only edit your own comments")
	}
	comment.Content = in.Content
	if err := s.comments.Update(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// Delete removes a comment and every reply below it. Authors may delete
// their own comments; admins may delete any.
func (s *CommentService) Delete(ctx context.Context, commentID uint, username string) error {
	user, err := actor(ctx, s.users, username)
	if err != nil {
		return err
	}
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if !canModify(user, comment.AuthorID, true) {
		return models.NewForbiddenError("You can only delete your own comments")
	}

	siblings, err := s.comments.ListByPost(ctx, comment.PostID)
	if err != nil {
		return err
	}
	ids := thread.Subtree(thread.Build(siblings), comment.ID)
	if len(ids) == 0 {
		// Orphaned comments are not in any tree.
		ids = []uint{comment.ID}
	}
	return s.comments.DeleteMany(ctx, ids)
}
