package server

import (
	"forum/internal/middleware"
	"forum/internal/models"
	"forum/internal/service"
	"forum/internal/thread"

	"github.com/gofiber/fiber/v2"
)

// PostDetail is a post with its comment trees and the caller's state.
type PostDetail struct {
	*models.Post
	Comments     []*thread.Node   `json:"comments"`
	CommentCount int              `json:"commentCount"`
	Saved        bool             `json:"saved"`
	UserVote     *models.VoteType `json:"userVote"`
}

// VoteResponse is returned by the vote endpoints.
type VoteResponse struct {
	Success bool             `json:"success"`
	Score   int              `json:"score"`
	Vote    *models.VoteType `json:"vote"`
}

// GetPosts handles GET /api/posts
// @Summary List posts
// @Description Ranked feed across all communities. sort is new, top or hot.
// @Tags posts
// @Produce json
// @Param page query int false "Page (0-based)" default(0)
// @Param size query int false "Page size" default(10)
// @Param sort query string false "Sort order" Enums(hot, new, top) default(hot)
// @Success 200 {object} object{items=[]models.Post,page=int,size=int,total_elements=int,total_pages=int}
// @Failure 400 {object} models.ErrorResponse
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	q, err := feedQuery(c)
	if err != nil {
		return respond(c, err)
	}
	page, err := s.postService.Feed(c.UserContext(), q)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(page)
}

// CreatePost handles POST /api/posts
// @Summary Create post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreatePostInput true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var in service.CreatePostInput
	if err := bind(c, &in); err != nil {
		return nil
	}
	in.Username = middleware.Username(c)
	post, err := s.postService.Create(c.UserContext(), in)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost handles GET /api/posts/:id
// @Summary Get post
// @Description Post with its comment trees, total comment count and, for signed in callers, saved state and vote.
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} PostDetail
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	ctx := c.UserContext()
	post, err := s.postService.Get(ctx, id)
	if err != nil {
		return respond(c, err)
	}
	tree, err := s.commentService.Tree(ctx, id)
	if err != nil {
		return respond(c, err)
	}

	detail := PostDetail{Post: post, Comments: tree.Comments, CommentCount: tree.Total}
	if username := middleware.Username(c); username != "" {
		if detail.Saved, err = s.saveService.IsSaved(ctx, id, username); err != nil {
			return respond(c, err)
		}
		if detail.UserVote, err = s.voteService.PostVoteOf(ctx, id, username); err != nil {
			return respond(c, err)
		}
	}
	return c.JSON(detail)
}

// UpdatePost handles PUT /api/posts/:id
// @Summary Edit post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body service.UpdatePostInput true "Post"
// @Success 200 {object} models.Post
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var in service.UpdatePostInput
	if err := bind(c, &in); err != nil {
		return nil
	}
	in.PostID = id
	in.Username = middleware.Username(c)
	post, err := s.postService.Update(c.UserContext(), in)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete post
// @Tags posts
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.Delete(c.UserContext(), id, middleware.Username(c)); err != nil {
		return respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// votePost handles POST /api/posts/:id/upvote and /downvote
// @Summary Vote on post
// @Description Repeating a vote removes it; voting the other way switches it.
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} VoteResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/upvote [post]
// @Router /posts/{id}/downvote [post]
func (s *Server) votePost(voteType models.VoteType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, "id")
		if err != nil {
			return nil
		}
		res, err := s.voteService.VotePost(c.UserContext(), id, middleware.Username(c), voteType)
		if err != nil {
			return respond(c, err)
		}
		return c.JSON(VoteResponse{Success: true, Score: res.Score, Vote: res.Vote})
	}
}

// SavePost handles POST /api/posts/:id/save
// @Summary Save post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} object{success=bool,message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/save [post]
func (s *Server) SavePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	saved, err := s.saveService.Save(c.UserContext(), id, middleware.Username(c))
	if err != nil {
		return respond(c, err)
	}
	msg := "Post saved"
	if !saved {
		msg = "Post already saved"
	}
	return c.JSON(fiber.Map{"success": saved, "message": msg})
}

// UnsavePost handles DELETE /api/posts/:id/save
// @Summary Unsave post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} object{success=bool,message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/save [delete]
func (s *Server) UnsavePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	removed, err := s.saveService.Unsave(c.UserContext(), id, middleware.Username(c))
	if err != nil {
		return respond(c, err)
	}
	msg := "Post unsaved"
	if !removed {
		msg = "Post was not saved"
	}
	return c.JSON(fiber.Map{"success": removed, "message": msg})
}

// UploadAttachments handles POST /api/posts/:id/attachments
// @Summary Upload attachments
// @Description Stores each file independently; rejected files are reported in failed.
// @Tags posts
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param files formData file true "Files"
// @Success 200 {object} service.AttachmentResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{id}/attachments [post]
func (s *Server) UploadAttachments(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return respond(c, models.NewValidationError("Expected a multipart form"))
	}
	files := make([]service.UploadFile, 0, len(form.File["files"]))
	for _, fh := range form.File["files"] {
		f, err := readUpload(fh)
		if err != nil {
			return respond(c, models.NewInternalError(err))
		}
		files = append(files, f)
	}
	res, err := s.uploadService.UploadAttachments(c.UserContext(), id, middleware.Username(c), files)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(res)
}

// RemoveAttachment handles DELETE /api/posts/:id/attachments?url=...
// @Summary Remove attachment
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param url query string true "Attachment URL"
// @Success 200 {object} object{success=bool}
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{id}/attachments [delete]
func (s *Server) RemoveAttachment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	url := c.Query("url")
	if url == "" {
		return respond(c, models.NewValidationError("url is required"))
	}
	removed, err := s.postService.RemoveAttachment(c.UserContext(), id, middleware.Username(c), url)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"success": removed})
}

func feedQuery(c *fiber.Ctx) (service.FeedQuery, error) {
	page, size, err := paging(c)
	if err != nil {
		return service.FeedQuery{}, err
	}
	return service.FeedQuery{Page: page, Size: size, Sort: c.Query("sort")}, nil
}
