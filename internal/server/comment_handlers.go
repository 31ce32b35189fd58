package server

import (
	"forum/internal/middleware"
	"forum/internal/models"
	"forum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetComments handles GET /api/posts/:id/comments
// @Summary Get comment tree
// @Description Reply trees in creation order at every level, with the total count.
// @Tags comments
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} service.CommentTree
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/comments [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	tree, err := s.commentService.Tree(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(tree)
}

// CreateComment handles POST /api/posts/:id/comments
// @Summary Add comment
// @Description parentId makes the comment a reply; the parent must belong to the same post.
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body service.CreateCommentInput true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var in service.CreateCommentInput
	if err := bind(c, &in); err != nil {
		return nil
	}
	in.PostID = postID
	in.Username = middleware.Username(c)
	comment, err := s.commentService.Add(c.UserContext(), in)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// ReplyToComment handles POST /api/posts/:id/comments/:commentId/replies
// @Summary Reply to comment
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param commentId path int true "Parent comment ID"
// @Param request body object{content=string} true "Reply"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/comments/{commentId}/replies [post]
func (s *Server) ReplyToComment(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	parentID, err := parseID(c, "commentId")
	if err != nil {
		return nil
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := bind(c, &req); err != nil {
		return nil
	}
	comment, err := s.commentService.Reply(c.UserContext(), postID, parentID, middleware.Username(c), req.Content)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// UpdateComment handles PUT /api/comments/:id
// @Summary Edit comment
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Param request body service.UpdateCommentInput true "Comment"
// @Success 200 {object} models.Comment
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id} [put]
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var in service.UpdateCommentInput
	if err := bind(c, &in); err != nil {
		return nil
	}
	in.CommentID = id
	in.Username = middleware.Username(c)
	comment, err := s.commentService.Update(c.UserContext(), in)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(comment)
}

// DeleteComment handles DELETE /api/comments/:id
// @Summary Delete comment
// @Description Removes the comment and all of its replies.
// @Tags comments
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.commentService.Delete(c.UserContext(), id, middleware.Username(c)); err != nil {
		return respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// voteComment handles POST /api/comments/:id/upvote and /downvote
// @Summary Vote on comment
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Success 200 {object} VoteResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id}/upvote [post]
// @Router /comments/{id}/downvote [post]
func (s *Server) voteComment(voteType models.VoteType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, "id")
		if err != nil {
			return nil
		}
		res, err := s.voteService.VoteComment(c.UserContext(), id, middleware.Username(c), voteType)
		if err != nil {
			return respond(c, err)
		}
		return c.JSON(VoteResponse{Success: true, Score: res.Score, Vote: res.Vote})
	}
}
