package server

import (
	"forum/internal/middleware"
	"forum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetCommunities handles GET /api/communities
// @Summary List communities
// @Description All communities ordered by name
// @Tags communities
// @Produce json
// @Success 200 {array} models.Community
// @Router /communities [get]
func (s *Server) GetCommunities(c *fiber.Ctx) error {
	communities, err := s.communityService.All(c.UserContext())
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(communities)
}

// CreateCommunity handles POST /api/communities
// @Summary Create community
// @Tags communities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreateCommunityInput true "Community"
// @Success 201 {object} models.Community
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /communities [post]
func (s *Server) CreateCommunity(c *fiber.Ctx) error {
	var in service.CreateCommunityInput
	if err := bind(c, &in); err != nil {
		return nil
	}
	community, err := s.communityService.Create(c.UserContext(), in)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(community)
}

// GetCommunity handles GET /api/communities/:name
// @Summary Get community
// @Description Community with post and member counts; isMember is false for anonymous callers.
// @Tags communities
// @Produce json
// @Param name path string true "Community name"
// @Success 200 {object} service.CommunityDetail
// @Failure 404 {object} models.ErrorResponse
// @Router /communities/{name} [get]
func (s *Server) GetCommunity(c *fiber.Ctx) error {
	detail, err := s.communityService.Detail(c.UserContext(), c.Params("name"), middleware.Username(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(detail)
}

// GetCommunityPosts handles GET /api/communities/:name/posts
// @Summary List community posts
// @Tags communities
// @Produce json
// @Param name path string true "Community name"
// @Param page query int false "Page (0-based)" default(0)
// @Param size query int false "Page size" default(10)
// @Param sort query string false "Sort order" Enums(hot, new, top) default(hot)
// @Success 200 {object} object{items=[]models.Post,page=int,size=int,total_elements=int,total_pages=int}
// @Failure 404 {object} models.ErrorResponse
// @Router /communities/{name}/posts [get]
func (s *Server) GetCommunityPosts(c *fiber.Ctx) error {
	q, err := feedQuery(c)
	if err != nil {
		return respond(c, err)
	}
	page, err := s.postService.ByCommunity(c.UserContext(), c.Params("name"), q)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(page)
}

// JoinCommunity handles POST /api/communities/:name/join
// @Summary Join community
// @Tags communities
// @Produce json
// @Security BearerAuth
// @Param name path string true "Community name"
// @Success 200 {object} object{success=bool,message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /communities/{name}/join [post]
func (s *Server) JoinCommunity(c *fiber.Ctx) error {
	joined, err := s.communityService.Join(c.UserContext(), c.Params("name"), middleware.Username(c))
	if err != nil {
		return respond(c, err)
	}
	msg := "Joined community"
	if !joined {
		msg = "Already a member"
	}
	return c.JSON(fiber.Map{"success": joined, "message": msg})
}

// LeaveCommunity handles POST /api/communities/:name/leave
// @Summary Leave community
// @Tags communities
// @Produce json
// @Security BearerAuth
// @Param name path string true "Community name"
// @Success 200 {object} object{success=bool,message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /communities/{name}/leave [post]
func (s *Server) LeaveCommunity(c *fiber.Ctx) error {
	left, err := s.communityService.Leave(c.UserContext(), c.Params("name"), middleware.Username(c))
	if err != nil {
		return respond(c, err)
	}
	msg := "Left community"
	if !left {
		msg = "Not a member"
	}
	return c.JSON(fiber.Map{"success": left, "message": msg})
}
