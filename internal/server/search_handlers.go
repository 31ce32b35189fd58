package server

import (
	"forum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Search handles GET /api/search
// @Summary Global search
// @Description type is posts, comments or users; anything else previews all three.
// @Tags search
// @Produce json
// @Param q query string true "Query"
// @Param type query string false "Result kind" Enums(all, posts, comments, users) default(all)
// @Param page query int false "Page (0-based)"
// @Param size query int false "Page size"
// @Success 200 {object} service.GlobalResults
// @Router /search [get]
func (s *Server) Search(c *fiber.Ctx) error {
	page, size, err := paging(c)
	if err != nil {
		return respond(c, err)
	}
	res, err := s.searchService.Global(c.UserContext(), c.Query("q"), c.Query("type", service.SearchAll), page, size)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(res)
}

// SearchPosts handles GET /api/search/posts
// @Summary Search posts
// @Tags search
// @Produce json
// @Param q query string true "Query"
// @Param community query string false "Community name"
// @Param sort query string false "Sort key" Enums(createdAt, score, title, author)
// @Param dir query string false "Sort direction" Enums(asc, desc) default(desc)
// @Param page query int false "Page (0-based)"
// @Param size query int false "Page size"
// @Success 200 {object} object{items=[]models.Post,page=int,size=int,total_elements=int,total_pages=int}
// @Router /search/posts [get]
func (s *Server) SearchPosts(c *fiber.Ctx) error {
	page, size, err := paging(c)
	if err != nil {
		return respond(c, err)
	}
	res, err := s.searchService.Posts(c.UserContext(), service.PostSearchQuery{
		Query:     c.Query("q"),
		Community: c.Query("community"),
		SortBy:    c.Query("sort"),
		Dir:       c.Query("dir"),
		Page:      page,
		Size:      size,
	})
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(res)
}

// SearchComments handles GET /api/search/comments
// @Summary Search comments
// @Tags search
// @Produce json
// @Param q query string true "Query"
// @Param page query int false "Page (0-based)"
// @Param size query int false "Page size"
// @Success 200 {object} object{items=[]models.Comment,page=int,size=int,total_elements=int,total_pages=int}
// @Router /search/comments [get]
func (s *Server) SearchComments(c *fiber.Ctx) error {
	page, size, err := paging(c)
	if err != nil {
		return respond(c, err)
	}
	res, err := s.searchService.Comments(c.UserContext(), c.Query("q"), page, size)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(res)
}

// SearchUsers handles GET /api/search/users
// @Summary Search users
// @Tags search
// @Produce json
// @Param q query string true "Query"
// @Param page query int false "Page (0-based)"
// @Param size query int false "Page size"
// @Success 200 {object} object{items=[]models.User,page=int,size=int,total_elements=int,total_pages=int}
// @Router /search/users [get]
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	page, size, err := paging(c)
	if err != nil {
		return respond(c, err)
	}
	res, err := s.searchService.Users(c.UserContext(), c.Query("q"), page, size)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(res)
}

// SearchSuggestions handles GET /api/search/suggestions
// @Summary Title suggestions
// @Tags search
// @Produce json
// @Param q query string true "Prefix or fragment"
// @Param limit query int false "Maximum suggestions" default(5)
// @Success 200 {array} string
// @Router /search/suggestions [get]
func (s *Server) SearchSuggestions(c *fiber.Ctx) error {
	titles, err := s.searchService.Suggestions(c.UserContext(), c.Query("q"), c.QueryInt("limit"))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(titles)
}
