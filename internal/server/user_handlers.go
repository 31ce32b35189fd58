package server

import (
	"io"
	"mime/multipart"

	"forum/internal/middleware"
	"forum/internal/models"
	"forum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ProfileResponse is the caller's own profile, which includes their email.
type ProfileResponse struct {
	*models.User
	Email string `json:"email"`
}

// GetMyProfile handles GET /api/users/me
// @Summary Get current user profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ProfileResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /users/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetByUsername(c.UserContext(), middleware.Username(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(ProfileResponse{User: user, Email: user.Email})
}

// UpdateMyProfile handles PUT /api/users/me
// @Summary Update current user profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.UpdateProfileInput true "Profile"
// @Success 200 {object} ProfileResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /users/me [put]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var in service.UpdateProfileInput
	if err := bind(c, &in); err != nil {
		return nil
	}
	in.Username = middleware.Username(c)
	user, err := s.userService.UpdateProfile(c.UserContext(), in)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(ProfileResponse{User: user, Email: user.Email})
}

// UploadAvatar handles POST /api/users/me/avatar
// @Summary Upload avatar
// @Description Replace the caller's avatar. Images wider or taller than 512px are scaled down.
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param avatar formData file true "Avatar image"
// @Success 200 {object} object{avatarUrl=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /users/me/avatar [post]
func (s *Server) UploadAvatar(c *fiber.Ctx) error {
	fh, err := c.FormFile("avatar")
	if err != nil {
		return respond(c, models.NewValidationError("Please select a file to upload"))
	}
	file, err := readUpload(fh)
	if err != nil {
		return respond(c, models.NewInternalError(err))
	}
	url, err := s.uploadService.UploadAvatar(c.UserContext(), middleware.Username(c), file)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"avatarUrl": url})
}

// GetMyCommunities handles GET /api/users/me/communities
// @Summary List joined communities
// @Description Most recently joined first
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.CommunityMembership
// @Router /users/me/communities [get]
func (s *Server) GetMyCommunities(c *fiber.Ctx) error {
	joined, err := s.communityService.Joined(c.UserContext(), middleware.Username(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(joined)
}

// GetMySavedPosts handles GET /api/users/me/saved
// @Summary List saved posts
// @Description Most recently saved first
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page (0-based)"
// @Param size query int false "Page size"
// @Success 200 {object} object{items=[]models.PostSave,page=int,size=int,total_elements=int,total_pages=int}
// @Router /users/me/saved [get]
func (s *Server) GetMySavedPosts(c *fiber.Ctx) error {
	page, size, err := paging(c)
	if err != nil {
		return respond(c, err)
	}
	saved, err := s.saveService.Saved(c.UserContext(), middleware.Username(c), page, size)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(saved)
}

// GetUserProfile handles GET /api/users/:username
// @Summary Get public profile
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} models.User
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{username} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetByUsername(c.UserContext(), c.Params("username"))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(user)
}

// GetUserPosts handles GET /api/users/:username/posts
// @Summary List a user's posts
// @Description Newest first
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Param page query int false "Page (0-based)"
// @Param size query int false "Page size"
// @Success 200 {object} object{items=[]models.Post,page=int,size=int,total_elements=int,total_pages=int}
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{username}/posts [get]
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	page, size, err := paging(c)
	if err != nil {
		return respond(c, err)
	}
	posts, err := s.postService.ListByAuthor(c.UserContext(), c.Params("username"), service.FeedQuery{Page: page, Size: size})
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(posts)
}

// readUpload loads a multipart file into memory. Size limits are enforced
// by the upload service and the app body limit.
func readUpload(fh *multipart.FileHeader) (service.UploadFile, error) {
	f, err := fh.Open()
	if err != nil {
		return service.UploadFile{}, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return service.UploadFile{}, err
	}
	return service.UploadFile{Filename: fh.Filename, Content: content}, nil
}
