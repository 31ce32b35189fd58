package service

import (
	"context"
	"errors"
	"strings"

	"forum/internal/models"
	"forum/internal/repository"
	"forum/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// passwordCost is the bcrypt work factor for new password hashes.
var passwordCost = bcrypt.DefaultCost

type UserService struct {
	userRepo repository.UserRepository
}

type RegisterInput struct {
	Username    string `json:"username" validate:"username"`
	Email       string `json:"email" validate:"forumemail"`
	Password    string `json:"password" validate:"password"`
	DisplayName string `json:"displayName" validate:"displayname"`
}

// normalize trims and lowercases the identifiers so lookups are case-insensitive.
func (in *RegisterInput) normalize() {
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.DisplayName = strings.TrimSpace(in.DisplayName)
}

type UpdateProfileInput struct {
	Username    string `json:"-"`
	DisplayName string `json:"displayName" validate:"displayname"`
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// Register creates an account with ROLE_USER.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	return s.create(ctx, in, models.RoleUser)
}

func (s *UserService) create(ctx context.Context, in RegisterInput, roles ...string) (*models.User, error) {
	in.normalize()
	if err := validation.Check(in); err != nil {
		return nil, err
	}

	taken, err := s.userRepo.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, models.NewConflictError("Username already exists")
	}
	taken, err = s.userRepo.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, models.NewConflictError("Email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), passwordCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		DisplayName:  in.DisplayName,
		PasswordHash: string(hash),
		Enabled:      true,
	}
	if err := s.userRepo.Create(ctx, user, roles...); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks a password for a username or email address.
func (s *UserService) Authenticate(ctx context.Context, login, password string) (*models.User, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	if login == "" || password == "" {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}

	var user *models.User
	var err error
	if strings.Contains(login, "@") {
		user, err = s.userRepo.GetByEmail(ctx, login)
	} else {
		user, err = s.userRepo.GetByUsername(ctx, login)
	}
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewUnauthorizedError("Invalid credentials")
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if !user.Enabled {
		return nil, models.NewUnauthorizedError("Account is disabled")
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.userRepo.GetByUsername(ctx, username)
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if err := validation.Check(in); err != nil {
		return nil, err
	}
	user, err := actor(ctx, s.userRepo, in.Username)
	if err != nil {
		return nil, err
	}
	user.DisplayName = in.DisplayName
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetAvatar stores url as the user's avatar and returns the previous one.
func (s *UserService) SetAvatar(ctx context.Context, username, url string) (previous string, err error) {
	user, err := actor(ctx, s.userRepo, username)
	if err != nil {
		return "", err
	}
	previous = user.AvatarURL
	user.AvatarURL = url
	if err := s.userRepo.Update(ctx, user); err != nil {
		return "", err
	}
	return previous, nil
}

func (s *UserService) IsAdmin(ctx context.Context, username string) (bool, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	return user.HasRole(models.RoleAdmin), nil
}

// SetAdmin grants or revokes ROLE_ADMIN.
func (s *UserService) SetAdmin(ctx context.Context, username string, isAdmin bool) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if isAdmin {
		err = s.userRepo.GrantRole(ctx, user.ID, models.RoleAdmin)
	} else {
		err = s.userRepo.RevokeRole(ctx, user.ID, models.RoleAdmin)
	}
	if err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, user.ID)
}

// EnsureRoles creates the named roles if they are missing.
func (s *UserService) EnsureRoles(ctx context.Context, names ...string) error {
	for _, name := range names {
		if _, err := s.userRepo.EnsureRole(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// EnsureAccount registers in with roles, or grants roles to the existing
// account of the same username. created reports which happened.
func (s *UserService) EnsureAccount(ctx context.Context, in RegisterInput, roles ...string) (user *models.User, created bool, err error) {
	existing, err := s.userRepo.GetByUsername(ctx, strings.ToLower(strings.TrimSpace(in.Username)))
	switch {
	case err == nil:
		for _, role := range roles {
			if !existing.HasRole(role) {
				if err := s.userRepo.GrantRole(ctx, existing.ID, role); err != nil {
					return nil, false, err
				}
			}
		}
		user, err = s.userRepo.GetByID(ctx, existing.ID)
		return user, false, err
	case errors.Is(err, models.ErrNotFound):
		user, err = s.create(ctx, in, roles...)
		return user, err == nil, err
	default:
		return nil, false, err
	}
}
