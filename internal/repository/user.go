package repository

import (
	"context"
	"errors"

	"forum/internal/feed"
	"forum/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines persistence operations for users and their roles.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *models.User, roles ...string) error
	Update(ctx context.Context, user *models.User) error
	EnsureRole(ctx context.Context, name string) (*models.Role, error)
	GrantRole(ctx context.Context, userID uint, name string) error
	RevokeRole(ctx context.Context, userID uint, name string) error
	HasRole(ctx context.Context, userID uint, name string) (bool, error)
	Search(ctx context.Context, query string, req feed.PageRequest) (feed.Page[*models.User], error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Roles").First(&user, id).Error; err != nil {
		return nil, notFoundOr(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Roles").Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFoundOr(err, "User", username)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Roles").Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFoundOr(err, "User", email)
	}
	return &user, nil
}

func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username = ?", username)
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email = ?", email)
}

func (r *userRepository) exists(ctx context.Context, cond string, arg interface{}) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where(cond, arg).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// Create inserts user with the named roles, creating roles that do not exist yet.
func (r *userRepository) Create(ctx context.Context, user *models.User, roles ...string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user.Roles = user.Roles[:0]
		for _, name := range roles {
			role, err := ensureRole(tx, name)
			if err != nil {
				return err
			}
			user.Roles = append(user.Roles, *role)
		}
		return tx.Create(user).Error
	})
	if err != nil {
		return conflictOr(err, "Username or email already exists")
	}
	return nil
}

// Update persists profile fields. Roles are managed by GrantRole and RevokeRole.
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Model(user).
		Select("display_name", "avatar_url", "enabled", "updated_at").
		Updates(user).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) EnsureRole(ctx context.Context, name string) (*models.Role, error) {
	role, err := ensureRole(r.db.WithContext(ctx), name)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return role, nil
}

func ensureRole(tx *gorm.DB, name string) (*models.Role, error) {
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Role{Name: name}).Error; err != nil {
		return nil, err
	}
	var role models.Role
	if err := tx.Where("name = ?", name).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *userRepository) GrantRole(ctx context.Context, userID uint, name string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return notFoundOr(err, "User", userID)
		}
		role, err := ensureRole(tx, name)
		if err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Model(&user).Association("Roles").Append(role); err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
}

func (r *userRepository) RevokeRole(ctx context.Context, userID uint, name string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return notFoundOr(err, "User", userID)
		}
		var role models.Role
		if err := tx.Where("name = ?", name).First(&role).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return models.NewInternalError(err)
		}
		if err := tx.Model(&user).Association("Roles").Delete(&role); err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
}

func (r *userRepository) HasRole(ctx context.Context, userID uint, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("user_roles").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id = ? AND roles.name = ?", userID, name).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// Search matches username, display name or email, ordered by username.
func (r *userRepository) Search(ctx context.Context, query string, req feed.PageRequest) (feed.Page[*models.User], error) {
	like := containsPattern(query)
	base := r.db.WithContext(ctx).Model(&models.User{}).
		Where(`LOWER(username) LIKE ? ESCAPE '\' OR LOWER(display_name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\'`, like, like, like)
	return paged[*models.User](base, req, func(q *gorm.DB) *gorm.DB {
		return q.Order("username ASC")
	})
}
