package repository

import (
	"context"
	"time"

	"forum/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommunityRepository defines persistence operations for communities.
type CommunityRepository interface {
	List(ctx context.Context) ([]*models.Community, error)
	GetByName(ctx context.Context, name string) (*models.Community, error)
	GetByID(ctx context.Context, id uint) (*models.Community, error)
	Create(ctx context.Context, community *models.Community) error
	ExistsByName(ctx context.Context, name string) (bool, error)
	CountPosts(ctx context.Context, communityID uint) (int64, error)
}

type communityRepository struct {
	db *gorm.DB
}

// NewCommunityRepository creates a new CommunityRepository.
func NewCommunityRepository(db *gorm.DB) CommunityRepository {
	return &communityRepository{db: db}
}

func (r *communityRepository) List(ctx context.Context) ([]*models.Community, error) {
	var communities []*models.Community
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&communities).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return communities, nil
}

func (r *communityRepository) GetByName(ctx context.Context, name string) (*models.Community, error) {
	var community models.Community
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&community).Error; err != nil {
		return nil, notFoundOr(err, "Community", name)
	}
	return &community, nil
}

func (r *communityRepository) GetByID(ctx context.Context, id uint) (*models.Community, error) {
	var community models.Community
	if err := r.db.WithContext(ctx).First(&community, id).Error; err != nil {
		return nil, notFoundOr(err, "Community", id)
	}
	return &community, nil
}

func (r *communityRepository) Create(ctx context.Context, community *models.Community) error {
	if err := r.db.WithContext(ctx).Create(community).Error; err != nil {
		return conflictOr(err, "Community exists")
	}
	return nil
}

func (r *communityRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Community{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *communityRepository) CountPosts(ctx context.Context, communityID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("community_id = ?", communityID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

// MembershipRepository tracks which users joined which communities.
type MembershipRepository interface {
	Join(ctx context.Context, userID, communityID uint) (bool, error)
	Leave(ctx context.Context, userID, communityID uint) (bool, error)
	IsMember(ctx context.Context, userID, communityID uint) (bool, error)
	ListJoined(ctx context.Context, userID uint) ([]*models.CommunityMembership, error)
	CountMembers(ctx context.Context, communityID uint) (int64, error)
}

type membershipRepository struct {
	db *gorm.DB
}

// NewMembershipRepository creates a new MembershipRepository.
func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

// Join reports false when the user was already a member.
func (r *membershipRepository) Join(ctx context.Context, userID, communityID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.CommunityMembership{UserID: userID, CommunityID: communityID, JoinedAt: time.Now()})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Leave reports false when the user was not a member.
func (r *membershipRepository) Leave(ctx context.Context, userID, communityID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND community_id = ?", userID, communityID).
		Delete(&models.CommunityMembership{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *membershipRepository) IsMember(ctx context.Context, userID, communityID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CommunityMembership{}).
		Where("user_id = ? AND community_id = ?", userID, communityID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// ListJoined returns memberships with their community, most recent first.
func (r *membershipRepository) ListJoined(ctx context.Context, userID uint) ([]*models.CommunityMembership, error) {
	var memberships []*models.CommunityMembership
	err := r.db.WithContext(ctx).
		Preload("Community").
		Where("user_id = ?", userID).
		Order("joined_at DESC").Order("id DESC").
		Find(&memberships).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return memberships, nil
}

func (r *membershipRepository) CountMembers(ctx context.Context, communityID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.CommunityMembership{}).Where("community_id = ?", communityID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
