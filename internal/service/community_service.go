package service

import (
	"context"
	"strings"

	"forum/internal/events"
	"forum/internal/models"
	"forum/internal/repository"
	"forum/internal/validation"
)

type CommunityService struct {
	communities repository.CommunityRepository
	memberships repository.MembershipRepository
	users       repository.UserRepository
	events      events.Publisher
}

type CreateCommunityInput struct {
	Name        string `json:"name" validate:"communityname"`
	Description string `json:"description" validate:"max=500"`
}

// CommunityDetail is a community with its counters and the caller's membership.
type CommunityDetail struct {
	*models.Community
	PostCount   int64 `json:"postCount"`
	MemberCount int64 `json:"memberCount"`
	IsMember    bool  `json:"isMember"`
}

func NewCommunityService(
	communities repository.CommunityRepository,
	memberships repository.MembershipRepository,
	users repository.UserRepository,
	pub events.Publisher,
) *CommunityService {
	return &CommunityService{communities: communities, memberships: memberships, users: users, events: pub}
}

// All lists every community by name.
func (s *CommunityService) All(ctx context.Context) ([]*models.Community, error) {
	return s.communities.List(ctx)
}

func (s *CommunityService) GetByName(ctx context.Context, name string) (*models.Community, error) {
	return s.communities.GetByName(ctx, name)
}

// Create adds a community. Names are unique.
func (s *CommunityService) Create(ctx context.Context, in CreateCommunityInput) (*models.Community, error) {
	in.Description = strings.TrimSpace(in.Description)
	if err := validation.Check(in); err != nil {
		return nil, err
	}
	exists, err := s.communities.ExistsByName(ctx, in.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.NewConflictError("Community exists")
	}
	community := &models.Community{Name: in.Name, Description: in.Description}
	if err := s.communities.Create(ctx, community); err != nil {
		return nil, err
	}
	return community, nil
}

// Join reports false when username already belongs to the community.
func (s *CommunityService) Join(ctx context.Context, name, username string) (bool, error) {
	user, community, err := s.resolve(ctx, name, username)
	if err != nil {
		return false, err
	}
	joined, err := s.memberships.Join(ctx, user.ID, community.ID)
	if err != nil || !joined {
		return false, err
	}

	evt := events.New(events.CommunityJoined)
	evt.UserID = user.ID
	evt.CommunityID = community.ID
	events.Emit(ctx, s.events, evt)
	return true, nil
}

// Leave reports false when username was not a member.
func (s *CommunityService) Leave(ctx context.Context, name, username string) (bool, error) {
	user, community, err := s.resolve(ctx, name, username)
	if err != nil {
		return false, err
	}
	return s.memberships.Leave(ctx, user.ID, community.ID)
}

// IsMember is false for a blank username.
func (s *CommunityService) IsMember(ctx context.Context, name, username string) (bool, error) {
	if username == "" {
		return false, nil
	}
	user, community, err := s.resolve(ctx, name, username)
	if err != nil {
		return false, err
	}
	return s.memberships.IsMember(ctx, user.ID, community.ID)
}

// Joined lists the user's memberships, most recent first.
func (s *CommunityService) Joined(ctx context.Context, username string) ([]*models.CommunityMembership, error) {
	user, err := actor(ctx, s.users, username)
	if err != nil {
		return nil, err
	}
	return s.memberships.ListJoined(ctx, user.ID)
}

func (s *CommunityService) MemberCount(ctx context.Context, name string) (int64, error) {
	community, err := s.communities.GetByName(ctx, name)
	if err != nil {
		return 0, err
	}
	return s.memberships.CountMembers(ctx, community.ID)
}

func (s *CommunityService) PostCount(ctx context.Context, name string) (int64, error) {
	community, err := s.communities.GetByName(ctx, name)
	if err != nil {
		return 0, err
	}
	return s.communities.CountPosts(ctx, community.ID)
}

// Detail collects the community page header. username may be blank.
func (s *CommunityService) Detail(ctx context.Context, name, username string) (*CommunityDetail, error) {
	community, err := s.communities.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	detail := &CommunityDetail{Community: community}
	if detail.PostCount, err = s.communities.CountPosts(ctx, community.ID); err != nil {
		return nil, err
	}
	if detail.MemberCount, err = s.memberships.CountMembers(ctx, community.ID); err != nil {
		return nil, err
	}
	if username != "" {
		user, err := s.users.GetByUsername(ctx, username)
		if err != nil {
			return nil, err
		}
		if detail.IsMember, err = s.memberships.IsMember(ctx, user.ID, community.ID); err != nil {
			return nil, err
		}
	}
	return detail, nil
}

func (s *CommunityService) resolve(ctx context.Context, name, username string) (*models.User, *models.Community, error) {
	user, err := actor(ctx, s.users, username)
	if err != nil {
		return nil, nil, err
	}
	community, err := s.communities.GetByName(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	return user, community, nil
}
