package service

import (
	"context"

	"forum/internal/events"
	"forum/internal/models"
	"forum/internal/observability"
	"forum/internal/repository"
)

// VoteResult is what a voter sees after a vote: the target's new score and
// their own vote, nil when the vote was toggled off.
type VoteResult struct {
	Score int              `json:"score"`
	Vote  *models.VoteType `json:"vote"`
}

type VoteService struct {
	votes  repository.VoteRepository
	users  repository.UserRepository
	events events.Publisher
}

func NewVoteService(votes repository.VoteRepository, users repository.UserRepository, pub events.Publisher) *VoteService {
	return &VoteService{votes: votes, users: users, events: pub}
}

// VotePost applies voteType from username to a post.
func (s *VoteService) VotePost(ctx context.Context, postID uint, username string, voteType models.VoteType) (*VoteResult, error) {
	return s.vote(ctx, repository.TargetPost, postID, username, voteType)
}

// VoteComment applies voteType from username to a comment.
func (s *VoteService) VoteComment(ctx context.Context, commentID uint, username string, voteType models.VoteType) (*VoteResult, error) {
	return s.vote(ctx, repository.TargetComment, commentID, username, voteType)
}

func (s *VoteService) vote(ctx context.Context, target repository.VoteTarget, id uint, username string, voteType models.VoteType) (*VoteResult, error) {
	if !voteType.Valid() {
		return nil, models.NewFieldValidationError([]models.FieldError{
			{Field: "type", Message: "must be UPVOTE or DOWNVOTE"},
		})
	}
	user, err := actor(ctx, s.users, username)
	if err != nil {
		return nil, err
	}

	var out *repository.VoteOutcome
	if target == repository.TargetPost {
		out, err = s.votes.ApplyPostVote(ctx, id, user.ID, voteType)
	} else {
		out, err = s.votes.ApplyCommentVote(ctx, id, user.ID, voteType)
	}
	if err != nil {
		return nil, err
	}

	observability.VotesTotal.WithLabelValues(string(target), out.Decision.Action.String()).Inc()

	evt := events.New(events.VoteApplied)
	evt.UserID = user.ID
	if target == repository.TargetPost {
		evt.PostID = id
	} else {
		evt.CommentID = id
	}
	evt.Data = map[string]interface{}{
		"target": string(target),
		"action": out.Decision.Action.String(),
		"delta":  out.Decision.Delta,
		"score":  out.Score,
	}
	events.Emit(ctx, s.events, evt)

	return &VoteResult{Score: out.Score, Vote: out.Decision.Next}, nil
}

// PostVoteOf returns username's current vote on a post, nil when there is
// none or username is blank.
func (s *VoteService) PostVoteOf(ctx context.Context, postID uint, username string) (*models.VoteType, error) {
	if username == "" {
		return nil, nil
	}
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.votes.PostVoteOf(ctx, postID, user.ID)
}
