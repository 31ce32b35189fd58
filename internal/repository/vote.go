package repository

import (
	"context"
	"errors"

	"forum/internal/models"
	"forum/internal/observability"
	"forum/internal/voting"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoteTarget names the two independent ledgers.
type VoteTarget string

const (
	TargetPost    VoteTarget = "post"
	TargetComment VoteTarget = "comment"
)

// VoteOutcome is the committed result of one vote request.
type VoteOutcome struct {
	Target   VoteTarget
	TargetID uint
	UserID   uint
	Decision voting.Decision
	// Score is the target's score after the delta was applied.
	Score int
}

// VoteRepository applies votes and keeps each target's score in step with
// its vote rows.
type VoteRepository interface {
	ApplyPostVote(ctx context.Context, postID, userID uint, requested models.VoteType) (*VoteOutcome, error)
	ApplyCommentVote(ctx context.Context, commentID, userID uint, requested models.VoteType) (*VoteOutcome, error)
	PostVoteOf(ctx context.Context, postID, userID uint) (*models.VoteType, error)
	CommentVoteOf(ctx context.Context, commentID, userID uint) (*models.VoteType, error)
}

// ledger describes where one target kind keeps its rows.
type ledger struct {
	target      VoteTarget
	resource    string
	targetModel func() interface{}
	voteModel   func() interface{}
	foreignKey  string
	newVote     func(targetID, userID uint, t models.VoteType) interface{}
}

var postLedger = ledger{
	target:      TargetPost,
	resource:    "Post",
	targetModel: func() interface{} { return &models.Post{} },
	voteModel:   func() interface{} { return &models.Vote{} },
	foreignKey:  "post_id",
	newVote: func(targetID, userID uint, t models.VoteType) interface{} {
		return &models.Vote{PostID: targetID, UserID: userID, Type: t}
	},
}

var commentLedger = ledger{
	target:      TargetComment,
	resource:    "Comment",
	targetModel: func() interface{} { return &models.Comment{} },
	voteModel:   func() interface{} { return &models.CommentVote{} },
	foreignKey:  "comment_id",
	newVote: func(targetID, userID uint, t models.VoteType) interface{} {
		return &models.CommentVote{CommentID: targetID, UserID: userID, Type: t}
	},
}

type voteRepository struct {
	db *gorm.DB
}

// NewVoteRepository creates a new VoteRepository.
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

func (r *voteRepository) ApplyPostVote(ctx context.Context, postID, userID uint, requested models.VoteType) (*VoteOutcome, error) {
	return r.apply(ctx, postLedger, postID, userID, requested)
}

func (r *voteRepository) ApplyCommentVote(ctx context.Context, commentID, userID uint, requested models.VoteType) (*VoteOutcome, error) {
	return r.apply(ctx, commentLedger, commentID, userID, requested)
}

type scoredRow struct {
	ID    uint
	Score int
}

type voteRow struct {
	ID       uint
	VoteType models.VoteType
}

// apply runs lock, read, decide, write vote row, write score as one
// transaction. Concurrent votes on the same target serialize on the row lock.
func (r *voteRepository) apply(ctx context.Context, l ledger, targetID, userID uint, requested models.VoteType) (_ *VoteOutcome, err error) {
	ctx, span := observability.StartSpan(ctx, "vote.apply",
		attribute.String("vote.target", string(l.target)),
		attribute.Int64("vote.target_id", int64(targetID)),
		attribute.String("vote.type", string(requested)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if !requested.Valid() {
		return nil, models.NewValidationError("vote type must be UPVOTE or DOWNVOTE")
	}

	var out *VoteOutcome
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target scoredRow
		if err := tx.Model(l.targetModel()).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "score").
			Where("id = ?", targetID).
			Take(&target).Error; err != nil {
			return notFoundOr(err, l.resource, targetID)
		}

		var voter int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&voter).Error; err != nil {
			return models.NewInternalError(err)
		}
		if voter == 0 {
			return models.NewNotFoundError("User", userID)
		}

		existing, err := findVote(tx, l, targetID, userID)
		if err != nil {
			return err
		}
		var current *models.VoteType
		if existing != nil {
			current = &existing.VoteType
		}

		decision, err := voting.Decide(current, requested)
		if err != nil {
			return models.NewValidationError(err.Error())
		}

		switch decision.Action {
		case voting.Create:
			err = tx.Create(l.newVote(targetID, userID, requested)).Error
		case voting.Remove:
			err = tx.Delete(l.voteModel(), existing.ID).Error
		case voting.Switch:
			err = tx.Model(l.voteModel()).Where("id = ?", existing.ID).Update("vote_type", *decision.Next).Error
		}
		if err != nil {
			return models.NewInternalError(err)
		}

		if err := tx.Model(l.targetModel()).
			Where("id = ?", targetID).
			UpdateColumn("score", gorm.Expr("score + ?", decision.Delta)).Error; err != nil {
			return models.NewInternalError(err)
		}

		out = &VoteOutcome{
			Target:   l.target,
			TargetID: targetID,
			UserID:   userID,
			Decision: decision,
			Score:    target.Score + decision.Delta,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("vote.action", out.Decision.Action.String()),
		attribute.Int("vote.score", out.Score),
	)
	return out, nil
}

func findVote(tx *gorm.DB, l ledger, targetID, userID uint) (*voteRow, error) {
	var row voteRow
	err := tx.Model(l.voteModel()).
		Select("id", "vote_type").
		Where(l.foreignKey+" = ? AND user_id = ?", targetID, userID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &row, nil
}

func (r *voteRepository) PostVoteOf(ctx context.Context, postID, userID uint) (*models.VoteType, error) {
	return r.voteOf(ctx, postLedger, postID, userID)
}

func (r *voteRepository) CommentVoteOf(ctx context.Context, commentID, userID uint) (*models.VoteType, error) {
	return r.voteOf(ctx, commentLedger, commentID, userID)
}

func (r *voteRepository) voteOf(ctx context.Context, l ledger, targetID, userID uint) (*models.VoteType, error) {
	row, err := findVote(r.db.WithContext(ctx), l, targetID, userID)
	if err != nil || row == nil {
		return nil, err
	}
	t := row.VoteType
	return &t, nil
}
