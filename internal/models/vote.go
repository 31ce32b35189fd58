package models

import (
	"strings"
	"time"
)

// VoteType is the direction of a vote.
type VoteType string

const (
	Upvote   VoteType = "UPVOTE"
	Downvote VoteType = "DOWNVOTE"
)

// ParseVoteType accepts UPVOTE/DOWNVOTE (or up/down) in any case.
func ParseVoteType(s string) (VoteType, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "UPVOTE", "UP":
		return Upvote, true
	case "DOWNVOTE", "DOWN":
		return Downvote, true
	}
	return "", false
}

// Valid reports whether t is one of the two known directions.
func (t VoteType) Valid() bool {
	return t == Upvote || t == Downvote
}

// Sign is +1 for an upvote and -1 for a downvote.
func (t VoteType) Sign() int {
	if t == Upvote {
		return 1
	}
	return -1
}

// Vote is a user's vote on a post. One per (post, user).
type Vote struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_vote_post_user" json:"post_id"`
	Post      *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_vote_post_user;index" json:"user_id"`
	Type      VoteType  `gorm:"column:vote_type;type:varchar(10);not null" json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentVote is a user's vote on a comment. One per (comment, user).
type CommentVote struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	CommentID uint      `gorm:"not null;uniqueIndex:idx_comment_vote_comment_user" json:"comment_id"`
	Comment   *Comment  `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"-"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_comment_vote_comment_user;index" json:"user_id"`
	Type      VoteType  `gorm:"column:vote_type;type:varchar(10);not null" json:"type"`
	CreatedAt time.Time `json:"created_at"`
}
