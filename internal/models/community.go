package models

import "time"

// Community is a named space that owns posts.
type Community struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:40;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"size:500" json:"description"`
	Posts       []Post    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// CommunityMembership links a user to a community they joined.
type CommunityMembership struct {
	ID          uint       `gorm:"primaryKey" json:"-"`
	UserID      uint       `gorm:"not null;uniqueIndex:idx_membership_user_community" json:"user_id"`
	CommunityID uint       `gorm:"not null;uniqueIndex:idx_membership_user_community;index" json:"community_id"`
	Community   *Community `gorm:"foreignKey:CommunityID;constraint:OnDelete:CASCADE" json:"community,omitempty"`
	JoinedAt    time.Time  `gorm:"not null" json:"joined_at"`
}
