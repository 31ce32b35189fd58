package models

import "time"

// Post is a titled submission to one community.
type Post struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	Title       string           `gorm:"size:200;not null" json:"title"`
	Content     string           `gorm:"type:text;not null" json:"content"`
	Score       int              `gorm:"not null;default:0;index" json:"score"`
	AuthorID    uint             `gorm:"not null;index" json:"author_id"`
	Author      *User            `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	CommunityID uint             `gorm:"not null;index" json:"community_id"`
	Community   *Community       `gorm:"foreignKey:CommunityID" json:"community,omitempty"`
	Attachments []PostAttachment `gorm:"constraint:OnDelete:CASCADE" json:"attachments"`
	CreatedAt   time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// AttachmentURLs returns the post's attachment URLs in insertion order.
func (p *Post) AttachmentURLs() []string {
	urls := make([]string, 0, len(p.Attachments))
	for _, a := range p.Attachments {
		urls = append(urls, a.URL)
	}
	return urls
}

// PostAttachment is one stored file URL attached to a post.
type PostAttachment struct {
	ID     uint   `gorm:"primaryKey" json:"-"`
	PostID uint   `gorm:"not null;uniqueIndex:idx_attachment_post_url" json:"-"`
	URL    string `gorm:"size:512;not null;uniqueIndex:idx_attachment_post_url" json:"url"`
}

// PostSave records that a user bookmarked a post.
type PostSave struct {
	ID      uint      `gorm:"primaryKey" json:"-"`
	UserID  uint      `gorm:"not null;uniqueIndex:idx_post_save_user_post" json:"user_id"`
	PostID  uint      `gorm:"not null;uniqueIndex:idx_post_save_user_post;index" json:"post_id"`
	Post    *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"post,omitempty"`
	SavedAt time.Time `gorm:"not null" json:"saved_at"`
}
