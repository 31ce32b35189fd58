package database

import "forum/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models,
// parents before children.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Role{},
		&models.User{},
		&models.Community{},
		&models.CommunityMembership{},
		&models.Post{},
		&models.PostAttachment{},
		&models.PostSave{},
		&models.Comment{},
		&models.Vote{},
		&models.CommentVote{},
	}
}
