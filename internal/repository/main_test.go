package repository

import (
	"fmt"
	"testing"
	"time"

	"forum/internal/database"
	"forum/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var epoch = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func mustUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		DisplayName:  username,
		PasswordHash: "x",
		Enabled:      true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func mustCommunity(t *testing.T, db *gorm.DB, name string) *models.Community {
	t.Helper()
	c := &models.Community{Name: name, Description: "about " + name}
	require.NoError(t, db.Create(c).Error)
	return c
}

func mustPost(t *testing.T, db *gorm.DB, author *models.User, community *models.Community, score int, created time.Time) *models.Post {
	t.Helper()
	p := &models.Post{
		Title:       fmt.Sprintf("post at %s", created.Format(time.Kitchen)),
		Content:     "body",
		Score:       score,
		AuthorID:    author.ID,
		CommunityID: community.ID,
		CreatedAt:   created,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func mustComment(t *testing.T, db *gorm.DB, author *models.User, post *models.Post, parent *models.Comment, created time.Time) *models.Comment {
	t.Helper()
	c := &models.Comment{
		Content:   "reply",
		PostID:    post.ID,
		AuthorID:  author.ID,
		CreatedAt: created,
	}
	if parent != nil {
		c.ParentID = &parent.ID
	}
	require.NoError(t, db.Create(c).Error)
	return c
}
