package seed

import (
	"testing"

	"forum/internal/database"
	"forum/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
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

func smallRun() Options {
	return Options{Users: 6, Communities: 2, Posts: 10, CommentsPerPost: 5, VotesPerPost: 6, Seed: 42}
}

func TestRun_CreatesConsistentData(t *testing.T) {
	db := openDB(t)
	svc := NewServices(db, nil)

	res, err := New(svc, smallRun()).Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 6, res.Users)
	assert.Equal(t, 2, res.Communities)
	assert.Equal(t, 10, res.Posts)

	var posts []models.Post
	require.NoError(t, db.Find(&posts).Error)
	require.Len(t, posts, 10)

	var votes []models.Vote
	require.NoError(t, db.Find(&votes).Error)
	assert.Len(t, votes, res.Votes)

	for _, p := range posts {
		sum := 0
		for _, v := range votes {
			if v.PostID == p.ID {
				sum += v.Type.Sign()
			}
		}
		assert.Equal(t, sum, p.Score, "post %d", p.ID)
	}

	var comments []models.Comment
	require.NoError(t, db.Find(&comments).Error)
	assert.Len(t, comments, res.Comments)
	byID := make(map[uint]models.Comment, len(comments))
	for _, c := range comments {
		byID[c.ID] = c
	}
	for _, c := range comments {
		if c.ParentID != nil {
			parent, ok := byID[*c.ParentID]
			require.True(t, ok)
			assert.Equal(t, c.PostID, parent.PostID)
		}
	}
}

func TestRun_AccountsCanLogIn(t *testing.T) {
	db := openDB(t)
	svc := NewServices(db, nil)
	opts := smallRun()
	opts.Posts = 0

	_, err := New(svc, opts).Run(t.Context())
	require.NoError(t, err)

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, 6)
	for _, u := range users {
		_, err := svc.Users.Authenticate(t.Context(), u.Username, Password)
		assert.NoError(t, err, u.Username)
	}
}

func TestRun_NoUsers(t *testing.T) {
	db := openDB(t)
	res, err := New(NewServices(db, nil), Options{Posts: 5}).Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, &Result{}, res)
}

func TestClear(t *testing.T) {
	db := openDB(t)
	_, err := New(NewServices(db, nil), smallRun()).Run(t.Context())
	require.NoError(t, err)

	require.NoError(t, Clear(t.Context(), db))
	for _, m := range database.PersistentModels() {
		var n int64
		require.NoError(t, db.Model(m).Count(&n).Error)
		assert.Zero(t, n, "%T", m)
	}
}
