package service

import (
	"context"
	"strings"
	"testing"

	"forum/internal/events"
	"forum/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostService_CreateValidation(t *testing.T) {
	e := newEnv(t, "")
	ctx := context.Background()
	e.register(t, "alice")
	general := e.community(t, "general")

	tests := []struct {
		name  string
		input CreatePostInput
		code  string
	}{
		{"short title", CreatePostInput{Title: "ab", Content: "valid content", CommunityID: general.ID}, models.CodeValidation},
		{"long title", CreatePostInput{Title: strings.Repeat("t", 201), Content: "valid content", CommunityID: general.ID}, models.CodeValidation},
		{"blank content", CreatePostInput{Title: "Valid", Content: "   ", CommunityID: general.ID}, models.CodeValidation},
		{"long content", CreatePostInput{Title: "Valid", Content: strings.Repeat("c", 10001), CommunityID: general.ID}, models.CodeValidation},
		{"missing community", CreatePostInput{Title: "Valid", Content: "valid content"}, models.CodeValidation},
		{"unknown community", CreatePostInput{Title: "Valid", Content: "valid content", CommunityID: 999}, models.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.input.Username = "alice"
			_, err := e.posts.Create(ctx, tt.input)
			assertCode(t, err, tt.code)
		})
	}

	_, err := e.posts.Create(ctx, CreatePostInput{Title: "Valid", Content: "valid content", CommunityID: general.ID})
	assertCode(t, err, models.CodeUnauthorized)
}

func TestPostService_CreateAndFeed(t *testing.T) {
	e := newEnv(t, "")
	ctx := context.Background()
	e.register(t, "alice")
	e.register(t, "bob")
	general := e.community(t, "general")
	golang := e.community(t, "golang")

	p1 := e.post(t, "alice", general, "Alpha post")
	p2 := e.post(t, "alice", golang, "Beta post")
	p3 := e.post(t, "bob", general, "Gamma post")

	require.NotNil(t, p1.Author)
	assert.Equal(t, "alice", p1.Author.Username)
	assert.Contains(t, e.events.types(), events.PostCreated)

	_, err := e.votes.VotePost(ctx, p2.ID, "bob", models.Upvote)
	require.NoError(t, err)

	hot, err := e.posts.Feed(ctx, FeedQuery{})
	require.NoError(t, err)
	require.Len(t, hot.Items, 3)
	assert.Equal(t, p2.ID, hot.Items[0].ID)
	assert.Equal(t, 0, hot.Page)
	assert.Equal(t, 10, hot.Size)

	fresh, err := e.posts.Feed(ctx, FeedQuery{Sort: "NEW"})
	require.NoError(t, err)
	assert.Equal(t, p3.ID, fresh.Items[0].ID)

	empty, err := e.posts.Feed(ctx, FeedQuery{Page: intPtr(5)})
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
	assert.Equal(t, int64(3), empty.TotalElements)

	_, err = e.posts.Feed(ctx, FeedQuery{Page: intPtr(-1)})
	assertCode(t, err, models.CodeValidation)

	inGeneral, err := e.posts.ByCommunity(ctx, "general", FeedQuery{Sort: "new"})
	require.NoError(t, err)
	require.Len(t, inGeneral.Items, 2)
	assert.Equal(t, p3.ID, inGeneral.Items[0].ID)

	_, err = e.posts.ByCommunity(ctx, "nowhere", FeedQuery{})
	assertCode(t, err, models.CodeNotFound)

	mine, err := e.posts.ListByAuthor(ctx, "alice", FeedQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), mine.TotalElements)
}

func TestPostService_UpdateAndDeletePermissions(t *testing.T) {
	e := newEnv(t, "")
	ctx := context.Background()
	e.register(t, "alice")
	e.register(t, "bob")
	e.register(t, "root")
	_, err := e.users.SetAdmin(ctx, "root", true)
	require.NoError(t, err)
	general := e.community(t, "general")

	post := e.post(t, "alice", general, "Original")

	_, err = e.posts.Update(ctx, UpdatePostInput{Username: "bob", PostID: post.ID, Title: "Stolen", Content: "stolen body"})
	assertCode(t, err, models.CodeForbidden)

	_, err = e.posts.Update(ctx, UpdatePostInput{Username: "root", PostID: post.ID, Title: "Admin edit", Content: "admin body"})
	assertCode(t, err, models.CodeForbidden)

	updated, err := e.posts.Update(ctx, UpdatePostInput{Username: "alice", PostID: post.ID, Title: "Edited", Content: "edited body"})
	require.NoError(t, err)
	assert.Equal(t, "Edited", updated.Title)

	err = e.posts.Delete(ctx, post.ID, "bob")
	assertCode(t, err, models.CodeForbidden)

	require.NoError(t, e.posts.Delete(ctx, post.ID, "root"))
	_, err = e.posts.Get(ctx, post.ID)
	assertCode(t, err, models.CodeNotFound)

	own := e.post(t, "alice", general, "Mine to delete")
	require.NoError(t, e.posts.Delete(ctx, own.ID, "alice"))
}

func TestPostService_Attachments(t *testing.T) {
	e := newEnv(t, "")
	ctx := context.Background()
	e.register(t, "alice")
	e.register(t, "bob")
	post := e.post(t, "alice", e.community(t, "general"), "With files")

	_, err := e.posts.AddAttachments(ctx, post.ID, "bob", []string{"/uploads/attachments/x.txt"})
	assertCode(t, err, models.CodeForbidden)

	url, err := e.files.Put(ctx, "attachments/notes.txt", strings.NewReader("notes"))
	require.NoError(t, err)
	got, err := e.posts.AddAttachments(ctx, post.ID, "alice", []string{url})
	require.NoError(t, err)
	assert.Equal(t, []string{url}, got.AttachmentURLs())

	removed, err := e.posts.RemoveAttachment(ctx, post.ID, "alice", url)
	require.NoError(t, err)
	assert.True(t, removed)
	_, err = e.files.Stat(ctx, "attachments/notes.txt")
	assert.Error(t, err, "file is deleted with the attachment")

	removed, err = e.posts.RemoveAttachment(ctx, post.ID, "alice", url)
	require.NoError(t, err)
	assert.False(t, removed)
}
