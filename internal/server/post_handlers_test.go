package server

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"forum/internal/config"
	"forum/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePost(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signup(t, "alice")
	golang := ts.community(t, token, "golang")

	resp := ts.do(t, http.MethodPost, "/api/posts", token, fiber.Map{
		"title":       "Hello Go",
		"content":     "First post here",
		"communityId": golang,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	post := decode[map[string]any](t, resp)
	assert.Equal(t, "Hello Go", post["title"])
	assert.Equal(t, float64(0), post["score"])

	tests := []struct {
		name   string
		token  string
		body   fiber.Map
		status int
	}{
		{"anonymous", "", fiber.Map{"title": "Hello", "content": "Body text", "communityId": golang}, http.StatusUnauthorized},
		{"blank title", token, fiber.Map{"title": "   ", "content": "Body text", "communityId": golang}, http.StatusBadRequest},
		{"missing community", token, fiber.Map{"title": "Hello", "content": "Body text"}, http.StatusBadRequest},
		{"unknown community", token, fiber.Map{"title": "Hello", "content": "Body text", "communityId": 999}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, http.MethodPost, "/api/posts", tt.token, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestFeed(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup(t, "alice")
	bob := ts.signup(t, "bob")
	golang := ts.community(t, alice, "golang")

	older := ts.post(t, alice, golang, "Older popular")
	ts.post(t, alice, golang, "Newer quiet")
	ts.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/upvote", older), bob, nil)

	tests := []struct {
		name   string
		query  string
		titles []string
	}{
		{"default is hot", "", []string{"Older popular", "Newer quiet"}},
		{"new", "?sort=new", []string{"Newer quiet", "Older popular"}},
		{"top", "?sort=top", []string{"Older popular", "Newer quiet"}},
		{"unknown sort falls back to hot", "?sort=rising", []string{"Older popular", "Newer quiet"}},
		{"second page of one", "?size=1&page=1&sort=new", []string{"Older popular"}},
		{"page past the end", "?page=5", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, http.MethodGet, "/api/posts"+tt.query, "", nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			page := decode[pageBody](t, resp)
			assert.Equal(t, tt.titles, page.titles())
			assert.Equal(t, int64(2), page.TotalElements)
		})
	}

	t.Run("defaults", func(t *testing.T) {
		page := decode[pageBody](t, ts.do(t, http.MethodGet, "/api/posts", "", nil))
		assert.Equal(t, 0, page.Page)
		assert.Equal(t, 10, page.Size)
		assert.Equal(t, 1, page.TotalPages)
	})

	t.Run("negative page", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/posts?page=-1", "", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetPost_Detail(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup(t, "alice")
	bob := ts.signup(t, "bob")
	golang := ts.community(t, alice, "golang")
	id := ts.post(t, alice, golang, "Tree post")
	path := fmt.Sprintf("/api/posts/%d", id)

	resp := ts.do(t, http.MethodPost, path+"/comments", bob, fiber.Map{"content": "top level"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	top := decode[struct {
		ID uint `json:"id"`
	}](t, resp).ID
	resp = ts.do(t, http.MethodPost, fmt.Sprintf("%s/comments/%d/replies", path, top), alice, fiber.Map{"content": "a reply"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	ts.do(t, http.MethodPost, path+"/downvote", bob, nil)
	ts.do(t, http.MethodPost, path+"/save", bob, nil)

	type detail struct {
		Title        string  `json:"title"`
		Score        int     `json:"score"`
		CommentCount int     `json:"commentCount"`
		Saved        bool    `json:"saved"`
		UserVote     *string `json:"userVote"`
		Comments     []struct {
			Content string `json:"content"`
			Replies []struct {
				Content string `json:"content"`
			} `json:"replies"`
		} `json:"comments"`
	}

	t.Run("as the voter", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, path, bob, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		d := decode[detail](t, resp)
		assert.Equal(t, "Tree post", d.Title)
		assert.Equal(t, -1, d.Score)
		assert.Equal(t, 2, d.CommentCount)
		assert.True(t, d.Saved)
		require.NotNil(t, d.UserVote)
		assert.Equal(t, string(models.Downvote), *d.UserVote)
		require.Len(t, d.Comments, 1)
		assert.Equal(t, "top level", d.Comments[0].Content)
		require.Len(t, d.Comments[0].Replies, 1)
		assert.Equal(t, "a reply", d.Comments[0].Replies[0].Content)
	})

	t.Run("anonymous", func(t *testing.T) {
		d := decode[detail](t, ts.do(t, http.MethodGet, path, "", nil))
		assert.False(t, d.Saved)
		assert.Nil(t, d.UserVote)
		assert.Equal(t, 2, d.CommentCount)
	})

	t.Run("missing post", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/posts/999", "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("bad id", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/posts/abc", "", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestVotePost(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup(t, "alice")
	bob := ts.signup(t, "bob")
	golang := ts.community(t, alice, "golang")
	id := ts.post(t, alice, golang, "Vote on me")

	steps := []struct {
		name  string
		path  string
		score int
		vote  *string
	}{
		{"upvote", "upvote", 1, strPtr("UPVOTE")},
		{"repeat removes it", "upvote", 0, nil},
		{"downvote", "downvote", -1, strPtr("DOWNVOTE")},
		{"switch to upvote", "upvote", 1, strPtr("UPVOTE")},
		{"switch to downvote", "downvote", -1, strPtr("DOWNVOTE")},
	}
	for _, st := range steps {
		resp := ts.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/%s", id, st.path), bob, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, st.name)
		body := decode[struct {
			Success bool    `json:"success"`
			Score   int     `json:"score"`
			Vote    *string `json:"vote"`
		}](t, resp)
		assert.True(t, body.Success, st.name)
		assert.Equal(t, st.score, body.Score, st.name)
		assert.Equal(t, st.vote, body.Vote, st.name)
	}

	resp := ts.do(t, http.MethodPost, "/api/posts/999/upvote", bob, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/upvote", id), "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSavePost(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup(t, "alice")
	golang := ts.community(t, alice, "golang")
	first := ts.post(t, alice, golang, "First saved")
	second := ts.post(t, alice, golang, "Second saved")

	type result struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	save := func(id uint, method string) result {
		resp := ts.do(t, method, fmt.Sprintf("/api/posts/%d/save", id), alice, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		return decode[result](t, resp)
	}

	assert.Equal(t, result{true, "Post saved"}, save(first, http.MethodPost))
	assert.Equal(t, result{false, "Post already saved"}, save(first, http.MethodPost))
	save(second, http.MethodPost)

	resp := ts.do(t, http.MethodGet, "/api/users/me/saved", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	saved := decode[struct {
		Items []struct {
			Post struct {
				Title string `json:"title"`
			} `json:"post"`
		} `json:"items"`
		TotalElements int64 `json:"total_elements"`
	}](t, resp)
	require.Len(t, saved.Items, 2)
	assert.Equal(t, "Second saved", saved.Items[0].Post.Title)
	assert.Equal(t, "First saved", saved.Items[1].Post.Title)

	assert.Equal(t, result{true, "Post unsaved"}, save(first, http.MethodDelete))
	assert.Equal(t, result{false, "Post was not saved"}, save(first, http.MethodDelete))

	resp = ts.do(t, http.MethodPost, "/api/posts/999/save", alice, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateAndDeletePost(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup(t, "alice")
	bob := ts.signup(t, "bob")
	golang := ts.community(t, alice, "golang")
	id := ts.post(t, alice, golang, "Original title")
	path := fmt.Sprintf("/api/posts/%d", id)
	edit := fiber.Map{"title": "Edited title", "content": "Edited content"}

	resp := ts.do(t, http.MethodPut, path, bob, edit)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.do(t, http.MethodPut, path, alice, edit)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Edited title", decode[map[string]any](t, resp)["title"])

	resp = ts.do(t, http.MethodDelete, path, bob, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.do(t, http.MethodDelete, path, alice, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeletePost_Admin(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup(t, "alice")
	admin := ts.signup(t, "moderator")
	_, err := ts.userService.SetAdmin(t.Context(), "moderator", true)
	require.NoError(t, err)
	golang := ts.community(t, alice, "golang")
	id := ts.post(t, alice, golang, "Rule breaking")
	path := fmt.Sprintf("/api/posts/%d", id)

	resp := ts.do(t, http.MethodPut, path, admin, fiber.Map{"title": "Admin edit", "content": "Not allowed"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.do(t, http.MethodDelete, path, admin, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestAttachments(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup(t, "alice")
	bob := ts.signup(t, "bob")
	golang := ts.community(t, alice, "golang")
	id := ts.post(t, alice, golang, "With files")
	path := fmt.Sprintf("/api/posts/%d/attachments", id)

	resp := ts.upload(t, path, alice, "files", map[string][]byte{
		"diagram.png": pngBytes(t, 8, 8),
		"notes.md":    []byte("# notes"),
		"virus.exe":   []byte("MZ"),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[struct {
		Uploaded []string `json:"uploaded"`
		Failed   []struct {
			Filename string `json:"filename"`
		} `json:"failed"`
		Post struct {
			Attachments []struct {
				URL string `json:"url"`
			} `json:"attachments"`
		} `json:"post"`
	}](t, resp)
	require.Len(t, res.Uploaded, 2)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "virus.exe", res.Failed[0].Filename)
	assert.Len(t, res.Post.Attachments, 2)

	resp = ts.upload(t, path, bob, "files", map[string][]byte{"x.png": pngBytes(t, 2, 2)})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	target := res.Uploaded[0]
	stored := filepath.Join(ts.files.Root(), strings.TrimPrefix(target, "/uploads/"))
	_, err := os.Stat(stored)
	require.NoError(t, err)

	resp = ts.do(t, http.MethodDelete, path+"?url="+url.QueryEscape(target), alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decode[map[string]any](t, resp)["success"])
	_, err = os.Stat(stored)
	assert.True(t, os.IsNotExist(err))

	resp = ts.do(t, http.MethodDelete, path+"?url="+url.QueryEscape(target), alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, decode[map[string]any](t, resp)["success"])

	resp = ts.do(t, http.MethodDelete, path, alice, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAttachments_Disabled(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.FeatureFlags = "attachments=off" })
	alice := ts.signup(t, "alice")
	golang := ts.community(t, alice, "golang")
	id := ts.post(t, alice, golang, "No files")

	resp := ts.upload(t, fmt.Sprintf("/api/posts/%d/attachments", id), alice, "files", map[string][]byte{"a.png": pngBytes(t, 2, 2)})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func strPtr(s string) *string { return &s }
