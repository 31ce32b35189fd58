package service

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"forum/internal/database"
	"forum/internal/events"
	"forum/internal/featureflags"
	"forum/internal/models"
	"forum/internal/repository"
	"forum/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	passwordCost = bcrypt.MinCost
	os.Exit(m.Run())
}

// recorder is an events.Publisher that keeps what it was given.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, evt events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type env struct {
	db          *gorm.DB
	events      *recorder
	files       *storage.Local
	users       *UserService
	communities *CommunityService
	posts       *PostService
	comments    *CommentService
	votes       *VoteService
	saves       *SaveService
	search      *SearchService
	uploads     *UploadService
}

func newEnv(t *testing.T, flags string) *env {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	files, err := storage.NewLocal(t.TempDir(), "/uploads")
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(db)
	communityRepo := repository.NewCommunityRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	rec := &recorder{}
	ff := featureflags.NewManager(flags)

	e := &env{db: db, events: rec, files: files}
	e.users = NewUserService(userRepo)
	e.communities = NewCommunityService(communityRepo, repository.NewMembershipRepository(db), userRepo, rec)
	e.posts = NewPostService(postRepo, communityRepo, userRepo, files, rec)
	e.comments = NewCommentService(commentRepo, postRepo, userRepo, rec)
	e.votes = NewVoteService(repository.NewVoteRepository(db), userRepo, rec)
	e.saves = NewSaveService(repository.NewSaveRepository(db), postRepo, userRepo)
	e.search = NewSearchService(postRepo, commentRepo, userRepo, communityRepo, ff)
	e.uploads = NewUploadService(files, e.users, e.posts, ff, 0, 0)
	return e
}

func (e *env) register(t *testing.T, username string) *models.User {
	t.Helper()
	u, err := e.users.Register(context.Background(), RegisterInput{
		Username:    username,
		Email:       username + "@example.com",
		Password:    "Passw0rd!",
		DisplayName: "User " + username,
	})
	require.NoError(t, err)
	return u
}

func (e *env) community(t *testing.T, name string) *models.Community {
	t.Helper()
	c, err := e.communities.Create(context.Background(), CreateCommunityInput{Name: name, Description: "about " + name})
	require.NoError(t, err)
	return c
}

func (e *env) post(t *testing.T, username string, community *models.Community, title string) *models.Post {
	t.Helper()
	p, err := e.posts.Create(context.Background(), CreatePostInput{
		Username:    username,
		Title:       title,
		Content:     "content of " + title,
		CommunityID: community.ID,
	})
	require.NoError(t, err)
	return p
}

// assertCode asserts that err is an AppError carrying code.
func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code, appErr.Message)
}

func intPtr(v int) *int { return &v }
