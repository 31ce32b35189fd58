// Package seed fills a database with built-in communities and with fake
// demo content generated through the application services.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"forum/internal/database"
	"forum/internal/events"
	"forum/internal/middleware"
	"forum/internal/models"
	"forum/internal/repository"
	"forum/internal/service"
	"forum/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Password is shared by every generated account.
const Password = "Seed@Passw0rd"

// Options sizes a seeding run. A zero Seed picks a random one.
type Options struct {
	Users           int
	Communities     int
	Posts           int
	CommentsPerPost int
	VotesPerPost    int
	Seed            int64
}

// DefaultOptions is a small but browsable dataset.
func DefaultOptions() Options {
	return Options{Users: 25, Communities: 6, Posts: 120, CommentsPerPost: 6, VotesPerPost: 10}
}

// Services are the use cases the seeder drives.
type Services struct {
	Users       *service.UserService
	Communities *service.CommunityService
	Posts       *service.PostService
	Comments    *service.CommentService
	Votes       *service.VoteService
}

// NewServices wires the services over db without file storage.
func NewServices(db *gorm.DB, pub events.Publisher) Services {
	if pub == nil {
		pub = events.Noop{}
	}
	users := repository.NewUserRepository(db)
	communities := repository.NewCommunityRepository(db)
	posts := repository.NewPostRepository(db)
	return Services{
		Users:       service.NewUserService(users),
		Communities: service.NewCommunityService(communities, repository.NewMembershipRepository(db), users, pub),
		Posts:       service.NewPostService(posts, communities, users, nil, pub),
		Comments:    service.NewCommentService(repository.NewCommentRepository(db), posts, users, pub),
		Votes:       service.NewVoteService(repository.NewVoteRepository(db), users, pub),
	}
}

// Result counts what a run created.
type Result struct {
	Users       int
	Communities int
	Posts       int
	Comments    int
	Votes       int
}

type Seeder struct {
	svc   Services
	opts  Options
	faker *gofakeit.Faker
}

func New(svc Services, opts Options) *Seeder {
	return &Seeder{svc: svc, opts: opts, faker: gofakeit.New(opts.Seed)}
}

// Run generates users, communities, posts, comment threads and votes.
// Votes go through the vote ledger so every score matches its votes.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	res := &Result{}

	users, err := s.users(ctx)
	if err != nil {
		return res, err
	}
	res.Users = len(users)
	if len(users) == 0 {
		return res, nil
	}

	communities, err := s.communities(ctx, users)
	if err != nil {
		return res, err
	}
	res.Communities = len(communities)
	if len(communities) == 0 {
		return res, nil
	}

	for i := 0; i < s.opts.Posts; i++ {
		author := s.pick(users)
		post, err := s.svc.Posts.Create(ctx, service.CreatePostInput{
			Username:    author.Username,
			Title:       clip(strings.TrimSuffix(s.faker.Sentence(s.faker.IntRange(3, 9)), "."), 200),
			Content:     s.faker.Paragraph(s.faker.IntRange(1, 3), s.faker.IntRange(2, 5), 12, "\n\n"),
			CommunityID: communities[s.faker.IntRange(0, len(communities)-1)].ID,
		})
		if err != nil {
			return res, fmt.Errorf("seed post: %w", err)
		}
		res.Posts++

		n, err := s.thread(ctx, post.ID, users)
		res.Comments += n
		if err != nil {
			return res, err
		}
		n, err = s.votes(ctx, post.ID, users)
		res.Votes += n
		if err != nil {
			return res, err
		}
	}

	middleware.Logger.Info("Seeding complete",
		slog.Int("users", res.Users),
		slog.Int("communities", res.Communities),
		slog.Int("posts", res.Posts),
		slog.Int("comments", res.Comments),
		slog.Int("votes", res.Votes),
	)
	return res, nil
}

func (s *Seeder) users(ctx context.Context) ([]*models.User, error) {
	users := make([]*models.User, 0, s.opts.Users)
	for i := 0; i < s.opts.Users; i++ {
		first, last := lettersOnly(s.faker.FirstName()), lettersOnly(s.faker.LastName())
		username := fmt.Sprintf("%s_%d", clip(strings.ToLower(first+"_"+last), validation.UsernameMax-6), i+1)
		user, err := s.svc.Users.Register(ctx, service.RegisterInput{
			Username:    username,
			Email:       username + "@example.com",
			Password:    Password,
			DisplayName: clip(strings.TrimSpace(first+" "+last), validation.DisplayNameMax),
		})
		if err != nil {
			return users, fmt.Errorf("seed user %q: %w", username, err)
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) communities(ctx context.Context, users []*models.User) ([]*models.Community, error) {
	out := make([]*models.Community, 0, s.opts.Communities)
	for i := 0; i < s.opts.Communities; i++ {
		name := fmt.Sprintf("%s-%d", clip(strings.ToLower(lettersOnly(s.faker.HipsterWord())), validation.CommunityNameMax-6), i+1)
		community, err := s.svc.Communities.Create(ctx, service.CreateCommunityInput{
			Name:        name,
			Description: clip(s.faker.Sentence(10), 500),
		})
		if err != nil {
			return out, fmt.Errorf("seed community %q: %w", name, err)
		}
		out = append(out, community)

		for _, u := range users {
			if s.faker.Bool() {
				if _, err := s.svc.Communities.Join(ctx, community.Name, u.Username); err != nil {
					return out, err
				}
			}
		}
	}
	return out, nil
}

// thread adds comments to a post, about half of them replies to an
// earlier comment on the same post.
func (s *Seeder) thread(ctx context.Context, postID uint, users []*models.User) (int, error) {
	if s.opts.CommentsPerPost <= 0 {
		return 0, nil
	}
	var ids []uint
	for i := s.faker.IntRange(0, s.opts.CommentsPerPost); i > 0; i-- {
		in := service.CreateCommentInput{
			Username: s.pick(users).Username,
			PostID:   postID,
			Content:  s.faker.Sentence(s.faker.IntRange(4, 20)),
		}
		if len(ids) > 0 && s.faker.Bool() {
			parent := ids[s.faker.IntRange(0, len(ids)-1)]
			in.ParentID = &parent
		}
		comment, err := s.svc.Comments.Add(ctx, in)
		if err != nil {
			return len(ids), fmt.Errorf("seed comment: %w", err)
		}
		ids = append(ids, comment.ID)

		if s.faker.Number(0, 2) == 0 {
			if _, err := s.svc.Votes.VoteComment(ctx, comment.ID, s.pick(users).Username, s.direction()); err != nil {
				return len(ids), fmt.Errorf("seed comment vote: %w", err)
			}
		}
	}
	return len(ids), nil
}

// votes casts at most one vote per user on a post.
func (s *Seeder) votes(ctx context.Context, postID uint, users []*models.User) (int, error) {
	n := min(s.faker.IntRange(0, max(s.opts.VotesPerPost, 0)), len(users))
	order := make([]int, len(users))
	for i := range order {
		order[i] = i
	}
	s.faker.ShuffleInts(order)
	for _, i := range order[:n] {
		if _, err := s.svc.Votes.VotePost(ctx, postID, users[i].Username, s.direction()); err != nil {
			return 0, fmt.Errorf("seed vote: %w", err)
		}
	}
	return n, nil
}

// direction is an upvote roughly three times out of four.
func (s *Seeder) direction() models.VoteType {
	if s.faker.Number(0, 3) == 0 {
		return models.Downvote
	}
	return models.Upvote
}

func (s *Seeder) pick(users []*models.User) *models.User {
	return users[s.faker.IntRange(0, len(users)-1)]
}

// Clear deletes every row of the forum tables, children first.
func Clear(ctx context.Context, db *gorm.DB) error {
	tx := db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	if err := tx.Exec("DELETE FROM user_roles").Error; err != nil {
		return fmt.Errorf("clear user_roles: %w", err)
	}
	all := database.PersistentModels()
	for i := len(all) - 1; i >= 0; i-- {
		if err := tx.Unscoped().Delete(all[i]).Error; err != nil {
			return fmt.Errorf("clear %T: %w", all[i], err)
		}
	}
	return nil
}

func lettersOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			return r
		}
		return -1
	}, s)
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
