package service

import (
	"context"
	"errors"
	"strings"

	"forum/internal/featureflags"
	"forum/internal/feed"
	"forum/internal/models"
	"forum/internal/repository"
)

// Search result types accepted by Global.
const (
	SearchPosts    = "posts"
	SearchComments = "comments"
	SearchUsers    = "users"
	SearchAll      = "all"
)

const (
	globalPreviewSize      = 5
	defaultSuggestionLimit = 5
	maxSuggestionLimit     = 20
	minSuggestionQuery     = 2
)

var postSortKeys = map[string]string{
	"score":     "score",
	"title":     "title",
	"author":    "author",
	"createdat": "createdAt",
}

type SearchService struct {
	posts       repository.PostRepository
	comments    repository.CommentRepository
	users       repository.UserRepository
	communities repository.CommunityRepository
	flags       *featureflags.Manager
}

// PostSearchQuery holds the raw parameters of a post search.
type PostSearchQuery struct {
	Query     string
	Community string
	SortBy    string
	Dir       string
	Page      *int
	Size      *int
}

// GlobalResults groups matches by kind. Kinds that were not searched are nil.
type GlobalResults struct {
	Query    string            `json:"query"`
	Posts    []*models.Post    `json:"posts,omitempty"`
	Comments []*models.Comment `json:"comments,omitempty"`
	Users    []*models.User    `json:"users,omitempty"`
}

func NewSearchService(
	posts repository.PostRepository,
	comments repository.CommentRepository,
	users repository.UserRepository,
	communities repository.CommunityRepository,
	flags *featureflags.Manager,
) *SearchService {
	return &SearchService{posts: posts, comments: comments, users: users, communities: communities, flags: flags}
}

// Posts matches title, content, author username or display name. Results are
// ordered by SortBy (createdAt when unknown), descending unless Dir is "asc".
// A blank query or an unknown community yields an empty page.
func (s *SearchService) Posts(ctx context.Context, q PostSearchQuery) (feed.Page[*models.Post], error) {
	req, err := feed.NewPageRequest(q.Page, q.Size, "")
	if err != nil {
		return feed.Page[*models.Post]{}, err
	}
	query := strings.TrimSpace(q.Query)
	if query == "" {
		return feed.NewPage[*models.Post](nil, req, 0), nil
	}

	search := repository.PostSearch{
		Query:  query,
		SortBy: postSortKeys[strings.ToLower(strings.TrimSpace(q.SortBy))],
		Desc:   !strings.EqualFold(strings.TrimSpace(q.Dir), "asc"),
		Page:   req,
	}
	if search.SortBy == "" {
		search.SortBy = "createdAt"
	}
	if name := strings.TrimSpace(q.Community); name != "" {
		community, err := s.communities.GetByName(ctx, name)
		if errors.Is(err, models.ErrNotFound) {
			return feed.NewPage[*models.Post](nil, req, 0), nil
		}
		if err != nil {
			return feed.Page[*models.Post]{}, err
		}
		search.CommunityID = &community.ID
	}
	return s.posts.Search(ctx, search)
}

// Comments matches comment content or author, newest first.
func (s *SearchService) Comments(ctx context.Context, query string, page, size *int) (feed.Page[*models.Comment], error) {
	req, err := feed.NewPageRequest(page, size, "")
	if err != nil {
		return feed.Page[*models.Comment]{}, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return feed.NewPage[*models.Comment](nil, req, 0), nil
	}
	return s.comments.Search(ctx, query, req)
}

// Users matches username, display name or email, by username.
func (s *SearchService) Users(ctx context.Context, query string, page, size *int) (feed.Page[*models.User], error) {
	req, err := feed.NewPageRequest(page, size, "")
	if err != nil {
		return feed.Page[*models.User]{}, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return feed.NewPage[*models.User](nil, req, 0), nil
	}
	return s.users.Search(ctx, query, req)
}

// Global searches one kind, or a short preview of every kind for "all" and
// unrecognized types.
func (s *SearchService) Global(ctx context.Context, query, kind string, page, size *int) (*GlobalResults, error) {
	out := &GlobalResults{Query: strings.TrimSpace(query)}
	if out.Query == "" {
		return out, nil
	}

	switch strings.ToLower(strings.TrimSpace(kind)) {
	case SearchPosts:
		res, err := s.Posts(ctx, PostSearchQuery{Query: query, Page: page, Size: size})
		if err != nil {
			return nil, err
		}
		out.Posts = res.Items
	case SearchComments:
		res, err := s.Comments(ctx, query, page, size)
		if err != nil {
			return nil, err
		}
		out.Comments = res.Items
	case SearchUsers:
		res, err := s.Users(ctx, query, page, size)
		if err != nil {
			return nil, err
		}
		out.Users = res.Items
	default:
		first, preview := 0, globalPreviewSize
		posts, err := s.Posts(ctx, PostSearchQuery{Query: query, Page: &first, Size: &preview})
		if err != nil {
			return nil, err
		}
		comments, err := s.Comments(ctx, query, &first, &preview)
		if err != nil {
			return nil, err
		}
		users, err := s.Users(ctx, query, &first, &preview)
		if err != nil {
			return nil, err
		}
		out.Posts, out.Comments, out.Users = posts.Items, comments.Items, users.Items
	}
	return out, nil
}

// Suggestions returns matching post titles, highest score first. Queries
// shorter than two characters, and a disabled search_suggestions flag, yield
// nothing.
func (s *SearchService) Suggestions(ctx context.Context, query string, limit int) ([]string, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minSuggestionQuery || !s.flags.Enabled(featureflags.SearchSuggestions, 0) {
		return []string{}, nil
	}
	if limit <= 0 {
		limit = defaultSuggestionLimit
	}
	if limit > maxSuggestionLimit {
		limit = maxSuggestionLimit
	}
	titles, err := s.posts.SuggestTitles(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if titles == nil {
		titles = []string{}
	}
	return titles, nil
}
