// Package feed orders and pages posts for the home feed and community listings.
package feed

import (
	"math"
	"sort"
	"strings"

	"forum/internal/models"

	"gorm.io/gorm/clause"
)

// Sort names a feed ordering strategy.
type Sort string

const (
	// SortNew orders by creation time, newest first.
	SortNew Sort = "new"
	// SortTop orders by score, then creation time, both descending.
	SortTop Sort = "top"
	// SortHot is ranked exactly like SortTop; there is no time decay.
	SortHot Sort = "hot"
)

// Pagination defaults.
const (
	DefaultPage = 0
	DefaultSize = 10
	MaxSize     = 100
)

// ParseSort maps a user-supplied name to a Sort. Matching ignores case;
// empty and unrecognized names fall back to SortHot.
func ParseSort(name string) Sort {
	switch Sort(strings.ToLower(strings.TrimSpace(name))) {
	case SortNew:
		return SortNew
	case SortTop:
		return SortTop
	default:
		return SortHot
	}
}

// OrderBy returns the SQL ordering for the strategy. The trailing id column
// keeps paging stable when timestamps collide.
func (s Sort) OrderBy() clause.OrderBy {
	cols := []clause.OrderByColumn{}
	if s != SortNew {
		cols = append(cols, clause.OrderByColumn{Column: clause.Column{Table: clause.CurrentTable, Name: "score"}, Desc: true})
	}
	cols = append(cols,
		clause.OrderByColumn{Column: clause.Column{Table: clause.CurrentTable, Name: "created_at"}, Desc: true},
		clause.OrderByColumn{Column: clause.Column{Table: clause.CurrentTable, Name: "id"}, Desc: true},
	)
	return clause.OrderBy{Columns: cols}
}

// Less reports whether a ranks ahead of b under the strategy.
func (s Sort) Less(a, b *models.Post) bool {
	if s != SortNew && a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// PageRequest is a normalized page/size/sort triple.
type PageRequest struct {
	Page int
	Size int
	Sort Sort
}

// NewPageRequest applies defaults: nil page => 0, nil or non-positive size
// => 10, sizes above MaxSize are clamped. A negative page is rejected.
func NewPageRequest(page, size *int, sortName string) (PageRequest, error) {
	req := PageRequest{Page: DefaultPage, Size: DefaultSize, Sort: ParseSort(sortName)}
	if page != nil {
		if *page < 0 {
			return PageRequest{}, models.NewFieldValidationError([]models.FieldError{
				{Field: "page", Message: "must be zero or greater"},
			})
		}
		req.Page = *page
	}
	if size != nil && *size > 0 {
		req.Size = *size
	}
	if req.Size > MaxSize {
		req.Size = MaxSize
	}
	return req, nil
}

// Offset is the number of rows skipped before this page.
func (r PageRequest) Offset() int {
	if r.Size > 0 && r.Page > math.MaxInt32/r.Size {
		return math.MaxInt32
	}
	return r.Page * r.Size
}

// Page is one slice of an ordered result set.
type Page[T any] struct {
	Items         []T   `json:"items"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"total_elements"`
	TotalPages    int   `json:"total_pages"`
}

// NewPage wraps items fetched for req out of total matching rows.
func NewPage[T any](items []T, req PageRequest, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if req.Size > 0 {
		pages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return Page[T]{
		Items:         items,
		Page:          req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    pages,
	}
}

// Rank orders posts in memory and returns the requested page. A page past
// the end is empty, not an error. The input slice is not modified.
func Rank(posts []*models.Post, req PageRequest) Page[*models.Post] {
	ordered := make([]*models.Post, len(posts))
	copy(ordered, posts)
	sort.SliceStable(ordered, func(i, j int) bool {
		return req.Sort.Less(ordered[i], ordered[j])
	})

	total := int64(len(ordered))
	start := req.Offset()
	if start >= len(ordered) {
		return NewPage([]*models.Post{}, req, total)
	}
	end := start + req.Size
	if end > len(ordered) {
		end = len(ordered)
	}
	return NewPage(ordered[start:end], req, total)
}
