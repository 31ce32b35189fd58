package thread

import (
	"testing"
	"time"

	"forum/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func comment(id uint, parent *uint, minute int) *models.Comment {
	return &models.Comment{
		ID:        id,
		PostID:    1,
		ParentID:  parent,
		Content:   "c",
		CreatedAt: base.Add(time.Duration(minute) * time.Minute),
	}
}

func ptr(id uint) *uint { return &id }

func ids(nodes []*Node) []uint {
	out := make([]uint, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func TestBuild_SimpleThread(t *testing.T) {
	t.Parallel()
	forest := Build([]*models.Comment{
		comment(1, nil, 0),
		comment(2, ptr(1), 1),
		comment(3, nil, 2),
	})

	require.Len(t, forest, 2)
	assert.Equal(t, []uint{1, 3}, ids(forest))
	assert.Equal(t, []uint{2}, ids(forest[0].Replies))
	assert.Empty(t, forest[1].Replies)
	assert.NotNil(t, forest[1].Replies, "leaf replies serialize as []")
	assert.Equal(t, 3, Count(forest))
}

func TestBuild_PreservesSiblingOrderAtEveryDepth(t *testing.T) {
	t.Parallel()
	forest := Build([]*models.Comment{
		comment(10, nil, 0),
		comment(11, ptr(10), 1),
		comment(12, nil, 2),
		comment(13, ptr(10), 3),
		comment(14, ptr(11), 4),
		comment(15, ptr(11), 5),
		comment(16, ptr(10), 6),
	})

	assert.Equal(t, []uint{10, 12}, ids(forest))
	assert.Equal(t, []uint{11, 13, 16}, ids(forest[0].Replies))
	assert.Equal(t, []uint{14, 15}, ids(forest[0].Replies[0].Replies))

	Walk(forest, func(n *Node, _ int) {
		for i := 1; i < len(n.Replies); i++ {
			assert.False(t, n.Replies[i].CreatedAt.Before(n.Replies[i-1].CreatedAt))
		}
	})
}

func TestBuild_DeepChainCountsEveryNode(t *testing.T) {
	t.Parallel()
	const depth = 50
	comments := []*models.Comment{comment(1, nil, 0)}
	for i := uint(2); i <= depth; i++ {
		comments = append(comments, comment(i, ptr(i-1), int(i)))
	}

	forest := Build(comments)
	require.Len(t, forest, 1)
	assert.Equal(t, depth, Count(forest))

	maxDepth := 0
	Walk(forest, func(_ *Node, d int) {
		if d > maxDepth {
			maxDepth = d
		}
	})
	assert.Equal(t, depth-1, maxDepth)
}

func TestBuild_DropsOrphans(t *testing.T) {
	t.Parallel()
	forest := Build([]*models.Comment{
		comment(1, nil, 0),
		comment(2, ptr(99), 1),
		comment(3, ptr(2), 2),
	})

	assert.Equal(t, []uint{1}, ids(forest))
	assert.Equal(t, 1, Count(forest))
}

func TestBuild_ParentCycleIsUnreachable(t *testing.T) {
	t.Parallel()
	forest := Build([]*models.Comment{
		comment(1, ptr(2), 0),
		comment(2, ptr(1), 1),
		comment(3, nil, 2),
	})
	assert.Equal(t, []uint{3}, ids(forest))
	assert.Equal(t, 1, Count(forest))
}

func TestBuild_Empty(t *testing.T) {
	t.Parallel()
	forest := Build(nil)
	assert.NotNil(t, forest)
	assert.Empty(t, forest)
	assert.Equal(t, 0, Count(forest))
}

func TestSubtree(t *testing.T) {
	t.Parallel()
	forest := Build([]*models.Comment{
		comment(1, nil, 0),
		comment(2, ptr(1), 1),
		comment(3, ptr(2), 2),
		comment(4, nil, 3),
		comment(5, ptr(1), 4),
	})

	assert.Equal(t, []uint{1, 2, 3, 5}, Subtree(forest, 1))
	assert.Equal(t, []uint{2, 3}, Subtree(forest, 2))
	assert.Equal(t, []uint{4}, Subtree(forest, 4))
	assert.Nil(t, Subtree(forest, 42))
}
