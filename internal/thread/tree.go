// Package thread assembles a post's flat comment list into reply trees.
//
// Comments are persisted flat with a nullable parent id. The tree only
// exists at read time: Build indexes the comments by id and links each
// child into its parent's node.
package thread

import "forum/internal/models"

// Node is one comment with its direct replies.
type Node struct {
	*models.Comment
	Replies []*Node `json:"replies"`
}

// Build turns comments ordered by creation time ascending into a forest of
// top-level nodes. Input order is kept among siblings at every depth.
// A comment whose parent is not in the list is left out of the result.
func Build(comments []*models.Comment) []*Node {
	index := make(map[uint]*Node, len(comments))
	nodes := make([]*Node, 0, len(comments))
	for _, c := range comments {
		if c == nil {
			continue
		}
		n := &Node{Comment: c, Replies: []*Node{}}
		index[c.ID] = n
		nodes = append(nodes, n)
	}

	roots := make([]*Node, 0)
	for _, n := range nodes {
		if n.ParentID == nil {
			roots = append(roots, n)
			continue
		}
		parent, ok := index[*n.ParentID]
		if !ok {
			continue
		}
		parent.Replies = append(parent.Replies, n)
	}
	return roots
}

// Count returns the number of nodes reachable from the forest.
func Count(forest []*Node) int {
	total := 0
	for _, n := range forest {
		total += 1 + Count(n.Replies)
	}
	return total
}

// Walk visits every node depth-first, parents before replies.
func Walk(forest []*Node, fn func(n *Node, depth int)) {
	walk(forest, 0, fn)
}

func walk(forest []*Node, depth int, fn func(n *Node, depth int)) {
	for _, n := range forest {
		fn(n, depth)
		walk(n.Replies, depth+1, fn)
	}
}

// Subtree returns the ids of the comment rooted at rootID and all of its
// descendants, or nil when rootID is not reachable from the forest.
func Subtree(forest []*Node, rootID uint) []uint {
	var ids []uint
	Walk(forest, func(n *Node, _ int) {
		if n.ID == rootID {
			ids = append(ids, n.ID)
			Walk(n.Replies, func(child *Node, _ int) {
				ids = append(ids, child.ID)
			})
		}
	})
	return ids
}
