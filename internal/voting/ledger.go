// Package voting decides how a vote request changes a voter's existing vote
// and the target's score. It has no storage dependency; callers run the
// decision inside the transaction that persists it.
package voting

import (
	"fmt"

	"forum/internal/models"
)

// Action is the single vote-row mutation a decision requires.
type Action int

const (
	// Create inserts a new vote row.
	Create Action = iota + 1
	// Remove deletes the existing vote row (same type submitted again).
	Remove
	// Switch flips the existing vote row to the requested type.
	Switch
)

func (a Action) String() string {
	switch a {
	case Create:
		return "create"
	case Remove:
		return "remove"
	case Switch:
		return "switch"
	default:
		return "unknown"
	}
}

// Decision is the outcome of Decide.
type Decision struct {
	Action Action
	// Next is the vote type after the decision; nil when the row is removed.
	Next *models.VoteType
	// Delta is added to the target's score.
	Delta int
}

// Decide resolves a requested vote against the voter's existing vote, if any.
//
//	none      + X  => create X,  delta sign(X)
//	X         + X  => remove,    delta -sign(X)
//	X         + Y  => switch Y,  delta 2*sign(Y)
func Decide(existing *models.VoteType, requested models.VoteType) (Decision, error) {
	if !requested.Valid() {
		return Decision{}, fmt.Errorf("voting: unknown vote type %q", requested)
	}
	next := requested

	switch {
	case existing == nil:
		return Decision{Action: Create, Next: &next, Delta: requested.Sign()}, nil
	case *existing == requested:
		return Decision{Action: Remove, Delta: -requested.Sign()}, nil
	default:
		return Decision{Action: Switch, Next: &next, Delta: 2 * requested.Sign()}, nil
	}
}
