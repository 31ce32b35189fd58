package voting

import (
	"testing"

	"forum/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func voteType(t models.VoteType) *models.VoteType { return &t }

func TestDecide(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		existing  *models.VoteType
		requested models.VoteType
		action    Action
		next      *models.VoteType
		delta     int
	}{
		{"new upvote", nil, models.Upvote, Create, voteType(models.Upvote), 1},
		{"new downvote", nil, models.Downvote, Create, voteType(models.Downvote), -1},
		{"toggle off upvote", voteType(models.Upvote), models.Upvote, Remove, nil, -1},
		{"toggle off downvote", voteType(models.Downvote), models.Downvote, Remove, nil, 1},
		{"switch to upvote", voteType(models.Downvote), models.Upvote, Switch, voteType(models.Upvote), 2},
		{"switch to downvote", voteType(models.Upvote), models.Downvote, Switch, voteType(models.Downvote), -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Decide(tt.existing, tt.requested)
			require.NoError(t, err)
			assert.Equal(t, tt.action, d.Action)
			assert.Equal(t, tt.delta, d.Delta)
			assert.Equal(t, tt.next, d.Next)
		})
	}
}

func TestDecide_RejectsUnknownType(t *testing.T) {
	t.Parallel()
	_, err := Decide(nil, models.VoteType("SIDEWAYS"))
	assert.Error(t, err)
}

// Replaying any request sequence through Decide must keep the running score
// equal to the sign of whatever vote is left standing.
func TestDecide_RunningScoreMatchesFinalVote(t *testing.T) {
	t.Parallel()
	sequences := [][]models.VoteType{
		{models.Upvote, models.Upvote, models.Downvote},
		{models.Downvote, models.Upvote, models.Upvote, models.Downvote},
		{models.Upvote, models.Downvote, models.Downvote, models.Downvote},
		{models.Downvote, models.Downvote},
	}

	for _, seq := range sequences {
		var current *models.VoteType
		score := 0
		for _, req := range seq {
			d, err := Decide(current, req)
			require.NoError(t, err)
			score += d.Delta
			current = d.Next
		}

		want := 0
		if current != nil {
			want = current.Sign()
		}
		assert.Equal(t, want, score, "sequence %v", seq)
	}
}

func TestAction_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "create", Create.String())
	assert.Equal(t, "remove", Remove.String())
	assert.Equal(t, "switch", Switch.String())
	assert.Equal(t, "unknown", Action(0).String())
}
