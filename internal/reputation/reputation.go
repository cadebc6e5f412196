// Package reputation maps votes to reputation point deltas.
//
// Delta is pure: it never touches storage. Callers apply Delta to add a vote's effect
// and its negation to remove it, so toggling and flipping always cancel exactly.
package reputation

import "github.com/emilythestrangee/qa-forum/backend/internal/models"

// Points holds the signed point values of each vote outcome.
type Points struct {
	QuestionUpvote    int // granted to a question's author per upvote
	AnswerUpvote      int // granted to an answer's author per upvote
	Downvote          int // applied to the author of a downvoted item
	VoterDownvoteCost int // applied to a voter who downvotes someone else's item
}

// DefaultPoints are the community's scoring rules.
var DefaultPoints = Points{
	QuestionUpvote:    5,
	AnswerUpvote:      10,
	Downvote:          -2,
	VoterDownvoteCost: -1,
}

// Delta returns the reputation change for casting a vote of direction d on an item of kind k.
// With asVoterSelfCost set it returns the voter's own cost instead of the author's change;
// only downvotes carry one.
func (p Points) Delta(d models.Direction, k models.TargetKind, asVoterSelfCost bool) int {
	if asVoterSelfCost {
		if d == models.Down {
			return p.VoterDownvoteCost
		}
		return 0
	}

	switch d {
	case models.Up:
		if k == models.KindQuestion {
			return p.QuestionUpvote
		}
		if k == models.KindAnswer {
			return p.AnswerUpvote
		}
	case models.Down:
		if k.Valid() {
			return p.Downvote
		}
	}
	return 0
}
