package voting

import (
	"cmp"
	"slices"

	"github.com/emilythestrangee/qa-forum/backend/internal/models"
	"github.com/emilythestrangee/qa-forum/backend/internal/reputation"
)

// Outcome describes what a submission did to the ledger.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeFlipped Outcome = "flipped"
	OutcomeRemoved Outcome = "removed"
)

// transition is the ledger change for one submission plus the vote effects to
// reverse and to apply. An empty direction means nothing to reverse or apply.
type transition struct {
	outcome Outcome
	reverse models.Direction
	apply   models.Direction
}

func planTransition(existing Vote, found bool, requested models.Direction) transition {
	switch {
	case !found:
		return transition{outcome: OutcomeCreated, apply: requested}
	case existing.Direction == requested:
		return transition{outcome: OutcomeRemoved, reverse: requested}
	default:
		return transition{outcome: OutcomeFlipped, reverse: existing.Direction, apply: requested}
	}
}

type adjustment struct {
	identityID int
	delta      int
}

// adjustments expands t into per-identity reputation changes. The old vote is
// reversed in full before the new one is applied in full. The voter's own cost
// only exists when the voter is not the author. The result is ordered by
// identity so concurrent transactions lock user rows in the same order.
func (t transition) adjustments(points reputation.Points, kind models.TargetKind, voterID, authorID int) []adjustment {
	var out []adjustment
	effect := func(d models.Direction, sign int) {
		out = append(out, adjustment{identityID: authorID, delta: sign * points.Delta(d, kind, false)})
		if voterID == authorID {
			return
		}
		if cost := points.Delta(d, kind, true); cost != 0 {
			out = append(out, adjustment{identityID: voterID, delta: sign * cost})
		}
	}

	if t.reverse != "" {
		effect(t.reverse, -1)
	}
	if t.apply != "" {
		effect(t.apply, 1)
	}

	slices.SortStableFunc(out, func(a, b adjustment) int { return cmp.Compare(a.identityID, b.identityID) })
	return out
}
