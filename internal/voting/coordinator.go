// Package voting records votes on questions and answers and keeps the authors'
// reputation and the items' scores consistent with the ledger.
//
// Every submission runs as one store transaction: the ledger write, the
// reputation adjustments of at most two identities, and the recomputed score
// commit together or not at all.
package voting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/metrics"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
	"github.com/emilythestrangee/qa-forum/backend/internal/reputation"
	"github.com/emilythestrangee/qa-forum/backend/internal/retry"
)

// Tally is the aggregate of the ledger for one target.
type Tally struct {
	Score         int `json:"score"`
	UpvoteCount   int `json:"upvoteCount"`
	DownvoteCount int `json:"downvoteCount"`
}

// Result is the outcome of a submission. Direction is empty when the vote was removed.
type Result struct {
	Tally
	Outcome   Outcome
	Direction models.Direction
}

// DefaultRetryPolicy retries a conflicting submission once with fresh reads.
var DefaultRetryPolicy = retry.Policy{MaxAttempts: 2, InitialBackoff: 5 * time.Millisecond}

type Coordinator struct {
	store   Store
	points  reputation.Points
	policy  retry.Policy
	metrics *metrics.VoteMetrics
	logger  *slog.Logger
}

type Option func(*Coordinator)

func WithPoints(p reputation.Points) Option {
	return func(c *Coordinator) { c.points = p }
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Coordinator) { c.policy = p }
}

func WithMetrics(m *metrics.VoteMetrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

func NewCoordinator(store Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:  store,
		points: reputation.DefaultPoints,
		policy: DefaultRetryPolicy,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitVote records voterID's vote of direction dir on the target and returns
// the target's fresh tally. Resubmitting the direction already held removes the
// vote; submitting the other direction flips it.
func (c *Coordinator) SubmitVote(ctx context.Context, voterID int, kind models.TargetKind, targetID int, dir models.Direction) (Result, error) {
	if voterID <= 0 {
		return Result{}, apperr.Unauthenticated("voter identity required")
	}
	if err := validateTarget(kind, targetID); err != nil {
		return Result{}, err
	}
	if !dir.Valid() {
		return Result{}, apperr.InvalidArgument("invalid vote parameters").WithField("type", string(dir))
	}

	start := time.Now()
	target := Target{Kind: kind, ID: targetID}

	var applied int
	res, err := retry.Do(ctx, c.policy, classify, func(ctx context.Context) (Result, error) {
		res, moved, err := c.submit(ctx, voterID, target, dir)
		if errors.Is(err, apperr.ErrConflict) {
			c.metrics.ObserveConflict()
			c.logger.WarnContext(ctx, "vote write conflict",
				"voter_id", voterID, "kind", kind, "target_id", targetID, "error", err)
		}
		applied = moved
		return res, err
	})
	if err != nil {
		err = c.surface(ctx, err, "vote could not be recorded")
		c.metrics.ObserveVote(string(kind), string(apperr.As(err).Type), time.Since(start))
		return Result{}, err
	}

	c.metrics.ObserveVote(string(kind), string(res.Outcome), time.Since(start))
	c.metrics.ObserveReputation(string(kind), applied)
	c.logger.DebugContext(ctx, "vote recorded",
		"voter_id", voterID, "kind", kind, "target_id", targetID,
		"outcome", res.Outcome, "score", res.Score)
	return res, nil
}

// submit runs one attempt. It reports the absolute reputation points it moved.
func (c *Coordinator) submit(ctx context.Context, voterID int, target Target, dir models.Direction) (Result, int, error) {
	var (
		res   Result
		moved int
	)
	err := c.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		item, err := tx.Items().Item(ctx, target)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.NotFound(fmt.Sprintf("%s not found", target.Kind))
			}
			return fmt.Errorf("load %s %d: %w", target.Kind, target.ID, err)
		}

		voter, err := tx.Identities().Identity(ctx, voterID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.NotFound("voter not found")
			}
			return fmt.Errorf("load voter %d: %w", voterID, err)
		}
		if voter.Banned {
			return apperr.PermissionDenied("banned users cannot vote")
		}

		authorKnown := true
		if item.AuthorID != voterID {
			if _, err := tx.Identities().Identity(ctx, item.AuthorID); err != nil {
				if !errors.Is(err, apperr.ErrNotFound) {
					return fmt.Errorf("load author %d: %w", item.AuthorID, err)
				}
				authorKnown = false
				c.logger.WarnContext(ctx, "author of voted item no longer exists",
					"kind", target.Kind, "target_id", target.ID, "author_id", item.AuthorID)
			}
		}

		existing, found, err := tx.Ledger().Find(ctx, voterID, target)
		if err != nil {
			return fmt.Errorf("find vote: %w", err)
		}

		t := planTransition(existing, found, dir)
		if t.outcome == OutcomeRemoved {
			err = tx.Ledger().Remove(ctx, voterID, target)
		} else {
			err = tx.Ledger().Upsert(ctx, Vote{VoterID: voterID, Target: target, Direction: dir})
		}
		if err != nil {
			return fmt.Errorf("write vote: %w", err)
		}

		moved = 0
		for _, adj := range t.adjustments(c.points, target.Kind, voterID, item.AuthorID) {
			if adj.delta == 0 || (adj.identityID == item.AuthorID && !authorKnown) {
				continue
			}
			if err := tx.Identities().AdjustReputation(ctx, adj.identityID, adj.delta); err != nil {
				return fmt.Errorf("adjust reputation of %d by %d: %w", adj.identityID, adj.delta, err)
			}
			moved += abs(adj.delta)
		}

		tally, err := countTally(ctx, tx.Ledger(), target)
		if err != nil {
			return err
		}
		if err := tx.Items().SetScore(ctx, target, tally.Score); err != nil {
			return fmt.Errorf("set score: %w", err)
		}

		res = Result{Tally: tally, Outcome: t.outcome}
		if t.outcome != OutcomeRemoved {
			res.Direction = dir
		}
		return nil
	})
	return res, moved, err
}

// Tally returns the current counts for a target, read from the ledger.
func (c *Coordinator) Tally(ctx context.Context, kind models.TargetKind, targetID int) (Tally, error) {
	if err := validateTarget(kind, targetID); err != nil {
		return Tally{}, err
	}
	target := Target{Kind: kind, ID: targetID}

	var tally Tally
	err := c.store.View(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.Items().Item(ctx, target); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.NotFound(fmt.Sprintf("%s not found", kind))
			}
			return fmt.Errorf("load %s %d: %w", kind, targetID, err)
		}
		var err error
		tally, err = countTally(ctx, tx.Ledger(), target)
		return err
	})
	if err != nil {
		return Tally{}, c.surface(ctx, err, "tally could not be loaded")
	}
	return tally, nil
}

// CurrentVote returns the direction voterID currently holds on the target, if any.
func (c *Coordinator) CurrentVote(ctx context.Context, voterID int, kind models.TargetKind, targetID int) (models.Direction, bool, error) {
	if voterID <= 0 {
		return "", false, apperr.Unauthenticated("voter identity required")
	}
	if err := validateTarget(kind, targetID); err != nil {
		return "", false, err
	}

	var (
		vote  Vote
		found bool
	)
	err := c.store.View(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		vote, found, err = tx.Ledger().Find(ctx, voterID, Target{Kind: kind, ID: targetID})
		return err
	})
	if err != nil {
		return "", false, c.surface(ctx, err, "vote could not be loaded")
	}
	return vote.Direction, found, nil
}

// Reputation returns the identity of userID with its current reputation.
func (c *Coordinator) Reputation(ctx context.Context, userID int) (Identity, error) {
	if userID <= 0 {
		return Identity{}, apperr.InvalidArgument("invalid user id").WithField("id", userID)
	}

	var ident Identity
	err := c.store.View(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		ident, err = tx.Identities().Identity(ctx, userID)
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return err
	})
	if err != nil {
		return Identity{}, c.surface(ctx, err, "reputation could not be loaded")
	}
	return ident, nil
}

// surface turns err into a typed error for callers. Typed errors pass through;
// anything else, including exhausted conflict retries, becomes internal and is logged.
func (c *Coordinator) surface(ctx context.Context, err error, message string) error {
	var appErr *apperr.Error
	var exhausted *retry.ExhaustedError
	if errors.As(err, &appErr) && !errors.As(err, &exhausted) {
		return appErr
	}
	c.logger.ErrorContext(ctx, message, "error", err)
	return apperr.Internal(message, err)
}

func countTally(ctx context.Context, ledger Ledger, target Target) (Tally, error) {
	up, err := ledger.Count(ctx, target, models.Up)
	if err != nil {
		return Tally{}, fmt.Errorf("count upvotes: %w", err)
	}
	down, err := ledger.Count(ctx, target, models.Down)
	if err != nil {
		return Tally{}, fmt.Errorf("count downvotes: %w", err)
	}
	return Tally{Score: up - down, UpvoteCount: up, DownvoteCount: down}, nil
}

func validateTarget(kind models.TargetKind, targetID int) error {
	if !kind.Valid() {
		return apperr.InvalidArgument("invalid vote parameters").WithField("itemType", string(kind))
	}
	if targetID <= 0 {
		return apperr.InvalidArgument("invalid vote parameters").WithField("itemId", targetID)
	}
	return nil
}

func classify(err error) retry.Action {
	if errors.Is(err, apperr.ErrConflict) {
		return retry.Retry
	}
	return retry.Stop
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
