package voting

import (
	"context"

	"github.com/emilythestrangee/qa-forum/backend/internal/models"
)

// Target addresses one votable item.
type Target struct {
	Kind models.TargetKind
	ID   int
}

// Vote is one voter's current stance on one target.
type Vote struct {
	VoterID   int
	Target    Target
	Direction models.Direction
}

// Identity is the part of a user record the ledger reads and adjusts.
type Identity struct {
	ID         int
	Username   string
	Reputation int
	Banned     bool
}

// Item is the part of a question or answer the ledger reads and writes.
type Item struct {
	Target   Target
	AuthorID int
	Score    int
}

// Ledger is the authoritative record of who voted what.
// A (voter, target) pair has at most one vote; Upsert replaces the existing one.
type Ledger interface {
	Find(ctx context.Context, voterID int, target Target) (Vote, bool, error)
	Upsert(ctx context.Context, vote Vote) error
	Remove(ctx context.Context, voterID int, target Target) error
	Count(ctx context.Context, target Target, dir models.Direction) (int, error)
}

// Identities reads users and moves their reputation.
// AdjustReputation must be atomic per identity and return apperr.ErrNotFound for unknown IDs.
type Identities interface {
	Identity(ctx context.Context, id int) (Identity, error)
	AdjustReputation(ctx context.Context, id int, delta int) error
}

// Items reads votable items and persists their cached score.
// Inside InTx, Item holds the target until the transaction ends, so concurrent
// transactions on the same target run one after another.
type Items interface {
	Item(ctx context.Context, target Target) (Item, error)
	SetScore(ctx context.Context, target Target, score int) error
}

// Tx groups the collaborators available inside one transaction.
type Tx interface {
	Ledger() Ledger
	Identities() Identities
	Items() Items
}

// Store runs functions inside transactions. If fn returns an error, or ctx is
// cancelled before commit, nothing fn wrote is kept. Stores report write
// conflicts by wrapping apperr.ErrConflict.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
