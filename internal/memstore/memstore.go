// Package memstore is an in-process voting.Store.
//
// Transactions are serialized behind one lock and rolled back through an undo
// log, so a failed or cancelled submission leaves no trace. It backs the tests
// and STORE_DRIVER=memory.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
	"github.com/emilythestrangee/qa-forum/backend/internal/voting"
)

// Op names a write, as passed to a fault hook.
type Op string

const (
	OpUpsertVote       Op = "ledger.upsert"
	OpRemoveVote       Op = "ledger.remove"
	OpAdjustReputation Op = "identity.adjust_reputation"
	OpSetScore         Op = "item.set_score"
)

type voteKey struct {
	voterID int
	target  voting.Target
}

type Store struct {
	mu         sync.RWMutex
	identities map[int]voting.Identity
	items      map[voting.Target]voting.Item
	votes      map[voteKey]models.Direction

	faultMu sync.Mutex
	fault   func(op Op) error
}

func New() *Store {
	return &Store{
		identities: make(map[int]voting.Identity),
		items:      make(map[voting.Target]voting.Item),
		votes:      make(map[voteKey]models.Direction),
	}
}

// SetFault installs a hook consulted before every write. A non-nil error
// aborts the running transaction with that error. Pass nil to remove it.
func (s *Store) SetFault(fn func(op Op) error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.fault = fn
}

func (s *Store) checkFault(op Op) error {
	s.faultMu.Lock()
	fn := s.fault
	s.faultMu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(op)
}

// PutIdentity creates or replaces a user.
func (s *Store) PutIdentity(id voting.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[id.ID] = id
}

// PutItem creates or replaces a question or answer.
func (s *Store) PutItem(item voting.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.Target] = item
}

// DeleteIdentity removes a user without touching their items or votes.
func (s *Store) DeleteIdentity(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.identities, id)
}

// IdentitySnapshot returns a copy of a user outside any transaction.
func (s *Store) IdentitySnapshot(id int) (voting.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ident, ok := s.identities[id]
	return ident, ok
}

// ItemSnapshot returns a copy of an item outside any transaction.
func (s *Store) ItemSnapshot(target voting.Target) (voting.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[target]
	return item, ok
}

// Votes lists every recorded vote, ordered by voter then target.
func (s *Store) Votes() []voting.Vote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]voting.Vote, 0, len(s.votes))
	for k, d := range s.votes {
		out = append(out, voting.Vote{VoterID: k.voterID, Target: k.target, Direction: d})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].VoterID != out[j].VoterID {
			return out[i].VoterID < out[j].VoterID
		}
		if out[i].Target.Kind != out[j].Target.Kind {
			return out[i].Target.Kind < out[j].Target.Kind
		}
		return out[i].Target.ID < out[j].Target.ID
	})
	return out
}

// SeedDemo fills the store with a few users, a question and an answer for local runs.
func (s *Store) SeedDemo() {
	for _, u := range []voting.Identity{
		{ID: 1, Username: "ada"},
		{ID: 2, Username: "grace"},
		{ID: 3, Username: "linus"},
	} {
		s.PutIdentity(u)
	}
	s.PutItem(voting.Item{Target: voting.Target{Kind: models.KindQuestion, ID: 1}, AuthorID: 1})
	s.PutItem(voting.Item{Target: voting.Target{Kind: models.KindAnswer, ID: 1}, AuthorID: 2})
}

// Health reports the size of the store.
func (s *Store) Health(context.Context) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]string{
		"status":     "up",
		"driver":     "memory",
		"identities": fmt.Sprintf("%d", len(s.identities)),
		"items":      fmt.Sprintf("%d", len(s.items)),
		"votes":      fmt.Sprintf("%d", len(s.votes)),
	}
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx voting.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{s: s}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := fn(ctx, t)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		t.rollback()
		return err
	}
	return nil
}

func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx voting.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, &tx{s: s, readOnly: true})
}

var errReadOnly = errors.New("memstore: write in read-only transaction")

type tx struct {
	s        *Store
	readOnly bool
	undo     []func()
}

func (t *tx) Ledger() voting.Ledger         { return t }
func (t *tx) Identities() voting.Identities { return t }
func (t *tx) Items() voting.Items           { return t }

func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *tx) write(op Op) error {
	if t.readOnly {
		return errReadOnly
	}
	return t.s.checkFault(op)
}

func (t *tx) Find(_ context.Context, voterID int, target voting.Target) (voting.Vote, bool, error) {
	d, ok := t.s.votes[voteKey{voterID, target}]
	if !ok {
		return voting.Vote{}, false, nil
	}
	return voting.Vote{VoterID: voterID, Target: target, Direction: d}, true, nil
}

func (t *tx) Upsert(_ context.Context, vote voting.Vote) error {
	if err := t.write(OpUpsertVote); err != nil {
		return err
	}
	key := voteKey{vote.VoterID, vote.Target}
	prev, had := t.s.votes[key]
	t.s.votes[key] = vote.Direction
	t.undo = append(t.undo, func() {
		if had {
			t.s.votes[key] = prev
		} else {
			delete(t.s.votes, key)
		}
	})
	return nil
}

func (t *tx) Remove(_ context.Context, voterID int, target voting.Target) error {
	if err := t.write(OpRemoveVote); err != nil {
		return err
	}
	key := voteKey{voterID, target}
	prev, had := t.s.votes[key]
	if !had {
		return nil
	}
	delete(t.s.votes, key)
	t.undo = append(t.undo, func() { t.s.votes[key] = prev })
	return nil
}

func (t *tx) Count(_ context.Context, target voting.Target, dir models.Direction) (int, error) {
	n := 0
	for k, d := range t.s.votes {
		if k.target == target && d == dir {
			n++
		}
	}
	return n, nil
}

func (t *tx) Identity(_ context.Context, id int) (voting.Identity, error) {
	ident, ok := t.s.identities[id]
	if !ok {
		return voting.Identity{}, apperr.ErrNotFound
	}
	return ident, nil
}

func (t *tx) AdjustReputation(_ context.Context, id int, delta int) error {
	if err := t.write(OpAdjustReputation); err != nil {
		return err
	}
	ident, ok := t.s.identities[id]
	if !ok {
		return apperr.ErrNotFound
	}
	prev := ident.Reputation
	ident.Reputation += delta
	t.s.identities[id] = ident
	t.undo = append(t.undo, func() {
		ident := t.s.identities[id]
		ident.Reputation = prev
		t.s.identities[id] = ident
	})
	return nil
}

func (t *tx) Item(_ context.Context, target voting.Target) (voting.Item, error) {
	item, ok := t.s.items[target]
	if !ok {
		return voting.Item{}, apperr.ErrNotFound
	}
	return item, nil
}

func (t *tx) SetScore(_ context.Context, target voting.Target, score int) error {
	if err := t.write(OpSetScore); err != nil {
		return err
	}
	item, ok := t.s.items[target]
	if !ok {
		return apperr.ErrNotFound
	}
	prev := item.Score
	item.Score = score
	t.s.items[target] = item
	t.undo = append(t.undo, func() {
		item := t.s.items[target]
		item.Score = prev
		t.s.items[target] = item
	})
	return nil
}
