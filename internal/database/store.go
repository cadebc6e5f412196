package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
	"github.com/emilythestrangee/qa-forum/backend/internal/voting"
)

// Postgres error codes that mean "run the transaction again".
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// Store is the Postgres-backed voting.Store.
//
// InTx locks the voted item's row (SELECT ... FOR UPDATE), so submissions on
// the same question or answer are serialized while different items proceed in
// parallel. The unique index on (voter_id, target_kind, target_id) backs the
// one-vote-per-tuple rule.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx voting.Tx) error) error {
	return s.run(ctx, true, fn)
}

func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx voting.Tx) error) error {
	return s.run(ctx, false, fn)
}

func (s *Store) run(ctx context.Context, forUpdate bool, fn func(ctx context.Context, tx voting.Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(ctx, &gormTx{db: db, forUpdate: forUpdate})
	})
	return translate(err)
}

// translate marks retryable Postgres failures with apperr.ErrConflict.
func translate(err error) error {
	if err == nil || errors.Is(err, apperr.ErrConflict) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", apperr.ErrConflict, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation, codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
			return fmt.Errorf("%w: %s (%s)", apperr.ErrConflict, pgErr.Message, pgErr.Code)
		}
	}
	return err
}

type gormTx struct {
	db        *gorm.DB
	forUpdate bool
}

func (t *gormTx) Ledger() voting.Ledger         { return t }
func (t *gormTx) Identities() voting.Identities { return t }
func (t *gormTx) Items() voting.Items           { return t }

func (t *gormTx) whereTuple(ctx context.Context, voterID int, target voting.Target) *gorm.DB {
	return t.db.WithContext(ctx).
		Where("voter_id = ? AND target_kind = ? AND target_id = ?", voterID, target.Kind, target.ID)
}

func (t *gormTx) Find(ctx context.Context, voterID int, target voting.Target) (voting.Vote, bool, error) {
	var row models.Vote
	err := t.whereTuple(ctx, voterID, target).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return voting.Vote{}, false, nil
	}
	if err != nil {
		return voting.Vote{}, false, translate(err)
	}
	return voting.Vote{VoterID: row.VoterID, Target: target, Direction: row.Direction}, true, nil
}

func (t *gormTx) Upsert(ctx context.Context, vote voting.Vote) error {
	row := models.Vote{
		VoterID:    vote.VoterID,
		TargetKind: vote.Target.Kind,
		TargetID:   vote.Target.ID,
		Direction:  vote.Direction,
	}
	err := t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "voter_id"}, {Name: "target_kind"}, {Name: "target_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"direction", "updated_at"}),
	}).Create(&row).Error
	return translate(err)
}

func (t *gormTx) Remove(ctx context.Context, voterID int, target voting.Target) error {
	return translate(t.whereTuple(ctx, voterID, target).Delete(&models.Vote{}).Error)
}

func (t *gormTx) Count(ctx context.Context, target voting.Target, dir models.Direction) (int, error) {
	var n int64
	err := t.db.WithContext(ctx).Model(&models.Vote{}).
		Where("target_kind = ? AND target_id = ? AND direction = ?", target.Kind, target.ID, dir).
		Count(&n).Error
	if err != nil {
		return 0, translate(err)
	}
	return int(n), nil
}

func (t *gormTx) Identity(ctx context.Context, id int) (voting.Identity, error) {
	var user models.User
	err := t.db.WithContext(ctx).Select("id", "username", "reputation", "is_banned").Take(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return voting.Identity{}, apperr.ErrNotFound
	}
	if err != nil {
		return voting.Identity{}, translate(err)
	}
	return voting.Identity{ID: user.ID, Username: user.Username, Reputation: user.Reputation, Banned: user.IsBanned}, nil
}

func (t *gormTx) AdjustReputation(ctx context.Context, id int, delta int) error {
	res := t.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("reputation", gorm.Expr("reputation + ?", delta))
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (t *gormTx) Item(ctx context.Context, target voting.Target) (voting.Item, error) {
	v, ok := models.NewVotable(target.Kind)
	if !ok {
		return voting.Item{}, fmt.Errorf("unknown target kind %q", target.Kind)
	}

	q := t.db.WithContext(ctx)
	if t.forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := q.Take(v, target.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return voting.Item{}, apperr.ErrNotFound
	}
	if err != nil {
		return voting.Item{}, translate(err)
	}
	return voting.Item{Target: target, AuthorID: v.AuthorRef(), Score: v.CurrentScore()}, nil
}

func (t *gormTx) SetScore(ctx context.Context, target voting.Target, score int) error {
	v, ok := models.NewVotable(target.Kind)
	if !ok {
		return fmt.Errorf("unknown target kind %q", target.Kind)
	}
	v.SetScore(score)

	res := t.db.WithContext(ctx).Model(v).Where("id = ?", target.ID).Select("score").Updates(v)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
