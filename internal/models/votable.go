package models

import "time"

// Votable is implemented by every model that can receive votes.
type Votable interface {
	Kind() TargetKind
	AuthorRef() int
	CurrentScore() int
	SetScore(score int)
}

// NewVotable returns an empty model for kind, ready to be loaded by ID.
func NewVotable(kind TargetKind) (Votable, bool) {
	switch kind {
	case KindQuestion:
		return &Question{}, true
	case KindAnswer:
		return &Answer{}, true
	}
	return nil, false
}

type Question struct {
	ID          int       `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`
	AuthorID    int       `gorm:"not null;index" json:"author_id"`
	Author      User      `gorm:"foreignKey:AuthorID" json:"-"`
	Score       int       `gorm:"not null;default:0" json:"score"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (q *Question) Kind() TargetKind { return KindQuestion }
func (q *Question) AuthorRef() int { return q.AuthorID }
func (q *Question) CurrentScore() int { return q.Score }
func (q *Question) SetScore(score int) { q.Score = score }

type Answer struct {
	ID         int       `gorm:"primaryKey" json:"id"`
	QuestionID int       `gorm:"not null;index" json:"question_id"`
	Content    string    `gorm:"not null" json:"content"`
	AuthorID   int       `gorm:"not null;index" json:"author_id"`
	Author     User      `gorm:"foreignKey:AuthorID" json:"-"`
	Score      int       `gorm:"not null;default:0" json:"score"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (a *Answer) Kind() TargetKind { return KindAnswer }
func (a *Answer) AuthorRef() int { return a.AuthorID }
func (a *Answer) CurrentScore() int { return a.Score }
func (a *Answer) SetScore(score int) { a.Score = score }
