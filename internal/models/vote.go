package models

import (
	"fmt"
	"time"
)

// TargetKind identifies which kind of item a vote is cast on.
type TargetKind string

const (
	KindQuestion TargetKind = "question"
	KindAnswer   TargetKind = "answer"
)

// Valid reports whether k is a known target kind.
func (k TargetKind) Valid() bool {
	return k == KindQuestion || k == KindAnswer
}

// ParseTargetKind accepts the singular and plural route forms.
func ParseTargetKind(s string) (TargetKind, error) {
	switch s {
	case "question", "questions":
		return KindQuestion, nil
	case "answer", "answers":
		return KindAnswer, nil
	}
	return "", fmt.Errorf("unknown target kind %q", s)
}

// Direction is the stance of a vote.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == Up || d == Down
}

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == Up {
		return Down
	}
	return Up
}

// ParseDirection accepts "up"/"down" as well as the "upvote"/"downvote" wire values.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "up", "upvote":
		return Up, nil
	case "down", "downvote":
		return Down, nil
	}
	return "", fmt.Errorf("unknown vote direction %q", s)
}

// Vote model - the single active vote of a user on a question or answer
type Vote struct {
	ID         int        `gorm:"primaryKey" json:"id"`
	VoterID    int        `gorm:"not null;uniqueIndex:idx_votes_voter_target,priority:1" json:"voter_id"`
	TargetKind TargetKind `gorm:"type:varchar(16);not null;uniqueIndex:idx_votes_voter_target,priority:2;index:idx_votes_target,priority:1" json:"target_kind"`
	TargetID   int        `gorm:"not null;uniqueIndex:idx_votes_voter_target,priority:3;index:idx_votes_target,priority:2" json:"target_id"`
	Direction  Direction  `gorm:"type:varchar(8);not null" json:"direction"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
