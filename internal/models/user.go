package models

import "time"

type User struct {
	ID       int    `gorm:"primaryKey" json:"id"`
	Username string `gorm:"unique;not null" json:"username"`
	Email    string `gorm:"unique;not null" json:"email"`
	Avatar   string `json:"avatar"` // Stores avatar ID (1-6) or URL

	// Reputation is only ever moved by vote deltas and may go negative.
	Reputation int  `gorm:"not null;default:0" json:"reputation"`
	IsBanned   bool `gorm:"not null;default:false" json:"is_banned"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ReputationResponse struct {
	ID         int    `json:"id"`
	Username   string `json:"username"`
	Reputation int    `json:"reputation"`
	IsBanned   bool   `json:"is_banned"`
}
