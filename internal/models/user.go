// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents an account. Password holds the bcrypt hash; RefreshToken holds the
// single live refresh token, or nil when the user has no session.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	Password     string    `gorm:"not null" json:"-"`
	RefreshToken *string   `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Identity is the user as seen by request handlers: no credential material.
type Identity struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PublicProfile is what any authenticated user may learn about another.
type PublicProfile struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// Identity strips the password hash and refresh token.
func (u *User) Identity() *Identity {
	return &Identity{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
