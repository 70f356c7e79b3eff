package domain

import (
	"errors"
	"time"
)

// ErrUserNotFound is returned by the user directory when no record matches.
var ErrUserNotFound = errors.New("user not found")

var (
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUsernameTaken is returned when a generated username raced with another insert.
	ErrUsernameTaken = errors.New("username already taken")
)

// User is a directory record for an administrator or researcher.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Affiliation  string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Researcher is the public projection of a researcher account.
type Researcher struct {
	ID          string `json:"user_id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Affiliation string `json:"affiliation"`
}

// AsResearcher strips credentials from the record.
func (u *User) AsResearcher() Researcher {
	return Researcher{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		Affiliation: u.Affiliation,
	}
}
