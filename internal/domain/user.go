package domain

import "time"

// User is an account holder who owns zero or more leads. The stored
// access/refresh tokens track the single active session: issuing a new
// pair invalidates whatever was stored before.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	AccessToken  *string
	RefreshToken *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
