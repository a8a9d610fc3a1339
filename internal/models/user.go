package models

import "time"

type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRoleMember UserRole = "member"
	UserRoleClient UserRole = "client"
)

type User struct {
	ID           string
	Email        string
	FullName     string
	Company      string
	Role         UserRole
	PasswordHash []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Session struct {
	ID        string
	UserID    string
	TokenHash []byte
	IssuedAt  time.Time
	ExpiresAt time.Time
	Revoked   bool
}

// Live reports whether the session is still usable for authentication.
// Expiry and revocation are both terminal.
func (s Session) Live(now time.Time) bool {
	return !s.Revoked && now.Before(s.ExpiresAt)
}
