package auth

import "time"

// RoleAdmin is the only role the admin API accepts.
const RoleAdmin = "admin"

// Config drives admin token signing.
type Config struct {
	Secret   string
	TokenTTL time.Duration
	Issuer   string
}

// Claims are extracted from a validated token.
type Claims struct {
	Subject   string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

// IssuedToken is returned by IssueToken.
type IssuedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
