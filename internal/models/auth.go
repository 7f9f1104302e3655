package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTypeWeb tags refresh tokens issued to browser clients.
const SessionTypeWeb = "web"

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued token pair and user info.
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	User         UserInfo  `json:"user"`
	IssuedAt     time.Time `json:"issued_at"`
}

// RefreshTokenRequest exchanges a refresh token for a new access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshTokenResponse returns the reissued access token. The refresh
// token itself is not rotated; it stays valid until logout or expiry.
type RefreshTokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// LogoutResponse reports how many sessions were revoked.
type LogoutResponse struct {
	RevokedSessions int `json:"revoked_sessions"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Active   bool   `json:"active"`
}

// AccessClaims is the JWT payload for access tokens. It carries enough to
// authorize a request without a database round-trip.
type AccessClaims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Active   bool   `json:"active"`
	jwt.RegisteredClaims
}

// RefreshClaims is the JWT payload for refresh tokens. Deliberately
// minimal: refresh validity is decided by the persisted session row, not
// by the token payload.
type RefreshClaims struct {
	UserID      string `json:"user_id"`
	SessionType string `json:"session_type"`
	jwt.RegisteredClaims
}
