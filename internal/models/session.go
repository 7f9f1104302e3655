package models

import "time"

// Session is one issued refresh-token lineage. Only the bcrypt hash of
// the refresh token is stored; the raw token exists solely on the client.
type Session struct {
	ID               int64      `db:"id" json:"id"`
	RefreshTokenHash string     `db:"refresh_token_hash" json:"-"`
	ExpiresAt        time.Time  `db:"expires_at" json:"expires_at"`
	UserAgent        *string    `db:"user_agent" json:"user_agent,omitempty"`
	IPAddress        *string    `db:"ip_address" json:"ip_address,omitempty"`
	UserID           string     `db:"user_id" json:"user_id"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
	RevokedAt        *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
}

// IsActive reports whether the session can still redeem refreshes: not
// revoked and not past its expiry.
func (s Session) IsActive(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}
