package model

import "time"

type Session struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the session's expiry lies in the past.
func (s *Session) Expired() bool {
	return s.ExpiresAt.Before(time.Now().UTC())
}
