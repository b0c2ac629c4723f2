package models

import "time"

type Session struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	Code       string    `gorm:"size:6;uniqueIndex;not null" json:"code"`
	Status     string    `gorm:"size:20;not null;default:'lobby'" json:"status"`
	MaxPlayers int       `gorm:"default:0" json:"max_players,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `gorm:"not null;index" json:"expires_at"`
}

const (
	SessionStatusLobby   = "lobby"
	SessionStatusRunning = "running"
	SessionStatusEnded   = "ended"
)

// Expired reports whether the session is past its TTL. Expiry is evaluated at
// call time on every mutating operation; nothing sweeps the stored status.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}
