package models

import "time"

// LeaderboardEntry is the raw score ledger for one player in one session.
// At most one entry exists per (session code, player id); a missing entry is
// semantically a zero score.
type LeaderboardEntry struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	SessionCode string    `gorm:"size:6;not null;uniqueIndex:idx_session_player" json:"session_code"`
	PlayerID    string    `gorm:"size:36;not null;uniqueIndex:idx_session_player" json:"player_id"`
	Username    string    `gorm:"size:20;not null" json:"username"`
	Score       int       `gorm:"not null;default:0" json:"score"`
	TotalTimeMs int64     `gorm:"not null;default:0" json:"total_time_ms"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
