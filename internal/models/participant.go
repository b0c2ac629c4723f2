package models

import "time"

type Participant struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	SessionCode string    `gorm:"size:6;not null;index" json:"session_code"`
	PlayerID    string    `gorm:"size:36;uniqueIndex;not null" json:"player_id"`
	Username    string    `gorm:"size:20;not null" json:"username"`
	JoinedAt    time.Time `json:"joined_at"`
}
