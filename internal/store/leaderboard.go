package store

import (
	"time"

	"gorm.io/gorm/clause"

	"github.com/datfullstacks/mln3/internal/models"
)

// EntryPatch holds the fields a score submission may carry. Nil fields are
// left untouched on update and default to zero on insert.
type EntryPatch struct {
	Username    *string
	Score       *int
	TotalTimeMs *int64
}

// UpsertEntry creates the (session, player) entry if missing and overwrites
// only the supplied fields otherwise. updated_at is always touched.
func (s *Store) UpsertEntry(code, playerID string, patch EntryPatch, now time.Time) error {
	entry := models.LeaderboardEntry{
		SessionCode: code,
		PlayerID:    playerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if patch.Username != nil {
		entry.Username = *patch.Username
	}
	if patch.Score != nil {
		entry.Score = *patch.Score
	}
	if patch.TotalTimeMs != nil {
		entry.TotalTimeMs = *patch.TotalTimeMs
	}

	assignments := map[string]interface{}{"updated_at": now}
	if patch.Username != nil {
		assignments["username"] = *patch.Username
	}
	if patch.Score != nil {
		assignments["score"] = *patch.Score
	}
	if patch.TotalTimeMs != nil {
		assignments["total_time_ms"] = *patch.TotalTimeMs
	}

	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_code"}, {Name: "player_id"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(&entry).Error
}

// ListEntries returns all entries for a session in ranking order: score
// descending, then total time ascending, then earliest update first. The
// sort is the single source of truth for the ranking law.
func (s *Store) ListEntries(code string) ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	err := s.db.Where("session_code = ?", code).
		Order("score DESC, total_time_ms ASC, updated_at ASC").
		Find(&entries).Error
	return entries, err
}

func (s *Store) GetEntry(code, playerID string) (*models.LeaderboardEntry, error) {
	var entry models.LeaderboardEntry
	err := s.db.Where("session_code = ? AND player_id = ?", code, playerID).
		First(&entry).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &entry, nil
}
