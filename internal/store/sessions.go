package store

import (
	"time"

	"github.com/datfullstacks/mln3/internal/models"
)

func (s *Store) CreateSession(session *models.Session) error {
	return s.db.Create(session).Error
}

func (s *Store) GetSession(code string) (*models.Session, error) {
	var session models.Session
	if err := s.db.Where("code = ?", code).First(&session).Error; err != nil {
		return nil, notFound(err)
	}
	return &session, nil
}

func (s *Store) SessionCodeExists(code string) (bool, error) {
	var count int64
	err := s.db.Model(&models.Session{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

func (s *Store) UpdateSessionStatus(code, status string) error {
	return s.db.Model(&models.Session{}).
		Where("code = ?", code).
		Update("status", status).Error
}

// ListActiveSessions returns sessions that have not ended and have not passed
// their expiry, newest first.
func (s *Store) ListActiveSessions(now time.Time) ([]models.Session, error) {
	var sessions []models.Session
	err := s.db.
		Where("expires_at > ? AND status != ?", now, models.SessionStatusEnded).
		Order("created_at DESC").
		Find(&sessions).Error
	return sessions, err
}
