package store

import "github.com/datfullstacks/mln3/internal/models"

func (s *Store) CreateParticipant(p *models.Participant) error {
	return s.db.Create(p).Error
}

func (s *Store) CountParticipants(code string) (int64, error) {
	var count int64
	err := s.db.Model(&models.Participant{}).
		Where("session_code = ?", code).
		Count(&count).Error
	return count, err
}

func (s *Store) ListParticipants(code string) ([]models.Participant, error) {
	var participants []models.Participant
	err := s.db.Where("session_code = ?", code).
		Order("joined_at ASC").
		Find(&participants).Error
	return participants, err
}

// CountParticipantsByCodes returns per-session participant counts for the
// given codes in a single grouped query.
func (s *Store) CountParticipantsByCodes(codes []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(codes))
	if len(codes) == 0 {
		return counts, nil
	}

	type row struct {
		SessionCode string
		Count       int64
	}
	var rows []row
	err := s.db.Model(&models.Participant{}).
		Select("session_code, count(*) as count").
		Where("session_code IN ?", codes).
		Group("session_code").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		counts[r.SessionCode] = r.Count
	}
	return counts, nil
}
