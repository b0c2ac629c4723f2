package services

import (
	"context"
	"strings"
	"time"

	"github.com/datfullstacks/mln3/internal/realtime"
	"github.com/datfullstacks/mln3/internal/store"
)

// LeaderboardService is a thin, order-preserving ledger over raw score and
// time records. It stores whatever the caller supplies; clamping and delta
// logic belong to the round engine, not here.
type LeaderboardService struct {
	store *store.Store
	rt    *realtime.Broadcaster
	now   func() time.Time
}

func NewLeaderboardService(st *store.Store, rt *realtime.Broadcaster) *LeaderboardService {
	return &LeaderboardService{store: st, rt: rt, now: time.Now}
}

// WithClock overrides the service clock; used by tests.
func (s *LeaderboardService) WithClock(now func() time.Time) *LeaderboardService {
	s.now = now
	return s
}

type SubmitScoreInput struct {
	Score       *int
	TotalTimeMs *int64
	Username    *string
}

// SubmitScore upserts the player's entry. At least one of score or total time
// must be present; absent numeric fields default to zero on first insert and
// are left untouched on update.
func (s *LeaderboardService) SubmitScore(ctx context.Context, code, playerID string, in SubmitScoreInput) error {
	if playerID == "" {
		return ErrInvalidInput
	}
	if in.Score == nil && in.TotalTimeMs == nil {
		return ErrInvalidInput
	}

	patch := store.EntryPatch{Score: in.Score}
	if in.TotalTimeMs != nil {
		t := *in.TotalTimeMs
		if t < 0 {
			t = 0
		}
		patch.TotalTimeMs = &t
	}
	if in.Username != nil {
		if trimmed := strings.TrimSpace(*in.Username); trimmed != "" {
			patch.Username = &trimmed
		}
	}

	if err := s.store.UpsertEntry(code, playerID, patch, s.now()); err != nil {
		return err
	}

	s.rt.LeaderboardUpdate(ctx, code)
	return nil
}

// Rank recomputes the ranked standings for a session: score descending, then
// total time ascending, then earliest update. Pure function of the stored
// entries.
func (s *LeaderboardService) Rank(ctx context.Context, code string) (*realtime.LeaderboardUpdate, error) {
	return s.rt.BuildLeaderboardPayload(code)
}
