package services

import (
	"context"
	"log/slog"
)

// PlayReporter bridges a running round engine to the session leaderboard:
// every score change and the final ending become score submissions for one
// player. It satisfies the engine's Sink interface.
type PlayReporter struct {
	leaderboard *LeaderboardService
	code        string
	playerID    string
	username    string
}

func NewPlayReporter(leaderboard *LeaderboardService, code, playerID, username string) *PlayReporter {
	return &PlayReporter{
		leaderboard: leaderboard,
		code:        code,
		playerID:    playerID,
		username:    username,
	}
}

func (r *PlayReporter) submit(score int, totalTimeMs int64) {
	in := SubmitScoreInput{Score: &score, TotalTimeMs: &totalTimeMs}
	if r.username != "" {
		in.Username = &r.username
	}
	if err := r.leaderboard.SubmitScore(context.Background(), r.code, r.playerID, in); err != nil {
		slog.Warn("play score report failed", "code", r.code, "player_id", r.playerID, "err", err)
	}
}

func (r *PlayReporter) ScoreChanged(score int, totalTimeMs int64) {
	r.submit(score, totalTimeMs)
}

func (r *PlayReporter) PlayEnded(status string, score int, totalTimeMs int64) {
	r.submit(score, totalTimeMs)
	slog.Info("play ended", "code", r.code, "player_id", r.playerID, "status", status, "score", score)
}
