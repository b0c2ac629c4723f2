package realtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/datfullstacks/mln3/internal/models"
	"github.com/datfullstacks/mln3/internal/store"
)

// Broadcaster rebuilds snapshot payloads from storage and pushes them through
// the configured publisher. Every method swallows transport errors after
// logging them.
type Broadcaster struct {
	store *store.Store
	pub   Publisher
}

func NewBroadcaster(st *store.Store, pub Publisher) *Broadcaster {
	return &Broadcaster{store: st, pub: pub}
}

// BuildLobbyPayload assembles the current lobby snapshot for a session.
func (b *Broadcaster) BuildLobbyPayload(code string) (*LobbyUpdate, error) {
	participants, err := b.store.ListParticipants(code)
	if err != nil {
		return nil, err
	}

	status := models.SessionStatusLobby
	if session, err := b.store.GetSession(code); err == nil {
		status = session.Status
	}

	infos := make([]ParticipantInfo, len(participants))
	for i, p := range participants {
		infos[i] = ParticipantInfo{PlayerID: p.PlayerID, Username: p.Username}
	}

	return &LobbyUpdate{
		Code:         code,
		Status:       status,
		Count:        len(infos),
		Participants: infos,
	}, nil
}

// BuildLeaderboardPayload assembles the ranked standings for a session. Rank
// is the 1-based position in the store's ranking order, so identical entry
// sets always produce identical rankings.
func (b *Broadcaster) BuildLeaderboardPayload(code string) (*LeaderboardUpdate, error) {
	entries, err := b.store.ListEntries(code)
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedEntry, len(entries))
	for i, e := range entries {
		ranked[i] = RankedEntry{
			PlayerID:    e.PlayerID,
			Username:    e.Username,
			Score:       e.Score,
			TotalTimeMs: e.TotalTimeMs,
			Rank:        i + 1,
		}
	}

	return &LeaderboardUpdate{Code: code, Entries: ranked}, nil
}

func (b *Broadcaster) LobbyUpdate(ctx context.Context, code string) {
	payload, err := b.BuildLobbyPayload(code)
	if err != nil {
		slog.Error("build lobby payload failed", "code", code, "err", err)
		return
	}
	b.publish(ctx, code, EventLobbyUpdate, payload)
}

func (b *Broadcaster) LeaderboardUpdate(ctx context.Context, code string) {
	payload, err := b.BuildLeaderboardPayload(code)
	if err != nil {
		slog.Error("build leaderboard payload failed", "code", code, "err", err)
		return
	}
	b.publish(ctx, code, EventLeaderboardUpdate, payload)
}

func (b *Broadcaster) SessionStart(ctx context.Context, code string) {
	b.publish(ctx, code, EventSessionStart, SessionStart{
		Code:      code,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

func (b *Broadcaster) SessionEnded(ctx context.Context, code, reason string) {
	b.publish(ctx, code, EventSessionEnded, SessionEnded{
		Code:    code,
		EndedAt: time.Now().UTC().Format(time.RFC3339),
		Reason:  reason,
	})
}

func (b *Broadcaster) publish(ctx context.Context, code, event string, payload interface{}) {
	if b.pub == nil {
		return
	}
	if err := b.pub.Publish(ctx, code, event, payload); err != nil {
		slog.Warn("broadcast failed", "code", code, "event", event, "err", err)
	}
}
