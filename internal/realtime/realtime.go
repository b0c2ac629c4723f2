// Package realtime fans session events out to every connected viewer. Two
// interchangeable backends exist: an in-process websocket room hub and a
// valkey broadcast channel. One backend is selected at startup; callers only
// ever see the Publisher and Subscriber interfaces.
//
// Publishing is fire-and-forget: delivery failures are logged and swallowed,
// because every event is a complete snapshot and viewers re-pull state on
// poll or reconnect, so a dropped event self-heals.
package realtime

import (
	"context"
	"encoding/json"
)

const (
	EventLobbyUpdate       = "lobby:update"
	EventLeaderboardUpdate = "leaderboard:update"
	EventSessionStart      = "session:start"
	EventSessionEnded      = "session:ended"
)

// Event is the wire envelope for one fan-out message.
type Event struct {
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func NewEvent(name string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Name: name, Payload: raw}, nil
}

type Publisher interface {
	// Publish delivers one event to every viewer of the session. Errors are
	// for the caller to log; they must never surface to end users.
	Publish(ctx context.Context, code, event string, payload interface{}) error
}

// Subscription is one viewer's attachment to a session's event stream.
type Subscription struct {
	// Events carries decoded envelopes until the subscription is closed.
	Events <-chan Event
	// Confirmed is closed once the backend has acknowledged the
	// subscription. Adapters that see no confirmation within their window
	// fall back to polling.
	Confirmed <-chan struct{}
	// Close releases the subscription. Safe to call more than once.
	Close func()
}

type Subscriber interface {
	Subscribe(ctx context.Context, code string) (*Subscription, error)
}

type ParticipantInfo struct {
	PlayerID string `json:"player_id"`
	Username string `json:"username"`
}

// LobbyUpdate is a complete lobby snapshot, never a delta.
type LobbyUpdate struct {
	Code         string            `json:"code"`
	Status       string            `json:"status"`
	Count        int               `json:"count"`
	Participants []ParticipantInfo `json:"participants"`
}

type RankedEntry struct {
	PlayerID    string `json:"player_id"`
	Username    string `json:"username"`
	Score       int    `json:"score"`
	TotalTimeMs int64  `json:"total_time_ms"`
	Rank        int    `json:"rank"`
}

type LeaderboardUpdate struct {
	Code    string        `json:"code"`
	Entries []RankedEntry `json:"entries"`
}

type SessionStart struct {
	Code      string `json:"code"`
	StartedAt string `json:"started_at"`
}

type SessionEnded struct {
	Code    string `json:"code"`
	EndedAt string `json:"ended_at"`
	Reason  string `json:"reason,omitempty"`
}
