package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/datfullstacks/mln3/internal/models"
	"github.com/datfullstacks/mln3/internal/realtime"
	"github.com/datfullstacks/mln3/internal/services"
	"github.com/datfullstacks/mln3/internal/store"
)

type WSHandler struct {
	hub         *realtime.Hub
	store       *store.Store
	rt          *realtime.Broadcaster
	leaderboard *services.LeaderboardService
	log         *slog.Logger
}

func NewWSHandler(hub *realtime.Hub, st *store.Store, rt *realtime.Broadcaster, leaderboard *services.LeaderboardService, log *slog.Logger) *WSHandler {
	return &WSHandler{hub: hub, store: st, rt: rt, leaderboard: leaderboard, log: log}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ClientMessage is the inbound frame players send over the socket.
type ClientMessage struct {
	Type        string `json:"type"`
	PlayerID    string `json:"player_id"`
	Username    string `json:"username"`
	Score       *int   `json:"score"`
	TotalTimeMs *int64 `json:"total_time_ms"`
}

// HandleSession upgrades the connection and attaches it to the session's
// room. Ended and expired sessions are refused with a final session:ended
// frame unless the client identifies as an admin watcher. Identified
// players get their leaderboard entry upserted on attach so they appear in
// the standings immediately.
func (h *WSHandler) HandleSession(c *gin.Context) {
	code := sessionCode(c)
	session, err := h.store.GetSession(code)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "code", code, "error", err)
		return
	}

	role := c.Query("role")
	now := time.Now()
	if role != "admin" && (session.Status == models.SessionStatusEnded || session.Expired(now)) {
		ended := realtime.SessionEnded{Code: code, EndedAt: now.UTC().Format(time.RFC3339)}
		if session.Status != models.SessionStatusEnded {
			ended.Reason = "expired"
		}
		h.writeEvent(conn, realtime.EventSessionEnded, ended)
		conn.Close()
		return
	}

	playerID := c.Query("player_id")
	username := strings.TrimSpace(c.Query("username"))
	if playerID != "" && username != "" {
		patch := store.EntryPatch{Username: &username}
		if err := h.store.UpsertEntry(code, playerID, patch, now); err != nil {
			h.log.Warn("join upsert failed", "code", code, "player_id", playerID, "error", err)
		}
	}

	h.hub.AddConnection(code, conn)
	defer h.hub.RemoveConnection(code, conn)

	ctx := c.Request.Context()
	h.rt.LobbyUpdate(ctx, code)
	h.rt.LeaderboardUpdate(ctx, code)

	if session.Status == models.SessionStatusRunning {
		h.writeEvent(conn, realtime.EventSessionStart, realtime.SessionStart{
			Code:      code,
			StartedAt: now.UTC().Format(time.RFC3339),
		})
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.Type != "score:submit" {
			continue
		}
		in := services.SubmitScoreInput{Score: msg.Score, TotalTimeMs: msg.TotalTimeMs}
		if msg.Username != "" {
			in.Username = &msg.Username
		}
		if err := h.leaderboard.SubmitScore(ctx, code, msg.PlayerID, in); err != nil {
			h.log.Warn("score submit over socket failed", "code", code, "player_id", msg.PlayerID, "error", err)
		}
	}
}

func (h *WSHandler) writeEvent(conn *websocket.Conn, name string, payload interface{}) {
	ev, err := realtime.NewEvent(name, payload)
	if err != nil {
		return
	}
	if err := conn.WriteJSON(ev); err != nil {
		h.log.Warn("websocket write failed", "error", err)
	}
}
