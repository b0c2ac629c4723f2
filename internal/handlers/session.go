package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/datfullstacks/mln3/internal/services"
)

// sessionCode normalizes the :code path segment; codes are stored uppercase.
func sessionCode(c *gin.Context) string {
	return strings.ToUpper(c.Param("code"))
}

type SessionHandler struct {
	sessions    *services.SessionService
	leaderboard *services.LeaderboardService
}

func NewSessionHandler(sessions *services.SessionService, leaderboard *services.LeaderboardService) *SessionHandler {
	return &SessionHandler{sessions: sessions, leaderboard: leaderboard}
}

type CreateSessionRequest struct {
	MaxPlayers int `json:"max_players"`
	TTLMinutes int `json:"ttl_minutes"`
}

// CreateSession allocates a new session with a fresh join code. Missing
// limits fall back to server defaults.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Empty body means all defaults.
		req = CreateSessionRequest{}
	}

	session, err := h.sessions.Create(c.Request.Context(), req.MaxPlayers, req.TTLMinutes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"session": session})
}

// ListSessions returns unexpired, unended sessions with participant counts.
func (h *SessionHandler) ListSessions(c *gin.Context) {
	sessions, err := h.sessions.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

type JoinSessionRequest struct {
	Username string `json:"username" binding:"required"`
}

// JoinSession registers a player in the lobby and seeds a zero-score
// leaderboard entry.
func (h *SessionHandler) JoinSession(c *gin.Context) {
	var req JoinSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.sessions.Join(c.Request.Context(), sessionCode(c), req.Username)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *SessionHandler) StartSession(c *gin.Context) {
	session, err := h.sessions.Start(c.Request.Context(), sessionCode(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (h *SessionHandler) EndSession(c *gin.Context) {
	session, err := h.sessions.End(c.Request.Context(), sessionCode(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": session})
}

// GetState is the authoritative pull: status, lobby and ranked leaderboard
// in one response. Viewers call it on mount, on poll, and after reconnects.
func (h *SessionHandler) GetState(c *gin.Context) {
	snap, err := h.sessions.Snapshot(c.Request.Context(), sessionCode(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

type SubmitScoreRequest struct {
	PlayerID    string  `json:"player_id" binding:"required"`
	Score       *int    `json:"score"`
	TotalTimeMs *int64  `json:"total_time_ms"`
	Username    *string `json:"username"`
}

// SubmitScore upserts a player's leaderboard entry and fans the new
// standings out to the session.
func (h *SessionHandler) SubmitScore(c *gin.Context) {
	var req SubmitScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	err := h.leaderboard.SubmitScore(c.Request.Context(), sessionCode(c), req.PlayerID, services.SubmitScoreInput{
		Score:       req.Score,
		TotalTimeMs: req.TotalTimeMs,
		Username:    req.Username,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "score recorded"})
}

// GetLeaderboard returns the ranked standings without the lobby wrapper.
func (h *SessionHandler) GetLeaderboard(c *gin.Context) {
	update, err := h.leaderboard.Rank(c.Request.Context(), sessionCode(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, update)
}
