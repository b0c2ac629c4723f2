package services

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/datfullstacks/mln3/internal/models"
	"github.com/datfullstacks/mln3/internal/realtime"
	"github.com/datfullstacks/mln3/internal/store"
)

// Codes skip 0/O/1/I to stay shoutable across a room.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	codeLength       = 6
	codeRetryLimit   = 5
	defaultTTL       = 120
	defaultMaxPlayer = 50
	usernameMaxLen   = 20
	usernameMinLen   = 2
)

// SessionService owns session state transitions. Status only moves
// lobby -> running -> ended; ended is terminal. Expiry and capacity are
// re-checked at the moment of every mutating call, never by a sweeper.
type SessionService struct {
	store *store.Store
	rt    *realtime.Broadcaster
	now   func() time.Time

	defaultTTLMinutes int
	defaultMaxPlayers int
}

func NewSessionService(st *store.Store, rt *realtime.Broadcaster) *SessionService {
	return &SessionService{
		store:             st,
		rt:                rt,
		now:               time.Now,
		defaultTTLMinutes: defaultTTL,
		defaultMaxPlayers: defaultMaxPlayer,
	}
}

// WithClock overrides the service clock; used by tests.
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	s.now = now
	return s
}

// WithDefaults overrides the fallback capacity and lifetime applied to
// sessions created without explicit limits.
func (s *SessionService) WithDefaults(maxPlayers, ttlMinutes int) *SessionService {
	if maxPlayers > 0 {
		s.defaultMaxPlayers = maxPlayers
	}
	if ttlMinutes > 0 {
		s.defaultTTLMinutes = ttlMinutes
	}
	return s
}

func generateCode() string {
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}

func (s *SessionService) allocateCode() (string, error) {
	for attempt := 0; attempt <= codeRetryLimit; attempt++ {
		code := generateCode()
		exists, err := s.store.SessionCodeExists(code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrAllocationExhausted
}

func (s *SessionService) Create(ctx context.Context, maxPlayers, ttlMinutes int) (*models.Session, error) {
	if maxPlayers <= 0 {
		maxPlayers = s.defaultMaxPlayers
	}
	if ttlMinutes <= 0 {
		ttlMinutes = s.defaultTTLMinutes
	}

	code, err := s.allocateCode()
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := &models.Session{
		Code:       code,
		Status:     models.SessionStatusLobby,
		MaxPlayers: maxPlayers,
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Duration(ttlMinutes) * time.Minute),
	}
	if err := s.store.CreateSession(session); err != nil {
		return nil, err
	}
	return session, nil
}

// Start moves the session to running and broadcasts the transition. A second
// start is a status-preserving no-op that produces no event.
func (s *SessionService) Start(ctx context.Context, code string) (*models.Session, error) {
	session, err := s.getUsable(code)
	if err != nil {
		return nil, err
	}

	if session.Status == models.SessionStatusRunning {
		return session, nil
	}

	if err := s.store.UpdateSessionStatus(code, models.SessionStatusRunning); err != nil {
		return nil, err
	}
	session.Status = models.SessionStatusRunning

	s.rt.SessionStart(ctx, code)
	s.rt.LobbyUpdate(ctx, code)
	return session, nil
}

// End is terminal and irreversible. All connected clients must treat the
// resulting event as "navigate away"; ending twice is a quiet success.
func (s *SessionService) End(ctx context.Context, code string) (*models.Session, error) {
	session, err := s.store.GetSession(code)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if session.Status == models.SessionStatusEnded {
		return session, nil
	}

	if err := s.store.UpdateSessionStatus(code, models.SessionStatusEnded); err != nil {
		return nil, err
	}
	session.Status = models.SessionStatusEnded

	s.rt.SessionEnded(ctx, code, "")
	return session, nil
}

type JoinResult struct {
	PlayerID string          `json:"player_id"`
	Username string          `json:"username"`
	Session  *models.Session `json:"session"`
}

func (s *SessionService) Join(ctx context.Context, code, username string) (*JoinResult, error) {
	username = sanitizeUsername(username)
	if len(username) < usernameMinLen {
		return nil, ErrInvalidInput
	}

	session, err := s.getUsable(code)
	if err != nil {
		return nil, err
	}

	if session.MaxPlayers > 0 {
		count, err := s.store.CountParticipants(code)
		if err != nil {
			return nil, err
		}
		if count >= int64(session.MaxPlayers) {
			return nil, ErrFull
		}
	}

	playerID := uuid.NewString()
	now := s.now()
	participant := &models.Participant{
		SessionCode: code,
		PlayerID:    playerID,
		Username:    username,
		JoinedAt:    now,
	}
	if err := s.store.CreateParticipant(participant); err != nil {
		return nil, err
	}

	// Zero-score entry so the player appears on the board before their first
	// submission. A failure here self-heals on the next score submit.
	if err := s.store.UpsertEntry(code, playerID, store.EntryPatch{Username: &username}, now); err != nil {
		return nil, err
	}

	s.rt.LobbyUpdate(ctx, code)
	s.rt.LeaderboardUpdate(ctx, code)

	return &JoinResult{PlayerID: playerID, Username: username, Session: session}, nil
}

type SessionSummary struct {
	Code             string    `json:"code"`
	Status           string    `json:"status"`
	MaxPlayers       int       `json:"max_players"`
	CreatedAt        time.Time `json:"created_at"`
	ExpiresAt        time.Time `json:"expires_at"`
	ParticipantCount int       `json:"participant_count"`
}

func (s *SessionService) ListActive(ctx context.Context) ([]SessionSummary, error) {
	sessions, err := s.store.ListActiveSessions(s.now())
	if err != nil {
		return nil, err
	}

	codes := make([]string, len(sessions))
	for i, sess := range sessions {
		codes[i] = sess.Code
	}
	counts, err := s.store.CountParticipantsByCodes(codes)
	if err != nil {
		return nil, err
	}

	result := make([]SessionSummary, len(sessions))
	for i, sess := range sessions {
		result[i] = SessionSummary{
			Code:             sess.Code,
			Status:           sess.Status,
			MaxPlayers:       sess.MaxPlayers,
			CreatedAt:        sess.CreatedAt,
			ExpiresAt:        sess.ExpiresAt,
			ParticipantCount: int(counts[sess.Code]),
		}
	}
	return result, nil
}

// StateSnapshot is the authoritative pull viewers use on mount, on every
// fallback poll, and after any reconnect.
type StateSnapshot struct {
	Code        string                      `json:"code"`
	Status      string                      `json:"status"`
	Lobby       *realtime.LobbyUpdate       `json:"lobby"`
	Leaderboard *realtime.LeaderboardUpdate `json:"leaderboard"`
}

func (s *SessionService) Snapshot(ctx context.Context, code string) (*StateSnapshot, error) {
	session, err := s.store.GetSession(code)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	lobby, err := s.rt.BuildLobbyPayload(code)
	if err != nil {
		return nil, err
	}
	leaderboard, err := s.rt.BuildLeaderboardPayload(code)
	if err != nil {
		return nil, err
	}

	return &StateSnapshot{
		Code:        session.Code,
		Status:      session.Status,
		Lobby:       lobby,
		Leaderboard: leaderboard,
	}, nil
}

// getUsable loads a session and applies the guards shared by start and join:
// missing, ended, or past expiry sessions are unusable even when the stored
// status field has not caught up.
func (s *SessionService) getUsable(code string) (*models.Session, error) {
	session, err := s.store.GetSession(code)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if session.Status == models.SessionStatusEnded {
		return nil, ErrAlreadyEnded
	}
	if session.Expired(s.now()) {
		return nil, ErrExpired
	}
	return session, nil
}

func sanitizeUsername(raw string) string {
	trimmed := strings.TrimSpace(raw)
	runes := []rune(trimmed)
	if len(runes) > usernameMaxLen {
		runes = runes[:usernameMaxLen]
	}
	return string(runes)
}
