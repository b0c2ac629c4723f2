package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/datfullstacks/mln3/internal/models"
	"github.com/datfullstacks/mln3/internal/realtime"
	"github.com/datfullstacks/mln3/internal/store"
)

type publishedEvent struct {
	Code    string
	Event   string
	Payload interface{}
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *capturingPublisher) Publish(ctx context.Context, code, event string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Code: code, Event: event, Payload: payload})
	return nil
}

func (p *capturingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Event
	}
	return out
}

func (p *capturingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

type testEnv struct {
	store       *store.Store
	pub         *capturingPublisher
	sessions    *SessionService
	leaderboard *LeaderboardService
	clock       *fakeClock
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Session{}, &models.Participant{}, &models.LeaderboardEntry{}))

	st := store.New(db)
	pub := &capturingPublisher{}
	rt := realtime.NewBroadcaster(st, pub)
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}

	return &testEnv{
		store:       st,
		pub:         pub,
		sessions:    NewSessionService(st, rt).WithClock(clock.now),
		leaderboard: NewLeaderboardService(st, rt).WithClock(clock.now),
		clock:       clock,
	}
}

func TestCreateSessionDefaults(t *testing.T) {
	env := newTestEnv(t)

	session, err := env.sessions.Create(context.Background(), 0, 0)
	require.NoError(t, err)

	assert.Len(t, session.Code, 6)
	for _, r := range session.Code {
		assert.Contains(t, codeAlphabet, string(r))
	}
	assert.Equal(t, models.SessionStatusLobby, session.Status)
	assert.Equal(t, defaultMaxPlayer, session.MaxPlayers)
	assert.Equal(t, env.clock.now().Add(defaultTTL*time.Minute), session.ExpiresAt)
}

func TestCreateSessionExplicitLimits(t *testing.T) {
	env := newTestEnv(t)

	session, err := env.sessions.Create(context.Background(), 4, 30)
	require.NoError(t, err)

	assert.Equal(t, 4, session.MaxPlayers)
	assert.Equal(t, env.clock.now().Add(30*time.Minute), session.ExpiresAt)
}

func TestJoinSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.sessions.Create(ctx, 0, 0)
	require.NoError(t, err)
	env.pub.reset()

	result, err := env.sessions.Join(ctx, session.Code, "  An  ")
	require.NoError(t, err)
	assert.NotEmpty(t, result.PlayerID)
	assert.Equal(t, "An", result.Username)

	// The join seeds a zero-score entry so the player shows on the board
	// before their first answer.
	entry, err := env.store.GetEntry(session.Code, result.PlayerID)
	require.NoError(t, err)
	assert.Equal(t, 0, entry.Score)
	assert.Equal(t, int64(0), entry.TotalTimeMs)

	assert.Equal(t, []string{realtime.EventLobbyUpdate, realtime.EventLeaderboardUpdate}, env.pub.names())
}

func TestJoinRejectsShortUsername(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.sessions.Create(ctx, 0, 0)
	require.NoError(t, err)

	_, err = env.sessions.Join(ctx, session.Code, "  a ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestJoinTruncatesLongUsername(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.sessions.Create(ctx, 0, 0)
	require.NoError(t, err)

	result, err := env.sessions.Join(ctx, session.Code, strings.Repeat("x", 40))
	require.NoError(t, err)
	assert.Len(t, result.Username, usernameMaxLen)
}

func TestJoinFullSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.sessions.Create(ctx, 2, 0)
	require.NoError(t, err)

	_, err = env.sessions.Join(ctx, session.Code, "an")
	require.NoError(t, err)
	_, err = env.sessions.Join(ctx, session.Code, "binh")
	require.NoError(t, err)

	_, err = env.sessions.Join(ctx, session.Code, "chi")
	assert.ErrorIs(t, err, ErrFull)
}

func TestJoinUnknownSession(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.sessions.Join(context.Background(), "ZZZZ99", "an")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJoinExpiredSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.sessions.Create(ctx, 0, 10)
	require.NoError(t, err)

	env.clock.advance(11 * time.Minute)
	_, err = env.sessions.Join(ctx, session.Code, "an")
	assert.ErrorIs(t, err, ErrExpired)
}

func TestStartSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.sessions.Create(ctx, 0, 0)
	require.NoError(t, err)
	env.pub.reset()

	started, err := env.sessions.Start(ctx, session.Code)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusRunning, started.Status)
	assert.Equal(t, []string{realtime.EventSessionStart, realtime.EventLobbyUpdate}, env.pub.names())

	// Starting again keeps the status and stays silent.
	env.pub.reset()
	again, err := env.sessions.Start(ctx, session.Code)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusRunning, again.Status)
	assert.Empty(t, env.pub.names())
}

func TestStartEndedSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.sessions.Create(ctx, 0, 0)
	require.NoError(t, err)
	_, err = env.sessions.End(ctx, session.Code)
	require.NoError(t, err)

	_, err = env.sessions.Start(ctx, session.Code)
	assert.ErrorIs(t, err, ErrAlreadyEnded)
}

func TestEndSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.sessions.Create(ctx, 0, 0)
	require.NoError(t, err)
	env.pub.reset()

	ended, err := env.sessions.End(ctx, session.Code)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusEnded, ended.Status)
	assert.Equal(t, []string{realtime.EventSessionEnded}, env.pub.names())

	// Ending an ended session is a quiet success, not an error.
	env.pub.reset()
	again, err := env.sessions.End(ctx, session.Code)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusEnded, again.Status)
	assert.Empty(t, env.pub.names())
}

func TestEndUnknownSession(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.sessions.End(context.Background(), "ZZZZ99")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListActiveSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	expired, err := env.sessions.Create(ctx, 0, 10)
	require.NoError(t, err)

	env.clock.advance(time.Minute)
	live, err := env.sessions.Create(ctx, 0, 60)
	require.NoError(t, err)
	_, err = env.sessions.Join(ctx, live.Code, "an")
	require.NoError(t, err)

	endedSession, err := env.sessions.Create(ctx, 0, 60)
	require.NoError(t, err)
	_, err = env.sessions.End(ctx, endedSession.Code)
	require.NoError(t, err)

	env.clock.advance(10 * time.Minute)

	active, err := env.sessions.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, live.Code, active[0].Code)
	assert.Equal(t, int64(1), int64(active[0].ParticipantCount))
	_ = expired
}

func TestSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.sessions.Create(ctx, 0, 0)
	require.NoError(t, err)
	joined, err := env.sessions.Join(ctx, session.Code, "an")
	require.NoError(t, err)

	snap, err := env.sessions.Snapshot(ctx, session.Code)
	require.NoError(t, err)
	assert.Equal(t, session.Code, snap.Code)
	assert.Equal(t, models.SessionStatusLobby, snap.Status)
	require.NotNil(t, snap.Lobby)
	require.Len(t, snap.Lobby.Participants, 1)
	assert.Equal(t, joined.PlayerID, snap.Lobby.Participants[0].PlayerID)
	require.NotNil(t, snap.Leaderboard)
	require.Len(t, snap.Leaderboard.Entries, 1)
	assert.Equal(t, 1, snap.Leaderboard.Entries[0].Rank)
}

func TestSnapshotOfEndedSessionStillWorks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.sessions.Create(ctx, 0, 0)
	require.NoError(t, err)
	_, err = env.sessions.End(ctx, session.Code)
	require.NoError(t, err)

	snap, err := env.sessions.Snapshot(ctx, session.Code)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusEnded, snap.Status)
}
