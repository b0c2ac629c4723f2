// Package viewer keeps a session's lobby and leaderboard mirrored on the
// consumer side. It pulls an authoritative snapshot first, then rides the
// push channel when one attaches, and degrades to polling when it does not.
package viewer

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/datfullstacks/mln3/internal/models"
	"github.com/datfullstacks/mln3/internal/realtime"
	"github.com/datfullstacks/mln3/internal/services"
)

const (
	// How long to wait for the push channel to confirm before treating the
	// attach as failed and polling instead.
	defaultConfirmWait = 1200 * time.Millisecond
	// Poll cadence for a single watched session without a push channel.
	defaultPollEvery = 4 * time.Second
	// Poll cadence for the multi-session dashboard list.
	defaultListEvery = 10 * time.Second
)

// StateFetcher is the authoritative pull. *services.SessionService
// satisfies it.
type StateFetcher interface {
	Snapshot(ctx context.Context, code string) (*services.StateSnapshot, error)
}

// State is the watcher's local mirror of one session.
type State struct {
	Code         string
	Status       string
	Participants []realtime.ParticipantInfo
	Entries      []realtime.RankedEntry
	SyncedAt     time.Time
}

// Ended reports whether the mirrored session reached its terminal state.
func (s State) Ended() bool { return s.Status == models.SessionStatusEnded }

// Watcher mirrors a single session. Zero or one push Subscriber may be
// supplied; without one the watcher polls.
type Watcher struct {
	code  string
	fetch StateFetcher
	sub   realtime.Subscriber
	log   *slog.Logger
	now   func() time.Time

	confirmWait time.Duration
	pollEvery   time.Duration

	mu    sync.RWMutex
	state State
	done  bool
}

type WatcherOption func(*Watcher)

// WithSubscriber attaches a push channel. The watcher still pulls on
// start and after every reconnect; pushes only keep it fresh in between.
func WithSubscriber(sub realtime.Subscriber) WatcherOption {
	return func(w *Watcher) { w.sub = sub }
}

func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.pollEvery = d }
}

func WithConfirmWait(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.confirmWait = d }
}

func WithWatcherClock(now func() time.Time) WatcherOption {
	return func(w *Watcher) { w.now = now }
}

func NewWatcher(code string, fetch StateFetcher, log *slog.Logger, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		code:        code,
		fetch:       fetch,
		log:         log,
		now:         time.Now,
		confirmWait: defaultConfirmWait,
		pollEvery:   defaultPollEvery,
		state:       State{Code: code},
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.log == nil {
		w.log = slog.Default()
	}
	return w
}

// State returns a copy of the current mirror.
func (w *Watcher) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s := w.state
	s.Participants = append([]realtime.ParticipantInfo(nil), w.state.Participants...)
	s.Entries = append([]realtime.RankedEntry(nil), w.state.Entries...)
	return s
}

// Done reports whether the watcher stopped following the session.
func (w *Watcher) Done() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.done
}

// Run blocks until the session ends or ctx is cancelled. It always pulls
// once up front so a viewer never starts from an empty screen.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.pull(ctx); err != nil {
		return err
	}
	if w.terminal() {
		return nil
	}

	if w.sub == nil {
		return w.pollLoop(ctx)
	}
	return w.pushLoop(ctx)
}

// Pull refreshes the mirror from the authoritative source once.
func (w *Watcher) Pull(ctx context.Context) error {
	return w.pull(ctx)
}

func (w *Watcher) pull(ctx context.Context) error {
	snap, err := w.fetch.Snapshot(ctx, w.code)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Status = snap.Status
	if snap.Lobby != nil {
		w.state.Participants = snap.Lobby.Participants
	}
	if snap.Leaderboard != nil {
		w.state.Entries = snap.Leaderboard.Entries
	}
	w.state.SyncedAt = w.now()
	if w.state.Ended() {
		w.done = true
	}
	return nil
}

func (w *Watcher) pollLoop(ctx context.Context) error {
	ticker := time.NewTicker(w.pollEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.pull(ctx); err != nil {
				w.log.Warn("viewer poll failed", "code", w.code, "error", err)
				continue
			}
			if w.terminal() {
				return nil
			}
		}
	}
}

// pushLoop keeps one subscription open at a time. A subscription that
// never confirms within the window, or whose event channel closes, is
// torn down and replaced after a fresh pull, so no update is lost in the
// gap.
func (w *Watcher) pushLoop(ctx context.Context) error {
	for {
		sub, err := w.sub.Subscribe(ctx, w.code)
		if err != nil {
			w.log.Warn("viewer subscribe failed, polling instead", "code", w.code, "error", err)
			return w.pollLoop(ctx)
		}

		confirmed := w.awaitConfirm(ctx, sub)
		if !confirmed {
			sub.Close()
			w.log.Warn("push channel unconfirmed, polling instead", "code", w.code)
			return w.pollLoop(ctx)
		}

		closed, err := w.consume(ctx, sub)
		sub.Close()
		if err != nil {
			return err
		}
		if !closed {
			return nil
		}

		// The channel dropped mid-session. Re-pull before resubscribing so
		// anything broadcast during the gap is not missed.
		if err := w.pull(ctx); err != nil {
			w.log.Warn("viewer resync failed", "code", w.code, "error", err)
		}
		if w.terminal() {
			return nil
		}
	}
}

func (w *Watcher) awaitConfirm(ctx context.Context, sub *realtime.Subscription) bool {
	timer := time.NewTimer(w.confirmWait)
	defer timer.Stop()
	select {
	case <-sub.Confirmed:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// consume applies pushed events until the session ends, the channel
// closes, or ctx is cancelled. It reports closed=true when the channel
// dropped and the caller should reconnect.
func (w *Watcher) consume(ctx context.Context, sub *realtime.Subscription) (bool, error) {
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case ev, ok := <-sub.Events:
			if !ok {
				return true, nil
			}
			w.apply(ev)
			if w.terminal() {
				return false, nil
			}
		}
	}
}

func (w *Watcher) apply(ev realtime.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch ev.Name {
	case realtime.EventLobbyUpdate:
		var update realtime.LobbyUpdate
		if err := json.Unmarshal(ev.Payload, &update); err != nil {
			w.log.Warn("bad lobby payload", "code", w.code, "error", err)
			return
		}
		w.state.Participants = update.Participants
		if update.Status != "" {
			w.state.Status = update.Status
		}
	case realtime.EventLeaderboardUpdate:
		var update realtime.LeaderboardUpdate
		if err := json.Unmarshal(ev.Payload, &update); err != nil {
			w.log.Warn("bad leaderboard payload", "code", w.code, "error", err)
			return
		}
		w.state.Entries = update.Entries
	case realtime.EventSessionStart:
		w.state.Status = models.SessionStatusRunning
	case realtime.EventSessionEnded:
		w.state.Status = models.SessionStatusEnded
		w.done = true
	default:
		return
	}
	w.state.SyncedAt = w.now()
}

func (w *Watcher) terminal() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.done
}

// SessionLister feeds the dashboard. *services.SessionService satisfies it.
type SessionLister interface {
	ListActive(ctx context.Context) ([]services.SessionSummary, error)
}

// Dashboard mirrors the active session list on a fixed cadence.
type Dashboard struct {
	lister SessionLister
	log    *slog.Logger
	every  time.Duration

	mu       sync.RWMutex
	sessions []services.SessionSummary
	syncedAt time.Time
}

func NewDashboard(lister SessionLister, log *slog.Logger) *Dashboard {
	if log == nil {
		log = slog.Default()
	}
	return &Dashboard{lister: lister, log: log, every: defaultListEvery}
}

func (d *Dashboard) SetInterval(every time.Duration) { d.every = every }

func (d *Dashboard) Sessions() []services.SessionSummary {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]services.SessionSummary(nil), d.sessions...)
}

func (d *Dashboard) SyncedAt() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.syncedAt
}

// Refresh pulls the list once.
func (d *Dashboard) Refresh(ctx context.Context) error {
	sessions, err := d.lister.ListActive(ctx)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.sessions = sessions
	d.syncedAt = time.Now()
	d.mu.Unlock()
	return nil
}

// Run refreshes immediately and then on every tick until ctx ends.
func (d *Dashboard) Run(ctx context.Context) error {
	if err := d.Refresh(ctx); err != nil {
		d.log.Warn("dashboard refresh failed", "error", err)
	}
	ticker := time.NewTicker(d.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := d.Refresh(ctx); err != nil {
				d.log.Warn("dashboard refresh failed", "error", err)
			}
		}
	}
}
