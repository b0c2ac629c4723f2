package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub is the room-push backend: viewers hold a persistent websocket keyed by
// session code and publishes are direct writes to the room. Delivery is
// at-most-once per connected viewer with no replay.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*websocket.Conn]bool
	subs  map[string]map[chan Event]bool
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*websocket.Conn]bool),
		subs:  make(map[string]map[chan Event]bool),
	}
}

func (h *Hub) AddConnection(code string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[code] == nil {
		h.rooms[code] = make(map[*websocket.Conn]bool)
	}
	h.rooms[code][conn] = true
	slog.Debug("ws client connected", "code", code, "total", len(h.rooms[code]))
}

func (h *Hub) RemoveConnection(code string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.rooms[code]; ok {
		delete(conns, conn)
		conn.Close()
		if len(conns) == 0 {
			delete(h.rooms, code)
		}
		slog.Debug("ws client disconnected", "code", code)
	}
}

// Publish writes the event to every websocket in the room and every
// in-process subscription. A viewer that cannot keep up is dropped rather
// than blocking the publish path.
func (h *Hub) Publish(_ context.Context, code, event string, payload interface{}) error {
	evt, err := NewEvent(event, payload)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.rooms[code]; ok {
		for conn := range conns {
			if err := conn.WriteJSON(evt); err != nil {
				slog.Warn("ws write failed, dropping client", "code", code, "err", err)
				conn.Close()
				delete(conns, conn)
			}
		}
	}

	for ch := range h.subs[code] {
		select {
		case ch <- evt:
		default:
			slog.Warn("slow subscriber, dropping event", "code", code, "event", event)
		}
	}
	return nil
}

// Subscribe attaches an in-process viewer to the room. Confirmation is
// immediate because the hub lives in the same process as the publisher.
func (h *Hub) Subscribe(ctx context.Context, code string) (*Subscription, error) {
	ch := make(chan Event, 16)
	confirmed := make(chan struct{})

	h.mu.Lock()
	if h.subs[code] == nil {
		h.subs[code] = make(map[chan Event]bool)
	}
	h.subs[code][ch] = true
	h.mu.Unlock()
	close(confirmed)

	var once sync.Once
	closeFn := func() {
		once.Do(func() {
			h.mu.Lock()
			if chans, ok := h.subs[code]; ok {
				delete(chans, ch)
				if len(chans) == 0 {
					delete(h.subs, code)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}

	go func() {
		<-ctx.Done()
		closeFn()
	}()

	return &Subscription{Events: ch, Confirmed: confirmed, Close: closeFn}, nil
}
