package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valkey-io/valkey-go"
)

func newTestBackend(t *testing.T) *ValkeyBackend {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:       []string{mr.Addr()},
		DisableCache:      true,
		ForceSingleClient: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	backend := NewValkeyBackendWithClient(client)
	backend.ackWait = 200 * time.Millisecond
	return backend
}

func TestValkeyPublishSubscribeRoundTrip(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()

	sub, err := backend.Subscribe(ctx, "ABC234")
	require.NoError(t, err)
	defer sub.Close()

	select {
	case <-sub.Confirmed:
	case <-time.After(time.Second):
		t.Fatal("subscription not confirmed")
	}

	payload := LeaderboardUpdate{
		Code:    "ABC234",
		Entries: []RankedEntry{{PlayerID: "p1", Username: "an", Score: 9, Rank: 1}},
	}
	require.NoError(t, backend.Publish(ctx, "ABC234", EventLeaderboardUpdate, payload))

	select {
	case evt := <-sub.Events:
		assert.Equal(t, EventLeaderboardUpdate, evt.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestValkeyPublishProceedsWithoutSubscriber(t *testing.T) {
	backend := newTestBackend(t)

	// No one is listening; the publish should wait out the ack window and
	// still succeed rather than block or error.
	start := time.Now()
	err := backend.Publish(context.Background(), "ABC234", EventSessionStart, SessionStart{Code: "ABC234"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), backend.ackWait)
}

func TestValkeyPublishSkipsWaitWhenSubscribed(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()

	sub, err := backend.Subscribe(ctx, "ABC234")
	require.NoError(t, err)
	defer sub.Close()
	<-sub.Confirmed

	start := time.Now()
	require.NoError(t, backend.Publish(ctx, "ABC234", EventLobbyUpdate, LobbyUpdate{Code: "ABC234"}))
	assert.Less(t, time.Since(start), backend.ackWait)
}

func TestValkeySubscriptionScopedToSession(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()

	sub, err := backend.Subscribe(ctx, "OTHER2")
	require.NoError(t, err)
	defer sub.Close()
	<-sub.Confirmed

	require.NoError(t, backend.Publish(ctx, "ABC234", EventSessionEnded, SessionEnded{Code: "ABC234"}))

	select {
	case evt := <-sub.Events:
		t.Fatalf("unexpected event for other session: %s", evt.Name)
	case <-time.After(300 * time.Millisecond):
	}
}
