package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"
)

// Response window for a broadcast-channel subscriber to show up before a
// publish goes out anyway.
const defaultAckWait = 1200 * time.Millisecond

// ValkeyBackend is the managed broadcast-channel backend: every session maps
// to a named pub/sub channel. Before sending, a publish waits a bounded
// window for at least one subscriber to be attached, then sends regardless.
// Delivery is best-effort with no ordering guarantee across publishers.
type ValkeyBackend struct {
	client  valkey.Client
	ackWait time.Duration
}

func NewValkeyBackend(addr string) (*ValkeyBackend, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:  []string{addr},
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create valkey client: %w", err)
	}
	return &ValkeyBackend{client: client, ackWait: defaultAckWait}, nil
}

// NewValkeyBackendWithClient wraps an existing client; used by tests.
func NewValkeyBackendWithClient(client valkey.Client) *ValkeyBackend {
	return &ValkeyBackend{client: client, ackWait: defaultAckWait}
}

func (v *ValkeyBackend) Close() {
	v.client.Close()
}

func channelName(code string) string {
	return "session:" + code
}

func (v *ValkeyBackend) Publish(ctx context.Context, code, event string, payload interface{}) error {
	evt, err := NewEvent(event, payload)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	channel := channelName(code)
	v.waitForSubscriber(ctx, channel)

	cmd := v.client.B().Publish().Channel(channel).Message(string(raw)).Build()
	if err := v.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}

// waitForSubscriber polls subscriber counts until one appears or the ack
// window lapses. Either way the caller proceeds: a missed event is healed by
// the viewers' pull path.
func (v *ValkeyBackend) waitForSubscriber(ctx context.Context, channel string) {
	deadline := time.Now().Add(v.ackWait)
	for {
		if n, err := v.subscriberCount(ctx, channel); err != nil || n > 0 {
			return
		}
		if time.Now().After(deadline) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func (v *ValkeyBackend) subscriberCount(ctx context.Context, channel string) (int64, error) {
	cmd := v.client.B().PubsubNumsub().Channel(channel).Build()
	arr, err := v.client.Do(ctx, cmd).ToArray()
	if err != nil || len(arr) < 2 {
		return 0, err
	}
	return arr[1].AsInt64()
}

func (v *ValkeyBackend) Subscribe(ctx context.Context, code string) (*Subscription, error) {
	events := make(chan Event, 16)
	confirmed := make(chan struct{})

	dedicated, cancel := v.client.Dedicate()
	wait := dedicated.SetPubSubHooks(valkey.PubSubHooks{
		OnMessage: func(msg valkey.PubSubMessage) {
			var evt Event
			if err := json.Unmarshal([]byte(msg.Message), &evt); err != nil {
				return
			}
			select {
			case events <- evt:
			default:
			}
		},
	})

	cmd := dedicated.B().Subscribe().Channel(channelName(code)).Build()
	if err := dedicated.Do(ctx, cmd).Error(); err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe %s: %w", channelName(code), err)
	}
	close(confirmed)

	var once sync.Once
	closeFn := func() {
		once.Do(func() {
			cancel()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-wait:
		}
		closeFn()
	}()

	return &Subscription{Events: events, Confirmed: confirmed, Close: closeFn}, nil
}
