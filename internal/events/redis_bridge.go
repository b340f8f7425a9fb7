package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBridge shares change events between service instances. Local handlers
// run first; the event is then published on the Redis channel. Events
// received from other instances are dispatched locally.
type RedisBridge struct {
	local      Dispatcher
	client     *redis.Client
	channel    string
	origin     string
	logger     *zap.Logger
	minBackoff time.Duration
	maxBackoff time.Duration
}

const (
	defaultMinBackoff = time.Second
	defaultMaxBackoff = 30 * time.Second
)

// NewRedisBridge wraps a local dispatcher. A nil client keeps the bridge
// local-only.
func NewRedisBridge(local Dispatcher, client *redis.Client, channel string, logger *zap.Logger) *RedisBridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBridge{
		local:      local,
		client:     client,
		channel:    channel,
		origin:     uuid.NewString(),
		logger:     logger,
		minBackoff: defaultMinBackoff,
		maxBackoff: defaultMaxBackoff,
	}
}

// Origin identifies this instance on the shared channel.
func (b *RedisBridge) Origin() string {
	return b.origin
}

// Publish dispatches locally then forwards to Redis. A Redis failure is
// logged and does not fail the caller.
func (b *RedisBridge) Publish(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	event.Origin = b.origin

	if err := b.local.Publish(ctx, event); err != nil {
		return err
	}
	if b.client == nil {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		b.logger.Warn("encode change event", zap.String("event_type", string(event.Type)), zap.Error(err))
		return nil
	}
	if err := b.client.Publish(ctx, b.channel, body).Err(); err != nil {
		b.logger.Warn("publish change event to redis",
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
	}
	return nil
}

// Subscribe registers a local handler.
func (b *RedisBridge) Subscribe(eventType EventType, handler EventHandler) Unsubscribe {
	return b.local.Subscribe(eventType, handler)
}

// SubscribeAll registers a local handler for every event type.
func (b *RedisBridge) SubscribeAll(handler EventHandler) Unsubscribe {
	return b.local.SubscribeAll(handler)
}

// Run consumes the shared channel until ctx is done. While Redis cannot be
// reached the bridge stays local-only and retries the subscription with
// exponential backoff.
func (b *RedisBridge) Run(ctx context.Context) error {
	if b.client == nil {
		<-ctx.Done()
		return nil
	}
	wait := b.minBackoff
	for {
		err := b.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			wait = b.minBackoff
		} else {
			b.logger.Warn("redis change feed unavailable; running local-only",
				zap.Duration("retry_in", wait),
				zap.Error(err),
			)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		wait = nextBackoff(wait, b.maxBackoff)
	}
}

// listen holds one subscription open. It returns nil once the message channel
// closes after a successful subscribe.
func (b *RedisBridge) listen(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	b.logger.Info("listening for change events", zap.String("channel", b.channel))

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			b.handleMessage(ctx, msg.Payload)
		}
	}
}

func nextBackoff(current, limit time.Duration) time.Duration {
	next := current * 2
	if next > limit || next <= 0 {
		return limit
	}
	return next
}

func (b *RedisBridge) handleMessage(ctx context.Context, payload string) {
	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		b.logger.Warn("decode change event", zap.Error(err))
		return
	}
	if event.Origin == b.origin {
		return
	}
	if err := b.local.Publish(ctx, event); err != nil {
		b.logger.Warn("dispatch remote change event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
