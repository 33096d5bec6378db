// Package eventbus republishes observer events onto an external channel so
// a separate process (a dashboard, a logger, another QGC instance) can
// follow connection and mission state without linking against this binary.
// The Redis-backed Publisher is grounded on the bluetooth service's
// pkg/redis client: a thin wrapper that serializes each event and leans on
// the driver's own reconnect behavior rather than adding a layer on top.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/kstaniek/iips-core/internal/observer"
)

// Publisher republishes an observer.Event onto an external bus.
type Publisher interface {
	Publish(ctx context.Context, ev observer.Event) error
	Close() error
}

// NullPublisher discards every event. It is the default when no external
// bus is configured.
type NullPublisher struct{}

func (NullPublisher) Publish(context.Context, observer.Event) error { return nil }
func (NullPublisher) Close() error                                  { return nil }

// envelope is the wire shape published to the channel: a discriminator plus
// the event's own fields, so a non-Go subscriber can decode it without a
// shared type definition.
type envelope struct {
	Kind string `json:"kind"`
	Data any    `json:"data"`
}

func encode(ev observer.Event) ([]byte, error) {
	var kind string
	switch ev.(type) {
	case observer.ConnectionChanged:
		kind = "connection_changed"
	case observer.PlanReady:
		kind = "plan_ready"
	case observer.Notice:
		kind = "notice"
	default:
		return nil, fmt.Errorf("eventbus: unknown event type %T", ev)
	}
	return json.Marshal(envelope{Kind: kind, Data: ev})
}

// RedisPublisher publishes events as JSON on a single Redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher dials addr and verifies connectivity with a Ping before
// returning, matching the bluetooth service client's New().
func NewRedisPublisher(ctx context.Context, addr, password string, db int, channel string) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("eventbus: connect to redis at %s: %w", addr, err)
	}
	return &RedisPublisher{client: client, channel: channel}, nil
}

// Publish JSON-encodes ev and publishes it to the configured channel.
func (p *RedisPublisher) Publish(ctx context.Context, ev observer.Event) error {
	body, err := encode(ev)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, body).Err()
}

// Close closes the underlying Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
