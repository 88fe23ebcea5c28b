// Package redis announces attempt outcomes on a Redis pub/sub channel.
//
// Dashboards or sheet owners subscribe to the channel to learn when an
// upload finished and how. Nothing is stored; a subscriber that is not
// listening misses the event.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/justapithecus/sheetdrop/adapter"
)

// Defaults applied by New.
const (
	DefaultChannel = "sheetdrop:attempt_completed"
	DefaultTimeout = 5 * time.Second
	DefaultRetries = 3
)

// Config configures outcome announcements over Redis.
type Config struct {
	// URL is redis://[:password@]host:port[/db]. Required.
	URL string
	// Channel receives the events.
	Channel string
	// Timeout bounds a single PUBLISH.
	Timeout time.Duration
	// Retries is how many times a failed PUBLISH is repeated.
	Retries int
	// Codec selects json or msgpack payloads.
	Codec adapter.Codec
}

// Adapter publishes attempt outcomes with PUBLISH.
type Adapter struct {
	channel string
	timeout time.Duration
	retries int
	codec   adapter.Codec
	client  *goredis.Client
}

// New validates cfg, applies defaults and prepares the connection pool.
// No connection is made until the first Publish.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis adapter requires a URL")
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis adapter: invalid URL: %w", err)
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	codec, err := adapter.ParseCodec(string(cfg.Codec))
	if err != nil {
		return nil, fmt.Errorf("redis adapter: %w", err)
	}

	a := &Adapter{
		channel: cfg.Channel,
		timeout: cfg.Timeout,
		retries: cfg.Retries,
		codec:   codec,
		client:  goredis.NewClient(opts),
	}
	if a.channel == "" {
		a.channel = DefaultChannel
	}
	if a.timeout <= 0 {
		a.timeout = DefaultTimeout
	}
	return a, nil
}

// Publish announces event on the channel. Zero subscribers is not an error.
func (a *Adapter) Publish(ctx context.Context, event *adapter.AttemptCompletedEvent) error {
	payload, err := a.codec.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: encode %s event: %w", event.Outcome, err)
	}

	err = adapter.Deliver(ctx, a.retries, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()
		return a.client.Publish(ctx, a.channel, payload).Err()
	}, nil)
	if err != nil {
		return fmt.Errorf("redis: announce outcome of %s on %s: %w", event.FileName, a.channel, err)
	}
	return nil
}

// Close closes the connection pool.
func (a *Adapter) Close() error {
	return a.client.Close()
}

var _ adapter.Adapter = (*Adapter)(nil)
