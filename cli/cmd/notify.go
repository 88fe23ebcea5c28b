package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/sheetdrop/adapter"
	"github.com/justapithecus/sheetdrop/adapter/redis"
	"github.com/justapithecus/sheetdrop/adapter/webhook"
	"github.com/justapithecus/sheetdrop/cli/config"
	"github.com/justapithecus/sheetdrop/log"
	"github.com/justapithecus/sheetdrop/types"
)

// AdapterFlags returns the flags that configure outcome notification.
func AdapterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "adapter",
			Usage: "Publish the attempt outcome: webhook or redis",
		},
		&cli.StringFlag{
			Name:  "adapter-url",
			Usage: "Webhook URL or redis://host:port URL",
		},
		&cli.StringFlag{
			Name:  "adapter-channel",
			Usage: "Redis channel (default " + redis.DefaultChannel + ")",
		},
		&cli.StringFlag{
			Name:  "adapter-codec",
			Usage: "Event encoding: json or msgpack",
			Value: string(adapter.CodecJSON),
		},
		&cli.StringSliceFlag{
			Name:  "adapter-header",
			Usage: "Webhook header as key=value (repeatable)",
		},
		&cli.DurationFlag{
			Name:  "adapter-timeout",
			Usage: "Per-publish timeout",
			Value: webhook.DefaultTimeout,
		},
		&cli.IntFlag{
			Name:  "adapter-retries",
			Usage: "Publish retries on transient failure",
			Value: webhook.DefaultRetries,
		},
	}
}

// adapterChoice holds the resolved adapter configuration.
type adapterChoice struct {
	adapterType string
	url         string
	channel     string
	codec       adapter.Codec
	headers     map[string]string
	timeout     time.Duration
	retries     int
}

// parseAdapterConfigWithPrecedence resolves adapter settings from flags
// and the config file. Flags win; config headers are merged under flag headers.
func parseAdapterConfigWithPrecedence(c *cli.Context, cfg *config.Config, adapterType string) (*adapterChoice, error) {
	ac := &adapterChoice{
		adapterType: adapterType,
		url:         resolveString(c, "adapter-url", configVal(cfg, func(c *config.Config) string { return c.Adapter.URL })),
		channel:     resolveString(c, "adapter-channel", configVal(cfg, func(c *config.Config) string { return c.Adapter.Channel })),
		timeout: resolveDuration(c, "adapter-timeout",
			configVal(cfg, func(c *config.Config) time.Duration { return c.Adapter.Timeout.Duration })),
		retries: c.Int("adapter-retries"),
		headers: make(map[string]string),
	}
	if !c.IsSet("adapter-retries") {
		if r := configVal(cfg, func(c *config.Config) *int { return c.Adapter.Retries }); r != nil {
			ac.retries = *r
		}
	}

	codec, err := adapter.ParseCodec(resolveString(c, "adapter-codec",
		configVal(cfg, func(c *config.Config) string { return c.Adapter.Codec })))
	if err != nil {
		return nil, err
	}
	ac.codec = codec

	for k, v := range configVal(cfg, func(c *config.Config) map[string]string { return c.Adapter.Headers }) {
		ac.headers[k] = v
	}
	for _, h := range c.StringSlice("adapter-header") {
		k, v, ok := strings.Cut(h, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --adapter-header %q (want key=value)", h)
		}
		ac.headers[k] = v
	}

	switch adapterType {
	case "webhook", "redis":
		if ac.url == "" {
			return nil, fmt.Errorf("--adapter-url is required when --adapter=%s", adapterType)
		}
	default:
		return nil, fmt.Errorf("unknown adapter type %q (must be webhook or redis)", adapterType)
	}
	return ac, nil
}

// newPublisher builds the configured outcome adapter, or nil when none is set.
func newPublisher(c *cli.Context, cfg *config.Config) (adapter.Adapter, error) {
	adapterType := resolveString(c, "adapter", configVal(cfg, func(c *config.Config) string { return c.Adapter.Type }))
	if adapterType == "" {
		return nil, nil
	}
	ac, err := parseAdapterConfigWithPrecedence(c, cfg, adapterType)
	if err != nil {
		return nil, err
	}

	switch ac.adapterType {
	case "webhook":
		a, err := webhook.New(webhook.Config{
			URL:     ac.url,
			Headers: ac.headers,
			Timeout: ac.timeout,
			Retries: ac.retries,
			Codec:   ac.codec,
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		a, err := redis.New(redis.Config{
			URL:     ac.url,
			Channel: ac.channel,
			Timeout: ac.timeout,
			Retries: ac.retries,
			Codec:   ac.codec,
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	}
}

// publishOutcome sends the attempt_completed event for a terminal attempt.
// Delivery failures are reported as warnings and never change the exit code.
func publishOutcome(ctx context.Context, pub adapter.Adapter, meta *types.SessionMeta, final types.AttemptState, logger *log.Logger, warn io.Writer) {
	if pub == nil || !final.Phase.IsTerminal() {
		return
	}
	event := adapter.NewAttemptCompletedEvent(meta, final)
	if err := pub.Publish(ctx, event); err != nil {
		logger.Warn("outcome publish failed", map[string]any{
			"processing_id": final.ProcessingID,
			"error":         err.Error(),
		})
		_, _ = fmt.Fprintf(warn, "Warning: failed to publish outcome: %v\n", err)
		return
	}
	logger.Info("outcome published", map[string]any{
		"processing_id": final.ProcessingID,
		"outcome":       event.Outcome,
	})
}
