// Package webhook delivers attempt outcomes to an HTTP endpoint.
//
// Each terminal upload attempt is POSTed once as an attempt_completed event.
// Server errors and dropped connections are redelivered; a 4xx reply means
// the receiver refused the event and delivery stops.
package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/justapithecus/sheetdrop/adapter"
	"github.com/justapithecus/sheetdrop/iox"
)

// Defaults applied by New.
const (
	DefaultTimeout = 10 * time.Second
	DefaultRetries = 3
)

// Config configures outcome delivery over HTTP.
type Config struct {
	// URL receives the POSTed event. Required.
	URL string
	// Headers are set on every request, e.g. an auth token for the receiver.
	Headers map[string]string
	// Timeout bounds a single POST.
	Timeout time.Duration
	// Retries is how many times a failed POST is redelivered.
	Retries int
	// Codec selects json or msgpack bodies.
	Codec adapter.Codec
}

// Adapter POSTs attempt outcomes.
type Adapter struct {
	url     string
	headers map[string]string
	retries int
	codec   adapter.Codec
	client  *http.Client
}

// New validates cfg and applies defaults.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhook adapter requires a URL")
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	codec, err := adapter.ParseCodec(string(cfg.Codec))
	if err != nil {
		return nil, fmt.Errorf("webhook adapter: %w", err)
	}

	return &Adapter{
		url:     cfg.URL,
		headers: cfg.Headers,
		retries: cfg.Retries,
		codec:   codec,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Publish POSTs event to the configured URL.
func (a *Adapter) Publish(ctx context.Context, event *adapter.AttemptCompletedEvent) error {
	body, err := a.codec.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: encode %s event: %w", event.Outcome, err)
	}

	err = adapter.Deliver(ctx, a.retries, func(ctx context.Context) error {
		return a.post(ctx, body)
	}, refused)
	if err != nil {
		return fmt.Errorf("webhook: deliver outcome of %s: %w", event.FileName, err)
	}
	return nil
}

// StatusError is a non-2xx reply from the receiver.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("receiver answered %d", e.Code)
}

// refused reports whether the receiver rejected the event itself.
func refused(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500
}

func (a *Adapter) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", a.codec.ContentType())
	for k, v := range a.headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer iox.DiscardClose(resp.Body)
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

// Close drops idle connections to the receiver.
func (a *Adapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

var _ adapter.Adapter = (*Adapter)(nil)
