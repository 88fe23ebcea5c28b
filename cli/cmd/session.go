package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/sheetdrop/backend"
	"github.com/justapithecus/sheetdrop/cli/config"
	"github.com/justapithecus/sheetdrop/log"
	"github.com/justapithecus/sheetdrop/metrics"
	"github.com/justapithecus/sheetdrop/types"
)

// Exit codes.
const (
	exitCompleted = 0
	exitFailed    = 1
	exitTimedOut  = 2
	exitWarning   = 3
	exitUsage     = 4
)

// msgLoadClients is shown when the client list cannot be fetched.
const msgLoadClients = "Failed to load clients. Make sure the backend is running."

// session bundles what one invocation needs to talk to the backend.
type session struct {
	cfg     *config.Config
	meta    *types.SessionMeta
	client  *backend.Client
	logger  *log.Logger
	metrics *metrics.Collector
}

// newSession loads the optional config file and builds the backend client
// and logger. Errors are usage errors.
func newSession(c *cli.Context) (*session, error) {
	var cfg *config.Config
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, cli.Exit(fmt.Sprintf("failed to load config: %v", err), exitUsage)
		}
		cfg = loaded
	}

	client, err := backend.New(backend.Config{
		BaseURL: config.ResolveBaseURL(c.String("base-url"), cfg),
		Headers: configVal(cfg, func(c *config.Config) map[string]string { return c.Backend.Headers }),
		Timeout: resolveDuration(c, "timeout",
			configVal(cfg, func(c *config.Config) time.Duration { return c.Backend.Timeout.Duration })),
	})
	if err != nil {
		return nil, cli.Exit(err.Error(), exitUsage)
	}

	meta := &types.SessionMeta{
		SessionID: uuid.NewString(),
		BaseURL:   client.BaseURL(),
	}
	logger, err := log.NewLogger(meta).WithLevel(c.String("log-level"))
	if err != nil {
		return nil, cli.Exit(err.Error(), exitUsage)
	}

	return &session{
		cfg:     cfg,
		meta:    meta,
		client:  client,
		logger:  logger,
		metrics: metrics.NewCollector(meta.BaseURL, meta.SessionID),
	}, nil
}

// Close flushes the logger and releases the backend client.
func (s *session) Close() error {
	_ = s.logger.Sync()
	return s.client.Close()
}

// phaseToExitCode maps a final attempt phase to the process exit code.
// Non-terminal phases map to exitFailed.
func phaseToExitCode(phase types.Phase) int {
	switch phase {
	case types.PhaseCompleted:
		return exitCompleted
	case types.PhaseWarning:
		return exitWarning
	case types.PhaseTimedOut:
		return exitTimedOut
	default:
		return exitFailed
	}
}
