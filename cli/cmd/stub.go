package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/sheetdrop/cli/config"
	"github.com/justapithecus/sheetdrop/log"
	"github.com/justapithecus/sheetdrop/stub"
	"github.com/justapithecus/sheetdrop/types"
)

// shutdownTimeout bounds how long the stub waits for in-flight requests.
const shutdownTimeout = 5 * time.Second

// StubCommand returns the stub command, which serves the development backend.
func StubCommand() *cli.Command {
	return &cli.Command{
		Name:  "stub",
		Usage: "Serve an in-memory development backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to sheetdrop.yaml",
				EnvVars: []string{EnvConfig},
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address",
				Value: stub.DefaultAddr,
			},
			&cli.DurationFlag{
				Name:  "step-delay",
				Usage: "Pause between processing stages",
				Value: stub.DefaultStepDelay,
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error",
				Value: "info",
			},
		},
		Action: stubAction,
	}
}

func stubAction(c *cli.Context) error {
	var cfg *config.Config
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cli.Exit(fmt.Sprintf("failed to load config: %v", err), exitUsage)
		}
		cfg = loaded
	}

	addr := resolveString(c, "addr", configVal(cfg, func(c *config.Config) string { return c.Stub.Addr }))
	logger, err := log.NewLogger(&types.SessionMeta{
		SessionID: uuid.NewString(),
		BaseURL:   "http://" + addr,
	}).WithLevel(c.String("log-level"))
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	defer func() { _ = logger.Sync() }()

	srv := stub.New(stub.Config{
		Clients: configVal(cfg, func(c *config.Config) types.ClientList { return c.Stub.Clients }),
		StepDelay: resolveDuration(c, "step-delay",
			configVal(cfg, func(c *config.Config) time.Duration { return c.Stub.StepDelay.Duration })),
		Logger: logger,
	})

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(addr) }()

	select {
	case err := <-errCh:
		if err != nil {
			return cli.Exit(fmt.Sprintf("stub backend: %v", err), exitFailed)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return cli.Exit(fmt.Sprintf("stub backend shutdown: %v", err), exitFailed)
	}
	return nil
}
