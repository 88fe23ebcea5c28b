package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/sheetdrop/cli/config"
	"github.com/justapithecus/sheetdrop/cli/render"
	"github.com/justapithecus/sheetdrop/cli/tui"
	"github.com/justapithecus/sheetdrop/iox"
	"github.com/justapithecus/sheetdrop/metrics"
	"github.com/justapithecus/sheetdrop/types"
	"github.com/justapithecus/sheetdrop/upload"
)

// UploadCommand returns the upload command.
// Exit codes: 0 completed, 1 failed, 2 timed out, 3 warning, 4 usage.
func UploadCommand() *cli.Command {
	return &cli.Command{
		Name:  "upload",
		Usage: "Upload a CSV file to a client sheet and wait for processing",
		Flags: commandFlags(
			ReadOnlyFlags(),
			ConnectionFlags(),
			[]cli.Flag{
				&cli.StringFlag{
					Name:  "client",
					Usage: "Client id (default: first client reported by the backend)",
				},
				&cli.StringFlag{
					Name:  "file",
					Usage: "CSV file path or s3://bucket/key (required without --tui)",
				},
				&cli.DurationFlag{
					Name:  "poll-interval",
					Usage: "Delay between status polls",
					Value: upload.DefaultPollInterval,
				},
				&cli.DurationFlag{
					Name:  "deadline",
					Usage: "Give up polling after this long",
					Value: upload.DefaultDeadline,
				},
				&cli.BoolFlag{
					Name:  "quiet",
					Usage: "Suppress the progress bar and report",
				},
			},
			StorageFlags(),
			AdapterFlags(),
		),
		Action: uploadAction,
	}
}

// AttemptReport is the rendered result of an upload.
type AttemptReport struct {
	Client       string  `json:"client" yaml:"client"`
	File         string  `json:"file" yaml:"file"`
	ProcessingID string  `json:"processing_id,omitempty" yaml:"processing_id,omitempty"`
	Outcome      string  `json:"outcome" yaml:"outcome"`
	Message      string  `json:"message" yaml:"message"`
	Progress     float64 `json:"progress" yaml:"progress"`
	Rows         int     `json:"rows,omitempty" yaml:"rows,omitempty"`
	Columns      int     `json:"columns,omitempty" yaml:"columns,omitempty"`
	FileSizeMB   float64 `json:"file_size_mb,omitempty" yaml:"file_size_mb,omitempty"`
	DurationMs   int64   `json:"duration_ms" yaml:"duration_ms"`
	PollsIssued  int64   `json:"polls_issued" yaml:"polls_issued"`
	PollHiccups  int64   `json:"poll_hiccups" yaml:"poll_hiccups"`
	Attempts     int64   `json:"attempts" yaml:"attempts"`
	Superseded   int64   `json:"superseded" yaml:"superseded"`
	SessionID    string  `json:"session_id" yaml:"session_id"`
}

func newAttemptReport(s types.AttemptState, m metrics.Snapshot) AttemptReport {
	report := AttemptReport{
		Client:       s.ClientID,
		File:         s.FileName,
		ProcessingID: s.ProcessingID,
		Outcome:      string(s.Phase),
		Message:      s.Message,
		Progress:     s.Progress,
		DurationMs:   s.Duration().Milliseconds(),
		PollsIssued:  m.PollsIssued,
		PollHiccups:  m.PollHiccups,
		Attempts:     m.AttemptsStarted,
		Superseded:   m.AttemptsSuperseded,
		SessionID:    m.SessionID,
	}
	if s.DataInfo != nil {
		report.Rows = s.DataInfo.Rows
		report.Columns = s.DataInfo.Columns
		report.FileSizeMB = s.DataInfo.FileSizeMB
	}
	return report
}

func uploadAction(c *cli.Context) error {
	tuiMode := c.Bool("tui")
	quiet := c.Bool("quiet")
	location := c.String("file")
	if !tuiMode && location == "" {
		return cli.Exit("--file is required (or use --tui)", exitUsage)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer iox.DiscardClose(s)

	pub, err := newPublisher(c, s.cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid adapter config: %v", err), exitUsage)
	}
	if pub != nil {
		defer iox.DiscardClose(pub)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	clients, err := s.client.ListClients(ctx)
	if err != nil {
		s.logger.Error("list clients failed", map[string]any{"error": err.Error()})
		return cli.Exit(fmt.Sprintf("%s (%v)", msgLoadClients, err), exitFailed)
	}
	if len(clients) == 0 {
		return cli.Exit("the backend reported no clients", exitFailed)
	}

	logger := s.logger
	if tuiMode {
		// The alternate screen owns the terminal.
		logger = logger.WithOutput(io.Discard)
	}

	opts := upload.Options{
		PollInterval: resolveDuration(c, "poll-interval",
			configVal(s.cfg, func(c *config.Config) time.Duration { return c.Poll.Interval.Duration })),
		Deadline: resolveDuration(c, "deadline",
			configVal(s.cfg, func(c *config.Config) time.Duration { return c.Poll.Deadline.Duration })),
		Logger:  logger,
		Metrics: s.metrics,
	}
	var bar *progressBar
	if !tuiMode && !quiet && render.IsTTY(os.Stderr) {
		bar = newProgressBar(os.Stderr)
		opts.OnChange = bar.update
	}

	ctrl := upload.New(ctx, s.client, clients, opts)
	defer iox.DiscardClose(ctrl)

	files := newFileResolver(c, s.cfg)

	var final types.AttemptState
	if tuiMode {
		final, err = tui.RunUpload(ctx, ctrl, clients, files.Resolve)
		if err != nil {
			return fmt.Errorf("upload screen: %w", err)
		}
		if !final.Phase.IsTerminal() {
			// Quit before an attempt finished.
			return nil
		}
	} else {
		final, err = runHeadless(ctx, ctrl, clients, files, c.String("client"), location)
		bar.finish()
		if err != nil {
			return err
		}
	}

	publishOutcome(ctx, pub, s.meta, final, s.logger, os.Stderr)

	if !quiet {
		if err := r.Render(newAttemptReport(final, s.metrics.Snapshot())); err != nil {
			return err
		}
	}

	if code := phaseToExitCode(final.Phase); code != exitCompleted {
		return cli.Exit("", code)
	}
	return nil
}

// resolver resolves a candidate file location.
type resolver interface {
	Resolve(ctx context.Context, location string) (types.FileDescriptor, error)
}

// runHeadless selects the client and file, submits once, and waits for the
// attempt to finish. Selection problems are usage errors; a rejected
// submission is a normal Failed outcome.
func runHeadless(ctx context.Context, ctrl *upload.Controller, clients types.ClientList, files resolver, clientID, location string) (types.AttemptState, error) {
	if clientID == "" {
		clientID = clients[0].ID
	}
	if !ctrl.SetClient(clientID) {
		return ctrl.Snapshot(), cli.Exit(fmt.Sprintf("unknown client %q (available: %v)", clientID, clients.IDs()), exitUsage)
	}

	fd, err := files.Resolve(ctx, location)
	if err != nil {
		return ctrl.Snapshot(), cli.Exit(fmt.Sprintf("cannot read %s: %v", location, err), exitUsage)
	}
	if err := ctrl.SetCandidateFile(fd); err != nil {
		return ctrl.Snapshot(), cli.Exit(fmt.Sprintf("%s: %s", upload.MsgInvalidFile, fd.Name), exitUsage)
	}

	if err := ctrl.Submit(ctx); err != nil {
		var subErr *upload.SubmissionError
		if errors.As(err, &subErr) {
			return ctrl.Snapshot(), nil
		}
		var valErr *upload.ValidationError
		if errors.As(err, &valErr) {
			return ctrl.Snapshot(), cli.Exit(valErr.Message, exitUsage)
		}
		return ctrl.Snapshot(), cli.Exit(fmt.Sprintf("upload interrupted: %v", err), exitFailed)
	}

	final, err := ctrl.Wait(ctx)
	if err != nil {
		return final, cli.Exit(fmt.Sprintf("upload interrupted: %v", err), exitFailed)
	}
	return final, nil
}
