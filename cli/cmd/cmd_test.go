package cmd

import (
	"errors"
	"flag"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/sheetdrop/adapter"
	"github.com/justapithecus/sheetdrop/cli/config"
	"github.com/justapithecus/sheetdrop/metrics"
	"github.com/justapithecus/sheetdrop/stub"
	"github.com/justapithecus/sheetdrop/types"
)

func TestReadOnlyFlags_IncludesTUI(t *testing.T) {
	hasTUI := false
	for _, f := range ReadOnlyFlags() {
		if f.Names()[0] == "tui" {
			hasTUI = true
			break
		}
	}
	if !hasTUI {
		t.Error("ReadOnlyFlags should include --tui flag for explicit error handling")
	}
}

func TestUploadCommand_FlagNamesUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, f := range UploadCommand().Flags {
		for _, name := range f.Names() {
			if seen[name] {
				t.Errorf("duplicate flag %q", name)
			}
			seen[name] = true
		}
	}
	for _, want := range []string{"client", "file", "tui", "base-url", "deadline", "adapter", "s3-region"} {
		if !seen[want] {
			t.Errorf("upload is missing --%s", want)
		}
	}
}

func TestPhaseToExitCode(t *testing.T) {
	tests := []struct {
		phase types.Phase
		want  int
	}{
		{types.PhaseCompleted, exitCompleted},
		{types.PhaseFailed, exitFailed},
		{types.PhaseTimedOut, exitTimedOut},
		{types.PhaseWarning, exitWarning},
		{types.PhasePolling, exitFailed},
		{types.PhaseIdle, exitFailed},
	}
	for _, tt := range tests {
		t.Run(string(tt.phase), func(t *testing.T) {
			if got := phaseToExitCode(tt.phase); got != tt.want {
				t.Errorf("phaseToExitCode(%q) = %d, want %d", tt.phase, got, tt.want)
			}
		})
	}
}

func TestExitCodeConstants(t *testing.T) {
	codes := []int{exitCompleted, exitFailed, exitTimedOut, exitWarning, exitUsage}
	seen := make(map[int]bool)
	for _, c := range codes {
		if seen[c] {
			t.Errorf("exit code %d is used twice", c)
		}
		seen[c] = true
	}
	if exitCompleted != 0 {
		t.Errorf("exitCompleted = %d, want 0", exitCompleted)
	}
}

func TestNewAttemptReport(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(1500 * time.Millisecond)
	s := types.AttemptState{
		ClientID:     "client_a",
		FileName:     "leads.csv",
		ProcessingID: "p-1",
		Phase:        types.PhaseCompleted,
		Progress:     100,
		Message:      "done",
		DataInfo:     &types.DataInfo{Rows: 12, Columns: 4, FileSizeMB: 0.01},
		StartedAt:    &start,
		EndedAt:      &end,
	}
	m := metrics.Snapshot{PollsIssued: 3, PollHiccups: 1, AttemptsStarted: 1, SessionID: "sess"}

	r := newAttemptReport(s, m)
	if r.Outcome != "completed" || r.Rows != 12 || r.Columns != 4 {
		t.Errorf("unexpected report: %+v", r)
	}
	if r.DurationMs != 1500 {
		t.Errorf("DurationMs = %d, want 1500", r.DurationMs)
	}
	if r.PollsIssued != 3 || r.PollHiccups != 1 || r.SessionID != "sess" {
		t.Errorf("metrics not copied: %+v", r)
	}

	noInfo := newAttemptReport(types.AttemptState{Phase: types.PhaseFailed}, metrics.Snapshot{})
	if noInfo.Rows != 0 || noInfo.Outcome != "failed" {
		t.Errorf("unexpected report: %+v", noInfo)
	}
}

// --- Config precedence ---

// newTestCLIContext builds a minimal *cli.Context with string flags.
// flagValues are marked as explicitly set; defaultFlags are registered only.
func newTestCLIContext(t *testing.T, flagValues map[string]string, defaultFlags map[string]string) *cli.Context {
	t.Helper()
	app := cli.NewApp()

	allFlags := make(map[string]string)
	for k, v := range defaultFlags {
		allFlags[k] = v
	}
	for k, v := range flagValues {
		allFlags[k] = v
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	for name, val := range allFlags {
		app.Flags = append(app.Flags, &cli.StringFlag{Name: name, Value: val})
		fs.String(name, val, "")
	}
	for name, val := range flagValues {
		if err := fs.Set(name, val); err != nil {
			t.Fatalf("failed to set flag %s: %v", name, err)
		}
	}

	return cli.NewContext(app, fs, nil)
}

func TestResolveString(t *testing.T) {
	tests := []struct {
		name     string
		set      map[string]string
		defaults map[string]string
		cfgVal   string
		want     string
	}{
		{"cli wins", map[string]string{"adapter-url": "cli"}, nil, "config", "cli"},
		{"config fallback", nil, map[string]string{"adapter-url": ""}, "config", "config"},
		{"flag default", nil, map[string]string{"adapter-url": "default"}, "", "default"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCLIContext(t, tt.set, tt.defaults)
			if got := resolveString(c, "adapter-url", tt.cfgVal); got != tt.want {
				t.Errorf("resolveString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveInt(t *testing.T) {
	app := cli.NewApp()
	app.Flags = []cli.Flag{&cli.IntFlag{Name: "adapter-retries"}}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Int("adapter-retries", 0, "")
	c := cli.NewContext(app, fs, nil)
	if got := resolveInt(c, "adapter-retries", 7); got != 7 {
		t.Errorf("expected config fallback 7, got %d", got)
	}

	_ = fs.Set("adapter-retries", "5")
	if got := resolveInt(c, "adapter-retries", 7); got != 5 {
		t.Errorf("expected CLI to win with 5, got %d", got)
	}
}

func TestResolveBool(t *testing.T) {
	app := cli.NewApp()
	app.Flags = []cli.Flag{&cli.BoolFlag{Name: "s3-path-style"}}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Bool("s3-path-style", false, "")
	c := cli.NewContext(app, fs, nil)

	if !resolveBool(c, "s3-path-style", true) {
		t.Error("expected config true to apply")
	}
	_ = fs.Set("s3-path-style", "false")
	if resolveBool(c, "s3-path-style", true) {
		t.Error("expected explicit CLI false to win")
	}
}

func TestResolveDuration(t *testing.T) {
	app := cli.NewApp()
	app.Flags = []cli.Flag{&cli.DurationFlag{Name: "deadline", Value: 300 * time.Second}}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Duration("deadline", 300*time.Second, "")
	c := cli.NewContext(app, fs, nil)

	if got := resolveDuration(c, "deadline", 0); got != 300*time.Second {
		t.Errorf("expected flag default 300s, got %v", got)
	}
	if got := resolveDuration(c, "deadline", time.Minute); got != time.Minute {
		t.Errorf("expected config fallback 1m, got %v", got)
	}
	_ = fs.Set("deadline", "30s")
	if got := resolveDuration(c, "deadline", time.Minute); got != 30*time.Second {
		t.Errorf("expected CLI 30s to win, got %v", got)
	}
}

func TestConfigVal(t *testing.T) {
	get := func(c *config.Config) string { return c.Backend.BaseURL }
	if got := configVal(nil, get); got != "" {
		t.Errorf("expected empty for nil config, got %q", got)
	}
	cfg := &config.Config{Backend: config.BackendConfig{BaseURL: "http://from-config"}}
	if got := configVal(cfg, get); got != "http://from-config" {
		t.Errorf("expected http://from-config, got %q", got)
	}
}

// --- Adapter config ---

// newAdapterTestContext builds a CLI context with the adapter flags registered.
func newAdapterTestContext(t *testing.T, flags map[string]string) *cli.Context {
	t.Helper()
	app := cli.NewApp()
	app.Flags = []cli.Flag{
		&cli.StringFlag{Name: "adapter-url"},
		&cli.StringFlag{Name: "adapter-channel"},
		&cli.StringFlag{Name: "adapter-codec", Value: "json"},
		&cli.DurationFlag{Name: "adapter-timeout", Value: 10 * time.Second},
		&cli.IntFlag{Name: "adapter-retries", Value: 3},
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.String("adapter-url", "", "")
	fs.String("adapter-channel", "", "")
	fs.String("adapter-codec", "json", "")
	fs.Duration("adapter-timeout", 10*time.Second, "")
	fs.Int("adapter-retries", 3, "")
	for name, val := range flags {
		if err := fs.Set(name, val); err != nil {
			t.Fatalf("failed to set flag %s: %v", name, err)
		}
	}
	return cli.NewContext(app, fs, nil)
}

func TestParseAdapterConfig(t *testing.T) {
	retries := 9
	cfg := &config.Config{Adapter: config.AdapterConfig{
		URL:     "https://from-config.example.com",
		Codec:   "msgpack",
		Headers: map[string]string{"X-Team": "ops"},
		Retries: &retries,
	}}

	tests := []struct {
		name        string
		flags       map[string]string
		cfg         *config.Config
		adapterType string
		wantErr     string
		check       func(t *testing.T, ac *adapterChoice)
	}{
		{
			name:        "webhook from flags",
			flags:       map[string]string{"adapter-url": "https://hooks.example.com/sheetdrop"},
			adapterType: "webhook",
			check: func(t *testing.T, ac *adapterChoice) {
				if ac.url != "https://hooks.example.com/sheetdrop" || ac.codec != adapter.CodecJSON || ac.retries != 3 {
					t.Errorf("unexpected choice: %+v", ac)
				}
			},
		},
		{
			name:        "redis with channel",
			flags:       map[string]string{"adapter-url": "redis://localhost:6379", "adapter-channel": "ops"},
			adapterType: "redis",
			check: func(t *testing.T, ac *adapterChoice) {
				if ac.channel != "ops" {
					t.Errorf("channel = %q, want ops", ac.channel)
				}
			},
		},
		{
			name:        "config provides url codec headers retries",
			cfg:         cfg,
			adapterType: "webhook",
			check: func(t *testing.T, ac *adapterChoice) {
				if ac.url != "https://from-config.example.com" || ac.codec != adapter.CodecMsgpack {
					t.Errorf("unexpected choice: %+v", ac)
				}
				if ac.headers["X-Team"] != "ops" || ac.retries != 9 {
					t.Errorf("unexpected choice: %+v", ac)
				}
			},
		},
		{
			name:        "cli retries beat config",
			flags:       map[string]string{"adapter-retries": "0"},
			cfg:         cfg,
			adapterType: "webhook",
			check: func(t *testing.T, ac *adapterChoice) {
				if ac.retries != 0 {
					t.Errorf("retries = %d, want 0", ac.retries)
				}
			},
		},
		{
			name:        "webhook missing url",
			adapterType: "webhook",
			wantErr:     "--adapter-url is required when --adapter=webhook",
		},
		{
			name:        "redis missing url",
			adapterType: "redis",
			wantErr:     "--adapter-url is required when --adapter=redis",
		},
		{
			name:        "unknown type",
			flags:       map[string]string{"adapter-url": "https://example.com"},
			adapterType: "kafka",
			wantErr:     `unknown adapter type "kafka"`,
		},
		{
			name:        "bad codec",
			flags:       map[string]string{"adapter-url": "https://example.com", "adapter-codec": "xml"},
			adapterType: "webhook",
			wantErr:     "xml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newAdapterTestContext(t, tt.flags)
			ac, err := parseAdapterConfigWithPrecedence(c, tt.cfg, tt.adapterType)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want it to contain %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, ac)
		})
	}
}

// --- Commands against the stub backend ---

// newTestApp wires every command with os.Exit suppressed so errors are returned.
func newTestApp() *cli.App {
	app := cli.NewApp()
	app.Commands = []*cli.Command{
		UploadCommand(),
		ClientsCommand(),
		HealthCommand(),
		CheckCommand(),
		MappingCommand(),
		VersionCommand("test"),
	}
	app.ExitErrHandler = func(*cli.Context, error) {}
	return app
}

func startStub(t *testing.T) string {
	t.Helper()
	s := stub.New(stub.Config{StepDelay: time.Millisecond})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return ts.URL
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return -1
}

func TestUploadAction_ExitCodes(t *testing.T) {
	url := startStub(t)
	good := writeFile(t, "leads.csv", "Organization Name,Website\nAcme,acme.test\n")
	wide := writeFile(t, "wide.csv", strings.Repeat("c,", 30)+"c\n"+strings.Repeat("v,", 30)+"v\n")
	empty := writeFile(t, "empty.csv", "a,b\n")
	notCSV := writeFile(t, "book.xlsx", "PK")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"completed", []string{"--file", good}, exitCompleted},
		{"completed explicit client", []string{"--file", good, "--client", "client_b"}, exitCompleted},
		{"warning", []string{"--file", wide}, exitWarning},
		{"processing failed", []string{"--file", empty}, exitFailed},
		{"timed out", []string{"--file", good, "--deadline", "1ms", "--poll-interval", "1h"}, exitTimedOut},
		{"not csv", []string{"--file", notCSV}, exitUsage},
		{"missing file", []string{"--file", filepath.Join(t.TempDir(), "nope.csv")}, exitUsage},
		{"unknown client", []string{"--file", good, "--client", "client_z"}, exitUsage},
		{"no file flag", nil, exitUsage},
		{"bad adapter", []string{"--file", good, "--adapter", "kafka"}, exitUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"sheetdrop", "upload", "--base-url", url, "--quiet", "--poll-interval", "5ms"}, tt.args...)
			err := newTestApp().Run(args)
			if got := exitCode(err); got != tt.want {
				t.Errorf("exit code = %d (err %v), want %d", got, err, tt.want)
			}
		})
	}
}

func TestUploadAction_BackendDown(t *testing.T) {
	ts := httptest.NewServer(nil)
	url := ts.URL
	ts.Close()

	good := writeFile(t, "leads.csv", "a\n1\n")
	err := newTestApp().Run([]string{"sheetdrop", "upload", "--base-url", url, "--quiet", "--file", good})
	if got := exitCode(err); got != exitFailed {
		t.Fatalf("exit code = %d, want %d", got, exitFailed)
	}
	if !strings.Contains(err.Error(), msgLoadClients) {
		t.Errorf("error should explain the backend is down, got: %v", err)
	}
}

func TestReadOnlyCommands_AgainstStub(t *testing.T) {
	url := startStub(t)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"clients", []string{"clients", "--base-url", url, "-f", "json"}, 0},
		{"health", []string{"health", "--base-url", url, "-f", "json"}, 0},
		{"check", []string{"check", "--base-url", url, "-f", "json", "client_a"}, 0},
		{"check unknown client", []string{"check", "--base-url", url, "-f", "json", "nope"}, exitFailed},
		{"check without id", []string{"check", "--base-url", url}, exitUsage},
		{"mapping", []string{"mapping", "--base-url", url, "-f", "yaml", "client_b"}, 0},
		{"version", []string{"version", "-f", "json"}, 0},
		{"tui rejected", []string{"clients", "--base-url", url, "--tui"}, exitUsage},
		{"bad format", []string{"health", "--base-url", url, "-f", "xml"}, exitUsage},
		{"bad log level", []string{"health", "--base-url", url, "--log-level", "loud"}, exitUsage},
		{"relative base url", []string{"health", "--base-url", "localhost:5000"}, exitUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newTestApp().Run(append([]string{"sheetdrop"}, tt.args...))
			if got := exitCode(err); got != tt.want {
				t.Errorf("exit code = %d (err %v), want %d", got, err, tt.want)
			}
		})
	}
}

func TestNewSession_ConfigFile(t *testing.T) {
	url := startStub(t)
	cfgPath := writeFile(t, "sheetdrop.yaml", "backend:\n  base_url: "+url+"\n  timeout: 3s\n")
	t.Setenv(config.EnvBaseURL, "")

	err := newTestApp().Run([]string{"sheetdrop", "health", "--config", cfgPath, "-f", "json"})
	if err != nil {
		t.Fatalf("health via config: %v", err)
	}

	err = newTestApp().Run([]string{"sheetdrop", "health", "--config", filepath.Join(t.TempDir(), "missing.yaml")})
	if got := exitCode(err); got != exitUsage {
		t.Errorf("missing config exit code = %d, want %d", got, exitUsage)
	}
}
