// Package main provides the sheetdrop CLI entrypoint.
//
// Usage:
//
//	sheetdrop <command> [options]
//
// Exit codes for `upload`:
//   - 0: completed
//   - 1: failed (submission rejected, backend unreachable, processing failed)
//   - 2: timed out waiting for processing
//   - 3: completed with warnings
//   - 4: invalid usage or candidate file
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/sheetdrop/cli/cmd"
	"github.com/justapithecus/sheetdrop/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	// A .env in the working directory may provide SHEETDROP_API_BASE_URL.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: cannot load .env: %v\n", err)
	}

	app := &cli.App{
		Name:           "sheetdrop",
		Usage:          "Upload CSV files to client sheets and follow their processing",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.UploadCommand(),
			cmd.ClientsCommand(),
			cmd.HealthCommand(),
			cmd.CheckCommand(),
			cmd.MappingCommand(),
			cmd.StubCommand(),
			cmd.VersionCommand(commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		os.Exit(1)
	}
}

// exitErrHandler handles errors from the CLI, preserving exit codes from cli.Exit().
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		if msg := exitMessage(exitCoder); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// exitMessage returns the text worth printing for an exit error.
// cli.Exit("", N).Error() yields "exit status N", which is suppressed.
func exitMessage(ec cli.ExitCoder) string {
	msg := ec.Error()
	if msg == fmt.Sprintf("exit status %d", ec.ExitCode()) {
		return ""
	}
	return msg
}
