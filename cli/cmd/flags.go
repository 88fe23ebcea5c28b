// Package cmd provides CLI commands for the sheetdrop binary.
package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/sheetdrop/backend"
)

// EnvConfig names the environment variable that points at sheetdrop.yaml.
const EnvConfig = "SHEETDROP_CONFIG"

// Shared output flags.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// TUIFlag enables the Bubble Tea upload screen.
	// Only valid for upload.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (upload only)",
	}
)

// ReadOnlyFlags returns the shared output flags.
// Includes --tui so that unsupported commands can provide explicit error messages
// instead of generic "flag not defined" errors.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	}
}

// ConnectionFlags returns the flags every backend-facing command accepts.
func ConnectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "Path to sheetdrop.yaml",
			EnvVars: []string{EnvConfig},
		},
		&cli.StringFlag{
			Name:  "base-url",
			Usage: "Backend base URL (overrides $SHEETDROP_API_BASE_URL and config)",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Per-request timeout",
			Value: backend.DefaultTimeout,
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
			Value: "warn",
		},
	}
}

// commandFlags joins flag groups into one list.
func commandFlags(groups ...[]cli.Flag) []cli.Flag {
	var flags []cli.Flag
	for _, g := range groups {
		flags = append(flags, g...)
	}
	return flags
}

// rejectTUI returns a usage error when --tui is passed to a command
// without an interactive screen.
func rejectTUI(c *cli.Context) error {
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for "+c.Command.Name+" command", exitUsage)
	}
	return nil
}
