package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/sheetdrop/cli/render"
	"github.com/justapithecus/sheetdrop/iox"
)

// ClientsCommand returns the clients command.
func ClientsCommand() *cli.Command {
	return &cli.Command{
		Name:   "clients",
		Usage:  "List the clients the backend can upload to",
		Flags:  commandFlags(ReadOnlyFlags(), ConnectionFlags()),
		Action: clientsAction,
	}
}

func clientsAction(c *cli.Context) error {
	if err := rejectTUI(c); err != nil {
		return err
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

	clients, err := s.client.ListClients(c.Context)
	if err != nil {
		s.logger.Error("list clients failed", map[string]any{"error": err.Error()})
		return cli.Exit(fmt.Sprintf("%s (%v)", msgLoadClients, err), exitFailed)
	}
	return r.Render(clients)
}

// HealthCommand returns the health command.
func HealthCommand() *cli.Command {
	return &cli.Command{
		Name:   "health",
		Usage:  "Check that the backend is running",
		Flags:  commandFlags(ReadOnlyFlags(), ConnectionFlags()),
		Action: healthAction,
	}
}

func healthAction(c *cli.Context) error {
	if err := rejectTUI(c); err != nil {
		return err
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

	resp, err := s.client.Health(c.Context)
	if err != nil {
		return cli.Exit(fmt.Sprintf("backend at %s is not healthy: %v", s.meta.BaseURL, err), exitFailed)
	}
	return r.Render(resp)
}

// CheckCommand returns the check command, which asks the backend to verify
// it can reach a client's sheet.
func CheckCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Test the backend's connection to a client sheet",
		ArgsUsage: "<client-id>",
		Flags:     commandFlags(ReadOnlyFlags(), ConnectionFlags()),
		Action:    checkAction,
	}
}

func checkAction(c *cli.Context) error {
	if err := rejectTUI(c); err != nil {
		return err
	}
	clientID := c.Args().First()
	if clientID == "" {
		return cli.Exit("check requires a client id", exitUsage)
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

	resp, err := s.client.TestClientConnection(c.Context, clientID)
	if err != nil {
		return cli.Exit(err.Error(), exitFailed)
	}
	return r.Render(resp)
}

// MappingCommand returns the mapping command.
func MappingCommand() *cli.Command {
	return &cli.Command{
		Name:      "mapping",
		Usage:     "Show how CSV columns map onto a client sheet",
		ArgsUsage: "<client-id>",
		Flags:     commandFlags(ReadOnlyFlags(), ConnectionFlags()),
		Action:    mappingAction,
	}
}

func mappingAction(c *cli.Context) error {
	if err := rejectTUI(c); err != nil {
		return err
	}
	clientID := c.Args().First()
	if clientID == "" {
		return cli.Exit("mapping requires a client id", exitUsage)
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

	mapping, err := s.client.ColumnMapping(c.Context, clientID)
	if err != nil {
		return cli.Exit(err.Error(), exitFailed)
	}
	return r.Render(mapping)
}
