// Package slotctl provides the command-line interface for the reservation API.
package slotctl

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/okian/ghostslot/internal/client"
)

var (
	// Version is the current version of the application.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// BuildDate is the date and time of the build.
	BuildDate = "unknown"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// DefaultURL is where slotctl looks for the API unless told otherwise.
const DefaultURL = "http://localhost:9080"

// app carries what the Before hook resolves for every action.
type app struct {
	out    io.Writer
	client *client.Client
	format string
}

// Run executes the CLI application with the given context and arguments.
func Run(ctx context.Context, args []string) error {
	return New(os.Stdout).Run(ctx, args)
}

// New builds the command tree writing to out.
func New(out io.Writer) *cli.Command {
	a := &app{out: out}
	return &cli.Command{
		Name:    "slotctl",
		Usage:   "Reserve, release and submit ghost slots",
		Version: Version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Value:   DefaultURL,
				Usage:   "Base URL of the reservation API",
				Sources: cli.EnvVars("SLOTCTL_URL"),
			},
			&cli.StringFlag{
				Name:    "requester",
				Aliases: []string{"r"},
				Usage:   "Requester id sent in the X-Requester-ID header",
				Sources: cli.EnvVars("SLOTCTL_REQUESTER"),
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Bearer token, takes precedence over --requester",
				Sources: cli.EnvVars("SLOTCTL_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   FormatTable,
				Usage:   "Output format: table, json or yaml",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colored output",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			configureColors(cmd)
			return ctx, a.configure(cmd)
		},
		Commands: []*cli.Command{
			a.queryCommand(),
			a.reserveCommand(),
			a.releaseCommand(),
			a.submitCommand(),
			a.cohortsCommand(),
			a.createCohortCommand(),
			a.contendCommand(),
			a.versionCommand(),
		},
	}
}

func (a *app) configure(cmd *cli.Command) error {
	a.format = strings.ToLower(cmd.String("output"))
	switch a.format {
	case FormatTable, FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("unknown output format %q", cmd.String("output"))
	}

	var opts []client.Option
	if token := cmd.String("token"); token != "" {
		opts = append(opts, client.WithToken(token))
	} else if requester := cmd.String("requester"); requester != "" {
		opts = append(opts, client.WithRequester(requester))
	}
	a.client = client.New(cmd.String("url"), opts...)
	return nil
}
