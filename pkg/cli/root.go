package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/platinummonkey/docsapi/pkg/client"
)

const name = "docsctl"

// overridden during build with ldflags
var version = "dev"

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Value:   "http://localhost:8000",
			Usage:   "docs API base URL",
			Sources: cli.EnvVars("DOCSCTL_SERVER"),
		},
		&cli.StringFlag{
			Name:    "user",
			Aliases: []string{"u"},
			Usage:   "username for authenticated requests",
			Sources: cli.EnvVars("DOCSCTL_USER"),
		},
		&cli.StringFlag{
			Name:    "password",
			Usage:   "password for authenticated requests",
			Sources: cli.EnvVars("DOCSCTL_PASSWORD"),
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Value:   "text",
			Usage:   "output format (text, json)",
		},
	}
}

// NewRootCommand builds the docsctl command tree
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:    name,
		Usage:   "query and trigger documentation builds",
		Version: version,
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			highestCmd(),
			buildCmd(),
		},
	}
}

// Execute runs docsctl with os.Args, cancelling on SIGINT/SIGTERM
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newClient(cmd *cli.Command) *client.Client {
	var opts []client.Option
	if user := cmd.String("user"); user != "" {
		opts = append(opts, client.WithCredentials(user, cmd.String("password")))
	}
	return client.New(cmd.String("server"), opts...)
}

// render writes v as JSON, or calls text for the text format
func render(cmd *cli.Command, v interface{}, text func(io.Writer)) error {
	w := cmd.Root().Writer
	if w == nil {
		w = os.Stdout
	}
	switch cmd.String("output") {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "text":
		text(w)
		return nil
	default:
		return fmt.Errorf("unknown output format: %q", cmd.String("output"))
	}
}
