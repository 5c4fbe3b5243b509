package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"
)

func buildCmd() *cli.Command {
	return &cli.Command{
		Name:      "build",
		Usage:     "Queue a documentation build for a project version",
		ArgsUsage: "<project> <version>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return fmt.Errorf("usage: %s build <project> <version>", name)
			}
			project, version := cmd.Args().Get(0), cmd.Args().Get(1)

			handle, err := newClient(cmd).TriggerBuild(ctx, project, version)
			if err != nil {
				return err
			}
			return render(cmd, handle, func(w io.Writer) {
				fmt.Fprintf(w, "build of %s/%s queued\n", project, version)
			})
		},
	}
}
