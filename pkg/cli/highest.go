package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/platinummonkey/docsapi/pkg/client"
)

func highestCmd() *cli.Command {
	return &cli.Command{
		Name:      "highest",
		Usage:     "Show a project's highest version, optionally compared to a base version",
		ArgsUsage: "<project> [base]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() < 1 || cmd.Args().Len() > 2 {
				return fmt.Errorf("usage: %s highest <project> [base]", name)
			}
			project, base := cmd.Args().Get(0), cmd.Args().Get(1)

			cmp, err := newClient(cmd).Highest(ctx, project, base)
			if err != nil {
				return err
			}
			return render(cmd, cmp, func(w io.Writer) { writeComparison(w, project, base, cmp) })
		},
	}
}

func writeComparison(w io.Writer, project, base string, cmp *client.Comparison) {
	if cmp.Version == nil {
		fmt.Fprintf(w, "%s has no parseable active versions\n", project)
		return
	}
	fmt.Fprintf(w, "highest: %s\n", *cmp.Version)
	if cmp.URL != "" {
		fmt.Fprintf(w, "url:     %s\n", cmp.URL)
	}
	if base != "" {
		fmt.Fprintf(w, "%s is highest: %t\n", base, cmp.IsHighest)
	}
}
