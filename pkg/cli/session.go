package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/duet/pkg/correlator"
	"github.com/urfave/cli/v3"
)

func sessionCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "session",
		Usage:     "Print a new session ID",
		ArgsUsage: "[label]",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			label := strings.Join(c.Args().Slice(), " ")
			id, err := correlator.NewSessionID(label)
			if err != nil {
				return err
			}

			fmt.Fprintln(c.Root().Writer, id)
			return nil
		},
	}
}
