package cli

import (
	"context"
	"strconv"

	"github.com/m-mizutani/duet/pkg/usecase/collab"
	"github.com/urfave/cli/v3"
)

func collaborateCommand() *cli.Command {
	var cfg config

	flags := append(globalFlags(&cfg), agentFlags(&cfg)...)

	return &cli.Command{
		Name:      "collaborate",
		Usage:     "Walk through a planner/reviewer collaboration step by step",
		ArgsUsage: "<task-name> [iterations]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() == 0 {
				return usageErrorf("collaborate: task name is required")
			}
			if c.Args().Len() > 2 {
				return usageErrorf("collaborate: too many arguments")
			}
			task := c.Args().Get(0)

			iterations := collab.DefaultIterations
			if c.Args().Len() == 2 {
				n, err := strconv.Atoi(c.Args().Get(1))
				if err != nil || n < 1 {
					return usageErrorf("collaborate: iterations must be a positive integer, got %q", c.Args().Get(1))
				}
				iterations = n
			}

			ctx = cfg.setupLogger(ctx, c)
			profiles, err := cfg.newProfiles()
			if err != nil {
				return err
			}

			driver := collab.NewDriver(profiles, collab.WithIO(c.Root().Reader, c.Root().Writer))
			_, err = driver.Run(ctx, task, iterations)
			return err
		},
	}
}
