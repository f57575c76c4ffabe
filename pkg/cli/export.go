package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/duet/pkg/usecase/collab"
	"github.com/urfave/cli/v3"
)

func exportCommand() *cli.Command {
	var (
		cfg    config
		bucket string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "bucket",
			Aliases:     []string{"b"},
			Usage:       "Cloud Storage bucket to upload the transcript to",
			Sources:     cli.EnvVars("DUET_EXPORT_BUCKET"),
			Destination: &bucket,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, storeFlags(&cfg)...)

	return &cli.Command{
		Name:      "export",
		Usage:     "Upload a session transcript to Cloud Storage",
		ArgsUsage: "<session-id>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			sessionID, err := sessionArg("export", c.Args().First())
			if err != nil {
				return err
			}
			if bucket == "" {
				return usageErrorf("export: --bucket is required")
			}
			ctx = cfg.setupLogger(ctx, c)

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			storage, err := cfg.newStorage(ctx, bucket)
			if err != nil {
				return err
			}

			uc := collab.New(nil, repo, collab.WithOutput(c.Root().Writer))
			url, err := uc.Export(ctx, sessionID, storage)
			if err != nil {
				return err
			}

			fmt.Fprintln(c.Root().Writer, url)
			return nil
		},
	}
}
