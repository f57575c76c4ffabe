package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/duet/pkg/model"
	"github.com/m-mizutani/duet/pkg/usecase/collab"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func historyCommand() *cli.Command {
	var (
		cfg    config
		offset int64
		limit  int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "offset",
			Usage:       "Offset for pagination",
			Value:       0,
			Sources:     cli.EnvVars("DUET_HISTORY_OFFSET"),
			Destination: &offset,
		},
		&cli.IntFlag{
			Name:        "limit",
			Usage:       "Maximum number of sessions to list",
			Value:       20,
			Sources:     cli.EnvVars("DUET_HISTORY_LIMIT"),
			Destination: &limit,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, storeFlags(&cfg)...)

	return &cli.Command{
		Name:      "history",
		Usage:     "List sessions, or the artifacts of one session",
		ArgsUsage: "[session-id]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			var sessionID model.SessionID
			if c.Args().Len() > 0 {
				id, err := sessionArg("history", c.Args().First())
				if err != nil {
					return err
				}
				sessionID = id
			}
			ctx = cfg.setupLogger(ctx, c)

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			uc := collab.New(nil, repo, collab.WithOutput(c.Root().Writer))
			w := c.Root().Writer

			if sessionID == "" {
				sessions, err := uc.Sessions(ctx, int(offset), int(limit))
				if err != nil {
					return goerr.Wrap(err, "failed to list sessions")
				}
				if len(sessions) == 0 {
					fmt.Fprintln(w, "No sessions recorded")
					return nil
				}
				for _, s := range sessions {
					fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
						s.SessionID,
						s.Records,
						s.FirstSeen.Local().Format("2006-01-02 15:04:05"),
						s.LastActivity.Local().Format("2006-01-02 15:04:05"),
					)
				}
				return nil
			}

			records, err := uc.Records(ctx, sessionID)
			if err != nil {
				return goerr.Wrap(err, "failed to list records", goerr.V("session_id", sessionID))
			}
			if len(records) == 0 {
				fmt.Fprintf(w, "No artifacts recorded for session %s\n", sessionID)
				return nil
			}
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					r.Phase.Label(r.Version),
					r.Store,
					r.MemoryID,
					r.Digest[:min(12, len(r.Digest))],
				)
			}
			return nil
		},
	}
}
