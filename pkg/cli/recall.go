package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/duet/pkg/model"
	"github.com/m-mizutani/duet/pkg/usecase/collab"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

var errNotRecalled = goerr.New("no matching artifact")

func recallCommand() *cli.Command {
	var (
		cfg       config
		sessionID string
		phase     string
		version   int64
		keywords  []string
		limit     int64
		wait      time.Duration
		all       bool
	)

	flags := artifactFlags(&sessionID, &phase, &version)
	flags = append(flags,
		&cli.StringSliceFlag{
			Name:        "keyword",
			Aliases:     []string{"k"},
			Usage:       "Extra search term, repeatable",
			Destination: &keywords,
		},
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"l"},
			Usage:       "Number of results requested from the store",
			Value:       collab.DefaultRecallLimit,
			Sources:     cli.EnvVars("DUET_RECALL_LIMIT"),
			Destination: &limit,
		},
		&cli.DurationFlag{
			Name:        "wait",
			Usage:       "How long to keep polling for a match, 0 for a single attempt",
			Value:       collab.DefaultRecallWait,
			Sources:     cli.EnvVars("DUET_RECALL_WAIT"),
			Destination: &wait,
		},
		&cli.BoolFlag{
			Name:        "all",
			Aliases:     []string{"a"},
			Usage:       "Also print results of other sessions or phases",
			Destination: &all,
		},
	)
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, storeFlags(&cfg)...)

	return &cli.Command{
		Name:  "recall",
		Usage: "Retrieve an artifact from the memory store",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := sessionArg("recall", sessionID)
			if err != nil {
				return err
			}
			ctx = cfg.setupLogger(ctx, c)

			store, err := cfg.newMemoryStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			uc := collab.New(store, repo, collab.WithOutput(c.Root().Writer))

			// The spinner only animates on a terminal
			s := spinner.New(spinner.CharSets[14], 100*time.Millisecond,
				spinner.WithWriter(c.Root().ErrWriter),
				spinner.WithSuffix(" waiting for the memory store to index..."))
			s.Start()
			result, err := uc.Recall(ctx, collab.RecallInput{
				SessionID: id,
				Phase:     model.Phase(phase),
				Version:   int(version),
				Keywords:  keywords,
				Limit:     int(limit),
				Wait:      wait,
			})
			s.Stop()
			if err != nil {
				return err
			}

			w := c.Root().Writer
			for i, hit := range result.Hits {
				if !hit.Matched && !all {
					continue
				}
				mark := "match"
				if !hit.Matched {
					mark = "other"
				}
				fmt.Fprintf(w, "--- [%d] %s score=%.3f id=%s\n", i+1, mark, hit.Score, hit.ID)
				fmt.Fprintln(w, strings.TrimRight(hit.Content, "\n"))
			}

			if !result.Found() {
				return goerr.Wrap(errNotRecalled, "nothing matched; wait longer, raise --limit or add --keyword",
					goerr.V("query", result.Query),
					goerr.V("attempts", result.Attempts),
					goerr.V("results", len(result.Hits)))
			}
			return nil
		},
	}
}
