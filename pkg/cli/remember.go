package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/m-mizutani/duet/pkg/model"
	"github.com/m-mizutani/duet/pkg/usecase/collab"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// artifactFlags returns the flags selecting a session artifact
func artifactFlags(sessionID, phase *string, version *int64) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "session",
			Aliases:     []string{"s"},
			Usage:       "Session ID",
			Sources:     cli.EnvVars("DUET_SESSION_ID"),
			Destination: sessionID,
		},
		&cli.StringFlag{
			Name:        "phase",
			Usage:       "Artifact phase (plan, review, implementation, validation, pattern)",
			Destination: phase,
		},
		&cli.IntFlag{
			Name:        "version",
			Usage:       "Artifact version for plan and review",
			Destination: version,
		},
	}
}

func rememberCommand() *cli.Command {
	var (
		cfg       config
		sessionID string
		phase     string
		version   int64
		inputPath string
	)

	flags := artifactFlags(&sessionID, &phase, &version)
	flags = append(flags, &cli.StringFlag{
		Name:        "file",
		Aliases:     []string{"f"},
		Usage:       "File with the artifact content, stdin when omitted",
		Destination: &inputPath,
	})
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, storeFlags(&cfg)...)

	return &cli.Command{
		Name:  "remember",
		Usage: "Store an artifact in the memory store and the journal",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := sessionArg("remember", sessionID)
			if err != nil {
				return err
			}
			if phase == "" {
				return usageErrorf("remember: --phase is required")
			}
			ctx = cfg.setupLogger(ctx, c)

			var content []byte
			if inputPath != "" {
				content, err = os.ReadFile(inputPath)
			} else {
				content, err = io.ReadAll(c.Root().Reader)
			}
			if err != nil {
				return goerr.Wrap(err, "failed to read artifact content", goerr.V("path", inputPath))
			}

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

			uc := collab.New(store, repo,
				collab.WithStoreName(cfg.store),
				collab.WithOutput(c.Root().Writer))

			record, err := uc.Record(ctx, &model.Artifact{
				SessionID: id,
				Phase:     model.Phase(phase),
				Version:   int(version),
				Content:   string(content),
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "%s\t%s\t%s\n",
				record.ID,
				record.Phase.Label(record.Version),
				record.MemoryID)
			return nil
		},
	}
}
