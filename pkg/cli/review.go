package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/duet/pkg/agent"
	"github.com/m-mizutani/duet/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func reviewCommand() *cli.Command {
	var (
		cfg     config
		version int64
		run     bool
		resume  bool
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "version",
			Usage:       "Plan version to review",
			Value:       1,
			Sources:     cli.EnvVars("DUET_PLAN_VERSION"),
			Destination: &version,
		},
		&cli.BoolFlag{
			Name:        "run",
			Usage:       "Run the reviewer instead of printing the command",
			Destination: &run,
		},
		&cli.BoolFlag{
			Name:        "resume",
			Usage:       "Continue the reviewer's most recent conversation",
			Destination: &resume,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, agentFlags(&cfg)...)

	return &cli.Command{
		Name:      "codex-review",
		Usage:     "Print the reviewer command for a plan version",
		ArgsUsage: "<session-id>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			return reviewerStep(ctx, c, &cfg, agent.Request{
				Step:    agent.StepReview,
				Version: int(version),
			}, run, resume)
		},
	}
}

func validateCommand() *cli.Command {
	var (
		cfg    config
		run    bool
		resume bool
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "run",
			Usage:       "Run the reviewer instead of printing the command",
			Destination: &run,
		},
		&cli.BoolFlag{
			Name:        "resume",
			Usage:       "Continue the reviewer's most recent conversation",
			Destination: &resume,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, agentFlags(&cfg)...)

	return &cli.Command{
		Name:      "codex-validate",
		Usage:     "Print the reviewer command validating the implementation",
		ArgsUsage: "<session-id>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			return reviewerStep(ctx, c, &cfg, agent.Request{
				Step: agent.StepValidate,
			}, run, resume)
		},
	}
}

// reviewerStep prints, or runs, the reviewer for a step of the session
// given as the first argument. The session ID is used verbatim.
func reviewerStep(ctx context.Context, c *cli.Command, cfg *config, req agent.Request, run, resume bool) error {
	sessionID, err := sessionArg(c.Name, c.Args().First())
	if err != nil {
		return err
	}
	ctx = cfg.setupLogger(ctx, c)

	req.SessionID = sessionID
	ctx = logging.WithSession(ctx, req.SessionID)
	if !req.SessionID.Valid() {
		logging.From(ctx).Warn("session ID is not in generated format", "session_id", req.SessionID)
	}

	profiles, err := cfg.newProfiles()
	if err != nil {
		return err
	}

	instruction, err := agent.Instruction(req)
	if err != nil {
		return err
	}

	if !run {
		fmt.Fprintln(c.Root().Writer, agent.CommandLine(profiles.Reviewer, instruction, resume))
		return nil
	}

	runner := agent.NewRunner(agent.WithOutput(c.Root().Writer, c.Root().ErrWriter))
	return runner.Run(ctx, profiles.Reviewer, instruction, resume)
}
