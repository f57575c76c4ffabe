package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/m-mizutani/duet/pkg/model"
	"github.com/m-mizutani/duet/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const (
	exitFailure = 1
	exitUsage   = 2
)

type Error struct {
	Code    int
	Message string
}

const usageText = `duet - planner/reviewer collaboration through a shared memory store

Usage:
  duet session [label]                     Print a new session ID
  duet codex-review [--version N] [--run] <session-id>
                                           Print (or run) the reviewer command for plan vN
  duet codex-validate [--run] <session-id> Print (or run) the validation command
  duet collaborate <task-name> [iterations]
                                           Walk through plan, review cycles, implementation and validation
  duet remember --session ID --phase P [--version N] [--file F]
                                           Store an artifact (content from file or stdin)
  duet recall --session ID [--phase P] [--version N] [--wait D]
                                           Retrieve an artifact, polling while the store indexes
  duet history [session-id]                List sessions or the artifacts of one session
  duet export --bucket B <session-id>      Upload a session transcript to Cloud Storage
  duet serve                               Run the session tools as an MCP server on stdio
  duet help                                Show this help
`

// usageError is a command line misuse. It exits with status 2 and prints
// the usage text.
type usageError struct {
	message string
}

func (e *usageError) Error() string {
	return e.message
}

func usageErrorf(format string, args ...any) error {
	return &usageError{message: fmt.Sprintf(format, args...)}
}

// sessionArg converts a command line value into a session ID. IDs that
// cannot appear verbatim in artifact headers are usage errors.
func sessionArg(command, value string) (model.SessionID, error) {
	if value == "" {
		return "", usageErrorf("%s: session ID is required", command)
	}
	id := model.SessionID(value)
	if err := id.Validate(); err != nil {
		return "", usageErrorf("%s: session ID %q must not contain whitespace, brackets, single quotes or '/'", command, value)
	}
	return id, nil
}

func onUsageError(ctx context.Context, c *cli.Command, err error, isSubcommand bool) error {
	return &usageError{message: err.Error()}
}

// Option is a functional option for Run
type Option func(*cli.Command)

// WithIO replaces stdin, stdout and stderr
func WithIO(r io.Reader, stdout, stderr io.Writer) Option {
	return func(cmd *cli.Command) {
		cmd.Reader = r
		cmd.Writer = stdout
		cmd.ErrWriter = stderr
	}
}

func Run(ctx context.Context, argv []string, opts ...Option) *Error {
	commands := []*cli.Command{
		sessionCommand(),
		reviewCommand(),
		validateCommand(),
		collaborateCommand(),
		rememberCommand(),
		recallCommand(),
		historyCommand(),
		exportCommand(),
		serveCommand(),
		helpCommand(),
	}
	for _, c := range commands {
		c.OnUsageError = onUsageError
	}

	cmd := &cli.Command{
		Name:            "duet",
		Usage:           "Planner/reviewer agent collaboration through a shared memory store",
		UsageText:       usageText,
		HideHelpCommand: true,
		Commands:        commands,
		Reader:          os.Stdin,
		Writer:          os.Stdout,
		ErrWriter:       os.Stderr,
		OnUsageError:    onUsageError,
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() == 0 {
				return usageErrorf("command is required")
			}
			return usageErrorf("unknown command: %s", c.Args().First())
		},
	}
	for _, opt := range opts {
		opt(cmd)
	}

	if err := cmd.Run(ctx, argv); err != nil {
		var ue *usageError
		if errors.As(err, &ue) {
			fmt.Fprintf(cmd.ErrWriter, "Error: %s\n\n", ue.message)
			fmt.Fprint(cmd.Writer, usageText)
			return &Error{
				Code:    exitUsage,
				Message: ue.message,
			}
		}

		logging.From(ctx).Debug("command failed", "error", err)
		return &Error{
			Code:    exitFailure,
			Message: err.Error(),
		}
	}

	return nil
}

func helpCommand() *cli.Command {
	return &cli.Command{
		Name:  "help",
		Usage: "Show usage",
		Action: func(ctx context.Context, c *cli.Command) error {
			fmt.Fprint(c.Root().Writer, usageText)
			return nil
		},
	}
}
