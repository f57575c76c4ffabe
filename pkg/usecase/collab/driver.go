package collab

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/m-mizutani/duet/pkg/agent"
	"github.com/m-mizutani/duet/pkg/correlator"
	"github.com/m-mizutani/duet/pkg/model"
	"github.com/m-mizutani/duet/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const DefaultIterations = 3

var ErrAborted = goerr.New("collaboration aborted")

// Driver walks a human through a planner/reviewer collaboration. It prints
// the command for every step and waits for confirmation between steps; the
// agents themselves are run by the human.
type Driver struct {
	profiles *agent.Profiles
	gen      *correlator.Generator
	input    *bufio.Scanner
	output   io.Writer

	title  lipgloss.Style
	phase  lipgloss.Style
	note   lipgloss.Style
	prompt lipgloss.Style
}

// DriverOption is a functional option for Driver
type DriverOption func(*Driver)

// WithIO sets where confirmations are read from and commands written to
func WithIO(r io.Reader, w io.Writer) DriverOption {
	return func(d *Driver) {
		d.input = bufio.NewScanner(r)
		d.output = w
	}
}

// WithGenerator sets the session ID generator
func WithGenerator(gen *correlator.Generator) DriverOption {
	return func(d *Driver) {
		d.gen = gen
	}
}

// NewDriver creates a Driver reading stdin and writing stdout
func NewDriver(profiles *agent.Profiles, opts ...DriverOption) *Driver {
	d := &Driver{
		profiles: profiles,
		gen:      correlator.NewGenerator(),
		input:    bufio.NewScanner(os.Stdin),
		output:   os.Stdout,
	}
	for _, opt := range opts {
		opt(d)
	}

	// Styles follow the output: no escape codes when it is not a terminal
	r := lipgloss.NewRenderer(d.output)
	d.title = r.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).
		Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 2)
	d.phase = r.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	d.note = r.NewStyle().Faint(true)
	d.prompt = r.NewStyle().Foreground(lipgloss.Color("214"))
	return d
}

// Collaboration is the outcome of a completed run
type Collaboration struct {
	SessionID  model.SessionID
	Iterations int
	// FinalVersion is the plan version that was implemented
	FinalVersion int
	Prompts      int
}

// Run drives the collaboration for a task. Each review iteration prints a
// review and a revision command and asks for one confirmation; the
// implementation step asks for one more. Validation is printed once.
func (d *Driver) Run(ctx context.Context, task string, iterations int) (*Collaboration, error) {
	if iterations < 1 {
		return nil, goerr.New("iterations must be at least 1", goerr.V("iterations", iterations))
	}

	sessionID, err := d.gen.New(task)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithSession(ctx, sessionID)
	logging.From(ctx).Debug("collaboration started", "task", task, "iterations", iterations)

	c := &Collaboration{SessionID: sessionID, Iterations: iterations}
	planner := d.profiles.Planner
	reviewer := d.profiles.Reviewer

	d.println(d.title.Render(fmt.Sprintf("duet: %s\nsession %s", task, sessionID)))
	d.println("")

	d.println(d.phase.Render("Phase 1: Planning"))
	if err := d.step(planner, agent.Request{Step: agent.StepPlan, SessionID: sessionID, Task: task}, false); err != nil {
		return nil, err
	}

	for i := 1; i <= iterations; i++ {
		d.println(d.phase.Render(fmt.Sprintf("Review cycle %d/%d", i, iterations)))

		d.println(fmt.Sprintf("Reviewer reads plan v%d and writes review v%d:", i, i))
		if err := d.step(reviewer, agent.Request{Step: agent.StepReview, SessionID: sessionID, Version: i}, i > 1); err != nil {
			return nil, err
		}

		d.println(fmt.Sprintf("Planner reads review v%d and writes plan v%d:", i, i+1))
		if err := d.step(planner, agent.Request{Step: agent.StepRevise, SessionID: sessionID, Version: i}, true); err != nil {
			return nil, err
		}

		if err := d.confirm(ctx, fmt.Sprintf("Press Enter once plan v%d is stored", i+1)); err != nil {
			return nil, err
		}
		c.Prompts++
	}
	c.FinalVersion = iterations + 1

	d.println(d.phase.Render("Phase 2: Implementation"))
	if err := d.step(planner, agent.Request{Step: agent.StepImplement, SessionID: sessionID, Version: c.FinalVersion}, true); err != nil {
		return nil, err
	}
	if err := d.confirm(ctx, "Press Enter once the implementation summary is stored"); err != nil {
		return nil, err
	}
	c.Prompts++

	d.println(d.phase.Render("Phase 3: Validation"))
	if err := d.step(reviewer, agent.Request{Step: agent.StepValidate, SessionID: sessionID}, true); err != nil {
		return nil, err
	}

	d.println(d.phase.Render("Phase 4: Pattern extraction"))
	d.println("After validation passes, record what this session taught:")
	if err := d.step(planner, agent.Request{Step: agent.StepPattern, SessionID: sessionID}, true); err != nil {
		return nil, err
	}

	d.println(d.title.Render(fmt.Sprintf("Collaboration complete\nsession %s, plan v%d implemented", sessionID, c.FinalVersion)))
	logging.From(ctx).Debug("collaboration completed", "prompts", c.Prompts)
	return c, nil
}

func (d *Driver) step(p agent.Profile, req agent.Request, resume bool) error {
	instruction, err := agent.Instruction(req)
	if err != nil {
		return err
	}
	d.println("")
	d.println("  " + agent.CommandLine(p, instruction, resume))
	d.println("")
	if req.Step != agent.StepPlan && req.Step != agent.StepPattern {
		d.println(d.note.Render("  The memory store indexes asynchronously; if the agent finds nothing, wait a few seconds and rerun."))
		d.println("")
	}
	return nil
}

func (d *Driver) confirm(ctx context.Context, message string) error {
	fmt.Fprint(d.output, d.prompt.Render(message+" (Ctrl-D to abort)")+" ")
	if !d.input.Scan() {
		fmt.Fprintln(d.output)
		if err := d.input.Err(); err != nil {
			return goerr.Wrap(err, "failed to read confirmation")
		}
		return goerr.Wrap(ErrAborted, "input closed before confirmation")
	}
	if err := ctx.Err(); err != nil {
		return goerr.Wrap(err, "collaboration interrupted")
	}
	d.println("")
	return nil
}

func (d *Driver) println(s string) {
	fmt.Fprintln(d.output, s)
}
