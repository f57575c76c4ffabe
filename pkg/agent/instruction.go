package agent

import (
	"bytes"
	"embed"
	"strings"
	"text/template"

	"github.com/m-mizutani/duet/pkg/correlator"
	"github.com/m-mizutani/duet/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

//go:embed prompt/*.md
var promptFS embed.FS

var promptTmpl = template.Must(template.ParseFS(promptFS, "prompt/*.md"))

// Step is a unit of the collaboration an agent is asked to perform
type Step string

const (
	StepPlan      Step = "plan"
	StepReview    Step = "review"
	StepRevise    Step = "revise"
	StepImplement Step = "implement"
	StepValidate  Step = "validate"
	StepPattern   Step = "pattern"
)

var ErrInvalidStep = goerr.New("invalid step")

// Request selects the instruction to render. Version is the plan version
// the step reads (review, revise, implement) or writes (plan, default 1).
type Request struct {
	Step      Step
	SessionID model.SessionID
	Task      string
	Version   int
}

type promptData struct {
	SessionID   model.SessionID
	Task        string
	ReadHeader  string
	ReadQuery   model.Query
	WriteHeader string
	WriteFooter string
}

type transition struct {
	readPhase  model.Phase
	readVer    int
	writePhase model.Phase
	writeVer   int
}

func (req Request) transition() (*transition, error) {
	v := req.Version
	switch req.Step {
	case StepPlan:
		if v == 0 {
			v = 1
		}
		return &transition{writePhase: model.PhasePlan, writeVer: v}, nil
	case StepReview:
		return &transition{readPhase: model.PhasePlan, readVer: v, writePhase: model.PhaseReview, writeVer: v}, nil
	case StepRevise:
		return &transition{readPhase: model.PhaseReview, readVer: v, writePhase: model.PhasePlan, writeVer: v + 1}, nil
	case StepImplement:
		return &transition{readPhase: model.PhasePlan, readVer: v, writePhase: model.PhaseImplementation}, nil
	case StepValidate:
		return &transition{readPhase: model.PhaseImplementation, writePhase: model.PhaseValidation}, nil
	case StepPattern:
		return &transition{writePhase: model.PhasePattern}, nil
	}
	return nil, goerr.Wrap(ErrInvalidStep, "unknown step", goerr.V("step", req.Step))
}

// Instruction renders the natural-language instruction for an agent. It
// names the exact header the agent must write and the query it should use
// to find its input.
func Instruction(req Request) (string, error) {
	if err := req.SessionID.Validate(); err != nil {
		return "", goerr.Wrap(err, "invalid session ID for an instruction")
	}
	if req.Step == StepPlan && strings.TrimSpace(req.Task) == "" {
		return "", goerr.New("task is required for a plan instruction")
	}

	tr, err := req.transition()
	if err != nil {
		return "", err
	}

	data := promptData{
		SessionID: req.SessionID,
		Task:      strings.TrimSpace(req.Task),
	}

	if err := tr.writePhase.ValidateVersion(tr.writeVer); err != nil {
		return "", goerr.Wrap(err, "invalid write version", goerr.V("step", req.Step))
	}
	data.WriteHeader = correlator.Header(req.SessionID, tr.writePhase, tr.writeVer)
	data.WriteFooter = correlator.Footer(req.SessionID, tr.writePhase, tr.writeVer)

	query := correlator.QueryInput{SessionID: req.SessionID}
	if tr.readPhase != "" {
		if err := tr.readPhase.ValidateVersion(tr.readVer); err != nil {
			return "", goerr.Wrap(err, "invalid read version", goerr.V("step", req.Step))
		}
		data.ReadHeader = correlator.Header(req.SessionID, tr.readPhase, tr.readVer)
		query.Phase = tr.readPhase
		query.Version = tr.readVer
	}
	if data.ReadQuery, err = correlator.BuildQuery(query); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := promptTmpl.ExecuteTemplate(&buf, string(req.Step)+".md", data); err != nil {
		return "", goerr.Wrap(err, "failed to execute instruction template", goerr.V("step", req.Step))
	}
	return strings.TrimSpace(buf.String()), nil
}
