package model

import (
	"fmt"

	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrInvalidPhase      = goerr.New("invalid phase")
	ErrVersionRequired   = goerr.New("version is required for this phase")
	ErrUnexpectedVersion = goerr.New("phase does not take a version")
)

type Phase string

const (
	PhasePlan           Phase = "plan"
	PhaseReview         Phase = "review"
	PhaseImplementation Phase = "implementation"
	PhaseValidation     Phase = "validation"
	PhasePattern        Phase = "pattern"
)

// Phases returns all phases in workflow order
func Phases() []Phase {
	return []Phase{PhasePlan, PhaseReview, PhaseImplementation, PhaseValidation, PhasePattern}
}

// Validate checks if the phase is known
func (p Phase) Validate() error {
	switch p {
	case PhasePlan, PhaseReview, PhaseImplementation, PhaseValidation, PhasePattern:
		return nil
	default:
		return goerr.Wrap(ErrInvalidPhase, "unknown phase", goerr.V("phase", p))
	}
}

// Versioned reports whether artifacts of the phase carry a version number
func (p Phase) Versioned() bool {
	return p == PhasePlan || p == PhaseReview
}

// Label returns the human readable label of an artifact in this phase.
// version is ignored for unversioned phases.
func (p Phase) Label(version int) string {
	switch p {
	case PhasePlan:
		return fmt.Sprintf("PLAN v%d", version)
	case PhaseReview:
		return fmt.Sprintf("REVIEW v%d", version)
	case PhaseImplementation:
		return "IMPLEMENTATION SUMMARY"
	case PhaseValidation:
		return "VALIDATION RESULT"
	case PhasePattern:
		return "EXTRACTED PATTERN"
	default:
		return string(p)
	}
}

// ValidateVersion checks the version against the phase. Versioned phases
// need a version >= 1, the others must leave it zero.
func (p Phase) ValidateVersion(version int) error {
	if p.Versioned() {
		if version < 1 {
			return goerr.Wrap(ErrVersionRequired, "invalid version", goerr.V("phase", p), goerr.V("version", version))
		}
		return nil
	}
	if version != 0 {
		return goerr.Wrap(ErrUnexpectedVersion, "invalid version", goerr.V("phase", p), goerr.V("version", version))
	}
	return nil
}

// Artifact is one block of text exchanged between the agents. Artifacts are
// written once and never updated; a revised plan is a new artifact with a
// higher version.
type Artifact struct {
	SessionID SessionID
	Phase     Phase
	Version   int
	Content   string
}

// Validate checks if the artifact can be formatted
func (a *Artifact) Validate() error {
	if err := a.SessionID.Validate(); err != nil {
		return err
	}
	if err := a.Phase.Validate(); err != nil {
		return err
	}
	if err := a.Phase.ValidateVersion(a.Version); err != nil {
		return err
	}
	return nil
}

// Label returns the label of the artifact, e.g. "PLAN v2"
func (a *Artifact) Label() string {
	return a.Phase.Label(a.Version)
}

// Query is a free-text search string for the memory store
type Query string

func (x Query) String() string { return string(x) }
