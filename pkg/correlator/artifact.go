package correlator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/m-mizutani/duet/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrEmptyContent = goerr.New("artifact content is empty")
	ErrNoHeader     = goerr.New("artifact header not found")
	ErrNoFooter     = goerr.New("artifact footer not found")
)

var headerPattern = regexp.MustCompile(`=== \[SESSION ([^\]\s]+)\] (PLAN v([0-9]+)|REVIEW v([0-9]+)|IMPLEMENTATION SUMMARY|VALIDATION RESULT|EXTRACTED PATTERN) ===`)

// Header returns the first line of a formatted artifact
func Header(id model.SessionID, phase model.Phase, version int) string {
	return fmt.Sprintf("=== [SESSION %s] %s ===", id, phase.Label(version))
}

// Footer returns the last line of a formatted artifact
func Footer(id model.SessionID, phase model.Phase, version int) string {
	return fmt.Sprintf("=== [END SESSION %s] %s ===", id, phase.Label(version))
}

// Format renders the artifact as a self-contained text block. The session ID
// is written in the header, the metadata lines and the footer because the
// store keeps no metadata besides the text itself.
func Format(a *model.Artifact) (string, error) {
	if err := a.Validate(); err != nil {
		return "", goerr.Wrap(err, "invalid artifact")
	}
	content := strings.TrimSpace(a.Content)
	if content == "" {
		return "", goerr.Wrap(ErrEmptyContent, "invalid artifact", goerr.V("session_id", a.SessionID), goerr.V("phase", a.Phase))
	}

	var b strings.Builder
	b.WriteString(Header(a.SessionID, a.Phase, a.Version))
	b.WriteString("\n")
	fmt.Fprintf(&b, "session: %s\n", a.SessionID)
	fmt.Fprintf(&b, "phase: %s\n", a.Phase)
	if a.Phase.Versioned() {
		fmt.Fprintf(&b, "version: %d\n", a.Version)
	}
	b.WriteString("\n")
	b.WriteString(content)
	b.WriteString("\n\n")
	b.WriteString(Footer(a.SessionID, a.Phase, a.Version))
	b.WriteString("\n")

	return b.String(), nil
}

// Parse recovers an artifact from text containing a formatted block. The
// block may be surrounded by other text, as store results often are.
func Parse(text string) (*model.Artifact, error) {
	loc := headerPattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil, ErrNoHeader
	}

	a, err := headerArtifact(text, loc)
	if err != nil {
		return nil, err
	}

	body := text[loc[1]:]
	footer := Footer(a.SessionID, a.Phase, a.Version)
	end := strings.Index(body, footer)
	if end < 0 {
		return nil, goerr.Wrap(ErrNoFooter, "incomplete artifact", goerr.V("session_id", a.SessionID), goerr.V("label", a.Label()))
	}

	a.Content = stripMetadata(body[:end])
	return a, nil
}

// Matches reports whether text carries the header of the given session and
// phase. A zero version matches any version. Every header in the text is
// checked, not only the first.
func Matches(text string, id model.SessionID, phase model.Phase, version int) bool {
	for _, loc := range headerPattern.FindAllStringSubmatchIndex(text, -1) {
		a, err := headerArtifact(text, loc)
		if err != nil {
			continue
		}
		if a.SessionID != id {
			continue
		}
		if phase != "" && a.Phase != phase {
			continue
		}
		if version != 0 && a.Version != version {
			continue
		}
		return true
	}
	return false
}

func headerArtifact(text string, loc []int) (*model.Artifact, error) {
	group := func(i int) string {
		if loc[2*i] < 0 {
			return ""
		}
		return text[loc[2*i]:loc[2*i+1]]
	}

	a := &model.Artifact{
		SessionID: model.SessionID(group(1)),
	}

	label := group(2)
	switch {
	case strings.HasPrefix(label, "PLAN"):
		a.Phase = model.PhasePlan
		v, err := strconv.Atoi(group(3))
		if err != nil {
			return nil, goerr.Wrap(err, "invalid plan version", goerr.V("label", label))
		}
		a.Version = v
	case strings.HasPrefix(label, "REVIEW"):
		a.Phase = model.PhaseReview
		v, err := strconv.Atoi(group(4))
		if err != nil {
			return nil, goerr.Wrap(err, "invalid review version", goerr.V("label", label))
		}
		a.Version = v
	case label == model.PhaseImplementation.Label(0):
		a.Phase = model.PhaseImplementation
	case label == model.PhaseValidation.Label(0):
		a.Phase = model.PhaseValidation
	case label == model.PhasePattern.Label(0):
		a.Phase = model.PhasePattern
	default:
		return nil, goerr.Wrap(ErrNoHeader, "unknown label", goerr.V("label", label))
	}

	return a, nil
}

func stripMetadata(body string) string {
	lines := strings.Split(strings.TrimLeft(body, "\r\n"), "\n")
	i := 0
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "session:") || strings.HasPrefix(line, "phase:") || strings.HasPrefix(line, "version:") {
			continue
		}
		break
	}
	return strings.TrimSpace(strings.Join(lines[i:], "\n"))
}
