package correlator

import (
	"strings"

	"github.com/m-mizutani/duet/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// QueryInput describes what to retrieve. Phase, Version and Keywords are
// optional.
type QueryInput struct {
	SessionID model.SessionID
	Phase     model.Phase
	Version   int
	Keywords  []string
}

// BuildQuery builds a search string for the memory store. The store ranks by
// similarity, not exact match, so the query repeats every identifying term:
// the header as the agents write it, the bare session ID, the phase name and
// the keywords.
func BuildQuery(in QueryInput) (model.Query, error) {
	if err := in.SessionID.Validate(); err != nil {
		return "", goerr.Wrap(err, "invalid session ID for a query")
	}

	terms := []string{"[SESSION " + string(in.SessionID) + "]"}
	if in.Phase != "" {
		if err := in.Phase.Validate(); err != nil {
			return "", err
		}
		if !in.Phase.Versioned() || in.Version > 0 {
			terms = append(terms, in.Phase.Label(in.Version))
		}
	}

	terms = append(terms, "session", string(in.SessionID))
	if in.Phase != "" {
		terms = append(terms, string(in.Phase))
	}

	for _, kw := range in.Keywords {
		kw = strings.Join(strings.Fields(kw), " ")
		if kw == "" {
			continue
		}
		terms = append(terms, kw)
	}

	return model.Query(strings.Join(terms, " ")), nil
}
