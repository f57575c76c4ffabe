package collab

import (
	"context"
	"time"

	"github.com/m-mizutani/duet/pkg/correlator"
	"github.com/m-mizutani/duet/pkg/model"
	"github.com/m-mizutani/duet/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// RecallInput selects the artifact to retrieve. Phase and Version may be
// left empty to match any artifact of the session.
type RecallInput struct {
	SessionID model.SessionID
	Phase     model.Phase
	Version   int
	Keywords  []string
	// Limit is the number of results requested per attempt
	Limit int
	// Wait bounds the time spent polling for a matching result. Zero means
	// a single attempt.
	Wait time.Duration
}

// Hit is a memory store result with whether its header names the
// requested session, phase and version.
type Hit struct {
	*model.Memory
	Matched bool
}

// RecallResult holds the hits of the last attempt
type RecallResult struct {
	Query    model.Query
	Hits     []*Hit
	Attempts int
}

// Found tells whether any hit matched
func (r *RecallResult) Found() bool {
	for _, h := range r.Hits {
		if h.Matched {
			return true
		}
	}
	return false
}

// Matched returns the matching hits in store order
func (r *RecallResult) Matched() []*Hit {
	var hits []*Hit
	for _, h := range r.Hits {
		if h.Matched {
			hits = append(hits, h)
		}
	}
	return hits
}

// Recall queries the memory store until a result matches or the wait
// budget is spent. Indexing is asynchronous, so a just-written artifact can
// be missing from the first attempts. Delays grow exponentially up to a cap
// and never exceed the remaining budget. Store errors end the loop.
func (u *UseCase) Recall(ctx context.Context, in RecallInput) (*RecallResult, error) {
	ctx = logging.WithSession(ctx, in.SessionID)
	logger := logging.From(ctx)

	if in.Phase != "" {
		if err := in.Phase.Validate(); err != nil {
			return nil, err
		}
	}
	if in.Wait < 0 {
		return nil, goerr.New("wait must not be negative", goerr.V("wait", in.Wait))
	}
	limit := in.Limit
	if limit <= 0 {
		limit = DefaultRecallLimit
	}

	query, err := correlator.BuildQuery(correlator.QueryInput{
		SessionID: in.SessionID,
		Phase:     in.Phase,
		Version:   in.Version,
		Keywords:  in.Keywords,
	})
	if err != nil {
		return nil, err
	}

	result := &RecallResult{Query: query}
	deadline := u.now().Add(in.Wait)
	delay := u.backoffBase

	for {
		result.Attempts++
		memories, err := u.store.Query(ctx, query, limit)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to query memory store",
				goerr.V("query", query),
				goerr.V("attempt", result.Attempts))
		}

		result.Hits = make([]*Hit, len(memories))
		for i, m := range memories {
			result.Hits[i] = &Hit{
				Memory:  m,
				Matched: correlator.Matches(m.Content, in.SessionID, in.Phase, in.Version),
			}
		}
		if result.Found() {
			logger.Debug("artifact recalled", "attempts", result.Attempts, "hits", len(result.Hits))
			return result, nil
		}

		remaining := deadline.Sub(u.now())
		if remaining <= 0 {
			logger.Debug("no matching artifact", "attempts", result.Attempts, "hits", len(result.Hits))
			return result, nil
		}

		wait := min(delay, remaining)
		logger.Debug("artifact not indexed yet, retrying", "attempt", result.Attempts, "delay", wait)
		if err := u.sleep(ctx, wait); err != nil {
			return nil, goerr.Wrap(err, "recall interrupted", goerr.V("attempts", result.Attempts))
		}
		delay = min(delay*2, u.backoffMax)
	}
}
