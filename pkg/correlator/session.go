package correlator

import (
	"crypto/rand"
	"io"
	"strings"
	"time"

	"github.com/m-mizutani/duet/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

var ErrInvalidLabel = goerr.New("invalid task label")

const maxPrefixLength = 40

// Generator creates session IDs. The zero value uses the wall clock and
// crypto/rand.
type Generator struct {
	now  func() time.Time
	rand io.Reader
}

// GeneratorOption is a functional option for Generator
type GeneratorOption func(*Generator)

// WithClock replaces the clock used for the date part
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		g.now = now
	}
}

// WithRandom replaces the random source used for the token
func WithRandom(r io.Reader) GeneratorOption {
	return func(g *Generator) {
		g.rand = r
	}
}

// NewGenerator creates a session ID generator
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// New generates a session ID from an optional task label. There is no
// collision detection: the random token is the only protection.
func (g *Generator) New(label string) (model.SessionID, error) {
	prefix := model.DefaultSessionPrefix
	if strings.TrimSpace(label) != "" {
		prefix = Slugify(label)
		if prefix == "" {
			return "", goerr.Wrap(ErrInvalidLabel, "label has no alphanumeric characters", goerr.V("label", label))
		}
	}

	token, err := g.token()
	if err != nil {
		return "", err
	}

	date := g.clock().UTC().Format(model.SessionDateLayout)
	return model.SessionID(prefix + "-" + date + "-" + token), nil
}

// NewSessionID generates a session ID with the default generator
func NewSessionID(label string) (model.SessionID, error) {
	return NewGenerator().New(label)
}

func (g *Generator) clock() time.Time {
	if g.now != nil {
		return g.now()
	}
	return time.Now()
}

// token draws SessionTokenLength characters from the alphabet. Bytes that
// would bias the modulo are rejected.
func (g *Generator) token() (string, error) {
	src := g.rand
	if src == nil {
		src = rand.Reader
	}

	alphabet := model.SessionTokenAlphabet
	limit := byte(256 - 256%len(alphabet))

	out := make([]byte, 0, model.SessionTokenLength)
	buf := make([]byte, model.SessionTokenLength*2)
	for len(out) < model.SessionTokenLength {
		if _, err := io.ReadFull(src, buf); err != nil {
			return "", goerr.Wrap(err, "failed to read random bytes")
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == model.SessionTokenLength {
				break
			}
		}
	}
	return string(out), nil
}

// Slugify lowercases the label and joins its alphanumeric runs with '-'.
// The result is cut to a bounded length without a trailing '-'.
func Slugify(label string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(label) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isAlnum {
			pendingDash = b.Len() > 0
			continue
		}
		if pendingDash {
			b.WriteByte('-')
			pendingDash = false
		}
		b.WriteRune(r)
	}

	slug := b.String()
	if len(slug) > maxPrefixLength {
		slug = strings.TrimRight(slug[:maxPrefixLength], "-")
	}
	return slug
}
