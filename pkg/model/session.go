package model

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/m-mizutani/goerr/v2"
)

var ErrUnusableSessionID = goerr.New("session ID cannot be embedded in artifact headers")

// SessionID correlates every artifact of one collaboration. Format is
// <prefix>-<YYYYMMDD>-<TOKEN>.
type SessionID string

const (
	// DefaultSessionPrefix is used when no task label is given
	DefaultSessionPrefix = "collab"

	// SessionTokenLength is the length of the random suffix
	SessionTokenLength = 8

	// SessionTokenAlphabet holds the characters allowed in the random suffix
	SessionTokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// SessionDateLayout is the layout of the date part
	SessionDateLayout = "20060102"
)

var sessionIDPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*-[0-9]{8}-[A-Z0-9]{8}$`)

func (x SessionID) String() string { return string(x) }

// Valid reports whether the ID has the shape of a generated session ID.
// IDs typed by hand may not, and are still usable.
func (x SessionID) Valid() bool {
	return sessionIDPattern.MatchString(string(x))
}

// Validate checks that the ID survives a round trip through artifact
// headers, printed shell commands and journal keys. Whitespace and brackets
// would break the header, a single quote would be escaped in the command
// and '/' is a key separator. An ID that is not Valid but passes Validate
// is still used verbatim.
func (x SessionID) Validate() error {
	if x == "" {
		return goerr.Wrap(ErrUnusableSessionID, "session ID is empty")
	}
	if i := strings.IndexFunc(string(x), func(r rune) bool {
		return unicode.IsSpace(r) || r == '[' || r == ']' || r == '\'' || r == '/'
	}); i >= 0 {
		return goerr.Wrap(ErrUnusableSessionID, "session ID has a forbidden character",
			goerr.V("session_id", x),
			goerr.V("position", i))
	}
	return nil
}

// Date returns the date part of a well-formed ID
func (x SessionID) Date() (time.Time, bool) {
	if !x.Valid() {
		return time.Time{}, false
	}
	s := string(x)
	datePart := s[len(s)-SessionTokenLength-1-len(SessionDateLayout) : len(s)-SessionTokenLength-1]
	t, err := time.Parse(SessionDateLayout, datePart)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// SessionSummary aggregates the journal records of one session
type SessionSummary struct {
	SessionID    SessionID
	Records      int
	FirstSeen    time.Time
	LastActivity time.Time
}
