package agent

import (
	"regexp"
	"strings"
)

var shellSafe = regexp.MustCompile(`^[A-Za-z0-9_./:=@%+,-]+$`)

// Quote returns s quoted for a POSIX shell. Words made only of safe
// characters are returned as is.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if shellSafe.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// CommandLine renders a copy-pasteable shell command that runs the agent
// with the instruction.
func CommandLine(p Profile, instruction string, resume bool) string {
	args := p.Args(instruction, resume)
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = Quote(a)
	}
	return strings.Join(quoted, " ")
}
