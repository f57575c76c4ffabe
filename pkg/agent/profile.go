package agent

import (
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// DefaultTimeout bounds a single agent invocation
const DefaultTimeout = 10 * time.Minute

// Profile describes how to invoke an agent CLI in one-shot mode
type Profile struct {
	Name string `yaml:"name"`
	// Command is the argv prefix; the instruction is appended as the last
	// argument.
	Command []string `yaml:"command"`
	// ResumeArgs are inserted before the instruction to continue the
	// agent's most recent conversation.
	ResumeArgs []string      `yaml:"resume_args"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Args returns the argv for an instruction
func (p Profile) Args(instruction string, resume bool) []string {
	args := make([]string, 0, len(p.Command)+len(p.ResumeArgs)+1)
	args = append(args, p.Command...)
	if resume {
		args = append(args, p.ResumeArgs...)
	}
	return append(args, instruction)
}

func (p Profile) Validate() error {
	if len(p.Command) == 0 || p.Command[0] == "" {
		return goerr.New("agent command is required", goerr.V("profile", p.Name))
	}
	if p.Timeout < 0 {
		return goerr.New("agent timeout must not be negative",
			goerr.V("profile", p.Name),
			goerr.V("timeout", p.Timeout))
	}
	return nil
}

// Profiles holds the two collaborating agents
type Profiles struct {
	Planner  Profile `yaml:"planner"`
	Reviewer Profile `yaml:"reviewer"`
}

// DefaultProfiles returns Claude Code as the planner and Codex as the
// reviewer.
func DefaultProfiles() *Profiles {
	return &Profiles{
		Planner: Profile{
			Name:       "claude",
			Command:    []string{"claude", "-p"},
			ResumeArgs: []string{"--continue"},
			Timeout:    DefaultTimeout,
		},
		Reviewer: Profile{
			Name:       "codex",
			Command:    []string{"codex", "exec", "--full-auto"},
			ResumeArgs: []string{"resume", "--last"},
			Timeout:    DefaultTimeout,
		},
	}
}

// LoadProfiles reads agent profiles from a YAML file. Fields left out of
// the file keep their defaults; an empty path returns the defaults.
func LoadProfiles(path string) (*Profiles, error) {
	profiles := DefaultProfiles()
	if path == "" {
		return profiles, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read agent config", goerr.V("path", path))
	}

	var override Profiles
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, goerr.Wrap(err, "failed to parse agent config", goerr.V("path", path))
	}

	profiles.Planner = merge(profiles.Planner, override.Planner)
	profiles.Reviewer = merge(profiles.Reviewer, override.Reviewer)

	for _, p := range []Profile{profiles.Planner, profiles.Reviewer} {
		if err := p.Validate(); err != nil {
			return nil, goerr.Wrap(err, "invalid agent config", goerr.V("path", path))
		}
	}
	return profiles, nil
}

func merge(base, override Profile) Profile {
	if override.Name != "" {
		base.Name = override.Name
	}
	if len(override.Command) > 0 {
		base.Command = override.Command
	}
	if override.ResumeArgs != nil {
		base.ResumeArgs = override.ResumeArgs
	}
	if override.Timeout != 0 {
		base.Timeout = override.Timeout
	}
	return base
}
