package cdntags

import (
	"os"
	"strings"
)

// Environment identifies a deploy environment such as "production".
// Environments compare by value.
type Environment string

const (
	Production  Environment = "production"
	Staging     Environment = "staging"
	Development Environment = "development"
	Test        Environment = "test"
)

func (e Environment) String() string {
	return string(e)
}

// ParseEnvironments splits a comma-separated list, skipping blanks.
func ParseEnvironments(raw string) []Environment {
	parts := strings.Split(raw, ",")
	envs := make([]Environment, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		envs = append(envs, Environment(part))
	}
	return envs
}

// HostEnvironment returns the environment the process runs under, read from
// APP_ENV, then GO_ENV, defaulting to development.
func HostEnvironment() Environment {
	for _, key := range []string{"APP_ENV", "GO_ENV"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return Environment(v)
		}
	}
	return Development
}

func containsEnvironment(envs []Environment, env Environment) bool {
	for _, e := range envs {
		if e == env {
			return true
		}
	}
	return false
}
