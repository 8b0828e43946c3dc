package cdntags

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// RaisePolicy decides whether a missing CDN mapping is an error. It is either
// a fixed boolean or the list of environments in which to raise.
type RaisePolicy struct {
	list   bool
	always bool
	envs   []Environment
}

// AlwaysRaise returns a policy that resolves to raise regardless of environment.
func AlwaysRaise(raise bool) RaisePolicy {
	return RaisePolicy{always: raise}
}

// RaiseIn returns a policy that raises only in the given environments.
func RaiseIn(envs ...Environment) RaisePolicy {
	return RaisePolicy{list: true, envs: slices.Clone(envs)}
}

// ParseRaisePolicy accepts "true", "false" or a comma-separated environment list.
func ParseRaisePolicy(raw string) (RaisePolicy, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return RaisePolicy{}, ErrInvalidRaisePolicy
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return AlwaysRaise(b), nil
	}
	return RaiseIn(ParseEnvironments(raw)...), nil
}

// Resolve reports whether a missing mapping should raise in env.
func (p RaisePolicy) Resolve(env Environment) bool {
	if !p.list {
		return p.always
	}
	return containsEnvironment(p.envs, env)
}

// IsList reports whether the policy is environment based.
func (p RaisePolicy) IsList() bool {
	return p.list
}

// Environments returns a copy of the raising environments, nil for boolean policies.
func (p RaisePolicy) Environments() []Environment {
	if !p.list {
		return nil
	}
	return slices.Clone(p.envs)
}

func (p RaisePolicy) String() string {
	if !p.list {
		return strconv.FormatBool(p.always)
	}
	names := make([]string, len(p.envs))
	for i, env := range p.envs {
		names[i] = string(env)
	}
	return "[" + strings.Join(names, ",") + "]"
}

func (p RaisePolicy) raw() any {
	if !p.list {
		return p.always
	}
	envs := p.envs
	if envs == nil {
		envs = []Environment{}
	}
	return envs
}

// MarshalYAML encodes the policy back to a boolean or a sequence.
func (p RaisePolicy) MarshalYAML() (any, error) {
	return p.raw(), nil
}

// UnmarshalYAML decodes a boolean scalar or a sequence of environment names.
func (p *RaisePolicy) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var b bool
		if err := value.Decode(&b); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidRaisePolicy, value.Value)
		}
		*p = AlwaysRaise(b)
		return nil
	case yaml.SequenceNode:
		var names []string
		if err := value.Decode(&names); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRaisePolicy, err)
		}
		envs := make([]Environment, len(names))
		for i, name := range names {
			envs[i] = Environment(name)
		}
		*p = RaiseIn(envs...)
		return nil
	default:
		return ErrInvalidRaisePolicy
	}
}

// MarshalJSON mirrors the YAML form.
func (p RaisePolicy) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.raw())
}

// UnmarshalJSON accepts a boolean or an array of environment names.
func (p *RaisePolicy) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ErrInvalidRaisePolicy
	}

	switch trimmed[0] {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidRaisePolicy, trimmed)
		}
		*p = AlwaysRaise(b)
		return nil
	case '[':
		var names []string
		if err := json.Unmarshal(trimmed, &names); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRaisePolicy, err)
		}
		envs := make([]Environment, len(names))
		for i, name := range names {
			envs[i] = Environment(name)
		}
		*p = RaiseIn(envs...)
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrInvalidRaisePolicy, trimmed)
	}
}
