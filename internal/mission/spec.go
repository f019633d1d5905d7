package mission

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Spec describes a declarative mission stored as YAML: an ordered list of
// remote action steps run as a sequence.
type Spec struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step declares one remote action: which server runs it and the goal
// payload. Server may be a literal name or a "{key}" blackboard reference
// resolved per activation; string values inside the goal may use the same
// reference form.
type Step struct {
	Name   string         `yaml:"name"`
	Server string         `yaml:"server"`
	Goal   map[string]any `yaml:"goal"`

	// Expect optionally pins fields of the result payload; a successful
	// goal whose result disagrees fails the step.
	Expect map[string]any `yaml:"expect"`
}

// Parse converts mission YAML into a validated Spec.
func Parse(raw []byte) (Spec, error) {
	var spec Spec
	if strings.TrimSpace(string(raw)) == "" {
		return spec, errors.New("mission spec is empty")
	}
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return spec, fmt.Errorf("parse mission spec: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

// Validate ensures required fields are populated.
func (s Spec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("mission name is required")
	}
	if len(s.Steps) == 0 {
		return errors.New("mission has no steps")
	}
	seen := make(map[string]bool, len(s.Steps))
	for i, step := range s.Steps {
		if strings.TrimSpace(step.Name) == "" {
			return fmt.Errorf("step %d: name is required", i+1)
		}
		if seen[step.Name] {
			return fmt.Errorf("step %d: duplicate name %q", i+1, step.Name)
		}
		seen[step.Name] = true
		if strings.TrimSpace(step.Server) == "" {
			return fmt.Errorf("step %q: server is required", step.Name)
		}
	}
	return nil
}
