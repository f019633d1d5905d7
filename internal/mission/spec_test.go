package mission_test

import (
	"strings"
	"testing"

	"example.com/robot-missions/internal/mission"
)

const patrolYAML = `
name: patrol
steps:
  - name: drive_out
    server: nav
    goal:
      distance_m: 5
      speed_mps: 0.3
  - name: dock
    server: "{dock_server}"
    goal:
      station: home
`

func TestParseMission(t *testing.T) {
	spec, err := mission.Parse([]byte(patrolYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if spec.Name != "patrol" {
		t.Fatalf("name: %q", spec.Name)
	}
	if len(spec.Steps) != 2 {
		t.Fatalf("steps: %d", len(spec.Steps))
	}
	if spec.Steps[1].Server != "{dock_server}" {
		t.Fatalf("volatile server: %q", spec.Steps[1].Server)
	}
	if spec.Steps[0].Goal["distance_m"] != 5 {
		t.Fatalf("goal payload: %+v", spec.Steps[0].Goal)
	}
}

func TestParseRejectsInvalidMissions(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", "", "empty"},
		{"no steps", "name: x", "no steps"},
		{"missing name", "steps:\n  - name: a\n    server: s", "name is required"},
		{"missing server", "name: x\nsteps:\n  - name: a", "server is required"},
		{"missing step name", "name: x\nsteps:\n  - server: s", "name is required"},
		{"duplicate step", "name: x\nsteps:\n  - name: a\n    server: s\n  - name: a\n    server: s", "duplicate"},
	}
	for _, tc := range cases {
		_, err := mission.Parse([]byte(tc.yaml))
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: error %q does not mention %q", tc.name, err, tc.want)
		}
	}
}
