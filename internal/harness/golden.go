package harness

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot is the serialized form of a scenario run, compared against
// golden files byte-for-byte. Sessions are sorted by name.
type Snapshot struct {
	ScenarioName string            `json:"scenario_name"`
	Trace        []TraceEvent      `json:"trace"`
	Sessions     []SessionSnapshot `json:"sessions"`
}

// SessionSnapshot is one session's final state, tagged with its name.
type SessionSnapshot struct {
	Name string `json:"name"`
	SessionState
}

// RunWithGolden executes a scenario and compares the snapshot against a
// golden file in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	snapshot := Snapshot{
		ScenarioName: scenario.Name,
		Trace:        result.Trace,
		Sessions:     []SessionSnapshot{},
	}
	for _, name := range result.SessionNames() {
		snapshot.Sessions = append(snapshot.Sessions, SessionSnapshot{
			Name:         name,
			SessionState: result.Sessions[name],
		})
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return nil
}
