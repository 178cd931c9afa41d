package harness

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// goldenRunToken pins the run token for golden comparison; a generated
// UUIDv7 would change the snapshot on every run.
const goldenRunToken = "test-run-default"

// RunWithGolden executes the scenario and compares its JSON-encoded
// result against testdata/golden/<name>.golden. Regenerate golden files
// with `go test -update` after an intentional behavior change.
//
// Returns error if scenario execution fails; assertion failures and
// golden divergence fail the test via t.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	runner := NewRunner(WithTokenGenerator(FixedGenerator{Token: goldenRunToken}))
	result, err := runner.Run(context.Background(), scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, result)
}

// AssertGolden compares an already-obtained result against its golden
// file, named after the scenario.
func AssertGolden(t *testing.T, result *Result) error {
	t.Helper()

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, result.Scenario, data)
	return nil
}
