package harness

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunWithGolden executes a scenario and compares its output against a
// golden file at testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// The golden format is line-oriented: each step contributes a header
// line "== {name}" followed by its canonical payload, or an error line
// "error ({class}): {message}". Payloads are canonical JSON, so two
// runs of the same scenario are byte-identical.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	AssertGolden(t, scenario.Name, result)
	return nil
}

// AssertGolden compares an already-obtained result against the golden
// file named scenarioName.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, Render(result))
}

// Render serializes a result in the golden format.
func Render(result *Result) []byte {
	var buf bytes.Buffer
	for _, out := range result.Outputs {
		fmt.Fprintf(&buf, "== %s\n", out.Name)
		if out.Err != "" {
			fmt.Fprintf(&buf, "error (%s): %s\n", out.Class, out.Err)
			continue
		}
		buf.Write(out.Payload)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
