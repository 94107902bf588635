// Package harness runs conformance scenarios: YAML files pairing a
// scene snapshot with a list of queries and their expected outcomes.
// Scenario output is compared against golden files, so the exact
// payload bytes are part of the contract.
package harness

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/perch3d/sceneql/internal/engine"
	"github.com/perch3d/sceneql/internal/exec"
	"github.com/perch3d/sceneql/internal/scene"
	"github.com/perch3d/sceneql/internal/schema"
)

// Scenario defines one conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Scene is the path to the scene snapshot YAML, relative to the
	// scenario file location.
	Scene string `yaml:"scene"`

	// Queries are run in order against the same scene.
	Queries []QueryStep `yaml:"queries"`

	// Limits overrides the execution bounds. Zero fields keep the
	// engine defaults.
	Limits *LimitsSpec `yaml:"limits,omitempty"`

	// dir is the directory the scenario file was loaded from; scene
	// paths resolve against it.
	dir string
}

// QueryStep is one query plus its expected outcome class.
type QueryStep struct {
	// Name labels the step in the scenario output.
	Name string `yaml:"name"`

	// Query is the query text.
	Query string `yaml:"query"`

	// ExpectError names the expected error class (syntax, semantic,
	// execution). Empty means the query must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// LimitsSpec mirrors exec.Limits with YAML-friendly fields.
type LimitsSpec struct {
	MaxRows  int    `yaml:"max_rows,omitempty"`
	MaxDepth int    `yaml:"max_depth,omitempty"`
	Timeout  string `yaml:"timeout,omitempty"`
	MaxBytes int    `yaml:"max_bytes,omitempty"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("scenario %s: name is required", path)
	}
	if s.Scene == "" {
		return nil, fmt.Errorf("scenario %s: scene is required", path)
	}
	if len(s.Queries) == 0 {
		return nil, fmt.Errorf("scenario %s: at least one query is required", path)
	}
	s.dir = filepath.Dir(path)
	return &s, nil
}

// Result is the output of running a scenario.
type Result struct {
	Outputs []QueryOutput
}

// QueryOutput is one step's outcome: the canonical payload on success,
// or the error class and message on failure.
type QueryOutput struct {
	Name    string
	Payload []byte
	Class   engine.ErrorClass
	Err     string
}

// Run executes every query in the scenario against its scene. A step
// failing differently than its expect_error declares is an error; the
// golden comparison never sees mismatched runs.
func Run(s *Scenario) (*Result, error) {
	ms, err := scene.LoadSnapshotFile(filepath.Join(s.dir, s.Scene), schema.Default())
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	ids := make([]string, len(s.Queries))
	for i := range ids {
		ids[i] = fmt.Sprintf("scenario-%s-%d", s.Name, i+1)
	}
	opts := []engine.Option{
		engine.WithIDGenerator(engine.NewFixedGenerator(ids...)),
	}
	if s.Limits != nil {
		lim, err := s.Limits.resolve()
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		opts = append(opts, engine.WithLimits(lim))
	}
	eng := engine.New(ms, opts...)

	res := &Result{}
	for _, step := range s.Queries {
		out := QueryOutput{Name: step.Name}
		o, err := eng.Execute(context.Background(), step.Query)
		if err != nil {
			out.Class = engine.Classify(err)
			out.Err = err.Error()
		} else {
			out.Payload = o.Payload
		}
		if err := checkExpectation(step, out); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		res.Outputs = append(res.Outputs, out)
	}
	return res, nil
}

func checkExpectation(step QueryStep, out QueryOutput) error {
	if step.ExpectError == "" {
		if out.Err != "" {
			return fmt.Errorf("step %s: unexpected %s error: %s", step.Name, out.Class, out.Err)
		}
		return nil
	}
	if out.Err == "" {
		return fmt.Errorf("step %s: expected %s error, query succeeded", step.Name, step.ExpectError)
	}
	if out.Class.String() != step.ExpectError {
		return fmt.Errorf("step %s: expected %s error, got %s: %s",
			step.Name, step.ExpectError, out.Class, out.Err)
	}
	return nil
}

func (l *LimitsSpec) resolve() (exec.Limits, error) {
	lim := engine.DefaultLimits
	if l.MaxRows > 0 {
		lim.MaxRows = l.MaxRows
	}
	if l.MaxDepth > 0 {
		lim.MaxRelationshipDepth = l.MaxDepth
	}
	if l.MaxBytes > 0 {
		lim.MaxPayloadBytes = l.MaxBytes
	}
	if l.Timeout != "" {
		d, err := time.ParseDuration(l.Timeout)
		if err != nil {
			return lim, fmt.Errorf("limits.timeout: %w", err)
		}
		lim.Timeout = d
	}
	return lim, nil
}
