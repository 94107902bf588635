package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/perch3d/sceneql/internal/bind"
	"github.com/perch3d/sceneql/internal/exec"
	"github.com/perch3d/sceneql/internal/parser"
	"github.com/perch3d/sceneql/internal/plan"
	"github.com/perch3d/sceneql/internal/result"
	"github.com/perch3d/sceneql/internal/scene"
)

// DefaultMaxWaiting is the default admission queue depth: how many
// queries may wait behind the one executing before new arrivals are
// rejected with ErrQueueFull.
const DefaultMaxWaiting = 8

// DefaultLimits are the execution bounds applied when the host does not
// configure its own.
var DefaultLimits = exec.Limits{
	MaxRows:              1000,
	MaxRelationshipDepth: 3,
	Timeout:              5 * time.Second,
	MaxPayloadBytes:      1 << 20,
}

// Outcome is the product of one successful query execution. Payload is
// the canonical JSON document; the remaining fields summarize it for
// logging and the audit history without re-parsing.
type Outcome struct {
	QueryID   string
	Payload   []byte
	Set       *result.Set // the rows behind Payload, for non-JSON renderers
	RowCount  int
	Truncated bool
	Cancelled bool
	Duration  time.Duration
}

// Entry is the audit record of one query, successful or not. Error is
// empty on success; RowCount and Truncated are zero-valued on failure.
type Entry struct {
	QueryID   string
	Query     string
	Started   time.Time
	Duration  time.Duration
	Class     ErrorClass
	Error     string
	RowCount  int
	Truncated bool
	Cancelled bool
}

// Recorder receives audit entries. Recording is best-effort: a recorder
// failure is logged and never fails the query.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Engine runs queries against one scene adapter.
//
// Thread-safety model:
//   - Execute(): safe from any goroutine; the gate serializes actual
//     adapter access, so at most one query reads the scene at a time
//   - Explain(), Validate(): safe from any goroutine; they never touch
//     the adapter
type Engine struct {
	adapter  scene.Adapter
	limits   exec.Limits
	clock    exec.Clock
	idGen    QueryIDGenerator
	log      *slog.Logger
	recorder Recorder
	gate     *gate
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithLimits replaces DefaultLimits.
func WithLimits(l exec.Limits) Option {
	return func(e *Engine) { e.limits = l }
}

// WithClock injects the execution clock. Tests use a fake clock to
// drive timeout behavior deterministically.
func WithClock(c exec.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithIDGenerator replaces the UUIDv7 query ID generator.
func WithIDGenerator(g QueryIDGenerator) Option {
	return func(e *Engine) { e.idGen = g }
}

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithRecorder attaches an audit recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithMaxWaiting sets the admission queue depth.
func WithMaxWaiting(n int) Option {
	return func(e *Engine) { e.gate = newGate(n) }
}

// New creates an Engine over the adapter. The adapter's schema catalog
// is the binding authority for every query the engine runs.
func New(ad scene.Adapter, opts ...Option) *Engine {
	e := &Engine{
		adapter: ad,
		limits:  DefaultLimits,
		clock:   exec.Wall,
		idGen:   UUIDv7Generator{},
		log:     slog.Default(),
		gate:    newGate(DefaultMaxWaiting),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Limits returns the engine's execution bounds. Every bound is part of
// the engine's contract with its callers, never hidden.
func (e *Engine) Limits() exec.Limits {
	return e.limits
}

// Execute runs one query end to end and returns its outcome.
//
// Errors carry their taxonomy: *parser.SyntaxError for malformed text,
// *bind.SemanticError for schema violations, *exec.Error for runtime
// failures, ErrQueueFull when the admission queue is at capacity.
// Context cancellation during execution is not an error: the outcome's
// Cancelled flag is set and whatever rows were produced are returned.
func (e *Engine) Execute(ctx context.Context, query string) (*Outcome, error) {
	id := e.idGen.Generate()
	started := e.clock.Now()
	log := e.log.With(slog.String("query_id", id))

	out, err := e.execute(ctx, log, query)
	elapsed := e.clock.Now().Sub(started)

	entry := Entry{
		QueryID:  id,
		Query:    query,
		Started:  started,
		Duration: elapsed,
	}
	if err != nil {
		entry.Class = Classify(err)
		entry.Error = err.Error()
		log.Warn("query failed",
			slog.String("class", entry.Class.String()),
			slog.String("error", err.Error()),
			slog.Duration("elapsed", elapsed))
		e.record(ctx, entry)
		return nil, err
	}

	out.QueryID = id
	out.Duration = elapsed
	entry.RowCount = out.RowCount
	entry.Truncated = out.Truncated
	entry.Cancelled = out.Cancelled
	log.Info("query ok",
		slog.Int("rows", out.RowCount),
		slog.Bool("truncated", out.Truncated),
		slog.Duration("elapsed", elapsed))
	e.record(ctx, entry)
	return out, nil
}

func (e *Engine) execute(ctx context.Context, log *slog.Logger, query string) (*Outcome, error) {
	q, err := parser.Parse(query)
	if err != nil {
		return nil, err
	}
	bq, err := bind.Bind(q, e.adapter.Schema(), e.limits.MaxRelationshipDepth)
	if err != nil {
		return nil, err
	}
	p := plan.Build(bq)
	log.Debug("plan built", slog.Int("steps", len(p.Steps)))

	if err := e.gate.acquire(ctx); err != nil {
		return nil, err
	}
	defer e.gate.release()

	ex := &exec.Executor{Clock: e.clock}
	set, err := ex.Run(ctx, p, e.adapter, e.limits)
	if err != nil {
		return nil, err
	}
	return &Outcome{
		Payload:   result.Serialize(set),
		Set:       set,
		RowCount:  set.Len(),
		Truncated: set.Truncated,
		Cancelled: set.Cancelled,
	}, nil
}

// Explain parses, binds and plans the query without executing it, and
// returns the plan's step listing.
func (e *Engine) Explain(query string) (string, error) {
	q, err := parser.Parse(query)
	if err != nil {
		return "", err
	}
	bq, err := bind.Bind(q, e.adapter.Schema(), e.limits.MaxRelationshipDepth)
	if err != nil {
		return "", err
	}
	return plan.Build(bq).Explain(), nil
}

// Validate checks the query against the grammar and the schema without
// touching the scene. A nil return means Execute would reach the
// execution stage.
func (e *Engine) Validate(query string) error {
	q, err := parser.Parse(query)
	if err != nil {
		return err
	}
	_, err = bind.Bind(q, e.adapter.Schema(), e.limits.MaxRelationshipDepth)
	return err
}

func (e *Engine) record(ctx context.Context, entry Entry) {
	if e.recorder == nil {
		return
	}
	// The audit write must outlive the query's own cancellation: a
	// cancelled query is a recordable outcome, not a skipped one.
	ctx = context.WithoutCancel(ctx)
	if err := e.recorder.Record(ctx, entry); err != nil {
		e.log.Warn("history record failed",
			slog.String("query_id", entry.QueryID),
			slog.String("error", err.Error()))
	}
}
