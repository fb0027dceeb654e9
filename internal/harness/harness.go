package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/opencitations/time-agnostic-library-sub000/internal/engine"
	"github.com/opencitations/time-agnostic-library-sub000/internal/pattern"
	"github.com/opencitations/time-agnostic-library-sub000/internal/provenance"
	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
	"github.com/opencitations/time-agnostic-library-sub000/internal/sparql"
	"github.com/opencitations/time-agnostic-library-sub000/internal/store"
	"github.com/opencitations/time-agnostic-library-sub000/internal/testutil"
	"github.com/opencitations/time-agnostic-library-sub000/internal/triplestore"
)

// scenarioEpoch starts the deterministic clock of every run.
var scenarioEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Harness is the test execution engine.
// It runs scenarios with a deterministic clock and session id.
type Harness struct {
	fixture *store.Fixture
	deps    engine.Deps
	closers []io.Closer
	clock   *testutil.SteppingClock
	ids     *testutil.FixedSessionIDs
	logger  *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against fresh stores for isolation. SQLite stores
// are in-memory databases.
//
// Execution flow:
// 1. Load the fixture into the dataset and provenance stores
// 2. Run the query, or the windowed binding query
// 3. Classify a failed run by error kind
// 4. Evaluate assertions against the output
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	h, err := open(ctx, scenario)
	if err != nil {
		return nil, err
	}
	defer h.close()

	out, err := h.execute(ctx, scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to execute scenario: %w", err)
	}

	result := NewResult()
	result.Output = out
	for _, errMsg := range EvaluateAssertions(out, scenario.Assertions, h.fixture.Base) {
		result.AddError(errMsg)
	}
	return result, nil
}

func open(ctx context.Context, scenario *Scenario) (*Harness, error) {
	f, err := store.ReadFixture(scenario.Fixture)
	if err != nil {
		return nil, err
	}
	data, err := f.DatasetQuads()
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture dataset: %w", err)
	}
	prov, err := f.ProvenanceQuads()
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture provenance: %w", err)
	}

	h := &Harness{
		fixture: f,
		clock:   testutil.NewSteppingClock(scenarioEpoch, time.Millisecond),
		ids:     testutil.NewFixedSessionIDs(scenario.SessionID),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	switch scenario.Store {
	case "sqlite":
		if h.deps.Dataset, err = h.openSQLite(ctx, data); err != nil {
			h.close()
			return nil, err
		}
		if h.deps.Provenance, err = h.openSQLite(ctx, prov); err != nil {
			h.close()
			return nil, err
		}
	default:
		h.deps.Dataset = triplestore.NewMemory(data...)
		h.deps.Provenance = triplestore.NewMemory(prov...)
	}

	if scenario.Cache == "sqlite" {
		if h.deps.Cache, err = h.openSQLite(ctx, nil); err != nil {
			h.close()
			return nil, err
		}
	}
	return h, nil
}

func (h *Harness) openSQLite(ctx context.Context, quads []rdf.Quad) (*store.Store, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	h.closers = append(h.closers, st)
	if err := st.Insert(ctx, quads...); err != nil {
		return nil, fmt.Errorf("failed to load in-memory store: %w", err)
	}
	return st, nil
}

func (h *Harness) close() {
	for _, c := range h.closers {
		c.Close()
	}
}

// execute runs the scenario query. Classified run failures are recorded
// in the output; any other failure is returned.
func (h *Harness) execute(ctx context.Context, scenario *Scenario) (*Output, error) {
	o := engine.New(h.deps,
		engine.WithLogger(h.logger),
		engine.WithSessionIDs(h.ids),
		engine.WithClock(h.clock.Now),
		engine.WithWorkers(scenario.Workers, engine.DefaultMaxWorkers),
	)

	out := &Output{Scenario: scenario.Name, SessionID: h.ids.Generate(), Instants: []string{}}

	var err error
	if scenario.Window != nil {
		err = h.runWindow(ctx, o, scenario, out)
	} else {
		err = h.runQuery(ctx, o, scenario, out)
	}
	if err == nil {
		return out, nil
	}

	kind := errorKind(err)
	if kind == "" {
		return nil, err
	}
	out.Error = kind
	out.Message = err.Error()
	return out, nil
}

func (h *Harness) runQuery(ctx context.Context, o *engine.Orchestrator, scenario *Scenario, out *Output) error {
	res, err := o.Run(ctx, scenario.Query, engine.RunOptions{At: scenario.At})
	if err != nil {
		return err
	}
	out.Variables = variableNames(res.Variables)
	out.Rows = map[string][][]string{}
	for _, at := range res.Instants {
		key := provenance.FormatInstant(at)
		out.Instants = append(out.Instants, key)
		out.Rows[key] = encodeRows(res.Rows[key])
	}
	return nil
}

func (h *Harness) runWindow(ctx context.Context, o *engine.Orchestrator, scenario *Scenario, out *Output) error {
	w, err := engine.ParseWindow(scenario.Window.From, scenario.Window.To)
	if err != nil {
		return err
	}
	res, err := o.RunBindings(ctx, scenario.Query, w)
	if err != nil {
		return err
	}
	out.Variables = variableNames(res.Variables)
	out.Rows = map[string][][]string{}
	for key, bindings := range res.Bindings {
		out.Instants = append(out.Instants, key)
		out.Rows[key] = encodeBindings(bindings, res.Variables)
	}
	// FormatInstant output sorts chronologically
	sort.Strings(out.Instants)
	out.Excluded = res.Excluded
	return nil
}

// errorKind classifies err, or returns "" when it has no kind.
func errorKind(err error) string {
	var ie *engine.InstantError
	switch {
	case pattern.IsQueryShapeError(err):
		return ErrorQueryShape
	case engine.IsNoSnapshot(err):
		return ErrorNoSnapshot
	case errors.As(err, &ie):
		return ErrorInvalidInstant
	case triplestore.IsUpstream(err):
		return ErrorUpstream
	default:
		return ""
	}
}

func variableNames(vars []rdf.Variable) []string {
	out := make([]string, len(vars))
	for i, v := range vars {
		out[i] = string(v)
	}
	return out
}

func encodeRows(rows []engine.Tuple) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = encodeTuple(row)
	}
	return out
}

func encodeBindings(rows []sparql.Binding, vars []rdf.Variable) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = encodeTuple(row.Tuple(vars))
	}
	return out
}

func encodeTuple(terms []rdf.Term) []string {
	cells := make([]string, len(terms))
	for i, t := range terms {
		cells[i] = rdf.Encode(t)
	}
	return cells
}
