package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/opencitations/time-agnostic-library-sub000/internal/dialect"
	"github.com/opencitations/time-agnostic-library-sub000/internal/history"
	"github.com/opencitations/time-agnostic-library-sub000/internal/metrics"
	"github.com/opencitations/time-agnostic-library-sub000/internal/pattern"
	"github.com/opencitations/time-agnostic-library-sub000/internal/provenance"
	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
	"github.com/opencitations/time-agnostic-library-sub000/internal/sparql"
	"github.com/opencitations/time-agnostic-library-sub000/internal/triplestore"
)

// Defaults for the rebuild worker pool.
const (
	DefaultWorkerThreshold = 8
	DefaultMaxWorkers      = 4
)

// Deps are the stores an Orchestrator works against.
type Deps struct {
	Dataset    triplestore.Gateway
	Provenance triplestore.Gateway

	// Cache selects the cache sink when non-nil; otherwise states are kept
	// in memory.
	Cache triplestore.Gateway

	// Dialect drives update mining. Nil means dialect.Substring.
	Dialect dialect.FullTextDialect
}

// Orchestrator answers queries over every recorded state of a dataset.
//
// An Orchestrator holds no per-query state and is safe for concurrent
// use: each Run gets its own session, discarded when the run ends.
type Orchestrator struct {
	deps    Deps
	history *history.Reconstructor
	logger  *slog.Logger
	metrics *metrics.Metrics
	ids     SessionIDGenerator
	now     func() time.Time

	workerThreshold int
	maxWorkers      int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithMetrics sets the instruments. The default is an unregistered set.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithWorkers sets the batch size above which entities are rebuilt in
// parallel and the pool size. A threshold of 0 disables the pool.
func WithWorkers(threshold, max int) Option {
	return func(o *Orchestrator) {
		o.workerThreshold = threshold
		o.maxWorkers = max
	}
}

// WithSessionIDs sets the session id generator. The default generates
// UUIDv7 ids.
func WithSessionIDs(g SessionIDGenerator) Option {
	return func(o *Orchestrator) {
		o.ids = g
	}
}

// WithClock sets the time source used to measure runs.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// New creates an Orchestrator over deps.
func New(deps Deps, opts ...Option) *Orchestrator {
	if deps.Dialect == nil {
		deps.Dialect = dialect.Substring{}
	}
	o := &Orchestrator{
		deps:            deps,
		logger:          slog.Default(),
		ids:             UUIDv7Generator{},
		now:             time.Now,
		workerThreshold: DefaultWorkerThreshold,
		maxWorkers:      DefaultMaxWorkers,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = metrics.New(nil)
	}
	if o.maxWorkers < 1 {
		o.maxWorkers = 1
	}
	o.history = history.New(deps.Dataset, deps.Provenance, history.WithLogger(o.logger))
	return o
}

// RunOptions tune a Run.
type RunOptions struct {
	// At restricts the result to the snapshot in force at this instant.
	// Empty keeps every snapshot.
	At string
}

// Result holds the tuples of every snapshot.
type Result struct {
	SessionID string

	// Variables is the projection order of every Tuple.
	Variables []rdf.Variable

	// Instants lists the snapshot instants in order.
	Instants []time.Time

	// Rows maps each instant, formatted with provenance.FormatInstant, to
	// its sorted, de-duplicated tuples.
	Rows map[string][]Tuple
}

// BindingResult holds per-instant binding maps for a window.
type BindingResult struct {
	SessionID string
	Variables []rdf.Variable

	// Bindings maps each instant in the window to its solutions, projected
	// on Variables.
	Bindings map[string][]sparql.Binding

	// Excluded lists, in order, the instants outside the window.
	Excluded []string
}

// session is the state of one query run.
type session struct {
	o        *Orchestrator
	id       string
	logger   *slog.Logger
	analysis *pattern.Analysis
	sink     SnapshotSink

	// relevant is RelevantEntities; it only grows.
	relevant  map[rdf.IRI]bool
	histories map[rdf.IRI]*history.History

	// pending is PendingPatternsByTime keyed by unix seconds.
	pending map[int64]*pendingSet
	rounds  int

	// subjectVars are the variables used in subject position.
	subjectVars map[rdf.Variable]bool

	// closed are the variables reachable from a bound subject IRI.
	closed map[rdf.Variable]bool

	// hooked holds the patterns already looked up as hooks.
	hooked map[string]bool
}

func (o *Orchestrator) newSession(a *pattern.Analysis) *session {
	id := o.ids.Generate()
	var sink SnapshotSink
	if o.deps.Cache != nil {
		sink = NewCacheSink(o.deps.Cache)
	} else {
		sink = NewMemorySink()
	}
	subjectVars := map[rdf.Variable]bool{}
	closed := map[rdf.Variable]bool{}
	for _, t := range a.Triples {
		if v, ok := t.S.(rdf.Variable); ok {
			subjectVars[v] = true
			closed[v] = pattern.IsClosed(v, a.Triples)
		}
	}
	return &session{
		o:           o,
		id:          id,
		logger:      o.logger.With("session", id),
		analysis:    a,
		sink:        sink,
		relevant:    map[rdf.IRI]bool{},
		histories:   map[rdf.IRI]*history.History{},
		closed:      closed,
		hooked:      map[string]bool{},
		pending:     map[int64]*pendingSet{},
		subjectVars: subjectVars,
	}
}

// Run answers queryText at every recorded instant, or at opts.At only.
// Shape errors are reported before any backend is contacted.
func (o *Orchestrator) Run(ctx context.Context, queryText string, opts RunOptions) (res *Result, err error) {
	start := o.now()
	defer func() { o.metrics.ObserveRun(o.now().Sub(start), err) }()

	var target time.Time
	if opts.At != "" {
		if target, err = ParseTarget(opts.At); err != nil {
			return nil, err
		}
	}

	s, results, err := o.run(ctx, queryText)
	if err != nil {
		return nil, err
	}
	if opts.At != "" {
		if results, err = onTime(results, target); err != nil {
			return nil, err
		}
	}
	results = succeeded(results)

	vars := s.analysis.Variables
	res = &Result{SessionID: s.id, Variables: vars, Rows: map[string][]Tuple{}}
	for _, r := range results {
		res.Instants = append(res.Instants, r.at)
		res.Rows[provenance.FormatInstant(r.at)] = tuples(r.rows, vars)
	}
	s.logger.Info("query finished", "instants", len(res.Instants), "rounds", s.rounds)
	return res, nil
}

// RunBindings answers queryText with binding maps for the snapshots in w.
// It fails with a NoSnapshotError when the window holds no snapshot.
func (o *Orchestrator) RunBindings(ctx context.Context, queryText string, w Window) (res *BindingResult, err error) {
	start := o.now()
	defer func() { o.metrics.ObserveRun(o.now().Sub(start), err) }()

	s, results, err := o.run(ctx, queryText)
	if err != nil {
		return nil, err
	}

	kept, excluded := within(results, w)
	if len(kept) == 0 {
		e := &NoSnapshotError{Target: w.End}
		if e.Target.IsZero() {
			e.Target = w.Start
		}
		if len(results) > 0 {
			e.Earliest = results[0].at
		}
		return nil, e
	}

	vars := s.analysis.Variables
	res = &BindingResult{SessionID: s.id, Variables: vars, Bindings: map[string][]sparql.Binding{}}
	for _, r := range succeeded(kept) {
		res.Bindings[provenance.FormatInstant(r.at)] = project(r.rows, vars)
	}
	for _, r := range succeeded(excluded) {
		res.Excluded = append(res.Excluded, provenance.FormatInstant(r.at))
	}
	s.logger.Info("query finished", "instants", len(kept), "excluded", len(excluded), "rounds", s.rounds)
	return res, nil
}

// run performs analyze, discover, align, resolve and execute.
func (o *Orchestrator) run(ctx context.Context, queryText string) (*session, []snapshotResult, error) {
	a, err := pattern.Analyze(queryText)
	if err != nil {
		return nil, nil, err
	}

	s := o.newSession(a)
	s.logger.Info("query started",
		"patterns", len(a.Triples),
		"hooks", len(a.Hooks),
		"anchored", len(a.Anchored))

	if err := s.discover(ctx); err != nil {
		return nil, nil, fmt.Errorf("session %s: %w", s.id, err)
	}
	s.align()
	if err := s.resolve(ctx); err != nil {
		return nil, nil, fmt.Errorf("session %s: %w", s.id, err)
	}

	results := s.execute(ctx)
	o.metrics.SnapshotsPerRun.Observe(float64(len(succeeded(results))))
	return s, results, nil
}

func project(rows []sparql.Binding, vars []rdf.Variable) []sparql.Binding {
	out := make([]sparql.Binding, len(rows))
	for i, row := range rows {
		b := sparql.Binding{}
		for _, v := range vars {
			if t, ok := row[v]; ok && t != nil {
				b[v] = t
			}
		}
		out[i] = b
	}
	return out
}
