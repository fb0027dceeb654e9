package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opencitations/time-agnostic-library-sub000/internal/engine"
	"github.com/opencitations/time-agnostic-library-sub000/internal/provenance"
	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
	"github.com/opencitations/time-agnostic-library-sub000/internal/sparql"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Config   string
	At       string
	Bindings bool
	From     string
	To       string

	// SessionIDs allows overriding the session id generator (for testing).
	// If nil, the orchestrator generates UUIDv7 ids.
	SessionIDs engine.SessionIDGenerator
}

// QueryResult is the JSON payload of the query command.
type QueryResult struct {
	Variables []string `json:"variables"`

	// Instants lists the snapshot instants in order.
	Instants []string `json:"instants"`

	// Rows maps each instant to its tuples in canonical term encoding.
	// Unbound variables are null.
	Rows map[string][][]*string `json:"rows"`

	// Excluded lists the instants outside a --bindings window.
	Excluded []string `json:"excluded,omitempty"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	return newQueryCommand(&QueryOptions{RootOptions: rootOpts})
}

func newQueryCommand(opts *QueryOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <select-query>",
		Short: "Run a query over every recorded state of the dataset",
		Long: `Run a SPARQL SELECT query over every recorded state of the dataset.

The dataset and provenance backends are read from the configuration file.
Results are grouped by snapshot instant. With --at only the snapshot in
force at that instant is returned. With --bindings the solutions of the
snapshots between --from and --to are returned as binding maps.

Exit codes:
  0 - Query answered
  1 - Run failure (backend error, no snapshot at the instant)
  2 - Command error (invalid config, unsupported query shape)

Examples:
  tal query --config tal.json 'SELECT ?ra WHERE { <https://w3id.org/oc/meta/ar/1> pro:isHeldBy ?ra }'
  tal query --config tal.json --at 2021-06-01 "$(cat query.rq)"
  tal query --config tal.json --bindings --from 2021-05-01 --to 2021-06-30 --format json "$(cat query.rq)"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "path to JSON configuration (required)")
	cmd.Flags().StringVar(&opts.At, "at", "", "return only the snapshot in force at this instant")
	cmd.Flags().BoolVar(&opts.Bindings, "bindings", false, "return binding maps for a window of snapshots")
	cmd.Flags().StringVar(&opts.From, "from", "", "window start (with --bindings)")
	cmd.Flags().StringVar(&opts.To, "to", "", "window end (with --bindings)")
	_ = cmd.MarkFlagRequired("config")
	cmd.MarkFlagsMutuallyExclusive("at", "bindings")

	return cmd
}

func runQuery(opts *QueryOptions, queryText string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	if !opts.Bindings && (opts.From != "" || opts.To != "") {
		return formatter.Usage("--from and --to require --bindings")
	}

	logger := newLogger(formatter.GetErrWriter(), opts.Verbose)
	ctx, cancel := signalContext(cmd, logger)
	defer cancel()

	s, err := openSession(ctx, opts.Config, logger)
	if err != nil {
		return formatter.Fail("failed to open backends", err)
	}
	defer s.close()

	var extra []engine.Option
	if opts.SessionIDs != nil {
		extra = append(extra, engine.WithSessionIDs(opts.SessionIDs))
	}
	o, err := s.orchestrator(extra...)
	if err != nil {
		return formatter.Fail("invalid configuration", err)
	}
	formatter.VerboseLog("config: %s", opts.Config)

	defer s.logMetrics(formatter)

	if opts.Bindings {
		w, err := engine.ParseWindow(opts.From, opts.To)
		if err != nil {
			return formatter.Fail("invalid window", err)
		}
		res, err := o.RunBindings(ctx, queryText, w)
		if err != nil {
			return formatter.Fail("query failed", err)
		}
		out := bindingOutput(res)
		return formatter.SessionSuccess(res.SessionID, out, func(w io.Writer) {
			writeQueryText(w, out)
		})
	}

	res, err := o.Run(ctx, queryText, engine.RunOptions{At: opts.At})
	if err != nil {
		return formatter.Fail("query failed", err)
	}
	out := queryOutput(res)
	return formatter.SessionSuccess(res.SessionID, out, func(w io.Writer) {
		writeQueryText(w, out)
	})
}

func queryOutput(res *engine.Result) QueryResult {
	out := QueryResult{
		Variables: variableNames(res.Variables),
		Instants:  []string{},
		Rows:      map[string][][]*string{},
	}
	for _, at := range res.Instants {
		key := provenance.FormatInstant(at)
		out.Instants = append(out.Instants, key)
		rows := make([][]*string, len(res.Rows[key]))
		for i, tuple := range res.Rows[key] {
			rows[i] = encodeTerms(tuple)
		}
		out.Rows[key] = rows
	}
	return out
}

func bindingOutput(res *engine.BindingResult) QueryResult {
	out := QueryResult{
		Variables: variableNames(res.Variables),
		Instants:  []string{},
		Rows:      map[string][][]*string{},
		Excluded:  res.Excluded,
	}
	for key := range res.Bindings {
		out.Instants = append(out.Instants, key)
	}
	// Formatted instants sort chronologically
	sort.Strings(out.Instants)
	for _, key := range out.Instants {
		out.Rows[key] = encodeBindings(res.Bindings[key], res.Variables)
	}
	return out
}

func encodeBindings(rows []sparql.Binding, vars []rdf.Variable) [][]*string {
	out := make([][]*string, len(rows))
	for i, row := range rows {
		out[i] = encodeTerms(row.Tuple(vars))
	}
	return out
}

func encodeTerms(terms []rdf.Term) []*string {
	cells := make([]*string, len(terms))
	for i, t := range terms {
		if t == nil {
			continue
		}
		s := rdf.Encode(t)
		cells[i] = &s
	}
	return cells
}

func variableNames(vars []rdf.Variable) []string {
	out := make([]string, len(vars))
	for i, v := range vars {
		out[i] = string(v)
	}
	return out
}

// writeQueryText renders out as one tab-separated block per instant.
// Unbound variables are written as UNDEF.
func writeQueryText(w io.Writer, out QueryResult) {
	header := make([]string, len(out.Variables))
	for i, v := range out.Variables {
		header[i] = "?" + v
	}
	for _, at := range out.Instants {
		rows := out.Rows[at]
		fmt.Fprintf(w, "%s (%d %s)\n", at, len(rows), plural(len(rows), "row", "rows"))
		if len(rows) > 0 {
			fmt.Fprintf(w, "  %s\n", strings.Join(header, "\t"))
		}
		for _, row := range rows {
			cells := make([]string, len(row))
			for i, c := range row {
				if c == nil {
					cells[i] = "UNDEF"
				} else {
					cells[i] = *c
				}
			}
			fmt.Fprintf(w, "  %s\n", strings.Join(cells, "\t"))
		}
	}
	if len(out.Excluded) > 0 {
		fmt.Fprintf(w, "excluded: %s\n", strings.Join(out.Excluded, ", "))
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
