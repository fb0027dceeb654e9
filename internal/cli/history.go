package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/opencitations/time-agnostic-library-sub000/internal/engine"
	"github.com/opencitations/time-agnostic-library-sub000/internal/history"
	"github.com/opencitations/time-agnostic-library-sub000/internal/provenance"
	"github.com/opencitations/time-agnostic-library-sub000/internal/rdf"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Config string
	Entity string
	At     string
}

// HistoryResult is the JSON payload of the history command.
type HistoryResult struct {
	Entity string        `json:"entity"`
	States []StateResult `json:"states"`
}

// StateResult is one reconstructed state.
type StateResult struct {
	At          string   `json:"at"`
	Snapshot    string   `json:"snapshot"`
	By          string   `json:"by,omitempty"`
	Description string   `json:"description,omitempty"`
	Deleted     bool     `json:"deleted,omitempty"`
	Triples     []string `json:"triples"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Reconstruct every recorded state of one entity",
		Long: `Reconstruct every recorded state of one entity.

The present triples of the entity are read from the dataset and its
snapshots from the provenance backend. Update statements are replayed
backwards to obtain the state at each snapshot. With --at only the state
in force at that instant is printed.

Examples:
  tal history --config tal.json --entity https://w3id.org/oc/meta/ar/1
  tal history --config tal.json --entity https://w3id.org/oc/meta/ar/1 --at 2021-06-01 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "path to JSON configuration (required)")
	cmd.Flags().StringVar(&opts.Entity, "entity", "", "IRI of the entity (required)")
	cmd.Flags().StringVar(&opts.At, "at", "", "print only the state in force at this instant")
	_ = cmd.MarkFlagRequired("config")
	_ = cmd.MarkFlagRequired("entity")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	logger := newLogger(formatter.GetErrWriter(), opts.Verbose)
	ctx, cancel := signalContext(cmd, logger)
	defer cancel()

	s, err := openSession(ctx, opts.Config, logger)
	if err != nil {
		return formatter.Fail("failed to open backends", err)
	}
	defer s.close()

	r := history.New(s.gateways.Dataset, s.gateways.Provenance, history.WithLogger(logger))
	entity := rdf.IRI(opts.Entity)

	h, err := r.History(ctx, entity)
	if err != nil {
		return formatter.Fail("history failed", err)
	}
	formatter.VerboseLog("%s: %d recorded states", opts.Entity, len(h.States))

	states := h.States
	if opts.At != "" {
		target, err := engine.ParseTarget(opts.At)
		if err != nil {
			return formatter.Fail("invalid instant", err)
		}
		st, ok := h.At(target)
		if !ok {
			e := &engine.NoSnapshotError{Target: target}
			if !h.Empty() {
				e.Earliest = h.States[0].At
			}
			return formatter.Fail("history failed", e)
		}
		states = []history.State{st}
	}

	out := HistoryResult{Entity: opts.Entity, States: make([]StateResult, len(states))}
	for i, st := range states {
		out.States[i] = stateResult(st)
	}
	return formatter.SessionSuccess("", out, func(w io.Writer) {
		writeHistoryText(w, out)
	})
}

func stateResult(st history.State) StateResult {
	res := StateResult{
		At:          provenance.FormatInstant(st.At),
		Snapshot:    string(st.Snapshot.IRI),
		By:          string(st.Snapshot.AttributedTo),
		Description: st.Snapshot.Description,
		Deleted:     st.Deleted(),
		Triples:     []string{},
	}
	for _, q := range st.Graph.Quads() {
		res.Triples = append(res.Triples, q.Triple.String()+" .")
	}
	return res
}

func writeHistoryText(w io.Writer, out HistoryResult) {
	if len(out.States) == 0 {
		fmt.Fprintf(w, "%s has no recorded provenance.\n", out.Entity)
		return
	}
	for _, st := range out.States {
		status := ""
		if st.Deleted {
			status = " [deleted]"
		}
		fmt.Fprintf(w, "%s %s%s\n", st.At, st.Snapshot, status)
		if st.Description != "" {
			fmt.Fprintf(w, "  # %s\n", st.Description)
		}
		for _, t := range st.Triples {
			fmt.Fprintf(w, "  %s\n", t)
		}
	}
}
