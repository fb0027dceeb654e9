package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opencitations/time-agnostic-library-sub000/internal/store"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	Database string
}

// LoadResult is the payload of the load command.
type LoadResult struct {
	Database string   `json:"database"`
	Fixtures []string `json:"fixtures"`
	Quads    int      `json:"quads"`
}

// String renders the text output.
func (r LoadResult) String() string {
	return fmt.Sprintf("✓ Loaded %d fixture(s) into %s (%d quads)", len(r.Fixtures), r.Database, r.Quads)
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <fixture.yaml>...",
		Short: "Load YAML fixtures into a SQLite quad store",
		Long: `Load YAML dataset and provenance fixtures into a SQLite quad store.

The database is created if it doesn't exist. The same file can then be
named in the file_paths of both the dataset and the provenance sources.

Example:
  tal load --db ./tal.db ./fixtures/ar.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runLoad(opts *LoadOptions, fixtures []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	// Parse every fixture before touching the database
	parsed := make([]*store.Fixture, len(fixtures))
	for i, path := range fixtures {
		if _, err := os.Stat(path); err != nil {
			return formatter.Fail("fixture not found", err)
		}
		f, err := store.ReadFixture(path)
		if err != nil {
			if outErr := formatter.Error(ErrCodeLoadFailed, fmt.Sprintf("%s: %v", path, err), nil); outErr != nil {
				return outErr
			}
			return WrapExitError(ExitCommandError, "invalid fixture "+path, err)
		}
		parsed[i] = f
	}

	logger := newLogger(formatter.GetErrWriter(), opts.Verbose)
	ctx, cancel := signalContext(cmd, logger)
	defer cancel()

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail("failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	for i, f := range parsed {
		formatter.VerboseLog("loading %s", fixtures[i])
		if err := st.LoadFixture(ctx, f); err != nil {
			return formatter.Fail("failed to load "+fixtures[i], err)
		}
	}

	n, err := st.Len(ctx)
	if err != nil {
		return formatter.Fail("failed to count quads", err)
	}
	return formatter.Success(LoadResult{Database: opts.Database, Fixtures: fixtures, Quads: n})
}
