package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/opencitations/time-agnostic-library-sub000/internal/backend"
	"github.com/opencitations/time-agnostic-library-sub000/internal/config"
	"github.com/opencitations/time-agnostic-library-sub000/internal/dialect"
	"github.com/opencitations/time-agnostic-library-sub000/internal/engine"
	"github.com/opencitations/time-agnostic-library-sub000/internal/metrics"
)

// newLogger returns a text logger on w. Verbose output includes debug
// records.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

// signalContext returns a context canceled on SIGINT or SIGTERM. The
// command's context is used as parent when set (for testing).
func signalContext(cmd *cobra.Command, logger *slog.Logger) (context.Context, context.CancelFunc) {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("received signal, canceling", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// session bundles what a query or history command needs.
type session struct {
	cfg      *config.Config
	gateways *backend.Gateways
	registry *prometheus.Registry
	logger   *slog.Logger
}

// openSession loads the configuration at path and opens its backends.
func openSession(ctx context.Context, path string, logger *slog.Logger) (*session, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	gateways, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &session{
		cfg:      cfg,
		gateways: gateways,
		registry: prometheus.NewRegistry(),
		logger:   logger,
	}, nil
}

func (s *session) close() {
	if err := s.gateways.Close(); err != nil {
		s.logger.Error("error closing backends", "error", err)
	}
}

// orchestrator builds an orchestrator over the session backends. opts
// are applied after the configured ones.
func (s *session) orchestrator(opts ...engine.Option) (*engine.Orchestrator, error) {
	d, err := dialect.FromConfig(s.cfg)
	if err != nil {
		return nil, err
	}
	deps := engine.Deps{
		Dataset:    s.gateways.Dataset,
		Provenance: s.gateways.Provenance,
		Cache:      s.gateways.Cache,
		Dialect:    d,
	}
	opts = append([]engine.Option{
		engine.WithLogger(s.logger),
		engine.WithMetrics(metrics.New(s.registry)),
		engine.WithWorkers(s.cfg.WorkerThreshold, s.cfg.MaxWorkers),
	}, opts...)
	return engine.New(deps, opts...), nil
}

// logMetrics writes the counter and histogram totals of the session
// registry through the formatter's verbose log.
func (s *session) logMetrics(f *OutputFormatter) {
	if !f.Verbose {
		return
	}
	families, err := s.registry.Gather()
	if err != nil {
		f.VerboseLog("metrics unavailable: %v", err)
		return
	}
	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			label := ""
			for _, lp := range m.GetLabel() {
				label += fmt.Sprintf("{%s=%q}", lp.GetName(), lp.GetValue())
			}
			switch {
			case m.GetCounter() != nil:
				lines = append(lines, fmt.Sprintf("%s%s %g", mf.GetName(), label, m.GetCounter().GetValue()))
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				lines = append(lines, fmt.Sprintf("%s%s count=%d sum=%g", mf.GetName(), label, h.GetSampleCount(), h.GetSampleSum()))
			}
		}
	}
	sort.Strings(lines)
	for _, line := range lines {
		f.VerboseLog("metric %s", line)
	}
}
