package cli

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kolkov/cowsim/internal/cow/metrics"
	"github.com/kolkov/cowsim/internal/cow/report"
	"github.com/kolkov/cowsim/internal/cow/simulator"
	"github.com/kolkov/cowsim/internal/store"
	"github.com/kolkov/cowsim/internal/trace"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database    string
	Policy      string
	Report      bool
	Stacks      bool
	SampleRate  uint64
	MetricsFile string
	Jobs        int
}

// ReplayOutput is the JSON form of the replay command.
type ReplayOutput struct {
	Results  []*trace.Result `json:"results"`
	Sessions []string        `json:"sessions,omitempty"`
	Passed   bool            `json:"passed"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <trace.yaml>...",
		Short: "Replay access traces through the copy-on-write simulator",
		Long: `Replay one or more access traces, each with its own simulator, and check
the final shadow state against the trace's expectations.

Traces are replayed concurrently. With --db, every replay is stored as a
session together with its events.

Exit codes:
  0 - All expectations met
  1 - At least one expectation failed
  2 - Command error (unreadable trace, database error, etc.)

Examples:
  cowsim replay traces/*.yaml
  cowsim replay --policy always --report trace.yaml
  cowsim replay --db ./cowsim.db --format json trace.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "store sessions and events in this SQLite database")
	cmd.Flags().StringVar(&opts.Policy, "policy", "", "override the trace policy (shared-writes|always|never)")
	cmd.Flags().BoolVar(&opts.Report, "report", false, "print divergence reports to stderr")
	cmd.Flags().BoolVar(&opts.Stacks, "stacks", false, "capture access-site stacks in divergence reports")
	cmd.Flags().Uint64Var(&opts.SampleRate, "sample-rate", 1, "capture one stack in N divergence reports")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this file after the replay")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", runtime.GOMAXPROCS(0), "maximum number of traces replayed concurrently")

	return cmd
}

func runReplay(ctx context.Context, opts *ReplayOptions, cmd *cobra.Command, paths []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if opts.Policy != "" {
		if _, err := simulator.ParsePolicy(opts.Policy); err != nil {
			return WrapExitError(ExitCommandError, "invalid --policy", err)
		}
	}
	if opts.Jobs < 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid --jobs %d: must be at least 1", opts.Jobs))
	}

	var recorder *report.Recorder
	if opts.Report {
		recorder = report.NewRecorder(report.Config{
			Output:        cmd.ErrOrStderr(),
			CaptureStacks: opts.Stacks,
			SampleRate:    opts.SampleRate,
		})
	}

	results := make([]*trace.Result, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Jobs)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tr, err := trace.Load(path)
			if err != nil {
				return err
			}

			replayOpts := trace.Options{
				Policy:    opts.Policy,
				Observers: []simulator.Observer{metrics.NewObserver(tr.Name)},
			}
			if recorder != nil {
				replayOpts.Observers = append(replayOpts.Observers, recorder)
			}
			if opts.Verbose {
				replayOpts.Logger = logger
			}

			res, err := trace.Replay(tr, replayOpts)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			logger.Debug("trace replayed", "path", path, "events", len(res.Events), "passed", res.Passed())
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return WrapExitError(ExitCommandError, "failed to replay traces", err)
	}

	var sessions []string
	if opts.Database != "" {
		var err error
		if sessions, err = persist(ctx, opts.Database, results); err != nil {
			return err
		}
	}

	if opts.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.MetricsFile, prometheus.DefaultGatherer); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
	}

	if recorder != nil {
		recorder.Summary(cmd.ErrOrStderr())
	}

	failed := 0
	for _, res := range results {
		if !res.Passed() {
			failed++
		}
	}

	if opts.Format == "json" {
		if err := writeJSON(cmd.OutOrStdout(), ReplayOutput{
			Results:  results,
			Sessions: sessions,
			Passed:   failed == 0,
		}); err != nil {
			return err
		}
	} else {
		for i, res := range results {
			if i > 0 {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			if err := res.WriteText(cmd.OutOrStdout()); err != nil {
				return WrapExitError(ExitCommandError, "failed to write output", err)
			}
			if i < len(sessions) {
				fmt.Fprintf(cmd.OutOrStdout(), "session: %s\n", sessions[i])
			}
		}
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d trace(s) failed expectations", failed, len(results)))
	}
	return nil
}

// persist stores every result as a session and returns the session IDs in
// result order.
func persist(ctx context.Context, path string, results []*trace.Result) ([]string, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	sessions := make([]string, 0, len(results))
	for _, res := range results {
		id, err := st.CreateSession(ctx, res.Name, res.Policy)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to store session", err)
		}
		if err := st.AppendEvents(ctx, id, res.SimEvents); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to store events", err)
		}
		sessions = append(sessions, id)
	}
	return sessions, nil
}
