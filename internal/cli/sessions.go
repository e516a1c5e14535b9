package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kolkov/cowsim/internal/cow/simulator"
	"github.com/kolkov/cowsim/internal/store"
)

// SessionsOptions holds flags for the sessions command.
type SessionsOptions struct {
	*RootOptions
	Database string
	Session  string // optional - show events of one session
}

// SessionOutput is the JSON form of one stored session.
type SessionOutput struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Policy    string    `json:"policy"`
	CreatedAt time.Time `json:"created_at"`
	Events    int       `json:"events"`
}

// NewSessionsCommand creates the sessions command.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List stored simulation sessions",
		Long: `List the sessions stored by "cowsim replay --db", oldest first, or print the
events of one session.

Examples:
  cowsim sessions --db ./cowsim.db
  cowsim sessions --db ./cowsim.db --session 0192f0c1-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessions(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "print the events of this session")

	return cmd
}

func runSessions(ctx context.Context, opts *SessionsOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.Session != "" {
		events, err := st.Events(ctx, opts.Session)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read events", err)
		}
		return outputEvents(cmd, opts, events)
	}

	sessions, err := st.Sessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}

	if opts.Format == "json" {
		out := make([]SessionOutput, 0, len(sessions))
		for _, s := range sessions {
			out = append(out, SessionOutput(s))
		}
		return writeJSON(cmd.OutOrStdout(), out)
	}

	if len(sessions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions found in database.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPOLICY\tEVENTS\tCREATED")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", s.ID, s.Name, s.Policy, s.Events, s.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

// EventOutput is the JSON form of one stored event.
type EventOutput struct {
	Seq        uint64 `json:"seq"`
	Kind       string `json:"kind"`
	Op         string `json:"op"`
	View       uint64 `json:"view"`
	Outcome    string `json:"outcome"`
	Record     uint64 `json:"record"`
	Parent     uint64 `json:"parent,omitempty"`
	Generation uint64 `json:"generation"`
	Views      int64  `json:"views"`
	Stale      bool   `json:"stale,omitempty"`
}

func outputEvents(cmd *cobra.Command, opts *SessionsOptions, events []simulator.Event) error {
	if opts.Format == "json" {
		out := make([]EventOutput, 0, len(events))
		for _, e := range events {
			out = append(out, EventOutput{
				Seq:        e.Seq,
				Kind:       e.Access.Kind.String(),
				Op:         e.Access.Op,
				View:       e.Access.View,
				Outcome:    e.Outcome.String(),
				Record:     e.Record,
				Parent:     e.Parent,
				Generation: e.Generation,
				Views:      e.Views,
				Stale:      e.Stale,
			})
		}
		return writeJSON(cmd.OutOrStdout(), out)
	}

	if len(events) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No events found for session %s.\n", opts.Session)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tKIND\tOP\tVIEW\tOUTCOME\tRECORD\tGENERATION\tVIEWS")
	for _, e := range events {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%d\t%d\t%d\n",
			e.Seq, e.Access.Kind, e.Access.Op, e.Access.View, e.Outcome, e.Record, e.Generation, e.Views)
	}
	return w.Flush()
}
