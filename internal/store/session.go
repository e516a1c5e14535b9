package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kolkov/cowsim/internal/cow/simulator"
)

// Session summarizes one stored simulation run.
type Session struct {
	ID        string
	Name      string
	Policy    string
	CreatedAt time.Time
	Events    int
}

// CreateSession registers a new session and returns its ID, a UUIDv7.
func (s *Store) CreateSession(ctx context.Context, name, policy string) (string, error) {
	id := uuid.Must(uuid.NewV7()).String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, name, policy, created_at)
		VALUES (?, ?, ?, ?)
	`, id, name, policy, time.Now().UnixMilli())
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

// AppendEvents stores events for session in one transaction. Events whose
// sequence number is already stored are ignored, so appending the same batch
// twice is harmless. The session must exist.
func (s *Store) AppendEvents(ctx context.Context, session string, events []simulator.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append events: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events
		(session_id, seq, kind, op, view, outcome, record, parent, generation, views, stale)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("append events: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		_, err := stmt.ExecContext(ctx,
			session,
			int64(e.Seq),
			e.Access.Kind.String(),
			e.Access.Op,
			int64(e.Access.View),
			e.Outcome.String(),
			int64(e.Record),
			int64(e.Parent),
			int64(e.Generation), // bit pattern; uint64 above MaxInt64 is not storable as-is
			e.Views,
			e.Stale,
		)
		if err != nil {
			return fmt.Errorf("append events: seq %d: %w", e.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append events: %w", err)
	}
	return nil
}

// Events returns the events of session in sequence order.
func (s *Store) Events(ctx context.Context, session string) ([]simulator.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind, op, view, outcome, record, parent, generation, views, stale
		FROM events
		WHERE session_id = ?
		ORDER BY seq ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []simulator.Event
	for rows.Next() {
		var (
			seq, view, record, parent, gen int64
			kind, outcome                  string
			e                              simulator.Event
		)
		if err := rows.Scan(&seq, &kind, &e.Access.Op, &view, &outcome, &record, &parent, &gen, &e.Views, &e.Stale); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if e.Access.Kind, err = simulator.ParseAccessKind(kind); err != nil {
			return nil, fmt.Errorf("scan event %d: %w", seq, err)
		}
		if e.Outcome, err = simulator.ParseOutcome(outcome); err != nil {
			return nil, fmt.Errorf("scan event %d: %w", seq, err)
		}
		e.Seq = uint64(seq)
		e.Access.View = uint64(view)
		e.Record = uint64(record)
		e.Parent = uint64(parent)
		e.Generation = uint64(gen)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// Sessions lists stored sessions, oldest first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.policy, s.created_at, COUNT(e.seq)
		FROM sessions s
		LEFT JOIN events e ON e.session_id = s.id
		GROUP BY s.id
		ORDER BY s.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			sess      Session
			createdAt int64
		)
		if err := rows.Scan(&sess.ID, &sess.Name, &sess.Policy, &createdAt, &sess.Events); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.CreatedAt = time.UnixMilli(createdAt).UTC()
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}
