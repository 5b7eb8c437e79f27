package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// querier is the statement surface shared by *sql.DB and *sql.Conn. The
// store runs on the pool until a pipeline run authorizes writes, then on
// the single pinned session holding the write token.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Store wraps the PostgreSQL connection shared by every pipeline component.
// The database is the only resource shared between pipeline processes.
type Store struct {
	db   *sql.DB
	conn *sql.Conn
	q    querier
}

// Open connects, pings and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s := &Store{db: db, q: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	slog.Info("postgres store initialized")
	return s, nil
}

func (s *Store) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	return s.db.Close()
}

// AuthorizePipelineWrites pins one connection, sets the session token the
// canonical-table trigger checks, and routes every later statement through
// that connection. The token is a session GUC: set through the pool it
// would stick to whichever connection happened to run it while later
// statements check out unauthorized ones.
func (s *Store) AuthorizePipelineWrites(ctx context.Context) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("authorize pipeline writes: %w", err)
	}
	if _, err := conn.ExecContext(ctx, `SELECT set_config('app.pipeline_write', 'on', false)`); err != nil {
		conn.Close()
		return fmt.Errorf("authorize pipeline writes: %w", err)
	}
	s.conn = conn
	s.q = conn
	return nil
}

// RefreshViews rebuilds the materialized consumer views. Runs after every
// validation or maintenance pass.
func (s *Store) RefreshViews(ctx context.Context) error {
	for _, view := range []string{"team_rankings", "recent_form"} {
		if _, err := s.q.ExecContext(ctx, fmt.Sprintf("REFRESH MATERIALIZED VIEW %s", view)); err != nil {
			return fmt.Errorf("refresh %s: %w", view, err)
		}
	}
	return nil
}

// CurrentSeason returns the single season flagged is_current.
func (s *Store) CurrentSeason(ctx context.Context) (*Season, error) {
	var season Season
	err := s.q.QueryRowContext(ctx, `
		SELECT id, year, start_date, end_date
		FROM seasons WHERE is_current = true`,
	).Scan(&season.ID, &season.Year, &season.StartDate, &season.EndDate)
	if err != nil {
		return nil, fmt.Errorf("load current season: %w", err)
	}
	return &season, nil
}
