package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"
)

// fakeQuerier stands in for the pinned session so routing is testable
// without a database.
type fakeQuerier struct {
	execs []string
}

func (f *fakeQuerier) ExecContext(_ context.Context, query string, _ ...any) (sql.Result, error) {
	f.execs = append(f.execs, query)
	return fakeResult{}, nil
}

func (f *fakeQuerier) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeQuerier) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

func (f *fakeQuerier) BeginTx(context.Context, *sql.TxOptions) (*sql.Tx, error) {
	return nil, errors.New("not implemented")
}

type fakeResult struct{}

func (fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (fakeResult) RowsAffected() (int64, error) { return 1, nil }

// Canonical writes must run on the store's session querier. After
// AuthorizePipelineWrites swaps it for the pinned connection, the write
// token travels with every statement; a statement issued on the pool
// would reach the trigger unauthorized.
func TestWritesRunOnSessionQuerier(t *testing.T) {
	q := &fakeQuerier{}
	s := &Store{q: q}
	ctx := context.Background()

	if err := s.SoftDeleteMatch(ctx, 7, "duplicate"); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkProcessed(ctx, []string{"gotsport-38221-1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetRatingWatermark(ctx, time.Date(2026, 4, 12, 20, 0, 0, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}

	if len(q.execs) != 3 {
		t.Fatalf("session querier saw %d statements, want 3", len(q.execs))
	}
	if !strings.Contains(q.execs[0], "UPDATE matches") {
		t.Errorf("first statement = %q", q.execs[0])
	}
}
