package outbox

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	txcontext "trustgate/pkg/platform/tx"
)

// PostgresSource claims outbox rows from PostgreSQL.
type PostgresSource struct {
	runner txcontext.Runner
}

// NewPostgresSource builds a source over the outbox table reached through runner.
func NewPostgresSource(db *sql.DB, runner txcontext.Runner) *PostgresSource {
	if runner == nil {
		runner = txcontext.NewSQLRunner(db, 0)
	}
	return &PostgresSource{runner: runner}
}

const claimQuery = `
	SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at
	FROM outbox
	WHERE published_at IS NULL
	ORDER BY created_at, id
	LIMIT $1
	FOR UPDATE SKIP LOCKED
`

const markPublishedQuery = `UPDATE outbox SET published_at = now() WHERE id = ANY($1::uuid[])`

func (s *PostgresSource) Process(ctx context.Context, limit int, publish func(ctx context.Context, entries []Entry) error) (int, error) {
	var published int
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		tx, ok := txcontext.From(txCtx)
		if !ok {
			return fmt.Errorf("outbox claim requires a transaction")
		}

		entries, err := claim(txCtx, tx, limit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		if err := publish(txCtx, entries); err != nil {
			return fmt.Errorf("publish outbox batch: %w", err)
		}

		ids := make([]string, len(entries))
		for i, e := range entries {
			ids[i] = e.ID.String()
		}
		if _, err := tx.ExecContext(txCtx, markPublishedQuery, pq.Array(ids)); err != nil {
			return fmt.Errorf("mark outbox published: %w", err)
		}
		published = len(entries)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return published, nil
}

func claim(ctx context.Context, tx *sql.Tx, limit int) ([]Entry, error) {
	rows, err := tx.QueryContext(ctx, claimQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("claim outbox rows: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox rows: %w", err)
	}
	return entries, nil
}
