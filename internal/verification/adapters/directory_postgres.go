package adapters

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"trustgate/internal/verification/ports"
	id "trustgate/pkg/domain"
)

// PostgresDirectory reads owner profiles from account_profiles.
type PostgresDirectory struct {
	db *sql.DB
}

func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) Lookup(ctx context.Context, accountIDs []id.AccountID) (map[id.AccountID]ports.Owner, error) {
	out := make(map[id.AccountID]ports.Owner, len(accountIDs))
	if len(accountIDs) == 0 {
		return out, nil
	}
	ids := make([]string, len(accountIDs))
	for i, a := range accountIDs {
		ids[i] = a.String()
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT account_id, display_name, email FROM account_profiles WHERE account_id = ANY($1::uuid[])`,
		pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("lookup account profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			accountID uuid.UUID
			owner     ports.Owner
		)
		if err := rows.Scan(&accountID, &owner.DisplayName, &owner.Email); err != nil {
			return nil, fmt.Errorf("scan account profile: %w", err)
		}
		owner.AccountID = id.AccountID(accountID)
		out[owner.AccountID] = owner
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate account profiles: %w", err)
	}
	return out, nil
}

// Upsert writes a profile. Profiles are owned by the account service; this
// exists for seeding and tests.
func (d *PostgresDirectory) Upsert(ctx context.Context, owner ports.Owner) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO account_profiles (account_id, display_name, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id) DO UPDATE SET display_name = EXCLUDED.display_name, email = EXCLUDED.email
	`, uuid.UUID(owner.AccountID), owner.DisplayName, owner.Email)
	if err != nil {
		return fmt.Errorf("upsert account profile: %w", err)
	}
	return nil
}
