package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"membergate/pkg/platform/sentinel"
)

// PostgresStore reads accounts from PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByID(ctx context.Context, accountID string) (Account, error) {
	var a Account
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, requires_eligibility FROM accounts WHERE id = $1`, accountID).
		Scan(&a.ID, &a.Name, &a.RequiresEligibility)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, sentinel.ErrNotFound
		}
		return Account{}, fmt.Errorf("scan account: %w", err)
	}
	return a, nil
}
