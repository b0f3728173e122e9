package eligibility

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"membergate/pkg/platform/sentinel"
)

// PostgresStore reads the eligibility extract from PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const recordColumns = `eligible_id, account_id, member_id, first_name, last_name, birthday, COALESCE(email, ''), COALESCE(phone, '')`

func (s *PostgresStore) FindByID(ctx context.Context, eligibleID string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM eligibility WHERE eligible_id = $1`, eligibleID)
	return scanRecord(row)
}

func (s *PostgresStore) FindByMember(ctx context.Context, accountID, memberID string, birthday time.Time) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM eligibility
		 WHERE account_id = $1
		   AND regexp_replace(upper(member_id), '[^A-Z0-9]', '', 'g') = $2
		   AND birthday = $3::date`,
		accountID, NormalizeMemberID(memberID), birthday)
	return scanRecord(row)
}

func scanRecord(row *sql.Row) (Record, error) {
	var rec Record
	err := row.Scan(&rec.EligibleID, &rec.AccountID, &rec.MemberID,
		&rec.FirstName, &rec.LastName, &rec.Birthday, &rec.Email, &rec.Phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, sentinel.ErrNotFound
		}
		return Record{}, fmt.Errorf("scan eligibility record: %w", err)
	}
	return rec, nil
}
