package verification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"membergate/pkg/platform/sentinel"
	"membergate/pkg/requestcontext"
)

// PostgresStore persists verification records in PostgreSQL. Ids come from
// the table's bigserial sequence; NextFakeID draws nextval on that same
// sequence so fake ids interleave with real ones.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const verificationColumns = `id, type, COALESCE(subject, ''), code, COALESCE(email, ''), COALESCE(sms, ''), COALESCE(call, ''), attempts, created_at`

func (s *PostgresStore) Create(ctx context.Context, rec Record) (Record, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = requestcontext.Now(ctx)
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO verifications (type, subject, code, email, sms, call, attempts, created_at)
		 VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), 0, $7)
		 RETURNING id`,
		rec.Type, rec.Subject, rec.Code, rec.Email, rec.SMS, rec.Call, rec.CreatedAt).
		Scan(&rec.ID)
	if err != nil {
		return Record{}, fmt.Errorf("create verification: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+verificationColumns+` FROM verifications WHERE id = $1`, id)
	return scanVerification(row)
}

func (s *PostgresStore) FindByIDAndCode(ctx context.Context, id int64, code string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+verificationColumns+` FROM verifications WHERE id = $1 AND code = $2`, id, code)
	return scanVerification(row)
}

// IncrementAttempts bumps the counter atomically; the guarded UPDATE is what
// keeps two concurrent deliveries from both observing attempts under the cap.
func (s *PostgresStore) IncrementAttempts(ctx context.Context, id int64, max int) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE verifications SET attempts = attempts + 1
		 WHERE id = $1 AND attempts < $2
		 RETURNING `+verificationColumns, id, max)
	rec, err := scanVerification(row)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return Record{}, err
	}

	// Distinguish a missing record from an exhausted one.
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM verifications WHERE id = $1)`, id).Scan(&exists); err != nil {
		return Record{}, fmt.Errorf("check verification exists: %w", err)
	}
	if exists {
		return Record{}, sentinel.ErrInvalidState
	}
	return Record{}, sentinel.ErrNotFound
}

func (s *PostgresStore) NextFakeID(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT nextval(pg_get_serial_sequence('verifications', 'id'))`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("next fake verification id: %w", err)
	}
	return id, nil
}

func scanVerification(row *sql.Row) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.Type, &rec.Subject, &rec.Code,
		&rec.Email, &rec.SMS, &rec.Call, &rec.Attempts, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, sentinel.ErrNotFound
		}
		return Record{}, fmt.Errorf("scan verification: %w", err)
	}
	return rec, nil
}
