package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"membergate/pkg/platform/sentinel"
	"membergate/pkg/requestcontext"
)

// PostgresStore reads the identity graph from PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// SQLSTATE raised by the pgx driver on unique index violations.
const uniqueViolation = "23505"

const identityColumns = `id, first_name, last_name, zip_code, birthday, COALESCE(eligible_id, '')`

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (Identity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
	return scanIdentity(row)
}

func (s *PostgresStore) FindByAttributes(ctx context.Context, attrs Attributes) (Identity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities
		 WHERE lower(first_name) = lower($1)
		   AND lower(last_name) = lower($2)
		   AND zip_code = $3
		   AND birthday = $4::date`,
		attrs.FirstName, attrs.LastName, attrs.ZipCode, attrs.Birthday)
	return scanIdentity(row)
}

func (s *PostgresStore) FindByEligibleID(ctx context.Context, eligibleID string) (Identity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE eligible_id = $1`, eligibleID)
	return scanIdentity(row)
}

func (s *PostgresStore) Create(ctx context.Context, ident Identity) (Identity, error) {
	if ident.ID == uuid.Nil {
		ident.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO identities (id, first_name, last_name, zip_code, birthday, eligible_id)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))`,
		ident.ID, ident.FirstName, ident.LastName, ident.ZipCode, ident.Birthday, ident.EligibleID)
	if err != nil {
		return Identity{}, fmt.Errorf("create identity: %w", err)
	}
	return ident, nil
}

func scanIdentity(row *sql.Row) (Identity, error) {
	var ident Identity
	err := row.Scan(&ident.ID, &ident.FirstName, &ident.LastName, &ident.ZipCode, &ident.Birthday, &ident.EligibleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Identity{}, sentinel.ErrNotFound
		}
		return Identity{}, fmt.Errorf("scan identity: %w", err)
	}
	return ident, nil
}

// PostgresUserStore persists logins in PostgreSQL.
type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

const userColumns = `id, identity_id, COALESCE(account_id, ''), COALESCE(email, ''), COALESCE(phone, ''), COALESCE(password_hash, ''), created_at`

func (s *PostgresUserStore) FindByEmail(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}

func (s *PostgresUserStore) FindByPhone(ctx context.Context, phone string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE regexp_replace(phone, '\D', '', 'g') = $1`, NormalizePhone(phone))
	return scanUser(row)
}

func (s *PostgresUserStore) FindByIdentity(ctx context.Context, identityID uuid.UUID) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE identity_id = $1`, identityID)
	return scanUser(row)
}

func (s *PostgresUserStore) CountByAccount(ctx context.Context, accountID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE account_id = $1`, accountID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count users by account: %w", err)
	}
	return count, nil
}

func (s *PostgresUserStore) Create(ctx context.Context, user User) (User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = requestcontext.Now(ctx)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, identity_id, account_id, email, phone, password_hash, created_at)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7)`,
		user.ID, user.IdentityID, user.AccountID, user.Email, user.Phone, user.PasswordHash, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, sentinel.ErrConflict
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.IdentityID, &u.AccountID, &u.Email, &u.Phone, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, sentinel.ErrNotFound
		}
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// PostgresPatientStore reads patient contact records from PostgreSQL.
type PostgresPatientStore struct {
	db *sql.DB
}

func NewPostgresPatientStore(db *sql.DB) *PostgresPatientStore {
	return &PostgresPatientStore{db: db}
}

func (s *PostgresPatientStore) FindByIdentity(ctx context.Context, identityID uuid.UUID) (Patient, error) {
	var p Patient
	err := s.db.QueryRowContext(ctx,
		`SELECT id, identity_id, COALESCE(email, ''), COALESCE(phone, '')
		 FROM patients WHERE identity_id = $1`, identityID).
		Scan(&p.ID, &p.IdentityID, &p.Email, &p.Phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Patient{}, sentinel.ErrNotFound
		}
		return Patient{}, fmt.Errorf("scan patient: %w", err)
	}
	return p, nil
}

// PostgresLeadStore reads call-center leads from PostgreSQL.
type PostgresLeadStore struct {
	db *sql.DB
}

func NewPostgresLeadStore(db *sql.DB) *PostgresLeadStore {
	return &PostgresLeadStore{db: db}
}

func (s *PostgresLeadStore) FindByID(ctx context.Context, leadID string) (Lead, error) {
	var l Lead
	var phones pq.StringArray
	err := s.db.QueryRowContext(ctx,
		`SELECT id, phones FROM leads WHERE id = $1`, leadID).Scan(&l.ID, &phones)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Lead{}, sentinel.ErrNotFound
		}
		return Lead{}, fmt.Errorf("scan lead: %w", err)
	}
	l.Phones = []string(phones)
	return l, nil
}
