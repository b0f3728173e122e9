//go:build integration

package identity

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/suite"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"membergate/pkg/platform/sentinel"
)

const usersSchema = `
CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	identity_id   UUID NOT NULL UNIQUE,
	account_id    TEXT,
	email         TEXT UNIQUE,
	phone         TEXT UNIQUE,
	password_hash TEXT,
	created_at    TIMESTAMPTZ NOT NULL
)`

type PostgresUserStoreSuite struct {
	suite.Suite
	container *tcpostgres.PostgresContainer
	db        *sql.DB
	store     *PostgresUserStore
}

func TestPostgresUserStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresUserStoreSuite))
}

func (s *PostgresUserStoreSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("membergate_test"),
		tcpostgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.db, err = sql.Open("pgx", dsn)
	s.Require().NoError(err)
	_, err = s.db.ExecContext(ctx, usersSchema)
	s.Require().NoError(err)

	s.store = NewPostgresUserStore(s.db)
}

func (s *PostgresUserStoreSuite) TearDownSuite() {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *PostgresUserStoreSuite) SetupTest() {
	_, err := s.db.ExecContext(context.Background(), `TRUNCATE users`)
	s.Require().NoError(err)
}

func (s *PostgresUserStoreSuite) TestCreateAndLookup() {
	ctx := context.Background()

	created, err := s.store.Create(ctx, User{
		IdentityID: uuid.New(),
		AccountID:  "acme",
		Email:      "jdoe@example.com",
		Phone:      "2125550142",
	})
	s.Require().NoError(err)
	s.NotEqual(uuid.Nil, created.ID)

	byEmail, err := s.store.FindByEmail(ctx, "JDOE@example.com")
	s.Require().NoError(err)
	s.Equal(created.ID, byEmail.ID)

	byPhone, err := s.store.FindByPhone(ctx, "+1 212 555 0142")
	s.Require().Error(err)
	s.True(errors.Is(err, sentinel.ErrNotFound), "a leading country code normalizes to a different number")

	byPhone, err = s.store.FindByPhone(ctx, "212.555.0142")
	s.Require().NoError(err)
	s.Equal(created.ID, byPhone.ID)
}

func (s *PostgresUserStoreSuite) TestCreateDuplicateMapsToConflict() {
	ctx := context.Background()
	identityID := uuid.New()

	_, err := s.store.Create(ctx, User{IdentityID: identityID, Email: "dup@example.com"})
	s.Require().NoError(err)

	_, err = s.store.Create(ctx, User{IdentityID: identityID, Email: "other@example.com"})
	s.True(errors.Is(err, sentinel.ErrConflict), "duplicate identity_id must surface the conflict sentinel, got %v", err)

	_, err = s.store.Create(ctx, User{IdentityID: uuid.New(), Email: "dup@example.com"})
	s.True(errors.Is(err, sentinel.ErrConflict), "duplicate email must surface the conflict sentinel, got %v", err)
}

func (s *PostgresUserStoreSuite) TestCountByAccount() {
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := s.store.Create(ctx, User{IdentityID: uuid.New(), AccountID: "acme"})
		s.Require().NoError(err)
	}

	count, err := s.store.CountByAccount(ctx, "acme")
	s.Require().NoError(err)
	s.Equal(2, count)

	count, err = s.store.CountByAccount(ctx, "other")
	s.Require().NoError(err)
	s.Equal(0, count)
}
