package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"salon-booking/internal/apperr"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store is the Postgres-backed persistence gateway.
type Store struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

// New wraps pool. loc is the salon time zone that stored dates and clock
// times are interpreted in.
func New(pool *pgxpool.Pool, loc *time.Location) *Store {
	if loc == nil {
		loc = time.Local
	}
	return &Store{pool: pool, loc: loc}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func migrator(pool *pgxpool.Pool) (*migrate.Migrate, error) {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migrations source: %w", err)
	}
	driver, err := pgxmigrate.WithInstance(stdlib.OpenDBFromPool(pool), &pgxmigrate.Config{})
	if err != nil {
		return nil, fmt.Errorf("migrations driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return m, nil
}

// Migrate applies every pending up migration.
func Migrate(pool *pgxpool.Pool) error {
	m, err := migrator(pool)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// MigrateDown rolls back steps migrations.
func MigrateDown(pool *pgxpool.Pool, steps int) error {
	m, err := migrator(pool)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// MigrationVersion reports the applied version and whether it is dirty.
func MigrationVersion(pool *pgxpool.Pool) (uint, bool, error) {
	m, err := migrator(pool)
	if err != nil {
		return 0, false, err
	}
	defer m.Close()
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

var conflictMessages = map[string]string{
	"events_slot_key": "this professional is already booked at that time",
	"users_email_key": "email already registered",
}

// mapErr converts driver errors into apperr kinds. what names the missing
// entity for not-found errors.
func mapErr(op, what string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(what + " not found")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			msg, ok := conflictMessages[pgErr.ConstraintName]
			if !ok {
				msg = "already exists"
			}
			return apperr.Conflict(msg)
		case "23503": // foreign_key_violation
			return apperr.NotFound("user not found")
		case "22P02": // invalid_text_representation, e.g. a malformed uuid
			return apperr.NotFound(what + " not found")
		}
	}
	return apperr.Storage(op, err)
}
