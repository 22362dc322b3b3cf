// Package termstore loads the prohibited-term catalog from PostgreSQL or
// from a configured list. The table schema is managed with embedded
// golang-migrate migrations:
//
//	prohibited_terms(term TEXT PRIMARY KEY, severity INT, enabled BOOL, ...)
package termstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/whisper/chatfilter/internal/moderation"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store reads and edits prohibited terms in PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a term store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to PostgreSQL with dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("termstore: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("termstore: ping: %w", err)
	}
	return NewStore(db), nil
}

// Migrate applies all pending schema migrations to the database at dsn.
func Migrate(dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("termstore: migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("termstore: migrate init: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("termstore: migrate up: %w", err)
	}
	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		log.Printf("[termstore] schema has no migrations applied")
	case err != nil:
		log.Printf("[termstore] read schema version: %v", err)
	default:
		log.Printf("[termstore] schema at version %d (dirty=%v)", version, dirty)
	}
	return nil
}

// Load returns every enabled term. Terms are returned as stored; the catalog
// normalizes them on reload.
func (s *Store) Load(ctx context.Context) ([]moderation.ProhibitedTerm, error) {
	const query = `
		SELECT term, severity
		FROM prohibited_terms
		WHERE enabled
		ORDER BY term`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("termstore: load: %w", err)
	}
	defer rows.Close()

	var terms []moderation.ProhibitedTerm
	for rows.Next() {
		var t moderation.ProhibitedTerm
		if err := rows.Scan(&t.Text, &t.Severity); err != nil {
			return nil, fmt.Errorf("termstore: scan: %w", err)
		}
		terms = append(terms, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("termstore: rows: %w", err)
	}
	return terms, nil
}

// Upsert inserts a term or updates the severity of an existing one.
func (s *Store) Upsert(ctx context.Context, term string, severity int) error {
	if term == "" {
		return fmt.Errorf("%w: empty term", ErrInvalidEntry)
	}

	const query = `
		INSERT INTO prohibited_terms (term, severity)
		VALUES ($1, $2)
		ON CONFLICT (term) DO UPDATE
		SET severity = EXCLUDED.severity, enabled = TRUE, updated_at = NOW()`

	if _, err := s.db.ExecContext(ctx, query, term, severity); err != nil {
		return fmt.Errorf("termstore: upsert: %w", err)
	}
	return nil
}

// Disable hides a term from Load without deleting it.
func (s *Store) Disable(ctx context.Context, term string) error {
	const query = `
		UPDATE prohibited_terms
		SET enabled = FALSE, updated_at = NOW()
		WHERE term = $1`

	if _, err := s.db.ExecContext(ctx, query, term); err != nil {
		return fmt.Errorf("termstore: disable: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
