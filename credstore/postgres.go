package credstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/shoenig/go-conceal"

	"github.com/devmarvs/digibank/db"
	"github.com/devmarvs/digibank/migrate"
)

const DefaultPostgresTable = "digibank_credentials"

// migrationLockID keys the advisory lock held while migrating.
const migrationLockID int64 = 0x64696769

//go:embed migrations/*.sql
var migrationFS embed.FS

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PostgresOptions configures a Postgres-backed store.
type PostgresOptions struct {
	DB      *sql.DB
	Profile string
	Table   string
	Timeout time.Duration
	Logger  *slog.Logger
}

// PostgresStore keeps the token pair in one row per profile.
type PostgresStore struct {
	raw     *sql.DB
	conn    db.Conn
	profile string
	table   string
	timeout time.Duration
}

// NewPostgresStore builds a Postgres-backed store.
func NewPostgresStore(options PostgresOptions) (*PostgresStore, error) {
	if options.DB == nil {
		return nil, errors.New("credstore: postgres db is required")
	}
	if options.Profile == "" {
		return nil, errors.New("credstore: profile is required")
	}
	table := strings.TrimSpace(options.Table)
	if table == "" {
		table = DefaultPostgresTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("credstore: invalid postgres table name: %s", table)
	}
	return &PostgresStore{
		raw:     options.DB,
		conn:    db.WithQueryHook(options.DB, db.SlogHook(options.Logger)),
		profile: options.Profile,
		table:   table,
		timeout: options.Timeout,
	}, nil
}

// Migrations returns a runner for the credentials schema. Every store
// sharing a table shares its migration history.
func (s *PostgresStore) Migrations() *migrate.Runner {
	return Migrations(s.raw, s.table)
}

// Migrations returns a runner for the credentials schema in table.
func Migrations(conn *sql.DB, table string) *migrate.Runner {
	if table == "" {
		table = DefaultPostgresTable
	}
	sub, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		panic(err)
	}
	runner := migrate.New(conn, sub)
	runner.Table = table + "_migrations"
	runner.Vars = map[string]string{"table": table}
	runner.Locker = migrate.AdvisoryLocker{ID: migrationLockID, Timeout: 30 * time.Second}
	return runner
}

// Migrate applies pending schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.Migrations().Up(ctx)
	return err
}

func (s *PostgresStore) Store(ctx context.Context, pair TokenPair) error {
	if !pair.Complete() {
		return errors.New("credstore: token pair is incomplete")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(`INSERT INTO %s (profile, access_token, refresh_token, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (profile) DO UPDATE
		SET access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			updated_at = EXCLUDED.updated_at`, s.table)
	if _, err := s.conn.ExecContext(ctx, query, s.profile, pair.Access.Unveil(), pair.Refresh.Unveil()); err != nil {
		return fmt.Errorf("credstore: postgres upsert: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (TokenPair, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf("SELECT access_token, refresh_token FROM %s WHERE profile = $1", s.table)
	var rec record
	err := s.conn.QueryRowContext(ctx, query, s.profile).Scan(&rec.AccessToken, &rec.RefreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TokenPair{}, ErrNotFound
		}
		return TokenPair{}, fmt.Errorf("credstore: postgres select: %w", err)
	}
	return fromRecord(rec)
}

func (s *PostgresStore) AccessToken(ctx context.Context) (*conceal.Text, error) {
	return accessToken(s.Load(ctx))
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf("DELETE FROM %s WHERE profile = $1", s.table)
	if _, err := s.conn.ExecContext(ctx, query, s.profile); err != nil {
		return fmt.Errorf("credstore: postgres delete: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *PostgresStore) Close() error {
	return s.raw.Close()
}

func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}
