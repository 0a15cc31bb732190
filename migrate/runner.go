// Package migrate applies versioned SQL files from a file system, in order,
// under an optional advisory lock.
//
// Files are named <version>_<name>.<up|down>.sql at the root of the file
// system. Applied versions are recorded in a history table.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Migration describes a migration pair. Paths are relative to the runner's
// file system.
type Migration struct {
	Version  int
	Name     string
	UpPath   string
	DownPath string
}

// PlanEntry describes a migration and whether it has been applied.
type PlanEntry struct {
	Migration
	Applied bool
}

// Locker serializes runners sharing a database.
type Locker interface {
	Lock(context.Context, *sql.DB) error
	Unlock(context.Context, *sql.DB) error
}

// ErrLockTimeout indicates the lock was not acquired in time.
var ErrLockTimeout = errors.New("migration lock timeout")

var errNoDB = errors.New("db is required")

// AdvisoryLocker uses a PostgreSQL session advisory lock. A zero Timeout
// blocks until the lock is granted.
type AdvisoryLocker struct {
	ID           int64
	Timeout      time.Duration
	PollInterval time.Duration
}

// Lock acquires the advisory lock.
func (a AdvisoryLocker) Lock(ctx context.Context, db *sql.DB) error {
	if a.Timeout <= 0 {
		_, err := db.ExecContext(ctx, "SELECT pg_advisory_lock($1)", a.ID)
		return err
	}
	poll := a.PollInterval
	if poll <= 0 {
		poll = 200 * time.Millisecond
	}

	ctx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		var locked bool
		err := db.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", a.ID).Scan(&locked)
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return ErrLockTimeout
		case err != nil:
			return err
		case locked:
			return nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrLockTimeout
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Unlock releases the advisory lock.
func (a AdvisoryLocker) Unlock(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", a.ID)
	return err
}

// Runner executes the migrations found at the root of FS.
type Runner struct {
	DB     *sql.DB
	FS     fs.FS
	Table  string
	Locker Locker
	// Vars replaces {{name}} placeholders in migration bodies.
	Vars map[string]string
}

// New creates a Runner recording history in schema_migrations.
func New(db *sql.DB, fsys fs.FS) *Runner {
	return &Runner{DB: db, FS: fsys, Table: "schema_migrations"}
}

// List returns migrations found at the root of fsys, ordered by version.
func List(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}

	byVersion := make(map[int]*Migration)
	for _, entry := range entries {
		version, name, direction, ok := parseFileName(entry)
		if !ok {
			continue
		}
		m := byVersion[version]
		if m == nil {
			m = &Migration{Version: version, Name: name}
			byVersion[version] = m
		}
		if direction == "up" {
			m.UpPath = entry.Name()
		} else {
			m.DownPath = entry.Name()
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		migrations = append(migrations, *m)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

func parseFileName(entry fs.DirEntry) (version int, name, direction string, ok bool) {
	if entry.IsDir() {
		return 0, "", "", false
	}
	base, isSQL := strings.CutSuffix(entry.Name(), ".sql")
	if !isSQL {
		return 0, "", "", false
	}
	stem, direction, found := strings.Cut(base, ".")
	if !found || (direction != "up" && direction != "down") {
		return 0, "", "", false
	}
	digits, name, _ := strings.Cut(stem, "_")
	version, err := strconv.Atoi(digits)
	if err != nil {
		return 0, "", "", false
	}
	return version, name, direction, true
}

// Plan lists migrations, marking applied ones when a DB is configured.
func (r *Runner) Plan(ctx context.Context) ([]PlanEntry, error) {
	migrations, err := List(r.FS)
	if err != nil {
		return nil, err
	}
	applied := map[int]bool{}
	if r.DB != nil {
		if applied, err = r.history(ctx); err != nil {
			return nil, err
		}
	}

	plan := make([]PlanEntry, len(migrations))
	for i, m := range migrations {
		plan[i] = PlanEntry{Migration: m, Applied: applied[m.Version]}
	}
	return plan, nil
}

// Up applies all pending migrations and returns how many ran.
func (r *Runner) Up(ctx context.Context) (int, error) {
	count := 0
	err := r.locked(ctx, func(migrations []Migration, applied map[int]bool) error {
		for _, m := range migrations {
			if applied[m.Version] {
				continue
			}
			if m.UpPath == "" {
				return fmt.Errorf("missing up migration for version %d", m.Version)
			}
			if err := r.apply(ctx, m, true); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

// Down rolls back up to steps of the most recently applied migrations.
func (r *Runner) Down(ctx context.Context, steps int) (int, error) {
	if steps <= 0 {
		return 0, nil
	}
	count := 0
	err := r.locked(ctx, func(migrations []Migration, applied map[int]bool) error {
		for i := len(migrations) - 1; i >= 0 && count < steps; i-- {
			m := migrations[i]
			if !applied[m.Version] {
				continue
			}
			if m.DownPath == "" {
				return fmt.Errorf("missing down migration for version %d", m.Version)
			}
			if err := r.apply(ctx, m, false); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

// locked runs fn under the locker with the migration list and history.
func (r *Runner) locked(ctx context.Context, fn func([]Migration, map[int]bool) error) error {
	if r.DB == nil {
		return errNoDB
	}
	if r.Locker != nil {
		if err := r.Locker.Lock(ctx, r.DB); err != nil {
			return err
		}
		defer func() { _ = r.Locker.Unlock(context.WithoutCancel(ctx), r.DB) }()
	}

	migrations, err := List(r.FS)
	if err != nil {
		return err
	}
	applied, err := r.history(ctx)
	if err != nil {
		return err
	}
	return fn(migrations, applied)
}

func (r *Runner) history(ctx context.Context) (map[int]bool, error) {
	create := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (version bigint primary key, name text not null, applied_at timestamptz not null)`, r.Table)
	if _, err := r.DB.ExecContext(ctx, create); err != nil {
		return nil, err
	}

	rows, err := r.DB.QueryContext(ctx, fmt.Sprintf(`SELECT version FROM %s`, r.Table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := map[int]bool{}
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (r *Runner) apply(ctx context.Context, m Migration, up bool) error {
	file, record, args := m.UpPath, `INSERT INTO %s (version, name, applied_at) VALUES ($1, $2, $3)`, []any{m.Version, m.Name, time.Now().UTC()}
	if !up {
		file, record, args = m.DownPath, `DELETE FROM %s WHERE version = $1`, []any{m.Version}
	}
	contents, err := fs.ReadFile(r.FS, file)
	if err != nil {
		return err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, r.expand(string(contents))); err != nil {
		return fmt.Errorf("migration %d %s: %w", m.Version, file, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(record, r.Table), args...); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *Runner) expand(body string) string {
	if len(r.Vars) == 0 {
		return body
	}
	pairs := make([]string, 0, 2*len(r.Vars))
	for name, value := range r.Vars {
		pairs = append(pairs, "{{"+name+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(body)
}
