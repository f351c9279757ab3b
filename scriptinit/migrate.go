package scriptinit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/Station-Manager/dbinit/internal/log"
)

// MigrationsTable records the applied migration versions.
const MigrationsTable = "schema_migrations"

// MigrationInitializer applies versioned NNN_name.up.sql migrations found in
// Dir of FS, skipping the versions already recorded in MigrationsTable.
type MigrationInitializer struct {
	DB  *sql.DB
	FS  fs.FS
	Dir string
	// Separator splits a migration into statements. Empty means DefaultSeparator.
	Separator string
}

func NewMigrationInitializer(db *sql.DB, fsys fs.FS, dir string) *MigrationInitializer {
	return &MigrationInitializer{DB: db, FS: fsys, Dir: dir}
}

func (m *MigrationInitializer) Initialize() error {
	_, err := m.InitializeDatabase(context.Background())
	return err
}

// InitializeDatabase applies every pending migration in version order, each in
// its own transaction. It reports whether any migration was applied.
func (m *MigrationInitializer) InitializeDatabase(ctx context.Context) (bool, error) {
	if m.DB == nil {
		return false, ErrNoDatabase
	}
	if m.FS == nil {
		return false, ErrNoFilesystem
	}
	dir := m.Dir
	if dir == "" {
		dir = "."
	}

	src, err := iofs.New(m.FS, dir)
	if err != nil {
		return false, fmt.Errorf("open migrations %s: %w", dir, err)
	}
	defer src.Close()

	if _, err := m.DB.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+MigrationsTable+` (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`); err != nil {
		return false, fmt.Errorf("create %s: %w", MigrationsTable, err)
	}
	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return false, err
	}

	count := 0
	version, err := src.First()
	for ; err == nil; version, err = src.Next(version) {
		if applied[version] {
			continue
		}
		ran, applyErr := m.apply(ctx, src, version)
		if applyErr != nil {
			return count > 0, applyErr
		}
		if ran {
			count++
		}
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return count > 0, fmt.Errorf("read migrations %s: %w", dir, err)
	}

	if count > 0 {
		log.Info(log.CatScript, "migrations applied", "count", count, "dir", dir)
	}
	return count > 0, nil
}

// Versions returns the applied migration versions in ascending order.
func (m *MigrationInitializer) Versions(ctx context.Context) ([]uint, error) {
	rows, err := m.DB.QueryContext(ctx, `SELECT version FROM `+MigrationsTable+` ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", MigrationsTable, err)
	}
	defer rows.Close()

	var versions []uint
	for rows.Next() {
		var v uint
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (m *MigrationInitializer) appliedVersions(ctx context.Context) (map[uint]bool, error) {
	versions, err := m.Versions(ctx)
	if err != nil {
		return nil, err
	}
	applied := make(map[uint]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}

// apply runs the up migration of version. Versions with only a down file are skipped.
func (m *MigrationInitializer) apply(ctx context.Context, src source.Driver, version uint) (bool, error) {
	r, name, err := src.ReadUp(version)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read migration %d: %w", version, err)
	}
	body, err := io.ReadAll(r)
	r.Close()
	if err != nil {
		return false, fmt.Errorf("read migration %d: %w", version, err)
	}

	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	for i, stmt := range SplitStatements(string(body), m.Separator) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return false, fmt.Errorf("%w: migration %d_%s: statement %d: %w", ErrScriptFailed, version, name, i+1, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO `+MigrationsTable+` (version, name) VALUES (?, ?)`, int64(version), name); err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("record migration %d: %w", version, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit migration %d: %w", version, err)
	}
	log.Debug(log.CatScript, "migration applied", "version", version, "name", name)
	return true, nil
}
