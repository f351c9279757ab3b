package scriptinit

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"reflect"
	"slices"
	"strings"

	"github.com/Station-Manager/dbinit/internal/log"
)

// ScriptDatabaseInitializer applies schema and data scripts read from FS to DB.
type ScriptDatabaseInitializer struct {
	DB       *sql.DB
	FS       fs.FS
	Settings Settings
}

// NewScriptDatabaseInitializer returns an initializer for db reading scripts from fsys.
func NewScriptDatabaseInitializer(db *sql.DB, fsys fs.FS, settings Settings) *ScriptDatabaseInitializer {
	return &ScriptDatabaseInitializer{DB: db, FS: fsys, Settings: settings}
}

// Initialize runs the scripts when the container activates the bean.
func (s *ScriptDatabaseInitializer) Initialize() error {
	_, err := s.InitializeDatabase(context.Background())
	return err
}

// InitializeDatabase applies the schema scripts then the data scripts. It
// reports whether any script was applied.
func (s *ScriptDatabaseInitializer) InitializeDatabase(ctx context.Context) (bool, error) {
	if s.DB == nil {
		return false, ErrNoDatabase
	}
	if s.FS == nil {
		return false, ErrNoFilesystem
	}
	if !s.enabled() {
		log.Debug(log.CatScript, "script initialization skipped", "mode", s.Settings.Mode)
		return false, nil
	}

	schema, err := s.resolve(s.Settings.SchemaLocations)
	if err != nil {
		return false, err
	}
	data, err := s.resolve(s.Settings.DataLocations)
	if err != nil {
		return false, err
	}

	scripts := slices.Concat(schema, data)
	for _, path := range scripts {
		if err := s.apply(ctx, path); err != nil {
			return false, err
		}
	}
	if len(scripts) > 0 {
		log.Info(log.CatScript, "database initialized", "schema", len(schema), "data", len(data))
	}
	return len(scripts) > 0, nil
}

func (s *ScriptDatabaseInitializer) enabled() bool {
	switch s.Settings.Mode {
	case ModeNever:
		return false
	case ModeAlways:
		return true
	default:
		return IsEmbedded(s.DB)
	}
}

// IsEmbedded reports whether db is served by an in-process SQLite driver.
func IsEmbedded(db *sql.DB) bool {
	if db == nil {
		return false
	}
	t := reflect.TypeOf(db.Driver())
	return t != nil && strings.Contains(strings.ToLower(t.String()), "sqlite")
}

// resolve expands the location patterns into script paths, in location order
// and lexical order within a location.
func (s *ScriptDatabaseInitializer) resolve(locations []string) ([]string, error) {
	var paths []string
	for _, location := range locations {
		pattern, optional := strings.CutPrefix(strings.TrimSpace(location), OptionalPrefix)
		if pattern == "" {
			continue
		}
		matches, err := fs.Glob(s.FS, pattern)
		if err != nil {
			return nil, fmt.Errorf("script location %q: %w", location, err)
		}
		if len(matches) == 0 {
			if optional {
				log.Debug(log.CatScript, "optional script location is empty", "location", pattern)
				continue
			}
			return nil, fmt.Errorf("%w '%s'", ErrScriptNotFound, pattern)
		}
		paths = append(paths, matches...)
	}
	return paths, nil
}

func (s *ScriptDatabaseInitializer) apply(ctx context.Context, path string) error {
	content, err := fs.ReadFile(s.FS, path)
	if err != nil {
		return fmt.Errorf("read script %s: %w", path, err)
	}

	stmts := SplitStatements(string(content), s.Settings.Separator)
	for i, stmt := range stmts {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			if s.Settings.ContinueOnError {
				log.Warn(log.CatScript, "statement failed", "script", path, "statement", i+1, "error", err.Error())
				continue
			}
			return fmt.Errorf("%w: %s: statement %d: %w", ErrScriptFailed, path, i+1, err)
		}
	}
	log.Debug(log.CatScript, "script applied", "script", path, "statements", len(stmts))
	return nil
}
