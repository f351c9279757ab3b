package scriptinit_test

import (
	"database/sql"
	"reflect"
	"slices"
	"testing"
	"testing/fstest"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Station-Manager/dbinit"
	"github.com/Station-Manager/dbinit/container"
	"github.com/Station-Manager/dbinit/detectors"
	"github.com/Station-Manager/dbinit/scriptinit"
)

// greetingRepository reads the table created by the script initializer when it is activated.
type greetingRepository struct {
	DB       *sql.DB `di.inject:"datasource"`
	greeting string
}

func (r *greetingRepository) DependsOnDatabaseInitialization() {}

func (r *greetingRepository) Initialize() error {
	return r.DB.QueryRow("SELECT text FROM greeting WHERE id = 1").Scan(&r.greeting)
}

func TestContainerActivatesRepositoryAfterScripts(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	fsys := fstest.MapFS{
		"schema.sql": {Data: []byte("CREATE TABLE greeting (id INTEGER PRIMARY KEY, text TEXT);")},
		"data.sql":   {Data: []byte("INSERT INTO greeting VALUES (1, 'hello');")},
	}
	settings := scriptinit.DefaultSettings()
	settings.SchemaLocations = []string{"schema.sql"}
	settings.DataLocations = []string{"data.sql"}

	cat := dbinit.NewCatalog()
	require.NoError(t, detectors.Register(cat))

	c := container.New()
	require.NoError(t, c.RegisterInstance("datasource", db))
	// Sorted first, so only the detected ordering keeps it behind the initializer.
	require.NoError(t, c.Register("aaa-repository", reflect.TypeOf(greetingRepository{})))
	require.NoError(t, c.RegisterInstance("zzz-scripts", scriptinit.NewScriptDatabaseInitializer(db, fsys, settings)))
	require.NoError(t, dbinit.Install(c, dbinit.WithCatalog(cat)))

	require.NoError(t, c.Build())

	repo, err := container.ResolveAs[*greetingRepository](c, "aaa-repository")
	require.NoError(t, err)
	assert.Equal(t, "hello", repo.greeting)

	order := c.ActivationOrder()
	assert.Less(t, slices.Index(order, "zzz-scripts"), slices.Index(order, "aaa-repository"))

	scripts, ok := c.Definition("zzz-scripts")
	require.True(t, ok)
	assert.Equal(t, dbinit.NameOf[detectors.TypeInitializerDetector](), scripts.DetectedBy)
}

func TestContainerActivatesRepositoryAfterMigrations(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	fsys := fstest.MapFS{
		"migrations/001_greeting.up.sql": {Data: []byte("CREATE TABLE greeting (id INTEGER PRIMARY KEY, text TEXT);")},
		"migrations/002_seed.up.sql":     {Data: []byte("INSERT INTO greeting VALUES (1, 'migrated');")},
	}

	cat := dbinit.NewCatalog()
	require.NoError(t, detectors.Register(cat))

	c := container.New()
	require.NoError(t, c.RegisterInstance("datasource", db))
	require.NoError(t, c.Register("aaa-repository", reflect.TypeOf(greetingRepository{})))
	require.NoError(t, c.RegisterInstance("zzz-migrations", scriptinit.NewMigrationInitializer(db, fsys, "migrations")))
	require.NoError(t, dbinit.Install(c, dbinit.WithCatalog(cat)))

	require.NoError(t, c.Build())

	repo, err := container.ResolveAs[*greetingRepository](c, "aaa-repository")
	require.NoError(t, err)
	assert.Equal(t, "migrated", repo.greeting)
}
