package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"testing"
	"time"

	"ms-scheduling/internal/logger"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationFS, "sql")
	require.NoError(t, err)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file %s", name)
		}
	}
	assert.Equal(t, ups, downs)
	assert.Len(t, ups, 2)
}

func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() || os.Getenv("INTEGRATION") == "" {
		t.Skip("set INTEGRATION=1 to run against a Postgres container")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "scheduling",
				"POSTGRES_PASSWORD": "scheduling",
				"POSTGRES_DB":       "scheduling",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://scheduling:scheduling@%s:%s/scheduling?sslmode=disable", host, port.Port())
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	require.NoError(t, db.PingContext(ctx))
	return db
}

func TestRunMigrations_Postgres(t *testing.T) {
	db := startPostgres(t)
	runner := NewRunner(db, DefaultOptions(), logger.Discard())
	defer runner.Close()

	require.NoError(t, runner.RunMigrations())
	version, dirty, err := runner.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	var types int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM event_types").Scan(&types))
	assert.Equal(t, 7, types)

	// rerunning is a no-op
	require.NoError(t, runner.RunMigrations())

	require.NoError(t, runner.MigrateTo(SchemaVersion))
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM event_types").Scan(&types))
	assert.Zero(t, types)

	require.NoError(t, runner.MigrateDown())
	version, _, err = runner.Version()
	require.NoError(t, err)
	assert.Zero(t, version)
}

func TestRunMigrations_SchemaOnly(t *testing.T) {
	db := startPostgres(t)
	runner := NewRunner(db, MigrateOptions{AutoMigrate: true}, logger.Discard())
	defer runner.Close()

	require.NoError(t, runner.RunMigrations())
	version, _, err := runner.Version()
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)
}
