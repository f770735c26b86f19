// Package dbtest starts throwaway catalog databases for tests.
package dbtest

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"csvcatalog/internal/database"
)

const (
	dbName = "database"
	dbPwd  = "password"
	dbUser = "user"
)

// shared is the PostgreSQL container of the current test binary
var shared = &postgresPool{start: startPostgresContainer}

// SQLiteConfig returns a config for a fresh SQLite file in the test's temp dir
func SQLiteConfig(t *testing.T) database.Config {
	t.Helper()
	return database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "catalog.db"),
	}
}

// PostgresConfig returns a config pointing at a fresh schema inside the
// package's shared PostgreSQL container. The container is started on first
// use; the test is skipped when no container runtime is available.
func PostgresConfig(t *testing.T) database.Config {
	t.Helper()
	return shared.config(t)
}

// RunMain runs the package's tests and terminates the shared container, if
// one was started. Use it from TestMain:
//
//	func TestMain(m *testing.M) { os.Exit(dbtest.RunMain(m)) }
func RunMain(m *testing.M) int {
	code := m.Run()
	if err := shared.close(context.Background()); err != nil {
		log.Printf("could not teardown postgres container: %v", err)
	}
	return code
}

// Open connects with cfg and closes the connection when the test ends
func Open(t *testing.T, cfg database.Config) *database.DB {
	t.Helper()
	db, err := database.New(cfg)
	require.NoError(t, err)
	require.NotNil(t, db)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type startFunc func(ctx context.Context) (database.Config, func(context.Context) error, error)

type postgresPool struct {
	start startFunc

	once      sync.Once
	base      database.Config
	terminate func(context.Context) error
	err       error
	schemas   atomic.Int64
}

func (p *postgresPool) config(t *testing.T) database.Config {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL test in short mode")
	}

	p.once.Do(func() {
		p.err = recoverPanic(func() error {
			var err error
			p.base, p.terminate, err = p.start(context.Background())
			return err
		})
	})
	if p.err != nil {
		t.Skipf("postgres unavailable: %v", p.err)
	}

	// one schema per test keeps tests apart inside the shared container
	schema := fmt.Sprintf("test_%d", p.schemas.Add(1))
	admin, err := database.New(p.base)
	require.NoError(t, err, "failed to connect to postgres container")
	defer func() { _ = admin.Close() }()

	_, err = admin.Exec(`CREATE SCHEMA ` + schema)
	require.NoError(t, err, "failed to create schema %s", schema)

	cfg := p.base
	cfg.Schema = schema
	return cfg
}

func (p *postgresPool) close(ctx context.Context) error {
	if p.terminate == nil {
		return nil
	}
	return p.terminate(ctx)
}

// recoverPanic runs fn and turns a panic into an error. testcontainers panics
// instead of failing when it cannot find a Docker host.
func recoverPanic(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("container runtime: %v", r)
		}
	}()
	return fn()
}

func startPostgresContainer(ctx context.Context) (database.Config, func(context.Context) error, error) {
	dbContainer, err := postgres.Run(
		ctx,
		"postgres:16-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		if dbContainer != nil {
			_ = dbContainer.Terminate(ctx)
		}
		return database.Config{}, nil, fmt.Errorf("starting postgres container: %w", err)
	}

	dbHost, err := dbContainer.Host(ctx)
	if err != nil {
		return database.Config{}, dbContainer.Terminate, fmt.Errorf("getting container host: %w", err)
	}

	dbPort, err := dbContainer.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return database.Config{}, dbContainer.Terminate, fmt.Errorf("getting container port: %w", err)
	}

	return database.Config{
		Driver:   database.DriverPostgres,
		Host:     dbHost,
		Port:     dbPort.Port(),
		Database: dbName,
		Username: dbUser,
		Password: dbPwd,
		Schema:   "public",
	}, dbContainer.Terminate, nil
}
