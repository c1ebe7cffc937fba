package integration

import (
	"context"
	"testing"
	"time"

	"mixmatch/internal/config"
	"mixmatch/internal/store"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a manager test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	Config    config.DatabaseConfig
}

// SetupManagerDB creates a PostgreSQL test container with the manager schema
// the promotion store expects.
func SetupManagerDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("manager"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	host, err := postgresContainer.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := postgresContainer.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	dbConfig := config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "testuser",
		Password:        "testpass",
		Database:        "manager",
		MaxConnections:  5,
		MinConnections:  1,
		MaxConnLifetime: 300,
	}

	pool, err := store.NewPool(ctx, dbConfig, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	createSchema(t, pool)

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		Config:    dbConfig,
	}
}

// createSchema creates the manager tables the engine touches.
func createSchema(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	schema := `
		CREATE TABLE IF NOT EXISTS ACCIONESPROMOCION (
			IDPROMOCION INTEGER PRIMARY KEY,
			VALOR VARCHAR(255) NOT NULL
		);

		CREATE TABLE IF NOT EXISTS PROMOCIONES (
			IDPROMOCION INTEGER PRIMARY KEY,
			DESCRIPCION VARCHAR(255),
			FECHAINICIAL DATE,
			FECHAFINAL DATE
		);
	`

	_, err := pool.Exec(ctx, schema)
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
}

// SeedPromotions inserts the manager promotion rows used by the tests.
func SeedPromotions(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	actions := []struct {
		id    int
		valor string
	}{
		{677, "0,00|ART:COFFEE|DTO:100"},
		{678, "0,00"},
	}
	for _, a := range actions {
		_, err := pool.Exec(ctx,
			"INSERT INTO ACCIONESPROMOCION (IDPROMOCION, VALOR) VALUES ($1, $2)",
			a.id, a.valor,
		)
		if err != nil {
			t.Fatalf("failed to seed promotion action %d: %v", a.id, err)
		}
	}

	promotions := []struct {
		id          int
		description string
	}{
		{501, "Menu promotion"},
		{502, "Drink promotion"},
	}
	for _, p := range promotions {
		_, err := pool.Exec(ctx,
			"INSERT INTO PROMOCIONES (IDPROMOCION, DESCRIPCION, FECHAINICIAL, FECHAFINAL) VALUES ($1, $2, '2000-01-01', '2000-01-02')",
			p.id, p.description,
		)
		if err != nil {
			t.Fatalf("failed to seed promotion %d: %v", p.id, err)
		}
	}
}

// CleanupDB removes all rows from the manager tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	for _, table := range []string{"ACCIONESPROMOCION", "PROMOCIONES"} {
		if _, err := pool.Exec(ctx, "DELETE FROM "+table); err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}
