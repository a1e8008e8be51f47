// Package testutil provides testing utilities for the registry service.
// It includes testcontainers for PostgreSQL, mock factories, and common
// test fixtures.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// IntegrationEnvVar gates the integration suite. Container-backed tests are
// skipped unless it is set to "1".
const IntegrationEnvVar = "REGISTRY_INTEGRATION_TESTS"

// SkipUnlessIntegration skips the calling test unless integration tests are
// enabled via REGISTRY_INTEGRATION_TESTS=1.
func SkipUnlessIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv(IntegrationEnvVar) != "1" {
		t.Skipf("set %s=1 to run integration tests", IntegrationEnvVar)
	}
}

// PostgresContainer wraps a testcontainers PostgreSQL instance
type PostgresContainer struct {
	*postgres.PostgresContainer
	DSN string
}

// PostgresContainerConfig configures the test PostgreSQL container
type PostgresContainerConfig struct {
	Database string
	Username string
	Password string
	Image    string // Optional: defaults to postgres:15-alpine
}

// DefaultPostgresConfig returns sensible defaults for test containers
func DefaultPostgresConfig() PostgresContainerConfig {
	return PostgresContainerConfig{
		Database: "registry_test",
		Username: "test",
		Password: "test",
		Image:    "postgres:15-alpine",
	}
}

// NewPostgresContainer creates a new PostgreSQL test container.
//
// Usage:
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    container, err := testutil.NewPostgresContainer(ctx, testutil.DefaultPostgresConfig())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer container.Terminate(ctx)
//
//	    // Run tests
//	    code := m.Run()
//	    os.Exit(code)
//	}
func NewPostgresContainer(ctx context.Context, cfg PostgresContainerConfig) (*PostgresContainer, error) {
	if cfg.Image == "" {
		cfg.Image = "postgres:15-alpine"
	}
	if cfg.Database == "" {
		cfg.Database = "registry_test"
	}
	if cfg.Username == "" {
		cfg.Username = "test"
	}
	if cfg.Password == "" {
		cfg.Password = "test"
	}

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(cfg.Image),
		postgres.WithDatabase(cfg.Database),
		postgres.WithUsername(cfg.Username),
		postgres.WithPassword(cfg.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &PostgresContainer{
		PostgresContainer: container,
		DSN:               dsn,
	}, nil
}

// Connect returns a sqlx.DB connection to the container
func (c *PostgresContainer) Connect(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	return db, nil
}

// Terminate stops and removes the container
func (c *PostgresContainer) Terminate(ctx context.Context) error {
	return c.PostgresContainer.Terminate(ctx)
}

// CreateRegistrySchema creates the tables the registry service depends on.
// It mirrors the production migrations closely enough for integration tests.
func (c *PostgresContainer) CreateRegistrySchema(ctx context.Context, db *sqlx.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS workflow_states (
			certificate_type VARCHAR(20) NOT NULL,
			certificate_id BIGINT NOT NULL,
			current_state VARCHAR(30) NOT NULL,
			verified_by BIGINT,
			verified_at TIMESTAMPTZ,
			approved_by BIGINT,
			approved_at TIMESTAMPTZ,
			rejected_by BIGINT,
			rejected_at TIMESTAMPTZ,
			rejection_reason TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (certificate_type, certificate_id),
			CONSTRAINT workflow_states_certificate_type_valid
				CHECK (certificate_type IN ('birth', 'marriage', 'death')),
			CONSTRAINT workflow_states_current_state_valid
				CHECK (current_state IN ('draft', 'pending_review', 'verified', 'approved', 'rejected', 'archived'))
		);

		CREATE TABLE IF NOT EXISTS workflow_transitions (
			id UUID PRIMARY KEY,
			certificate_type VARCHAR(20) NOT NULL,
			certificate_id BIGINT NOT NULL,
			from_state VARCHAR(30),
			to_state VARCHAR(30) NOT NULL,
			transition_type VARCHAR(20) NOT NULL,
			notes TEXT,
			performed_by BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT workflow_transitions_transition_type_valid
				CHECK (transition_type IN ('submit', 'verify', 'approve', 'reject', 'archive', 'reopen'))
		);

		CREATE INDEX IF NOT EXISTS idx_workflow_transitions_certificate
			ON workflow_transitions (certificate_type, certificate_id, created_at);

		CREATE TABLE IF NOT EXISTS ocr_cache (
			fingerprint VARCHAR(64) PRIMARY KEY,
			extracted_text TEXT NOT NULL,
			structured_fields JSONB NOT NULL DEFAULT '{}',
			file_name VARCHAR(255) NOT NULL,
			file_size BIGINT NOT NULL,
			pages_processed INT NOT NULL,
			processing_time DOUBLE PRECISION NOT NULL,
			engine_version VARCHAR(100) NOT NULL DEFAULT '',
			access_count BIGINT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_accessed TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS activity_log (
			id UUID PRIMARY KEY,
			actor_id BIGINT NOT NULL,
			action VARCHAR(100) NOT NULL,
			entity_type VARCHAR(50) NOT NULL,
			entity_id VARCHAR(100) NOT NULL,
			details JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_activity_log_entity
			ON activity_log (entity_type, entity_id, created_at);
	`

	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create registry schema: %w", err)
	}

	return nil
}
