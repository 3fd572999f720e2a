package integration

import (
	"context"
	"os"
	"testing"

	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contactrepo "github.com/Ramsey-B/clover/internal/repositories/contact"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/logger"
	"github.com/Ramsey-B/clover/pkg/reconcile"
)

// setupEngine connects to the test database named by TEST_DB_* env vars,
// applies migrations and returns a reconciliation engine backed by the real
// Postgres store. Skipped in short mode or when no database is configured.
func setupEngine(t *testing.T) (*reconcile.Engine, database.DB) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set")
	}

	log, err := logger.New(logger.Config{AppName: "clover-test", Level: "error"})
	require.NoError(t, err)

	db, err := database.Connect(database.ConnectionConfig{
		Host:     host,
		Port:     envOr("TEST_DB_PORT", "5432"),
		UserName: envOr("TEST_DB_USER_NAME", "postgres"),
		Password: os.Getenv("TEST_DB_PASSWORD"),
		Name:     envOr("TEST_DB_NAME", "clover_test"),
		SSLMode:  "disable",
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	driver, err := migratepg.WithInstance(db.Unsafe().DB, &migratepg.Config{})
	require.NoError(t, err)
	ms := database.NewMigrationService(log, &database.MigrationConfig{
		MigrationFolderPath: "../../db/pg",
		AutoRollback:        true,
	})
	require.NoError(t, ms.Migrate(envOr("TEST_DB_NAME", "clover_test"), driver))

	_, err = db.ExecContext(context.Background(), "TRUNCATE contacts RESTART IDENTITY CASCADE")
	require.NoError(t, err)

	repo := contactrepo.NewRepository(db, log)
	return reconcile.NewEngine(log, repo, events.NewEmitter(nil, log)), db
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func strPtr(s string) *string {
	return &s
}

func TestIdentifyLifecycle(t *testing.T) {
	engine, _ := setupEngine(t)
	ctx := context.Background()

	// A fresh observation creates a primary.
	first, err := engine.Reconcile(ctx, reconcile.Observation{Email: strPtr("doc@hillvalley.edu"), PhoneNumber: strPtr("5551234567")})
	require.NoError(t, err)
	assert.Empty(t, first.SecondaryContactIDs)

	// A second observation sharing the phone links a secondary.
	second, err := engine.Reconcile(ctx, reconcile.Observation{Email: strPtr("emmett@hillvalley.edu"), PhoneNumber: strPtr("5551234567")})
	require.NoError(t, err)
	assert.Equal(t, first.PrimaryContactID, second.PrimaryContactID)
	assert.Equal(t, []string{"doc@hillvalley.edu", "emmett@hillvalley.edu"}, second.Emails)
	assert.Len(t, second.SecondaryContactIDs, 1)

	// An independent primary, then a bridging observation, merges the groups
	// under the earliest-created primary.
	third, err := engine.Reconcile(ctx, reconcile.Observation{Email: strPtr("marty@hillvalley.edu"), PhoneNumber: strPtr("5559990000")})
	require.NoError(t, err)
	assert.NotEqual(t, first.PrimaryContactID, third.PrimaryContactID)

	merged, err := engine.Reconcile(ctx, reconcile.Observation{Email: strPtr("marty@hillvalley.edu"), PhoneNumber: strPtr("5551234567")})
	require.NoError(t, err)
	assert.Equal(t, first.PrimaryContactID, merged.PrimaryContactID)
	assert.Contains(t, merged.SecondaryContactIDs, third.PrimaryContactID)
	assert.ElementsMatch(t, []string{"doc@hillvalley.edu", "emmett@hillvalley.edu", "marty@hillvalley.edu"}, merged.Emails)

	// Replaying the bridging observation changes nothing.
	again, err := engine.Reconcile(ctx, reconcile.Observation{Email: strPtr("marty@hillvalley.edu"), PhoneNumber: strPtr("5551234567")})
	require.NoError(t, err)
	assert.Equal(t, merged, again)
}

func TestIdentifyEmailOnly(t *testing.T) {
	engine, _ := setupEngine(t)
	ctx := context.Background()

	view, err := engine.Reconcile(ctx, reconcile.Observation{Email: strPtr("solo@x.com")})
	require.NoError(t, err)
	assert.Equal(t, []string{"solo@x.com"}, view.Emails)
	assert.Empty(t, view.PhoneNumbers)
	assert.Empty(t, view.SecondaryContactIDs)
}
