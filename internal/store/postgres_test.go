package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/pixelflow/internal/store"
	"github.com/kiranshivaraju/pixelflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB spins up a Postgres container, runs migrations, and returns a pool.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("pixelflow_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, store.RunMigrations(connStr))
	// Applying twice is a no-op.
	require.NoError(t, store.RunMigrations(connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return pool
}

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)

	runContract(t, func(t *testing.T) store.Store {
		_, err := pool.Exec(context.Background(), `TRUNCATE jobs CASCADE`)
		require.NoError(t, err)
		return store.NewPostgresStore(pool)
	})
}

func TestPostgresStore_Ping(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := store.NewPostgresStore(setupTestDB(t))
	require.NoError(t, s.Ping(context.Background()))
}

func TestPostgresStore_ReadsSeeResolveAtomically(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	s := store.NewPostgresStore(setupTestDB(t))

	for round := 0; round < 20; round++ {
		id := fmt.Sprintf("job_r%d", round)
		require.NoError(t, s.AddJob(ctx, newJob(id, 25)))

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, err := s.ResolvePending(ctx, id, alternate())
			assert.NoError(t, err)
		}()

		for reading := true; reading; {
			select {
			case <-done:
				reading = false
			default:
			}
			got, err := s.GetJob(ctx, id)
			require.NoError(t, err)
			pending := got.CountStatus(models.ItemStatusPending)
			if got.Status == models.JobStatusProcessing {
				assert.Equal(t, len(got.Items), pending, "processing job with resolved items")
			} else {
				assert.Zero(t, pending, "completed job with pending items")
			}
		}
	}
}
