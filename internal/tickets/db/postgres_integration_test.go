//go:build integration

package db_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-eventgrid/internal/apperr"
	"ms-eventgrid/internal/database/dbtest"
	"ms-eventgrid/internal/database/migrations"
	"ms-eventgrid/internal/logger"
	"ms-eventgrid/internal/tickets/db"
)

func startPostgres(t *testing.T) *bun.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping Postgres integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "ticketing",
				"POSTGRES_PASSWORD": "ticketing",
				"POSTGRES_DB":       "ticketing",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start Postgres container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://ticketing:ticketing@%s:%s/ticketing?sslmode=disable", host, port.Port())
	sqldb, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	require.NoError(t, sqldb.PingContext(ctx))

	bunDB := bun.NewDB(sqldb, pgdialect.New())
	runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{MigrationsDir: "../../../migrations"}, logger.New(nil))
	require.NoError(t, runner.RunMigrations())

	version, dirty, err := runner.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	t.Cleanup(func() { bunDB.Close() })
	return bunDB
}

func TestPostgresConcurrentBooking(t *testing.T) {
	bunDB := startPostgres(t)
	ticketDB := &db.DB{Bun: bunDB}
	ctx := context.Background()

	org := dbtest.SeedOrganization(t, bunDB, "Integration Org")
	event := dbtest.SeedEvent(t, bunDB, org.ID, "Arena", 10)

	const buyers = 40
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		booked   []string
		soldOut  int
		failures []error
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ticket := newTicket(event.ID, fmt.Sprintf("buyer%02d@example.com", i))
			err := ticketDB.BookTicket(ctx, ticket)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				booked = append(booked, ticket.Identifier)
			case errors.Is(err, apperr.ErrSoldOut):
				soldOut++
			default:
				failures = append(failures, err)
			}
		}(i)
	}
	wg.Wait()

	require.Empty(t, failures)
	assert.Len(t, booked, 10)
	assert.Equal(t, buyers-10, soldOut)

	seen := map[string]bool{}
	for _, identifier := range booked {
		assert.False(t, seen[identifier], "identifier %s issued twice", identifier)
		seen[identifier] = true
	}

	total, err := ticketDB.GetTotalTicketsCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, total)
}

func TestPostgresDuplicateEmailIsRejected(t *testing.T) {
	bunDB := startPostgres(t)
	ticketDB := &db.DB{Bun: bunDB}
	ctx := context.Background()

	org := dbtest.SeedOrganization(t, bunDB, "Integration Org")
	event := dbtest.SeedEvent(t, bunDB, org.ID, "Club", 10)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		booked  int
		rejects int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := ticketDB.BookTicket(ctx, newTicket(event.ID, "same@example.com"))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				booked++
				return
			}
			assert.ErrorIs(t, err, apperr.ErrDuplicateBooking)
			rejects++
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, booked)
	assert.Equal(t, 7, rejects)
}
