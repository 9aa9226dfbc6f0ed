package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-eventgrid/internal/apperr"
	"ms-eventgrid/internal/database/dbtest"
)

func TestTicketCountsForEvent(t *testing.T) {
	ticketDB, bunDB := setupTestDB(t)
	ctx := context.Background()

	org := dbtest.SeedOrganization(t, bunDB, "Org")
	event := dbtest.SeedEvent(t, bunDB, org.ID, "Daily", 10)
	other := dbtest.SeedEvent(t, bunDB, org.ID, "Elsewhere", 10)

	yesterday := time.Now().UTC().Add(-24 * time.Hour)
	early := newTicket(event.ID, "early@example.com")
	early.CreatedAt = yesterday
	require.NoError(t, ticketDB.BookTicket(ctx, early))

	require.NoError(t, ticketDB.BookTicket(ctx, newTicket(event.ID, "a@example.com")))
	require.NoError(t, ticketDB.BookTicket(ctx, newTicket(event.ID, "b@example.com")))
	require.NoError(t, ticketDB.BookTicket(ctx, newTicket(other.ID, "a@example.com")))

	counts, err := ticketDB.GetTicketCountsForEvent(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, 1, counts[0].Count)
	assert.Equal(t, 2, counts[1].Count)
	assert.True(t, counts[0].Date.Before(counts[1].Date))

	counts, err = ticketDB.GetTicketCountsForEvent(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, counts)

	owner, err := ticketDB.GetEventOwner(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, org.ID, owner)

	_, err = ticketDB.GetEventOwner(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrEventNotFound)

	total, err := ticketDB.GetTotalTicketsCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
}
