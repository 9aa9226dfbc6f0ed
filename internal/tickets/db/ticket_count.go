package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"ms-eventgrid/internal/models"
)

// GetTotalTicketsCount returns the total count of tickets in the database
func (d *DB) GetTotalTicketsCount(ctx context.Context) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Count(ctx)
}

// bookingDay truncates to the UTC calendar day the booking falls on.
func bookingDay(ts time.Time) time.Time {
	ts = ts.UTC()
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
}

// incrementTicketCount bumps the daily counter for an event. It runs inside the
// booking transaction, after the event row is locked, so the read-then-write
// below cannot race another booking for the same event.
func incrementTicketCount(ctx context.Context, db bun.IDB, eventID string, timestamp time.Time) error {
	date := bookingDay(timestamp)

	var existing models.TicketCount
	err := db.NewSelect().
		Model(&existing).
		Where("event_id = ?", eventID).
		Where("date = ?", date).
		Limit(1).
		Scan(ctx)

	if errors.Is(err, sql.ErrNoRows) {
		_, err = db.NewInsert().Model(&models.TicketCount{
			EventID: eventID,
			Count:   1,
			Date:    date,
		}).Exec(ctx)
		return err
	}
	if err != nil {
		return err
	}

	_, err = db.NewUpdate().
		Model((*models.TicketCount)(nil)).
		Set("count = count + 1").
		Where("id = ?", existing.ID).
		Exec(ctx)
	return err
}

// GetTicketCountsForEvent returns all daily ticket counts for a specific event
func (d *DB) GetTicketCountsForEvent(ctx context.Context, eventID string) ([]models.TicketCount, error) {
	var counts []models.TicketCount
	err := d.Bun.NewSelect().
		Model(&counts).
		Where("event_id = ?", eventID).
		Order("date").
		Scan(ctx)

	return counts, err
}
