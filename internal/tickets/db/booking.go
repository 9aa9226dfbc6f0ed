package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"ms-eventgrid/internal/apperr"
	"ms-eventgrid/internal/models"
)

// BookTicket inserts ticket inside one transaction that enforces the event's
// capacity and the one-ticket-per-email rule, and assigns the ticket its
// sequential identifier.
//
// The conditional counter update on the event row is the serialisation point:
// concurrent bookings for the same event queue on that row lock, so the
// capacity check, the sequence number and the insert commit together or not
// at all. The unique index on (event_id, buyer_email) catches a duplicate that
// slipped past the pre-check.
func (d *DB) BookTicket(ctx context.Context, ticket *models.Ticket) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var event models.Event
		err := tx.NewSelect().
			Model(&event).
			Where("e.id = ?", ticket.EventID).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("event %s: %w", ticket.EventID, apperr.ErrEventNotFound)
		}
		if err != nil {
			return fmt.Errorf("load event: %w", err)
		}

		duplicate, err := tx.NewSelect().
			Model((*models.Ticket)(nil)).
			Where("event_id = ?", ticket.EventID).
			Where("buyer_email = ?", ticket.BuyerEmail).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("check existing booking: %w", err)
		}
		if duplicate {
			return fmt.Errorf("%s for event %s: %w", ticket.BuyerEmail, ticket.EventID, apperr.ErrDuplicateBooking)
		}

		res, err := tx.NewUpdate().
			Model((*models.Event)(nil)).
			Set("ticket_count = ticket_count + 1").
			Where("id = ?", ticket.EventID).
			Where("ticket_count < max_tickets").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("reserve capacity: %w", err)
		}
		reserved, err := affected(res)
		if err != nil {
			return err
		}
		if !reserved {
			return fmt.Errorf("event %s (%d tickets): %w", ticket.EventID, event.MaxTickets, apperr.ErrSoldOut)
		}

		var seq int
		err = tx.NewSelect().
			Model((*models.Event)(nil)).
			Column("ticket_count").
			Where("id = ?", ticket.EventID).
			Scan(ctx, &seq)
		if err != nil {
			return fmt.Errorf("read ticket sequence: %w", err)
		}
		ticket.Identifier = models.FormatIdentifier(event.Title, seq)

		if _, err := tx.NewInsert().Model(ticket).Exec(ctx); err != nil {
			if isUniqueViolationOn(err, "buyer_email") {
				return fmt.Errorf("%s for event %s: %w", ticket.BuyerEmail, ticket.EventID, apperr.ErrDuplicateBooking)
			}
			return fmt.Errorf("insert ticket: %w", err)
		}

		if err := incrementTicketCount(ctx, tx, ticket.EventID, ticket.CreatedAt); err != nil {
			return fmt.Errorf("increment daily count: %w", err)
		}
		return nil
	})
}
