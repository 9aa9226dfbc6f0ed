package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"ms-eventgrid/internal/apperr"
	"ms-eventgrid/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// GetTicketByID loads a ticket with its event and the event's organization.
func (d *DB) GetTicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Relation("Event").
		Relation("Event.Organization").
		Where("t.id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ticket %s: %w", id, apperr.ErrTicketNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// GetTicketsByIdentifier returns every ticket carrying the identifier. Identifiers
// are only unique per event, so more than one row is possible.
func (d *DB) GetTicketsByIdentifier(ctx context.Context, identifier string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Relation("Event").
		Where("t.identifier = ?", identifier).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// UpdatePaymentStatus moves a ticket from one payment status to another. It
// reports false when the ticket was not in the from status.
func (d *DB) UpdatePaymentStatus(ctx context.Context, id string, from, to models.PaymentStatus, at time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("payment_status = ?", to).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Where("payment_status = ?", from).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// MarkCheckedIn flips checked_in for a paid ticket that has not been used yet.
func (d *DB) MarkCheckedIn(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("checked_in = ?", true).
		Set("checked_in_at = ?", at).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Where("checked_in = ?", false).
		Where("payment_status = ?", models.PaymentCompleted).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// LinkTicketsToUser assigns unowned tickets bought with email to the user.
func (d *DB) LinkTicketsToUser(ctx context.Context, userID, email string) (int, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("user_id = ?", userID).
		Where("buyer_email = ?", strings.ToLower(email)).
		Where("user_id IS NULL").
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// FindUserIDByEmail returns "" when no registered user has the email.
func (d *DB) FindUserIDByEmail(ctx context.Context, email string) (string, error) {
	var id string
	err := d.Bun.NewSelect().
		Model((*models.User)(nil)).
		Column("id").
		Where("lower(email) = ?", strings.ToLower(email)).
		Limit(1).
		Scan(ctx, &id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

// UserExists checks if a user with the given ID exists in the database
func (d *DB) UserExists(ctx context.Context, userID string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.User)(nil)).
		Where("id = ?", userID).
		Exists(ctx)
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// isUniqueViolationOn recognises a unique constraint failure involving column,
// from either Postgres (constraint name) or SQLite (message text).
func isUniqueViolationOn(err error, column string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" && strings.Contains(pqErr.Constraint, column)
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, column)
}

// GetEventOwner returns the organization that runs the event.
func (d *DB) GetEventOwner(ctx context.Context, eventID string) (string, error) {
	var orgID string
	err := d.Bun.NewSelect().
		Model((*models.Event)(nil)).
		Column("organization_id").
		Where("id = ?", eventID).
		Limit(1).
		Scan(ctx, &orgID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("event %s: %w", eventID, apperr.ErrEventNotFound)
	}
	return orgID, err
}
