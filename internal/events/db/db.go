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

type DB struct {
	Bun *bun.DB
}

func (d *DB) CreateEvent(ctx context.Context, event *models.Event) error {
	_, err := d.Bun.NewInsert().Model(event).Exec(ctx)
	return err
}

// GetEventByID loads an event with its organization.
func (d *DB) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Relation("Organization").
		Where("e.id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %s: %w", id, apperr.ErrEventNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// UpdateCapacity changes max_tickets while no ticket has been sold. It
// reports false once sales have started.
func (d *DB) UpdateCapacity(ctx context.Context, id string, maxTickets int) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("max_tickets = ?", maxTickets).
		Where("id = ?", id).
		Where("ticket_count = 0").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteEvent removes an event that has no tickets. It reports false when
// a booking got there first.
func (d *DB) DeleteEvent(ctx context.Context, id string) (bool, error) {
	res, err := d.Bun.NewDelete().
		Model((*models.Event)(nil)).
		Where("id = ?", id).
		Where("ticket_count = 0").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (d *DB) OrganizationExists(ctx context.Context, orgID string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Organization)(nil)).
		Where("id = ?", orgID).
		Exists(ctx)
}
