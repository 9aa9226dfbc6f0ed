package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"ms-eventgrid/internal/models"
)

// CreateSchema builds the ticketing tables and their uniqueness indexes from the
// bun models. Postgres deployments use the SQL migrations instead; this is for
// embedded databases such as the SQLite stores used in tests.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	tables := []interface{}{
		(*models.Organization)(nil),
		(*models.User)(nil),
		(*models.Event)(nil),
		(*models.Ticket)(nil),
		(*models.TicketCount)(nil),
	}
	for _, model := range tables {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}

	indexes := []struct {
		model   interface{}
		name    string
		columns []string
	}{
		{(*models.Ticket)(nil), "tickets_event_buyer_email_key", []string{"event_id", "buyer_email"}},
		{(*models.Ticket)(nil), "tickets_event_identifier_key", []string{"event_id", "identifier"}},
		{(*models.TicketCount)(nil), "ticket_counts_event_date_key", []string{"event_id", "date"}},
	}
	for _, idx := range indexes {
		_, err := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Unique().
			IfNotExists().
			Column(idx.columns...).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}
