package models

import (
	"time"

	"github.com/uptrace/bun"
)

// TicketCount represents a daily count of tickets booked for a specific event
type TicketCount struct {
	bun.BaseModel `bun:"table:ticket_counts,alias:tc"`

	ID      int64     `bun:"id,pk,autoincrement" json:"-"`
	EventID string    `bun:"event_id,notnull" json:"eventId"`
	Count   int       `bun:"count,notnull" json:"count"`
	Date    time.Time `bun:"date,notnull" json:"date"`
}

type TicketCountSummary struct {
	EventID string        `json:"eventId"`
	Total   int           `json:"total"`
	Daily   []TicketCount `json:"daily"`
}
