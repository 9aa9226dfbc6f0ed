package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID             string              `bun:"id,pk" json:"id"`
	Title          string              `bun:"title,notnull" json:"title"`
	Category       string              `bun:"category,notnull" json:"category"`
	Description    string              `bun:"description" json:"description"`
	ImageURL       string              `bun:"image_url" json:"imageUrl"`
	Location       *string             `bun:"location" json:"location,omitempty"`
	TicketPrice    decimal.NullDecimal `bun:"ticket_price,type:numeric(10,2)" json:"ticketPrice"`
	StartTime      time.Time           `bun:"start_time,notnull" json:"startTime"`
	EndTime        time.Time           `bun:"end_time,notnull" json:"endTime"`
	MaxTickets     int                 `bun:"max_tickets,notnull" json:"maxTickets"`
	TicketCount    int                 `bun:"ticket_count,notnull" json:"ticketCount"`
	IsPublic       bool                `bun:"is_public,notnull" json:"isPublic"`
	OrganizationID string              `bun:"organization_id,notnull" json:"organizationId"`
	CreatedAt      time.Time           `bun:"created_at,notnull" json:"createdAt"`

	Organization *Organization `bun:"rel:belongs-to,join:organization_id=id" json:"organization,omitempty"`
}

// Available is the number of tickets that can still be booked.
func (e Event) Available() int {
	if left := e.MaxTickets - e.TicketCount; left > 0 {
		return left
	}
	return 0
}

// IsFree reports whether the event has no ticket price.
func (e Event) IsFree() bool {
	return !e.TicketPrice.Valid || e.TicketPrice.Decimal.IsZero()
}

type CreateEventRequest struct {
	Title       string           `json:"title"`
	Category    string           `json:"category"`
	Description string           `json:"description"`
	ImageURL    string           `json:"imageUrl"`
	Location    *string          `json:"location,omitempty"`
	TicketPrice *decimal.Decimal `json:"ticketPrice,omitempty"`
	StartTime   time.Time        `json:"startTime"`
	EndTime     time.Time        `json:"endTime"`
	MaxTickets  int              `json:"maxTickets"`
	IsPublic    bool             `json:"isPublic"`
}

type EventResponse struct {
	Event
	Available int `json:"available"`
}
