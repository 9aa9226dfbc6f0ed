package models

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"ms-eventgrid/internal/apperr"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed:
		return true
	}
	return false
}

type Ticket struct {
	bun.BaseModel `bun:"table:tickets,alias:t"`

	ID            string        `bun:"id,pk" json:"id"`
	Identifier    string        `bun:"identifier,notnull" json:"identifier"`
	EventID       string        `bun:"event_id,notnull" json:"eventId"`
	BuyerName     string        `bun:"buyer_name,notnull" json:"buyerName"`
	BuyerEmail    string        `bun:"buyer_email,notnull" json:"buyerEmail"`
	BuyerPhone    string        `bun:"buyer_phone,notnull" json:"buyerPhone"`
	PaymentMethod string        `bun:"payment_method,notnull" json:"paymentMethod"`
	PaymentID     string        `bun:"payment_id,notnull" json:"paymentId"`
	PaymentStatus PaymentStatus `bun:"payment_status,notnull" json:"paymentStatus"`
	QRCode        string        `bun:"qr_code,notnull" json:"qrCode"`
	CheckedIn     bool          `bun:"checked_in,notnull" json:"checkedIn"`
	CheckedInAt   *time.Time    `bun:"checked_in_at" json:"checkedInAt,omitempty"`
	UserID        *string       `bun:"user_id" json:"userId,omitempty"`
	CreatedAt     time.Time     `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt     time.Time     `bun:"updated_at,notnull" json:"updatedAt"`

	Event *Event `bun:"rel:belongs-to,join:event_id=id" json:"event,omitempty"`
}

// FormatIdentifier renders the per-event sequential ticket code, e.g. TKT-Gala-00012.
func FormatIdentifier(eventTitle string, seq int) string {
	return fmt.Sprintf("TKT-%s-%05d", eventTitle, seq)
}

type BookingRequest struct {
	EventID       string `json:"-"`
	BuyerName     string `json:"buyerName"`
	BuyerEmail    string `json:"buyerEmail"`
	BuyerPhone    string `json:"buyerPhone"`
	PaymentMethod string `json:"paymentMethod"`
	PaymentID     string `json:"paymentId"`
	UserID        string `json:"userId,omitempty"`
}

// Normalize trims every field and lower-cases the email so uniqueness is case-insensitive.
func (r *BookingRequest) Normalize() {
	r.EventID = strings.TrimSpace(r.EventID)
	r.BuyerName = strings.TrimSpace(r.BuyerName)
	r.BuyerEmail = strings.ToLower(strings.TrimSpace(r.BuyerEmail))
	r.BuyerPhone = strings.TrimSpace(r.BuyerPhone)
	r.PaymentMethod = strings.TrimSpace(r.PaymentMethod)
	r.PaymentID = strings.TrimSpace(r.PaymentID)
	r.UserID = strings.TrimSpace(r.UserID)
}

func (r BookingRequest) Validate() error {
	required := []struct {
		name, value string
	}{
		{"eventId", r.EventID},
		{"buyerName", r.BuyerName},
		{"buyerEmail", r.BuyerEmail},
		{"buyerPhone", r.BuyerPhone},
		{"paymentMethod", r.PaymentMethod},
		{"paymentId", r.PaymentID},
	}
	var missing []string
	for _, f := range required {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", apperr.ErrValidation, strings.Join(missing, ", "))
	}
	if addr, err := mail.ParseAddress(r.BuyerEmail); err != nil || addr.Address != r.BuyerEmail {
		return fmt.Errorf("%w: buyerEmail %q is not a valid address", apperr.ErrValidation, r.BuyerEmail)
	}
	return nil
}

type CheckInRequest struct {
	TicketIdentifier string `json:"ticketIdentifier"`
	QRCode           string `json:"qrCode"`
	OrganizationID   string `json:"-"`
}

func (r CheckInRequest) Validate() error {
	if strings.TrimSpace(r.TicketIdentifier) == "" {
		return fmt.Errorf("%w: ticketIdentifier is required", apperr.ErrValidation)
	}
	if strings.TrimSpace(r.QRCode) == "" {
		return fmt.Errorf("%w: qrCode is required", apperr.ErrValidation)
	}
	if r.OrganizationID == "" {
		return fmt.Errorf("%w: organization is required", apperr.ErrValidation)
	}
	return nil
}

// QRPayload is the JSON document encoded into the ticket QR image.
type QRPayload struct {
	TicketIdentifier string `json:"ticketIdentifier"`
	QRCode           string `json:"qrCode"`
	BuyerEmail       string `json:"buyerEmail"`
	BuyerName        string `json:"buyerName"`
}

func (t Ticket) QRPayload() QRPayload {
	return QRPayload{
		TicketIdentifier: t.Identifier,
		QRCode:           t.QRCode,
		BuyerEmail:       t.BuyerEmail,
		BuyerName:        t.BuyerName,
	}
}

// TicketEvent is published to Kafka on every lifecycle change.
type TicketEvent struct {
	Type          string        `json:"type"`
	TicketID      string        `json:"ticketId"`
	Identifier    string        `json:"identifier"`
	EventID       string        `json:"eventId"`
	BuyerEmail    string        `json:"buyerEmail"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	CheckedIn     bool          `json:"checkedIn"`
	OccurredAt    time.Time     `json:"occurredAt"`
}

func NewTicketEvent(eventType string, t Ticket, at time.Time) TicketEvent {
	return TicketEvent{
		Type:          eventType,
		TicketID:      t.ID,
		Identifier:    t.Identifier,
		EventID:       t.EventID,
		BuyerEmail:    t.BuyerEmail,
		PaymentStatus: t.PaymentStatus,
		CheckedIn:     t.CheckedIn,
		OccurredAt:    at,
	}
}

// PaymentReconciled is consumed from the payment reconciliation job.
type PaymentReconciled struct {
	TicketID string        `json:"ticketId"`
	Status   PaymentStatus `json:"status"`
}
