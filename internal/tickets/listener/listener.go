// Package listener turns messages from other services into ticket operations.
package listener

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"ms-eventgrid/internal/logger"
	"ms-eventgrid/internal/models"
)

type PaymentApplier interface {
	ApplyPaymentStatus(ctx context.Context, ticketID string, status models.PaymentStatus) (*models.Ticket, error)
}

type TicketLinker interface {
	LinkTicketsToUser(ctx context.Context, userID, email string) (int, error)
}

// PaymentReconciler applies payment outcomes reported by the reconciliation job.
type PaymentReconciler struct {
	Service PaymentApplier
	Logger  *logger.Logger
}

func (p *PaymentReconciler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var event models.PaymentReconciled
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("decode payment reconciliation: %w", err)
	}
	if event.TicketID == "" {
		return fmt.Errorf("payment reconciliation without ticketId")
	}

	ticket, err := p.Service.ApplyPaymentStatus(ctx, event.TicketID, event.Status)
	if err != nil {
		return fmt.Errorf("apply %s to ticket %s: %w", event.Status, event.TicketID, err)
	}
	if p.Logger != nil {
		p.Logger.LogKafka("RECONCILED", msg.Topic, fmt.Sprintf("Ticket %s is %s", ticket.ID, ticket.PaymentStatus))
	}
	return nil
}

// UserLinker links earlier anonymous purchases when an account is registered.
type UserLinker struct {
	Service TicketLinker
	Logger  *logger.Logger
}

func (u *UserLinker) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var event models.UserRegistered
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("decode user registration: %w", err)
	}

	n, err := u.Service.LinkTicketsToUser(ctx, event.UserID, event.Email)
	if err != nil {
		return fmt.Errorf("link tickets for user %s: %w", event.UserID, err)
	}
	if u.Logger != nil {
		u.Logger.LogKafka("USER_LINKED", msg.Topic, fmt.Sprintf("Linked %d tickets to user %s", n, event.UserID))
	}
	return nil
}
