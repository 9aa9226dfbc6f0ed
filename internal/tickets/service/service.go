package tickets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-eventgrid/internal/apperr"
	"ms-eventgrid/internal/logger"
	"ms-eventgrid/internal/metrics"
	"ms-eventgrid/internal/models"
	"ms-eventgrid/internal/tickets/qr"
)

type TicketDBLayer interface {
	BookTicket(ctx context.Context, ticket *models.Ticket) error
	GetTicketByID(ctx context.Context, id string) (*models.Ticket, error)
	GetTicketsByIdentifier(ctx context.Context, identifier string) ([]models.Ticket, error)
	UpdatePaymentStatus(ctx context.Context, id string, from, to models.PaymentStatus, at time.Time) (bool, error)
	MarkCheckedIn(ctx context.Context, id string, at time.Time) (bool, error)
	LinkTicketsToUser(ctx context.Context, userID, email string) (int, error)
	FindUserIDByEmail(ctx context.Context, email string) (string, error)
	UserExists(ctx context.Context, userID string) (bool, error)
	GetEventOwner(ctx context.Context, eventID string) (string, error)
	GetTotalTicketsCount(ctx context.Context) (int, error)
	GetTicketCountsForEvent(ctx context.Context, eventID string) ([]models.TicketCount, error)
}

// BookingGuard rejects a second in-flight booking for the same event and email.
type BookingGuard interface {
	Acquire(ctx context.Context, eventID, email string) (release func(), ok bool, err error)
}

// TicketPublisher announces ticket lifecycle changes to other services.
type TicketPublisher interface {
	TicketBooked(ctx context.Context, ticket models.Ticket) error
	PaymentUpdated(ctx context.Context, ticket models.Ticket) error
	TicketCheckedIn(ctx context.Context, ticket models.Ticket) error
}

type TicketService struct {
	DB        TicketDBLayer
	Guard     BookingGuard
	Publisher TicketPublisher
	Metrics   *metrics.Monitor
	Logger    *logger.Logger
	QR        *qr.QRGenerator
	Now       func() time.Time
}

func NewTicketService(db TicketDBLayer, log *logger.Logger) *TicketService {
	if log == nil {
		log = logger.New(nil)
	}
	return &TicketService{
		DB:     db,
		Logger: log,
		QR:     qr.NewQRGenerator(qr.DefaultSize),
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *TicketService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}

// BookTicket issues a PENDING ticket for the event. Capacity, the
// one-ticket-per-email rule and the identifier sequence are enforced by the
// store in a single transaction.
func (s *TicketService) BookTicket(ctx context.Context, req models.BookingRequest) (*models.Ticket, error) {
	start := time.Now()
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ticket, err := s.bookTicket(ctx, req)
	if err != nil {
		s.Metrics.TrackBooking(apperr.CodeOf(err), time.Since(start))
		if apperr.KindOf(err) == apperr.KindInternal {
			s.Logger.Error("BOOKING", fmt.Sprintf("Booking for event %s failed: %v", req.EventID, err))
		} else {
			s.Logger.Info("BOOKING", fmt.Sprintf("Booking for event %s rejected: %v", req.EventID, err))
		}
		return nil, err
	}
	s.Metrics.TrackBooking("success", time.Since(start))
	s.Logger.LogTicket("BOOKED", ticket.ID, fmt.Sprintf("%s issued for event %s", ticket.Identifier, ticket.EventID))

	s.publish(ctx, "ticket booked", ticket.ID, func(ctx context.Context) error {
		return s.Publisher.TicketBooked(ctx, *ticket)
	})
	return ticket, nil
}

func (s *TicketService) bookTicket(ctx context.Context, req models.BookingRequest) (*models.Ticket, error) {
	userID, err := s.resolveUser(ctx, req)
	if err != nil {
		return nil, err
	}

	if s.Guard != nil {
		release, ok, err := s.Guard.Acquire(ctx, req.EventID, req.BuyerEmail)
		switch {
		case err != nil:
			s.Logger.Warn("REDIS", fmt.Sprintf("Booking guard unavailable, continuing without it: %v", err))
		case !ok:
			return nil, fmt.Errorf("%s for event %s in flight: %w", req.BuyerEmail, req.EventID, apperr.ErrBookingInProgress)
		default:
			defer release()
		}
	}

	token, err := qr.NewToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	ticket := &models.Ticket{
		ID:            uuid.NewString(),
		EventID:       req.EventID,
		BuyerName:     req.BuyerName,
		BuyerEmail:    req.BuyerEmail,
		BuyerPhone:    req.BuyerPhone,
		PaymentMethod: req.PaymentMethod,
		PaymentID:     req.PaymentID,
		PaymentStatus: models.PaymentPending,
		QRCode:        token,
		UserID:        userID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.DB.BookTicket(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// resolveUser returns the account the ticket belongs to: the supplied userId
// when it exists, otherwise a registered user with the buyer's email.
func (s *TicketService) resolveUser(ctx context.Context, req models.BookingRequest) (*string, error) {
	if req.UserID != "" {
		exists, err := s.DB.UserExists(ctx, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("check user: %w", err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: user %s does not exist", apperr.ErrValidation, req.UserID)
		}
		return &req.UserID, nil
	}

	id, err := s.DB.FindUserIDByEmail(ctx, req.BuyerEmail)
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if id == "" {
		return nil, nil
	}
	return &id, nil
}

// ConfirmPayment marks a PENDING ticket as paid. Confirming a paid ticket is a no-op.
func (s *TicketService) ConfirmPayment(ctx context.Context, ticketID string) (*models.Ticket, error) {
	return s.transition(ctx, ticketID, models.PaymentPending, models.PaymentCompleted)
}

// FailPayment marks a PENDING ticket as failed. The ticket keeps its seat and
// its email reservation.
func (s *TicketService) FailPayment(ctx context.Context, ticketID string) (*models.Ticket, error) {
	return s.transition(ctx, ticketID, models.PaymentPending, models.PaymentFailed)
}

// ConfirmPaymentAsOrganization confirms payment for a ticket of one of orgID's events.
func (s *TicketService) ConfirmPaymentAsOrganization(ctx context.Context, ticketID, orgID string) (*models.Ticket, error) {
	if err := s.authorizeTicket(ctx, ticketID, orgID); err != nil {
		return nil, err
	}
	return s.ConfirmPayment(ctx, ticketID)
}

func (s *TicketService) FailPaymentAsOrganization(ctx context.Context, ticketID, orgID string) (*models.Ticket, error) {
	if err := s.authorizeTicket(ctx, ticketID, orgID); err != nil {
		return nil, err
	}
	return s.FailPayment(ctx, ticketID)
}

// ApplyPaymentStatus routes a reconciled payment outcome to the matching transition.
func (s *TicketService) ApplyPaymentStatus(ctx context.Context, ticketID string, status models.PaymentStatus) (*models.Ticket, error) {
	switch status {
	case models.PaymentCompleted:
		return s.ConfirmPayment(ctx, ticketID)
	case models.PaymentFailed:
		return s.FailPayment(ctx, ticketID)
	default:
		return nil, fmt.Errorf("%w: unsupported payment status %q", apperr.ErrValidation, status)
	}
}

func (s *TicketService) authorizeTicket(ctx context.Context, ticketID, orgID string) error {
	ticket, err := s.DB.GetTicketByID(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.Event == nil || ticket.Event.OrganizationID != orgID {
		s.Logger.LogSecurity("FORBIDDEN", fmt.Sprintf("Organization %s tried to modify ticket %s", orgID, ticketID))
		return fmt.Errorf("ticket %s: %w", ticketID, apperr.ErrNotAuthorized)
	}
	return nil
}

func (s *TicketService) transition(ctx context.Context, ticketID string, from, to models.PaymentStatus) (*models.Ticket, error) {
	changed, err := s.DB.UpdatePaymentStatus(ctx, ticketID, from, to, s.now())
	if err != nil {
		s.Metrics.TrackPaymentTransition(string(to), "error")
		return nil, fmt.Errorf("update payment status: %w", err)
	}

	ticket, err := s.DB.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if !changed {
		if ticket.PaymentStatus == to {
			s.Metrics.TrackPaymentTransition(string(to), "noop")
			return ticket, nil
		}
		s.Metrics.TrackPaymentTransition(string(to), apperr.ErrInvalidTransition.Code)
		return nil, fmt.Errorf("ticket %s is %s, cannot become %s: %w", ticketID, ticket.PaymentStatus, to, apperr.ErrInvalidTransition)
	}

	s.Metrics.TrackPaymentTransition(string(to), "success")
	s.Logger.LogTicket("PAYMENT", ticketID, fmt.Sprintf("Payment status %s -> %s", from, to))
	s.publish(ctx, "payment updated", ticketID, func(ctx context.Context) error {
		return s.Publisher.PaymentUpdated(ctx, *ticket)
	})
	return ticket, nil
}

// CheckIn admits the ticket holder at the gate. Exactly one of several
// concurrent check-ins for the same ticket succeeds.
func (s *TicketService) CheckIn(ctx context.Context, req models.CheckInRequest) (*models.Ticket, error) {
	ticket, err := s.gateTicket(ctx, req)
	if err != nil {
		s.Metrics.TrackCheckIn(apperr.CodeOf(err))
		return nil, err
	}
	if ticket.CheckedIn {
		s.Metrics.TrackCheckIn(apperr.ErrAlreadyCheckedIn.Code)
		return nil, fmt.Errorf("ticket %s: %w", ticket.Identifier, apperr.ErrAlreadyCheckedIn)
	}

	at := s.now()
	flipped, err := s.DB.MarkCheckedIn(ctx, ticket.ID, at)
	if err != nil {
		s.Metrics.TrackCheckIn("error")
		return nil, fmt.Errorf("mark checked in: %w", err)
	}
	if !flipped {
		s.Metrics.TrackCheckIn(apperr.ErrAlreadyCheckedIn.Code)
		return nil, fmt.Errorf("ticket %s: %w", ticket.Identifier, apperr.ErrAlreadyCheckedIn)
	}

	ticket.CheckedIn = true
	ticket.CheckedInAt = &at
	ticket.UpdatedAt = at
	s.Metrics.TrackCheckIn("success")
	s.Logger.LogTicket("CHECKIN", ticket.ID, fmt.Sprintf("%s admitted by organization %s", ticket.Identifier, req.OrganizationID))

	s.publish(ctx, "ticket checked in", ticket.ID, func(ctx context.Context) error {
		return s.Publisher.TicketCheckedIn(ctx, *ticket)
	})
	return ticket, nil
}

// VerifyTicket runs the gate checks without admitting the holder.
func (s *TicketService) VerifyTicket(ctx context.Context, req models.CheckInRequest) (*models.Ticket, error) {
	return s.findGateTicket(ctx, req)
}

// gateTicket applies the authorisation, qr and payment checks in that order.
func (s *TicketService) gateTicket(ctx context.Context, req models.CheckInRequest) (*models.Ticket, error) {
	ticket, err := s.findGateTicket(ctx, req)
	if err != nil {
		return nil, err
	}
	if ticket.PaymentStatus != models.PaymentCompleted {
		return nil, fmt.Errorf("ticket %s is %s: %w", ticket.Identifier, ticket.PaymentStatus, apperr.ErrPaymentNotConfirmed)
	}
	return ticket, nil
}

func (s *TicketService) findGateTicket(ctx context.Context, req models.CheckInRequest) (*models.Ticket, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	candidates, err := s.DB.GetTicketsByIdentifier(ctx, req.TicketIdentifier)
	if err != nil {
		return nil, fmt.Errorf("look up ticket: %w", err)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("ticket %s: %w", req.TicketIdentifier, apperr.ErrTicketNotFound)
	}

	var owned []models.Ticket
	for _, t := range candidates {
		if t.Event != nil && t.Event.OrganizationID == req.OrganizationID {
			owned = append(owned, t)
		}
	}
	if len(owned) == 0 {
		s.Logger.LogSecurity("FORBIDDEN", fmt.Sprintf("Organization %s presented ticket %s of another organization", req.OrganizationID, req.TicketIdentifier))
		return nil, fmt.Errorf("ticket %s: %w", req.TicketIdentifier, apperr.ErrNotAuthorized)
	}

	for i := range owned {
		if qr.TokensEqual(owned[i].QRCode, req.QRCode) {
			return &owned[i], nil
		}
	}
	s.Logger.LogSecurity("INVALID_QR", fmt.Sprintf("QR code mismatch for ticket %s", req.TicketIdentifier))
	return nil, fmt.Errorf("ticket %s: %w", req.TicketIdentifier, apperr.ErrInvalidQRCode)
}

func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*models.Ticket, error) {
	return s.DB.GetTicketByID(ctx, ticketID)
}

// LinkTicketsToUser attaches tickets bought anonymously with email to a newly
// registered account.
func (s *TicketService) LinkTicketsToUser(ctx context.Context, userID, email string) (int, error) {
	if userID == "" || email == "" {
		return 0, fmt.Errorf("%w: userId and email are required", apperr.ErrValidation)
	}
	n, err := s.DB.LinkTicketsToUser(ctx, userID, email)
	if err != nil {
		return 0, fmt.Errorf("link tickets: %w", err)
	}
	if n > 0 {
		s.Logger.Info("USERS", fmt.Sprintf("Linked %d tickets to user %s", n, userID))
	}
	return n, nil
}

// RenderQR returns the ticket's QR code as a PNG.
func (s *TicketService) RenderQR(ctx context.Context, ticketID string) ([]byte, error) {
	ticket, err := s.DB.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	gen := s.QR
	if gen == nil {
		gen = qr.NewQRGenerator(qr.DefaultSize)
	}
	return gen.Render(*ticket)
}

// publish runs a best-effort notification. The state change is already
// committed, so a broker failure is logged and not returned.
func (s *TicketService) publish(ctx context.Context, what, ticketID string, send func(context.Context) error) {
	if s.Publisher == nil {
		return
	}
	if err := send(ctx); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish %s for %s: %v", what, ticketID, err))
	}
}

// IsNotFound reports whether err means the ticket or event does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, apperr.ErrTicketNotFound) || errors.Is(err, apperr.ErrEventNotFound)
}
