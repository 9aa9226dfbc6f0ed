package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ms-eventgrid/internal/apperr"
	"ms-eventgrid/internal/logger"
	"ms-eventgrid/internal/models"
)

type EventDBLayer interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
	UpdateCapacity(ctx context.Context, id string, maxTickets int) (bool, error)
	DeleteEvent(ctx context.Context, id string) (bool, error)
	OrganizationExists(ctx context.Context, orgID string) (bool, error)
}

type EventService struct {
	DB     EventDBLayer
	Logger *logger.Logger
	Now    func() time.Time
}

func NewEventService(db EventDBLayer, log *logger.Logger) *EventService {
	if log == nil {
		log = logger.New(nil)
	}
	return &EventService{
		DB:     db,
		Logger: log,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

func validateEvent(req models.CreateEventRequest, now time.Time) error {
	var problems []string
	if strings.TrimSpace(req.Title) == "" {
		problems = append(problems, "title is required")
	}
	if strings.TrimSpace(req.Category) == "" {
		problems = append(problems, "category is required")
	}
	if req.MaxTickets <= 0 {
		problems = append(problems, "maxTickets must be greater than 0")
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() {
		problems = append(problems, "startTime and endTime are required")
	} else {
		if !req.StartTime.Before(req.EndTime) {
			problems = append(problems, "startTime must be before endTime")
		}
		if req.StartTime.Before(now) {
			problems = append(problems, "startTime cannot be in the past")
		}
	}
	if req.TicketPrice != nil && req.TicketPrice.IsNegative() {
		problems = append(problems, "ticketPrice cannot be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", apperr.ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// CreateEvent publishes a new event for orgID.
func (s *EventService) CreateEvent(ctx context.Context, orgID string, req models.CreateEventRequest) (*models.Event, error) {
	now := s.Now()
	if err := validateEvent(req, now); err != nil {
		return nil, err
	}

	exists, err := s.DB.OrganizationExists(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("check organization: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("organization %s is not registered: %w", orgID, apperr.ErrOrganizationUnknown)
	}

	event := &models.Event{
		ID:             uuid.NewString(),
		Title:          strings.TrimSpace(req.Title),
		Category:       strings.TrimSpace(req.Category),
		Description:    req.Description,
		ImageURL:       req.ImageURL,
		Location:       req.Location,
		StartTime:      req.StartTime.UTC(),
		EndTime:        req.EndTime.UTC(),
		MaxTickets:     req.MaxTickets,
		IsPublic:       req.IsPublic,
		OrganizationID: orgID,
		CreatedAt:      now,
	}
	if req.TicketPrice != nil {
		event.TicketPrice = decimal.NewNullDecimal(req.TicketPrice.Round(2))
	}

	if err := s.DB.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.Logger.Info("EVENTS", fmt.Sprintf("Event %s (%s) created by organization %s with %d tickets", event.ID, event.Title, orgID, event.MaxTickets))
	return event, nil
}

func (s *EventService) GetEvent(ctx context.Context, id string) (*models.EventResponse, error) {
	event, err := s.DB.GetEventByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.EventResponse{Event: *event, Available: event.Available()}, nil
}

// UpdateCapacity changes maxTickets for an event with no sales yet.
func (s *EventService) UpdateCapacity(ctx context.Context, id, orgID string, maxTickets int) (*models.EventResponse, error) {
	if maxTickets <= 0 {
		return nil, fmt.Errorf("%w: maxTickets must be greater than 0", apperr.ErrValidation)
	}

	event, err := s.DB.GetEventByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.OrganizationID != orgID {
		return nil, fmt.Errorf("event %s: %w", id, apperr.ErrNotAuthorized)
	}

	updated, err := s.DB.UpdateCapacity(ctx, id, maxTickets)
	if err != nil {
		return nil, fmt.Errorf("update capacity: %w", err)
	}
	if !updated {
		return nil, fmt.Errorf("event %s: %w", id, apperr.ErrCapacityLocked)
	}

	s.Logger.Info("EVENTS", fmt.Sprintf("Event %s capacity %d -> %d", id, event.MaxTickets, maxTickets))
	return s.GetEvent(ctx, id)
}

// DeleteEvent removes an event owned by orgID. Events with sold tickets stay.
func (s *EventService) DeleteEvent(ctx context.Context, id, orgID string) error {
	event, err := s.DB.GetEventByID(ctx, id)
	if err != nil {
		return err
	}
	if event.OrganizationID != orgID {
		return fmt.Errorf("event %s: %w", id, apperr.ErrNotAuthorized)
	}

	deleted, err := s.DB.DeleteEvent(ctx, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if !deleted {
		return fmt.Errorf("event %s: %w", id, apperr.ErrEventHasTickets)
	}

	s.Logger.Info("EVENTS", fmt.Sprintf("Event %s (%s) deleted by organization %s", id, event.Title, orgID))
	return nil
}
