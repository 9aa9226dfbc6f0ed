package event_api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-eventgrid/internal/apperr"
	"ms-eventgrid/internal/auth"
	events "ms-eventgrid/internal/events/service"
	"ms-eventgrid/internal/logger"
	"ms-eventgrid/internal/models"
	"ms-eventgrid/internal/utils"
)

// TicketCounter reports daily sales for an organizer's event.
type TicketCounter interface {
	GetTicketCounts(ctx context.Context, eventID, orgID string) (*models.TicketCountSummary, error)
}

type Handler struct {
	EventService       *events.EventService
	Tickets            TicketCounter
	Logger             *logger.Logger
	HideInternalErrors bool
}

func NewHandler(eventService *events.EventService, tickets TicketCounter, log *logger.Logger, hideInternalErrors bool) *Handler {
	if log == nil {
		log = logger.New(nil)
	}
	return &Handler{
		EventService:       eventService,
		Tickets:            tickets,
		Logger:             log,
		HideInternalErrors: hideInternalErrors,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router, organizerAuth func(http.Handler) http.Handler) {
	r.Get("/{eventId}", h.GetEvent)

	r.Group(func(r chi.Router) {
		r.Use(organizerAuth)
		r.Post("/", h.CreateEvent)
		r.Put("/{eventId}/capacity", h.UpdateCapacity)
		r.Delete("/{eventId}", h.DeleteEvent)
		r.Get("/{eventId}/ticket-counts", h.GetTicketCounts)
	})
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.EventService.GetEvent(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event retrieved", event))
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req models.CreateEventRequest
	if err := utils.DecodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	event, err := h.EventService.CreateEvent(r.Context(), auth.OrganizationID(r.Context()), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Event created", event))
}

type capacityRequest struct {
	MaxTickets int `json:"maxTickets"`
}

func (h *Handler) UpdateCapacity(w http.ResponseWriter, r *http.Request) {
	var req capacityRequest
	if err := utils.DecodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	event, err := h.EventService.UpdateCapacity(r.Context(), chi.URLParam(r, "eventId"), auth.OrganizationID(r.Context()), req.MaxTickets)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Capacity updated", event))
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	if err := h.EventService.DeleteEvent(r.Context(), eventID, auth.OrganizationID(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event deleted", map[string]string{"id": eventID}))
}

// GetTicketCounts returns the daily sales breakdown for the event.
func (h *Handler) GetTicketCounts(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Tickets.GetTicketCounts(r.Context(), chi.URLParam(r, "eventId"), auth.OrganizationID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Ticket counts retrieved", summary))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		h.Logger.Error("API", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
	}
	utils.WriteError(w, err, h.HideInternalErrors)
}
