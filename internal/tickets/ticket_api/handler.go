package ticket_api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ms-eventgrid/internal/apperr"
	"ms-eventgrid/internal/auth"
	"ms-eventgrid/internal/logger"
	"ms-eventgrid/internal/models"
	tickets "ms-eventgrid/internal/tickets/service"
	"ms-eventgrid/internal/utils"
)

type Handler struct {
	TicketService      *tickets.TicketService
	Logger             *logger.Logger
	HideInternalErrors bool
}

func NewHandler(ticketService *tickets.TicketService, log *logger.Logger, hideInternalErrors bool) *Handler {
	if log == nil {
		log = logger.New(nil)
	}
	return &Handler{
		TicketService:      ticketService,
		Logger:             log,
		HideInternalErrors: hideInternalErrors,
	}
}

// RegisterRoutes mounts the ticket endpoints. organizerAuth guards the gate
// and payment endpoints.
func (h *Handler) RegisterRoutes(r chi.Router, organizerAuth func(http.Handler) http.Handler) {
	r.Get("/count", h.GetTotalTicketsCount)
	r.Post("/{id}", h.BookTicket)
	r.Get("/{id}", h.ViewTicket)
	r.Get("/{id}/qr", h.TicketQRCode)

	r.Group(func(r chi.Router) {
		r.Use(organizerAuth)
		r.Post("/verify", h.VerifyTicket)
		r.Post("/checkin", h.CheckinTicket)
		r.Post("/{id}/confirm-payment", h.ConfirmPayment)
		r.Post("/{id}/fail-payment", h.FailPayment)
	})
}

// RegisterInternalRoutes mounts service-to-service endpoints.
func (h *Handler) RegisterInternalRoutes(r chi.Router) {
	r.Post("/users/link-tickets", h.LinkTickets)
}

type BookingResponse struct {
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	TicketID   string    `json:"ticketId"`
	Identifier string    `json:"identifier"`
	Timestamp  time.Time `json:"timestamp"`
}

// BookTicket handles POST /tickets/{eventId}.
func (h *Handler) BookTicket(w http.ResponseWriter, r *http.Request) {
	var req models.BookingRequest
	if err := utils.DecodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	req.EventID = chi.URLParam(r, "id")

	ticket, err := h.TicketService.BookTicket(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, BookingResponse{
		Success:    true,
		Message:    "Ticket booked successfully",
		TicketID:   ticket.ID,
		Identifier: ticket.Identifier,
		Timestamp:  time.Now().UTC(),
	})
}

func (h *Handler) ViewTicket(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.TicketService.GetTicket(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Ticket retrieved", ticket))
}

// TicketQRCode serves the ticket's QR code as a PNG image.
func (h *Handler) TicketQRCode(w http.ResponseWriter, r *http.Request) {
	png, err := h.TicketService.RenderQR(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// TicketCountResponse is the response format for the GetTotalTicketsCount endpoint
type TicketCountResponse struct {
	TotalCount int `json:"total_count"`
}

// GetTotalTicketsCount handles the request to get the total ticket count
func (h *Handler) GetTotalTicketsCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.TicketService.GetTotalTicketsCount(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, TicketCountResponse{TotalCount: count})
}

func (h *Handler) checkInRequest(w http.ResponseWriter, r *http.Request) (models.CheckInRequest, bool) {
	var req models.CheckInRequest
	if err := utils.DecodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return req, false
	}
	req.OrganizationID = auth.OrganizationID(r.Context())
	return req, true
}

// VerifyTicket reports a ticket's gate status without admitting it.
func (h *Handler) VerifyTicket(w http.ResponseWriter, r *http.Request) {
	req, ok := h.checkInRequest(w, r)
	if !ok {
		return
	}
	ticket, err := h.TicketService.VerifyTicket(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Ticket is valid", ticket))
}

// CheckinTicket admits the ticket holder at the venue gate.
func (h *Handler) CheckinTicket(w http.ResponseWriter, r *http.Request) {
	req, ok := h.checkInRequest(w, r)
	if !ok {
		return
	}
	ticket, err := h.TicketService.CheckIn(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Check-in successful", ticket))
}

func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.TicketService.ConfirmPaymentAsOrganization(r.Context(), chi.URLParam(r, "id"), auth.OrganizationID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Payment confirmed", ticket))
}

func (h *Handler) FailPayment(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.TicketService.FailPaymentAsOrganization(r.Context(), chi.URLParam(r, "id"), auth.OrganizationID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Payment marked as failed", ticket))
}

type linkTicketsRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// LinkTickets attaches a new account's earlier anonymous purchases to it.
func (h *Handler) LinkTickets(w http.ResponseWriter, r *http.Request) {
	var req linkTicketsRequest
	if err := utils.DecodeJSON(r.Body, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	n, err := h.TicketService.LinkTicketsToUser(r.Context(), req.UserID, req.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Tickets linked", map[string]int{"linked": n}))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		h.Logger.Error("API", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
	}
	utils.WriteError(w, err, h.HideInternalErrors)
}
