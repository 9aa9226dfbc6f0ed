package tickets

import (
	"context"
	"fmt"

	"ms-eventgrid/internal/apperr"
	"ms-eventgrid/internal/models"
)

// GetTotalTicketsCount returns the total count of tickets
func (s *TicketService) GetTotalTicketsCount(ctx context.Context) (int, error) {
	return s.DB.GetTotalTicketsCount(ctx)
}

// GetTicketCounts returns the daily sales of one of orgID's events.
func (s *TicketService) GetTicketCounts(ctx context.Context, eventID, orgID string) (*models.TicketCountSummary, error) {
	owner, err := s.DB.GetEventOwner(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if owner != orgID {
		return nil, fmt.Errorf("event %s: %w", eventID, apperr.ErrNotAuthorized)
	}

	daily, err := s.DB.GetTicketCountsForEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("load ticket counts: %w", err)
	}

	summary := &models.TicketCountSummary{EventID: eventID, Daily: daily}
	for _, day := range daily {
		summary.Total += day.Count
	}
	if summary.Daily == nil {
		summary.Daily = []models.TicketCount{}
	}
	return summary, nil
}
