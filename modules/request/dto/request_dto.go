package dto

import (
	"time"

	"tripfluence-api/modules/request/entity"
)

type CreateRequestRequest struct {
	SpaceID   string `json:"space_id"`
	StartAt   string `json:"start_at"`
	EndAt     string `json:"end_at"`
	Attendees int    `json:"attendees"`
}

type CancelRequestRequest struct {
	Reason string `json:"reason,omitempty"`
}

type AddMessageRequest struct {
	Body string `json:"body"`
}

type RequestResponse struct {
	ID               string  `json:"id"`
	Reference        string  `json:"reference"`
	SpaceID          string  `json:"space_id"`
	OrganizerID      string  `json:"organizer_id"`
	StartAt          string  `json:"start_at"`
	EndAt            string  `json:"end_at"`
	Attendees        int     `json:"attendees"`
	QuoteAmountCents int64   `json:"quote_amount_cents"`
	QuoteCurrency    string  `json:"quote_currency"`
	QuoteBreakdown   *string `json:"quote_breakdown,omitempty"`
	Status           string  `json:"status"`
	HoldExpiresAt    *string `json:"hold_expires_at,omitempty"`
	CancelReason     *string `json:"cancel_reason,omitempty"`
	CancelledBy      *string `json:"cancelled_by,omitempty"`
	CreatedAt        string  `json:"created_at"`
}

func ToRequestResponse(request *entity.SpaceRequest) *RequestResponse {
	resp := &RequestResponse{
		ID:               request.ID.String(),
		Reference:        request.Reference,
		SpaceID:          request.SpaceID.String(),
		OrganizerID:      request.OrganizerID.String(),
		StartAt:          request.StartAt.Format(time.RFC3339),
		EndAt:            request.EndAt.Format(time.RFC3339),
		Attendees:        request.Attendees,
		QuoteAmountCents: request.QuoteAmountCents,
		QuoteCurrency:    request.QuoteCurrency,
		QuoteBreakdown:   request.QuoteBreakdown,
		Status:           string(request.Status),
		CancelReason:     request.CancelReason,
		CancelledBy:      request.CancelledBy,
		CreatedAt:        request.CreatedAt.Format(time.RFC3339),
	}
	if request.HoldExpiresAt != nil {
		s := request.HoldExpiresAt.Format(time.RFC3339)
		resp.HoldExpiresAt = &s
	}
	return resp
}
