package dto

import (
	"time"

	"tripfluence-api/modules/space/entity"
)

type CreateSpaceRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Capacity    int    `json:"capacity"`
}

type SpaceResponse struct {
	ID          string  `json:"id"`
	TenantID    string  `json:"tenant_id"`
	Title       string  `json:"title"`
	Slug        string  `json:"slug"`
	Description *string `json:"description,omitempty"`
	Capacity    int     `json:"capacity"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
}

func ToSpaceResponse(space *entity.Space) *SpaceResponse {
	return &SpaceResponse{
		ID:          space.ID.String(),
		TenantID:    space.TenantID.String(),
		Title:       space.Title,
		Slug:        space.Slug,
		Description: space.Description,
		Capacity:    space.Capacity,
		Status:      string(space.Status),
		CreatedAt:   space.CreatedAt.Format(time.RFC3339),
	}
}

type CreatePricingRuleRequest struct {
	Kind        string  `json:"kind"`
	AmountCents int64   `json:"amount_cents"`
	Currency    string  `json:"currency"`
	DaysOfWeek  []int64 `json:"days_of_week,omitempty"`
	StartHour   *int    `json:"start_hour,omitempty"`
	EndHour     *int    `json:"end_hour,omitempty"`
}

type CreateBlockRequest struct {
	StartAt   string `json:"start_at"`
	EndAt     string `json:"end_at"`
	IsBlocked bool   `json:"is_blocked"`
	Notes     string `json:"notes,omitempty"`
}

// QuoteRequest asks for a price preview without creating a booking request.
type QuoteRequest struct {
	StartAt   string `json:"start_at"`
	EndAt     string `json:"end_at"`
	Attendees int    `json:"attendees"`
}
