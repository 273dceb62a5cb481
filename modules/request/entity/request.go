package entity

import (
	"time"

	"tripfluence-api/core/entity"

	"github.com/google/uuid"
)

// RequestStatus is the lifecycle state of a booking request.
//
//	pending -> needs_payment -> paid_hold -> confirmed
//
// cancelled is reachable from every non-terminal state; a hold that
// expires without payment lands in cancelled with reason "hold expired".
type RequestStatus string

const (
	StatusPending      RequestStatus = "pending"
	StatusNeedsPayment RequestStatus = "needs_payment"
	StatusPaidHold     RequestStatus = "paid_hold"
	StatusConfirmed    RequestStatus = "confirmed"
	StatusCancelled    RequestStatus = "cancelled"
)

// NonTerminalStatuses are the states that count as conflicts for new
// requests against the same space.
var NonTerminalStatuses = []RequestStatus{
	StatusPending, StatusNeedsPayment, StatusPaidHold, StatusConfirmed,
}

// IsTerminal reports whether no further transition may leave the status.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

const (
	CancelReasonHoldExpired = "hold expired"

	ActorTypeOrganizer = "organizer"
	ActorTypeBusiness  = "business"
	ActorTypeSystem    = "system"
)

// SpaceRequest is a booking inquiry with a lifecycle. Never physically
// deleted; the status column plus audit entries form the trail.
type SpaceRequest struct {
	Reference        string        `db:"reference" json:"reference"`
	SpaceID          uuid.UUID     `db:"space_id" json:"space_id"`
	TenantID         uuid.UUID     `db:"tenant_id" json:"tenant_id"`
	OrganizerID      uuid.UUID     `db:"organizer_id" json:"organizer_id"`
	StartAt          time.Time     `db:"start_at" json:"start_at"`
	EndAt            time.Time     `db:"end_at" json:"end_at"`
	Attendees        int           `db:"attendees" json:"attendees"`
	QuoteAmountCents int64         `db:"quote_amount_cents" json:"quote_amount_cents"`
	QuoteCurrency    string        `db:"quote_currency" json:"quote_currency"`
	QuoteBreakdown   *string       `db:"quote_breakdown" json:"quote_breakdown,omitempty"` // JSONB as string
	Status           RequestStatus `db:"status" json:"status"`
	HoldExpiresAt    *time.Time    `db:"hold_expires_at" json:"hold_expires_at,omitempty"`
	CancelReason     *string       `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CancelledBy      *string       `db:"cancelled_by" json:"cancelled_by,omitempty"`
	entity.BaseEntity
}

// SpaceMessage is one chat message on a request thread. Append-only,
// ordered by creation time.
type SpaceMessage struct {
	ID         uuid.UUID `db:"id" json:"id"`
	RequestID  uuid.UUID `db:"request_id" json:"request_id"`
	SenderID   uuid.UUID `db:"sender_id" json:"sender_id"`
	SenderType string    `db:"sender_type" json:"sender_type"`
	Body       string    `db:"body" json:"body"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
