package entity

import (
	"time"

	"tripfluence-api/core/entity"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// SpaceStatus represents the publication status of a space
type SpaceStatus string

const (
	SpaceStatusDraft     SpaceStatus = "draft"
	SpaceStatusPublished SpaceStatus = "published"
)

// Space represents a bookable physical venue owned by a tenant
type Space struct {
	TenantID    uuid.UUID   `db:"tenant_id" json:"tenant_id"`
	Title       string      `db:"title" json:"title"`
	Slug        string      `db:"slug" json:"slug"`
	Description *string     `db:"description" json:"description,omitempty"`
	Capacity    int         `db:"capacity" json:"capacity"`
	Status      SpaceStatus `db:"status" json:"status"`
	entity.BaseEntity
}

// PricingRuleKind enumerates the pricing dimensions a space can carry
type PricingRuleKind string

const (
	RuleKindHourly          PricingRuleKind = "HOURLY"
	RuleKindDaily           PricingRuleKind = "DAILY"
	RuleKindPeak            PricingRuleKind = "PEAK"
	RuleKindCleaningFee     PricingRuleKind = "CLEANING_FEE"
	RuleKindSecurityDeposit PricingRuleKind = "SECURITY_DEPOSIT"
)

// PricingRule is one pricing dimension attached to a space. Amounts are
// integer minor units (cents). DaysOfWeek (0=Sunday..6=Saturday) and the
// hour range only apply to PEAK rules.
type PricingRule struct {
	SpaceID     uuid.UUID       `db:"space_id" json:"space_id"`
	Kind        PricingRuleKind `db:"kind" json:"kind"`
	AmountCents int64           `db:"amount_cents" json:"amount_cents"`
	Currency    string          `db:"currency" json:"currency"`
	DaysOfWeek  pq.Int64Array   `db:"days_of_week" json:"days_of_week,omitempty"`
	StartHour   *int            `db:"start_hour" json:"start_hour,omitempty"`
	EndHour     *int            `db:"end_hour" json:"end_hour,omitempty"`
	entity.BaseEntity
}

// AvailabilityBlock marks a half-open interval [start_at, end_at) on a
// space as blocked or explicitly available.
type AvailabilityBlock struct {
	SpaceID   uuid.UUID  `db:"space_id" json:"space_id"`
	StartAt   time.Time  `db:"start_at" json:"start_at"`
	EndAt     time.Time  `db:"end_at" json:"end_at"`
	IsBlocked bool       `db:"is_blocked" json:"is_blocked"`
	Notes     *string    `db:"notes" json:"notes,omitempty"`
	entity.BaseEntity
}
