package entity

import (
	"time"

	"tripfluence-api/core/entity"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// WebhookEndpoint is a tenant-configured callback URL with the event names
// it subscribes to. Long-lived configuration; deactivated, not deleted.
type WebhookEndpoint struct {
	TenantID uuid.UUID      `db:"tenant_id" json:"tenant_id"`
	URL      string         `db:"url" json:"url"`
	Secret   string         `db:"secret" json:"secret"`
	Events   pq.StringArray `db:"events" json:"events"`
	IsActive bool           `db:"is_active" json:"is_active"`
	entity.BaseEntity
}

// SubscribesTo reports whether the endpoint wants eventName. An empty
// event list means all events.
func (e *WebhookEndpoint) SubscribesTo(eventName string) bool {
	if len(e.Events) == 0 {
		return true
	}
	for _, name := range e.Events {
		if name == eventName {
			return true
		}
	}
	return false
}

type DeliveryStatus string

const (
	DeliveryStatusPending DeliveryStatus = "pending"
	DeliveryStatusSuccess DeliveryStatus = "success"
	DeliveryStatusFailed  DeliveryStatus = "failed"
)

// WebhookDelivery is one delivery record. Rows are append-only; the
// payload is the snapshot taken at trigger time, never a later re-read.
type WebhookDelivery struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	Reference      string         `db:"reference" json:"reference"`
	EndpointID     uuid.UUID      `db:"endpoint_id" json:"endpoint_id"`
	EventName      string         `db:"event_name" json:"event_name"`
	Payload        string         `db:"payload" json:"payload"`
	Status         DeliveryStatus `db:"status" json:"status"`
	ResponseStatus *int           `db:"response_status" json:"response_status,omitempty"`
	ResponseBody   *string        `db:"response_body" json:"response_body,omitempty"`
	AttemptCount   int            `db:"attempt_count" json:"attempt_count"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}
