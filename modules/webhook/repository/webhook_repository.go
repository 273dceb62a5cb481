package repository

import (
	"context"
	"database/sql"

	"tripfluence-api/core/database"
	"tripfluence-api/core/logger"
	"tripfluence-api/modules/webhook/entity"

	"github.com/google/uuid"
)

type WebhookRepository struct {
	DB database.IDatabase
}

func NewWebhookRepository(db database.IDatabase) *WebhookRepository {
	return &WebhookRepository{DB: db}
}

type WebhookRepositoryInterface interface {
	CreateEndpoint(ctx context.Context, endpoint *entity.WebhookEndpoint) (*entity.WebhookEndpoint, error)
	GetEndpointByID(ctx context.Context, id uuid.UUID) (*entity.WebhookEndpoint, error)
	GetActiveEndpointsByTenant(ctx context.Context, tenantID uuid.UUID) ([]entity.WebhookEndpoint, error)
	GetEndpointsByTenant(ctx context.Context, tenantID uuid.UUID) ([]entity.WebhookEndpoint, error)
	DeactivateEndpoint(ctx context.Context, id uuid.UUID) error

	CreateDelivery(ctx context.Context, delivery *entity.WebhookDelivery) (*entity.WebhookDelivery, error)
	GetDeliveryByID(ctx context.Context, id uuid.UUID) (*entity.WebhookDelivery, error)
	GetDeliveriesByEndpoint(ctx context.Context, endpointID uuid.UUID) ([]entity.WebhookDelivery, error)
	RecordDeliveryAttempt(ctx context.Context, id uuid.UUID, status entity.DeliveryStatus, responseStatus *int, responseBody *string) error
}

// ===================== Endpoints =====================

func (r *WebhookRepository) CreateEndpoint(ctx context.Context, endpoint *entity.WebhookEndpoint) (*entity.WebhookEndpoint, error) {
	query := `
		INSERT INTO webhook_endpoints (tenant_id, url, secret, events, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, tenant_id, url, secret, events, is_active, created_at, updated_at
	`

	var created entity.WebhookEndpoint
	err := r.DB.GetContext(ctx, &created, query,
		endpoint.TenantID, endpoint.URL, endpoint.Secret, endpoint.Events, endpoint.IsActive)
	if err != nil {
		logger.Error("WebhookRepository:CreateEndpoint", "error", err)
		return nil, err
	}

	return &created, nil
}

func (r *WebhookRepository) GetEndpointByID(ctx context.Context, id uuid.UUID) (*entity.WebhookEndpoint, error) {
	query := `
		SELECT id, tenant_id, url, secret, events, is_active, created_at, updated_at
		FROM webhook_endpoints WHERE id = $1
	`

	var endpoint entity.WebhookEndpoint
	err := r.DB.GetContext(ctx, &endpoint, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("WebhookRepository:GetEndpointByID", "error", err)
		return nil, err
	}

	return &endpoint, nil
}

func (r *WebhookRepository) GetActiveEndpointsByTenant(ctx context.Context, tenantID uuid.UUID) ([]entity.WebhookEndpoint, error) {
	query := `
		SELECT id, tenant_id, url, secret, events, is_active, created_at, updated_at
		FROM webhook_endpoints
		WHERE tenant_id = $1 AND is_active = true
	`

	var endpoints []entity.WebhookEndpoint
	err := r.DB.SelectContext(ctx, &endpoints, query, tenantID)
	if err != nil {
		logger.Error("WebhookRepository:GetActiveEndpointsByTenant", "error", err)
		return nil, err
	}

	return endpoints, nil
}

func (r *WebhookRepository) GetEndpointsByTenant(ctx context.Context, tenantID uuid.UUID) ([]entity.WebhookEndpoint, error) {
	query := `
		SELECT id, tenant_id, url, secret, events, is_active, created_at, updated_at
		FROM webhook_endpoints
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`

	var endpoints []entity.WebhookEndpoint
	err := r.DB.SelectContext(ctx, &endpoints, query, tenantID)
	if err != nil {
		logger.Error("WebhookRepository:GetEndpointsByTenant", "error", err)
		return nil, err
	}

	return endpoints, nil
}

func (r *WebhookRepository) DeactivateEndpoint(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE webhook_endpoints SET is_active = false, updated_at = NOW() WHERE id = $1`
	if err := r.DB.ExecContext(ctx, query, id); err != nil {
		logger.Error("WebhookRepository:DeactivateEndpoint", "error", err)
		return err
	}
	return nil
}

// ===================== Deliveries =====================

func (r *WebhookRepository) CreateDelivery(ctx context.Context, delivery *entity.WebhookDelivery) (*entity.WebhookDelivery, error) {
	query := `
		INSERT INTO webhook_deliveries (reference, endpoint_id, event_name, payload, status, attempt_count)
		VALUES ($1, $2, $3, $4, $5, 0)
		RETURNING id, reference, endpoint_id, event_name, payload, status, response_status, response_body, attempt_count, created_at, updated_at
	`

	var created entity.WebhookDelivery
	err := r.DB.GetContext(ctx, &created, query,
		delivery.Reference, delivery.EndpointID, delivery.EventName, delivery.Payload, delivery.Status)
	if err != nil {
		logger.Error("WebhookRepository:CreateDelivery", "error", err)
		return nil, err
	}

	return &created, nil
}

func (r *WebhookRepository) GetDeliveryByID(ctx context.Context, id uuid.UUID) (*entity.WebhookDelivery, error) {
	query := `
		SELECT id, reference, endpoint_id, event_name, payload, status, response_status, response_body, attempt_count, created_at, updated_at
		FROM webhook_deliveries WHERE id = $1
	`

	var delivery entity.WebhookDelivery
	err := r.DB.GetContext(ctx, &delivery, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("WebhookRepository:GetDeliveryByID", "error", err)
		return nil, err
	}

	return &delivery, nil
}

func (r *WebhookRepository) GetDeliveriesByEndpoint(ctx context.Context, endpointID uuid.UUID) ([]entity.WebhookDelivery, error) {
	query := `
		SELECT id, reference, endpoint_id, event_name, payload, status, response_status, response_body, attempt_count, created_at, updated_at
		FROM webhook_deliveries
		WHERE endpoint_id = $1
		ORDER BY created_at DESC
	`

	var deliveries []entity.WebhookDelivery
	err := r.DB.SelectContext(ctx, &deliveries, query, endpointID)
	if err != nil {
		logger.Error("WebhookRepository:GetDeliveriesByEndpoint", "error", err)
		return nil, err
	}

	return deliveries, nil
}

func (r *WebhookRepository) RecordDeliveryAttempt(ctx context.Context, id uuid.UUID, status entity.DeliveryStatus, responseStatus *int, responseBody *string) error {
	query := `
		UPDATE webhook_deliveries
		SET status = $2, response_status = $3, response_body = $4,
		    attempt_count = attempt_count + 1, updated_at = NOW()
		WHERE id = $1
	`
	if err := r.DB.ExecContext(ctx, query, id, status, responseStatus, responseBody); err != nil {
		logger.Error("WebhookRepository:RecordDeliveryAttempt", "error", err)
		return err
	}
	return nil
}
