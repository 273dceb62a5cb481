package service

import (
	"context"
	"net/url"

	"tripfluence-api/core/errors"
	"tripfluence-api/core/middleware"
	"tripfluence-api/core/utils"
	"tripfluence-api/modules/webhook/entity"
	"tripfluence-api/modules/webhook/repository"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// EndpointService manages tenant webhook endpoint configuration.
type EndpointService struct {
	repo repository.WebhookRepositoryInterface
}

func NewEndpointService(repo repository.WebhookRepositoryInterface) *EndpointService {
	return &EndpointService{repo: repo}
}

func (s *EndpointService) Create(ctx context.Context, actor *middleware.Actor, rawURL string, events []string) (*entity.WebhookEndpoint, *errors.AppError) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "callback URL must be a valid http(s) URL", err)
	}

	created, err := s.repo.CreateEndpoint(ctx, &entity.WebhookEndpoint{
		TenantID: actor.TenantID,
		URL:      rawURL,
		Secret:   utils.GenerateRandomString(32),
		Events:   pq.StringArray(events),
		IsActive: true,
	})
	if err != nil {
		return nil, errors.NewAppError(errors.ErrCreateFailed, "Failed to create webhook endpoint", err)
	}

	return created, nil
}

func (s *EndpointService) List(ctx context.Context, actor *middleware.Actor) ([]entity.WebhookEndpoint, *errors.AppError) {
	endpoints, err := s.repo.GetEndpointsByTenant(ctx, actor.TenantID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to get webhook endpoints", err)
	}
	return endpoints, nil
}

func (s *EndpointService) Deactivate(ctx context.Context, actor *middleware.Actor, endpointID uuid.UUID) *errors.AppError {
	endpoint, err := s.repo.GetEndpointByID(ctx, endpointID)
	if err != nil {
		return errors.NewAppError(errors.ErrGetFailed, "Failed to get webhook endpoint", err)
	}
	if endpoint == nil || endpoint.TenantID != actor.TenantID {
		return errors.NewAppError(errors.ErrNotFound, "Webhook endpoint not found", nil)
	}

	if err := s.repo.DeactivateEndpoint(ctx, endpointID); err != nil {
		return errors.NewAppError(errors.ErrUpdateFailed, "Failed to deactivate webhook endpoint", err)
	}
	return nil
}

func (s *EndpointService) ListDeliveries(ctx context.Context, actor *middleware.Actor, endpointID uuid.UUID) ([]entity.WebhookDelivery, *errors.AppError) {
	endpoint, err := s.repo.GetEndpointByID(ctx, endpointID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to get webhook endpoint", err)
	}
	if endpoint == nil || endpoint.TenantID != actor.TenantID {
		return nil, errors.NewAppError(errors.ErrNotFound, "Webhook endpoint not found", nil)
	}

	deliveries, err := s.repo.GetDeliveriesByEndpoint(ctx, endpointID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to get deliveries", err)
	}
	return deliveries, nil
}
