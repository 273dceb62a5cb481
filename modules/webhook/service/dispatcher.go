package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tripfluence-api/core/constants"
	"tripfluence-api/core/jobs"
	"tripfluence-api/core/logger"
	"tripfluence-api/core/utils"
	"tripfluence-api/modules/webhook/entity"
	"tripfluence-api/modules/webhook/repository"

	"github.com/google/uuid"
)

// Dispatcher fans out domain events to tenant-configured endpoints.
// Trigger never fails the calling operation: lookup or enqueue problems
// are logged and swallowed.
type Dispatcher interface {
	Trigger(ctx context.Context, eventName string, payload any, tenantID uuid.UUID)
}

type deliverPayload struct {
	DeliveryID uuid.UUID `json:"delivery_id"`
}

type WebhookDispatcher struct {
	repo          repository.WebhookRepositoryInterface
	jobClient     *jobs.Client
	signingSecret string
	httpClient    *http.Client
}

func NewWebhookDispatcher(repo repository.WebhookRepositoryInterface, jobClient *jobs.Client, signingSecret string) *WebhookDispatcher {
	return &WebhookDispatcher{
		repo:          repo,
		jobClient:     jobClient,
		signingSecret: signingSecret,
		httpClient:    &http.Client{Timeout: constants.DefaultTimeout},
	}
}

// Trigger snapshots the payload now, writes one pending delivery row per
// subscribed endpoint, and queues the actual sends. The snapshot is what
// gets delivered even if the entity changes before the POST goes out.
func (d *WebhookDispatcher) Trigger(ctx context.Context, eventName string, payload any, tenantID uuid.UUID) {
	body, err := json.Marshal(map[string]any{
		"event":        eventName,
		"triggered_at": time.Now().UTC().Format(time.RFC3339),
		"data":         payload,
	})
	if err != nil {
		logger.Error("WebhookDispatcher:Trigger:Marshal", "error", err, "event", eventName)
		return
	}

	endpoints, err := d.repo.GetActiveEndpointsByTenant(ctx, tenantID)
	if err != nil {
		logger.Error("WebhookDispatcher:Trigger:GetEndpoints", "error", err, "event", eventName)
		return
	}

	for _, endpoint := range endpoints {
		if !endpoint.SubscribesTo(eventName) {
			continue
		}

		delivery, err := d.repo.CreateDelivery(ctx, &entity.WebhookDelivery{
			Reference:  utils.GenerateID(),
			EndpointID: endpoint.ID,
			EventName:  eventName,
			Payload:    string(body),
			Status:     entity.DeliveryStatusPending,
		})
		if err != nil {
			logger.Error("WebhookDispatcher:Trigger:CreateDelivery", "error", err, "endpoint_id", endpoint.ID)
			continue
		}

		if _, err := d.jobClient.Enqueue(ctx, constants.TaskWebhookDeliver, deliverPayload{DeliveryID: delivery.ID}); err != nil {
			logger.Error("WebhookDispatcher:Trigger:Enqueue", "error", err, "delivery_id", delivery.ID)
		}
	}
}

// HandleDeliver is the webhook:deliver task handler. Returning an error
// lets the job queue retry with backoff; each attempt appends to the
// delivery record.
func (d *WebhookDispatcher) HandleDeliver(ctx context.Context, raw []byte) error {
	var payload deliverPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		logger.Error("WebhookDispatcher:HandleDeliver:Unmarshal", "error", err)
		return nil // malformed payload, retrying cannot help
	}

	delivery, err := d.repo.GetDeliveryByID(ctx, payload.DeliveryID)
	if err != nil {
		return err
	}
	if delivery == nil || delivery.Status == entity.DeliveryStatusSuccess {
		return nil
	}

	endpoint, err := d.repo.GetEndpointByID(ctx, delivery.EndpointID)
	if err != nil {
		return err
	}
	if endpoint == nil || !endpoint.IsActive {
		logger.Warn("WebhookDispatcher:HandleDeliver:EndpointGone", "delivery_id", delivery.ID)
		return nil
	}

	status, responseBody, sendErr := d.send(ctx, endpoint, delivery)

	var respStatus *int
	var respBody *string
	if status != 0 {
		respStatus = &status
	}
	if responseBody != "" {
		truncated := responseBody
		if len(truncated) > 1024 {
			truncated = truncated[:1024]
		}
		respBody = &truncated
	}

	if sendErr != nil {
		if recErr := d.repo.RecordDeliveryAttempt(ctx, delivery.ID, entity.DeliveryStatusFailed, respStatus, respBody); recErr != nil {
			logger.Error("WebhookDispatcher:HandleDeliver:RecordFailed", "error", recErr)
		}
		return sendErr
	}

	return d.repo.RecordDeliveryAttempt(ctx, delivery.ID, entity.DeliveryStatusSuccess, respStatus, respBody)
}

func (d *WebhookDispatcher) send(ctx context.Context, endpoint *entity.WebhookEndpoint, delivery *entity.WebhookDelivery) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.URL, bytes.NewReader([]byte(delivery.Payload)))
	if err != nil {
		return 0, "", fmt.Errorf("failed to build delivery request: %w", err)
	}

	secret := endpoint.Secret
	if secret == "" {
		secret = d.signingSecret
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tripfluence-Event", delivery.EventName)
	req.Header.Set("X-Tripfluence-Delivery", delivery.Reference)
	req.Header.Set("X-Tripfluence-Signature", SignPayload(secret, []byte(delivery.Payload)))

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("delivery to %s failed: %w", endpoint.URL, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, string(body), fmt.Errorf("endpoint returned %d", resp.StatusCode)
	}
	return resp.StatusCode, string(body), nil
}

// SignPayload returns the hex HMAC-SHA256 signature endpoints use to
// verify delivery authenticity.
func SignPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
