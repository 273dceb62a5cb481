package service

import (
	"context"
	"encoding/json"

	"tripfluence-api/core/logger"

	"github.com/google/uuid"
)

// HoldExpiryPayload is the delayed-job payload scheduled at approval time.
type HoldExpiryPayload struct {
	RequestID uuid.UUID `json:"request_id"`
}

// HoldExpiryHandler adapts ExpireHold to the job worker signature.
func HoldExpiryHandler(svc RequestServiceInterface) func(ctx context.Context, payload []byte) error {
	return func(ctx context.Context, payload []byte) error {
		var p HoldExpiryPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			logger.Error("HoldExpiryHandler:Unmarshal", "error", err)
			return nil
		}
		return svc.ExpireHold(ctx, p.RequestID)
	}
}
