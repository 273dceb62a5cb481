package audit

import (
	"context"
	"encoding/json"
	"time"

	"tripfluence-api/core/database"
	"tripfluence-api/core/logger"

	"github.com/google/uuid"
)

// Logger records who did what to which entity. Writes are fire-and-forget:
// a failed audit insert is logged and never fails the triggering operation.
type Logger struct {
	db database.IDatabase
}

func NewLogger(db database.IDatabase) *Logger {
	return &Logger{db: db}
}

// LogAction persists one audit entry asynchronously.
func (l *Logger) LogAction(actorID uuid.UUID, actorType string, action string, entityType string, entityID *uuid.UUID, metadata map[string]any) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var metaJSON *string
		if metadata != nil {
			if data, err := json.Marshal(metadata); err == nil {
				s := string(data)
				metaJSON = &s
			}
		}

		query := `
			INSERT INTO audit_logs (actor_id, actor_type, action, entity_type, entity_id, metadata, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
		`
		if err := l.db.ExecContext(ctx, query, actorID, actorType, action, entityType, entityID, metaJSON); err != nil {
			logger.Error("Audit:LogAction:Error", "error", err, "action", action, "entity_type", entityType)
		}
	}()
}
