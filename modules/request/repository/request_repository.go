package repository

import (
	"context"
	"database/sql"
	"time"

	"tripfluence-api/core/database"
	"tripfluence-api/core/logger"
	"tripfluence-api/modules/request/entity"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type RequestRepository struct {
	DB database.IDatabase
}

func NewRequestRepository(db database.IDatabase) *RequestRepository {
	return &RequestRepository{DB: db}
}

type RequestRepositoryInterface interface {
	CreateRequestTx(tx *sqlx.Tx, request *entity.SpaceRequest) (*entity.SpaceRequest, error)
	GetRequestByID(ctx context.Context, id uuid.UUID) (*entity.SpaceRequest, error)
	GetRequestsBySpace(ctx context.Context, spaceID uuid.UUID, limit, offset int) ([]entity.SpaceRequest, error)
	CountRequestsBySpace(ctx context.Context, spaceID uuid.UUID) (int, error)
	GetRequestsByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]entity.SpaceRequest, error)
	CountOverlappingTx(tx *sqlx.Tx, spaceID uuid.UUID, start, end time.Time) (int, error)

	TransitionStatus(ctx context.Context, id uuid.UUID, from []entity.RequestStatus, to entity.RequestStatus, setHoldExpiresAt *time.Time, cancelReason, cancelledBy *string) (bool, error)
	TransitionStatusTx(tx *sqlx.Tx, id uuid.UUID, from []entity.RequestStatus, to entity.RequestStatus, setHoldExpiresAt *time.Time, cancelReason, cancelledBy *string) (bool, error)

	AddMessage(ctx context.Context, message *entity.SpaceMessage) (*entity.SpaceMessage, error)
	GetMessagesByRequest(ctx context.Context, requestID uuid.UUID) ([]entity.SpaceMessage, error)
}

const requestColumns = `
	id, reference, space_id, tenant_id, organizer_id, start_at, end_at, attendees,
	quote_amount_cents, quote_currency, quote_breakdown, status, hold_expires_at,
	cancel_reason, cancelled_by, created_at, updated_at
`

func (r *RequestRepository) CreateRequestTx(tx *sqlx.Tx, request *entity.SpaceRequest) (*entity.SpaceRequest, error) {
	query := `
		INSERT INTO space_requests (
			reference, space_id, tenant_id, organizer_id, start_at, end_at, attendees,
			quote_amount_cents, quote_currency, quote_breakdown, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + requestColumns

	var created entity.SpaceRequest
	err := tx.Get(&created, query,
		request.Reference, request.SpaceID, request.TenantID, request.OrganizerID,
		request.StartAt, request.EndAt, request.Attendees,
		request.QuoteAmountCents, request.QuoteCurrency, request.QuoteBreakdown, request.Status)
	if err != nil {
		logger.Error("RequestRepository:CreateRequestTx", "error", err)
		return nil, err
	}

	return &created, nil
}

func (r *RequestRepository) GetRequestByID(ctx context.Context, id uuid.UUID) (*entity.SpaceRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM space_requests WHERE id = $1`

	var request entity.SpaceRequest
	err := r.DB.GetContext(ctx, &request, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("RequestRepository:GetRequestByID", "error", err)
		return nil, err
	}

	return &request, nil
}

func (r *RequestRepository) GetRequestsBySpace(ctx context.Context, spaceID uuid.UUID, limit, offset int) ([]entity.SpaceRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM space_requests WHERE space_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	var requests []entity.SpaceRequest
	err := r.DB.SelectContext(ctx, &requests, query, spaceID, limit, offset)
	if err != nil {
		logger.Error("RequestRepository:GetRequestsBySpace", "error", err)
		return nil, err
	}

	return requests, nil
}

func (r *RequestRepository) CountRequestsBySpace(ctx context.Context, spaceID uuid.UUID) (int, error) {
	var count int
	err := r.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM space_requests WHERE space_id = $1`, spaceID)
	if err != nil {
		logger.Error("RequestRepository:CountRequestsBySpace", "error", err)
		return 0, err
	}

	return count, nil
}

func (r *RequestRepository) GetRequestsByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]entity.SpaceRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM space_requests WHERE organizer_id = $1 ORDER BY created_at DESC`

	var requests []entity.SpaceRequest
	err := r.DB.SelectContext(ctx, &requests, query, organizerID)
	if err != nil {
		logger.Error("RequestRepository:GetRequestsByOrganizer", "error", err)
		return nil, err
	}

	return requests, nil
}

// CountOverlappingTx counts requests in a non-terminal status whose
// half-open window [start_at, end_at) intersects [start, end). Runs on
// the transaction that holds the space row lock.
func (r *RequestRepository) CountOverlappingTx(tx *sqlx.Tx, spaceID uuid.UUID, start, end time.Time) (int, error) {
	statuses := make([]string, 0, len(entity.NonTerminalStatuses))
	for _, s := range entity.NonTerminalStatuses {
		statuses = append(statuses, string(s))
	}

	var count int
	query := `
		SELECT COUNT(*) FROM space_requests
		WHERE space_id = $1 AND status = ANY($2)
		  AND start_at < $4 AND $3 < end_at
	`
	err := tx.Get(&count, query, spaceID, pq.StringArray(statuses), start, end)
	if err != nil {
		logger.Error("RequestRepository:CountOverlappingTx", "error", err)
		return 0, err
	}
	return count, nil
}

// TransitionStatus performs a compare-and-swap status change: the update
// lands only if the row is currently in one of the expected from states.
// Returns false when the precondition did not hold.
func (r *RequestRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from []entity.RequestStatus, to entity.RequestStatus, setHoldExpiresAt *time.Time, cancelReason, cancelledBy *string) (bool, error) {
	result, err := r.DB.NamedExecContext(ctx, transitionQuery, transitionArgs(id, from, to, setHoldExpiresAt, cancelReason, cancelledBy))
	if err != nil {
		logger.Error("RequestRepository:TransitionStatus", "error", err, "request_id", id, "to", to)
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// TransitionStatusTx is TransitionStatus on an open transaction.
func (r *RequestRepository) TransitionStatusTx(tx *sqlx.Tx, id uuid.UUID, from []entity.RequestStatus, to entity.RequestStatus, setHoldExpiresAt *time.Time, cancelReason, cancelledBy *string) (bool, error) {
	result, err := tx.NamedExec(transitionQuery, transitionArgs(id, from, to, setHoldExpiresAt, cancelReason, cancelledBy))
	if err != nil {
		logger.Error("RequestRepository:TransitionStatusTx", "error", err, "request_id", id, "to", to)
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

const transitionQuery = `
	UPDATE space_requests
	SET status = :to_status,
	    hold_expires_at = COALESCE(:hold_expires_at, hold_expires_at),
	    cancel_reason = COALESCE(:cancel_reason, cancel_reason),
	    cancelled_by = COALESCE(:cancelled_by, cancelled_by),
	    updated_at = NOW()
	WHERE id = :id AND status = ANY(:from_statuses)
`

func transitionArgs(id uuid.UUID, from []entity.RequestStatus, to entity.RequestStatus, setHoldExpiresAt *time.Time, cancelReason, cancelledBy *string) map[string]any {
	statuses := make([]string, 0, len(from))
	for _, s := range from {
		statuses = append(statuses, string(s))
	}
	return map[string]any{
		"id":              id,
		"to_status":       string(to),
		"from_statuses":   pq.StringArray(statuses),
		"hold_expires_at": setHoldExpiresAt,
		"cancel_reason":   cancelReason,
		"cancelled_by":    cancelledBy,
	}
}

// ===================== Messages =====================

func (r *RequestRepository) AddMessage(ctx context.Context, message *entity.SpaceMessage) (*entity.SpaceMessage, error) {
	query := `
		INSERT INTO space_messages (request_id, sender_id, sender_type, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id, request_id, sender_id, sender_type, body, created_at
	`

	var created entity.SpaceMessage
	err := r.DB.GetContext(ctx, &created, query,
		message.RequestID, message.SenderID, message.SenderType, message.Body)
	if err != nil {
		logger.Error("RequestRepository:AddMessage", "error", err)
		return nil, err
	}

	return &created, nil
}

func (r *RequestRepository) GetMessagesByRequest(ctx context.Context, requestID uuid.UUID) ([]entity.SpaceMessage, error) {
	query := `
		SELECT id, request_id, sender_id, sender_type, body, created_at
		FROM space_messages
		WHERE request_id = $1
		ORDER BY created_at
	`

	var messages []entity.SpaceMessage
	err := r.DB.SelectContext(ctx, &messages, query, requestID)
	if err != nil {
		logger.Error("RequestRepository:GetMessagesByRequest", "error", err)
		return nil, err
	}

	return messages, nil
}
