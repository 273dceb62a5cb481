package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tripfluence-api/core/audit"
	"tripfluence-api/core/constants"
	"tripfluence-api/core/database"
	coreentity "tripfluence-api/core/entity"
	"tripfluence-api/core/errors"
	"tripfluence-api/core/logger"
	"tripfluence-api/core/middleware"
	"tripfluence-api/core/params"
	"tripfluence-api/core/utils"
	"tripfluence-api/modules/request/dto"
	"tripfluence-api/modules/request/entity"
	"tripfluence-api/modules/request/repository"
	spaceentity "tripfluence-api/modules/space/entity"
	spacerepo "tripfluence-api/modules/space/repository"
	spacesvc "tripfluence-api/modules/space/service"
	webhooksvc "tripfluence-api/modules/webhook/service"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SpaceLocker serializes request creation per space. Satisfied by the
// redis cache.
type SpaceLocker interface {
	AcquireSpaceLock(ctx context.Context, spaceID uuid.UUID) (bool, error)
	ReleaseSpaceLock(ctx context.Context, spaceID uuid.UUID)
}

// JobScheduler queues the delayed hold expiry task. Satisfied by the
// asynq client.
type JobScheduler interface {
	Schedule(ctx context.Context, taskType string, payload any, delay time.Duration) (string, error)
}

// RequestService owns the booking request lifecycle. Every transition is
// a compare-and-swap on the expected prior status, so a racing payment
// webhook and hold expiry job cannot both win.
type RequestService struct {
	repo       repository.RequestRepositoryInterface
	spaceRepo  spacerepo.SpaceRepositoryInterface
	db         database.IDatabase
	locks      SpaceLocker
	scheduler  JobScheduler
	auditLog   *audit.Logger
	dispatcher webhooksvc.Dispatcher
}

type RequestServiceInterface interface {
	Create(ctx context.Context, actor *middleware.Actor, req *dto.CreateRequestRequest) (*dto.RequestResponse, *errors.AppError)
	GetByID(ctx context.Context, actor *middleware.Actor, requestID uuid.UUID) (*dto.RequestResponse, *errors.AppError)
	GetBySpace(ctx context.Context, actor *middleware.Actor, spaceID uuid.UUID, qp params.QueryParams) (*coreentity.Pagination[dto.RequestResponse], *errors.AppError)
	Approve(ctx context.Context, actor *middleware.Actor, requestID uuid.UUID) (*dto.RequestResponse, *errors.AppError)
	ConfirmPayment(ctx context.Context, requestID uuid.UUID) (*dto.RequestResponse, *errors.AppError)
	Cancel(ctx context.Context, actor *middleware.Actor, requestID uuid.UUID, reason string) (*dto.RequestResponse, *errors.AppError)
	ExpireHold(ctx context.Context, requestID uuid.UUID) error
	AddMessage(ctx context.Context, actor *middleware.Actor, requestID uuid.UUID, body string) (*entity.SpaceMessage, *errors.AppError)
	GetMessages(ctx context.Context, actor *middleware.Actor, requestID uuid.UUID) ([]entity.SpaceMessage, *errors.AppError)
}

func NewRequestService(
	repo repository.RequestRepositoryInterface,
	spaceRepo spacerepo.SpaceRepositoryInterface,
	db database.IDatabase,
	locks SpaceLocker,
	scheduler JobScheduler,
	auditLog *audit.Logger,
	dispatcher webhooksvc.Dispatcher,
) RequestServiceInterface {
	return &RequestService{
		repo:       repo,
		spaceRepo:  spaceRepo,
		db:         db,
		locks:      locks,
		scheduler:  scheduler,
		auditLog:   auditLog,
		dispatcher: dispatcher,
	}
}

// Create validates capacity, blocks and request conflicts, prices the
// window, and inserts the request as pending. The conflict check and the
// insert run on one transaction holding the space row lock, behind a
// short redis lock, so two simultaneous requests for the same window
// cannot both land.
func (s *RequestService) Create(ctx context.Context, actor *middleware.Actor, req *dto.CreateRequestRequest) (*dto.RequestResponse, *errors.AppError) {
	spaceID, err := uuid.Parse(req.SpaceID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "invalid space id", err)
	}
	if req.Attendees <= 0 {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "attendees must be positive", nil)
	}

	start, parseErr := time.Parse(time.RFC3339, req.StartAt)
	if parseErr != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "invalid start time format", parseErr)
	}
	end, parseErr := time.Parse(time.RFC3339, req.EndAt)
	if parseErr != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "invalid end time format", parseErr)
	}
	start, end = start.UTC(), end.UTC()
	if appErr := spacesvc.ValidateWindow(start, end); appErr != nil {
		return nil, appErr
	}

	space, err := s.spaceRepo.GetSpaceByID(ctx, spaceID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to get space", err)
	}
	if space == nil || space.Status != spaceentity.SpaceStatusPublished {
		return nil, errors.NewAppError(errors.ErrNotFound, "Space not found", nil)
	}

	if appErr := spacesvc.CheckCapacity(space, req.Attendees); appErr != nil {
		return nil, appErr
	}

	blocks, err := s.spaceRepo.GetBlocksBySpace(ctx, spaceID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to get availability blocks", err)
	}
	if appErr := spacesvc.CheckBlocks(blocks, start, end); appErr != nil {
		return nil, appErr
	}

	rules, err := s.spaceRepo.GetPricingRulesBySpace(ctx, spaceID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to get pricing rules", err)
	}
	quote := spacesvc.PriceSpaceRequest(rules, start, end)
	breakdownJSON, _ := json.Marshal(quote)
	breakdown := string(breakdownJSON)

	acquired, err := s.locks.AcquireSpaceLock(ctx, spaceID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to acquire space lock", err)
	}
	if !acquired {
		return nil, errors.NewAppError(errors.ErrConflict,
			"another request for this space is being processed, try again", nil)
	}
	defer s.locks.ReleaseSpaceLock(ctx, spaceID)

	request := &entity.SpaceRequest{
		Reference:        utils.GenerateID(),
		SpaceID:          spaceID,
		TenantID:         space.TenantID,
		OrganizerID:      actor.UserID,
		StartAt:          start,
		EndAt:            end,
		Attendees:        req.Attendees,
		QuoteAmountCents: quote.TotalCents,
		QuoteCurrency:    quote.Currency,
		QuoteBreakdown:   &breakdown,
		Status:           entity.StatusPending,
	}

	var created *entity.SpaceRequest
	var conflictErr *errors.AppError
	err = s.db.Transact(ctx, func(tx *sqlx.Tx) error {
		if err := s.spaceRepo.LockSpaceTx(tx, spaceID); err != nil {
			return err
		}
		count, err := s.repo.CountOverlappingTx(tx, spaceID, start, end)
		if err != nil {
			return err
		}
		if count > 0 {
			conflictErr = errors.NewAppError(errors.ErrConflict,
				"requested window overlaps an existing request for this space", nil)
			return conflictErr
		}
		created, err = s.repo.CreateRequestTx(tx, request)
		return err
	})
	if conflictErr != nil {
		return nil, conflictErr
	}
	if err != nil {
		logger.Error("RequestService:Create:Transact", "error", err, "space_id", spaceID)
		return nil, errors.NewAppError(errors.ErrCreateFailed, "Failed to create request", err)
	}

	s.auditLog.LogAction(actor.UserID, entity.ActorTypeOrganizer, "space_request.created", "space_request", &created.ID, map[string]any{
		"space_id":  spaceID.String(),
		"reference": created.Reference,
	})
	s.dispatcher.Trigger(ctx, "space_request.created", dto.ToRequestResponse(created), space.TenantID)

	return dto.ToRequestResponse(created), nil
}

// getScopedRequest loads a request visible to the actor: the organizer
// who filed it, or a business user of the owning tenant. Anything else
// reads as not found.
func (s *RequestService) getScopedRequest(ctx context.Context, actor *middleware.Actor, requestID uuid.UUID) (*entity.SpaceRequest, *errors.AppError) {
	request, err := s.repo.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to get request", err)
	}
	if request == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "Request not found", nil)
	}

	isOrganizer := request.OrganizerID == actor.UserID
	isBusiness := actor.IsBusinessUser() && request.TenantID == actor.TenantID
	if !isOrganizer && !isBusiness {
		return nil, errors.NewAppError(errors.ErrNotFound, "Request not found", nil)
	}

	return request, nil
}

func (s *RequestService) GetByID(ctx context.Context, actor *middleware.Actor, requestID uuid.UUID) (*dto.RequestResponse, *errors.AppError) {
	request, appErr := s.getScopedRequest(ctx, actor, requestID)
	if appErr != nil {
		return nil, appErr
	}
	return dto.ToRequestResponse(request), nil
}

func (s *RequestService) GetBySpace(ctx context.Context, actor *middleware.Actor, spaceID uuid.UUID, qp params.QueryParams) (*coreentity.Pagination[dto.RequestResponse], *errors.AppError) {
	space, err := s.spaceRepo.GetSpaceByID(ctx, spaceID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to get space", err)
	}
	if space == nil || space.TenantID != actor.TenantID {
		return nil, errors.NewAppError(errors.ErrNotFound, "Space not found", nil)
	}

	total, err := s.repo.CountRequestsBySpace(ctx, spaceID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to count requests", err)
	}

	requests, err := s.repo.GetRequestsBySpace(ctx, spaceID, qp.PageSize, qp.Offset())
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to get requests", err)
	}

	items := make([]dto.RequestResponse, 0, len(requests))
	for i := range requests {
		items = append(items, *dto.ToRequestResponse(&requests[i]))
	}
	return coreentity.NewPagination(items, total, qp.PageNumber, qp.PageSize), nil
}

// Approve moves pending -> needs_payment, stamps the 24h payment hold
// and schedules the expiry job. The status update and the job enqueue
// share a transaction: a failed enqueue rolls the transition back, and a
// job that outlives a rolled-back transition no-ops on its status check.
func (s *RequestService) Approve(ctx context.Context, actor *middleware.Actor, requestID uuid.UUID) (*dto.RequestResponse, *errors.AppError) {
	_, appErr := s.getScopedRequest(ctx, actor, requestID)
	if appErr != nil {
		return nil, appErr
	}
	if !actor.IsBusinessUser() {
		return nil, errors.NewAppError(errors.ErrForbidden, "only business users can approve requests", nil)
	}

	holdExpiresAt := time.Now().UTC().Add(constants.HoldDuration)

	var staleErr *errors.AppError
	err := s.db.Transact(ctx, func(tx *sqlx.Tx) error {
		ok, err := s.repo.TransitionStatusTx(tx, requestID,
			[]entity.RequestStatus{entity.StatusPending}, entity.StatusNeedsPayment,
			&holdExpiresAt, nil, nil)
		if err != nil {
			return err
		}
		if !ok {
			staleErr = s.wrongStatusError(ctx, requestID, entity.StatusPending)
			return staleErr
		}
		_, err = s.scheduler.Schedule(ctx, constants.TaskHoldExpiry,
			HoldExpiryPayload{RequestID: requestID}, constants.HoldDuration)
		return err
	})
	if staleErr != nil {
		return nil, staleErr
	}
	if err != nil {
		logger.Error("RequestService:Approve:Transact", "error", err, "request_id", requestID)
		return nil, errors.NewAppError(errors.ErrUpdateFailed, "Failed to approve request", err)
	}

	s.auditLog.LogAction(actor.UserID, entity.ActorTypeBusiness, "space_request.approved", "space_request", &requestID, map[string]any{
		"hold_expires_at": holdExpiresAt.Format(time.RFC3339),
	})

	updated, _ := s.repo.GetRequestByID(ctx, requestID)
	if updated != nil {
		s.dispatcher.Trigger(ctx, "space_request.approved", dto.ToRequestResponse(updated), updated.TenantID)
		return dto.ToRequestResponse(updated), nil
	}
	return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to reload request", nil)
}

// ConfirmPayment is the payment-webhook entry point: needs_payment moves
// through paid_hold to confirmed. The scheduled expiry job then finds a
// status it no longer owns and does nothing.
func (s *RequestService) ConfirmPayment(ctx context.Context, requestID uuid.UUID) (*dto.RequestResponse, *errors.AppError) {
	ok, err := s.repo.TransitionStatus(ctx, requestID,
		[]entity.RequestStatus{entity.StatusNeedsPayment}, entity.StatusPaidHold, nil, nil, nil)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrUpdateFailed, "Failed to record payment", err)
	}
	if !ok {
		return nil, s.wrongStatusError(ctx, requestID, entity.StatusNeedsPayment)
	}

	ok, err = s.repo.TransitionStatus(ctx, requestID,
		[]entity.RequestStatus{entity.StatusPaidHold}, entity.StatusConfirmed, nil, nil, nil)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrUpdateFailed, "Failed to confirm request", err)
	}
	if !ok {
		return nil, s.wrongStatusError(ctx, requestID, entity.StatusPaidHold)
	}

	request, err := s.repo.GetRequestByID(ctx, requestID)
	if err != nil || request == nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to reload request", err)
	}

	s.auditLog.LogAction(request.OrganizerID, entity.ActorTypeSystem, "space_request.confirmed", "space_request", &requestID, nil)
	s.dispatcher.Trigger(ctx, "space_request.confirmed", dto.ToRequestResponse(request), request.TenantID)

	return dto.ToRequestResponse(request), nil
}

// Cancel is callable by the organizer or a business user while the
// request is pending, needs_payment or paid_hold.
func (s *RequestService) Cancel(ctx context.Context, actor *middleware.Actor, requestID uuid.UUID, reason string) (*dto.RequestResponse, *errors.AppError) {
	request, appErr := s.getScopedRequest(ctx, actor, requestID)
	if appErr != nil {
		return nil, appErr
	}

	actorType := entity.ActorTypeOrganizer
	if actor.IsBusinessUser() && request.TenantID == actor.TenantID {
		actorType = entity.ActorTypeBusiness
	}

	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}

	ok, err := s.repo.TransitionStatus(ctx, requestID,
		[]entity.RequestStatus{entity.StatusPending, entity.StatusNeedsPayment, entity.StatusPaidHold},
		entity.StatusCancelled, nil, reasonPtr, &actorType)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrUpdateFailed, "Failed to cancel request", err)
	}
	if !ok {
		return nil, errors.NewAppError(errors.ErrConflict,
			fmt.Sprintf("request cannot be cancelled from status %s", request.Status), nil)
	}

	s.auditLog.LogAction(actor.UserID, actorType, "space_request.cancelled", "space_request", &requestID, map[string]any{
		"reason": reason,
	})

	updated, _ := s.repo.GetRequestByID(ctx, requestID)
	if updated != nil {
		s.dispatcher.Trigger(ctx, "space_request.cancelled", dto.ToRequestResponse(updated), updated.TenantID)
		return dto.ToRequestResponse(updated), nil
	}
	return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to reload request", nil)
}

// ExpireHold releases a payment hold that ran out. Called by the delayed
// job; the job queue delivers at least once and may fire after payment
// already landed, so a failed swap is a silent no-op, not an error.
func (s *RequestService) ExpireHold(ctx context.Context, requestID uuid.UUID) error {
	reason := entity.CancelReasonHoldExpired
	actorType := entity.ActorTypeSystem

	ok, err := s.repo.TransitionStatus(ctx, requestID,
		[]entity.RequestStatus{entity.StatusNeedsPayment}, entity.StatusCancelled,
		nil, &reason, &actorType)
	if err != nil {
		return err
	}
	if !ok {
		logger.Info("RequestService:ExpireHold:NoOp", "request_id", requestID)
		return nil
	}

	request, err := s.repo.GetRequestByID(ctx, requestID)
	if err != nil || request == nil {
		logger.Error("RequestService:ExpireHold:Reload", "error", err, "request_id", requestID)
		return nil
	}

	s.auditLog.LogAction(request.OrganizerID, entity.ActorTypeSystem, "space_request.hold_expired", "space_request", &requestID, nil)
	s.dispatcher.Trigger(ctx, "space_request.hold_expired", dto.ToRequestResponse(request), request.TenantID)

	logger.Info("RequestService:ExpireHold:Released", "request_id", requestID, "reference", request.Reference)
	return nil
}

func (s *RequestService) AddMessage(ctx context.Context, actor *middleware.Actor, requestID uuid.UUID, body string) (*entity.SpaceMessage, *errors.AppError) {
	if body == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "message body is required", nil)
	}

	request, appErr := s.getScopedRequest(ctx, actor, requestID)
	if appErr != nil {
		return nil, appErr
	}

	senderType := entity.ActorTypeOrganizer
	if actor.IsBusinessUser() && request.TenantID == actor.TenantID {
		senderType = entity.ActorTypeBusiness
	}

	message, err := s.repo.AddMessage(ctx, &entity.SpaceMessage{
		RequestID:  request.ID,
		SenderID:   actor.UserID,
		SenderType: senderType,
		Body:       body,
	})
	if err != nil {
		return nil, errors.NewAppError(errors.ErrCreateFailed, "Failed to add message", err)
	}

	return message, nil
}

func (s *RequestService) GetMessages(ctx context.Context, actor *middleware.Actor, requestID uuid.UUID) ([]entity.SpaceMessage, *errors.AppError) {
	request, appErr := s.getScopedRequest(ctx, actor, requestID)
	if appErr != nil {
		return nil, appErr
	}

	messages, err := s.repo.GetMessagesByRequest(ctx, request.ID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to get messages", err)
	}
	return messages, nil
}

// wrongStatusError reloads the row to report the actual current status in
// the conflict error.
func (s *RequestService) wrongStatusError(ctx context.Context, requestID uuid.UUID, expected entity.RequestStatus) *errors.AppError {
	current, err := s.repo.GetRequestByID(ctx, requestID)
	if err != nil || current == nil {
		return errors.NewAppError(errors.ErrNotFound, "Request not found", err)
	}
	return errors.NewAppError(errors.ErrConflict,
		fmt.Sprintf("request is %s, expected %s", current.Status, expected), nil)
}
