package service

import (
	"context"
	"fmt"
	"time"

	"tripfluence-api/core/audit"
	"tripfluence-api/core/database"
	"tripfluence-api/core/errors"
	"tripfluence-api/core/logger"
	"tripfluence-api/core/middleware"
	"tripfluence-api/modules/space/dto"
	"tripfluence-api/modules/space/entity"
	"tripfluence-api/modules/space/repository"
	webhooksvc "tripfluence-api/modules/webhook/service"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// SpaceService handles space, pricing rule and availability block logic
type SpaceService struct {
	repo       repository.SpaceRepositoryInterface
	db         database.IDatabase
	auditLog   *audit.Logger
	dispatcher webhooksvc.Dispatcher
}

type SpaceServiceInterface interface {
	CreateSpace(ctx context.Context, actor *middleware.Actor, req *dto.CreateSpaceRequest) (*dto.SpaceResponse, *errors.AppError)
	GetSpace(ctx context.Context, actor *middleware.Actor, spaceID uuid.UUID) (*dto.SpaceResponse, *errors.AppError)
	GetMySpaces(ctx context.Context, actor *middleware.Actor) ([]dto.SpaceResponse, *errors.AppError)
	PublishSpace(ctx context.Context, actor *middleware.Actor, spaceID uuid.UUID) (*dto.SpaceResponse, *errors.AppError)
	AddPricingRule(ctx context.Context, actor *middleware.Actor, spaceID uuid.UUID, req *dto.CreatePricingRuleRequest) (*entity.PricingRule, *errors.AppError)
	GetPricingRules(ctx context.Context, actor *middleware.Actor, spaceID uuid.UUID) ([]entity.PricingRule, *errors.AppError)
	Quote(ctx context.Context, spaceID uuid.UUID, req *dto.QuoteRequest) (*PricingResult, *errors.AppError)
	AddBlock(ctx context.Context, actor *middleware.Actor, spaceID uuid.UUID, req *dto.CreateBlockRequest) (*entity.AvailabilityBlock, *errors.AppError)
	GetBlocks(ctx context.Context, actor *middleware.Actor, spaceID uuid.UUID) ([]entity.AvailabilityBlock, *errors.AppError)
}

func NewSpaceService(repo repository.SpaceRepositoryInterface, db database.IDatabase, auditLog *audit.Logger, dispatcher webhooksvc.Dispatcher) SpaceServiceInterface {
	return &SpaceService{
		repo:       repo,
		db:         db,
		auditLog:   auditLog,
		dispatcher: dispatcher,
	}
}

func (s *SpaceService) CreateSpace(ctx context.Context, actor *middleware.Actor, req *dto.CreateSpaceRequest) (*dto.SpaceResponse, *errors.AppError) {
	if req.Title == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "title is required", nil)
	}
	if req.Capacity <= 0 {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "capacity must be positive", nil)
	}

	space := &entity.Space{
		TenantID: actor.TenantID,
		Title:    req.Title,
		Slug:     slug.Make(req.Title),
		Capacity: req.Capacity,
		Status:   entity.SpaceStatusDraft,
	}
	if req.Description != "" {
		space.Description = &req.Description
	}

	created, err := s.repo.CreateSpace(ctx, space)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrCreateFailed, "Failed to create space", err)
	}

	s.auditLog.LogAction(actor.UserID, "business", "space.created", "space", &created.ID, map[string]any{
		"title": created.Title,
	})

	return dto.ToSpaceResponse(created), nil
}

// getTenantSpace loads a space scoped to the actor's tenant. A space in
// another tenant reports not-found, never forbidden.
func (s *SpaceService) getTenantSpace(ctx context.Context, actor *middleware.Actor, spaceID uuid.UUID) (*entity.Space, *errors.AppError) {
	space, err := s.repo.GetSpaceByID(ctx, spaceID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to get space", err)
	}
	if space == nil || space.TenantID != actor.TenantID {
		return nil, errors.NewAppError(errors.ErrNotFound, "Space not found", nil)
	}
	return space, nil
}

func (s *SpaceService) GetSpace(ctx context.Context, actor *middleware.Actor, spaceID uuid.UUID) (*dto.SpaceResponse, *errors.AppError) {
	space, appErr := s.getTenantSpace(ctx, actor, spaceID)
	if appErr != nil {
		return nil, appErr
	}
	return dto.ToSpaceResponse(space), nil
}

func (s *SpaceService) GetMySpaces(ctx context.Context, actor *middleware.Actor) ([]dto.SpaceResponse, *errors.AppError) {
	spaces, err := s.repo.GetSpacesByTenant(ctx, actor.TenantID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to get spaces", err)
	}

	result := make([]dto.SpaceResponse, 0, len(spaces))
	for i := range spaces {
		result = append(result, *dto.ToSpaceResponse(&spaces[i]))
	}
	return result, nil
}

// PublishSpace validates the pricing rule set and flips the space to
// published. A space without a base rate cannot be published.
func (s *SpaceService) PublishSpace(ctx context.Context, actor *middleware.Actor, spaceID uuid.UUID) (*dto.SpaceResponse, *errors.AppError) {
	space, appErr := s.getTenantSpace(ctx, actor, spaceID)
	if appErr != nil {
		return nil, appErr
	}

	rules, err := s.repo.GetPricingRulesBySpace(ctx, spaceID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to get pricing rules", err)
	}

	if problems := ValidatePricingRules(rules); len(problems) > 0 {
		return nil, errors.NewAppError(errors.ErrInvalidInput,
			fmt.Sprintf("space is not publishable: %v", problems), nil)
	}

	if err := s.repo.UpdateSpaceStatus(ctx, spaceID, entity.SpaceStatusPublished); err != nil {
		return nil, errors.NewAppError(errors.ErrUpdateFailed, "Failed to publish space", err)
	}
	space.Status = entity.SpaceStatusPublished

	s.auditLog.LogAction(actor.UserID, "business", "space.published", "space", &space.ID, nil)
	s.dispatcher.Trigger(ctx, "space.published", dto.ToSpaceResponse(space), actor.TenantID)

	return dto.ToSpaceResponse(space), nil
}

func (s *SpaceService) AddPricingRule(ctx context.Context, actor *middleware.Actor, spaceID uuid.UUID, req *dto.CreatePricingRuleRequest) (*entity.PricingRule, *errors.AppError) {
	space, appErr := s.getTenantSpace(ctx, actor, spaceID)
	if appErr != nil {
		return nil, appErr
	}

	kind := entity.PricingRuleKind(req.Kind)
	switch kind {
	case entity.RuleKindHourly, entity.RuleKindDaily, entity.RuleKindPeak,
		entity.RuleKindCleaningFee, entity.RuleKindSecurityDeposit:
	default:
		return nil, errors.NewAppError(errors.ErrInvalidInput, "unknown pricing rule kind", nil)
	}
	if req.AmountCents < 0 {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "amount must not be negative", nil)
	}
	if req.Currency == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "currency is required", nil)
	}

	// At most one rule per kind, except PEAK.
	if kind != entity.RuleKindPeak {
		count, err := s.repo.CountPricingRulesByKind(ctx, spaceID, kind)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to check existing rules", err)
		}
		if count > 0 {
			return nil, errors.NewAppError(errors.ErrConflict,
				fmt.Sprintf("space already has a %s rule", kind), nil)
		}
	} else if len(req.DaysOfWeek) == 0 && (req.StartHour == nil || req.EndHour == nil) {
		return nil, errors.NewAppError(errors.ErrInvalidInput,
			"PEAK rule needs a day-of-week set or an hour range", nil)
	}

	rule := &entity.PricingRule{
		SpaceID:     space.ID,
		Kind:        kind,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		DaysOfWeek:  pq.Int64Array(req.DaysOfWeek),
		StartHour:   req.StartHour,
		EndHour:     req.EndHour,
	}

	created, err := s.repo.CreatePricingRule(ctx, rule)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrCreateFailed, "Failed to create pricing rule", err)
	}

	s.auditLog.LogAction(actor.UserID, "business", "pricing_rule.created", "pricing_rule", &created.ID, map[string]any{
		"space_id": spaceID.String(),
		"kind":     string(kind),
	})

	return created, nil
}

func (s *SpaceService) GetPricingRules(ctx context.Context, actor *middleware.Actor, spaceID uuid.UUID) ([]entity.PricingRule, *errors.AppError) {
	if _, appErr := s.getTenantSpace(ctx, actor, spaceID); appErr != nil {
		return nil, appErr
	}

	rules, err := s.repo.GetPricingRulesBySpace(ctx, spaceID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to get pricing rules", err)
	}
	return rules, nil
}

// Quote prices a window against a published space without persisting
// anything. Public endpoint: no tenant scoping, published spaces only.
func (s *SpaceService) Quote(ctx context.Context, spaceID uuid.UUID, req *dto.QuoteRequest) (*PricingResult, *errors.AppError) {
	space, err := s.repo.GetSpaceByID(ctx, spaceID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to get space", err)
	}
	if space == nil || space.Status != entity.SpaceStatusPublished {
		return nil, errors.NewAppError(errors.ErrNotFound, "Space not found", nil)
	}

	start, end, appErr := parseWindow(req.StartAt, req.EndAt)
	if appErr != nil {
		return nil, appErr
	}
	if appErr := CheckCapacity(space, req.Attendees); appErr != nil {
		return nil, appErr
	}

	rules, err := s.repo.GetPricingRulesBySpace(ctx, spaceID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to get pricing rules", err)
	}

	result := PriceSpaceRequest(rules, start, end)
	return &result, nil
}

// AddBlock creates an availability block; overlapping blocks for the same
// space are rejected inside one transaction so concurrent creates cannot
// both land.
func (s *SpaceService) AddBlock(ctx context.Context, actor *middleware.Actor, spaceID uuid.UUID, req *dto.CreateBlockRequest) (*entity.AvailabilityBlock, *errors.AppError) {
	space, appErr := s.getTenantSpace(ctx, actor, spaceID)
	if appErr != nil {
		return nil, appErr
	}

	start, end, appErr := parseWindow(req.StartAt, req.EndAt)
	if appErr != nil {
		return nil, appErr
	}

	block := &entity.AvailabilityBlock{
		SpaceID:   space.ID,
		StartAt:   start,
		EndAt:     end,
		IsBlocked: req.IsBlocked,
	}
	if req.Notes != "" {
		block.Notes = &req.Notes
	}

	var created *entity.AvailabilityBlock
	var conflictErr *errors.AppError
	err := s.db.Transact(ctx, func(tx *sqlx.Tx) error {
		if err := s.repo.LockSpaceTx(tx, space.ID); err != nil {
			return err
		}
		count, err := s.repo.CountOverlappingBlocksTx(tx, space.ID, block)
		if err != nil {
			return err
		}
		if count > 0 {
			conflictErr = errors.NewAppError(errors.ErrConflict,
				"block overlaps an existing availability block", nil)
			return conflictErr
		}
		created, err = s.repo.CreateBlockTx(tx, block)
		return err
	})
	if conflictErr != nil {
		return nil, conflictErr
	}
	if err != nil {
		logger.Error("SpaceService:AddBlock:Transact", "error", err, "space_id", spaceID)
		return nil, errors.NewAppError(errors.ErrCreateFailed, "Failed to create block", err)
	}

	s.auditLog.LogAction(actor.UserID, "business", "availability_block.created", "availability_block", &created.ID, map[string]any{
		"space_id":   spaceID.String(),
		"is_blocked": created.IsBlocked,
	})

	return created, nil
}

func (s *SpaceService) GetBlocks(ctx context.Context, actor *middleware.Actor, spaceID uuid.UUID) ([]entity.AvailabilityBlock, *errors.AppError) {
	if _, appErr := s.getTenantSpace(ctx, actor, spaceID); appErr != nil {
		return nil, appErr
	}

	blocks, err := s.repo.GetBlocksBySpace(ctx, spaceID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to get blocks", err)
	}
	return blocks, nil
}

func parseWindow(startStr, endStr string) (time.Time, time.Time, *errors.AppError) {
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.NewAppError(errors.ErrInvalidInput, "invalid start time format", err)
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.NewAppError(errors.ErrInvalidInput, "invalid end time format", err)
	}
	if appErr := ValidateWindow(start, end); appErr != nil {
		return time.Time{}, time.Time{}, appErr
	}
	return start.UTC(), end.UTC(), nil
}
