package repository

import (
	"context"
	"database/sql"

	"tripfluence-api/core/database"
	"tripfluence-api/core/logger"
	"tripfluence-api/modules/space/entity"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SpaceRepository handles space, pricing rule and availability block rows
type SpaceRepository struct {
	DB database.IDatabase
}

func NewSpaceRepository(db database.IDatabase) *SpaceRepository {
	return &SpaceRepository{DB: db}
}

// SpaceRepositoryInterface defines the repository contract
type SpaceRepositoryInterface interface {
	CreateSpace(ctx context.Context, space *entity.Space) (*entity.Space, error)
	GetSpaceByID(ctx context.Context, id uuid.UUID) (*entity.Space, error)
	GetSpacesByTenant(ctx context.Context, tenantID uuid.UUID) ([]entity.Space, error)
	UpdateSpaceStatus(ctx context.Context, id uuid.UUID, status entity.SpaceStatus) error

	CreatePricingRule(ctx context.Context, rule *entity.PricingRule) (*entity.PricingRule, error)
	GetPricingRulesBySpace(ctx context.Context, spaceID uuid.UUID) ([]entity.PricingRule, error)
	CountPricingRulesByKind(ctx context.Context, spaceID uuid.UUID, kind entity.PricingRuleKind) (int, error)
	DeletePricingRule(ctx context.Context, spaceID uuid.UUID, ruleID uuid.UUID) error

	CreateBlockTx(tx *sqlx.Tx, block *entity.AvailabilityBlock) (*entity.AvailabilityBlock, error)
	GetBlocksBySpace(ctx context.Context, spaceID uuid.UUID) ([]entity.AvailabilityBlock, error)
	CountOverlappingBlocksTx(tx *sqlx.Tx, spaceID uuid.UUID, block *entity.AvailabilityBlock) (int, error)
	LockSpaceTx(tx *sqlx.Tx, spaceID uuid.UUID) error
}

// ===================== Spaces =====================

func (r *SpaceRepository) CreateSpace(ctx context.Context, space *entity.Space) (*entity.Space, error) {
	query := `
		INSERT INTO spaces (tenant_id, title, slug, description, capacity, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, tenant_id, title, slug, description, capacity, status, created_at, updated_at
	`

	var created entity.Space
	err := r.DB.GetContext(ctx, &created, query,
		space.TenantID, space.Title, space.Slug, space.Description, space.Capacity, space.Status)
	if err != nil {
		logger.Error("SpaceRepository:CreateSpace", "error", err)
		return nil, err
	}

	return &created, nil
}

func (r *SpaceRepository) GetSpaceByID(ctx context.Context, id uuid.UUID) (*entity.Space, error) {
	query := `
		SELECT id, tenant_id, title, slug, description, capacity, status, created_at, updated_at
		FROM spaces WHERE id = $1
	`

	var space entity.Space
	err := r.DB.GetContext(ctx, &space, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("SpaceRepository:GetSpaceByID", "error", err)
		return nil, err
	}

	return &space, nil
}

func (r *SpaceRepository) GetSpacesByTenant(ctx context.Context, tenantID uuid.UUID) ([]entity.Space, error) {
	query := `
		SELECT id, tenant_id, title, slug, description, capacity, status, created_at, updated_at
		FROM spaces
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`

	var spaces []entity.Space
	err := r.DB.SelectContext(ctx, &spaces, query, tenantID)
	if err != nil {
		logger.Error("SpaceRepository:GetSpacesByTenant", "error", err)
		return nil, err
	}

	return spaces, nil
}

func (r *SpaceRepository) UpdateSpaceStatus(ctx context.Context, id uuid.UUID, status entity.SpaceStatus) error {
	query := `UPDATE spaces SET status = $2, updated_at = NOW() WHERE id = $1`
	if err := r.DB.ExecContext(ctx, query, id, status); err != nil {
		logger.Error("SpaceRepository:UpdateSpaceStatus", "error", err)
		return err
	}
	return nil
}

// LockSpaceTx takes a row lock on the space for the duration of the
// transaction, serializing conflict checks against the same space.
func (r *SpaceRepository) LockSpaceTx(tx *sqlx.Tx, spaceID uuid.UUID) error {
	var id uuid.UUID
	err := tx.Get(&id, `SELECT id FROM spaces WHERE id = $1 FOR UPDATE`, spaceID)
	if err != nil {
		logger.Error("SpaceRepository:LockSpaceTx", "error", err, "space_id", spaceID)
		return err
	}
	return nil
}

// ===================== Pricing rules =====================

func (r *SpaceRepository) CreatePricingRule(ctx context.Context, rule *entity.PricingRule) (*entity.PricingRule, error) {
	query := `
		INSERT INTO pricing_rules (space_id, kind, amount_cents, currency, days_of_week, start_hour, end_hour)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, space_id, kind, amount_cents, currency, days_of_week, start_hour, end_hour, created_at, updated_at
	`

	var created entity.PricingRule
	err := r.DB.GetContext(ctx, &created, query,
		rule.SpaceID, rule.Kind, rule.AmountCents, rule.Currency,
		rule.DaysOfWeek, rule.StartHour, rule.EndHour)
	if err != nil {
		logger.Error("SpaceRepository:CreatePricingRule", "error", err)
		return nil, err
	}

	return &created, nil
}

func (r *SpaceRepository) GetPricingRulesBySpace(ctx context.Context, spaceID uuid.UUID) ([]entity.PricingRule, error) {
	query := `
		SELECT id, space_id, kind, amount_cents, currency, days_of_week, start_hour, end_hour, created_at, updated_at
		FROM pricing_rules
		WHERE space_id = $1
		ORDER BY created_at
	`

	var rules []entity.PricingRule
	err := r.DB.SelectContext(ctx, &rules, query, spaceID)
	if err != nil {
		logger.Error("SpaceRepository:GetPricingRulesBySpace", "error", err)
		return nil, err
	}

	return rules, nil
}

func (r *SpaceRepository) CountPricingRulesByKind(ctx context.Context, spaceID uuid.UUID, kind entity.PricingRuleKind) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM pricing_rules WHERE space_id = $1 AND kind = $2`
	err := r.DB.GetContext(ctx, &count, query, spaceID, kind)
	if err != nil {
		logger.Error("SpaceRepository:CountPricingRulesByKind", "error", err)
		return 0, err
	}
	return count, nil
}

func (r *SpaceRepository) DeletePricingRule(ctx context.Context, spaceID uuid.UUID, ruleID uuid.UUID) error {
	query := `DELETE FROM pricing_rules WHERE id = $1 AND space_id = $2`
	if err := r.DB.ExecContext(ctx, query, ruleID, spaceID); err != nil {
		logger.Error("SpaceRepository:DeletePricingRule", "error", err)
		return err
	}
	return nil
}

// ===================== Availability blocks =====================

func (r *SpaceRepository) CreateBlockTx(tx *sqlx.Tx, block *entity.AvailabilityBlock) (*entity.AvailabilityBlock, error) {
	query := `
		INSERT INTO availability_blocks (space_id, start_at, end_at, is_blocked, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, space_id, start_at, end_at, is_blocked, notes, created_at, updated_at
	`

	var created entity.AvailabilityBlock
	err := tx.Get(&created, query,
		block.SpaceID, block.StartAt, block.EndAt, block.IsBlocked, block.Notes)
	if err != nil {
		logger.Error("SpaceRepository:CreateBlockTx", "error", err)
		return nil, err
	}

	return &created, nil
}

func (r *SpaceRepository) GetBlocksBySpace(ctx context.Context, spaceID uuid.UUID) ([]entity.AvailabilityBlock, error) {
	query := `
		SELECT id, space_id, start_at, end_at, is_blocked, notes, created_at, updated_at
		FROM availability_blocks
		WHERE space_id = $1
		ORDER BY start_at
	`

	var blocks []entity.AvailabilityBlock
	err := r.DB.SelectContext(ctx, &blocks, query, spaceID)
	if err != nil {
		logger.Error("SpaceRepository:GetBlocksBySpace", "error", err)
		return nil, err
	}

	return blocks, nil
}

// CountOverlappingBlocksTx counts existing blocks intersecting the
// half-open window [start_at, end_at) of the candidate block.
func (r *SpaceRepository) CountOverlappingBlocksTx(tx *sqlx.Tx, spaceID uuid.UUID, block *entity.AvailabilityBlock) (int, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM availability_blocks
		WHERE space_id = $1 AND start_at < $3 AND $2 < end_at
	`
	err := tx.Get(&count, query, spaceID, block.StartAt, block.EndAt)
	if err != nil {
		logger.Error("SpaceRepository:CountOverlappingBlocksTx", "error", err)
		return 0, err
	}
	return count, nil
}
