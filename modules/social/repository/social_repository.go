package repository

import (
	"context"
	"database/sql"
	"time"

	"tripfluence-api/core/database"
	"tripfluence-api/core/logger"
	"tripfluence-api/modules/social/entity"

	"github.com/google/uuid"
)

// SocialRepository handles social account, publish job and result rows
type SocialRepository struct {
	DB database.IDatabase
}

func NewSocialRepository(db database.IDatabase) *SocialRepository {
	return &SocialRepository{DB: db}
}

// SocialRepositoryInterface defines the repository contract
type SocialRepositoryInterface interface {
	CreateAccount(ctx context.Context, account *entity.SocialAccount) (*entity.SocialAccount, error)
	GetAccountByID(ctx context.Context, id uuid.UUID) (*entity.SocialAccount, error)
	GetAccountsByTenant(ctx context.Context, tenantID uuid.UUID) ([]entity.SocialAccount, error)
	GetAccountByTenantProvider(ctx context.Context, tenantID uuid.UUID, provider string) (*entity.SocialAccount, error)
	GetExpiredRefreshableAccounts(ctx context.Context, now time.Time) ([]entity.SocialAccount, error)
	UpdateAccountTokens(ctx context.Context, id uuid.UUID, accessEncrypted string, refreshEncrypted *string, expiresAt *time.Time) error
	MarkAccountSuccess(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkAccountError(ctx context.Context, id uuid.UUID, at time.Time, message string) error
	DeactivateAccount(ctx context.Context, id uuid.UUID) error

	CreateJob(ctx context.Context, job *entity.PublishJob) (*entity.PublishJob, error)
	GetJobByID(ctx context.Context, id uuid.UUID) (*entity.PublishJob, error)
	GetJobsByTenant(ctx context.Context, tenantID uuid.UUID) ([]entity.PublishJob, error)
	FinalizeJob(ctx context.Context, id uuid.UUID, status entity.PublishJobStatus, lastError *string, completedAt time.Time) (bool, error)

	CreateResult(ctx context.Context, result *entity.PublishResult) (*entity.PublishResult, error)
	GetResultsByJob(ctx context.Context, jobID uuid.UUID) ([]entity.PublishResult, error)
}

const accountColumns = `
	id, tenant_id, provider, account_name, external_account_id,
	access_token_encrypted, refresh_token_encrypted, token_expires_at,
	is_active, last_success_at, last_error_at, last_error, created_at, updated_at
`

func (r *SocialRepository) CreateAccount(ctx context.Context, account *entity.SocialAccount) (*entity.SocialAccount, error) {
	query := `
		INSERT INTO social_accounts (
			tenant_id, provider, account_name, external_account_id,
			access_token_encrypted, refresh_token_encrypted, token_expires_at, is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		ON CONFLICT (tenant_id, provider) DO UPDATE SET
			account_name = EXCLUDED.account_name,
			external_account_id = EXCLUDED.external_account_id,
			access_token_encrypted = EXCLUDED.access_token_encrypted,
			refresh_token_encrypted = EXCLUDED.refresh_token_encrypted,
			token_expires_at = EXCLUDED.token_expires_at,
			is_active = TRUE,
			updated_at = NOW()
		RETURNING ` + accountColumns

	var created entity.SocialAccount
	err := r.DB.GetContext(ctx, &created, query,
		account.TenantID, account.Provider, account.AccountName, account.ExternalAccountID,
		account.AccessTokenEncrypted, account.RefreshTokenEncrypted, account.TokenExpiresAt)
	if err != nil {
		logger.Error("SocialRepository:CreateAccount", "error", err)
		return nil, err
	}

	return &created, nil
}

func (r *SocialRepository) GetAccountByID(ctx context.Context, id uuid.UUID) (*entity.SocialAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM social_accounts WHERE id = $1`

	var account entity.SocialAccount
	err := r.DB.GetContext(ctx, &account, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("SocialRepository:GetAccountByID", "error", err)
		return nil, err
	}

	return &account, nil
}

func (r *SocialRepository) GetAccountsByTenant(ctx context.Context, tenantID uuid.UUID) ([]entity.SocialAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM social_accounts WHERE tenant_id = $1 ORDER BY provider`

	var accounts []entity.SocialAccount
	err := r.DB.SelectContext(ctx, &accounts, query, tenantID)
	if err != nil {
		logger.Error("SocialRepository:GetAccountsByTenant", "error", err)
		return nil, err
	}

	return accounts, nil
}

func (r *SocialRepository) GetAccountByTenantProvider(ctx context.Context, tenantID uuid.UUID, provider string) (*entity.SocialAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM social_accounts WHERE tenant_id = $1 AND provider = $2`

	var account entity.SocialAccount
	err := r.DB.GetContext(ctx, &account, query, tenantID, provider)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("SocialRepository:GetAccountByTenantProvider", "error", err)
		return nil, err
	}

	return &account, nil
}

// GetExpiredRefreshableAccounts returns active accounts whose token has
// expired and which hold a refresh token. Feed for the periodic sweep.
func (r *SocialRepository) GetExpiredRefreshableAccounts(ctx context.Context, now time.Time) ([]entity.SocialAccount, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM social_accounts
		WHERE is_active = TRUE
		  AND token_expires_at IS NOT NULL AND token_expires_at < $1
		  AND refresh_token_encrypted IS NOT NULL
		ORDER BY token_expires_at
	`

	var accounts []entity.SocialAccount
	err := r.DB.SelectContext(ctx, &accounts, query, now)
	if err != nil {
		logger.Error("SocialRepository:GetExpiredRefreshableAccounts", "error", err)
		return nil, err
	}

	return accounts, nil
}

func (r *SocialRepository) UpdateAccountTokens(ctx context.Context, id uuid.UUID, accessEncrypted string, refreshEncrypted *string, expiresAt *time.Time) error {
	query := `
		UPDATE social_accounts
		SET access_token_encrypted = $2,
		    refresh_token_encrypted = COALESCE($3, refresh_token_encrypted),
		    token_expires_at = $4,
		    updated_at = NOW()
		WHERE id = $1
	`

	err := r.DB.ExecContext(ctx, query, id, accessEncrypted, refreshEncrypted, expiresAt)
	if err != nil {
		logger.Error("SocialRepository:UpdateAccountTokens", "error", err)
	}
	return err
}

func (r *SocialRepository) MarkAccountSuccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE social_accounts SET last_success_at = $2, last_error = NULL, updated_at = NOW() WHERE id = $1`

	err := r.DB.ExecContext(ctx, query, id, at)
	if err != nil {
		logger.Error("SocialRepository:MarkAccountSuccess", "error", err)
	}
	return err
}

func (r *SocialRepository) MarkAccountError(ctx context.Context, id uuid.UUID, at time.Time, message string) error {
	query := `UPDATE social_accounts SET last_error_at = $2, last_error = $3, updated_at = NOW() WHERE id = $1`

	err := r.DB.ExecContext(ctx, query, id, at, message)
	if err != nil {
		logger.Error("SocialRepository:MarkAccountError", "error", err)
	}
	return err
}

func (r *SocialRepository) DeactivateAccount(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE social_accounts SET is_active = FALSE, updated_at = NOW() WHERE id = $1`

	err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		logger.Error("SocialRepository:DeactivateAccount", "error", err)
	}
	return err
}

// ===================== Publish jobs =====================

const jobColumns = `
	id, tenant_id, kind, space_id, title, body, media_key, start_at, end_at,
	platforms, status, last_error, completed_at, created_at, updated_at
`

func (r *SocialRepository) CreateJob(ctx context.Context, job *entity.PublishJob) (*entity.PublishJob, error) {
	query := `
		INSERT INTO publish_jobs (tenant_id, kind, space_id, title, body, media_key, start_at, end_at, platforms, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + jobColumns

	var created entity.PublishJob
	err := r.DB.GetContext(ctx, &created, query,
		job.TenantID, job.Kind, job.SpaceID, job.Title, job.Body, job.MediaKey,
		job.StartAt, job.EndAt, job.Platforms, job.Status)
	if err != nil {
		logger.Error("SocialRepository:CreateJob", "error", err)
		return nil, err
	}

	return &created, nil
}

func (r *SocialRepository) GetJobByID(ctx context.Context, id uuid.UUID) (*entity.PublishJob, error) {
	query := `SELECT ` + jobColumns + ` FROM publish_jobs WHERE id = $1`

	var job entity.PublishJob
	err := r.DB.GetContext(ctx, &job, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("SocialRepository:GetJobByID", "error", err)
		return nil, err
	}

	return &job, nil
}

func (r *SocialRepository) GetJobsByTenant(ctx context.Context, tenantID uuid.UUID) ([]entity.PublishJob, error) {
	query := `SELECT ` + jobColumns + ` FROM publish_jobs WHERE tenant_id = $1 ORDER BY created_at DESC`

	var jobs []entity.PublishJob
	err := r.DB.SelectContext(ctx, &jobs, query, tenantID)
	if err != nil {
		logger.Error("SocialRepository:GetJobsByTenant", "error", err)
		return nil, err
	}

	return jobs, nil
}

// FinalizeJob writes the terminal status once. The status guard keeps a
// redelivered task from overwriting an outcome already recorded.
func (r *SocialRepository) FinalizeJob(ctx context.Context, id uuid.UUID, status entity.PublishJobStatus, lastError *string, completedAt time.Time) (bool, error) {
	query := `
		UPDATE publish_jobs
		SET status = $2, last_error = $3, completed_at = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING id
	`

	var updatedID uuid.UUID
	err := r.DB.GetContext(ctx, &updatedID, query, id, status, lastError, completedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		logger.Error("SocialRepository:FinalizeJob", "error", err)
		return false, err
	}
	return true, nil
}

func (r *SocialRepository) CreateResult(ctx context.Context, result *entity.PublishResult) (*entity.PublishResult, error) {
	query := `
		INSERT INTO publish_results (job_id, provider, succeeded, external_id, error)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, job_id, provider, succeeded, external_id, error, created_at, updated_at
	`

	var created entity.PublishResult
	err := r.DB.GetContext(ctx, &created, query,
		result.JobID, result.Provider, result.Succeeded, result.ExternalID, result.Error)
	if err != nil {
		logger.Error("SocialRepository:CreateResult", "error", err)
		return nil, err
	}

	return &created, nil
}

func (r *SocialRepository) GetResultsByJob(ctx context.Context, jobID uuid.UUID) ([]entity.PublishResult, error) {
	query := `
		SELECT id, job_id, provider, succeeded, external_id, error, created_at, updated_at
		FROM publish_results WHERE job_id = $1 ORDER BY created_at
	`

	var results []entity.PublishResult
	err := r.DB.SelectContext(ctx, &results, query, jobID)
	if err != nil {
		logger.Error("SocialRepository:GetResultsByJob", "error", err)
		return nil, err
	}

	return results, nil
}
