package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tripfluence-api/core/audit"
	"tripfluence-api/core/constants"
	apperrors "tripfluence-api/core/errors"
	"tripfluence-api/core/jobs"
	"tripfluence-api/core/logger"
	"tripfluence-api/core/middleware"
	"tripfluence-api/core/storage"
	"tripfluence-api/modules/social/dto"
	"tripfluence-api/modules/social/entity"
	"tripfluence-api/modules/social/provider"
	"tripfluence-api/modules/social/repository"

	"github.com/google/uuid"
)

// PublishPayload is the queued-task payload for one publish job.
type PublishPayload struct {
	JobID uuid.UUID `json:"job_id"`
}

// PublishService drives event-sync and social-post jobs across
// platforms. Each platform attempt is independent: its own token
// resolution, its own timeout, its own result row. The job goes terminal
// exactly once, after every platform has been tried.
type PublishService struct {
	repo     repository.SocialRepositoryInterface
	tokens   TokenServiceInterface
	registry *provider.Registry
	media    *storage.Storage
	jobQueue *jobs.Client
	auditLog *audit.Logger
}

type PublishServiceInterface interface {
	ConnectAccount(ctx context.Context, actor *middleware.Actor, req *dto.ConnectAccountRequest) (*dto.AccountResponse, *apperrors.AppError)
	ListAccounts(ctx context.Context, actor *middleware.Actor) ([]dto.AccountResponse, *apperrors.AppError)
	DisconnectAccount(ctx context.Context, actor *middleware.Actor, accountID uuid.UUID) *apperrors.AppError
	CreateJob(ctx context.Context, actor *middleware.Actor, req *dto.CreatePublishJobRequest) (*dto.JobResponse, *apperrors.AppError)
	GetJob(ctx context.Context, actor *middleware.Actor, jobID uuid.UUID) (*dto.JobResponse, *apperrors.AppError)
	ListJobs(ctx context.Context, actor *middleware.Actor) ([]dto.JobResponse, *apperrors.AppError)
	RetryJob(ctx context.Context, actor *middleware.Actor, jobID uuid.UUID) (*dto.JobResponse, *apperrors.AppError)
	HandlePublish(ctx context.Context, payload []byte) error
	HandleTokenSweep(ctx context.Context, payload []byte) error
}

func NewPublishService(
	repo repository.SocialRepositoryInterface,
	tokens TokenServiceInterface,
	registry *provider.Registry,
	media *storage.Storage,
	jobQueue *jobs.Client,
	auditLog *audit.Logger,
) PublishServiceInterface {
	return &PublishService{
		repo:     repo,
		tokens:   tokens,
		registry: registry,
		media:    media,
		jobQueue: jobQueue,
		auditLog: auditLog,
	}
}

// ===================== Accounts =====================

func (s *PublishService) ConnectAccount(ctx context.Context, actor *middleware.Actor, req *dto.ConnectAccountRequest) (*dto.AccountResponse, *apperrors.AppError) {
	if _, ok := s.registry.Get(req.Provider); !ok {
		return nil, apperrors.NewAppError(apperrors.ErrInvalidInput,
			fmt.Sprintf("unknown provider %q", req.Provider), nil)
	}
	if req.AccessToken == "" {
		return nil, apperrors.NewAppError(apperrors.ErrInvalidInput, "access token is required", nil)
	}

	accessEncrypted, appErr := s.tokens.EncryptToken(req.AccessToken)
	if appErr != nil {
		return nil, appErr
	}

	var refreshEncrypted *string
	if req.RefreshToken != nil && *req.RefreshToken != "" {
		enc, appErr := s.tokens.EncryptToken(*req.RefreshToken)
		if appErr != nil {
			return nil, appErr
		}
		refreshEncrypted = &enc
	}

	var expiresAt *time.Time
	if req.ExpiresAt != nil && *req.ExpiresAt != "" {
		parsed, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			return nil, apperrors.NewAppError(apperrors.ErrInvalidInput, "invalid expires_at format", err)
		}
		utc := parsed.UTC()
		expiresAt = &utc
	}

	account, err := s.repo.CreateAccount(ctx, &entity.SocialAccount{
		TenantID:              actor.TenantID,
		Provider:              req.Provider,
		AccountName:           req.AccountName,
		ExternalAccountID:     req.ExternalAccountID,
		AccessTokenEncrypted:  accessEncrypted,
		RefreshTokenEncrypted: refreshEncrypted,
		TokenExpiresAt:        expiresAt,
	})
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrCreateFailed, "Failed to connect account", err)
	}

	s.auditLog.LogAction(actor.UserID, "business", "social_account.connected", "social_account", &account.ID, map[string]any{
		"provider": account.Provider,
	})

	return dto.ToAccountResponse(account), nil
}

func (s *PublishService) ListAccounts(ctx context.Context, actor *middleware.Actor) ([]dto.AccountResponse, *apperrors.AppError) {
	accounts, err := s.repo.GetAccountsByTenant(ctx, actor.TenantID)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrGetFailed, "Failed to list accounts", err)
	}

	result := make([]dto.AccountResponse, 0, len(accounts))
	for i := range accounts {
		result = append(result, *dto.ToAccountResponse(&accounts[i]))
	}
	return result, nil
}

// DisconnectAccount deactivates, never deletes. Publish history keeps
// pointing at a real row.
func (s *PublishService) DisconnectAccount(ctx context.Context, actor *middleware.Actor, accountID uuid.UUID) *apperrors.AppError {
	account, err := s.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return apperrors.NewAppError(apperrors.ErrGetFailed, "Failed to load account", err)
	}
	if account == nil || account.TenantID != actor.TenantID {
		return apperrors.NewAppError(apperrors.ErrNotFound, "Account not found", nil)
	}

	if err := s.repo.DeactivateAccount(ctx, accountID); err != nil {
		return apperrors.NewAppError(apperrors.ErrUpdateFailed, "Failed to disconnect account", err)
	}

	s.auditLog.LogAction(actor.UserID, "business", "social_account.disconnected", "social_account", &accountID, nil)
	return nil
}

// ===================== Jobs =====================

func (s *PublishService) CreateJob(ctx context.Context, actor *middleware.Actor, req *dto.CreatePublishJobRequest) (*dto.JobResponse, *apperrors.AppError) {
	kind := entity.PublishJobKind(req.Kind)
	if kind != entity.JobKindEventSync && kind != entity.JobKindSocialPost {
		return nil, apperrors.NewAppError(apperrors.ErrInvalidInput,
			fmt.Sprintf("unknown job kind %q", req.Kind), nil)
	}
	if len(req.Platforms) == 0 {
		return nil, apperrors.NewAppError(apperrors.ErrInvalidInput, "at least one platform is required", nil)
	}
	if req.Title == "" {
		return nil, apperrors.NewAppError(apperrors.ErrInvalidInput, "title is required", nil)
	}

	spaceID, err := uuid.Parse(req.SpaceID)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrInvalidInput, "invalid space id", err)
	}

	for _, platform := range req.Platforms {
		adapter, ok := s.registry.Get(platform)
		if !ok {
			return nil, apperrors.NewAppError(apperrors.ErrInvalidInput,
				fmt.Sprintf("unknown platform %q", platform), nil)
		}
		if appErr := checkCapability(adapter, kind); appErr != nil {
			return nil, appErr
		}
	}

	var startAt, endAt *time.Time
	if kind == entity.JobKindEventSync {
		if req.StartAt == nil || req.EndAt == nil {
			return nil, apperrors.NewAppError(apperrors.ErrInvalidInput, "event sync requires start_at and end_at", nil)
		}
		start, err := time.Parse(time.RFC3339, *req.StartAt)
		if err != nil {
			return nil, apperrors.NewAppError(apperrors.ErrInvalidInput, "invalid start_at format", err)
		}
		end, err := time.Parse(time.RFC3339, *req.EndAt)
		if err != nil {
			return nil, apperrors.NewAppError(apperrors.ErrInvalidInput, "invalid end_at format", err)
		}
		startUTC, endUTC := start.UTC(), end.UTC()
		if !startUTC.Before(endUTC) {
			return nil, apperrors.NewAppError(apperrors.ErrInvalidInput, "start_at must be before end_at", nil)
		}
		startAt, endAt = &startUTC, &endUTC
	}

	job, err := s.repo.CreateJob(ctx, &entity.PublishJob{
		TenantID:  actor.TenantID,
		Kind:      kind,
		SpaceID:   spaceID,
		Title:     req.Title,
		Body:      req.Body,
		MediaKey:  req.MediaKey,
		StartAt:   startAt,
		EndAt:     endAt,
		Platforms: req.Platforms,
		Status:    entity.JobStatusPending,
	})
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrCreateFailed, "Failed to create publish job", err)
	}

	if _, err := s.jobQueue.Enqueue(ctx, constants.TaskSocialPublish, PublishPayload{JobID: job.ID}); err != nil {
		logger.Error("PublishService:CreateJob:Enqueue", "error", err, "job_id", job.ID)
		return nil, apperrors.NewAppError(apperrors.ErrInternalServer, "Failed to queue publish job", err)
	}

	s.auditLog.LogAction(actor.UserID, "business", "publish_job.created", "publish_job", &job.ID, map[string]any{
		"kind":      string(kind),
		"platforms": req.Platforms,
	})

	return dto.ToJobResponse(job, nil), nil
}

func checkCapability(adapter provider.Adapter, kind entity.PublishJobKind) *apperrors.AppError {
	switch kind {
	case entity.JobKindEventSync:
		if _, ok := adapter.(provider.EventCreator); !ok {
			return apperrors.NewAppError(apperrors.ErrInvalidInput,
				fmt.Sprintf("platform %q does not support events", adapter.Name()), nil)
		}
	case entity.JobKindSocialPost:
		if _, ok := adapter.(provider.PostCreator); !ok {
			return apperrors.NewAppError(apperrors.ErrInvalidInput,
				fmt.Sprintf("platform %q does not support posts", adapter.Name()), nil)
		}
	}
	return nil
}

func (s *PublishService) getTenantJob(ctx context.Context, actor *middleware.Actor, jobID uuid.UUID) (*entity.PublishJob, *apperrors.AppError) {
	job, err := s.repo.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrGetFailed, "Failed to load job", err)
	}
	if job == nil || job.TenantID != actor.TenantID {
		return nil, apperrors.NewAppError(apperrors.ErrNotFound, "Job not found", nil)
	}
	return job, nil
}

func (s *PublishService) GetJob(ctx context.Context, actor *middleware.Actor, jobID uuid.UUID) (*dto.JobResponse, *apperrors.AppError) {
	job, appErr := s.getTenantJob(ctx, actor, jobID)
	if appErr != nil {
		return nil, appErr
	}

	results, err := s.repo.GetResultsByJob(ctx, job.ID)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrGetFailed, "Failed to load job results", err)
	}
	return dto.ToJobResponse(job, results), nil
}

func (s *PublishService) ListJobs(ctx context.Context, actor *middleware.Actor) ([]dto.JobResponse, *apperrors.AppError) {
	jobsList, err := s.repo.GetJobsByTenant(ctx, actor.TenantID)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrGetFailed, "Failed to list jobs", err)
	}

	result := make([]dto.JobResponse, 0, len(jobsList))
	for i := range jobsList {
		result = append(result, *dto.ToJobResponse(&jobsList[i], nil))
	}
	return result, nil
}

// RetryJob re-queues a terminal job by creating a fresh attempt. The
// original record keeps its recorded outcome.
func (s *PublishService) RetryJob(ctx context.Context, actor *middleware.Actor, jobID uuid.UUID) (*dto.JobResponse, *apperrors.AppError) {
	job, appErr := s.getTenantJob(ctx, actor, jobID)
	if appErr != nil {
		return nil, appErr
	}
	if !job.Status.IsTerminal() {
		return nil, apperrors.NewAppError(apperrors.ErrConflict, "job is still pending", nil)
	}

	retry, err := s.repo.CreateJob(ctx, &entity.PublishJob{
		TenantID:  job.TenantID,
		Kind:      job.Kind,
		SpaceID:   job.SpaceID,
		Title:     job.Title,
		Body:      job.Body,
		MediaKey:  job.MediaKey,
		StartAt:   job.StartAt,
		EndAt:     job.EndAt,
		Platforms: job.Platforms,
		Status:    entity.JobStatusPending,
	})
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrCreateFailed, "Failed to create retry job", err)
	}

	if _, err := s.jobQueue.Enqueue(ctx, constants.TaskSocialPublish, PublishPayload{JobID: retry.ID}); err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrInternalServer, "Failed to queue retry job", err)
	}

	s.auditLog.LogAction(actor.UserID, "business", "publish_job.retried", "publish_job", &retry.ID, map[string]any{
		"original_job_id": job.ID.String(),
	})

	return dto.ToJobResponse(retry, nil), nil
}

// ===================== Task handlers =====================

// HandlePublish is the queued-task entry point. Redelivery is expected;
// a job already terminal is skipped without touching its results.
func (s *PublishService) HandlePublish(ctx context.Context, payload []byte) error {
	var p PublishPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		logger.Error("PublishService:HandlePublish:Unmarshal", "error", err)
		return nil
	}

	job, err := s.repo.GetJobByID(ctx, p.JobID)
	if err != nil {
		return err
	}
	if job == nil {
		logger.Warn("PublishService:HandlePublish:Missing", "job_id", p.JobID)
		return nil
	}
	if job.Status.IsTerminal() {
		logger.Info("PublishService:HandlePublish:AlreadyTerminal", "job_id", job.ID, "status", job.Status)
		return nil
	}

	mediaURL := ""
	if job.MediaKey != nil && *job.MediaKey != "" {
		url, err := s.media.PresignMediaURL(ctx, *job.MediaKey)
		if err != nil {
			logger.Warn("PublishService:HandlePublish:Presign", "error", err, "job_id", job.ID)
		} else {
			mediaURL = url
		}
	}

	succeeded := 0
	var failures []string
	for _, platform := range job.Platforms {
		externalID, attemptErr := s.attemptPlatform(ctx, job, platform, mediaURL)

		result := &entity.PublishResult{JobID: job.ID, Provider: platform}
		if attemptErr != nil {
			msg := attemptErr.Error()
			result.Error = &msg
			failures = append(failures, platform+": "+msg)
			logger.Warn("PublishService:HandlePublish:PlatformFailed",
				"job_id", job.ID, "platform", platform, "error", msg)
		} else {
			result.Succeeded = true
			result.ExternalID = &externalID
			succeeded++
		}

		if _, err := s.repo.CreateResult(ctx, result); err != nil {
			logger.Error("PublishService:HandlePublish:SaveResult", "error", err, "job_id", job.ID)
		}
	}

	status := entity.JobStatusSuccess
	var lastError *string
	if succeeded == 0 {
		status = entity.JobStatusFailed
	}
	if len(failures) > 0 {
		joined := strings.Join(failures, "; ")
		lastError = &joined
	}

	finalized, err := s.repo.FinalizeJob(ctx, job.ID, status, lastError, time.Now().UTC())
	if err != nil {
		return err
	}
	if !finalized {
		logger.Warn("PublishService:HandlePublish:FinalizeRace", "job_id", job.ID)
	}

	logger.Info("PublishService:HandlePublish:Done",
		"job_id", job.ID, "status", status, "succeeded", succeeded, "failed", len(failures))
	return nil
}

// attemptPlatform resolves a live token and runs one provider call under
// its own timeout so a hung provider cannot stall the other platforms.
func (s *PublishService) attemptPlatform(ctx context.Context, job *entity.PublishJob, platform, mediaURL string) (string, error) {
	adapter, ok := s.registry.Get(platform)
	if !ok {
		return "", fmt.Errorf("unknown platform %q", platform)
	}

	account, err := s.repo.GetAccountByTenantProvider(ctx, job.TenantID, platform)
	if err != nil {
		return "", fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil || !account.IsActive {
		return "", fmt.Errorf("no active %s account connected", platform)
	}

	token, appErr := s.tokens.GetValidToken(ctx, account.ID)
	if appErr != nil {
		return "", appErr
	}
	if token == "" {
		return "", fmt.Errorf("%s account needs reconnection", platform)
	}

	callCtx, cancel := context.WithTimeout(ctx, constants.DefaultTimeout)
	defer cancel()

	var externalID string
	switch job.Kind {
	case entity.JobKindEventSync:
		creator, ok := adapter.(provider.EventCreator)
		if !ok {
			return "", fmt.Errorf("platform %q does not support events", platform)
		}
		externalID, err = creator.CreateEvent(callCtx, token, &provider.EventContent{
			Title:             job.Title,
			Description:       job.Body,
			StartAt:           *job.StartAt,
			EndAt:             *job.EndAt,
			MediaURL:          mediaURL,
			ExternalAccountID: account.ExternalAccountID,
		})
	case entity.JobKindSocialPost:
		creator, ok := adapter.(provider.PostCreator)
		if !ok {
			return "", fmt.Errorf("platform %q does not support posts", platform)
		}
		externalID, err = creator.CreatePost(callCtx, token, &provider.PostContent{
			Title:             job.Title,
			Body:              job.Body,
			MediaURL:          mediaURL,
			ExternalAccountID: account.ExternalAccountID,
		})
	default:
		return "", fmt.Errorf("unknown job kind %q", job.Kind)
	}

	now := time.Now().UTC()
	if err != nil {
		_ = s.repo.MarkAccountError(ctx, account.ID, now, err.Error())
		return "", err
	}
	_ = s.repo.MarkAccountSuccess(ctx, account.ID, now)
	return externalID, nil
}

// HandleTokenSweep runs the periodic batch refresh.
func (s *PublishService) HandleTokenSweep(ctx context.Context, payload []byte) error {
	report, appErr := s.tokens.RefreshExpiredTokens(ctx)
	if appErr != nil {
		return appErr
	}
	logger.Info("PublishService:HandleTokenSweep:Report",
		"refreshed", report.Refreshed, "failed", report.Failed)
	return nil
}
