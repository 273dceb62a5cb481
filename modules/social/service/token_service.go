package service

import (
	"context"
	"errors"
	"time"

	apperrors "tripfluence-api/core/errors"
	"tripfluence-api/core/logger"
	"tripfluence-api/core/secrets"
	"tripfluence-api/modules/social/entity"
	"tripfluence-api/modules/social/provider"
	"tripfluence-api/modules/social/repository"

	"github.com/google/uuid"
)

// RefreshResult is the outcome of a single-account refresh attempt.
type RefreshResult struct {
	Success        bool   `json:"success"`
	NewAccessToken string `json:"-"`
	Error          string `json:"error,omitempty"`
}

// SweepReport aggregates a batch refresh pass. Per-account failures are
// reported, never re-raised; one bad account must not stall the rest.
type SweepReport struct {
	Refreshed int               `json:"refreshed"`
	Failed    int               `json:"failed"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// TokenService owns provider credentials at rest: encryption, refresh,
// validation. Plaintext tokens exist only in memory between a decrypt
// and the provider call that consumes them.
type TokenService struct {
	repo      repository.SocialRepositoryInterface
	encryptor *secrets.Encryptor
	registry  *provider.Registry
}

type TokenServiceInterface interface {
	EncryptToken(plaintext string) (string, *apperrors.AppError)
	DecryptToken(ciphertext string) (string, *apperrors.AppError)
	RefreshToken(ctx context.Context, accountID uuid.UUID) *RefreshResult
	GetValidToken(ctx context.Context, accountID uuid.UUID) (string, *apperrors.AppError)
	RefreshExpiredTokens(ctx context.Context) (*SweepReport, *apperrors.AppError)
	ValidateAndRefreshToken(ctx context.Context, accountID uuid.UUID) bool
}

func NewTokenService(repo repository.SocialRepositoryInterface, encryptor *secrets.Encryptor, registry *provider.Registry) TokenServiceInterface {
	return &TokenService{repo: repo, encryptor: encryptor, registry: registry}
}

func (s *TokenService) EncryptToken(plaintext string) (string, *apperrors.AppError) {
	return s.encryptor.Encrypt(plaintext)
}

func (s *TokenService) DecryptToken(ciphertext string) (string, *apperrors.AppError) {
	return s.encryptor.Decrypt(ciphertext)
}

// RefreshToken runs the provider refresh grant for one account and
// persists the re-encrypted credentials. Providers without a refresh
// grant report unsupported rather than failing silently.
func (s *TokenService) RefreshToken(ctx context.Context, accountID uuid.UUID) *RefreshResult {
	account, err := s.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return &RefreshResult{Error: "failed to load account"}
	}
	if account == nil {
		return &RefreshResult{Error: "account not found"}
	}

	return s.refreshAccount(ctx, account)
}

func (s *TokenService) refreshAccount(ctx context.Context, account *entity.SocialAccount) *RefreshResult {
	adapter, ok := s.registry.Get(account.Provider)
	if !ok {
		return &RefreshResult{Error: "unknown provider " + account.Provider}
	}
	if account.RefreshTokenEncrypted == nil {
		// Providers that never hand out refresh tokens report their
		// unsupported status, not a missing-token error.
		if _, err := adapter.RefreshToken(ctx, ""); errors.Is(err, provider.ErrRefreshUnsupported) {
			return &RefreshResult{Error: "provider does not support token refresh"}
		}
		return &RefreshResult{Error: "no refresh token stored"}
	}

	refreshPlain, appErr := s.encryptor.Decrypt(*account.RefreshTokenEncrypted)
	if appErr != nil {
		return &RefreshResult{Error: appErr.Message}
	}

	outcome, err := adapter.RefreshToken(ctx, refreshPlain)
	if err != nil {
		if errors.Is(err, provider.ErrRefreshUnsupported) {
			return &RefreshResult{Error: "provider does not support token refresh"}
		}
		now := time.Now().UTC()
		_ = s.repo.MarkAccountError(ctx, account.ID, now, err.Error())
		return &RefreshResult{Error: err.Error()}
	}

	accessEncrypted, appErr := s.encryptor.Encrypt(outcome.AccessToken)
	if appErr != nil {
		return &RefreshResult{Error: appErr.Message}
	}

	var refreshEncrypted *string
	if outcome.RefreshToken != "" {
		enc, appErr := s.encryptor.Encrypt(outcome.RefreshToken)
		if appErr != nil {
			return &RefreshResult{Error: appErr.Message}
		}
		refreshEncrypted = &enc
	}

	if err := s.repo.UpdateAccountTokens(ctx, account.ID, accessEncrypted, refreshEncrypted, outcome.ExpiresAt); err != nil {
		return &RefreshResult{Error: "failed to persist refreshed tokens"}
	}
	_ = s.repo.MarkAccountSuccess(ctx, account.ID, time.Now().UTC())

	logger.Info("TokenService:RefreshToken:Refreshed", "account_id", account.ID, "provider", account.Provider)
	return &RefreshResult{Success: true, NewAccessToken: outcome.AccessToken}
}

// GetValidToken returns the decrypted current token if unexpired,
// otherwise attempts one refresh. An empty token with a nil error means
// the account needs reconnection; callers must not retry.
func (s *TokenService) GetValidToken(ctx context.Context, accountID uuid.UUID) (string, *apperrors.AppError) {
	account, err := s.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return "", apperrors.NewAppError(apperrors.ErrGetFailed, "Failed to load social account", err)
	}
	if account == nil || !account.IsActive {
		return "", nil
	}

	if !account.TokenExpired(time.Now().UTC()) {
		return s.encryptor.Decrypt(account.AccessTokenEncrypted)
	}

	result := s.refreshAccount(ctx, account)
	if !result.Success {
		logger.Warn("TokenService:GetValidToken:NeedsReconnect",
			"account_id", accountID, "provider", account.Provider, "error", result.Error)
		return "", nil
	}
	return result.NewAccessToken, nil
}

// RefreshExpiredTokens sweeps all active accounts with an expired token
// and a stored refresh token. Individual failures land in the report.
func (s *TokenService) RefreshExpiredTokens(ctx context.Context) (*SweepReport, *apperrors.AppError) {
	accounts, err := s.repo.GetExpiredRefreshableAccounts(ctx, time.Now().UTC())
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrGetFailed, "Failed to list expired accounts", err)
	}

	report := &SweepReport{Errors: make(map[string]string)}
	for i := range accounts {
		result := s.refreshAccount(ctx, &accounts[i])
		if result.Success {
			report.Refreshed++
		} else {
			report.Failed++
			report.Errors[accounts[i].ID.String()] = result.Error
		}
	}

	logger.Info("TokenService:RefreshExpiredTokens:Done",
		"refreshed", report.Refreshed, "failed", report.Failed)
	return report, nil
}

// ValidateAndRefreshToken pings the provider's identity endpoint; on
// failure it attempts one refresh before reporting false.
func (s *TokenService) ValidateAndRefreshToken(ctx context.Context, accountID uuid.UUID) bool {
	account, err := s.repo.GetAccountByID(ctx, accountID)
	if err != nil || account == nil || !account.IsActive {
		return false
	}

	adapter, ok := s.registry.Get(account.Provider)
	if !ok {
		return false
	}

	accessPlain, appErr := s.encryptor.Decrypt(account.AccessTokenEncrypted)
	if appErr == nil {
		if err := adapter.TestConnection(ctx, accessPlain); err == nil {
			_ = s.repo.MarkAccountSuccess(ctx, account.ID, time.Now().UTC())
			return true
		}
	}

	result := s.refreshAccount(ctx, account)
	if !result.Success {
		return false
	}

	if err := adapter.TestConnection(ctx, result.NewAccessToken); err != nil {
		_ = s.repo.MarkAccountError(ctx, account.ID, time.Now().UTC(), err.Error())
		return false
	}
	_ = s.repo.MarkAccountSuccess(ctx, account.ID, time.Now().UTC())
	return true
}
