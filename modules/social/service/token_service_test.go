package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"testing"
	"time"

	"tripfluence-api/core/secrets"
	"tripfluence-api/modules/social/entity"
	"tripfluence-api/modules/social/provider"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ===================== Fakes =====================

type fakeSocialRepo struct {
	accounts map[uuid.UUID]*entity.SocialAccount
}

func newFakeSocialRepo() *fakeSocialRepo {
	return &fakeSocialRepo{accounts: make(map[uuid.UUID]*entity.SocialAccount)}
}

func (f *fakeSocialRepo) CreateAccount(ctx context.Context, account *entity.SocialAccount) (*entity.SocialAccount, error) {
	stored := *account
	stored.ID = uuid.New()
	f.accounts[stored.ID] = &stored
	return &stored, nil
}

func (f *fakeSocialRepo) GetAccountByID(ctx context.Context, id uuid.UUID) (*entity.SocialAccount, error) {
	account, ok := f.accounts[id]
	if !ok {
		return nil, nil
	}
	copied := *account
	return &copied, nil
}

func (f *fakeSocialRepo) GetAccountsByTenant(ctx context.Context, tenantID uuid.UUID) ([]entity.SocialAccount, error) {
	return nil, nil
}

func (f *fakeSocialRepo) GetAccountByTenantProvider(ctx context.Context, tenantID uuid.UUID, providerName string) (*entity.SocialAccount, error) {
	for _, account := range f.accounts {
		if account.TenantID == tenantID && account.Provider == providerName {
			copied := *account
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeSocialRepo) GetExpiredRefreshableAccounts(ctx context.Context, now time.Time) ([]entity.SocialAccount, error) {
	var result []entity.SocialAccount
	for _, account := range f.accounts {
		if account.IsActive && account.TokenExpiresAt != nil && account.TokenExpiresAt.Before(now) &&
			account.RefreshTokenEncrypted != nil {
			result = append(result, *account)
		}
	}
	return result, nil
}

func (f *fakeSocialRepo) UpdateAccountTokens(ctx context.Context, id uuid.UUID, accessEncrypted string, refreshEncrypted *string, expiresAt *time.Time) error {
	account := f.accounts[id]
	account.AccessTokenEncrypted = accessEncrypted
	if refreshEncrypted != nil {
		account.RefreshTokenEncrypted = refreshEncrypted
	}
	account.TokenExpiresAt = expiresAt
	return nil
}

func (f *fakeSocialRepo) MarkAccountSuccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	f.accounts[id].LastSuccessAt = &at
	return nil
}

func (f *fakeSocialRepo) MarkAccountError(ctx context.Context, id uuid.UUID, at time.Time, message string) error {
	f.accounts[id].LastErrorAt = &at
	f.accounts[id].LastError = &message
	return nil
}

func (f *fakeSocialRepo) DeactivateAccount(ctx context.Context, id uuid.UUID) error {
	f.accounts[id].IsActive = false
	return nil
}

func (f *fakeSocialRepo) CreateJob(ctx context.Context, job *entity.PublishJob) (*entity.PublishJob, error) {
	return job, nil
}
func (f *fakeSocialRepo) GetJobByID(ctx context.Context, id uuid.UUID) (*entity.PublishJob, error) {
	return nil, nil
}
func (f *fakeSocialRepo) GetJobsByTenant(ctx context.Context, tenantID uuid.UUID) ([]entity.PublishJob, error) {
	return nil, nil
}
func (f *fakeSocialRepo) FinalizeJob(ctx context.Context, id uuid.UUID, status entity.PublishJobStatus, lastError *string, completedAt time.Time) (bool, error) {
	return true, nil
}
func (f *fakeSocialRepo) CreateResult(ctx context.Context, result *entity.PublishResult) (*entity.PublishResult, error) {
	return result, nil
}
func (f *fakeSocialRepo) GetResultsByJob(ctx context.Context, jobID uuid.UUID) ([]entity.PublishResult, error) {
	return nil, nil
}

// fakeAdapter scripts refresh and connection outcomes per refresh token.
type fakeAdapter struct {
	name        string
	refreshErr  map[string]error
	pingHealthy bool
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) TestConnection(ctx context.Context, accessToken string) error {
	if a.pingHealthy {
		return nil
	}
	return &provider.Error{Provider: a.name, StatusCode: 401, Code: "unauthorized", Message: "expired"}
}

func (a *fakeAdapter) RefreshToken(ctx context.Context, refreshToken string) (*provider.RefreshOutcome, error) {
	if err, ok := a.refreshErr[refreshToken]; ok {
		return nil, err
	}
	expiry := time.Now().UTC().Add(time.Hour)
	return &provider.RefreshOutcome{
		AccessToken:  "fresh-" + refreshToken,
		RefreshToken: refreshToken,
		ExpiresAt:    &expiry,
	}, nil
}

func (a *fakeAdapter) ParseRateLimit(headers http.Header) *provider.RateLimit { return nil }

// ===================== Fixture =====================

func newEncryptor(t *testing.T) *secrets.Encryptor {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	enc, err := secrets.NewEncryptor(base64.StdEncoding.EncodeToString(key), false)
	require.NoError(t, err)
	return enc
}

func seedAccount(t *testing.T, repo *fakeSocialRepo, enc *secrets.Encryptor, providerName, accessToken, refreshToken string, expiresAt *time.Time) uuid.UUID {
	t.Helper()

	accessEncrypted, appErr := enc.Encrypt(accessToken)
	require.Nil(t, appErr)

	account := &entity.SocialAccount{
		TenantID:             uuid.New(),
		Provider:             providerName,
		AccessTokenEncrypted: accessEncrypted,
		TokenExpiresAt:       expiresAt,
		IsActive:             true,
	}
	if refreshToken != "" {
		refreshEncrypted, appErr := enc.Encrypt(refreshToken)
		require.Nil(t, appErr)
		account.RefreshTokenEncrypted = &refreshEncrypted
	}

	created, err := repo.CreateAccount(context.Background(), account)
	require.NoError(t, err)
	return created.ID
}

func registryWith(adapters ...provider.Adapter) *provider.Registry {
	registry := provider.NewRegistry()
	for _, adapter := range adapters {
		registry.Register(adapter.Name(), adapter)
	}
	return registry
}

// ===================== Tests =====================

func TestGetValidTokenUnexpired(t *testing.T) {
	repo := newFakeSocialRepo()
	enc := newEncryptor(t)
	future := time.Now().UTC().Add(time.Hour)
	accountID := seedAccount(t, repo, enc, "google_business", "live-token", "refresh-1", &future)

	svc := NewTokenService(repo, enc, registryWith(&fakeAdapter{name: "google_business"}))

	token, appErr := svc.GetValidToken(context.Background(), accountID)
	require.Nil(t, appErr)
	assert.Equal(t, "live-token", token)
}

func TestGetValidTokenRefreshesExpired(t *testing.T) {
	repo := newFakeSocialRepo()
	enc := newEncryptor(t)
	past := time.Now().UTC().Add(-time.Hour)
	accountID := seedAccount(t, repo, enc, "google_business", "stale-token", "refresh-1", &past)

	svc := NewTokenService(repo, enc, registryWith(&fakeAdapter{name: "google_business"}))

	token, appErr := svc.GetValidToken(context.Background(), accountID)
	require.Nil(t, appErr)
	assert.Equal(t, "fresh-refresh-1", token)

	// The stored ciphertext now decodes to the new token.
	account, err := repo.GetAccountByID(context.Background(), accountID)
	require.NoError(t, err)
	decrypted, appErr := enc.Decrypt(account.AccessTokenEncrypted)
	require.Nil(t, appErr)
	assert.Equal(t, "fresh-refresh-1", decrypted)
}

func TestGetValidTokenNeedsReconnection(t *testing.T) {
	repo := newFakeSocialRepo()
	enc := newEncryptor(t)
	past := time.Now().UTC().Add(-time.Hour)
	accountID := seedAccount(t, repo, enc, "google_business", "stale-token", "revoked", &past)

	adapter := &fakeAdapter{
		name: "google_business",
		refreshErr: map[string]error{
			"revoked": &provider.Error{Provider: "google_business", StatusCode: 401, Code: "unauthorized", Message: "revoked"},
		},
	}
	svc := NewTokenService(repo, enc, registryWith(adapter))

	token, appErr := svc.GetValidToken(context.Background(), accountID)
	require.Nil(t, appErr, "needs-reconnection is not an error")
	assert.Empty(t, token)
}

func TestGetValidTokenRefreshUnsupported(t *testing.T) {
	repo := newFakeSocialRepo()
	enc := newEncryptor(t)
	past := time.Now().UTC().Add(-time.Hour)
	accountID := seedAccount(t, repo, enc, "facebook", "stale-token", "anything", &past)

	adapter := &fakeAdapter{
		name:       "facebook",
		refreshErr: map[string]error{"anything": provider.ErrRefreshUnsupported},
	}
	svc := NewTokenService(repo, enc, registryWith(adapter))

	token, appErr := svc.GetValidToken(context.Background(), accountID)
	require.Nil(t, appErr)
	assert.Empty(t, token)
}

func TestRefreshTokenWithoutStoredRefreshToken(t *testing.T) {
	repo := newFakeSocialRepo()
	enc := newEncryptor(t)
	past := time.Now().UTC().Add(-time.Hour)

	// Long-lived token provider: the unsupported status wins over the
	// missing stored token.
	facebookID := seedAccount(t, repo, enc, "facebook", "long-lived", "", &past)
	facebook := &fakeAdapter{
		name:       "facebook",
		refreshErr: map[string]error{"": provider.ErrRefreshUnsupported},
	}
	svc := NewTokenService(repo, enc, registryWith(facebook))

	result := svc.RefreshToken(context.Background(), facebookID)
	assert.False(t, result.Success)
	assert.Equal(t, "provider does not support token refresh", result.Error)

	// Refresh-capable provider with nothing stored reports the missing token.
	googleID := seedAccount(t, repo, enc, "google_business", "stale", "", &past)
	svc = NewTokenService(repo, enc, registryWith(&fakeAdapter{name: "google_business"}))

	result = svc.RefreshToken(context.Background(), googleID)
	assert.False(t, result.Success)
	assert.Equal(t, "no refresh token stored", result.Error)
}

func TestRefreshExpiredTokensBatchIsolation(t *testing.T) {
	repo := newFakeSocialRepo()
	enc := newEncryptor(t)
	past := time.Now().UTC().Add(-time.Hour)

	goodA := seedAccount(t, repo, enc, "google_business", "a", "refresh-a", &past)
	bad := seedAccount(t, repo, enc, "google_business", "b", "refresh-bad", &past)
	goodC := seedAccount(t, repo, enc, "google_business", "c", "refresh-c", &past)

	adapter := &fakeAdapter{
		name: "google_business",
		refreshErr: map[string]error{
			"refresh-bad": &provider.Error{Provider: "google_business", StatusCode: 401, Code: "unauthorized", Message: "revoked"},
		},
	}
	svc := NewTokenService(repo, enc, registryWith(adapter))

	report, appErr := svc.RefreshExpiredTokens(context.Background())
	require.Nil(t, appErr)

	assert.Equal(t, 2, report.Refreshed)
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Errors, bad.String())
	assert.NotContains(t, report.Errors, goodA.String())
	assert.NotContains(t, report.Errors, goodC.String())

	// The failed account is marked but still active for a later reconnect.
	account, err := repo.GetAccountByID(context.Background(), bad)
	require.NoError(t, err)
	assert.True(t, account.IsActive)
	assert.NotNil(t, account.LastErrorAt)
}

func TestValidateAndRefreshToken(t *testing.T) {
	repo := newFakeSocialRepo()
	enc := newEncryptor(t)
	future := time.Now().UTC().Add(time.Hour)

	healthyID := seedAccount(t, repo, enc, "healthy", "token", "refresh", &future)
	svc := NewTokenService(repo, enc, registryWith(&fakeAdapter{name: "healthy", pingHealthy: true}))
	assert.True(t, svc.ValidateAndRefreshToken(context.Background(), healthyID))

	brokenRepo := newFakeSocialRepo()
	brokenID := seedAccount(t, brokenRepo, enc, "broken", "token", "revoked", &future)
	brokenAdapter := &fakeAdapter{
		name: "broken",
		refreshErr: map[string]error{
			"revoked": &provider.Error{Provider: "broken", StatusCode: 401, Code: "unauthorized", Message: "revoked"},
		},
	}
	brokenSvc := NewTokenService(brokenRepo, enc, registryWith(brokenAdapter))
	assert.False(t, brokenSvc.ValidateAndRefreshToken(context.Background(), brokenID))
}

func TestRefreshTokenUnknownAccount(t *testing.T) {
	svc := NewTokenService(newFakeSocialRepo(), newEncryptor(t), provider.NewRegistry())

	result := svc.RefreshToken(context.Background(), uuid.New())
	assert.False(t, result.Success)
	assert.Equal(t, "account not found", result.Error)
}
