package dto

import (
	"time"

	"tripfluence-api/modules/social/entity"

	"github.com/google/uuid"
)

// ConnectAccountRequest carries the OAuth callback payload. Raw tokens
// arrive here once, get encrypted, and are never echoed back.
type ConnectAccountRequest struct {
	Provider          string  `json:"provider"`
	AccountName       string  `json:"account_name"`
	ExternalAccountID string  `json:"external_account_id"`
	AccessToken       string  `json:"access_token"`
	RefreshToken      *string `json:"refresh_token"`
	ExpiresAt         *string `json:"expires_at"`
}

// AccountResponse exposes connection health without token material.
type AccountResponse struct {
	ID             uuid.UUID  `json:"id"`
	Provider       string     `json:"provider"`
	AccountName    string     `json:"account_name"`
	IsActive       bool       `json:"is_active"`
	TokenExpiresAt *time.Time `json:"token_expires_at"`
	LastSuccessAt  *time.Time `json:"last_success_at"`
	LastErrorAt    *time.Time `json:"last_error_at"`
	LastError      *string    `json:"last_error"`
	CreatedAt      time.Time  `json:"created_at"`
}

func ToAccountResponse(account *entity.SocialAccount) *AccountResponse {
	return &AccountResponse{
		ID:             account.ID,
		Provider:       account.Provider,
		AccountName:    account.AccountName,
		IsActive:       account.IsActive,
		TokenExpiresAt: account.TokenExpiresAt,
		LastSuccessAt:  account.LastSuccessAt,
		LastErrorAt:    account.LastErrorAt,
		LastError:      account.LastError,
		CreatedAt:      account.CreatedAt,
	}
}

type CreatePublishJobRequest struct {
	Kind      string   `json:"kind"`
	SpaceID   string   `json:"space_id"`
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	MediaKey  *string  `json:"media_key"`
	StartAt   *string  `json:"start_at"`
	EndAt     *string  `json:"end_at"`
	Platforms []string `json:"platforms"`
}

type JobResponse struct {
	ID          uuid.UUID              `json:"id"`
	Kind        entity.PublishJobKind  `json:"kind"`
	SpaceID     uuid.UUID              `json:"space_id"`
	Title       string                 `json:"title"`
	Platforms   []string               `json:"platforms"`
	Status      entity.PublishJobStatus `json:"status"`
	LastError   *string                `json:"last_error"`
	CompletedAt *time.Time             `json:"completed_at"`
	CreatedAt   time.Time              `json:"created_at"`
	Results     []entity.PublishResult `json:"results,omitempty"`
}

func ToJobResponse(job *entity.PublishJob, results []entity.PublishResult) *JobResponse {
	return &JobResponse{
		ID:          job.ID,
		Kind:        job.Kind,
		SpaceID:     job.SpaceID,
		Title:       job.Title,
		Platforms:   job.Platforms,
		Status:      job.Status,
		LastError:   job.LastError,
		CompletedAt: job.CompletedAt,
		CreatedAt:   job.CreatedAt,
		Results:     results,
	}
}
