package entity

import (
	"time"

	"tripfluence-api/core/entity"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	ProviderFacebook       = "facebook"
	ProviderInstagram      = "instagram"
	ProviderGoogleBusiness = "google_business"
	ProviderEventbrite     = "eventbrite"
	ProviderMeetup         = "meetup"
)

// SocialAccount is a tenant's connection to one external provider. The
// token columns hold ciphertext only; plaintext never reaches the
// database or the logs.
type SocialAccount struct {
	entity.BaseEntity
	TenantID              uuid.UUID  `db:"tenant_id" json:"tenant_id"`
	Provider              string     `db:"provider" json:"provider"`
	AccountName           string     `db:"account_name" json:"account_name"`
	ExternalAccountID     string     `db:"external_account_id" json:"external_account_id"`
	AccessTokenEncrypted  string     `db:"access_token_encrypted" json:"-"`
	RefreshTokenEncrypted *string    `db:"refresh_token_encrypted" json:"-"`
	TokenExpiresAt        *time.Time `db:"token_expires_at" json:"token_expires_at"`
	IsActive              bool       `db:"is_active" json:"is_active"`
	LastSuccessAt         *time.Time `db:"last_success_at" json:"last_success_at"`
	LastErrorAt           *time.Time `db:"last_error_at" json:"last_error_at"`
	LastError             *string    `db:"last_error" json:"last_error"`
}

// TokenExpired reports whether the stored access token has passed its
// expiry. Accounts without an expiry (long-lived tokens) never expire
// here; the provider decides.
func (a *SocialAccount) TokenExpired(now time.Time) bool {
	return a.TokenExpiresAt != nil && a.TokenExpiresAt.Before(now)
}

type PublishJobKind string

const (
	JobKindEventSync  PublishJobKind = "event_sync"
	JobKindSocialPost PublishJobKind = "social_post"
)

type PublishJobStatus string

const (
	JobStatusPending PublishJobStatus = "pending"
	JobStatusSuccess PublishJobStatus = "success"
	JobStatusFailed  PublishJobStatus = "failed"
)

func (s PublishJobStatus) IsTerminal() bool {
	return s == JobStatusSuccess || s == JobStatusFailed
}

// PublishJob is one publish attempt across a set of platforms. A job is
// written terminal exactly once after every platform has been tried;
// retries create a new job rather than reopening this one.
type PublishJob struct {
	entity.BaseEntity
	TenantID    uuid.UUID        `db:"tenant_id" json:"tenant_id"`
	Kind        PublishJobKind   `db:"kind" json:"kind"`
	SpaceID     uuid.UUID        `db:"space_id" json:"space_id"`
	Title       string           `db:"title" json:"title"`
	Body        string           `db:"body" json:"body"`
	MediaKey    *string          `db:"media_key" json:"media_key"`
	StartAt     *time.Time       `db:"start_at" json:"start_at"`
	EndAt       *time.Time       `db:"end_at" json:"end_at"`
	Platforms   pq.StringArray   `db:"platforms" json:"platforms"`
	Status      PublishJobStatus `db:"status" json:"status"`
	LastError   *string          `db:"last_error" json:"last_error"`
	CompletedAt *time.Time       `db:"completed_at" json:"completed_at"`
}

// PublishResult records one platform's outcome for a job. Partial success
// lives here: the job can be terminal success while individual rows
// carry errors.
type PublishResult struct {
	entity.BaseEntity
	JobID      uuid.UUID `db:"job_id" json:"job_id"`
	Provider   string    `db:"provider" json:"provider"`
	Succeeded  bool      `db:"succeeded" json:"succeeded"`
	ExternalID *string   `db:"external_id" json:"external_id"`
	Error      *string   `db:"error" json:"error"`
}
