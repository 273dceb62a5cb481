package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// EventContent is the normalized event payload adapters translate into
// provider API calls.
type EventContent struct {
	Title             string
	Description       string
	StartAt           time.Time
	EndAt             time.Time
	MediaURL          string
	ExternalAccountID string
}

// PostContent is the normalized post payload.
type PostContent struct {
	Title             string
	Body              string
	MediaURL          string
	ExternalAccountID string
}

// RefreshOutcome carries the new credentials from a refresh grant. A nil
// ExpiresAt means the provider issued a token without a fixed lifetime.
type RefreshOutcome struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

// RateLimit is the normalized view of a provider's rate-limit headers.
type RateLimit struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Error is a provider-call failure with enough structure for the caller
// to decide between retry, reconnect, and give-up.
type Error struct {
	Provider   string
	StatusCode int
	Code       string
	Message    string
	Retryable  bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (%s, status %d)", e.Provider, e.Message, e.Code, e.StatusCode)
}

// ErrRefreshUnsupported marks providers whose tokens are long-lived and
// cannot be refreshed. Callers must treat this as a distinct outcome,
// not a failure.
var ErrRefreshUnsupported = fmt.Errorf("token refresh not supported by this provider")

// Adapter is the capability surface every provider implements. Event and
// post creation are optional capabilities; adapters advertise them by
// additionally implementing EventCreator or PostCreator.
type Adapter interface {
	Name() string
	TestConnection(ctx context.Context, accessToken string) error
	RefreshToken(ctx context.Context, refreshToken string) (*RefreshOutcome, error)
	ParseRateLimit(headers http.Header) *RateLimit
}

type EventCreator interface {
	CreateEvent(ctx context.Context, accessToken string, event *EventContent) (string, error)
}

type PostCreator interface {
	CreatePost(ctx context.Context, accessToken string, post *PostContent) (string, error)
}

// Registry maps provider identifiers to adapter instances. One adapter
// may serve multiple identifiers (facebook and instagram share an
// adapter).
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

func (r *Registry) Register(name string, adapter Adapter) {
	r.adapters[name] = adapter
}

func (r *Registry) Get(name string) (Adapter, bool) {
	adapter, ok := r.adapters[name]
	return adapter, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}

// doJSON issues an HTTP request with a bearer token, decodes a JSON
// response into out (when non-nil), and normalizes non-2xx responses
// into *Error. It returns the response headers for rate-limit parsing.
func doJSON(ctx context.Context, client *http.Client, providerName, method, url, accessToken string, body, out any) (http.Header, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{
			Provider:  providerName,
			Code:      "network_error",
			Message:   err.Error(),
			Retryable: true,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.Header, &Error{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Code:       errorCodeForStatus(resp.StatusCode),
			Message:    string(data),
			Retryable:  resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.Header, &Error{
				Provider:   providerName,
				StatusCode: resp.StatusCode,
				Code:       "invalid_response",
				Message:    err.Error(),
			}
		}
	}

	return resp.Header, nil
}

func errorCodeForStatus(status int) string {
	switch {
	case status == http.StatusUnauthorized:
		return "unauthorized"
	case status == http.StatusForbidden:
		return "forbidden"
	case status == http.StatusTooManyRequests:
		return "rate_limited"
	case status >= 500:
		return "provider_error"
	default:
		return "request_rejected"
	}
}

// parseRateLimitHeaders handles the X-RateLimit-* convention several
// providers share. Returns nil when the headers are absent or malformed.
func parseRateLimitHeaders(headers http.Header, limitKey, remainingKey, resetKey string) *RateLimit {
	limitStr := headers.Get(limitKey)
	remainingStr := headers.Get(remainingKey)
	if limitStr == "" || remainingStr == "" {
		return nil
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return nil
	}
	remaining, err := strconv.Atoi(remainingStr)
	if err != nil {
		return nil
	}

	rl := &RateLimit{Limit: limit, Remaining: remaining}
	if resetStr := headers.Get(resetKey); resetStr != "" {
		if epoch, err := strconv.ParseInt(resetStr, 10, 64); err == nil {
			rl.ResetAt = time.Unix(epoch, 0).UTC()
		}
	}
	return rl
}
