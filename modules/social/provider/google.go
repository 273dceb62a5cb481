package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"tripfluence-api/modules/social/entity"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const businessProfileBase = "https://mybusiness.googleapis.com/v4"

// GoogleBusinessAdapter publishes local posts to a Business Profile
// location. Tokens refresh through the standard Google OAuth grant.
type GoogleBusinessAdapter struct {
	client *http.Client
	oauth  *oauth2.Config
}

func NewGoogleBusinessAdapter(client *http.Client, clientID, clientSecret string) *GoogleBusinessAdapter {
	return &GoogleBusinessAdapter{
		client: client,
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
		},
	}
}

func (a *GoogleBusinessAdapter) Name() string { return entity.ProviderGoogleBusiness }

func (a *GoogleBusinessAdapter) TestConnection(ctx context.Context, accessToken string) error {
	_, err := doJSON(ctx, a.client, a.Name(), http.MethodGet,
		"https://www.googleapis.com/oauth2/v3/userinfo", accessToken, nil, nil)
	return err
}

func (a *GoogleBusinessAdapter) RefreshToken(ctx context.Context, refreshToken string) (*RefreshOutcome, error) {
	token, err := a.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, &Error{
			Provider: a.Name(),
			Code:     "refresh_failed",
			Message:  err.Error(),
		}
	}

	outcome := &RefreshOutcome{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry.UTC()
		outcome.ExpiresAt = &expiry
	}
	return outcome, nil
}

func (a *GoogleBusinessAdapter) CreatePost(ctx context.Context, accessToken string, post *PostContent) (string, error) {
	payload := map[string]any{
		"languageCode": "en",
		"topicType":    "STANDARD",
		"summary":      post.Body,
	}
	if post.MediaURL != "" {
		payload["media"] = []map[string]string{{
			"mediaFormat": "PHOTO",
			"sourceUrl":   post.MediaURL,
		}}
	}

	var result struct {
		Name string `json:"name"`
	}
	url := fmt.Sprintf("%s/%s/localPosts", businessProfileBase, post.ExternalAccountID)
	if _, err := doJSON(ctx, a.client, a.Name(), http.MethodPost, url, accessToken, payload, &result); err != nil {
		return "", err
	}
	return result.Name, nil
}

// ParseRateLimit: Business Profile signals quota exhaustion with 429 only
// and exposes no budget headers, so there is nothing to parse. The
// Retry-After header, when present, still yields a reset time.
func (a *GoogleBusinessAdapter) ParseRateLimit(headers http.Header) *RateLimit {
	retryAfter := headers.Get("Retry-After")
	if retryAfter == "" {
		return nil
	}
	seconds, err := time.ParseDuration(retryAfter + "s")
	if err != nil {
		return nil
	}
	return &RateLimit{Limit: 0, Remaining: 0, ResetAt: time.Now().UTC().Add(seconds)}
}
