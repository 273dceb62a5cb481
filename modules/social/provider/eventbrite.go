package provider

import (
	"context"
	"fmt"
	"net/http"

	"tripfluence-api/modules/social/entity"

	"golang.org/x/oauth2"
)

const eventbriteAPIBase = "https://www.eventbriteapi.com/v3"

// EventbriteAdapter creates events under the tenant's organization.
type EventbriteAdapter struct {
	client *http.Client
	oauth  *oauth2.Config
}

func NewEventbriteAdapter(client *http.Client, clientID, clientSecret string) *EventbriteAdapter {
	return &EventbriteAdapter{
		client: client,
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://www.eventbrite.com/oauth/authorize",
				TokenURL: "https://www.eventbrite.com/oauth/token",
			},
		},
	}
}

func (a *EventbriteAdapter) Name() string { return entity.ProviderEventbrite }

func (a *EventbriteAdapter) TestConnection(ctx context.Context, accessToken string) error {
	_, err := doJSON(ctx, a.client, a.Name(), http.MethodGet, eventbriteAPIBase+"/users/me/", accessToken, nil, nil)
	return err
}

func (a *EventbriteAdapter) RefreshToken(ctx context.Context, refreshToken string) (*RefreshOutcome, error) {
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

func (a *EventbriteAdapter) CreateEvent(ctx context.Context, accessToken string, event *EventContent) (string, error) {
	payload := map[string]any{
		"event": map[string]any{
			"name":        map[string]string{"html": event.Title},
			"description": map[string]string{"html": event.Description},
			"start": map[string]string{
				"timezone": "UTC",
				"utc":      event.StartAt.UTC().Format("2006-01-02T15:04:05Z"),
			},
			"end": map[string]string{
				"timezone": "UTC",
				"utc":      event.EndAt.UTC().Format("2006-01-02T15:04:05Z"),
			},
			"currency": "USD",
		},
	}

	var result struct {
		ID string `json:"id"`
	}
	url := fmt.Sprintf("%s/organizations/%s/events/", eventbriteAPIBase, event.ExternalAccountID)
	if _, err := doJSON(ctx, a.client, a.Name(), http.MethodPost, url, accessToken, payload, &result); err != nil {
		return "", err
	}
	return result.ID, nil
}

func (a *EventbriteAdapter) ParseRateLimit(headers http.Header) *RateLimit {
	return parseRateLimitHeaders(headers, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset")
}
