package provider

import (
	"context"
	"net/http"

	"tripfluence-api/modules/social/entity"

	"golang.org/x/oauth2"
)

const meetupAPIBase = "https://api.meetup.com"

// MeetupAdapter creates events in the tenant's Meetup group.
type MeetupAdapter struct {
	client *http.Client
	oauth  *oauth2.Config
}

func NewMeetupAdapter(client *http.Client, clientID, clientSecret string) *MeetupAdapter {
	return &MeetupAdapter{
		client: client,
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://secure.meetup.com/oauth2/authorize",
				TokenURL: "https://secure.meetup.com/oauth2/access",
			},
		},
	}
}

func (a *MeetupAdapter) Name() string { return entity.ProviderMeetup }

func (a *MeetupAdapter) TestConnection(ctx context.Context, accessToken string) error {
	_, err := doJSON(ctx, a.client, a.Name(), http.MethodGet, meetupAPIBase+"/members/self", accessToken, nil, nil)
	return err
}

func (a *MeetupAdapter) RefreshToken(ctx context.Context, refreshToken string) (*RefreshOutcome, error) {
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

func (a *MeetupAdapter) CreateEvent(ctx context.Context, accessToken string, event *EventContent) (string, error) {
	payload := map[string]any{
		"name":        event.Title,
		"description": event.Description,
		"time":        event.StartAt.UnixMilli(),
		"duration":    event.EndAt.Sub(event.StartAt).Milliseconds(),
	}

	var result struct {
		ID string `json:"id"`
	}
	url := meetupAPIBase + "/" + event.ExternalAccountID + "/events"
	if _, err := doJSON(ctx, a.client, a.Name(), http.MethodPost, url, accessToken, payload, &result); err != nil {
		return "", err
	}
	return result.ID, nil
}

func (a *MeetupAdapter) ParseRateLimit(headers http.Header) *RateLimit {
	return parseRateLimitHeaders(headers, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset")
}
