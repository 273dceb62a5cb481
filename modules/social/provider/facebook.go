package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"tripfluence-api/modules/social/entity"
)

const graphAPIBase = "https://graph.facebook.com/v19.0"

// FacebookAdapter publishes page posts and page events through the Graph
// API. Page tokens are long-lived; the refresh grant does not apply.
type FacebookAdapter struct {
	client *http.Client
}

func NewFacebookAdapter(client *http.Client) *FacebookAdapter {
	return &FacebookAdapter{client: client}
}

func (a *FacebookAdapter) Name() string { return entity.ProviderFacebook }

func (a *FacebookAdapter) TestConnection(ctx context.Context, accessToken string) error {
	_, err := doJSON(ctx, a.client, a.Name(), http.MethodGet, graphAPIBase+"/me?fields=id", accessToken, nil, nil)
	return err
}

func (a *FacebookAdapter) RefreshToken(ctx context.Context, refreshToken string) (*RefreshOutcome, error) {
	return nil, ErrRefreshUnsupported
}

type graphIDResponse struct {
	ID string `json:"id"`
}

func (a *FacebookAdapter) CreatePost(ctx context.Context, accessToken string, post *PostContent) (string, error) {
	payload := map[string]string{"message": post.Body}
	if post.MediaURL != "" {
		payload["link"] = post.MediaURL
	}

	var result graphIDResponse
	url := fmt.Sprintf("%s/%s/feed", graphAPIBase, post.ExternalAccountID)
	if _, err := doJSON(ctx, a.client, a.Name(), http.MethodPost, url, accessToken, payload, &result); err != nil {
		return "", err
	}
	return result.ID, nil
}

func (a *FacebookAdapter) CreateEvent(ctx context.Context, accessToken string, event *EventContent) (string, error) {
	payload := map[string]string{
		"name":        event.Title,
		"description": event.Description,
		"start_time":  event.StartAt.Format(time.RFC3339),
		"end_time":    event.EndAt.Format(time.RFC3339),
	}
	if event.MediaURL != "" {
		payload["cover_url"] = event.MediaURL
	}

	var result graphIDResponse
	url := fmt.Sprintf("%s/%s/events", graphAPIBase, event.ExternalAccountID)
	if _, err := doJSON(ctx, a.client, a.Name(), http.MethodPost, url, accessToken, payload, &result); err != nil {
		return "", err
	}
	return result.ID, nil
}

// ParseRateLimit reads the Graph API X-App-Usage header, a JSON document
// of usage percentages, and maps it onto a 0-100 budget.
func (a *FacebookAdapter) ParseRateLimit(headers http.Header) *RateLimit {
	raw := headers.Get("X-App-Usage")
	if raw == "" {
		return nil
	}

	var usage struct {
		CallCount int `json:"call_count"`
	}
	if err := json.Unmarshal([]byte(raw), &usage); err != nil {
		return nil
	}

	remaining := 100 - usage.CallCount
	if remaining < 0 {
		remaining = 0
	}
	return &RateLimit{Limit: 100, Remaining: remaining}
}

// InstagramAdapter shares the Graph API client with Facebook but only
// publishes posts; Instagram has no event surface.
type InstagramAdapter struct {
	facebook *FacebookAdapter
}

func NewInstagramAdapter(facebook *FacebookAdapter) *InstagramAdapter {
	return &InstagramAdapter{facebook: facebook}
}

func (a *InstagramAdapter) Name() string { return entity.ProviderInstagram }

func (a *InstagramAdapter) TestConnection(ctx context.Context, accessToken string) error {
	return a.facebook.TestConnection(ctx, accessToken)
}

func (a *InstagramAdapter) RefreshToken(ctx context.Context, refreshToken string) (*RefreshOutcome, error) {
	return nil, ErrRefreshUnsupported
}

// CreatePost runs the two-step media container flow: create a container
// for the image, then publish it.
func (a *InstagramAdapter) CreatePost(ctx context.Context, accessToken string, post *PostContent) (string, error) {
	container := map[string]string{"caption": post.Body}
	if post.MediaURL != "" {
		container["image_url"] = post.MediaURL
	}

	var created graphIDResponse
	url := fmt.Sprintf("%s/%s/media", graphAPIBase, post.ExternalAccountID)
	if _, err := doJSON(ctx, a.facebook.client, a.Name(), http.MethodPost, url, accessToken, container, &created); err != nil {
		return "", err
	}

	var published graphIDResponse
	publishURL := fmt.Sprintf("%s/%s/media_publish", graphAPIBase, post.ExternalAccountID)
	payload := map[string]string{"creation_id": created.ID}
	if _, err := doJSON(ctx, a.facebook.client, a.Name(), http.MethodPost, publishURL, accessToken, payload, &published); err != nil {
		return "", err
	}
	return published.ID, nil
}

func (a *InstagramAdapter) ParseRateLimit(headers http.Header) *RateLimit {
	return a.facebook.ParseRateLimit(headers)
}
