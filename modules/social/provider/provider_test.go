package provider

import (
	"context"
	"net/http"
	"testing"
	"time"

	"tripfluence-api/modules/social/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRateLimitHeaders(t *testing.T) {
	adapter := NewEventbriteAdapter(http.DefaultClient, "id", "secret")

	headers := http.Header{}
	headers.Set("X-RateLimit-Limit", "1000")
	headers.Set("X-RateLimit-Remaining", "42")
	headers.Set("X-RateLimit-Reset", "1790000000")

	rl := adapter.ParseRateLimit(headers)
	require.NotNil(t, rl)
	assert.Equal(t, 1000, rl.Limit)
	assert.Equal(t, 42, rl.Remaining)
	assert.Equal(t, time.Unix(1790000000, 0).UTC(), rl.ResetAt)
}

func TestParseRateLimitAbsentHeaders(t *testing.T) {
	adapter := NewMeetupAdapter(http.DefaultClient, "id", "secret")
	assert.Nil(t, adapter.ParseRateLimit(http.Header{}))

	malformed := http.Header{}
	malformed.Set("X-RateLimit-Limit", "plenty")
	malformed.Set("X-RateLimit-Remaining", "some")
	assert.Nil(t, adapter.ParseRateLimit(malformed))
}

func TestFacebookParseRateLimitAppUsage(t *testing.T) {
	adapter := NewFacebookAdapter(http.DefaultClient)

	headers := http.Header{}
	headers.Set("X-App-Usage", `{"call_count":37,"total_time":10,"total_cputime":5}`)

	rl := adapter.ParseRateLimit(headers)
	require.NotNil(t, rl)
	assert.Equal(t, 100, rl.Limit)
	assert.Equal(t, 63, rl.Remaining)

	assert.Nil(t, adapter.ParseRateLimit(http.Header{}))
}

func TestFacebookRefreshUnsupported(t *testing.T) {
	adapter := NewFacebookAdapter(http.DefaultClient)
	_, err := adapter.RefreshToken(context.Background(), "token")
	assert.ErrorIs(t, err, ErrRefreshUnsupported)
}

func TestRegistryCapabilities(t *testing.T) {
	client := http.DefaultClient
	facebook := NewFacebookAdapter(client)

	registry := NewRegistry()
	registry.Register(entity.ProviderFacebook, facebook)
	registry.Register(entity.ProviderInstagram, NewInstagramAdapter(facebook))
	registry.Register(entity.ProviderGoogleBusiness, NewGoogleBusinessAdapter(client, "id", "secret"))
	registry.Register(entity.ProviderEventbrite, NewEventbriteAdapter(client, "id", "secret"))
	registry.Register(entity.ProviderMeetup, NewMeetupAdapter(client, "id", "secret"))

	cases := []struct {
		name          string
		createsEvents bool
		createsPosts  bool
	}{
		{entity.ProviderFacebook, true, true},
		{entity.ProviderInstagram, false, true},
		{entity.ProviderGoogleBusiness, false, true},
		{entity.ProviderEventbrite, true, false},
		{entity.ProviderMeetup, true, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			adapter, ok := registry.Get(tc.name)
			require.True(t, ok)

			_, events := adapter.(EventCreator)
			_, posts := adapter.(PostCreator)
			assert.Equal(t, tc.createsEvents, events)
			assert.Equal(t, tc.createsPosts, posts)
		})
	}

	_, ok := registry.Get("myspace")
	assert.False(t, ok)
}
