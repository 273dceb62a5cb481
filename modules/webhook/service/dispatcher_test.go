package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"tripfluence-api/modules/webhook/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignPayload(t *testing.T) {
	payload := []byte(`{"event":"space_request.created"}`)
	signature := SignPayload("secret-key", payload)

	require.True(t, strings.HasPrefix(signature, "sha256="))

	mac := hmac.New(sha256.New, []byte("secret-key"))
	mac.Write(payload)
	assert.Equal(t, "sha256="+hex.EncodeToString(mac.Sum(nil)), signature)
}

func TestSignPayloadDiffersPerSecretAndPayload(t *testing.T) {
	payload := []byte(`{"event":"space_request.created"}`)

	assert.NotEqual(t, SignPayload("secret-a", payload), SignPayload("secret-b", payload))
	assert.NotEqual(t, SignPayload("secret-a", payload), SignPayload("secret-a", []byte(`{}`)))
	assert.Equal(t, SignPayload("secret-a", payload), SignPayload("secret-a", payload))
}

func TestEndpointSubscribesTo(t *testing.T) {
	subscribed := &entity.WebhookEndpoint{Events: []string{"space_request.created", "space_request.cancelled"}}
	assert.True(t, subscribed.SubscribesTo("space_request.created"))
	assert.False(t, subscribed.SubscribesTo("space.published"))

	// An empty event list subscribes to everything.
	catchAll := &entity.WebhookEndpoint{}
	assert.True(t, catchAll.SubscribesTo("space.published"))
}
