package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(key)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := NewEncryptor(testKey(t), false)
	require.NoError(t, err)

	for _, plaintext := range []string{
		"ya29.a0AfH6SMB-token-value",
		"",
		"tökèn-wïth-ñon-ASCII-字符",
		strings.Repeat("x", 4096),
	} {
		ciphertext, appErr := enc.Encrypt(plaintext)
		require.Nil(t, appErr)
		assert.NotEqual(t, plaintext, ciphertext)

		decrypted, appErr := enc.Decrypt(ciphertext)
		require.Nil(t, appErr)
		assert.Equal(t, plaintext, decrypted)
	}
}

func TestEncryptFreshNoncePerCall(t *testing.T) {
	enc, err := NewEncryptor(testKey(t), false)
	require.NoError(t, err)

	first, appErr := enc.Encrypt("same-token")
	require.Nil(t, appErr)
	second, appErr := enc.Encrypt("same-token")
	require.Nil(t, appErr)

	assert.NotEqual(t, first, second)
}

func TestDecryptRejectsCorruptCiphertext(t *testing.T) {
	enc, err := NewEncryptor(testKey(t), false)
	require.NoError(t, err)

	_, appErr := enc.Decrypt("not-base64!!!")
	assert.NotNil(t, appErr)

	_, appErr = enc.Decrypt(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.NotNil(t, appErr)

	ciphertext, _ := enc.Encrypt("token")
	raw, _ := base64.StdEncoding.DecodeString(ciphertext)
	raw[len(raw)-1] ^= 0xFF
	_, appErr = enc.Decrypt(base64.StdEncoding.EncodeToString(raw))
	assert.NotNil(t, appErr)
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	first, err := NewEncryptor(testKey(t), false)
	require.NoError(t, err)
	second, err := NewEncryptor(testKey(t), false)
	require.NoError(t, err)

	ciphertext, appErr := first.Encrypt("token")
	require.Nil(t, appErr)

	_, appErr = second.Decrypt(ciphertext)
	assert.NotNil(t, appErr)
}

func TestNewEncryptorRequiresKeyOrExplicitFallback(t *testing.T) {
	_, err := NewEncryptor("", false)
	assert.Error(t, err)

	_, err = NewEncryptor("definitely not base64 %%%", false)
	assert.Error(t, err)

	shortKey := base64.StdEncoding.EncodeToString([]byte("too short"))
	_, err = NewEncryptor(shortKey, false)
	assert.Error(t, err)
}

func TestInsecureFallbackRoundTrip(t *testing.T) {
	enc, err := NewEncryptor("", true)
	require.NoError(t, err)

	ciphertext, appErr := enc.Encrypt("token-value")
	require.Nil(t, appErr)
	assert.True(t, strings.HasPrefix(ciphertext, "plain:"))
	assert.NotContains(t, ciphertext, "token-value", "fallback still never stores raw plaintext")

	decrypted, appErr := enc.Decrypt(ciphertext)
	require.Nil(t, appErr)
	assert.Equal(t, "token-value", decrypted)
}

func TestFallbackCiphertextReadableAfterKeyConfigured(t *testing.T) {
	fallback, err := NewEncryptor("", true)
	require.NoError(t, err)
	ciphertext, appErr := fallback.Encrypt("legacy-token")
	require.Nil(t, appErr)

	keyed, err := NewEncryptor(testKey(t), false)
	require.NoError(t, err)

	decrypted, appErr := keyed.Decrypt(ciphertext)
	require.Nil(t, appErr)
	assert.Equal(t, "legacy-token", decrypted)
}
