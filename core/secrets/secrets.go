package secrets

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"tripfluence-api/core/errors"
	"tripfluence-api/core/logger"

	"golang.org/x/crypto/chacha20poly1305"
)

const insecurePrefix = "plain:"

// Encryptor seals and opens provider tokens at rest. With a configured key
// it uses ChaCha20-Poly1305 with a fresh random nonce prepended to the
// ciphertext. Without a key it refuses to operate unless the insecure
// base64 fallback was explicitly enabled, and then logs a warning per call.
type Encryptor struct {
	aead          cipher.AEAD
	allowFallback bool
}

// NewEncryptor builds an encryptor from a base64-encoded 32-byte key.
// An empty key with allowFallback=false is a configuration error.
func NewEncryptor(base64Key string, allowFallback bool) (*Encryptor, error) {
	if base64Key == "" {
		if !allowFallback {
			return nil, fmt.Errorf("no token encryption key configured and insecure fallback not enabled")
		}
		logger.Warn("Secrets:NewEncryptor:InsecureFallback",
			"detail", "token encryption key missing, tokens stored base64-encoded only")
		return &Encryptor{allowFallback: true}, nil
	}

	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("token encryption key is not valid base64: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("token encryption key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to init cipher: %w", err)
	}

	return &Encryptor{aead: aead}, nil
}

// Encrypt seals plaintext and returns base64(nonce || ciphertext).
func (e *Encryptor) Encrypt(plaintext string) (string, *errors.AppError) {
	if e.aead == nil {
		logger.Warn("Secrets:Encrypt:InsecureFallback")
		return insecurePrefix + base64.StdEncoding.EncodeToString([]byte(plaintext)), nil
	}

	nonce := make([]byte, e.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", errors.NewAppError(errors.ErrEncryption, "failed to generate nonce", err)
	}

	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Ciphertext produced in fallback mode stays
// readable after a key is configured; ciphertext corruption or a wrong key
// is an encryption error, never silently treated as plaintext.
func (e *Encryptor) Decrypt(ciphertext string) (string, *errors.AppError) {
	if strings.HasPrefix(ciphertext, insecurePrefix) {
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ciphertext, insecurePrefix))
		if err != nil {
			return "", errors.NewAppError(errors.ErrEncryption, "corrupt fallback-encoded token", err)
		}
		return string(decoded), nil
	}

	if e.aead == nil {
		return "", errors.NewAppError(errors.ErrEncryption, "encrypted token present but no key configured", nil)
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errors.NewAppError(errors.ErrEncryption, "ciphertext is not valid base64", err)
	}
	if len(raw) < e.aead.NonceSize() {
		return "", errors.NewAppError(errors.ErrEncryption, "ciphertext shorter than nonce", nil)
	}

	nonce, sealed := raw[:e.aead.NonceSize()], raw[e.aead.NonceSize():]
	plaintext, err := e.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", errors.NewAppError(errors.ErrEncryption, "failed to decrypt token", err)
	}

	return string(plaintext), nil
}
