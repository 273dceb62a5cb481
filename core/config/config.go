package config

import (
	"fmt"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Host string `mapstructure:"SERVER_HOST"`
	Port int    `mapstructure:"SERVER_PORT"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"DB_HOST"`
	Port     int    `mapstructure:"DB_PORT"`
	User     string `mapstructure:"DB_USER"`
	Password string `mapstructure:"DB_PASSWORD"`
	DBName   string `mapstructure:"DB_NAME"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"REDIS_ADDR"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"JWT_SECRET"`
}

// SecretsConfig controls token encryption at rest. Key is a base64 32-byte
// symmetric key. With no key configured, encryption runs in a degraded
// reversible-encoding mode only when AllowInsecureFallback is set.
type SecretsConfig struct {
	EncryptionKey         string `mapstructure:"TOKEN_ENCRYPTION_KEY"`
	AllowInsecureFallback bool   `mapstructure:"ALLOW_INSECURE_TOKEN_FALLBACK"`
}

type ProviderCredentials struct {
	ClientID     string
	ClientSecret string
}

type ProvidersConfig struct {
	FacebookClientID       string `mapstructure:"FACEBOOK_CLIENT_ID"`
	FacebookClientSecret   string `mapstructure:"FACEBOOK_CLIENT_SECRET"`
	GoogleClientID         string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret     string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	EventbriteClientID     string `mapstructure:"EVENTBRITE_CLIENT_ID"`
	EventbriteClientSecret string `mapstructure:"EVENTBRITE_CLIENT_SECRET"`
	MeetupClientID         string `mapstructure:"MEETUP_CLIENT_ID"`
	MeetupClientSecret     string `mapstructure:"MEETUP_CLIENT_SECRET"`
}

type WebhookConfig struct {
	SigningSecret string `mapstructure:"WEBHOOK_SIGNING_SECRET"`
}

type StorageConfig struct {
	S3Bucket        string `mapstructure:"S3_BUCKET"`
	S3Region        string `mapstructure:"S3_REGION"`
	S3AccessKey     string `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey     string `mapstructure:"S3_SECRET_KEY"`
	PresignTTLHours int    `mapstructure:"S3_PRESIGN_TTL_HOURS"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:",squash"`
	Database  DatabaseConfig  `mapstructure:",squash"`
	Redis     RedisConfig     `mapstructure:",squash"`
	Auth      AuthConfig      `mapstructure:",squash"`
	Secrets   SecretsConfig   `mapstructure:",squash"`
	Providers ProvidersConfig `mapstructure:",squash"`
	Webhook   WebhookConfig   `mapstructure:",squash"`
	Storage   StorageConfig   `mapstructure:",squash"`
}

var (
	instance *Config
	mu       sync.RWMutex
)

// Load reads .env (if present) and the environment into the process-wide
// config. Called once at startup before anything reads config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 7070)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "tripfluence")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_PRESIGN_TTL_HOURS", 24)

	// viper.AutomaticEnv does not populate Unmarshal targets on its own;
	// bind each key explicitly so env values reach the struct.
	keys := []string{
		"SERVER_HOST", "SERVER_PORT",
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"JWT_SECRET",
		"TOKEN_ENCRYPTION_KEY", "ALLOW_INSECURE_TOKEN_FALLBACK",
		"FACEBOOK_CLIENT_ID", "FACEBOOK_CLIENT_SECRET",
		"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET",
		"EVENTBRITE_CLIENT_ID", "EVENTBRITE_CLIENT_SECRET",
		"MEETUP_CLIENT_ID", "MEETUP_CLIENT_SECRET",
		"WEBHOOK_SIGNING_SECRET",
		"S3_BUCKET", "S3_REGION", "S3_ACCESS_KEY", "S3_SECRET_KEY", "S3_PRESIGN_TTL_HOURS",
	}
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	mu.Lock()
	instance = &cfg
	mu.Unlock()

	return &cfg, nil
}

// Get returns the loaded config; panics if Load was never called.
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	if instance == nil {
		panic("config: Get called before Load")
	}
	return instance
}

// GetSafe returns the loaded config and whether it is initialized.
func GetSafe() (*Config, bool) {
	mu.RLock()
	defer mu.RUnlock()
	return instance, instance != nil
}
