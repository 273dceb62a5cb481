package constants

import "time"

const (
	// DefaultTimeout bounds outbound provider calls.
	DefaultTimeout = 10 * time.Second
	// DefaultRequestTimeout bounds inbound request handling.
	DefaultRequestTimeout = 30 * time.Second

	// HoldDuration is how long an approved request may sit in
	// needs_payment before the hold expiry job releases it.
	HoldDuration = 24 * time.Hour

	// DailyRateThresholdHours is the duration at which pricing switches
	// from the hourly to the daily base rate.
	DailyRateThresholdHours = 8

	DatabaseSSLMode         = "disable"
	DatabaseMaxOpenConns    = 25
	DatabaseMaxIdleConns    = 5
	DatabaseConnMaxLifetime = 30 // minutes

	ContextActor = "actor"

	RedisKeySpaceLock = "lock:space:"
	SpaceLockTTL      = 10 * time.Second

	// Asynq task type names.
	TaskHoldExpiry     = "request:hold_expiry"
	TaskSocialPublish  = "social:publish"
	TaskTokenSweep     = "social:token_sweep"
	TaskWebhookDeliver = "webhook:deliver"
)
