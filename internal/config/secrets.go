package config

import "slices"

// RedactedConfig returns a copy of cfg with sensitive fields replaced by
// "***". Use this when logging the active configuration.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)
	redact(&out.Redis.Password)
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)
	redact(&out.Server.APIKey)
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Slices are copied so the redacted value shares nothing mutable with
	// cfg.
	out.Notify.Events = slices.Clone(cfg.Notify.Events)
	out.Server.CORSOrigins = slices.Clone(cfg.Server.CORSOrigins)
	out.Pricing.BetTypes = slices.Clone(cfg.Pricing.BetTypes)
	out.Pricing.Confidences = slices.Clone(cfg.Pricing.Confidences)
	out.Pricing.Timeframes = slices.Clone(cfg.Pricing.Timeframes)
	out.Pricing.TargetModifiers = slices.Clone(cfg.Pricing.TargetModifiers)

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
