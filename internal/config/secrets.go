package config

// redact replaces a non-empty secret with a placeholder so configs can be
// logged without leaking credentials.
func redact(s string) string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// Redacted returns a deep copy of the config with every credential field
// masked. Safe to log or expose over the status endpoint.
func (c *Config) Redacted() Config {
	out := *c

	out.Manifold.APIKey = redact(c.Manifold.APIKey)
	out.Manifold.KeyPassword = redact(c.Manifold.KeyPassword)
	out.Postgres.DSN = redact(c.Postgres.DSN)
	out.Postgres.Password = redact(c.Postgres.Password)
	out.Redis.Password = redact(c.Redis.Password)
	out.S3.AccessKey = redact(c.S3.AccessKey)
	out.S3.SecretKey = redact(c.S3.SecretKey)
	out.Server.APIKey = redact(c.Server.APIKey)
	out.Notify.TelegramToken = redact(c.Notify.TelegramToken)
	out.Notify.DiscordWebhookURL = redact(c.Notify.DiscordWebhookURL)

	out.Server.CORSOrigins = append([]string(nil), c.Server.CORSOrigins...)
	out.Notify.Events = append([]string(nil), c.Notify.Events...)

	return out
}
