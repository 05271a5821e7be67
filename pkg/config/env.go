package config

import (
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// applyEnv overrides cfg with the MESHCHAT_* variables that are set.
// Unparsable numbers and booleans are logged and ignored.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	boolean := func(name string, dst *bool) {
		v, ok := lookup(name)
		if !ok || v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("Ignoring invalid boolean", "env", name, "value", v)
			return
		}
		*dst = b
	}
	integer := func(name string, dst *int) {
		v, ok := lookup(name)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("Ignoring invalid number", "env", name, "value", v)
			return
		}
		*dst = n
	}
	duration := func(name string, dst *time.Duration) {
		v, ok := lookup(name)
		if !ok || v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("Ignoring invalid duration", "env", name, "value", v)
			return
		}
		*dst = d
	}

	str("MESHCHAT_BACKEND", &cfg.Backend)
	str("MESHCHAT_GATEWAY_URL", &cfg.Gateway.URL)
	str("MESHCHAT_GATEWAY_TOKEN", &cfg.Gateway.Token)
	duration("MESHCHAT_GATEWAY_TIMEOUT", &cfg.Gateway.Timeout)

	if v, ok := lookup("MESHCHAT_AGENT_URLS"); ok {
		if urls := splitList(v); len(urls) > 0 {
			cfg.Agents.CardURLs = urls
		}
	}
	str("MESHCHAT_DEFAULT_AGENT", &cfg.Agents.Default)

	str("MESHCHAT_TASKS_TRANSPORT", &cfg.Tasks.Transport)
	str("MESHCHAT_TASKS_URL", &cfg.Tasks.URL)
	duration("MESHCHAT_TASKS_RETRY_INITIAL", &cfg.Tasks.Retry.Initial)
	duration("MESHCHAT_TASKS_RETRY_MAX", &cfg.Tasks.Retry.Max)
	integer("MESHCHAT_TASKS_RETRY_ATTEMPTS", &cfg.Tasks.Retry.MaxAttempts)

	s3 := &cfg.Artifacts.S3
	str("MESHCHAT_ARTIFACTS_BACKEND", &cfg.Artifacts.Backend)
	str("MESHCHAT_S3_ENDPOINT", &s3.Endpoint)
	str("MESHCHAT_S3_REGION", &s3.Region)
	str("MESHCHAT_S3_ACCESS_KEY", &s3.AccessKey)
	str("MESHCHAT_S3_SECRET_KEY", &s3.SecretKey)
	str("MESHCHAT_S3_BUCKET", &s3.Bucket)
	boolean("MESHCHAT_S3_USE_SSL", &s3.UseSSL)

	str("MESHCHAT_LOG_FILE", &cfg.Log.Path)
	str("MESHCHAT_LOG_LEVEL", &cfg.Log.Level)

	str("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Telemetry.Endpoint)
	boolean("OTEL_EXPORTER_OTLP_INSECURE", &cfg.Telemetry.Insecure)
}
