package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"templatefill-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port               string
	Env                string
	CORSAllowOrigin    []string
	ObjectStoreType    string
	LocalStoreDir      string
	AWSRegion          string
	S3Bucket           string
	S3Prefix           string
	SSEKMSKeyID        string
	DatabaseURL        string
	LLMProvider        string
	LLMModel           string
	LLMBaseURL         string
	LLMAPIKey          string
	LLMTimeout         time.Duration
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	PlaceholderTTL     time.Duration
	SessionIdleTimeout time.Duration
	JWTSecret          string
	LogLevel           string
	LogFormat          string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "dev")
	v.SetDefault("CORS_ALLOW_ORIGINS", "http://localhost:5173")
	v.SetDefault("OBJECT_STORE", "local")
	v.SetDefault("LOCAL_STORE_DIR", "./data")
	v.SetDefault("LLM_PROVIDER", "groq")
	v.SetDefault("LLM_MODEL", "")
	v.SetDefault("LLM_BASE_URL", "")
	v.SetDefault("LLM_TIMEOUT_SECONDS", 60)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("PLACEHOLDER_CACHE_TTL", "24h")
	v.SetDefault("SESSION_IDLE_TIMEOUT", "30m")
	v.SetDefault("JWT_SECRET", "dev-secret")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	// Keys without defaults are invisible to AutomaticEnv lookups via AllKeys,
	// so bind them explicitly.
	for _, key := range []string{
		"AWS_REGION", "S3_BUCKET", "S3_PREFIX", "SSE_KMS_KEY_ID", "DATABASE_URL",
		"LLM_API_KEY", "GROQ_API_KEY", "OPENAI_API_KEY", "REDIS_ADDR", "REDIS_PASSWORD",
	} {
		_ = v.BindEnv(key)
	}
	return v
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) Config {
	env := normalizeEnv(v.GetString("ENV"))
	dbURL := strings.TrimSpace(v.GetString("DATABASE_URL"))
	if env == "production" && dbURL == "" {
		telemetry.Warn("config.database_url_missing", map[string]any{"env": env})
	}

	return Config{
		Port:               v.GetString("PORT"),
		Env:                env,
		CORSAllowOrigin:    splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS")),
		ObjectStoreType:    normalizeStoreType(v.GetString("OBJECT_STORE")),
		LocalStoreDir:      v.GetString("LOCAL_STORE_DIR"),
		AWSRegion:          v.GetString("AWS_REGION"),
		S3Bucket:           v.GetString("S3_BUCKET"),
		S3Prefix:           v.GetString("S3_PREFIX"),
		SSEKMSKeyID:        v.GetString("SSE_KMS_KEY_ID"),
		DatabaseURL:        dbURL,
		LLMProvider:        strings.ToLower(strings.TrimSpace(v.GetString("LLM_PROVIDER"))),
		LLMModel:           strings.TrimSpace(v.GetString("LLM_MODEL")),
		LLMBaseURL:         strings.TrimSpace(v.GetString("LLM_BASE_URL")),
		LLMAPIKey:          firstNonEmpty(v.GetString("LLM_API_KEY"), v.GetString("GROQ_API_KEY"), v.GetString("OPENAI_API_KEY")),
		LLMTimeout:         seconds(v.GetInt("LLM_TIMEOUT_SECONDS"), 60),
		RedisAddr:          strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		RedisDB:            v.GetInt("REDIS_DB"),
		PlaceholderTTL:     duration(v, "PLACEHOLDER_CACHE_TTL", 24*time.Hour),
		SessionIdleTimeout: duration(v, "SESSION_IDLE_TIMEOUT", 30*time.Minute),
		JWTSecret:          v.GetString("JWT_SECRET"),
		LogLevel:           strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:          strings.ToLower(v.GetString("LOG_FORMAT")),
	}
}

func duration(v *viper.Viper, key string, def time.Duration) time.Duration {
	d := v.GetDuration(key)
	if d <= 0 {
		return def
	}
	return d
}

func seconds(n, def int) time.Duration {
	if n <= 0 {
		n = def
	}
	return time.Duration(n) * time.Second
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
