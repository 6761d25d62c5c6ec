package app

import (
	"time"

	"github.com/yungbote/fitcoach-backend/internal/platform/envutil"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

type Config struct {
	Port        string
	ServiceName string
	Environment string
	Version     string

	DBDriver   string
	SQLitePath string

	JWTSecretKey string
	JWTIssuer    string

	LLMProvider  string
	TextTimeout  time.Duration
	VoiceTimeout time.Duration

	MetricsAddr    string
	AllowedOrigins []string

	VoiceSessionIdle  time.Duration
	VoiceReapInterval time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:        envutil.String("PORT", "8080"),
		ServiceName: envutil.String("SERVICE_NAME", "fitcoach-backend"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),

		DBDriver:   envutil.String("DB_DRIVER", "postgres"),
		SQLitePath: envutil.String("SQLITE_PATH", "fitcoach.db"),

		JWTSecretKey: envutil.String("JWT_SECRET_KEY", ""),
		JWTIssuer:    envutil.String("JWT_ISSUER", ""),

		LLMProvider:  envutil.String("LLM_PROVIDER", ProviderOpenAI),
		TextTimeout:  envutil.Seconds("LLM_TEXT_TIMEOUT_SECONDS", 30*time.Second),
		VoiceTimeout: envutil.Seconds("LLM_VOICE_TIMEOUT_SECONDS", 8*time.Second),

		MetricsAddr:    envutil.String("METRICS_ADDR", ""),
		AllowedOrigins: envutil.List("CORS_ALLOWED_ORIGINS", nil),

		VoiceSessionIdle:  envutil.Seconds("VOICE_SESSION_IDLE_SECONDS", 10*time.Minute),
		VoiceReapInterval: envutil.Seconds("VOICE_REAP_INTERVAL_SECONDS", time.Minute),
	}
	if log != nil {
		log.Info("Loaded config", "db_driver", cfg.DBDriver, "llm_provider", cfg.LLMProvider, "port", cfg.Port)
	}
	return cfg
}
