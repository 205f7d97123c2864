package app

import (
	"os"
	"strings"
	"time"

	"github.com/yungbote/manike-backend/internal/modules/conversation"
	"github.com/yungbote/manike-backend/internal/platform/completion"
	"github.com/yungbote/manike-backend/internal/platform/envutil"
	"github.com/yungbote/manike-backend/internal/platform/logger"
	"github.com/yungbote/manike-backend/internal/platform/openai"
)

const (
	VideoCompilerLocal    = "local"
	VideoCompilerTemporal = "temporal"
)

type Config struct {
	Port        string
	Environment string
	ServiceName string
	// InstanceID tags bus events so a replica can ignore its own.
	InstanceID string

	JWTSecretKey   string
	AccessTokenTTL time.Duration

	AIProvider             string
	OpenAI                 openai.Config
	RateLimit              completion.RateLimitOptions
	MaxConsecutiveFailures int

	VideoCompiler    string
	FFmpegPath       string
	MediaWorkRoot    string
	MatchConcurrency int
	CatalogFile      string

	MetricsAddr string
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:        envutil.String("PORT", "8080"),
		Environment: envutil.String("ENVIRONMENT", "development"),
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "manike"),
		InstanceID:  envutil.String("INSTANCE_ID", defaultInstanceID()),

		JWTSecretKey:   envutil.String("JWT_SECRET_KEY", ""),
		AccessTokenTTL: envutil.Duration("ACCESS_TOKEN_TTL", time.Hour),

		AIProvider: strings.ToLower(envutil.String("AI_PROVIDER", "openai")),
		OpenAI:     openai.ConfigFromEnv(),
		RateLimit: completion.RateLimitOptions{
			RequestsPerSecond: envutil.Float("AI_RATE_LIMIT_RPS", 0),
			Burst:             envutil.Int("AI_RATE_LIMIT_BURST", 1),
			MaxRetries:        envutil.Int("AI_MAX_RATE_LIMIT_RETRIES", 3),
			Backoff:           time.Duration(envutil.Int("AI_RATE_LIMIT_BACKOFF_MS", 1000)) * time.Millisecond,
			MaxBackoff:        time.Duration(envutil.Int("AI_RATE_LIMIT_MAX_BACKOFF_MS", 8000)) * time.Millisecond,
		},
		MaxConsecutiveFailures: envutil.Int("CHAT_MAX_CONSECUTIVE_FAILURES", conversation.DefaultMaxConsecutiveFailures),

		VideoCompiler:    strings.ToLower(envutil.String("VIDEO_COMPILER", VideoCompilerLocal)),
		FFmpegPath:       envutil.String("FFMPEG_PATH", "ffmpeg"),
		MediaWorkRoot:    envutil.String("MEDIA_WORK_ROOT", ""),
		MatchConcurrency: envutil.Int("MEDIA_MATCH_CONCURRENCY", 4),
		CatalogFile:      envutil.String("ITINERARY_CATALOG_FILE", ""),

		MetricsAddr: envutil.String("METRICS_ADDR", ":9090"),
	}
	if cfg.JWTSecretKey == "" {
		cfg.JWTSecretKey = "defaultsecret"
		if log != nil {
			log.Warn("JWT_SECRET_KEY not set; using the development default")
		}
	}
	switch cfg.VideoCompiler {
	case VideoCompilerLocal, VideoCompilerTemporal:
	default:
		if log != nil {
			log.Warn("Unknown VIDEO_COMPILER, falling back to local", "value", cfg.VideoCompiler)
		}
		cfg.VideoCompiler = VideoCompilerLocal
	}
	return cfg
}

func defaultInstanceID() string {
	host, _ := os.Hostname()
	if host == "" {
		host = "manike"
	}
	return host + "-" + time.Now().UTC().Format("150405.000")
}
