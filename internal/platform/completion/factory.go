package completion

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/manike-backend/internal/platform/logger"
	"github.com/yungbote/manike-backend/internal/platform/openai"
)

type Config struct {
	// Provider is "openai" (default) or "eino".
	Provider  string
	OpenAI    openai.Config
	RateLimit RateLimitOptions
}

// New builds the configured provider wrapped in the rate-limit retry policy.
func New(ctx context.Context, log *logger.Logger, cfg Config) (Provider, error) {
	var (
		base Provider
		err  error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "openai":
		oc := cfg.OpenAI
		// Rate-limit retries belong to the wrapper below.
		oc.MaxRetries = 0
		var client openai.Client
		client, err = openai.NewClientWithConfig(log, oc)
		if err != nil {
			return nil, err
		}
		base, err = NewOpenAI(client)
	case "eino":
		base, err = NewEino(ctx, EinoConfig{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: einoBaseURL(cfg.OpenAI.BaseURL),
			Model:   cfg.OpenAI.Model,
		})
	default:
		return nil, fmt.Errorf("unknown AI_PROVIDER %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	log.Info("Completion provider ready", "provider", base.Name())
	return WithRateLimit(base, cfg.RateLimit, log), nil
}

// eino's OpenAI model expects the versioned API root.
func einoBaseURL(raw string) string {
	u := strings.TrimRight(strings.TrimSpace(raw), "/")
	if u == "" || strings.HasSuffix(u, "/v1") {
		return u
	}
	return u + "/v1"
}
