package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	neturl "net/url"
	"strings"

	"github.com/yungbote/manike-backend/internal/observability"
	"github.com/yungbote/manike-backend/internal/platform/envutil"
	"github.com/yungbote/manike-backend/internal/platform/logger"
	"github.com/yungbote/manike-backend/internal/platform/qdrant"
)

var (
	newQdrantVectorStore = qdrant.NewVectorStore
	qdrantConfigFromEnv  = qdrant.ConfigFromEnv
)

const vectorProviderQdrant = "qdrant"

type VectorProviderBootstrapErrorCode string

const (
	VectorProviderBootstrapErrorMissingQdrantURL    VectorProviderBootstrapErrorCode = "missing_qdrant_url"
	VectorProviderBootstrapErrorInvalidQdrantURL    VectorProviderBootstrapErrorCode = "invalid_qdrant_url"
	VectorProviderBootstrapErrorMissingQdrantColl   VectorProviderBootstrapErrorCode = "missing_qdrant_collection"
	VectorProviderBootstrapErrorInvalidQdrantVector VectorProviderBootstrapErrorCode = "invalid_qdrant_vector_dim"
	VectorProviderBootstrapErrorQdrantConfigFailed  VectorProviderBootstrapErrorCode = "qdrant_config_failed"
	VectorProviderBootstrapErrorConnectFailed       VectorProviderBootstrapErrorCode = "connect_failed"
	VectorProviderBootstrapErrorProviderInitFailed  VectorProviderBootstrapErrorCode = "provider_init_failed"
	VectorProviderBootstrapCodeDisabledMissingURL   VectorProviderBootstrapErrorCode = "disabled_missing_url"
)

type VectorProviderBootstrapError struct {
	Code     VectorProviderBootstrapErrorCode
	Provider string
	Cause    error
}

func (e *VectorProviderBootstrapError) Error() string {
	if e == nil {
		return "vector provider bootstrap failed"
	}
	return fmt.Sprintf("vector provider bootstrap failed (code=%s provider=%q): %v", e.Code, e.Provider, e.Cause)
}

func (e *VectorProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveVectorStore returns (nil, nil) when QDRANT_URL is unset. Media matching then finds
// nothing and itineraries are generated without images or clips.
func resolveVectorStore(ctx context.Context, log *logger.Logger) (qdrant.VectorStore, error) {
	metrics := observability.Current()
	if envutil.String("QDRANT_URL", "") == "" {
		log.Warn("QDRANT_URL not set; media matching disabled")
		metrics.ObserveProviderBootstrap("vector_store", vectorProviderQdrant, "degraded", string(VectorProviderBootstrapCodeDisabledMissingURL))
		return nil, nil
	}

	cfg, err := qdrantConfigFromEnv()
	if err == nil {
		log.Info(
			"Selecting vector store provider",
			"provider", vectorProviderQdrant,
			"qdrant_url", cfg.URL,
			"qdrant_collection", cfg.Collection,
			"qdrant_namespace_prefix", cfg.NamespacePrefix,
			"qdrant_vector_dim", cfg.VectorDim,
		)
		var vs qdrant.VectorStore
		vs, err = newQdrantVectorStore(ctx, log, cfg)
		if err == nil {
			metrics.ObserveProviderBootstrap("vector_store", vectorProviderQdrant, "success", "none")
			return instrumentVectorStore(vectorProviderQdrant, vs), nil
		}
	}

	classified := classifyVectorProviderBootstrapError(vectorProviderQdrant, err)
	code := vectorProviderBootstrapErrorCode(classified)
	metrics.ObserveProviderBootstrap("vector_store", vectorProviderQdrant, "error", string(code))
	log.Error("Vector store provider bootstrap failed", "provider", vectorProviderQdrant, "error_code", code, "error", classified)
	return nil, classified
}

func classifyVectorProviderBootstrapError(provider string, err error) error {
	newErr := func(code VectorProviderBootstrapErrorCode) error {
		return &VectorProviderBootstrapError{Code: code, Provider: provider, Cause: err}
	}

	var cfgErr *qdrant.ConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case qdrant.ConfigErrorMissingURL:
			return newErr(VectorProviderBootstrapErrorMissingQdrantURL)
		case qdrant.ConfigErrorInvalidURL:
			return newErr(VectorProviderBootstrapErrorInvalidQdrantURL)
		case qdrant.ConfigErrorMissingCollection:
			return newErr(VectorProviderBootstrapErrorMissingQdrantColl)
		case qdrant.ConfigErrorInvalidVectorDim:
			return newErr(VectorProviderBootstrapErrorInvalidQdrantVector)
		default:
			return newErr(VectorProviderBootstrapErrorQdrantConfigFailed)
		}
	}
	var urlErr *neturl.Error
	if errors.As(err, &urlErr) {
		return newErr(VectorProviderBootstrapErrorConnectFailed)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return newErr(VectorProviderBootstrapErrorConnectFailed)
	}
	errLower := strings.ToLower(err.Error())
	if strings.Contains(errLower, "connection refused") || strings.Contains(errLower, "no such host") {
		return newErr(VectorProviderBootstrapErrorConnectFailed)
	}
	return newErr(VectorProviderBootstrapErrorProviderInitFailed)
}

func vectorProviderBootstrapErrorCode(err error) VectorProviderBootstrapErrorCode {
	var bootstrapErr *VectorProviderBootstrapError
	if errors.As(err, &bootstrapErr) {
		if bootstrapErr.Code != "" {
			return bootstrapErr.Code
		}
	}
	return VectorProviderBootstrapErrorConnectFailed
}
