package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/manike-backend/internal/observability"
	"github.com/yungbote/manike-backend/internal/platform/envutil"
	"github.com/yungbote/manike-backend/internal/platform/gcp"
	"github.com/yungbote/manike-backend/internal/platform/logger"
)

var (
	newBucketServiceWithConfig = gcp.NewBucketServiceWithConfig
	bucketConfigFromEnv        = gcp.BucketConfigFromEnv
)

type StorageProviderBootstrapErrorCode string

const (
	StorageProviderBootstrapErrorInvalidConfig StorageProviderBootstrapErrorCode = "invalid_config"
	StorageProviderBootstrapErrorConnectFailed StorageProviderBootstrapErrorCode = "connect_failed"
	StorageProviderBootstrapCodeDisabled       StorageProviderBootstrapErrorCode = "disabled_missing_bucket"
)

type StorageProviderBootstrapError struct {
	Code         StorageProviderBootstrapErrorCode
	Mode         string
	EmulatorHost string
	Cause        error
}

func (e *StorageProviderBootstrapError) Error() string {
	if e == nil {
		return "object storage bootstrap failed"
	}
	return fmt.Sprintf(
		"object storage bootstrap failed (code=%s mode=%q emulator_host=%q): %v",
		e.Code,
		e.Mode,
		e.EmulatorHost,
		e.Cause,
	)
}

func (e *StorageProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveBucketService returns (nil, nil) when no bucket is configured. Uploads and the
// video compiler are then unavailable but chat and itinerary planning still work.
func resolveBucketService(log *logger.Logger) (gcp.BucketService, error) {
	metrics := observability.Current()
	if envutil.String("MEDIA_GCS_BUCKET_NAME", "") == "" {
		log.Warn("MEDIA_GCS_BUCKET_NAME not set; uploads and video compile disabled")
		metrics.ObserveProviderBootstrap("object_storage", "gcs", "degraded", string(StorageProviderBootstrapCodeDisabled))
		return nil, nil
	}

	storageCfg, err := bucketConfigFromEnv()
	if err != nil {
		classified := &StorageProviderBootstrapError{
			Code:         StorageProviderBootstrapErrorInvalidConfig,
			Mode:         string(storageCfg.Mode),
			EmulatorHost: storageCfg.EmulatorHost,
			Cause:        err,
		}
		metrics.ObserveProviderBootstrap("object_storage", string(storageCfg.Mode), "error", string(classified.Code))
		log.Error("Object storage provider selection failed", "mode", storageCfg.Mode, "error_code", classified.Code, "error", err)
		return nil, classified
	}

	log.Info(
		"Selecting object storage provider",
		"mode", storageCfg.Mode,
		"emulator_host", storageCfg.EmulatorHost,
		"media_bucket", storageCfg.MediaBucket,
		"video_bucket", storageCfg.VideoBucket,
	)

	bucket, err := newBucketServiceWithConfig(log, storageCfg)
	if err != nil {
		classified := classifyStorageProviderBootstrapError(storageCfg, err)
		code := storageProviderBootstrapErrorCode(classified)
		metrics.ObserveProviderBootstrap("object_storage", string(storageCfg.Mode), "error", string(code))
		log.Error(
			"Object storage provider bootstrap failed",
			"mode", storageCfg.Mode,
			"emulator_host", storageCfg.EmulatorHost,
			"error_code", code,
			"error", classified,
		)
		return nil, classified
	}
	metrics.ObserveProviderBootstrap("object_storage", string(storageCfg.Mode), "success", "none")
	return bucket, nil
}

func classifyStorageProviderBootstrapError(storageCfg gcp.BucketConfig, err error) error {
	code := StorageProviderBootstrapErrorConnectFailed
	if gcp.ValidateBucketConfig(storageCfg) != nil || strings.Contains(strings.ToLower(err.Error()), "invalid") {
		code = StorageProviderBootstrapErrorInvalidConfig
	}
	return &StorageProviderBootstrapError{
		Code:         code,
		Mode:         string(storageCfg.Mode),
		EmulatorHost: storageCfg.EmulatorHost,
		Cause:        err,
	}
}

func storageProviderBootstrapErrorCode(err error) StorageProviderBootstrapErrorCode {
	var bootstrapErr *StorageProviderBootstrapError
	if errors.As(err, &bootstrapErr) {
		if bootstrapErr.Code != "" {
			return bootstrapErr.Code
		}
	}
	return StorageProviderBootstrapErrorConnectFailed
}
