package gcp

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/yungbote/manike-backend/internal/platform/envutil"
)

type StorageMode string

const (
	StorageModeGCS         StorageMode = "gcs"
	StorageModeGCSEmulator StorageMode = "gcs_emulator"
)

type BucketConfig struct {
	Mode          StorageMode
	EmulatorHost  string
	MediaBucket   string
	VideoBucket   string
	PublicBaseURL string
}

func BucketConfigFromEnv() (BucketConfig, error) {
	cfg := BucketConfig{
		EmulatorHost:  strings.TrimRight(envutil.String("STORAGE_EMULATOR_HOST", ""), "/"),
		MediaBucket:   envutil.String("MEDIA_GCS_BUCKET_NAME", ""),
		VideoBucket:   envutil.String("VIDEO_GCS_BUCKET_NAME", ""),
		PublicBaseURL: strings.TrimRight(envutil.String("OBJECT_STORAGE_PUBLIC_BASE_URL", ""), "/"),
	}
	if cfg.VideoBucket == "" {
		cfg.VideoBucket = cfg.MediaBucket
	}
	switch mode := StorageMode(strings.ToLower(envutil.String("OBJECT_STORAGE_MODE", ""))); mode {
	case "":
		cfg.Mode = StorageModeGCS
		if cfg.EmulatorHost != "" {
			cfg.Mode = StorageModeGCSEmulator
		}
	case StorageModeGCS, StorageModeGCSEmulator:
		cfg.Mode = mode
	default:
		return cfg, fmt.Errorf("invalid OBJECT_STORAGE_MODE=%q (allowed: %q, %q)", mode, StorageModeGCS, StorageModeGCSEmulator)
	}
	return cfg, ValidateBucketConfig(cfg)
}

func ValidateBucketConfig(cfg BucketConfig) error {
	if cfg.MediaBucket == "" {
		return fmt.Errorf("missing env var MEDIA_GCS_BUCKET_NAME")
	}
	if cfg.Mode == StorageModeGCSEmulator {
		u, err := url.Parse(cfg.EmulatorHost)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid STORAGE_EMULATOR_HOST=%q; expected absolute URL like http://fake-gcs:4443", cfg.EmulatorHost)
		}
	}
	if cfg.PublicBaseURL != "" {
		u, err := url.Parse(cfg.PublicBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid OBJECT_STORAGE_PUBLIC_BASE_URL=%q", cfg.PublicBaseURL)
		}
	}
	return nil
}
