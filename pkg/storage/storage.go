// Package storage is the blob store for uploaded product images.
//
// Two drivers are available:
//   - "local": files under STORAGE_LOCAL_ROOT, served back on /storage/
//   - "s3":    S3-compatible object storage (AWS S3, MinIO, R2, Spaces)
//
// The kernel opens one disk at startup and injects it:
//
//	disk, err := storage.Open(ctx, storage.ConfigFromEnv())
//	url, err := disk.Put(ctx, "products/product-1-<uuid>.png", data, "image/png")
package storage

import (
	"context"
	"fmt"

	"github.com/humanebio/storefront/config"
)

// Disk stores objects by key and reports their public URL.
type Disk interface {
	// Put writes content at key and returns its public URL.
	Put(ctx context.Context, key string, content []byte, contentType string) (string, error)

	// Exists reports whether an object is stored at key.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// URL returns the public URL for key.
	URL(key string) string
}

// Config selects and configures a driver.
type Config struct {
	Driver string // "local" | "s3"

	LocalRoot string
	LocalURL  string

	S3Bucket   string
	S3Region   string
	S3Key      string
	S3Secret   string
	S3Endpoint string
	S3URL      string
}

// ConfigFromEnv reads STORAGE_* and S3_* settings.
func ConfigFromEnv() Config {
	return Config{
		Driver:     config.StorageDefault(),
		LocalRoot:  config.StorageLocalRoot(),
		LocalURL:   config.StorageURL(),
		S3Bucket:   config.StorageS3Bucket(),
		S3Region:   config.StorageS3Region(),
		S3Key:      config.StorageS3Key(),
		S3Secret:   config.StorageS3Secret(),
		S3Endpoint: config.StorageS3Endpoint(),
		S3URL:      config.StorageS3URL(),
	}
}

// Open builds the configured driver.
func Open(ctx context.Context, cfg Config) (Disk, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocal(cfg.LocalRoot, cfg.LocalURL)
	case "s3":
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("storage: unsupported STORAGE_DISK %q (supported: local, s3)", cfg.Driver)
	}
}
